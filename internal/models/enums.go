package models

// Value sets accepted by the scoring backend.
var (
	Jobs                 = []string{"Teacher", "Security Guard", "Seaman", "Others"}
	EmploymentSectors    = []string{"Public", "Private"}
	SalaryFrequencies    = []string{"Monthly", "Bimonthly", "Biweekly", "Weekly"}
	HousingStatuses      = []string{"Owned", "Rented"}
	YesNo                = []string{"Yes", "No"}
	ComakerRelationships = []string{"Spouse", "Sibling", "Parent", "Friend"}
	CommunityRoles       = []string{"None", "Member", "Leader", "Multiple Leader"}
	PaluwaganOptions     = []string{"Never", "Rarely", "Sometimes", "Frequently"}
	OtherIncomeSources   = []string{"None", "OFW Remittance", "Freelance", "Business"}
	DisasterPreparedness = []string{"None", "Savings", "Insurance", "Community Plan"}

	// Durations offered by the employment and co-maker tenure pickers.
	TenureChoices = []string{"6 months", "1 year", "2 years", "3 years", "5 years", "10 years"}

	DependentChoices = []string{"0", "1", "2", "3", "4", "5+"}
)

// OneOf reports whether v is an exact member of set.
func OneOf(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
