package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"loan-workbench/internal/common/validation"
	"loan-workbench/internal/models"
)

func sampleDraft() models.Draft {
	return models.Draft{
		Personal: models.PersonalData{
			FullName:        "Juan Dela Cruz",
			ContactNo:       "0917-123-4567",
			Address:         "12 Mabini St, Quezon City, Metro Manila",
			HeadOfHousehold: "Yes",
			Dependents:      "5+",
			YearsLivingHere: "3 years",
			HousingStatus:   "Owned",
		},
		Employment: models.EmploymentData{
			CompanyName:        "DepEd",
			Sector:             "Public",
			Position:           "  teacher  ",
			EmploymentDuration: "2 years 6 months",
			Salary:             "₱25,000.50",
			TypeOfSalary:       "Monthly",
		},
		Other: models.OtherData{
			CommunityPosition:            "Member",
			PaluwagaParticipation:        "Sometimes",
			OtherIncomeSources:           "None",
			DisasterPreparednessStrategy: "Savings",
		},
		CoMaker: models.CoMakerData{
			FullName:                  "Maria Dela Cruz",
			ContactNo:                 "0918 765 4321",
			Address:                   "Same",
			HowManyMonthsYears:        "1 year",
			Salary:                    "18,000",
			RelationshipWithApplicant: "Spouse",
		},
	}
}

// ==========================================
// Draft → request
// ==========================================

func TestDraftToRequest(t *testing.T) {
	req := DraftToRequest(sampleDraft())

	assert.Equal(t, "Teacher", req.ApplicantInfo.Job)
	assert.Equal(t, "₱25,000.50", req.ApplicantInfo.Salary)
	assert.Equal(t, "DepEd", req.ApplicantInfo.CompanyName)
	assert.Equal(t, "Same", req.ComakerInfo.Address)

	in := req.ModelInputData
	assert.Equal(t, "Public", in.EmploymentSector)
	assert.Equal(t, 30.0, in.EmploymentTenureMonths)
	assert.Equal(t, 25000.50, in.NetSalaryPerCutoff)
	assert.Equal(t, "Owned", in.HousingStatus)
	assert.Equal(t, 3.0, in.YearsAtCurrentAddress)
	assert.Equal(t, "Yes", in.HouseholdHead)
	assert.Equal(t, 5.0, in.NumberOfDependents)
	assert.Equal(t, 12.0, in.ComakerEmploymentTenureMonths)
	assert.Equal(t, 18000.0, in.ComakerNetSalaryPerCutoff)
	assert.Equal(t, "Spouse", in.ComakerRelationship)
	assert.Zero(t, in.IsRenewingClient)
	assert.Zero(t, in.GracePeriodUsageRate)
	assert.Zero(t, in.LatePaymentCount)
	assert.Zero(t, in.HadSpecialConsideration)
}

func TestDraftToRequest_CompleteDraftValidates(t *testing.T) {
	result := validation.ValidateFullApplication(DraftToRequest(sampleDraft()))
	assert.True(t, result.Valid, result.Errors)
}

func TestDraftToRequest_Mappings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Draft)
		check  func(*testing.T, models.ModelInput)
	}{
		{"self is household head", func(d *models.Draft) { d.Personal.HeadOfHousehold = "Self" },
			func(t *testing.T, in models.ModelInput) { assert.Equal(t, "Yes", in.HouseholdHead) }},
		{"anything else is not", func(d *models.Draft) { d.Personal.HeadOfHousehold = "Parent" },
			func(t *testing.T, in models.ModelInput) { assert.Equal(t, "No", in.HouseholdHead) }},
		{"renting maps to rented", func(d *models.Draft) { d.Personal.HousingStatus = "Renting" },
			func(t *testing.T, in models.ModelInput) { assert.Equal(t, "Rented", in.HousingStatus) }},
		{"lowercase public", func(d *models.Draft) { d.Employment.Sector = "public" },
			func(t *testing.T, in models.ModelInput) { assert.Equal(t, "Public", in.EmploymentSector) }},
		{"unknown sector is private", func(d *models.Draft) { d.Employment.Sector = "Other" },
			func(t *testing.T, in models.ModelInput) { assert.Equal(t, "Private", in.EmploymentSector) }},
		{"less than a year", func(d *models.Draft) { d.Personal.YearsLivingHere = "Less than 1 year" },
			func(t *testing.T, in models.ModelInput) { assert.Zero(t, in.YearsAtCurrentAddress) }},
		{"garbage salary", func(d *models.Draft) { d.Employment.Salary = "a lot" },
			func(t *testing.T, in models.ModelInput) { assert.Zero(t, in.NetSalaryPerCutoff) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sampleDraft()
			tt.mutate(&d)
			tt.check(t, DraftToRequest(d).ModelInputData)
		})
	}
}

func TestDurationMonths(t *testing.T) {
	tests := map[string]int{
		"6 months":          6,
		"1 year":            12,
		"10 Years":          120,
		"2 years 3 months":  27,
		"2years":            24,
		"":                  0,
		"Less than 1 year":  12,
		"about a while now": 0,
	}
	for in, want := range tests {
		assert.Equal(t, want, DurationMonths(in), in)
	}
}

func TestParseCurrency(t *testing.T) {
	assert.Equal(t, 1234567.5, ParseCurrency("₱1,234,567.50"))
	assert.Equal(t, 500.0, ParseCurrency(" 500 "))
	assert.Zero(t, ParseCurrency(""))
	assert.Zero(t, ParseCurrency("₱"))
}

// ==========================================
// Formatting
// ==========================================

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "", FormatDuration(0))
	assert.Equal(t, "7 months", FormatDuration(7))
	assert.Equal(t, "2 years", FormatDuration(24))
	assert.Equal(t, "2 years 6 months", FormatDuration(30))
}

func TestFormatDuration_RoundTrip(t *testing.T) {
	for m := 1; m <= 240; m++ {
		assert.Equal(t, m, DurationMonths(FormatDuration(m)), m)
	}
}

func TestFormatPeso(t *testing.T) {
	assert.Equal(t, "", FormatPeso(0))
	assert.Equal(t, "₱950", FormatPeso(950))
	assert.Equal(t, "₱18,000", FormatPeso(18000))
	assert.Equal(t, "₱1,234,567.5", FormatPeso(1234567.5))
}

// ==========================================
// Edited records
// ==========================================

func TestForUpdate_SparseRecordValidates(t *testing.T) {
	d := RecordToDraft(&models.Application{
		Applicant: models.ApplicantInfo{FullName: "Juan Dela Cruz", ContactNumber: "0917-123-4567", Address: "12 Mabini St, Quezon City"},
		Comaker:   models.ComakerInfo{FullName: "Maria Dela Cruz", ContactNumber: "0918 765 4321"},
	})

	req := ForUpdate(d)
	result := validation.ValidateFullApplication(req)
	assert.True(t, result.Valid, result.Errors)

	in := req.ModelInputData
	assert.Equal(t, "Private", in.EmploymentSector)
	assert.Equal(t, "Never", in.PaluwaganParticipation)
	assert.Equal(t, "None", in.DisasterPreparedness)
	assert.Equal(t, "Friend", in.ComakerRelationship)
	assert.Equal(t, 1.0, in.EmploymentTenureMonths)
	assert.Equal(t, 1.0, in.ComakerNetSalaryPerCutoff)
}

func TestForUpdate_KeepsEditedValues(t *testing.T) {
	d := sampleDraft()
	d.Other.PaluwagaParticipation = "Sometimes"
	d.CoMaker.RelationshipWithApplicant = "Sibling"

	req := ForUpdate(d)
	assert.Equal(t, DraftToRequest(d), req)
	assert.Equal(t, "Sometimes", req.ModelInputData.PaluwaganParticipation)
	assert.Equal(t, "Sibling", req.ModelInputData.ComakerRelationship)
}
