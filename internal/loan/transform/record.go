package transform

import (
	"strconv"
	"strings"

	"loan-workbench/internal/models"
)

// RecordToDraft rebuilds an editable draft from a stored application. Fields
// the record does not carry get the defaults the overview editor shows; enum
// fields always default to a member of their value set.
func RecordToDraft(app *models.Application) models.Draft {
	in := models.ModelInput{}
	if app.ModelInput != nil {
		in = *app.ModelInput
	}
	a, c := app.Applicant, app.Comaker

	d := models.Draft{
		Personal: models.PersonalData{
			FullName:        a.FullName,
			ContactNo:       a.ContactNumber,
			Address:         a.Address,
			HeadOfHousehold: or(in.HouseholdHead, "No"),
			Dependents:      strconv.Itoa(int(in.NumberOfDependents)),
			YearsLivingHere: "Less than 1 year",
			HousingStatus:   or(in.HousingStatus, "Rented"),
		},
		Employment: models.EmploymentData{
			CompanyName:        or(a.CompanyName, a.Job, "Self-employed"),
			Sector:             or(in.EmploymentSector, "Private"),
			Position:           or(a.Job, "Self-employed"),
			EmploymentDuration: or(FormatDuration(int(in.EmploymentTenureMonths)), "Less than 1 year"),
			Salary:             or(a.Salary, nonZero(in.NetSalaryPerCutoff), "0"),
			TypeOfSalary:       or(in.SalaryFrequency, "Monthly"),
		},
		Other: models.OtherData{
			CommunityPosition:            or(in.HasCommunityRole, "None"),
			PaluwagaParticipation:        or(in.PaluwaganParticipation, "Never"),
			OtherIncomeSources:           or(in.OtherIncomeSource, "None"),
			DisasterPreparednessStrategy: or(in.DisasterPreparedness, "None"),
		},
		CoMaker: models.CoMakerData{
			FullName:                  c.FullName,
			ContactNo:                 c.ContactNumber,
			Address:                   or(c.Address, "Same as applicant"),
			HowManyMonthsYears:        or(FormatDuration(int(in.ComakerEmploymentTenureMonths)), "Less than 1 year"),
			Salary:                    or(FormatPeso(in.ComakerNetSalaryPerCutoff), "Information not provided"),
			RelationshipWithApplicant: or(in.ComakerRelationship, "Friend"),
		},
	}
	if in.YearsAtCurrentAddress > 0 {
		d.Personal.YearsLivingHere = strconv.Itoa(int(in.YearsAtCurrentAddress)) + " years"
	}
	return d
}

// Summary is the one-line view of an application used by list renderings.
type Summary struct {
	ID          string
	Name        string
	BrgyCity    string
	Contact     string
	LoanProduct string
	LoanAmount  string
	Status      models.Status
}

// Summarize derives the list row for app.
func Summarize(app *models.Application) Summary {
	a := app.Applicant

	// "street, barangay/city, province" → second part; single part as is.
	parts := strings.Split(a.Address, ",")
	brgyCity := strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		brgyCity = strings.TrimSpace(parts[1])
	}

	salary := "₱0"
	switch {
	case app.ModelInput != nil && app.ModelInput.NetSalaryPerCutoff != 0:
		salary = "₱" + strconv.FormatFloat(app.ModelInput.NetSalaryPerCutoff, 'f', -1, 64)
	case strings.HasPrefix(a.Salary, "₱"):
		salary = a.Salary
	case a.Salary != "":
		salary = "₱" + a.Salary
	}

	score, recs := "N/A", 0
	if p := app.Prediction; p != nil {
		if p.FinalCreditScore != 0 {
			score = strconv.FormatFloat(p.FinalCreditScore, 'f', 2, 64)
		}
		recs = p.RecommendationCount
		if recs == 0 {
			recs = len(p.LoanRecommendation)
		}
	}

	return Summary{
		ID:          app.ID,
		Name:        a.FullName,
		BrgyCity:    brgyCity,
		Contact:     a.ContactNumber,
		LoanProduct: "Job: " + or(a.Job, "N/A"),
		LoanAmount:  salary + " | Score: " + score + " (" + strconv.Itoa(recs) + " recommendations)",
		Status:      app.Status,
	}
}

func or(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonZero(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
