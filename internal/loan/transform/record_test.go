package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"loan-workbench/internal/models"
)

func TestRecordToDraft_Defaults(t *testing.T) {
	d := RecordToDraft(&models.Application{
		Applicant: models.ApplicantInfo{FullName: "Juan", ContactNumber: "0917", Address: "QC"},
	})

	assert.Equal(t, "Juan", d.Personal.FullName)
	assert.Equal(t, "No", d.Personal.HeadOfHousehold)
	assert.Equal(t, "0", d.Personal.Dependents)
	assert.Equal(t, "Less than 1 year", d.Personal.YearsLivingHere)
	assert.Equal(t, "Rented", d.Personal.HousingStatus)

	assert.Equal(t, "Self-employed", d.Employment.CompanyName)
	assert.Equal(t, "Private", d.Employment.Sector)
	assert.Equal(t, "Self-employed", d.Employment.Position)
	assert.Equal(t, "Less than 1 year", d.Employment.EmploymentDuration)
	assert.Equal(t, "0", d.Employment.Salary)
	assert.Equal(t, "Monthly", d.Employment.TypeOfSalary)

	assert.Equal(t, models.OtherData{
		CommunityPosition:            "None",
		PaluwagaParticipation:        "Never",
		OtherIncomeSources:           "None",
		DisasterPreparednessStrategy: "None",
	}, d.Other)

	assert.Equal(t, "Same as applicant", d.CoMaker.Address)
	assert.Equal(t, "Less than 1 year", d.CoMaker.HowManyMonthsYears)
	assert.Equal(t, "Information not provided", d.CoMaker.Salary)
	assert.Equal(t, "Friend", d.CoMaker.RelationshipWithApplicant)
}

func TestRecordToDraft_FromStoredValues(t *testing.T) {
	d := RecordToDraft(&models.Application{
		Applicant: models.ApplicantInfo{FullName: "Juan", Job: "Teacher", CompanyName: "DepEd"},
		Comaker:   models.ComakerInfo{FullName: "Maria", Address: "Pasig"},
		ModelInput: &models.ModelInput{
			EmploymentSector:              "Public",
			EmploymentTenureMonths:        30,
			NetSalaryPerCutoff:            12500,
			SalaryFrequency:               "Bimonthly",
			HousingStatus:                 "Owned",
			YearsAtCurrentAddress:         4,
			HouseholdHead:                 "Yes",
			NumberOfDependents:            2,
			ComakerRelationship:           "Spouse",
			ComakerEmploymentTenureMonths: 6,
			ComakerNetSalaryPerCutoff:     18000,
			HasCommunityRole:              "Leader",
		},
	})

	assert.Equal(t, "4 years", d.Personal.YearsLivingHere)
	assert.Equal(t, "2", d.Personal.Dependents)
	assert.Equal(t, "DepEd", d.Employment.CompanyName)
	assert.Equal(t, "Teacher", d.Employment.Position)
	assert.Equal(t, "2 years 6 months", d.Employment.EmploymentDuration)
	assert.Equal(t, "12500", d.Employment.Salary, "salary falls back to the model input")
	assert.Equal(t, "6 months", d.CoMaker.HowManyMonthsYears)
	assert.Equal(t, "₱18,000", d.CoMaker.Salary)
	assert.Equal(t, "Pasig", d.CoMaker.Address)
	assert.Equal(t, "Leader", d.Other.CommunityPosition)
}

func TestRecordToDraft_MonthsSurviveRoundTrip(t *testing.T) {
	app := &models.Application{ModelInput: &models.ModelInput{EmploymentTenureMonths: 27, ComakerEmploymentTenureMonths: 14}}
	req := DraftToRequest(RecordToDraft(app))
	assert.Equal(t, 27.0, req.ModelInputData.EmploymentTenureMonths)
	assert.Equal(t, 14.0, req.ModelInputData.ComakerEmploymentTenureMonths)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		app        models.Application
		wantCity   string
		wantAmount string
	}{
		{
			name: "model salary and score",
			app: models.Application{
				Applicant:  models.ApplicantInfo{Address: "12 Mabini St, Quezon City, NCR", Salary: "₱1"},
				ModelInput: &models.ModelInput{NetSalaryPerCutoff: 12500},
				Prediction: &models.PredictionResult{FinalCreditScore: 712.456, RecommendationCount: 3},
			},
			wantCity:   "Quezon City",
			wantAmount: "₱12500 | Score: 712.46 (3 recommendations)",
		},
		{
			name:       "applicant salary without prediction",
			app:        models.Application{Applicant: models.ApplicantInfo{Address: "Pasig", Salary: "25000"}},
			wantCity:   "Pasig",
			wantAmount: "₱25000 | Score: N/A (0 recommendations)",
		},
		{
			name:       "nothing known",
			app:        models.Application{},
			wantCity:   "",
			wantAmount: "₱0 | Score: N/A (0 recommendations)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(&tt.app)
			assert.Equal(t, tt.wantCity, s.BrgyCity)
			assert.Equal(t, tt.wantAmount, s.LoanAmount)
		})
	}
}
