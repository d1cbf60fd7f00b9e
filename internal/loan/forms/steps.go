package forms

import (
	"loan-workbench/internal/common/validation"
	"loan-workbench/internal/models"
)

var (
	contactPattern  = `^\+?[0-9\-\s]{7,20}$`
	amountPattern   = `^₱?\s*[0-9][0-9,]*(\.[0-9]+)?$`
	durationPattern = `^((\d+\s*years?)(\s+\d+\s*months?)?|\d+\s*months?|Less than 1 year)$`
	yearsPattern    = `^(\d+\s*years?|Less than 1 year)$`
)

func text(minLen int) validation.Property {
	p := validation.Property{Type: "string"}
	if minLen > 0 {
		p.MinLength = validation.IntPtr(minLen)
	}
	return p
}

func pattern(re string) validation.Property {
	return validation.Property{Type: "string", Pattern: validation.StringPtr(re)}
}

func choice(options []string) validation.Property {
	return validation.Property{Type: "string", Enum: options}
}

var Personal = &Step{
	Number:  1,
	Section: models.SectionPersonal,
	Title:   "Personal Data",
	fields: []Field{
		{Name: "fullName", Label: "Full name", Required: true, prop: text(3),
			get: func(d *models.Draft) *string { return &d.Personal.FullName }},
		{Name: "contactNo", Label: "Contact number", Required: true, prop: pattern(contactPattern),
			get: func(d *models.Draft) *string { return &d.Personal.ContactNo }},
		{Name: "address", Label: "Address", Required: true, prop: text(5),
			get: func(d *models.Draft) *string { return &d.Personal.Address }},
		{Name: "headOfHousehold", Label: "Head of household", Required: true, Options: models.YesNo, prop: choice(models.YesNo),
			get: func(d *models.Draft) *string { return &d.Personal.HeadOfHousehold }},
		{Name: "dependents", Label: "Dependents", Required: true, Options: models.DependentChoices, prop: choice(models.DependentChoices),
			get: func(d *models.Draft) *string { return &d.Personal.Dependents }},
		{Name: "yearsLivingHere", Label: "Years at current address", Required: true, prop: pattern(yearsPattern),
			get: func(d *models.Draft) *string { return &d.Personal.YearsLivingHere }},
		{Name: "housingStatus", Label: "Housing status", Required: true, Options: models.HousingStatuses, prop: choice(models.HousingStatuses),
			get: func(d *models.Draft) *string { return &d.Personal.HousingStatus }},
	},
	slots: []models.FileSlot{
		models.SlotProfilePhoto,
		models.SlotValidID,
		models.SlotBrgyCert,
		models.SlotESignaturePersonal,
	},
}

var Employment = &Step{
	Number:  2,
	Section: models.SectionEmployment,
	Title:   "Employment Data",
	fields: []Field{
		{Name: "companyName", Label: "Company name", prop: text(0),
			get: func(d *models.Draft) *string { return &d.Employment.CompanyName }},
		{Name: "sector", Label: "Sector", Required: true, Options: models.EmploymentSectors, prop: choice(models.EmploymentSectors),
			get: func(d *models.Draft) *string { return &d.Employment.Sector }},
		{Name: "position", Label: "Position", Required: true, prop: text(2),
			get: func(d *models.Draft) *string { return &d.Employment.Position }},
		{Name: "employmentDuration", Label: "Employment duration", Required: true, Options: models.TenureChoices, prop: pattern(durationPattern),
			get: func(d *models.Draft) *string { return &d.Employment.EmploymentDuration }},
		{Name: "salary", Label: "Net salary per cutoff", Required: true, prop: pattern(amountPattern),
			get: func(d *models.Draft) *string { return &d.Employment.Salary }},
		{Name: "typeOfSalary", Label: "Salary frequency", Required: true, Options: models.SalaryFrequencies, prop: choice(models.SalaryFrequencies),
			get: func(d *models.Draft) *string { return &d.Employment.TypeOfSalary }},
	},
	slots: []models.FileSlot{models.SlotPayslip, models.SlotCompanyID},
}

var Other = &Step{
	Number:  3,
	Section: models.SectionOther,
	Title:   "Other Data",
	fields: []Field{
		{Name: "communityPosition", Label: "Community role", Required: true, Options: models.CommunityRoles, prop: choice(models.CommunityRoles),
			get: func(d *models.Draft) *string { return &d.Other.CommunityPosition }},
		{Name: "paluwagaParticipation", Label: "Paluwagan participation", Required: true, Options: models.PaluwaganOptions, prop: choice(models.PaluwaganOptions),
			get: func(d *models.Draft) *string { return &d.Other.PaluwagaParticipation }},
		{Name: "otherIncomeSources", Label: "Other income source", Required: true, Options: models.OtherIncomeSources, prop: choice(models.OtherIncomeSources),
			get: func(d *models.Draft) *string { return &d.Other.OtherIncomeSources }},
		{Name: "disasterPreparednessStrategy", Label: "Disaster preparedness", Required: true, Options: models.DisasterPreparedness, prop: choice(models.DisasterPreparedness),
			get: func(d *models.Draft) *string { return &d.Other.DisasterPreparednessStrategy }},
	},
	slots: []models.FileSlot{models.SlotProofOfBilling},
}

var CoMaker = &Step{
	Number:  4,
	Section: models.SectionCoMaker,
	Title:   "Co-Maker Data",
	fields: []Field{
		{Name: "fullName", Label: "Full name", Required: true, prop: text(3),
			get: func(d *models.Draft) *string { return &d.CoMaker.FullName }},
		{Name: "contactNo", Label: "Contact number", Required: true, prop: pattern(contactPattern),
			get: func(d *models.Draft) *string { return &d.CoMaker.ContactNo }},
		{Name: "address", Label: "Address", prop: text(0),
			get: func(d *models.Draft) *string { return &d.CoMaker.Address }},
		{Name: "howManyMonthsYears", Label: "Employment duration", Required: true, Options: models.TenureChoices, prop: pattern(durationPattern),
			get: func(d *models.Draft) *string { return &d.CoMaker.HowManyMonthsYears }},
		{Name: "salary", Label: "Net salary per cutoff", Required: true, prop: pattern(amountPattern),
			get: func(d *models.Draft) *string { return &d.CoMaker.Salary }},
		{Name: "relationshipWithApplicant", Label: "Relationship", Required: true, Options: models.ComakerRelationships, prop: choice(models.ComakerRelationships),
			get: func(d *models.Draft) *string { return &d.CoMaker.RelationshipWithApplicant }},
	},
	slots: []models.FileSlot{models.SlotESignatureCoMaker},
}
