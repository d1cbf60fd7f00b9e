package validation

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"loan-workbench/internal/models"
)

// ApplicationResult is the outcome of validating a structured application.
// TransformedData is always populated: strings trimmed, job coerced and the
// sanitized model flags applied, whether or not Valid is true.
type ApplicationResult struct {
	Valid           bool                      `json:"valid"`
	Errors          []string                  `json:"errors"`
	TransformedData models.ApplicationRequest `json:"transformedData"`
	IsUpdate        bool                      `json:"isUpdate"`
}

// FieldSet holds dotted field paths such as "applicant_info.full_name" or
// "model_input_data.Employment_Sector".
type FieldSet map[string]struct{}

func (f FieldSet) Has(path string) bool {
	_, ok := f[path]
	return ok
}

func (f FieldSet) Add(paths ...string) {
	for _, p := range paths {
		f[p] = struct{}{}
	}
}

var contactPattern = regexp.MustCompile(`^\+?[0-9\-\s]{7,20}$`)

// ValidContactNumber reports whether s is 7-20 digits, spaces or dashes with
// an optional leading plus.
func ValidContactNumber(s string) bool {
	return contactPattern.MatchString(s)
}

type applicationRule struct {
	field string
	ok    func(r *models.ApplicationRequest) bool
	msg   string
}

var applicationRules = []applicationRule{
	{"applicant_info.full_name", func(r *models.ApplicationRequest) bool { return minChars(r.ApplicantInfo.FullName, 3) },
		"Full name is required and must be at least 3 characters"},
	{"applicant_info.contact_number", func(r *models.ApplicationRequest) bool { return ValidContactNumber(r.ApplicantInfo.ContactNumber) },
		"Contact number must contain only digits, spaces, dashes, or leading + (7-20 chars)"},
	{"applicant_info.address", func(r *models.ApplicationRequest) bool { return minChars(r.ApplicantInfo.Address, 5) },
		"Address is required and must be at least 5 characters"},
	{"applicant_info.salary", func(r *models.ApplicationRequest) bool { return strings.TrimSpace(r.ApplicantInfo.Salary) != "" },
		"Salary is required"},
	{"applicant_info.job", func(r *models.ApplicationRequest) bool { return strings.TrimSpace(r.ApplicantInfo.Job) != "" },
		"Job is required"},
	{"comaker_info.full_name", func(r *models.ApplicationRequest) bool { return minChars(r.ComakerInfo.FullName, 3) },
		"Co-maker full name is required and must be at least 3 characters"},
	{"comaker_info.contact_number", func(r *models.ApplicationRequest) bool { return ValidContactNumber(r.ComakerInfo.ContactNumber) },
		"Co-maker contact number must contain only digits, spaces, dashes, or leading + (7-20 chars)"},

	{"model_input_data.Employment_Sector", func(r *models.ApplicationRequest) bool {
		return models.OneOf(r.ModelInputData.EmploymentSector, models.EmploymentSectors)
	}, "Employment sector must be Public or Private"},
	{"model_input_data.Employment_Tenure_Months", func(r *models.ApplicationRequest) bool {
		return positiveInteger(r.ModelInputData.EmploymentTenureMonths)
	}, "Employment tenure must be a positive integer"},
	{"model_input_data.Net_Salary_Per_Cutoff", func(r *models.ApplicationRequest) bool {
		return positiveNumber(r.ModelInputData.NetSalaryPerCutoff)
	}, "Net salary per cutoff must be greater than 0"},
	{"model_input_data.Salary_Frequency", func(r *models.ApplicationRequest) bool {
		return models.OneOf(r.ModelInputData.SalaryFrequency, models.SalaryFrequencies)
	}, "Salary frequency must be Monthly, Bimonthly, Biweekly, or Weekly"},
	{"model_input_data.Housing_Status", func(r *models.ApplicationRequest) bool {
		return models.OneOf(r.ModelInputData.HousingStatus, models.HousingStatuses)
	}, "Housing status must be Owned or Rented"},
	{"model_input_data.Years_at_Current_Address", func(r *models.ApplicationRequest) bool {
		v := r.ModelInputData.YearsAtCurrentAddress
		return finite(v) && v >= 0
	}, "Years at current address must be 0 or greater"},
	{"model_input_data.Household_Head", func(r *models.ApplicationRequest) bool {
		return models.OneOf(r.ModelInputData.HouseholdHead, models.YesNo)
	}, "Household head must be Yes or No"},
	{"model_input_data.Number_of_Dependents", func(r *models.ApplicationRequest) bool {
		return nonNegativeInteger(r.ModelInputData.NumberOfDependents)
	}, "Number of dependents must be 0 or greater"},
	{"model_input_data.Comaker_Relationship", func(r *models.ApplicationRequest) bool {
		return models.OneOf(r.ModelInputData.ComakerRelationship, models.ComakerRelationships)
	}, "Co-maker relationship must be Spouse, Sibling, Parent, or Friend"},
	{"model_input_data.Comaker_Employment_Tenure_Months", func(r *models.ApplicationRequest) bool {
		return positiveInteger(r.ModelInputData.ComakerEmploymentTenureMonths)
	}, "Co-maker's employment tenure must be greater than 0"},
	{"model_input_data.Comaker_Net_Salary_Per_Cutoff", func(r *models.ApplicationRequest) bool {
		return positiveNumber(r.ModelInputData.ComakerNetSalaryPerCutoff)
	}, "Co-maker's net salary per cutoff must be greater than 0"},
	{"model_input_data.Has_Community_Role", func(r *models.ApplicationRequest) bool {
		return models.OneOf(r.ModelInputData.HasCommunityRole, models.CommunityRoles)
	}, "Community role must be None, Member, Leader, or Multiple Leader"},
	{"model_input_data.Paluwagan_Participation", func(r *models.ApplicationRequest) bool {
		return models.OneOf(r.ModelInputData.PaluwaganParticipation, models.PaluwaganOptions)
	}, "Paluwagan participation must be Never, Rarely, Sometimes, or Frequently"},
	{"model_input_data.Other_Income_Source", func(r *models.ApplicationRequest) bool {
		return models.OneOf(r.ModelInputData.OtherIncomeSource, models.OtherIncomeSources)
	}, "Other income source must be None, OFW Remittance, Freelance, or Business"},
	{"model_input_data.Disaster_Preparedness", func(r *models.ApplicationRequest) bool {
		return models.OneOf(r.ModelInputData.DisasterPreparedness, models.DisasterPreparedness)
	}, "Disaster preparedness must be None, Savings, Insurance, or Community Plan"},
}

// ValidateFullApplication checks every rule against a complete payload.
func ValidateFullApplication(req models.ApplicationRequest) *ApplicationResult {
	return validateApplication(req, nil)
}

// ValidateApplicationUpdate checks only the fields named in present. Fields
// absent from a partial update are never reported as missing.
func ValidateApplicationUpdate(req models.ApplicationRequest, present FieldSet) *ApplicationResult {
	if present == nil {
		present = FieldSet{}
	}
	return validateApplication(req, present)
}

func validateApplication(req models.ApplicationRequest, present FieldSet) *ApplicationResult {
	errs := []string{}
	for _, rule := range applicationRules {
		if present != nil && !present.Has(rule.field) {
			continue
		}
		if !rule.ok(&req) {
			errs = append(errs, rule.msg)
		}
	}

	return &ApplicationResult{
		Valid:           len(errs) == 0,
		Errors:          errs,
		TransformedData: transformApplication(req),
		IsUpdate:        present != nil,
	}
}

// transformApplication applies the normalizations that never fail.
func transformApplication(req models.ApplicationRequest) models.ApplicationRequest {
	out := req

	out.ApplicantInfo = models.ApplicantInfo{
		FullName:      strings.TrimSpace(req.ApplicantInfo.FullName),
		ContactNumber: strings.TrimSpace(req.ApplicantInfo.ContactNumber),
		Email:         strings.TrimSpace(req.ApplicantInfo.Email),
		Address:       strings.TrimSpace(req.ApplicantInfo.Address),
		Salary:        strings.TrimSpace(req.ApplicantInfo.Salary),
		Job:           CoerceJob(req.ApplicantInfo.Job),
		CompanyName:   strings.TrimSpace(req.ApplicantInfo.CompanyName),
	}
	out.ComakerInfo = models.ComakerInfo{
		FullName:      strings.TrimSpace(req.ComakerInfo.FullName),
		ContactNumber: strings.TrimSpace(req.ComakerInfo.ContactNumber),
		Address:       strings.TrimSpace(req.ComakerInfo.Address),
	}

	m := &out.ModelInputData
	m.IsRenewingClient = flag(m.IsRenewingClient)
	m.HadSpecialConsideration = flag(m.HadSpecialConsideration)
	m.GracePeriodUsageRate = clamp(m.GracePeriodUsageRate, 0, 1)
	if !finite(m.LatePaymentCount) || m.LatePaymentCount < 0 {
		m.LatePaymentCount = 0
	}

	return out
}

// PresentFields lists the dotted paths carried by a JSON application
// payload. Null values count as absent.
func PresentFields(raw []byte) (FieldSet, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, err
	}

	fields := FieldSet{}
	for _, section := range []string{"applicant_info", "comaker_info", "model_input_data"} {
		body, ok := top[section]
		if !ok || isJSONNull(body) {
			continue
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(body, &inner); err != nil {
			return nil, err
		}
		for key, val := range inner {
			if isJSONNull(val) {
				continue
			}
			fields.Add(section + "." + key)
		}
	}
	return fields, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func minChars(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positiveInteger(v float64) bool {
	return finite(v) && v > 0 && v == math.Trunc(v)
}

func nonNegativeInteger(v float64) bool {
	return finite(v) && v >= 0 && v == math.Trunc(v)
}

func positiveNumber(v float64) bool {
	return finite(v) && v > 0
}

func flag(v float64) float64 {
	if v != 0 && !math.IsNaN(v) {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
