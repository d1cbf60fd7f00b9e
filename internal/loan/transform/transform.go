// Package transform converts between the step-form draft and the structured
// payload the loan service scores.
package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"loan-workbench/internal/common/validation"
	"loan-workbench/internal/models"
)

var (
	yearsPattern  = regexp.MustCompile(`(?i)(\d+)\s*years?`)
	monthsPattern = regexp.MustCompile(`(?i)(\d+)\s*months?`)
)

// DraftToRequest builds the request payload from a draft. It never fails;
// unparsable numbers become 0 and are caught by the validator afterwards.
func DraftToRequest(d models.Draft) models.ApplicationRequest {
	return models.ApplicationRequest{
		ApplicantInfo: models.ApplicantInfo{
			FullName:      d.Personal.FullName,
			ContactNumber: d.Personal.ContactNo,
			Address:       d.Personal.Address,
			Salary:        d.Employment.Salary,
			Job:           validation.NormalizePosition(d.Employment.Position),
			CompanyName:   d.Employment.CompanyName,
		},
		ComakerInfo: models.ComakerInfo{
			FullName:      d.CoMaker.FullName,
			ContactNumber: d.CoMaker.ContactNo,
			Address:       d.CoMaker.Address,
		},
		ModelInputData: models.ModelInput{
			EmploymentSector:              sector(d.Employment.Sector),
			EmploymentTenureMonths:        float64(DurationMonths(d.Employment.EmploymentDuration)),
			NetSalaryPerCutoff:            ParseCurrency(d.Employment.Salary),
			SalaryFrequency:               d.Employment.TypeOfSalary,
			HousingStatus:                 housing(d.Personal.HousingStatus),
			YearsAtCurrentAddress:         float64(leadingInt(firstWord(d.Personal.YearsLivingHere))),
			HouseholdHead:                 householdHead(d.Personal.HeadOfHousehold),
			NumberOfDependents:            float64(leadingInt(d.Personal.Dependents)),
			ComakerRelationship:           d.CoMaker.RelationshipWithApplicant,
			ComakerEmploymentTenureMonths: float64(DurationMonths(d.CoMaker.HowManyMonthsYears)),
			ComakerNetSalaryPerCutoff:     ParseCurrency(d.CoMaker.Salary),
			HasCommunityRole:              d.Other.CommunityPosition,
			PaluwaganParticipation:        d.Other.PaluwagaParticipation,
			OtherIncomeSource:             d.Other.OtherIncomeSources,
			DisasterPreparedness:          d.Other.DisasterPreparednessStrategy,
		},
	}
}

// ForUpdate is DraftToRequest for an edited record. Editor defaults the
// reviewer never filled in are coerced: enums fall back to a default member
// and tenures and salaries are at least 1.
func ForUpdate(d models.Draft) models.ApplicationRequest {
	req := DraftToRequest(d)
	if strings.TrimSpace(req.ApplicantInfo.Salary) == "" {
		req.ApplicantInfo.Salary = "1"
	}

	in := &req.ModelInputData
	in.SalaryFrequency = memberOr(in.SalaryFrequency, models.SalaryFrequencies, "Monthly")
	in.ComakerRelationship = memberOr(in.ComakerRelationship, models.ComakerRelationships, "Friend")
	in.HasCommunityRole = memberOr(in.HasCommunityRole, models.CommunityRoles, "None")
	in.PaluwaganParticipation = memberOr(in.PaluwaganParticipation, models.PaluwaganOptions, "Never")
	in.OtherIncomeSource = memberOr(in.OtherIncomeSource, models.OtherIncomeSources, "None")
	in.DisasterPreparedness = memberOr(in.DisasterPreparedness, models.DisasterPreparedness, "None")

	in.EmploymentTenureMonths = max(in.EmploymentTenureMonths, 1)
	in.ComakerEmploymentTenureMonths = max(in.ComakerEmploymentTenureMonths, 1)
	in.NetSalaryPerCutoff = max(in.NetSalaryPerCutoff, 1)
	in.ComakerNetSalaryPerCutoff = max(in.ComakerNetSalaryPerCutoff, 1)
	in.YearsAtCurrentAddress = max(in.YearsAtCurrentAddress, 1)
	return req
}

func memberOr(v string, set []string, fallback string) string {
	if models.OneOf(v, set) {
		return v
	}
	return fallback
}

// DurationMonths reads "N years M months" (either part optional) as months.
func DurationMonths(s string) int {
	months := 0
	if m := yearsPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		months += n * 12
	}
	if m := monthsPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		months += n
	}
	return months
}

var currencyStripper = strings.NewReplacer("₱", "", ",", "")

// ParseCurrency reads "₱25,000.50" style amounts. Anything unreadable is 0.
func ParseCurrency(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(currencyStripper.Replace(s)), 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatDuration renders months as "N months", "N years" or
// "N years M months". Zero yields "".
func FormatDuration(months int) string {
	if months <= 0 {
		return ""
	}
	years, rest := months/12, months%12
	switch {
	case years == 0:
		return fmt.Sprintf("%d months", rest)
	case rest == 0:
		return fmt.Sprintf("%d years", years)
	}
	return fmt.Sprintf("%d years %d months", years, rest)
}

// FormatPeso renders an amount with the peso sign and thousands separators.
// Zero yields "".
func FormatPeso(amount float64) string {
	if amount == 0 {
		return ""
	}
	whole := strconv.FormatFloat(amount, 'f', -1, 64)
	frac := ""
	if i := strings.IndexByte(whole, '.'); i >= 0 {
		whole, frac = whole[:i], whole[i:]
	}
	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "₱" + b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

func sector(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), "public") {
		return "Public"
	}
	return "Private"
}

func housing(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), "owned") {
		return "Owned"
	}
	return "Rented"
}

func householdHead(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "self":
		return "Yes"
	}
	return "No"
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// leadingInt parses the leading digits of s, so "5+" is 5. No digits is 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
