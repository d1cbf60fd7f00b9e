package models

import (
	"fmt"
	"strings"
	"time"
)

type ApplicantInfo struct {
	FullName      string `json:"full_name"`
	ContactNumber string `json:"contact_number"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address"`
	Salary        string `json:"salary"`
	Job           string `json:"job"`
	CompanyName   string `json:"company_name,omitempty"`
}

type ComakerInfo struct {
	FullName      string `json:"full_name"`
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address,omitempty"`
}

// ModelInput holds the categorical and numeric features used for scoring.
// Numbers stay float64 so integer checks can reject fractional input.
type ModelInput struct {
	EmploymentSector              string  `json:"Employment_Sector"`
	EmploymentTenureMonths        float64 `json:"Employment_Tenure_Months"`
	NetSalaryPerCutoff            float64 `json:"Net_Salary_Per_Cutoff"`
	SalaryFrequency               string  `json:"Salary_Frequency"`
	HousingStatus                 string  `json:"Housing_Status"`
	YearsAtCurrentAddress         float64 `json:"Years_at_Current_Address"`
	HouseholdHead                 string  `json:"Household_Head"`
	NumberOfDependents            float64 `json:"Number_of_Dependents"`
	ComakerRelationship           string  `json:"Comaker_Relationship"`
	ComakerEmploymentTenureMonths float64 `json:"Comaker_Employment_Tenure_Months"`
	ComakerNetSalaryPerCutoff     float64 `json:"Comaker_Net_Salary_Per_Cutoff"`
	HasCommunityRole              string  `json:"Has_Community_Role"`
	PaluwaganParticipation        string  `json:"Paluwagan_Participation"`
	OtherIncomeSource             string  `json:"Other_Income_Source"`
	DisasterPreparedness          string  `json:"Disaster_Preparedness"`
	IsRenewingClient              float64 `json:"Is_Renewing_Client"`
	GracePeriodUsageRate          float64 `json:"Grace_Period_Usage_Rate"`
	LatePaymentCount              float64 `json:"Late_Payment_Count"`
	HadSpecialConsideration       float64 `json:"Had_Special_Consideration"`
}

// ApplicationRequest is the `request_data` document sent on create/update.
type ApplicationRequest struct {
	ApplicantInfo  ApplicantInfo `json:"applicant_info"`
	ComakerInfo    ComakerInfo   `json:"comaker_info"`
	ModelInputData ModelInput    `json:"model_input_data"`
}

type LoanRecommendation struct {
	ProductName                 string  `json:"product_name"`
	MaxLoanableAmount           float64 `json:"max_loanable_amount"`
	InterestRateMonthly         float64 `json:"interest_rate_monthly"`
	TermInMonths                int     `json:"term_in_months"`
	EstimatedAmortizationPerCut float64 `json:"estimated_amortization_per_cutoff"`
	SuitabilityScore            float64 `json:"suitability_score"`
	IsTopRecommendation         bool    `json:"is_top_recommendation"`
}

type PredictionResult struct {
	FinalCreditScore     float64              `json:"final_credit_score"`
	Default              int                  `json:"default"`
	ProbabilityOfDefault float64              `json:"probability_of_default"`
	Status               string               `json:"status"`
	RecommendationCount  int                  `json:"recommendation_count"`
	LoanRecommendation   []LoanRecommendation `json:"loan_recommendation,omitempty"`
	RiskLevel            string               `json:"risk_level,omitempty"`
	AIExplanation        string               `json:"ai_explanation,omitempty"`
}

// TopRecommendation returns the flagged product, else the first one.
func (p *PredictionResult) TopRecommendation() *LoanRecommendation {
	if p == nil || len(p.LoanRecommendation) == 0 {
		return nil
	}
	for i := range p.LoanRecommendation {
		if p.LoanRecommendation[i].IsTopRecommendation {
			return &p.LoanRecommendation[i]
		}
	}
	return &p.LoanRecommendation[0]
}

// Application is the canonical, backend-confirmed record. Wire variants are
// resolved before a value of this type is built.
type Application struct {
	ID            string            `json:"id"`
	SessionID     string            `json:"applicationId"`
	Timestamp     time.Time         `json:"timestamp"`
	Status        Status            `json:"status"`
	LoanOfficerID string            `json:"loanOfficerId,omitempty"`
	Applicant     ApplicantInfo     `json:"applicant"`
	Comaker       ComakerInfo       `json:"comaker"`
	ModelInput    *ModelInput       `json:"modelInput,omitempty"`
	Prediction    *PredictionResult `json:"prediction,omitempty"`
	Documents     DocumentURLSet    `json:"documents,omitempty"`
}

// Request rebuilds the structured payload from the record.
func (a *Application) Request() ApplicationRequest {
	req := ApplicationRequest{
		ApplicantInfo: a.Applicant,
		ComakerInfo:   a.Comaker,
	}
	if a.ModelInput != nil {
		req.ModelInputData = *a.ModelInput
	}
	return req
}

// ==========================
// Status
// ==========================

type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusDenied    Status = "Denied"
	StatusCancelled Status = "Cancelled"
)

var Statuses = []Status{StatusPending, StatusApproved, StatusDenied, StatusCancelled}

// ParseStatus maps any casing (and the legacy "rejected") to a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "approved":
		return StatusApproved, nil
	case "denied", "rejected":
		return StatusDenied, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("invalid status %q: valid statuses are approved, denied, cancelled, pending", s)
}

// CanTransitionTo allows Pending→{Approved,Denied,Cancelled} and any→Pending.
func (s Status) CanTransitionTo(next Status) bool {
	if next == StatusPending {
		return s != StatusPending
	}
	return s == StatusPending && (next == StatusApproved || next == StatusDenied || next == StatusCancelled)
}

// ==========================
// Listing
// ==========================

type StatusCounts struct {
	Total     int `json:"total"`
	Approved  int `json:"approved"`
	Denied    int `json:"denied"`
	Cancelled int `json:"cancelled"`
	Pending   int `json:"pending"`
}

// ListQuery is one page request against the applications collection.
type ListQuery struct {
	Page     int
	PageSize int
	Status   string // a status name or "all"
	Search   string
}

// Skip is the zero-based offset of the first row of the page.
func (q ListQuery) Skip() int {
	page := q.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * q.PageSize
}

type ApplicationPage struct {
	Items  []Application
	Total  int
	Page   int
	Pages  int
	Counts StatusCounts
}
