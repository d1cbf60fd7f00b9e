package models

import "time"

// ReportQuery selects the applicant report window.
type ReportQuery struct {
	StartDate time.Time
	EndDate   time.Time
	GroupBy   string // day | week | month
}

var ReportGroupings = []string{"day", "week", "month"}

type ReportRow struct {
	Group string `json:"group"`
	Count int    `json:"count"`
}

type ReportTotals struct {
	ByStatus map[string]int `json:"by_status"`
}

type ApplicantReport struct {
	Totals ReportTotals `json:"totals"`
	Raw    []ReportRow  `json:"raw"`
}

// Total sums the per-status counts.
func (r *ApplicantReport) Total() int {
	n := 0
	for _, c := range r.Totals.ByStatus {
		n += c
	}
	return n
}

// HealthStatus is the loan service health probe result.
type HealthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
	Version  string            `json:"version,omitempty"`
}
