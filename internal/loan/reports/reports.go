// Package reports fetches the applicant report and renders it for the
// terminal or for export.
package reports

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/models"
)

const dateLayout = "2006-01-02"

type Backend interface {
	ApplicantReport(ctx context.Context, q models.ReportQuery) (*models.ApplicantReport, error)
}

type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatPDF   Format = "pdf"
)

var Formats = []Format{FormatTable, FormatCSV, FormatXLSX, FormatPDF}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.NewValidationFailedError([]string{fmt.Sprintf("format: must be one of table, csv, xlsx, pdf (got %q)", s)})
}

// NewQuery parses YYYY-MM-DD bounds. Either bound may be empty; groupBy
// defaults to day.
func NewQuery(start, end, groupBy string) (models.ReportQuery, error) {
	var q models.ReportQuery
	var problems []string

	if start != "" {
		t, err := time.Parse(dateLayout, start)
		if err != nil {
			problems = append(problems, "start_date: must be YYYY-MM-DD")
		}
		q.StartDate = t
	}
	if end != "" {
		t, err := time.Parse(dateLayout, end)
		if err != nil {
			problems = append(problems, "end_date: must be YYYY-MM-DD")
		}
		q.EndDate = t
	}
	if !q.StartDate.IsZero() && !q.EndDate.IsZero() && q.EndDate.Before(q.StartDate) {
		problems = append(problems, "end_date: must not be before start_date")
	}

	q.GroupBy = strings.ToLower(strings.TrimSpace(groupBy))
	if q.GroupBy == "" {
		q.GroupBy = "day"
	}
	if !models.OneOf(q.GroupBy, models.ReportGroupings) {
		problems = append(problems, "group_by: must be one of day, week, month")
	}

	if len(problems) > 0 {
		return models.ReportQuery{}, errors.NewValidationFailedError(problems)
	}
	return q, nil
}

// Report is a fetched report with the query that produced it.
type Report struct {
	Query     models.ReportQuery
	Data      *models.ApplicantReport
	Generated time.Time
}

func Fetch(ctx context.Context, backend Backend, q models.ReportQuery) (*Report, error) {
	data, err := backend.ApplicantReport(ctx, q)
	if err != nil {
		return nil, err
	}
	if data.Totals.ByStatus == nil {
		data.Totals.ByStatus = map[string]int{}
	}
	return &Report{Query: q, Data: data, Generated: time.Now()}, nil
}

// StatusRow is one line of the totals table.
type StatusRow struct {
	Status string
	Count  int
}

// Totals lists per-status counts with the known statuses first in their
// usual order, then anything else alphabetically.
func (r *Report) Totals() []StatusRow {
	seen := make(map[string]bool)
	var rows []StatusRow
	for _, s := range models.Statuses {
		for k, v := range r.Data.Totals.ByStatus {
			if strings.EqualFold(k, string(s)) && !seen[k] {
				rows = append(rows, StatusRow{Status: string(s), Count: v})
				seen[k] = true
			}
		}
	}
	var rest []string
	for k := range r.Data.Totals.ByStatus {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		rows = append(rows, StatusRow{Status: k, Count: r.Data.Totals.ByStatus[k]})
	}
	return rows
}

// Period describes the query window for headings.
func (r *Report) Period() string {
	start, end := "beginning", "today"
	if !r.Query.StartDate.IsZero() {
		start = r.Query.StartDate.Format(dateLayout)
	}
	if !r.Query.EndDate.IsZero() {
		end = r.Query.EndDate.Format(dateLayout)
	}
	return fmt.Sprintf("%s to %s, by %s", start, end, r.Query.GroupBy)
}

// Write renders r in the chosen format.
func Write(w io.Writer, format Format, r *Report) error {
	switch format {
	case FormatTable:
		return WriteTable(w, r)
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatXLSX:
		return WriteXLSX(w, r)
	case FormatPDF:
		return WritePDF(w, r)
	}
	return fmt.Errorf("unsupported report format %q", format)
}
