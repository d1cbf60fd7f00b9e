package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"loan-workbench/internal/common/validation"
	"loan-workbench/internal/loan/documents"
	"loan-workbench/internal/loan/forms"
	"loan-workbench/internal/loan/processform"
	"loan-workbench/internal/loan/transform"
	"loan-workbench/internal/models"
)

func formatDraft(out io.Writer, d models.Draft, files models.Files, current int) {
	if current > 0 {
		fmt.Fprintf(out, "Step %d of %d\n", current, processform.LastStep)
	}
	for _, step := range forms.Steps {
		marker := " "
		if step.Number == current {
			marker = ">"
		}
		fmt.Fprintf(out, "\n%s %d. %s\n", marker, step.Number, step.Title)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		values := step.Values(d)
		for _, f := range step.Fields() {
			v := values[f.Name]
			if v == "" {
				v = "-"
			}
			req := ""
			if f.Required {
				req = "*"
			}
			_, _ = fmt.Fprintf(w, "    %s.%s%s\t%s\n", step.Section, f.Name, req, v)
		}
		for _, slot := range step.Slots() {
			file := "-"
			if f := files[slot]; f != nil {
				file = fmt.Sprintf("%s (%s)", f.Name, humanBytes(f.Size()))
			}
			_, _ = fmt.Fprintf(w, "    [%s]\t%s\n", slot, file)
		}
		_ = w.Flush()
	}
}

// formatStepErrors lists problems per field in form order, labelled the way
// the form shows them.
func formatStepErrors(out io.Writer, step *forms.Step, result *validation.ValidationResult) {
	fmt.Fprintf(out, "Step %d (%s) needs attention:\n", step.Number, step.Title)
	for _, f := range step.Fields() {
		if !result.HasErrors(f.Name) {
			continue
		}
		for _, e := range result.GetErrorsForField(f.Name) {
			fmt.Fprintf(out, "  %s %s\n", f.Label, e.Message)
		}
	}
}

func formatApplicationPage(out io.Writer, page *models.ApplicationPage) {
	if page == nil || len(page.Items) == 0 {
		fmt.Fprintln(out, "No applications found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tBRGY/CITY\tCONTACT\tPRODUCT\tAMOUNT\tSTATUS")
	_, _ = fmt.Fprintln(w, "--\t----\t---------\t-------\t-------\t------\t------")
	for i := range page.Items {
		s := transform.Summarize(&page.Items[i])
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, truncate(s.Name, 30), truncate(s.BrgyCity, 24), s.Contact, truncate(s.LoanProduct, 28), s.LoanAmount, s.Status)
	}
	_ = w.Flush()

	c := page.Counts
	fmt.Fprintf(out, "\nPage %d of %d (%d total)  pending %d, approved %d, denied %d, cancelled %d\n",
		page.Page, max(page.Pages, 1), page.Total, c.Pending, c.Approved, c.Denied, c.Cancelled)
}

func formatOverview(out io.Writer, app *models.Application, d models.Draft, docs models.DocumentURLSet) {
	fmt.Fprintf(out, "Application %s  [%s]\n", app.SessionID, app.Status)
	if !app.Timestamp.IsZero() {
		fmt.Fprintf(out, "Submitted %s\n", app.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	formatDraft(out, d, nil, 0)

	fmt.Fprintln(out)
	formatRecommendations(out, app.Prediction)

	fmt.Fprintln(out)
	formatDocumentURLs(out, docs, time.Now())
}

func formatRecommendations(out io.Writer, p *models.PredictionResult) {
	if p == nil {
		fmt.Fprintln(out, "No assessment yet")
		return
	}
	fmt.Fprintf(out, "Credit score %.2f", p.FinalCreditScore)
	if p.RiskLevel != "" {
		fmt.Fprintf(out, ", risk %s", p.RiskLevel)
	}
	fmt.Fprintf(out, ", probability of default %.1f%%\n", p.ProbabilityOfDefault*100)
	if len(p.LoanRecommendation) == 0 {
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "\tPRODUCT\tMAX AMOUNT\tRATE/MO\tTERM\tPER CUTOFF")
	for _, r := range p.LoanRecommendation {
		top := ""
		if r.IsTopRecommendation {
			top = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t₱%s\t%.2f%%\t%d mo\t₱%s\n",
			top, r.ProductName, transform.FormatPeso(r.MaxLoanableAmount), r.InterestRateMonthly,
			r.TermInMonths, transform.FormatPeso(r.EstimatedAmortizationPerCut))
	}
	_ = w.Flush()
}

// formatDocumentURLs lists each slot with how long its URL stays valid.
func formatDocumentURLs(out io.Writer, set models.DocumentURLSet, now time.Time) {
	slots := set.Slots()
	if len(slots) == 0 {
		fmt.Fprintln(out, "No documents")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DOCUMENT\tEXPIRES\tURL")
	for _, slot := range slots {
		url := set[slot]
		expires := "unknown"
		if exp, ok := documents.ExpiresAt(url); ok {
			if now.Before(exp) {
				expires = "in " + exp.Sub(now).Round(time.Second).String()
			} else {
				expires = "expired"
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", slot, expires, url)
	}
	_ = w.Flush()
}

func formatPendingUploads(out io.Writer, recs []models.PendingUpload) {
	if len(recs) == 0 {
		fmt.Fprintln(out, "No pending uploads")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tAPPLICATION\tSLOT\tFILE\tSTATUS\tCREATED\tERROR")
	for _, r := range recs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.ApplicationID, r.Field, r.FileName, r.Status,
			time.UnixMilli(r.CreatedAt).Local().Format("2006-01-02 15:04"),
			truncate(r.LastError, 40))
	}
	_ = w.Flush()
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
