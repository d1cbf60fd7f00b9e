package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/jung-kurt/gofpdf"
	"github.com/tealeg/xlsx/v2"
)

func WriteTable(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "Applicant report (%s)\n\n", r.Period())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tCOUNT")
	for _, row := range r.Totals() {
		fmt.Fprintf(tw, "%s\t%d\n", row.Status, row.Count)
	}
	fmt.Fprintf(tw, "Total\t%d\n", r.Data.Total())
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Data.Raw) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tCOUNT")
	for _, row := range r.Data.Raw {
		fmt.Fprintf(tw, "%s\t%d\n", row.Group, row.Count)
	}
	return tw.Flush()
}

// WriteCSV emits a section column so totals and groups share one sheet.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	records := [][]string{{"section", "key", "count"}}
	for _, row := range r.Totals() {
		records = append(records, []string{"status", row.Status, strconv.Itoa(row.Count)})
	}
	for _, row := range r.Data.Raw {
		records = append(records, []string{r.Query.GroupBy, row.Group, strconv.Itoa(row.Count)})
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func WriteXLSX(w io.Writer, r *Report) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	addRow(summary, "Period", r.Period())
	addRow(summary, "Status", "Count")
	for _, row := range r.Totals() {
		cells := summary.AddRow()
		cells.AddCell().SetString(row.Status)
		cells.AddCell().SetInt(row.Count)
	}
	total := summary.AddRow()
	total.AddCell().SetString("Total")
	total.AddCell().SetInt(r.Data.Total())

	groups, err := f.AddSheet("Groups")
	if err != nil {
		return fmt.Errorf("add groups sheet: %w", err)
	}
	addRow(groups, "Group", "Count")
	for _, row := range r.Data.Raw {
		cells := groups.AddRow()
		cells.AddCell().SetString(row.Group)
		cells.AddCell().SetInt(row.Count)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// WritePDF renders a printable A4 summary.
func WritePDF(w io.Writer, r *Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Applicant Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, r.Period(), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Generated "+r.Generated.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	table := func(title, keyHeader string, rows [][2]string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(100, 7, keyHeader, "1", 0, "L", true, 0, "")
		pdf.CellFormat(40, 7, "Count", "1", 1, "R", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, row := range rows {
			pdf.CellFormat(100, 7, row[0], "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 7, row[1], "1", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}

	var totals [][2]string
	for _, row := range r.Totals() {
		totals = append(totals, [2]string{row.Status, strconv.Itoa(row.Count)})
	}
	totals = append(totals, [2]string{"Total", strconv.Itoa(r.Data.Total())})
	table("Totals by status", "Status", totals)

	if len(r.Data.Raw) > 0 {
		groups := make([][2]string, 0, len(r.Data.Raw))
		for _, row := range r.Data.Raw {
			groups = append(groups, [2]string{row.Group, strconv.Itoa(row.Count)})
		}
		table("Applications by "+r.Query.GroupBy, "Group", groups)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
