package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"loan-workbench/internal/loan/reports"
)

var (
	reportStart   string
	reportEnd     string
	reportGroupBy string
	reportFormat  string
	reportOut     string
)

var reportCmd = &cobra.Command{
	Use:               "report",
	Short:             "Applicant reports",
	PersistentPreRunE: authenticated,
}

func fetchReport(cmd *cobra.Command) (*reports.Report, error) {
	q, err := reports.NewQuery(reportStart, reportEnd, reportGroupBy)
	if err != nil {
		return nil, err
	}
	return reports.Fetch(cmd.Context(), env.backend, q)
}

var reportShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the applicant report",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := fetchReport(cmd)
		if err != nil {
			return err
		}
		return reports.WriteTable(cmd.OutOrStdout(), r)
	},
}

var reportExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the applicant report as csv, xlsx or pdf",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := reports.ParseFormat(reportFormat)
		if err != nil {
			return err
		}
		if reportOut == "" && (format == reports.FormatXLSX || format == reports.FormatPDF) {
			return fmt.Errorf("--out is required for %s", format)
		}
		r, err := fetchReport(cmd)
		if err != nil {
			return err
		}

		if reportOut == "" {
			return reports.Write(cmd.OutOrStdout(), format, r)
		}
		f, err := os.Create(reportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", reportOut, err)
		}
		if err := reports.Write(f, format, r); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", reportOut)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{reportShowCmd, reportExportCmd} {
		c.Flags().StringVar(&reportStart, "start", "", "start date (YYYY-MM-DD)")
		c.Flags().StringVar(&reportEnd, "end", "", "end date (YYYY-MM-DD)")
		c.Flags().StringVar(&reportGroupBy, "group-by", "day", "day, week or month")
	}
	reportExportCmd.Flags().StringVar(&reportFormat, "format", "csv", "csv, xlsx or pdf")
	reportExportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output file")

	reportCmd.AddCommand(reportShowCmd, reportExportCmd)
	rootCmd.AddCommand(reportCmd)
}
