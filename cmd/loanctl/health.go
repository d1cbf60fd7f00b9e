package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the loan service",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := env.backend.Health(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Loan service: %s", h.Status)
		if h.Version != "" {
			fmt.Fprintf(out, " (version %s)", h.Version)
		}
		fmt.Fprintln(out)

		names := make([]string, 0, len(h.Services))
		for name := range h.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, name := range names {
			_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, h.Services[name])
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if !healthDetail {
			return nil
		}
		if err := env.requireSession(); err != nil {
			return err
		}
		status, err := env.backend.ServiceStatus(cmd.Context())
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(status))
		for k := range status {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(out, "Service status:")
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "  %s\t%v\n", k, status[k])
		}
		return w.Flush()
	},
}

var healthDetail bool

func init() {
	healthCmd.Flags().BoolVar(&healthDetail, "detail", false, "also show the authenticated service-status document")
	rootCmd.AddCommand(healthCmd)
}
