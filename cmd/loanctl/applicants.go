package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/loan/applicants"
	"loan-workbench/internal/loan/forms"
	"loan-workbench/internal/loan/notify"
	"loan-workbench/internal/models"
)

var (
	listPage   int
	listStatus string
	listSearch string
)

var applicantsCmd = &cobra.Command{
	Use:               "applicants",
	Aliases:           []string{"apps"},
	Short:             "Review submitted applications",
	PersistentPreRunE: authenticated,
}

// applicantList builds the list with the status notifier attached when any
// channel is enabled.
func applicantList(cmd *cobra.Command) (*applicants.List, error) {
	list := applicants.NewList(env.backend, applicants.LoadConfig(env.cfg.Applicants), env.log)

	ncfg := notify.LoadConfig(env.cfg.Notifications)
	if ncfg.Enabled() {
		n, err := notify.New(cmd.Context(), ncfg, env.log)
		if err != nil {
			return nil, err
		}
		list.SetNotifier(n)
	}
	return list, nil
}

var applicantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		list, err := applicantList(cmd)
		if err != nil {
			return err
		}
		defer list.Close()

		if _, err := list.SetStatus(ctx, listStatus); err != nil {
			return err
		}

		var page *models.ApplicationPage
		switch {
		case listSearch != "":
			type result struct {
				page *models.ApplicationPage
				err  error
			}
			done := make(chan result, 1)
			list.OnChange(func(p *models.ApplicationPage, err error) { done <- result{p, err} })
			list.Search(ctx, listSearch)
			r := <-done
			if r.err != nil {
				return r.err
			}
			page = r.page
			if listPage > 1 {
				if page, err = list.SetPage(ctx, listPage); err != nil {
					return err
				}
			}
		case listPage > 1:
			if page, err = list.SetPage(ctx, listPage); err != nil {
				return err
			}
		default:
			page = list.Page()
		}

		formatApplicationPage(cmd.OutOrStdout(), page)
		return nil
	},
}

var applicantsMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List applications submitted by the signed-in officer",
	RunE: func(cmd *cobra.Command, args []string) error {
		apps, err := env.backend.MyApplications(cmd.Context())
		if err != nil {
			return err
		}
		formatApplicationPage(cmd.OutOrStdout(), &models.ApplicationPage{Items: apps, Total: len(apps), Page: 1, Pages: 1})
		return nil
	},
}

var applicantsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one application with its documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := applicants.OpenOverview(cmd.Context(), env.backend, env.docs, args[0], env.log)
		if err != nil {
			return err
		}
		formatOverview(cmd.OutOrStdout(), o.Application(), o.Draft(), o.Documents())
		return nil
	},
}

// statusCommand builds approve/deny/cancel/pending.
func statusCommand(use, short string, action func(*applicants.List, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := applicantList(cmd)
			if err != nil {
				return err
			}
			defer list.Close()
			if _, err := list.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := action(list, cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Application %s: %s done\n", args[0], use)
			return nil
		},
	}
}

var applicantsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an application and its documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := applicants.OpenOverview(cmd.Context(), env.backend, env.docs, args[0], env.log)
		if err != nil {
			return err
		}
		if err := o.Delete(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted application %s\n", args[0])
		return nil
	},
}

var applicantsEditCmd = &cobra.Command{
	Use:   "edit <id> <field=value>...",
	Short: "Edit fields of a stored application and re-score it",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		edits, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		o, err := applicants.OpenOverview(cmd.Context(), env.backend, env.docs, args[0], env.log)
		if err != nil {
			return err
		}
		for _, e := range edits {
			step, field, err := forms.FindField(e.field)
			if err != nil {
				return errors.NewValidationFailedError([]string{err.Error()})
			}
			if err := o.Set(step.Section, field.Name, e.value); err != nil {
				return err
			}
		}
		app, err := o.Save(cmd.Context())
		if err != nil {
			return err
		}
		formatOverview(cmd.OutOrStdout(), app, o.Draft(), o.Documents())
		return nil
	},
}

var applicantsRegenerateCmd = &cobra.Command{
	Use:   "regenerate <id>",
	Short: "Recompute loan recommendations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := applicants.OpenOverview(cmd.Context(), env.backend, env.docs, args[0], env.log)
		if err != nil {
			return err
		}
		app, err := o.Regenerate(cmd.Context())
		if err != nil {
			return err
		}
		formatRecommendations(cmd.OutOrStdout(), app.Prediction)
		return nil
	},
}

type assignment struct {
	field string
	value string
}

func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, errors.NewValidationFailedError([]string{fmt.Sprintf("%q: expected field=value", a)})
		}
		out = append(out, assignment{field: strings.TrimSpace(k), value: v})
	}
	return out, nil
}

func init() {
	applicantsListCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	applicantsListCmd.Flags().StringVar(&listStatus, "status", "all", "all, pending, approved, denied or cancelled")
	applicantsListCmd.Flags().StringVar(&listSearch, "search", "", "search by name, contact or address")

	applicantsCmd.AddCommand(
		applicantsListCmd,
		applicantsMineCmd,
		applicantsShowCmd,
		statusCommand("approve", "Approve a pending application", (*applicants.List).Approve),
		statusCommand("deny", "Deny a pending application", (*applicants.List).Deny),
		statusCommand("cancel", "Cancel a pending application", (*applicants.List).Cancel),
		statusCommand("pending", "Return an application to pending", (*applicants.List).MarkPending),
		applicantsDeleteCmd,
		applicantsEditCmd,
		applicantsRegenerateCmd,
	)
	rootCmd.AddCommand(applicantsCmd)
}
