package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/loan/forms"
	"loan-workbench/internal/loan/processform"
	"loan-workbench/internal/models"
)

var checkAll bool

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Work on the application draft",
}

// controller restores the saved draft. Submit goes to the loan service.
func controller(cmd *cobra.Command) *processform.Controller {
	return processform.New(cmd.Context(), env.draftStore(), env.backend, env.log, env.obs)
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the draft, step by step",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := controller(cmd)
		formatDraft(cmd.OutOrStdout(), c.Draft(), c.Files(), c.Step())
		return nil
	},
}

var draftSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a field, e.g. 'draft set personal.fullName Juan Dela Cruz'",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, field, err := forms.FindField(args[0])
		if err != nil {
			return errors.NewValidationFailedError([]string{err.Error()})
		}
		value := strings.Join(args[1:], " ")

		c := controller(cmd)
		if err := c.Set(cmd.Context(), step.Section, field.Name, value); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s.%s = %q\n", step.Section, field.Name, step.Values(c.Draft())[field.Name])
		for _, hint := range step.Hints(c.Draft()) {
			fmt.Fprintln(out, "note:", hint)
		}
		return nil
	},
}

var draftAttachCmd = &cobra.Command{
	Use:   "attach <slot> <file>",
	Short: "Attach a document (profilePhoto, validId, brgyCert, payslip, companyId, proofOfBilling, eSignaturePersonal, eSignatureCoMaker)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := models.ParseSlot(args[0])
		if err != nil {
			return errors.NewValidationFailedError([]string{err.Error()})
		}
		file, err := readAttachment(args[1])
		if err != nil {
			return err
		}
		if err := controller(cmd).Attach(cmd.Context(), slot, file); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Attached %s to %s (%s)\n", file.Name, slot, humanBytes(file.Size()))
		return nil
	},
}

var draftDetachCmd = &cobra.Command{
	Use:   "detach <slot>",
	Short: "Remove an attached document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := models.ParseSlot(args[0])
		if err != nil {
			return errors.NewValidationFailedError([]string{err.Error()})
		}
		return controller(cmd).Detach(cmd.Context(), slot)
	},
}

var draftResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the draft and start a new applicant",
	RunE: func(cmd *cobra.Command, args []string) error {
		controller(cmd).Reset(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "Draft cleared")
		return nil
	},
}

var draftCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the current step, or the whole application with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := controller(cmd)
		out := cmd.OutOrStdout()
		if checkAll {
			result := c.Validate()
			if !result.Valid {
				return errors.NewValidationFailedError(result.Errors)
			}
			fmt.Fprintln(out, "Application is ready to submit")
			return nil
		}
		step, result := c.CheckStep()
		if !result.Valid {
			formatStepErrors(out, step, result)
			return errors.NewValidationFailedError(result.GetErrorMessages())
		}
		fmt.Fprintf(out, "Step %d (%s) is complete\n", step.Number, step.Title)
		return nil
	},
}

var draftStepCmd = &cobra.Command{
	Use:       "step (next|prev|goto N)",
	Short:     "Move between form steps; 'next' on the last step submits",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"next", "prev", "goto"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c := controller(cmd)
		out := cmd.OutOrStdout()

		switch args[0] {
		case "next", "right":
			app, err := c.HandleKey(ctx, processform.KeyRight)
			if err != nil {
				return err
			}
			if app != nil {
				printSubmitted(cmd, app)
				return nil
			}
		case "prev", "left":
			if _, err := c.HandleKey(ctx, processform.KeyLeft); err != nil {
				return err
			}
		case "goto":
			if len(args) != 2 {
				return fmt.Errorf("goto needs a step number")
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.NewValidationFailedError([]string{"step must be a number"})
			}
			if err := c.GoTo(ctx, n); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown step action %q", args[0])
		}

		step, _ := forms.ByNumber(c.Step())
		fmt.Fprintf(out, "Step %d of %d: %s\n", step.Number, processform.LastStep, step.Title)
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate the draft and send the application",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := env.requireSession(); err != nil {
			return err
		}
		app, err := controller(cmd).Submit(cmd.Context())
		if err != nil {
			return err
		}
		printSubmitted(cmd, app)
		return nil
	},
}

func printSubmitted(cmd *cobra.Command, app *models.Application) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Application submitted: %s\n", app.SessionID)
	if p := app.Prediction; p != nil {
		fmt.Fprintf(out, "Credit score: %.2f\n", p.FinalCreditScore)
		if top := p.TopRecommendation(); top != nil {
			fmt.Fprintf(out, "Top recommendation: %s\n", top.ProductName)
		}
	}
}

func init() {
	draftCheckCmd.Flags().BoolVar(&checkAll, "all", false, "validate every step")
	draftCmd.AddCommand(draftShowCmd, draftSetCmd, draftAttachCmd, draftDetachCmd, draftResetCmd, draftCheckCmd, draftStepCmd)
	rootCmd.AddCommand(draftCmd, submitCmd)
}

// readAttachment loads path. The content type comes from the extension,
// falling back to sniffing the bytes.
func readAttachment(path string) (*models.AttachedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return &models.AttachedFile{
		Name:        filepath.Base(path),
		ContentType: ct,
		Data:        data,
	}, nil
}
