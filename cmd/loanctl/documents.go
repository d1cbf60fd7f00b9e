package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/loan/documents"
	"loan-workbench/internal/models"
)

var (
	metricsAddr string
	retryID     string
	retryFile   string
)

var documentsCmd = &cobra.Command{
	Use:               "documents",
	Aliases:           []string{"docs"},
	Short:             "Manage application documents",
	PersistentPreRunE: authenticated,
}

var documentsURLsCmd = &cobra.Command{
	Use:   "urls <applicationId>",
	Short: "Print the signed document URLs and when they expire",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := env.docs.URLs(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		formatDocumentURLs(cmd.OutOrStdout(), set, time.Now())
		return nil
	},
}

var documentsUploadCmd = &cobra.Command{
	Use:   "upload <applicationId> <slot=file>...",
	Short: "Upload documents to an existing application",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		files := models.Files{}
		for _, p := range pairs {
			slot, err := models.ParseSlot(p.field)
			if err != nil {
				return errors.NewValidationFailedError([]string{err.Error()})
			}
			file, err := readAttachment(p.value)
			if err != nil {
				return err
			}
			files[slot] = file
		}
		if err := env.docs.Upload(cmd.Context(), args[0], files); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d document(s) to %s\n", len(files), args[0])
		return nil
	},
}

var documentsRefreshCmd = &cobra.Command{
	Use:   "refresh <applicationId> [slot...]",
	Short: "Re-sign document URLs (all slots when none are given)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slots, err := parseSlots(args[1:])
		if err != nil {
			return err
		}
		set, err := env.docs.RefreshURLs(cmd.Context(), args[0], slots...)
		if err != nil {
			return err
		}
		formatDocumentURLs(cmd.OutOrStdout(), set, time.Now())
		return nil
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <applicationId> <slot>",
	Short: "Delete one document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := models.ParseSlot(args[1])
		if err != nil {
			return errors.NewValidationFailedError([]string{err.Error()})
		}
		if err := env.docs.DeleteFile(cmd.Context(), args[0], slot); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from %s\n", slot, args[0])
		return nil
	},
}

var documentsPreviewCmd = &cobra.Command{
	Use:   "preview <applicationId> <slot>",
	Short: "Check that a document loads, refreshing its URL once if it does not",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		slot, err := models.ParseSlot(args[1])
		if err != nil {
			return errors.NewValidationFailedError([]string{err.Error()})
		}
		set, err := env.docs.URLs(ctx, args[0])
		if err != nil {
			return err
		}
		url := set[slot]
		if url == "" {
			return errors.NewValidationFailedError([]string{fmt.Sprintf("%s has no %s document", args[0], slot)})
		}

		for probe(ctx, url) != nil {
			url, err = env.docs.ReportLoadFailure(ctx, args[0], slot)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return err
			}
		}
		env.docs.ReportLoaded(args[0], slot)
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

var documentsWatchCmd = &cobra.Command{
	Use:   "watch <applicationId>",
	Short: "Keep document URLs fresh until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if metricsAddr != "" {
			srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					env.log.Error("Metrics server failed", map[string]interface{}{"error": err.Error()})
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		out := cmd.OutOrStdout()
		set, err := env.docs.URLs(ctx, args[0])
		if err != nil {
			return err
		}
		formatDocumentURLs(out, set, time.Now())

		env.auth.Start(ctx)
		env.docs.Watch(ctx, args[0], func(fresh models.DocumentURLSet) {
			fmt.Fprintf(out, "\n[%s] URLs refreshed\n", time.Now().Format("15:04:05"))
			formatDocumentURLs(out, fresh, time.Now())
		})

		<-ctx.Done()
		return nil
	},
}

var documentsPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List unconfirmed uploads, or retry one with --retry ID --file PATH",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		list, err := env.pending.List(ctx)
		if err != nil {
			return errors.NewStorageError("list_pending_uploads", err)
		}
		if retryID == "" {
			formatPendingUploads(cmd.OutOrStdout(), list)
			return nil
		}

		for _, rec := range list {
			if rec.ID != retryID {
				continue
			}
			if retryFile == "" {
				return errors.NewValidationFailedError([]string{"--file is required to retry; file contents are not kept"})
			}
			file, err := readAttachment(retryFile)
			if err != nil {
				return err
			}
			if err := env.docs.Retry(ctx, rec, file); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s\n", file.Name, rec.ApplicationID)
			return nil
		}
		return errors.NewValidationFailedError([]string{fmt.Sprintf("no pending upload %q", retryID)})
	},
}

func parseSlots(names []string) ([]models.FileSlot, error) {
	slots := make([]models.FileSlot, 0, len(names))
	for _, n := range names {
		slot, err := models.ParseSlot(n)
		if err != nil {
			return nil, errors.NewValidationFailedError([]string{err.Error()})
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// probe fetches the first bytes of url to see whether it still loads.
func probe(ctx context.Context, url string) error {
	if url == documents.PlaceholderURL {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("document returned %s", resp.Status)
	}
	return nil
}

func init() {
	documentsWatchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	documentsPendingCmd.Flags().StringVar(&retryID, "retry", "", "pending upload id to retry")
	documentsPendingCmd.Flags().StringVar(&retryFile, "file", "", "file to upload for --retry")

	documentsCmd.AddCommand(
		documentsURLsCmd,
		documentsUploadCmd,
		documentsRefreshCmd,
		documentsDeleteCmd,
		documentsPreviewCmd,
		documentsWatchCmd,
		documentsPendingCmd,
	)
	rootCmd.AddCommand(documentsCmd)
}
