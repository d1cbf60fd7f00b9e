// cmd/loanctl/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"loan-workbench/internal/backend"
	"loan-workbench/internal/common/auth"
	"loan-workbench/internal/common/config"
	"loan-workbench/internal/common/errors"
	apihttp "loan-workbench/internal/common/http"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/common/observability"
	"loan-workbench/internal/loan/documents"
	"loan-workbench/internal/storage"
)

// app holds everything a command needs. It is built once per invocation in
// PersistentPreRunE.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	zap     *zap.Logger
	kv      storage.KV
	api     *apihttp.Client
	auth    *auth.Manager
	backend *backend.Client
	docs    *documents.Service
	pending *storage.PendingUploads
	obs     *observability.Observability
	errs    *errors.ErrorHandler
}

var (
	configPath string
	env        *app
)

var rootCmd = &cobra.Command{
	Use:           "loanctl",
	Short:         "Loan origination workbench",
	Long:          "Fill in and submit loan applications, review applicants, manage their documents and export reports.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		env = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./config.yaml or ~/.loanctl/config.yaml)")
}

func newApp(ctx context.Context) (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, zl := logger.NewFromConfig(cfg.Logging)

	kv, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, errors.NewStorageError("open_store", err)
	}

	api := apihttp.NewClient(cfg.API.BaseURL, config.GetDuration(cfg.API.Timeout), log)
	manager := auth.NewManager(api, storage.NewSessionStore(kv), log, config.GetDuration(cfg.Auth.RefreshInterval))
	if _, err := manager.Restore(ctx); err != nil {
		log.Warn("Stored session could not be restored", map[string]interface{}{"error": err.Error()})
	}

	client := backend.New(api)
	pending := storage.NewPendingUploads(kv)

	obs := observability.NewNoop()
	if cfg.Metrics.Enabled {
		obs = observability.New(cfg.App.Name, log)
	}

	return &app{
		cfg:     cfg,
		log:     log,
		zap:     zl,
		kv:      kv,
		api:     api,
		auth:    manager,
		backend: client,
		docs:    documents.New(client, pending, documents.LoadConfig(cfg.Documents), log),
		pending: pending,
		obs:     obs,
		errs:    errors.NewErrorHandler(log),
	}, nil
}

func (a *app) close() {
	a.obs.Shutdown()
	if err := a.kv.Close(); err != nil {
		a.log.Warn("Failed to close store", map[string]interface{}{"error": err.Error()})
	}
	_ = a.zap.Sync()
}

// draftStore opens the draft snapshot with the configured file ceiling.
func (a *app) draftStore() *storage.DraftStore {
	return storage.NewDraftStore(a.kv, a.log, a.cfg.Storage.MaxFileBytes)
}

// requireSession fails fast when nobody is signed in.
func (a *app) requireSession() error {
	if a.auth.Session() == nil {
		return errors.NewAuthenticationRequiredError()
	}
	return nil
}

// authenticated is the PersistentPreRunE of command groups that talk to the
// protected endpoints. Cobra runs only the nearest hook, so it runs the root
// setup itself.
func authenticated(cmd *cobra.Command, args []string) error {
	if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
		return err
	}
	return env.requireSession()
}

func main() {
	cmd, err := rootCmd.ExecuteC()

	handler := errors.NewErrorHandler(logger.NewNoOpLogger())
	if env != nil {
		handler = env.errs
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errorText(handler.Handle(cmd.CommandPath(), err), err))
	}
	if env != nil {
		env.close()
	}
	if err != nil {
		os.Exit(1)
	}
}

// errorText prefers the notice, except for plain errors (usage mistakes,
// flag parsing) whose own text is more useful than "Unexpected error".
func errorText(notice errors.Notice, err error) string {
	if notice.Code == errors.ErrCodeInternal {
		return err.Error()
	}
	return notice.String()
}
