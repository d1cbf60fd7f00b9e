// Package storage persists client-side state (draft snapshot, attached file
// previews, signed-in session, pending uploads) in a small key/value store
// that plays the role browser local storage plays for the web client.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"loan-workbench/internal/common/config"
	"loan-workbench/internal/common/database"
)

// Storage keys. They match the keys the web client uses so a shared store
// can be inspected with the same names.
const (
	KeyDraft          = "loan_application_form_data"
	KeyFiles          = "loan_application_files"
	KeySession        = "authUser"
	KeyPendingUploads = "pending_uploads_v1"
	KeyStep           = "loan_application_step"
)

// KV is a string key/value store. Get reports found=false for a missing key
// without an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Open builds the KV selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (KV, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		client, err := database.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return openSQL(ctx, client.DB, DialectSQLite)

	case config.DriverPostgres:
		client, err := database.OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return openSQL(ctx, client.DB, DialectPostgres)

	case config.DriverRedis:
		client, err := database.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client.Client, cfg.KeyPrefix), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// openSQL wraps db in a SQLStore and closes db if the store cannot be set up.
func openSQL(ctx context.Context, db *sql.DB, dialect Dialect) (KV, error) {
	store, err := NewSQLStore(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
