// Package app wires configuration, storage and the import service together
// for the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/allocimport/internal/config"
	"github.com/JonMunkholm/allocimport/internal/importer"
	"github.com/JonMunkholm/allocimport/internal/reject"
	"github.com/JonMunkholm/allocimport/internal/store/pgstore"
	"github.com/JonMunkholm/allocimport/internal/store/sqlitestore"
	"github.com/JonMunkholm/allocimport/internal/validate"
)

// Store is a storage backend the service can run on.
type Store interface {
	importer.Store
	Close() error
}

var (
	_ Store = (*pgstore.Store)(nil)
	_ Store = (*sqlitestore.Store)(nil)
)

// App holds the long-lived components shared by the binaries.
type App struct {
	Config  *config.Config
	Store   Store
	Service *importer.Service
}

// New opens the configured database and builds the import service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	opts, err := ServiceOptions(cfg.Import)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	limiter := importer.NewLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	svc := importer.NewService(store, validate.Default(), limiter, opts)

	return &App{Config: cfg, Store: store, Service: svc}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.Store.Close()
}

// OpenStore connects to the backend named by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err := pgstore.Open(ctx, pgstore.PoolConfig{
			URL:             cfg.URL,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("connected to database", "driver", cfg.Driver)
		return s, nil
	case config.DriverSQLite:
		s, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("opened database", "driver", cfg.Driver, "path", cfg.SQLitePath)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// ServiceOptions converts the import settings into service options.
func ServiceOptions(cfg config.ImportConfig) (importer.Options, error) {
	csv, err := cfg.CSVOptions()
	if err != nil {
		return importer.Options{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return importer.Options{}, err
	}
	return importer.Options{
		BaseDir:     cfg.BaseDir,
		MaxFileSize: cfg.MaxFileSize,
		BatchSize:   cfg.BatchSize,
		RejectKind:  reject.Kind(cfg.RejectSink),
		RejectDir:   cfg.RejectDir,
		Source:      csv,
		Location:    loc,
		RunTimeout:  cfg.RunTimeout,
	}, nil
}
