// Package container opens the store the rest of the application runs on,
// falling back from cloud-backed to local-only to in-memory storage.
package container

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tribeboard/internal/apperr"
	"tribeboard/internal/cloud"
	"tribeboard/internal/config"
	"tribeboard/internal/database"
)

// Mode names the storage stage that was opened
type Mode string

const (
	ModeCloud  Mode = "cloud"
	ModeLocal  Mode = "local"
	ModeMemory Mode = "memory"
)

// Container holds the open local store and, in cloud mode, the cloud database
type Container struct {
	DB    *database.DB
	Cloud cloud.Database
	Mode  Mode

	cloudDB *database.DB
}

// CloudEnabled reports whether entities sync to a cloud database
func (c *Container) CloudEnabled() bool {
	return c.Cloud != nil
}

// Close releases every open connection
func (c *Container) Close() error {
	var errs []error
	if c.cloudDB != nil {
		errs = append(errs, c.cloudDB.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}

// stage is one step of the fallback chain
type stage struct {
	mode Mode
	open func(ctx context.Context) (*Container, error)
}

// Open tries the cloud-backed store, then the local store, then an in-memory
// store, returning the first that works. When every stage fails the stage
// errors are joined.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	var stages []stage
	if cfg.CloudEnabled() {
		stages = append(stages, stage{mode: ModeCloud, open: func(ctx context.Context) (*Container, error) {
			return openCloud(ctx, cfg)
		}})
	} else {
		logger.Info("cloud sync not configured, skipping cloud-backed store")
	}
	stages = append(stages,
		stage{mode: ModeLocal, open: func(ctx context.Context) (*Container, error) {
			return openLocal(ctx, cfg)
		}},
		stage{mode: ModeMemory, open: openMemory},
	)
	return openChain(ctx, stages, logger)
}

func openChain(ctx context.Context, stages []stage, logger *zap.Logger) (*Container, error) {
	var errs []error
	for _, s := range stages {
		c, err := s.open(ctx)
		if err == nil {
			c.Mode = s.mode
			logger.Info("store opened", zap.String("mode", string(s.mode)))
			return c, nil
		}

		logger.Warn("store stage failed, falling back",
			zap.String("stage", string(s.mode)),
			zap.Error(err))
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("no store could be opened: %w", errors.Join(errs...))
}

// migrate runs migrations and reports failures as schema errors
func migrate(ctx context.Context, db *database.DB) error {
	if _, err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return apperr.NewModelContainerError(apperr.SchemaMigrationFailed, err)
	}
	return nil
}

func openLocalDB(ctx context.Context, cfg *config.Config, kind apperr.ModelContainerKind) (*database.DB, error) {
	db, err := database.Open(ctx, cfg.DatabaseType, cfg.DatabasePath, cfg.DatabaseURL)
	if err != nil {
		return nil, apperr.NewModelContainerError(kind, err)
	}
	if err := migrate(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

func openCloud(ctx context.Context, cfg *config.Config) (*Container, error) {
	db, err := openLocalDB(ctx, cfg, apperr.LocalStoreFailed)
	if err != nil {
		return nil, err
	}

	c := &Container{DB: db}
	switch cfg.CloudMode {
	case config.CloudModeMemory:
		c.Cloud = cloud.NewMemoryDatabase()
	case config.CloudModeSQL:
		// sqlite takes its path from the URL setting
		cloudDB, err := database.Open(ctx, cfg.CloudDatabaseType, cfg.CloudDatabaseURL, cfg.CloudDatabaseURL)
		if err != nil {
			db.Close()
			return nil, apperr.NewModelContainerError(apperr.CloudUnavailable, err)
		}
		remote := cloud.NewSQLDatabase(cloudDB)
		if err := remote.EnsureSchema(ctx); err != nil {
			cloudDB.Close()
			db.Close()
			return nil, apperr.NewModelContainerError(apperr.CloudUnavailable, err)
		}
		c.cloudDB = cloudDB
		c.Cloud = remote
	default:
		db.Close()
		return nil, apperr.NewModelContainerError(apperr.CloudUnavailable, fmt.Errorf("unsupported cloud mode %q", cfg.CloudMode))
	}

	if err := c.Cloud.Ping(ctx); err != nil {
		c.Close()
		return nil, apperr.NewModelContainerError(apperr.CloudUnavailable, err)
	}
	return c, nil
}

func openLocal(ctx context.Context, cfg *config.Config) (*Container, error) {
	db, err := openLocalDB(ctx, cfg, apperr.LocalStoreFailed)
	if err != nil {
		return nil, err
	}
	return &Container{DB: db}, nil
}

func openMemory(ctx context.Context) (*Container, error) {
	db, err := database.OpenMemory(ctx)
	if err != nil {
		return nil, apperr.NewModelContainerError(apperr.InMemoryFailed, err)
	}
	if err := migrate(ctx, db); err != nil {
		return nil, err
	}
	return &Container{DB: db}, nil
}
