package cmd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/performer-crawler/internal/config"
	"github.com/JakeFAU/performer-crawler/internal/crawler"
	pubsubpublisher "github.com/JakeFAU/performer-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/performer-crawler/internal/storage/gcs"
	"github.com/JakeFAU/performer-crawler/internal/storage/local"
	"github.com/JakeFAU/performer-crawler/internal/storage/memory"
	"github.com/JakeFAU/performer-crawler/internal/storage/postgres"
)

// environment holds the collaborators shared by every platform run of one
// command: the archive, the publisher and (for the memory provider) the store.
type environment struct {
	cfg       config.Config
	memStore  *memory.Store
	archive   crawler.BlobStore
	publisher crawler.Publisher
	closers   []func() error
}

func openEnvironment(ctx context.Context, cfg config.Config, logger *zap.Logger) (*environment, error) {
	env := &environment{cfg: cfg}
	if cfg.DB.Provider == "memory" {
		env.memStore = memory.NewStoreFromConfig(cfg.Platforms)
	}

	switch cfg.Archive.Provider {
	case "memory":
		env.archive = memory.NewBlobStore()
	case "local":
		blobs, err := local.New(local.Config{BaseDir: cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		env.archive = blobs
	case "gcs":
		blobs, err := gcs.Open(ctx, gcs.Config{Bucket: cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		env.archive = blobs
		env.closers = append(env.closers, blobs.Close)
	}

	if cfg.PubSub.Topic != "" {
		pub, err := pubsubpublisher.Dial(ctx, pubsubpublisher.Config{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.Topic,
		})
		if err != nil {
			env.close(logger)
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		env.publisher = pub
		env.closers = append(env.closers, pub.Close)
	}
	return env, nil
}

// openStore returns the store handle for one run. The spider closes it when
// the run ends, so Postgres gets a fresh pool per platform.
func (e *environment) openStore(ctx context.Context) (crawler.Store, error) {
	if e.memStore != nil {
		return e.memStore, nil
	}
	store, err := openPostgres(ctx, e.cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (e *environment) close(logger *zap.Logger) {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("failed to release shared resources", zap.Error(err))
	}
}

func openPostgres(ctx context.Context, cfg config.Config) (*postgres.Store, error) {
	store, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return store, nil
}
