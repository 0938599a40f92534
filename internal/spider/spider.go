// Package spider runs one platform crawl end to end: it resolves the platform
// and account, opens a job in the ledger, pages through the platform listing,
// upserts every performer and closes the job exactly once.
package spider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/performer-crawler/internal/clock/system"
	"github.com/JakeFAU/performer-crawler/internal/crawler"
	"github.com/JakeFAU/performer-crawler/internal/hash/sha256"
	"github.com/JakeFAU/performer-crawler/internal/id/uuid"
	"github.com/JakeFAU/performer-crawler/internal/logging"
	"github.com/JakeFAU/performer-crawler/internal/metrics"
	"github.com/JakeFAU/performer-crawler/internal/policy/ratelimit"
)

// ErrAlreadyRan is returned when Run is called twice on the same Spider.
var ErrAlreadyRan = errors.New("spider has already run")

// Config controls the paging loop and the side channels of a run.
type Config struct {
	BatchSize       int
	MaxItems        int
	CheckpointEvery int
	AlwaysFresh     []crawler.Field
	// ArchivePrefix is the first segment of raw page archive keys.
	ArchivePrefix string
	// Topic receives completion events when a Publisher is set.
	Topic          string
	PushgatewayURL string
	MetricsJob     string
	// CloseTimeout bounds the final ledger write when the run context is gone.
	CloseTimeout time.Duration
}

// LimiterSource returns the limiter pacing requests to one platform.
type LimiterSource func(slug string, minDelay time.Duration) crawler.Limiter

// Hook runs before or after the paging loop. An error fails the job.
type Hook func(ctx context.Context, job crawler.Job, platform crawler.Platform) error

// Hooks are optional extension points around the paging loop.
type Hooks struct {
	BeforeRun Hook
	AfterRun  Hook
}

// Deps are the collaborators a Spider needs. Store and Adapter are required.
type Deps struct {
	Store     crawler.Store
	Adapter   crawler.Adapter
	Limiters  LimiterSource
	Archive   crawler.BlobStore
	Publisher crawler.Publisher
	Hasher    crawler.Hasher
	Clock     crawler.Clock
	IDs       crawler.IDGenerator
	Logger    *zap.Logger
	Hooks     Hooks
}

// Spider crawls a single platform once. It owns the store handle and releases
// it when Run returns.
type Spider struct {
	deps Deps
	cfg  Config

	started   atomic.Bool
	closeOnce sync.Once
}

// New validates deps and fills defaults.
func New(deps Deps, cfg Config) (*Spider, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Adapter == nil {
		return nil, fmt.Errorf("adapter is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if deps.Hasher == nil {
		deps.Hasher = sha256.New()
	}
	if deps.IDs == nil {
		deps.IDs = uuid.New()
	}
	if deps.Limiters == nil {
		registry := ratelimit.New(ratelimit.Config{})
		deps.Limiters = func(slug string, minDelay time.Duration) crawler.Limiter {
			return registry.For(slug, minDelay)
		}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 5000
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 10
	}
	if cfg.AlwaysFresh == nil {
		cfg.AlwaysFresh = crawler.DefaultAlwaysFresh
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "pages"
	}
	if cfg.MetricsJob == "" {
		cfg.MetricsJob = "performer_spider"
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 10 * time.Second
	}
	return &Spider{deps: deps, cfg: cfg}, nil
}

// Run executes the crawl. The returned result carries the job id whenever a
// ledger row was created, even when err is non-nil. A ConfigurationError means
// no job row exists.
func (s *Spider) Run(ctx context.Context, opts crawler.RunOptions) (res crawler.RunResult, err error) {
	if !s.started.CompareAndSwap(false, true) {
		return res, ErrAlreadyRan
	}
	defer func() {
		if closeErr := s.release(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	slug := s.deps.Adapter.Slug()
	res.Platform = slug
	if opts.JobType == "" {
		opts.JobType = crawler.JobTypeFullSync
	}

	platform, account, err := s.init(ctx, slug)
	if err != nil {
		return res, err
	}

	r, err := s.createJob(ctx, platform, account, opts)
	if err != nil {
		return res, err
	}
	res.JobID = r.job.ID

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during %s run: %v", slug, p)
		}
		status := crawler.JobStatusCompleted
		if err != nil {
			status = crawler.JobStatusFailed
			r.record(err.Error())
			r.logger.Error("spider run failed", zap.Error(err))
		}
		if completeErr := s.completeJob(ctx, r, status); completeErr != nil {
			err = errors.Join(err, completeErr)
		}
		res.Status = r.job.Status
		res.Counters = r.job.Counters
		res.Links = r.links
	}()

	if hook := s.deps.Hooks.BeforeRun; hook != nil {
		if err := hook(ctx, r.job, platform); err != nil {
			return res, fmt.Errorf("before run: %w", err)
		}
	}

	if err := s.page(ctx, r); err != nil {
		return res, err
	}

	if err := s.linkPromoted(ctx, r); err != nil {
		return res, err
	}

	if hook := s.deps.Hooks.AfterRun; hook != nil {
		if err := hook(ctx, r.job, platform); err != nil {
			return res, fmt.Errorf("after run: %w", err)
		}
	}
	return res, nil
}

// init resolves the platform and its active account.
func (s *Spider) init(ctx context.Context, slug string) (crawler.Platform, crawler.Account, error) {
	platform, err := s.deps.Store.GetPlatformBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, crawler.ErrNotFound) {
			return crawler.Platform{}, crawler.Account{}, &crawler.ConfigurationError{
				Platform: slug, Reason: "platform is not configured", Err: err,
			}
		}
		return crawler.Platform{}, crawler.Account{}, fmt.Errorf("load platform %q: %w", slug, err)
	}
	if !platform.Active {
		return crawler.Platform{}, crawler.Account{}, &crawler.ConfigurationError{
			Platform: slug, Reason: "platform is inactive",
		}
	}
	account, err := s.deps.Store.GetActiveAccount(ctx, platform.ID)
	if err != nil {
		if errors.Is(err, crawler.ErrNotFound) {
			return crawler.Platform{}, crawler.Account{}, &crawler.ConfigurationError{
				Platform: slug, Reason: "no active affiliate account", Err: err,
			}
		}
		return crawler.Platform{}, crawler.Account{}, fmt.Errorf("load account for %q: %w", slug, err)
	}
	return platform, account, nil
}

func (s *Spider) createJob(
	ctx context.Context,
	platform crawler.Platform,
	account crawler.Account,
	opts crawler.RunOptions,
) (*run, error) {
	id, err := s.deps.IDs.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}
	job := crawler.Job{
		ID:         id,
		PlatformID: platform.ID,
		Type:       opts.JobType,
		Status:     crawler.JobStatusRunning,
		StartedAt:  s.deps.Clock.Now(),
	}
	if err := s.deps.Store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	bound := s.cfg.MaxItems
	if opts.Limit > 0 && opts.Limit < bound {
		bound = opts.Limit
	}
	r := &run{
		job:      job,
		platform: platform,
		account:  account,
		opts:     opts,
		bound:    bound,
		logger:   logging.ForRun(s.deps.Logger, platform.Slug, job.ID),
	}
	r.logger.Info("spider job started",
		zap.String("job_type", string(opts.JobType)),
		zap.String("gender", string(opts.Gender)),
		zap.Int("bound", bound),
	)
	return r, nil
}

// completeJob closes the ledger row and fans the result out to metrics and
// the completion topic. The ledger write survives a cancelled run context.
func (s *Spider) completeJob(ctx context.Context, r *run, status crawler.JobStatus) error {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CloseTimeout)
	defer cancel()

	now := s.deps.Clock.Now()
	r.job.Status = status
	r.job.CompletedAt = &now
	r.job.ProgressPercent = 100

	err := s.deps.Store.CompleteJob(closeCtx, r.job.ID, status, r.job.Counters, r.job.ErrorLog, now)
	if err != nil {
		err = fmt.Errorf("complete job %s: %w", r.job.ID, err)
		r.logger.Error("failed to close job", zap.Error(err))
	}

	c := r.job.Counters
	r.logger.Info("spider job finished",
		zap.String("status", string(status)),
		zap.Int("processed", c.Processed),
		zap.Int("added", c.Added),
		zap.Int("updated", c.Updated),
		zap.Int("skipped", c.Skipped),
		zap.Int("errors", c.Errors),
		zap.Int("affiliate_links", r.links),
	)

	metrics.ObserveJob(r.platform.Slug, string(status), now)
	s.notify(closeCtx, r)
	if pushErr := metrics.Push(closeCtx, s.cfg.PushgatewayURL, s.cfg.MetricsJob, r.platform.Slug); pushErr != nil {
		r.logger.Warn("metrics push failed", zap.Error(pushErr))
	}
	return err
}

func (s *Spider) release() error {
	var err error
	s.closeOnce.Do(func() {
		if closeErr := s.deps.Store.Close(); closeErr != nil {
			err = fmt.Errorf("close store: %w", closeErr)
		}
	})
	return err
}
