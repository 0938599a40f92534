package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/performer-crawler/internal/adapters"
	"github.com/JakeFAU/performer-crawler/internal/config"
	"github.com/JakeFAU/performer-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/performer-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/performer-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/performer-crawler/internal/spider"
)

const allPlatforms = "all"

type crawlFlags struct {
	gender  string
	limit   int
	jobType string
}

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	flags := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "crawl <platform|all>",
		Short: "Runs the spider for one platform or all of them",
		Long: `Pulls the affiliate listing of a platform page by page, upserts every
performer and records the run in the job ledger. "all" runs every
known platform one after the other with spider.all_delay in between.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: crawl takes exactly one platform (%s or %s)",
					errUsage, strings.Join(adapters.Slugs(), ", "), allPlatforms)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawlCommand(cmd, args[0], flags)
		},
	}
	cmd.Flags().StringVar(&flags.gender, "gender", "", "only crawl performers of this gender (female, male, couple, trans)")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "cap the records pulled per platform (0 keeps spider.max_items)")
	cmd.Flags().StringVar(&flags.jobType, "job-type", "", "full_sync or online_sync (default spider.job_type)")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, target string, flags *crawlFlags) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()

	slugs, err := resolveTargets(target)
	if err != nil {
		return err
	}
	opts, err := runOptions(cfg, flags)
	if err != nil {
		return err
	}

	results, err := crawlAll(cmd.Context(), appInstance, slugs, opts)
	if len(results) > 0 {
		renderSummary(appInstance.Out(), results)
	}
	return err
}

func resolveTargets(target string) ([]string, error) {
	known := adapters.Slugs()
	if target == allPlatforms {
		return known, nil
	}
	if !slices.Contains(known, target) {
		return nil, fmt.Errorf("%w: %w %q (want one of %s or %s)",
			errUsage, crawler.ErrUnknownPlatform, target, strings.Join(known, ", "), allPlatforms)
	}
	return []string{target}, nil
}

func runOptions(cfg config.Config, flags *crawlFlags) (crawler.RunOptions, error) {
	gender, ok := crawler.ParseGender(strings.ToLower(strings.TrimSpace(flags.gender)))
	if !ok {
		return crawler.RunOptions{}, fmt.Errorf("%w: unknown gender %q", errUsage, flags.gender)
	}
	if flags.limit < 0 {
		return crawler.RunOptions{}, fmt.Errorf("%w: --limit must be >= 0", errUsage)
	}
	jobType := flags.jobType
	if jobType == "" {
		jobType = cfg.Spider.JobType
	}
	switch crawler.JobType(jobType) {
	case crawler.JobTypeFullSync, crawler.JobTypeOnlineSync:
	default:
		return crawler.RunOptions{}, fmt.Errorf("%w: unknown job type %q", errUsage, jobType)
	}
	return crawler.RunOptions{
		JobType: crawler.JobType(jobType),
		Gender:  gender,
		Limit:   flags.limit,
	}, nil
}

// platformResult is one row of the summary table.
type platformResult struct {
	slug string
	res  crawler.RunResult
	err  error
}

// crawlAll runs each slug in order. A failing platform does not stop the
// next one; the joined error reports every failure.
func crawlAll(ctx context.Context, appInstance App, slugs []string, opts crawler.RunOptions) ([]platformResult, error) {
	cfg := appInstance.Config()
	logger := appInstance.Logger()

	env, err := openEnvironment(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer env.close(logger)

	limiters := ratelimit.New(ratelimit.Config{})
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:   cfg.HTTP.UserAgent,
		Timeout:     cfg.HTTP.Timeout,
		MaxAttempts: cfg.HTTP.MaxRetries,
		BackoffBase: cfg.HTTP.BackoffBase,
	})

	var (
		results []platformResult
		errs    []error
	)
	for i, slug := range slugs {
		if i > 0 {
			if err := pause(ctx, cfg.Spider.AllDelay); err != nil {
				errs = append(errs, err)
				break
			}
		}
		res, err := crawlOne(ctx, cfg, env, limiters, fetcher, logger, slug, opts)
		results = append(results, platformResult{slug: slug, res: res, err: err})
		if err != nil {
			logger.Error("platform crawl failed", zap.String("platform", slug), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", slug, err))
			continue
		}
		logger.Info("platform crawl finished",
			zap.String("platform", slug),
			zap.String("job_id", res.JobID),
			zap.String("status", string(res.Status)),
			zap.Int("added", res.Counters.Added),
			zap.Int("updated", res.Counters.Updated),
			zap.Int("errors", res.Counters.Errors),
		)
	}
	return results, errors.Join(errs...)
}

func crawlOne(
	ctx context.Context,
	cfg config.Config,
	env *environment,
	limiters *ratelimit.Registry,
	fetcher crawler.Fetcher,
	logger *zap.Logger,
	slug string,
	opts crawler.RunOptions,
) (crawler.RunResult, error) {
	adapter, err := adapters.New(slug, fetcher, logger)
	if err != nil {
		return crawler.RunResult{}, err
	}
	store, err := env.openStore(ctx)
	if err != nil {
		return crawler.RunResult{}, err
	}
	sp, err := spider.New(spider.Deps{
		Store:   store,
		Adapter: adapter,
		Limiters: func(slug string, minDelay time.Duration) crawler.Limiter {
			return limiters.For(slug, minDelay)
		},
		Archive:   env.archive,
		Publisher: env.publisher,
		Logger:    logger,
	}, spider.Config{
		BatchSize:       cfg.Spider.BatchSize,
		MaxItems:        cfg.Spider.MaxItems,
		CheckpointEvery: cfg.Spider.CheckpointEvery,
		ArchivePrefix:   cfg.Archive.Prefix,
		Topic:           cfg.PubSub.Topic,
		PushgatewayURL:  cfg.Metrics.PushgatewayURL,
		MetricsJob:      cfg.Metrics.JobName,
	})
	if err != nil {
		_ = store.Close()
		return crawler.RunResult{}, fmt.Errorf("init spider: %w", err)
	}
	return sp.Run(ctx, opts)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("crawl interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func renderSummary(out io.Writer, results []platformResult) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Platform", "Status", "Processed", "Added", "Updated", "Skipped", "Errors", "Job"})
	for _, r := range results {
		if r.err != nil && r.res.JobID == "" {
			t.AppendRow(table.Row{r.slug, "error: " + r.err.Error(), "-", "-", "-", "-", "-", "-"})
			continue
		}
		t.AppendRow(table.Row{
			r.slug,
			string(r.res.Status),
			r.res.Counters.Processed,
			r.res.Counters.Added,
			r.res.Counters.Updated,
			r.res.Counters.Skipped,
			r.res.Counters.Errors,
			r.res.JobID,
		})
	}
	t.Render()
}
