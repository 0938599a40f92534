package spider

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
	"github.com/JakeFAU/performer-crawler/internal/metrics"
)

// page walks the listing from offset 0 until an empty page, a short page or
// the safety bound. Fetch failures end the listing; only a cancelled context
// or a limiter failure aborts the job.
func (s *Spider) page(ctx context.Context, r *run) error {
	limiter := s.deps.Limiters(r.platform.Slug, r.platform.MinDelay)
	offset := 0
	for r.job.Counters.Processed < r.bound {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait before page at offset %d: %w", offset, err)
		}

		size := min(s.cfg.BatchSize, r.bound-r.job.Counters.Processed)
		page, err := s.deps.Adapter.FetchPage(ctx, r.platform, crawler.PageRequest{
			Offset:  offset,
			Limit:   size,
			Gender:  r.opts.Gender,
			JobType: r.opts.JobType,
			Account: r.account,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("fetch page at offset %d: %w", offset, ctxErr)
			}
			r.record(fmt.Sprintf("fetch page at offset %d: %v", offset, err))
			r.logger.Warn("page fetch exhausted retries, treating as end of data",
				zap.Int("offset", offset), zap.Error(err))
			return nil
		}

		s.archive(ctx, r, offset, page.Body)
		if len(page.Records) == 0 {
			r.logger.Debug("empty page, listing exhausted", zap.Int("offset", offset))
			return nil
		}
		if page.Total > 0 {
			r.total = page.Total
		}

		for _, raw := range page.Records {
			if r.job.Counters.Processed >= r.bound {
				break
			}
			s.handle(ctx, r, raw)
		}

		if len(page.Records) < size {
			r.logger.Debug("short page, listing exhausted",
				zap.Int("offset", offset), zap.Int("records", len(page.Records)), zap.Int("requested", size))
			return nil
		}
		offset += len(page.Records)
	}
	r.logger.Info("safety bound reached", zap.Int("bound", r.bound))
	return nil
}

// handle normalizes and upserts one record. Nothing here aborts the loop.
// Processed moves together with exactly one outcome counter.
func (s *Spider) handle(ctx context.Context, r *run, raw crawler.RawRecord) {
	slug := r.platform.Slug
	c := &r.job.Counters
	seq := c.Processed + 1

	performer, ok := s.deps.Adapter.Normalize(raw)
	if !ok || performer == nil {
		c.Skipped++
		metrics.ObserveItem(slug, metrics.OutcomeSkipped)
	} else {
		added, err := s.upsert(ctx, r.platform, performer)
		switch {
		case err != nil:
			c.Skipped++
			c.Errors++
			r.record(fmt.Sprintf("record %d (%s): %v", seq, performer.ExternalID, err))
			r.logger.Warn("performer write failed",
				zap.String("external_id", performer.ExternalID), zap.Error(err))
			metrics.ObserveItem(slug, metrics.OutcomeError)
		case added:
			c.Added++
			metrics.ObserveItem(slug, metrics.OutcomeAdded)
		default:
			c.Updated++
			metrics.ObserveItem(slug, metrics.OutcomeUpdated)
		}
	}
	c.Processed = seq

	if c.Processed%s.cfg.CheckpointEvery == 0 {
		s.checkpoint(ctx, r)
	}
}

// checkpoint persists counters and progress. It is not a transaction
// boundary; a failed checkpoint is logged and the run continues.
func (s *Spider) checkpoint(ctx context.Context, r *run) {
	pct := r.progress()
	if err := s.deps.Store.UpdateJobProgress(ctx, r.job.ID, r.job.Counters, pct); err != nil {
		r.logger.Warn("progress checkpoint failed", zap.Int("percent", pct), zap.Error(err))
	}
}

// archive stores the raw page body for audit. Failures are logged only.
func (s *Spider) archive(ctx context.Context, r *run, offset int, body []byte) {
	if s.deps.Archive == nil || len(body) == 0 {
		return
	}
	digest, err := s.deps.Hasher.Hash(body)
	if err != nil {
		r.logger.Warn("hash page body failed", zap.Int("offset", offset), zap.Error(err))
		return
	}
	key := archiveKey(s.cfg.ArchivePrefix, r.platform.Slug, r.job.ID, offset, digest)
	uri, err := s.deps.Archive.PutObject(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		r.logger.Warn("archive page failed", zap.String("key", key), zap.Error(err))
		return
	}
	r.logger.Debug("page archived", zap.String("uri", uri))
}

func archiveKey(prefix, slug, jobID string, offset int, digest string) string {
	return fmt.Sprintf("%s/%s/%s/%d-%s.json", prefix, slug, jobID, offset, digest)
}
