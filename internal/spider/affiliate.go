package spider

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

// linkPromoted refreshes the tracked URL of every promoted performer. A
// failing listing fails the job; a failing link is logged and skipped.
func (s *Spider) linkPromoted(ctx context.Context, r *run) error {
	promoted, err := s.deps.Store.ListPromoted(ctx, r.platform.ID)
	if err != nil {
		return fmt.Errorf("list promoted performers: %w", err)
	}
	for _, p := range promoted {
		url := s.deps.Adapter.BuildAffiliateURL(r.platform, r.account, p)
		if url == "" {
			continue
		}
		now := s.deps.Clock.Now()
		link := crawler.AffiliateLink{
			PerformerID: p.ID,
			PlatformID:  r.platform.ID,
			URL:         url,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.deps.Store.UpsertAffiliateLink(ctx, link); err != nil {
			r.record(fmt.Sprintf("affiliate link for %s: %v", p.Username, err))
			r.logger.Warn("affiliate link write failed", zap.String("performer_id", p.ID), zap.Error(err))
			continue
		}
		r.links++
	}
	if len(promoted) > 0 {
		r.logger.Info("affiliate links refreshed", zap.Int("promoted", len(promoted)), zap.Int("links", r.links))
	}
	return nil
}
