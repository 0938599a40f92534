package spider

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

// upsert inserts performer or merges it into the stored row with the same
// (platform_id, external_id). It reports whether a row was added.
func (s *Spider) upsert(ctx context.Context, platform crawler.Platform, performer *crawler.Performer) (bool, error) {
	now := s.deps.Clock.Now()
	incoming := *performer
	incoming.PlatformID = platform.ID
	incoming.LastCrawledAt = &now
	if incoming.IsOnline != nil && *incoming.IsOnline {
		incoming.LastOnlineAt = &now
	}
	incoming.UpdatedAt = now

	existing, err := s.deps.Store.FindPerformer(ctx, platform.ID, incoming.ExternalID)
	switch {
	case errors.Is(err, crawler.ErrNotFound):
		id, err := s.deps.IDs.NewID()
		if err != nil {
			return false, fmt.Errorf("generate performer id: %w", err)
		}
		incoming.ID = id
		incoming.CreatedAt = now
		if err := s.deps.Store.InsertPerformer(ctx, incoming); err != nil {
			return false, fmt.Errorf("insert performer: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("find performer: %w", err)
	}

	if incoming.LastOnlineAt == nil {
		// Last seen online, not last crawled: an offline listing keeps the old stamp.
		incoming.LastOnlineAt = existing.LastOnlineAt
	}
	merged := crawler.MergeExisting(existing, incoming, s.cfg.AlwaysFresh)
	if err := s.deps.Store.UpdatePerformer(ctx, merged); err != nil {
		return false, fmt.Errorf("update performer: %w", err)
	}
	return false, nil
}
