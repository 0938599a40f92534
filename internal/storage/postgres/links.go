package postgres

import (
	"context"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

// UpsertAffiliateLink implements crawler.LinkStore. One link per performer;
// created_at survives later refreshes.
func (s *Store) UpsertAffiliateLink(ctx context.Context, link crawler.AffiliateLink) error {
	query := `
		INSERT INTO affiliate_links (performer_id, platform_id, url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (performer_id) DO UPDATE
		SET platform_id = EXCLUDED.platform_id,
			url = EXCLUDED.url,
			updated_at = EXCLUDED.updated_at;
	`
	_, err := s.pool.Exec(ctx, query,
		link.PerformerID,
		link.PlatformID,
		link.URL,
		link.CreatedAt,
		link.UpdatedAt,
	)
	if err != nil {
		return translate(err, "upsert affiliate link for %s", link.PerformerID)
	}
	return nil
}
