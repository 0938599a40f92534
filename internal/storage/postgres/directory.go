package postgres

import (
	"context"
	"time"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

// GetPlatformBySlug implements crawler.DirectoryStore.
func (s *Store) GetPlatformBySlug(ctx context.Context, slug string) (crawler.Platform, error) {
	query := `
		SELECT id, slug, name, active, min_delay_ms, api_url, affiliate_url
		FROM platforms
		WHERE slug = $1;
	`
	var (
		p          crawler.Platform
		minDelayMS int64
	)
	err := s.pool.QueryRow(ctx, query, slug).Scan(
		&p.ID,
		&p.Slug,
		&p.Name,
		&p.Active,
		&minDelayMS,
		&p.APIURL,
		&p.AffiliateURL,
	)
	if err != nil {
		return crawler.Platform{}, translate(err, "get platform %q", slug)
	}
	p.MinDelay = time.Duration(minDelayMS) * time.Millisecond
	return p, nil
}

// GetActiveAccount implements crawler.DirectoryStore. The oldest active
// account wins when several exist.
func (s *Store) GetActiveAccount(ctx context.Context, platformID int64) (crawler.Account, error) {
	query := `
		SELECT id, platform_id, affiliate_id, api_key, status
		FROM accounts
		WHERE platform_id = $1 AND status = 'active'
		ORDER BY id
		LIMIT 1;
	`
	var (
		a      crawler.Account
		status string
	)
	err := s.pool.QueryRow(ctx, query, platformID).Scan(
		&a.ID,
		&a.PlatformID,
		&a.AffiliateID,
		&a.APIKey,
		&status,
	)
	if err != nil {
		return crawler.Account{}, translate(err, "get active account for platform %d", platformID)
	}
	a.Status = crawler.AccountStatus(status)
	return a, nil
}
