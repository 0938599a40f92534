package postgres

import (
	"context"
	"fmt"
)

// schema is applied in order by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS platforms (
		id            BIGSERIAL PRIMARY KEY,
		slug          TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		min_delay_ms  BIGINT NOT NULL DEFAULT 0,
		api_url       TEXT NOT NULL DEFAULT '',
		affiliate_url TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id           BIGSERIAL PRIMARY KEY,
		platform_id  BIGINT NOT NULL REFERENCES platforms(id),
		affiliate_id TEXT NOT NULL DEFAULT '',
		api_key      TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive'))
	);`,
	`CREATE TABLE IF NOT EXISTS spider_jobs (
		id               UUID PRIMARY KEY,
		platform_id      BIGINT NOT NULL REFERENCES platforms(id),
		job_type         TEXT NOT NULL,
		status           TEXT NOT NULL CHECK (status IN ('running', 'completed', 'failed')),
		started_at       TIMESTAMPTZ NOT NULL,
		completed_at     TIMESTAMPTZ,
		items_processed  INTEGER NOT NULL DEFAULT 0,
		items_added      INTEGER NOT NULL DEFAULT 0,
		items_updated    INTEGER NOT NULL DEFAULT 0,
		items_skipped    INTEGER NOT NULL DEFAULT 0,
		errors_count     INTEGER NOT NULL DEFAULT 0,
		error_log        TEXT[] NOT NULL DEFAULT '{}',
		progress_percent INTEGER NOT NULL DEFAULT 0 CHECK (progress_percent BETWEEN 0 AND 100)
	);`,
	`CREATE INDEX IF NOT EXISTS spider_jobs_platform_started_idx
		ON spider_jobs (platform_id, started_at DESC);`,
	`CREATE TABLE IF NOT EXISTS performers (
		id                 UUID PRIMARY KEY,
		platform_id        BIGINT NOT NULL REFERENCES platforms(id),
		external_id        TEXT NOT NULL,
		username           TEXT NOT NULL,
		display_name       TEXT,
		profile_url        TEXT,
		avatar_url         TEXT,
		cover_url          TEXT,
		bio                TEXT,
		tags               TEXT[],
		gender             TEXT,
		body_type          TEXT,
		ethnicity          TEXT,
		age                INTEGER,
		location           TEXT,
		country            TEXT,
		is_verified        BOOLEAN,
		is_online          BOOLEAN,
		last_online_at     TIMESTAMPTZ,
		last_crawled_at    TIMESTAMPTZ,
		followers_count    BIGINT,
		subscribers_count  BIGINT,
		media_count        BIGINT,
		viewers_count      BIGINT,
		subscription_price DOUBLE PRECISION,
		currency           TEXT,
		languages          TEXT[],
		social_links       JSONB,
		is_promoted        BOOLEAN,
		raw_data           JSONB,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL,
		UNIQUE (platform_id, external_id)
	);`,
	`CREATE INDEX IF NOT EXISTS performers_promoted_idx
		ON performers (platform_id) WHERE is_promoted;`,
	`CREATE TABLE IF NOT EXISTS affiliate_links (
		performer_id UUID PRIMARY KEY REFERENCES performers(id) ON DELETE CASCADE,
		platform_id  BIGINT NOT NULL REFERENCES platforms(id),
		url          TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	);`,
}

// Migrate creates the spider tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

// SeedPlatform inserts or refreshes a platform row and returns its id.
func (s *Store) SeedPlatform(ctx context.Context, slug, name string, active bool, minDelayMS int64, apiURL, affiliateURL string) (int64, error) {
	query := `
		INSERT INTO platforms (slug, name, active, min_delay_ms, api_url, affiliate_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name, active = EXCLUDED.active, min_delay_ms = EXCLUDED.min_delay_ms,
			api_url = EXCLUDED.api_url, affiliate_url = EXCLUDED.affiliate_url
		RETURNING id;
	`
	var id int64
	if err := s.pool.QueryRow(ctx, query, slug, name, active, minDelayMS, apiURL, affiliateURL).Scan(&id); err != nil {
		return 0, translate(err, "seed platform %q", slug)
	}
	return id, nil
}

// SeedAccount adds an affiliate account unless an identical one exists.
func (s *Store) SeedAccount(ctx context.Context, platformID int64, affiliateID, apiKey, status string) error {
	query := `
		INSERT INTO accounts (platform_id, affiliate_id, api_key, status)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (
			SELECT 1 FROM accounts WHERE platform_id = $1 AND affiliate_id = $2
		);
	`
	if _, err := s.pool.Exec(ctx, query, platformID, affiliateID, apiKey, status); err != nil {
		return translate(err, "seed account for platform %d", platformID)
	}
	return nil
}
