package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

const performerColumns = `id::text, platform_id, external_id, username,
	display_name, profile_url, avatar_url, cover_url, bio, tags,
	gender, body_type, ethnicity, age, location, country,
	is_verified, is_online, last_online_at, last_crawled_at,
	followers_count, subscribers_count, media_count, viewers_count,
	subscription_price, currency, languages, social_links, is_promoted, raw_data,
	created_at, updated_at`

// FindPerformer implements crawler.PerformerStore.
func (s *Store) FindPerformer(ctx context.Context, platformID int64, externalID string) (crawler.Performer, error) {
	query := `SELECT ` + performerColumns + `
		FROM performers
		WHERE platform_id = $1 AND external_id = $2;`
	p, err := scanPerformer(s.pool.QueryRow(ctx, query, platformID, externalID))
	if err != nil {
		return crawler.Performer{}, translate(err, "find performer %d/%s", platformID, externalID)
	}
	return p, nil
}

// InsertPerformer implements crawler.PerformerStore. A collision on
// (platform_id, external_id) surfaces as crawler.ErrDuplicate.
func (s *Store) InsertPerformer(ctx context.Context, p crawler.Performer) error {
	args, err := performerArgs(p)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO performers (
			id, platform_id, external_id, username,
			display_name, profile_url, avatar_url, cover_url, bio, tags,
			gender, body_type, ethnicity, age, location, country,
			is_verified, is_online, last_online_at, last_crawled_at,
			followers_count, subscribers_count, media_count, viewers_count,
			subscription_price, currency, languages, social_links, is_promoted, raw_data,
			created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
			$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32
		);
	`
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return translate(err, "insert performer %d/%s", p.PlatformID, p.ExternalID)
	}
	return nil
}

// UpdatePerformer implements crawler.PerformerStore. The row is addressed by
// id and the natural key must still match.
func (s *Store) UpdatePerformer(ctx context.Context, p crawler.Performer) error {
	args, err := performerArgs(p)
	if err != nil {
		return err
	}
	query := `
		UPDATE performers SET
			username = $4, display_name = $5, profile_url = $6, avatar_url = $7,
			cover_url = $8, bio = $9, tags = $10, gender = $11, body_type = $12,
			ethnicity = $13, age = $14, location = $15, country = $16,
			is_verified = $17, is_online = $18, last_online_at = $19, last_crawled_at = $20,
			followers_count = $21, subscribers_count = $22, media_count = $23, viewers_count = $24,
			subscription_price = $25, currency = $26, languages = $27, social_links = $28,
			is_promoted = $29, raw_data = $30, created_at = $31, updated_at = $32
		WHERE id = $1 AND platform_id = $2 AND external_id = $3;
	`
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return translate(err, "update performer %d/%s", p.PlatformID, p.ExternalID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("performer %d/%s: %w", p.PlatformID, p.ExternalID, crawler.ErrNotFound)
	}
	return nil
}

// ListPromoted implements crawler.PerformerStore.
func (s *Store) ListPromoted(ctx context.Context, platformID int64) ([]crawler.Performer, error) {
	query := `SELECT ` + performerColumns + `
		FROM performers
		WHERE platform_id = $1 AND is_promoted
		ORDER BY username;`
	rows, err := s.pool.Query(ctx, query, platformID)
	if err != nil {
		return nil, fmt.Errorf("failed to list promoted performers: %w", err)
	}
	defer rows.Close()

	var out []crawler.Performer
	for rows.Next() {
		p, err := scanPerformer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan performer row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate performer rows: %w", err)
	}
	return out, nil
}

func performerArgs(p crawler.Performer) ([]any, error) {
	var socialLinks []byte
	if p.SocialLinks != nil {
		encoded, err := json.Marshal(p.SocialLinks)
		if err != nil {
			return nil, fmt.Errorf("marshal social links: %w", err)
		}
		socialLinks = encoded
	}
	var rawData []byte
	if len(p.RawData) > 0 {
		rawData = []byte(p.RawData)
	}
	var gender *string
	if p.Gender != nil {
		g := string(*p.Gender)
		gender = &g
	}
	return []any{
		p.ID,
		p.PlatformID,
		p.ExternalID,
		p.Username,
		p.DisplayName,
		p.ProfileURL,
		p.AvatarURL,
		p.CoverURL,
		p.Bio,
		p.Tags,
		gender,
		p.BodyType,
		p.Ethnicity,
		p.Age,
		p.Location,
		p.Country,
		p.IsVerified,
		p.IsOnline,
		p.LastOnlineAt,
		p.LastCrawledAt,
		p.FollowersCount,
		p.SubscribersCount,
		p.MediaCount,
		p.ViewersCount,
		p.SubscriptionPrice,
		p.Currency,
		p.Languages,
		socialLinks,
		p.IsPromoted,
		rawData,
		p.CreatedAt,
		p.UpdatedAt,
	}, nil
}

func scanPerformer(row pgx.Row) (crawler.Performer, error) {
	var (
		p           crawler.Performer
		gender      *string
		socialLinks []byte
		rawData     []byte
	)
	err := row.Scan(
		&p.ID,
		&p.PlatformID,
		&p.ExternalID,
		&p.Username,
		&p.DisplayName,
		&p.ProfileURL,
		&p.AvatarURL,
		&p.CoverURL,
		&p.Bio,
		&p.Tags,
		&gender,
		&p.BodyType,
		&p.Ethnicity,
		&p.Age,
		&p.Location,
		&p.Country,
		&p.IsVerified,
		&p.IsOnline,
		&p.LastOnlineAt,
		&p.LastCrawledAt,
		&p.FollowersCount,
		&p.SubscribersCount,
		&p.MediaCount,
		&p.ViewersCount,
		&p.SubscriptionPrice,
		&p.Currency,
		&p.Languages,
		&socialLinks,
		&p.IsPromoted,
		&rawData,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return crawler.Performer{}, err
	}
	if gender != nil {
		g := crawler.Gender(*gender)
		p.Gender = &g
	}
	if len(socialLinks) > 0 {
		if err := json.Unmarshal(socialLinks, &p.SocialLinks); err != nil {
			return crawler.Performer{}, fmt.Errorf("decode social links: %w", err)
		}
	}
	if len(rawData) > 0 {
		p.RawData = rawData
	}
	return p, nil
}
