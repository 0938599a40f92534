package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

func ptr[T any](v T) *T { return &v }

func fullPerformer() crawler.Performer {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	g := crawler.GenderFemale
	return crawler.Performer{
		ID:                "perf-1",
		PlatformID:        7,
		ExternalID:        "alice",
		Username:          "alice",
		DisplayName:       ptr("Alice"),
		ProfileURL:        ptr("https://site.test/alice"),
		AvatarURL:         ptr("https://img.test/a.jpg"),
		CoverURL:          ptr("https://img.test/c.jpg"),
		Bio:               ptr("hi"),
		Tags:              []string{"hd", "new"},
		Gender:            &g,
		BodyType:          ptr("slim"),
		Ethnicity:         ptr("latin"),
		Age:               ptr(25),
		Location:          ptr("Bogota"),
		Country:           ptr("CO"),
		IsVerified:        ptr(true),
		IsOnline:          ptr(true),
		LastOnlineAt:      &now,
		LastCrawledAt:     &now,
		FollowersCount:    ptr(int64(1200)),
		SubscribersCount:  ptr(int64(30)),
		MediaCount:        ptr(int64(12)),
		ViewersCount:      ptr(int64(88)),
		SubscriptionPrice: ptr(9.99),
		Currency:          ptr("USD"),
		Languages:         []string{"en", "es"},
		SocialLinks:       map[string]string{"twitter": "@alice"},
		IsPromoted:        ptr(true),
		RawData:           json.RawMessage(`{"username":"alice"}`),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// expectedArgs doubles as the row a SELECT returns for p.
func expectedArgs(p crawler.Performer) []any {
	return []any{
		p.ID, p.PlatformID, p.ExternalID, p.Username,
		p.DisplayName, p.ProfileURL, p.AvatarURL, p.CoverURL, p.Bio, p.Tags,
		ptr("female"), p.BodyType, p.Ethnicity, p.Age, p.Location, p.Country,
		p.IsVerified, p.IsOnline, p.LastOnlineAt, p.LastCrawledAt,
		p.FollowersCount, p.SubscribersCount, p.MediaCount, p.ViewersCount,
		p.SubscriptionPrice, p.Currency, p.Languages, []byte(`{"twitter":"@alice"}`), p.IsPromoted,
		[]byte(`{"username":"alice"}`), p.CreatedAt, p.UpdatedAt,
	}
}

var performerCols = []string{
	"id", "platform_id", "external_id", "username",
	"display_name", "profile_url", "avatar_url", "cover_url", "bio", "tags",
	"gender", "body_type", "ethnicity", "age", "location", "country",
	"is_verified", "is_online", "last_online_at", "last_crawled_at",
	"followers_count", "subscribers_count", "media_count", "viewers_count",
	"subscription_price", "currency", "languages", "social_links", "is_promoted", "raw_data",
	"created_at", "updated_at",
}

func TestInsertPerformer(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	p := fullPerformer()

	mock.ExpectExec("INSERT INTO performers").
		WithArgs(expectedArgs(p)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.InsertPerformer(context.Background(), p))

	mock.ExpectExec("INSERT INTO performers").
		WithArgs(expectedArgs(p)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "performers_platform_id_external_id_key"})
	err := store.InsertPerformer(context.Background(), p)
	require.ErrorIs(t, err, crawler.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePerformer(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	p := fullPerformer()

	mock.ExpectExec("UPDATE performers").
		WithArgs(expectedArgs(p)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.UpdatePerformer(context.Background(), p))

	mock.ExpectExec("UPDATE performers").
		WithArgs(expectedArgs(p)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := store.UpdatePerformer(context.Background(), p)
	require.ErrorIs(t, err, crawler.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindPerformer(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	want := fullPerformer()

	mock.ExpectQuery("FROM performers").
		WithArgs(int64(7), "alice").
		WillReturnRows(pgxmock.NewRows(performerCols).AddRow(expectedArgs(want)...))

	got, err := store.FindPerformer(context.Background(), 7, "alice")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	mock.ExpectQuery("FROM performers").
		WithArgs(int64(7), "bob").
		WillReturnError(pgx.ErrNoRows)
	_, err = store.FindPerformer(context.Background(), 7, "bob")
	require.ErrorIs(t, err, crawler.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPromoted(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	alice := fullPerformer()
	bob := fullPerformer()
	bob.ID, bob.ExternalID, bob.Username = "perf-2", "bob", "bob"

	mock.ExpectQuery("is_promoted").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(performerCols).
			AddRow(expectedArgs(alice)...).
			AddRow(expectedArgs(bob)...))

	got, err := store.ListPromoted(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, "bob", got[1].Username)
	assert.True(t, got[1].Promoted())
	require.NoError(t, mock.ExpectationsWereMet())
}
