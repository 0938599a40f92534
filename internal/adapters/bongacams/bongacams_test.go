package bongacams

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

type stubFetcher struct {
	body     string
	requests []crawler.FetchRequest
}

func (s *stubFetcher) Fetch(_ context.Context, req crawler.FetchRequest) (crawler.FetchResponse, error) {
	s.requests = append(s.requests, req)
	return crawler.FetchResponse{StatusCode: 200, Body: []byte(s.body)}, nil
}

func TestFetchPageKeepsBaseQuery(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{body: `[{"username":"a"},{"username":"b"}]`}
	page, err := New(f, nil).FetchPage(context.Background(), crawler.Platform{}, crawler.PageRequest{
		Offset:  200,
		Limit:   100,
		Gender:  crawler.GenderFemale,
		Account: crawler.Account{AffiliateID: "c-77"},
	})
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
	assert.Zero(t, page.Total, "bare arrays carry no total")

	u, err := url.Parse(f.requests[0].URL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "api", q.Get("type"))
	assert.Equal(t, "json", q.Get("api_type"))
	assert.Equal(t, "c-77", q.Get("c"))
	assert.Equal(t, "female", q.Get("category"))
	assert.Equal(t, "200", q.Get("offset"))
}

func TestFetchPageFallsBackToModelsEnvelope(t *testing.T) {
	t.Parallel()

	page, err := New(&stubFetcher{body: `{"models":[{"username":"a"}]}`}, nil).
		FetchPage(context.Background(), crawler.Platform{}, crawler.PageRequest{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)
}

func TestFetchPageUnparseableIsEmptyAndLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	page, err := New(&stubFetcher{body: `{"status":"maintenance"}`}, zap.New(core)).
		FetchPage(context.Background(), crawler.Platform{}, crawler.PageRequest{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, 1, logs.Len())
}

func TestNormalizeCoercesStringNumbers(t *testing.T) {
	t.Parallel()

	raw := crawler.RawRecord(`{
		"username": "LunaLux",
		"display_name": "Luna",
		"gender": "Female",
		"display_age": "26",
		"ethnicity": "Latin",
		"build": "Slim",
		"city": "Bogota",
		"homecountry": "Colombia",
		"profile_images": {"thumbnail_image_big_live": "https://img/live.jpg", "profile_image": "https://img/p.jpg"},
		"members_count": "57",
		"favorites_count": "3400",
		"tags": ["latina", "Dance"],
		"turns_on": "good music",
		"primary_language": "Spanish",
		"secondary_language": "English",
		"hd_cam": "1",
		"vibratoy": "1"
	}`)

	p, ok := New(nil, nil).Normalize(raw)
	require.True(t, ok)
	assert.Equal(t, "lunalux", p.ExternalID)
	assert.Equal(t, crawler.GenderFemale, *p.Gender)
	assert.Equal(t, 26, *p.Age)
	assert.Equal(t, int64(57), *p.ViewersCount)
	assert.Equal(t, int64(3400), *p.FollowersCount)
	assert.Equal(t, []string{"latina", "dance", "hd", "interactive toy"}, p.Tags)
	assert.Equal(t, []string{"spanish", "english"}, p.Languages)
	assert.Equal(t, "slim", *p.BodyType)
	assert.Equal(t, "latin", *p.Ethnicity)
	assert.Equal(t, "Bogota", *p.Location)
	assert.Equal(t, "https://img/live.jpg", *p.AvatarURL)
	assert.Equal(t, "https://bongacams.com/LunaLux", *p.ProfileURL)
	assert.True(t, *p.IsOnline, "listed means online")
}

func TestNormalizeExplicitOfflineFlag(t *testing.T) {
	t.Parallel()

	p, ok := New(nil, nil).Normalize(crawler.RawRecord(`{"username":"a","online":"0"}`))
	require.True(t, ok)
	assert.False(t, *p.IsOnline)
	assert.Nil(t, p.Age)
	assert.Nil(t, p.Tags)
}

func TestNormalizeRejectsMissingUsername(t *testing.T) {
	t.Parallel()

	_, ok := New(nil, nil).Normalize(crawler.RawRecord(`{"display_name":"nobody"}`))
	assert.False(t, ok)
}

func TestBuildAffiliateURL(t *testing.T) {
	t.Parallel()

	got := New(nil, nil).BuildAffiliateURL(crawler.Platform{}, crawler.Account{AffiliateID: "c-77"},
		crawler.Performer{Username: "LunaLux"})
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/track", u.Path)
	assert.Equal(t, "c-77", u.Query().Get("c"))
	assert.Equal(t, "https://bongacams.com/LunaLux", u.Query().Get("csurl"))
}
