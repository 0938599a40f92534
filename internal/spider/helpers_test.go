package spider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
	"github.com/JakeFAU/performer-crawler/internal/storage/memory"
)

const testSlug = "testcams"

// listing is the wire shape served by fakeAdapter.
type listing struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Display  string `json:"display,omitempty"`
	Online   *bool  `json:"online,omitempty"`
	Promoted bool   `json:"promoted,omitempty"`
}

type fakeAdapter struct {
	mu       sync.Mutex
	records  []listing
	infinite bool
	fetchErr error
	onFetch  func(call int) error
	panicOn  string
	requests []crawler.PageRequest
}

func (a *fakeAdapter) Slug() string { return testSlug }

func (a *fakeAdapter) FetchPage(_ context.Context, _ crawler.Platform, req crawler.PageRequest) (crawler.Page, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	call := len(a.requests)
	a.mu.Unlock()

	if a.onFetch != nil {
		if err := a.onFetch(call); err != nil {
			return crawler.Page{}, err
		}
	}
	if a.fetchErr != nil {
		return crawler.Page{}, a.fetchErr
	}

	var batch []listing
	if a.infinite {
		for i := 0; i < req.Limit; i++ {
			n := req.Offset + i + 1
			batch = append(batch, listing{ID: fmt.Sprint(n), Username: fmt.Sprintf("user%d", n)})
		}
	} else if req.Offset < len(a.records) {
		end := min(req.Offset+req.Limit, len(a.records))
		batch = a.records[req.Offset:end]
	}

	page := crawler.Page{Total: len(a.records)}
	for _, l := range batch {
		raw, err := json.Marshal(l)
		if err != nil {
			return crawler.Page{}, err
		}
		page.Records = append(page.Records, raw)
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return crawler.Page{}, err
	}
	page.Body = body
	return page, nil
}

func (a *fakeAdapter) Normalize(raw crawler.RawRecord) (*crawler.Performer, bool) {
	var l listing
	if err := json.Unmarshal(raw, &l); err != nil || l.ID == "" || l.Username == "" {
		return nil, false
	}
	if a.panicOn != "" && l.ID == a.panicOn {
		panic("unexpected payload")
	}
	p := &crawler.Performer{ExternalID: l.ID, Username: l.Username, RawData: json.RawMessage(raw)}
	if l.Display != "" {
		d := l.Display
		p.DisplayName = &d
	}
	p.IsOnline = l.Online
	if l.Promoted {
		t := true
		p.IsPromoted = &t
	}
	return p, true
}

func (a *fakeAdapter) BuildAffiliateURL(platform crawler.Platform, account crawler.Account, p crawler.Performer) string {
	return fmt.Sprintf("%s%s?c=%s", platform.AffiliateURL, p.Username, account.AffiliateID)
}

func (a *fakeAdapter) fetches() []crawler.PageRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]crawler.PageRequest(nil), a.requests...)
}

func numbered(n int) []listing {
	out := make([]listing, n)
	for i := range out {
		out[i] = listing{ID: fmt.Sprint(i + 1), Username: fmt.Sprintf("user%d", i+1)}
	}
	return out
}

// recordingStore decorates the memory store with fault injection and call
// counts.
type recordingStore struct {
	*memory.Store

	mu          sync.Mutex
	failInsert  map[string]error
	failPromote error
	progress    []int
}

func (s *recordingStore) InsertPerformer(ctx context.Context, p crawler.Performer) error {
	s.mu.Lock()
	err := s.failInsert[p.ExternalID]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.InsertPerformer(ctx, p)
}

func (s *recordingStore) UpdateJobProgress(ctx context.Context, jobID string, c crawler.JobCounters, pct int) error {
	s.mu.Lock()
	s.progress = append(s.progress, pct)
	s.mu.Unlock()
	return s.Store.UpdateJobProgress(ctx, jobID, c, pct)
}

func (s *recordingStore) ListPromoted(ctx context.Context, platformID int64) ([]crawler.Performer, error) {
	if s.failPromote != nil {
		return nil, s.failPromote
	}
	return s.Store.ListPromoted(ctx, platformID)
}

func (s *recordingStore) checkpoints() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.progress...)
}

func newStore(t *testing.T, withAccount bool) (*recordingStore, crawler.Platform) {
	t.Helper()
	mem := memory.NewStore()
	p := mem.AddPlatform(crawler.Platform{
		Slug:         testSlug,
		Name:         "Test Cams",
		Active:       true,
		APIURL:       "https://api.test/",
		AffiliateURL: "https://aff.test/",
	})
	if withAccount {
		mem.AddAccount(crawler.Account{PlatformID: p.ID, AffiliateID: "wm1", Status: crawler.AccountActive})
	}
	return &recordingStore{Store: mem, failInsert: map[string]error{}}, p
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%04d", g.n), nil
}

type countingLimiter struct {
	mu    sync.Mutex
	waits int
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	l.waits++
	l.mu.Unlock()
	return ctx.Err()
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newSpider(t *testing.T, deps Deps, cfg Config) *Spider {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = fixedClock{now: testNow}
	}
	if deps.IDs == nil {
		deps.IDs = &seqIDs{}
	}
	if deps.Limiters == nil {
		lim := &countingLimiter{}
		deps.Limiters = func(string, time.Duration) crawler.Limiter { return lim }
	}
	s, err := New(deps, cfg)
	require.NoError(t, err)
	return s
}

func assertCounterInvariant(t *testing.T, c crawler.JobCounters) {
	t.Helper()
	assert.Equal(t, c.Processed, c.Added+c.Updated+c.Skipped, "processed = added + updated + skipped: %+v", c)
	assert.LessOrEqual(t, c.Errors, c.Skipped)
}
