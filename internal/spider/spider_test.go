package spider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/performer-crawler/internal/adapters/chaturbate"
	"github.com/JakeFAU/performer-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/performer-crawler/internal/fetcher/colly"
	pubmemory "github.com/JakeFAU/performer-crawler/internal/publisher/memory"
	"github.com/JakeFAU/performer-crawler/internal/storage/memory"
)

func TestNewRequiresStoreAndAdapter(t *testing.T) {
	t.Parallel()

	_, err := New(Deps{Adapter: &fakeAdapter{}}, Config{})
	require.Error(t, err)
	_, err = New(Deps{Store: memory.NewStore()}, Config{})
	require.Error(t, err)

	s, err := New(Deps{Store: memory.NewStore(), Adapter: &fakeAdapter{}}, Config{})
	require.NoError(t, err)
	assert.Equal(t, 100, s.cfg.BatchSize)
	assert.Equal(t, 5000, s.cfg.MaxItems)
	assert.Equal(t, 10, s.cfg.CheckpointEvery)
}

func TestRunScenarioWithSkipAndWriteFailure(t *testing.T) {
	t.Parallel()

	records := numbered(340)
	records[214].Username = "" // record #215 cannot be normalized
	store, platform := newStore(t, true)
	store.failInsert["50"] = errors.New("deadlock detected")
	adapter := &fakeAdapter{records: records}

	res, err := newSpider(t, Deps{Store: store, Adapter: adapter}, Config{}).Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, crawler.JobStatusCompleted, res.Status)
	assert.Equal(t, 340, res.Counters.Processed)
	// The failed write for #50 counts as skipped as well as an error, so
	// processed still equals added + updated + skipped.
	assert.Equal(t, 2, res.Counters.Skipped)
	assert.Equal(t, 1, res.Counters.Errors)
	assert.Equal(t, 338, res.Counters.Added+res.Counters.Updated)
	assertCounterInvariant(t, res.Counters)

	job, err := store.GetJob(context.Background(), res.JobID)
	require.NoError(t, err)
	assert.Equal(t, crawler.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.ProgressPercent)
	assert.Equal(t, res.Counters, job.Counters)
	require.Len(t, job.ErrorLog, 1)
	assert.Contains(t, job.ErrorLog[0], "record 50 (50)")
	assert.Contains(t, job.ErrorLog[0], "deadlock detected")
	require.NotNil(t, job.CompletedAt)

	assert.Len(t, store.Performers(platform.ID), 338)
	assert.Len(t, adapter.fetches(), 4, "three full pages and one short page")
	assert.Equal(t, 1, store.Closes())
}

func TestRunFetchExhaustionCompletesWithNothingProcessed(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, true)
	adapter := &fakeAdapter{fetchErr: errors.New("fetch failed after 3 attempts: timeout")}

	res, err := newSpider(t, Deps{Store: store, Adapter: adapter}, Config{}).Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, crawler.JobStatusCompleted, res.Status)
	assert.Equal(t, crawler.JobCounters{}, res.Counters)

	job, err := store.GetJob(context.Background(), res.JobID)
	require.NoError(t, err)
	assert.Equal(t, crawler.JobStatusCompleted, job.Status)
	require.Len(t, job.ErrorLog, 1)
	assert.Contains(t, job.ErrorLog[0], "offset 0")
}

func TestRunAgainstUnreachablePlatformThroughRealFetcher(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	mem := memory.NewStore()
	p := mem.AddPlatform(crawler.Platform{Slug: chaturbate.Slug, Active: true, APIURL: srv.URL + "/rooms/"})
	mem.AddAccount(crawler.Account{PlatformID: p.ID, AffiliateID: "wm1", Status: crawler.AccountActive})

	fetcher := collyfetcher.New(collyfetcher.Config{Timeout: time.Second, MaxAttempts: 3, BackoffBase: 0})
	adapter := chaturbate.New(fetcher, nil)

	res, err := newSpider(t, Deps{Store: mem, Adapter: adapter}, Config{}).Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, crawler.JobStatusCompleted, res.Status)
	assert.Equal(t, 0, res.Counters.Processed)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRunWithoutActiveAccountCreatesNoJob(t *testing.T) {
	t.Parallel()

	store, platform := newStore(t, false)
	adapter := &fakeAdapter{records: numbered(5)}

	res, err := newSpider(t, Deps{Store: store, Adapter: adapter}, Config{}).Run(context.Background(), crawler.RunOptions{})
	require.Error(t, err)
	var cfgErr *crawler.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, testSlug, cfgErr.Platform)
	assert.True(t, crawler.IsConfigurationError(err))
	assert.Empty(t, res.JobID)

	jobs, err := store.ListJobs(context.Background(), crawler.JobFilter{PlatformID: platform.ID})
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Empty(t, adapter.fetches(), "no network activity before a job exists")
	assert.Equal(t, 1, store.Closes())
}

func TestRunRejectsUnknownOrInactivePlatform(t *testing.T) {
	t.Parallel()

	_, err := newSpider(t, Deps{Store: memory.NewStore(), Adapter: &fakeAdapter{}}, Config{}).
		Run(context.Background(), crawler.RunOptions{})
	require.True(t, crawler.IsConfigurationError(err))

	mem := memory.NewStore()
	p := mem.AddPlatform(crawler.Platform{Slug: testSlug, Active: false})
	mem.AddAccount(crawler.Account{PlatformID: p.ID, Status: crawler.AccountActive})
	_, err = newSpider(t, Deps{Store: mem, Adapter: &fakeAdapter{}}, Config{}).
		Run(context.Background(), crawler.RunOptions{})
	require.True(t, crawler.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "inactive")
}

func TestRunMarksJobFailedOnPanic(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, true)
	adapter := &fakeAdapter{records: numbered(20), panicOn: "7"}

	res, err := newSpider(t, Deps{Store: store, Adapter: adapter}, Config{}).Run(context.Background(), crawler.RunOptions{})
	require.ErrorContains(t, err, "panic")
	assert.Equal(t, crawler.JobStatusFailed, res.Status)

	job, getErr := store.GetJob(context.Background(), res.JobID)
	require.NoError(t, getErr)
	assert.Equal(t, crawler.JobStatusFailed, job.Status)
	assert.Equal(t, 6, job.Counters.Added)
	assertCounterInvariant(t, job.Counters)
	require.NotEmpty(t, job.ErrorLog)
	assert.Contains(t, job.ErrorLog[len(job.ErrorLog)-1], "panic")
	assert.Equal(t, 1, store.Closes())
}

func TestRunMarksJobFailedWhenCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store, _ := newStore(t, true)
	adapter := &fakeAdapter{infinite: true}
	adapter.onFetch = func(call int) error {
		if call == 2 {
			cancel()
			return context.Canceled
		}
		return nil
	}

	res, err := newSpider(t, Deps{Store: store, Adapter: adapter}, Config{}).Run(ctx, crawler.RunOptions{})
	require.ErrorIs(t, err, context.Canceled)

	job, getErr := store.GetJob(context.Background(), res.JobID)
	require.NoError(t, getErr)
	assert.Equal(t, crawler.JobStatusFailed, job.Status, "ledger write outlives the cancelled context")
	assert.Equal(t, 100, job.Counters.Processed)
}

func TestRunHooks(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, true)
	var before, after int
	deps := Deps{
		Store:   store,
		Adapter: &fakeAdapter{records: numbered(3)},
		Hooks: Hooks{
			BeforeRun: func(_ context.Context, job crawler.Job, _ crawler.Platform) error {
				before++
				assert.Equal(t, crawler.JobStatusRunning, job.Status)
				return nil
			},
			AfterRun: func(context.Context, crawler.Job, crawler.Platform) error {
				after++
				return nil
			},
		},
	}
	_, err := newSpider(t, deps, Config{}).Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, before)
	assert.Equal(t, 1, after)

	failing, _ := newStore(t, true)
	adapter := &fakeAdapter{records: numbered(3)}
	deps = Deps{
		Store:   failing,
		Adapter: adapter,
		Hooks: Hooks{BeforeRun: func(context.Context, crawler.Job, crawler.Platform) error {
			return errors.New("quota check failed")
		}},
	}
	res, err := newSpider(t, deps, Config{}).Run(context.Background(), crawler.RunOptions{})
	require.ErrorContains(t, err, "before run")
	assert.Equal(t, crawler.JobStatusFailed, res.Status)
	assert.Empty(t, adapter.fetches())
}

func TestRunOnlyOnce(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, true)
	s := newSpider(t, Deps{Store: store, Adapter: &fakeAdapter{records: numbered(1)}}, Config{})
	_, err := s.Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
	_, err = s.Run(context.Background(), crawler.RunOptions{})
	require.ErrorIs(t, err, ErrAlreadyRan)
	assert.Equal(t, 1, store.Closes())
}

func TestRunPublishesCompletionEvent(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, true)
	pub := pubmemory.New()
	deps := Deps{Store: store, Adapter: &fakeAdapter{records: numbered(4)}, Publisher: pub}

	res, err := newSpider(t, deps, Config{Topic: "spider-jobs"}).Run(context.Background(), crawler.RunOptions{
		JobType: crawler.JobTypeOnlineSync,
	})
	require.NoError(t, err)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "spider-jobs", msgs[0].Topic)
	event, ok := msgs[0].Payload.(Event)
	require.True(t, ok)
	assert.Equal(t, res.JobID, event.JobID)
	assert.Equal(t, crawler.JobStatusCompleted, event.Status)
	assert.Equal(t, crawler.JobTypeOnlineSync, event.JobType)
	assert.Equal(t, 4, event.Counters.Added)
	assert.Equal(t, testNow, event.CompletedAt)
	assert.Equal(t, "completed", event.Attributes()["status"])
}

func TestRunSurvivesPublishFailure(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, true)
	pub := pubmemory.New()
	pub.FailWith(errors.New("topic not found"))
	deps := Deps{Store: store, Adapter: &fakeAdapter{records: numbered(2)}, Publisher: pub}

	res, err := newSpider(t, deps, Config{Topic: "spider-jobs"}).Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, crawler.JobStatusCompleted, res.Status)
}
