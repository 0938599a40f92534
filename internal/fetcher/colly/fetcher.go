// Package collyfetcher implements crawler.Fetcher for platform JSON APIs using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
	"github.com/JakeFAU/performer-crawler/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

// Fetcher implements crawler.Fetcher. Every Fetch is retried per the
// configured linear policy, each attempt bounded by Timeout.
type Fetcher struct {
	cfg           Config
	policy        *crawler.LinearRetryPolicy
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		policy:        crawler.NewLinearRetryPolicy(cfg.MaxAttempts, cfg.BackoffBase),
		baseCollector: c,
	}
}

// Fetch GETs request.URL, retrying timeouts, transport errors and non-2xx
// responses. The response reports the number of attempts used.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	resp, err := crawler.FetchWithRetry(ctx, f.policy, f.cfg.Timeout, func(attemptCtx context.Context) (crawler.FetchResponse, error) {
		return f.attempt(attemptCtx, request)
	})
	if request.Platform != "" {
		metrics.ObserveFetch(request.Platform, resp.Duration, resp.Attempts)
		if err != nil && resp.Attempts >= f.policy.MaxAttempts() {
			metrics.ObserveFetchExhausted(request.Platform)
		}
	}
	return resp, err
}

func (f *Fetcher) attempt(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	var (
		result   crawler.FetchResponse
		fetchErr error
	)
	collector := f.buildCollector(ctx, request, time.Now(), &result, &fetchErr)

	if err := collector.Visit(request.URL); err != nil {
		if fetchErr != nil {
			return crawler.FetchResponse{}, fetchErr
		}
		return crawler.FetchResponse{}, fmt.Errorf("colly visit %s: %w", request.URL, err)
	}
	if fetchErr != nil {
		return crawler.FetchResponse{}, fetchErr
	}
	return result, nil
}

func (f *Fetcher) buildCollector(
	ctx context.Context,
	request crawler.FetchRequest,
	start time.Time,
	result *crawler.FetchResponse,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	f.configureCollectorHooks(collector, request, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request crawler.FetchRequest,
	start time.Time,
	result *crawler.FetchResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json")
		f.copyHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = crawler.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*fetchErr = &crawler.StatusError{URL: request.URL, StatusCode: r.StatusCode}
			return
		}
		*fetchErr = fmt.Errorf("colly response failed: %w", err)
	})
}

func (f *Fetcher) copyHeaders(request crawler.FetchRequest, r *colly.Request) {
	for key, value := range request.Headers {
		r.Headers.Set(key, value)
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
