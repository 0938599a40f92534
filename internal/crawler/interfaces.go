package crawler

import (
	"context"
	"io"
	"time"
)

// Adapter is the platform-specific half of a spider: it knows one external
// API's request shape and vocabulary.
type Adapter interface {
	// Slug returns the platform slug the adapter serves.
	Slug() string
	// FetchPage returns one page of raw listings. An empty page means the
	// listing is exhausted.
	FetchPage(ctx context.Context, platform Platform, req PageRequest) (Page, error)
	// Normalize maps a raw record onto the canonical schema. It returns false
	// when the record lacks an external id or username.
	Normalize(raw RawRecord) (*Performer, bool)
	// BuildAffiliateURL returns the tracked outbound URL for a performer.
	BuildAffiliateURL(platform Platform, account Account, performer Performer) string
}

// Fetcher performs a single outbound call with retries.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// DirectoryStore resolves platform and account configuration.
type DirectoryStore interface {
	GetPlatformBySlug(ctx context.Context, slug string) (Platform, error)
	GetActiveAccount(ctx context.Context, platformID int64) (Account, error)
}

// JobStore persists the job ledger.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobProgress(ctx context.Context, jobID string, counters JobCounters, percent int) error
	CompleteJob(
		ctx context.Context,
		jobID string,
		status JobStatus,
		counters JobCounters,
		errorLog []string,
		completedAt time.Time,
	) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]Job, error)
}

// PerformerStore reads and writes canonical performers.
type PerformerStore interface {
	FindPerformer(ctx context.Context, platformID int64, externalID string) (Performer, error)
	InsertPerformer(ctx context.Context, performer Performer) error
	UpdatePerformer(ctx context.Context, performer Performer) error
	ListPromoted(ctx context.Context, platformID int64) ([]Performer, error)
}

// LinkStore persists affiliate links.
type LinkStore interface {
	UpsertAffiliateLink(ctx context.Context, link AffiliateLink) error
}

// Store is the data-store handle a spider run owns until it exits.
type Store interface {
	DirectoryStore
	JobStore
	PerformerStore
	LinkStore
	Close() error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Limiter paces outbound requests for one platform.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Hasher computes digests for archive keys.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job and performer IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
