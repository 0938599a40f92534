// Package crawler defines core types shared across subsystems.
package crawler

import (
	"time"
)

// JobStatus represents the lifecycle state of a spider job.
type JobStatus string

// Job status values persisted in the job ledger. Pending only exists in
// memory before the ledger row is created.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status closes a job for good.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobType names the kind of crawl a job performs.
type JobType string

// Supported job types.
const (
	JobTypeFullSync   JobType = "full_sync"
	JobTypeOnlineSync JobType = "online_sync"
)

// AccountStatus mirrors the accounts.status column.
type AccountStatus string

// Account statuses.
const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

// Platform is an external camming platform the spider can ingest from.
type Platform struct {
	ID           int64         `json:"id"`
	Slug         string        `json:"slug"`
	Name         string        `json:"name"`
	Active       bool          `json:"active"`
	MinDelay     time.Duration `json:"min_delay"`
	APIURL       string        `json:"api_url"`
	AffiliateURL string        `json:"affiliate_url"`
}

// Account holds the affiliate credentials used against one platform.
type Account struct {
	ID          int64         `json:"id"`
	PlatformID  int64         `json:"platform_id"`
	AffiliateID string        `json:"affiliate_id"`
	APIKey      string        `json:"-"`
	Status      AccountStatus `json:"status"`
}

// JobCounters tracks per-run item outcomes. Processed always equals
// Added + Updated + Skipped; Errors overlaps with Skipped.
type JobCounters struct {
	Processed int `json:"items_processed"`
	Added     int `json:"items_added"`
	Updated   int `json:"items_updated"`
	Skipped   int `json:"items_skipped"`
	Errors    int `json:"errors_count"`
}

// Job is one row of the job ledger.
type Job struct {
	ID              string      `json:"id"`
	PlatformID      int64       `json:"platform_id"`
	Type            JobType     `json:"job_type"`
	Status          JobStatus   `json:"status"`
	StartedAt       time.Time   `json:"started_at"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	Counters        JobCounters `json:"counters"`
	ErrorLog        []string    `json:"error_log"`
	ProgressPercent int         `json:"progress_percent"`
}

// JobFilter narrows ledger listings.
type JobFilter struct {
	PlatformID int64
	Limit      int
}

// AffiliateLink maps a promoted performer to a tracked outbound URL.
type AffiliateLink struct {
	PerformerID string    `json:"performer_id"`
	PlatformID  int64     `json:"platform_id"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RawRecord is a single undecoded listing entry returned by a platform.
type RawRecord []byte

// Page is one batch of raw listings.
type Page struct {
	Records []RawRecord
	// Total is the platform-reported listing size, or 0 when unknown.
	Total int
	// Body is the undecoded response, kept for the raw page archive.
	Body []byte
}

// PageRequest describes the slice of a listing to fetch.
type PageRequest struct {
	Offset  int
	Limit   int
	Gender  Gender
	JobType JobType
	Account Account
}

// FetchRequest captures everything needed to call a platform endpoint.
type FetchRequest struct {
	// Platform labels fetch metrics; empty skips them.
	Platform string
	URL      string
	Headers  map[string]string
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
	Attempts   int
}

// RunOptions are the per-invocation knobs accepted by a spider run.
type RunOptions struct {
	JobType JobType
	Gender  Gender
	// Limit caps the records pulled in this run; zero keeps the configured bound.
	Limit int
}

// RunResult summarises a finished run for the launcher.
type RunResult struct {
	JobID    string      `json:"job_id"`
	Platform string      `json:"platform"`
	Status   JobStatus   `json:"status"`
	Counters JobCounters `json:"counters"`
	Links    int         `json:"affiliate_links"`
}
