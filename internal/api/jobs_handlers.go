package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
	"github.com/JakeFAU/performer-crawler/internal/id/uuid"
)

const (
	defaultJobLimit = 50
	maxJobLimit     = 500
	ledgerTimeout   = 3 * time.Second
)

// Ledger is the read side of the store the API needs.
type Ledger interface {
	GetPlatformBySlug(ctx context.Context, slug string) (crawler.Platform, error)
	GetJob(ctx context.Context, jobID string) (crawler.Job, error)
	ListJobs(ctx context.Context, filter crawler.JobFilter) ([]crawler.Job, error)
}

// JobsHandler exposes read-only job ledger endpoints.
type JobsHandler struct {
	ledger  Ledger
	timeout time.Duration
	logger  *zap.Logger
}

// NewJobsHandler wires the ledger and logger.
func NewJobsHandler(ledger Ledger, logger *zap.Logger) *JobsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobsHandler{
		ledger:  ledger,
		timeout: ledgerTimeout,
		logger:  logger,
	}
}

// ListJobs handles GET /v1/jobs?platform=&limit=. It returns {"jobs": [...]}
// on success, 400 for an invalid limit, 404 for an unknown platform slug,
// 503 when no ledger is wired, or 500 if the store call fails.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit, err := parseLimit(r, defaultJobLimit, maxJobLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := crawler.JobFilter{Limit: limit}
	if slug := strings.TrimSpace(r.URL.Query().Get("platform")); slug != "" {
		platform, err := h.ledger.GetPlatformBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, crawler.ErrNotFound) {
				writeError(w, http.StatusNotFound, "platform not found")
				return
			}
			h.logger.Error("resolve platform failed", zap.String("platform", slug), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to resolve platform")
			return
		}
		filter.PlatformID = platform.ID
	}

	jobs, err := h.ledger.ListJobs(ctx, filter)
	if err != nil {
		h.logger.Error("list jobs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs": toJobDTOs(jobs),
	})
}

// GetJob handles GET /v1/jobs/{job_id}. It returns {"job": {...}} on success,
// 400 for malformed ids, 404 when the ledger has no such job, or 500 otherwise.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger unavailable")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required")
		return
	}
	if !uuid.Valid(jobID) {
		writeError(w, http.StatusBadRequest, "invalid job_id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	job, err := h.ledger.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, crawler.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("get job failed", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": toJobDTO(job)})
}

func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	limStr := r.URL.Query().Get("limit")
	if limStr == "" {
		return def, nil
	}
	val, err := strconv.Atoi(limStr)
	if err != nil || val <= 0 {
		return 0, errors.New("invalid limit")
	}
	return min(val, maxLimit), nil
}

func toJobDTOs(in []crawler.Job) []jobDTO {
	out := make([]jobDTO, 0, len(in))
	for _, job := range in {
		out = append(out, toJobDTO(job))
	}
	return out
}

func toJobDTO(job crawler.Job) jobDTO {
	errorLog := job.ErrorLog
	if errorLog == nil {
		errorLog = []string{}
	}
	return jobDTO{
		ID:              job.ID,
		PlatformID:      job.PlatformID,
		JobType:         string(job.Type),
		Status:          string(job.Status),
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
		ItemsProcessed:  job.Counters.Processed,
		ItemsAdded:      job.Counters.Added,
		ItemsUpdated:    job.Counters.Updated,
		ItemsSkipped:    job.Counters.Skipped,
		ErrorsCount:     job.Counters.Errors,
		ErrorLog:        errorLog,
		ProgressPercent: job.ProgressPercent,
	}
}

// jobDTO is the flat ledger record served to clients.
type jobDTO struct {
	ID              string     `json:"id"`
	PlatformID      int64      `json:"platform_id"`
	JobType         string     `json:"job_type"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ItemsProcessed  int        `json:"items_processed"`
	ItemsAdded      int        `json:"items_added"`
	ItemsUpdated    int        `json:"items_updated"`
	ItemsSkipped    int        `json:"items_skipped"`
	ErrorsCount     int        `json:"errors_count"`
	ErrorLog        []string   `json:"error_log"`
	ProgressPercent int        `json:"progress_percent"`
}
