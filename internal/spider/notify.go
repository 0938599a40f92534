package spider

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

// Event is published once per closed job.
type Event struct {
	JobID       string              `json:"job_id"`
	Platform    string              `json:"platform"`
	JobType     crawler.JobType     `json:"job_type"`
	Status      crawler.JobStatus   `json:"status"`
	Counters    crawler.JobCounters `json:"counters"`
	Links       int                 `json:"affiliate_links"`
	CompletedAt time.Time           `json:"completed_at"`
}

// Attributes exposes routing keys for subscription filters.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"platform": e.Platform,
		"status":   string(e.Status),
		"job_type": string(e.JobType),
	}
}

func (s *Spider) notify(ctx context.Context, r *run) {
	if s.deps.Publisher == nil || s.cfg.Topic == "" {
		return
	}
	event := Event{
		JobID:    r.job.ID,
		Platform: r.platform.Slug,
		JobType:  r.job.Type,
		Status:   r.job.Status,
		Counters: r.job.Counters,
		Links:    r.links,
	}
	if r.job.CompletedAt != nil {
		event.CompletedAt = *r.job.CompletedAt
	}
	id, err := s.deps.Publisher.Publish(ctx, s.cfg.Topic, event)
	if err != nil {
		r.logger.Warn("completion event publish failed", zap.String("topic", s.cfg.Topic), zap.Error(err))
		return
	}
	r.logger.Debug("completion event published", zap.String("message_id", id))
}
