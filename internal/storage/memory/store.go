// Package memory provides in-process stores for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/performer-crawler/internal/config"
	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

type performerKey struct {
	platformID int64
	externalID string
}

// Store implements crawler.Store in memory. Values are copied on the way in
// and out so callers never share state with the store.
type Store struct {
	mu         sync.RWMutex
	platforms  map[string]crawler.Platform
	accounts   map[int64][]crawler.Account
	jobs       map[string]crawler.Job
	jobOrder   []string
	performers map[performerKey]crawler.Performer
	links      map[string]crawler.AffiliateLink
	nextID     int64
	closes     int
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		platforms:  make(map[string]crawler.Platform),
		accounts:   make(map[int64][]crawler.Account),
		jobs:       make(map[string]crawler.Job),
		performers: make(map[performerKey]crawler.Performer),
		links:      make(map[string]crawler.AffiliateLink),
	}
}

// NewStoreFromConfig seeds platforms and accounts from configuration.
func NewStoreFromConfig(platforms []config.PlatformConfig) *Store {
	s := NewStore()
	for _, pc := range platforms {
		p := s.AddPlatform(crawler.Platform{
			Slug:         pc.Slug,
			Name:         pc.Name,
			Active:       pc.Active,
			MinDelay:     pc.MinDelay,
			APIURL:       pc.APIURL,
			AffiliateURL: pc.AffiliateURL,
		})
		if pc.Account.AffiliateID == "" && pc.Account.APIKey == "" {
			continue
		}
		status := crawler.AccountStatus(pc.Account.Status)
		if status == "" {
			status = crawler.AccountActive
		}
		s.AddAccount(crawler.Account{
			PlatformID:  p.ID,
			AffiliateID: pc.Account.AffiliateID,
			APIKey:      pc.Account.APIKey,
			Status:      status,
		})
	}
	return s
}

// AddPlatform registers a platform, assigning an id when it has none.
func (s *Store) AddPlatform(p crawler.Platform) crawler.Platform {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextID++
		p.ID = s.nextID
	}
	s.platforms[p.Slug] = p
	return p
}

// AddAccount registers an affiliate account.
func (s *Store) AddAccount(a crawler.Account) crawler.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		s.nextID++
		a.ID = s.nextID
	}
	s.accounts[a.PlatformID] = append(s.accounts[a.PlatformID], a)
	return a
}

// GetPlatformBySlug implements crawler.DirectoryStore.
func (s *Store) GetPlatformBySlug(_ context.Context, slug string) (crawler.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.platforms[slug]
	if !ok {
		return crawler.Platform{}, fmt.Errorf("platform %q: %w", slug, crawler.ErrNotFound)
	}
	return p, nil
}

// GetActiveAccount implements crawler.DirectoryStore.
func (s *Store) GetActiveAccount(_ context.Context, platformID int64) (crawler.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts[platformID] {
		if a.Status == crawler.AccountActive {
			return a, nil
		}
	}
	return crawler.Account{}, fmt.Errorf("active account for platform %d: %w", platformID, crawler.ErrNotFound)
}

// CreateJob implements crawler.JobStore.
func (s *Store) CreateJob(_ context.Context, job crawler.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s: %w", job.ID, crawler.ErrDuplicate)
	}
	s.jobs[job.ID] = cloneJob(job)
	s.jobOrder = append(s.jobOrder, job.ID)
	return nil
}

// UpdateJobProgress implements crawler.JobStore.
func (s *Store) UpdateJobProgress(_ context.Context, jobID string, counters crawler.JobCounters, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != crawler.JobStatusRunning {
		return fmt.Errorf("job %s: %w", jobID, crawler.ErrJobNotRunning)
	}
	job.Counters = counters
	job.ProgressPercent = percent
	s.jobs[jobID] = job
	return nil
}

// CompleteJob implements crawler.JobStore.
func (s *Store) CompleteJob(
	_ context.Context,
	jobID string,
	status crawler.JobStatus,
	counters crawler.JobCounters,
	errorLog []string,
	completedAt time.Time,
) error {
	if !status.Terminal() {
		return fmt.Errorf("complete job %s with non-terminal status %q", jobID, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != crawler.JobStatusRunning {
		return fmt.Errorf("job %s: %w", jobID, crawler.ErrJobNotRunning)
	}
	job.Status = status
	job.Counters = counters
	job.ErrorLog = append([]string(nil), errorLog...)
	job.ProgressPercent = 100
	job.CompletedAt = &completedAt
	s.jobs[jobID] = job
	return nil
}

// GetJob implements crawler.JobStore.
func (s *Store) GetJob(_ context.Context, jobID string) (crawler.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return crawler.Job{}, fmt.Errorf("job %s: %w", jobID, crawler.ErrNotFound)
	}
	return cloneJob(job), nil
}

// ListJobs implements crawler.JobStore. Newest jobs come first.
func (s *Store) ListJobs(_ context.Context, filter crawler.JobFilter) ([]crawler.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.Job, 0, len(s.jobOrder))
	for i := len(s.jobOrder) - 1; i >= 0; i-- {
		job := s.jobs[s.jobOrder[i]]
		if filter.PlatformID != 0 && job.PlatformID != filter.PlatformID {
			continue
		}
		out = append(out, cloneJob(job))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// FindPerformer implements crawler.PerformerStore.
func (s *Store) FindPerformer(_ context.Context, platformID int64, externalID string) (crawler.Performer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.performers[performerKey{platformID, externalID}]
	if !ok {
		return crawler.Performer{}, fmt.Errorf("performer %d/%s: %w", platformID, externalID, crawler.ErrNotFound)
	}
	return clonePerformer(p), nil
}

// InsertPerformer implements crawler.PerformerStore.
func (s *Store) InsertPerformer(_ context.Context, performer crawler.Performer) error {
	key := performerKey{performer.PlatformID, performer.ExternalID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.performers[key]; exists {
		return fmt.Errorf("performer %d/%s: %w", key.platformID, key.externalID, crawler.ErrDuplicate)
	}
	s.performers[key] = clonePerformer(performer)
	return nil
}

// UpdatePerformer implements crawler.PerformerStore.
func (s *Store) UpdatePerformer(_ context.Context, performer crawler.Performer) error {
	key := performerKey{performer.PlatformID, performer.ExternalID}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.performers[key]
	if !ok || existing.ID != performer.ID {
		return fmt.Errorf("performer %d/%s: %w", key.platformID, key.externalID, crawler.ErrNotFound)
	}
	s.performers[key] = clonePerformer(performer)
	return nil
}

// ListPromoted implements crawler.PerformerStore.
func (s *Store) ListPromoted(_ context.Context, platformID int64) ([]crawler.Performer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []crawler.Performer
	for key, p := range s.performers {
		if key.platformID == platformID && p.Promoted() {
			out = append(out, clonePerformer(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// UpsertAffiliateLink implements crawler.LinkStore.
func (s *Store) UpsertAffiliateLink(_ context.Context, link crawler.AffiliateLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.links[link.PerformerID]; ok {
		link.CreatedAt = existing.CreatedAt
	}
	s.links[link.PerformerID] = link
	return nil
}

// Close implements crawler.Store. It only counts calls.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Closes reports how many times Close was called.
func (s *Store) Closes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closes
}

// Performers returns every stored performer for a platform, ordered by external id.
func (s *Store) Performers(platformID int64) []crawler.Performer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []crawler.Performer
	for key, p := range s.performers {
		if key.platformID == platformID {
			out = append(out, clonePerformer(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out
}

// Links returns every stored affiliate link keyed by performer id.
func (s *Store) Links() map[string]crawler.AffiliateLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]crawler.AffiliateLink, len(s.links))
	for k, v := range s.links {
		out[k] = v
	}
	return out
}

func cloneJob(job crawler.Job) crawler.Job {
	job.ErrorLog = append([]string(nil), job.ErrorLog...)
	if job.CompletedAt != nil {
		job.CompletedAt = clonePtr(job.CompletedAt)
	}
	return job
}

func clonePerformer(p crawler.Performer) crawler.Performer {
	p.DisplayName = clonePtr(p.DisplayName)
	p.ProfileURL = clonePtr(p.ProfileURL)
	p.AvatarURL = clonePtr(p.AvatarURL)
	p.CoverURL = clonePtr(p.CoverURL)
	p.Bio = clonePtr(p.Bio)
	p.Gender = clonePtr(p.Gender)
	p.BodyType = clonePtr(p.BodyType)
	p.Ethnicity = clonePtr(p.Ethnicity)
	p.Age = clonePtr(p.Age)
	p.Location = clonePtr(p.Location)
	p.Country = clonePtr(p.Country)
	p.IsVerified = clonePtr(p.IsVerified)
	p.IsOnline = clonePtr(p.IsOnline)
	p.LastOnlineAt = clonePtr(p.LastOnlineAt)
	p.LastCrawledAt = clonePtr(p.LastCrawledAt)
	p.FollowersCount = clonePtr(p.FollowersCount)
	p.SubscribersCount = clonePtr(p.SubscribersCount)
	p.MediaCount = clonePtr(p.MediaCount)
	p.ViewersCount = clonePtr(p.ViewersCount)
	p.SubscriptionPrice = clonePtr(p.SubscriptionPrice)
	p.Currency = clonePtr(p.Currency)
	p.IsPromoted = clonePtr(p.IsPromoted)
	if p.Tags != nil {
		p.Tags = append([]string{}, p.Tags...)
	}
	if p.Languages != nil {
		p.Languages = append([]string{}, p.Languages...)
	}
	if p.SocialLinks != nil {
		links := make(map[string]string, len(p.SocialLinks))
		for k, v := range p.SocialLinks {
			links[k] = v
		}
		p.SocialLinks = links
	}
	if p.RawData != nil {
		p.RawData = append([]byte(nil), p.RawData...)
	}
	return p
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
