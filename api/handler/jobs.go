package handler

import (
	"context"
	"sync"
	"time"

	"github.com/use-agent/shelfscout/models"
)

// JobStore keeps retrieval jobs in memory for a limited time after they
// were created. Readers get copies, never the stored value.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.RetrieveJob
	ttl  time.Duration
	now  func() time.Time
}

// NewJobStore returns a store that forgets jobs ttl after creation.
func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*models.RetrieveJob),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores a copy of job.
func (s *JobStore) Put(job models.RetrieveJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = &job
}

// Get returns a copy of the job with id.
func (s *JobStore) Get(id string) (models.RetrieveJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.RetrieveJob{}, false
	}
	out := *job
	out.Attempts = append([]models.AttemptInfo(nil), job.Attempts...)
	return out, true
}

// Update applies fn to the stored job under the lock. It reports whether
// the job exists.
func (s *JobStore) Update(id string, fn func(*models.RetrieveJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if ok {
		fn(job)
	}
	return ok
}

// Sweep drops jobs created more than ttl ago and returns how many it
// removed.
func (s *JobStore) Sweep() int {
	cutoff := s.now().Add(-s.ttl).Unix()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, job := range s.jobs {
		if job.CreatedAt < cutoff {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx ends.
func (s *JobStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
