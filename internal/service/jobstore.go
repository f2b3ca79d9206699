package service

import (
	"fmt"
	"sync"
	"time"

	"chatlens/internal/models"
)

// JobStore tracks jobs through their forward-only lifecycle. Job state
// is ephemeral: a process restart loses it, only the persisted messages
// of completed jobs survive.
type JobStore interface {
	Create(job *models.Job)
	Get(id string) (models.Job, error)
	Delete(id string)
	MarkProcessing(id string) error
	Complete(id string, result *models.AnalysisResult) error
	Fail(id string, errMsg string) error
}

// memoryJobStore is the in-memory JobStore. Exactly one worker writes a
// given job's state; polling reads are lock-guarded and never block on
// the worker.
type memoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// NewMemoryJobStore builds the default ephemeral job store.
func NewMemoryJobStore() JobStore {
	return &memoryJobStore{jobs: make(map[string]*models.Job)}
}

func (s *memoryJobStore) Create(job *models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get returns a copy of the job so callers can never mutate shared
// state.
func (s *memoryJobStore) Get(id string) (models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	return *job, nil
}

func (s *memoryJobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

func (s *memoryJobStore) MarkProcessing(id string) error {
	return s.transition(id, func(job *models.Job) error {
		if job.Status != models.StatusQueued {
			return fmt.Errorf("job %s: cannot move from %s to processing", id, job.Status)
		}
		job.Status = models.StatusProcessing
		return nil
	})
}

func (s *memoryJobStore) Complete(id string, result *models.AnalysisResult) error {
	return s.transition(id, func(job *models.Job) error {
		if job.Status.Terminal() {
			return fmt.Errorf("job %s: already %s", id, job.Status)
		}
		now := time.Now().UTC()
		job.Status = models.StatusComplete
		job.CompletedAt = &now
		job.Result = result
		return nil
	})
}

func (s *memoryJobStore) Fail(id string, errMsg string) error {
	return s.transition(id, func(job *models.Job) error {
		if job.Status.Terminal() {
			return fmt.Errorf("job %s: already %s", id, job.Status)
		}
		now := time.Now().UTC()
		job.Status = models.StatusFailed
		job.CompletedAt = &now
		job.Error = errMsg
		return nil
	})
}

func (s *memoryJobStore) transition(id string, apply func(*models.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	return apply(job)
}
