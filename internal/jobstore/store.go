package jobstore

import (
	"sync"
	"time"

	"clipforge/internal/models"
)

// Job is the ephemeral progress entry for one processing run. It is
// mutated only through Store.Update; readers always get a copy.
type Job struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Targets   []string  `json:"targets"`
	Completed []string  `json:"completed"`
	Failed    []string  `json:"failed"`
	StartedAt time.Time `json:"started_at"`
	Error     string    `json:"error,omitempty"`
}

func (j *Job) clone() *Job {
	c := *j
	c.Targets = append([]string(nil), j.Targets...)
	c.Completed = append([]string(nil), j.Completed...)
	c.Failed = append([]string(nil), j.Failed...)
	return &c
}

// Store tracks in-flight jobs in memory. Entries are evicted a fixed
// retention window after the job reaches a terminal status.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	timers    map[string]*time.Timer
	retention time.Duration
}

// NewStore creates a Store with the given retention window.
func NewStore(retention time.Duration) *Store {
	return &Store{
		jobs:      make(map[string]*Job),
		timers:    make(map[string]*time.Timer),
		retention: retention,
	}
}

// Create registers a new queued job and returns a snapshot of it.
// Re-admitting an id replaces the entry and disarms any eviction timer
// still pending for the old one.
func (s *Store) Create(id string, targets []string) *Job {
	job := &Job{
		ID:        id,
		Status:    models.JobStatusQueued,
		Progress:  0,
		Targets:   append([]string(nil), targets...),
		StartedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.jobs[id] = job
	return job.clone()
}

// Update applies fn to the job under the store lock. Progress is never
// allowed to move backwards. Returns false if the entry is gone.
func (s *Store) Update(id string, fn func(*Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	prev := job.Progress
	fn(job)
	if job.Progress < prev {
		job.Progress = prev
	}
	return true
}

// Get returns a snapshot of the job, or false if it never existed or
// has been evicted.
func (s *Store) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return job.clone(), true
}

// Remove deletes the entry and cancels any pending eviction timer.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// ScheduleEviction arms the retention timer for a terminal job. Calling
// it again resets the timer.
func (s *Store) ScheduleEviction(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.timers[id] = time.AfterFunc(s.retention, func() {
		s.Remove(id)
	})
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) removeLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	delete(s.jobs, id)
}
