package pipeline

import (
	"context"
	"time"

	"clipforge/internal/jobstore"
	"clipforge/internal/models"
	"clipforge/internal/storage"
)

// Snapshot is the client-visible view of a job's progress.
type Snapshot struct {
	Status      string   `json:"status"`
	Progress    int      `json:"progress"`
	Targets     []string `json:"platforms,omitempty"`
	Completed   []string `json:"completed"`
	Failed      []string `json:"failed"`
	ElapsedSecs float64  `json:"elapsed_time,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// StatusService answers progress queries from the job store, falling
// back to the durable record once the ephemeral entry has expired.
// Expiry is expected, never an error.
type StatusService struct {
	jobs     *jobstore.Store
	contents *storage.ContentRepository
}

// NewStatusService creates a new StatusService.
func NewStatusService(jobs *jobstore.Store, contents *storage.ContentRepository) *StatusService {
	return &StatusService{jobs: jobs, contents: contents}
}

// Query returns the current snapshot for a record id.
func (s *StatusService) Query(ctx context.Context, id string) (*Snapshot, error) {
	if job, ok := s.jobs.Get(id); ok {
		return &Snapshot{
			Status:      job.Status,
			Progress:    job.Progress,
			Targets:     job.Targets,
			Completed:   job.Completed,
			Failed:      job.Failed,
			ElapsedSecs: time.Since(job.StartedAt).Seconds(),
			Error:       job.Error,
		}, nil
	}

	content, err := s.contents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return &Snapshot{Status: models.JobStatusUnknown}, nil
	}

	switch content.Status {
	case models.ContentStatusReady:
		return &Snapshot{
			Status:    models.JobStatusCompleted,
			Progress:  100,
			Completed: content.Platforms,
		}, nil
	case models.ContentStatusFailed:
		return &Snapshot{Status: models.JobStatusFailed, Progress: 0}, nil
	default:
		return &Snapshot{Status: models.JobStatusUnknown}, nil
	}
}
