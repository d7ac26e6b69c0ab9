package pipeline

import (
	"context"

	"clipforge/internal/models"
	"clipforge/internal/storage"
)

// RecordSync flips the owning record's durable status at the two
// pipeline sync points. Both operations are idempotent.
type RecordSync struct {
	contents *storage.ContentRepository
}

// NewRecordSync creates a new RecordSync.
func NewRecordSync(contents *storage.ContentRepository) *RecordSync {
	return &RecordSync{contents: contents}
}

// MarkAccepted records that the pipeline has admitted the job.
func (s *RecordSync) MarkAccepted(ctx context.Context, recordID string) error {
	return s.contents.UpdateStatus(ctx, recordID, models.ContentStatusProcessing)
}

// MarkConcluded records the pipeline outcome: ready when at least one
// target succeeded, failed otherwise.
func (s *RecordSync) MarkConcluded(ctx context.Context, recordID string, succeeded bool) error {
	status := models.ContentStatusFailed
	if succeeded {
		status = models.ContentStatusReady
	}
	return s.contents.UpdateStatus(ctx, recordID, status)
}
