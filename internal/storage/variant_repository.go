package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/models"
)

// VariantRepository is the data access layer for video variants.
type VariantRepository struct {
	db *DB
}

// NewVariantRepository creates a new VariantRepository.
func NewVariantRepository(db *DB) *VariantRepository {
	return &VariantRepository{db: db}
}

// Create inserts a new variant row. At most one row may exist per
// (content, platform) pair; a second insert fails on the unique index.
func (r *VariantRepository) Create(ctx context.Context, v *models.VideoVariant) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.Status == "" {
		v.Status = models.VariantStatusCompleted
	}
	v.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO video_variants (id, content_id, platform, video_url, thumbnail_url, width, height, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ContentID, v.Platform, v.VideoURL, v.ThumbnailURL, v.Width, v.Height, v.Status, v.CreatedAt)
	return err
}

// ListByContentID returns all variant rows for a content record.
func (r *VariantRepository) ListByContentID(ctx context.Context, contentID string) ([]models.VideoVariant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content_id, platform, video_url, thumbnail_url, width, height, status, created_at
		FROM video_variants WHERE content_id = ? ORDER BY created_at`, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []models.VideoVariant
	for rows.Next() {
		var v models.VideoVariant
		var thumbnailURL sql.NullString
		if err := rows.Scan(&v.ID, &v.ContentID, &v.Platform, &v.VideoURL, &thumbnailURL, &v.Width, &v.Height, &v.Status, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.ThumbnailURL = thumbnailURL.String
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// DeleteByContentID removes all variant rows for a content record.
func (r *VariantRepository) DeleteByContentID(ctx context.Context, contentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM video_variants WHERE content_id = ?`, contentID)
	return err
}
