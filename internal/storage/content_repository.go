package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/models"
)

// ContentRepository is the data access layer for owning records.
type ContentRepository struct {
	db *DB
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(db *DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Create inserts a new content record.
func (r *ContentRepository) Create(ctx context.Context, c *models.Content) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = models.ContentStatusProcessing
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	platforms, err := json.Marshal(c.Platforms)
	if err != nil {
		return fmt.Errorf("failed to encode platforms: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO contents (id, user_id, title, status, platforms, video_url, thumbnail_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Title, c.Status, string(platforms), c.VideoURL, c.ThumbnailURL, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetByID returns a content record, or nil if it does not exist.
func (r *ContentRepository) GetByID(ctx context.Context, id string) (*models.Content, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, status, platforms, video_url, thumbnail_url, created_at, updated_at
		FROM contents WHERE id = ?`, id)

	var c models.Content
	var platforms string
	var videoURL, thumbnailURL sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Status, &platforms, &videoURL, &thumbnailURL, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(platforms), &c.Platforms); err != nil {
		return nil, fmt.Errorf("failed to decode platforms: %w", err)
	}
	c.VideoURL = videoURL.String
	c.ThumbnailURL = thumbnailURL.String
	return &c, nil
}

// UpdateStatus sets the durable status of a content record.
func (r *ContentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contents SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id)
	return err
}

// Delete removes a content record; variant rows cascade.
func (r *ContentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM contents WHERE id = ?`, id)
	return err
}
