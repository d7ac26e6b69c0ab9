package models

import "time"

// Content is the owning record for an uploaded video.
type Content struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	Platforms    []string  `json:"platforms"`
	VideoURL     string    `json:"video_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Content statuses
const (
	ContentStatusProcessing = "processing"
	ContentStatusReady      = "ready"
	ContentStatusFailed     = "failed"
)
