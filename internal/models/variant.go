package models

import "time"

// VideoVariant is one successfully produced platform rendition of a
// content's source video. Failed targets never produce a row.
type VideoVariant struct {
	ID           string    `json:"id"`
	ContentID    string    `json:"content_id"`
	Platform     string    `json:"platform"`
	VideoURL     string    `json:"video_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Variant status
const (
	VariantStatusCompleted = "completed"
)
