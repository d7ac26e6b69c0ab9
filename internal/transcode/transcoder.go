package transcode

import (
	"context"

	"clipforge/internal/platform"
)

// Result describes the artifacts produced for one target profile.
type Result struct {
	OutputPath    string
	ThumbnailPath string // empty if no thumbnail could be derived
	Width         int
	Height        int
}

// Transcoder produces a platform-specific rendition of a source video.
// Implementations report failure through the error return; they must
// not leave a partially written output behind a nil error.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath string, profile platform.Profile) (*Result, error)
}
