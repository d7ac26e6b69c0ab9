package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"clipforge/internal/models"
	"clipforge/internal/platform"
	"clipforge/internal/storage"
	"clipforge/internal/transcode"
)

// minOutputBytes rejects zero-byte or truncated encoder outputs.
const minOutputBytes = 1024

// TargetWorker produces one platform variant from the source asset and
// persists it. Every failure mode comes back as an error; a nil return
// means exactly one verified variant row exists for the target.
type TargetWorker struct {
	transcoder transcode.Transcoder
	variants   *storage.VariantRepository
}

// NewTargetWorker creates a new TargetWorker.
func NewTargetWorker(transcoder transcode.Transcoder, variants *storage.VariantRepository) *TargetWorker {
	return &TargetWorker{transcoder: transcoder, variants: variants}
}

// Run transcodes the source for one target profile, verifies the
// output, and persists the variant row.
func (w *TargetWorker) Run(ctx context.Context, contentID, inputPath string, profile platform.Profile) error {
	res, err := w.transcoder.Transcode(ctx, inputPath, profile)
	if err != nil {
		return fmt.Errorf("transcode %s: %w", profile.ID, err)
	}

	if err := w.verify(res, profile); err != nil {
		w.discard(res)
		return fmt.Errorf("verify %s: %w", profile.ID, err)
	}

	variant := &models.VideoVariant{
		ContentID: contentID,
		Platform:  profile.ID,
		VideoURL:  "/processed/" + profile.ID + "/" + filepath.Base(res.OutputPath),
		Width:     res.Width,
		Height:    res.Height,
		Status:    models.VariantStatusCompleted,
	}
	if res.ThumbnailPath != "" {
		variant.ThumbnailURL = "/thumbnails/" + filepath.Base(res.ThumbnailPath)
	}

	// A validated asset without a row is half-done; drop the asset so
	// nothing durable survives a failed insert.
	if err := w.variants.Create(ctx, variant); err != nil {
		w.discard(res)
		return fmt.Errorf("persist variant %s: %w", profile.ID, err)
	}
	return nil
}

func (w *TargetWorker) verify(res *transcode.Result, profile platform.Profile) error {
	info, err := os.Stat(res.OutputPath)
	if err != nil {
		return fmt.Errorf("output missing: %w", err)
	}
	if info.Size() < minOutputBytes {
		return fmt.Errorf("output too small: %d bytes", info.Size())
	}
	if profile.MaxSizeMB > 0 && info.Size() > int64(profile.MaxSizeMB)<<20 {
		return fmt.Errorf("output exceeds size limit: %d bytes > %d MB", info.Size(), profile.MaxSizeMB)
	}
	return nil
}

func (w *TargetWorker) discard(res *transcode.Result) {
	os.Remove(res.OutputPath)
	if res.ThumbnailPath != "" {
		os.Remove(res.ThumbnailPath)
	}
}
