package transcode

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/platform"
)

// FFmpeg transcodes videos by shelling out to ffmpeg/ffprobe.
type FFmpeg struct {
	bin      string
	probeBin string
	outDir   string
}

// NewFFmpeg creates an FFmpeg transcoder writing outputs under outDir.
// The ffprobe binary is expected next to the configured ffmpeg.
func NewFFmpeg(bin, outDir string) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin, probeBin: probeBinFor(bin), outDir: outDir}
}

func probeBinFor(bin string) string {
	dir := filepath.Dir(bin)
	if dir == "." {
		return "ffprobe"
	}
	return filepath.Join(dir, "ffprobe")
}

// Available reports whether the ffmpeg binary can be executed.
func (f *FFmpeg) Available() bool {
	return exec.Command(f.bin, "-version").Run() == nil
}

// Transcode scales the source up to cover the target box, center-crops
// to the exact target dimensions, caps the duration, and derives a
// thumbnail from the first second of the output.
func (f *FFmpeg) Transcode(ctx context.Context, inputPath string, profile platform.Profile) (*Result, error) {
	outDir := filepath.Join(f.outDir, "processed", profile.ID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	token := strings.Split(uuid.New().String(), "-")[0]
	outputPath := filepath.Join(outDir, fmt.Sprintf("%s_%s.mp4", profile.ID, token))

	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		profile.Width, profile.Height, profile.Width, profile.Height)

	args := []string{
		"-i", inputPath,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
	}
	if profile.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%d", profile.MaxDuration))
	}
	args = append(args, "-loglevel", "error", "-y", outputPath)

	cmd := exec.CommandContext(ctx, f.bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outputPath)
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	result := &Result{
		OutputPath: outputPath,
		Width:      profile.Width,
		Height:     profile.Height,
	}

	// The encode pins the frame size, but trust ffprobe over the
	// profile when it can read the output back.
	if info, err := f.Probe(ctx, outputPath); err == nil && info.Width > 0 && info.Height > 0 {
		result.Width = info.Width
		result.Height = info.Height
	}

	// Thumbnail is best effort; a variant without one is still valid.
	thumbPath, err := f.thumbnail(ctx, outputPath, profile.ID, token)
	if err != nil {
		log.Printf("thumbnail generation failed for %s: %v", profile.ID, err)
	} else {
		result.ThumbnailPath = thumbPath
	}

	return result, nil
}

func (f *FFmpeg) thumbnail(ctx context.Context, videoPath, platformID, token string) (string, error) {
	thumbDir := filepath.Join(f.outDir, "thumbnails")
	if err := os.MkdirAll(thumbDir, 0755); err != nil {
		return "", err
	}
	thumbPath := filepath.Join(thumbDir, fmt.Sprintf("%s_%s_thumb.jpg", platformID, token))

	cmd := exec.CommandContext(ctx, f.bin,
		"-i", videoPath,
		"-ss", "1",
		"-vframes", "1",
		"-q:v", "2",
		"-loglevel", "error",
		"-y", thumbPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	if _, err := os.Stat(thumbPath); err != nil {
		return "", err
	}
	return thumbPath, nil
}
