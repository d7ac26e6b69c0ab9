package transcode

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// VideoInfo is the subset of ffprobe output the pipeline cares about.
type VideoInfo struct {
	Duration  float64
	Width     int
	Height    int
	SizeBytes int64
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe reads basic video information using ffprobe from PATH.
func Probe(ctx context.Context, path string) (*VideoInfo, error) {
	return probe(ctx, "ffprobe", path)
}

// Probe reads basic video information using the ffprobe binary sitting
// next to the configured ffmpeg.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	return probe(ctx, f.probeBin, path)
}

func probe(ctx context.Context, bin, path string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probed probeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &VideoInfo{}
	info.Duration, _ = strconv.ParseFloat(probed.Format.Duration, 64)
	info.SizeBytes, _ = strconv.ParseInt(probed.Format.Size, 10, 64)
	for _, s := range probed.Streams {
		if s.CodecType == "video" {
			info.Width = s.Width
			info.Height = s.Height
			break
		}
	}
	return info, nil
}
