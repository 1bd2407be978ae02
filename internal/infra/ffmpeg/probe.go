package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
)

// StreamInfo is what ffprobe reports about the first video stream.
type StreamInfo struct {
	Geometry entity.FrameGeometry
	Duration float64 // seconds, 0 when unknown
}

type probeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe inspects a video file. Failure here means the file cannot be acquired
// as a frame source at all.
func Probe(ctx context.Context, ffprobeBin, videoPath string) (*StreamInfo, error) {
	cmd := exec.CommandContext(ctx, ffprobeBin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", videoPath, err)
	}

	var out probeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return nil, fmt.Errorf("no video stream in %s", videoPath)
	}
	s := out.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("invalid stream geometry %dx%d in %s", s.Width, s.Height, videoPath)
	}

	info := &StreamInfo{
		Geometry: entity.FrameGeometry{
			Width:  s.Width,
			Height: s.Height,
			FPS:    parseFrameRate(s.RFrameRate),
		},
	}
	if d, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64); err == nil {
		info.Duration = d
	}
	return info, nil
}

// parseFrameRate handles ffprobe's fractional rates ("30000/1001", "25/1").
func parseFrameRate(r string) float64 {
	num, den, found := strings.Cut(r, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
