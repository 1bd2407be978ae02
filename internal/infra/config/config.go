package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPPort    int    `env:"HTTP_PORT"    envDefault:"5000"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8083"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`

	// ArtifactRoot holds the three artifact directories (videos, poses,
	// animation text). Returned paths are always relative to it.
	ArtifactRoot string `env:"ARTIFACT_ROOT" envDefault:"./docs"`
	SQLitePath   string `env:"SQLITE_PATH"   envDefault:"./data/jobs.db"`

	FFmpegBin  string `env:"FFMPEG_BIN"  envDefault:"ffmpeg"`
	FFprobeBin string `env:"FFPROBE_BIN" envDefault:"ffprobe"`
	YTDLPBin   string `env:"YTDLP_BIN"   envDefault:"yt-dlp"`

	EstimatorBin        string `env:"ESTIMATOR_BIN"              envDefault:"pose-estimator"`
	EstimatorComplexity int    `env:"ESTIMATOR_MODEL_COMPLEXITY" envDefault:"1"`
	LandmarkCount       int    `env:"POSE_LANDMARK_COUNT"        envDefault:"33"`

	// Capture geometry for device sources; file sources are probed instead.
	CaptureWidth      int    `env:"CAPTURE_WIDTH"       envDefault:"640"`
	CaptureHeight     int    `env:"CAPTURE_HEIGHT"      envDefault:"480"`
	DevicePathPattern string `env:"DEVICE_PATH_PATTERN" envDefault:"/dev/video%d"`

	MaxUploadMB int64 `env:"MAX_UPLOAD_MB" envDefault:"512"`

	// JobTimeout caps file-backed jobs; zero means no server-side limit.
	JobTimeout time.Duration `env:"JOB_TIMEOUT" envDefault:"0"`

	// OTLPEndpoint empty disables tracing.
	OTLPEndpoint string `env:"OTLP_ENDPOINT" envDefault:""`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
