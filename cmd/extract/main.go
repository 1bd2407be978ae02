package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/artifact"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/config"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/ffmpeg"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/mediapipe"
	"github.com/benniebendiksen/pose-extraction-service/internal/usecase"
	"github.com/benniebendiksen/pose-extraction-service/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	input := flag.String("input", "", "video file to extract pose landmarks from")
	output := flag.String("output", "pose_output.json", "destination for the landmark sequence JSON")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		return errors.New("--input is required")
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	opener := ffmpeg.NewOpener(cfg.FFmpegBin, cfg.FFprobeBin, cfg.CaptureWidth, cfg.CaptureHeight, cfg.DevicePathPattern, log)
	estimator := mediapipe.NewFactory(cfg.EstimatorBin, cfg.EstimatorComplexity, cfg.LandmarkCount, log)
	loop := usecase.NewExtractionLoop(opener, estimator, log)

	res, err := loop.Run(context.Background(), entity.FileSource(*input), nil)
	if err != nil {
		return fmt.Errorf("extract %s: %w", *input, err)
	}

	if err := artifact.WriteSequenceFile(*output, res.Sequence); err != nil {
		return err
	}

	log.Info("pose landmarks written",
		zap.String("output", *output),
		zap.Int("frames_read", res.FramesRead),
		zap.Int("frames_retained", len(res.Sequence)),
	)
	return nil
}
