package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

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
	device := flag.Int("device", 0, "capture device index")
	output := flag.String("output", "webcam_pose_output.json", "destination for the landmark sequence JSON")
	duration := flag.Float64("duration", 0, "stop after this many seconds (0 = unbounded)")
	maxFrames := flag.Int("max-frames", 0, "stop after retaining this many frames (0 = unbounded)")
	flag.Parse()

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl-C stops the capture; whatever was accumulated is still written.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("stop signal received")
		cancel()
	}()

	// q + Enter is the manual stop key.
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) == "q" {
				log.Info("manual stop requested")
				cancel()
				return
			}
		}
	}()

	opener := ffmpeg.NewOpener(cfg.FFmpegBin, cfg.FFprobeBin, cfg.CaptureWidth, cfg.CaptureHeight, cfg.DevicePathPattern, log)
	estimator := mediapipe.NewFactory(cfg.EstimatorBin, cfg.EstimatorComplexity, cfg.LandmarkCount, log)
	loop := usecase.NewExtractionLoop(opener, estimator, log)

	policy := entity.StoppingPolicy{
		MaxDuration: time.Duration(*duration * float64(time.Second)),
		MaxFrames:   *maxFrames,
	}

	log.Info("capture starting",
		zap.Int("device", *device),
		zap.Float64("duration_secs", *duration),
		zap.Int("max_frames", *maxFrames),
	)

	res, err := loop.Run(ctx, entity.DeviceSource(*device), &policy)
	if err != nil {
		return fmt.Errorf("capture from device %d: %w", *device, err)
	}

	if err := artifact.WriteSequenceFile(*output, res.Sequence); err != nil {
		return err
	}

	log.Info("capture written",
		zap.String("output", *output),
		zap.Int("frames_read", res.FramesRead),
		zap.Int("frames_retained", len(res.Sequence)),
		zap.String("stop_reason", string(res.StopReason)),
	)
	return nil
}
