package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/benniebendiksen/pose-extraction-service/internal/infra/artifact"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/config"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/ffmpeg"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/httpapi"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/mediapipe"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/metrics"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/sqlite"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/tracing"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/ytdlp"
	"github.com/benniebendiksen/pose-extraction-service/internal/usecase"
	"github.com/benniebendiksen/pose-extraction-service/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting pose-extraction-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(ctx)
		}
	}

	// Job ledger
	db, err := sqlite.Open(cfg.SQLitePath)
	fatalOnErr(err, "open job ledger")
	defer db.Close()
	repo := sqlite.NewJobRepository(db)

	// Artifact store
	store, err := artifact.NewStore(cfg.ArtifactRoot, log)
	fatalOnErr(err, "create artifact store")

	// Pipeline adapters
	opener := ffmpeg.NewOpener(cfg.FFmpegBin, cfg.FFprobeBin, cfg.CaptureWidth, cfg.CaptureHeight, cfg.DevicePathPattern, log)
	estimator := mediapipe.NewFactory(cfg.EstimatorBin, cfg.EstimatorComplexity, cfg.LandmarkCount, log)
	acquirer := ytdlp.NewAcquirer(cfg.YTDLPBin, log)

	validator, err := usecase.NewPoseValidator(cfg.LandmarkCount)
	fatalOnErr(err, "compile landmark schema")

	// Use cases
	loop := usecase.NewExtractionLoop(opener, estimator, log)
	orch := usecase.NewOrchestrator(repo, store, acquirer, loop, validator, cfg.JobTimeout, log)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log)

	// HTTP API
	gin.SetMode(gin.ReleaseMode)
	handler := httpapi.NewHandler(orch, cfg.MaxUploadMB*1024*1024, log)
	router := httpapi.SetupRouter(handler, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}

	go func() {
		log.Info("http server starting", zap.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Shutdown(shutdownCtx)

	log.Info("pose-extraction-service stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
