package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
	"github.com/benniebendiksen/pose-extraction-service/internal/domain/port"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/metrics"
)

// ExtractionResult is the outcome of one completed run. Sequence is never
// nil: a source with no detectable poses still yields an empty sequence.
type ExtractionResult struct {
	Sequence   entity.LandmarkSequence
	FramesRead int
	StopReason entity.StopReason // StopReasonNone means the source was exhausted
}

// ExtractionLoop drives frames from a source through an estimator session,
// accumulating one FramePose per frame with a detected person.
type ExtractionLoop struct {
	opener    port.SourceOpener
	estimator port.EstimatorFactory
	logger    *zap.Logger
}

func NewExtractionLoop(opener port.SourceOpener, estimator port.EstimatorFactory, logger *zap.Logger) *ExtractionLoop {
	return &ExtractionLoop{opener: opener, estimator: estimator, logger: logger}
}

// Run executes the loop until the source is exhausted, the policy fires, or
// the stream breaks. policy may be nil for bounded sources (files), in which
// case only exhaustion or failure ends the run.
//
// Error cases: a source or estimator that never starts returns
// KindSourceUnavailable; a broken stream returns KindReadFailure for file
// sources. Device sources soft-stop instead, keeping the partial capture with
// StopReasonSourceLost.
func (l *ExtractionLoop) Run(ctx context.Context, desc entity.SourceDescriptor, policy *entity.StoppingPolicy) (*ExtractionResult, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExtractionLoop.Run")
	defer span.End()
	span.SetAttributes(attribute.String("source.kind", string(desc.Kind)))

	log := l.logger.With(zap.String("source_kind", string(desc.Kind)))

	src, err := l.opener.Open(ctx, desc)
	if err != nil {
		return nil, entity.NewPipelineError(entity.KindSourceUnavailable, "open frame source", err)
	}
	defer src.Close()

	sess, err := l.estimator.NewSession(ctx, src.Geometry())
	if err != nil {
		return nil, entity.NewPipelineError(entity.KindSourceUnavailable, "start pose estimator", err)
	}
	defer sess.Close()

	metrics.ActiveExtractions.Inc()
	defer metrics.ActiveExtractions.Dec()

	seq := entity.LandmarkSequence{}
	framesRead := 0
	reason := entity.StopReasonNone
	start := time.Now()

loop:
	for {
		frame, err := src.Read(ctx)
		if err != nil {
			switch {
			case err == port.ErrEndOfStream:
				break loop
			case ctx.Err() != nil && policy != nil:
				reason = entity.StopReasonCancelled
				break loop
			case src.Kind() == entity.SourceKindDevice:
				log.Warn("capture device lost, keeping partial run", zap.Error(err), zap.Int("frames_read", framesRead))
				reason = entity.StopReasonSourceLost
				break loop
			default:
				return nil, entity.NewPipelineError(entity.KindReadFailure, "read frame", err)
			}
		}
		framesRead++
		metrics.FramesReadTotal.Inc()

		pose, err := sess.EstimatePose(ctx, frame)
		if err != nil {
			switch {
			case ctx.Err() != nil && policy != nil:
				reason = entity.StopReasonCancelled
				break loop
			case src.Kind() == entity.SourceKindDevice:
				log.Warn("estimator lost mid-capture, keeping partial run", zap.Error(err), zap.Int("frames_read", framesRead))
				reason = entity.StopReasonSourceLost
				break loop
			default:
				return nil, entity.NewPipelineError(entity.KindReadFailure, "estimate pose", err)
			}
		}
		if pose != nil {
			seq = append(seq, pose)
			metrics.FramesRetainedTotal.Inc()
		}

		if policy != nil {
			if r := policy.Evaluate(time.Since(start), len(seq), ctx.Err() != nil); r != entity.StopReasonNone {
				reason = r
				break loop
			}
		}
	}

	reasonLabel := string(reason)
	if reason == entity.StopReasonNone {
		reasonLabel = "exhausted"
	}
	metrics.RunsStoppedTotal.WithLabelValues(reasonLabel).Inc()

	log.Info("extraction run finished",
		zap.Int("frames_read", framesRead),
		zap.Int("frames_retained", len(seq)),
		zap.String("stop_reason", reasonLabel),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &ExtractionResult{Sequence: seq, FramesRead: framesRead, StopReason: reason}, nil
}
