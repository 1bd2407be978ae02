package port

import (
	"context"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
)

// EstimatorSession estimates poses for the frames of one extraction run. The
// estimator may track state across frames, so a session is opened per run and
// must be closed when the run ends. EstimatePose returns (nil, nil) when no
// subject is detected in the frame; a non-nil pose always has exactly the
// skeleton's landmark count.
type EstimatorSession interface {
	EstimatePose(ctx context.Context, frame *entity.Frame) (entity.FramePose, error)
	Close() error
}

// EstimatorFactory opens estimator sessions. The frame geometry is fixed for
// the whole session.
type EstimatorFactory interface {
	NewSession(ctx context.Context, geom entity.FrameGeometry) (EstimatorSession, error)
}
