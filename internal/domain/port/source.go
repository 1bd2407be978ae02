package port

import (
	"context"
	"errors"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
)

// ErrEndOfStream is returned by FrameSource.Read when a finite source is
// exhausted. It is normal termination, not a failure.
var ErrEndOfStream = errors.New("end of stream")

// FrameSource is an open, ordered stream of decoded frames. Read blocks until
// a full frame is available and returns ErrEndOfStream on normal exhaustion;
// any other error is a mid-stream read failure. Close is safe to call more
// than once.
type FrameSource interface {
	Read(ctx context.Context) (*entity.Frame, error)
	Geometry() entity.FrameGeometry
	Kind() entity.SourceKind
	Close() error
}

// SourceOpener acquires a frame source from its descriptor. An open failure
// (missing file, busy or absent device) is distinct from a later read failure
// and must be reported before any frame is produced.
type SourceOpener interface {
	Open(ctx context.Context, desc entity.SourceDescriptor) (FrameSource, error)
}
