package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
	"github.com/benniebendiksen/pose-extraction-service/internal/domain/port"
)

const bytesPerPixel = 3 // rgb24

// Opener builds frame sources backed by an ffmpeg decode pipe.
type Opener struct {
	ffmpegBin     string
	ffprobeBin    string
	captureWidth  int
	captureHeight int
	devicePattern string
	logger        *zap.Logger
}

func NewOpener(ffmpegBin, ffprobeBin string, captureWidth, captureHeight int, devicePattern string, logger *zap.Logger) *Opener {
	return &Opener{
		ffmpegBin:     ffmpegBin,
		ffprobeBin:    ffprobeBin,
		captureWidth:  captureWidth,
		captureHeight: captureHeight,
		devicePattern: devicePattern,
		logger:        logger,
	}
}

func (o *Opener) Open(ctx context.Context, desc entity.SourceDescriptor) (port.FrameSource, error) {
	switch desc.Kind {
	case entity.SourceKindFile:
		return o.openFile(ctx, desc.Path)
	case entity.SourceKindDevice:
		return o.openDevice(ctx, desc.DeviceIndex)
	default:
		return nil, fmt.Errorf("unknown source kind %q", desc.Kind)
	}
}

func (o *Opener) openFile(ctx context.Context, videoPath string) (port.FrameSource, error) {
	info, err := Probe(ctx, o.ffprobeBin, videoPath)
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}

	s, err := o.startStream(ctx, entity.SourceKindFile, info.Geometry,
		"-v", "error",
		"-nostdin",
		"-i", videoPath,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-an", "-sn",
		"pipe:1",
	)
	if err != nil {
		return nil, err
	}

	o.logger.Info("video file source opened",
		zap.String("path", videoPath),
		zap.Int("width", info.Geometry.Width),
		zap.Int("height", info.Geometry.Height),
		zap.Float64("fps", info.Geometry.FPS),
		zap.Float64("duration", info.Duration),
	)
	return s, nil
}

func (o *Opener) openDevice(ctx context.Context, index int) (port.FrameSource, error) {
	devicePath := fmt.Sprintf(o.devicePattern, index)
	if _, err := os.Stat(devicePath); err != nil {
		return nil, fmt.Errorf("open capture device: %w", err)
	}

	geom := entity.FrameGeometry{Width: o.captureWidth, Height: o.captureHeight}
	s, err := o.startStream(ctx, entity.SourceKindDevice, geom,
		"-v", "error",
		"-nostdin",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", geom.Width, geom.Height),
		"-i", devicePath,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)
	if err != nil {
		return nil, err
	}

	// A device that produces no first frame was never acquired: busy,
	// disconnected, or rejected the requested geometry.
	first, err := s.readFrame()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("acquire capture device %s: %w", devicePath, err)
	}
	s.pending = first

	o.logger.Info("capture device source opened",
		zap.String("device", devicePath),
		zap.Int("width", geom.Width),
		zap.Int("height", geom.Height),
	)
	return s, nil
}

func (o *Opener) startStream(ctx context.Context, kind entity.SourceKind, geom entity.FrameGeometry, args ...string) (*stream, error) {
	cmd := exec.CommandContext(ctx, o.ffmpegBin, args...)
	tail := &tailBuffer{}
	cmd.Stderr = tail

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &stream{
		kind:      kind,
		geom:      geom,
		cmd:       cmd,
		stdout:    stdout,
		stderr:    tail,
		frameSize: geom.Width * geom.Height * bytesPerPixel,
	}, nil
}

// stream reads whole rgb24 frames off a running ffmpeg process.
type stream struct {
	kind      entity.SourceKind
	geom      entity.FrameGeometry
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	stderr    *tailBuffer
	frameSize int
	next      uint64
	pending   *entity.Frame
	waited    bool
	waitErr   error
}

func (s *stream) Read(ctx context.Context) (*entity.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pending != nil {
		f := s.pending
		s.pending = nil
		return f, nil
	}
	return s.readFrame()
}

func (s *stream) readFrame() (*entity.Frame, error) {
	buf := make([]byte, s.frameSize)
	_, err := io.ReadFull(s.stdout, buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		if werr := s.wait(); werr != nil {
			return nil, fmt.Errorf("ffmpeg exited: %w, stderr: %s", werr, s.stderr.String())
		}
		return nil, port.ErrEndOfStream
	case errors.Is(err, io.ErrUnexpectedEOF):
		_ = s.wait()
		return nil, fmt.Errorf("truncated frame from ffmpeg: %w, stderr: %s", err, s.stderr.String())
	default:
		return nil, fmt.Errorf("read frame: %w", err)
	}

	f := &entity.Frame{
		Index:     s.next,
		Width:     s.geom.Width,
		Height:    s.geom.Height,
		Data:      buf,
		Timestamp: time.Now(),
	}
	s.next++
	return f, nil
}

func (s *stream) Geometry() entity.FrameGeometry { return s.geom }

func (s *stream) Kind() entity.SourceKind { return s.kind }

func (s *stream) Close() error {
	if s.cmd.Process != nil && !s.waited {
		_ = s.cmd.Process.Kill()
	}
	_ = s.wait()
	return nil
}

func (s *stream) wait() error {
	if !s.waited {
		s.waited = true
		s.waitErr = s.cmd.Wait()
	}
	return s.waitErr
}

// tailBuffer keeps the last stretch of ffmpeg's stderr for error reporting.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

const stderrTailLimit = 2048

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > stderrTailLimit {
		t.buf = t.buf[len(t.buf)-stderrTailLimit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
