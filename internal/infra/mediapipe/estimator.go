package mediapipe

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
	"github.com/benniebendiksen/pose-extraction-service/internal/domain/port"
)

const closeTimeout = 3 * time.Second

// Factory spawns one pose-estimator helper process per extraction run. The
// helper speaks a JSON-lines protocol over stdin/stdout: an init handshake,
// then one request and one response line per frame.
type Factory struct {
	bin             string
	modelComplexity int
	landmarkCount   int
	logger          *zap.Logger
}

func NewFactory(bin string, modelComplexity, landmarkCount int, logger *zap.Logger) *Factory {
	return &Factory{
		bin:             bin,
		modelComplexity: modelComplexity,
		landmarkCount:   landmarkCount,
		logger:          logger,
	}
}

func (f *Factory) NewSession(ctx context.Context, geom entity.FrameGeometry) (port.EstimatorSession, error) {
	cmd := exec.CommandContext(ctx, f.bin)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("estimator stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("estimator stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("estimator stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start pose estimator: %w", err)
	}

	s := &session{
		cmd:           cmd,
		stdin:         stdin,
		enc:           json.NewEncoder(stdin),
		out:           bufio.NewReader(stdout),
		landmarkCount: f.landmarkCount,
		logger:        f.logger,
	}
	go s.drainStderr(stderr)

	if err := s.handshake(geom, f.modelComplexity); err != nil {
		_ = s.kill()
		return nil, fmt.Errorf("pose estimator handshake: %w", err)
	}

	f.logger.Info("pose estimator session started",
		zap.String("bin", f.bin),
		zap.Int("width", geom.Width),
		zap.Int("height", geom.Height),
		zap.Int("model_complexity", f.modelComplexity),
	)
	return s, nil
}

type initRequest struct {
	Type            string `json:"type"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	PixelFormat     string `json:"pixel_format"`
	ModelComplexity int    `json:"model_complexity"`
}

type readyResponse struct {
	Type string `json:"type"`
}

type frameRequest struct {
	Type  string `json:"type"`
	Index uint64 `json:"index"`
	Data  string `json:"data"`
}

type frameResponse struct {
	Landmarks []entity.Landmark `json:"landmarks"`
}

type session struct {
	cmd           *exec.Cmd
	stdin         io.WriteCloser
	enc           *json.Encoder
	out           *bufio.Reader
	landmarkCount int
	logger        *zap.Logger
	closed        bool
}

func (s *session) handshake(geom entity.FrameGeometry, modelComplexity int) error {
	req := initRequest{
		Type:            "init",
		Width:           geom.Width,
		Height:          geom.Height,
		PixelFormat:     "rgb24",
		ModelComplexity: modelComplexity,
	}
	if err := s.enc.Encode(req); err != nil {
		return fmt.Errorf("write init: %w", err)
	}

	line, err := s.out.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read ready: %w", err)
	}
	var ready readyResponse
	if err := json.Unmarshal(line, &ready); err != nil {
		return fmt.Errorf("parse ready: %w", err)
	}
	if ready.Type != "ready" {
		return fmt.Errorf("unexpected handshake response %q", ready.Type)
	}
	return nil
}

// EstimatePose sends one frame and blocks for its response. A null landmarks
// field means the estimator saw no person in the frame.
func (s *session) EstimatePose(ctx context.Context, frame *entity.Frame) (entity.FramePose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := frameRequest{
		Type:  "frame",
		Index: frame.Index,
		Data:  base64.StdEncoding.EncodeToString(frame.Data),
	}
	if err := s.enc.Encode(req); err != nil {
		return nil, fmt.Errorf("write frame %d: %w", frame.Index, err)
	}

	line, err := s.out.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response for frame %d: %w", frame.Index, err)
	}
	var resp frameResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response for frame %d: %w", frame.Index, err)
	}

	if resp.Landmarks == nil {
		return nil, nil
	}
	if len(resp.Landmarks) != s.landmarkCount {
		return nil, fmt.Errorf("frame %d: estimator returned %d landmarks, want %d",
			frame.Index, len(resp.Landmarks), s.landmarkCount)
	}
	return entity.FramePose(resp.Landmarks), nil
}

// Close signals end of input and gives the helper a grace period to exit.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(closeTimeout):
		s.logger.Warn("pose estimator did not exit, killing")
		_ = s.cmd.Process.Kill()
		<-done
	}
	return nil
}

func (s *session) kill() error {
	s.closed = true
	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.cmd.Wait()
}

func (s *session) drainStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s.logger.Debug("pose-estimator", zap.String("line", sc.Text()))
	}
}
