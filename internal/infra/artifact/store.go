package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
	"github.com/benniebendiksen/pose-extraction-service/internal/domain/port"
)

const (
	videosDir = "videos"
	posesDir  = "poses"
	bvhDir    = "bvh"
)

// Store lays artifacts out under a single root:
//
//	<root>/videos/  downloaded and uploaded source videos
//	<root>/poses/   landmark sequence JSON
//	<root>/bvh/     animation files
//
// Every write lands in a temp file first and is renamed into place, so a
// name either does not exist or holds a complete artifact.
type Store struct {
	root   string
	logger *zap.Logger
}

func NewStore(root string, logger *zap.Logger) (*Store, error) {
	for _, dir := range []string{videosDir, posesDir, bvhDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create artifact dir %s: %w", dir, err)
		}
	}
	return &Store{root: root, logger: logger}, nil
}

func (s *Store) Root() string { return s.root }

func (s *Store) ClaimVideo(base, token, ext string) port.ArtifactPath {
	name := token + "." + ext
	if base != "" {
		name = entity.SanitizeName(base) + "_" + name
	}
	return s.pathFor(videosDir, name)
}

func (s *Store) ClaimPose(base, token string) port.ArtifactPath {
	name := token + "_pose.json"
	if base != "" {
		name = entity.SanitizeName(base) + "_" + name
	}
	return s.pathFor(posesDir, name)
}

func (s *Store) SaveVideo(ctx context.Context, p port.ArtifactPath, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.writeAtomic(p.Abs, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	}); err != nil {
		return fmt.Errorf("save video %s: %w", p.Rel, err)
	}
	s.logger.Info("video saved", zap.String("path", p.Rel))
	return nil
}

func (s *Store) WritePose(p port.ArtifactPath, seq entity.LandmarkSequence) error {
	if seq == nil {
		seq = entity.LandmarkSequence{}
	}
	data, err := json.Marshal(seq)
	if err != nil {
		return fmt.Errorf("encode landmark sequence: %w", err)
	}
	if err := s.writeAtomic(p.Abs, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return fmt.Errorf("write pose %s: %w", p.Rel, err)
	}
	s.logger.Info("pose artifact written",
		zap.String("path", p.Rel),
		zap.Int("frames", len(seq)),
	)
	return nil
}

func (s *Store) WritePoseNamed(name string, seq entity.LandmarkSequence) (port.ArtifactPath, error) {
	p := s.pathFor(posesDir, entity.SanitizeName(name))
	if err := s.WritePose(p, seq); err != nil {
		return port.ArtifactPath{}, err
	}
	return p, nil
}

func (s *Store) WriteAnimation(name string, content []byte) (port.ArtifactPath, error) {
	p := s.pathFor(bvhDir, entity.SanitizeName(name))
	if err := s.writeAtomic(p.Abs, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	}); err != nil {
		return port.ArtifactPath{}, fmt.Errorf("write animation %s: %w", p.Rel, err)
	}
	s.logger.Info("animation artifact written",
		zap.String("path", p.Rel),
		zap.Int("bytes", len(content)),
	)
	return p, nil
}

func (s *Store) pathFor(dir, name string) port.ArtifactPath {
	return port.ArtifactPath{
		Abs: filepath.Join(s.root, dir, name),
		Rel: path.Join(dir, name),
	}
}

func (s *Store) writeAtomic(absPath string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(absPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}
