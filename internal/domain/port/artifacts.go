package port

import (
	"context"
	"io"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
)

// ArtifactPath addresses one stored artifact both ways: Abs for local I/O,
// Rel for clients (always relative to the shared artifact root, forward
// slashes).
type ArtifactPath struct {
	Abs string
	Rel string
}

// ArtifactStore owns the shared artifact layout: sibling directories for
// videos, pose-landmark JSON, and skeletal-animation text. Claims construct
// unique paths from the job token without touching the filesystem; callers
// hold the only reference to a claimed path, so concurrent jobs never
// collide. Every write publishes atomically: a reader either sees the
// complete artifact under its final name or nothing at all.
type ArtifactStore interface {
	// ClaimVideo reserves <base>_<token>.<ext> (or <token>.<ext> with no
	// base) under the videos directory. Caller-supplied base names are
	// sanitized, never trusted verbatim.
	ClaimVideo(base, token, ext string) ArtifactPath
	// ClaimPose reserves <base>_<token>_pose.json (or <token>_pose.json)
	// under the poses directory.
	ClaimPose(base, token string) ArtifactPath

	SaveVideo(ctx context.Context, p ArtifactPath, r io.Reader) error
	WritePose(p ArtifactPath, seq entity.LandmarkSequence) error
	// WritePoseNamed persists a finished landmark sequence under a
	// caller-chosen filename in the poses directory.
	WritePoseNamed(name string, seq entity.LandmarkSequence) (ArtifactPath, error)
	// WriteAnimation persists skeletal-animation text verbatim under the
	// animation directory.
	WriteAnimation(name string, content []byte) (ArtifactPath, error)
}
