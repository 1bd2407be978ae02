package port

import "context"

// VideoAcquirer resolves a remote URL into a local video file at destPath.
// Implementations delegate to an external downloader; any failure means no
// extraction is attempted for the job.
type VideoAcquirer interface {
	Fetch(ctx context.Context, url string, destPath string) error
}
