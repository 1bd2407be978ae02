package ytdlp

import (
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// Acquirer downloads remote videos with yt-dlp.
type Acquirer struct {
	bin    string
	logger *zap.Logger
}

func NewAcquirer(bin string, logger *zap.Logger) *Acquirer {
	return &Acquirer{bin: bin, logger: logger}
}

func (a *Acquirer) Fetch(ctx context.Context, url, destPath string) error {
	cmd := exec.CommandContext(ctx, a.bin,
		"-f", "mp4",
		"-o", destPath,
		url,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("yt-dlp error: %w, output: %s", err, string(output))
	}

	a.logger.Info("video downloaded",
		zap.String("url", url),
		zap.String("dest", destPath),
	)
	return nil
}
