package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
)

// WriteSequenceFile serializes a landmark sequence to an arbitrary local
// path with the same temp-then-rename guarantee the store gives artifacts.
// Used by the CLI extractors, which write wherever the user asks.
func WriteSequenceFile(path string, seq entity.LandmarkSequence) error {
	if seq == nil {
		seq = entity.LandmarkSequence{}
	}
	data, err := json.Marshal(seq)
	if err != nil {
		return fmt.Errorf("encode landmark sequence: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write landmark sequence: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish output: %w", err)
	}
	return nil
}
