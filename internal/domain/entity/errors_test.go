package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineErrorKindSurvivesWrapping(t *testing.T) {
	cause := errors.New("ffprobe: exit status 1")
	err := NewPipelineError(KindSourceUnavailable, "open frame source", cause)

	wrapped := fmt.Errorf("submit job: %w", err)

	assert.Equal(t, KindSourceUnavailable, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindSourceUnavailable))
	assert.False(t, IsKind(wrapped, KindReadFailure))
	assert.True(t, errors.Is(wrapped, err))
	assert.ErrorContains(t, wrapped, "ffprobe")
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.False(t, IsKind(errors.New("plain"), KindInvalidRequest))
}

func TestPipelineErrorMessage(t *testing.T) {
	err := NewPipelineError(KindInvalidRequest, "missing url", nil)
	assert.Equal(t, "invalid_request: missing url", err.Error())

	withCause := NewPipelineError(KindReadFailure, "read frame", errors.New("short read"))
	assert.Equal(t, "read_failure: read frame: short read", withCause.Error())
}
