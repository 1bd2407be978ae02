package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobDefaults(t *testing.T) {
	job := NewJob(JobKindRemote, "")

	assert.Len(t, job.ID, 8)
	assert.Equal(t, JobKindRemote, job.Kind)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.CompletedAt)
}

func TestNewTokenIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok := NewToken()
		require.Len(t, tok, 8)
		require.False(t, seen[tok], "token collision: %s", tok)
		seen[tok] = true
	}
}

func TestJobLifecycleTransitions(t *testing.T) {
	job := NewJob(JobKindUpload, "dance")

	job.MarkRunning()
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.Nil(t, job.CompletedAt)

	job.MarkSucceeded("poses/dance_pose.json", 120, 95, StopReasonNone)
	assert.Equal(t, JobStatusSucceeded, job.Status)
	assert.Equal(t, "poses/dance_pose.json", job.OutputPath)
	assert.Equal(t, 120, job.FramesRead)
	assert.Equal(t, 95, job.FrameCount)
	require.NotNil(t, job.CompletedAt)
}

func TestJobMarkFailed(t *testing.T) {
	job := NewJob(JobKindRemote, "")

	job.MarkFailed("acquisition_failure: fetch remote video")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "acquisition_failure: fetch remote video", job.ErrorMessage)
	require.NotNil(t, job.CompletedAt)
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"dance.mp4", "dance.mp4"},
		{"my video", "my video"},
		{"a/b/c.json", "a_b_c.json"},
		{`a\b.json`, "a_b.json"},
		{"../../etc/passwd", "____etc_passwd"},
		{"  padded.bvh  ", "padded.bvh"},
		{"..", "_"},
	}
	for _, tc := range cases {
		got := SanitizeName(tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
		assert.NotContains(t, got, "/")
		assert.NotContains(t, got, `\`)
		assert.NotContains(t, got, "..")
	}
}
