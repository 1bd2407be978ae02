package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// JobKind names how a job's input arrives.
type JobKind string

const (
	JobKindUpload   JobKind = "upload"
	JobKindRemote   JobKind = "remote"
	JobKindDevice   JobKind = "device"
	JobKindArtifact JobKind = "artifact"
)

// Job is one extraction or persistence run. ID is a random short token, never
// derived from the input, so identical inputs submitted concurrently still get
// disjoint paths.
type Job struct {
	ID           string
	Kind         JobKind
	BaseName     string // sanitized caller-supplied base name, may be empty
	InputPath    string // relative video path, empty for artifact jobs
	OutputPath   string // relative artifact path
	Status       JobStatus
	FramesRead   int
	FrameCount   int // retained frames (length of the persisted sequence)
	StopReason   StopReason
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// NewJob mints a job with a fresh collision-resistant token.
func NewJob(kind JobKind, baseName string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        NewToken(),
		Kind:      kind,
		BaseName:  baseName,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewToken returns the 8-hex-digit random token used for job identities and
// generated filenames.
func NewToken() string {
	return uuid.NewString()[:8]
}

// SanitizeName flattens a caller-supplied file name into something that
// cannot escape an artifact directory: path separators and parent-traversal
// sequences are replaced, surrounding whitespace dropped.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "..", "_")
	return strings.TrimSpace(name)
}

func (j *Job) MarkRunning() {
	j.Status = JobStatusRunning
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkSucceeded(outputPath string, framesRead, frameCount int, reason StopReason) {
	now := time.Now().UTC()
	j.Status = JobStatusSucceeded
	j.OutputPath = outputPath
	j.FramesRead = framesRead
	j.FrameCount = frameCount
	j.StopReason = reason
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	now := time.Now().UTC()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = now
	j.CompletedAt = &now
}
