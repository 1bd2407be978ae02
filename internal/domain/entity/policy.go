package entity

import "time"

// StopReason records which condition ended a capture run early.
type StopReason string

const (
	StopReasonNone       StopReason = ""
	StopReasonDuration   StopReason = "duration"
	StopReasonFrameLimit StopReason = "frame_limit"
	StopReasonCancelled  StopReason = "cancelled"
	StopReasonSourceLost StopReason = "source_lost"
)

// StoppingPolicy bounds a live-capture run. Zero values disable a condition;
// cancellation through the run's context is always available regardless.
// Conditions are evaluated once per processed frame in fixed priority:
// elapsed time first, then frame count, then cancellation.
type StoppingPolicy struct {
	MaxDuration time.Duration // stop once this much wall-clock time has elapsed
	MaxFrames   int           // stop once this many frames have been retained
}

// Evaluate returns the first satisfied stopping condition, or StopReasonNone.
// retained is the number of FramePoses accumulated so far.
func (p StoppingPolicy) Evaluate(elapsed time.Duration, retained int, cancelled bool) StopReason {
	if p.MaxDuration > 0 && elapsed >= p.MaxDuration {
		return StopReasonDuration
	}
	if p.MaxFrames > 0 && retained >= p.MaxFrames {
		return StopReasonFrameLimit
	}
	if cancelled {
		return StopReasonCancelled
	}
	return StopReasonNone
}
