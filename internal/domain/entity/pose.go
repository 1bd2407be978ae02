package entity

// DefaultLandmarkCount is the skeleton size of the default estimator model
// (33 body joints). The effective count is configurable because it is a
// property of the estimator, not of this service.
const DefaultLandmarkCount = 33

// Landmark is one estimated body-joint observation. X and Y are normalized to
// [0,1] relative to frame width/height, Z is relative depth on the same scale
// as X, Visibility is the estimator's confidence in [0,1]. Field order matches
// the artifact format.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// FramePose is the ordered landmark set for one retained frame, always exactly
// the estimator's skeleton size. Frames with no detection produce no FramePose
// at all rather than an empty one.
type FramePose []Landmark

// LandmarkSequence is the full ordered output of one extraction run, in frame
// read order. Marshalling it yields the persisted artifact format directly:
// a top-level array with one landmark array per retained frame.
type LandmarkSequence []FramePose
