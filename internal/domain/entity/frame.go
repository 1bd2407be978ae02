package entity

import "time"

// SourceKind distinguishes finite file-backed sources from unbounded capture
// devices. The extraction loop treats mid-stream read failures differently per
// kind: fatal for files, soft-stop for devices.
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindDevice SourceKind = "device"
)

// SourceDescriptor names a frame source before it is opened.
type SourceDescriptor struct {
	Kind        SourceKind
	Path        string // video file path, set for file sources
	DeviceIndex int    // capture device index, set for device sources
}

// FileSource describes a video file to read frames from.
func FileSource(path string) SourceDescriptor {
	return SourceDescriptor{Kind: SourceKindFile, Path: path}
}

// DeviceSource describes a capture device to read frames from.
func DeviceSource(index int) SourceDescriptor {
	return SourceDescriptor{Kind: SourceKindDevice, DeviceIndex: index}
}

// FrameGeometry is the pixel geometry shared by every frame of one source.
type FrameGeometry struct {
	Width  int
	Height int
	FPS    float64
}

// Frame is one decoded video frame. Data holds packed RGB24 pixels
// (Width*Height*3 bytes) and must not be modified after the frame is handed
// to the estimator.
type Frame struct {
	Index     uint64
	Width     int
	Height    int
	Data      []byte
	Timestamp time.Time
}
