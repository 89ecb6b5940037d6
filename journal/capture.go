package journal

import "time"

type CaptureKind string

const (
	KindStill CaptureKind = "still"
	KindClip  CaptureKind = "clip"
)

// Capture is one still or clip written by the camera. A clip is open while EndedAt is nil.
type Capture struct {
	ID          string
	Kind        CaptureKind
	Path        string
	MimeType    string
	Trigger     string // why the capture was taken or the clip started
	StopTrigger string // why the clip stopped, clips only
	StartedAt   time.Time
	EndedAt     *time.Time
	Duration    time.Duration
	Width       int
	Height      int
	Codec       string
}

// IsOpen reports whether the capture is a clip that has not been stopped yet
func (c *Capture) IsOpen() bool {
	return c.Kind == KindClip && c.EndedAt == nil
}

// CaptureQuery represents query parameters for filtering captures. Results are ordered
// newest first.
type CaptureQuery struct {
	Kind      CaptureKind // empty matches every kind
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// ClipDetails carries what is known about a clip once it has been finalized
type ClipDetails struct {
	EndedAt     time.Time
	StopTrigger string
	Duration    time.Duration
	Width       int
	Height      int
	Codec       string
}
