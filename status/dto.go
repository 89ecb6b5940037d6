package status

import (
	"time"

	"github.com/yeti47/motioncam/capture"
	"github.com/yeti47/motioncam/journal"
)

type StatusResponse struct {
	Phase       string     `json:"phase"`
	Since       *time.Time `json:"since,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	LastStillAt time.Time  `json:"last_still_at"`
	LatestStill string     `json:"latest_still,omitempty"`
	ClipPath    string     `json:"clip_path,omitempty"`
	Recording   bool       `json:"camera_recording"`
	Motion      bool       `json:"motion"`
	LastTickAt  *time.Time `json:"last_tick_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
	StillCount  int        `json:"still_count"`
	ClipCount   int        `json:"clip_count"`
	FailedTicks int        `json:"failed_ticks"`

	LatestClip *CaptureResponse `json:"latest_clip,omitempty"`
}

type CaptureResponse struct {
	ID              string     `json:"id"`
	Kind            string     `json:"kind"`
	Path            string     `json:"path"`
	MimeType        string     `json:"mime_type"`
	Trigger         string     `json:"trigger"`
	StopTrigger     string     `json:"stop_trigger,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
	Width           int        `json:"width,omitempty"`
	Height          int        `json:"height,omitempty"`
	Codec           string     `json:"codec,omitempty"`
}

type CaptureListResponse struct {
	Captures   []CaptureResponse `json:"captures"`
	TotalCount int               `json:"total_count"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func newStatusResponse(s capture.Status) StatusResponse {
	return StatusResponse{
		Phase:       s.Phase,
		Since:       optionalTime(s.Since),
		Deadline:    optionalTime(s.Deadline),
		LastStillAt: s.LastStillAt,
		LatestStill: s.LatestStill,
		ClipPath:    s.ClipPath,
		Recording:   s.CameraRecording,
		Motion:      s.Motion,
		LastTickAt:  optionalTime(s.LastTickAt),
		LastError:   s.LastError,
		LastErrorAt: optionalTime(s.LastErrorAt),
		StillCount:  s.StillCount,
		ClipCount:   s.ClipCount,
		FailedTicks: s.FailedTicks,
	}
}

func newCaptureResponse(c *journal.Capture) CaptureResponse {
	return CaptureResponse{
		ID:              c.ID,
		Kind:            string(c.Kind),
		Path:            c.Path,
		MimeType:        c.MimeType,
		Trigger:         c.Trigger,
		StopTrigger:     c.StopTrigger,
		StartedAt:       c.StartedAt,
		EndedAt:         c.EndedAt,
		DurationSeconds: c.Duration.Seconds(),
		Width:           c.Width,
		Height:          c.Height,
		Codec:           c.Codec,
	}
}
