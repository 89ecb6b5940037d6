package recording

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotRecording is returned by StopRecording when no clip is open
	ErrNotRecording = errors.New("camera is not recording")
	// ErrAlreadyRecording is returned by StartRecording when a clip is already open
	ErrAlreadyRecording = errors.New("camera is already recording")
)

// CameraDevice executes capture commands. Every method returns once the device has
// acknowledged the command; a clip keeps recording in the background until StopRecording.
type CameraDevice interface {
	// CaptureStill writes a single JPEG to path
	CaptureStill(ctx context.Context, path string) error
	// StartRecording opens a clip at path
	StartRecording(ctx context.Context, path string) error
	// StopRecording finalizes the open clip
	StopRecording(ctx context.Context) error
	// IsRecording reports whether a clip is open
	IsRecording() bool
}

// DeviceError represents a failed camera command
type DeviceError struct {
	Op            string
	Path          string
	IsRecoverable bool
	InnerError    error
}

func (e *DeviceError) Error() string {
	msg := "camera " + e.Op + " failed"
	if e.Path != "" {
		msg += " for " + e.Path
	}
	if e.InnerError != nil {
		return fmt.Sprintf("%s: %v", msg, e.InnerError)
	}
	return msg
}

func (e *DeviceError) Unwrap() error {
	return e.InnerError
}

// NewRecoverableDeviceError creates a DeviceError for a command worth retrying on the next tick
func NewRecoverableDeviceError(op, path string, inner error) *DeviceError {
	return &DeviceError{Op: op, Path: path, IsRecoverable: true, InnerError: inner}
}

// NewNonRecoverableDeviceError creates a DeviceError for a command that will keep failing
func NewNonRecoverableDeviceError(op, path string, inner error) *DeviceError {
	return &DeviceError{Op: op, Path: path, IsRecoverable: false, InnerError: inner}
}

// IsDeviceError checks if err is or wraps a DeviceError
func IsDeviceError(err error) bool {
	var e *DeviceError
	return errors.As(err, &e)
}

// IsRecoverableDeviceError returns true if err is a DeviceError marked recoverable
func IsRecoverableDeviceError(err error) bool {
	var e *DeviceError
	if errors.As(err, &e) {
		return e.IsRecoverable
	}
	return false
}

const (
	OpCaptureStill   = "capture_still"
	OpStartRecording = "start_recording"
	OpStopRecording  = "stop_recording"
)
