package motiondetection

import (
	"context"
	"errors"
)

// ErrSensorNotReady is returned while a sensor cannot yet give a meaningful reading, e.g.
// before its sample queue has filled or while a background model warms up.
var ErrSensorNotReady = errors.New("motion sensor not ready")

type MotionSensor interface {
	// MotionDetected reports whether motion is currently present. It must return promptly;
	// callers treat any error as no motion for the current tick.
	MotionDetected(ctx context.Context) (bool, error)
}

type nopMotionSensor struct{}

// NopMotionSensor never reports motion. Only periodic stills are taken with it.
var NopMotionSensor MotionSensor = &nopMotionSensor{}

func (s *nopMotionSensor) MotionDetected(ctx context.Context) (bool, error) {
	return false, nil
}
