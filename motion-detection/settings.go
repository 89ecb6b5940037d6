package motiondetection

import (
	"time"

	"github.com/yeti47/motioncam/config"
)

const (
	SensorGPIO = "gpio"
	SensorGoCV = "gocv"
	SensorNone = "none"
)

var DefaultMotionDetectionSettings = MotionDetectionSettings{
	SampleRate:         10,
	QueueLen:           1,
	Threshold:          0.5,
	MotionMinArea:      1000,
	WarmUpFrames:       30,
	MotionMinWidth:     20,
	MotionMinHeight:    20,
	MotionMinAspect:    0.3,
	MotionMaxAspect:    3.0,
	MotionMogHistory:   500,
	MotionMogVarThresh: 16.0,
}

type MotionDetectionSettings struct {
	Sensor string // gpio, gocv or none
	Pin    string // GPIO line name, gpio sensor only

	// debouncing, gpio sensor only
	SampleRate float64 // samples per second
	QueueLen   int     // samples averaged per reading
	Threshold  float64 // mean above which the reading is motion

	// contour filter, gocv sensor only
	MotionMinArea      int
	WarmUpFrames       int
	MotionMinWidth     int
	MotionMinHeight    int
	MotionMinAspect    float64
	MotionMaxAspect    float64
	MotionMogHistory   int
	MotionMogVarThresh float64
}

// SampleInterval returns the time between two GPIO samples
func (s MotionDetectionSettings) SampleInterval() time.Duration {
	rate := s.SampleRate
	if rate <= 0 {
		rate = DefaultMotionDetectionSettings.SampleRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// MotionDetectionSettingsProvider implements SettingsProvider for MotionDetectionSettings
type MotionDetectionSettingsProvider struct {
	configProvider config.SettingsProvider[config.Config]
}

// NewMotionDetectionSettingsProvider creates a new MotionDetectionSettingsProvider
func NewMotionDetectionSettingsProvider(configProvider config.SettingsProvider[config.Config]) *MotionDetectionSettingsProvider {
	return &MotionDetectionSettingsProvider{
		configProvider: configProvider,
	}
}

// GetSettings returns the current motion detection settings mapped from the configuration
func (p *MotionDetectionSettingsProvider) GetSettings() MotionDetectionSettings {
	cfg := p.configProvider.GetSettings()

	settings := DefaultMotionDetectionSettings
	settings.Sensor = cfg.MotionSensor
	settings.Pin = cfg.MotionPin
	settings.SampleRate = cfg.MotionSampleRate
	settings.QueueLen = cfg.MotionQueueLen
	settings.Threshold = cfg.MotionThreshold
	settings.MotionMinArea = cfg.MotionMinArea
	settings.WarmUpFrames = cfg.MotionWarmUpFrames
	return settings
}
