package recording

import (
	"time"

	"github.com/yeti47/motioncam/common"
	"github.com/yeti47/motioncam/config"
	"github.com/yeti47/motioncam/resolution"
)

const (
	BackendRaspi = "raspi"
	BackendGoCV  = "gocv"
)

var DefaultRecordingSettings = RecordingSettings{
	Backend:      BackendRaspi,
	Device:       "0",
	Resolution:   resolution.Resolution{Width: 1296, Height: 972},
	FrameRate:    30,
	Codec:        "H264",
	StillQuality: 85,
	StillCommand: "raspistill",
	VideoCommand: "raspivid",
	StartupGrace: 200 * time.Millisecond,
	StopTimeout:  5 * time.Second,
}

type RecordingSettings struct {
	Backend      string
	Device       string // gocv device index or path
	Resolution   resolution.Resolution
	FrameRate    float64
	Codec        string // FourCC, gocv backend only
	StillQuality int
	Rotation     int
	StillCommand string
	VideoCommand string
	StartupGrace time.Duration // how long a fresh video process must survive to count as started
	StopTimeout  time.Duration // how long a video process may take to finalize before it is killed
}

// ClipExtension returns the file extension of clips written by the configured backend
func (s RecordingSettings) ClipExtension() string {
	if s.Backend == BackendGoCV {
		return common.CodecToFileExtension(s.Codec)
	}
	// raspivid and rpicam-vid write a raw H.264 elementary stream
	return ".h264"
}

// RecordingSettingsProvider implements SettingsProvider for RecordingSettings
type RecordingSettingsProvider struct {
	configProvider config.SettingsProvider[config.Config]
}

// NewRecordingSettingsProvider creates a new RecordingSettingsProvider
func NewRecordingSettingsProvider(configProvider config.SettingsProvider[config.Config]) *RecordingSettingsProvider {
	return &RecordingSettingsProvider{
		configProvider: configProvider,
	}
}

// GetSettings returns the current recording settings mapped from the configuration.
// An unparsable resolution falls back to the default; Validate rejects it at startup.
func (p *RecordingSettingsProvider) GetSettings() RecordingSettings {
	cfg := p.configProvider.GetSettings()

	settings := DefaultRecordingSettings
	settings.Backend = cfg.CameraBackend
	settings.Device = cfg.CameraDevice
	if res, err := resolution.Parse(cfg.CaptureResolution); err == nil {
		settings.Resolution = res
	}
	if cfg.CaptureFrameRate > 0 {
		settings.FrameRate = cfg.CaptureFrameRate
	}
	if cfg.CaptureCodec != "" {
		settings.Codec = cfg.CaptureCodec
	}
	if cfg.StillQuality > 0 {
		settings.StillQuality = cfg.StillQuality
	}
	settings.Rotation = cfg.Rotation
	if cfg.StillCommand != "" {
		settings.StillCommand = cfg.StillCommand
	}
	if cfg.VideoCommand != "" {
		settings.VideoCommand = cfg.VideoCommand
	}
	return settings
}
