package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yeti47/motioncam/resolution"
)

// Config holds the application configuration
type Config struct {
	// Camera
	CameraBackend     string  `json:"camera_backend"`     // "raspi" or "gocv"
	CameraDevice      string  `json:"camera_device"`      // gocv device index or path, e.g. "0"
	CaptureResolution string  `json:"capture_resolution"` // e.g. "1296x972" or "720p"
	CaptureFrameRate  float64 `json:"capture_frame_rate"`
	CaptureCodec      string  `json:"capture_codec"` // FourCC used by the gocv backend
	StillQuality      int     `json:"still_quality"` // JPEG quality, 1-100
	Rotation          int     `json:"rotation"`      // degrees, raspi backend only
	StillCommand      string  `json:"still_command"` // raspistill or rpicam-still
	VideoCommand      string  `json:"video_command"` // raspivid or rpicam-vid

	// Motion sensor
	MotionSensor       string  `json:"motion_sensor"` // "gpio", "gocv" or "none"
	MotionPin          string  `json:"motion_pin"`    // e.g. "GPIO4"
	MotionSampleRate   float64 `json:"motion_sample_rate"`
	MotionQueueLen     int     `json:"motion_queue_len"`
	MotionThreshold    float64 `json:"motion_threshold"`
	MotionMinArea      int     `json:"motion_min_area"`
	MotionWarmUpFrames int     `json:"motion_warm_up_frames"`

	// Scheduling
	PictureIntervalSeconds int `json:"picture_interval_seconds"`
	MinVideoLengthSeconds  int `json:"min_video_length_seconds"`
	MaxVideoLengthSeconds  int `json:"max_video_length_seconds"`
	TickIntervalMillis     int `json:"tick_interval_ms"`

	// Storage
	PictureSaveDir string `json:"picture_save_dir"`
	VideoSaveDir   string `json:"video_save_dir"`
	JournalPath    string `json:"journal_path"` // empty disables the capture journal
	ProbeClips     bool   `json:"probe_clips"`

	// Logging
	LogPath  string `json:"log_path"`
	LogLevel string `json:"log_level"`

	// Status endpoint, empty disables it
	StatusAddr string `json:"status_addr"`

	// Motion notifications by email, an empty recipient disables them
	NotifyRecipient          string `json:"notify_recipient"`
	NotifyMinIntervalSeconds int    `json:"notify_min_interval_seconds"`
	SMTPHost                 string `json:"smtp_host"`
	SMTPPort                 int    `json:"smtp_port"`
	SMTPUsername             string `json:"smtp_username"`
	SMTPPassword             string `json:"smtp_password"`
	SMTPFrom                 string `json:"smtp_from"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		CameraBackend:            "raspi",
		CameraDevice:             "0",
		CaptureResolution:        "1296x972",
		CaptureFrameRate:         30,
		CaptureCodec:             "H264",
		StillQuality:             85,
		StillCommand:             "raspistill",
		VideoCommand:             "raspivid",
		MotionSensor:             "gpio",
		MotionPin:                "GPIO4",
		MotionSampleRate:         10,
		MotionQueueLen:           1,
		MotionThreshold:          0.5,
		MotionMinArea:            1000,
		MotionWarmUpFrames:       30,
		PictureIntervalSeconds:   300,
		MinVideoLengthSeconds:    10,
		MaxVideoLengthSeconds:    300,
		TickIntervalMillis:       1000,
		PictureSaveDir:           "/var/lib/motioncam/pictures",
		VideoSaveDir:             "/var/lib/motioncam/videos",
		JournalPath:              "/var/lib/motioncam/journal.db",
		ProbeClips:               true,
		LogPath:                  "logs",
		LogLevel:                 "info",
		NotifyMinIntervalSeconds: 600,
		SMTPPort:                 587,
	}
}

// LoadConfig loads configuration from a JSON file. Missing keys keep their default value.
// If the file doesn't exist a default one is written to filename.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			if err := config.SaveConfig(filename); err != nil {
				return nil, fmt.Errorf("failed to create default config file: %w", err)
			}
			fmt.Printf("Default config file created at %s\n", filename)
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid. Any error here is fatal at startup.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.PictureSaveDir) == "" {
		errs = append(errs, errors.New("picture_save_dir is required"))
	}
	if strings.TrimSpace(c.VideoSaveDir) == "" {
		errs = append(errs, errors.New("video_save_dir is required"))
	}

	switch c.CameraBackend {
	case "raspi", "gocv":
	default:
		errs = append(errs, fmt.Errorf("unknown camera_backend %q", c.CameraBackend))
	}

	if _, err := resolution.Parse(c.CaptureResolution); err != nil {
		errs = append(errs, fmt.Errorf("invalid capture_resolution: %w", err))
	}
	if c.CaptureFrameRate <= 0 {
		errs = append(errs, fmt.Errorf("capture_frame_rate must be positive, got %.2f", c.CaptureFrameRate))
	}

	switch c.MotionSensor {
	case "gpio", "gocv", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown motion_sensor %q", c.MotionSensor))
	}

	if c.MotionSensor == "gocv" && c.CameraBackend != "gocv" {
		errs = append(errs, errors.New("motion_sensor gocv reads frames from the camera and requires camera_backend gocv"))
	}

	if c.PictureIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("picture_interval_seconds must be positive, got %d", c.PictureIntervalSeconds))
	}
	if c.MinVideoLengthSeconds < 0 {
		errs = append(errs, fmt.Errorf("min_video_length_seconds must not be negative, got %d", c.MinVideoLengthSeconds))
	}
	if c.MaxVideoLengthSeconds <= 0 {
		errs = append(errs, fmt.Errorf("max_video_length_seconds must be positive, got %d", c.MaxVideoLengthSeconds))
	}
	if c.MinVideoLengthSeconds > c.MaxVideoLengthSeconds {
		errs = append(errs, fmt.Errorf("min_video_length_seconds (%d) exceeds max_video_length_seconds (%d)",
			c.MinVideoLengthSeconds, c.MaxVideoLengthSeconds))
	}
	if c.TickIntervalMillis <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval_ms must be positive, got %d", c.TickIntervalMillis))
	}
	if c.MotionQueueLen <= 0 {
		errs = append(errs, fmt.Errorf("motion_queue_len must be positive, got %d", c.MotionQueueLen))
	}
	if c.MotionSampleRate <= 0 {
		errs = append(errs, fmt.Errorf("motion_sample_rate must be positive, got %.2f", c.MotionSampleRate))
	}
	if c.MotionThreshold < 0 || c.MotionThreshold > 1 {
		errs = append(errs, fmt.Errorf("motion_threshold must be within [0, 1], got %.2f", c.MotionThreshold))
	}
	if c.NotifyRecipient != "" {
		if strings.TrimSpace(c.SMTPHost) == "" {
			errs = append(errs, errors.New("smtp_host is required when notify_recipient is set"))
		}
		if c.SMTPPort <= 0 {
			errs = append(errs, fmt.Errorf("smtp_port must be positive, got %d", c.SMTPPort))
		}
		if strings.TrimSpace(c.SMTPFrom) == "" {
			errs = append(errs, errors.New("smtp_from is required when notify_recipient is set"))
		}
	}
	if c.StillQuality < 1 || c.StillQuality > 100 {
		errs = append(errs, fmt.Errorf("still_quality must be within [1, 100], got %d", c.StillQuality))
	}

	return errors.Join(errs...)
}

// TickInterval returns the sampling period of the control loop
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMillis) * time.Millisecond
}

// ConfigOverrides holds potential override values for configuration
type ConfigOverrides struct {
	CameraBackend          *string
	CameraDevice           *string
	MotionSensor           *string
	MotionPin              *string
	PictureIntervalSeconds *int
	MinVideoLengthSeconds  *int
	MaxVideoLengthSeconds  *int
	PictureSaveDir         *string
	VideoSaveDir           *string
	JournalPath            *string
	LogPath                *string
	LogLevel               *string
	StatusAddr             *string
}

// Override allows overriding specific configuration values using ConfigOverrides struct
func (c *Config) Override(overrides ConfigOverrides) {
	overrideString(&c.CameraBackend, overrides.CameraBackend)
	overrideString(&c.CameraDevice, overrides.CameraDevice)
	overrideString(&c.MotionSensor, overrides.MotionSensor)
	overrideString(&c.MotionPin, overrides.MotionPin)
	overrideString(&c.PictureSaveDir, overrides.PictureSaveDir)
	overrideString(&c.VideoSaveDir, overrides.VideoSaveDir)
	overrideString(&c.JournalPath, overrides.JournalPath)
	overrideString(&c.LogPath, overrides.LogPath)
	overrideString(&c.LogLevel, overrides.LogLevel)
	overrideString(&c.StatusAddr, overrides.StatusAddr)

	overrideInt(&c.PictureIntervalSeconds, overrides.PictureIntervalSeconds)
	overrideInt(&c.MinVideoLengthSeconds, overrides.MinVideoLengthSeconds)
	overrideInt(&c.MaxVideoLengthSeconds, overrides.MaxVideoLengthSeconds)
}

func overrideString(target *string, value *string) {
	if value != nil && *value != "" {
		*target = *value
	}
}

func overrideInt(target *int, value *int) {
	if value != nil && *value > 0 {
		*target = *value
	}
}

// SaveConfig saves the configuration to a JSON file
func (c *Config) SaveConfig(filename string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
