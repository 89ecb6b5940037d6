package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected default config file to be written: %v", err)
	}
	if cfg.PictureIntervalSeconds != 300 {
		t.Errorf("Expected default picture interval 300, got %d", cfg.PictureIntervalSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid, got: %v", err)
	}
}

func TestLoadConfig_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"picture_save_dir": "/tmp/pics", "min_video_length_seconds": 20}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.PictureSaveDir != "/tmp/pics" {
		t.Errorf("Expected picture dir /tmp/pics, got %s", cfg.PictureSaveDir)
	}
	if cfg.MinVideoLengthSeconds != 20 {
		t.Errorf("Expected min video length 20, got %d", cfg.MinVideoLengthSeconds)
	}
	if cfg.MaxVideoLengthSeconds != 300 {
		t.Errorf("Expected default max video length 300, got %d", cfg.MaxVideoLengthSeconds)
	}
	if cfg.TickInterval() != time.Second {
		t.Errorf("Expected default tick interval 1s, got %v", cfg.TickInterval())
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed config file")
	}
}

func TestValidate_MissingOutputDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PictureSaveDir = ""
	cfg.VideoSaveDir = "  "

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error for missing output directories")
	}
	if !strings.Contains(err.Error(), "picture_save_dir") {
		t.Errorf("Expected error to mention picture_save_dir, got: %v", err)
	}
	if !strings.Contains(err.Error(), "video_save_dir") {
		t.Errorf("Expected error to mention video_save_dir, got: %v", err)
	}
}

func TestValidate_MinLongerThanMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinVideoLengthSeconds = 400
	cfg.MaxVideoLengthSeconds = 300

	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error when min video length exceeds max")
	}
}

func TestValidate_UnknownBackends(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CameraBackend = "webrtc"
	cfg.MotionSensor = "radar"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error for unknown backends")
	}
	if !strings.Contains(err.Error(), "webrtc") || !strings.Contains(err.Error(), "radar") {
		t.Errorf("Expected both unknown backends in error, got: %v", err)
	}
}

func TestValidate_VisionSensorNeedsGoCVCamera(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MotionSensor = "gocv"

	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for gocv sensor with raspi camera")
	}

	cfg.CameraBackend = "gocv"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected gocv sensor with gocv camera to be valid: %v", err)
	}
}

func TestValidate_InvalidResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CaptureResolution = "huge"

	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for unparsable capture resolution")
	}

	cfg.CaptureResolution = "720p"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Preset resolution should be accepted: %v", err)
	}
}

func TestValidate_NotificationsNeedSMTP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NotifyRecipient = "owner@example.com"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error for recipient without smtp settings")
	}
	if !strings.Contains(err.Error(), "smtp_host") || !strings.Contains(err.Error(), "smtp_from") {
		t.Errorf("Expected error to mention smtp_host and smtp_from, got: %v", err)
	}

	cfg.SMTPHost = "mail.example.com"
	cfg.SMTPFrom = "camera@example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected complete smtp settings to be valid: %v", err)
	}
}

func TestOverride(t *testing.T) {
	cfg := DefaultConfig()

	backend := "gocv"
	empty := ""
	interval := 60
	zero := 0

	cfg.Override(ConfigOverrides{
		CameraBackend:          &backend,
		MotionPin:              &empty,
		PictureIntervalSeconds: &interval,
		MaxVideoLengthSeconds:  &zero,
	})

	if cfg.CameraBackend != "gocv" {
		t.Errorf("Expected camera backend gocv, got %s", cfg.CameraBackend)
	}
	if cfg.MotionPin != "GPIO4" {
		t.Errorf("Empty override should keep motion pin GPIO4, got %s", cfg.MotionPin)
	}
	if cfg.PictureIntervalSeconds != 60 {
		t.Errorf("Expected picture interval 60, got %d", cfg.PictureIntervalSeconds)
	}
	if cfg.MaxVideoLengthSeconds != 300 {
		t.Errorf("Zero override should keep max video length 300, got %d", cfg.MaxVideoLengthSeconds)
	}
}

func TestStaticSettingsProvider(t *testing.T) {
	provider := NewStaticSettingsProvider(*DefaultConfig())

	settings := provider.GetSettings()
	settings.LogLevel = "debug"

	if provider.GetSettings().LogLevel != "info" {
		t.Error("Modifying a returned value must not change the provider's settings")
	}
}
