package scheduling

import (
	"fmt"
	"time"

	"github.com/yeti47/motioncam/config"
)

type Settings struct {
	PictureInterval time.Duration // time between stills while idle
	MinVideoLength  time.Duration // a clip is never stopped for lack of motion before this
	MaxVideoLength  time.Duration // a clip is always stopped at this length
}

// Validate checks the interval relationships the transition rules rely on
func (s Settings) Validate() error {
	if s.PictureInterval <= 0 {
		return fmt.Errorf("picture interval must be positive, got %v", s.PictureInterval)
	}
	if s.MinVideoLength < 0 {
		return fmt.Errorf("minimum video length must not be negative, got %v", s.MinVideoLength)
	}
	if s.MaxVideoLength <= 0 {
		return fmt.Errorf("maximum video length must be positive, got %v", s.MaxVideoLength)
	}
	if s.MinVideoLength > s.MaxVideoLength {
		return fmt.Errorf("minimum video length %v exceeds maximum %v", s.MinVideoLength, s.MaxVideoLength)
	}
	return nil
}

// SchedulerSettingsProvider implements SettingsProvider for Settings
type SchedulerSettingsProvider struct {
	configProvider config.SettingsProvider[config.Config]
}

// NewSchedulerSettingsProvider creates a new SchedulerSettingsProvider
func NewSchedulerSettingsProvider(configProvider config.SettingsProvider[config.Config]) *SchedulerSettingsProvider {
	return &SchedulerSettingsProvider{
		configProvider: configProvider,
	}
}

// GetSettings returns the scheduling settings mapped from the configuration
func (p *SchedulerSettingsProvider) GetSettings() Settings {
	cfg := p.configProvider.GetSettings()

	return Settings{
		PictureInterval: time.Duration(cfg.PictureIntervalSeconds) * time.Second,
		MinVideoLength:  time.Duration(cfg.MinVideoLengthSeconds) * time.Second,
		MaxVideoLength:  time.Duration(cfg.MaxVideoLengthSeconds) * time.Second,
	}
}
