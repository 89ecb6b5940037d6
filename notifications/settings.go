package notifications

import (
	"time"

	"github.com/yeti47/motioncam/config"
)

type NotificationSettings struct {
	Recipient   string // empty disables notifications
	MinInterval time.Duration
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	SMTPFrom    string
}

// Enabled reports whether motion notifications should be sent
func (s NotificationSettings) Enabled() bool {
	return s.Recipient != ""
}

// NotificationSettingsProvider implements SettingsProvider for NotificationSettings
type NotificationSettingsProvider struct {
	configProvider config.SettingsProvider[config.Config]
}

// NewNotificationSettingsProvider creates a new NotificationSettingsProvider
func NewNotificationSettingsProvider(configProvider config.SettingsProvider[config.Config]) *NotificationSettingsProvider {
	return &NotificationSettingsProvider{
		configProvider: configProvider,
	}
}

// GetSettings returns the notification settings mapped from the configuration
func (p *NotificationSettingsProvider) GetSettings() NotificationSettings {
	cfg := p.configProvider.GetSettings()

	return NotificationSettings{
		Recipient:   cfg.NotifyRecipient,
		MinInterval: time.Duration(cfg.NotifyMinIntervalSeconds) * time.Second,
		SMTPHost:    cfg.SMTPHost,
		SMTPPort:    cfg.SMTPPort,
		SMTPUser:    cfg.SMTPUsername,
		SMTPPass:    cfg.SMTPPassword,
		SMTPFrom:    cfg.SMTPFrom,
	}
}
