package config

type SettingsProvider[T any] interface {
	// GetSettings returns the current settings of type T.
	GetSettings() T
}

// StaticSettingsProvider serves a value fixed at construction. Settings are read once at
// startup; picking up an edited config file requires a restart.
type StaticSettingsProvider[T any] struct {
	settings T
}

// NewStaticSettingsProvider creates a provider that always returns settings
func NewStaticSettingsProvider[T any](settings T) *StaticSettingsProvider[T] {
	return &StaticSettingsProvider[T]{settings: settings}
}

// GetSettings returns the settings given at construction
func (p *StaticSettingsProvider[T]) GetSettings() T {
	return p.settings
}
