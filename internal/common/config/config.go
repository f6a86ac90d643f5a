// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Service     ServiceConfig     `mapstructure:"service"`
	Flows       FlowsConfig       `mapstructure:"flows"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
	Session     SessionConfig     `mapstructure:"session"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServiceConfig holds settings for the remote task service.
type ServiceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// FlowsConfig holds per-flow settings. The two flows poll at different
// cadences; the difference is preserved as configuration.
type FlowsConfig struct {
	DishSearch FlowConfig `mapstructure:"dish_search"`
	VenueLink  FlowConfig `mapstructure:"venue_link"`
}

// FlowConfig holds the core settings applicable to one submission flow.
type FlowConfig struct {
	PollInterval    int `mapstructure:"poll_interval"`     // milliseconds
	MaxPollAttempts int `mapstructure:"max_poll_attempts"` // 0 = poll until terminal
}

// GeolocationConfig holds settings for the one-shot coordinate acquisition.
type GeolocationConfig struct {
	SourceURL    string `mapstructure:"source_url"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
	HighAccuracy bool   `mapstructure:"high_accuracy"`
}

// SessionConfig holds settings for the redis-backed active-task store.
type SessionConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds settings for the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
