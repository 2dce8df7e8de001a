package core

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds environment-driven settings. The API key defaults to NASA's
// shared demo key, which is rate-limited but requires no signup.
type Config struct {
	APIKey        string        `envconfig:"NASA_API_KEY" default:"DEMO_KEY"`
	CacheDir      string        `envconfig:"SPACEPOD_CACHE_DIR"`
	APODBaseURL   string        `envconfig:"SPACEPOD_APOD_URL" default:"https://api.nasa.gov/planetary/apod"`
	OEmbedBaseURL string        `envconfig:"SPACEPOD_OEMBED_URL" default:"https://vimeo.com/api/oembed.json"`
	RetentionDays int           `envconfig:"SPACEPOD_RETENTION_DAYS" default:"2"`
	CheckInterval time.Duration `envconfig:"SPACEPOD_CHECK_INTERVAL" default:"1h"`
	AppEnv        string        `envconfig:"APP_ENV" default:"prod"`
}

// LoadConfig populates Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = CacheRoot()
	}
	return cfg, nil
}
