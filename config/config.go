package config

import (
	"fmt"
	"strings"

	"github.com/bitrise-io/go-compressor/internal/stepconf"
	"github.com/bitrise-io/go-utils/v2/env"
)

// Environment keys
const (
	APIBaseURLKey = "COMPRESSOR_API_URL"
	QualityKey    = "COMPRESSOR_QUALITY"
	DebugKey      = "COMPRESSOR_DEBUG"
)

// Quality bounds exposed to the user; the default is the mid-value.
const (
	MinQuality     = 1
	MaxQuality     = 100
	DefaultQuality = 50
)

// DefaultAPIBaseURL ...
const DefaultAPIBaseURL = "http://localhost:5000/api"

// Config ...
type Config struct {
	APIBaseURL string `env:"COMPRESSOR_API_URL"`
	Quality    int    `env:"COMPRESSOR_QUALITY,range[1..100]"`
	Debug      bool   `env:"COMPRESSOR_DEBUG"`
}

// Load reads the configuration from the environment, falling back to defaults for unset keys.
func Load(envRepo env.Repository) (Config, error) {
	config := Config{
		APIBaseURL: DefaultAPIBaseURL,
		Quality:    DefaultQuality,
	}

	if err := stepconf.NewInputParser(envRepo).Parse(&config); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	config.APIBaseURL = strings.TrimSpace(config.APIBaseURL)
	if config.APIBaseURL == "" {
		config.APIBaseURL = DefaultAPIBaseURL
	}

	return config, nil
}

// ValidateQuality checks the value against the bounds offered to the user.
func ValidateQuality(quality int) error {
	if quality < MinQuality || quality > MaxQuality {
		return fmt.Errorf("quality should be between %d and %d, got %d", MinQuality, MaxQuality, quality)
	}
	return nil
}
