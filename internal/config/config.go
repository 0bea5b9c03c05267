package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bher20/avfallsor-mqtt/internal/calendar"
	"github.com/bher20/avfallsor-mqtt/internal/cron"
	"github.com/bher20/avfallsor-mqtt/internal/publish"
	"github.com/bher20/avfallsor-mqtt/internal/storage"
)

type Config struct {
	Address     string
	ProviderKey string

	MQTT            publish.Config
	DiscoveryPrefix string
	PublishDelay    time.Duration

	HTTPTimeout time.Duration

	Storage     storage.Config
	AutoMigrate bool

	// RefreshInterval is integer seconds or a standard cron expression.
	RefreshInterval string
	Port            string
}

// Load reads an optional .env file and builds a Config from the environment.
// Variables already set in the environment win over the file.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() Config {
	return Config{
		Address:     strings.TrimSpace(os.Getenv("ADDRESS")),
		ProviderKey: envOr("AVFALL_PROVIDER", calendar.DefaultProviderKey),
		MQTT: publish.Config{
			Host:     os.Getenv("MQTT_HOST"),
			Port:     envInt("MQTT_PORT", 1883),
			Username: os.Getenv("MQTT_USERNAME"),
			Password: os.Getenv("MQTT_PASSWORD"),
			ClientID: envOr("MQTT_CLIENT_ID", "avfallsor-mqtt"),
			Timeout:  10 * time.Second,
		},
		DiscoveryPrefix: envOr("MQTT_DISCOVERY_PREFIX", "homeassistant"),
		PublishDelay:    time.Duration(envInt("MQTT_PUBLISH_DELAY_MS", 250)) * time.Millisecond,
		HTTPTimeout:     time.Duration(envInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		Storage: storage.Config{
			Driver: envOr("AVFALL_DB_DRIVER", "memory"),
			DSN:    envOr("AVFALL_DB_DSN", "avfallsor.db"),
		},
		AutoMigrate:     envBool("AVFALL_AUTO_MIGRATE"),
		RefreshInterval: envOr("AVFALL_REFRESH_INTERVAL", "0 6 * * *"),
		Port:            envOr("PORT", "8000"),
	}
}

var (
	ErrMissingAddress         = errors.New("ADDRESS environment variable is required")
	ErrMissingMQTTHost        = errors.New("MQTT_HOST environment variable is required")
	ErrInvalidRefreshInterval = errors.New("AVFALL_REFRESH_INTERVAL must be seconds or a cron expression")
)

// Validate checks the settings needed to look up a schedule. When publishing
// is true the MQTT broker must be configured as well.
func (c Config) Validate(publishing bool) error {
	if c.Address == "" {
		return ErrMissingAddress
	}
	if publishing && c.MQTT.Host == "" {
		return ErrMissingMQTTHost
	}
	if !cron.ValidInterval(c.RefreshInterval) {
		return fmt.Errorf("%w: %q", ErrInvalidRefreshInterval, c.RefreshInterval)
	}
	return nil
}

// Provider returns the configured provider descriptor.
func (c Config) Provider() (calendar.ProviderDescriptor, error) {
	p, ok := calendar.GetProvider(c.ProviderKey)
	if !ok {
		return calendar.ProviderDescriptor{}, errors.New("unknown provider: " + c.ProviderKey)
	}
	return p, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && v >= 0 {
		return v
	}
	return def
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
