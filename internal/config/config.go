// Package config loads settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/iotku/subdonic/internal/catalog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config configures the chat bot process.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`
	TestMode     bool   `env:"SUBDONIC_TEST_MODE" envDefault:"false"`

	CatalogURL string `env:"CATALOG_URL" envDefault:"http://localhost:8080/api/v1/subsonic"`
	StatusURL  string `env:"STATUS_URL" envDefault:"http://localhost:8080/api/v1/status"`

	CommandPrefix  string        `env:"COMMAND_PREFIX" envDefault:"!"`
	CommandWorkers int           `env:"COMMAND_WORKERS" envDefault:"8"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" envDefault:"10s"`
	DefaultVolume  int           `env:"DEFAULT_VOLUME" envDefault:"100"`

	OwnerLookupAttempts int           `env:"OWNER_LOOKUP_ATTEMPTS" envDefault:"5"`
	OwnerLookupTimeout  time.Duration `env:"OWNER_LOOKUP_TIMEOUT" envDefault:"10s"`

	RankTitle          int  `env:"RANK_TITLE" envDefault:"10"`
	RankAlbum          int  `env:"RANK_ALBUM" envDefault:"1"`
	RankLive           int  `env:"RANK_LIVE" envDefault:"-5"`
	RankArtist         int  `env:"RANK_ARTIST" envDefault:"5"`
	FilterPlaceholders bool `env:"FILTER_PLACEHOLDERS" envDefault:"true"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9091"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty   bool   `env:"LOG_PRETTY" envDefault:"true"`
}

// APIConfig configures the catalog proxy and status API process.
type APIConfig struct {
	Addr               string `env:"API_ADDR" envDefault:":8080"`
	SubsonicURL        string `env:"SUBSONIC_URL"`
	SubsonicUser       string `env:"SUBSONIC_USER"`
	SubsonicPass       string `env:"SUBSONIC_PASS"`
	SubsonicClient     string `env:"SUBSONIC_CLIENT" envDefault:"subdonic"`
	SubsonicMaxBitrate int    `env:"SUBSONIC_MAX_BITRATE" envDefault:"320"`
	FilterPlaceholders bool   `env:"FILTER_PLACEHOLDERS" envDefault:"true"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"true"`
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, falling back to system environment variables")
	}
}

// Load reads the bot configuration. It does not validate it.
func Load() (*Config, error) {
	loadDotEnv()
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// LoadAPI reads the API configuration. It does not validate it.
func LoadAPI() (*APIConfig, error) {
	loadDotEnv()
	cfg, err := env.ParseAs[APIConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

var ErrMissingToken = errors.New("DISCORD_TOKEN is not set")

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DiscordToken == "" && !c.TestMode {
		errs = append(errs, ErrMissingToken)
	}
	if err := validURL("CATALOG_URL", c.CatalogURL); err != nil {
		errs = append(errs, err)
	}
	if c.StatusURL != "" {
		if err := validURL("STATUS_URL", c.StatusURL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.CommandPrefix == "" || strings.ContainsAny(c.CommandPrefix, " \t\n") {
		errs = append(errs, fmt.Errorf("COMMAND_PREFIX %q is not usable", c.CommandPrefix))
	}
	if c.CommandWorkers < 1 {
		errs = append(errs, fmt.Errorf("COMMAND_WORKERS must be at least 1, got %d", c.CommandWorkers))
	}
	if c.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("IDLE_TIMEOUT must be positive, got %s", c.IdleTimeout))
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > 150 {
		errs = append(errs, fmt.Errorf("DEFAULT_VOLUME must be within 0-150, got %d", c.DefaultVolume))
	}
	if c.OwnerLookupAttempts < 1 {
		errs = append(errs, fmt.Errorf("OWNER_LOOKUP_ATTEMPTS must be at least 1, got %d", c.OwnerLookupAttempts))
	}
	return errors.Join(errs...)
}

// RankWeights returns the search ranking weights.
func (c *Config) RankWeights() catalog.Weights {
	return catalog.Weights{
		Title:  c.RankTitle,
		Album:  c.RankAlbum,
		Live:   c.RankLive,
		Artist: c.RankArtist,
	}
}

func (c *APIConfig) Validate() error {
	var errs []error
	if c.SubsonicURL == "" {
		errs = append(errs, errors.New("SUBSONIC_URL is not set"))
	} else if err := validURL("SUBSONIC_URL", c.SubsonicURL); err != nil {
		errs = append(errs, err)
	}
	if c.SubsonicUser == "" {
		errs = append(errs, errors.New("SUBSONIC_USER is not set"))
	}
	if c.SubsonicMaxBitrate < 0 {
		errs = append(errs, fmt.Errorf("SUBSONIC_MAX_BITRATE must not be negative, got %d", c.SubsonicMaxBitrate))
	}
	return errors.Join(errs...)
}

func validURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute URL", key, raw)
	}
	return nil
}
