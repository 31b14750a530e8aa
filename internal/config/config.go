// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"

	"github.com/wneessen/geonamer/internal/records"
)

const (
	configEnv = "GEONAMER"

	// DefaultRowTpl renders one line per record
	DefaultRowTpl = `{{fit .From}} → {{fit .To}}  {{floatFormat .DistanceKm 1}} km  {{.Mode}}  {{natural .TripDate}}`

	maxBatchSize = 64
	maxPrecision = 8
	minWidth     = 8
)

// Config represents the application's configuration structure.
type Config struct {
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Resolver struct {
		// Records claimed per pump batch, each batch issues up to twice as many lookups
		BatchSize int `fig:"batch_size" default:"8"`
		// Records scheduled right after loading, before any visibility report
		InitialBatch int `fig:"initial_batch" default:"8"`
		// Decimals of the coordinate cache key
		Precision int `fig:"precision" default:"4"`
		CacheSize int `fig:"cache_size" default:"4096"`
	} `fig:"resolver"`

	GeoCoder struct {
		// Allowed values: nominatim, opencage, geocode-earth
		Provider string `fig:"provider" default:"nominatim"`
		APIKey   string `fig:"apikey"`
		// Empty selects the public endpoint of the provider
		Endpoint string        `fig:"endpoint"`
		Timeout  time.Duration `fig:"timeout" default:"10s"`
		// Requests per second, a negative value disables rate limiting
		RateLimit  float64 `fig:"rate_limit" default:"1"`
		ShortNames bool    `fig:"short_names"`
	} `fig:"geocoder"`

	Records struct {
		File     string `fig:"file"`
		Endpoint string `fig:"endpoint"`
		Token    string `fig:"token"`
		Recent   int    `fig:"recent" default:"6"`
		// Allowed values: recent, oldest, distance
		Sort string `fig:"sort" default:"recent"`
		// Allowed values: all, eco, bus, subway, tram, train, bike, walk, car, other
		Mode string `fig:"mode" default:"all"`
		// Free-text filter on the resolved place names or the coordinates
		Query  string        `fig:"query"`
		Window time.Duration `fig:"window" default:"720h"`
		// Zero runs once and exits
		RefreshInterval time.Duration `fig:"refresh_interval"`
	} `fig:"records"`

	Output struct {
		PageSize int    `fig:"page_size" default:"8"`
		Template string `fig:"template"`
		Width    int    `fig:"width" default:"40"`
		// Print the recent searches instead of the trip history
		RecentOnly bool `fig:"recent_only"`
	} `fig:"output"`

	Metrics struct {
		Listen string `fig:"listen"`
	} `fig:"metrics"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Resolver.BatchSize < 1 || c.Resolver.BatchSize > maxBatchSize {
		return fmt.Errorf("invalid batch size: %d", c.Resolver.BatchSize)
	}
	if c.Resolver.InitialBatch < 1 {
		return fmt.Errorf("invalid initial batch: %d", c.Resolver.InitialBatch)
	}
	if c.Resolver.Precision < 0 || c.Resolver.Precision > maxPrecision {
		return fmt.Errorf("invalid cache key precision: %d", c.Resolver.Precision)
	}
	if c.Resolver.CacheSize < 1 {
		return fmt.Errorf("invalid cache size: %d", c.Resolver.CacheSize)
	}
	if c.GeoCoder.Timeout <= 0 {
		return fmt.Errorf("invalid geocoder timeout: %s", c.GeoCoder.Timeout)
	}
	switch strings.ToLower(c.GeoCoder.Provider) {
	case "nominatim", "opencage", "geocode-earth":
	default:
		return fmt.Errorf("unsupported geocoder provider: %s", c.GeoCoder.Provider)
	}
	if !records.ValidFilter(c.Records.Mode) {
		return fmt.Errorf("invalid mode filter: %s", c.Records.Mode)
	}
	switch strings.ToLower(c.Records.Sort) {
	case "recent", "oldest", "distance":
	default:
		return fmt.Errorf("invalid sort mode: %s", c.Records.Sort)
	}
	if c.Records.Recent < 0 {
		return fmt.Errorf("invalid number of recent searches: %d", c.Records.Recent)
	}
	if c.Records.Window < 0 || c.Records.RefreshInterval < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.Output.PageSize < 1 {
		return fmt.Errorf("invalid page size: %d", c.Output.PageSize)
	}
	if c.Output.Width < minWidth {
		return fmt.Errorf("invalid output width: %d", c.Output.Width)
	}
	if c.Output.Template == "" {
		c.Output.Template = DefaultRowTpl
	}
	if c.Records.File == "" && c.Records.Endpoint == "" {
		home, _ := os.UserHomeDir()
		c.Records.File = filepath.Join(home, ".config", "geonamer", "searches.json")
	}

	return nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
