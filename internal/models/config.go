package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// List kinds
const (
	KindBlocklist = "blocklist"
	KindWhitelist = "whitelist"
)

// Config represents the main configuration
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Compile CompileConfig `mapstructure:"compile"`
	Output  OutputConfig  `mapstructure:"output"`
	Lists   []FilterList  `mapstructure:"lists" validate:"dive"`
}

// HTTPConfig contains HTTP client settings
type HTTPConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Retries           int           `mapstructure:"retries" validate:"gte=0"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
}

// CacheConfig controls the fetch cache. Entries older than TTL are refetched.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Size    int           `mapstructure:"size" validate:"gte=0"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// CompileConfig contains compilation settings
type CompileConfig struct {
	Workers  int  `mapstructure:"workers" validate:"gte=0"`
	Compress bool `mapstructure:"compress"`
}

// OutputConfig contains output settings
type OutputConfig struct {
	Blocklist   string `mapstructure:"blocklist" validate:"required"`
	Whitelist   string `mapstructure:"whitelist"`
	MetricsFile string `mapstructure:"metrics_file"`
	LineEnding  string `mapstructure:"line_ending" validate:"omitempty,oneof=lf crlf"`
}

// FilterList represents a single source list configuration
type FilterList struct {
	Name    string `mapstructure:"name" validate:"required"`
	URL     string `mapstructure:"url" validate:"omitempty,url"`
	Path    string `mapstructure:"path" validate:"required_without=URL"`
	Kind    string `mapstructure:"kind" validate:"omitempty,oneof=blocklist whitelist"`
	Enabled bool   `mapstructure:"enabled"`
}

// Location returns the URL or file path the list is read from
func (l FilterList) Location() string {
	if l.URL != "" {
		return l.URL
	}
	return l.Path
}

// ListKind returns the list kind, defaulting to blocklist
func (l FilterList) ListKind() string {
	if l.Kind == "" {
		return KindBlocklist
	}
	return l.Kind
}

// EnabledLists returns only enabled lists of the given kind
func (c *Config) EnabledLists(kind string) []FilterList {
	var enabled []FilterList
	for _, l := range c.Lists {
		if l.Enabled && l.ListKind() == kind {
			enabled = append(enabled, l)
		}
	}
	return enabled
}

// LineTerminator returns the configured line terminator
func (o OutputConfig) LineTerminator() string {
	if o.LineEnding == "crlf" {
		return "\r\n"
	}
	return "\n"
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config against its struct tags
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
