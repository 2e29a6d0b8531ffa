// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/graphweave/graphweave/internal/emit"
	"github.com/graphweave/graphweave/internal/resolve"
)

const (
	// LogFormatText is charmbracelet/log's human-readable format.
	LogFormatText LogFormat = "text"
	// LogFormatJSON emits one JSON object per line.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt emits logfmt key=value lines.
	LogFormatLogfmt LogFormat = "logfmt"

	// DefaultPattern selects partial files below a root.
	DefaultPattern = "**/*.partial"
	// DefaultAddress is the listen address of the serve command.
	DefaultAddress = "127.0.0.1:8765"
	// DefaultCacheSize is the number of aggregates the server keeps.
	DefaultCacheSize = 128
	// DefaultDebounce coalesces bursts of file events.
	DefaultDebounce = 500 * time.Millisecond
)

var (
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	sectionNamePattern = regexp.MustCompile(`^[A-Z]+$`)
)

type (
	// LogFormat selects the charmbracelet/log formatter.
	LogFormat string

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Roots are the directories scanned for partials, in precedence order.
		Roots []string `json:"roots" mapstructure:"roots"`
		// Patterns select partial files below each root (doublestar syntax).
		Patterns []string `json:"patterns" mapstructure:"patterns"`
		// Ignore excludes files matching any of these patterns.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
		// AggregatorName is written into the aggregate header and markers.
		AggregatorName string `json:"aggregator_name" mapstructure:"aggregator_name"`
		// Resolver configures selection.
		Resolver ResolverConfig `json:"resolver" mapstructure:"resolver"`
		// Sections is the emission plan.
		Sections []SectionConfig `json:"sections" mapstructure:"sections"`
		// Server configures the serve command.
		Server ServerConfig `json:"server" mapstructure:"server"`
		// Watch configures file watching for serve.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		// Log configures the process logger.
		Log LogConfig `json:"log" mapstructure:"log"`
	}

	// ResolverConfig configures the resolver.
	ResolverConfig struct {
		MaxDepth int `json:"max_depth" mapstructure:"max_depth"`
	}

	// SectionConfig is one entry of the emission plan.
	SectionConfig struct {
		Name string `json:"name" mapstructure:"name"`
		Wrap bool   `json:"wrap" mapstructure:"wrap"`
	}

	// ServerConfig configures the HTTP server.
	ServerConfig struct {
		Address string `json:"address" mapstructure:"address"`
		// CacheSize is the LRU capacity for rendered aggregates; 0 disables caching.
		CacheSize int `json:"cache_size" mapstructure:"cache_size"`
	}

	// WatchConfig configures re-discovery on file changes.
	WatchConfig struct {
		Enabled  bool          `json:"enabled" mapstructure:"enabled"`
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level  string    `json:"level" mapstructure:"level"`
		Format LogFormat `json:"format" mapstructure:"format"`
	}
)

// IsValid returns whether the LogFormat is one of the defined formats.
// The zero value is accepted and means text.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case "", LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrInvalidLogFormat, string(f))}
	}
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the constraints CUE cannot express: pattern syntax, section
// name uniqueness, and values that arrived through environment overrides.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Patterns) == 0 {
		errs = append(errs, errors.New("patterns: at least one pattern is required"))
	}
	for i, p := range c.Patterns {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("patterns[%d]: invalid pattern %q", i, p))
		}
	}
	for i, p := range c.Ignore {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("ignore[%d]: invalid pattern %q", i, p))
		}
	}
	if c.Resolver.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("resolver.max_depth: must be at least 1, got %d", c.Resolver.MaxDepth))
	}
	if c.Server.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("server.cache_size: must not be negative, got %d", c.Server.CacheSize))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce: must not be negative, got %s", c.Watch.Debounce))
	}
	if strings.TrimSpace(c.AggregatorName) != c.AggregatorName || c.AggregatorName == "" {
		errs = append(errs, fmt.Errorf("aggregator_name: must be a non-empty word, got %q", c.AggregatorName))
	}
	if _, fieldErrs := c.Log.Format.IsValid(); fieldErrs != nil {
		errs = append(errs, fieldErrs...)
	}

	seen := make(map[string]int, len(c.Sections))
	for i, s := range c.Sections {
		if !sectionNamePattern.MatchString(s.Name) {
			errs = append(errs, fmt.Errorf("sections[%d].name: must be upper-case letters, got %q", i, s.Name))
			continue
		}
		if first, ok := seen[s.Name]; ok {
			errs = append(errs, fmt.Errorf("sections[%d].name: %q already listed at sections[%d]", i, s.Name, first))
			continue
		}
		seen[s.Name] = i
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Roots:          []string{"."},
		Patterns:       []string{DefaultPattern},
		Ignore:         []string{},
		AggregatorName: emit.DefaultAggregatorName,
		Resolver:       ResolverConfig{MaxDepth: resolve.DefaultMaxDepth},
		Sections: []SectionConfig{
			{Name: "PROLOGUE"},
			{Name: "QUERY", Wrap: true},
			{Name: "MUTATION", Wrap: true},
			{Name: "TYPES"},
		},
		Server: ServerConfig{
			Address:   DefaultAddress,
			CacheSize: DefaultCacheSize,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: DefaultDebounce,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}

// SectionPlan converts Sections into an emission plan.
func (c *Config) SectionPlan() ([]emit.SectionSpec, error) {
	plan := make([]emit.SectionSpec, 0, len(c.Sections))
	for _, s := range c.Sections {
		spec, err := emit.NewSectionSpec(s.Name, s.Wrap)
		if err != nil {
			return nil, err
		}
		plan = append(plan, spec)
	}
	return plan, nil
}
