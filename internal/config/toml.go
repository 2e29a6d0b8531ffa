// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

type (
	tomlDocument struct {
		Roots          []string        `toml:"roots"`
		Patterns       []string        `toml:"patterns"`
		Ignore         []string        `toml:"ignore"`
		AggregatorName string          `toml:"aggregator_name"`
		Resolver       tomlResolver    `toml:"resolver"`
		Sections       []tomlSection   `toml:"sections"`
		Server         tomlServer      `toml:"server"`
		Watch          tomlWatch       `toml:"watch"`
		Log            tomlLog         `toml:"log"`
	}

	tomlResolver struct {
		MaxDepth int `toml:"max_depth"`
	}

	tomlSection struct {
		Name string `toml:"name"`
		Wrap bool   `toml:"wrap"`
	}

	tomlServer struct {
		Address   string `toml:"address"`
		CacheSize int    `toml:"cache_size"`
	}

	// Durations are written in time.ParseDuration form.
	tomlWatch struct {
		Enabled  bool   `toml:"enabled"`
		Debounce string `toml:"debounce"`
	}

	tomlLog struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	}
)

// MarshalTOML renders the effective configuration as TOML.
func MarshalTOML(cfg *Config) ([]byte, error) {
	sections := make([]tomlSection, len(cfg.Sections))
	for i, s := range cfg.Sections {
		sections[i] = tomlSection(s)
	}
	doc := tomlDocument{
		Roots:          cfg.Roots,
		Patterns:       cfg.Patterns,
		Ignore:         cfg.Ignore,
		AggregatorName: cfg.AggregatorName,
		Resolver:       tomlResolver{MaxDepth: cfg.Resolver.MaxDepth},
		Sections:       sections,
		Server:         tomlServer{Address: cfg.Server.Address, CacheSize: cfg.Server.CacheSize},
		Watch:          tomlWatch{Enabled: cfg.Watch.Enabled, Debounce: cfg.Watch.Debounce.String()},
		Log:            tomlLog{Level: cfg.Log.Level, Format: string(cfg.Log.Format)},
	}
	data, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal config as TOML: %w", err)
	}
	return data, nil
}
