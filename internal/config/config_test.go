// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pelletier/go-toml/v2"

	"github.com/graphweave/graphweave/internal/issue"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Resolver.MaxDepth != 5 {
		t.Errorf("MaxDepth = %d, want 5", cfg.Resolver.MaxDepth)
	}
	if cfg.AggregatorName != "graphweave" {
		t.Errorf("AggregatorName = %q", cfg.AggregatorName)
	}

	plan, err := cfg.SectionPlan()
	if err != nil {
		t.Fatalf("SectionPlan() error: %v", err)
	}
	names := make([]string, len(plan))
	for i, s := range plan {
		names[i] = s.Name
	}
	if diff := cmp.Diff([]string{"PROLOGUE", "QUERY", "MUTATION", "TYPES"}, names); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	loaded, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("LoadWithPath() error: %v", err)
	}
	if loaded.Path != "" {
		t.Errorf("Path = %q, want empty", loaded.Path)
	}
	if diff := cmp.Diff(DefaultConfig(), loaded.Config, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_CUEFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `
roots: ["schemas", "vendor/schemas"]
ignore: ["**/testdata/**"]
aggregator_name: "acme"
resolver: max_depth: 8
sections: [{name: "QUERY", wrap: true}, {name: "TYPES"}]
server: cache_size: 0
watch: {enabled: true, debounce: "2s"}
log: format: "json"
`)

	loaded, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("LoadWithPath() error: %v", err)
	}
	if loaded.Path != path {
		t.Errorf("Path = %q, want %q", loaded.Path, path)
	}

	want := DefaultConfig()
	want.Roots = []string{"schemas", "vendor/schemas"}
	want.Ignore = []string{"**/testdata/**"}
	want.AggregatorName = "acme"
	want.Resolver.MaxDepth = 8
	want.Sections = []SectionConfig{{Name: "QUERY", Wrap: true}, {Name: "TYPES"}}
	want.Server.CacheSize = 0
	want.Watch = WatchConfig{Enabled: true, Debounce: 2 * time.Second}
	want.Log.Format = LogFormatJSON

	if diff := cmp.Diff(want, loaded.Config, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"lower-case section", `sections: [{name: "query"}]`, "sections[0].name"},
		{"unknown field", `bogus: 1`, "bogus"},
		{"zero depth", `resolver: max_depth: 0`, "resolver.max_depth"},
		{"bad log format", `log: format: "xml"`, "log.format"},
		{"syntax", `roots: [`, "config.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("expected an error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error %T is not an ActionableError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: missing})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("Load() error = %v, want ActionableError", err)
	}
	if ae.Resource != missing || !ae.HasSuggestions() {
		t.Errorf("got %+v", ae)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

// Environment tests mutate process state and cannot run in parallel.

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `server: address: "127.0.0.1:1"`)
	t.Setenv("GRAPHWEAVE_SERVER_ADDRESS", "0.0.0.0:9999")
	t.Setenv("GRAPHWEAVE_RESOLVER_MAX_DEPTH", "7")
	t.Setenv("GRAPHWEAVE_ROOTS", "a,b")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Address != "0.0.0.0:9999" {
		t.Errorf("Server.Address = %q", cfg.Server.Address)
	}
	if cfg.Resolver.MaxDepth != 7 {
		t.Errorf("Resolver.MaxDepth = %d", cfg.Resolver.MaxDepth)
	}
	if diff := cmp.Diff([]string{"a", "b"}, cfg.Roots); diff != "" {
		t.Errorf("Roots mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	const key = "GRAPHWEAVE_AGGREGATOR_NAME"
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatal(err)
	}

	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte(key+"=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir(), EnvFile: envFile})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.AggregatorName != "from-dotenv" {
		t.Errorf("AggregatorName = %q, want from-dotenv", cfg.AggregatorName)
	}

	_, err = NewProvider().Load(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(),
		EnvFile:       filepath.Join(t.TempDir(), "missing.env"),
	})
	if err == nil {
		t.Error("expected an error for a missing explicit env file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no patterns", func(c *Config) { c.Patterns = nil }},
		{"bad pattern", func(c *Config) { c.Patterns = []string{"[unclosed"} }},
		{"bad ignore", func(c *Config) { c.Ignore = []string{"{a,b"} }},
		{"zero depth", func(c *Config) { c.Resolver.MaxDepth = 0 }},
		{"negative cache", func(c *Config) { c.Server.CacheSize = -1 }},
		{"blank name", func(c *Config) { c.AggregatorName = " x" }},
		{"duplicate section", func(c *Config) { c.Sections = append(c.Sections, SectionConfig{Name: "TYPES"}) }},
		{"bad section", func(c *Config) { c.Sections = []SectionConfig{{Name: "Query"}} }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
			var ice *InvalidConfigError
			if !errors.As(err, &ice) || len(ice.FieldErrors) != 1 {
				t.Errorf("expected exactly one field error, got %v", err)
			}
		})
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Roots = []string{"one", "two"}
	cfg.Watch.Debounce = 1500 * time.Millisecond

	dir := t.TempDir()
	writeConfig(t, dir, GenerateCUE(cfg))

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v\n%s", err, GenerateCUE(cfg))
	}
	if diff := cmp.Diff(cfg, loaded, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.cue")
	got, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}
	if got != path {
		t.Errorf("WriteDefault() = %q, want %q", got, path)
	}
	if _, err := WriteDefault(path, false); !errors.Is(err, ErrConfigFileExists) {
		t.Errorf("second WriteDefault() error = %v, want ErrConfigFileExists", err)
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Errorf("forced WriteDefault() error: %v", err)
	}
}

func TestMarshalTOML(t *testing.T) {
	t.Parallel()

	data, err := MarshalTOML(DefaultConfig())
	if err != nil {
		t.Fatalf("MarshalTOML() error: %v", err)
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid TOML: %v\n%s", err, data)
	}
	watch, ok := doc["watch"].(map[string]any)
	if !ok || watch["debounce"] != "500ms" {
		t.Errorf("watch = %v, want debounce 500ms", doc["watch"])
	}
	if doc["aggregator_name"] != "graphweave" {
		t.Errorf("aggregator_name = %v", doc["aggregator_name"])
	}
	sections, ok := doc["sections"].([]any)
	if !ok || len(sections) != 4 {
		t.Fatalf("sections = %v, want the four default entries", doc["sections"])
	}
	if query, _ := sections[1].(map[string]any); query["name"] != "QUERY" || query["wrap"] != true {
		t.Errorf("sections[1] = %v, want QUERY wrapped", sections[1])
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := map[string][]string{
		"":                 nil,
		"roots":            {"roots"},
		"sections[1].name": {"sections", "1", "name"},
		"0":                {"0"},
	}
	for want, path := range tests {
		if got := formatPath(path); got != want {
			t.Errorf("formatPath(%v) = %q, want %q", path, got, want)
		}
	}
}
