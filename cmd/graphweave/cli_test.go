// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/graphweave/graphweave/internal/config"
	"github.com/graphweave/graphweave/internal/resolve"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the command tree with a private config directory so the
// user's own configuration never leaks into a test.
func runCLI(ctx context.Context, t *testing.T, configDir string, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app, err := NewApp(Dependencies{Stdout: &stdout, Stderr: &stderr, ConfigDir: configDir})
	if err != nil {
		t.Fatalf("NewApp() error: %v", err)
	}
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err = root.ExecuteContext(ctx)
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writePartials(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

var sampleFiles = map[string]string{
	"base.partial":          "PARTIAL: Shared scalars\nPROLOGUE:\nscalar Date\n",
	"users.partial":         "PARTIAL: User accounts\nREQUIRES: base\nQUERY: lookups\n  user(id: ID!): User\nTYPES:\ntype User { id: ID! }\n",
	"nested/orders.partial": "PARTIAL: Orders\nREQUIRES: users\nMUTATION:\n  placeOrder: ID\n",
	"notes.txt":             "not a partial\n",
}

func TestAggregateCommand(t *testing.T) {
	t.Parallel()

	root := writePartials(t, sampleFiles)
	res := runCLI(context.Background(), t, t.TempDir(), "--root", root, "aggregate", "users")
	if res.err != nil {
		t.Fatalf("aggregate error: %v\nstderr: %s", res.err, res.stderr)
	}

	want := "# Schema aggregated by graphweave\n" +
		"\n# graphweave.source=base\n" +
		"scalar Date\n" +
		"\ntype Query {\n" +
		"\n# graphweave.source=users\n" +
		"  user(id: ID!): User\n" +
		"\n}\n" +
		"\n# graphweave.source=users\n" +
		"type User { id: ID! }\n" +
		"\n# End of Schema aggregated from {users,base} by graphweave\n"
	if res.stdout != want {
		t.Errorf("aggregate output mismatch\n got: %q\nwant: %q", res.stdout, want)
	}
}

func TestAggregateCommand_OutputFile(t *testing.T) {
	t.Parallel()

	root := writePartials(t, sampleFiles)
	out := filepath.Join(t.TempDir(), "schema.graphql")
	res := runCLI(context.Background(), t, t.TempDir(), "--root", root, "aggregate", "/ord.*/", "-o", out)
	if res.err != nil {
		t.Fatalf("aggregate error: %v", res.err)
	}
	if res.stdout != "" {
		t.Errorf("stdout = %q, want nothing", res.stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasSuffix(string(data), "from {orders,users,base} by graphweave\n") {
		t.Errorf("unexpected aggregate:\n%s", data)
	}
}

func TestAggregateCommand_Failures(t *testing.T) {
	t.Parallel()

	root := writePartials(t, sampleFiles)

	res := runCLI(context.Background(), t, t.TempDir(), "--root", root, "aggregate", "users", "ghost")
	if !errors.Is(res.err, resolve.ErrMissingPartials) {
		t.Errorf("error = %v, want ErrMissingPartials", res.err)
	}
	if res.stdout != "" {
		t.Errorf("partial output written on failure: %q", res.stdout)
	}

	res = runCLI(context.Background(), t, t.TempDir(), "--root", t.TempDir(), "aggregate", "users")
	if res.err == nil || !strings.Contains(res.err.Error(), "find partials") {
		t.Errorf("error = %v, want a no-partials error", res.err)
	}

	res = runCLI(context.Background(), t, t.TempDir(), "--root", root, "aggregate")
	if res.err == nil {
		t.Error("aggregate without selectors should fail")
	}
}

func TestListCommand(t *testing.T) {
	t.Parallel()

	root := writePartials(t, sampleFiles)
	res := runCLI(context.Background(), t, t.TempDir(), "--root", root, "list")
	if res.err != nil {
		t.Fatalf("list error: %v", res.err)
	}
	for _, want := range []string{"NAME", "base", "users", "orders", "QUERY,TYPES", "3 partials"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("list output missing %q:\n%s", want, res.stdout)
		}
	}
	if strings.Contains(res.stdout, "notes") {
		t.Errorf("list output includes a non-partial file:\n%s", res.stdout)
	}
}

func TestDescribeCommand(t *testing.T) {
	t.Parallel()

	root := writePartials(t, sampleFiles)
	res := runCLI(context.Background(), t, t.TempDir(), "--root", root, "describe", "users", "--raw")
	if res.err != nil {
		t.Fatalf("describe error: %v", res.err)
	}
	for _, want := range []string{
		"# users\n",
		"User accounts",
		"- **QUERY**: lookups",
		"## Requires\n\n- base\n",
		"## Required by\n\n- orders\n",
		"1. users\n2. base\n",
	} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("describe output missing %q:\n%s", want, res.stdout)
		}
	}

	res = runCLI(context.Background(), t, t.TempDir(), "--root", root, "describe", "users")
	if res.err != nil {
		t.Fatalf("rendered describe error: %v", res.err)
	}
	if !strings.Contains(res.stdout, "users") {
		t.Errorf("rendered describe output:\n%s", res.stdout)
	}

	res = runCLI(context.Background(), t, t.TempDir(), "--root", root, "describe", "ghost")
	if !errors.Is(res.err, resolve.ErrMissingPartials) {
		t.Errorf("describe ghost error = %v, want ErrMissingPartials", res.err)
	}
}

func TestCheckCommand(t *testing.T) {
	t.Parallel()

	root := writePartials(t, sampleFiles)
	res := runCLI(context.Background(), t, t.TempDir(), "--root", root, "check")
	if res.err != nil {
		t.Fatalf("check error: %v", res.err)
	}
	if !strings.Contains(res.stdout, "base users orders") {
		t.Errorf("check output missing requirement order:\n%s", res.stdout)
	}

	broken := writePartials(t, map[string]string{
		"a.partial":   "PARTIAL: a\nREQUIRES: b\n",
		"b.partial":   "PARTIAL: b\nREQUIRES: a\n",
		"bad.partial": "no header\n",
	})
	res = runCLI(context.Background(), t, t.TempDir(), "--root", broken, "check")
	var exitErr *ExitError
	if !errors.As(res.err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("check error = %v, want exit code 1", res.err)
	}
	for _, want := range []string{"requirement_cycle", "partial_parse_skipped"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("check output missing %q:\n%s", want, res.stdout)
		}
	}
}

func TestServeCommand_StopsOnCancel(t *testing.T) {
	t.Parallel()

	root := writePartials(t, sampleFiles)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	res := runCLI(ctx, t, t.TempDir(), "--root", root, "serve", "--addr", "127.0.0.1:0", "--watch")
	if res.err != nil {
		t.Fatalf("serve error: %v\nstderr: %s", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, "Serving on") || !strings.Contains(res.stdout, "3 partials") {
		t.Errorf("serve output:\n%s", res.stdout)
	}
}

func TestConfigCommands(t *testing.T) {
	t.Parallel()

	cfgDir := t.TempDir()
	wantPath := filepath.Join(cfgDir, "config.cue")

	res := runCLI(context.Background(), t, cfgDir, "config", "path")
	if res.err != nil {
		t.Fatalf("config path error: %v", res.err)
	}
	if strings.TrimSpace(res.stdout) != wantPath {
		t.Errorf("config path = %q, want %q", res.stdout, wantPath)
	}

	res = runCLI(context.Background(), t, cfgDir, "config", "init")
	if res.err != nil {
		t.Fatalf("config init error: %v", res.err)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	res = runCLI(context.Background(), t, cfgDir, "config", "init")
	if !errors.Is(res.err, config.ErrConfigFileExists) {
		t.Errorf("second init error = %v, want ErrConfigFileExists", res.err)
	}
	if res := runCLI(context.Background(), t, cfgDir, "config", "init", "--force"); res.err != nil {
		t.Errorf("init --force error: %v", res.err)
	}

	res = runCLI(context.Background(), t, cfgDir, "--root", "/srv/partials", "config", "show", "--format", "toml")
	if res.err != nil {
		t.Fatalf("config show error: %v", res.err)
	}
	for _, want := range []string{"/srv/partials", "aggregator_name = ", "[server]", "[[sections]]"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("toml output missing %q:\n%s", want, res.stdout)
		}
	}

	res = runCLI(context.Background(), t, cfgDir, "config", "show")
	if res.err != nil || !strings.Contains(res.stdout, "aggregator_name: \"graphweave\"") {
		t.Errorf("cue output (err %v):\n%s", res.err, res.stdout)
	}

	if res := runCLI(context.Background(), t, cfgDir, "config", "show", "--format", "yaml"); res.err == nil {
		t.Error("unknown format should fail")
	}
}

func TestConfigFileDrivesAggregation(t *testing.T) {
	t.Parallel()

	root := writePartials(t, sampleFiles)
	cfgFile := filepath.Join(t.TempDir(), "custom.cue")
	content := `roots: [` + quoteCUE(root) + `]
aggregator_name: "acme"
sections: [{name: "TYPES"}]
`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	res := runCLI(context.Background(), t, t.TempDir(), "--config", cfgFile, "aggregate", "users")
	if res.err != nil {
		t.Fatalf("aggregate error: %v", res.err)
	}
	want := "# Schema aggregated by acme\n" +
		"\n# acme.source=users\n" +
		"type User { id: ID! }\n" +
		"\n# End of Schema aggregated from {users,base} by acme\n"
	if res.stdout != want {
		t.Errorf("output mismatch\n got: %q\nwant: %q", res.stdout, want)
	}

	res = runCLI(context.Background(), t, t.TempDir(), "--config", filepath.Join(t.TempDir(), "missing.cue"), "list")
	if res.err == nil {
		t.Error("a missing --config file should fail")
	}
}

func quoteCUE(s string) string {
	return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
}
