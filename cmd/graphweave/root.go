// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the graphweave CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	configPath string
	envFile    string
	roots      []string
	verbose    bool
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "graphweave",
		Short: "Aggregate GraphQL schema partials",
		Long: TitleStyle.Render("graphweave") + SubtitleStyle.Render(" - Aggregate GraphQL schema partials") + `

graphweave scans directories for partial files, resolves the partials you
select together with everything they REQUIRE, and writes a single schema
document with QUERY and MUTATION sections merged into one type each.

` + SubtitleStyle.Render("Examples:") + `
  graphweave list                     List discovered partials
  graphweave aggregate users orders   Aggregate two partials and their requirements
  graphweave aggregate '/billing.*/'  Aggregate every partial matching a regex
  graphweave check                    Report discovery problems
  graphweave serve --watch            Serve aggregates over HTTP`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/graphweave/config.cue, then ./config.cue)")
	pf.StringVar(&flags.envFile, "env-file", "", "dotenv file with GRAPHWEAVE_* overrides (default ./.env when present)")
	pf.StringArrayVar(&flags.roots, "root", nil, "directory to scan for partials; repeatable, replaces configured roots")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging and full error chains")

	rootCmd.AddCommand(
		newAggregateCommand(app, flags),
		newListCommand(app, flags),
		newDescribeCommand(app, flags),
		newCheckCommand(app, flags),
		newServeCommand(app, flags),
		newConfigCommand(app, flags),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	rootCmd := NewRootCommand(app)
	err = fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
			renderError(w, err, verbose)
		}),
	)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// renderError prints err for the user, followed by catalog guidance when the
// error carries an issue id and verbose output was requested.
func renderError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	if !verbose {
		return
	}
	if guide, ok := issue.Guidance(err); ok {
		if rendered, renderErr := guide.Render("dark"); renderErr == nil {
			fmt.Fprint(w, rendered)
		}
	}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their own formatting; verbose mode adds the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
