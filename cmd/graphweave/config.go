// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/internal/config"
	"github.com/graphweave/graphweave/internal/issue"
)

// newConfigCommand creates the `graphweave config` command tree.
func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage graphweave configuration",
		Long: `Manage graphweave configuration.

Configuration is read from the --config file, else from config.cue in:
  - Linux: $XDG_CONFIG_HOME/graphweave (default ~/.config/graphweave)
  - macOS: ~/Library/Application Support/graphweave
  - Windows: %APPDATA%\graphweave
and finally from ./config.cue. GRAPHWEAVE_* environment variables override
file values, e.g. GRAPHWEAVE_SERVER_ADDRESS.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app, flags, format)
		},
	}
	showCmd.Flags().StringVar(&format, "format", "cue", "output format: cue or toml")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file that would be read",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return showConfigPath(app, flags)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(app, flags, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *rootFlagValues, format string) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		return err
	}
	switch format {
	case "cue":
		_, err = fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
		return err
	case "toml":
		data, err := config.MarshalTOML(cfg)
		if err != nil {
			return err
		}
		_, err = app.stdout.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q: use cue or toml", format)
	}
}

func showConfigPath(app *App, flags *rootFlagValues) error {
	opts := app.loadOptions(flags)
	path, err := config.ResolvePath(opts)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintln(app.stdout, path)
		return nil
	}
	defaultPath, err := config.DefaultPath(opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.stdout, defaultPath)
	fmt.Fprintln(app.stderr, SubtitleStyle.Render("(file does not exist; built-in defaults are used)"))
	return nil
}

func initConfig(app *App, flags *rootFlagValues, force bool) error {
	path := flags.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(app.loadOptions(flags)); err != nil {
			return err
		}
	}
	written, err := config.WriteDefault(path, force)
	if errors.Is(err, config.ErrConfigFileExists) {
		return issue.NewErrorContext().
			WithOperation("write default config").
			WithResource(path).
			WithSuggestion("Pass --force to overwrite it").
			Wrap(err).
			BuildError()
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Wrote"), NameStyle.Render(written))
	return nil
}
