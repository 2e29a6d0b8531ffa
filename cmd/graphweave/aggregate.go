// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newAggregateCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "aggregate <selector>...",
		Short: "Write the aggregate schema for the selected partials",
		Long: `Write the aggregate schema for the selected partials.

A selector is a partial name, or a Go regular expression between slashes
that must match a whole name. Every requirement of a selected partial is
included after it. Nothing is written if any name is missing or a
requirement cycle is found.`,
		Example: `  graphweave aggregate users
  graphweave aggregate '/billing.*/' users -o schema.graphql`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(cmd.Context(), app, flags, output, args)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the aggregate to this file instead of stdout")

	return cmd
}

func runAggregate(ctx context.Context, app *App, flags *rootFlagValues, output string, selectors []string) error {
	sess, err := app.openSession(ctx, flags)
	if err != nil {
		return err
	}
	if sess.registry.Snapshot().Len() == 0 {
		return noPartialsError(sess.cfg.Roots, sess.cfg.Patterns)
	}

	var buf bytes.Buffer
	report, err := sess.service.Aggregate(ctx, &buf, selectors...)
	if err != nil {
		return resolveError(err, selectors)
	}

	if output == "" {
		_, err = buf.WriteTo(app.stdout)
		return err
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	sess.logger.Info("Wrote aggregate", "path", output, "partials", len(report.Names), "bytes", report.Bytes)
	return nil
}
