// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/internal/dag"
	"github.com/graphweave/graphweave/internal/discovery"
)

func newCheckCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report discovery problems and the requirement order",
		Long: `Scan the configured roots and report files that are not valid partials,
name collisions, unresolved requirements and requirement cycles.

Exits with status 1 when an error-level problem is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), app, flags)
		},
	}
}

func runCheck(ctx context.Context, app *App, flags *rootFlagValues) error {
	sess, err := app.openSession(ctx, flags)
	if err != nil {
		return err
	}
	snap := sess.registry.Snapshot()

	fmt.Fprintf(app.stdout, "%s %d partials in %s\n",
		TitleStyle.Render("Checked"), snap.Len(), strings.Join(sess.cfg.Roots, ", "))

	for _, d := range sess.result.Diagnostics {
		fmt.Fprintln(app.stdout, formatDiagnostic(d))
	}

	order, sortErr := dag.FromPartials(snap.Partials()).TopologicalSort()
	var cycleErr *dag.CycleError
	switch {
	case errors.As(sortErr, &cycleErr):
		// Already reported as a requirement_cycle diagnostic.
	case sortErr != nil:
		return sortErr
	case len(order) > 0:
		fmt.Fprintf(app.stdout, "\n%s %s\n", SubtitleStyle.Render("Requirement order:"), strings.Join(order, " "))
	}

	if sess.result.HasErrors() {
		return &ExitError{Code: 1}
	}
	if len(sess.result.Diagnostics) == 0 {
		fmt.Fprintln(app.stdout, SuccessStyle.Render("✓ no problems found"))
	}
	return nil
}

func formatDiagnostic(d discovery.Diagnostic) string {
	label := WarningStyle.Render("warning")
	if d.Severity == discovery.SeverityError {
		label = ErrorStyle.Render("error")
	}
	return fmt.Sprintf("%s %s %s", label, SubtitleStyle.Render("["+string(d.Code)+"]"), d.Message)
}
