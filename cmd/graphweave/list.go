// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/internal/partial"
)

func newListCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered partials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), app, flags)
		},
	}
}

func runList(ctx context.Context, app *App, flags *rootFlagValues) error {
	sess, err := app.openSession(ctx, flags)
	if err != nil {
		return err
	}
	snap := sess.registry.Snapshot()
	if snap.Len() == 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("No partials found in "+strings.Join(sess.cfg.Roots, ", ")))
		return nil
	}

	header := []string{"NAME", "SECTIONS", "REQUIRES", "SOURCE"}
	rows := make([][]string, 0, snap.Len())
	for _, p := range snap.Partials() {
		rows = append(rows, []string{
			p.Name(),
			strings.Join(contentSections(p), ","),
			strings.Join(p.RequiredNames(), ","),
			p.Key(),
		})
	}

	fmt.Fprintln(app.stdout, renderTable(header, rows))
	fmt.Fprintln(app.stdout, SubtitleStyle.Render(fmt.Sprintf("%d partials (generation %d)", snap.Len(), snap.Generation())))
	return nil
}

// contentSections drops the bookkeeping sections from a partial's section names.
func contentSections(p *partial.Partial) []string {
	return slices.DeleteFunc(p.SectionNames(), func(name string) bool {
		return name == partial.SectionPartial || name == partial.SectionRequires
	})
}

// renderTable pads every column to its widest cell. The first column is
// highlighted.
func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	// PaddingRight(2) is part of the style width.
	lines := make([]string, 0, len(rows)+1)
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = tableHeaderStyle.Width(widths[i] + 2).Render(h)
	}
	lines = append(lines, strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " "))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := tableCellStyle
			if i == 0 {
				style = style.Foreground(ColorHighlight)
			}
			cells[i] = style.Width(widths[i] + 2).Render(cell)
		}
		lines = append(lines, strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " "))
	}
	return strings.Join(lines, "\n")
}
