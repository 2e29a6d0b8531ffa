// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/internal/partial"
	"github.com/graphweave/graphweave/internal/registry"
	"github.com/graphweave/graphweave/internal/resolve"
)

func newDescribeCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "describe <name>",
		Short: "Describe one partial: sections, requirements and resolved order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd.Context(), app, flags, args[0], raw)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the Markdown source instead of rendering it")

	return cmd
}

func runDescribe(ctx context.Context, app *App, flags *rootFlagValues, name string, raw bool) error {
	sess, err := app.openSession(ctx, flags)
	if err != nil {
		return err
	}
	snap := sess.registry.Snapshot()
	p, ok := snap.Get(name)
	if !ok {
		return resolveError(&resolve.MissingPartialsError{Names: []string{name}}, []string{name})
	}

	order, orderErr := sess.resolveOrder(name)
	md := describeMarkdown(p, snap, order, orderErr)
	if raw {
		_, err := fmt.Fprint(app.stdout, md)
		return err
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("render description: %w", err)
	}
	_, err = fmt.Fprint(app.stdout, out)
	return err
}

// resolveOrder returns the aggregate order for name.
func (s *session) resolveOrder(name string) ([]string, error) {
	sel, _, err := s.service.Resolve(name)
	if err != nil {
		return nil, err
	}
	return sel.Names(), nil
}

func describeMarkdown(p *partial.Partial, snap *registry.Snapshot, order []string, orderErr error) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", p.Name())
	if s, ok := p.Section(partial.SectionPartial); ok && s.Description() != "" {
		fmt.Fprintf(&sb, "%s\n\n", s.Description())
	}
	fmt.Fprintf(&sb, "Source: `%s`\n\n", p.Key())

	sb.WriteString("## Sections\n\n")
	for _, name := range contentSections(p) {
		s, _ := p.Section(name)
		if s.Description() != "" {
			fmt.Fprintf(&sb, "- **%s**: %s\n", name, s.Description())
		} else {
			fmt.Fprintf(&sb, "- **%s**\n", name)
		}
	}
	if len(contentSections(p)) == 0 {
		sb.WriteString("_none_\n")
	}

	sb.WriteString("\n## Requires\n\n")
	writeNameList(&sb, p.RequiredNames(), snap)

	sb.WriteString("\n## Required by\n\n")
	var dependents []string
	for _, other := range snap.Partials() {
		if slices.Contains(other.RequiredNames(), p.Name()) {
			dependents = append(dependents, other.Name())
		}
	}
	writeNameList(&sb, dependents, snap)

	sb.WriteString("\n## Aggregate order\n\n")
	if orderErr != nil {
		fmt.Fprintf(&sb, "Cannot be aggregated: %s\n", orderErr)
	} else {
		for i, name := range order {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, name)
		}
	}
	return sb.String()
}

func writeNameList(sb *strings.Builder, names []string, snap *registry.Snapshot) {
	if len(names) == 0 {
		sb.WriteString("_none_\n")
		return
	}
	for _, name := range names {
		if _, ok := snap.Get(name); ok {
			fmt.Fprintf(sb, "- %s\n", name)
		} else {
			fmt.Fprintf(sb, "- %s (missing)\n", name)
		}
	}
}
