// SPDX-License-Identifier: MPL-2.0

package emit

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/graphweave/graphweave/internal/partial"
)

// DefaultAggregatorName identifies the aggregator in comments when none is configured.
const DefaultAggregatorName = "graphweave"

type (
	// Ordered is a resolved, ordered set of partials.
	Ordered interface {
		Partials() []*partial.Partial
	}

	// Emitter writes aggregate documents. It is safe for concurrent use.
	Emitter struct {
		name string
		plan []SectionSpec
	}

	// Option configures an Emitter.
	Option func(*Emitter)
)

// WithAggregatorName sets the name written into header, provenance and footer comments.
func WithAggregatorName(name string) Option {
	return func(e *Emitter) {
		if name = strings.TrimSpace(name); name != "" {
			e.name = name
		}
	}
}

// WithPlan replaces the default section plan. An empty plan keeps the default.
func WithPlan(plan ...SectionSpec) Option {
	return func(e *Emitter) {
		if len(plan) > 0 {
			e.plan = slices.Clone(plan)
		}
	}
}

// New creates an Emitter.
func New(opts ...Option) *Emitter {
	e := &Emitter{name: DefaultAggregatorName, plan: DefaultPlan()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan returns a copy of the section plan.
func (e *Emitter) Plan() []SectionSpec {
	return slices.Clone(e.plan)
}

// Write emits the aggregate for sel to w.
func (e *Emitter) Write(w io.Writer, sel Ordered) error {
	partials := sel.Partials()
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "# Schema aggregated by %s\n", e.name); err != nil {
		return err
	}

	for _, spec := range e.plan {
		if err := e.writeSection(bw, partials, spec); err != nil {
			return fmt.Errorf("emit %s: %w", spec.Name, err)
		}
	}

	names := make([]string, len(partials))
	for i, p := range partials {
		names[i] = p.Name()
	}
	if _, err := fmt.Fprintf(bw, "\n# End of Schema aggregated from {%s} by %s\n", strings.Join(names, ","), e.name); err != nil {
		return err
	}
	return bw.Flush()
}

// writeSection copies one section kind from every partial that has it.
func (e *Emitter) writeSection(w io.Writer, partials []*partial.Partial, spec SectionSpec) error {
	opened := false
	for _, p := range partials {
		s, ok := p.Section(spec.Name)
		if !ok {
			continue
		}
		if spec.Wrap && !opened {
			if _, err := fmt.Fprintf(w, "\ntype %s {\n", Capitalize(spec.Name)); err != nil {
				return err
			}
			opened = true
		}
		if _, err := fmt.Fprintf(w, "\n# %s.source=%s\n", e.name, p.Name()); err != nil {
			return err
		}
		if err := copySection(w, s); err != nil {
			return fmt.Errorf("partial %s: %w", p.Name(), err)
		}
	}
	if opened {
		if _, err := io.WriteString(w, "\n}\n"); err != nil {
			return err
		}
	}
	return nil
}

func copySection(w io.Writer, s *partial.Section) error {
	rc, err := s.Open()
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck // read-only source
	_, err = io.Copy(w, rc)
	return err
}
