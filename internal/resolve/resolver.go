// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/graphweave/graphweave/internal/partial"
)

// DefaultMaxDepth is the requirement nesting ceiling used when none is configured.
const DefaultMaxDepth = 5

type (
	// Resolver computes selections. It holds no per-call state and is safe
	// for concurrent use.
	Resolver struct {
		maxDepth int
	}

	// Option configures a Resolver.
	Option func(*Resolver)

	// walk is the state of one Select call.
	walk struct {
		reg      Lookup
		missing  map[string]struct{}
		sel      *Selection
		maxDepth int
	}
)

// WithMaxDepth sets the requirement nesting ceiling. Values below 1 keep the default.
func WithMaxDepth(depth int) Option {
	return func(r *Resolver) {
		if depth >= 1 {
			r.maxDepth = depth
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxDepth returns the configured nesting ceiling.
func (r *Resolver) MaxDepth() int { return r.maxDepth }

// Resolve runs Select and fails with a MissingPartialsError when any
// selector or requirement could not be found.
func (r *Resolver) Resolve(reg Lookup, selectors ...string) (*Selection, error) {
	missing := make(map[string]struct{})
	sel, err := r.Select(reg, missing, selectors...)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		slices.Sort(names)
		return nil, &MissingPartialsError{Names: names}
	}
	return sel, nil
}

// Select walks selectors in order and returns the partials they reach.
// Names that cannot be found are added to missing and skipped; callers must
// treat a non-empty missing set as a failed resolution.
func (r *Resolver) Select(reg Lookup, missing map[string]struct{}, selectors ...string) (*Selection, error) {
	w := &walk{
		reg:      reg,
		missing:  missing,
		sel:      newSelection(),
		maxDepth: r.maxDepth,
	}

	for _, raw := range selectors {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}

		if expr, ok := regexSelector(token); ok {
			matches, err := w.matchKeys(token, expr)
			if err != nil {
				return nil, err
			}
			for _, p := range matches {
				if err := w.add(p, 1, nil); err != nil {
					return nil, err
				}
			}
			continue
		}

		p, ok := reg.Get(token)
		if !ok {
			w.missing[token] = struct{}{}
			continue
		}
		if err := w.add(p, 1, nil); err != nil {
			return nil, err
		}
	}

	return w.sel, nil
}

// regexSelector reports whether token has the /regex/ form and returns the
// enclosed expression.
func regexSelector(token string) (string, bool) {
	if len(token) < 2 || !strings.HasPrefix(token, "/") || !strings.HasSuffix(token, "/") {
		return "", false
	}
	return token[1 : len(token)-1], true
}

// matchKeys returns the partials whose key fully matches expr, ordered by
// partial name.
func (w *walk) matchKeys(selector, expr string) ([]*partial.Partial, error) {
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, &InvalidSelectorError{Selector: selector, Err: err}
	}

	var matches []*partial.Partial
	for _, key := range w.reg.Keys() {
		if !re.MatchString(key) {
			continue
		}
		if p, ok := w.reg.Get(key); ok {
			matches = append(matches, p)
		}
	}
	slices.SortStableFunc(matches, func(a, b *partial.Partial) int {
		return cmp.Or(cmp.Compare(a.Name(), b.Name()), cmp.Compare(a.Key(), b.Key()))
	})
	return matches, nil
}

// add inserts p and, recursively, its requirements. path holds the
// ancestors of p in the current traversal.
func (w *walk) add(p *partial.Partial, level int, path []*partial.Partial) error {
	for _, ancestor := range path {
		if ancestor.Equal(p) {
			return &RequirementsCycleError{Partial: p.Name(), Path: pathNames(path, p), MaxDepth: w.maxDepth}
		}
	}
	if level > w.maxDepth {
		return &RequirementsCycleError{Partial: p.Name(), Path: pathNames(path, p), DepthExceeded: true, MaxDepth: w.maxDepth}
	}

	// Revisits keep their first position but still walk requirements.
	w.sel.add(p)

	childPath := append(slices.Clip(path), p)
	for _, name := range p.RequiredNames() {
		req, ok := w.reg.Get(name)
		if !ok {
			w.missing[name] = struct{}{}
			continue
		}
		if err := w.add(req, level+1, childPath); err != nil {
			return err
		}
	}
	return nil
}

func pathNames(path []*partial.Partial, last *partial.Partial) []string {
	names := make([]string, 0, len(path)+1)
	for _, p := range path {
		names = append(names, p.Name())
	}
	return append(names, last.Name())
}
