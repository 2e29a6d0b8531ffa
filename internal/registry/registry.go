// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/graphweave/graphweave/internal/partial"
	"github.com/graphweave/graphweave/internal/resolve"
)

var (
	_ resolve.Lookup = (*Snapshot)(nil)
	_ Provider       = (*partial.Partial)(nil)
)

type (
	// Provider is the handle the registry exposes for one partial source.
	Provider interface {
		Name() string
		// OpenSectionContent opens one section; the error wraps
		// partial.ErrSectionNotFound when the section does not exist.
		OpenSectionContent(section string) (io.ReadCloser, error)
		OpenBodyContent() (io.ReadCloser, error)
	}

	// Snapshot is an immutable name -> partial mapping.
	Snapshot struct {
		generation uint64
		byName     map[string]*partial.Partial
		keys       []string
	}

	// Registry holds the current Snapshot. It is safe for concurrent use.
	Registry struct {
		current atomic.Pointer[Snapshot]
		nextGen atomic.Uint64
		logger  *log.Logger
	}

	// Option configures a Registry.
	Option func(*Registry)

	// DuplicateNameError is returned by Publish when two partials share a name.
	DuplicateNameError struct {
		Name   string
		First  string
		Second string
	}
)

// WithLogger sets the logger used for publication events.
func WithLogger(logger *log.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Registry holding an empty snapshot at generation 0.
func New(opts ...Option) *Registry {
	r := &Registry{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(&Snapshot{byName: map[string]*partial.Partial{}})
	return r
}

// Snapshot returns the currently published snapshot.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Publish replaces the current snapshot with one holding partials, keyed by
// name. Names must be unique; callers resolve collisions beforehand.
func (r *Registry) Publish(partials []*partial.Partial) (*Snapshot, error) {
	byName := make(map[string]*partial.Partial, len(partials))
	for _, p := range partials {
		if prev, ok := byName[p.Name()]; ok {
			return nil, &DuplicateNameError{Name: p.Name(), First: prev.Key(), Second: p.Key()}
		}
		byName[p.Name()] = p
	}

	keys := make([]string, 0, len(byName))
	for name := range byName {
		keys = append(keys, name)
	}
	slices.Sort(keys)

	snap := &Snapshot{
		generation: r.nextGen.Add(1),
		byName:     byName,
		keys:       keys,
	}
	r.current.Store(snap)
	r.logger.Info("Published partial registry", "generation", snap.generation, "partials", len(keys))
	return snap, nil
}

// Error implements the error interface.
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate partial name %q: %s and %s", e.Name, e.First, e.Second)
}

// Generation identifies the publication; later publications have larger values.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Len returns the number of partials.
func (s *Snapshot) Len() int { return len(s.keys) }

// Get implements resolve.Lookup.
func (s *Snapshot) Get(name string) (*partial.Partial, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Keys implements resolve.Lookup. The result is sorted.
func (s *Snapshot) Keys() []string {
	return slices.Clone(s.keys)
}

// Partials returns all partials ordered by name.
func (s *Snapshot) Partials() []*partial.Partial {
	out := make([]*partial.Partial, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.byName[k]
	}
	return out
}

// Provider returns the provider handle registered under name.
func (s *Snapshot) Provider(name string) (Provider, bool) {
	p, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return p, true
}

// Entries returns (name, provider) pairs ordered by name.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.keys))
	for i, k := range s.keys {
		out[i] = Entry{Name: k, Provider: s.byName[k]}
	}
	return out
}

// Entry pairs a registry key with its provider.
type Entry struct {
	Name     string
	Provider Provider
}

// Describe returns a one-line summary for logs.
func (s *Snapshot) Describe() string {
	return fmt.Sprintf("generation %d: [%s]", s.generation, strings.Join(s.keys, ", "))
}
