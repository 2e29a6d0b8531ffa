// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"slices"

	"github.com/graphweave/graphweave/internal/partial"
)

type (
	// Lookup is the read-only registry view a resolution runs against.
	// Implementations must not change while a resolution is in progress.
	Lookup interface {
		// Get returns the partial registered under key.
		Get(key string) (*partial.Partial, bool)
		// Keys returns every registered key.
		Keys() []string
	}

	// MapLookup adapts a plain map to Lookup.
	MapLookup map[string]*partial.Partial

	// Selection is the insertion-ordered, duplicate-free result of one
	// resolution. Identity is the partial key.
	Selection struct {
		partials []*partial.Partial
		index    map[string]int
	}
)

// Get implements Lookup.
func (m MapLookup) Get(key string) (*partial.Partial, bool) {
	p, ok := m[key]
	return p, ok
}

// Keys implements Lookup.
func (m MapLookup) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func newSelection() *Selection {
	return &Selection{index: make(map[string]int)}
}

// add appends p unless a partial with the same key is already present.
// It reports whether p was inserted.
func (s *Selection) add(p *partial.Partial) bool {
	if _, ok := s.index[p.Key()]; ok {
		return false
	}
	s.index[p.Key()] = len(s.partials)
	s.partials = append(s.partials, p)
	return true
}

// Partials returns the selected partials in resolution order.
func (s *Selection) Partials() []*partial.Partial {
	return slices.Clone(s.partials)
}

// Names returns the names of the selected partials in resolution order.
func (s *Selection) Names() []string {
	names := make([]string, len(s.partials))
	for i, p := range s.partials {
		names[i] = p.Name()
	}
	return names
}

// Len returns the number of selected partials.
func (s *Selection) Len() int { return len(s.partials) }

// Contains reports whether p is part of the selection.
func (s *Selection) Contains(p *partial.Partial) bool {
	_, ok := s.index[p.Key()]
	return ok
}
