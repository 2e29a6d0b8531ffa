// SPDX-License-Identifier: MPL-2.0

package partial

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// SectionPartial is the section every partial must declare.
	SectionPartial = "PARTIAL"
	// SectionRequires lists, in its description, the partials this one depends on.
	SectionRequires = "REQUIRES"
)

const (
	// MissingRequiredSection reports a partial without a PARTIAL header.
	MissingRequiredSection SyntaxErrorKind = iota + 1
	// DuplicateSection reports a section header that appears twice.
	DuplicateSection
)

var (
	// ErrSyntax is the sentinel error wrapped by SyntaxError.
	ErrSyntax = errors.New("partial syntax error")
	// ErrSectionNotFound is returned when a requested section does not exist.
	ErrSectionNotFound = errors.New("section not found")
)

type (
	// SyntaxErrorKind classifies a SyntaxError.
	SyntaxErrorKind int

	// SyntaxError is returned when partial text violates the section format.
	// It wraps ErrSyntax for errors.Is() compatibility.
	SyntaxError struct {
		Kind    SyntaxErrorKind
		Partial string
		Section string
	}

	// Section is a named, header-delimited byte range of a partial's source.
	Section struct {
		name        string
		description string
		start       int64
		end         int64
		source      SourceFunc
	}

	// Partial is the parsed form of one partial source. It is immutable once
	// returned by Parse.
	Partial struct {
		name     string
		key      string
		sections map[string]*Section
		requires []string
		source   SourceFunc
	}
)

// String returns a short name for the kind.
func (k SyntaxErrorKind) String() string {
	switch k {
	case MissingRequiredSection:
		return "missing required section"
	case DuplicateSection:
		return "duplicate section"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("partial %q: %s %s", e.Partial, e.Kind, e.Section)
}

// Unwrap returns ErrSyntax for errors.Is() compatibility.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Name returns the section name, e.g. "QUERY".
func (s *Section) Name() string { return s.name }

// Description returns the trimmed text that followed the colon on the header line.
func (s *Section) Description() string { return s.description }

// Len returns the length of the section body in bytes.
func (s *Section) Len() int64 { return s.end - s.start }

// Open returns a new reader over exactly this section's body. The caller
// must close it.
func (s *Section) Open() (io.ReadCloser, error) {
	rc, err := openRange(s.source, s.start, s.end-s.start)
	if err != nil {
		return nil, fmt.Errorf("open section %s: %w", s.name, err)
	}
	return rc, nil
}

// Name returns the partial name.
func (p *Partial) Name() string { return p.name }

// Key returns the identity of the partial: the source it was loaded from.
// Two partials are the same partial iff their keys are equal.
func (p *Partial) Key() string { return p.key }

// Equal reports whether p and other identify the same partial.
func (p *Partial) Equal(other *Partial) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.key == other.key
}

// Section looks up a section by name.
func (p *Partial) Section(name string) (*Section, bool) {
	s, ok := p.sections[name]
	return s, ok
}

// SectionNames returns the names of all sections in lexical order.
func (p *Partial) SectionNames() []string {
	names := make([]string, 0, len(p.sections))
	for name := range p.sections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RequiredNames returns the partial names listed in the REQUIRES section,
// or nil when the partial has none.
func (p *Partial) RequiredNames() []string {
	return slices.Clone(p.requires)
}

// OpenSectionContent opens the body of the named section. The error wraps
// ErrSectionNotFound when the partial has no such section.
func (p *Partial) OpenSectionContent(section string) (io.ReadCloser, error) {
	s, ok := p.sections[section]
	if !ok {
		return nil, fmt.Errorf("partial %s: %w: %s", p.name, ErrSectionNotFound, section)
	}
	return s.Open()
}

// OpenBodyContent opens the complete source text of the partial.
func (p *Partial) OpenBodyContent() (io.ReadCloser, error) {
	return p.source()
}

// NameFromSource derives a partial name from a source identifier such as a
// file path: the last path element without its extension. A leading dot is
// not treated as an extension separator.
func NameFromSource(id string) string {
	name := id
	if i := strings.LastIndexAny(name, "/"+string(filepath.Separator)); i >= 0 {
		name = name[i+1:]
	}
	if dot := strings.LastIndex(name, "."); dot > 0 {
		name = name[:dot]
	}
	return name
}

// splitRequires turns a REQUIRES description into trimmed partial names.
func splitRequires(description string) []string {
	var names []string
	for _, token := range strings.Split(description, ",") {
		if token = strings.TrimSpace(token); token != "" {
			names = append(names, token)
		}
	}
	return names
}
