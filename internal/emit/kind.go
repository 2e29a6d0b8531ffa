// SPDX-License-Identifier: MPL-2.0

package emit

import (
	"errors"
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"
)

const (
	// KindCustom is any section name outside the built-in set.
	KindCustom Kind = iota
	// KindPrologue holds schema-level declarations emitted first, unwrapped.
	KindPrologue
	// KindQuery holds Query fields, wrapped in a "type Query" block.
	KindQuery
	// KindMutation holds Mutation fields, wrapped in a "type Mutation" block.
	KindMutation
	// KindTypes holds standalone type definitions, unwrapped.
	KindTypes
)

// ErrInvalidSectionSpec is the sentinel error wrapped by InvalidSectionSpecError.
var ErrInvalidSectionSpec = errors.New("invalid section spec")

var sectionNamePattern = regexp.MustCompile(`^[A-Z]+$`)

type (
	// Kind identifies a section kind and its wrapping policy.
	Kind int

	// SectionSpec is one step of an emission plan.
	SectionSpec struct {
		// Name is the section name looked up in every partial.
		Name string
		// Kind is derived from Name for built-in sections.
		Kind Kind
		// Wrap encloses the contributions in a "type <Name> {" block.
		Wrap bool
	}

	// InvalidSectionSpecError is returned when a configured section spec has
	// a name that can never appear as a section header.
	InvalidSectionSpecError struct {
		Name string
	}
)

// String returns the section name of a built-in kind.
func (k Kind) String() string {
	switch k {
	case KindPrologue:
		return "PROLOGUE"
	case KindQuery:
		return "QUERY"
	case KindMutation:
		return "MUTATION"
	case KindTypes:
		return "TYPES"
	default:
		return "custom"
	}
}

// Wrapped reports the default wrapping policy of the kind.
func (k Kind) Wrapped() bool {
	return k == KindQuery || k == KindMutation
}

// KindOf maps a section name to its kind.
func KindOf(name string) Kind {
	for _, k := range []Kind{KindPrologue, KindQuery, KindMutation, KindTypes} {
		if k.String() == name {
			return k
		}
	}
	return KindCustom
}

// Spec returns the plan step for a built-in kind with its default policy.
func Spec(k Kind) SectionSpec {
	return SectionSpec{Name: k.String(), Kind: k, Wrap: k.Wrapped()}
}

// NewSectionSpec builds a plan step for an arbitrary section name.
func NewSectionSpec(name string, wrap bool) (SectionSpec, error) {
	if !sectionNamePattern.MatchString(name) {
		return SectionSpec{}, &InvalidSectionSpecError{Name: name}
	}
	return SectionSpec{Name: name, Kind: KindOf(name), Wrap: wrap}, nil
}

// DefaultPlan returns PROLOGUE, QUERY, MUTATION and TYPES with their default policies.
func DefaultPlan() []SectionSpec {
	return []SectionSpec{Spec(KindPrologue), Spec(KindQuery), Spec(KindMutation), Spec(KindTypes)}
}

// Error implements the error interface.
func (e *InvalidSectionSpecError) Error() string {
	return fmt.Sprintf("invalid section name %q: must be upper-case letters only", e.Name)
}

// Unwrap returns ErrInvalidSectionSpec for errors.Is() compatibility.
func (e *InvalidSectionSpecError) Unwrap() error { return ErrInvalidSectionSpec }

// Capitalize upper-cases the first character and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	out := make([]rune, 0, len(s))
	out = append(out, unicode.ToUpper(first))
	for _, r := range s[size:] {
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}
