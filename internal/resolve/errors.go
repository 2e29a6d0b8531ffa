// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingPartials is the sentinel error wrapped by MissingPartialsError.
	ErrMissingPartials = errors.New("missing partials")
	// ErrRequirementsCycle is the sentinel error wrapped by RequirementsCycleError.
	ErrRequirementsCycle = errors.New("requirements cycle suspected")
	// ErrInvalidSelector is the sentinel error wrapped by InvalidSelectorError.
	ErrInvalidSelector = errors.New("invalid selector")
)

type (
	// MissingPartialsError lists selectors and requirements that named
	// partials absent from the registry.
	MissingPartialsError struct {
		// Names is sorted and free of duplicates.
		Names []string
	}

	// RequirementsCycleError is returned when following REQUIRES edges leads
	// back to a partial already on the current path, or goes deeper than the
	// resolver's depth ceiling.
	RequirementsCycleError struct {
		// Partial is the partial at which the traversal stopped.
		Partial string
		// Path is the chain of partial names that led to Partial, Partial included.
		Path []string
		// DepthExceeded is true when the ceiling tripped rather than an exact cycle.
		DepthExceeded bool
		// MaxDepth is the ceiling in force.
		MaxDepth int
	}

	// InvalidSelectorError is returned for a /regex/ selector that does not compile.
	InvalidSelectorError struct {
		Selector string
		Err      error
	}
)

// Error implements the error interface.
func (e *MissingPartialsError) Error() string {
	return fmt.Sprintf("missing partials: %s", strings.Join(e.Names, ", "))
}

// Unwrap returns ErrMissingPartials for errors.Is() compatibility.
func (e *MissingPartialsError) Unwrap() error { return ErrMissingPartials }

// Error implements the error interface.
func (e *RequirementsCycleError) Error() string {
	if e.DepthExceeded {
		return fmt.Sprintf("requirements cycle suspected at %s: depth exceeds %d (%s)",
			e.Partial, e.MaxDepth, strings.Join(e.Path, " -> "))
	}
	return fmt.Sprintf("requirements cycle detected at %s: %s", e.Partial, strings.Join(e.Path, " -> "))
}

// Unwrap returns ErrRequirementsCycle for errors.Is() compatibility.
func (e *RequirementsCycleError) Unwrap() error { return ErrRequirementsCycle }

// Error implements the error interface.
func (e *InvalidSelectorError) Error() string {
	return fmt.Sprintf("invalid selector %q: %v", e.Selector, e.Err)
}

// Unwrap returns ErrInvalidSelector for errors.Is() compatibility.
// The compile error stays reachable through the Err field.
func (e *InvalidSelectorError) Unwrap() error { return ErrInvalidSelector }
