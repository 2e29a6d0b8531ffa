// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"strings"

	"github.com/graphweave/graphweave/internal/issue"
	"github.com/graphweave/graphweave/internal/resolve"
)

// noPartialsError reports an empty registry after discovery.
func noPartialsError(roots, patterns []string) error {
	return issue.NewErrorContext().
		WithOperation("find partials").
		WithResource(strings.Join(roots, ", ")).
		WithSuggestions(
			"Check that --root or the roots config entry points at your partial directories",
			"Check that file names match "+strings.Join(patterns, ", "),
		).
		WithIssue(issue.NoPartialsFoundId).
		BuildError()
}

// resolveError attaches guidance to resolver failures.
func resolveError(err error, selectors []string) error {
	ctx := issue.NewErrorContext().
		WithOperation("aggregate partials").
		WithResource(strings.Join(selectors, " ")).
		Wrap(err)

	switch {
	case errors.Is(err, resolve.ErrMissingPartials):
		ctx.WithIssue(issue.PartialsMissingId).
			WithSuggestion("Run 'graphweave list' to see the partials that were discovered")
	case errors.Is(err, resolve.ErrRequirementsCycle):
		ctx.WithIssue(issue.RequirementsCycleId).
			WithSuggestion("Run 'graphweave check' to see the requirement graph problems")
	case errors.Is(err, resolve.ErrInvalidSelector):
		ctx.WithIssue(issue.InvalidSelectorId).
			WithSuggestion("Regex selectors use Go RE2 syntax between slashes, e.g. '/user.*/'")
	default:
		return err
	}
	return ctx.BuildError()
}
