// SPDX-License-Identifier: MPL-2.0

// Package resolve turns partial selectors into an ordered, deduplicated and
// requirement-closed selection of partials.
//
// A selector is either a literal partial name or a "/regex/" pattern matched
// in full against every registry key. Partials are appended in the order they
// are first reached; requirements follow the partial that named them. The
// traversal tracks the current ancestor path to report exact requirement
// cycles, and keeps a depth ceiling as a second guard against runaway chains.
package resolve
