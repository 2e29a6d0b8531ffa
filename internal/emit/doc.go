// SPDX-License-Identifier: MPL-2.0

// Package emit writes the aggregate schema document for a resolved selection
// of partials.
//
// The document is built one section kind at a time, following a plan. Each
// contributing partial is preceded by a provenance comment. Wrapped kinds
// (QUERY, MUTATION) are enclosed in a "type Query {" style block that is
// only opened when at least one partial contributes.
package emit
