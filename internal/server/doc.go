// SPDX-License-Identifier: MPL-2.0

// Package server exposes aggregates over HTTP.
//
// A Server is single-use: it moves through created, starting, running,
// stopping and stopped (or failed), and a stopped server cannot be restarted.
// Rendered aggregates are cached per registry generation, so publishing a
// new snapshot never serves stale output.
package server
