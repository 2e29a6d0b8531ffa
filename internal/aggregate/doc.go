// SPDX-License-Identifier: MPL-2.0

// Package aggregate composes a registry snapshot, the resolver and the
// emitter into a single operation used by the CLI and the HTTP server.
package aggregate
