// SPDX-License-Identifier: MPL-2.0

// Package discovery finds partial files below the configured roots and parses
// them into a partial set ready for registry publication.
//
// Problems that affect single files (unparseable partials, name collisions,
// dangling or cyclic requirements) never fail a scan. They are returned as
// Diagnostics for the CLI layer to render, and the offending file is either
// skipped or kept as documented on each DiagnosticCode.
package discovery
