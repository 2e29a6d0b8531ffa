// SPDX-License-Identifier: MPL-2.0

// Package registry publishes the set of known partials as immutable
// snapshots.
//
// Discovery (or any other provider source) hands a complete partial list to
// Publish; readers grab the current Snapshot once and use that reference for
// the rest of a request, so a concurrent republish never changes what an
// in-flight resolution sees.
package registry
