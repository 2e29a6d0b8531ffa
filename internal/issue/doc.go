// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. The Issue catalog adds longer Markdown guidance that the
// CLI renders with glamour when a command fails in verbose mode.
package issue
