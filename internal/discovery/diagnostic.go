// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"

	"github.com/graphweave/graphweave/internal/partial"
)

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"

	// CodeRootScanFailed reports a root that does not exist or could not be walked.
	CodeRootScanFailed DiagnosticCode = "root_scan_failed"
	// CodePartialParseSkipped reports a file that was skipped because it is not a valid partial.
	CodePartialParseSkipped DiagnosticCode = "partial_parse_skipped"
	// CodePartialNameCollision reports a later file whose name was already taken; the first one wins.
	CodePartialNameCollision DiagnosticCode = "partial_name_collision"
	// CodeRequirementUnresolved reports a REQUIRES entry naming no discovered partial.
	CodeRequirementUnresolved DiagnosticCode = "requirement_unresolved"
	// CodeRequirementCycle reports partials that require each other.
	CodeRequirementCycle DiagnosticCode = "requirement_cycle"
	// CodeRequirementTooDeep reports a requirement chain longer than the resolver ceiling.
	CodeRequirementTooDeep DiagnosticCode = "requirement_too_deep"
)

var (
	// ErrInvalidSeverity is returned when a Severity value is not recognized.
	ErrInvalidSeverity = errors.New("invalid diagnostic severity")
	// ErrInvalidDiagnosticCode is returned when a DiagnosticCode value is not recognized.
	ErrInvalidDiagnosticCode = errors.New("invalid diagnostic code")
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// DiagnosticCode is a machine-readable diagnostic identifier.
	DiagnosticCode string

	// Diagnostic represents a structured discovery diagnostic that is returned
	// to callers (rather than written to stderr) for consistent rendering policy.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "partial_parse_skipped").
		Code DiagnosticCode
		// Message is the human-readable description.
		Message string
		// Path is the file path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}

	// Result bundles the discovered partials with diagnostics produced during
	// the scan. Partials are in scan order and have unique names.
	Result struct {
		Partials    []*partial.Partial
		Diagnostics []Diagnostic
	}
)

// IsValid returns whether the Severity is one of the defined severities.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityWarning, SeverityError:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrInvalidSeverity, string(s))}
	}
}

// IsValid returns whether the DiagnosticCode is one of the defined codes.
func (c DiagnosticCode) IsValid() (bool, []error) {
	switch c {
	case CodeRootScanFailed, CodePartialParseSkipped, CodePartialNameCollision,
		CodeRequirementUnresolved, CodeRequirementCycle, CodeRequirementTooDeep:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrInvalidDiagnosticCode, string(c))}
	}
}

// HasErrors reports whether any diagnostic has error severity.
func (r Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics with the given code.
func (r Result) Count(code DiagnosticCode) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Code == code {
			n++
		}
	}
	return n
}
