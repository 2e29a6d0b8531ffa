// SPDX-License-Identifier: MPL-2.0

// Package partial parses schema partials: small line-oriented text files split
// into named sections by header lines such as "QUERY:" or "REQUIRES: a, b".
//
// A parsed Partial keeps only section boundaries and a SourceFunc that reopens
// the original text, so section content can be read any number of times
// without the whole document being held in memory.
package partial
