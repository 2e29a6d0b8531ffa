// SPDX-License-Identifier: MPL-2.0

// Package watch monitors partial roots and fires a debounced callback when
// partial files appear, change or disappear.
//
// Events within the debounce window are coalesced so the callback fires once
// with the full set of changed paths. Callbacks never overlap: a burst that
// arrives while one is running is retried after the next quiet period.
package watch
