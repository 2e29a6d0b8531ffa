// SPDX-License-Identifier: MPL-2.0

package partial

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type (
	// SourceFunc opens a fresh reader over the complete text of a partial.
	// It is called once while parsing and once per Section.Open afterwards,
	// so it must return an independent reader on every call.
	SourceFunc func() (io.ReadCloser, error)

	// boundedReader limits reads to one section of a reopened source and
	// closes the underlying source when done.
	boundedReader struct {
		io.Reader
		closer io.Closer
	}
)

// FileSource returns a SourceFunc that opens path on each call.
func FileSource(path string) SourceFunc {
	return func() (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open partial source %s: %w", path, err)
		}
		return f, nil
	}
}

// StringSource returns a SourceFunc over an in-memory text.
func StringSource(text string) SourceFunc {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(text)), nil
	}
}

// Close closes the underlying source.
func (b *boundedReader) Close() error {
	return b.closer.Close()
}

// openRange reopens src and returns a reader restricted to [start, start+length).
func openRange(src SourceFunc, start, length int64) (io.ReadCloser, error) {
	rc, err := src()
	if err != nil {
		return nil, err
	}

	if seeker, ok := rc.(io.Seeker); ok {
		if _, err := seeker.Seek(start, io.SeekStart); err != nil {
			rc.Close() //nolint:errcheck // best-effort cleanup
			return nil, fmt.Errorf("seek to section start %d: %w", start, err)
		}
	} else if start > 0 {
		skipped, err := io.CopyN(io.Discard, rc, start)
		if err != nil {
			rc.Close() //nolint:errcheck // best-effort cleanup
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("source shorter than section start (%d < %d): %w", skipped, start, io.ErrUnexpectedEOF)
			}
			return nil, fmt.Errorf("skip to section start %d: %w", start, err)
		}
	}

	return &boundedReader{Reader: io.LimitReader(rc, length), closer: rc}, nil
}
