// SPDX-License-Identifier: MPL-2.0

package partial

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// headerPattern matches a section header line such as "QUERY:" or "REQUIRES : a, b".
var headerPattern = regexp.MustCompile(`^([A-Z]+) *:(.*)$`)

// scanner tracks the open section while Parse walks the source.
type scanner struct {
	partial  *Partial
	current  *Section
	lineBuf  []byte
	offset   int64
	lineFrom int64
}

// ParseNamed parses a partial whose name is derived from sourceID with
// NameFromSource. sourceID also becomes the partial's identity key.
func ParseNamed(sourceID string, src SourceFunc) (*Partial, error) {
	return Parse(NameFromSource(sourceID), sourceID, src)
}

// Parse reads the text returned by src once and records the byte range and
// description of every section. Content before the first header is ignored.
//
// It fails with a SyntaxError as soon as a section name repeats, and after
// the scan when no PARTIAL section was found.
func Parse(name, key string, src SourceFunc) (*Partial, error) {
	rc, err := src()
	if err != nil {
		return nil, fmt.Errorf("read partial %s: %w", name, err)
	}
	defer rc.Close() //nolint:errcheck // read-only source

	s := &scanner{
		partial: &Partial{
			name:     name,
			key:      key,
			sections: make(map[string]*Section),
			source:   src,
		},
	}

	r := bufio.NewReader(rc)
	for {
		b, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read partial %s: %w", name, err)
		}
		s.offset++
		if b != '\n' {
			s.lineBuf = append(s.lineBuf, b)
			continue
		}
		if err := s.endLine(); err != nil {
			return nil, err
		}
	}

	if s.offset > s.lineFrom {
		if err := s.endLine(); err != nil {
			return nil, err
		}
	}
	s.closeSection(s.offset)

	p := s.partial
	if _, ok := p.sections[SectionPartial]; !ok {
		return nil, &SyntaxError{Kind: MissingRequiredSection, Partial: name, Section: SectionPartial}
	}
	if req, ok := p.sections[SectionRequires]; ok {
		p.requires = splitRequires(req.description)
	}
	return p, nil
}

// endLine handles the line accumulated so far. s.offset already points past
// the line terminator, if there was one.
func (s *scanner) endLine() error {
	line := strings.TrimSuffix(string(s.lineBuf), "\r")
	lineStart := s.lineFrom
	s.lineBuf = s.lineBuf[:0]
	s.lineFrom = s.offset

	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}

	sectionName := strings.TrimSpace(m[1])
	if _, exists := s.partial.sections[sectionName]; exists {
		return &SyntaxError{Kind: DuplicateSection, Partial: s.partial.name, Section: sectionName}
	}

	s.closeSection(lineStart)
	s.current = &Section{
		name:        sectionName,
		description: strings.TrimSpace(m[2]),
		start:       s.offset,
		source:      s.partial.source,
	}
	s.partial.sections[sectionName] = s.current
	return nil
}

// closeSection ends the open section, if any, at end.
func (s *scanner) closeSection(end int64) {
	if s.current == nil {
		return
	}
	s.current.end = end
	s.current = nil
}
