// SPDX-License-Identifier: MPL-2.0

package partial

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func readSection(t *testing.T, p *Partial, name string) string {
	t.Helper()
	s, ok := p.Section(name)
	if !ok {
		t.Fatalf("section %s not found in %v", name, p.SectionNames())
	}
	rc, err := s.Open()
	if err != nil {
		t.Fatalf("Open(%s) error: %v", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll(%s) error: %v", name, err)
	}
	return string(data)
}

func TestParse_SectionsRoundTrip(t *testing.T) {
	t.Parallel()

	text := "ignored preamble\n" +
		"PARTIAL: Example partial, with a comma\n" +
		"This is the partial body\n" +
		"REQUIRES: a, b ,, c\n" +
		"QUERY:\n" +
		"  hello: String\n" +
		"  world: Int\n" +
		"TYPES : the types\n" +
		"type Foo { id: ID }\n"

	p, err := Parse("example", "mem:example", StringSource(text))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	tests := []struct {
		name        string
		description string
		content     string
	}{
		{"PARTIAL", "Example partial, with a comma", "This is the partial body\n"},
		{"REQUIRES", "a, b ,, c", ""},
		{"QUERY", "", "  hello: String\n  world: Int\n"},
		{"TYPES", "the types", "type Foo { id: ID }\n"},
	}

	for _, tt := range tests {
		s, ok := p.Section(tt.name)
		if !ok {
			t.Fatalf("missing section %s", tt.name)
		}
		if s.Description() != tt.description {
			t.Errorf("%s description = %q, want %q", tt.name, s.Description(), tt.description)
		}
		if got := readSection(t, p, tt.name); got != tt.content {
			t.Errorf("%s content = %q, want %q", tt.name, got, tt.content)
		}
	}

	if want := []string{"PARTIAL", "QUERY", "REQUIRES", "TYPES"}; !slices.Equal(p.SectionNames(), want) {
		t.Errorf("SectionNames() = %v, want %v", p.SectionNames(), want)
	}
	if want := []string{"a", "b", "c"}; !slices.Equal(p.RequiredNames(), want) {
		t.Errorf("RequiredNames() = %v, want %v", p.RequiredNames(), want)
	}
}

func TestParse_SectionsAreReReadable(t *testing.T) {
	t.Parallel()

	p, err := Parse("x", "x", StringSource("PARTIAL: x\nTYPES:\ntype X {}\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	first := readSection(t, p, "TYPES")
	second := readSection(t, p, "TYPES")
	if first != second || first != "type X {}\n" {
		t.Errorf("re-read mismatch: %q vs %q", first, second)
	}
}

func TestParse_NoTrailingNewline(t *testing.T) {
	t.Parallel()

	p, err := Parse("x", "x", StringSource("PARTIAL: x\nTYPES:\ntype X {}"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := readSection(t, p, "TYPES"); got != "type X {}" {
		t.Errorf("TYPES = %q", got)
	}

	p, err = Parse("y", "y", StringSource("TYPES:\ntype Y {}\nPARTIAL: last"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := readSection(t, p, "PARTIAL"); got != "" {
		t.Errorf("PARTIAL body = %q, want empty", got)
	}
	if s, _ := p.Section("PARTIAL"); s.Description() != "last" {
		t.Errorf("PARTIAL description = %q", s.Description())
	}
}

func TestParse_CRLF(t *testing.T) {
	t.Parallel()

	p, err := Parse("x", "x", StringSource("PARTIAL: crlf\r\nQUERY:\r\n  q: Int\r\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if s, _ := p.Section("PARTIAL"); s.Description() != "crlf" {
		t.Errorf("description = %q, want %q", s.Description(), "crlf")
	}
	if got := readSection(t, p, "QUERY"); got != "  q: Int\r\n" {
		t.Errorf("QUERY = %q", got)
	}
}

func TestParse_NonHeaderLines(t *testing.T) {
	t.Parallel()

	// Lower-case names, leading spaces and digits are body content.
	text := "PARTIAL: p\nquery: nope\n QUERY: nope\nQUERY2: nope\n"
	p, err := Parse("p", "p", StringSource(text))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(p.SectionNames()) != 1 {
		t.Errorf("expected only PARTIAL, got %v", p.SectionNames())
	}
	if got := readSection(t, p, "PARTIAL"); got != "query: nope\n QUERY: nope\nQUERY2: nope\n" {
		t.Errorf("PARTIAL body = %q", got)
	}
	if p.RequiredNames() != nil {
		t.Errorf("RequiredNames() = %v, want nil", p.RequiredNames())
	}
}

func TestParse_MissingPartialSection(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "just text\n", "QUERY:\n  a: Int\n", "partial: lower case\n"} {
		_, err := Parse("bad", "bad", StringSource(text))
		var syntaxErr *SyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Fatalf("Parse(%q) error = %v, want SyntaxError", text, err)
		}
		if syntaxErr.Kind != MissingRequiredSection || syntaxErr.Section != SectionPartial {
			t.Errorf("Parse(%q) = %+v, want missing PARTIAL", text, syntaxErr)
		}
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("errors.Is(err, ErrSyntax) = false for %v", err)
		}
	}
}

func TestParse_DuplicateSection(t *testing.T) {
	t.Parallel()

	text := "PARTIAL: p\nQUERY:\na: Int\nTYPES:\nQUERY :\nb: Int\n"
	_, err := Parse("dup", "dup", StringSource(text))
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("Parse() error = %v, want SyntaxError", err)
	}
	if syntaxErr.Kind != DuplicateSection || syntaxErr.Section != "QUERY" {
		t.Errorf("got %+v, want duplicate QUERY", syntaxErr)
	}
	if !strings.Contains(err.Error(), "QUERY") {
		t.Errorf("error message %q does not name the section", err)
	}
}

func TestParse_SourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := Parse("x", "x", func() (io.ReadCloser, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("Parse() error = %v, want %v", err, boom)
	}
}

func TestParseNamed_FileSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "users.partial")
	if err := os.WriteFile(path, []byte("PARTIAL: users\nTYPES:\ntype User { id: ID }\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p, err := ParseNamed(path, FileSource(path))
	if err != nil {
		t.Fatalf("ParseNamed() error: %v", err)
	}
	if p.Name() != "users" {
		t.Errorf("Name() = %q, want users", p.Name())
	}
	if p.Key() != path {
		t.Errorf("Key() = %q, want %q", p.Key(), path)
	}
	if got := readSection(t, p, "TYPES"); got != "type User { id: ID }\n" {
		t.Errorf("TYPES = %q", got)
	}

	body, err := p.OpenBodyContent()
	if err != nil {
		t.Fatalf("OpenBodyContent() error: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if !strings.HasPrefix(string(data), "PARTIAL: users\n") {
		t.Errorf("body = %q", data)
	}

	if _, err := p.OpenSectionContent("MUTATION"); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("OpenSectionContent(MUTATION) error = %v, want ErrSectionNotFound", err)
	}
}

func TestSection_OpenAfterSourceShrinks(t *testing.T) {
	t.Parallel()

	text := "PARTIAL: p\nTYPES:\ntype T {}\n"
	// io.NopCloser hides Seek, so Open has to skip forward and hits EOF.
	calls := 0
	src := func() (io.ReadCloser, error) {
		calls++
		if calls == 1 {
			return io.NopCloser(strings.NewReader(text)), nil
		}
		return io.NopCloser(strings.NewReader("PAR")), nil
	}
	p, err := Parse("p", "p", src)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	s, _ := p.Section("TYPES")
	if _, err := s.Open(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Open() error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestNameFromSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want string
	}{
		{"a.txt", "a"},
		{"/partials/users.partial", "users"},
		{"dir/sub/x.y.z", "x.y"},
		{"noext", "noext"},
		{".hidden", ".hidden"},
		{"dir/.hidden", ".hidden"},
		{"dir/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()
			if got := NameFromSource(tt.id); got != tt.want {
				t.Errorf("NameFromSource(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestPartial_Equal(t *testing.T) {
	t.Parallel()

	a1, _ := Parse("a", "k1", StringSource("PARTIAL: a\n"))
	a2, _ := Parse("a", "k1", StringSource("PARTIAL: other content\n"))
	b, _ := Parse("a", "k2", StringSource("PARTIAL: a\n"))

	if !a1.Equal(a2) {
		t.Error("partials with the same key should be equal")
	}
	if a1.Equal(b) {
		t.Error("partials with different keys should not be equal")
	}
	if a1.Equal(nil) {
		t.Error("partial should not equal nil")
	}
}
