package fieldpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: a map key or a sequence index.
type Segment struct {
	text string
}

// Key returns a segment that descends into a map.
func Key(k string) Segment {
	return Segment{text: k}
}

// Index returns a segment that descends into a sequence.
func Index(i int) Segment {
	return Segment{text: strconv.Itoa(i)}
}

// String returns the segment text as it appears on the wire.
func (s Segment) String() string {
	return s.text
}

// Index reports whether the segment text is a canonical non-negative decimal
// ("0", "7", "12" but not "-1" or "01") and returns its value.
func (s Segment) Index() (int, bool) {
	return parseIndex(s.text)
}

func parseIndex(text string) (int, bool) {
	if text == "" || len(text) > 9 {
		return 0, false
	}
	if len(text) > 1 && text[0] == '0' {
		return 0, false
	}
	n := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// Path is an ordered sequence of segments identifying one position in a
// nested value.
type Path []Segment

// New builds a path from map keys.
func New(keys ...string) Path {
	p := make(Path, 0, len(keys))
	for _, k := range keys {
		p = append(p, Key(k))
	}
	return p
}

// Append returns a new path with seg added. The receiver is never modified,
// so sibling paths built from a shared prefix do not alias each other.
func (p Path) Append(seg Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// AppendKey is shorthand for Append(Key(k)).
func (p Path) AppendKey(k string) Path {
	return p.Append(Key(k))
}

// AppendIndex is shorthand for Append(Index(i)).
func (p Path) AppendIndex(i int) Path {
	return p.Append(Index(i))
}

// Equal reports whether both paths have the same segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i].text != other[i].text {
			return false
		}
	}
	return true
}

// String renders the path in bracket notation without validating it.
// Use Encode when the result is going on the wire.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if i == 0 {
			b.WriteString(seg.text)
			continue
		}
		b.WriteByte('[')
		b.WriteString(seg.text)
		b.WriteByte(']')
	}
	return b.String()
}

// SyntaxError reports a path that cannot be encoded or a field name that
// cannot be decoded.
type SyntaxError struct {
	Input  string // field name or rendered path
	Offset int    // byte offset of the problem, -1 when not applicable
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("fieldpath: invalid path %q at offset %d: %s", e.Input, e.Offset, e.Reason)
	}
	return fmt.Sprintf("fieldpath: invalid path %q: %s", e.Input, e.Reason)
}

// Encode renders p in bracket notation. It fails for an empty path, an
// empty segment, or a segment containing a bracket or a line break, since
// none of those would decode back to p or survive a part header.
func Encode(p Path) (string, error) {
	if len(p) == 0 {
		return "", &SyntaxError{Input: "", Offset: -1, Reason: "empty path"}
	}
	for i, seg := range p {
		if seg.text == "" {
			return "", &SyntaxError{Input: p.String(), Offset: -1, Reason: fmt.Sprintf("segment %d is empty", i)}
		}
		if strings.ContainsAny(seg.text, "[]") {
			return "", &SyntaxError{Input: p.String(), Offset: -1, Reason: fmt.Sprintf("segment %d contains a bracket", i)}
		}
		if strings.ContainsAny(seg.text, "\r\n") {
			return "", &SyntaxError{Input: p.String(), Offset: -1, Reason: fmt.Sprintf("segment %d contains a line break", i)}
		}
	}
	return p.String(), nil
}

// MustEncode is like Encode but panics on error. Intended for constant paths.
func MustEncode(p Path) string {
	s, err := Encode(p)
	if err != nil {
		panic(err)
	}
	return s
}

// Decode parses a bracket-notation field name. Every bracketed segment is
// returned with its text intact; see Segment.Index for index detection.
func Decode(s string) (Path, error) {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return nil, &SyntaxError{Input: s, Offset: i, Reason: "line break in field name"}
	}
	open := strings.IndexByte(s, '[')
	head := s
	if open >= 0 {
		head = s[:open]
	}
	if head == "" {
		return nil, &SyntaxError{Input: s, Offset: 0, Reason: "missing leading key"}
	}
	if i := strings.IndexByte(head, ']'); i >= 0 {
		return nil, &SyntaxError{Input: s, Offset: i, Reason: "unbalanced ']'"}
	}

	p := Path{Key(head)}
	if open < 0 {
		return p, nil
	}

	i := open
	for i < len(s) {
		if s[i] != '[' {
			return nil, &SyntaxError{Input: s, Offset: i, Reason: "expected '['"}
		}
		end := strings.IndexAny(s[i+1:], "[]")
		if end < 0 {
			return nil, &SyntaxError{Input: s, Offset: i, Reason: "unclosed '['"}
		}
		end += i + 1
		if s[end] == '[' {
			return nil, &SyntaxError{Input: s, Offset: end, Reason: "nested '['"}
		}
		if end == i+1 {
			return nil, &SyntaxError{Input: s, Offset: i, Reason: "empty brackets"}
		}
		p = append(p, Key(s[i+1:end]))
		i = end + 1
	}
	return p, nil
}
