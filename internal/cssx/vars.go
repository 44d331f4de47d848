package cssx

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

var (
	varDefRe = regexp.MustCompile(`(?m)^[ \t]*\$([A-Za-z_][\w-]*)[ \t]*:[ \t]*([^;{}\n]+?)[ \t]*;[ \t]*$`)
	varRefRe = regexp.MustCompile(`\$\(([A-Za-z_][\w-]*)\)|\$([A-Za-z_][\w-]*)`)
)

// UndefinedVariableError reports a reference to a variable that was not defined
// before its use.
type UndefinedVariableError struct {
	Name   string
	Line   int
	Column int
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable $%s at %d:%d", e.Name, e.Line, e.Column)
}

// SubstituteVariables removes variable definitions from src and replaces references
// with their values. A variable is visible from its definition onwards; definitions
// may reference earlier variables. Removed definitions keep their line so that later
// positions still match the source. Comments are left untouched.
func SubstituteVariables(src []byte) ([]byte, error) {
	vars := make(map[string][]byte)
	comments := commentSpans(src)
	var out bytes.Buffer
	out.Grow(len(src))

	last := 0
	for _, m := range varDefRe.FindAllSubmatchIndex(src, -1) {
		if comments.contains(m[2]) {
			continue
		}
		seg, err := substitute(src, last, m[0], vars, comments)
		if err != nil {
			return nil, err
		}
		out.Write(seg)

		value, err := substitute(src, m[4], m[5], vars, comments)
		if err != nil {
			return nil, err
		}
		vars[string(src[m[2]:m[3]])] = value
		last = m[1]
	}
	seg, err := substitute(src, last, len(src), vars, comments)
	if err != nil {
		return nil, err
	}
	out.Write(seg)
	return out.Bytes(), nil
}

// substitute replaces references in src[start:end]. Offsets in errors are relative to
// the whole of src.
func substitute(src []byte, start, end int, vars map[string][]byte, comments spans) ([]byte, error) {
	part := src[start:end]
	var out bytes.Buffer
	last := 0
	for _, m := range varRefRe.FindAllSubmatchIndex(part, -1) {
		if comments.contains(start + m[0]) {
			continue
		}
		nameStart, nameEnd := m[2], m[3]
		if nameStart < 0 {
			nameStart, nameEnd = m[4], m[5]
		}
		name := string(part[nameStart:nameEnd])
		value, ok := vars[name]
		if !ok {
			line, col := position(src, start+m[0])
			return nil, &UndefinedVariableError{Name: name, Line: line, Column: col}
		}
		out.Write(part[last:m[0]])
		out.Write(value)
		last = m[1]
	}
	out.Write(part[last:])
	return out.Bytes(), nil
}

// spans are sorted, non-overlapping [start, end) byte ranges.
type spans [][2]int

func (s spans) contains(offset int) bool {
	for _, sp := range s {
		if offset < sp[0] {
			return false
		}
		if offset < sp[1] {
			return true
		}
	}
	return false
}

// commentSpans returns the byte ranges of the comments in src.
func commentSpans(src []byte) spans {
	l := css.NewLexer(parse.NewInputBytes(src))
	var out spans
	offset := 0
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			return out
		}
		if tt == css.CommentToken {
			out = append(out, [2]int{offset, offset + len(data)})
		}
		offset += len(data)
	}
}

// position converts a byte offset into a 1-based line and column.
func position(src []byte, offset int) (int, int) {
	line := 1 + bytes.Count(src[:offset], []byte("\n"))
	col := offset + 1
	if i := bytes.LastIndexByte(src[:offset], '\n'); i >= 0 {
		col = offset - i
	}
	return line, col
}
