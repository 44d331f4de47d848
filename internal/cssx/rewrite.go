package cssx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// SyntaxError reports a stylesheet the parser rejected or a property value the
// extensions cannot interpret.
type SyntaxError struct {
	Message string
	Line    int
	Column  int
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at %d:%d", e.Message, e.Line, e.Column)
	}
	return e.Message
}

// decl is one emitted declaration.
type decl struct {
	prop  string
	value string
}

// block tracks an open ruleset or at-rule while walking the stylesheet.
type block struct {
	ruleset   bool
	selectors []string
	extra     []string // rules emitted after the block closes
}

// Rewrite expands the layout and shorthand properties in src. Everything else is
// passed through, whitespace between tokens normalized. Each rule and declaration
// stays on the line where it ends in src, so line numbers in a source map of the
// result refer to the authored file.
func Rewrite(src []byte) ([]byte, error) {
	p := css.NewParser(parse.NewInputBytes(src), false)
	var (
		out       bytes.Buffer
		stack     []*block
		selectors []string
		lines     = lineTracker{src: src}
	)

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar, css.QualifiedRuleGrammar:
		case css.CommentGrammar:
			lines.sync(&out, p.Offset()-len(data))
		default:
			lines.sync(&out, p.Offset())
		}
		switch gt {
		case css.ErrorGrammar:
			err := p.Err()
			if errors.Is(err, io.EOF) {
				if len(stack) > 0 {
					return nil, &SyntaxError{Message: "unexpected end of stylesheet, missing }"}
				}
				return out.Bytes(), nil
			}
			return nil, syntaxError(err)
		case css.CommentGrammar:
			out.Write(data)
		case css.AtRuleGrammar:
			out.Write(data)
			if v := joinValues(p.Values()); v != "" {
				out.WriteByte(' ')
				out.WriteString(v)
			}
			out.WriteByte(';')
		case css.BeginAtRuleGrammar:
			out.Write(data)
			if v := joinValues(p.Values()); v != "" {
				out.WriteByte(' ')
				out.WriteString(v)
			}
			out.WriteByte('{')
			stack = append(stack, &block{})
		case css.QualifiedRuleGrammar:
			selectors = append(selectors, joinValues(p.Values()))
		case css.BeginRulesetGrammar:
			selectors = append(selectors, joinValues(p.Values()))
			out.WriteString(strings.Join(selectors, ","))
			out.WriteByte('{')
			stack = append(stack, &block{ruleset: true, selectors: selectors})
			selectors = nil
		case css.DeclarationGrammar:
			var cur *block
			if len(stack) > 0 {
				cur = stack[len(stack)-1]
			}
			decls, err := expandDeclaration(string(data), joinValues(p.Values()), cur)
			if err != nil {
				return nil, err
			}
			for _, d := range decls {
				out.WriteString(d.prop)
				out.WriteByte(':')
				out.WriteString(d.value)
				out.WriteByte(';')
			}
		case css.CustomPropertyGrammar:
			out.Write(data)
			out.WriteByte(':')
			out.WriteString(strings.TrimSpace(joinValues(p.Values())))
			out.WriteByte(';')
		case css.EndRulesetGrammar, css.EndAtRuleGrammar:
			if len(stack) == 0 {
				return nil, &SyntaxError{Message: "unexpected }"}
			}
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			out.WriteByte('}')
			for _, rule := range closed.extra {
				out.WriteString(rule)
			}
		default:
			out.Write(data)
		}
	}
}

// lineTracker pads the output with newlines so it never runs behind the source line.
type lineTracker struct {
	src                 []byte
	srcPos, srcLine     int
	outCounted, outLine int
}

func (t *lineTracker) sync(out *bytes.Buffer, offset int) {
	if offset > len(t.src) {
		offset = len(t.src)
	}
	if offset > t.srcPos {
		t.srcLine += bytes.Count(t.src[t.srcPos:offset], []byte("\n"))
		t.srcPos = offset
	}
	t.outLine += bytes.Count(out.Bytes()[t.outCounted:], []byte("\n"))
	for ; t.outLine < t.srcLine; t.outLine++ {
		out.WriteByte('\n')
	}
	t.outCounted = out.Len()
}

func joinValues(values []css.Token) string {
	var b strings.Builder
	for _, v := range values {
		if v.TokenType == css.WhitespaceToken {
			b.WriteByte(' ')
			continue
		}
		b.Write(v.Data)
	}
	return strings.TrimSpace(b.String())
}

func syntaxError(err error) error {
	var perr *parse.Error
	if errors.As(err, &perr) {
		return &SyntaxError{Message: perr.Message, Line: perr.Line, Column: perr.Column}
	}
	return &SyntaxError{Message: err.Error()}
}

// addRule schedules a rule built from the current selectors, each suffixed with
// pseudo, to be written after the current ruleset.
func (b *block) addRule(pseudo, body string) {
	sels := make([]string, len(b.selectors))
	for i, s := range b.selectors {
		sels[i] = s + pseudo
	}
	b.extra = append(b.extra, strings.Join(sels, ",")+"{"+body+"}")
}
