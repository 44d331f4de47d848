// Package useref rewrites marker-comment asset blocks in HTML documents.
//
// A block is delimited by comments:
//
//	<!-- build:css styles/main.css -->
//	<link rel="stylesheet" href="styles/a.css">
//	<link rel="stylesheet" href="styles/b.css">
//	<!-- endbuild -->
//
// and is replaced by a single tag referencing the block target. Blocks of type
// "remove" are dropped. The referenced assets themselves are not produced here.
package useref

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
)

var (
	beginRe = regexp.MustCompile(`^\s*build:(\w+)(?:\(([^)]*)\))?(?:\s+(\S+))?\s*(.*?)\s*$`)
	endRe   = regexp.MustCompile(`^\s*endbuild\s*$`)
)

// Block is one rewritten marker block.
type Block struct {
	Type   string   // css, js or remove
	Target string   // path of the combined asset
	Alt    []string // alternate search path for this block
	Attrs  string   // extra attributes copied onto the replacement tag
	Refs   []string // assets referenced inside the block
	Line   int
}

// Result is the outcome of rewriting one document.
type Result struct {
	HTML   []byte
	Blocks []Block
	// Missing lists block targets not found in any search path directory.
	Missing []string
}

// Options configures Process.
type Options struct {
	// SearchPath lists directories where block targets are looked up, in order.
	SearchPath []string
	// BaseDir resolves relative alternate search directories given in a block.
	BaseDir string
}

// Process rewrites every marker block in the document src. name is the document path
// relative to the source root and is used to resolve relative targets. A document
// without blocks is returned unchanged.
func Process(name string, src []byte, opts Options) (*Result, error) {
	res := &Result{}
	var (
		out  bytes.Buffer
		cur  *Block
		line = 1
		z    = html.NewTokenizer(bytes.NewReader(src))
	)
	out.Grow(len(src))

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, inputError(name, line, err)
			}
			break
		}
		raw := z.Raw()
		startLine := line
		line += bytes.Count(raw, []byte("\n"))

		if tt == html.CommentToken {
			text := string(z.Text())
			if m := beginRe.FindStringSubmatch(text); m != nil {
				if cur != nil {
					return nil, inputError(name, startLine, fmt.Errorf("nested build block inside build:%s", cur.Type))
				}
				b, err := newBlock(m, startLine)
				if err != nil {
					return nil, inputError(name, startLine, err)
				}
				cur = b
				continue
			}
			if endRe.MatchString(text) {
				if cur == nil {
					return nil, inputError(name, startLine, errors.New("endbuild without matching build comment"))
				}
				out.WriteString(replacement(cur))
				if cur.Type != "remove" && !found(name, cur, opts) {
					res.Missing = append(res.Missing, cur.Target)
				}
				res.Blocks = append(res.Blocks, *cur)
				cur = nil
				continue
			}
		}

		if cur == nil {
			out.Write(raw)
			continue
		}
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			if ref := assetRef(z.Token()); ref != "" {
				cur.Refs = append(cur.Refs, ref)
			}
		}
	}

	if cur != nil {
		return nil, inputError(name, cur.Line, fmt.Errorf("unterminated build:%s block (missing <!-- endbuild -->)", cur.Type))
	}
	res.HTML = out.Bytes()
	return res, nil
}

func newBlock(m []string, line int) (*Block, error) {
	b := &Block{Type: m[1], Target: m[3], Attrs: m[4], Line: line}
	if m[2] != "" {
		for _, alt := range strings.Split(m[2], ",") {
			if alt = strings.TrimSpace(alt); alt != "" {
				b.Alt = append(b.Alt, alt)
			}
		}
	}
	switch b.Type {
	case "css", "js":
		if b.Target == "" {
			return nil, fmt.Errorf("build:%s block without a target", b.Type)
		}
	case "remove":
	default:
		return nil, fmt.Errorf("unknown block type build:%s", b.Type)
	}
	return b, nil
}

// replacement renders the tag a block is replaced with.
func replacement(b *Block) string {
	target := html.EscapeString(b.Target)
	attrs := ""
	if b.Attrs != "" {
		attrs = " " + b.Attrs
	}
	switch b.Type {
	case "css":
		return `<link rel="stylesheet" href="` + target + `"` + attrs + `>`
	case "js":
		return `<script src="` + target + `"` + attrs + `></script>`
	default:
		return ""
	}
}

// assetRef returns the stylesheet or script a tag inside a block references.
func assetRef(tok html.Token) string {
	var key string
	switch tok.DataAtom {
	case atom.Link:
		key = "href"
	case atom.Script:
		key = "src"
	default:
		return ""
	}
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// found reports whether the block target exists in its search path. The block's
// alternate path, when given, replaces the default one.
func found(name string, b *Block, opts Options) bool {
	dirs := opts.SearchPath
	if len(b.Alt) > 0 {
		dirs = make([]string, 0, len(b.Alt))
		for _, dir := range b.Alt {
			dir = filepath.FromSlash(dir)
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(opts.BaseDir, dir)
			}
			dirs = append(dirs, dir)
		}
	}
	target := strings.SplitN(b.Target, "?", 2)[0]
	if strings.HasPrefix(target, "/") {
		target = strings.TrimPrefix(target, "/")
	} else {
		target = path.Join(path.Dir(name), target)
	}
	for _, dir := range dirs {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(target))); err == nil {
			return true
		}
	}
	return false
}

func inputError(name string, line int, err error) error {
	return foundationerrors.WrapError(err, foundationerrors.CategoryInput, "invalid html").
		UserAction().
		WithContext("path", name).
		WithContext("line", line).
		Build()
}
