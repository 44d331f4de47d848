package cssx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	defaultGutter = "30px"
	clearfixBody  = `content:"";display:table;clear:both`
)

var (
	hexRGBARe = regexp.MustCompile(`rgba\(\s*#([0-9a-fA-F]{6}|[0-9a-fA-F]{3})\s*,\s*([^,()]+?)\s*\)`)
	easingRe  = regexp.MustCompile(`\bease-(in-out|in|out)-(sine|quad|cubic|back)\b`)
	fracRe    = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`)
)

var easings = map[string]string{
	"ease-in-sine":      "cubic-bezier(0.47,0,0.745,0.715)",
	"ease-out-sine":     "cubic-bezier(0.39,0.575,0.565,1)",
	"ease-in-out-sine":  "cubic-bezier(0.445,0.05,0.55,0.95)",
	"ease-in-quad":      "cubic-bezier(0.55,0.085,0.68,0.53)",
	"ease-out-quad":     "cubic-bezier(0.25,0.46,0.45,0.94)",
	"ease-in-out-quad":  "cubic-bezier(0.455,0.03,0.515,0.955)",
	"ease-in-cubic":     "cubic-bezier(0.55,0.055,0.675,0.19)",
	"ease-out-cubic":    "cubic-bezier(0.215,0.61,0.355,1)",
	"ease-in-out-cubic": "cubic-bezier(0.645,0.045,0.355,1)",
	"ease-in-back":      "cubic-bezier(0.6,-0.28,0.735,0.045)",
	"ease-out-back":     "cubic-bezier(0.175,0.885,0.32,1.275)",
	"ease-in-out-back":  "cubic-bezier(0.68,-0.55,0.265,1.55)",
}

// expandDeclaration rewrites one declaration into zero or more declarations. Rules
// that must follow the enclosing ruleset are added to cur.
func expandDeclaration(prop, value string, cur *block) ([]decl, error) {
	prop = strings.ToLower(strings.TrimSpace(prop))
	value, important := splitImportant(value)

	var (
		decls []decl
		err   error
	)
	switch prop {
	case "position":
		decls = expandPosition(value)
	case "clear":
		if value == "fix" {
			if err := needRuleset(prop, cur); err != nil {
				return nil, err
			}
			cur.addRule("::after", clearfixBody)
			return nil, nil
		}
		decls = []decl{{prop, value}}
	case "lost-column":
		if err := needRuleset(prop, cur); err != nil {
			return nil, err
		}
		decls, err = expandLostColumn(value, cur)
	case "lost-center":
		if err := needRuleset(prop, cur); err != nil {
			return nil, err
		}
		decls, err = expandLostCenter(value, cur)
	case "lost-utility":
		if err := needRuleset(prop, cur); err != nil {
			return nil, err
		}
		if value != "clearfix" {
			return nil, &SyntaxError{Message: fmt.Sprintf("unknown lost-utility %q", value)}
		}
		cur.addRule("::after", clearfixBody)
		return nil, nil
	case "transition", "transition-timing-function", "animation", "animation-timing-function":
		decls = []decl{{prop, easingRe.ReplaceAllStringFunc(value, func(name string) string {
			return easings[name]
		})}}
	default:
		decls = []decl{{prop, value}}
	}
	if err != nil {
		return nil, err
	}

	for i := range decls {
		decls[i].value = expandHexRGBA(decls[i].value)
		if important {
			decls[i].value += "!important"
		}
	}
	return decls, nil
}

func needRuleset(prop string, cur *block) error {
	if cur == nil || !cur.ruleset {
		return &SyntaxError{Message: fmt.Sprintf("%s is only valid inside a rule", prop)}
	}
	return nil
}

func splitImportant(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	lower := strings.ToLower(trimmed)
	if !strings.HasSuffix(lower, "important") {
		return trimmed, false
	}
	rest := strings.TrimSpace(trimmed[:len(trimmed)-len("important")])
	if !strings.HasSuffix(rest, "!") {
		return trimmed, false
	}
	return strings.TrimSpace(rest[:len(rest)-1]), true
}

// expandPosition turns "absolute t [r [b [l]]]" into position plus box offsets.
// An offset of "*" leaves that side unset.
func expandPosition(value string) []decl {
	f := fields(value)
	switch {
	case len(f) < 2 || len(f) > 5:
		return []decl{{"position", value}}
	case f[0] != "absolute" && f[0] != "relative" && f[0] != "fixed" && f[0] != "sticky":
		return []decl{{"position", value}}
	}

	box := expandBox(f[1:])
	decls := []decl{{"position", f[0]}}
	for i, side := range []string{"top", "right", "bottom", "left"} {
		if box[i] != "*" {
			decls = append(decls, decl{side, box[i]})
		}
	}
	return decls
}

// expandBox applies the CSS one-to-four value shorthand rule.
func expandBox(v []string) [4]string {
	switch len(v) {
	case 1:
		return [4]string{v[0], v[0], v[0], v[0]}
	case 2:
		return [4]string{v[0], v[1], v[0], v[1]}
	case 3:
		return [4]string{v[0], v[1], v[2], v[1]}
	default:
		return [4]string{v[0], v[1], v[2], v[3]}
	}
}

// expandLostColumn implements "lost-column: a/b [cycle] [gutter]".
func expandLostColumn(value string, cur *block) ([]decl, error) {
	f := fields(value)
	if len(f) == 0 || len(f) > 3 {
		return nil, &SyntaxError{Message: fmt.Sprintf("invalid lost-column %q", value)}
	}
	m := fracRe.FindStringSubmatch(f[0])
	if m == nil || m[2] == "0" {
		return nil, &SyntaxError{Message: fmt.Sprintf("invalid lost-column fraction %q", f[0])}
	}
	fraction := m[1] + "/" + m[2]
	cycle, _ := strconv.Atoi(m[2])
	gutter := defaultGutter
	if len(f) > 1 {
		n, err := strconv.Atoi(f[1])
		if err != nil || n < 0 {
			return nil, &SyntaxError{Message: fmt.Sprintf("invalid lost-column cycle %q", f[1])}
		}
		cycle = n
	}
	if len(f) > 2 {
		gutter = f[2]
	}

	width := fmt.Sprintf("calc(99.9%% * %s - (%s - %s * %s))", fraction, gutter, gutter, fraction)
	margin := gutter
	if isZero(gutter) {
		width = fmt.Sprintf("calc(99.9%% * %s)", fraction)
		margin = "0"
	}

	cur.addRule(":nth-child(1n)", "float:left;margin-right:"+margin+";clear:none")
	cur.addRule(":last-child", "margin-right:0")
	if cycle > 0 {
		cur.addRule(fmt.Sprintf(":nth-child(%dn)", cycle), "margin-right:0;float:right")
		cur.addRule(fmt.Sprintf(":nth-child(%dn + 1)", cycle), "clear:both")
	}
	return []decl{{"width", width}}, nil
}

// expandLostCenter implements "lost-center: max-width [padding]".
func expandLostCenter(value string, cur *block) ([]decl, error) {
	f := fields(value)
	if len(f) == 0 || len(f) > 2 {
		return nil, &SyntaxError{Message: fmt.Sprintf("invalid lost-center %q", value)}
	}
	decls := []decl{
		{"max-width", f[0]},
		{"margin-left", "auto"},
		{"margin-right", "auto"},
	}
	if len(f) == 2 {
		decls = append(decls, decl{"padding-left", f[1]}, decl{"padding-right", f[1]})
	}
	cur.addRule("::before", `content:"";display:table`)
	cur.addRule("::after", clearfixBody)
	return decls, nil
}

// expandHexRGBA rewrites rgba(#rrggbb, a) into numeric rgba().
func expandHexRGBA(value string) string {
	return hexRGBARe.ReplaceAllStringFunc(value, func(match string) string {
		m := hexRGBARe.FindStringSubmatch(match)
		hex := m[1]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		rgb, _ := strconv.ParseUint(hex, 16, 32)
		return fmt.Sprintf("rgba(%d,%d,%d,%s)", rgb>>16&0xff, rgb>>8&0xff, rgb&0xff, m[2])
	})
}

// fields splits a value on whitespace outside parentheses.
func fields(value string) []string {
	var (
		out   []string
		cur   strings.Builder
		depth int
	)
	for _, r := range value {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case (r == ' ' || r == '\t' || r == '\n') && depth == 0:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func isZero(v string) bool {
	v = strings.TrimRight(v, "abcdefghijklmnopqrstuvwxyz%")
	n, err := strconv.ParseFloat(v, 64)
	return err == nil && n == 0
}
