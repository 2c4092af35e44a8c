// CLAUDE:SUMMARY Typed compound CSS selectors (tag, class, id, attribute operators, :not) with parser, matcher and CSS rendering.
package dom

import (
	"fmt"
	"strings"
)

// AttrOp is an attribute selector operator.
type AttrOp int

const (
	OpExists   AttrOp = iota // [k]
	OpEquals                 // [k="v"]
	OpPrefix                 // [k^="v"]
	OpContains               // [k*="v"]
	OpWord                   // [k~="v"], also .class
)

// AttrCond is one attribute condition.
type AttrCond struct {
	Key string
	Op  AttrOp
	Val string
}

// Selector is a compound selector: an optional tag plus attribute
// conditions that must all hold and negated conditions that must all fail.
// Combinators are not supported; descendant lookups are expressed by
// calling Document.QueryAll with a root.
//
// Supported syntax:
//   - tag: "article", "span", "*"
//   - .class, #id
//   - [attr], [attr=val], [attr^=val], [attr*=val], [attr~=val]
//   - :not(...) holding exactly one of the forms above; chain
//     :not(A):not(B) to exclude either
type Selector struct {
	Tag   string
	Attrs []AttrCond
	Not   []AttrCond
}

// Class is shorthand for the selector ".name".
func Class(name string) Selector {
	return Selector{Attrs: []AttrCond{{Key: "class", Op: OpWord, Val: name}}}
}

// Tag is shorthand for a bare tag selector.
func Tag(name string) Selector {
	return Selector{Tag: strings.ToLower(name)}
}

// Without returns a copy of s that excludes elements carrying attr.
func (s Selector) Without(attr string) Selector {
	out := Selector{
		Tag:   s.Tag,
		Attrs: append([]AttrCond(nil), s.Attrs...),
		Not:   append(append([]AttrCond(nil), s.Not...), AttrCond{Key: attr, Op: OpExists}),
	}
	return out
}

// IsZero reports whether s matches every element.
func (s Selector) IsZero() bool {
	return (s.Tag == "" || s.Tag == "*") && len(s.Attrs) == 0 && len(s.Not) == 0
}

// Match reports whether an element with the given lowercase tag and
// attribute lookup matches s.
func (s Selector) Match(tag string, attr func(string) (string, bool)) bool {
	if s.Tag != "" && s.Tag != "*" && s.Tag != tag {
		return false
	}
	for _, c := range s.Attrs {
		if !c.match(attr) {
			return false
		}
	}
	for _, c := range s.Not {
		if c.match(attr) {
			return false
		}
	}
	return true
}

func (c AttrCond) match(attr func(string) (string, bool)) bool {
	v, ok := attr(c.Key)
	if !ok {
		return false
	}
	switch c.Op {
	case OpExists:
		return true
	case OpEquals:
		return v == c.Val
	case OpPrefix:
		return c.Val != "" && strings.HasPrefix(v, c.Val)
	case OpContains:
		return c.Val != "" && strings.Contains(v, c.Val)
	case OpWord:
		for _, w := range strings.Fields(v) {
			if w == c.Val {
				return true
			}
		}
	}
	return false
}

// CSS renders s in CSS syntax for backends that evaluate selectors natively.
func (s Selector) CSS() string {
	var b strings.Builder
	b.WriteString(s.Tag)
	for _, c := range s.Attrs {
		b.WriteString(c.css())
	}
	for _, c := range s.Not {
		b.WriteString(":not(")
		b.WriteString(c.css())
		b.WriteString(")")
	}
	if b.Len() == 0 {
		return "*"
	}
	return b.String()
}

func (s Selector) String() string { return s.CSS() }

func (c AttrCond) css() string {
	if c.Key == "class" && c.Op == OpWord && isIdent(c.Val) {
		return "." + c.Val
	}
	if c.Key == "id" && c.Op == OpEquals && isIdent(c.Val) {
		return "#" + c.Val
	}
	op := ""
	switch c.Op {
	case OpExists:
		return "[" + c.Key + "]"
	case OpEquals:
		op = "="
	case OpPrefix:
		op = "^="
	case OpContains:
		op = "*="
	case OpWord:
		op = "~="
	}
	return "[" + c.Key + op + cssQuote(c.Val) + "]"
}

func cssQuote(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}

// MustParse is Parse that panics, for package-level defaults.
func MustParse(sel string) Selector {
	s, err := Parse(sel)
	if err != nil {
		panic(err)
	}
	return s
}

// Parse parses a compound selector.
func Parse(sel string) (Selector, error) {
	p := &selParser{src: strings.TrimSpace(sel)}
	s, err := p.compound(true)
	if err != nil {
		return Selector{}, fmt.Errorf("dom: selector %q: %w", sel, err)
	}
	if p.pos < len(p.src) {
		return Selector{}, fmt.Errorf("dom: selector %q: unexpected %q at %d (combinators are not supported)",
			sel, p.src[p.pos], p.pos)
	}
	return s, nil
}

type selParser struct {
	src string
	pos int
}

func (p *selParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *selParser) compound(allowTag bool) (Selector, error) {
	var s Selector
	if allowTag {
		if p.peek() == '*' {
			p.pos++
			s.Tag = "*"
		} else if tag := p.ident(); tag != "" {
			s.Tag = strings.ToLower(tag)
		}
	}
	for p.pos < len(p.src) {
		switch p.peek() {
		case '.':
			p.pos++
			name := p.ident()
			if name == "" {
				return s, fmt.Errorf("empty class at %d", p.pos)
			}
			s.Attrs = append(s.Attrs, AttrCond{Key: "class", Op: OpWord, Val: name})
		case '#':
			p.pos++
			name := p.ident()
			if name == "" {
				return s, fmt.Errorf("empty id at %d", p.pos)
			}
			s.Attrs = append(s.Attrs, AttrCond{Key: "id", Op: OpEquals, Val: name})
		case '[':
			c, err := p.attr()
			if err != nil {
				return s, err
			}
			s.Attrs = append(s.Attrs, c)
		case ':':
			if !allowTag || !strings.HasPrefix(p.src[p.pos:], ":not(") {
				return s, fmt.Errorf("unsupported pseudo-class at %d", p.pos)
			}
			p.pos += len(":not(")
			inner, err := p.compound(false)
			if err != nil {
				return s, err
			}
			if p.peek() != ')' {
				return s, fmt.Errorf("unterminated :not at %d", p.pos)
			}
			p.pos++
			// Not holds single conditions; :not(A B) would need "not both".
			if len(inner.Attrs) != 1 {
				return s, fmt.Errorf(":not must hold exactly one condition, got %d", len(inner.Attrs))
			}
			s.Not = append(s.Not, inner.Attrs[0])
		default:
			return s, nil
		}
	}
	return s, nil
}

func (p *selParser) attr() (AttrCond, error) {
	p.pos++ // [
	key := p.ident()
	if key == "" {
		return AttrCond{}, fmt.Errorf("empty attribute name at %d", p.pos)
	}
	c := AttrCond{Key: strings.ToLower(key), Op: OpExists}
	switch {
	case strings.HasPrefix(p.src[p.pos:], "^="):
		c.Op, p.pos = OpPrefix, p.pos+2
	case strings.HasPrefix(p.src[p.pos:], "*="):
		c.Op, p.pos = OpContains, p.pos+2
	case strings.HasPrefix(p.src[p.pos:], "~="):
		c.Op, p.pos = OpWord, p.pos+2
	case p.peek() == '=':
		c.Op, p.pos = OpEquals, p.pos+1
	case p.peek() == ']':
		p.pos++
		return c, nil
	default:
		return AttrCond{}, fmt.Errorf("bad attribute operator at %d", p.pos)
	}

	switch q := p.peek(); q {
	case '"', '\'':
		end := strings.IndexByte(p.src[p.pos+1:], q)
		if end < 0 {
			return AttrCond{}, fmt.Errorf("unterminated string at %d", p.pos)
		}
		c.Val = p.src[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
	default:
		end := strings.IndexByte(p.src[p.pos:], ']')
		if end < 0 {
			return AttrCond{}, fmt.Errorf("unterminated attribute at %d", p.pos)
		}
		c.Val = strings.TrimSpace(p.src[p.pos : p.pos+end])
		p.pos += end
	}
	if p.peek() != ']' {
		return AttrCond{}, fmt.Errorf("expected ] at %d", p.pos)
	}
	p.pos++
	return c, nil
}

func (p *selParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isIdent(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}
