package css

import (
	"fmt"
	"io"
	"strings"
)

const indentUnit = "  "

// printer keeps first write error and running byte count.
type printer struct {
	w     io.Writer
	total int64
	err   error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	n, err := fmt.Fprintf(p.w, format, args...)
	p.total += int64(n)
	p.err = err
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
// Declarations keep their order within a rule.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	p := &printer{w: w}
	p.nodes(s.nodes.items, 0)
	return p.total, p.err
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func (p *printer) nodes(list []Node, depth int) {
	for i, n := range list {
		switch n := n.(type) {
		case *Rule:
			p.rule(n, depth)
		case *AtRule:
			p.atRule(n, depth)
		case *Comment:
			p.printf("%s%s\n", strings.Repeat(indentUnit, depth), n.Text)
		}
		// Blank line between block items (except after last)
		if i < len(list)-1 && isBlock(n) && isBlock(list[i+1]) {
			p.printf("\n")
		}
	}
}

func isBlock(n Node) bool {
	switch n := n.(type) {
	case *Rule:
		return true
	case *AtRule:
		return n.Block
	}
	return false
}

func (p *printer) rule(r *Rule, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	p.printf("%s%s {\n", indent, r.Selector())
	p.declarations(r.Declarations, depth+1)
	p.printf("%s}\n", indent)
}

func (p *printer) declarations(decls []*Declaration, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	for _, d := range decls {
		p.printf("%s%s;\n", indent, d.String())
	}
}

func (p *printer) atRule(a *AtRule, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	head := "@" + a.Name
	if a.Prelude != "" {
		head += " " + a.Prelude
	}
	if !a.Block {
		p.printf("%s%s;\n", indent, head)
		return
	}
	p.printf("%s%s {\n", indent, head)
	if raw := strings.TrimSpace(a.Raw); raw != "" {
		p.printf("%s%s%s\n", indent, indentUnit, raw)
	}
	p.declarations(a.Declarations, depth+1)
	p.nodes(a.nodes.items, depth+1)
	p.printf("%s}\n", indent)
}
