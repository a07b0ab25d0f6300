package css

import (
	"fmt"
	"strconv"
	"strings"
)

type treeWriter struct {
	w *strings.Builder
}

func newTreeWriter() *treeWriter {
	return &treeWriter{w: &strings.Builder{}}
}

func (tw treeWriter) String() string {
	return tw.w.String()
}

func (tw treeWriter) line(depth int, format string, args ...any) {
	for range depth {
		tw.w.WriteString("  ")
	}
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw treeWriter) text(depth int, label, value string) {
	for range depth {
		tw.w.WriteString("  ")
	}
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(quoteText(value))
	tw.w.WriteByte('\n')
}

func quoteText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}

// Dump returns indented outline of stylesheet structure. It is meant for
// debug reports, not for output.
func Dump(s *Stylesheet) string {
	tw := newTreeWriter()
	tw.line(0, "stylesheet (%d nodes, %d warnings)", len(s.Children()), len(s.Warnings))
	dumpNodes(tw, 1, s.Children())
	for _, w := range s.Warnings {
		tw.text(1, "warning", w)
	}
	return tw.String()
}

func dumpNodes(tw *treeWriter, depth int, nodes []Node) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *Rule:
			tw.line(depth, "rule (%d selectors, %d declarations)", len(n.Selectors), len(n.Declarations))
			for _, s := range n.Selectors {
				tw.text(depth+1, "selector", s)
			}
			dumpDeclarations(tw, depth+1, n.Declarations)
		case *AtRule:
			tw.line(depth, "@%s", n.Name)
			if n.Prelude != "" {
				tw.text(depth+1, "prelude", n.Prelude)
			}
			dumpDeclarations(tw, depth+1, n.Declarations)
			if n.Raw != "" {
				tw.text(depth+1, "raw", n.Raw)
			}
			dumpNodes(tw, depth+1, n.Children())
		case *Comment:
			tw.text(depth, "comment", n.Text)
		}
	}
}

func dumpDeclarations(tw *treeWriter, depth int, decls []*Declaration) {
	for _, d := range decls {
		if d.Important {
			tw.text(depth, d.Property+" (important)", d.Value)
			continue
		}
		tw.text(depth, d.Property, d.Value)
	}
}
