package css

import (
	"slices"
	"strings"
)

// Node is a single item of a stylesheet or of an at-rule block.
type Node interface {
	// Parent returns container node belongs to, nil for detached nodes.
	Parent() Container
	setParent(Container)
}

// Container is anything holding an ordered list of nodes: the stylesheet
// itself or a block at-rule such as @media.
type Container interface {
	// Children returns a snapshot of container nodes in document order.
	Children() []Node
	// Append attaches node to the end of the container.
	Append(n Node)
	// InsertAfter attaches node immediately after ref, returns false when
	// ref does not belong to the container.
	InsertAfter(ref, n Node) bool
	// Remove detaches node, returns false when it was not found.
	Remove(n Node) bool
}

type parentLink struct {
	parent Container
}

func (l *parentLink) Parent() Container {
	return l.parent
}

func (l *parentLink) setParent(c Container) {
	l.parent = c
}

// nodeList implements Container operations on behalf of its owner.
type nodeList struct {
	items []Node
}

func (l *nodeList) children() []Node {
	return slices.Clone(l.items)
}

func (l *nodeList) append(owner Container, n Node) {
	detach(n)
	n.setParent(owner)
	l.items = append(l.items, n)
}

func (l *nodeList) insertAfter(owner Container, ref, n Node) bool {
	i := slices.Index(l.items, ref)
	if i < 0 {
		return false
	}
	detach(n)
	// detaching may have shifted ref if n was its predecessor
	i = slices.Index(l.items, ref)
	n.setParent(owner)
	l.items = slices.Insert(l.items, i+1, n)
	return true
}

func (l *nodeList) remove(n Node) bool {
	i := slices.Index(l.items, n)
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	n.setParent(nil)
	return true
}

func detach(n Node) {
	if p := n.Parent(); p != nil {
		p.Remove(n)
	}
}

// Declaration is a single "property: value" pair.
type Declaration struct {
	Property  string
	Value     string
	Important bool // declaration ends with !important
}

// NewDeclaration creates declaration with given property and value.
func NewDeclaration(property, value string) *Declaration {
	return &Declaration{Property: property, Value: value}
}

// String returns declaration as it would appear in a block, without
// trailing semicolon.
func (d *Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value + " !important"
	}
	return d.Property + ": " + d.Value
}

// Rule is a qualified rule: list of selectors and ordered declarations.
type Rule struct {
	parentLink

	Selectors    []string
	Declarations []*Declaration
}

// NewRule creates detached rule.
func NewRule(selectors []string, decls ...*Declaration) *Rule {
	return &Rule{Selectors: slices.Clone(selectors), Declarations: decls}
}

// Selector returns selectors joined as they appear in source.
func (r *Rule) Selector() string {
	return strings.Join(r.Selectors, ", ")
}

// Append adds declaration at the end of the rule.
func (r *Rule) Append(d *Declaration) {
	r.Declarations = append(r.Declarations, d)
}

// RemoveDeclaration deletes declaration from the rule, returns false when
// declaration does not belong to it.
func (r *Rule) RemoveDeclaration(d *Declaration) bool {
	i := slices.Index(r.Declarations, d)
	if i < 0 {
		return false
	}
	r.Declarations = slices.Delete(r.Declarations, i, i+1)
	return true
}

// GetProperty returns the last declaration for a property, or nil if not found.
func (r *Rule) GetProperty(name string) *Declaration {
	for i := len(r.Declarations) - 1; i >= 0; i-- {
		if r.Declarations[i].Property == name {
			return r.Declarations[i]
		}
	}
	return nil
}

// Remove detaches rule from its parent.
func (r *Rule) Remove() bool {
	if r.parent == nil {
		return false
	}
	return r.parent.Remove(r)
}

// AtRule is an @-rule. Statement at-rules (@import, @charset) have no
// block. Block at-rules either hold nested nodes (@media, @supports,
// @keyframes) or declarations (@font-face, @page).
type AtRule struct {
	parentLink
	nodes nodeList

	Name         string // lowercase name without "@"
	Prelude      string
	Block        bool
	Declarations []*Declaration
	Raw          string // unparsed block body of unknown at-rules
}

// NewAtRule creates detached at-rule.
func NewAtRule(name, prelude string, block bool) *AtRule {
	return &AtRule{Name: strings.ToLower(strings.TrimPrefix(name, "@")), Prelude: prelude, Block: block}
}

func (a *AtRule) Children() []Node             { return a.nodes.children() }
func (a *AtRule) Append(n Node)                { a.nodes.append(a, n) }
func (a *AtRule) InsertAfter(ref, n Node) bool { return a.nodes.insertAfter(a, ref, n) }
func (a *AtRule) Remove(n Node) bool           { return a.nodes.remove(n) }

// IsKeyframes reports whether block holds keyframe selectors (from, to,
// percentages), including vendor prefixed forms.
func (a *AtRule) IsKeyframes() bool {
	return strings.HasSuffix(a.Name, "keyframes")
}

// Comment is a comment found between rules.
type Comment struct {
	parentLink

	Text string // including /* and */
}

// Stylesheet is a parsed CSS stylesheet.
type Stylesheet struct {
	nodes nodeList

	Warnings []string // Warnings for unsupported or broken input
}

// NewStylesheet creates empty stylesheet.
func NewStylesheet() *Stylesheet {
	return &Stylesheet{Warnings: make([]string, 0)}
}

func (s *Stylesheet) Children() []Node             { return s.nodes.children() }
func (s *Stylesheet) Append(n Node)                { s.nodes.append(s, n) }
func (s *Stylesheet) InsertAfter(ref, n Node) bool { return s.nodes.insertAfter(s, ref, n) }
func (s *Stylesheet) Remove(n Node) bool           { return s.nodes.remove(n) }

// Rules returns all qualified rules including the ones nested in at-rule
// blocks, in document order.
func (s *Stylesheet) Rules() []*Rule {
	var rules []*Rule
	WalkRules(s, func(r *Rule) {
		rules = append(rules, r)
	})
	return rules
}

// RulesBySelector returns all rules having exactly the given selector list.
func (s *Stylesheet) RulesBySelector(selector string) []*Rule {
	var matches []*Rule
	for _, r := range s.Rules() {
		if r.Selector() == selector {
			matches = append(matches, r)
		}
	}
	return matches
}

// WalkRules calls fn for every rule under c in document order, descending
// into at-rule blocks. Children of each container are captured before
// visiting them, so fn may insert or remove siblings of the rule it gets.
// Rules inserted during the walk are not visited.
func WalkRules(c Container, fn func(*Rule)) {
	for _, n := range c.Children() {
		switch n := n.(type) {
		case *Rule:
			fn(n)
		case *AtRule:
			if n.Block {
				WalkRules(n, fn)
			}
		}
	}
}
