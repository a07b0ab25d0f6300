// Package flexible resolves device independent lengths in stylesheets.
//
// Declaration values may use three pseudo-functions: rem(Npx) is converted
// to rem units, dpr(Npx) is scaled for a device pixel ratio and
// url(name@Nx.ext) picks an image for a device pixel ratio. For desktop
// targets everything is resolved in place for a single density. For mobile
// targets density dependent declarations are moved into copies of their rule
// scoped with [data-dpr="N"] attribute selectors, one per configured density.
package flexible

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"flexcss/css"
)

// Stats counts what a pass did to a stylesheet.
type Stats struct {
	Rules    int // rules visited
	Skipped  int // rules already specialized for a density
	Resolved int // declarations rewritten in place
	Moved    int // declarations moved into density rules
	Split    int // rules which produced density rules
	Inserted int // density rules inserted
	Removed  int // rules removed after losing all declarations
}

func (s *Stats) add(o Stats) {
	s.Rules += o.Rules
	s.Skipped += o.Skipped
	s.Resolved += o.Resolved
	s.Moved += o.Moved
	s.Split += o.Split
	s.Inserted += o.Inserted
	s.Removed += o.Removed
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("rules", s.Rules)
	enc.AddInt("skipped", s.Skipped)
	enc.AddInt("resolved", s.Resolved)
	enc.AddInt("moved", s.Moved)
	enc.AddInt("split", s.Split)
	enc.AddInt("inserted", s.Inserted)
	enc.AddInt("removed", s.Removed)
	return nil
}

// Transformer applies desktop or mobile handling to stylesheet rules. It
// keeps no state between calls.
type Transformer struct {
	opts     Options
	resolver *Resolver
	log      *zap.Logger
}

// New creates transformer, zero valued options take defaults.
func New(opts Options, log *zap.Logger) (*Transformer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transformation options: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.normalized()
	return &Transformer{
		opts:     opts,
		resolver: NewResolver(opts),
		log:      log.Named("flexible"),
	}, nil
}

// Options returns effective options.
func (t *Transformer) Options() Options {
	o := t.opts
	o.DprBuckets = slices.Clone(o.DprBuckets)
	return o
}

// Resolver returns value resolver configured with transformer options.
func (t *Transformer) Resolver() *Resolver {
	return t.resolver
}

// Process passes every rule of the stylesheet, including rules in at-rule
// blocks, through desktop or mobile handling. Rules inside @keyframes always
// get desktop handling since keyframe selectors cannot be scoped.
func (t *Transformer) Process(sheet *css.Stylesheet) Stats {
	var st Stats
	t.process(sheet, false, &st)
	t.log.Debug("Stylesheet processed", zap.Bool("desktop", t.opts.Desktop), zap.Object("stats", st))
	return st
}

func (t *Transformer) process(c css.Container, keyframes bool, st *Stats) {
	for _, n := range c.Children() {
		switch n := n.(type) {
		case *css.Rule:
			if t.opts.Desktop || keyframes {
				st.add(t.ApplyDesktop(n))
			} else {
				st.add(t.ApplyMobile(n))
			}
		case *css.AtRule:
			if n.Block {
				t.process(n, keyframes || n.IsKeyframes(), st)
			}
		}
	}
}

// ApplyDesktop resolves every declaration of the rule in place for
// DesktopDpr.
func (t *Transformer) ApplyDesktop(rule *css.Rule) (st Stats) {
	st.Rules++
	for _, d := range rule.Declarations {
		if !HasTokens(d.Value) {
			continue
		}
		st.Resolved += t.resolveInPlace(d, DesktopDpr)
	}
	return st
}

// resolveInPlace rewrites declaration value, returns 1 when it changed.
func (t *Transformer) resolveInPlace(d *css.Declaration, dpr float64) int {
	v := t.resolver.Resolve(d.Value, dpr)
	if v == d.Value {
		return 0
	}
	d.Value = v
	return 1
}

// ApplyMobile moves density dependent declarations of the rule into new
// rules, one per density bucket, inserted right after it in bucket order.
// Other declarations with tokens are resolved in place. Rule left without
// declarations is removed from its parent. Rules with selectors already
// scoped by [data-dpr] are not touched.
func (t *Transformer) ApplyMobile(rule *css.Rule) (st Stats) {
	st.Rules++
	if hasDprSelector(rule.Selectors) {
		st.Skipped++
		return st
	}

	// scoped copies go next to the rule, detached rule keeps density
	// dependent declarations as they are
	parent := rule.Parent()

	buckets := t.opts.DprBuckets
	scoped := make([]*css.Rule, len(buckets))
	for i, dpr := range buckets {
		attr := DprAttr(dpr)
		selectors := make([]string, len(rule.Selectors))
		for j, sel := range rule.Selectors {
			selectors[j] = t.opts.Prefixer.Prefix(sel, attr)
		}
		scoped[i] = css.NewRule(selectors)
	}

	// declarations are collected first, the rule changes while we go
	for _, d := range slices.Clone(rule.Declarations) {
		tokens := Scan(d.Value)
		if len(tokens) == 0 {
			continue
		}
		if !dprDependent(tokens) {
			st.Resolved += t.resolveInPlace(d, NoDpr)
			continue
		}
		if parent == nil {
			t.log.Debug("Unable to scope declaration of detached rule", zap.String("selector", rule.Selector()), zap.String("declaration", d.String()))
			continue
		}
		for i, dpr := range buckets {
			scoped[i].Append(&css.Declaration{
				Property:  d.Property,
				Value:     t.resolver.Resolve(d.Value, dpr),
				Important: d.Important,
			})
		}
		rule.RemoveDeclaration(d)
		st.Moved++
	}

	if st.Moved > 0 {
		var ref css.Node = rule
		for _, r := range scoped {
			parent.InsertAfter(ref, r)
			ref = r
		}
		st.Split++
		st.Inserted += len(scoped)
		t.log.Debug("Rule split by density", zap.String("selector", rule.Selector()), zap.Int("moved", st.Moved), zap.Int("rules", len(scoped)))
	}

	if len(rule.Declarations) == 0 && rule.Remove() {
		st.Removed++
	}
	return st
}
