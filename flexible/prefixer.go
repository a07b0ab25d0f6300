package flexible

import (
	"fmt"
	"strings"
)

const htmlElement = "html"

// Prefixer scopes a selector with a density attribute selector.
type Prefixer interface {
	Prefix(selector, prefix string) string
}

// PrefixerFunc adapts ordinary function to Prefixer.
type PrefixerFunc func(selector, prefix string) string

func (f PrefixerFunc) Prefix(selector, prefix string) string {
	return f(selector, prefix)
}

// HTMLPrefixer attaches prefix to the leading html element when selector
// starts with it and puts it in front as ancestor otherwise:
//
//	html body -> html[data-dpr="2"] body
//	.foo      -> [data-dpr="2"] .foo
type HTMLPrefixer struct{}

func (HTMLPrefixer) Prefix(selector, prefix string) string {
	if rest, ok := strings.CutPrefix(selector, htmlElement); ok && !startsWithNameChar(rest) {
		return htmlElement + prefix + rest
	}
	return prefix + " " + selector
}

// startsWithNameChar reports whether s continues an element name, as in
// "html-widget".
func startsWithNameChar(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '-' || c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

// PlainPrefixer always puts prefix in front as ancestor.
type PlainPrefixer struct{}

func (PlainPrefixer) Prefix(selector, prefix string) string {
	return prefix + " " + selector
}

// PrefixerByName returns one of built-in prefixers: "html" or "plain".
func PrefixerByName(name string) (Prefixer, error) {
	switch strings.ToLower(name) {
	case "", "html":
		return HTMLPrefixer{}, nil
	case "plain":
		return PlainPrefixer{}, nil
	}
	return nil, fmt.Errorf("unknown selector prefixer %q", name)
}

// DprAttr returns attribute selector matching documents with given density.
func DprAttr(dpr float64) string {
	return `[data-dpr="` + formatNumber(dpr) + `"]`
}

// dprGuard marks selectors already specialized for a density.
const dprGuard = "[data-dpr"

func hasDprSelector(selectors []string) bool {
	for _, s := range selectors {
		if strings.Contains(s, dprGuard) {
			return true
		}
	}
	return false
}
