package flexible_test

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"flexcss/css"
	"flexcss/flexible"
)

func newTransformer(t *testing.T, opts flexible.Options) *flexible.Transformer {
	t.Helper()
	tr, err := flexible.New(opts, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tr
}

func decl(prop, value string) *css.Declaration {
	return css.NewDeclaration(prop, value)
}

// describe renders rules of a container as "selector{prop:value;...}" joined by "|".
func describe(c css.Container) string {
	var parts []string
	for _, n := range c.Children() {
		switch n := n.(type) {
		case *css.Rule:
			var sb strings.Builder
			sb.WriteString(n.Selector() + "{")
			for _, d := range n.Declarations {
				sb.WriteString(d.Property + ":" + d.Value + ";")
			}
			sb.WriteString("}")
			parts = append(parts, sb.String())
		case *css.AtRule:
			parts = append(parts, "@"+n.Name+"["+describe(n)+"]")
		}
	}
	return strings.Join(parts, "|")
}

func TestApplyMobile_DprSplit(t *testing.T) {
	sheet := css.NewStylesheet()
	rule := css.NewRule([]string{".a"}, decl("width", "dpr(100px)"))
	sheet.Append(rule)

	st := newTransformer(t, flexible.Options{}).ApplyMobile(rule)

	want := `[data-dpr="3"] .a{width:150px;}|[data-dpr="2"] .a{width:100px;}|[data-dpr="1"] .a{width:50px;}`
	if got := describe(sheet); got != want {
		t.Errorf("result =\n%s\nwant\n%s", got, want)
	}
	if rule.Parent() != nil {
		t.Error("emptied rule must be removed")
	}
	if st.Moved != 1 || st.Split != 1 || st.Inserted != 3 || st.Removed != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestApplyMobile_RemInPlace(t *testing.T) {
	sheet := css.NewStylesheet()
	rule := css.NewRule([]string{".a"}, decl("margin", "rem(75px)"))
	sheet.Append(rule)

	st := newTransformer(t, flexible.Options{}).ApplyMobile(rule)

	if got := describe(sheet); got != ".a{margin:1rem;}" {
		t.Errorf("result = %s", got)
	}
	if rule.Parent() == nil {
		t.Error("rule must be retained")
	}
	if st.Resolved != 1 || st.Inserted != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestApplyMobile_SkipGuard(t *testing.T) {
	sheet := css.NewStylesheet()
	rule := css.NewRule([]string{`[data-dpr="2"] .a`}, decl("width", "dpr(100px)"), decl("margin", "rem(75px)"))
	sheet.Append(rule)

	st := newTransformer(t, flexible.Options{}).ApplyMobile(rule)

	want := `[data-dpr="2"] .a{width:dpr(100px);margin:rem(75px);}`
	if got := describe(sheet); got != want {
		t.Errorf("result = %s, want untouched rule", got)
	}
	if st.Skipped != 1 {
		t.Errorf("expected rule to be skipped, stats %+v", st)
	}
}

func TestApplyMobile_Mixed(t *testing.T) {
	sheet := css.NewStylesheet()
	rule := css.NewRule([]string{".a", "html .b"},
		decl("width", "dpr(100px)"),
		decl("margin", "rem(75px) 0"),
		decl("color", "red"),
		decl("background", "url(img/bg@2x.png) no-repeat"),
		decl("border", "0px"),
	)
	sheet.Append(rule)
	sheet.Append(css.NewRule([]string{".next"}, decl("color", "blue")))

	newTransformer(t, flexible.Options{}).ApplyMobile(rule)

	want := strings.Join([]string{
		`.a, html .b{margin:1rem 0;color:red;border:0px;}`,
		`[data-dpr="3"] .a, html[data-dpr="3"] .b{width:150px;background:url(img/bg@3x.png) no-repeat;}`,
		`[data-dpr="2"] .a, html[data-dpr="2"] .b{width:100px;background:url(img/bg@2x.png) no-repeat;}`,
		`[data-dpr="1"] .a, html[data-dpr="1"] .b{width:50px;background:url(img/bg@1x.png) no-repeat;}`,
		`.next{color:blue;}`,
	}, "|")
	if got := describe(sheet); got != want {
		t.Errorf("result =\n%s\nwant\n%s", got, want)
	}
}

func TestApplyMobile_UrlWithoutMarkerStays(t *testing.T) {
	sheet := css.NewStylesheet()
	rule := css.NewRule([]string{".a"}, decl("background", "url(a.png)"), decl("height", "rem(150px)"))
	sheet.Append(rule)

	st := newTransformer(t, flexible.Options{}).ApplyMobile(rule)

	if got := describe(sheet); got != ".a{background:url(a.png);height:2rem;}" {
		t.Errorf("result = %s", got)
	}
	// url without marker is left as it was and is not counted
	if st.Resolved != 1 || st.Moved != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestApplyMobile_AnyDprTokenSplits(t *testing.T) {
	sheet := css.NewStylesheet()
	rule := css.NewRule([]string{".a"},
		decl("width", "dpr(10)"),
		decl("height", "dpr(-5px)"),
		decl("background", "url('@2x.png')"),
	)
	sheet.Append(rule)

	st := newTransformer(t, flexible.Options{DprBuckets: []float64{3, 1}}).ApplyMobile(rule)

	want := strings.Join([]string{
		`.a{background:url('@2x.png');}`,
		`[data-dpr="3"] .a{width:15px;height:-7.5px;}`,
		`[data-dpr="1"] .a{width:5px;height:-2.5px;}`,
	}, "|")
	if got := describe(sheet); got != want {
		t.Errorf("result =\n%s\nwant\n%s", got, want)
	}
	if st.Moved != 2 || st.Resolved != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestApplyMobile_ImportantKept(t *testing.T) {
	sheet := css.NewStylesheet()
	d := decl("font-size", "dpr(24px)")
	d.Important = true
	rule := css.NewRule([]string{"p"}, d)
	sheet.Append(rule)

	newTransformer(t, flexible.Options{DprBuckets: []float64{2}}).ApplyMobile(rule)

	rules := sheet.Rules()
	if len(rules) != 1 {
		t.Fatalf("expected single scoped rule, got %d", len(rules))
	}
	got := rules[0].Declarations[0]
	if !got.Important || got.Value != "24px" {
		t.Errorf("unexpected declaration %s", got)
	}
}

func TestApplyMobile_EmptyRuleRemoved(t *testing.T) {
	sheet := css.NewStylesheet()
	rule := css.NewRule([]string{".empty"})
	sheet.Append(rule)

	st := newTransformer(t, flexible.Options{}).ApplyMobile(rule)

	if len(sheet.Children()) != 0 || st.Removed != 1 || st.Inserted != 0 {
		t.Errorf("expected empty rule to be removed without copies, stats %+v", st)
	}
}

func TestApplyMobile_DetachedRule(t *testing.T) {
	rule := css.NewRule([]string{".a"}, decl("width", "dpr(100px)"), decl("margin", "rem(75px)"))

	st := newTransformer(t, flexible.Options{}).ApplyMobile(rule)

	if rule.GetProperty("width").Value != "dpr(100px)" {
		t.Error("density dependent declaration of detached rule must stay")
	}
	if rule.GetProperty("margin").Value != "1rem" {
		t.Error("rem declaration must be resolved")
	}
	if st.Moved != 0 || st.Removed != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestApplyMobile_BucketsSortedDescending(t *testing.T) {
	sheet := css.NewStylesheet()
	rule := css.NewRule([]string{".a"}, decl("width", "dpr(10px)"))
	sheet.Append(rule)

	tr := newTransformer(t, flexible.Options{DprBuckets: []float64{1, 3, 2.5}})
	tr.ApplyMobile(rule)

	want := `[data-dpr="3"] .a{width:15px;}|[data-dpr="2.5"] .a{width:12.5px;}|[data-dpr="1"] .a{width:5px;}`
	if got := describe(sheet); got != want {
		t.Errorf("result =\n%s\nwant\n%s", got, want)
	}
	if b := tr.Options().DprBuckets; b[0] != 3 || b[2] != 1 {
		t.Errorf("effective buckets %v are not sorted", b)
	}
}

func TestApplyMobile_CustomPrefixer(t *testing.T) {
	sheet := css.NewStylesheet()
	rule := css.NewRule([]string{"html .a"}, decl("width", "dpr(10px)"))
	sheet.Append(rule)

	opts := flexible.Options{
		DprBuckets: []float64{2},
		Prefixer: flexible.PrefixerFunc(func(selector, prefix string) string {
			return ":root" + prefix + " " + selector
		}),
	}
	newTransformer(t, opts).ApplyMobile(rule)

	if got := describe(sheet); got != `:root[data-dpr="2"] html .a{width:10px;}` {
		t.Errorf("result = %s", got)
	}
}

func TestApplyDesktop(t *testing.T) {
	rule := css.NewRule([]string{".a"},
		decl("width", "dpr(100px)"),
		decl("background", "url(a@1x.png)"),
		decl("margin", "rem(75px)"),
		decl("padding", "0px"),
		decl("color", "red"),
	)
	tr := newTransformer(t, flexible.Options{Desktop: true})

	st := tr.ApplyDesktop(rule)

	want := ".a{width:100px;background:url(a@2x.png);margin:1rem;padding:0px;color:red;}"
	sheet := css.NewStylesheet()
	sheet.Append(rule)
	if got := describe(sheet); got != want {
		t.Errorf("result =\n%s\nwant\n%s", got, want)
	}
	if st.Resolved != 3 {
		t.Errorf("expected 3 resolved declarations, stats %+v", st)
	}

	// no tokens left, second pass changes nothing
	tr.ApplyDesktop(rule)
	if got := describe(sheet); got != want {
		t.Errorf("second pass changed result to %s", got)
	}
}

func TestProcess_Mobile(t *testing.T) {
	sheet := css.NewStylesheet()
	sheet.Append(css.NewRule([]string{".a"}, decl("width", "dpr(2px)")))
	media := css.NewAtRule("media", "(min-width: 100px)", true)
	sheet.Append(media)
	media.Append(css.NewRule([]string{".b"}, decl("height", "dpr(4px)"), decl("color", "red")))
	kf := css.NewAtRule("keyframes", "grow", true)
	sheet.Append(kf)
	kf.Append(css.NewRule([]string{"to"}, decl("width", "dpr(10px)")))
	sheet.Append(css.NewRule([]string{`html[data-dpr="1"] .c`}, decl("width", "dpr(2px)")))

	st := newTransformer(t, flexible.Options{DprBuckets: []float64{2, 1}}).Process(sheet)

	want := strings.Join([]string{
		`[data-dpr="2"] .a{width:2px;}`,
		`[data-dpr="1"] .a{width:1px;}`,
		`@media[.b{color:red;}|[data-dpr="2"] .b{height:4px;}|[data-dpr="1"] .b{height:2px;}]`,
		`@keyframes[to{width:10px;}]`,
		`html[data-dpr="1"] .c{width:dpr(2px);}`,
	}, "|")
	if got := describe(sheet); got != want {
		t.Errorf("result =\n%s\nwant\n%s", got, want)
	}

	wantStats := flexible.Stats{Rules: 4, Skipped: 1, Resolved: 1, Moved: 2, Split: 2, Inserted: 4, Removed: 1}
	if st != wantStats {
		t.Errorf("stats = %+v, want %+v", st, wantStats)
	}
}

func TestProcess_KeyframesResolvedInPlace(t *testing.T) {
	sheet := css.NewStylesheet()
	kf := css.NewAtRule("keyframes", "grow", true)
	sheet.Append(kf)
	kf.Append(css.NewRule([]string{"0%"}, decl("width", "dpr(10px)"), decl("background", "url(a@1x.png)")))
	kf.Append(css.NewRule([]string{"to"}, decl("margin", "rem(75px)")))
	media := css.NewAtRule("media", "screen", true)
	sheet.Append(media)
	webkit := css.NewAtRule("-webkit-keyframes", "fade", true)
	media.Append(webkit)
	webkit.Append(css.NewRule([]string{"from"}, decl("width", "dpr(4px)")))

	st := newTransformer(t, flexible.Options{}).Process(sheet)

	want := strings.Join([]string{
		`@keyframes[0%{width:10px;background:url(a@2x.png);}|to{margin:1rem;}]`,
		`@media[@-webkit-keyframes[from{width:4px;}]]`,
	}, "|")
	if got := describe(sheet); got != want {
		t.Errorf("result =\n%s\nwant\n%s", got, want)
	}
	wantStats := flexible.Stats{Rules: 3, Resolved: 4}
	if st != wantStats {
		t.Errorf("stats = %+v, want %+v", st, wantStats)
	}
}

func TestProcess_Desktop(t *testing.T) {
	sheet := css.NewStylesheet()
	sheet.Append(css.NewRule([]string{".a"}, decl("width", "dpr(2px)"), decl("margin", "rem(7.5px)")))

	newTransformer(t, flexible.Options{Desktop: true}).Process(sheet)

	if got := describe(sheet); got != ".a{width:2px;margin:0.1rem;}" {
		t.Errorf("result = %s", got)
	}
}

func TestProcess_ParsedStylesheet(t *testing.T) {
	input := `.title { font-size: dpr(32px); line-height: rem(48px); }
html .logo { background-image: url("logo@2x.png"); }`

	sheet, err := css.NewParser(zaptest.NewLogger(t)).Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	newTransformer(t, flexible.Options{DprBuckets: []float64{2, 1}}).Process(sheet)

	want := `.title {
  line-height: 0.64rem;
}

[data-dpr="2"] .title {
  font-size: 32px;
}

[data-dpr="1"] .title {
  font-size: 16px;
}

html[data-dpr="2"] .logo {
  background-image: url("logo@2x.png");
}

html[data-dpr="1"] .logo {
  background-image: url("logo@1x.png");
}
`
	if got := sheet.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []flexible.Options{
		{BaseDpr: -1},
		{RemUnit: -75},
		{RemPrecision: -1},
		{DprBuckets: []float64{3, 0}},
	}
	for _, opts := range tests {
		if _, err := flexible.New(opts, nil); err == nil {
			t.Errorf("New(%+v) expected error", opts)
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	o := flexible.DefaultOptions()
	if o.Desktop || o.BaseDpr != 2 || o.RemUnit != 75 || o.RemPrecision != 6 {
		t.Errorf("unexpected defaults %+v", o)
	}
	if len(o.DprBuckets) != 3 || o.DprBuckets[0] != 3 || o.DprBuckets[2] != 1 {
		t.Errorf("unexpected default buckets %v", o.DprBuckets)
	}
	if _, ok := o.Prefixer.(flexible.HTMLPrefixer); !ok {
		t.Errorf("unexpected default prefixer %T", o.Prefixer)
	}
}
