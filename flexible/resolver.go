package flexible

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// NoDpr requests resolution independent of device pixel ratio: only rem()
// tokens are rewritten.
const NoDpr = 0

const zeroPx = "0px"

// Resolver computes literal values for pseudo-function tokens.
type Resolver struct {
	baseDpr   float64
	remUnit   float64
	precision int
}

// NewResolver creates resolver for given options, zero fields take defaults.
func NewResolver(opts Options) *Resolver {
	opts = opts.normalized()
	return &Resolver{
		baseDpr:   opts.BaseDpr,
		remUnit:   opts.RemUnit,
		precision: opts.RemPrecision,
	}
}

// Resolve returns value with every token replaced by its literal. dpr()
// and url() tokens are rewritten only when dpr is positive, rem() tokens
// always. Text outside of tokens is preserved, the exact value "0px"
// becomes "0".
func (r *Resolver) Resolve(value string, dpr float64) string {
	if value == zeroPx {
		return "0"
	}
	tokens := Scan(value)
	if len(tokens) == 0 {
		return value
	}

	var sb strings.Builder
	sb.Grow(len(value))
	last := 0
	for _, t := range tokens {
		sb.WriteString(value[last:t.Start])
		sb.WriteString(r.resolveToken(value, t, dpr))
		last = t.End
	}
	sb.WriteString(value[last:])
	return sb.String()
}

func (r *Resolver) resolveToken(value string, t Token, dpr float64) string {
	hasDpr := dpr > 0
	switch t.Kind {
	case KindURL:
		if hasDpr {
			return "url(" + replaceDensityMarkers(t.Arg, formatNumber(dpr)) + ")"
		}
	case KindDpr:
		if hasDpr {
			return r.format(parseNumber(t.Arg)*dpr/r.baseDpr, unitPx)
		}
	case KindRem:
		return r.format(parseNumber(t.Arg)/r.remUnit, "rem")
	}
	return t.Literal(value)
}

// format rounds v to configured number of fraction digits, rounded zero is
// written without unit.
func (r *Resolver) format(v float64, unit string) string {
	v = r.round(v)
	if v == 0 {
		return "0"
	}
	return formatNumber(v) + unit
}

func (r *Resolver) round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', r.precision, 64), 64)
	if err != nil {
		return v
	}
	return rounded
}

// parseNumber converts token argument to number, anything unparsable
// becomes NaN and is carried into the output as is. Blank argument is zero.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return v
}

// formatNumber writes number in the shortest form without exponent.
func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func replaceDensityMarkers(arg, dpr string) string {
	var sb strings.Builder
	sb.Grow(len(arg))
	for i := 0; i < len(arg); i++ {
		if isDensityMarker(arg, i) {
			sb.WriteString("@" + dpr + "x")
			i += 2
			continue
		}
		sb.WriteByte(arg[i])
	}
	return sb.String()
}
