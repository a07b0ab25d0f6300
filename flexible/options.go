package flexible

import (
	"fmt"
	"slices"

	"go.uber.org/multierr"
)

// Defaults used for zero valued options.
const (
	DefaultBaseDpr      = 2
	DefaultRemUnit      = 75
	DefaultRemPrecision = 6
	// DesktopDpr is the density desktop stylesheets are resolved for.
	DesktopDpr = 2
)

// DefaultDprBuckets lists densities mobile stylesheets are split into.
var DefaultDprBuckets = []float64{3, 2, 1}

// Options controls a single stylesheet pass.
type Options struct {
	Desktop      bool      // resolve in place for DesktopDpr, never split rules
	BaseDpr      float64   // density dpr() lengths are authored for
	RemUnit      float64   // pixels in 1rem
	RemPrecision int       // fraction digits kept in computed values
	DprBuckets   []float64 // densities to produce rules for in mobile mode
	Prefixer     Prefixer  // scopes selectors to a density
}

// DefaultOptions returns options with all defaults filled in.
func DefaultOptions() Options {
	return Options{}.normalized()
}

// normalized returns copy of options with zero values replaced by defaults
// and buckets sorted in descending order.
func (o Options) normalized() Options {
	if o.BaseDpr == 0 {
		o.BaseDpr = DefaultBaseDpr
	}
	if o.RemUnit == 0 {
		o.RemUnit = DefaultRemUnit
	}
	if o.RemPrecision == 0 {
		o.RemPrecision = DefaultRemPrecision
	}
	if len(o.DprBuckets) == 0 {
		o.DprBuckets = DefaultDprBuckets
	}
	o.DprBuckets = slices.Clone(o.DprBuckets)
	slices.SortStableFunc(o.DprBuckets, func(a, b float64) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})
	if o.Prefixer == nil {
		o.Prefixer = HTMLPrefixer{}
	}
	return o
}

// Validate checks that options describe a meaningful pass.
func (o Options) Validate() (err error) {
	if o.BaseDpr < 0 {
		err = multierr.Append(err, fmt.Errorf("base dpr must be positive, got %v", o.BaseDpr))
	}
	if o.RemUnit < 0 {
		err = multierr.Append(err, fmt.Errorf("rem unit must be positive, got %v", o.RemUnit))
	}
	if o.RemPrecision < 0 {
		err = multierr.Append(err, fmt.Errorf("rem precision must not be negative, got %d", o.RemPrecision))
	}
	for _, b := range o.DprBuckets {
		if !(b > 0) {
			err = multierr.Append(err, fmt.Errorf("dpr bucket must be positive, got %v", b))
		}
	}
	return err
}
