package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/san-kum/psmcsim/internal/dynamo"
)

// Interpolate evaluates the piecewise-linear curve through (xs, ys) at each
// point of at. xs must be non-decreasing. Points outside [xs[0], xs[n-1]]
// take the nearest end value. When xs repeats a value, an exact hit returns
// the first sample at that time.
func Interpolate(xs, ys, at []float64) ([]float64, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil, fmt.Errorf("interpolate: %d times for %d values", len(xs), len(ys))
	}
	for i, x := range at {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: output time %d is %v", dynamo.ErrNumericDomain, i, x)
		}
	}

	kx := make([]float64, 0, len(xs))
	ky := make([]float64, 0, len(ys))
	for i, x := range xs {
		if math.IsNaN(x) {
			return nil, fmt.Errorf("%w: sample time %d is NaN", dynamo.ErrNumericDomain, i)
		}
		if n := len(kx); n > 0 {
			if x < kx[n-1] {
				return nil, fmt.Errorf("interpolate: sample times decrease at %d (%v after %v)", i, x, kx[n-1])
			}
			if x == kx[n-1] {
				continue
			}
		}
		kx = append(kx, x)
		ky = append(ky, ys[i])
	}

	out := make([]float64, len(at))
	if len(kx) == 1 {
		for i := range out {
			out[i] = ky[0]
		}
		return out, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(kx, ky); err != nil {
		return nil, err
	}
	for i, x := range at {
		out[i] = pl.Predict(x)
	}
	return out, nil
}
