package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ValidationLimits bound the absolute residual (telemetry - model) at the
// given percentiles for each validated quantity.
var ValidationLimits = map[string]map[int]float64{
	"1pdeaat":  {1: 5.5, 50: 1.0, 99: 5.5},
	"1pin1at":  {1: 5.5, 99: 5.5},
	"aosares1": {1: 2.5, 99: 2.5},
	"power":    {1: 10, 99: 10},
	"tscpos":   {1: 2, 99: 2},
}

// Quantile returns sorted[len*q/100] of resid, matching the index rule used
// for validation reports. resid is not modified.
func Quantile(resid []float64, q int) (float64, error) {
	if len(resid) == 0 {
		return 0, fmt.Errorf("no residuals")
	}
	if q < 0 || q > 100 {
		return 0, fmt.Errorf("quantile %d out of range", q)
	}

	sorted := append([]float64(nil), resid...)
	sort.Float64s(sorted)
	idx := len(sorted) * q / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx], nil
}

// QuantileCheck is one evaluated validation quantile.
type QuantileCheck struct {
	Quantile int
	Value    float64
	Limit    float64
}

func (c QuantileCheck) OK() bool {
	return math.Abs(c.Value) <= c.Limit
}

// CheckValidation evaluates the residual quantiles configured for msid.
// The returned checks are ordered by quantile; ok is false if any fails.
func CheckValidation(msid string, resid []float64, limits map[string]map[int]float64) (checks []QuantileCheck, ok bool, err error) {
	quants, found := limits[strings.ToLower(msid)]
	if !found {
		return nil, false, fmt.Errorf("no validation limits for %q", msid)
	}

	qs := make([]int, 0, len(quants))
	for q := range quants {
		qs = append(qs, q)
	}
	sort.Ints(qs)

	ok = true
	for _, q := range qs {
		v, err := Quantile(resid, q)
		if err != nil {
			return nil, false, err
		}
		c := QuantileCheck{Quantile: q, Value: v, Limit: quants[q]}
		ok = ok && c.OK()
		checks = append(checks, c)
	}
	return checks, ok, nil
}
