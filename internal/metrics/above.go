package metrics

import (
	"github.com/san-kum/psmcsim/internal/dynamo"
)

// TimeAbove accumulates the seconds a node spends at or above a limit
// (degC). Each interval between samples counts when its left sample is
// above the limit.
type TimeAbove struct {
	name    string
	node    int
	limit   float64
	total   float64
	lastT   float64
	above   bool
	samples int
}

func NewTimeAbove(node int, limit float64) *TimeAbove {
	return &TimeAbove{
		name:  "time_above_" + NodeMSID(node),
		node:  node,
		limit: limit,
	}
}

func (a *TimeAbove) Name() string {
	return a.name
}

func (a *TimeAbove) Observe(x dynamo.Vector, t float64) {
	if a.samples > 0 && a.above && t > a.lastT {
		a.total += t - a.lastT
	}
	a.above = dynamo.ToCelsius(x[a.node]) >= a.limit
	a.lastT = t
	a.samples++
}

func (a *TimeAbove) Value() float64 {
	return a.total
}

func (a *TimeAbove) Reset() {
	a.total = 0
	a.lastT = 0
	a.above = false
	a.samples = 0
}
