package metrics

import (
	"math"

	"github.com/san-kum/psmcsim/internal/dynamo"
)

// Peak tracks the highest temperature of one node, in degC.
type Peak struct {
	name    string
	node    int
	max     float64
	samples int
}

func NewPeak(node int) *Peak {
	return &Peak{
		name: "peak_" + NodeMSID(node),
		node: node,
		max:  math.Inf(-1),
	}
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(x dynamo.Vector, t float64) {
	p.max = math.Max(p.max, dynamo.ToCelsius(x[p.node]))
	p.samples++
}

func (p *Peak) Value() float64 {
	if p.samples == 0 {
		return math.NaN()
	}
	return p.max
}

func (p *Peak) Reset() {
	p.max = math.Inf(-1)
	p.samples = 0
}
