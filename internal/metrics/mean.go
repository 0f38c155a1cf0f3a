package metrics

import (
	"github.com/san-kum/psmcsim/internal/dynamo"
)

// Mean is the sample-averaged temperature of one node, in degC.
type Mean struct {
	name    string
	node    int
	sum     float64
	samples int
}

func NewMean(node int) *Mean {
	return &Mean{
		name: "mean_" + NodeMSID(node),
		node: node,
	}
}

func (m *Mean) Name() string {
	return m.name
}

func (m *Mean) Observe(x dynamo.Vector, t float64) {
	m.sum += dynamo.ToCelsius(x[m.node])
	m.samples++
}

func (m *Mean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *Mean) Reset() {
	m.sum = 0
	m.samples = 0
}
