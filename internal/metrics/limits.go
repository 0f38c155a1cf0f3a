// Package metrics provides run observers and thermal limit checks.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/psmcsim/internal/dynamo"
)

// Telemetry names of the modelled nodes.
const (
	MSIDPIN = "1pin1at"
	MSIDDEA = "1pdeaat"
)

func NodeMSID(node int) string {
	switch node {
	case dynamo.NodePIN:
		return MSIDPIN
	case dynamo.NodeDEA:
		return MSIDDEA
	default:
		return fmt.Sprintf("node%d", node)
	}
}

// Limit holds the operating limits of one node, in degC.
type Limit struct {
	Node   int     `yaml:"-" json:"-"`
	Yellow float64 `yaml:"yellow" json:"yellow"`
	Red    float64 `yaml:"red" json:"red"`
	Margin float64 `yaml:"margin" json:"margin"`
}

// PlanningLimit is the yellow limit less the planning margin.
func (l Limit) PlanningLimit() float64 {
	return l.Yellow - l.Margin
}

// DefaultLimits are the PSMC yellow-high limits with a 4.5 degC margin.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		MSIDDEA: {Node: dynamo.NodeDEA, Yellow: 57.0, Red: 62.0, Margin: 4.5},
		MSIDPIN: {Node: dynamo.NodePIN, Yellow: 41.0, Red: 46.0, Margin: 4.5},
	}
}

// LimitFor looks up a limit by MSID, case-insensitively.
func LimitFor(limits map[string]Limit, msid string) (Limit, error) {
	l, ok := limits[strings.ToLower(msid)]
	if !ok {
		return Limit{}, fmt.Errorf("no limits for %q", msid)
	}
	return l, nil
}

// SortedMSIDs returns the keys of limits in order.
func SortedMSIDs(limits map[string]Limit) []string {
	keys := make([]string, 0, len(limits))
	for k := range limits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
