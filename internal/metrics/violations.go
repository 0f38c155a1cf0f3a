package metrics

import (
	"github.com/san-kum/psmcsim/internal/dynamo"
)

// Violation is a contiguous run of samples at or above a limit.
type Violation struct {
	MSID    string  `json:"msid"`
	Limit   float64 `json:"limit"`
	Start   float64 `json:"tstart"`
	Stop    float64 `json:"tstop"`
	MaxTemp float64 `json:"max_temp"`
}

func (v Violation) Duration() float64 {
	return v.Stop - v.Start
}

// Violations finds every interval where temps >= limit. Stop is the time
// of the last offending sample, not the first good one.
func Violations(times, temps []float64, limit float64) []Violation {
	n := len(temps)
	if len(times) < n {
		n = len(times)
	}

	var out []Violation
	for i := 0; i < n; {
		if temps[i] < limit {
			i++
			continue
		}
		v := Violation{Limit: limit, Start: times[i], MaxTemp: temps[i]}
		j := i
		for j < n && temps[j] >= limit {
			if temps[j] > v.MaxTemp {
				v.MaxTemp = temps[j]
			}
			j++
		}
		v.Stop = times[j-1]
		out = append(out, v)
		i = j
	}
	return out
}

// CheckTrajectory reports planning-limit violations for every node with a
// configured limit, ordered by MSID.
func CheckTrajectory(tr *dynamo.Trajectory, limits map[string]Limit) []Violation {
	var out []Violation
	for _, msid := range SortedMSIDs(limits) {
		l := limits[msid]
		for _, v := range Violations(tr.Times, tr.Channel(l.Node, true), l.PlanningLimit()) {
			v.MSID = msid
			out = append(out, v)
		}
	}
	return out
}
