// Package states holds the commanded operating states that drive the model.
package states

import (
	"fmt"
	"math"

	"github.com/san-kum/psmcsim/internal/dynamo"
)

// ContiguityTolerance is the largest gap or overlap, in seconds, accepted
// between consecutive states. The simulator starts each state at the
// previous stop, so the tolerance never reorders output times.
const ContiguityTolerance = 1e-6

// State is an interval of constant power, pitch and SIM position.
type State struct {
	Start  float64 `yaml:"tstart" json:"tstart"`
	Stop   float64 `yaml:"tstop" json:"tstop"`
	Power  float64 `yaml:"power" json:"power"`
	Pitch  float64 `yaml:"pitch" json:"pitch"`
	SimPos float64 `yaml:"simpos" json:"simpos"`

	// Commanded ACIS configuration, used to resolve Power.
	FEPCount int `yaml:"fep_count" json:"fep_count"`
	VidBoard int `yaml:"vid_board" json:"vid_board"`
	Clocking int `yaml:"clocking" json:"clocking"`
	ObsID    int `yaml:"obsid,omitempty" json:"obsid,omitempty"`
}

func (s State) Duration() float64 {
	return s.Stop - s.Start
}

func (s State) finite() bool {
	for _, v := range []float64{s.Start, s.Stop, s.Power, s.Pitch, s.SimPos} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Validate checks that ss is a non-empty, time-ordered and contiguous
// sequence of finite states.
func Validate(ss []State) error {
	if len(ss) == 0 {
		return fmt.Errorf("%w: no states", dynamo.ErrInvalidStateSequence)
	}
	for i, s := range ss {
		if !s.finite() {
			return fmt.Errorf("%w: state %d has non-finite values", dynamo.ErrNumericDomain, i)
		}
		if s.Stop < s.Start {
			return fmt.Errorf("%w: state %d stops (%.3f) before it starts (%.3f)",
				dynamo.ErrInvalidStateSequence, i, s.Stop, s.Start)
		}
		if s.Power < 0 {
			return fmt.Errorf("%w: state %d has negative power %.3f", dynamo.ErrInvalidStateSequence, i, s.Power)
		}
		if i > 0 {
			prev := ss[i-1]
			if math.Abs(s.Start-prev.Stop) > ContiguityTolerance {
				return fmt.Errorf("%w: state %d starts at %.3f but state %d stops at %.3f",
					dynamo.ErrInvalidStateSequence, i, s.Start, i-1, prev.Stop)
			}
		}
	}
	return nil
}

// Span returns the covered time range of a validated sequence.
func Span(ss []State) (start, stop float64) {
	if len(ss) == 0 {
		return 0, 0
	}
	return ss[0].Start, ss[len(ss)-1].Stop
}
