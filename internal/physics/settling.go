package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/psmcsim/internal/dynamo"
)

// FullPower is the PSMC power (W) at which the settling references were
// defined: six FEPs with video boards on.
const FullPower = 128.0

// Regime is the focal-plane instrument selected by the SIM position.
type Regime int

const (
	ACIS Regime = iota
	HRCI
	HRCS
)

func (r Regime) String() string {
	switch r {
	case HRCS:
		return "hrcs"
	case HRCI:
		return "hrci"
	default:
		return "acis"
	}
}

// RegimeFor maps a SIM-Z position in motor steps to its instrument.
func RegimeFor(simpos float64) Regime {
	switch {
	case simpos < -85000:
		return HRCS
	case simpos < 0:
		return HRCI
	default:
		return ACIS
	}
}

// ReferencePitches are the pitch angles of the settling references.
var ReferencePitches = [3]float64{50, 90, 150}

// References returns the settling temperatures for r at ReferencePitches.
func (p Params) References(r Regime) [3]float64 {
	switch r {
	case HRCS:
		return [3]float64{p.HRCS50, p.HRCS90, p.HRCS150}
	case HRCI:
		return [3]float64{p.HRCI50, p.HRCI90, p.HRCI150}
	default:
		return [3]float64{p.ACIS50, p.ACIS90, p.ACIS150}
	}
}

// interpClamped linearly interpolates ys over xs, holding the end values
// outside the table.
func interpClamped(xs, ys [3]float64, x float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	for i := 1; i < len(xs); i++ {
		if x <= xs[i] {
			frac := (x - xs[i-1]) / (xs[i] - xs[i-1])
			return ys[i-1] + frac*(ys[i]-ys[i-1])
		}
	}
	return ys[len(ys)-1]
}

// TfZeroPower is the settling temperature T0 at zero PSMC power, in
// internal units:
//
//	T0 = T2(pitch) - FullPower * (1/U01 + 1/U12)
func TfZeroPower(p Params, pitch, simpos float64) (float64, error) {
	if math.IsNaN(pitch) || math.IsInf(pitch, 0) || math.IsNaN(simpos) || math.IsInf(simpos, 0) {
		return 0, fmt.Errorf("%w: pitch=%v simpos=%v", dynamo.ErrNumericDomain, pitch, simpos)
	}

	u01 := p.EffectiveU01(pitch)
	t2 := interpClamped(ReferencePitches, p.References(RegimeFor(simpos)), pitch)
	t0 := t2 - FullPower*(1/u01+1/p.U12)

	if math.IsNaN(t0) || math.IsInf(t0, 0) {
		return 0, fmt.Errorf("%w: settling temperature undefined (u01=%g u12=%g)",
			dynamo.ErrModelConfiguration, u01, p.U12)
	}
	return dynamo.ToInternal(t0), nil
}
