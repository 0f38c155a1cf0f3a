package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/psmcsim/internal/dynamo"
)

// Params are the 14 calibrated coefficients of the two-node model.
//
// Conductances are in W/K, capacities in kJ/K (time is integrated in ksec)
// and the settling references are degC at 50, 90 and 150 degrees pitch.
type Params struct {
	U01     float64 `yaml:"u01" json:"u01"`
	U01Quad float64 `yaml:"u01quad" json:"u01quad"`
	U12     float64 `yaml:"u12" json:"u12"`
	C1      float64 `yaml:"c1" json:"c1"`
	C2      float64 `yaml:"c2" json:"c2"`

	ACIS50  float64 `yaml:"acis50" json:"acis50"`
	ACIS90  float64 `yaml:"acis90" json:"acis90"`
	ACIS150 float64 `yaml:"acis150" json:"acis150"`
	HRCI50  float64 `yaml:"hrci50" json:"hrci50"`
	HRCI90  float64 `yaml:"hrci90" json:"hrci90"`
	HRCI150 float64 `yaml:"hrci150" json:"hrci150"`
	HRCS50  float64 `yaml:"hrcs50" json:"hrcs50"`
	HRCS90  float64 `yaml:"hrcs90" json:"hrcs90"`
	HRCS150 float64 `yaml:"hrcs150" json:"hrcs150"`
}

// GetParams returns the coefficients keyed by their calibration names.
func (p Params) GetParams() map[string]float64 {
	return map[string]float64{
		"u01": p.U01, "u01quad": p.U01Quad, "u12": p.U12, "c1": p.C1, "c2": p.C2,
		"acis50": p.ACIS50, "acis90": p.ACIS90, "acis150": p.ACIS150,
		"hrci50": p.HRCI50, "hrci90": p.HRCI90, "hrci150": p.HRCI150,
		"hrcs50": p.HRCS50, "hrcs90": p.HRCS90, "hrcs150": p.HRCS150,
	}
}

// SetParam updates one coefficient by name.
func (p *Params) SetParam(name string, value float64) error {
	fields := map[string]*float64{
		"u01": &p.U01, "u01quad": &p.U01Quad, "u12": &p.U12, "c1": &p.C1, "c2": &p.C2,
		"acis50": &p.ACIS50, "acis90": &p.ACIS90, "acis150": &p.ACIS150,
		"hrci50": &p.HRCI50, "hrci90": &p.HRCI90, "hrci150": &p.HRCI150,
		"hrcs50": &p.HRCS50, "hrcs90": &p.HRCS90, "hrcs150": &p.HRCS150,
	}
	f, ok := fields[name]
	if !ok {
		return fmt.Errorf("unknown parameter: %s", name)
	}
	*f = value
	return nil
}

// Validate rejects non-finite coefficients and non-positive capacities.
func (p Params) Validate() error {
	for name, v := range p.GetParams() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: parameter %s is %v", dynamo.ErrModelConfiguration, name, v)
		}
	}
	if p.C1 <= 0 || p.C2 <= 0 {
		return fmt.Errorf("%w: heat capacities must be positive (c1=%g c2=%g)",
			dynamo.ErrModelConfiguration, p.C1, p.C2)
	}
	return nil
}

// EffectiveU01 applies the quadratic pitch correction centred on 110 deg.
func (p Params) EffectiveU01(pitch float64) float64 {
	x := (pitch - 110.0) / 60.0
	return p.U01 + p.U01Quad*x*x
}
