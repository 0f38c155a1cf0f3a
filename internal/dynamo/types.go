package dynamo

import (
	"fmt"
	"math"
)

// CtoK is the offset between degC and the internal absolute unit.
const CtoK = 273.15

// DefaultDt is the model sample spacing in seconds.
const DefaultDt = 32.8

func ToInternal(c float64) float64 { return c + CtoK }
func ToCelsius(k float64) float64  { return k - CtoK }

// Node indices into a Vector.
const (
	NodePIN = 0
	NodeDEA = 1
)

// Vector holds the temperatures of the two lumped nodes.
type Vector [2]float64

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (v Vector) Norm() float64 {
	return math.Hypot(v[0], v[1])
}

func (v Vector) Add(other Vector) Vector {
	return Vector{v[0] + other[0], v[1] + other[1]}
}

func (v Vector) Sub(other Vector) Vector {
	return Vector{v[0] - other[0], v[1] - other[1]}
}

func (v Vector) Scale(factor float64) Vector {
	return Vector{v[0] * factor, v[1] * factor}
}

// Celsius converts an internal vector to degC.
func (v Vector) Celsius() Vector {
	return Vector{ToCelsius(v[0]), ToCelsius(v[1])}
}

type System interface {
	Derive(x Vector, t float64) Vector
}

type Integrator interface {
	Step(dyn System, x Vector, t, dt float64) Vector
}

type Metric interface {
	Name() string
	Observe(x Vector, t float64)
	Value() float64
	Reset()
}

type Config struct {
	Dt            float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            DefaultDt,
		ValidateState: true,
	}
}

// Trajectory is the concatenated internal model output. Times are absolute
// seconds and may repeat at segment boundaries.
type Trajectory struct {
	Times []float64
	Temps []Vector
}

func NewTrajectory(capacity int) *Trajectory {
	return &Trajectory{
		Times: make([]float64, 0, capacity),
		Temps: make([]Vector, 0, capacity),
	}
}

func (tr *Trajectory) Len() int { return len(tr.Times) }

func (tr *Trajectory) Append(t float64, x Vector) {
	tr.Times = append(tr.Times, t)
	tr.Temps = append(tr.Temps, x)
}

func (tr *Trajectory) At(i int) (float64, Vector) {
	return tr.Times[i], tr.Temps[i]
}

// Last returns the final sample. It panics on an empty trajectory.
func (tr *Trajectory) Last() (float64, Vector) {
	return tr.At(tr.Len() - 1)
}

// Channel extracts one node as a slice, optionally in degC.
func (tr *Trajectory) Channel(node int, celsius bool) []float64 {
	out := make([]float64, len(tr.Temps))
	for i, x := range tr.Temps {
		out[i] = x[node]
		if celsius {
			out[i] = ToCelsius(out[i])
		}
	}
	return out
}

type Result struct {
	Trajectory *Trajectory
	// Bounds[i] is the index of the first sample of segment i.
	Bounds   []int
	Segments int
	Metrics  map[string]float64
}

type SimError struct {
	Time    float64
	Segment int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("segment %d (t=%.2f): %s", e.Segment, e.Time, e.Message)
}
