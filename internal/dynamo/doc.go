// Package dynamo provides the core primitives shared by the thermal model.
//
// The package defines the types every other layer passes around:
//
//   - [Vector]: the two-node temperature state (PIN, DEA)
//   - [System]: interface for a linear ODE segment (dT/dt = f(T, t))
//   - [Trajectory]: time-ordered model output
//   - [Metric]: observer fed with every internal sample of a run
//
// Temperatures inside the model are carried in absolute units (degC plus
// [CtoK]); conversion happens at the boundary with [ToInternal] and
// [ToCelsius].
//
// # Example
//
//	seg, _ := physics.NewSegment(params, 60, 90, 75766)
//	solver := integrators.NewAnalytic()
//	temps, _ := solver.Solve(seg, elapsed, dynamo.Vector{dynamo.ToInternal(35), dynamo.ToInternal(45)})
//
// # Thread Safety
//
// Values in this package are immutable once built. [Trajectory] must not be
// mutated after it is returned by a run.
package dynamo
