// Package analysis provides studies built on repeated model runs.
//
//   - [SettlingSweep]: final temperatures of a long constant state across pitch
//   - [NewPhasePortrait]: PIN against DEA for a trajectory
//
// A settling sweep reproduces the classic "where does the DEA end up after
// a safing action" plot:
//
//	points, err := analysis.SettlingSweep(ctx, integrators.NewAnalytic(), params,
//	    analysis.PitchRange(45, 169, 1), analysis.DefaultSweep())
package analysis
