// Package physics provides the two-node lumped thermal model of the ACIS
// power supply and mechanism controller (PSMC).
//
// Node 1 is the PSMC inlet (1PIN1AT), coupled to its surroundings through
// U01 at the zero-power settling temperature. Node 2 is the DEA housing
// (1PDEAAT), heated by the PSMC power and coupled to node 1 through U12:
//
//   - [Params]: the 14 calibrated coefficients
//   - [TfZeroPower]: settling temperature vs pitch and SIM position
//   - [Coupling]: state matrix and its closed-form eigendecomposition
//   - [Segment]: one constant-input ODE segment, implementing [dynamo.System]
//
// # Units
//
// Time is integrated in ksec, so capacities are in kJ/K. Temperatures are
// in internal absolute units (see [dynamo.CtoK]).
package physics
