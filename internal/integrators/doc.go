// Package integrators solves one constant-input segment of the two-node
// model.
//
// [Analytic] is the production solver. [RK4] and [Euler] march the same
// ODE numerically and exist to cross-check it.
package integrators
