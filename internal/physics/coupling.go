package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/psmcsim/internal/dynamo"
)

// Matrix is a row-major 2x2 matrix.
type Matrix [2][2]float64

func (m Matrix) MulVec(v dynamo.Vector) dynamo.Vector {
	return dynamo.Vector{
		m[0][0]*v[0] + m[0][1]*v[1],
		m[1][0]*v[0] + m[1][1]*v[1],
	}
}

func (m Matrix) Det() float64 {
	return m[0][0]*m[1][1] - m[0][1]*m[1][0]
}

func (m Matrix) isFinite() bool {
	for _, row := range m {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Eigen is the decomposition M = Vecs * diag(Values) * VecsInv. The
// eigenvectors are the columns of Vecs.
type Eigen struct {
	Values  [2]float64
	Vecs    Matrix
	VecsInv Matrix
}

// CouplingMatrix builds the state matrix of the two-node model for pitch.
// Rates are per ksec.
//
//	M = [[-(U01+U12)/C1, U12/C1], [U12/C2, -U12/C2]]
func CouplingMatrix(p Params, pitch float64) Matrix {
	u01 := p.EffectiveU01(pitch)
	return Matrix{
		{-(u01 + p.U12) / p.C1, p.U12 / p.C1},
		{p.U12 / p.C2, -p.U12 / p.C2},
	}
}

// Decompose computes the eigendecomposition of a real 2x2 matrix in closed
// form. Complex or defective spectra are rejected.
func Decompose(m Matrix) (Eigen, error) {
	if !m.isFinite() {
		return Eigen{}, fmt.Errorf("%w: coupling matrix has non-finite entries", dynamo.ErrModelConfiguration)
	}

	a, b := m[0][0], m[0][1]
	c, d := m[1][0], m[1][1]

	if b == 0 && c == 0 {
		return Eigen{
			Values:  [2]float64{a, d},
			Vecs:    Matrix{{1, 0}, {0, 1}},
			VecsInv: Matrix{{1, 0}, {0, 1}},
		}, nil
	}

	tr := a + d
	det := a*d - b*c
	disc := tr*tr - 4*det
	if disc < 0 {
		return Eigen{}, fmt.Errorf("%w: complex eigenvalues (discriminant %g)", dynamo.ErrModelConfiguration, disc)
	}

	// q carries the larger-magnitude root; the other follows from det/q.
	sq := math.Sqrt(disc)
	q := 0.5 * (tr - sq)
	if tr > 0 {
		q = 0.5 * (tr + sq)
	}
	var l1, l2 float64
	if q == 0 {
		l1, l2 = 0, 0
	} else {
		l1, l2 = det/q, q
	}
	if l1 == l2 {
		return Eigen{}, fmt.Errorf("%w: repeated eigenvalue %g is not diagonalizable", dynamo.ErrModelConfiguration, l1)
	}

	var vecs Matrix
	if b != 0 {
		vecs = Matrix{{b, b}, {l1 - a, l2 - a}}
	} else {
		vecs = Matrix{{l1 - d, l2 - d}, {c, c}}
	}

	vdet := vecs.Det()
	scale := math.Abs(vecs[0][0]*vecs[1][1]) + math.Abs(vecs[0][1]*vecs[1][0])
	if vdet == 0 || math.Abs(vdet) < 1e-14*scale {
		return Eigen{}, fmt.Errorf("%w: singular eigenvector basis", dynamo.ErrModelConfiguration)
	}
	inv := Matrix{
		{vecs[1][1] / vdet, -vecs[0][1] / vdet},
		{-vecs[1][0] / vdet, vecs[0][0] / vdet},
	}

	e := Eigen{Values: [2]float64{l1, l2}, Vecs: vecs, VecsInv: inv}
	if !inv.isFinite() || math.IsNaN(l1) || math.IsNaN(l2) {
		return Eigen{}, fmt.Errorf("%w: degenerate eigendecomposition", dynamo.ErrModelConfiguration)
	}
	return e, nil
}

// Coupling builds and decomposes the coupling matrix for one pitch.
func Coupling(p Params, pitch float64) (Matrix, Eigen, error) {
	if err := p.Validate(); err != nil {
		return Matrix{}, Eigen{}, err
	}
	if math.IsNaN(pitch) || math.IsInf(pitch, 0) {
		return Matrix{}, Eigen{}, fmt.Errorf("%w: pitch=%v", dynamo.ErrNumericDomain, pitch)
	}
	m := CouplingMatrix(p, pitch)
	e, err := Decompose(m)
	if err != nil {
		return Matrix{}, Eigen{}, err
	}
	return m, e, nil
}
