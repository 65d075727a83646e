package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a row-major 3x3 homogeneous transform.
//
// A point (x, y) maps to (x', y') with
//
//	[x'w]   [m00 m01 m02] [x]
//	[y'w] = [m10 m11 m12] [y]
//	[ w ]   [m20 m21 m22] [1]
type Matrix [3][3]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Apply maps p through the transform, including the perspective divide.
// A point on the transform's line at infinity yields non-finite coordinates.
func (m Matrix) Apply(p Point) Point {
	w := m[2][0]*p.X + m[2][1]*p.Y + m[2][2]
	return Point{
		X: (m[0][0]*p.X + m[0][1]*p.Y + m[0][2]) / w,
		Y: (m[1][0]*p.X + m[1][1]*p.Y + m[1][2]) / w,
	}
}

// Mul returns the composition m*o (o is applied first).
func (m Matrix) Mul(o Matrix) Matrix {
	var r Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return r
}

// Inverse returns the inverse transform.
//
// Returns ErrDegenerateGeometry (wrapped) when the matrix is singular or so
// ill-conditioned that the inverse is meaningless.
func (m Matrix) Inverse() (Matrix, error) {
	a := mat.NewDense(3, 3, m.flat())

	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return Matrix{}, fmt.Errorf("%w: transform is not invertible: %v", ErrDegenerateGeometry, err)
	}

	var r Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = inv.At(i, j)
		}
	}
	if !r.isFinite() {
		return Matrix{}, fmt.Errorf("%w: inverse has non-finite entries", ErrDegenerateGeometry)
	}
	return r, nil
}

func (m Matrix) flat() []float64 {
	return []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	}
}

func (m Matrix) isFinite() bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.IsNaN(m[i][j]) || math.IsInf(m[i][j], 0) {
				return false
			}
		}
	}
	return true
}

// PerspectiveTransform solves the homography that maps each src corner onto
// the dst corner with the same index.
//
// # Algorithm
//
// Fixing m22 = 1 leaves eight unknowns. Each correspondence (x,y) -> (u,v)
// contributes two linear equations:
//
//	m00*x + m01*y + m02 - m20*x*u - m21*y*u = u
//	m10*x + m11*y + m12 - m20*x*v - m21*y*v = v
//
// The resulting 8x8 system is solved by LU decomposition.
//
// Returns ErrDegenerateGeometry (wrapped) if either quadrilateral has three
// collinear corners (the system is singular) or any coordinate is not
// finite.
func PerspectiveTransform(src, dst Quad) (Matrix, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		s, d := src[i], dst[i]
		if !s.IsFinite() || !d.IsFinite() {
			return Matrix{}, fmt.Errorf("%w: corner %d is not finite", ErrDegenerateGeometry, i)
		}

		r := 2 * i
		a.SetRow(r, []float64{s.X, s.Y, 1, 0, 0, 0, -s.X * d.X, -s.Y * d.X})
		a.SetRow(r+1, []float64{0, 0, 0, s.X, s.Y, 1, -s.X * d.Y, -s.Y * d.Y})
		b.SetVec(r, d.X)
		b.SetVec(r+1, d.Y)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Matrix{}, fmt.Errorf("%w: cannot solve perspective transform: %v", ErrDegenerateGeometry, err)
	}

	m := Matrix{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}
	if !m.isFinite() {
		return Matrix{}, fmt.Errorf("%w: perspective transform has non-finite entries", ErrDegenerateGeometry)
	}
	return m, nil
}
