/*
 * linalg.go, part of godos.
 *
 * Copyright 2021 Raul Mera <rauldotmeraatusachdotcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */
package v3

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack"
	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

//MomentTensor returns the moment of inertia tensor of the atoms with positions rel (relative
//to the center of mass) and the respective masses:
//I_jk = sum_atoms mass*(delta_jk*|r|^2 - r_j*r_k)
func MomentTensor(rel *Matrix, masses []float64) *mat.SymDense {
	I := mat.NewSymDense(3, nil)
	MomentTensorTo(I, rel, masses)
	return I
}

//MomentTensorTo is like MomentTensor, but puts the tensor in dst, which must be 3x3.
func MomentTensorTo(dst *mat.SymDense, rel *Matrix, masses []float64) {
	n := rel.NVecs()
	if len(masses) < n || dst.SymmetricDim() != 3 {
		panic(ErrShape)
	}
	var t [9]float64
	for i := 0; i < n; i++ {
		r := rel.RawRowView(i)
		m := masses[i]
		r2 := r[0]*r[0] + r[1]*r[1] + r[2]*r[2]
		for j := 0; j < 3; j++ {
			t[3*j+j] += m * r2
			for k := 0; k < 3; k++ {
				t[3*j+k] -= m * r[j] * r[k]
			}
		}
	}
	for j := 0; j < 3; j++ {
		for k := j; k < 3; k++ {
			dst.SetSym(j, k, t[3*j+k])
		}
	}
}

//Det3 returns the determinant of a 3x3 matrix. Panics if the matrix is not 3x3.
func Det3(A mat.Matrix) float64 {
	r, c := A.Dims()
	if r != 3 || c != 3 {
		panic(ErrDeterminant)
	}
	return (A.At(0, 0)*(A.At(1, 1)*A.At(2, 2)-A.At(2, 1)*A.At(1, 2)) - A.At(1, 0)*(A.At(0, 1)*A.At(2, 2)-A.At(2, 1)*A.At(0, 2)) + A.At(2, 0)*(A.At(0, 1)*A.At(1, 2)-A.At(1, 1)*A.At(0, 2)))
}

//Inverse3x3 returns the inverse of the 3x3 matrix A, obtained from its adjugate.
//It returns an error if the determinant of A is numerically zero.
func Inverse3x3(A mat.Matrix) (*mat.Dense, error) {
	ret := mat.NewDense(3, 3, nil)
	if err := Inverse3x3To(ret, A); err != nil {
		return nil, errDecorate(err, "Inverse3x3")
	}
	return ret, nil
}

//Inverse3x3To puts the inverse of A in dst, which must be a 3x3 matrix not sharing
//storage with A.
func Inverse3x3To(dst *mat.Dense, A mat.Matrix) error {
	d := Det3(A)
	if math.Abs(d) <= appzero {
		return Error{fmt.Sprintf("%s (det=%g)", ErrSingular, d), []string{"Inverse3x3To"}, true}
	}
	a := func(i, j int) float64 { return A.At(i, j) }
	inv := [9]float64{
		a(1, 1)*a(2, 2) - a(1, 2)*a(2, 1), a(0, 2)*a(2, 1) - a(0, 1)*a(2, 2), a(0, 1)*a(1, 2) - a(0, 2)*a(1, 1),
		a(1, 2)*a(2, 0) - a(1, 0)*a(2, 2), a(0, 0)*a(2, 2) - a(0, 2)*a(2, 0), a(0, 2)*a(1, 0) - a(0, 0)*a(1, 2),
		a(1, 0)*a(2, 1) - a(1, 1)*a(2, 0), a(0, 1)*a(2, 0) - a(0, 0)*a(2, 1), a(0, 0)*a(1, 1) - a(0, 1)*a(1, 0),
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dst.Set(i, j, inv[3*i+j]/d)
		}
	}
	return nil
}

//Work3 keeps the factorizations and buffers needed to diagonalize and solve 3x3 systems.
//Reusing a Work3 avoids allocating for every system solved. A Work3 can't be used concurrently,
//and the matrices and slices returned by its methods are only valid until the next call.
type Work3 struct {
	lu    mat.LU
	svd   mat.SVD
	u, v  *mat.Dense
	s     []float64
	x, b  *mat.VecDense
	sym   []float64 //the symmetric matrix to diagonalize, then its eigenvectors
	work  []float64
	evecs *mat.Dense
	evals []float64
}

//NewWork3 returns a ready to use Work3.
func NewWork3() *Work3 {
	W := &Work3{
		u:     mat.NewDense(3, 3, nil),
		v:     mat.NewDense(3, 3, nil),
		s:     make([]float64, 3),
		x:     mat.NewVecDense(3, nil),
		b:     mat.NewVecDense(3, nil),
		sym:   make([]float64, 9),
		evals: make([]float64, 3),
	}
	W.evecs = mat.NewDense(3, 3, W.sym)
	query := []float64{0}
	lapack64.Syev(lapack.EVCompute, W.symmetric(), W.evals, query, -1)
	W.work = make([]float64, int(query[0]))
	return W
}

func (W *Work3) symmetric() blas64.Symmetric {
	return blas64.Symmetric{Uplo: blas.Upper, N: 3, Stride: 3, Data: W.sym}
}

//EigenSym obtains the eigenvectors and eigenvalues of a symmetric 3x3 matrix.
//The eigenvectors are the columns of the returned Dense, and the eigenvalues are
//sorted in ascending order. It returns an error if the decomposition fails or
//the eigenvectors are not orthogonal.
func (W *Work3) EigenSym(in mat.Symmetric) (*mat.Dense, []float64, error) {
	if in.SymmetricDim() != 3 {
		panic(ErrShape)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			W.sym[3*i+j] = in.At(i, j)
		}
	}
	if ok := lapack64.Syev(lapack.EVCompute, W.symmetric(), W.evals, W.work, len(W.work)); !ok {
		return nil, nil, Error{string(ErrEigen), []string{"EigenSym"}, true}
	}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			d := mat.Dot(W.evecs.ColView(i), W.evecs.ColView(j))
			if math.Abs(d) > 1e-6 {
				return nil, nil, Error{fmt.Sprintf("Eigenvectors %d and %d not orthogonal. Dot: %g", i, j, d), []string{"EigenSym"}, true}
			}
		}
	}
	return W.evecs, W.evals, nil
}

//Solve solves the square system A*x=b. It returns an error if A is singular
//(or so badly conditioned that it might as well be).
func (W *Work3) Solve(A mat.Matrix, b [3]float64) ([3]float64, error) {
	var x [3]float64
	W.lu.Factorize(A)
	copy(W.b.RawVector().Data, b[:])
	if err := W.lu.SolveVecTo(W.x, false, W.b); err != nil {
		return x, Error{fmt.Sprintf("%s: %s", ErrSingular, err.Error()), []string{"Solve"}, true}
	}
	copy(x[:], W.x.RawVector().Data)
	return x, nil
}

//LeastSquares returns the minimum-norm least squares solution of A*x=b, obtained
//through a singular value decomposition of A. Singular values smaller than or equal
//to rcond times the largest singular value are considered zero. This is what one
//needs when A is rank-deficient, as the moment of inertia tensor of a linear molecule.
func (W *Work3) LeastSquares(A mat.Matrix, b [3]float64, rcond float64) ([3]float64, error) {
	var x [3]float64
	if ok := W.svd.Factorize(A, mat.SVDFull); !ok {
		return x, Error{"SVD factorization failed", []string{"LeastSquares"}, true}
	}
	s := W.svd.Values(W.s)
	W.svd.UTo(W.u)
	W.svd.VTo(W.v)
	if s[0] <= 0 {
		return x, nil //null matrix, the minimum-norm solution is zero.
	}
	cut := rcond * s[0]
	for i, sv := range s {
		if sv <= cut {
			break //singular values come in descending order
		}
		var ub float64
		for k := 0; k < 3; k++ {
			ub += W.u.At(k, i) * b[k]
		}
		ub /= sv
		for k := 0; k < 3; k++ {
			x[k] += W.v.At(k, i) * ub
		}
	}
	return x, nil
}

//EigenSym3 is like Work3.EigenSym, with a fresh work space.
func EigenSym3(in mat.Symmetric) (*mat.Dense, []float64, error) {
	return NewWork3().EigenSym(in)
}

//Solve3 is like Work3.Solve, with a fresh work space.
func Solve3(A mat.Matrix, b [3]float64) ([3]float64, error) {
	return NewWork3().Solve(A, b)
}

//LeastSquares is like Work3.LeastSquares, with a fresh work space.
func LeastSquares(A mat.Matrix, b [3]float64, rcond float64) ([3]float64, error) {
	return NewWork3().LeastSquares(A, b, rcond)
}
