/*
 * rotation.go, part of godos.
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

package dos

import (
	"math"

	"gonum.org/v1/gonum/mat"

	v3 "github.com/rmera/godos/v3"
)

//negTolerance is the most negative value of w*L that is still considered
//floating point noise around zero.
const negTolerance = -0.001

//RotState contains the rotational quantities of one molecule in one frame, from which
//the values for the rotational channel are obtained.
type RotState struct {
	Omega [3]float64 //angular velocity
	L     [3]float64 //angular momentum
	I     *mat.SymDense

	//Only for non-linear molecules
	Evecs *mat.Dense //principal axes, in columns, sign-aligned with the abc frame
	Evals []float64  //principal moments of inertia, ascending
	ABC   *mat.Dense //a, b and c in columns. Only for the policies that use it.
	IABC  *mat.Dense //the tensor in the abc frame, abc^-1 * I * abc
}

//ABCFrame returns the orthonormal abc frame defined by the indicators ind
//for a molecule with the given positions relative to its center of mass.
//The vectors a, b and c are the columns of the returned matrix.
func ABCFrame(rel *v3.Matrix, ind ABC) *mat.Dense {
	ret := mat.NewDense(3, 3, nil)
	abcFrameTo(ret, rel, ind)
	return ret
}

func abcFrameTo(dst *mat.Dense, rel *v3.Matrix, ind ABC) {
	vec := func(i, j int) [3]float64 {
		r := rel.Vec(i)
		if j != None {
			o := rel.Vec(j)
			r = [3]float64{r[0] - o[0], r[1] - o[1], r[2] - o[2]}
		}
		return r
	}
	a := v3.Unit(vec(ind[0], ind[1]))
	bp := vec(ind[2], ind[3])
	c := v3.Unit(v3.Cross(a, bp))
	b := v3.Unit(v3.Cross(c, a))
	for i := 0; i < 3; i++ {
		dst.Set(i, 0, a[i])
		dst.Set(i, 1, b[i])
		dst.Set(i, 2, c[i])
	}
}

//alignAxes flips, independently, each column of evecs so it points to the same half-space
//as the corresponding column of abc.
func alignAxes(evecs, abc *mat.Dense) {
	for j := 0; j < 3; j++ {
		if mat.Dot(evecs.ColView(j), abc.ColView(j)) < 0 {
			for i := 0; i < 3; i++ {
				evecs.Set(i, j, -evecs.At(i, j))
			}
		}
	}
}

//rotWork is the storage reused by a RotState from one molecule to the next.
type rotWork struct {
	w    *v3.Work3
	abc  *mat.Dense
	inv  *mat.Dense
	tmp  *mat.Dense
	iabc *mat.Dense
}

func newRotWork() *rotWork {
	return &rotWork{
		w:    v3.NewWork3(),
		abc:  mat.NewDense(3, 3, nil),
		inv:  mat.NewDense(3, 3, nil),
		tmp:  mat.NewDense(3, 3, nil),
		iabc: mat.NewDense(3, 3, nil),
	}
}

//NewRotState obtains the rotational state of a molecule given the positions of its atoms relative to
//the center of mass, their masses, angular velocity and momentum, and the moment of inertia tensor.
//For non-linear policies the tensor is diagonalized and, if the policy requires it, the abc frame is built.
func NewRotState(p Policy, rel *v3.Matrix, ind ABC, omega, L [3]float64, I *mat.SymDense) (*RotState, error) {
	r := new(RotState)
	if err := r.set(p, rel, ind, omega, L, I, newRotWork()); err != nil {
		return nil, errDecorate(err, "NewRotState")
	}
	return r, nil
}

//set fills r using the storage in rw. The matrices of r point into rw and are overwritten
//the next time rw is used.
func (r *RotState) set(p Policy, rel *v3.Matrix, ind ABC, omega, L [3]float64, I *mat.SymDense, rw *rotWork) error {
	*r = RotState{Omega: omega, L: L, I: I}
	if p == Linear {
		return nil
	}
	var err error
	r.Evecs, r.Evals, err = rw.w.EigenSym(I)
	if err != nil {
		return &Error{message: "failed to compute the eigenvalues of the moment of inertia tensor", deco: []string{"RotState.set"}, critical: true, cause: joinCause(ErrNumerical, err)}
	}
	if !p.NeedsABC() {
		return nil
	}
	r.ABC = rw.abc
	abcFrameTo(r.ABC, rel, ind)
	alignAxes(r.Evecs, r.ABC)
	if p == Principal {
		return nil
	}
	if err := v3.Inverse3x3To(rw.inv, r.ABC); err != nil {
		return &Error{message: "degenerate abc frame", deco: []string{"RotState.set"}, critical: true, cause: joinCause(ErrNumerical, err)}
	}
	rw.tmp.Mul(rw.inv, I)
	r.IABC = rw.iabc
	r.IABC.Mul(rw.tmp, r.ABC)
	return nil
}

//MomentsOfInertia returns the 3 moments of inertia to be accumulated for the molecule:
//the diagonal of the tensor for linear molecules, the principal moments otherwise.
func (r *RotState) MomentsOfInertia() [3]float64 {
	if r.Evals == nil {
		return [3]float64{r.I.At(0, 0), r.I.At(1, 1), r.I.At(2, 2)}
	}
	return [3]float64{r.Evals[0], r.Evals[1], r.Evals[2]}
}

//RotationalValues returns the value written in the rotational channel for each axis, according to
//the policy p. The returned values are such that their squares are (twice) rotational kinetic energies.
func RotationalValues(p Policy, r *RotState) ([3]float64, error) {
	var ret [3]float64
	col := func(M *mat.Dense, j int) [3]float64 {
		return [3]float64{M.At(0, j), M.At(1, j), M.At(2, j)}
	}
	for dim := 0; dim < 3; dim++ {
		switch p {
		case Linear:
			s, err := sqrtNegZero(r.Omega[dim] * r.L[dim])
			if err != nil {
				return ret, errDecorate(err, "RotationalValues")
			}
			ret[dim] = math.Copysign(s, r.Omega[dim])
		case Principal:
			wnc := v3.Dot(r.L, col(r.Evecs, dim)) / r.Evals[dim]
			ret[dim] = wnc * math.Sqrt(r.Evals[dim])
		case ABCVelocity:
			ret[dim] = v3.Dot(r.Omega, col(r.ABC, dim)) * math.Sqrt(r.IABC.At(dim, dim))
		case ABCMomentum:
			ret[dim] = v3.Dot(r.L, col(r.ABC, dim)) / math.Sqrt(r.IABC.At(dim, dim))
		case BodyVelocity:
			ret[dim] = r.Omega[dim] * math.Sqrt(r.I.At(dim, dim))
		case BodyMomentum:
			ret[dim] = r.L[dim] / math.Sqrt(r.I.At(dim, dim))
		default:
			return ret, newError(ErrConfig, "RotationalValues", "unrecognized rotational policy %v", p)
		}
	}
	return ret, nil
}

//sqrtNegZero returns the square root of a product that should be a squared magnitude.
//Small negative values are floating point noise and give zero. Larger ones mean that
//the angular velocity and momentum are too different, which is an error.
func sqrtNegZero(f float64) (float64, error) {
	if f < negTolerance {
		return 0, newError(ErrNumerical, "sqrtNegZero", "angular momentum and angular velocity too different (w*L=%g)", f)
	}
	if f < 0 {
		return 0, nil
	}
	return math.Sqrt(f), nil
}
