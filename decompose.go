/*
 * decompose.go, part of godos.
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
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	v3 "github.com/rmera/godos/v3"
)

//rcond is the relative threshold below which singular values of the moment of inertia
//tensor are ignored when solving for the angular velocity of a linear molecule.
const rcond = 0.001

//Motion is the decomposition of the velocities of one molecule in one frame.
type Motion struct {
	Trn   [3]float64 //center of mass velocity
	Omega [3]float64 //angular velocity
	L     [3]float64 //angular momentum
	Rot   [3]float64 //values for the rotational channel, see RotationalValues
	MOI   [3]float64 //moments of inertia for this frame
	Rel   *v3.Matrix //positions relative to the center of mass. nil for single atoms.
	Vib   *v3.Matrix //vibrational velocity of each atom. nil for single atoms.
}

//scratch is the work space of one worker. It is sized for the largest molecule
//and reused for every molecule and frame processed by the worker, so the decomposition
//of a frame doesn't allocate once every molecule size has been seen.
type scratch struct {
	x, v     *v3.Matrix //the molecule's positions and velocities
	rel, vib *v3.Matrix
	views    []*molViews //indexed by number of atoms, built on first use
	I        *mat.SymDense
	rot      RotState
	rw       *rotWork
	motion   Motion
}

//molViews are the views of the scratch matrices for a molecule of a given size.
type molViews struct {
	x, v, rel, vib *v3.Matrix
}

func newScratch(maxatoms int) *scratch {
	return &scratch{
		x:     v3.Zeros(maxatoms),
		v:     v3.Zeros(maxatoms),
		rel:   v3.Zeros(maxatoms),
		vib:   v3.Zeros(maxatoms),
		views: make([]*molViews, maxatoms+1),
		I:     mat.NewSymDense(3, nil),
		rw:    newRotWork(),
	}
}

//sized returns the views of the scratch matrices for a molecule of n atoms.
func (s *scratch) sized(n int) *molViews {
	if s.views[n] == nil {
		s.views[n] = &molViews{x: s.x.View(0, n), v: s.v.View(0, n), rel: s.rel.View(0, n), vib: s.vib.View(0, n)}
	}
	return s.views[n]
}

//Decompose splits the velocities v of the atoms of one molecule of type t, with positions x,
//into translation, rotation and vibration. x and v must contain only the atoms of the molecule.
//The returned Motion is only valid until the next call with the same scratch.
func decompose(t *MolType, x, v *v3.Matrix, s *scratch) (*Motion, error) {
	n := x.NVecs()
	M := &s.motion
	*M = Motion{}
	masses := t.Masses
	if n == 1 {
		M.Trn = v.Vec(0)
		return M, nil
	}
	if n == 2 && t.Policy != Linear {
		return nil, newError(ErrConfig, "decompose", "for linear molecules the rotational policy has to be 'l' (linear), not %v", t.Policy)
	}
	var mass float64
	var com [3]float64
	for j := 0; j < n; j++ {
		m := masses[j]
		r := x.RawRowView(j)
		vel := v.RawRowView(j)
		for k := 0; k < 3; k++ {
			com[k] += m * r[k]
			M.Trn[k] += m * vel[k]
		}
		mass += m
	}
	for k := 0; k < 3; k++ {
		com[k] /= mass
		M.Trn[k] /= mass
	}
	views := s.sized(n)
	M.Rel = views.rel
	M.Rel.SubVec(x, com)
	for j := 0; j < n; j++ {
		c := v3.Cross(M.Rel.Vec(j), v.Vec(j))
		for k := 0; k < 3; k++ {
			M.L[k] += masses[j] * c[k]
		}
	}
	I := s.I
	v3.MomentTensorTo(I, M.Rel, masses)
	var err error
	if t.Policy == Linear {
		//underdetermined system, I is singular along the molecular axis.
		M.Omega, err = s.rw.w.LeastSquares(I, M.L, rcond)
	} else {
		M.Omega, err = s.rw.w.Solve(I, M.L)
	}
	if err != nil {
		return nil, &Error{message: "can't obtain the angular velocity", deco: []string{"decompose"}, critical: true, cause: joinCause(ErrNumerical, err)}
	}
	M.Vib = views.vib
	for j := 0; j < n; j++ {
		w := v3.Cross(M.Omega, M.Rel.Vec(j))
		vel := v.RawRowView(j)
		vib := M.Vib.RawRowView(j)
		for k := 0; k < 3; k++ {
			vib[k] = vel[k] - w[k] - M.Trn[k]
		}
	}
	rs := &s.rot
	if err := rs.set(t.Policy, M.Rel, t.ABC, M.Omega, M.L, I, s.rw); err != nil {
		return nil, errDecorate(err, "decompose")
	}
	M.MOI = rs.MomentsOfInertia()
	M.Rot, err = RotationalValues(t.Policy, rs)
	if err != nil {
		return nil, errDecorate(err, "decompose")
	}
	return M, nil
}

//Decomposer decomposes the velocities of every molecule in the system, frame by frame,
//writing the results in the series of a Block. It also keeps the sum of the moments of
//inertia of each molecule over all the frames it has processed.
type Decomposer struct {
	top     *Topology
	workers int
	scratch []*scratch
	moi     *v3.Matrix
}

//NewDecomposer returns a Decomposer for the system in T, that will process the molecules
//of each frame with the given number of goroutines (GOMAXPROCS if workers < 1).
func NewDecomposer(T *Topology, workers int) (*Decomposer, error) {
	if err := T.Check(); err != nil {
		return nil, errDecorate(err, "NewDecomposer")
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(T.Mols) {
		workers = len(T.Mols)
	}
	D := &Decomposer{top: T, workers: workers, moi: v3.Zeros(len(T.Mols))}
	maxatoms := T.MaxMolAtoms()
	for i := 0; i < workers; i++ {
		D.scratch = append(D.scratch, newScratch(maxatoms))
	}
	return D, nil
}

//MomentsOfInertia returns a view of the sum, over all frames processed, of the moments of inertia
//of each molecule (one vector per molecule). The sum is not divided by the number of frames.
func (D *Decomposer) MomentsOfInertia() *v3.Matrix {
	return D.moi
}

//Frame decomposes the velocities v of the atoms with positions x (the whole system) and writes
//the results at the step t of the series in b.
func (D *Decomposer) Frame(b *Block, t int, x, v *v3.Matrix) error {
	natoms := D.top.Len()
	if x.NVecs() != natoms || v.NVecs() != natoms {
		return newError(ErrConfig, "Decomposer.Frame", "frame has %d positions and %d velocities, the topology has %d atoms", x.NVecs(), v.NVecs(), natoms)
	}
	if t < 0 || t >= b.Trn.Steps {
		return newError(ErrConfig, "Decomposer.Frame", "step %d out of the block (%d steps)", t, b.Trn.Steps)
	}
	nmols := len(D.top.Mols)
	chunk := (nmols + D.workers - 1) / D.workers
	var g errgroup.Group
	for w := 0; w < D.workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, nmols)
		if lo >= hi {
			break
		}
		s := D.scratch[w]
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := D.molecule(b, t, i, x, v, s); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errDecorate(err, "Decomposer.Frame")
	}
	return nil
}

//molecule decomposes the molecule i and writes its values. It only touches the
//rows of the molecule and its atoms, so molecules can be processed concurrently.
func (D *Decomposer) molecule(b *Block, t, i int, x, v *v3.Matrix, s *scratch) error {
	mol := D.top.Mols[i]
	mt := D.top.Types[mol.Type]
	views := s.sized(mol.NAtoms)
	for j := 0; j < mol.NAtoms; j++ {
		copy(views.x.RawRowView(j), x.RawRowView(mol.First+j))
		copy(views.v.RawRowView(j), v.RawRowView(mol.First+j))
	}
	M, err := decompose(mt, views.x, views.v, s)
	if err != nil {
		return errDecorate(err, "molecule "+strconv.Itoa(i))
	}
	sqm := math.Sqrt(mol.Mass)
	for dim := 0; dim < 3; dim++ {
		b.Trn.Set(i, dim, t, M.Trn[dim]*sqm)
		b.Rot.Set(i, dim, t, M.Rot[dim])
	}
	if mol.NAtoms == 1 {
		for dim := 0; dim < 3; dim++ {
			b.Vib.Set(mol.First, dim, t, 0)
		}
		return nil
	}
	for j := 0; j < mol.NAtoms; j++ {
		sq := math.Sqrt(mt.Masses[j])
		vib := M.Vib.RawRowView(j)
		for dim := 0; dim < 3; dim++ {
			b.Vib.Set(mol.First+j, dim, t, vib[dim]*sq)
		}
	}
	moi := D.moi.RawRowView(i)
	for dim := 0; dim < 3; dim++ {
		moi[dim] += M.MOI[dim]
	}
	return nil
}
