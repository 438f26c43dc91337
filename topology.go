/*
 * topology.go, part of godos.
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
)

//MolType is a class of structurally identical molecules, sharing atom count, mass
//pattern and rotational policy.
type MolType struct {
	Name string
	//number of molecules of this type
	NMols int
	//masses of each atom in one molecule
	Masses []float64
	Policy Policy
	ABC    ABC

	//set by NewTopology, or by hand
	FirstMol  int
	FirstAtom int
}

//NAtoms returns the number of atoms (atom sub-types) in one molecule of the type.
func (M *MolType) NAtoms() int {
	return len(M.Masses)
}

//Mass returns the mass of one molecule of the type
func (M *MolType) Mass() float64 {
	var m float64
	for _, v := range M.Masses {
		m += v
	}
	return m
}

//check checks the type on its own.
func (M *MolType) check() error {
	if M.NMols <= 0 {
		return newError(ErrConfig, "MolType.check", "moltype %q has %d molecules", M.Name, M.NMols)
	}
	n := M.NAtoms()
	if n == 0 {
		return newError(ErrConfig, "MolType.check", "moltype %q has no atoms", M.Name)
	}
	for i, m := range M.Masses {
		if m <= 0 {
			return newError(ErrConfig, "MolType.check", "atom %d of moltype %q has mass %g", i, M.Name, m)
		}
	}
	if n == 1 {
		return nil //no rotation or vibration for single atoms, the policy is ignored.
	}
	if !M.Policy.Valid() {
		return newError(ErrConfig, "MolType.check", "moltype %q: unrecognized rotational policy %v", M.Name, M.Policy)
	}
	if n == 2 && M.Policy != Linear {
		return newError(ErrConfig, "MolType.check", "moltype %q: for linear molecules the rotational policy has to be 'l' (linear), not %v", M.Name, M.Policy)
	}
	if M.Policy.NeedsABC() {
		if err := M.ABC.check(n); err != nil {
			return errDecorate(err, "MolType.check: "+M.Name)
		}
	}
	return nil
}

//Molecule is one molecule in the system.
type Molecule struct {
	First  int //index of the first atom
	NAtoms int
	Mass   float64
	Type   int //index of the MolType
}

//Topology is the static description of the system: its molecule types, molecules and atom masses.
type Topology struct {
	Types  []*MolType
	Mols   []Molecule
	Masses []float64
}

//NewTopology builds a topology where the molecules of each type, and the types themselves, are
//contiguous and in the given order. It sets FirstMol and FirstAtom in each type, and checks the result.
func NewTopology(types ...*MolType) (*Topology, error) {
	T := &Topology{Types: types}
	for h, t := range types {
		if err := t.check(); err != nil {
			return nil, errDecorate(err, "NewTopology")
		}
		t.FirstMol = len(T.Mols)
		t.FirstAtom = len(T.Masses)
		mass := t.Mass()
		for i := 0; i < t.NMols; i++ {
			T.Mols = append(T.Mols, Molecule{First: len(T.Masses), NAtoms: t.NAtoms(), Mass: mass, Type: h})
			T.Masses = append(T.Masses, t.Masses...)
		}
	}
	if err := T.Check(); err != nil {
		return nil, errDecorate(err, "NewTopology")
	}
	return T, nil
}

//Len returns the number of atoms in the system.
func (T *Topology) Len() int {
	return len(T.Masses)
}

//MaxMolAtoms returns the number of atoms in the largest molecule.
func (T *Topology) MaxMolAtoms() int {
	var m int
	for _, v := range T.Mols {
		if v.NAtoms > m {
			m = v.NAtoms
		}
	}
	return m
}

//Check verifies the consistency of the topology: the molecules exactly partition the atoms, each
//type's molecules are where the type says they are, and all of them share the type's masses and policy.
//It returns an error wrapping ErrConfig otherwise.
func (T *Topology) Check() error {
	if len(T.Types) == 0 || len(T.Mols) == 0 {
		return newError(ErrConfig, "Topology.Check", "empty topology")
	}
	owner := make([]int, len(T.Masses))
	for i := range owner {
		owner[i] = -1
	}
	for i, m := range T.Mols {
		if m.Type < 0 || m.Type >= len(T.Types) {
			return newError(ErrConfig, "Topology.Check", "molecule %d has type %d, out of range", i, m.Type)
		}
		t := T.Types[m.Type]
		if m.NAtoms != t.NAtoms() {
			return newError(ErrConfig, "Topology.Check", "molecule %d has %d atoms, its type %q has %d", i, m.NAtoms, t.Name, t.NAtoms())
		}
		if m.First < 0 || m.First+m.NAtoms > len(T.Masses) {
			return newError(ErrConfig, "Topology.Check", "atoms of molecule %d out of range", i)
		}
		var mass float64
		for j := 0; j < m.NAtoms; j++ {
			a := m.First + j
			if owner[a] != -1 {
				return newError(ErrConfig, "Topology.Check", "atom %d belongs to molecules %d and %d", a, owner[a], i)
			}
			owner[a] = i
			if math.Abs(T.Masses[a]-t.Masses[j]) > 1e-6*t.Masses[j] {
				return newError(ErrConfig, "Topology.Check", "atom %d of molecule %d has mass %g, its type %q says %g", j, i, T.Masses[a], t.Name, t.Masses[j])
			}
			mass += T.Masses[a]
		}
		if math.Abs(mass-m.Mass) > 1e-6*mass {
			return newError(ErrConfig, "Topology.Check", "molecule %d has mass %g, its atoms add up to %g", i, m.Mass, mass)
		}
	}
	for a, o := range owner {
		if o == -1 {
			return newError(ErrConfig, "Topology.Check", "atom %d belongs to no molecule", a)
		}
	}
	for h, t := range T.Types {
		if err := t.check(); err != nil {
			return errDecorate(err, "Topology.Check")
		}
		if t.FirstMol < 0 || t.FirstMol+t.NMols > len(T.Mols) {
			return newError(ErrConfig, "Topology.Check", "molecules of type %q out of range", t.Name)
		}
		for i := t.FirstMol; i < t.FirstMol+t.NMols; i++ {
			if T.Mols[i].Type != h {
				return newError(ErrConfig, "Topology.Check", "molecule %d is not of type %q", i, t.Name)
			}
		}
		if T.Mols[t.FirstMol].First != t.FirstAtom {
			return newError(ErrConfig, "Topology.Check", "type %q starts at atom %d, its first molecule at %d", t.Name, t.FirstAtom, T.Mols[t.FirstMol].First)
		}
		//the vibrational spectrum takes the atoms of a type as one contiguous range.
		last := T.Mols[t.FirstMol+t.NMols-1]
		if last.First+last.NAtoms-t.FirstAtom != t.NMols*t.NAtoms() {
			return newError(ErrConfig, "Topology.Check", "atoms of type %q are not contiguous", t.Name)
		}
	}
	return nil
}
