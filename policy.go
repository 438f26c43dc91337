/*
 * policy.go, part of godos.
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

import "fmt"

//Policy is the convention used to express the rotational degrees of freedom of the
//molecules of a type. It is parsed once, when the topology is built.
type Policy byte

const (
	//Linear is for linear molecules: the rotational value is sign(w)*sqrt(w*L), per axis.
	Linear Policy = 'l'
	//Principal follows the principal axes of inertia, sign-aligned to the abc frame.
	Principal Policy = 'f'
	//ABCVelocity uses the abc frame as rotational axes: w_abc*sqrt(I_abc).
	ABCVelocity Policy = 'a'
	//ABCMomentum uses the abc frame as rotational axes: L_abc/sqrt(I_abc).
	ABCMomentum Policy = 'b'
	//BodyVelocity uses the unrotated axes of the tensor: w*sqrt(I). Does not give the total rotational energy.
	BodyVelocity Policy = 'x'
	//BodyMomentum uses the unrotated axes of the tensor: L/sqrt(I). Does not give the total rotational energy.
	BodyMomentum Policy = 'y'
)

//ParsePolicy returns the Policy for the given code ("l", "f", "a", "b", "x" or "y").
func ParsePolicy(code string) (Policy, error) {
	if len(code) != 1 {
		return 0, newError(ErrConfig, "ParsePolicy", "unrecognized rotational policy %q", code)
	}
	p := Policy(code[0])
	if !p.Valid() {
		return 0, newError(ErrConfig, "ParsePolicy", "unrecognized rotational policy %q", code)
	}
	return p, nil
}

//Valid returns true if p is one of the known policies.
func (p Policy) Valid() bool {
	switch p {
	case Linear, Principal, ABCVelocity, ABCMomentum, BodyVelocity, BodyMomentum:
		return true
	}
	return false
}

//NeedsABC returns true if the policy uses the abc frame of the molecule.
func (p Policy) NeedsABC() bool {
	return p == Principal || p == ABCVelocity || p == ABCMomentum
}

func (p Policy) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Policy(%d)", byte(p))
	}
	return string(byte(p))
}

//MarshalText allows Policy to be written as its one-letter code.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, newError(ErrConfig, "MarshalText", "unrecognized rotational policy %d", byte(p))
	}
	return []byte{byte(p)}, nil
}

//UnmarshalText parses a one-letter policy code.
func (p *Policy) UnmarshalText(b []byte) error {
	q, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = q
	return nil
}

//None is the value of an abc indicator that selects the center of mass
//instead of an atom.
const None = -1

//ABC are the indicators that define the abc frame of a molecule. The first two define
//the vector a (from atom ABC[1], or the center of mass if it is None, to atom ABC[0]),
//the last two define the auxiliary vector b' in the same way. Indexes are local to the molecule.
//c is the normalized cross product of a and b', and b is the normalized cross product of c and a.
type ABC [4]int

func (A ABC) check(natoms int) error {
	for i, v := range A {
		if v == None && (i == 1 || i == 3) {
			continue
		}
		if v < 0 || v >= natoms {
			return newError(ErrConfig, "ABC.check", "abc indicator %d (%d) out of range for a molecule of %d atoms", i, v, natoms)
		}
	}
	if A[0] == A[1] || A[2] == A[3] {
		return newError(ErrConfig, "ABC.check", "abc indicators %v define a null vector", A)
	}
	return nil
}
