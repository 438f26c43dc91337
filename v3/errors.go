/*
 * errors.go, part of godos.
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

//Error is the error type of the package. It carries the chain of functions
//that returned it (the "decoration") and whether it is critical.
type Error struct {
	message  string
	deco     []string
	critical bool
}

//Error returns a string with an error message.
func (err Error) Error() string {
	return err.message
}

//Decorate will add the dec string to the decoration slice of strings of the error,
//and return the resulting slice.
func (err Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//Critical return whether the error is critical or it can be ignored
func (err Error) Critical() bool { return err.critical }

//errDecorate adds caller to the decoration of err, which must be an Error.
func errDecorate(err error, caller string) error {
	e := err.(Error)
	e.deco = e.Decorate(caller)
	return e
}

//PanicMsg is a message used for panics, even though it does satisfy the error interface.
//for errors use Error.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNotXx3Matrix = PanicMsg("goDOS/v3: A Matrix should have 3 columns")
	ErrEigen        = PanicMsg("goDOS/v3: Can't obtain eigenvectors/eigenvalues of given matrix")
	ErrDeterminant  = PanicMsg("goDOS/v3: Determinants are only available for 3x3 matrices")
	ErrShape        = PanicMsg("goDOS/v3: Dimension mismatch")
	ErrSingular     = PanicMsg("goDOS/v3: Singular matrix")
)
