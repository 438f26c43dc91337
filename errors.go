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

package dos

import (
	"errors"
	"fmt"
	"strings"
)

//The causes of the errors returned by the package. Use errors.Is to find out
//which kind of problem stopped a run.
var (
	//ErrConfig marks an inconsistent description of the system, such as an unknown
	//rotational policy or a diatomic molecule with a non-linear policy.
	ErrConfig = errors.New("configuration inconsistency")

	//ErrNumerical marks a numerical degeneracy: a singular tensor, a failed eigen-decomposition
	//or an angular velocity that disagrees too much with the angular momentum.
	ErrNumerical = errors.New("numerical degeneracy")

	//ErrFrameUnavailable marks a frame that could not be read from the trajectory.
	ErrFrameUnavailable = errors.New("frame unavailable")
)

//Error is the error type returned by godos. The Decorate method allows to add information about the
//call chain as the error travels up, without changing its type. All errors returned in a run are
//critical: the computation is a single pass over deterministic input, there is nothing to retry.
type Error struct {
	message  string
	deco     []string
	critical bool
	cause    error
}

func newError(cause error, caller string, format string, a ...interface{}) *Error {
	return &Error{message: fmt.Sprintf(format, a...), deco: []string{caller}, critical: true, cause: cause}
}

//Error returns a string with an error message.
func (err *Error) Error() string {
	msg := err.message
	if err.cause != nil {
		msg = err.cause.Error() + ": " + msg
	}
	if len(err.deco) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (in %s)", msg, strings.Join(err.deco, " <- "))
}

//Decorate will add the dec string to the decoration slice of strings of the error,
//and return the resulting slice. An empty string only returns the current decoration.
func (err *Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//Critical returns whether the error is critical or it can be ignored.
func (err *Error) Critical() bool { return err.critical }

//Unwrap returns the cause of the error (ErrConfig, ErrNumerical or ErrFrameUnavailable) or,
//when another library failed, that library's error.
func (err *Error) Unwrap() error { return err.cause }

//errDecorate decorates err with the caller's name, if err is a *Error, and returns it.
func errDecorate(err error, caller string) error {
	var e *Error
	if errors.As(err, &e) {
		e.Decorate(caller)
	}
	return err
}

//joinCause wraps err (usually coming from another package) so that it also matches cause.
func joinCause(cause, err error) error {
	return fmt.Errorf("%w: %w", cause, err)
}
