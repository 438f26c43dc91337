/*
 * interfaces.go, part of godos.
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

import v3 "github.com/rmera/godos/v3"

//Traj is the interface for a trajectory that contains positions and velocities.
type Traj interface {
	//Next reads the next frame, putting the positions in coords and the velocities in vels,
	//and, if given, the 9 box vector components in box. It returns the time of the frame.
	//At the end of the trajectory it returns an error satisfying LastFrameError.
	Next(coords, vels *v3.Matrix, box ...[]float64) (float64, error)

	//Len returns the number of atoms per frame
	Len() int
}

//TrajError is the interface for errors in trajectories
type TrajError interface {
	error
	Critical() bool
	FileName() string
	Format() string
}

//LastFrameError has a useless function to distinguish the harmless errors (i.e. last frame) so they can be
//filtered in a typeswitch that looks for this interface.
type LastFrameError interface {
	TrajError
	NormalLastFrameTermination() //does nothing, just to separate this interface from other TrajError's
}
