/*
 * doc.go, part of godos.
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

/*
Package stf implements the simple trajectory format (STF), extended to carry velocities and
the time of each frame, which is what a density of states calculation needs.
STF aims to produce reasonably small files that are very easy to read and write, so readers/writers
can be easily implemented in other programing languages / for other libraries or programs.

******************** Format Specification   ***************************************************

An STF file has the extension stf, and it is compressed with z-standard (zstd). Files with names
ending in 'z' (e.g. stz) are gzip-compressed, 'l' (stl) lzw, and 'r' (str) flate (raw deflate).

A STF file may only contain ASCII symbols.

A STF file has a "header" starting in the first line, and ending with a line that starts with the
characters "**" followed by one or more spaces, and the number of atoms per frame.

Each line of the header must be a pair key=value. The following keys are understood:

	prec=2   positions are stored in Angstrom times 10^prec. Default 2.
	vprec=4  velocities are stored in Angstrom/ps times 10^vprec. Default 4.
	vel=1    each atom line contains the velocity after the position.
	time=1   each frame termination line contains the time of the frame, in ps.

Other keys are kept and returned to the user, but have no meaning for this package.

After the header, the file has one line per atom, per frame. Each line contains 3 integers,
the x y and z cartesian coordinates, multiplied by 10^prec and rounded, followed, if vel=1, by
other 3, the x y and z components of the velocity, multiplied by 10^vprec and rounded.

Each frame ends with a line starting with the character "*" (no whitespaces before) followed,
if time=1, by one or more whitespace and the time of the frame, and, optionally, by 9 floating-point
numbers separated by spaces (precision unspecified), the vectors defining the simulation box, in Angstrom.

The "**" sequence may only be used as a header termination, as described above and can not appear
anywhere else in the file.

***************************************************************************************************
*/
package stf
