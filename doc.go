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

/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

/*Package dos is the main package of the goDOS library. It computes translational, rotational
and vibrational densities of states (DOS) for the molecule types of a system, from a molecular
dynamics trajectory containing positions and velocities.



	**goDOS Capabilities**


    For each frame, decomposes the velocities of every molecule into
	rigid-body translation, rigid-body rotation and internal vibration.
	Molecules are processed concurrently.

    The rotational degrees of freedom can be expressed along the principal
	axes of inertia, along a molecule-defined "abc" frame (as angular velocity
	or angular momentum), along the unrotated axes, or, for linear molecules,
	from the angular velocity itself. See Policy.

    Accumulates, per molecule type, the power spectra of each degree of
	freedom over trajectory blocks, for the translational, rotational (plus
	its a, b and c projections) and vibrational channels.

    Sums the moments of inertia of each molecule over the whole run.

The trajectory is read through the Traj interface, implemented by the packages in
traj/ (GROMACS TRR and STF). The cfg package builds a Topology and opens the
trajectory from a YAML file, the dosio and dosplot packages write the results,
and cmd/doscalc puts everything together.

*/
package dos
