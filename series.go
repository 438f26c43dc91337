/*
 * series.go, part of godos.
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

//Series holds one scalar time series per degree of freedom: for each entity
//(molecule or atom) and each spatial axis, Steps values. The series of one
//entity and axis is contiguous in Data.
type Series struct {
	N     int //entities
	Steps int
	Data  []float64
}

//NewSeries returns a zero-filled Series for n entities and steps time steps.
func NewSeries(n, steps int) *Series {
	return &Series{N: n, Steps: steps, Data: make([]float64, n*3*steps)}
}

//Row returns the series of the given entity and axis. Changes in the returned slice
//are reflected in the Series.
func (S *Series) Row(entity, dim int) []float64 {
	off := (3*entity + dim) * S.Steps
	return S.Data[off : off+S.Steps]
}

//Set sets the value of the given entity and axis at step t.
func (S *Series) Set(entity, dim, t int, val float64) {
	S.Data[(3*entity+dim)*S.Steps+t] = val
}

//At returns the value of the given entity and axis at step t.
func (S *Series) At(entity, dim, t int) float64 {
	return S.Data[(3*entity+dim)*S.Steps+t]
}

//Block contains the per-degree-of-freedom series of one trajectory block:
//the translational velocity of each molecule times the square root of its mass,
//the rotational value of each molecule (see RotationalValues), and the vibrational
//velocity of each atom times the square root of its mass.
type Block struct {
	Index int
	Trn   *Series
	Rot   *Series
	Vib   *Series
}

//NewBlock allocates the series for a block of steps frames of the system in T.
func NewBlock(T *Topology, index, steps int) *Block {
	return &Block{
		Index: index,
		Trn:   NewSeries(len(T.Mols), steps),
		Rot:   NewSeries(len(T.Mols), steps),
		Vib:   NewSeries(T.Len(), steps),
	}
}
