/*
 * spectrum.go, part of godos.
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
	"runtime"

	vecmath "github.com/cwbudde/algo-vecmath"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/dsp/fourier"
)

//Channel identifies one of the accumulated densities of states.
type Channel int

const (
	//Trn is the translation of the centers of mass, weighted by the square root of the molecular mass.
	Trn Channel = iota
	//Rot is the rotation, summed over the three rotational axes.
	Rot
	//RotA is the rotation around the first axis (a, the first principal axis, or x, depending on the policy).
	RotA
	//RotB is the rotation around the second axis.
	RotB
	//RotC is the rotation around the third axis.
	RotC
	//Vib is the vibration of the atoms, weighted by the square root of their masses.
	Vib
	//NChannels is the number of channels.
	NChannels int = iota
)

var channelNames = [...]string{"trn", "rot", "rot_a", "rot_b", "rot_c", "vib"}

func (c Channel) String() string {
	if c < 0 || int(c) >= NChannels {
		return "unknown"
	}
	return channelNames[c]
}

//Channels returns all the channels, in order.
func Channels() []Channel {
	return []Channel{Trn, Rot, RotA, RotB, RotC, Vib}
}

//Accumulator keeps the raw densities of states of each molecule type, for each channel, summed over
//the degrees of freedom of the type and over all the blocks added. Each curve has
//BlockSteps/2+1 frequency bins. No normalization of any kind is applied.
type Accumulator struct {
	NTypes     int
	BlockSteps int
	NFreq      int
	Blocks     int //number of blocks added so far
	curves     [][]float64
}

//NewAccumulator returns an empty Accumulator for ntypes molecule types and blocks of blocksteps frames.
func NewAccumulator(ntypes, blocksteps int) *Accumulator {
	nfreq := blocksteps/2 + 1
	A := &Accumulator{NTypes: ntypes, BlockSteps: blocksteps, NFreq: nfreq}
	A.curves = make([][]float64, NChannels)
	for i := range A.curves {
		A.curves[i] = make([]float64, ntypes*nfreq)
	}
	return A
}

//Curve returns the curve for the given channel and molecule type. Changes in the
//returned slice are reflected in the accumulator.
func (A *Accumulator) Curve(c Channel, moltype int) []float64 {
	return A.curves[c][moltype*A.NFreq : (moltype+1)*A.NFreq]
}

//powerer obtains one-sided power spectra. It is not safe for concurrent use.
type powerer struct {
	fft    *fourier.FFT
	coeffs []complex128
	re     []float64
	im     []float64
	pow    []float64
}

func newPowerer(steps int) *powerer {
	nfreq := steps/2 + 1
	return &powerer{
		fft:    fourier.NewFFT(steps),
		coeffs: make([]complex128, nfreq),
		re:     make([]float64, nfreq),
		im:     make([]float64, nfreq),
		pow:    make([]float64, nfreq),
	}
}

//power returns |X_k|^2 for k=0..len(seq)/2, where X is the discrete Fourier transform
//of the real sequence seq. The returned slice is overwritten by the next call.
func (p *powerer) power(seq []float64) []float64 {
	p.fft.Coefficients(p.coeffs, seq)
	for k, c := range p.coeffs {
		p.re[k] = real(c)
		p.im[k] = imag(c)
	}
	vecmath.Power(p.pow, p.re, p.im)
	return p.pow
}

//Add adds the power spectra of all the degrees of freedom in the block b to the curves of the
//molecule types they belong to. The translational and rotational spectra are summed over the 3 axes of
//each molecule of the type, the vibrational one over the 3 axes of each atom of the type. The
//rotational sub-channels a, b and c only take the first, second and third rotational axis, respectively.
//Molecule types are processed concurrently, using up to workers goroutines (GOMAXPROCS if workers < 1).
func (A *Accumulator) Add(T *Topology, b *Block, workers int) error {
	if len(T.Types) != A.NTypes {
		return newError(ErrConfig, "Accumulator.Add", "topology has %d molecule types, the accumulator %d", len(T.Types), A.NTypes)
	}
	if b.Trn.Steps != A.BlockSteps || b.Rot.Steps != A.BlockSteps || b.Vib.Steps != A.BlockSteps {
		return newError(ErrConfig, "Accumulator.Add", "block with %d steps, expected %d", b.Trn.Steps, A.BlockSteps)
	}
	if b.Trn.N != len(T.Mols) || b.Rot.N != len(T.Mols) || b.Vib.N != T.Len() {
		return newError(ErrConfig, "Accumulator.Add", "block does not match the topology")
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for h, t := range T.Types {
		g.Go(func() error {
			A.addType(h, t, b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errDecorate(err, "Accumulator.Add")
	}
	A.Blocks++
	return nil
}

//addType adds the spectra of the molecule type h. It only writes the curves of h.
func (A *Accumulator) addType(h int, t *MolType, b *Block) {
	p := newPowerer(A.BlockSteps)
	trn := A.Curve(Trn, h)
	rot := A.Curve(Rot, h)
	sub := [3][]float64{A.Curve(RotA, h), A.Curve(RotB, h), A.Curve(RotC, h)}
	vib := A.Curve(Vib, h)
	for i := t.FirstMol; i < t.FirstMol+t.NMols; i++ {
		for dim := 0; dim < 3; dim++ {
			vecmath.AddBlockInPlace(trn, p.power(b.Trn.Row(i, dim)))
			pow := p.power(b.Rot.Row(i, dim))
			vecmath.AddBlockInPlace(rot, pow)
			vecmath.AddBlockInPlace(sub[dim], pow)
		}
	}
	lastatom := t.FirstAtom + t.NMols*t.NAtoms()
	for j := t.FirstAtom; j < lastatom; j++ {
		for dim := 0; dim < 3; dim++ {
			vecmath.AddBlockInPlace(vib, p.power(b.Vib.Row(j, dim)))
		}
	}
}
