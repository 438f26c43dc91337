/*
 * run.go, part of godos.
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
	"log"

	v3 "github.com/rmera/godos/v3"
)

//Options controls a run.
type Options struct {
	Blocks     int //number of blocks
	BlockSteps int //frames per block
	Workers    int //goroutines used, GOMAXPROCS if < 1

	//Dump, if not nil, is called with the series of the first block, before its
	//spectra are accumulated.
	Dump func(b *Block) error

	//Verbose prints the progress of the run with the log package.
	Verbose bool
}

//Result contains the outcome of a run.
type Result struct {
	Acc *Accumulator
	//sum over all frames of the moments of inertia of each molecule.
	MomentsOfInertia *v3.Matrix
	Frames           int
	LastTime         float64
}

//Run reads o.Blocks blocks of o.BlockSteps frames from the trajectory traj, decomposes the velocities
//of every molecule described in T and accumulates the densities of states of each molecule type.
//Any error aborts the run. In particular, if the trajectory ends or fails before all the frames
//are read, the returned error wraps ErrFrameUnavailable.
func Run(T *Topology, traj Traj, o Options) (*Result, error) {
	if o.Blocks < 1 || o.BlockSteps < 1 {
		return nil, newError(ErrConfig, "Run", "%d blocks of %d steps requested", o.Blocks, o.BlockSteps)
	}
	if traj.Len() != T.Len() {
		return nil, newError(ErrConfig, "Run", "trajectory has %d atoms, the topology %d", traj.Len(), T.Len())
	}
	D, err := NewDecomposer(T, o.Workers)
	if err != nil {
		return nil, errDecorate(err, "Run")
	}
	R := &Result{Acc: NewAccumulator(len(T.Types), o.BlockSteps), MomentsOfInertia: D.MomentsOfInertia()}
	x := v3.Zeros(T.Len())
	v := v3.Zeros(T.Len())
	box := make([]float64, 9)
	if o.Verbose {
		log.Printf("going through %d blocks", o.Blocks)
	}
	for block := 0; block < o.Blocks; block++ {
		if o.Verbose {
			log.Printf("now doing block %d", block)
		}
		b := NewBlock(T, block, o.BlockSteps)
		for t := 0; t < o.BlockSteps; t++ {
			time, err := traj.Next(x, v, box)
			if err != nil {
				return nil, frameError(err, R.Frames)
			}
			if err := D.Frame(b, t, x, v); err != nil {
				return nil, errDecorate(err, "Run")
			}
			R.Frames++
			R.LastTime = time
		}
		if block == 0 && o.Dump != nil {
			if err := o.Dump(b); err != nil {
				return nil, &Error{message: "can't dump the first block", deco: []string{"Run"}, critical: true, cause: err}
			}
		}
		if err := R.Acc.Add(T, b, o.Workers); err != nil {
			return nil, errDecorate(err, "Run")
		}
	}
	if o.Verbose {
		log.Printf("finished all blocks, %d frames", R.Frames)
	}
	return R, nil
}

func frameError(err error, frame int) error {
	var last LastFrameError
	if errors.As(err, &last) {
		return newError(ErrFrameUnavailable, "Run", "trajectory %s ended after %d frames", last.FileName(), frame)
	}
	return &Error{message: fmt.Sprintf("reading frame %d", frame), deco: []string{"Run"}, critical: true, cause: joinCause(ErrFrameUnavailable, err)}
}
