/*
 * dosio.go, part of godos.
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

//Package dosio writes the results of a density of states calculation: the raw curves
//of each channel, the moments of inertia, the series of the first block and a JSON summary.
package dosio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zstd"

	dos "github.com/rmera/godos"
	v3 "github.com/rmera/godos/v3"
)

//Names of the files written.
const (
	CurvePrefix      = "moltype_dos_raw_"
	MomentsFile      = "mol_moments_of_inertia.txt"
	TrnDumpFile      = "mol_velocities.txt"
	RotDumpFile      = "mol_omega_sqrt_i.txt"
	VibDumpFile      = "atom_velocities_vib.txt"
	SummaryFile      = "dos.json"
	CompressedSuffix = ".zst"
)

//CurveFile returns the name of the file for the curves of the channel c.
func CurveFile(c dos.Channel) string {
	return CurvePrefix + c.String() + ".txt"
}

//outFile is a buffered output file, optionally zstd-compressed.
type outFile struct {
	f   *os.File
	z   *zstd.Encoder
	w   *bufio.Writer
	err error
}

func create(path string, compress bool) (*outFile, error) {
	if compress {
		path += CompressedSuffix
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	o := &outFile{f: f}
	var w io.Writer = f
	if compress {
		o.z, err = zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		w = o.z
	}
	o.w = bufio.NewWriter(w)
	return o, nil
}

//row writes the values separated by spaces, in one line. After the first error nothing is written.
func (o *outFile) row(vals []float64) {
	if o.err != nil {
		return
	}
	buf := make([]byte, 0, 24)
	for i, v := range vals {
		if i != 0 {
			o.w.WriteByte(' ')
		}
		buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
		o.w.Write(buf)
	}
	_, o.err = o.w.WriteString("\n")
}

func (o *outFile) Close() error {
	err := o.err
	if e := o.w.Flush(); err == nil {
		err = e
	}
	if o.z != nil {
		if e := o.z.Close(); err == nil {
			err = e
		}
	}
	if e := o.f.Close(); err == nil {
		err = e
	}
	return err
}

func writeRows(path string, compress bool, rows func(o *outFile)) error {
	o, err := create(path, compress)
	if err != nil {
		return fmt.Errorf("dosio: can't create %s: %w", path, err)
	}
	rows(o)
	if err := o.Close(); err != nil {
		return fmt.Errorf("dosio: can't write %s: %w", path, err)
	}
	return nil
}

//WriteCurves writes, in the directory dir, one file per channel, with one line per molecule type,
//containing the raw (unnormalized) curve of the type.
func WriteCurves(dir string, A *dos.Accumulator) error {
	for _, c := range dos.Channels() {
		err := writeRows(filepath.Join(dir, CurveFile(c)), false, func(o *outFile) {
			for h := 0; h < A.NTypes; h++ {
				o.row(A.Curve(c, h))
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

//WriteMomentsOfInertia writes, in the directory dir, the sums of the moments of inertia
//of each molecule, one molecule per line.
func WriteMomentsOfInertia(dir string, moi *v3.Matrix) error {
	return writeRows(filepath.Join(dir, MomentsFile), false, func(o *outFile) {
		for i := 0; i < moi.NVecs(); i++ {
			o.row(moi.RawRowView(i))
		}
	})
}

//WriteSeries writes each degree of freedom of s (entity-major, then axis) as one line with its
//values at every step.
func WriteSeries(path string, s *dos.Series, compress bool) error {
	return writeRows(path, compress, func(o *outFile) {
		for i := 0; i < s.N; i++ {
			for dim := 0; dim < 3; dim++ {
				o.row(s.Row(i, dim))
			}
		}
	})
}

//Dumper returns a function, that can be used as the Dump field of dos.Options, which writes
//the series of the block it gets in the directory dir, optionally zstd-compressed.
func Dumper(dir string, compress bool) func(b *dos.Block) error {
	return func(b *dos.Block) error {
		for _, v := range []struct {
			name string
			s    *dos.Series
		}{{TrnDumpFile, b.Trn}, {RotDumpFile, b.Rot}, {VibDumpFile, b.Vib}} {
			if err := WriteSeries(filepath.Join(dir, v.name), v.s, compress); err != nil {
				return err
			}
		}
		return nil
	}
}

//Frequencies returns the frequency of each of the nfreq bins of a curve obtained from blocks
//of n steps separated by dt. The unit is the inverse of that of dt.
func Frequencies(nfreq, n int, dt float64) []float64 {
	ret := make([]float64, nfreq)
	for k := range ret {
		ret[k] = float64(k) / (float64(n) * dt)
	}
	return ret
}

//MolType is the description of a molecule type in the summary.
type MolType struct {
	Name   string     `json:"name"`
	NMols  int        `json:"nmols"`
	NAtoms int        `json:"natoms"`
	Policy dos.Policy `json:"policy,omitempty"` //omitted for single atoms
}

//Summary contains the whole result of a run, and can be marshalled to JSON.
type Summary struct {
	MolTypes    []MolType `json:"moltypes"`
	Blocks      int       `json:"blocks"`
	BlockSteps  int       `json:"blocksteps"`
	Frames      int       `json:"frames"`
	Dt          float64   `json:"dt,omitempty"`
	Frequencies []float64 `json:"frequencies,omitempty"`
	//channel name -> one curve per molecule type
	Curves           map[string][][]float64 `json:"curves"`
	MomentsOfInertia [][3]float64           `json:"moments_of_inertia"`
}

//NewSummary collects the results of a run of the system T. If dt > 0, the frequency axis
//is included.
func NewSummary(T *dos.Topology, R *dos.Result, dt float64) *Summary {
	A := R.Acc
	S := &Summary{Blocks: A.Blocks, BlockSteps: A.BlockSteps, Frames: R.Frames, Curves: make(map[string][][]float64)}
	for _, t := range T.Types {
		m := MolType{Name: t.Name, NMols: t.NMols, NAtoms: t.NAtoms()}
		if m.NAtoms > 1 {
			m.Policy = t.Policy
		}
		S.MolTypes = append(S.MolTypes, m)
	}
	if dt > 0 {
		S.Dt = dt
		S.Frequencies = Frequencies(A.NFreq, A.BlockSteps, dt)
	}
	for _, c := range dos.Channels() {
		curves := make([][]float64, A.NTypes)
		for h := range curves {
			curves[h] = append([]float64(nil), A.Curve(c, h)...)
		}
		S.Curves[c.String()] = curves
	}
	for i := 0; i < R.MomentsOfInertia.NVecs(); i++ {
		S.MomentsOfInertia = append(S.MomentsOfInertia, R.MomentsOfInertia.Vec(i))
	}
	return S
}

//WriteJSON writes the summary in the file dir/dos.json
func (S *Summary) WriteJSON(dir string) error {
	path := filepath.Join(dir, SummaryFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dosio: can't create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", " ")
	err = enc.Encode(S)
	if e := f.Close(); err == nil {
		err = e
	}
	if err != nil {
		return fmt.Errorf("dosio: can't write %s: %w", path, err)
	}
	return nil
}

//ReadJSON reads a summary written by WriteJSON.
func ReadJSON(path string) (*Summary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	S := new(Summary)
	if err := json.Unmarshal(b, S); err != nil {
		return nil, fmt.Errorf("dosio: can't decode %s: %w", path, err)
	}
	return S, nil
}
