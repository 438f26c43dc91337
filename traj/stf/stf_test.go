/*
 * stf_test.go, part of godos.
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

package stf

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v3 "github.com/rmera/godos/v3"
)

type lastFrame interface {
	NormalLastFrameTermination()
}

func frame(natoms, i int) (*v3.Matrix, *v3.Matrix) {
	x := v3.Zeros(natoms)
	v := v3.Zeros(natoms)
	for j := 0; j < natoms; j++ {
		for k := 0; k < 3; k++ {
			x.Set(j, k, float64(10*j+k)+0.25*float64(i))
			v.Set(j, k, -1.5+0.0123*float64(j*k+i))
		}
	}
	return x, v
}

//Tests writing and reading back frames with every compression.
func TestSTFRoundTrip(Te *testing.T) {
	const natoms = 5
	const frames = 4
	dir := Te.TempDir()
	for _, ext := range []string{"stf", "stz", "stl", "str"} {
		name := filepath.Join(dir, "test."+ext)
		fmt.Println("STF round trip test:", name)
		w, err := NewWriter(name, natoms, map[string]string{"program": "godos"})
		require.NoError(Te, err)
		box := []float64{30, 0, 0, 0, 30, 0, 0, 0, 30}
		for i := 0; i < frames; i++ {
			x, v := frame(natoms, i)
			require.NoError(Te, w.WNext(x, v, 0.004*float64(i), box))
		}
		require.NoError(Te, w.Close())

		r, header, err := New(name)
		require.NoError(Te, err)
		assert.Equal(Te, "godos", header["program"])
		assert.Equal(Te, natoms, r.Len())
		assert.True(Te, r.Velocities())
		x := v3.Zeros(natoms)
		v := v3.Zeros(natoms)
		rbox := make([]float64, 9)
		for i := 0; i < frames; i++ {
			t, err := r.Next(x, v, rbox)
			require.NoError(Te, err)
			assert.InDelta(Te, 0.004*float64(i), t, 1e-12)
			ex, ev := frame(natoms, i)
			assert.InDeltaSlice(Te, ex.RawMatrix().Data, x.RawMatrix().Data, 0.005)
			assert.InDeltaSlice(Te, ev.RawMatrix().Data, v.RawMatrix().Data, 0.00005)
			assert.Equal(Te, box, rbox)
		}
		_, err = r.Next(x, v)
		require.Error(Te, err)
		_, ok := err.(lastFrame)
		assert.True(Te, ok, "expected a last frame error, got %v", err)
		assert.False(Te, r.Readable())
	}
}

func TestSTFPrecision(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "prec.stf")
	w, err := NewWriter(name, 1, map[string]string{KeyPrec: "4", KeyVPrec: "6"})
	require.NoError(Te, err)
	x, _ := v3.NewMatrix([]float64{1.23456, -2.34567, 3.45678})
	v, _ := v3.NewMatrix([]float64{0.1234567, -0.7654321, 1e-7})
	require.NoError(Te, w.WNext(x, v, 1.5))
	require.NoError(Te, w.Close())
	r, header, err := New(name)
	require.NoError(Te, err)
	defer r.Close()
	assert.Equal(Te, "4", header[KeyPrec])
	rx := v3.Zeros(1)
	rv := v3.Zeros(1)
	t, err := r.Next(rx, rv)
	require.NoError(Te, err)
	assert.Equal(Te, 1.5, t)
	assert.InDeltaSlice(Te, x.RawMatrix().Data, rx.RawMatrix().Data, 0.00005)
	assert.InDeltaSlice(Te, v.RawMatrix().Data, rv.RawMatrix().Data, 0.0000005)
}

//A file without velocities, as the ones written by other STF implementations, can be read for
//positions only.
func TestSTFNoVelocities(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "old.stz")
	f, err := os.Create(name)
	require.NoError(Te, err)
	gz := gzip.NewWriter(f)
	fmt.Fprint(gz, "prec=2\n** 2\n100 200 300\n-100 0 50\n*\n")
	require.NoError(Te, gz.Close())
	require.NoError(Te, f.Close())

	r, _, err := New(name)
	require.NoError(Te, err)
	defer r.Close()
	assert.False(Te, r.Velocities())
	_, err = r.Next(v3.Zeros(2), v3.Zeros(2))
	assert.Error(Te, err)
	x := v3.Zeros(2)
	t, err := r.Next(x, nil)
	require.NoError(Te, err)
	assert.Equal(Te, 0.0, t)
	assert.Equal(Te, []float64{1, 2, 3, -1, 0, 0.5}, x.RawMatrix().Data)
}

func TestSTFTruncated(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "trunc.stz")
	f, err := os.Create(name)
	require.NoError(Te, err)
	gz := gzip.NewWriter(f)
	fmt.Fprint(gz, "prec=2\nvel=1\n** 2\n100 200 300 1 1 1\n")
	require.NoError(Te, gz.Close())
	require.NoError(Te, f.Close())

	r, _, err := New(name)
	require.NoError(Te, err)
	defer r.Close()
	_, err = r.Next(v3.Zeros(2), v3.Zeros(2))
	require.Error(Te, err)
	e, ok := err.(Error)
	require.True(Te, ok)
	assert.True(Te, e.Critical())
	assert.Equal(Te, "stf", e.Format())
}
