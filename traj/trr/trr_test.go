/*
 * trr_test.go, part of godos.
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

package trr

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v3 "github.com/rmera/godos/v3"
)

func frame(natoms, i int) (*v3.Matrix, *v3.Matrix) {
	x := v3.Zeros(natoms)
	v := v3.Zeros(natoms)
	for j := 0; j < natoms; j++ {
		for k := 0; k < 3; k++ {
			x.Set(j, k, 0.1*float64(j+k)+0.01*float64(i))
			v.Set(j, k, 0.3-0.07*float64(j*k+i))
		}
	}
	return x, v
}

func writeTraj(Te *testing.T, name string, natoms, frames int, double bool) {
	w, err := NewWriter(name, natoms, double)
	require.NoError(Te, err)
	box := []float64{3, 0, 0, 0, 3, 0, 0, 0, 3}
	for i := 0; i < frames; i++ {
		x, v := frame(natoms, i)
		require.NoError(Te, w.WNext(x, v, 0.002*float64(i), box))
	}
	require.NoError(Te, w.Close())
}

func TestTRRRoundTrip(Te *testing.T) {
	const natoms = 7
	const frames = 5
	for _, double := range []bool{false, true} {
		name := filepath.Join(Te.TempDir(), "test.trr")
		writeTraj(Te, name, natoms, frames, double)
		st, err := os.Stat(name)
		require.NoError(Te, err)
		rs := 4
		if double {
			rs = 8
		}
		//magic, 2 string lengths, 12 chars, 13 ints, time and lambda, box, x and v.
		assert.Equal(Te, int64(frames*(4*3+12+4*13+rs*(2+9+2*3*natoms))), st.Size())

		r, err := New(name)
		require.NoError(Te, err)
		assert.Equal(Te, natoms, r.Len())
		assert.Equal(Te, double, r.Double())
		tol := 1e-6
		if double {
			tol = 1e-15
		}
		x := v3.Zeros(natoms)
		v := v3.Zeros(natoms)
		box := make([]float64, 9)
		for i := 0; i < frames; i++ {
			t, err := r.Next(x, v, box)
			require.NoError(Te, err)
			assert.InDelta(Te, 0.002*float64(i), t, tol)
			ex, ev := frame(natoms, i)
			assert.InDeltaSlice(Te, ex.RawMatrix().Data, x.RawMatrix().Data, tol)
			assert.InDeltaSlice(Te, ev.RawMatrix().Data, v.RawMatrix().Data, tol)
			assert.InDeltaSlice(Te, []float64{3, 0, 0, 0, 3, 0, 0, 0, 3}, box, tol)
		}
		_, err = r.Next(x, v)
		require.Error(Te, err)
		_, ok := err.(*lastFrameError)
		assert.True(Te, ok, "expected a last frame error, got %v", err)
		assert.False(Te, r.Readable())
	}
}

//Frames without velocities can be skipped through, but not read for velocities.
func TestTRRPositionsOnly(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "pos.trr")
	w, err := NewWriter(name, 2, false)
	require.NoError(Te, err)
	x, _ := frame(2, 0)
	require.NoError(Te, w.WNext(x, nil, 1))
	require.NoError(Te, w.Close())
	r, err := New(name)
	require.NoError(Te, err)
	defer r.Close()
	_, err = r.Next(nil, v3.Zeros(2))
	require.Error(Te, err)
	e, ok := err.(Error)
	require.True(Te, ok)
	assert.True(Te, e.Critical())
	assert.Equal(Te, "trr", e.Format())
}

func TestTRRCorrupted(Te *testing.T) {
	dir := Te.TempDir()
	bad := filepath.Join(dir, "bad.trr")
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b, 1994)
	require.NoError(Te, os.WriteFile(bad, b, 0o644))
	_, err := New(bad)
	assert.Error(Te, err)

	name := filepath.Join(dir, "trunc.trr")
	writeTraj(Te, name, 3, 2, false)
	data, err := os.ReadFile(name)
	require.NoError(Te, err)
	require.NoError(Te, os.WriteFile(name, data[:len(data)-10], 0o644))
	r, err := New(name)
	require.NoError(Te, err)
	defer r.Close()
	_, err = r.Next(v3.Zeros(3), v3.Zeros(3))
	require.NoError(Te, err)
	_, err = r.Next(v3.Zeros(3), v3.Zeros(3))
	require.Error(Te, err)
	_, last := err.(*lastFrameError)
	assert.False(Te, last, "a truncated frame is not the end of the trajectory")
}
