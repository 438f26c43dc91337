package dosio

import (
	"bufio"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dos "github.com/rmera/godos"
	v3 "github.com/rmera/godos/v3"
)

//readRows reads a file of space separated numbers, decompressing it if its name ends in .zst
func readRows(Te *testing.T, path string) [][]float64 {
	f, err := os.Open(path)
	require.NoError(Te, err)
	defer f.Close()
	var s *bufio.Scanner
	if strings.HasSuffix(path, CompressedSuffix) {
		z, err := zstd.NewReader(f)
		require.NoError(Te, err)
		defer z.Close()
		s = bufio.NewScanner(z)
	} else {
		s = bufio.NewScanner(f)
	}
	s.Buffer(make([]byte, 1<<16), 1<<20)
	var ret [][]float64
	for s.Scan() {
		var row []float64
		for _, field := range strings.Fields(s.Text()) {
			v, err := strconv.ParseFloat(field, 64)
			require.NoError(Te, err)
			row = append(row, v)
		}
		ret = append(ret, row)
	}
	require.NoError(Te, s.Err())
	return ret
}

func system(Te *testing.T) (*dos.Topology, *dos.Block) {
	T, err := dos.NewTopology(
		&dos.MolType{Name: "co", NMols: 2, Masses: []float64{12.011, 15.999}, Policy: dos.Linear},
		&dos.MolType{Name: "Ar", NMols: 1, Masses: []float64{39.948}},
	)
	require.NoError(Te, err)
	b := dos.NewBlock(T, 0, 8)
	for _, s := range []*dos.Series{b.Trn, b.Rot, b.Vib} {
		for i := range s.Data {
			s.Data[i] = math.Sin(0.1 * float64(i))
		}
	}
	return T, b
}

func TestWriteCurves(Te *testing.T) {
	T, b := system(Te)
	A := dos.NewAccumulator(2, 8)
	require.NoError(Te, A.Add(T, b, 1))
	dir := Te.TempDir()
	require.NoError(Te, WriteCurves(dir, A))
	for _, c := range dos.Channels() {
		rows := readRows(Te, filepath.Join(dir, CurveFile(c)))
		require.Len(Te, rows, 2, c.String())
		for h, r := range rows {
			assert.Equal(Te, A.Curve(c, h), r, "%v, type %d", c, h)
		}
	}
	moi := v3.Zeros(3)
	moi.SetVec(1, [3]float64{1.5, 2.5, 0})
	require.NoError(Te, WriteMomentsOfInertia(dir, moi))
	rows := readRows(Te, filepath.Join(dir, MomentsFile))
	assert.Equal(Te, [][]float64{{0, 0, 0}, {1.5, 2.5, 0}, {0, 0, 0}}, rows)
}

func TestDumper(Te *testing.T) {
	_, b := system(Te)
	for _, compress := range []bool{false, true} {
		dir := Te.TempDir()
		require.NoError(Te, Dumper(dir, compress)(b))
		suffix := ""
		if compress {
			suffix = CompressedSuffix
		}
		for _, v := range []struct {
			name string
			s    *dos.Series
		}{{TrnDumpFile, b.Trn}, {RotDumpFile, b.Rot}, {VibDumpFile, b.Vib}} {
			rows := readRows(Te, filepath.Join(dir, v.name+suffix))
			require.Len(Te, rows, 3*v.s.N)
			for i := 0; i < v.s.N; i++ {
				for dim := 0; dim < 3; dim++ {
					assert.Equal(Te, v.s.Row(i, dim), rows[3*i+dim])
				}
			}
		}
	}
}

func TestSummary(Te *testing.T) {
	T, b := system(Te)
	A := dos.NewAccumulator(2, 8)
	require.NoError(Te, A.Add(T, b, 1))
	R := &dos.Result{Acc: A, MomentsOfInertia: v3.Zeros(3), Frames: 8}
	S := NewSummary(T, R, 0.5)
	assert.Equal(Te, []float64{0, 0.25, 0.5, 0.75, 1}, S.Frequencies)
	assert.Equal(Te, dos.Linear, S.MolTypes[0].Policy)
	assert.Equal(Te, dos.Policy(0), S.MolTypes[1].Policy)
	dir := Te.TempDir()
	require.NoError(Te, S.WriteJSON(dir))
	raw, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(Te, err)
	assert.Contains(Te, string(raw), `"policy": "l"`)
	assert.Equal(Te, 1, strings.Count(string(raw), `"policy"`))
	S2, err := ReadJSON(filepath.Join(dir, SummaryFile))
	require.NoError(Te, err)
	assert.Equal(Te, S, S2)
	assert.Nil(Te, NewSummary(T, R, 0).Frequencies)
}
