/*
 * dos_test.go, part of godos.
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
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	v3 "github.com/rmera/godos/v3"
)

const (
	mO = 15.999
	mH = 1.008
	mC = 12.011
)

//water in the xz plane, with its C2 axis along z. The principal axes are the lab axes.
var waterPos = []float64{0, 0, 0, 0.757, 0, 0.586, -0.757, 0, 0.586}

func water(p Policy) *MolType {
	return &MolType{Name: "water", NMols: 1, Masses: []float64{mO, mH, mH}, Policy: p, ABC: ABC{0, None, 1, 2}}
}

func randVecs(r *rand.Rand, n int, scale float64) []float64 {
	ret := make([]float64, 3*n)
	for i := range ret {
		ret[i] = scale * (2*r.Float64() - 1)
	}
	return ret
}

func mustMatrix(Te *testing.T, data []float64) *v3.Matrix {
	M, err := v3.NewMatrix(data)
	require.NoError(Te, err)
	return M
}

//The translation, rotation and vibration of each atom must add up to its velocity.
func TestExactPartition(Te *testing.T) {
	r := rand.New(rand.NewSource(42))
	types := []*MolType{
		water(Principal), water(ABCVelocity), water(ABCMomentum), water(BodyVelocity), water(BodyMomentum),
		{Name: "methanol-ish", NMols: 1, Masses: []float64{mC, mO, mH, mH, mH, mH}, Policy: Principal, ABC: ABC{1, 0, 2, None}},
		{Name: "co2", NMols: 1, Masses: []float64{mO, mC, mO}, Policy: Linear},
		{Name: "co", NMols: 1, Masses: []float64{mC, mO}, Policy: Linear},
	}
	positions := map[string][]float64{
		"water":        waterPos,
		"methanol-ish": {0, 0, 0, 1.43, 0, 0, -0.36, 1.03, 0.1, -0.4, -0.5, 0.9, -0.35, -0.6, -0.85, 1.75, 0.9, -0.05},
		"co2":          {-1.16, 0, 0, 0, 0, 0, 1.16, 0, 0},
		"co":           {0.2, 0.3, -0.1, 0.9, 1.1, 0.4},
	}
	for _, t := range types {
		n := t.NAtoms()
		x := mustMatrix(Te, positions[t.Name])
		v := mustMatrix(Te, randVecs(r, n, 5))
		M, err := decompose(t, x, v, newScratch(n))
		require.NoError(Te, err, "%s/%v", t.Name, t.Policy)
		for j := 0; j < n; j++ {
			w := v3.Cross(M.Omega, M.Rel.Vec(j))
			vib := M.Vib.Vec(j)
			orig := v.Vec(j)
			for k := 0; k < 3; k++ {
				assert.InDelta(Te, orig[k], M.Trn[k]+w[k]+vib[k], 1e-10, "%s/%v atom %d", t.Name, t.Policy, j)
			}
		}
		if t.Policy == Linear {
			axis := v3.Unit(M.Rel.Vec(0))
			assert.InDelta(Te, 0, v3.Dot(axis, M.Omega), 1e-10, "%s: angular velocity along the molecular axis", t.Name)
		}
	}
}

//All the policies are reparametrizations of the same rotation: when the abc frame and the lab
//axes coincide with the principal axes, they must give the same rotational kinetic energy.
func TestPolicyEnergies(Te *testing.T) {
	r := rand.New(rand.NewSource(7))
	x := mustMatrix(Te, waterPos)
	for trial := 0; trial < 5; trial++ {
		v := mustMatrix(Te, randVecs(r, 3, 3))
		var energies []float64
		var wl float64
		for _, p := range []Policy{Principal, ABCVelocity, ABCMomentum, BodyVelocity, BodyMomentum} {
			M, err := decompose(water(p), x, v, newScratch(3))
			require.NoError(Te, err)
			energies = append(energies, M.Rot[0]*M.Rot[0]+M.Rot[1]*M.Rot[1]+M.Rot[2]*M.Rot[2])
			wl = v3.Dot(M.Omega, M.L)
		}
		for i, e := range energies {
			assert.InDelta(Te, wl, e, 1e-8*math.Max(1, wl), "policy %d, trial %d: %v", i, trial, energies)
		}
	}
}

//randRotation returns a random rotation matrix, built from a random unit quaternion.
func randRotation(r *rand.Rand) *mat.Dense {
	q := [4]float64{r.NormFloat64(), r.NormFloat64(), r.NormFloat64(), r.NormFloat64()}
	n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	w, x, y, z := q[0]/n, q[1]/n, q[2]/n, q[3]/n
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

//rotated returns a copy of the vectors in M, rotated by R.
func rotated(M *v3.Matrix, R *mat.Dense) *v3.Matrix {
	ret := v3.Zeros(M.NVecs())
	ret.Mul(M.Dense, R.T())
	return ret
}

//With the molecule in a general orientation the abc frame is no longer a permutation of the
//lab axes. The policies that follow the molecule must still give the rotational energy, and
//their values can't depend on the orientation (for the principal axes, only up to a sign).
func TestPolicyEnergiesRotated(Te *testing.T) {
	r := rand.New(rand.NewSource(11))
	x0 := mustMatrix(Te, waterPos)
	for trial := 0; trial < 5; trial++ {
		v0 := mustMatrix(Te, randVecs(r, 3, 3))
		R := randRotation(r)
		assert.InDelta(Te, 1, v3.Det3(R), 1e-12)
		x, v := rotated(x0, R), rotated(v0, R)
		for _, p := range []Policy{Principal, ABCVelocity, ABCMomentum} {
			M0, err := decompose(water(p), x0, v0, newScratch(3))
			require.NoError(Te, err)
			ref := M0.Rot
			M, err := decompose(water(p), x, v, newScratch(3))
			require.NoError(Te, err)
			wl := v3.Dot(M.Omega, M.L)
			e := M.Rot[0]*M.Rot[0] + M.Rot[1]*M.Rot[1] + M.Rot[2]*M.Rot[2]
			assert.InDelta(Te, wl, e, 1e-8*math.Max(1, wl), "policy %v, trial %d", p, trial)
			for dim := 0; dim < 3; dim++ {
				if p == Principal {
					assert.InDelta(Te, math.Abs(ref[dim]), math.Abs(M.Rot[dim]), 1e-8, "policy %v, trial %d, axis %d", p, trial, dim)
				} else {
					assert.InDelta(Te, ref[dim], M.Rot[dim], 1e-8, "policy %v, trial %d, axis %d", p, trial, dim)
				}
			}
			//the principal axes point to the same half-space as the abc vectors
			rs, err := NewRotState(p, M.Rel, water(p).ABC, M.Omega, M.L, v3.MomentTensor(M.Rel, water(p).Masses))
			require.NoError(Te, err)
			for j := 0; j < 3; j++ {
				assert.True(Te, mat.Dot(rs.Evecs.ColView(j), rs.ABC.ColView(j)) >= 0, "axis %d not aligned", j)
			}
		}
	}
}

func TestABCFrameOrthonormal(Te *testing.T) {
	r := rand.New(rand.NewSource(3))
	for trial := 0; trial < 50; trial++ {
		rel := mustMatrix(Te, randVecs(r, 4, 2))
		abc := ABCFrame(rel, ABC{0, None, 2, 3})
		cols := make([][3]float64, 3)
		for j := range cols {
			cols[j] = [3]float64{abc.At(0, j), abc.At(1, j), abc.At(2, j)}
			assert.InDelta(Te, 1, v3.Norm(cols[j]), 1e-12)
		}
		assert.InDelta(Te, 0, v3.Dot(cols[0], cols[1]), 1e-12)
		assert.InDelta(Te, 0, v3.Dot(cols[0], cols[2]), 1e-12)
		assert.InDelta(Te, 0, v3.Dot(cols[1], cols[2]), 1e-12)
		assert.InDelta(Te, 1, v3.Det3(abc), 1e-12, "abc should be right-handed")
	}
}

func TestSingleAtoms(Te *testing.T) {
	ar := &MolType{Name: "Ar", NMols: 4, Masses: []float64{39.948}, Policy: Principal}
	T, err := NewTopology(ar)
	require.NoError(Te, err)
	D, err := NewDecomposer(T, 2)
	require.NoError(Te, err)
	r := rand.New(rand.NewSource(1))
	b := NewBlock(T, 0, 3)
	for t := 0; t < 3; t++ {
		x := mustMatrix(Te, randVecs(r, 4, 10))
		v := mustMatrix(Te, randVecs(r, 4, 1))
		require.NoError(Te, D.Frame(b, t, x, v))
		for i := 0; i < 4; i++ {
			for dim := 0; dim < 3; dim++ {
				assert.Equal(Te, 0.0, b.Rot.At(i, dim, t))
				assert.Equal(Te, 0.0, b.Vib.At(i, dim, t))
				assert.InDelta(Te, v.At(i, dim)*math.Sqrt(39.948), b.Trn.At(i, dim, t), 1e-12)
			}
		}
	}
	assert.True(Te, floats.Equal(D.MomentsOfInertia().RawMatrix().Data, make([]float64, 12)))
}

//A sinusoid with an integer number of periods in the block puts all its power in one bin.
func TestSinusoidPeak(Te *testing.T) {
	const n = 128
	const k0 = 9
	const amp = 2.5
	T, err := NewTopology(&MolType{Name: "Ne", NMols: 1, Masses: []float64{20.18}})
	require.NoError(Te, err)
	b := NewBlock(T, 0, n)
	for t := 0; t < n; t++ {
		b.Trn.Set(0, 0, t, amp*math.Sin(2*math.Pi*k0*float64(t)/n))
	}
	A := NewAccumulator(1, n)
	require.NoError(Te, A.Add(T, b, 1))
	curve := A.Curve(Trn, 0)
	require.Equal(Te, n/2+1, len(curve))
	expected := amp * n / 2
	assert.InDelta(Te, expected*expected, curve[k0], 1e-6)
	for k, p := range curve {
		if k != k0 {
			assert.InDelta(Te, 0, p, 1e-6, "bin %d", k)
		}
	}
	assert.Equal(Te, 0.0, floats.Sum(A.Curve(Vib, 0)))
}

func randomBlock(T *Topology, r *rand.Rand, steps int) *Block {
	b := NewBlock(T, 0, steps)
	for _, s := range []*Series{b.Trn, b.Rot, b.Vib} {
		for i := range s.Data {
			s.Data[i] = r.NormFloat64()
		}
	}
	return b
}

//Accumulating two blocks gives the sum of the curves of each block.
func TestBlockAdditivity(Te *testing.T) {
	T, err := NewTopology(water(Principal), &MolType{Name: "co", NMols: 3, Masses: []float64{mC, mO}, Policy: Linear})
	require.NoError(Te, err)
	r := rand.New(rand.NewSource(11))
	const n = 50
	b1 := randomBlock(T, r, n)
	b2 := randomBlock(T, r, n)
	both := NewAccumulator(2, n)
	require.NoError(Te, both.Add(T, b1, 2))
	require.NoError(Te, both.Add(T, b2, 2))
	one := NewAccumulator(2, n)
	require.NoError(Te, one.Add(T, b1, 1))
	two := NewAccumulator(2, n)
	require.NoError(Te, two.Add(T, b2, 1))
	assert.Equal(Te, 2, both.Blocks)
	for _, c := range Channels() {
		for h := 0; h < 2; h++ {
			sum := make([]float64, both.NFreq)
			floats.Add(sum, one.Curve(c, h))
			floats.Add(sum, two.Curve(c, h))
			assert.InDeltaSlice(Te, sum, both.Curve(c, h), 1e-9, "channel %v type %d", c, h)
		}
		for h := 0; h < 2; h++ {
			if c == Rot {
				sub := make([]float64, both.NFreq)
				floats.Add(sub, both.Curve(RotA, h))
				floats.Add(sub, both.Curve(RotB, h))
				floats.Add(sub, both.Curve(RotC, h))
				assert.InDeltaSlice(Te, sub, both.Curve(Rot, h), 1e-9, "rot should be the sum of its a, b and c parts")
			}
		}
	}
}

type memFrame struct {
	time float64
	x, v []float64
}

//memTraj is an in-memory trajectory.
type memTraj struct {
	natoms int
	frames []memFrame
	i      int
}

type memEOF struct{}

func (memEOF) Error() string               { return "EOF" }
func (memEOF) Critical() bool              { return false }
func (memEOF) FileName() string            { return "memory" }
func (memEOF) Format() string              { return "mem" }
func (memEOF) NormalLastFrameTermination() {}

func (M *memTraj) Len() int { return M.natoms }

func (M *memTraj) Next(coords, vels *v3.Matrix, box ...[]float64) (float64, error) {
	if M.i >= len(M.frames) {
		return 0, memEOF{}
	}
	f := M.frames[M.i]
	M.i++
	copy(coords.RawMatrix().Data, f.x)
	copy(vels.RawMatrix().Data, f.v)
	return f.time, nil
}

//rotor returns a trajectory of a diatomic rotating rigidly about z, with angular velocity w,
//bond length d, and its center of mass in com.
func rotor(frames int, dt, w, d float64, com [3]float64) *memTraj {
	m1, m2 := mC, mO
	d1 := d * m2 / (m1 + m2)
	d2 := d * m1 / (m1 + m2)
	T := &memTraj{natoms: 2}
	for i := 0; i < frames; i++ {
		th := w * dt * float64(i)
		c, s := math.Cos(th), math.Sin(th)
		r1 := [3]float64{d1 * c, d1 * s, 0}
		r2 := [3]float64{-d2 * c, -d2 * s, 0}
		f := memFrame{time: dt * float64(i)}
		for _, r := range [][3]float64{r1, r2} {
			vel := v3.Cross([3]float64{0, 0, w}, r)
			f.x = append(f.x, com[0]+r[0], com[1]+r[1], com[2]+r[2])
			f.v = append(f.v, vel[:]...)
		}
		T.frames = append(T.frames, f)
	}
	return T
}

//A rigid rotor has no translation or vibration. Its angular velocity is constant, so all the
//rotational power is in the zero-frequency bin.
func TestRigidRotor(Te *testing.T) {
	const n = 64
	const blocks = 2
	const w = 0.7
	const d = 1.128
	co := &MolType{Name: "co", NMols: 1, Masses: []float64{mC, mO}, Policy: Linear}
	T, err := NewTopology(co)
	require.NoError(Te, err)
	traj := rotor(n*blocks, 0.1, w, d, [3]float64{1, -2, 3})
	var dumped int
	R, err := Run(T, traj, Options{Blocks: blocks, BlockSteps: n, Workers: 1, Dump: func(b *Block) error {
		dumped++
		assert.Equal(Te, 0, b.Index)
		return nil
	}})
	require.NoError(Te, err)
	assert.Equal(Te, 1, dumped)
	assert.Equal(Te, n*blocks, R.Frames)
	mu := mC * mO / (mC + mO)
	I := mu * d * d
	for k := 0; k < R.Acc.NFreq; k++ {
		assert.InDelta(Te, 0, R.Acc.Curve(Trn, 0)[k], 1e-12, "trn bin %d", k)
		assert.InDelta(Te, 0, R.Acc.Curve(Vib, 0)[k], 1e-12, "vib bin %d", k)
	}
	rot := R.Acc.Curve(Rot, 0)
	peak := float64(n) * w * math.Sqrt(I)
	assert.InDelta(Te, blocks*peak*peak, rot[0], 1e-6*peak*peak)
	for k := 1; k < len(rot); k++ {
		assert.InDelta(Te, 0, rot[k], 1e-6, "rot bin %d", k)
	}
	assert.InDeltaSlice(Te, rot, R.Acc.Curve(RotC, 0), 1e-9, "the rotation is about z")
	moi := R.MomentsOfInertia.Vec(0)
	//the bond rotates in the xy plane, so Ixx+Iyy=I and Izz=I in each frame.
	assert.InDelta(Te, float64(n*blocks)*I, moi[0]+moi[1], 1e-8)
	assert.InDelta(Te, float64(n*blocks)*I, moi[2], 1e-8)
}

func TestFrameUnavailable(Te *testing.T) {
	T, err := NewTopology(&MolType{Name: "co", NMols: 1, Masses: []float64{mC, mO}, Policy: Linear})
	require.NoError(Te, err)
	traj := rotor(10, 0.1, 1, 1.1, [3]float64{})
	_, err = Run(T, traj, Options{Blocks: 2, BlockSteps: 8})
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, ErrFrameUnavailable), err.Error())
	fmt.Println(err)
}

func TestConfigErrors(Te *testing.T) {
	_, err := ParsePolicy("q")
	assert.True(Te, errors.Is(err, ErrConfig))
	p, err := ParsePolicy("b")
	require.NoError(Te, err)
	assert.Equal(Te, ABCMomentum, p)
	//diatomics need the linear policy
	_, err = NewTopology(&MolType{Name: "co", NMols: 1, Masses: []float64{mC, mO}, Policy: Principal})
	assert.True(Te, errors.Is(err, ErrConfig))
	//abc indicators out of range
	w := water(ABCVelocity)
	w.ABC = ABC{0, None, 1, 5}
	_, err = NewTopology(w)
	assert.True(Te, errors.Is(err, ErrConfig))
	//overlapping molecules
	T, err := NewTopology(water(Principal))
	require.NoError(Te, err)
	T.Mols = append(T.Mols, Molecule{First: 1, NAtoms: 3, Mass: 2*mH + mO, Type: 0})
	assert.True(Te, errors.Is(T.Check(), ErrConfig))
}

func TestNumericalErrors(Te *testing.T) {
	_, err := sqrtNegZero(-0.01)
	assert.True(Te, errors.Is(err, ErrNumerical))
	s, err := sqrtNegZero(-1e-6)
	require.NoError(Te, err)
	assert.Equal(Te, 0.0, s)
	//three collinear atoms with a non-linear policy: the tensor is singular
	co2 := &MolType{Name: "co2", NMols: 1, Masses: []float64{mO, mC, mO}, Policy: BodyVelocity}
	x := mustMatrix(Te, []float64{-1.16, 0, 0, 0, 0, 0, 1.16, 0, 0})
	v := mustMatrix(Te, []float64{0, 1, 0, 0, 0, 0, 0, -1, 0})
	_, err = decompose(co2, x, v, newScratch(3))
	assert.True(Te, errors.Is(err, ErrNumerical), "%v", err)
}

func TestRotationalValuesPure(Te *testing.T) {
	x := mustMatrix(Te, waterPos)
	rel := v3.Zeros(3)
	masses := []float64{mO, mH, mH}
	var com [3]float64
	for j := 0; j < 3; j++ {
		for k := 0; k < 3; k++ {
			com[k] += masses[j] * x.At(j, k) / (mO + 2*mH)
		}
	}
	rel.SubVec(x, com)
	I := v3.MomentTensor(rel, masses)
	omega := [3]float64{0.3, -0.2, 0.5}
	L := [3]float64{I.At(0, 0) * omega[0], I.At(1, 1) * omega[1], I.At(2, 2) * omega[2]}
	rs, err := NewRotState(BodyVelocity, rel, ABC{0, None, 1, 2}, omega, L, I)
	require.NoError(Te, err)
	vals, err := RotationalValues(BodyVelocity, rs)
	require.NoError(Te, err)
	for dim := 0; dim < 3; dim++ {
		assert.InDelta(Te, omega[dim]*math.Sqrt(I.At(dim, dim)), vals[dim], 1e-12)
	}
	_, err = RotationalValues(Policy('z'), rs)
	assert.True(Te, errors.Is(err, ErrConfig))
}

//A scratch keeps no state from one molecule to the next, and its views are built only once per size.
func TestScratchReuse(Te *testing.T) {
	r := rand.New(rand.NewSource(5))
	s := newScratch(6)
	assert.Same(Te, s.sized(3), s.sized(3))
	assert.Equal(Te, 0.0, testing.AllocsPerRun(10, func() { s.sized(3) }))
	methanol := &MolType{Name: "methanol-ish", NMols: 1, Masses: []float64{mC, mO, mH, mH, mH, mH}, Policy: ABCMomentum, ABC: ABC{1, 0, 2, None}}
	mpos := mustMatrix(Te, []float64{0, 0, 0, 1.43, 0, 0, -0.36, 1.03, 0.1, -0.4, -0.5, 0.9, -0.35, -0.6, -0.85, 1.75, 0.9, -0.05})
	for trial := 0; trial < 4; trial++ {
		for _, p := range []Policy{Principal, ABCVelocity, BodyMomentum} {
			x := rotated(mustMatrix(Te, waterPos), randRotation(r))
			v := mustMatrix(Te, randVecs(r, 3, 2))
			got, err := decompose(water(p), x, v, s)
			require.NoError(Te, err)
			gotRot, gotMOI := got.Rot, got.MOI
			want, err := decompose(water(p), x, v, newScratch(3))
			require.NoError(Te, err)
			assert.Equal(Te, want.Rot, gotRot)
			assert.Equal(Te, want.MOI, gotMOI)
			//something bigger, so the next water finds the scratch dirty
			_, err = decompose(methanol, mpos, mustMatrix(Te, randVecs(r, 6, 2)), s)
			require.NoError(Te, err)
		}
	}
}
