/*
 * trr.go, part of godos.
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

//Package trr reads and writes GROMACS full-precision trajectories (TRR), in single or double
//precision. Positions, velocities and box are returned in GROMACS units (nm, nm/ps).
package trr

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	v3 "github.com/rmera/godos/v3"
)

const (
	magic   int32 = 1993
	version       = "GMX_trn_file"
)

//header is the header of one frame. The sizes are in bytes.
type header struct {
	irSize, eSize, boxSize, virSize, presSize, topSize, symSize, xSize, vSize, fSize int32
	natoms, step, nre                                                                int32
	double                                                                           bool
	time, lambda                                                                     float64
}

//realSize returns the size of the floating point numbers used in the frame,
//inferred from the sizes of its blocks.
func (h *header) realSize() (int, error) {
	n := int(h.natoms) * 3
	switch {
	case h.boxSize != 0:
		return int(h.boxSize) / 9, nil
	case n > 0 && h.xSize != 0:
		return int(h.xSize) / n, nil
	case n > 0 && h.vSize != 0:
		return int(h.vSize) / n, nil
	case n > 0 && h.fSize != 0:
		return int(h.fSize) / n, nil
	}
	return 0, fmt.Errorf("can't determine the precision of the frame")
}

//Reader reads a TRR trajectory.
type Reader struct {
	f        *os.File
	r        *bufio.Reader
	natoms   int
	filename string
	double   bool
	frame    int
	readable bool
	buf      []byte
}

//New opens a TRR file for reading. The first frame header is read to obtain the number of atoms
//and the precision of the file.
func New(name string) (*Reader, error) {
	R := &Reader{filename: name}
	var err error
	R.f, err = os.Open(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"New"}, true}
	}
	R.r = bufio.NewReader(R.f)
	h, err := R.readHeader()
	if err != nil {
		R.f.Close()
		if errors.Is(err, io.EOF) {
			return nil, Error{"Empty trajectory", name, []string{"New"}, true}
		}
		return nil, Error{"Can't read the first header: " + err.Error(), name, []string{"New"}, true}
	}
	R.natoms = int(h.natoms)
	R.double = h.double
	if _, err := R.f.Seek(0, io.SeekStart); err != nil {
		R.f.Close()
		return nil, Error{"Can't rewind the file: " + err.Error(), name, []string{"New"}, true}
	}
	R.r.Reset(R.f)
	R.readable = true
	return R, nil
}

//Len returns the number of atoms in each frame of the trajectory.
func (R *Reader) Len() int {
	return R.natoms
}

//Double returns true if the trajectory is in double precision.
func (R *Reader) Double() bool {
	return R.double
}

//Readable returns true if the handle is readable (if it is possible to call Next on it)
func (R *Reader) Readable() bool {
	return R.readable
}

//Close closes the file, and marks the reader as unreadable.
func (R *Reader) Close() {
	if !R.readable {
		return
	}
	R.f.Close()
	R.readable = false
}

func (R *Reader) int32() (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(R.r, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

func (R *Reader) real(double bool) (float64, error) {
	if !double {
		i, err := R.int32()
		return float64(math.Float32frombits(uint32(i))), err
	}
	var b [8]byte
	if _, err := io.ReadFull(R.r, b[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b[:])), nil
}

//readHeader reads the header of the next frame. It returns io.EOF only if the file ended
//exactly before the frame.
func (R *Reader) readHeader() (*header, error) {
	m, err := R.int32()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
	if m != magic {
		return nil, fmt.Errorf("wrong magic number %d, the file is not a TRR trajectory or is corrupted", m)
	}
	slen, err := R.int32()
	if err != nil {
		return nil, unexpected(err)
	}
	n, err := R.int32()
	if err != nil {
		return nil, unexpected(err)
	}
	if slen != int32(len(version)+1) || n != int32(len(version)) {
		return nil, fmt.Errorf("wrong version string length (%d %d)", slen, n)
	}
	padded := (int(n) + 3) / 4 * 4
	if _, err := R.r.Discard(padded); err != nil {
		return nil, unexpected(err)
	}
	h := new(header)
	for _, p := range []*int32{&h.irSize, &h.eSize, &h.boxSize, &h.virSize, &h.presSize, &h.topSize, &h.symSize,
		&h.xSize, &h.vSize, &h.fSize, &h.natoms, &h.step, &h.nre} {
		if *p, err = R.int32(); err != nil {
			return nil, unexpected(err)
		}
	}
	if h.natoms <= 0 {
		return nil, fmt.Errorf("frame with %d atoms", h.natoms)
	}
	size, err := h.realSize()
	if err != nil {
		return nil, err
	}
	switch size {
	case 4:
	case 8:
		h.double = true
	default:
		return nil, fmt.Errorf("unknown real size %d", size)
	}
	if h.time, err = R.real(h.double); err != nil {
		return nil, unexpected(err)
	}
	if h.lambda, err = R.real(h.double); err != nil {
		return nil, unexpected(err)
	}
	return h, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

//block reads size bytes of reals into dst, which must have the right length, or discards them if
//dst is nil.
func (R *Reader) block(dst []float64, size int32, double bool) error {
	if dst == nil {
		_, err := R.r.Discard(int(size))
		return unexpected(err)
	}
	rs := 4
	if double {
		rs = 8
	}
	if int(size) != rs*len(dst) {
		return fmt.Errorf("block of %d bytes, expected %d", size, rs*len(dst))
	}
	if cap(R.buf) < int(size) {
		R.buf = make([]byte, size)
	}
	b := R.buf[:size]
	if _, err := io.ReadFull(R.r, b); err != nil {
		return unexpected(err)
	}
	for i := range dst {
		if double {
			dst[i] = math.Float64frombits(binary.BigEndian.Uint64(b[8*i:]))
		} else {
			dst[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(b[4*i:])))
		}
	}
	return nil
}

//Next reads the next frame, putting the positions in c, the velocities in v and, if given, the
//box vectors in box[0]. c and v can be nil, in which case the data is discarded. It returns the
//time of the frame. At the end of the trajectory, the returned error is a LastFrameError.
func (R *Reader) Next(c, v *v3.Matrix, box ...[]float64) (float64, error) {
	if !R.readable {
		return 0, Error{TrajUnIniRead, R.filename, []string{"Next"}, true}
	}
	for _, M := range []*v3.Matrix{c, v} {
		if M != nil && M.NVecs() != R.natoms {
			return 0, Error{fmt.Sprintf("Matrix with %d vectors given, but %d atoms in trajectory", M.NVecs(), R.natoms), R.filename, []string{"Next"}, true}
		}
	}
	h, err := R.readHeader()
	if err == io.EOF {
		R.Close()
		return 0, newlastFrameError(R.filename, "Next")
	}
	if err != nil {
		return 0, R.frameError(err)
	}
	if int(h.natoms) != R.natoms {
		return 0, R.frameError(fmt.Errorf("frame has %d atoms, expected %d", h.natoms, R.natoms))
	}
	if c != nil && h.xSize == 0 {
		return 0, R.frameError(errors.New(NoPositions))
	}
	if v != nil && h.vSize == 0 {
		return 0, R.frameError(errors.New(NoVelocities))
	}
	if _, err := R.r.Discard(int(h.irSize + h.eSize)); err != nil {
		return 0, R.frameError(unexpected(err))
	}
	var b []float64
	if len(box) > 0 && len(box[0]) >= 9 && h.boxSize != 0 {
		b = box[0][:9]
	}
	if err := R.block(b, h.boxSize, h.double); err != nil {
		return 0, R.frameError(err)
	}
	if _, err := R.r.Discard(int(h.virSize + h.presSize)); err != nil {
		return 0, R.frameError(unexpected(err))
	}
	for _, d := range []struct {
		M    *v3.Matrix
		size int32
	}{{c, h.xSize}, {v, h.vSize}} {
		var dst []float64
		if d.M != nil {
			dst = d.M.RawMatrix().Data[:3*R.natoms]
		}
		if err := R.block(dst, d.size, h.double); err != nil {
			return 0, R.frameError(err)
		}
	}
	if err := R.block(nil, h.fSize, h.double); err != nil {
		return 0, R.frameError(err)
	}
	R.frame++
	return h.time, nil
}

func (R *Reader) frameError(err error) error {
	return Error{fmt.Sprintf("%s %d: %s", ReadError, R.frame, err.Error()), R.filename, []string{"Next"}, true}
}

//Writer writes TRR trajectories with positions and velocities.
type Writer struct {
	f         *os.File
	w         *bufio.Writer
	natoms    int
	filename  string
	double    bool
	step      int
	writeable bool
}

//NewWriter creates a TRR file name for frames of natoms atoms. If double is true,
//the trajectory is written in double precision.
func NewWriter(name string, natoms int, double bool) (*Writer, error) {
	if natoms <= 0 {
		return nil, Error{fmt.Sprintf("Invalid number of atoms: %d", natoms), name, []string{"NewWriter"}, true}
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"NewWriter"}, true}
	}
	return &Writer{f: f, w: bufio.NewWriter(f), natoms: natoms, filename: name, double: double, writeable: true}, nil
}

func (W *Writer) Len() int {
	return W.natoms
}

func (W *Writer) int32(i int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(i))
	W.w.Write(b[:])
}

func (W *Writer) real(f float64) {
	if !W.double {
		W.int32(int32(math.Float32bits(float32(f))))
		return
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
	W.w.Write(b[:])
}

//WNext writes a frame with the positions coord, velocities vel (either can be nil, but not both),
//the time of the frame and, if given, the box vectors.
func (W *Writer) WNext(coord, vel *v3.Matrix, time float64, box ...[]float64) error {
	if !W.writeable {
		return Error{TrajUnIniWrite, W.filename, []string{"WNext"}, true}
	}
	if coord == nil && vel == nil {
		return Error{"Nothing to write", W.filename, []string{"WNext"}, true}
	}
	for _, M := range []*v3.Matrix{coord, vel} {
		if M != nil && M.NVecs() != W.natoms {
			return Error{fmt.Sprintf("%d vectors given, but %d expected", M.NVecs(), W.natoms), W.filename, []string{"WNext"}, true}
		}
	}
	rs := int32(4)
	if W.double {
		rs = 8
	}
	size := func(present bool, n int) int32 {
		if !present {
			return 0
		}
		return rs * int32(n)
	}
	hasbox := len(box) > 0 && len(box[0]) >= 9
	W.int32(magic)
	W.int32(int32(len(version) + 1))
	W.int32(int32(len(version)))
	W.w.WriteString(version) //12 bytes, no padding needed.
	for _, s := range []int32{0, 0, size(hasbox, 9), 0, 0, 0, 0, size(coord != nil, 3*W.natoms), size(vel != nil, 3*W.natoms), 0,
		int32(W.natoms), int32(W.step), 0} {
		W.int32(s)
	}
	W.real(time)
	W.real(0) //lambda
	if hasbox {
		for _, v := range box[0][:9] {
			W.real(v)
		}
	}
	for _, M := range []*v3.Matrix{coord, vel} {
		if M == nil {
			continue
		}
		for _, v := range M.RawMatrix().Data[:3*W.natoms] {
			W.real(v)
		}
	}
	W.step++
	if err := W.w.Flush(); err != nil {
		return Error{"Can't write frame: " + err.Error(), W.filename, []string{"WNext"}, true}
	}
	return nil
}

//Close closes the file. The writer can't be used after this call.
func (W *Writer) Close() error {
	if !W.writeable {
		return nil
	}
	W.writeable = false
	err := W.w.Flush()
	if err2 := W.f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return Error{"Can't close the file: " + err.Error(), W.filename, []string{"Close"}, true}
	}
	return nil
}

//Error is the general structure for TRR trajectory errors. It fullfills dos.TrajError
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("trr file %s error: %s", err.filename, err.message)
}

//Decorate Adds new information to the error
func (E Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//Filename returns the file to which the failing trajectory was associated
func (err Error) FileName() string { return err.filename }

//Format returns the format of the file (always "trr") associated to the error
func (err Error) Format() string { return "trr" }

//Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	TrajUnIniRead  = "Traj object uninitialized to read"
	TrajUnIniWrite = "Traj object uninitialized to write"
	ReadError      = "Error reading frame"
	UnableToOpen   = "Unable to open file"
	NoPositions    = "Positions requested from a frame without them"
	NoVelocities   = "Velocities requested from a frame without them"
	EOF            = "EOF"
)

//lastFrameError implements dos.LastFrameError
type lastFrameError struct {
	deco     []string
	fileName string
}

//lastFrameError does nothing
func (E *lastFrameError) NormalLastFrameTermination() {}

func (E *lastFrameError) FileName() string { return E.fileName }

func (E *lastFrameError) Error() string { return EOF }

func (E *lastFrameError) Critical() bool { return false }

func (E *lastFrameError) Format() string { return "trr" }

func (E *lastFrameError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newlastFrameError(filename string, caller string) *lastFrameError {
	return &lastFrameError{fileName: filename, deco: []string{caller}}
}
