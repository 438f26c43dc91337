/*
 * stf.go, part of godos.
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
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/lzw"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	v3 "github.com/rmera/godos/v3"
)

const (
	lzwLitwidth int = 8
	defPrec     int = 2
	defVPrec    int = 4
)

//the header keys with a meaning for this package.
const (
	KeyPrec       = "prec"
	KeyVPrec      = "vprec"
	KeyVelocities = "vel"
	KeyTime       = "time"
)

//Write!
type Writer struct {
	f         *os.File
	h         io.WriteCloser
	natoms    int
	filename  string
	writeable bool
	prec      int
	vprec     int
	buf       []int
}

//Close flushes and closes the file. The writer can't be used after this call.
func (S *Writer) Close() error {
	if S == nil || !S.writeable {
		return nil
	}
	S.writeable = false
	err := S.h.Close()
	if err2 := S.f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return Error{"Can't close the file: " + err.Error(), S.filename, []string{"Close"}, true}
	}
	return nil
}

func (S *Writer) Len() int {
	return S.natoms
}

//WNext writes a frame with the positions coord, the velocities vel, the time of the frame, and,
//if given, the 9 components of the box vectors.
func (S *Writer) WNext(coord, vel *v3.Matrix, time float64, box ...[]float64) error {
	if !S.writeable {
		return Error{TrajUnIniWrite, S.filename, []string{"WNext"}, true}
	}
	if coord == nil || vel == nil {
		return Error{NilCoordinates, S.filename, []string{"WNext"}, true}
	}
	if c, v := coord.NVecs(), vel.NVecs(); c != S.natoms || v != S.natoms {
		return Error{fmt.Sprintf("%d coordinates and %d velocities given, but %d expected", c, v, S.natoms), S.filename, []string{"WNext"}, true}
	}
	w := bufio.NewWriter(S.h)
	for i := 0; i < S.natoms; i++ {
		encode(S.buf[:3], coord.RawRowView(i), S.prec)
		encode(S.buf[3:], vel.RawRowView(i), S.vprec)
		fmt.Fprintf(w, "%d %d %d %d %d %d\n", S.buf[0], S.buf[1], S.buf[2], S.buf[3], S.buf[4], S.buf[5])
	}
	fmt.Fprintf(w, "* %s", strconv.FormatFloat(time, 'g', -1, 64))
	if len(box) > 0 && len(box[0]) >= 9 {
		b := box[0]
		fmt.Fprintf(w, " %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f", b[0],
			b[1], b[2], b[3], b[4], b[5], b[6], b[7], b[8])
	}
	w.WriteString("\n")
	if err := w.Flush(); err != nil {
		return Error{"Can't write frame: " + err.Error(), S.filename, []string{"WNext"}, true}
	}
	return nil
}

//compressors and decompressors, selected by the last letter of the file name.
func writerFor(name string, level int) func(io.Writer) (io.WriteCloser, error) {
	zstdwriter := func(a io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(a, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	}
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		return func(a io.Writer) (io.WriteCloser, error) { return lzw.NewWriter(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		return func(a io.Writer) (io.WriteCloser, error) { return gzip.NewWriterLevel(a, min(level, gzip.BestCompression)) }
	case 'r':
		return func(a io.Writer) (io.WriteCloser, error) { return flate.NewWriter(a, min(level, flate.BestCompression)) }
	default:
		return zstdwriter
	}
}

//NewWriter creates a STF trajectory, with positions and velocities, in the file name.
//The header is written in the file after the keys set by the writer (precisions and flags for
//velocities and time). A "prec" or "vprec" key in header sets the precision of the positions
//or velocities. The compression level (default 11) is capped to the maximum of the format used.
func NewWriter(name string, natoms int, header map[string]string, compressionLevel ...int) (*Writer, error) {
	var level int = 11 //For python compatibility
	if len(compressionLevel) > 0 {
		level = compressionLevel[0]
	}
	if name == "" || natoms <= 0 {
		return nil, Error{fmt.Sprintf("Invalid file name (%q) or number of atoms (%d)", name, natoms), name, []string{"NewWriter"}, true}
	}
	S := &Writer{natoms: natoms, filename: name, prec: defPrec, vprec: defVPrec, buf: make([]int, 6)}
	S.prec = headerPrec(header, KeyPrec, defPrec, name)
	S.vprec = headerPrec(header, KeyVPrec, defVPrec, name)
	var err error
	S.f, err = os.Create(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"NewWriter"}, true}
	}
	S.h, err = writerFor(name, level)(S.f)
	if err != nil {
		S.f.Close()
		return nil, Error{"Can't create compressor " + err.Error(), S.filename, []string{"NewWriter"}, true}
	}
	keys := make([]string, 0, len(header))
	for k := range header {
		if k == KeyPrec || k == KeyVPrec || k == KeyVelocities || k == KeyTime {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	headerstr := fmt.Sprintf("%s=%d\n%s=%d\n%s=1\n%s=1\n", KeyPrec, S.prec, KeyVPrec, S.vprec, KeyVelocities, KeyTime)
	for _, k := range keys {
		headerstr += fmt.Sprintf("%s=%v\n", k, header[k])
	}
	headerstr += fmt.Sprintf("** %d\n", S.natoms)
	if _, err := S.h.Write([]byte(headerstr)); err != nil {
		S.h.Close()
		S.f.Close()
		return nil, Error{"Can't write header " + err.Error(), S.filename, []string{"NewWriter"}, true}
	}
	S.writeable = true
	return S, nil
}

func headerPrec(header map[string]string, key string, def int, filename string) int {
	p, ok := header[key]
	if !ok {
		return def
	}
	prec, err := strconv.Atoi(p)
	if err != nil || prec < 0 {
		log.Printf("Invalid %s %q for trajectory %s. Will use the default", key, p, filename)
		return def
	}
	return prec
}

//Read!
type Reader struct {
	f          *os.File
	dec        io.ReadCloser
	h          *bufio.Reader
	natoms     int
	filename   string
	prec       int
	vprec      int
	velocities bool
	timed      bool
	frame      int
	readable   bool
}

//Why couldn't *zstd.Decoder implement io.ReadCloser? :-(
type stdql struct {
	closeql func()
	*zstd.Decoder
}

//Close Closes the object. It can not be used after this call
func (s stdql) Close() error {
	s.closeql()
	return nil
}

func readerFor(name string) func(io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		return func(a io.Reader) (io.ReadCloser, error) { return lzw.NewReader(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		return func(a io.Reader) (io.ReadCloser, error) { return gzip.NewReader(a) }
	case 'r':
		return func(a io.Reader) (io.ReadCloser, error) { return flate.NewReader(a), nil }
	default:
		return func(a io.Reader) (io.ReadCloser, error) {
			r, err := zstd.NewReader(a)
			if err != nil {
				return nil, err
			}
			return stdql{r.Close, r}, nil
		}
	}
}

//New opens a STF trajectory for reading, and returns a pointer
//to the handle, a map with the metadata (empty if there is none)
//and error or nil.
func New(name string) (*Reader, map[string]string, error) {
	S := &Reader{natoms: -1, filename: name, prec: defPrec, vprec: defVPrec}
	m := make(map[string]string)
	var err error
	S.f, err = os.Open(S.filename)
	if err != nil {
		return nil, nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"New"}, true}
	}
	S.dec, err = readerFor(name)(bufio.NewReader(S.f))
	if err != nil {
		S.f.Close()
		return nil, nil, Error{"Can't read header " + err.Error(), S.filename, []string{"New"}, true}
	}
	S.h = bufio.NewReader(S.dec)
	for {
		str, err := S.h.ReadString('\n')
		if err != nil {
			S.close()
			return nil, nil, Error{"Can't read header " + err.Error(), S.filename, []string{"New"}, true}
		}
		str = strings.TrimSuffix(str, "\n")
		if strings.HasPrefix(str, "**") {
			nat := strings.Fields(str)
			if len(nat) < 2 {
				S.close()
				return nil, nil, Error{fmt.Sprintf("Can't read atom number from '%s'", str), S.filename, []string{"New"}, true}
			}
			S.natoms, err = strconv.Atoi(nat[1])
			if err != nil || S.natoms <= 0 {
				S.close()
				return nil, nil, Error{fmt.Sprintf("Can't read atom number from '%s'", nat[1]), S.filename, []string{"New"}, true}
			}
			break
		}
		k, v, ok := strings.Cut(str, "=")
		if !ok {
			S.close()
			return nil, nil, Error{"Malformed header line: " + str, S.filename, []string{"New"}, true}
		}
		m[k] = v
	}
	S.prec = headerPrec(m, KeyPrec, defPrec, name)
	S.vprec = headerPrec(m, KeyVPrec, defVPrec, name)
	S.velocities = m[KeyVelocities] == "1"
	S.timed = m[KeyTime] == "1"
	S.readable = true
	return S, m, nil
}

//Readable returns true if the handle is readable (if it is possible to call Next on it)
func (S *Reader) Readable() bool {
	return S.readable
}

//Velocities returns true if the trajectory contains velocities.
func (S *Reader) Velocities() bool {
	return S.velocities
}

//Len returns the number of atoms in each frame of the trajectory.
func (S *Reader) Len() int {
	return S.natoms
}

//Next puts in c the coordinates of the next frame and in v its velocities. Either can be nil, in
//which case the corresponding data is read, checked and discarded. If box is given, and the
//information is present, puts the box vectors in box[0]. It returns the time of the frame or, if
//the file has no times, the index of the frame. At the end of the trajectory the returned error
//is a LastFrameError.
func (S *Reader) Next(c, v *v3.Matrix, box ...[]float64) (float64, error) {
	if !S.readable {
		return 0, Error{TrajUnIniRead, S.filename, []string{"Next"}, true}
	}
	if v != nil && !S.velocities {
		return 0, Error{NoVelocities, S.filename, []string{"Next"}, true}
	}
	for _, M := range []*v3.Matrix{c, v} {
		if M != nil && M.NVecs() != S.natoms {
			return 0, Error{fmt.Sprintf("Matrix with %d vectors given, but %d atoms in trajectory", M.NVecs(), S.natoms), S.filename, []string{"Next"}, true}
		}
	}
	nfields := 3
	if S.velocities {
		nfields = 6
	}
	var temp [6]float64
	for i := 0; i < S.natoms; i++ {
		b, err := S.h.ReadString('\n')
		if err != nil {
			// EOF should only happen when reading the first atom
			if err == io.EOF && i == 0 && b == "" {
				//nothing bad happened here, the trajectory just ended.
				S.Close()
				return 0, newlastFrameError(S.filename, "Next")
			}
			return 0, Error{fmt.Sprintf("%s %d: %s", ReadError, S.frame, err.Error()), S.filename, []string{"Next"}, true}
		}
		if err := decode(strings.TrimSuffix(b, "\n"), temp[:nfields], S.prec, S.vprec); err != nil {
			return 0, Error{fmt.Sprintf("%s %d: %s", WrongFormat, S.frame, err.Error()), S.filename, []string{"Next"}, true}
		}
		if c != nil {
			copy(c.RawRowView(i), temp[:3])
		}
		if v != nil {
			copy(v.RawRowView(i), temp[3:6])
		}
	}
	s, err := S.h.ReadString('\n')
	if err != nil {
		return 0, Error{"Can't read the frame termination mark: " + err.Error(), S.filename, []string{"Next"}, true}
	}
	if s == "" || s[0] != '*' || strings.HasPrefix(s, "**") {
		return 0, Error{"Wrong number of atoms in frame", S.filename, []string{"Next"}, true}
	}
	fields := strings.Fields(s)[1:]
	time := float64(S.frame)
	if S.timed {
		if len(fields) == 0 {
			return 0, Error{fmt.Sprintf("Frame %d has no time", S.frame), S.filename, []string{"Next"}, true}
		}
		time, err = strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, Error{fmt.Sprintf("Can't read the time of frame %d: %s", S.frame, err.Error()), S.filename, []string{"Next"}, true}
		}
		fields = fields[1:]
	}
	S.frame++
	if len(box) > 0 && len(box[0]) >= 9 {
		readBox(box[0], fields, S.filename)
	}
	return time, nil
}

//readBox puts the 9 box components in b. If they are absent or can't be read, b is zeroed, and
//no error is returned.
func readBox(b []float64, fields []string, filename string) {
	if len(fields) < 9 {
		log.Printf("Trajectory file %s does not contain (correct) box information: %s", filename, fields) //just a head-up
		return
	}
	var errbox error
	for j, v := range fields[:9] {
		b[j], errbox = strconv.ParseFloat(v, 64)
		if errbox != nil {
			break
		}
	}
	if errbox != nil {
		log.Printf("Failed to read box in a frame from %s", filename) //just a head-up
		for i := range b {
			b[i] = 0.0
		}
	}
}

func (S *Reader) close() {
	S.dec.Close()
	S.f.Close()
}

//Close closes the object, and marks it as unreadable
func (S *Reader) Close() {
	if !S.readable {
		return
	}
	S.close()
	S.readable = false
}

//encode puts in dst the values of src times 10^prec, rounded.
func encode(dst []int, src []float64, prec int) {
	p := 100.0
	if prec != 2 { //2 is the usual value, so we save the operation in that case
		p = math.Pow(10.0, float64(prec))
	}
	for i, v := range src[:len(dst)] {
		dst[i] = int(math.RoundToEven(v * p))
	}
}

//decode reads len(dst) integers from str, and puts them in dst, divided by 10^prec
//(10^vprec after the third)
func decode(str string, dst []float64, prec, vprec int) error {
	s := strings.Fields(str)
	if len(s) != len(dst) {
		return fmt.Errorf("Ill formated line in stf: %d fields instead of %d: %s", len(s), len(dst), str)
	}
	p := math.Pow(10.0, float64(prec))
	vp := math.Pow(10.0, float64(vprec))
	for i, v := range s {
		f, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("Can't parse field %d (%s). Error: %s", i, v, err.Error())
		}
		if i < 3 {
			dst[i] = float64(f) / p
		} else {
			dst[i] = float64(f) / vp
		}
	}
	return nil
}

//Errors

//Error is the general structure for STF trajectory errors. It fullfills dos.TrajError
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("stf file %s error: %s", err.filename, err.message)
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

//Format returns the format of the file (always "stf") associated to the error
func (err Error) Format() string { return "stf" }

//Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	TrajUnIniRead  = "Traj object uninitialized to read"
	TrajUnIniWrite = "Traj object uninitialized to write"
	ReadError      = "Error reading frame"
	UnableToOpen   = "Unable to open file"
	NilCoordinates = "Given nil coordinates or velocities"
	NoVelocities   = "Velocities requested from a trajectory without velocities"
	WrongFormat    = "Wrong format in the STF file or frame"
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

func (E *lastFrameError) Format() string { return "stf" }

func (E *lastFrameError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newlastFrameError(filename string, caller string) *lastFrameError {
	return &lastFrameError{fileName: filename, deco: []string{caller}}
}
