/*
 * cfg.go, part of godos.
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

// Package cfg reads the YAML configuration of a density of states calculation,
// builds the topology it describes and opens its trajectory.
package cfg

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	dos "github.com/rmera/godos"
	"github.com/rmera/godos/traj/stf"
	"github.com/rmera/godos/traj/trr"
)

// Format is the format of the trajectory
type Format string

// Here are the accepted formats. TRR is the GROMACS full-precision trajectory, STF is the
// simple trajectory format, extended with velocities.
const (
	FTRR Format = "trr"
	FSTF Format = "stf"
)

// MolType describes one type of molecule in the configuration file.
type MolType struct {
	// Name of the molecule type, used in the outputs
	Name string `yaml:"name"`

	// NMols is the number of molecules of this type
	NMols int `yaml:"nmols"`

	// Masses are the masses of each atom in one molecule
	Masses []float64 `yaml:"masses"`

	// Rot is the rotational policy: l, f, a, b, x or y
	Rot dos.Policy `yaml:"rot"`

	// ABC are the 4 indicators of the abc frame (0-based, -1 for the center of mass).
	// Required for the policies f, a and b.
	ABC []int `yaml:"abc"`
}

// Cfg is a structure containing the parameters specified in the configuration
// file. It can be instanced through the New function or by "hand". If it is
// instanced by hand, please use the Check method to check if the Cfg meets the
// requirements.
type Cfg struct {
	// Traj is the file containing the positions and velocities
	Traj string `yaml:"traj"`

	// Format is the format of the trajectory. If empty, it is guessed from the
	// extension of Traj.
	Format Format `yaml:"format"`

	// Blocks is the number of blocks to be processed
	Blocks int `yaml:"blocks"`

	// BlockSteps is the number of frames in each block
	BlockSteps int `yaml:"blocksteps"`

	// Dt is the time between frames. Only used for the frequency axis of the outputs.
	Dt float64 `yaml:"dt"`

	// Workers is the number of goroutines used. 0 means GOMAXPROCS
	Workers int `yaml:"workers"`

	// Out is the directory where the outputs are written
	Out string `yaml:"out"`

	// Dump requests the series of the first block to be written
	Dump bool `yaml:"dump"`

	// CompressDump requests the dumps to be zstd-compressed
	CompressDump bool `yaml:"compressdump"`

	// Plot requests PNG plots of the curves
	Plot bool `yaml:"plot"`

	// MolTypes are the molecule types, in the order they appear in the trajectory
	MolTypes []MolType `yaml:"moltypes"`
}

// New opens and decodes the specified configuration file. The file must be
// a YAML file. This function automatically calls the Check method to check the
// integrity of Cfg.
func New(path string) (*Cfg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var c Cfg
	dec := yaml.NewDecoder(bufio.NewReader(f))
	dec.KnownFields(true)
	err = dec.Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", dos.ErrConfig, path, err)
	}

	err = c.Check()
	if err != nil {
		return nil, fmt.Errorf("Check: %w", err)
	}

	return &c, nil
}

func errConfig(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", dos.ErrConfig, fmt.Sprintf(format, a...))
}

// Check checks if Cfg is correct, and sets the defaults for the empty fields that have one.
// It returns an error wrapping dos.ErrConfig if a field doesn't meet the requirements.
func (c *Cfg) Check() error {
	if c.Traj == "" {
		return errConfig("no trajectory given")
	}
	if c.Format == "" {
		f, err := FormatFromName(c.Traj)
		if err != nil {
			return err
		}
		c.Format = f
	}
	if c.Format != FTRR && c.Format != FSTF {
		return errConfig("unknown trajectory format %q", c.Format)
	}
	if c.Blocks <= 0 || c.BlockSteps <= 0 {
		return errConfig("Blocks and BlockSteps must be greater than 0")
	}
	if c.BlockSteps < 2 {
		return errConfig("BlockSteps must be at least 2")
	}
	if c.Dt < 0 {
		return errConfig("Dt cannot be lower than 0")
	}
	if c.Workers < 0 {
		return errConfig("Workers cannot be lower than 0")
	}
	if c.Out == "" {
		c.Out = "."
	}
	if len(c.MolTypes) == 0 {
		return errConfig("no molecule types given")
	}
	for i, m := range c.MolTypes {
		if m.Name == "" {
			return errConfig("molecule type %d has no name", i)
		}
		if len(m.ABC) != 0 && len(m.ABC) != 4 {
			return errConfig("molecule type %q: abc needs 4 indicators, not %d", m.Name, len(m.ABC))
		}
		if len(m.Masses) > 1 && !m.Rot.Valid() {
			return errConfig("molecule type %q: missing or unknown rotational policy %v", m.Name, m.Rot)
		}
	}
	_, err := c.Topology()
	return err
}

// FormatFromName guesses the format of a trajectory from its extension.
func FormatFromName(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".trr":
		return FTRR, nil
	case ".stf", ".stz", ".stl", ".str":
		return FSTF, nil
	}
	return "", errConfig("can't guess the format of trajectory %q, please give it", name)
}

// Topology builds the system described by the configuration: the molecules of each type are
// contiguous, and the types are in the order given.
func (c *Cfg) Topology() (*dos.Topology, error) {
	types := make([]*dos.MolType, 0, len(c.MolTypes))
	for _, m := range c.MolTypes {
		t := &dos.MolType{Name: m.Name, NMols: m.NMols, Masses: m.Masses, ABC: dos.ABC{0, dos.None, 0, dos.None}}
		if len(m.Masses) > 1 {
			t.Policy = m.Rot
		}
		if len(m.ABC) == 4 {
			copy(t.ABC[:], m.ABC)
		} else if t.Policy.NeedsABC() {
			return nil, errConfig("molecule type %q: the policy %v needs the abc indicators", m.Name, t.Policy)
		}
		types = append(types, t)
	}
	return dos.NewTopology(types...)
}

// Traj is a trajectory that can be closed.
type Traj interface {
	dos.Traj
	Close()
}

// Open opens the trajectory for reading.
func (c *Cfg) Open() (Traj, error) {
	switch c.Format {
	case FTRR:
		t, err := trr.New(c.Traj)
		if err != nil {
			return nil, err
		}
		return t, nil
	case FSTF:
		t, _, err := stf.New(c.Traj)
		if err != nil {
			return nil, err
		}
		if !t.Velocities() {
			t.Close()
			return nil, errConfig("trajectory %s has no velocities", c.Traj)
		}
		return t, nil
	}
	return nil, errConfig("unknown trajectory format %q", c.Format)
}

// Options returns the options for dos.Run.
func (c *Cfg) Options() dos.Options {
	return dos.Options{Blocks: c.Blocks, BlockSteps: c.BlockSteps, Workers: c.Workers}
}
