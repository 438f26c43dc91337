/*
 * main.go, part of godos.
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

//doscalc computes the translational, rotational and vibrational densities of states of
//the molecule types of a system, from a trajectory with velocities, as described in
//a YAML configuration file.
//
//	doscalc [-v] [-dump] [-plot] [-workers n] config.yaml
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	dos "github.com/rmera/godos"
	"github.com/rmera/godos/cfg"
	"github.com/rmera/godos/dosio"
	"github.com/rmera/godos/dosplot"
)

func main() {
	verbose := flag.Bool("v", false, "Print the progress of the calculation")
	dump := flag.Bool("dump", false, "Write the series of the first block (overrides the configuration)")
	plot := flag.Bool("plot", false, "Plot the densities of states (overrides the configuration)")
	workers := flag.Int("workers", 0, "Number of goroutines, 0 for all the CPUs (overrides the configuration)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] config.yaml\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatal("The path of the configuration file must be specified in the arguments")
	}
	log.Printf("Reading configuration file `%s`\n", flag.Arg(0))
	c, err := cfg.New(flag.Arg(0))
	if err != nil {
		log.Fatal(fmt.Errorf("cfg.New: %w", err))
	}
	//only the flags actually given override the configuration
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dump":
			c.Dump = *dump
		case "plot":
			c.Plot = *plot
		case "workers":
			c.Workers = *workers
		}
	})
	if err := run(c, *verbose); err != nil {
		log.Fatal(err)
	}
	log.Println("Done")
}

//run performs the calculation described in c and writes the results. If the calculation
//fails, only the dumps, if requested, may have been written.
func run(c *cfg.Cfg, verbose bool) error {
	if err := c.Check(); err != nil {
		return fmt.Errorf("Check: %w", err)
	}
	T, err := c.Topology()
	if err != nil {
		return err
	}
	traj, err := c.Open()
	if err != nil {
		return err
	}
	defer traj.Close()
	if err := os.MkdirAll(c.Out, 0o755); err != nil {
		return err
	}
	o := c.Options()
	o.Verbose = verbose
	if c.Dump {
		o.Dump = dosio.Dumper(c.Out, c.CompressDump)
	}
	if verbose {
		log.Printf("%d molecule types, %d molecules, %d atoms", len(T.Types), len(T.Mols), T.Len())
	}
	R, err := dos.Run(T, traj, o)
	if err != nil {
		return err
	}
	if verbose {
		log.Printf("Writing the results in %s", c.Out)
	}
	if err := dosio.WriteCurves(c.Out, R.Acc); err != nil {
		return err
	}
	if err := dosio.WriteMomentsOfInertia(c.Out, R.MomentsOfInertia); err != nil {
		return err
	}
	if err := dosio.NewSummary(T, R, c.Dt).WriteJSON(c.Out); err != nil {
		return err
	}
	if c.Plot {
		files, err := dosplot.Curves(c.Out, T, R.Acc, c.Dt)
		if err != nil {
			return err
		}
		if verbose {
			log.Printf("Plots: %v", files)
		}
	}
	return nil
}
