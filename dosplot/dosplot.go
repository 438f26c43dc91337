/*
 * dosplot.go, part of godos.
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
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

//Package dosplot plots the densities of states of each molecule type.
package dosplot

import (
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	dos "github.com/rmera/godos"
)

//Size of the plots, in inches.
const (
	Width  = 6
	Height = 4
)

//FileName returns the name of the PNG file for the molecule type name.
func FileName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == ' ' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return "dos_" + name + ".png"
}

//xy returns the points of a curve. The x axis is the frequency if dt > 0,
//the bin index otherwise.
func xy(curve []float64, steps int, dt float64) plotter.XYs {
	pts := make(plotter.XYs, len(curve))
	for k, v := range curve {
		pts[k].X = float64(k)
		if dt > 0 {
			pts[k].X /= float64(steps) * dt
		}
		pts[k].Y = v
	}
	return pts
}

//Plot returns the plot of the curves for the molecule type h, with the given channels
//(all, if none is given).
func Plot(A *dos.Accumulator, h int, title string, dt float64, channels ...dos.Channel) (*plot.Plot, error) {
	if h < 0 || h >= A.NTypes {
		return nil, fmt.Errorf("dosplot: molecule type %d out of range (%d types)", h, A.NTypes)
	}
	if len(channels) == 0 {
		channels = dos.Channels()
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Bin"
	if dt > 0 {
		p.X.Label.Text = "Frequency"
	}
	p.Y.Label.Text = "DOS (raw)"
	p.Add(plotter.NewGrid())
	for i, c := range channels {
		l, err := plotter.NewLine(xy(A.Curve(c, h), A.BlockSteps, dt))
		if err != nil {
			return nil, fmt.Errorf("dosplot: channel %v of type %d: %w", c, h, err)
		}
		l.Color = plotutil.Color(i)
		l.Dashes = plotutil.Dashes(i)
		p.Add(l)
		p.Legend.Add(c.String(), l)
	}
	return p, nil
}

//Curves writes one PNG file in dir for each molecule type of T, with the curves of every channel.
//It returns the names of the files written.
func Curves(dir string, T *dos.Topology, A *dos.Accumulator, dt float64) ([]string, error) {
	if len(T.Types) != A.NTypes {
		return nil, fmt.Errorf("dosplot: %d molecule types in the topology, %d in the curves", len(T.Types), A.NTypes)
	}
	var files []string
	for h, t := range T.Types {
		p, err := Plot(A, h, fmt.Sprintf("%s (%d blocks)", t.Name, A.Blocks), dt)
		if err != nil {
			return files, err
		}
		name := filepath.Join(dir, FileName(t.Name))
		if err := p.Save(Width*vg.Inch, Height*vg.Inch, name); err != nil {
			return files, fmt.Errorf("dosplot: can't save %s: %w", name, err)
		}
		files = append(files, name)
	}
	return files, nil
}
