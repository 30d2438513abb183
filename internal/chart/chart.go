// Package chart renders simulated weld trajectories with gonum/plot.
package chart

import (
	"image/color"
	"io"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/weld"
)

// Options controls the rendered image.
type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	Format string // png or svg
}

// DefaultOptions returns a 16x9 cm PNG.
func DefaultOptions() Options {
	return Options{
		Title:  "Simulated weld pass",
		Width:  16 * vg.Centimeter,
		Height: 9 * vg.Centimeter,
		Format: "png",
	}
}

var (
	penetrationColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	beadColor        = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	defectColor      = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Trajectory builds a plot of penetration, bead width and defect probability
// against position. Segments labelled defective are marked.
func Trajectory(points []weld.TrajectoryPoint, title string) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, errors.NewInvalidInputError("points", 0, "trajectory is empty")
	}

	pen := make(plotter.XYs, len(points))
	bead := make(plotter.XYs, len(points))
	prob := make(plotter.XYs, len(points))
	var defects plotter.XYs
	for i, p := range points {
		pen[i] = plotter.XY{X: p.PositionMm, Y: p.PenetrationMm}
		bead[i] = plotter.XY{X: p.PositionMm, Y: p.BeadWidthMm}
		prob[i] = plotter.XY{X: p.PositionMm, Y: p.DefectProbability}
		if p.DefectLabel == 1 {
			defects = append(defects, plotter.XY{X: p.PositionMm, Y: p.DefectProbability})
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "position (mm)"
	p.Y.Label.Text = "mm / probability"
	p.Add(plotter.NewGrid())

	series := []struct {
		name  string
		xys   plotter.XYs
		color color.Color
	}{
		{"penetration_mm", pen, penetrationColor},
		{"bead_width_mm", bead, beadColor},
		{"defect_probability", prob, defectColor},
	}
	for _, s := range series {
		line, err := plotter.NewLine(s.xys)
		if err != nil {
			return nil, errors.Wrapf(err, "line %s", s.name)
		}
		line.Color = s.color
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	if len(defects) > 0 {
		sc, err := plotter.NewScatter(defects)
		if err != nil {
			return nil, errors.Wrap(err, "defect markers")
		}
		sc.GlyphStyle.Color = defectColor
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add("defect", sc)
	}
	p.Legend.Top = true
	return p, nil
}

// Render writes the trajectory chart to w.
func Render(w io.Writer, points []weld.TrajectoryPoint, opts Options) error {
	format := strings.ToLower(opts.Format)
	switch format {
	case "png", "svg":
	default:
		return errors.NewValidationError("format", "must be png or svg", opts.Format)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return errors.NewValidationError("size", "width and height must be positive", opts.Width)
	}

	p, err := Trajectory(points, opts.Title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(opts.Width, opts.Height, format)
	if err != nil {
		return errors.Wrap(err, "failed to create canvas")
	}
	_, err = wt.WriteTo(w)
	return errors.Wrap(err, "failed to write chart")
}
