// Package plot renders significance curves and reference densities with gonum/plot.
package plot

import (
	"fmt"
	"os"
	"path/filepath"

	"llrscan/adapters/arrays"
	"llrscan/internal/analysis/pdf"
	"llrscan/internal/errors"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	width  = 16 * vg.Centimeter
	height = 12 * vg.Centimeter
)

// Curves draws the three significance curves against the study's x axis.
// The output format follows the extension of path (.png, .pdf, .svg).
func Curves(study arrays.Study, c arrays.Curves, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Luminosity [fb^-1]"
	if study == arrays.StudyThreshold {
		p.X.Label.Text = "P_cut"
	}
	p.Y.Label.Text = "n sigma"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	if err := plotutil.AddLinePoints(p,
		"Gaussian fit", xy(c.X, c.NSigma),
		"No beta", xy(c.X, c.NSigmaNoBeta),
		"Exact", xy(c.X, c.NSigmaExact),
	); err != nil {
		return errors.Wrap(err, "failed to add significance curves")
	}
	return save(p, path)
}

// Densities overlays the null and alternate reference densities
func Densities(null, alt pdf.Histogram, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "R"
	p.Y.Label.Text = "density"
	p.Legend.Top = true

	if err := plotutil.AddLines(p,
		"SM", xy(null.Centers(), null.Values),
		"SM+EFT", xy(alt.Centers(), alt.Values),
	); err != nil {
		return errors.Wrap(err, "failed to add densities")
	}
	return save(p, path)
}

func xy(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, min(len(x), len(y)))
	for i := range pts {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts
}

func save(p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.IOError(dir, err)
		}
	}
	if err := p.Save(width, height, path); err != nil {
		return errors.IOError(path, fmt.Errorf("render plot: %w", err))
	}
	return nil
}
