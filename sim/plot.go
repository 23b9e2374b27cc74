package sim

import (
	"fmt"
	"image/color"

	dynamics "github.com/mechsym/go-dynamics"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
)

// componentColors are cycled through when plotting state components.
var componentColors = []color.RGBA{
	{R: 255, B: 128, A: 255},
	{G: 255, A: 255},
	{R: 169, G: 169, B: 169, A: 255},
	{B: 255, A: 255},
}

// NewTrajectoryPlot creates a plot of every state component of tr
// against time, one line per component labelled by its index.
// It returns error if either of the following conditions is met:
// * tr is nil or holds no samples
// * gonum plot fails to be created
func NewTrajectoryPlot(tr dynamics.Trajectory, labels ...string) (*plot.Plot, error) {
	if tr == nil || tr.Len() == 0 {
		return nil, fmt.Errorf("invalid trajectory supplied")
	}

	p := plot.New()

	p.Title.Text = "Trajectory"
	p.X.Label.Text = "time"
	p.Y.Label.Text = "state"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	n := tr.State(0).Len()
	for j := 0; j < n; j++ {
		pts := make(plotter.XYs, tr.Len())
		for i := 0; i < tr.Len(); i++ {
			pts[i].X = tr.Time(i)
			pts[i].Y = tr.State(i).AtVec(j)
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create line: %v", err)
		}
		line.Color = componentColors[j%len(componentColors)]

		p.Add(line)
		label := fmt.Sprintf("y%d", j)
		if j < len(labels) {
			label = labels[j]
		}
		p.Legend.Add(label, line)
	}

	return p, nil
}
