// Package plotter provides SVG and HTML visualization for solved games:
// value curves, policy trajectories, survival curves, and parameter sweeps.
package plotter

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/ecotner/pydata-mdp/chain"
	"github.com/ecotner/pydata-mdp/sensitivity"
	"github.com/ecotner/pydata-mdp/solver"
)

// Series represents a single data series to plot.
type Series struct {
	X     []float64
	Y     []float64
	Label string
	Color string
	Bars  bool
}

// PlotData contains metadata about the last rendered plot.
type PlotData struct {
	PlotID     string
	Margin     map[string]float64
	PlotWidth  float64
	PlotHeight float64
	Xmin       float64
	Xmax       float64
	Ymin       float64
	Ymax       float64
	Series     []Series
}

// SVGPlotter creates SVG plots with customizable styling.
type SVGPlotter struct {
	Width      float64
	Height     float64
	Margin     map[string]float64
	PlotWidth  float64
	PlotHeight float64
	Title      string
	XLabel     string
	YLabel     string
	Series     []Series
	LastPlot   *PlotData
}

// NewSVGPlotter creates a new SVG plotter with the given dimensions.
func NewSVGPlotter(width, height float64) *SVGPlotter {
	margin := map[string]float64{"top": 40, "right": 30, "bottom": 50, "left": 60}
	pw := width - margin["left"] - margin["right"]
	ph := height - margin["top"] - margin["bottom"]
	return &SVGPlotter{
		Width:      width,
		Height:     height,
		Margin:     margin,
		PlotWidth:  pw,
		PlotHeight: ph,
		XLabel:     "Score",
		YLabel:     "Value",
	}
}

// SetTitle sets the plot title.
func (p *SVGPlotter) SetTitle(t string) *SVGPlotter {
	p.Title = t
	return p
}

// SetXLabel sets the X-axis label.
func (p *SVGPlotter) SetXLabel(s string) *SVGPlotter {
	p.XLabel = s
	return p
}

// SetYLabel sets the Y-axis label.
func (p *SVGPlotter) SetYLabel(s string) *SVGPlotter {
	p.YLabel = s
	return p
}

// AddSeries adds a line series to the plot.
// If color is empty, a default color from a palette will be used.
func (p *SVGPlotter) AddSeries(x, y []float64, label, color string) *SVGPlotter {
	p.Series = append(p.Series, Series{X: x, Y: y, Label: label, Color: p.pick(color)})
	return p
}

// AddBars adds a bar series to the plot, for distributions over discrete
// states.
func (p *SVGPlotter) AddBars(x, y []float64, label, color string) *SVGPlotter {
	p.Series = append(p.Series, Series{X: x, Y: y, Label: label, Color: p.pick(color), Bars: true})
	return p
}

func (p *SVGPlotter) pick(color string) string {
	if color != "" {
		return color
	}
	colors := []string{"#e41a1c", "#377eb8", "#4daf4a", "#984ea3", "#ff7f00", "#a65628", "#f781bf"}
	return colors[len(p.Series)%len(colors)]
}

func escape(s string) string {
	return html.EscapeString(s)
}

// Render generates the SVG string and stores metadata in LastPlot.
func (p *SVGPlotter) Render() string {
	xmin := math.Inf(1)
	xmax := math.Inf(-1)
	ymin := math.Inf(1)
	ymax := math.Inf(-1)

	for _, s := range p.Series {
		for i := range s.X {
			if s.X[i] < xmin {
				xmin = s.X[i]
			}
			if s.X[i] > xmax {
				xmax = s.X[i]
			}
			if s.Y[i] < ymin {
				ymin = s.Y[i]
			}
			if s.Y[i] > ymax {
				ymax = s.Y[i]
			}
		}
	}

	// Empty plots still render axes
	if math.IsInf(xmin, 1) || math.IsInf(xmax, -1) {
		xmin, xmax = 0, 1
	}
	if math.IsInf(ymin, 1) || math.IsInf(ymax, -1) {
		ymin, ymax = 0, 1
	}

	xrange := xmax - xmin
	if xrange == 0 {
		xrange = 1
	}
	yrange := ymax - ymin
	if yrange == 0 {
		yrange = 1
	}

	xmin -= xrange * 0.05
	xmax += xrange * 0.05
	ymin -= yrange * 0.1
	ymax += yrange * 0.1

	sx := func(x float64) float64 {
		return p.Margin["left"] + ((x-xmin)/(xmax-xmin))*p.PlotWidth
	}
	sy := func(y float64) float64 {
		return p.Margin["top"] + p.PlotHeight - ((y-ymin)/(ymax-ymin))*p.PlotHeight
	}

	plotID := "plot_" + strconv.FormatInt(int64(math.Round(1000000*math.Abs(xmin+xmax+ymin+ymax))), 10)

	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" id="%s">`,
		int(p.Width), int(p.Height), plotID))

	// Background rectangle for visibility on dark themes
	sb.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="#f8f9fa" rx="8"/>`,
		int(p.Width), int(p.Height)))

	if p.Title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%f" y="25" text-anchor="middle" font-family="Arial, sans-serif" font-size="16" font-weight="bold">%s</text>`,
			p.Width/2, escape(p.Title)))
	}

	// Axes
	sb.WriteString(fmt.Sprintf(`<line x1="%f" y1="%f" x2="%f" y2="%f" stroke="#333" stroke-width="2"/>`,
		p.Margin["left"], p.Margin["top"], p.Margin["left"], p.Margin["top"]+p.PlotHeight))
	sb.WriteString(fmt.Sprintf(`<line x1="%f" y1="%f" x2="%f" y2="%f" stroke="#333" stroke-width="2"/>`,
		p.Margin["left"], p.Margin["top"]+p.PlotHeight, p.Margin["left"]+p.PlotWidth, p.Margin["top"]+p.PlotHeight))

	// Axis labels
	sb.WriteString(fmt.Sprintf(`<text x="%f" y="%f" text-anchor="middle" font-family="Arial, sans-serif" font-size="12">%s</text>`,
		p.Margin["left"]+p.PlotWidth/2, p.Height-10, escape(p.XLabel)))
	sb.WriteString(fmt.Sprintf(`<text x="15" y="%f" text-anchor="middle" font-family="Arial, sans-serif" font-size="12" transform="rotate(-90, 15, %f)">%s</text>`,
		p.Margin["top"]+p.PlotHeight/2, p.Margin["top"]+p.PlotHeight/2, escape(p.YLabel)))

	// Grid and ticks; scores and steps are whole numbers, so the x axis
	// drops decimals
	numTicks := 5
	for i := 0; i <= numTicks; i++ {
		x := xmin + (xmax-xmin)*float64(i)/float64(numTicks)
		px := sx(x)
		sb.WriteString(fmt.Sprintf(`<line x1="%f" y1="%f" x2="%f" y2="%f" stroke="#333" stroke-width="1"/>`,
			px, p.Margin["top"]+p.PlotHeight, px, p.Margin["top"]+p.PlotHeight+5))
		sb.WriteString(fmt.Sprintf(`<text x="%f" y="%f" text-anchor="middle" font-family="Arial, sans-serif" font-size="10">%.0f</text>`,
			px, p.Margin["top"]+p.PlotHeight+20, x))
		sb.WriteString(fmt.Sprintf(`<line x1="%f" y1="%f" x2="%f" y2="%f" stroke="#ddd" stroke-width="0.5"/>`,
			px, p.Margin["top"], px, p.Margin["top"]+p.PlotHeight))
	}
	for i := 0; i <= numTicks; i++ {
		y := ymin + (ymax-ymin)*float64(i)/float64(numTicks)
		py := sy(y)
		sb.WriteString(fmt.Sprintf(`<line x1="%f" y1="%f" x2="%f" y2="%f" stroke="#333" stroke-width="1"/>`,
			p.Margin["left"]-5, py, p.Margin["left"], py))
		sb.WriteString(fmt.Sprintf(`<text x="%f" y="%f" text-anchor="end" font-family="Arial, sans-serif" font-size="10">%.2f</text>`,
			p.Margin["left"]-10, py+4, y))
		sb.WriteString(fmt.Sprintf(`<line x1="%f" y1="%f" x2="%f" y2="%f" stroke="#ddd" stroke-width="0.5"/>`,
			p.Margin["left"], py, p.Margin["left"]+p.PlotWidth, py))
	}

	baseline := math.Max(ymin, 0)

	for _, s := range p.Series {
		if len(s.X) == 0 {
			continue
		}
		if s.Bars {
			barW := p.PlotWidth / float64(len(s.X)) * 0.8
			for i := range s.X {
				px := sx(s.X[i]) - barW/2
				top := math.Min(sy(s.Y[i]), sy(baseline))
				h := math.Abs(sy(baseline) - sy(s.Y[i]))
				sb.WriteString(fmt.Sprintf(`<rect x="%f" y="%f" width="%f" height="%f" fill="%s" opacity="0.8"/>`,
					px, top, barW, h, s.Color))
			}
			continue
		}
		path := strings.Builder{}
		for i := range s.X {
			px := sx(s.X[i])
			py := sy(s.Y[i])
			if i == 0 {
				path.WriteString(fmt.Sprintf("M%f,%f", px, py))
			} else {
				path.WriteString(fmt.Sprintf(" L%f,%f", px, py))
			}
		}
		sb.WriteString(fmt.Sprintf(`<path d="%s" stroke="%s" stroke-width="2" fill="none"/>`,
			path.String(), s.Color))
	}

	// Legend
	legendY := p.Margin["top"] + 10
	for _, s := range p.Series {
		if s.Label == "" {
			continue
		}
		x1 := p.Width - p.Margin["right"] - 50
		x2 := p.Width - p.Margin["right"] - 30
		sb.WriteString(fmt.Sprintf(`<line x1="%f" y1="%f" x2="%f" y2="%f" stroke="%s" stroke-width="2"/>`,
			x1, legendY, x2, legendY, s.Color))
		sb.WriteString(fmt.Sprintf(`<text x="%f" y="%f" font-family="Arial, sans-serif" font-size="10">%s</text>`,
			x2+5, legendY+4, escape(s.Label)))
		legendY += 20
	}

	sb.WriteString(`</svg>`)

	p.LastPlot = &PlotData{
		PlotID:     plotID,
		Margin:     p.Margin,
		PlotWidth:  p.PlotWidth,
		PlotHeight: p.PlotHeight,
		Xmin:       xmin,
		Xmax:       xmax,
		Ymin:       ymin,
		Ymax:       ymax,
		Series:     p.Series,
	}

	return sb.String()
}

// PlotValues draws the optimal value across scores against the bank-now
// payoff. The curves meet where banking becomes optimal.
func PlotValues(sol *solver.Solution, width, height float64) (string, *PlotData) {
	n := len(sol.V) - 1 // terminal state is always worth zero
	xs := make([]float64, n)
	bank := make([]float64, n)
	for s := 0; s < n; s++ {
		xs[s] = float64(s)
		bank[s] = float64(s)
	}

	p := NewSVGPlotter(width, height).
		SetTitle("Optimal value by score").
		SetYLabel("Expected payout")
	p.AddSeries(xs, append([]float64(nil), sol.V[:n]...), "keep playing", "")
	p.AddSeries(xs, bank, "bank now", "")
	svg := p.Render()
	return svg, p.LastPlot
}

// PlotTrajectory draws state occupancy over time for the given states.
// A nil states slice plots every state.
func PlotTrajectory(tr *chain.Trajectory, states []int, width, height float64) (string, *PlotData) {
	tmax := tr.TMax()
	xs := make([]float64, tmax+1)
	for t := range xs {
		xs[t] = float64(t)
	}

	if states == nil {
		states = make([]int, len(tr.At(0)))
		for s := range states {
			states[s] = s
		}
	}

	p := NewSVGPlotter(width, height).
		SetTitle(fmt.Sprintf("State distribution from score %d", tr.Start)).
		SetXLabel("Step").
		SetYLabel("Probability")
	for _, s := range states {
		label := strconv.Itoa(s)
		if s < len(tr.Labels) && tr.Labels[s] != "" {
			label = tr.Labels[s]
		}
		p.AddSeries(xs, tr.Series(s), label, "")
	}
	svg := p.Render()
	return svg, p.LastPlot
}

// PlotSurvival draws the probability that the game is still running at each
// step.
func PlotSurvival(ab *chain.Absorption, width, height float64) (string, *PlotData) {
	xs := make([]float64, len(ab.Survival))
	for t := range xs {
		xs[t] = float64(t)
	}

	p := NewSVGPlotter(width, height).
		SetTitle("Survival curve").
		SetXLabel("Step").
		SetYLabel("P(still playing)")
	p.AddSeries(xs, append([]float64(nil), ab.Survival...), "still playing", "")
	svg := p.Render()
	return svg, p.LastPlot
}

// PlotSweep draws a parameter sweep as score against parameter value.
func PlotSweep(sr *sensitivity.SweepResult, width, height float64) (string, *PlotData) {
	p := NewSVGPlotter(width, height).
		SetTitle(fmt.Sprintf("Sweep over %s", sr.Parameter)).
		SetXLabel(sr.Parameter).
		SetYLabel("Score")
	p.AddSeries(sr.Values, sr.Scores, "score", "")
	svg := p.Render()
	return svg, p.LastPlot
}

// PlotDistribution draws a distribution over states as bars.
func PlotDistribution(dist []float64, title string, width, height float64) (string, *PlotData) {
	xs := make([]float64, len(dist))
	for s := range xs {
		xs[s] = float64(s)
	}

	p := NewSVGPlotter(width, height).
		SetTitle(title).
		SetYLabel("Probability")
	p.AddBars(xs, dist, "", "")
	svg := p.Render()
	return svg, p.LastPlot
}
