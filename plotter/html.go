package plotter

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ecotner/pydata-mdp/chain"
	"github.com/ecotner/pydata-mdp/sensitivity"
	"github.com/ecotner/pydata-mdp/solver"
)

// ValueChart builds an interactive line chart of the value function against
// the bank-now payoff.
func ValueChart(sol *solver.Solution) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Optimal value by score",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	n := len(sol.V) - 1
	scores := make([]string, n)
	keep := make([]opts.LineData, 0, n)
	bank := make([]opts.LineData, 0, n)
	for s := 0; s < n; s++ {
		scores[s] = strconv.Itoa(s)
		keep = append(keep, opts.LineData{Value: sol.V[s]})
		bank = append(bank, opts.LineData{Value: float64(s)})
	}

	line.SetXAxis(scores)
	line.AddSeries("keep playing", keep)
	line.AddSeries("bank now", bank)
	return line
}

// TrajectoryChart builds a line chart of state occupancy over time.
// A nil states slice plots every state.
func TrajectoryChart(tr *chain.Trajectory, states []int) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("State distribution from score %d", tr.Start),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	steps := make([]string, tr.TMax()+1)
	for t := range steps {
		steps[t] = strconv.Itoa(t)
	}
	line.SetXAxis(steps)

	if states == nil {
		states = make([]int, len(tr.At(0)))
		for s := range states {
			states[s] = s
		}
	}
	for _, s := range states {
		label := strconv.Itoa(s)
		if s < len(tr.Labels) && tr.Labels[s] != "" {
			label = tr.Labels[s]
		}
		series := tr.Series(s)
		items := make([]opts.LineData, 0, len(series))
		for _, p := range series {
			items = append(items, opts.LineData{Value: p})
		}
		line.AddSeries(label, items)
	}
	return line
}

// SurvivalChart builds a line chart of the probability that play is still
// going at each step.
func SurvivalChart(ab *chain.Absorption) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Probability the game is still going",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	steps := make([]string, len(ab.Survival))
	items := make([]opts.LineData, 0, len(ab.Survival))
	for t, p := range ab.Survival {
		steps[t] = strconv.Itoa(t)
		items = append(items, opts.LineData{Value: p})
	}

	line.SetXAxis(steps)
	line.AddSeries("still playing", items)
	return line
}

// SweepChart builds a line chart for a parameter sweep.
func SweepChart(sr *sensitivity.SweepResult) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Sweep over %s", sr.Parameter),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	values := make([]string, len(sr.Values))
	items := make([]opts.LineData, 0, len(sr.Scores))
	for i, v := range sr.Values {
		values[i] = strconv.FormatFloat(v, 'g', -1, 64)
		items = append(items, opts.LineData{Value: sr.Scores[i]})
	}

	line.SetXAxis(values)
	line.AddSeries("score", items)
	return line
}

// DistributionChart builds a bar chart of a distribution over states.
// A nil labels slice falls back to state indices.
func DistributionChart(dist []float64, labels []string, title string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	names := make([]string, len(dist))
	items := make([]opts.BarData, 0, len(dist))
	for s, p := range dist {
		if s < len(labels) && labels[s] != "" {
			names[s] = labels[s]
		} else {
			names[s] = strconv.Itoa(s)
		}
		items = append(items, opts.BarData{Value: p})
	}

	bar.SetXAxis(names)
	bar.AddSeries("probability", items)
	return bar
}

// WritePage composes charts into a single HTML page.
func WritePage(w io.Writer, cs ...components.Charter) error {
	page := components.NewPage()
	page.AddCharts(cs...)
	return page.Render(w)
}

// WriteHTML renders charts to an HTML file.
func WriteHTML(filename string, cs ...components.Charter) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %w", filename, err)
	}
	defer f.Close()

	if err := WritePage(f, cs...); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
