package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/components"
	"gonum.org/v1/gonum/mat"

	"github.com/ecotner/pydata-mdp/chain"
	"github.com/ecotner/pydata-mdp/plotter"
	"github.com/ecotner/pydata-mdp/results"
	"github.com/ecotner/pydata-mdp/sensitivity"
	"github.com/ecotner/pydata-mdp/solver"
)

func plot(args []string) error {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	kind := fs.String("kind", "values", "Plot kind: values, trajectory, survival, distribution, or sweep")
	output := fs.String("output", "", "Output file (required)")
	html := fs.Bool("html", false, "Write an interactive HTML chart instead of SVG")
	width := fs.Int("width", 800, "Plot width in pixels")
	height := fs.Int("height", 600, "Plot height in pixels")
	states := fs.String("states", "", "States to plot for trajectory (comma-separated, default: all)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pydata-mdp plot <results.json> [options]

Generate a plot from solve results. Trajectory, survival, and distribution
plots need the distribution series, so run propagate with --output first.
Sweep plots read the sweep subcommand's output file instead.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Value function against the bank-now payoff
  pydata-mdp plot results.json --output values.svg

  # Occupancy over time for selected scores
  pydata-mdp plot results.json --kind trajectory --states "0,10,22" --output traj.svg

  # Interactive HTML chart
  pydata-mdp plot results.json --kind survival --html --output survival.html

  # Score curve from a parameter sweep
  pydata-mdp plot sweep_results.json --kind sweep --output sweep.svg
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("results file required")
	}
	if *output == "" {
		fs.Usage()
		return fmt.Errorf("--output required")
	}

	// Sweep documents have their own schema, so they never pass through the
	// run-results reader below.
	if *kind == "sweep" {
		return plotSweep(fs.Arg(0), *output, *html, float64(*width), float64(*height))
	}

	res, err := results.ReadJSON(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read results: %w", err)
	}

	var svg string
	switch *kind {
	case "values":
		sol := solutionFrom(res)
		if *html {
			return writeChart(*output, plotter.ValueChart(sol))
		}
		svg, _ = plotter.PlotValues(sol, float64(*width), float64(*height))

	case "trajectory":
		tr, err := trajectoryFrom(res)
		if err != nil {
			return err
		}
		stateList, err := parseStates(*states)
		if err != nil {
			return err
		}
		if *html {
			return writeChart(*output, plotter.TrajectoryChart(tr, stateList))
		}
		svg, _ = plotter.PlotTrajectory(tr, stateList, float64(*width), float64(*height))

	case "survival":
		tr, err := trajectoryFrom(res)
		if err != nil {
			return err
		}
		ab := tr.Absorption(res.Game.States - 1)
		if *html {
			return writeChart(*output, plotter.SurvivalChart(ab))
		}
		svg, _ = plotter.PlotSurvival(ab, float64(*width), float64(*height))

	case "distribution":
		if res.Analysis == nil || len(res.Analysis.Outcomes) == 0 {
			return fmt.Errorf("no outcomes in results, run propagate with --output first")
		}
		labels := sortedOutcomes(res.Analysis.Outcomes)
		dist := make([]float64, len(labels))
		for i, label := range labels {
			dist[i] = res.Analysis.Outcomes[label]
		}
		title := "How games end"
		if *html {
			return writeChart(*output, plotter.DistributionChart(dist, labels, title))
		}
		svg, _ = plotter.PlotDistribution(dist, title, float64(*width), float64(*height))

	default:
		return fmt.Errorf("unknown plot kind: %s (expected values, trajectory, survival, distribution, or sweep)", *kind)
	}

	if err := os.WriteFile(*output, []byte(svg), 0644); err != nil {
		return fmt.Errorf("write SVG: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Plot saved to %s\n", *output)
	return nil
}

// solutionFrom rebuilds enough of a solution from a results document to
// drive the value plots.
func solutionFrom(res *results.Results) *solver.Solution {
	return &solver.Solution{
		V:      res.Results.Values,
		Policy: res.Results.Policy,
		Labels: res.Game.Labels,
	}
}

// trajectoryFrom rebuilds the propagated distribution series, if the
// document carries one.
func trajectoryFrom(res *results.Results) (*chain.Trajectory, error) {
	series := res.Results.Rho
	if len(series) == 0 || len(series[0]) == 0 {
		return nil, fmt.Errorf("no distribution series in results, run propagate with --output first")
	}

	rho := mat.NewDense(len(series), len(series[0]), nil)
	for t, row := range series {
		rho.SetRow(t, row)
	}
	return &chain.Trajectory{
		Start:  res.Results.Start,
		Rho:    rho,
		Labels: res.Game.Labels,
	}, nil
}

func plotSweep(input, output string, html bool, width, height float64) error {
	sweepRes, err := results.ReadSweepJSON(input)
	if err != nil {
		return fmt.Errorf("read sweep results: %w", err)
	}
	sr, err := sweepSeries(sweepRes)
	if err != nil {
		return err
	}

	if html {
		return writeChart(output, plotter.SweepChart(sr))
	}
	svg, _ := plotter.PlotSweep(sr, width, height)
	if err := os.WriteFile(output, []byte(svg), 0644); err != nil {
		return fmt.Errorf("write SVG: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Plot saved to %s\n", output)
	return nil
}

// sweepSeries rebuilds the swept score series from a sweep document. Variants
// are ranked by score in the document, so parameter order comes back from the
// insertion IDs.
func sweepSeries(sweep *results.SweepResults) (*sensitivity.SweepResult, error) {
	if len(sweep.Variants) == 0 {
		return nil, fmt.Errorf("no variants in sweep results")
	}
	variants := append([]results.VariantResult(nil), sweep.Variants...)
	sort.Slice(variants, func(i, j int) bool { return variants[i].ID < variants[j].ID })

	sr := &sensitivity.SweepResult{Parameter: sweep.Parameter}
	for _, v := range variants {
		val, ok := v.Parameters[sweep.Parameter]
		if !ok {
			return nil, fmt.Errorf("variant %d is missing the %s parameter", v.ID, sweep.Parameter)
		}
		sr.Values = append(sr.Values, val)
		sr.Scores = append(sr.Scores, v.Score)
	}
	return sr, nil
}

func parseStates(spec string) ([]int, error) {
	if spec == "" {
		return nil, nil
	}
	parts := strings.Split(spec, ",")
	states := make([]int, 0, len(parts))
	for _, part := range parts {
		s, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid state: %s", part)
		}
		states = append(states, s)
	}
	return states, nil
}

func writeChart(filename string, chart components.Charter) error {
	if err := plotter.WriteHTML(filename, chart); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Chart saved to %s\n", filename)
	return nil
}
