package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/ecotner/pydata-mdp/config"
	"github.com/ecotner/pydata-mdp/dice"
	"github.com/ecotner/pydata-mdp/results"
	"github.com/ecotner/pydata-mdp/sensitivity"
	"github.com/ecotner/pydata-mdp/solver"
)

func sweep(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	param := fs.String("param", "", "Parameter to sweep: nSides, maxScore, or discount (required)")
	minVal := fs.Float64("min", 0, "Lowest parameter value")
	maxVal := fs.Float64("max", 0, "Highest parameter value")
	steps := fs.Int("steps", 5, "Number of values between min and max")
	objective := fs.String("objective", "maximize_value", "Optimization objective")
	nSides := fs.Int("sides", cfg.NSides, "Number of die sides (base value)")
	maxScore := fs.Int("max-score", cfg.MaxScore, "Highest score that is not a bust (base value)")
	discount := fs.Float64("discount", cfg.Discount, "Discount factor (base value)")
	methodName := fs.String("method", cfg.Method, "Sweep method: standard or gauss-seidel")
	parallel := fs.Int("parallel", cfg.Workers, "Number of parallel solves")
	output := fs.String("output", "sweep_results.json", "Output file for sweep results")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pydata-mdp sweep [options]

Solve the game across a range of one parameter and rank the variants.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Objectives:
  maximize_value   Highest expected payout from score 0
  latest_bank      Highest banking threshold
  earliest_bank    Lowest banking threshold
  fewest_sweeps    Cheapest solve

Examples:
  # How does the banking threshold move with the die size?
  pydata-mdp sweep --param nSides --min 4 --max 24 --steps 11 --objective latest_bank

  # Value of the game as the target score grows
  pydata-mdp sweep --param maxScore --min 10 --max 40 --steps 7

  # Discount sensitivity
  pydata-mdp sweep --param discount --min 0.5 --max 1.0 --steps 11
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *param == "" {
		fs.Usage()
		return fmt.Errorf("--param required")
	}
	if *param != "nSides" && *param != "maxScore" && *param != "discount" {
		return fmt.Errorf("unknown parameter: %s (expected nSides, maxScore, or discount)", *param)
	}

	objectiveFunc, ok := results.Objectives[*objective]
	if !ok {
		return fmt.Errorf("unknown objective: %s", *objective)
	}

	method, err := methodByName(*methodName)
	if err != nil {
		return err
	}

	values, err := sweepValues(*param, *minVal, *maxVal, *steps)
	if err != nil {
		return err
	}

	base := sensitivity.Params{NSides: *nSides, MaxScore: *maxScore, Discount: *discount}
	variants := make([]sensitivity.Params, len(values))
	for i, v := range values {
		variants[i] = base
		switch *param {
		case "nSides":
			variants[i].NSides = int(v)
		case "maxScore":
			variants[i].MaxScore = int(v)
		case "discount":
			variants[i].Discount = v
		}
	}

	fmt.Fprintf(os.Stderr, "Parameter sweep: %d variants of %s\n", len(variants), *param)
	fmt.Fprintf(os.Stderr, "Objective: %s\n", *objective)
	fmt.Fprintf(os.Stderr, "Running solves...\n")

	type solved struct {
		idx int
		sol *solver.Solution
		err error
	}

	jobs := make(chan int, len(variants))
	done := make(chan solved, len(variants))

	workers := *parallel
	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				sol, err := solveVariant(variants[i], method)
				done <- solved{idx: i, sol: sol, err: err}
			}
		}()
	}

	for i := range variants {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(done)
	}()

	sols := make([]*solver.Solution, len(variants))
	completed := 0
	for res := range done {
		if res.err != nil {
			return fmt.Errorf("variant %s: %w", variants[res.idx], res.err)
		}
		sols[res.idx] = res.sol
		completed++
		fmt.Fprintf(os.Stderr, "\rCompleted: %d/%d", completed, len(variants))
	}
	fmt.Fprintf(os.Stderr, "\n")

	// Variants are added in parameter order so IDs are reproducible.
	builder := results.NewSweepBuilder(*param, *objective)
	for i, sol := range sols {
		score, err := objectiveFunc(sol)
		if err != nil {
			score = -math.MaxFloat64
		}
		builder.AddVariant(map[string]float64{
			"nSides":   float64(variants[i].NSides),
			"maxScore": float64(variants[i].MaxScore),
			"discount": variants[i].Discount,
		}, sol, score)
	}
	sweepRes := builder.Build()

	if err := results.WriteSweepJSON(sweepRes, *output); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	printSweepSummary(sweepRes)
	fmt.Fprintf(os.Stderr, "Sweep results written to %s\n", *output)

	return nil
}

// sweepValues spaces steps values evenly across [min, max]. Integer
// parameters are rounded, dropping duplicates.
func sweepValues(param string, min, max float64, steps int) ([]float64, error) {
	if steps < 2 {
		return nil, fmt.Errorf("--steps must be at least 2, got %d", steps)
	}
	if max <= min {
		return nil, fmt.Errorf("--max must be greater than --min (got %g to %g)", min, max)
	}

	values := make([]float64, 0, steps)
	step := (max - min) / float64(steps-1)
	for i := 0; i < steps; i++ {
		v := min + float64(i)*step
		if param != "discount" {
			v = math.Round(v)
		}
		if len(values) > 0 && v == values[len(values)-1] {
			continue
		}
		values = append(values, v)
	}
	return values, nil
}

func solveVariant(p sensitivity.Params, method *solver.Method) (*solver.Solution, error) {
	model, err := dice.BuildModel(p.NSides, p.MaxScore)
	if err != nil {
		return nil, err
	}
	prob, err := solver.NewProblem(model, p.Discount)
	if err != nil {
		return nil, err
	}
	return solver.Solve(prob, method, nil)
}

func printSweepSummary(sweep *results.SweepResults) {
	fmt.Println("\n=== Parameter Sweep Results ===")
	fmt.Printf("Parameter: %s\n", sweep.Parameter)
	fmt.Printf("Objective: %s\n", sweep.Objective)
	fmt.Printf("Variants tested: %d\n\n", sweep.Summary.TotalVariants)

	if sweep.Best != nil {
		fmt.Println("Best Configuration:")
		fmt.Printf("  Rank: #%d\n", sweep.Best.Rank)
		fmt.Printf("  Score: %.4f\n", sweep.Best.Score)
		fmt.Println("  Parameters:")
		printParams(sweep.Best.Parameters)
		fmt.Printf("  Start value: %.4f\n", sweep.Best.Metrics.StartValue)
		if sweep.Best.Metrics.ThresholdFound {
			fmt.Printf("  Bank at: %d\n", sweep.Best.Metrics.Threshold)
		} else {
			fmt.Println("  Bank at: never")
		}
		fmt.Println()
	}

	if sweep.Worst != nil {
		fmt.Println("Worst Configuration:")
		fmt.Printf("  Rank: #%d\n", sweep.Worst.Rank)
		fmt.Printf("  Score: %.4f\n", sweep.Worst.Score)
		fmt.Println("  Parameters:")
		printParams(sweep.Worst.Parameters)
		fmt.Println()
	}

	if len(sweep.Recommended) > 0 {
		fmt.Println("Recommendations:")
		names := make([]string, 0, len(sweep.Recommended))
		for name := range sweep.Recommended {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %s\n", name, sweep.Recommended[name])
		}
	}
}

func printParams(params map[string]float64) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("    %s = %g\n", name, params[name])
	}
}
