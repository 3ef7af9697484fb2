package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/ecotner/pydata-mdp/chain"
	"github.com/ecotner/pydata-mdp/config"
	"github.com/ecotner/pydata-mdp/dice"
	"github.com/ecotner/pydata-mdp/results"
	"github.com/ecotner/pydata-mdp/solver"
	"github.com/ecotner/pydata-mdp/store"
)

func propagate(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("propagate", flag.ExitOnError)
	nSides := fs.Int("sides", cfg.NSides, "Number of die sides")
	maxScore := fs.Int("max-score", cfg.MaxScore, "Highest score that is not a bust")
	discount := fs.Float64("discount", cfg.Discount, "Discount factor in (0, 1]")
	methodName := fs.String("method", cfg.Method, "Sweep method: standard or gauss-seidel")
	start := fs.Int("start", 0, "Start score")
	horizon := fs.Int("horizon", cfg.Horizon, "Number of steps to propagate")
	runName := fs.String("name", "", "Run name (defaults to the dice parameters)")
	output := fs.String("output", "", "Output file for results JSON (includes the distribution series)")
	dbPath := fs.String("db", cfg.DBPath, "SQLite database to record the run")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pydata-mdp propagate [options]

Solve the game, then push the state distribution forward in time under the
optimal policy and report where the probability mass ends up.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Distribution from score 0 over 12 steps
  pydata-mdp propagate --horizon 12

  # Start mid-game
  pydata-mdp propagate --start 15 --horizon 5

  # Save the full time series for plotting
  pydata-mdp propagate --horizon 12 --output results.json
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	method, err := methodByName(*methodName)
	if err != nil {
		return err
	}

	game, err := dice.NewGame(*nSides, *maxScore)
	if err != nil {
		return err
	}
	model, err := game.Build()
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}
	prob, err := solver.NewProblem(model, *discount)
	if err != nil {
		return err
	}

	began := time.Now()
	sol, err := solver.Solve(prob, method, nil)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}

	ch, err := chain.Reduce(model, sol.Policy)
	if err != nil {
		return fmt.Errorf("reduce: %w", err)
	}
	tr, err := ch.PropagateFrom(*start, *horizon)
	if err != nil {
		return fmt.Errorf("propagate: %w", err)
	}
	elapsed := time.Since(began).Seconds()

	name := *runName
	if name == "" {
		name = fmt.Sprintf("d%d max %d", *nSides, *maxScore)
	}

	res := results.NewBuilder().
		WithGame(game, name).
		WithSolve(*discount, solver.DefaultOptions()).
		WithSolution(sol, elapsed).
		WithTrajectory(tr).
		Build()
	res.Analysis = results.NewAnalyzer(res).ComputeAll()

	printTrajectory(tr, game, res.Analysis)

	if *output != "" {
		if err := results.WriteJSON(res, *output); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Results written to %s\n", *output)
	}

	if *dbPath != "" {
		s, err := store.New(*dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()
		if err := s.SaveRun(res); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Run %s recorded in %s\n", res.RunID, *dbPath)
	}

	return nil
}

// printTrajectory reports the survival curve and game outcomes.
func printTrajectory(tr *chain.Trajectory, game *dice.Game, analysis *results.Analysis) {
	ab := tr.Absorption(game.Terminal())

	fmt.Printf("=== State distribution from score %d ===\n", tr.Start)
	fmt.Printf("%4s  %13s  %8s\n", "Step", "Still playing", "Finished")
	for t, surv := range ab.Survival {
		fmt.Printf("%4d  %13.6f  %8.6f\n", t, surv, ab.Mass[t])
		if surv <= 0 {
			break
		}
	}

	fmt.Printf("\nExpected steps to finish: %.4f\n", ab.ExpectedSteps)
	if ab.Complete {
		fmt.Printf("All mass absorbed within %d steps\n", tr.TMax())
	} else {
		fmt.Printf("Transient mass left at step %d: %.2e\n", tr.TMax(), ab.Remaining)
	}

	if analysis == nil || len(analysis.Outcomes) == 0 {
		return
	}
	fmt.Println("\nOutcomes:")
	for _, label := range sortedOutcomes(analysis.Outcomes) {
		fmt.Printf("  %7s: %.6f\n", label, analysis.Outcomes[label])
	}
}

// sortedOutcomes orders outcome labels numerically with the bust label last.
func sortedOutcomes(outcomes map[string]float64) []string {
	labels := make([]string, 0, len(outcomes))
	for label := range outcomes {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, errA := strconv.Atoi(labels[i])
		b, errB := strconv.Atoi(labels[j])
		if errA != nil {
			return false
		}
		if errB != nil {
			return true
		}
		return a < b
	})
	return labels
}
