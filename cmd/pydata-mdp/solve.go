package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ecotner/pydata-mdp/config"
	"github.com/ecotner/pydata-mdp/dice"
	"github.com/ecotner/pydata-mdp/mdp"
	"github.com/ecotner/pydata-mdp/results"
	"github.com/ecotner/pydata-mdp/solver"
	"github.com/ecotner/pydata-mdp/store"
	"github.com/logrusorgru/aurora"
)

func solve(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("solve", flag.ExitOnError)
	nSides := fs.Int("sides", cfg.NSides, "Number of die sides")
	maxScore := fs.Int("max-score", cfg.MaxScore, "Highest score that is not a bust")
	discount := fs.Float64("discount", cfg.Discount, "Discount factor in (0, 1]")
	epsilon := fs.Float64("epsilon", cfg.Epsilon, "Convergence tolerance")
	maxIters := fs.Int("max-iters", cfg.MaxIters, "Iteration cap")
	methodName := fs.String("method", cfg.Method, "Sweep method: standard or gauss-seidel")
	runName := fs.String("name", "", "Run name (defaults to the dice parameters)")
	verbose := fs.Bool("verbose", false, "Print per-sweep progress")
	analyze := fs.Bool("analyze", true, "Compute automatic analysis")
	output := fs.String("output", "", "Output file for results JSON")
	dbPath := fs.String("db", cfg.DBPath, "SQLite database to record the run")
	noColor := fs.Bool("no-color", cfg.NoColor, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pydata-mdp solve [options]

Solve the dice game by value iteration and print the optimal policy.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # The classic d20 game with bust threshold 21
  pydata-mdp solve --sides 20 --max-score 21

  # Impatient player
  pydata-mdp solve --discount 0.9

  # Tight tolerance with in-place sweeps
  pydata-mdp solve --epsilon 1e-9 --method gauss-seidel

  # Save results for plotting and comparison
  pydata-mdp solve --output results.json

  # Record the run in a database
  pydata-mdp solve --db runs.db
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

	opts := &solver.Options{Epsilon: *epsilon, MaxIters: *maxIters, Verbose: *verbose}

	start := time.Now()
	sol, err := solver.Solve(prob, method, opts)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	elapsed := time.Since(start).Seconds()

	name := *runName
	if name == "" {
		name = fmt.Sprintf("d%d max %d", *nSides, *maxScore)
	}

	res := results.NewBuilder().
		WithGame(game, name).
		WithSolve(*discount, opts).
		WithSolution(sol, elapsed).
		Build()
	if *analyze {
		res.Analysis = results.NewAnalyzer(res).ComputeAll()
	}

	printPolicy(sol, game, aurora.NewAurora(!*noColor))

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

	// Summary goes to stderr so the policy table can be piped cleanly
	fmt.Fprintf(os.Stderr, "Solve complete\n")
	fmt.Fprintf(os.Stderr, "  Method: %s\n", sol.Method)
	fmt.Fprintf(os.Stderr, "  Iterations: %d\n", sol.Iterations)
	fmt.Fprintf(os.Stderr, "  Converged: %v (%s)\n", sol.Converged, sol.Reason)
	fmt.Fprintf(os.Stderr, "  Compute time: %.3fs\n", elapsed)

	return nil
}

// printPolicy writes the value and action per score as a table.
func printPolicy(sol *solver.Solution, game *dice.Game, au aurora.Aurora) {
	labels := game.Labels()

	fmt.Printf("%6s  %9s  %s\n", "Score", "Value", "Action")
	for s := 0; s < game.NumStates(); s++ {
		var action any = "-"
		if s != game.Terminal() {
			if sol.Action(s) == mdp.Continue {
				action = au.Green("roll")
			} else {
				action = au.Blue("bank")
			}
		}
		// Pad before coloring so escape codes don't break the column.
		label := fmt.Sprintf("%6s", labels[s])
		if s == game.Terminal() {
			label = au.Red(label).String()
		}
		fmt.Printf("%s  %9.4f  %s\n", label, sol.V[s], action)
	}

	for s := 0; s < game.Terminal(); s++ {
		if sol.Action(s) == mdp.Stop {
			fmt.Printf("\nBank at %d or above.\n", s)
			return
		}
	}
	fmt.Println("\nNever bank: keep rolling from every score.")
}
