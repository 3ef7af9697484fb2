package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ecotner/pydata-mdp/chain"
	"github.com/ecotner/pydata-mdp/config"
	"github.com/ecotner/pydata-mdp/dice"
	"github.com/ecotner/pydata-mdp/hypothesis"
	"github.com/ecotner/pydata-mdp/results"
	"github.com/ecotner/pydata-mdp/sim"
	"github.com/ecotner/pydata-mdp/solver"
	"github.com/ecotner/pydata-mdp/store"
)

func simulate(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	nSides := fs.Int("sides", cfg.NSides, "Number of die sides")
	maxScore := fs.Int("max-score", cfg.MaxScore, "Highest score that is not a bust")
	discount := fs.Float64("discount", cfg.Discount, "Discount factor in (0, 1]")
	methodName := fs.String("method", cfg.Method, "Sweep method: standard or gauss-seidel")
	episodes := fs.Int("episodes", cfg.Episodes, "Number of episodes to play")
	seed := fs.Int64("seed", cfg.Seed, "Random seed")
	workers := fs.Int("workers", cfg.Workers, "Parallel workers")
	start := fs.Int("start", 0, "Start score")
	bankAt := fs.Int("bank-at", -1, "Bank at this score or above (-1 plays the optimal policy)")
	horizon := fs.Int("horizon", cfg.Horizon, "Step at which to compare against the exact distribution")
	runName := fs.String("name", "", "Run name (defaults to the dice parameters)")
	dbPath := fs.String("db", cfg.DBPath, "SQLite database to record the run and its episodes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pydata-mdp simulate [options]

Play out episodes of the dice game under a policy and compare the sampled
payouts against the exact solution.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Play the optimal policy
  pydata-mdp simulate --episodes 10000

  # Force a fixed banking threshold
  pydata-mdp simulate --bank-at 15 --episodes 10000

  # Record episodes for later inspection
  pydata-mdp simulate --episodes 5000 --db runs.db
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

	// Pick the policy to play. A fixed threshold replaces the optimal policy
	// and gets its own exact value via policy evaluation.
	policy := sol.Policy
	exact := sol.V
	if *bankAt >= 0 {
		policy = hypothesis.StopAt(model.NumStates(), *bankAt)
		ev, err := solver.EvaluatePolicy(prob, policy, nil)
		if err != nil {
			return fmt.Errorf("evaluate policy: %w", err)
		}
		exact = ev.V
		sol = &solver.Solution{
			V:          ev.V,
			Policy:     policy,
			Iterations: ev.Iterations,
			Converged:  ev.Converged,
			Residual:   ev.Residual,
			Span:       ev.Span,
			Reason:     ev.Reason,
			Method:     fmt.Sprintf("fixed-policy bank-at %d", *bankAt),
			Discount:   *discount,
			Labels:     game.Labels(),
		}
	}
	elapsed := time.Since(began).Seconds()

	runner, err := sim.NewRunner(model, policy, *discount)
	if err != nil {
		return err
	}
	runner.WithSeed(*seed)

	batch, err := runner.RunParallel(*start, *episodes, *workers)
	if err != nil {
		return fmt.Errorf("run episodes: %w", err)
	}

	banked := batch.Count(sim.Banked())
	truncated := batch.Count(func(ep *sim.Episode) bool { return ep.Truncated })
	busted := len(batch.Episodes) - banked - truncated

	fmt.Printf("=== Simulated %d episodes from score %d ===\n", len(batch.Episodes), *start)
	fmt.Printf("  Mean payout: %8.4f (std %.4f)\n", batch.MeanReturn(), batch.StdReturn())
	fmt.Printf("  Mean steps:  %8.4f\n", batch.MeanSteps())
	fmt.Printf("  Banked:      %8d (%.1f%%)\n", banked, 100*batch.Rate(sim.Banked()))
	fmt.Printf("  Busted:      %8d (%.1f%%)\n", busted, 100*float64(busted)/float64(len(batch.Episodes)))
	if truncated > 0 {
		fmt.Printf("  Truncated:   %8d\n", truncated)
	}

	// Cross-check the sample against the exact chain at one time step.
	ch, err := chain.Reduce(model, policy)
	if err != nil {
		return fmt.Errorf("reduce: %w", err)
	}
	tr, err := ch.PropagateFrom(*start, *horizon)
	if err != nil {
		return fmt.Errorf("propagate: %w", err)
	}
	tv := sim.TotalVariation(batch.EmpiricalAt(*horizon), tr.At(*horizon))

	fmt.Printf("\nAgainst the exact solution:\n")
	fmt.Printf("  Predicted value: %8.4f\n", exact[*start])
	fmt.Printf("  Sample mean:     %8.4f (diff %+.4f)\n", batch.MeanReturn(), batch.MeanReturn()-exact[*start])
	fmt.Printf("  Distribution gap at step %d: %.4f (total variation)\n", *horizon, tv)

	if *dbPath != "" {
		name := *runName
		if name == "" {
			name = fmt.Sprintf("d%d max %d", *nSides, *maxScore)
		}
		res := results.NewBuilder().
			WithGame(game, name).
			WithSolve(*discount, solver.DefaultOptions()).
			WithSolution(sol, elapsed).
			Build()
		res.Analysis = results.NewAnalyzer(res).ComputeAll()

		s, err := store.New(*dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()
		if err := s.SaveRun(res); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		if err := s.SaveEpisodes(res.RunID, batch); err != nil {
			return fmt.Errorf("save episodes: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Run %s with %d episodes recorded in %s\n", res.RunID, len(batch.Episodes), *dbPath)
	}

	fmt.Fprintf(os.Stderr, "Simulation complete\n")
	fmt.Fprintf(os.Stderr, "  Episodes: %d\n", len(batch.Episodes))
	fmt.Fprintf(os.Stderr, "  Seed: %d\n", *seed)
	fmt.Fprintf(os.Stderr, "  Compute time: %.3fs\n", time.Since(began).Seconds())

	return nil
}
