package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/ecotner/pydata-mdp/results"
	"github.com/ecotner/pydata-mdp/store"
)

func summary(args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	dbPath := fs.String("db", "", "SQLite database to read instead of a results file")
	list := fs.Bool("list", false, "List recorded runs (requires --db)")
	limit := fs.Int("limit", 20, "Most recent runs to list")
	runID := fs.String("run", "", "Run ID to summarize from the database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pydata-mdp summary <results.json>
       pydata-mdp summary --db <runs.db> [--list | --run <id>]

Display a quick summary of solve results, from a file or a run database.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Summarize a results file
  pydata-mdp summary results.json

  # List recorded runs
  pydata-mdp summary --db runs.db --list

  # Summarize one recorded run
  pydata-mdp summary --db runs.db --run 1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dbPath != "" {
		s, err := store.New(*dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()

		if *list {
			return listRuns(s, *limit)
		}
		if *runID == "" {
			fs.Usage()
			return fmt.Errorf("--run or --list required with --db")
		}
		res, err := s.GetRun(*runID)
		if err != nil {
			return fmt.Errorf("load run: %w", err)
		}
		printSummary(res)
		return printEpisodeStats(s, *runID)
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("results file required")
	}

	res, err := results.ReadJSON(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read results: %w", err)
	}
	printSummary(res)
	return nil
}

func listRuns(s *store.Store, limit int) error {
	runs, err := s.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	fmt.Printf("%-36s  %-19s  %-16s  %-20s  %11s  %7s\n",
		"ID", "CREATED", "GAME", "SOLVER", "START VALUE", "BANK AT")
	for _, run := range runs {
		bank := "-"
		if run.Threshold != nil {
			bank = strconv.Itoa(*run.Threshold)
		}
		fmt.Printf("%-36s  %-19s  %-16s  %-20s  %11.4f  %7s\n",
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Game,
			run.Solver,
			run.StartValue,
			bank)
	}
	return nil
}

func printSummary(res *results.Results) {
	fmt.Printf("Game: %s\n", res.Game.Name)
	fmt.Printf("Status: %s\n", res.Metadata.Status)

	if res.Metadata.Error != "" {
		fmt.Printf("Error: %s\n", res.Metadata.Error)
		return
	}

	fmt.Printf("Solver: %s (%.3fs)\n", res.Metadata.Solver, res.Metadata.ComputeTime)
	fmt.Printf("Dice: d%d, bust past %d (%d states)\n", res.Game.NSides, res.Game.MaxScore, res.Game.States)
	fmt.Printf("Discount: %g\n", res.Solve.Discount)
	fmt.Printf("Sweeps: %d (converged: %v)\n", res.Results.Summary.Iterations, res.Results.Summary.Converged)
	fmt.Printf("Start value: %.4f\n", res.Results.Summary.StartValue)

	if res.Analysis == nil {
		return
	}

	if sp := res.Analysis.SwitchPoint; sp != nil {
		if sp.Found {
			fmt.Printf("\nBank at %d or above (%d roll / %d bank)\n",
				sp.Threshold, sp.ContinueStates, sp.StopStates)
		} else {
			fmt.Println("\nNever banks")
		}
	}

	if vs := res.Analysis.ValueStats; vs != nil {
		fmt.Printf("Values: min %.4f, mean %.4f, max %.4f\n", vs.Min, vs.Mean, vs.Max)
	}

	if ab := res.Analysis.Absorption; ab != nil {
		fmt.Printf("\nExpected steps to finish: %.4f\n", ab.ExpectedSteps)
		if ab.Complete {
			fmt.Printf("All mass absorbed within %d steps\n", ab.Horizon)
		} else {
			fmt.Printf("Mass still in play at step %d: %.2e\n", ab.Horizon, 1-ab.FinalMass)
		}
	}

	if len(res.Analysis.Outcomes) > 0 {
		fmt.Println("\nOutcomes:")
		for _, label := range sortedOutcomes(res.Analysis.Outcomes) {
			fmt.Printf("  %7s: %.6f\n", label, res.Analysis.Outcomes[label])
		}
	}
}

func printEpisodeStats(s *store.Store, runID string) error {
	stats, err := s.EpisodeStats(runID)
	if err != nil {
		return fmt.Errorf("episode stats: %w", err)
	}
	if stats.Episodes == 0 {
		return nil
	}

	fmt.Printf("\nEpisodes: %d\n", stats.Episodes)
	fmt.Printf("  Mean payout: %.4f (range %g to %g)\n", stats.MeanPayout, stats.MinPayout, stats.MaxPayout)
	fmt.Printf("  Mean steps:  %.4f\n", stats.MeanSteps)
	fmt.Printf("  Banked:      %d (%.1f%%)\n", stats.Banked, 100*stats.BankRate)
	if stats.Truncated > 0 {
		fmt.Printf("  Truncated:   %d\n", stats.Truncated)
	}
	return nil
}
