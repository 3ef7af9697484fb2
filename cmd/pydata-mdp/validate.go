package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ecotner/pydata-mdp/config"
	"github.com/ecotner/pydata-mdp/dice"
	"github.com/ecotner/pydata-mdp/validation"
)

func validate(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	nSides := fs.Int("sides", cfg.NSides, "Number of die sides")
	maxScore := fs.Int("max-score", cfg.MaxScore, "Highest score that is not a bust")
	outputJSON := fs.Bool("json", false, "Output results as JSON")
	outputFile := fs.String("output", "", "Write JSON results to file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pydata-mdp validate [options]

Build the dice model and check it for structural issues.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Checks performed:
  - Matrix shapes (transitions per action, reward dimensions)
  - Row stochasticity (every row sums to 1)
  - Absorption (at least one absorbing state)
  - Reward sanity (finite, non-negative banking payoffs)
  - Reachability of the terminal state

Examples:
  # Validate the default d20 game
  pydata-mdp validate

  # A custom game
  pydata-mdp validate --sides 6 --max-score 10

  # Save validation report
  pydata-mdp validate --json --output validation.json
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	model, err := dice.BuildModel(*nSides, *maxScore)
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	result := validation.NewValidator(model).Validate()

	if *outputJSON || *outputFile != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}

		if *outputFile != "" {
			if err := os.WriteFile(*outputFile, data, 0644); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Validation results written to %s\n", *outputFile)
		} else {
			fmt.Println(string(data))
		}
	} else {
		printValidationResults(result)
	}

	if !result.Valid {
		os.Exit(1)
	}

	return nil
}

func printValidationResults(result *validation.ValidationResult) {
	fmt.Println("=== Model Validation ===")

	fmt.Printf("Model: %d states, %d actions, %d absorbing\n",
		result.Summary.States,
		result.Summary.Actions,
		result.Summary.Absorbing)

	if result.Summary.Solvable {
		fmt.Println("Solvable: ✓ Absorbing state present")
	} else {
		fmt.Println("Solvable: ⚠ No absorbing state")
	}
	fmt.Println()

	if len(result.Errors) > 0 {
		fmt.Printf("Errors (%d):\n", len(result.Errors))
		for _, issue := range result.Errors {
			fmt.Printf("  ✗ [%s] %s\n", issue.Category, issue.Message)
			if len(issue.Location) > 0 {
				fmt.Printf("    Location: %v\n", issue.Location)
			}
			if issue.Suggestion != "" {
				fmt.Printf("    Suggestion: %s\n", issue.Suggestion)
			}
			fmt.Println()
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("Warnings (%d):\n", len(result.Warnings))
		for _, issue := range result.Warnings {
			fmt.Printf("  ⚠ [%s] %s\n", issue.Category, issue.Message)
			if len(issue.Location) > 0 {
				fmt.Printf("    Location: %v\n", issue.Location)
			}
			if issue.Suggestion != "" {
				fmt.Printf("    Suggestion: %s\n", issue.Suggestion)
			}
			fmt.Println()
		}
	}

	if len(result.Info) > 0 {
		fmt.Printf("Info (%d):\n", len(result.Info))
		for _, issue := range result.Info {
			fmt.Printf("  ℹ [%s] %s\n", issue.Category, issue.Message)
			if len(issue.Location) > 0 {
				fmt.Printf("    Location: %v\n", issue.Location)
			}
			fmt.Println()
		}
	}

	fmt.Println("───────────────────────────────────")
	if result.Valid {
		fmt.Println("✓ Validation PASSED")
	} else {
		fmt.Println("✗ Validation FAILED")
		fmt.Printf("  %d error(s) must be fixed\n", len(result.Errors))
	}
}
