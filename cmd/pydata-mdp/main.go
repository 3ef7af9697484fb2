package main

import (
	"fmt"
	"os"

	"github.com/ecotner/pydata-mdp/solver"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "solve":
		if err := solve(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "propagate":
		if err := propagate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "simulate":
		if err := simulate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "sweep":
		if err := sweep(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "compare":
		if err := compare(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "plot":
		if err := plot(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "summary":
		if err := summary(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if err := validate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("pydata-mdp version 1.0.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pydata-mdp - dice blackjack value iteration tool

Usage:
  pydata-mdp <command> [options]

Commands:
  solve      Solve the game and print the optimal policy
  propagate  Propagate the state distribution under the optimal policy
  simulate   Run Monte Carlo playouts and check them against exact results
  sweep      Sweep a game parameter and rank the variants
  compare    Compare two solve results
  plot       Generate SVG or HTML plots from solve results
  summary    Display quick summary of solve results
  validate   Validate the game model structure
  help       Show this help message
  version    Show version information

Examples:
  # Solve the classic d20 game with bust threshold 21
  pydata-mdp solve --sides 20 --max-score 21

  # Save results and track the state distribution
  pydata-mdp solve --output results.json
  pydata-mdp propagate --horizon 12 --output results.json

  # Cross-check the policy with playouts
  pydata-mdp simulate --episodes 20000 --seed 42

  # Sweep the bust threshold
  pydata-mdp sweep --param maxScore --min 10 --max 30 --output sweep.json

For command-specific help, run:
  pydata-mdp <command> --help

Environment defaults are read from PYDATA_MDP_* variables; flags override
them.`)
}

// methodByName resolves a sweep method flag value.
func methodByName(name string) (*solver.Method, error) {
	switch name {
	case "", "standard":
		return solver.Standard(), nil
	case "gauss-seidel":
		return solver.GaussSeidel(), nil
	default:
		return nil, fmt.Errorf("unknown method: %s (expected standard or gauss-seidel)", name)
	}
}
