package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/ecotner/pydata-mdp/results"
)

func compare(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pydata-mdp compare <baseline.json> <variant.json>

Compare two solve results and show differences.

Examples:
  pydata-mdp compare baseline.json variant.json
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("two results files required")
	}

	baseline, err := results.ReadJSON(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read baseline: %w", err)
	}
	variant, err := results.ReadJSON(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("read variant: %w", err)
	}

	fmt.Println("=== Comparison ===")
	fmt.Printf("Baseline: %s\n", baseline.Game.Name)
	fmt.Printf("Variant:  %s\n\n", variant.Game.Name)

	fmt.Println("Start Value:")
	compareValue(baseline.Results.Summary.StartValue, variant.Results.Summary.StartValue)
	fmt.Println()

	if baseline.Analysis != nil && variant.Analysis != nil {
		if baseline.Analysis.SwitchPoint != nil && variant.Analysis.SwitchPoint != nil {
			fmt.Println("Switch Point:")
			compareSwitchPoints(baseline.Analysis.SwitchPoint, variant.Analysis.SwitchPoint)
			fmt.Println()
		}

		if baseline.Analysis.ValueStats != nil && variant.Analysis.ValueStats != nil {
			fmt.Println("Value Stats:")
			compareValueStats(baseline.Analysis.ValueStats, variant.Analysis.ValueStats)
			fmt.Println()
		}

		if baseline.Analysis.Absorption != nil && variant.Analysis.Absorption != nil {
			fmt.Println("Expected Steps:")
			compareValue(baseline.Analysis.Absorption.ExpectedSteps, variant.Analysis.Absorption.ExpectedSteps)
			fmt.Println()
		}

		if len(baseline.Analysis.Outcomes) > 0 && len(variant.Analysis.Outcomes) > 0 {
			fmt.Println("Outcomes:")
			compareOutcomes(baseline.Analysis.Outcomes, variant.Analysis.Outcomes)
			fmt.Println()
		}
	}

	fmt.Println("Parameter Differences:")
	compareParams(baseline, variant)

	return nil
}

func compareValue(base, variant float64) {
	fmt.Printf("  Baseline: %.4f\n", base)
	fmt.Printf("  Variant:  %.4f\n", variant)

	diff := variant - base
	if math.Abs(diff) <= 1e-9 {
		fmt.Println("  No change")
		return
	}
	fmt.Printf("  Change:   %+.4f", diff)
	if base != 0 {
		fmt.Printf(" (%+.1f%%)", (diff/base)*100)
	}
	fmt.Println()
}

func compareSwitchPoints(base, variant *results.SwitchPoint) {
	switch {
	case base.Found && variant.Found:
		fmt.Printf("  Baseline: banks at %d\n", base.Threshold)
		fmt.Printf("  Variant:  banks at %d\n", variant.Threshold)
		diff := variant.Threshold - base.Threshold
		if diff > 0 {
			fmt.Printf("  Change:   banks %d later\n", diff)
		} else if diff < 0 {
			fmt.Printf("  Change:   banks %d earlier\n", -diff)
		} else {
			fmt.Println("  Same threshold")
		}
	case base.Found:
		fmt.Printf("  Baseline banks at %d, variant never banks\n", base.Threshold)
	case variant.Found:
		fmt.Printf("  Variant banks at %d, baseline never banks\n", variant.Threshold)
	default:
		fmt.Println("  Neither policy banks")
	}
}

func compareValueStats(base, variant *results.Stat) {
	rows := []struct {
		name          string
		base, variant float64
	}{
		{"Min", base.Min, variant.Min},
		{"Mean", base.Mean, variant.Mean},
		{"Max", base.Max, variant.Max},
	}
	for _, row := range rows {
		diff := row.variant - row.base
		fmt.Printf("  %-5s %.4f → %.4f", row.name+":", row.base, row.variant)
		if math.Abs(diff) > 1e-9 {
			fmt.Printf(" (%+.4f)", diff)
		}
		fmt.Println()
	}
}

func compareOutcomes(base, variant map[string]float64) {
	all := make(map[string]float64, len(base)+len(variant))
	for label, p := range base {
		all[label] = p
	}
	for label, p := range variant {
		if _, ok := all[label]; !ok {
			all[label] = p
		}
	}

	for _, label := range sortedOutcomes(all) {
		baseP := base[label]
		varP := variant[label]
		diff := varP - baseP
		fmt.Printf("  %7s: %.4f → %.4f", label, baseP, varP)
		if math.Abs(diff) > 1e-9 {
			fmt.Printf(" (%+.4f)", diff)
		}
		fmt.Println()
	}
}

func compareParams(base, variant *results.Results) {
	differ := false

	intParam := func(name string, b, v int) {
		if b != v {
			fmt.Printf("  %s: %d → %d\n", name, b, v)
			differ = true
		}
	}
	floatParam := func(name string, b, v float64) {
		if math.Abs(v-b) > 1e-12 {
			fmt.Printf("  %s: %g → %g\n", name, b, v)
			differ = true
		}
	}

	intParam("nSides", base.Game.NSides, variant.Game.NSides)
	intParam("maxScore", base.Game.MaxScore, variant.Game.MaxScore)
	floatParam("discount", base.Solve.Discount, variant.Solve.Discount)
	if base.Solve.Options != nil && variant.Solve.Options != nil {
		floatParam("epsilon", base.Solve.Options.Epsilon, variant.Solve.Options.Epsilon)
		intParam("maxIters", base.Solve.Options.MaxIters, variant.Solve.Options.MaxIters)
	}

	if !differ {
		fmt.Println("  No parameter differences")
	}
}
