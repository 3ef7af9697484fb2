package results

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/ecotner/pydata-mdp/solver"
)

// SweepResults contains results from a parameter sweep
type SweepResults struct {
	Version     string            `json:"version"`
	RunID       string            `json:"runId"`
	Objective   string            `json:"objective"`
	Parameter   string            `json:"parameter"`
	Variants    []VariantResult   `json:"variants"`
	Best        *VariantResult    `json:"best"`
	Worst       *VariantResult    `json:"worst"`
	Summary     SweepSummary      `json:"summary"`
	Recommended map[string]string `json:"recommended,omitempty"`
}

// VariantResult contains results for one parameter combination
type VariantResult struct {
	ID         int                `json:"id"`
	Parameters map[string]float64 `json:"parameters"`
	Metrics    Metrics            `json:"metrics"`
	Score      float64            `json:"score"`
	Rank       int                `json:"rank"`
}

// Metrics contains key metrics extracted from a solve
type Metrics struct {
	StartValue     float64 `json:"startValue"`
	Threshold      int     `json:"threshold"`
	ThresholdFound bool    `json:"thresholdFound"`
	Converged      bool    `json:"converged"`
	Iterations     int     `json:"iterations"`
}

// SweepSummary provides overview of a sweep
type SweepSummary struct {
	TotalVariants int     `json:"totalVariants"`
	BestScore     float64 `json:"bestScore"`
	WorstScore    float64 `json:"worstScore"`
	ScoreRange    float64 `json:"scoreRange"`
}

// ObjectiveFunc evaluates how good a solve is (higher is better)
type ObjectiveFunc func(*solver.Solution) (float64, error)

// Objectives maps objective names to evaluation functions
var Objectives = map[string]ObjectiveFunc{
	"maximize_value": func(sol *solver.Solution) (float64, error) {
		if len(sol.V) == 0 {
			return 0, fmt.Errorf("empty value function")
		}
		return sol.V[0], nil
	},

	"latest_bank": func(sol *solver.Solution) (float64, error) {
		m := ExtractMetrics(sol)
		if !m.ThresholdFound {
			return 0, fmt.Errorf("policy never banks")
		}
		return float64(m.Threshold), nil
	},

	"earliest_bank": func(sol *solver.Solution) (float64, error) {
		m := ExtractMetrics(sol)
		if !m.ThresholdFound {
			return 0, fmt.Errorf("policy never banks")
		}
		return -float64(m.Threshold), nil // Negate so earlier wins
	},

	"fewest_sweeps": func(sol *solver.Solution) (float64, error) {
		return -float64(sol.Iterations), nil // Negate so cheaper wins
	},
}

// ExtractMetrics extracts key metrics from a solve
func ExtractMetrics(sol *solver.Solution) Metrics {
	m := Metrics{
		Threshold:  -1,
		Converged:  sol.Converged,
		Iterations: sol.Iterations,
	}
	if len(sol.V) > 0 {
		m.StartValue = sol.V[0]
	}

	for s := 0; s < len(sol.Policy)-1; s++ {
		if sol.Policy[s] == 1 {
			m.Threshold = s
			m.ThresholdFound = true
			break
		}
	}

	return m
}

// SweepBuilder accumulates variants as they are solved
type SweepBuilder struct {
	sweep SweepResults
}

// NewSweepBuilder creates a builder for a sweep over the named parameter
func NewSweepBuilder(parameter, objective string) *SweepBuilder {
	return &SweepBuilder{
		sweep: SweepResults{
			Version:   SchemaVersion,
			RunID:     uuid.NewString(),
			Parameter: parameter,
			Objective: objective,
		},
	}
}

// AddVariant records one solved parameter combination
func (b *SweepBuilder) AddVariant(params map[string]float64, sol *solver.Solution, score float64) *SweepBuilder {
	copied := make(map[string]float64, len(params))
	for k, v := range params {
		copied[k] = v
	}

	b.sweep.Variants = append(b.sweep.Variants, VariantResult{
		ID:         len(b.sweep.Variants),
		Parameters: copied,
		Metrics:    ExtractMetrics(sol),
		Score:      score,
	})
	return b
}

// Build ranks the variants and returns the completed sweep
func (b *SweepBuilder) Build() *SweepResults {
	RankVariants(b.sweep.Variants)

	n := len(b.sweep.Variants)
	b.sweep.Summary.TotalVariants = n
	if n > 0 {
		b.sweep.Best = &b.sweep.Variants[0]
		b.sweep.Worst = &b.sweep.Variants[n-1]
		b.sweep.Summary.BestScore = b.sweep.Best.Score
		b.sweep.Summary.WorstScore = b.sweep.Worst.Score
		b.sweep.Summary.ScoreRange = b.sweep.Best.Score - b.sweep.Worst.Score
	}

	b.sweep.Recommended = GenerateRecommendations(&b.sweep)
	return &b.sweep
}

// RankVariants sorts variants by score and assigns ranks
func RankVariants(variants []VariantResult) {
	// Sort by score (descending - higher is better)
	sort.Slice(variants, func(i, j int) bool {
		return variants[i].Score > variants[j].Score
	})

	// Assign ranks
	for i := range variants {
		variants[i].Rank = i + 1
	}
}

// GenerateRecommendations creates human-readable recommendations
func GenerateRecommendations(sweep *SweepResults) map[string]string {
	rec := make(map[string]string)

	if sweep.Best == nil || sweep.Worst == nil {
		return rec
	}

	// Compare best to worst
	for param, bestVal := range sweep.Best.Parameters {
		worstVal := sweep.Worst.Parameters[param]
		if bestVal == worstVal || worstVal == 0 {
			continue
		}
		diff := bestVal - worstVal
		pct := (diff / worstVal) * 100

		var direction string
		if bestVal > worstVal {
			direction = "increase"
		} else {
			direction = "decrease"
		}

		rec[param] = fmt.Sprintf("%s by %.1f%% (%g to %g)",
			direction, math.Abs(pct), worstVal, bestVal)
	}

	// Add score comparison
	bestScore := sweep.Best.Score
	worstScore := sweep.Worst.Score
	if worstScore != 0 {
		improvement := ((bestScore - worstScore) / math.Abs(worstScore)) * 100
		rec["improvement"] = fmt.Sprintf("%.1f%% better score (%.3f to %.3f)",
			improvement, worstScore, bestScore)
	}

	return rec
}
