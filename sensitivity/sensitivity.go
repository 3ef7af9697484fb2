// Package sensitivity provides tools for analyzing how the optimal game
// strategy changes with different parameters. This includes die-size and
// target sweeps, discount gradients, and grid search over parameter
// combinations.
package sensitivity

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ecotner/pydata-mdp/dice"
	"github.com/ecotner/pydata-mdp/mdp"
	"github.com/ecotner/pydata-mdp/solver"
)

// Params is one parameterization of the game and its solve.
type Params struct {
	NSides   int
	MaxScore int
	Discount float64
}

// String formats the parameters compactly, e.g. "d20/max21/g1".
func (p Params) String() string {
	return fmt.Sprintf("d%d/max%d/g%g", p.NSides, p.MaxScore, p.Discount)
}

// Scorer evaluates a solved game and returns a score.
type Scorer func(sol *solver.Solution) float64

// StartValueScorer creates a Scorer that returns the optimal value of a
// fresh game (score 0).
func StartValueScorer() Scorer {
	return func(sol *solver.Solution) float64 {
		return sol.V[0]
	}
}

// SwitchPointScorer creates a Scorer that returns the banking threshold: the
// lowest score at which the optimal policy stops. Returns the state count
// when the policy never stops.
func SwitchPointScorer() Scorer {
	return func(sol *solver.Solution) float64 {
		for s, a := range sol.Policy {
			if a == int(mdp.Stop) {
				return float64(s)
			}
		}
		return float64(len(sol.Policy))
	}
}

// IterationsScorer creates a Scorer that returns the number of sweeps the
// solver needed, for studying convergence cost.
func IterationsScorer() Scorer {
	return func(sol *solver.Solution) float64 {
		return float64(sol.Iterations)
	}
}

// Result holds the result of a sensitivity analysis.
type Result struct {
	Baseline float64            // Score with original parameters
	Scores   map[string]float64 // Score when each parameter is stepped
	Impact   map[string]float64 // Change from baseline (Score - Baseline)
	Ranking  []RankedParam      // Parameters sorted by absolute impact
}

// RankedParam represents a parameter and its impact.
type RankedParam struct {
	Name   string
	Impact float64
}

// Analyzer performs sensitivity analysis around a base parameterization.
type Analyzer struct {
	base   Params
	method *solver.Method
	opts   *solver.Options
	scorer Scorer
}

// NewAnalyzer creates a new sensitivity analyzer. A nil scorer uses the
// start-state value.
func NewAnalyzer(base Params, scorer Scorer) *Analyzer {
	if scorer == nil {
		scorer = StartValueScorer()
	}
	return &Analyzer{
		base:   base,
		opts:   solver.DefaultOptions(),
		scorer: scorer,
	}
}

// WithOptions sets the solver options.
func (a *Analyzer) WithOptions(opts *solver.Options) *Analyzer {
	a.opts = opts
	return a
}

// WithMethod sets the sweep method used for each solve.
func (a *Analyzer) WithMethod(m *solver.Method) *Analyzer {
	a.method = m
	return a
}

// solve builds and solves the game at the given parameters and scores it.
func (a *Analyzer) solve(p Params) (float64, error) {
	model, err := dice.BuildModel(p.NSides, p.MaxScore)
	if err != nil {
		return 0, err
	}
	prob, err := solver.NewProblem(model, p.Discount)
	if err != nil {
		return 0, err
	}
	sol, err := solver.Solve(prob, a.method, a.opts)
	if err != nil {
		return 0, err
	}
	return a.scorer(sol), nil
}

// Analyze measures the impact of a unit step in each parameter: one more die
// face, one more point of target, and a tenth off the discount (floored at
// 0.05 to stay in range).
func (a *Analyzer) Analyze() (*Result, error) {
	result := &Result{
		Scores: make(map[string]float64),
		Impact: make(map[string]float64),
	}

	baseline, err := a.solve(a.base)
	if err != nil {
		return nil, err
	}
	result.Baseline = baseline

	steps := map[string]Params{
		"nSides":   {a.base.NSides + 1, a.base.MaxScore, a.base.Discount},
		"maxScore": {a.base.NSides, a.base.MaxScore + 1, a.base.Discount},
		"discount": {a.base.NSides, a.base.MaxScore, math.Max(a.base.Discount-0.1, 0.05)},
	}
	for name, p := range steps {
		score, err := a.solve(p)
		if err != nil {
			return nil, err
		}
		result.Scores[name] = score
		result.Impact[name] = score - baseline
	}

	result.Ranking = rankByImpact(result.Impact)
	return result, nil
}

// rankByImpact sorts parameters by absolute impact (descending), breaking
// ties by name for reproducible output.
func rankByImpact(impact map[string]float64) []RankedParam {
	ranking := make([]RankedParam, 0, len(impact))
	for name, imp := range impact {
		ranking = append(ranking, RankedParam{Name: name, Impact: imp})
	}
	sort.Slice(ranking, func(i, j int) bool {
		ai, aj := math.Abs(ranking[i].Impact), math.Abs(ranking[j].Impact)
		if ai != aj {
			return ai > aj
		}
		return ranking[i].Name < ranking[j].Name
	})
	return ranking
}

// SweepResult holds results from a single-parameter sweep.
type SweepResult struct {
	Parameter string
	Values    []float64
	Scores    []float64
	Best      struct {
		Value float64
		Score float64
	}
	Worst struct {
		Value float64
		Score float64
	}
}

// sweep evaluates the score at each parameterization.
func (a *Analyzer) sweep(parameter string, values []float64, at func(v float64) Params) (*SweepResult, error) {
	result := &SweepResult{
		Parameter: parameter,
		Values:    values,
		Scores:    make([]float64, len(values)),
	}

	bestScore := math.Inf(-1)
	worstScore := math.Inf(1)

	for i, val := range values {
		score, err := a.solve(at(val))
		if err != nil {
			return nil, err
		}
		result.Scores[i] = score

		if score > bestScore {
			bestScore = score
			result.Best.Value = val
			result.Best.Score = score
		}
		if score < worstScore {
			worstScore = score
			result.Worst.Value = val
			result.Worst.Score = score
		}
	}
	return result, nil
}

// SweepNSides tests a set of die sizes with the base target and discount.
func (a *Analyzer) SweepNSides(values []int) (*SweepResult, error) {
	return a.sweep("nSides", intsToFloats(values), func(v float64) Params {
		return Params{int(v), a.base.MaxScore, a.base.Discount}
	})
}

// SweepMaxScore tests a set of targets with the base die and discount.
func (a *Analyzer) SweepMaxScore(values []int) (*SweepResult, error) {
	return a.sweep("maxScore", intsToFloats(values), func(v float64) Params {
		return Params{a.base.NSides, int(v), a.base.Discount}
	})
}

// SweepDiscount tests a set of discount factors with the base game.
func (a *Analyzer) SweepDiscount(values []float64) (*SweepResult, error) {
	return a.sweep("discount", values, func(v float64) Params {
		return Params{a.base.NSides, a.base.MaxScore, v}
	})
}

// SweepDiscountRange tests evenly spaced discounts in [min, max].
func (a *Analyzer) SweepDiscountRange(min, max float64, steps int) (*SweepResult, error) {
	values := make([]float64, steps)
	for i := 0; i < steps; i++ {
		values[i] = min + (max-min)*float64(i)/float64(steps-1)
	}
	return a.SweepDiscount(values)
}

// SweepNSidesRange tests every die size from min to max inclusive.
func (a *Analyzer) SweepNSidesRange(min, max int) (*SweepResult, error) {
	values := make([]int, 0, max-min+1)
	for v := min; v <= max; v++ {
		values = append(values, v)
	}
	return a.SweepNSides(values)
}

// SweepParallel scores an arbitrary set of parameterizations concurrently.
// Each solve is independent, so order of completion does not matter; results
// align with the input slice.
func (a *Analyzer) SweepParallel(params []Params) ([]float64, error) {
	scores := make([]float64, len(params))
	errs := make([]error, len(params))
	var wg sync.WaitGroup

	for i, p := range params {
		wg.Add(1)
		go func(idx int, p Params) {
			defer wg.Done()
			scores[idx], errs[idx] = a.solve(p)
		}(i, p)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return scores, nil
}

// Gradient estimates the derivative of the score with respect to the
// discount using a central difference, keeping both probe points in (0, 1].
func (a *Analyzer) Gradient(h float64) (float64, error) {
	if h <= 0 {
		h = 0.01
	}
	d := a.base.Discount

	hi := math.Min(d+h, 1)
	lo := math.Max(d-h, 1e-6)

	scoreHi, err := a.solve(Params{a.base.NSides, a.base.MaxScore, hi})
	if err != nil {
		return 0, err
	}
	scoreLo, err := a.solve(Params{a.base.NSides, a.base.MaxScore, lo})
	if err != nil {
		return 0, err
	}
	return (scoreHi - scoreLo) / (hi - lo), nil
}

func intsToFloats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

// GridSearch finds good parameter combinations by exhaustive search.
type GridSearch struct {
	analyzer  *Analyzer
	nSides    []int
	maxScores []int
	discounts []float64
}

// NewGridSearch creates a grid search using the given analyzer. Axes left
// unset stay at the analyzer's base value.
func NewGridSearch(analyzer *Analyzer) *GridSearch {
	return &GridSearch{analyzer: analyzer}
}

// AddNSides sets the die sizes to try.
func (g *GridSearch) AddNSides(values ...int) *GridSearch {
	g.nSides = values
	return g
}

// AddMaxScores sets the targets to try.
func (g *GridSearch) AddMaxScores(values ...int) *GridSearch {
	g.maxScores = values
	return g
}

// AddDiscounts sets the discount factors to try.
func (g *GridSearch) AddDiscounts(values ...float64) *GridSearch {
	g.discounts = values
	return g
}

// GridResult holds grid search results.
type GridResult struct {
	Combinations []Params
	Scores       []float64
	Best         struct {
		Params Params
		Score  float64
		Index  int
	}
}

// Run evaluates every combination and returns the results.
func (g *GridSearch) Run() (*GridResult, error) {
	combos := g.combinations()
	result := &GridResult{
		Combinations: combos,
		Scores:       make([]float64, len(combos)),
	}
	result.Best.Index = -1
	result.Best.Score = math.Inf(-1)

	for i, p := range combos {
		score, err := g.analyzer.solve(p)
		if err != nil {
			return nil, fmt.Errorf("grid point %s: %w", p, err)
		}
		result.Scores[i] = score
		if score > result.Best.Score {
			result.Best.Params = p
			result.Best.Score = score
			result.Best.Index = i
		}
	}
	return result, nil
}

// combinations enumerates the cartesian product of the configured axes, with
// the discount varying fastest.
func (g *GridSearch) combinations() []Params {
	nSides := g.nSides
	if len(nSides) == 0 {
		nSides = []int{g.analyzer.base.NSides}
	}
	maxScores := g.maxScores
	if len(maxScores) == 0 {
		maxScores = []int{g.analyzer.base.MaxScore}
	}
	discounts := g.discounts
	if len(discounts) == 0 {
		discounts = []float64{g.analyzer.base.Discount}
	}

	total := len(nSides) * len(maxScores) * len(discounts)
	combos := make([]Params, 0, total)
	for _, n := range nSides {
		for _, m := range maxScores {
			for _, d := range discounts {
				combos = append(combos, Params{n, m, d})
			}
		}
	}
	return combos
}
