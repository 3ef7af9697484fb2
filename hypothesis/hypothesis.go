// Package hypothesis provides utilities for evaluating candidate policies
// exactly. This is the core pattern for answering "what if the player banked
// earlier" questions: propose a family of policies, evaluate each one's value
// function, and compare against the optimum.
package hypothesis

import (
	"math"
	"sync"

	"github.com/ecotner/pydata-mdp/solver"
	"gonum.org/v1/gonum/floats"

	"github.com/ecotner/pydata-mdp/mdp"
)

// Scorer reduces a policy's value function to a single score.
// Higher scores are considered better.
type Scorer func(eval *solver.Evaluation) float64

// ValueAt returns a scorer that reads the value of one start state.
// Scoring state 0 gives the expected banked score of a fresh game.
func ValueAt(s int) Scorer {
	return func(eval *solver.Evaluation) float64 {
		return eval.V[s]
	}
}

// ExpectedValue returns a scorer that weights state values by a start
// distribution.
func ExpectedValue(dist []float64) Scorer {
	return func(eval *solver.Evaluation) float64 {
		return floats.Dot(dist, eval.V)
	}
}

// MeanValue returns a scorer that averages the value over all states.
func MeanValue() Scorer {
	return func(eval *solver.Evaluation) float64 {
		return floats.Sum(eval.V) / float64(len(eval.V))
	}
}

// Evaluator evaluates candidate policies against one problem.
type Evaluator struct {
	prob   *solver.Problem
	opts   *solver.Options
	scorer Scorer
}

// NewEvaluator creates a policy evaluator. A nil scorer scores the value of
// state 0.
//
// Example:
//
//	eval := hypothesis.NewEvaluator(prob, nil)
//	best, score, err := eval.FindBest(hypothesis.ThresholdFamily(n))
func NewEvaluator(prob *solver.Problem, scorer Scorer) *Evaluator {
	if scorer == nil {
		scorer = ValueAt(0)
	}
	return &Evaluator{
		prob:   prob,
		opts:   solver.DefaultOptions(),
		scorer: scorer,
	}
}

// WithOptions sets custom evaluation options.
func (e *Evaluator) WithOptions(opts *solver.Options) *Evaluator {
	e.opts = opts
	return e
}

// Evaluate computes the policy's value function and scores it.
func (e *Evaluator) Evaluate(policy []int) (float64, error) {
	eval, err := solver.EvaluatePolicy(e.prob, policy, e.opts)
	if err != nil {
		return 0, err
	}
	return e.scorer(eval), nil
}

// Result holds the result of evaluating a single candidate policy.
type Result struct {
	Index      int
	Score      float64
	Policy     []int
	Evaluation *solver.Evaluation
}

// EvaluateMany evaluates all candidate policies in order.
func (e *Evaluator) EvaluateMany(policies [][]int) ([]Result, error) {
	results := make([]Result, len(policies))
	for i, p := range policies {
		eval, err := solver.EvaluatePolicy(e.prob, p, e.opts)
		if err != nil {
			return nil, err
		}
		results[i] = Result{Index: i, Score: e.scorer(eval), Policy: p, Evaluation: eval}
	}
	return results, nil
}

// EvaluateManyParallel evaluates candidate policies concurrently. Policy
// evaluation only reads the problem, so candidates are independent.
func (e *Evaluator) EvaluateManyParallel(policies [][]int) ([]Result, error) {
	results := make([]Result, len(policies))
	errs := make([]error, len(policies))
	var wg sync.WaitGroup

	for i, p := range policies {
		wg.Add(1)
		go func(idx int, policy []int) {
			defer wg.Done()
			eval, err := solver.EvaluatePolicy(e.prob, policy, e.opts)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx] = Result{Index: idx, Score: e.scorer(eval), Policy: policy, Evaluation: eval}
		}(i, p)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// FindBest evaluates all candidates and returns the index and score of the
// best one. With no candidates it returns (-1, -Inf).
func (e *Evaluator) FindBest(policies [][]int) (bestIndex int, bestScore float64, err error) {
	bestIndex = -1
	bestScore = math.Inf(-1)

	for i, p := range policies {
		score, err := e.Evaluate(p)
		if err != nil {
			return -1, math.Inf(-1), err
		}
		if score > bestScore {
			bestIndex = i
			bestScore = score
		}
	}
	return bestIndex, bestScore, nil
}

// FindBestParallel evaluates all candidates concurrently and returns the
// index and score of the best one.
func (e *Evaluator) FindBestParallel(policies [][]int) (bestIndex int, bestScore float64, err error) {
	if len(policies) == 0 {
		return -1, math.Inf(-1), nil
	}

	results, err := e.EvaluateManyParallel(policies)
	if err != nil {
		return -1, math.Inf(-1), err
	}

	bestIndex = -1
	bestScore = math.Inf(-1)
	for _, r := range results {
		if r.Score > bestScore {
			bestIndex = r.Index
			bestScore = r.Score
		}
	}
	return bestIndex, bestScore, nil
}

// Compare evaluates two policies and returns which is better.
// Returns 1 if policy A is better, -1 if policy B is better, 0 if equal.
func (e *Evaluator) Compare(policyA, policyB []int) (int, error) {
	scoreA, err := e.Evaluate(policyA)
	if err != nil {
		return 0, err
	}
	scoreB, err := e.Evaluate(policyB)
	if err != nil {
		return 0, err
	}

	if scoreA > scoreB {
		return 1, nil
	} else if scoreB > scoreA {
		return -1, nil
	}
	return 0, nil
}

// StopAt returns the threshold policy over numStates states that keeps
// rolling below score k and banks at k and above. StopAt(n, 0) always banks;
// StopAt(n, n) never does.
func StopAt(numStates, k int) []int {
	policy := make([]int, numStates)
	for s := range policy {
		if s >= k {
			policy[s] = int(mdp.Stop)
		} else {
			policy[s] = int(mdp.Continue)
		}
	}
	return policy
}

// ThresholdFamily returns every threshold policy from always-bank to
// never-bank. Candidate index k is StopAt(numStates, k).
func ThresholdFamily(numStates int) [][]int {
	family := make([][]int, numStates+1)
	for k := 0; k <= numStates; k++ {
		family[k] = StopAt(numStates, k)
	}
	return family
}

// BestThreshold sweeps the full threshold family and returns the banking
// threshold with the best score. For the dice game this recovers the optimal
// policy's switch point without running value iteration.
func (e *Evaluator) BestThreshold() (k int, score float64, err error) {
	n := e.prob.Model.NumStates()
	return e.FindBest(ThresholdFamily(n))
}
