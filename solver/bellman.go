// Package solver implements value iteration for finite Markov decision
// processes. Starting from a zero value function it applies Bellman optimality
// backups until the value change falls below a discount-aware tolerance,
// producing the optimal value function and a greedy policy.
package solver

import (
	"fmt"
	"math"

	"github.com/ecotner/pydata-mdp/mdp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Problem couples a validated model with a discount factor.
type Problem struct {
	Model    *mdp.Model
	Discount float64
}

// NewProblem creates a value iteration problem. The model is validated and
// the discount must lie in (0, 1]; a discount of exactly 1 is accepted for
// models whose reward is collected on entering an absorbing state.
func NewProblem(model *mdp.Model, discount float64) (*Problem, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", mdp.ErrInvalidModel)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(discount) || discount <= 0 || discount > 1 {
		return nil, fmt.Errorf("%w: discount = %v, want 0 < discount <= 1", mdp.ErrInvalidParameter, discount)
	}
	return &Problem{Model: model, Discount: discount}, nil
}

// Solution holds the result of a value iteration run.
type Solution struct {
	V          []float64  // optimal value per state
	Policy     []int      // greedy action index per state, ties to the lower index
	Q          *mat.Dense // action values from the final backup, numStates x numActions
	Iterations int        // Bellman sweeps performed
	Converged  bool       // false when the iteration cap stopped the run
	Residual   float64    // max |V_k(s) - V_{k-1}(s)| on the final sweep
	Span       float64    // max - min of the final sweep's value change
	Reason     string     // human-readable stopping reason
	Method     string     // sweep method name
	Discount   float64
	Labels     []string // state labels carried over from the model
}

// Value returns the computed value of state s.
func (s *Solution) Value(state int) float64 {
	return s.V[state]
}

// Action returns the policy's action for state s.
func (s *Solution) Action(state int) mdp.Action {
	return mdp.Action(s.Policy[state])
}

// QValue returns the final action value Q(s, a).
func (s *Solution) QValue(state int, a mdp.Action) float64 {
	return s.Q.At(state, int(a))
}

// Options contains solver configuration parameters.
type Options struct {
	Epsilon  float64 // convergence tolerance on the value change
	MaxIters int     // sweep cap; 0 returns the zero value function unconverged
	Verbose  bool    // print per-sweep progress
}

// DefaultOptions returns default solver options.
// The tolerance matches the published dice blackjack analysis.
func DefaultOptions() *Options {
	return &Options{
		Epsilon:  1e-3,
		MaxIters: 10000,
	}
}

// FastOptions returns options optimized for speed over accuracy.
// Use these for interactive exploration or when solving many models,
// e.g. inside parameter sweeps.
func FastOptions() *Options {
	return &Options{
		Epsilon:  1e-2,
		MaxIters: 500,
	}
}

// AccurateOptions returns options for high-precision solves.
// Use these when publishing numbers or comparing methods.
func AccurateOptions() *Options {
	return &Options{
		Epsilon:  1e-9,
		MaxIters: 1000000,
	}
}

// validate checks option ranges. MaxIters of exactly 0 is legal and means
// "report the initial guess".
func (o *Options) validate() error {
	if math.IsNaN(o.Epsilon) || o.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon = %v, want > 0", mdp.ErrInvalidParameter, o.Epsilon)
	}
	if o.MaxIters < 0 {
		return fmt.Errorf("%w: maxIters = %d, want >= 0", mdp.ErrInvalidParameter, o.MaxIters)
	}
	return nil
}

// Solve runs value iteration on the problem using the given sweep method and
// options. A nil method selects Standard() and nil options DefaultOptions().
//
// Each sweep computes Q(s,a) = R(s,a) + discount * T[a](s,:) . V and takes the
// max (value) and argmax (policy, ties to the lower action index). Iteration
// stops when the value change is small enough: for discount < 1 when the span
// of the change is at most epsilon*(1-discount)/discount, which bounds the
// distance to the optimal values; for discount == 1 when the largest absolute
// change is at most epsilon. Hitting MaxIters is reported through
// Solution.Converged, not as an error.
//
// Solve is deterministic: the same problem, method and options produce
// bit-identical values and policy.
func Solve(prob *Problem, method *Method, opts *Options) (*Solution, error) {
	if method == nil {
		method = Standard()
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	n := prob.Model.NumStates()
	k := prob.Model.NumActions()

	v := make([]float64, n)
	vNext := make([]float64, n)
	q := mat.NewDense(n, k, nil)
	policy := make([]int, n)

	threshold := opts.Epsilon
	if prob.Discount < 1 {
		threshold = opts.Epsilon * (1 - prob.Discount) / prob.Discount
	}

	sol := &Solution{
		Method:   method.Name,
		Discount: prob.Discount,
		Labels:   prob.Model.Labels,
	}

	for sol.Iterations < opts.MaxIters {
		method.sweep(prob, v, vNext, q, policy)
		sol.Iterations++

		sol.Residual, sol.Span = changeStats(v, vNext)
		v, vNext = vNext, v

		if opts.Verbose {
			fmt.Printf("Iter %d: residual = %.3e, span = %.3e\n", sol.Iterations, sol.Residual, sol.Span)
		}

		if prob.Discount < 1 {
			if sol.Span <= threshold {
				sol.Converged = true
				sol.Reason = fmt.Sprintf("span %.3e <= %.3e after %d sweeps", sol.Span, threshold, sol.Iterations)
				break
			}
		} else if sol.Residual <= threshold {
			sol.Converged = true
			sol.Reason = fmt.Sprintf("max change %.3e <= %.3e after %d sweeps", sol.Residual, threshold, sol.Iterations)
			break
		}
	}

	if opts.MaxIters == 0 {
		// Report the initial guess: zero values, action values equal to the
		// immediate rewards, and the myopic greedy policy.
		method.sweep(prob, v, vNext, q, policy)
		sol.Reason = "no sweeps requested"
	} else if !sol.Converged {
		sol.Reason = fmt.Sprintf("max iterations (%d) reached", opts.MaxIters)
	}

	sol.V = v
	sol.Policy = policy
	sol.Q = q
	return sol, nil
}

// changeStats returns the sup-norm and span of next - prev.
func changeStats(prev, next []float64) (residual, span float64) {
	maxd := math.Inf(-1)
	mind := math.Inf(1)
	for i := range prev {
		d := next[i] - prev[i]
		if d > maxd {
			maxd = d
		}
		if d < mind {
			mind = d
		}
		if a := math.Abs(d); a > residual {
			residual = a
		}
	}
	return residual, maxd - mind
}

// backup computes the action values for one state from the value estimate v
// and returns the greedy value and action, breaking ties toward the lower
// action index.
func backup(prob *Problem, s int, v []float64, qRow []float64) (best float64, bestAction int) {
	m := prob.Model
	for a := 0; a < m.NumActions(); a++ {
		q := m.Rewards.At(s, a) + prob.Discount*floats.Dot(m.Transitions[a].RawRowView(s), v)
		qRow[a] = q
		if a == 0 || q > best {
			best = q
			bestAction = a
		}
	}
	return best, bestAction
}
