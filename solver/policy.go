package solver

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Evaluation holds the value function of a fixed stationary policy.
type Evaluation struct {
	// V is the policy's value per state.
	V []float64
	// Policy is the evaluated policy, copied from the input.
	Policy []int
	// Iterations is the number of evaluation sweeps performed.
	Iterations int
	// Converged reports whether the stopping tolerance was met before the
	// iteration cap.
	Converged bool
	// Residual is the largest absolute value change on the final sweep.
	Residual float64
	// Span is max - min of the final sweep's value change.
	Span float64
	// Reason describes why iteration stopped.
	Reason string
}

// EvaluatePolicy computes the value function of a fixed policy by iterating
// V(s) = R(s, pi(s)) + discount * T[pi(s)](s,:) . V from zero. It uses the
// same stopping rule as Solve, so evaluating the optimal policy reproduces
// the solved values. The policy must map every state to an in-range action.
func EvaluatePolicy(prob *Problem, policy []int, opts *Options) (*Evaluation, error) {
	if err := prob.Model.ValidatePolicy(policy); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	m := prob.Model
	n := m.NumStates()
	v := make([]float64, n)
	vNext := make([]float64, n)

	threshold := opts.Epsilon
	if prob.Discount < 1 {
		threshold = opts.Epsilon * (1 - prob.Discount) / prob.Discount
	}

	eval := &Evaluation{Policy: append([]int(nil), policy...)}

	for eval.Iterations < opts.MaxIters {
		for s := 0; s < n; s++ {
			a := policy[s]
			vNext[s] = m.Rewards.At(s, a) + prob.Discount*floats.Dot(m.Transitions[a].RawRowView(s), v)
		}
		eval.Iterations++

		eval.Residual, eval.Span = changeStats(v, vNext)
		v, vNext = vNext, v

		if opts.Verbose {
			fmt.Printf("Iter %d: residual = %.3e, span = %.3e\n", eval.Iterations, eval.Residual, eval.Span)
		}

		if prob.Discount < 1 {
			if eval.Span <= threshold {
				eval.Converged = true
				eval.Reason = fmt.Sprintf("span %.3e <= %.3e after %d sweeps", eval.Span, threshold, eval.Iterations)
				break
			}
		} else if eval.Residual <= threshold {
			eval.Converged = true
			eval.Reason = fmt.Sprintf("max change %.3e <= %.3e after %d sweeps", eval.Residual, threshold, eval.Iterations)
			break
		}
	}

	if opts.MaxIters == 0 {
		eval.Reason = "no sweeps requested"
	} else if !eval.Converged {
		eval.Reason = fmt.Sprintf("max iterations (%d) reached", opts.MaxIters)
	}

	eval.V = v
	return eval, nil
}
