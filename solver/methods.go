package solver

// This file contains the available Bellman sweep methods.
// The default method (Standard) is the one quoted in published analyses.

import "gonum.org/v1/gonum/mat"

// Method represents a value iteration sweep scheme. A sweep reads the value
// estimate v, writes the updated values into vNext, and records the action
// values and greedy policy it derived along the way.
type Method struct {
	Name        string
	Description string
	sweep       func(prob *Problem, v, vNext []float64, q *mat.Dense, policy []int)
}

// Standard returns the synchronous (Jacobi) sweep: every backup in a sweep
// reads the previous iterate, so states can be processed in any order with
// identical results. This is classic value iteration.
//
// Reference: R. Bellman, "Dynamic Programming", Princeton University
// Press, 1957; M.L. Puterman, "Markov Decision Processes", Wiley, 2005,
// section 6.3.
func Standard() *Method {
	return &Method{
		Name:        "standard",
		Description: "synchronous sweeps reading the previous iterate",
		sweep: func(prob *Problem, v, vNext []float64, q *mat.Dense, policy []int) {
			for s := 0; s < prob.Model.NumStates(); s++ {
				best, bestAction := backup(prob, s, v, q.RawRowView(s))
				vNext[s] = best
				policy[s] = bestAction
			}
		},
	}
}

// GaussSeidel returns the in-place sweep: each backup immediately sees the
// values already updated earlier in the same sweep. It converges to the same
// fixed point as Standard, usually in fewer sweeps, at the cost of making the
// iterates depend on state order.
//
// Reference: M.L. Puterman, "Markov Decision Processes", Wiley, 2005,
// section 6.3.3.
func GaussSeidel() *Method {
	return &Method{
		Name:        "gauss-seidel",
		Description: "in-place sweeps using values updated earlier in the sweep",
		sweep: func(prob *Problem, v, vNext []float64, q *mat.Dense, policy []int) {
			copy(vNext, v)
			for s := 0; s < prob.Model.NumStates(); s++ {
				best, bestAction := backup(prob, s, vNext, q.RawRowView(s))
				vNext[s] = best
				policy[s] = bestAction
			}
		},
	}
}
