package validation

import (
	"fmt"
	"math"

	"github.com/ecotner/pydata-mdp/mdp"
)

// checkShapes verifies matrix dimensions agree with the declared state and
// action counts.
func (v *Validator) checkShapes() {
	m := v.model

	if m.NumActions() == 0 {
		v.AddError("shape", "Model has no actions", nil, "Provide at least one transition matrix")
		return
	}
	n, c := m.Transitions[0].Dims()
	if n != c {
		v.AddError("shape", fmt.Sprintf("Transition matrix for action 0 is %dx%d, not square", n, c),
			[]string{"action 0"}, "Transition matrices must be numStates x numStates")
		return
	}
	if n == 0 {
		v.AddError("shape", "Model has no states", nil, "Provide at least one state")
		return
	}

	for a, tm := range m.Transitions {
		r, c := tm.Dims()
		if r != n || c != n {
			v.AddError("shape", fmt.Sprintf("Transition matrix for action %d is %dx%d, want %dx%d", a, r, c, n, n),
				[]string{fmt.Sprintf("action %d", a)}, "All actions must share one state space")
		}
	}

	if m.Rewards == nil {
		v.AddError("shape", "Model has no reward matrix", nil, "Provide a numStates x numActions reward matrix")
		return
	}
	rr, rc := m.Rewards.Dims()
	if rr != n || rc != m.NumActions() {
		v.AddError("shape", fmt.Sprintf("Reward matrix is %dx%d, want %dx%d", rr, rc, n, m.NumActions()),
			nil, "Rewards must be numStates x numActions")
	}

	if m.Labels != nil && len(m.Labels) != n {
		v.AddWarning("shape", fmt.Sprintf("%d labels for %d states", len(m.Labels), n),
			nil, "Label every state or none")
	}
}

// checkRows verifies every transition row is a probability distribution.
func (v *Validator) checkRows() {
	m := v.model
	n := m.NumStates()

	for a, tm := range m.Transitions {
		for s := 0; s < n; s++ {
			sum := 0.0
			for sp := 0; sp < n; sp++ {
				p := tm.At(s, sp)
				if math.IsNaN(p) || p < -mdp.RowSumTol || p > 1+mdp.RowSumTol {
					v.AddError("stochasticity",
						fmt.Sprintf("T[%d][%d][%d] = %v is not a probability", a, s, sp, p),
						[]string{fmt.Sprintf("action %d", a), fmt.Sprintf("state %d", s)},
						"Probabilities must lie in [0,1]")
				}
				sum += p
			}
			if math.Abs(sum-1) > mdp.RowSumTol {
				v.AddError("stochasticity",
					fmt.Sprintf("Row %d of action %d sums to %v", s, a, sum),
					[]string{fmt.Sprintf("action %d", a), fmt.Sprintf("state %d", s)},
					"Renormalize the row so it sums to 1")
			}
		}
	}
}

// checkAbsorption looks for absorbing states. Without one, undiscounted value
// iteration has nothing to drain probability into and may never converge.
func (v *Validator) checkAbsorption() {
	m := v.model
	absorbing := m.Absorbing()
	v.result.Summary.Absorbing = len(absorbing)
	v.result.Summary.Solvable = len(absorbing) > 0

	if len(absorbing) == 0 {
		v.AddWarning("absorption", "Model has no absorbing state",
			nil, "Use discount < 1 or add an absorbing terminal state")
		return
	}

	labels := make([]string, len(absorbing))
	for i, s := range absorbing {
		labels[i] = m.Label(s)
	}
	v.AddInfo("absorption", fmt.Sprintf("Found %d absorbing state(s)", len(absorbing)), labels)

	// Nonzero reward at an absorbing state accrues forever at discount 1.
	for _, s := range absorbing {
		for a := 0; a < m.NumActions(); a++ {
			if m.Rewards.At(s, a) != 0 {
				v.AddWarning("absorption",
					fmt.Sprintf("Absorbing state %s pays reward %v under action %d", m.Label(s), m.Rewards.At(s, a), a),
					[]string{m.Label(s)},
					"Undiscounted values diverge when absorbing states pay; zero the reward or discount")
			}
		}
	}
}

// checkRewards reports the reward range.
func (v *Validator) checkRewards() {
	m := v.model
	n := m.NumStates()

	minR, maxR := math.Inf(1), math.Inf(-1)
	for s := 0; s < n; s++ {
		for a := 0; a < m.NumActions(); a++ {
			r := m.Rewards.At(s, a)
			minR = math.Min(minR, r)
			maxR = math.Max(maxR, r)
		}
	}

	if minR == 0 && maxR == 0 {
		v.AddWarning("reward", "All rewards are zero",
			nil, "The value function will be identically zero")
		return
	}
	v.AddInfo("reward", fmt.Sprintf("Rewards range over [%v, %v]", minR, maxR), nil)
}

// checkReachability reports states no other state can reach. They are only
// visited as start states, which is normal for a score-accumulation game's
// zero score but worth surfacing.
func (v *Validator) checkReachability() {
	m := v.model
	n := m.NumStates()

	var startOnly []string
	for s := 0; s < n; s++ {
		incoming := false
		for a := 0; a < m.NumActions() && !incoming; a++ {
			for sp := 0; sp < n; sp++ {
				if sp != s && m.Transitions[a].At(sp, s) > 0 {
					incoming = true
					break
				}
			}
		}
		if !incoming {
			startOnly = append(startOnly, m.Label(s))
		}
	}
	if len(startOnly) > 0 {
		v.AddInfo("reachability",
			fmt.Sprintf("%d state(s) have no incoming transitions and occur only as starts", len(startOnly)),
			startOnly)
	}
}
