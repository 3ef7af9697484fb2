// Package mdp implements core finite Markov decision process data structures.
// A finite MDP is described by a transition tensor T[a][s][s'] (one
// row-stochastic matrix per action), and a deterministic reward matrix R[s][a].
// Models are built once and treated as read-only by solvers and analyzers.
package mdp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Action indexes the per-action transition matrices of a model.
type Action int

// The two actions of an accumulation game. Continue risks another step,
// Stop banks the current score. Continue deliberately has the lower index:
// argmax ties in the solver resolve toward it.
const (
	Continue Action = 0
	Stop     Action = 1
)

// String returns a display name for the action.
func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// RowSumTol is the tolerance used when checking that transition rows sum to 1.
const RowSumTol = 1e-9

// Model is a finite MDP with dense transition and reward storage.
type Model struct {
	// Transitions holds one numStates x numStates row-stochastic matrix per
	// action: Transitions[a].At(s, sp) is P(next = sp | state = s, action = a).
	Transitions []*mat.Dense

	// Rewards is numStates x numActions: Rewards.At(s, a) is the immediate
	// deterministic reward for taking action a in state s.
	Rewards *mat.Dense

	// Labels optionally names states for display and plotting. Nil means
	// states are labeled by index.
	Labels []string
}

// newZeroModel allocates an all-zero model of the given size. Rows do not sum
// to 1 yet, so the result fails Validate until filled in.
func newZeroModel(numStates, numActions int) *Model {
	t := make([]*mat.Dense, numActions)
	for a := range t {
		t[a] = mat.NewDense(numStates, numStates, nil)
	}
	return &Model{
		Transitions: t,
		Rewards:     mat.NewDense(numStates, numActions, nil),
	}
}

// NewModel creates a model from per-action transition matrices and a reward
// matrix, validating shapes and stochasticity.
func NewModel(transitions []*mat.Dense, rewards *mat.Dense) (*Model, error) {
	m := &Model{Transitions: transitions, Rewards: rewards}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// NumStates returns the number of states in the model.
func (m *Model) NumStates() int {
	if len(m.Transitions) == 0 {
		return 0
	}
	r, _ := m.Transitions[0].Dims()
	return r
}

// NumActions returns the number of actions in the model.
func (m *Model) NumActions() int {
	return len(m.Transitions)
}

// Prob returns the transition probability P(next = sp | state = s, action = a).
func (m *Model) Prob(a Action, s, sp int) float64 {
	return m.Transitions[a].At(s, sp)
}

// Reward returns the immediate reward for taking action a in state s.
func (m *Model) Reward(s int, a Action) float64 {
	return m.Rewards.At(s, int(a))
}

// Label returns the display label for state s, falling back to the index.
func (m *Model) Label(s int) string {
	if s >= 0 && s < len(m.Labels) {
		return m.Labels[s]
	}
	return fmt.Sprintf("%d", s)
}

// Validate checks that the model is well formed: at least one action and one
// state, square transition matrices of equal size, a matching reward shape,
// probabilities in [0,1], and every row summing to 1 within RowSumTol.
// All failures wrap ErrInvalidModel.
func (m *Model) Validate() error {
	if len(m.Transitions) == 0 {
		return fmt.Errorf("%w: no actions", ErrInvalidModel)
	}
	n, c := m.Transitions[0].Dims()
	if n != c {
		return fmt.Errorf("%w: transition matrix for action 0 is %dx%d, want square", ErrInvalidModel, n, c)
	}
	if n == 0 {
		return fmt.Errorf("%w: no states", ErrInvalidModel)
	}
	for a, t := range m.Transitions {
		r, c := t.Dims()
		if r != n || c != n {
			return fmt.Errorf("%w: transition matrix for action %d is %dx%d, want %dx%d", ErrInvalidModel, a, r, c, n, n)
		}
		for s := 0; s < n; s++ {
			sum := 0.0
			for sp := 0; sp < n; sp++ {
				p := t.At(s, sp)
				if p < -RowSumTol || p > 1+RowSumTol || math.IsNaN(p) {
					return fmt.Errorf("%w: T[%d][%d][%d] = %v is not a probability", ErrInvalidModel, a, s, sp, p)
				}
				sum += p
			}
			if math.Abs(sum-1) > RowSumTol {
				return fmt.Errorf("%w: row %d of action %d sums to %v, want 1", ErrInvalidModel, s, a, sum)
			}
		}
	}
	if m.Rewards == nil {
		return fmt.Errorf("%w: nil reward matrix", ErrInvalidModel)
	}
	rr, rc := m.Rewards.Dims()
	if rr != n || rc != len(m.Transitions) {
		return fmt.Errorf("%w: reward matrix is %dx%d, want %dx%d", ErrInvalidModel, rr, rc, n, len(m.Transitions))
	}
	if m.Labels != nil && len(m.Labels) != n {
		return fmt.Errorf("%w: %d labels for %d states", ErrInvalidModel, len(m.Labels), n)
	}
	return nil
}

// ValidatePolicy checks that policy has one in-range action index per state.
// Failures wrap ErrInvalidPolicy.
func (m *Model) ValidatePolicy(policy []int) error {
	if len(policy) != m.NumStates() {
		return fmt.Errorf("%w: %d entries for %d states", ErrInvalidPolicy, len(policy), m.NumStates())
	}
	for s, a := range policy {
		if a < 0 || a >= m.NumActions() {
			return fmt.Errorf("%w: state %d maps to action %d, want 0..%d", ErrInvalidPolicy, s, a, m.NumActions()-1)
		}
	}
	return nil
}

// IsAbsorbing reports whether state s self-loops with probability 1 under
// every action.
func (m *Model) IsAbsorbing(s int) bool {
	for _, t := range m.Transitions {
		if math.Abs(t.At(s, s)-1) > RowSumTol {
			return false
		}
	}
	return true
}

// Absorbing returns the indices of all absorbing states.
func (m *Model) Absorbing() []int {
	var out []int
	for s := 0; s < m.NumStates(); s++ {
		if m.IsAbsorbing(s) {
			out = append(out, s)
		}
	}
	return out
}
