package mdp

import "fmt"

// Builder provides a fluent API for constructing models entry by entry.
// Unset transition probabilities default to 0 and unset rewards to 0, so a
// builder chain only names the nonzero structure of the process.
//
// Example:
//
//	model, err := mdp.NewBuilder(3, 2).
//	    Prob(mdp.Continue, 0, 1, 0.5).
//	    Prob(mdp.Continue, 0, 2, 0.5).
//	    SelfLoop(mdp.Continue, 1).
//	    SelfLoop(mdp.Continue, 2).
//	    Row(mdp.Stop, 0, 0, 0, 1).
//	    SelfLoop(mdp.Stop, 1).
//	    SelfLoop(mdp.Stop, 2).
//	    Reward(0, mdp.Stop, 1).
//	    Done()
type Builder struct {
	model *Model
	n     int
	k     int
	err   error
}

// NewBuilder creates a Builder for a model with numStates states and
// numActions actions, all probabilities and rewards zeroed.
func NewBuilder(numStates, numActions int) *Builder {
	b := &Builder{n: numStates, k: numActions}
	if numStates < 1 || numActions < 1 {
		b.err = fmt.Errorf("%w: model needs at least 1 state and 1 action, got %d states %d actions",
			ErrInvalidParameter, numStates, numActions)
		return b
	}
	b.model = newZeroModel(numStates, numActions)
	return b
}

// Prob sets the transition probability P(next = sp | state = s, action = a).
func (b *Builder) Prob(a Action, s, sp int, p float64) *Builder {
	if !b.checkState(s) || !b.checkState(sp) || !b.checkAction(a) {
		return b
	}
	b.model.Transitions[a].Set(s, sp, p)
	return b
}

// Row sets an entire transition row for (action, state) at once.
// len(probs) must equal the state count.
func (b *Builder) Row(a Action, s int, probs ...float64) *Builder {
	if !b.checkState(s) || !b.checkAction(a) {
		return b
	}
	if len(probs) != b.n {
		b.fail(fmt.Errorf("%w: row for state %d has %d entries, want %d", ErrInvalidModel, s, len(probs), b.n))
		return b
	}
	for sp, p := range probs {
		b.model.Transitions[a].Set(s, sp, p)
	}
	return b
}

// SelfLoop makes state s absorbing under action a: probability 1 of staying.
func (b *Builder) SelfLoop(a Action, s int) *Builder {
	return b.Prob(a, s, s, 1)
}

// Reward sets the immediate reward for taking action a in state s.
func (b *Builder) Reward(s int, a Action, r float64) *Builder {
	if !b.checkState(s) || !b.checkAction(a) {
		return b
	}
	b.model.Rewards.Set(s, int(a), r)
	return b
}

// Label names state s for display and plotting.
func (b *Builder) Label(s int, name string) *Builder {
	if !b.checkState(s) {
		return b
	}
	if b.model.Labels == nil {
		b.model.Labels = make([]string, b.n)
		for i := range b.model.Labels {
			b.model.Labels[i] = fmt.Sprintf("%d", i)
		}
	}
	b.model.Labels[s] = name
	return b
}

// Done validates and returns the constructed model.
// The first error recorded during the chain, if any, is returned instead.
func (b *Builder) Done() (*Model, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.model.Validate(); err != nil {
		return nil, err
	}
	return b.model, nil
}

func (b *Builder) checkState(s int) bool {
	if b.err != nil {
		return false
	}
	if s < 0 || s >= b.n {
		b.fail(fmt.Errorf("%w: state %d out of range 0..%d", ErrInvalidModel, s, b.n-1))
		return false
	}
	return true
}

func (b *Builder) checkAction(a Action) bool {
	if b.err != nil {
		return false
	}
	if int(a) < 0 || int(a) >= b.k {
		b.fail(fmt.Errorf("%w: action %d out of range 0..%d", ErrInvalidModel, int(a), b.k-1))
		return false
	}
	return true
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
