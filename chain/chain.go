// Package chain reduces a model under a fixed policy to a Markov chain and
// propagates state distributions through it. Where the solver answers "what
// should the player do", this package answers "what actually happens when
// they do it": the distribution over scores after t rolls, how fast mass
// drains into the absorbing terminal state, and how long episodes last.
package chain

import (
	"fmt"
	"math"

	"github.com/ecotner/pydata-mdp/mdp"
	"gonum.org/v1/gonum/mat"
)

// Chain is a finite Markov chain obtained by fixing one action per state.
type Chain struct {
	// P is the row-stochastic transition matrix under the policy:
	// P.At(s, sp) = T[policy[s]](s, sp).
	P *mat.Dense
	// Policy is the fixed policy the chain was reduced with.
	Policy []int
	// Labels carries the model's state labels, if any.
	Labels []string
}

// Reduce builds the fixed-policy chain P(s, s') = T[policy[s]](s, s').
// The policy must map every state to an in-range action index.
func Reduce(model *mdp.Model, policy []int) (*Chain, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", mdp.ErrInvalidModel)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if err := model.ValidatePolicy(policy); err != nil {
		return nil, err
	}

	n := model.NumStates()
	p := mat.NewDense(n, n, nil)
	for s := 0; s < n; s++ {
		p.SetRow(s, model.Transitions[policy[s]].RawRowView(s))
	}
	return &Chain{
		P:      p,
		Policy: append([]int(nil), policy...),
		Labels: model.Labels,
	}, nil
}

// NumStates returns the number of states in the chain.
func (c *Chain) NumStates() int {
	r, _ := c.P.Dims()
	return r
}

// Absorbing returns the states that self-loop with probability 1 under the
// policy.
func (c *Chain) Absorbing() []int {
	var out []int
	for s := 0; s < c.NumStates(); s++ {
		if c.P.At(s, s) >= 1-mdp.RowSumTol {
			out = append(out, s)
		}
	}
	return out
}

// Step applies one transition to a distribution:
// out(s) = sum over s' of P(s', s) * dist(s').
func (c *Chain) Step(dist []float64) []float64 {
	n := c.NumStates()
	out := make([]float64, n)
	for sp := 0; sp < n; sp++ {
		d := dist[sp]
		if d == 0 {
			continue
		}
		row := c.P.RawRowView(sp)
		for s := 0; s < n; s++ {
			out[s] += d * row[s]
		}
	}
	return out
}

// Trajectory is the time series of distributions from a single start state.
type Trajectory struct {
	// Start is the initial state.
	Start int
	// Rho is (tMax+1) x numStates; row t is the distribution after t steps.
	// Row 0 is the indicator of Start.
	Rho *mat.Dense
	// Labels carries the chain's state labels, if any.
	Labels []string
}

// PropagateFrom computes the distribution time series from one start state
// for t = 0..tMax.
func (c *Chain) PropagateFrom(start, tMax int) (*Trajectory, error) {
	n := c.NumStates()
	if start < 0 || start >= n {
		return nil, fmt.Errorf("%w: start state %d out of range 0..%d", mdp.ErrInvalidParameter, start, n-1)
	}
	if tMax < 0 {
		return nil, fmt.Errorf("%w: tMax = %d, want >= 0", mdp.ErrInvalidParameter, tMax)
	}

	rho := mat.NewDense(tMax+1, n, nil)
	rho.Set(0, start, 1)

	cur := make([]float64, n)
	cur[start] = 1
	for t := 1; t <= tMax; t++ {
		cur = c.Step(cur)
		rho.SetRow(t, cur)
	}
	return &Trajectory{Start: start, Rho: rho, Labels: c.Labels}, nil
}

// TMax returns the largest time index in the trajectory.
func (tr *Trajectory) TMax() int {
	r, _ := tr.Rho.Dims()
	return r - 1
}

// At returns the distribution after t steps. The returned slice is a view
// into the trajectory and must not be modified.
func (tr *Trajectory) At(t int) []float64 {
	return tr.Rho.RawRowView(t)
}

// Final returns the distribution at the last time step.
func (tr *Trajectory) Final() []float64 {
	return tr.At(tr.TMax())
}

// Series returns the time series of probability mass on one state.
func (tr *Trajectory) Series(s int) []float64 {
	r, _ := tr.Rho.Dims()
	out := make([]float64, r)
	for t := 0; t < r; t++ {
		out[t] = tr.Rho.At(t, s)
	}
	return out
}

// MassError returns the largest deviation of any time step's total
// probability mass from 1. Propagation through a stochastic matrix conserves
// mass, so this stays within a few ulps of zero.
func (tr *Trajectory) MassError() float64 {
	r, n := tr.Rho.Dims()
	worst := 0.0
	for t := 0; t < r; t++ {
		sum := 0.0
		for s := 0; s < n; s++ {
			sum += tr.Rho.At(t, s)
		}
		if d := math.Abs(sum - 1); d > worst {
			worst = d
		}
	}
	return worst
}

// Propagation is the full time series of distributions for every start state:
// one row-stochastic matrix per time step, Steps[t] = P^t.
type Propagation struct {
	// Steps[t].At(s0, s) is the probability of being in s after t steps when
	// starting from s0. Steps[0] is the identity.
	Steps []*mat.Dense
	// Labels carries the chain's state labels, if any.
	Labels []string
}

// Propagate computes the distribution time series for every start state at
// once, for t = 0..tMax.
func (c *Chain) Propagate(tMax int) (*Propagation, error) {
	if tMax < 0 {
		return nil, fmt.Errorf("%w: tMax = %d, want >= 0", mdp.ErrInvalidParameter, tMax)
	}
	n := c.NumStates()

	steps := make([]*mat.Dense, tMax+1)
	eye := mat.NewDense(n, n, nil)
	for s := 0; s < n; s++ {
		eye.Set(s, s, 1)
	}
	steps[0] = eye
	for t := 1; t <= tMax; t++ {
		m := mat.NewDense(n, n, nil)
		m.Mul(steps[t-1], c.P)
		steps[t] = m
	}
	return &Propagation{Steps: steps, Labels: c.Labels}, nil
}

// Propagate reduces the model under the policy and propagates every start
// state's distribution for t = 0..tMax in one call.
func Propagate(model *mdp.Model, policy []int, tMax int) (*Propagation, error) {
	c, err := Reduce(model, policy)
	if err != nil {
		return nil, err
	}
	return c.Propagate(tMax)
}

// TMax returns the largest time index in the propagation.
func (p *Propagation) TMax() int {
	return len(p.Steps) - 1
}

// Prob returns rho(s0, s, t): the probability of being in state s after t
// steps starting from s0.
func (p *Propagation) Prob(s0, s, t int) float64 {
	return p.Steps[t].At(s0, s)
}

// Dist returns a copy of the distribution after t steps from start state s0.
func (p *Propagation) Dist(s0, t int) []float64 {
	_, n := p.Steps[t].Dims()
	out := make([]float64, n)
	copy(out, p.Steps[t].RawRowView(s0))
	return out
}

// Trajectory extracts the single-start time series for s0.
func (p *Propagation) Trajectory(s0 int) *Trajectory {
	_, n := p.Steps[0].Dims()
	rho := mat.NewDense(len(p.Steps), n, nil)
	for t := range p.Steps {
		rho.SetRow(t, p.Steps[t].RawRowView(s0))
	}
	return &Trajectory{Start: s0, Rho: rho, Labels: p.Labels}
}
