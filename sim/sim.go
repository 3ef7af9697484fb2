// Package sim runs seeded Monte Carlo playouts of a model under a fixed
// policy. Playouts cross-check the exact distributions from the chain
// package and estimate returns for policies too awkward to evaluate in
// closed form.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/ecotner/pydata-mdp/mdp"

	"gonum.org/v1/gonum/stat"
)

// DefaultMaxSteps caps a single playout so a policy that never reaches an
// absorbing state cannot loop forever.
const DefaultMaxSteps = 10000

// Episode is one playout from a start state to absorption (or the step cap).
type Episode struct {
	States    []int   // visited states, beginning with the start state
	Actions   []int   // action taken at each state except the last
	Return    float64 // discounted sum of rewards collected
	Steps     int     // number of transitions taken
	Truncated bool    // true when the step cap ended the playout
}

// Final returns the last state of the episode.
func (ep *Episode) Final() int {
	return ep.States[len(ep.States)-1]
}

// Runner simulates a model under a fixed policy with a seeded generator, so
// runs are reproducible.
type Runner struct {
	model    *mdp.Model
	policy   []int
	discount float64
	seed     int64
	rng      *rand.Rand
	maxSteps int
}

// NewRunner creates a runner for the given model and policy. The discount
// applies to collected rewards exactly as in the solver.
func NewRunner(model *mdp.Model, policy []int, discount float64) (*Runner, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: model is nil", mdp.ErrInvalidModel)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if err := model.ValidatePolicy(policy); err != nil {
		return nil, err
	}
	if math.IsNaN(discount) || discount <= 0 || discount > 1 {
		return nil, fmt.Errorf("%w: discount must be in (0, 1], got %v",
			mdp.ErrInvalidParameter, discount)
	}
	r := &Runner{
		model:    model,
		policy:   append([]int(nil), policy...),
		discount: discount,
		maxSteps: DefaultMaxSteps,
	}
	return r.WithSeed(1), nil
}

// WithSeed reseeds the generator. Runs with the same seed replay exactly.
func (r *Runner) WithSeed(seed int64) *Runner {
	r.seed = seed
	r.rng = rand.New(rand.NewSource(seed))
	return r
}

// WithMaxSteps sets the per-episode step cap.
func (r *Runner) WithMaxSteps(n int) *Runner {
	r.maxSteps = n
	return r
}

// sampleRow draws a successor state from one transition row.
func sampleRow(rng *rand.Rand, row []float64) int {
	u := rng.Float64()
	acc := 0.0
	for s, p := range row {
		acc += p
		if u < acc {
			return s
		}
	}
	// Rounding can leave the cumulative sum a hair under 1. Fall back to
	// the last state with any mass.
	for s := len(row) - 1; s >= 0; s-- {
		if row[s] > 0 {
			return s
		}
	}
	return len(row) - 1
}

// play runs a single episode with the given generator.
func (r *Runner) play(rng *rand.Rand, start int) *Episode {
	ep := &Episode{States: []int{start}}
	s := start
	gamma := 1.0
	for !r.model.IsAbsorbing(s) {
		if ep.Steps >= r.maxSteps {
			ep.Truncated = true
			break
		}
		a := r.policy[s]
		next := sampleRow(rng, r.model.Transitions[a].RawRowView(s))
		ep.Return += gamma * r.model.Reward(s, mdp.Action(a))
		gamma *= r.discount
		ep.Actions = append(ep.Actions, a)
		ep.States = append(ep.States, next)
		ep.Steps++
		s = next
	}
	return ep
}

// Play simulates one episode from the given start state.
func (r *Runner) Play(start int) (*Episode, error) {
	if start < 0 || start >= r.model.NumStates() {
		return nil, fmt.Errorf("%w: start state %d out of range [0, %d)",
			mdp.ErrInvalidParameter, start, r.model.NumStates())
	}
	return r.play(r.rng, start), nil
}

// Batch holds the episodes of one simulation run.
type Batch struct {
	Episodes  []*Episode
	Start     int
	Seed      int64
	numStates int
}

// Run simulates n episodes from the start state.
func (r *Runner) Run(start, n int) (*Batch, error) {
	return r.RunContext(context.Background(), start, n)
}

// RunContext simulates n episodes, checking for cancellation between
// episodes.
func (r *Runner) RunContext(ctx context.Context, start, n int) (*Batch, error) {
	if start < 0 || start >= r.model.NumStates() {
		return nil, fmt.Errorf("%w: start state %d out of range [0, %d)",
			mdp.ErrInvalidParameter, start, r.model.NumStates())
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: episode count %d is negative",
			mdp.ErrInvalidParameter, n)
	}
	batch := &Batch{
		Episodes:  make([]*Episode, n),
		Start:     start,
		Seed:      r.seed,
		numStates: r.model.NumStates(),
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch.Episodes[i] = r.play(r.rng, start)
	}
	return batch, nil
}

// RunParallel simulates n episodes across the given number of workers. Each
// worker draws from its own generator seeded from the runner's seed, and
// episodes are assigned to workers by index, so results are reproducible
// regardless of scheduling.
func (r *Runner) RunParallel(start, n, workers int) (*Batch, error) {
	if start < 0 || start >= r.model.NumStates() {
		return nil, fmt.Errorf("%w: start state %d out of range [0, %d)",
			mdp.ErrInvalidParameter, start, r.model.NumStates())
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: episode count %d is negative",
			mdp.ErrInvalidParameter, n)
	}
	if workers < 1 {
		workers = 1
	}
	batch := &Batch{
		Episodes:  make([]*Episode, n),
		Start:     start,
		Seed:      r.seed,
		numStates: r.model.NumStates(),
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(r.seed + int64(w)))
			for i := w; i < n; i += workers {
				batch.Episodes[i] = r.play(rng, start)
			}
		}(w)
	}
	wg.Wait()
	return batch, nil
}

// Returns collects the return of every episode.
func (b *Batch) Returns() []float64 {
	out := make([]float64, len(b.Episodes))
	for i, ep := range b.Episodes {
		out[i] = ep.Return
	}
	return out
}

// MeanReturn is the sample mean of episode returns.
func (b *Batch) MeanReturn() float64 {
	return stat.Mean(b.Returns(), nil)
}

// StdReturn is the sample standard deviation of episode returns.
func (b *Batch) StdReturn() float64 {
	return stat.StdDev(b.Returns(), nil)
}

// MeanSteps is the average number of transitions per episode.
func (b *Batch) MeanSteps() float64 {
	if len(b.Episodes) == 0 {
		return 0
	}
	total := 0.0
	for _, ep := range b.Episodes {
		total += float64(ep.Steps)
	}
	return total / float64(len(b.Episodes))
}

// EmpiricalAt returns the empirical state distribution at time t. Episodes
// that ended before t count at their final state, matching the self-loop of
// an absorbing state.
func (b *Batch) EmpiricalAt(t int) []float64 {
	dist := make([]float64, b.numStates)
	if len(b.Episodes) == 0 {
		return dist
	}
	for _, ep := range b.Episodes {
		s := ep.Final()
		if t < len(ep.States) {
			s = ep.States[t]
		}
		dist[s]++
	}
	for s := range dist {
		dist[s] /= float64(len(b.Episodes))
	}
	return dist
}

// FinalDist returns the empirical distribution over final states.
func (b *Batch) FinalDist() []float64 {
	dist := make([]float64, b.numStates)
	if len(b.Episodes) == 0 {
		return dist
	}
	for _, ep := range b.Episodes {
		dist[ep.Final()]++
	}
	for s := range dist {
		dist[s] /= float64(len(b.Episodes))
	}
	return dist
}

// TotalVariation computes the total variation distance between two
// distributions over the same states: half the sum of absolute differences.
func TotalVariation(p, q []float64) float64 {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		var pi, qi float64
		if i < len(p) {
			pi = p[i]
		}
		if i < len(q) {
			qi = q[i]
		}
		sum += math.Abs(pi - qi)
	}
	return sum / 2
}

// Condition is a predicate on a finished episode.
type Condition func(ep *Episode) bool

// Count returns how many episodes satisfy the condition.
func (b *Batch) Count(cond Condition) int {
	count := 0
	for _, ep := range b.Episodes {
		if cond(ep) {
			count++
		}
	}
	return count
}

// Rate returns the fraction of episodes satisfying the condition.
func (b *Batch) Rate(cond Condition) float64 {
	if len(b.Episodes) == 0 {
		return 0
	}
	return float64(b.Count(cond)) / float64(len(b.Episodes))
}

// Banked matches episodes whose last action was a deliberate stop.
func Banked() Condition {
	return func(ep *Episode) bool {
		if len(ep.Actions) == 0 {
			return false
		}
		return ep.Actions[len(ep.Actions)-1] == int(mdp.Stop)
	}
}

// ReachedState matches episodes that visited the given state.
func ReachedState(s int) Condition {
	return func(ep *Episode) bool {
		for _, visited := range ep.States {
			if visited == s {
				return true
			}
		}
		return false
	}
}

// ReturnAbove matches episodes whose return exceeds the threshold.
func ReturnAbove(threshold float64) Condition {
	return func(ep *Episode) bool {
		return ep.Return > threshold
	}
}

// AllOf matches episodes satisfying every given condition.
func AllOf(conditions ...Condition) Condition {
	return func(ep *Episode) bool {
		for _, c := range conditions {
			if !c(ep) {
				return false
			}
		}
		return true
	}
}

// AnyOf matches episodes satisfying at least one given condition.
func AnyOf(conditions ...Condition) Condition {
	return func(ep *Episode) bool {
		for _, c := range conditions {
			if c(ep) {
				return true
			}
		}
		return false
	}
}
