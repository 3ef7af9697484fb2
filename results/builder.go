package results

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecotner/pydata-mdp/chain"
	"github.com/ecotner/pydata-mdp/dice"
	"github.com/ecotner/pydata-mdp/solver"
)

// Builder helps construct Results from solver output
type Builder struct {
	results Results
}

// NewBuilder creates a new results builder
func NewBuilder() *Builder {
	return &Builder{
		results: Results{
			Version: SchemaVersion,
			RunID:   uuid.NewString(),
			Metadata: Metadata{
				Timestamp: time.Now(),
			},
		},
	}
}

// WithGame sets game information
func (b *Builder) WithGame(game *dice.Game, name string) *Builder {
	b.results.Game = Game{
		Name:     name,
		NSides:   game.NSides,
		MaxScore: game.MaxScore,
		States:   game.NumStates(),
		Labels:   game.Labels(),
	}
	return b
}

// WithSolve sets solve parameters
func (b *Builder) WithSolve(discount float64, opts *solver.Options) *Builder {
	b.results.Solve = Solve{
		Discount: discount,
	}

	if opts != nil {
		b.results.Solve.Options = &SolverOptions{
			Epsilon:  opts.Epsilon,
			MaxIters: opts.MaxIters,
		}
	}

	return b
}

// WithSolution processes solver output
func (b *Builder) WithSolution(sol *solver.Solution, computeTime float64) *Builder {
	b.results.Metadata.Solver = sol.Method
	b.results.Metadata.Status = "success"
	b.results.Metadata.ComputeTime = computeTime

	b.results.Results.Summary = Summary{
		Iterations: sol.Iterations,
		Converged:  sol.Converged,
		Residual:   sol.Residual,
		Reason:     sol.Reason,
		StartValue: sol.V[0],
	}
	b.results.Results.Values = append([]float64(nil), sol.V...)
	b.results.Results.Policy = append([]int(nil), sol.Policy...)

	return b
}

// WithTrajectory records the propagated state distributions for one start
// state, one row per step.
func (b *Builder) WithTrajectory(tr *chain.Trajectory) *Builder {
	b.results.Results.Start = tr.Start

	rho := make([][]float64, tr.TMax()+1)
	for t := range rho {
		rho[t] = append([]float64(nil), tr.At(t)...)
	}
	b.results.Results.Rho = rho

	return b
}

// WithError sets error status
func (b *Builder) WithError(err error) *Builder {
	b.results.Metadata.Status = "error"
	b.results.Metadata.Error = err.Error()
	return b
}

// Build returns the constructed Results
func (b *Builder) Build() *Results {
	return &b.results
}
