package chain

// Absorption summarizes how probability mass drains into absorbing states
// over the course of a trajectory.
type Absorption struct {
	// Absorbing lists the state indices counted as absorbed.
	Absorbing []int
	// Mass[t] is the probability of having been absorbed by time t.
	Mass []float64
	// Survival[t] is the probability of still being transient at time t.
	Survival []float64
	// ExpectedSteps is the expected number of steps until absorption,
	// computed from the survival series. When Complete is false the tail
	// past the trajectory horizon is missing and this is an underestimate.
	ExpectedSteps float64
	// Complete reports whether essentially all mass was absorbed within the
	// trajectory horizon.
	Complete bool
	// Remaining is the transient mass left at the final time step.
	Remaining float64
}

// completeTol is the transient mass below which absorption counts as finished.
const completeTol = 1e-9

// Absorption computes the absorption summary of the trajectory with respect
// to the given absorbing states. Passing no states uses nothing and yields
// zero absorbed mass; callers normally pass Chain.Absorbing() or the model's
// terminal index.
func (tr *Trajectory) Absorption(absorbing ...int) *Absorption {
	steps := tr.TMax() + 1
	a := &Absorption{
		Absorbing: absorbing,
		Mass:      make([]float64, steps),
		Survival:  make([]float64, steps),
	}

	for t := 0; t < steps; t++ {
		mass := 0.0
		for _, s := range absorbing {
			mass += tr.Rho.At(t, s)
		}
		a.Mass[t] = mass
		a.Survival[t] = 1 - mass
	}

	// E[T] = sum over t >= 0 of P(T > t), truncated at the horizon.
	for _, surv := range a.Survival {
		a.ExpectedSteps += surv
	}

	a.Remaining = a.Survival[steps-1]
	a.Complete = a.Remaining <= completeTol
	return a
}
