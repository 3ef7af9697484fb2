package results

import (
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// absorbedTol decides when the propagated mass has fully drained into the
// terminal state.
const absorbedTol = 1e-9

// Analyzer computes insights from solve results
type Analyzer struct {
	results *Results
}

// NewAnalyzer creates an analyzer for results
func NewAnalyzer(r *Results) *Analyzer {
	return &Analyzer{results: r}
}

// ComputeAll runs all analysis functions
func (a *Analyzer) ComputeAll() *Analysis {
	analysis := &Analysis{}

	analysis.SwitchPoint = a.findSwitchPoint()
	analysis.ValueStats = a.computeValueStats()

	if len(a.results.Results.Rho) > 0 {
		analysis.Absorption = a.summarizeAbsorption()
		analysis.Outcomes = a.collectOutcomes()
	}

	return analysis
}

// findSwitchPoint locates the lowest score at which the policy banks.
// Scores at or above the threshold stop; scores below keep rolling.
func (a *Analyzer) findSwitchPoint() *SwitchPoint {
	policy := a.results.Results.Policy
	if len(policy) == 0 {
		return nil
	}

	sp := &SwitchPoint{Threshold: -1}

	// The terminal state is excluded: its actions are all equivalent.
	for s := 0; s < len(policy)-1; s++ {
		if policy[s] == 1 {
			sp.StopStates++
			if !sp.Found {
				sp.Threshold = s
				sp.Found = true
			}
		} else {
			sp.ContinueStates++
		}
	}

	return sp
}

// computeValueStats summarizes the value function over non-terminal states.
func (a *Analyzer) computeValueStats() *Stat {
	values := a.results.Results.Values
	if len(values) < 2 {
		return nil
	}

	data := append([]float64(nil), values[:len(values)-1]...)
	sort.Float64s(data)

	return &Stat{
		Min:    data[0],
		Max:    data[len(data)-1],
		Mean:   stat.Mean(data, nil),
		Median: stat.Quantile(0.5, stat.Empirical, data, nil),
		Std:    stat.StdDev(data, nil),
	}
}

// summarizeAbsorption measures how quickly play ends, treating the last
// state index as the terminal sink.
func (a *Analyzer) summarizeAbsorption() *AbsorptionSummary {
	rho := a.results.Results.Rho
	terminal := len(rho[0]) - 1

	sum := &AbsorptionSummary{Horizon: len(rho) - 1}
	for _, dist := range rho {
		survival := floats.Sum(dist) - dist[terminal]
		sum.ExpectedSteps += survival
	}

	final := rho[len(rho)-1]
	sum.FinalMass = final[terminal]
	sum.Complete = floats.Sum(final)-final[terminal] <= absorbedTol

	return sum
}

// collectOutcomes estimates how games end: the probability of banking each
// stopping score, plus the leftover probability of busting. Occupancy sums
// equal visit probabilities because the score never revisits a state, and
// the split is exact once absorption is complete.
func (a *Analyzer) collectOutcomes() map[string]float64 {
	rho := a.results.Results.Rho
	policy := a.results.Results.Policy
	if len(policy) == 0 {
		return nil
	}
	terminal := len(policy) - 1

	outcomes := make(map[string]float64)
	banked := 0.0
	for s := 0; s < terminal; s++ {
		if policy[s] != 1 {
			continue
		}
		visits := 0.0
		for _, dist := range rho {
			visits += dist[s]
		}
		if visits > 0 {
			outcomes[a.label(s)] = visits
			banked += visits
		}
	}

	if bust := 1 - banked; bust > 0 {
		outcomes[a.label(terminal)] = bust
	}
	return outcomes
}

func (a *Analyzer) label(s int) string {
	labels := a.results.Game.Labels
	if s < len(labels) && labels[s] != "" {
		return labels[s]
	}
	return strconv.Itoa(s)
}
