// Package dice builds the finite MDP for a push-your-luck dice accumulation
// game. The player repeatedly rolls an n-sided die, adding each roll to a
// running score. Exceeding the target busts and forfeits everything; stopping
// banks the current score. States are the scores 0..maxScore plus one
// absorbing terminal state reached by stopping or busting.
package dice

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ecotner/pydata-mdp/mdp"
)

// Game describes one parameterization of the dice accumulation game.
type Game struct {
	NSides   int // faces on the die, outcomes 1..NSides equally likely
	MaxScore int // largest bankable score; rolling past it busts
}

// NewGame creates a game descriptor, validating its parameters.
func NewGame(nSides, maxScore int) (*Game, error) {
	if nSides < 1 {
		return nil, fmt.Errorf("%w: nSides = %d, want >= 1", mdp.ErrInvalidParameter, nSides)
	}
	if maxScore < 1 {
		return nil, fmt.Errorf("%w: maxScore = %d, want >= 1", mdp.ErrInvalidParameter, maxScore)
	}
	return &Game{NSides: nSides, MaxScore: maxScore}, nil
}

// NumStates returns the size of the state space: scores 0..MaxScore plus the
// terminal state.
func (g *Game) NumStates() int {
	return g.MaxScore + 2
}

// Terminal returns the index of the absorbing terminal state.
func (g *Game) Terminal() int {
	return g.MaxScore + 1
}

// BustProb returns the probability that one more roll from score s busts.
// The in-range outcomes are s+1..min(s+NSides, MaxScore); the remaining mass
// busts. Clamped at zero so float rounding can never produce a negative
// probability.
func (g *Game) BustProb(s int) float64 {
	if s < 0 || s > g.MaxScore {
		return 0
	}
	inRange := g.MaxScore - s
	if inRange > g.NSides {
		inRange = g.NSides
	}
	return math.Max(0, 1-float64(inRange)/float64(g.NSides))
}

// Labels returns display labels for every state: the score for score states
// and "busted" for the terminal state.
func (g *Game) Labels() []string {
	labels := make([]string, g.NumStates())
	for s := 0; s <= g.MaxScore; s++ {
		labels[s] = strconv.Itoa(s)
	}
	labels[g.Terminal()] = "busted"
	return labels
}

// Build constructs the game's MDP.
//
// Continue from score s spreads probability 1/NSides over the reachable
// scores s+1..s+NSides that do not exceed MaxScore, with the residual mass
// going to the terminal state. Stop moves to the terminal state with
// probability 1 and pays the banked score s. The terminal state self-loops
// under both actions and pays nothing.
func (g *Game) Build() (*mdp.Model, error) {
	b := mdp.NewBuilder(g.NumStates(), 2)

	p := 1.0 / float64(g.NSides)
	for s := 0; s <= g.MaxScore; s++ {
		for roll := 1; roll <= g.NSides; roll++ {
			if s+roll <= g.MaxScore {
				b.Prob(mdp.Continue, s, s+roll, p)
			}
		}
		b.Prob(mdp.Continue, s, g.Terminal(), g.BustProb(s))
		b.Prob(mdp.Stop, s, g.Terminal(), 1)
		b.Reward(s, mdp.Stop, float64(s))
		b.Label(s, strconv.Itoa(s))
	}
	b.SelfLoop(mdp.Continue, g.Terminal())
	b.SelfLoop(mdp.Stop, g.Terminal())
	b.Label(g.Terminal(), "busted")

	return b.Done()
}

// BuildModel builds the MDP for an nSides die and maxScore target in one call.
func BuildModel(nSides, maxScore int) (*mdp.Model, error) {
	g, err := NewGame(nSides, maxScore)
	if err != nil {
		return nil, err
	}
	return g.Build()
}
