package mdp

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// twoStateChain builds a valid 2-state, 2-action model by hand:
// action 0 moves 0->1 and self-loops at 1, action 1 self-loops everywhere.
func twoStateChain() (*Model, error) {
	t0 := mat.NewDense(2, 2, []float64{0, 1, 0, 1})
	t1 := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	r := mat.NewDense(2, 2, []float64{0, 5, 0, 0})
	return NewModel([]*mat.Dense{t0, t1}, r)
}

func TestNewModel(t *testing.T) {
	m, err := twoStateChain()
	if err != nil {
		t.Fatalf("Expected valid model, got error: %v", err)
	}
	if m.NumStates() != 2 {
		t.Errorf("Expected 2 states, got %d", m.NumStates())
	}
	if m.NumActions() != 2 {
		t.Errorf("Expected 2 actions, got %d", m.NumActions())
	}
	if m.Prob(Continue, 0, 1) != 1.0 {
		t.Errorf("Expected P(1|0,continue)=1, got %f", m.Prob(Continue, 0, 1))
	}
	if m.Reward(0, Stop) != 5.0 {
		t.Errorf("Expected R(0,stop)=5, got %f", m.Reward(0, Stop))
	}
}

func TestNewModelRejectsNonStochasticRow(t *testing.T) {
	t0 := mat.NewDense(2, 2, []float64{0.5, 0.4, 0, 1}) // row 0 sums to 0.9
	r := mat.NewDense(2, 1, nil)

	_, err := NewModel([]*mat.Dense{t0}, r)
	if err == nil {
		t.Fatal("Expected error for non-stochastic row, got nil")
	}
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("Expected ErrInvalidModel, got %v", err)
	}
}

func TestNewModelRejectsNegativeProbability(t *testing.T) {
	t0 := mat.NewDense(2, 2, []float64{1.5, -0.5, 0, 1})
	r := mat.NewDense(2, 1, nil)

	_, err := NewModel([]*mat.Dense{t0}, r)
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("Expected ErrInvalidModel for negative probability, got %v", err)
	}
}

func TestNewModelRejectsShapeMismatch(t *testing.T) {
	t0 := mat.NewDense(2, 2, []float64{0, 1, 0, 1})
	r := mat.NewDense(3, 1, nil) // wrong row count

	_, err := NewModel([]*mat.Dense{t0}, r)
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("Expected ErrInvalidModel for reward shape, got %v", err)
	}

	// Mismatched transition matrix sizes
	ta := mat.NewDense(2, 2, []float64{0, 1, 0, 1})
	tb := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	_, err = NewModel([]*mat.Dense{ta, tb}, mat.NewDense(2, 2, nil))
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("Expected ErrInvalidModel for size mismatch, got %v", err)
	}
}

func TestValidatePolicy(t *testing.T) {
	m, _ := twoStateChain()

	if err := m.ValidatePolicy([]int{0, 1}); err != nil {
		t.Errorf("Expected valid policy, got error: %v", err)
	}

	err := m.ValidatePolicy([]int{0, 2})
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("Expected ErrInvalidPolicy for out-of-range action, got %v", err)
	}

	err = m.ValidatePolicy([]int{0})
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("Expected ErrInvalidPolicy for short policy, got %v", err)
	}
}

func TestAbsorbing(t *testing.T) {
	m, _ := twoStateChain()

	// State 1 self-loops under both actions, state 0 does not.
	if m.IsAbsorbing(0) {
		t.Error("Expected state 0 not absorbing")
	}
	if !m.IsAbsorbing(1) {
		t.Error("Expected state 1 absorbing")
	}

	abs := m.Absorbing()
	if len(abs) != 1 || abs[0] != 1 {
		t.Errorf("Expected absorbing states [1], got %v", abs)
	}
}

func TestLabels(t *testing.T) {
	m, _ := twoStateChain()
	if m.Label(0) != "0" {
		t.Errorf("Expected fallback label \"0\", got %q", m.Label(0))
	}

	m.Labels = []string{"start", "done"}
	if m.Label(1) != "done" {
		t.Errorf("Expected label \"done\", got %q", m.Label(1))
	}
}

func TestActionString(t *testing.T) {
	if Continue.String() != "continue" {
		t.Errorf("Expected \"continue\", got %q", Continue.String())
	}
	if Stop.String() != "stop" {
		t.Errorf("Expected \"stop\", got %q", Stop.String())
	}
	if Action(7).String() != "action(7)" {
		t.Errorf("Expected \"action(7)\", got %q", Action(7).String())
	}
}
