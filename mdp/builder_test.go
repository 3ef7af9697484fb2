package mdp

import (
	"errors"
	"testing"
)

func TestBuilderChain(t *testing.T) {
	model, err := NewBuilder(3, 2).
		Prob(Continue, 0, 1, 0.5).
		Prob(Continue, 0, 2, 0.5).
		SelfLoop(Continue, 1).
		SelfLoop(Continue, 2).
		Row(Stop, 0, 0, 0, 1).
		SelfLoop(Stop, 1).
		SelfLoop(Stop, 2).
		Reward(0, Stop, 1).
		Label(2, "end").
		Done()
	if err != nil {
		t.Fatalf("Expected valid model from builder, got error: %v", err)
	}

	if model.NumStates() != 3 {
		t.Errorf("Expected 3 states, got %d", model.NumStates())
	}
	if model.Prob(Continue, 0, 2) != 0.5 {
		t.Errorf("Expected P(2|0,continue)=0.5, got %f", model.Prob(Continue, 0, 2))
	}
	if model.Prob(Stop, 0, 2) != 1.0 {
		t.Errorf("Expected P(2|0,stop)=1, got %f", model.Prob(Stop, 0, 2))
	}
	if model.Reward(0, Stop) != 1.0 {
		t.Errorf("Expected R(0,stop)=1, got %f", model.Reward(0, Stop))
	}
	if model.Label(2) != "end" {
		t.Errorf("Expected label \"end\", got %q", model.Label(2))
	}
	if model.Label(1) != "1" {
		t.Errorf("Expected default label \"1\", got %q", model.Label(1))
	}
}

func TestBuilderRejectsBadSize(t *testing.T) {
	_, err := NewBuilder(0, 2).Done()
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for 0 states, got %v", err)
	}
}

func TestBuilderRecordsFirstError(t *testing.T) {
	// Out-of-range state; later calls must not panic and Done reports it.
	_, err := NewBuilder(2, 1).
		Prob(Continue, 5, 0, 1).
		SelfLoop(Continue, 0).
		Done()
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("Expected ErrInvalidModel for out-of-range state, got %v", err)
	}
}

func TestBuilderRowLengthMismatch(t *testing.T) {
	_, err := NewBuilder(3, 1).
		Row(Continue, 0, 0.5, 0.5). // 2 entries for 3 states
		Done()
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("Expected ErrInvalidModel for short row, got %v", err)
	}
}

func TestBuilderDoneValidates(t *testing.T) {
	// Rows left all-zero do not sum to 1, so Done must fail.
	_, err := NewBuilder(2, 1).
		SelfLoop(Continue, 0).
		Done()
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("Expected ErrInvalidModel for unfilled rows, got %v", err)
	}
}
