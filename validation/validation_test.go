package validation

import (
	"strings"
	"testing"

	"github.com/ecotner/pydata-mdp/dice"
	"gonum.org/v1/gonum/mat"

	"github.com/ecotner/pydata-mdp/mdp"
)

func TestValidateGameModel(t *testing.T) {
	model, err := dice.BuildModel(20, 21)
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}

	result := NewValidator(model).Validate()
	if !result.Valid {
		t.Fatalf("Expected valid model, got errors: %v", result.Errors)
	}
	if result.Summary.States != 23 {
		t.Errorf("Expected 23 states in summary, got %d", result.Summary.States)
	}
	if result.Summary.Actions != 2 {
		t.Errorf("Expected 2 actions in summary, got %d", result.Summary.Actions)
	}
	if result.Summary.Absorbing != 1 {
		t.Errorf("Expected 1 absorbing state, got %d", result.Summary.Absorbing)
	}
	if !result.Summary.Solvable {
		t.Error("Expected Solvable=true with an absorbing terminal")
	}

	// Score 0 has no incoming transitions, so one reachability note appears.
	found := false
	for _, issue := range result.Info {
		if issue.Category == "reachability" {
			found = true
		}
	}
	if !found {
		t.Error("Expected a reachability info issue for the start state")
	}
}

func TestValidateCatchesBadRows(t *testing.T) {
	// Hand-build a model with a broken row, bypassing NewModel's checks.
	t0 := mat.NewDense(2, 2, []float64{0.5, 0.4, 0, 1})
	model := &mdp.Model{
		Transitions: []*mat.Dense{t0},
		Rewards:     mat.NewDense(2, 1, nil),
	}

	result := NewValidator(model).Validate()
	if result.Valid {
		t.Fatal("Expected invalid result for non-stochastic row")
	}
	if result.Summary.Errors == 0 {
		t.Error("Expected error count in summary")
	}

	found := false
	for _, issue := range result.Errors {
		if issue.Category == "stochasticity" && strings.Contains(issue.Message, "sums to") {
			found = true
			if issue.Suggestion == "" {
				t.Error("Expected a suggestion on the stochasticity error")
			}
		}
	}
	if !found {
		t.Errorf("Expected a row-sum error, got %v", result.Errors)
	}
}

func TestValidateCatchesShapeMismatch(t *testing.T) {
	t0 := mat.NewDense(2, 2, []float64{0, 1, 0, 1})
	model := &mdp.Model{
		Transitions: []*mat.Dense{t0},
		Rewards:     mat.NewDense(3, 1, nil), // wrong shape
	}

	result := NewValidator(model).Validate()
	if result.Valid {
		t.Fatal("Expected invalid result for reward shape mismatch")
	}
	if result.Errors[0].Category != "shape" {
		t.Errorf("Expected shape error, got %q", result.Errors[0].Category)
	}
}

func TestValidateWarnsWithoutAbsorbingState(t *testing.T) {
	// A two-state flip-flop never settles anywhere.
	t0 := mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	model := &mdp.Model{
		Transitions: []*mat.Dense{t0},
		Rewards:     mat.NewDense(2, 1, []float64{1, 0}),
	}

	result := NewValidator(model).Validate()
	if !result.Valid {
		t.Fatalf("Expected structurally valid model, got errors: %v", result.Errors)
	}
	if result.Summary.Solvable {
		t.Error("Expected Solvable=false without absorbing states")
	}

	found := false
	for _, issue := range result.Warnings {
		if issue.Category == "absorption" {
			found = true
		}
	}
	if !found {
		t.Error("Expected an absorption warning")
	}
}

func TestValidateWarnsOnPayingAbsorbingState(t *testing.T) {
	// Absorbing state that keeps paying: diverges undiscounted.
	t0 := mat.NewDense(2, 2, []float64{0, 1, 0, 1})
	model := &mdp.Model{
		Transitions: []*mat.Dense{t0},
		Rewards:     mat.NewDense(2, 1, []float64{0, 3}),
	}

	result := NewValidator(model).Validate()
	found := false
	for _, issue := range result.Warnings {
		if issue.Category == "absorption" && strings.Contains(issue.Message, "pays reward") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a paying-absorbing-state warning, got %v", result.Warnings)
	}
}

func TestValidateNilModel(t *testing.T) {
	result := NewValidator(nil).Validate()
	if result.Valid {
		t.Error("Expected invalid result for nil model")
	}
}

func TestValidateAllZeroRewards(t *testing.T) {
	t0 := mat.NewDense(2, 2, []float64{0, 1, 0, 1})
	model := &mdp.Model{
		Transitions: []*mat.Dense{t0},
		Rewards:     mat.NewDense(2, 1, nil),
	}

	result := NewValidator(model).Validate()
	found := false
	for _, issue := range result.Warnings {
		if issue.Category == "reward" {
			found = true
		}
	}
	if !found {
		t.Error("Expected an all-zero reward warning")
	}
}
