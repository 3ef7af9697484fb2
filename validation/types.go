// Package validation provides structural analysis and validation for MDP models.
package validation

import (
	"github.com/ecotner/pydata-mdp/mdp"
)

// ValidationResult contains the result of validation
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
	Info     []Issue `json:"info,omitempty"`
	Summary  Summary `json:"summary"`
}

// Issue represents a validation issue
type Issue struct {
	Severity   string   `json:"severity"` // "error", "warning", "info"
	Category   string   `json:"category"` // "shape", "stochasticity", "absorption", etc.
	Message    string   `json:"message"`
	Location   []string `json:"location,omitempty"` // Affected states/actions
	Suggestion string   `json:"suggestion,omitempty"`
}

// Summary provides overview of validation
type Summary struct {
	States    int  `json:"states"`
	Actions   int  `json:"actions"`
	Absorbing int  `json:"absorbing"`
	Errors    int  `json:"errors"`
	Warnings  int  `json:"warnings"`
	Solvable  bool `json:"solvable"` // true when at least one absorbing state exists
}

// Validator performs validation checks
type Validator struct {
	model  *mdp.Model
	result *ValidationResult
}

// NewValidator creates a validator for a model
func NewValidator(model *mdp.Model) *Validator {
	v := &Validator{
		model: model,
		result: &ValidationResult{
			Valid: true,
		},
	}
	if model != nil {
		v.result.Summary.States = model.NumStates()
		v.result.Summary.Actions = model.NumActions()
	}
	return v
}

// Validate runs all validation checks
func (v *Validator) Validate() *ValidationResult {
	if v.model == nil {
		v.AddError("shape", "Model is nil", nil, "Build a model before validating")
		return v.finish()
	}

	v.checkShapes()
	if len(v.result.Errors) == 0 {
		// Row checks assume consistent shapes.
		v.checkRows()
		v.checkAbsorption()
		v.checkRewards()
		v.checkReachability()
	}
	return v.finish()
}

func (v *Validator) finish() *ValidationResult {
	v.result.Valid = len(v.result.Errors) == 0
	v.result.Summary.Errors = len(v.result.Errors)
	v.result.Summary.Warnings = len(v.result.Warnings)
	return v.result
}

// AddError adds an error-severity issue
func (v *Validator) AddError(category, message string, location []string, suggestion string) {
	v.result.Errors = append(v.result.Errors, Issue{
		Severity:   "error",
		Category:   category,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}

// AddWarning adds a warning-severity issue
func (v *Validator) AddWarning(category, message string, location []string, suggestion string) {
	v.result.Warnings = append(v.result.Warnings, Issue{
		Severity:   "warning",
		Category:   category,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}

// AddInfo adds an informational issue
func (v *Validator) AddInfo(category, message string, location []string) {
	v.result.Info = append(v.result.Info, Issue{
		Severity: "info",
		Category: category,
		Message:  message,
		Location: location,
	})
}
