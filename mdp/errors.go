package mdp

import "errors"

// Error types for the mdp package.
var (
	// ErrInvalidParameter is returned when a model or solver parameter is out of range.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidModel is returned when transition rows are not stochastic or
	// matrix shapes disagree with the declared state and action counts.
	ErrInvalidModel = errors.New("invalid model")

	// ErrInvalidPolicy is returned when a policy maps a state to an action
	// index outside the model's action set.
	ErrInvalidPolicy = errors.New("invalid policy")
)
