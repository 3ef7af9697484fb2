// Package results defines the structured output format for solve runs
package results

import "time"

const SchemaVersion = "1.0.0"

// Results contains complete solve output
type Results struct {
	Version  string    `json:"version"`
	RunID    string    `json:"runId"`
	Metadata Metadata  `json:"metadata"`
	Game     Game      `json:"game"`
	Solve    Solve     `json:"solve"`
	Results  Data      `json:"results"`
	Analysis *Analysis `json:"analysis,omitempty"`
}

// Metadata contains solve execution information
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	Solver      string    `json:"solver"`
	Status      string    `json:"status"` // success, error
	Error       string    `json:"error,omitempty"`
	ComputeTime float64   `json:"computeTime"` // seconds
}

// Game summarizes the game being solved
type Game struct {
	Name     string   `json:"name,omitempty"`
	NSides   int      `json:"nSides"`
	MaxScore int      `json:"maxScore"`
	States   int      `json:"states"`
	Labels   []string `json:"labels,omitempty"`
}

// Solve contains parameters used
type Solve struct {
	Discount float64        `json:"discount"`
	Options  *SolverOptions `json:"options,omitempty"`
}

// SolverOptions contains solver configuration
type SolverOptions struct {
	Epsilon  float64 `json:"epsilon,omitempty"`
	MaxIters int     `json:"maxIters,omitempty"`
}

// Data contains the solve results
type Data struct {
	Summary Summary     `json:"summary"`
	Values  []float64   `json:"values"`
	Policy  []int       `json:"policy"`
	Start   int         `json:"start,omitempty"`
	Rho     [][]float64 `json:"rho,omitempty"` // state distribution per step
}

// Summary provides quick overview
type Summary struct {
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	Residual   float64 `json:"residual"`
	Reason     string  `json:"reason"`
	StartValue float64 `json:"startValue"`
}

// Analysis contains automatically computed insights
type Analysis struct {
	SwitchPoint *SwitchPoint       `json:"switchPoint,omitempty"`
	ValueStats  *Stat              `json:"valueStats,omitempty"`
	Absorption  *AbsorptionSummary `json:"absorption,omitempty"`
	Outcomes    map[string]float64 `json:"outcomes,omitempty"`
}

// SwitchPoint describes where the optimal policy starts banking
type SwitchPoint struct {
	Threshold      int  `json:"threshold"`
	Found          bool `json:"found"`
	ContinueStates int  `json:"continueStates"`
	StopStates     int  `json:"stopStates"`
}

// AbsorptionSummary tracks how play drains into the terminal state
type AbsorptionSummary struct {
	ExpectedSteps float64 `json:"expectedSteps"`
	Horizon       int     `json:"horizon"`
	Complete      bool    `json:"complete"`
	FinalMass     float64 `json:"finalMass"`
}

// Stat contains statistical summary
type Stat struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}
