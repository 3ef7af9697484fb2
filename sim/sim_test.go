package sim

import (
	"context"
	"math"
	"testing"

	"github.com/ecotner/pydata-mdp/chain"
	"github.com/ecotner/pydata-mdp/dice"
	"github.com/ecotner/pydata-mdp/mdp"
	"github.com/ecotner/pydata-mdp/solver"
)

func allAction(n, a int) []int {
	policy := make([]int, n)
	for i := range policy {
		policy[i] = a
	}
	return policy
}

func optimalRunner(t *testing.T, nSides, maxScore int) (*Runner, *solver.Solution) {
	t.Helper()
	model, err := dice.BuildModel(nSides, maxScore)
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}
	prob, err := solver.NewProblem(model, 1.0)
	if err != nil {
		t.Fatalf("NewProblem failed: %v", err)
	}
	sol, err := solver.Solve(prob, nil, nil)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	runner, err := NewRunner(model, sol.Policy, 1.0)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return runner, sol
}

func TestNewRunnerRejectsBadInput(t *testing.T) {
	model, _ := dice.BuildModel(4, 5)

	if _, err := NewRunner(nil, nil, 1.0); err == nil {
		t.Error("Expected error for nil model, got nil")
	}
	if _, err := NewRunner(model, allAction(3, 0), 1.0); err == nil {
		t.Error("Expected error for short policy, got nil")
	}
	if _, err := NewRunner(model, allAction(model.NumStates(), 0), 1.5); err == nil {
		t.Error("Expected error for discount above 1, got nil")
	}
	if _, err := NewRunner(model, allAction(model.NumStates(), 0), 0); err == nil {
		t.Error("Expected error for zero discount, got nil")
	}
}

func TestPlayAlwaysStop(t *testing.T) {
	model, _ := dice.BuildModel(4, 5)
	runner, err := NewRunner(model, allAction(model.NumStates(), int(mdp.Stop)), 1.0)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	ep, err := runner.Play(3)
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if ep.Steps != 1 {
		t.Errorf("Expected 1 step, got %d", ep.Steps)
	}
	if ep.Return != 3 {
		t.Errorf("Expected return 3, got %v", ep.Return)
	}
	if ep.Final() != model.NumStates()-1 {
		t.Errorf("Expected terminal final state, got %d", ep.Final())
	}
	if len(ep.Actions) != 1 || ep.Actions[0] != int(mdp.Stop) {
		t.Errorf("Expected single stop action, got %v", ep.Actions)
	}
	if ep.Truncated {
		t.Error("Episode should not be truncated")
	}
}

func TestPlayAlwaysContinueBusts(t *testing.T) {
	model, _ := dice.BuildModel(4, 5)
	runner, err := NewRunner(model, allAction(model.NumStates(), int(mdp.Continue)), 1.0)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	// Rolling forever always busts; every return is zero and the score
	// strictly increases, so no playout outlasts six rolls.
	for i := 0; i < 50; i++ {
		ep, err := runner.Play(0)
		if err != nil {
			t.Fatalf("Play failed: %v", err)
		}
		if ep.Return != 0 {
			t.Errorf("Expected zero return when never banking, got %v", ep.Return)
		}
		if ep.Final() != 6 {
			t.Errorf("Expected playout to end busted in state 6, got %d", ep.Final())
		}
		if ep.Steps > 6 {
			t.Errorf("Expected at most 6 rolls, got %d", ep.Steps)
		}
	}
}

func TestPlayRejectsBadStart(t *testing.T) {
	model, _ := dice.BuildModel(4, 5)
	runner, _ := NewRunner(model, allAction(model.NumStates(), int(mdp.Stop)), 1.0)

	if _, err := runner.Play(-1); err == nil {
		t.Error("Expected error for negative start, got nil")
	}
	if _, err := runner.Play(model.NumStates()); err == nil {
		t.Error("Expected error for out-of-range start, got nil")
	}
}

func TestRunDeterministic(t *testing.T) {
	runner, _ := optimalRunner(t, 6, 10)

	first, err := runner.WithSeed(42).Run(0, 100)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	second, err := runner.WithSeed(42).Run(0, 100)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(first.Episodes) != 100 || len(second.Episodes) != 100 {
		t.Fatalf("Expected 100 episodes each, got %d and %d",
			len(first.Episodes), len(second.Episodes))
	}
	for i := range first.Episodes {
		if first.Episodes[i].Return != second.Episodes[i].Return {
			t.Fatalf("Episode %d returns differ: %v vs %v",
				i, first.Episodes[i].Return, second.Episodes[i].Return)
		}
		if first.Episodes[i].Steps != second.Episodes[i].Steps {
			t.Fatalf("Episode %d steps differ: %d vs %d",
				i, first.Episodes[i].Steps, second.Episodes[i].Steps)
		}
	}
}

func TestRunParallelDeterministic(t *testing.T) {
	runner, _ := optimalRunner(t, 6, 10)

	first, err := runner.WithSeed(7).RunParallel(0, 200, 4)
	if err != nil {
		t.Fatalf("RunParallel failed: %v", err)
	}
	second, err := runner.WithSeed(7).RunParallel(0, 200, 4)
	if err != nil {
		t.Fatalf("RunParallel failed: %v", err)
	}
	for i := range first.Episodes {
		if first.Episodes[i].Return != second.Episodes[i].Return {
			t.Fatalf("Episode %d returns differ across runs", i)
		}
	}
}

func TestRunContextCancelled(t *testing.T) {
	runner, _ := optimalRunner(t, 6, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := runner.RunContext(ctx, 0, 10); err == nil {
		t.Error("Expected error from cancelled context, got nil")
	}
}

func TestMeanReturnTracksValue(t *testing.T) {
	runner, sol := optimalRunner(t, 20, 21)

	batch, err := runner.WithSeed(42).Run(0, 20000)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mean := batch.MeanReturn()
	if math.Abs(mean-sol.V[0]) > 0.5 {
		t.Errorf("Expected mean return near %v, got %v", sol.V[0], mean)
	}
	if batch.StdReturn() <= 0 {
		t.Errorf("Expected positive return spread, got %v", batch.StdReturn())
	}
	if batch.MeanSteps() <= 1 {
		t.Errorf("Expected more than one roll on average, got %v", batch.MeanSteps())
	}
}

func TestEmpiricalMatchesPropagation(t *testing.T) {
	runner, sol := optimalRunner(t, 20, 21)
	model, _ := dice.BuildModel(20, 21)

	tr, err := chain.Propagate(model, sol.Policy, 12)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}

	batch, err := runner.WithSeed(42).Run(0, 20000)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, step := range []int{1, 3, 12} {
		tv := TotalVariation(batch.EmpiricalAt(step), tr.Trajectory(0).At(step))
		if tv > 0.08 {
			t.Errorf("Expected empirical distribution near exact at t=%d, tv=%v",
				step, tv)
		}
	}

	// By t=12 every optimal-play episode is over, so the final distribution
	// is the t=12 distribution.
	tvFinal := TotalVariation(batch.FinalDist(), tr.Trajectory(0).At(12))
	if tvFinal > 0.08 {
		t.Errorf("Expected final distribution near exact, tv=%v", tvFinal)
	}
}

func TestTruncation(t *testing.T) {
	// Action 0 loops at state 0 forever; action 1 jumps to the absorbing
	// state. A policy that always loops must hit the step cap.
	model, err := mdp.NewBuilder(2, 2).
		SelfLoop(0, 0).
		Prob(1, 0, 1, 1.0).
		SelfLoop(0, 1).
		SelfLoop(1, 1).
		Done()
	if err != nil {
		t.Fatalf("Builder failed: %v", err)
	}

	runner, err := NewRunner(model, allAction(2, 0), 0.9)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	runner.WithMaxSteps(5)

	ep, err := runner.Play(0)
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !ep.Truncated {
		t.Error("Expected truncated episode")
	}
	if ep.Steps != 5 {
		t.Errorf("Expected 5 steps at the cap, got %d", ep.Steps)
	}
}

func TestConditions(t *testing.T) {
	banked := &Episode{
		States:  []int{0, 5, 6},
		Actions: []int{int(mdp.Continue), int(mdp.Stop)},
		Return:  5,
		Steps:   2,
	}
	busted := &Episode{
		States:  []int{0, 4, 6},
		Actions: []int{int(mdp.Continue), int(mdp.Continue)},
		Return:  0,
		Steps:   2,
	}

	if !Banked()(banked) {
		t.Error("Expected banked episode to match Banked")
	}
	if Banked()(busted) {
		t.Error("Expected busted episode not to match Banked")
	}
	if !ReachedState(5)(banked) {
		t.Error("Expected ReachedState(5) to match")
	}
	if ReachedState(5)(busted) {
		t.Error("Expected ReachedState(5) not to match")
	}
	if !ReturnAbove(4)(banked) {
		t.Error("Expected ReturnAbove(4) to match")
	}
	if !AllOf(Banked(), ReachedState(5))(banked) {
		t.Error("Expected AllOf to match banked episode")
	}
	if AllOf(Banked(), ReachedState(4))(banked) {
		t.Error("Expected AllOf with unvisited state not to match")
	}
	if !AnyOf(Banked(), ReachedState(4))(busted) {
		t.Error("Expected AnyOf to match via visited state")
	}
	if AnyOf(Banked(), ReturnAbove(10))(busted) {
		t.Error("Expected AnyOf not to match busted episode")
	}
}

func TestBatchRates(t *testing.T) {
	model, _ := dice.BuildModel(4, 5)
	runner, _ := NewRunner(model, allAction(model.NumStates(), int(mdp.Stop)), 1.0)

	batch, err := runner.Run(3, 50)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rate := batch.Rate(Banked()); rate != 1 {
		t.Errorf("Expected every always-stop episode banked, got rate %v", rate)
	}
	if count := batch.Count(ReturnAbove(2)); count != 50 {
		t.Errorf("Expected 50 episodes above 2, got %d", count)
	}
}

func TestTotalVariation(t *testing.T) {
	p := []float64{0.5, 0.5, 0}
	q := []float64{0.5, 0.5, 0}
	if tv := TotalVariation(p, q); tv != 0 {
		t.Errorf("Expected zero distance for equal distributions, got %v", tv)
	}

	r := []float64{0, 0, 1}
	if tv := TotalVariation(p, r); tv != 1 {
		t.Errorf("Expected distance 1 for disjoint distributions, got %v", tv)
	}

	if tv := TotalVariation([]float64{1}, []float64{0.5, 0.5}); tv != 0.5 {
		t.Errorf("Expected distance 0.5 with length mismatch, got %v", tv)
	}
}

func TestEmpiricalAtEmptyBatch(t *testing.T) {
	model, _ := dice.BuildModel(4, 5)
	runner, _ := NewRunner(model, allAction(model.NumStates(), int(mdp.Stop)), 1.0)

	batch, err := runner.Run(0, 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	dist := batch.EmpiricalAt(3)
	for s, p := range dist {
		if p != 0 {
			t.Errorf("Expected zero mass in empty batch, got %v at %d", p, s)
		}
	}
	if batch.MeanSteps() != 0 {
		t.Errorf("Expected zero mean steps for empty batch, got %v", batch.MeanSteps())
	}
}
