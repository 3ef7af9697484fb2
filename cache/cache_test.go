package cache

import (
	"errors"
	"testing"

	"github.com/ecotner/pydata-mdp/dice"
	"github.com/ecotner/pydata-mdp/mdp"
	"github.com/ecotner/pydata-mdp/solver"
)

func solved(t *testing.T, nSides, maxScore int, discount float64) (*mdp.Model, *solver.Solution) {
	t.Helper()
	model, err := dice.BuildModel(nSides, maxScore)
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}
	prob, err := solver.NewProblem(model, discount)
	if err != nil {
		t.Fatalf("NewProblem failed: %v", err)
	}
	sol, err := solver.Solve(prob, nil, nil)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	return model, sol
}

func TestCacheHitMiss(t *testing.T) {
	model, sol := solved(t, 4, 5, 1.0)
	c := NewSolutionCache(10)

	if got := c.Get(model, 1.0); got != nil {
		t.Error("Expected miss on empty cache")
	}

	c.Put(model, 1.0, sol)

	got := c.Get(model, 1.0)
	if got != sol {
		t.Error("Expected cached solution back")
	}

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Errorf("Expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("Expected hit rate 0.5, got %f", stats.HitRate)
	}
	if stats.Size != 1 {
		t.Errorf("Expected size 1, got %d", stats.Size)
	}
}

func TestCacheKeySensitivity(t *testing.T) {
	model, sol := solved(t, 4, 5, 1.0)
	other, _ := solved(t, 6, 10, 1.0)

	c := NewSolutionCache(10)
	c.Put(model, 1.0, sol)

	if got := c.Get(other, 1.0); got != nil {
		t.Error("Expected miss for a different model")
	}
	if got := c.Get(model, 0.9); got != nil {
		t.Error("Expected miss for a different discount")
	}
	if got := c.Get(model, 1.0); got != sol {
		t.Error("Expected hit for the original problem")
	}
}

func TestCacheEviction(t *testing.T) {
	m1, s1 := solved(t, 4, 5, 1.0)
	m2, s2 := solved(t, 6, 10, 1.0)
	m3, s3 := solved(t, 20, 21, 1.0)

	c := NewSolutionCache(2)
	c.Put(m1, 1.0, s1)
	c.Put(m2, 1.0, s2)
	c.Put(m3, 1.0, s3)

	if c.Size() != 2 {
		t.Errorf("Expected size capped at 2, got %d", c.Size())
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", c.Stats().Evictions)
	}
}

func TestCacheUnlimited(t *testing.T) {
	m1, s1 := solved(t, 4, 5, 1.0)
	m2, s2 := solved(t, 6, 10, 1.0)
	m3, s3 := solved(t, 20, 21, 1.0)

	c := NewSolutionCache(0)
	c.Put(m1, 1.0, s1)
	c.Put(m2, 1.0, s2)
	c.Put(m3, 1.0, s3)

	if c.Size() != 3 {
		t.Errorf("Expected size 3, got %d", c.Size())
	}
	if c.Stats().Evictions != 0 {
		t.Errorf("Expected no evictions, got %d", c.Stats().Evictions)
	}
}

func TestGetOrCompute(t *testing.T) {
	model, sol := solved(t, 4, 5, 1.0)
	c := NewSolutionCache(10)

	calls := 0
	compute := func() (*solver.Solution, error) {
		calls++
		return sol, nil
	}

	first, err := c.GetOrCompute(model, 1.0, compute)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	second, err := c.GetOrCompute(model, 1.0, compute)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("Expected 1 compute call, got %d", calls)
	}
	if first != sol || second != sol {
		t.Error("Expected cached solution from both calls")
	}
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	model, _ := solved(t, 4, 5, 1.0)
	c := NewSolutionCache(10)

	boom := errors.New("boom")
	calls := 0
	compute := func() (*solver.Solution, error) {
		calls++
		return nil, boom
	}

	if _, err := c.GetOrCompute(model, 1.0, compute); !errors.Is(err, boom) {
		t.Errorf("Expected compute error, got %v", err)
	}
	if _, err := c.GetOrCompute(model, 1.0, compute); !errors.Is(err, boom) {
		t.Errorf("Expected compute error again, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected failed compute to run both times, got %d calls", calls)
	}
	if c.Size() != 0 {
		t.Errorf("Expected errors not cached, size %d", c.Size())
	}
}

func TestCacheClear(t *testing.T) {
	model, sol := solved(t, 4, 5, 1.0)
	c := NewSolutionCache(10)
	c.Put(model, 1.0, sol)

	c.Clear()

	if c.Size() != 0 {
		t.Errorf("Expected empty cache after clear, got size %d", c.Size())
	}
	if got := c.Get(model, 1.0); got != nil {
		t.Error("Expected miss after clear")
	}
}

func TestCachedSolver(t *testing.T) {
	model, err := dice.BuildModel(20, 21)
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}

	cs := NewCachedSolver(10)

	first, err := cs.Solve(model, 1.0)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	second, err := cs.Solve(model, 1.0)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if first != second {
		t.Error("Expected second solve served from cache")
	}
	if cs.Cache().Stats().Hits != 1 {
		t.Errorf("Expected 1 hit, got %d", cs.Cache().Stats().Hits)
	}

	// Same problem solved directly must agree.
	prob, _ := solver.NewProblem(model, 1.0)
	direct, err := solver.Solve(prob, nil, nil)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	for s := range direct.V {
		if first.V[s] != direct.V[s] {
			t.Errorf("Expected cached value %v at state %d, got %v",
				direct.V[s], s, first.V[s])
		}
	}

	cs.ClearCache()
	if cs.Cache().Size() != 0 {
		t.Errorf("Expected empty cache after clear, got %d", cs.Cache().Size())
	}
}

func TestCachedSolverRejectsBadDiscount(t *testing.T) {
	model, _ := dice.BuildModel(4, 5)
	cs := NewCachedSolver(10)

	if _, err := cs.Solve(model, 0); err == nil {
		t.Error("Expected error for zero discount, got nil")
	}
}

func TestScoreCache(t *testing.T) {
	model, _ := solved(t, 4, 5, 1.0)
	c := NewScoreCache(10)

	alwaysStop := make([]int, model.NumStates())
	for i := range alwaysStop {
		alwaysStop[i] = int(mdp.Stop)
	}
	alwaysRoll := make([]int, model.NumStates())

	if _, ok := c.Get(model, 1.0, alwaysStop); ok {
		t.Error("Expected miss on empty cache")
	}

	c.Put(model, 1.0, alwaysStop, 3.5)

	if score, ok := c.Get(model, 1.0, alwaysStop); !ok || score != 3.5 {
		t.Errorf("Expected cached score 3.5, got %v (found=%v)", score, ok)
	}
	if _, ok := c.Get(model, 1.0, alwaysRoll); ok {
		t.Error("Expected miss for a different policy")
	}

	if c.HitRate() <= 0 || c.HitRate() >= 1 {
		t.Errorf("Expected hit rate strictly between 0 and 1, got %f", c.HitRate())
	}

	calls := 0
	score, err := c.GetOrCompute(model, 1.0, alwaysRoll, func() (float64, error) {
		calls++
		return 1.25, nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if score != 1.25 || calls != 1 {
		t.Errorf("Expected computed score 1.25 in 1 call, got %v in %d", score, calls)
	}
	if c.Size() != 2 {
		t.Errorf("Expected 2 entries, got %d", c.Size())
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Expected empty cache after clear, got %d", c.Size())
	}
}
