// Package cache provides memoization for solved models.
// Caching can significantly speed up scenarios where the same game is
// solved repeatedly, such as parameter sweeps revisiting a rule set or
// what-if comparisons against a fixed baseline.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"

	"github.com/ecotner/pydata-mdp/mdp"
	"github.com/ecotner/pydata-mdp/solver"
)

// SolutionCache caches solver output keyed by a hash of the model and
// discount.
type SolutionCache struct {
	mu        sync.RWMutex
	cache     map[string]*solver.Solution
	maxSize   int
	hits      int64
	misses    int64
	evictions int64
}

// NewSolutionCache creates a cache with the specified maximum size.
// When the cache is full, an arbitrary entry is evicted.
// Set maxSize to 0 for an unlimited cache.
func NewSolutionCache(maxSize int) *SolutionCache {
	return &SolutionCache{
		cache:   make(map[string]*solver.Solution),
		maxSize: maxSize,
	}
}

// hashProblem creates a deterministic hash of the model matrices and the
// discount. Models that differ in any transition probability, reward, or
// dimension hash differently.
func hashProblem(m *mdp.Model, discount float64) string {
	h := sha256.New()
	buf := make([]byte, 8)
	put := func(v float64) {
		binary.BigEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}

	put(float64(m.NumStates()))
	put(float64(m.NumActions()))
	for a := 0; a < m.NumActions(); a++ {
		for s := 0; s < m.NumStates(); s++ {
			for sp := 0; sp < m.NumStates(); sp++ {
				put(m.Prob(mdp.Action(a), s, sp))
			}
		}
	}
	for s := 0; s < m.NumStates(); s++ {
		for a := 0; a < m.NumActions(); a++ {
			put(m.Reward(s, mdp.Action(a)))
		}
	}
	put(discount)

	return string(h.Sum(nil))
}

// hashPolicy extends a problem hash with a policy, for caches keyed per
// policy rather than per model.
func hashPolicy(m *mdp.Model, discount float64, policy []int) string {
	h := sha256.New()
	h.Write([]byte(hashProblem(m, discount)))
	buf := make([]byte, 8)
	for _, a := range policy {
		binary.BigEndian.PutUint64(buf, uint64(int64(a)))
		h.Write(buf)
	}
	return string(h.Sum(nil))
}

// Get retrieves a cached solution for the given problem.
// Returns nil if not found.
func (c *SolutionCache) Get(m *mdp.Model, discount float64) *solver.Solution {
	key := hashProblem(m, discount)

	c.mu.Lock()
	defer c.mu.Unlock()

	if sol, ok := c.cache[key]; ok {
		c.hits++
		return sol
	}
	c.misses++
	return nil
}

// Put stores a solution in the cache.
func (c *SolutionCache) Put(m *mdp.Model, discount float64, sol *solver.Solution) {
	key := hashProblem(m, discount)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict if necessary (remove first key found)
	if c.maxSize > 0 && len(c.cache) >= c.maxSize {
		for k := range c.cache {
			delete(c.cache, k)
			c.evictions++
			break
		}
	}

	c.cache[key] = sol
}

// GetOrCompute retrieves from the cache or computes and caches the result.
// Errors from the compute function are returned and never cached.
func (c *SolutionCache) GetOrCompute(m *mdp.Model, discount float64, compute func() (*solver.Solution, error)) (*solver.Solution, error) {
	if sol := c.Get(m, discount); sol != nil {
		return sol, nil
	}

	sol, err := compute()
	if err != nil {
		return nil, err
	}
	c.Put(m, discount, sol)
	return sol, nil
}

// Clear removes all entries from the cache.
func (c *SolutionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*solver.Solution)
}

// Size returns the current number of cached entries.
func (c *SolutionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Stats holds cache statistics.
type Stats struct {
	Size      int
	MaxSize   int
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
}

// Stats returns cache statistics.
func (c *SolutionCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Size:      len(c.cache),
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   hitRate,
	}
}

// CachedSolver wraps value iteration with a solution cache. Method and
// options are fixed at construction so every cached entry was produced the
// same way.
type CachedSolver struct {
	method *solver.Method
	opts   *solver.Options
	cache  *SolutionCache
}

// NewCachedSolver creates a solver with built-in caching.
func NewCachedSolver(cacheSize int) *CachedSolver {
	return &CachedSolver{
		opts:  solver.DefaultOptions(),
		cache: NewSolutionCache(cacheSize),
	}
}

// WithOptions sets the solver options.
func (cs *CachedSolver) WithOptions(opts *solver.Options) *CachedSolver {
	cs.opts = opts
	return cs
}

// WithMethod sets the sweep method.
func (cs *CachedSolver) WithMethod(m *solver.Method) *CachedSolver {
	cs.method = m
	return cs
}

// Solve solves the problem, consulting the cache first.
func (cs *CachedSolver) Solve(m *mdp.Model, discount float64) (*solver.Solution, error) {
	prob, err := solver.NewProblem(m, discount)
	if err != nil {
		return nil, err
	}
	return cs.cache.GetOrCompute(m, discount, func() (*solver.Solution, error) {
		return solver.Solve(prob, cs.method, cs.opts)
	})
}

// Cache returns the underlying cache for inspection.
func (cs *CachedSolver) Cache() *SolutionCache {
	return cs.cache
}

// ClearCache clears the cache.
func (cs *CachedSolver) ClearCache() {
	cs.cache.Clear()
}

// ScoreCache caches scalar policy scores instead of full solutions.
// More memory efficient when only the value of a policy matters, as in
// large what-if families.
type ScoreCache struct {
	mu      sync.RWMutex
	cache   map[string]float64
	maxSize int
	hits    int64
	misses  int64
}

// NewScoreCache creates a score cache.
func NewScoreCache(maxSize int) *ScoreCache {
	return &ScoreCache{
		cache:   make(map[string]float64),
		maxSize: maxSize,
	}
}

// Get retrieves a cached score for a policy on the given problem.
// Returns (score, true) if found, (0, false) if not.
func (c *ScoreCache) Get(m *mdp.Model, discount float64, policy []int) (float64, bool) {
	key := hashPolicy(m, discount, policy)

	c.mu.Lock()
	defer c.mu.Unlock()

	if score, ok := c.cache[key]; ok {
		c.hits++
		return score, true
	}
	c.misses++
	return 0, false
}

// Put stores a score.
func (c *ScoreCache) Put(m *mdp.Model, discount float64, policy []int, score float64) {
	key := hashPolicy(m, discount, policy)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && len(c.cache) >= c.maxSize {
		for k := range c.cache {
			delete(c.cache, k)
			break
		}
	}

	c.cache[key] = score
}

// GetOrCompute retrieves from the cache or computes and caches.
func (c *ScoreCache) GetOrCompute(m *mdp.Model, discount float64, policy []int, compute func() (float64, error)) (float64, error) {
	if score, ok := c.Get(m, discount, policy); ok {
		return score, nil
	}

	score, err := compute()
	if err != nil {
		return 0, err
	}
	c.Put(m, discount, policy, score)
	return score, nil
}

// Size returns the current cache size.
func (c *ScoreCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Clear removes all entries.
func (c *ScoreCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]float64)
}

// HitRate returns the cache hit rate.
func (c *ScoreCache) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}
