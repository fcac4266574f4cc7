package typesystem

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/funvibe/tsolve/internal/config"
)

// GuardResult is the outcome of entering a recursion guard.
type GuardResult uint8

const (
	Entered GuardResult = iota
	// Cycle means the key is already on the active stack. For relations
	// this is the coinductive assumption: treat the pair as related.
	Cycle
	DepthExceeded
	IterationExceeded
)

func (r GuardResult) String() string {
	switch r {
	case Entered:
		return "entered"
	case Cycle:
		return "cycle"
	case DepthExceeded:
		return "depth exceeded"
	case IterationExceeded:
		return "iteration exceeded"
	}
	return "unknown"
}

// GuardLimits configures a Guard.
type GuardLimits struct {
	MaxDepth      int
	MaxIterations int
	MaxVisiting   int
}

var (
	SubtypeLimits = GuardLimits{
		MaxDepth:      config.MaxSubtypeDepth,
		MaxIterations: config.MaxIterations,
		MaxVisiting:   config.MaxVisitingSetSize,
	}
	EvaluationLimits = GuardLimits{
		MaxDepth:      config.MaxEvaluationDepth,
		MaxIterations: config.MaxIterations,
		MaxVisiting:   config.MaxVisitingSetSize,
	}
	InstantiationLimits = GuardLimits{
		MaxDepth:      config.MaxInstantiationDepth,
		MaxIterations: config.MaxIterations,
		MaxVisiting:   config.MaxVisitingSetSize,
	}
	InferenceLimits = GuardLimits{
		MaxDepth:      config.MaxInferenceDepth,
		MaxIterations: config.MaxIterations,
		MaxVisiting:   config.MaxVisitingSetSize,
	}
)

// Guard bounds a recursive algorithm by depth, total iterations and active-key
// membership. A Guard belongs to a single query and is not safe for concurrent use.
//
// Every Enter that returns Entered must be paired with exactly one Leave.
type Guard[K comparable] struct {
	limits     GuardLimits
	visiting   *set.Set[K]
	depth      int
	iterations int
	cycles     int
	exceeded   bool
}

func NewGuard[K comparable](limits GuardLimits) *Guard[K] {
	return &Guard[K]{
		limits:   limits,
		visiting: set.New[K](0),
	}
}

func (g *Guard[K]) Enter(key K) GuardResult {
	g.iterations++
	if g.iterations > g.limits.MaxIterations {
		g.exceeded = true
		return IterationExceeded
	}
	if g.depth >= g.limits.MaxDepth {
		g.exceeded = true
		return DepthExceeded
	}
	if g.visiting.Contains(key) {
		g.cycles++
		return Cycle
	}
	if g.visiting.Size() >= g.limits.MaxVisiting {
		g.exceeded = true
		return DepthExceeded
	}
	g.visiting.Insert(key)
	g.depth++
	return Entered
}

func (g *Guard[K]) Leave(key K) {
	if g.visiting.Remove(key) {
		g.depth--
	}
}

// Reset clears all counters and the active set; limits are kept.
func (g *Guard[K]) Reset() {
	g.visiting = set.New[K](0)
	g.depth = 0
	g.iterations = 0
	g.cycles = 0
	g.exceeded = false
}

// Exceeded reports whether a depth or iteration limit was hit since the last Reset.
func (g *Guard[K]) Exceeded() bool { return g.exceeded }

func (g *Guard[K]) Depth() int         { return g.depth }
func (g *Guard[K]) Iterations() int    { return g.iterations }
func (g *Guard[K]) Cycles() int        { return g.cycles }
func (g *Guard[K]) Limits() GuardLimits { return g.limits }
