package typesystem

import (
	"hash/maphash"
	"sync"
	"sync/atomic"

	"github.com/funvibe/tsolve/internal/config"
)

// Relation selects which relation a cache entry answers.
type Relation uint8

const (
	RelSubtype Relation = iota
	RelAssignable
)

func (r Relation) String() string {
	if r == RelAssignable {
		return "assignable"
	}
	return "subtype"
}

// RelationFlags is the bit set of configuration that changes relation results.
type RelationFlags uint16

const (
	FlagStrictNullChecks RelationFlags = 1 << iota
	FlagStrictFunctionTypes
	FlagExactOptionalPropertyTypes
	FlagNoUncheckedIndexedAccess
	FlagDisableMethodBivariance
	FlagAllowVoidReturn
	FlagAllowBivariantRest
	FlagAllowBivariantParamCount

	// Disabled compatibility rules also partition the cache.
	FlagNoEnumNominality
	FlagNoPrivateBrands
	FlagNoWeakTypes
	FlagNoConstructorAccessibility
)

func (f RelationFlags) Has(flag RelationFlags) bool { return f&flag != 0 }

// FlagsFromOptions derives the relation flags shared by the subtype and
// assignability relations.
func FlagsFromOptions(opts config.Options) RelationFlags {
	var f RelationFlags
	if opts.StrictNullChecks {
		f |= FlagStrictNullChecks
	}
	if opts.StrictFunctionTypes {
		f |= FlagStrictFunctionTypes
	}
	if opts.ExactOptionalPropertyTypes {
		f |= FlagExactOptionalPropertyTypes
	}
	if opts.NoUncheckedIndexedAccess {
		f |= FlagNoUncheckedIndexedAccess
	}
	if opts.StrictSubtypeChecking {
		f |= FlagDisableMethodBivariance
	}
	return f
}

// AnyMode is the configured `any` propagation mode of a relation.
type AnyMode uint8

const (
	// AnyAll lets `any` relate to everything.
	AnyAll AnyMode = iota
	// AnyTopLevelOnly restricts a nested `any` source to `any`/`unknown` targets.
	AnyTopLevelOnly
)

// RelationKey identifies a cached relation result. AnyMode is the mode the
// relation was configured with. Cached pairs are always compared below the
// top level, where the configured mode is the one in force.
type RelationKey struct {
	Source   TypeID
	Target   TypeID
	Relation Relation
	Flags    RelationFlags
	AnyMode  AnyMode
}

const cacheShards = 32

type relationShard struct {
	mu sync.RWMutex
	m  map[RelationKey]bool
}

// RelationCache memoizes relation results. It is shared by concurrent queries;
// entries are insert-if-absent and never change once published.
type RelationCache struct {
	seed   maphash.Seed
	shards [cacheShards]relationShard
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewRelationCache() *RelationCache {
	c := &RelationCache{seed: maphash.MakeSeed()}
	for i := range c.shards {
		c.shards[i].m = make(map[RelationKey]bool)
	}
	return c
}

func (c *RelationCache) shard(k RelationKey) *relationShard {
	return &c.shards[maphash.Comparable(c.seed, k)%cacheShards]
}

func (c *RelationCache) Get(k RelationKey) (result, ok bool) {
	sh := c.shard(k)
	sh.mu.RLock()
	result, ok = sh.m[k]
	sh.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return result, ok
}

func (c *RelationCache) Put(k RelationKey, result bool) {
	sh := c.shard(k)
	sh.mu.Lock()
	if _, ok := sh.m[k]; !ok {
		sh.m[k] = result
	}
	sh.mu.Unlock()
}

func (c *RelationCache) Len() int {
	n := 0
	for i := range c.shards {
		c.shards[i].mu.RLock()
		n += len(c.shards[i].m)
		c.shards[i].mu.RUnlock()
	}
	return n
}

// Stats returns cache hit and miss counts.
func (c *RelationCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// typeCache maps a comparable key to a result type, insert-if-absent.
type typeCache[K comparable] struct {
	seed   maphash.Seed
	shards [cacheShards]struct {
		mu sync.RWMutex
		m  map[K]TypeID
	}
}

func newTypeCache[K comparable]() *typeCache[K] {
	c := &typeCache[K]{seed: maphash.MakeSeed()}
	for i := range c.shards {
		c.shards[i].m = make(map[K]TypeID)
	}
	return c
}

func (c *typeCache[K]) get(k K) (TypeID, bool) {
	sh := &c.shards[maphash.Comparable(c.seed, k)%cacheShards]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	id, ok := sh.m[k]
	return id, ok
}

func (c *typeCache[K]) put(k K, id TypeID) {
	sh := &c.shards[maphash.Comparable(c.seed, k)%cacheShards]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.m[k]; !ok {
		sh.m[k] = id
	}
}

type evalKey struct {
	Type  TypeID
	Flags RelationFlags
}

// instKey identifies an instantiation: a type plus the canonical encoding of
// its substitution.
type instKey struct {
	Type  TypeID
	Subst string
}

// Caches bundles the shared, session-scoped memo tables.
type Caches struct {
	Relations     *RelationCache
	evaluations   *typeCache[evalKey]
	instantiation *typeCache[instKey]
}

func NewCaches() *Caches {
	return &Caches{
		Relations:     NewRelationCache(),
		evaluations:   newTypeCache[evalKey](),
		instantiation: newTypeCache[instKey](),
	}
}
