package typesystem

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/tsolve/internal/config"
)

func TestRelationCacheInsertIfAbsent(t *testing.T) {
	c := NewRelationCache()
	k := RelationKey{Source: 100, Target: 101, Relation: RelSubtype}

	_, ok := c.Get(k)
	require.False(t, ok)

	c.Put(k, true)
	c.Put(k, false)
	r, ok := c.Get(k)
	require.True(t, ok)
	assert.True(t, r)
	assert.Equal(t, 1, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestRelationCacheKeyPartitions(t *testing.T) {
	c := NewRelationCache()
	base := RelationKey{Source: 100, Target: 101}
	c.Put(base, true)

	for _, k := range []RelationKey{
		{Source: 100, Target: 101, Relation: RelAssignable},
		{Source: 100, Target: 101, Flags: FlagStrictNullChecks},
		{Source: 100, Target: 101, AnyMode: AnyTopLevelOnly},
		{Source: 101, Target: 100},
	} {
		_, ok := c.Get(k)
		assert.False(t, ok, "%+v", k)
	}
}

func TestRelationCacheConcurrent(t *testing.T) {
	c := NewRelationCache()
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				k := RelationKey{Source: TypeID(100 + i), Target: TypeID(100 + w%2)}
				c.Put(k, i%2 == 0)
				c.Get(k)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, c.Len())
}

func TestSubtypeAndAssignabilityDoNotShareEntries(t *testing.T) {
	e := newEnv(t)
	def := e.defs.Declare("Color")
	e.defs.SetNumericEnum(def, true)
	red := e.in.Enum(def, e.num(0))

	require.True(t, e.s.IsAssignable(TypeNumber, red))
	assert.False(t, e.s.IsSubtype(TypeNumber, red))
	assert.True(t, e.s.IsAssignable(TypeNumber, red))
}

func TestOptionsDoNotLeakThroughSharedCache(t *testing.T) {
	e := newEnv(t)
	loose := e.s.WithOptions(func() config.Options {
		o := config.DefaultOptions()
		o.StrictNullChecks = false
		return o
	}())
	target := e.obj(e.prop("name", TypeString))
	nullable := e.obj(e.prop("name", e.in.Union(TypeString, TypeNull)))

	assert.False(t, e.s.IsSubtype(nullable, target))
	assert.True(t, loose.IsSubtype(nullable, target))
	assert.False(t, e.s.IsSubtype(nullable, target))
	assert.Same(t, e.s.Caches(), loose.Caches())
}

func TestFlagsFromOptions(t *testing.T) {
	opts := config.DefaultOptions()
	f := FlagsFromOptions(opts)
	assert.True(t, f.Has(FlagStrictNullChecks))
	assert.True(t, f.Has(FlagStrictFunctionTypes))
	assert.False(t, f.Has(FlagAllowVoidReturn))

	opts.Rules.WeakTypes = false
	c := CompatFlags(opts)
	assert.True(t, c.Has(FlagAllowVoidReturn))
	assert.True(t, c.Has(FlagNoWeakTypes))
	assert.False(t, c.Has(FlagNoEnumNominality))
}
