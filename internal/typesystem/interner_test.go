package typesystem

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIsStructural(t *testing.T) {
	e := newEnv(t)
	in := e.in

	a := e.obj(e.prop("x", TypeNumber), e.prop("y", TypeString))
	b := e.obj(e.prop("y", TypeString), e.prop("x", TypeNumber))
	assert.Equal(t, a, b, "property order must not matter")

	assert.Equal(t, e.str("hi"), e.str("hi"))
	assert.NotEqual(t, e.str("1"), e.num(1))
	assert.Equal(t, TypeTrue, in.LiteralBoolean(true))
	assert.Equal(t, TypeFalse, in.Intern(Literal{Base: LitBoolean}))
	assert.Equal(t, in.Array(TypeNumber), in.Array(TypeNumber))
	assert.NotEqual(t, in.Array(TypeNumber), in.Array(TypeString))
	assert.GreaterOrEqual(t, uint32(a), uint32(FirstUserType))
}

func TestLookupReserved(t *testing.T) {
	in := NewInterner()

	d, ok := in.Lookup(TypeString)
	require.True(t, ok)
	assert.Equal(t, Intrinsic{ID: TypeString}, d)

	d, ok = in.Lookup(TypeTrue)
	require.True(t, ok)
	assert.Equal(t, Literal{Base: LitBoolean, Bool: true}, d)

	_, ok = in.Lookup(TypeNone)
	assert.False(t, ok)
	_, ok = in.Lookup(TypeID(5000))
	assert.False(t, ok)
}

func TestCanonicalNumbers(t *testing.T) {
	in := NewInterner()
	assert.Equal(t, in.LiteralNumber(0), in.LiteralNumber(math.Copysign(0, -1)))
	assert.Equal(t, in.LiteralNumber(math.NaN()), in.LiteralNumber(math.NaN()))
	assert.Equal(t, in.LiteralBigInt("007"), in.LiteralBigInt("7n"))
}

func TestConcurrentIntern(t *testing.T) {
	in := NewInterner()
	const workers, n = 8, 200
	results := make([][]TypeID, workers)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]TypeID, n)
			for i := range n {
				ids[i] = in.Object([]Property{{
					Name: in.InternString(fmt.Sprintf("p%d", i)),
					Type: in.LiteralNumber(float64(i)),
				}})
			}
			results[w] = ids
		}()
	}
	wg.Wait()

	for w := 1; w < workers; w++ {
		assert.Equal(t, results[0], results[w])
	}
}

func TestObjectPropertyIndex(t *testing.T) {
	tests := []struct {
		name  string
		count int
	}{
		{"linear", 5},
		{"indexed", 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			props := make([]Property, tt.count)
			for i := range props {
				props[i] = e.prop(fmt.Sprintf("field%02d", i), TypeNumber)
			}
			id := e.obj(props...)
			o, ok := lookupAs[Object](e.in, id)
			require.True(t, ok)

			for i := range tt.count {
				name := e.in.InternString(fmt.Sprintf("field%02d", i))
				idx, ok := e.s.ObjectPropertyIndex(id, name)
				require.True(t, ok)
				assert.Equal(t, name, o.Properties[idx].Name)
			}
			_, ok = e.s.ObjectPropertyIndex(id, e.in.InternString("missing"))
			assert.False(t, ok)
		})
	}
}

func TestWidenClearsNestedFreshness(t *testing.T) {
	e := newEnv(t)
	inner := e.in.FreshObject([]Property{e.prop("x", TypeNumber)})
	tests := []struct {
		name string
		typ  TypeID
		want TypeID
	}{
		{"fresh literal", inner, e.obj(e.prop("x", TypeNumber))},
		{"nested literal", e.in.FreshObject([]Property{e.prop("o", inner)}), e.obj(e.prop("o", e.obj(e.prop("x", TypeNumber))))},
		{"nested under a widened outer", e.obj(e.prop("o", inner)), e.obj(e.prop("o", e.obj(e.prop("x", TypeNumber))))},
		{"union member", e.in.Union(inner, TypeString), e.in.Union(e.obj(e.prop("x", TypeNumber)), TypeString)},
		{"already widened", e.obj(e.prop("x", TypeNumber)), e.obj(e.prop("x", TypeNumber))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.in.Widen(tt.typ), "got %s", e.in.Format(e.in.Widen(tt.typ)))
		})
	}
}

func TestUnionNormalization(t *testing.T) {
	e := newEnv(t)
	in := e.in
	a, b := e.str("a"), e.str("b")

	tests := []struct {
		name string
		got  TypeID
		want TypeID
	}{
		{"empty is never", in.Union(), TypeNever},
		{"single member", in.Union(a), a},
		{"never dropped", in.Union(TypeNumber, TypeNever), TypeNumber},
		{"any absorbs", in.Union(a, TypeAny), TypeAny},
		{"unknown absorbs", in.Union(a, TypeUnknown), TypeUnknown},
		{"literal absorbed by primitive", in.Union(TypeString, a), TypeString},
		{"booleans collapse", in.Union(TypeTrue, TypeFalse), TypeBoolean},
		{"order insensitive", in.Union(b, a), in.Union(a, b)},
		{"flattened", in.Union(a, in.Union(b, TypeNumber)), in.Union(a, b, TypeNumber)},
		{"duplicates", in.Union(a, a, b), in.Union(a, b)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got, "got %s want %s", in.Format(tt.got), in.Format(tt.want))
		})
	}
}

func TestIntersectionNormalization(t *testing.T) {
	e := newEnv(t)
	in := e.in
	a := e.str("a")
	o := e.obj(e.prop("x", TypeNumber))

	tests := []struct {
		name string
		got  TypeID
		want TypeID
	}{
		{"empty is unknown", in.Intersection(), TypeUnknown},
		{"unknown dropped", in.Intersection(o, TypeUnknown), o},
		{"never absorbs", in.Intersection(o, TypeNever), TypeNever},
		{"disjoint primitives", in.Intersection(TypeString, TypeNumber), TypeNever},
		{"distinct literals", in.Intersection(a, e.str("b")), TypeNever},
		{"literal narrows primitive", in.Intersection(a, TypeString), a},
		{"void and undefined", in.Intersection(TypeVoid, TypeUndefined), TypeUndefined},
		{"null and undefined", in.Intersection(TypeNull, TypeUndefined), TypeNever},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
