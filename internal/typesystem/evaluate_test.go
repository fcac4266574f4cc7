package typesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/tsolve/internal/config"
)

func (e *env) abc() TypeID {
	return e.in.Union(e.str("a"), e.str("b"), e.str("c"))
}

// partial declares `type Partial<T> = { [K in keyof T]?: T[K] }`.
func (e *env) partial(mod MappedModifier) TypeID {
	def := e.defs.Declare("Mapped" + string(rune('0'+mod)))
	tp := e.in.TypeParam("T", TypeNone)
	k := e.in.TypeParam("K", e.in.KeyOf(tp))
	e.defs.Define(def, e.in.Mapped(Mapped{
		Param:      k,
		Constraint: e.in.KeyOf(tp),
		Template:   e.in.IndexAccess(tp, k),
		Optional:   mod,
	}), tp)
	return e.in.Lazy(def)
}

func TestExcludeAndExtract(t *testing.T) {
	e := newEnv(t)
	tp := e.in.TypeParam("T", TypeNone)
	up := e.in.TypeParam("U", TypeNone)
	exclude := e.in.Conditional(tp, up, TypeNever, tp)
	extract := e.in.Conditional(tp, up, tp, TypeNever)

	got := e.s.Evaluate(e.s.Instantiate(exclude, Subst{tp: e.abc(), up: e.str("a")}))
	assert.Equal(t, e.in.Union(e.str("b"), e.str("c")), got)

	mixed := e.in.Union(e.str("a"), e.num(1), TypeBoolean)
	got = e.s.Evaluate(e.s.Instantiate(extract, Subst{tp: mixed, up: TypeString}))
	assert.Equal(t, e.str("a"), got)

	got = e.s.Evaluate(e.s.Instantiate(exclude, Subst{tp: TypeNever, up: TypeString}))
	assert.Equal(t, TypeNever, got)
}

func TestNonDistributiveConditional(t *testing.T) {
	e := newEnv(t)
	tp := e.in.TypeParam("T", TypeNone)
	up := e.in.TypeParam("U", TypeNone)
	wrap := func(id TypeID) TypeID { return e.in.Tuple([]TupleElement{{Type: id}}) }
	cond := e.in.Conditional(wrap(tp), wrap(up), TypeNever, tp)
	require.False(t, lookupMust[Conditional](t, e.in, cond).Distributive)

	got := e.s.Evaluate(e.s.Instantiate(cond, Subst{tp: e.abc(), up: e.str("a")}))
	assert.Equal(t, e.abc(), got)
}

func TestConditionalDeferredWhileGeneric(t *testing.T) {
	e := newEnv(t)
	tp := e.in.TypeParam("T", TypeNone)
	cond := e.in.Conditional(tp, TypeString, e.str("yes"), e.str("no"))
	assert.Equal(t, cond, e.s.Evaluate(cond))
}

func TestConditionalOnAny(t *testing.T) {
	e := newEnv(t)
	cond := e.in.Conditional(TypeAny, TypeString, e.str("yes"), e.str("no"))
	assert.Equal(t, e.in.Union(e.str("yes"), e.str("no")), e.s.Evaluate(cond))
}

func TestInferInConditional(t *testing.T) {
	e := newEnv(t)
	el := e.in.TypeParam("E", TypeNone)
	elementOf := e.in.Conditional(e.in.Array(TypeString), e.in.Array(e.in.Infer(el)), el, TypeNever)
	assert.Equal(t, TypeString, e.s.Evaluate(elementOf))

	notArray := e.in.Conditional(TypeNumber, e.in.Array(e.in.Infer(el)), el, TypeNever)
	assert.Equal(t, TypeNever, e.s.Evaluate(notArray))

	r := e.in.TypeParam("R", TypeNone)
	anyFn := e.in.Function(Function{
		Params: []Param{{Name: e.in.InternString("args"), Type: TypeAny, Rest: true}},
		Return: e.in.Infer(r),
	})
	returnType := e.in.Conditional(e.fn(TypeString, TypeNumber), anyFn, r, TypeNever)
	assert.Equal(t, TypeString, e.s.Evaluate(returnType))
}

func TestInferFromTemplate(t *testing.T) {
	e := newEnv(t)
	h := e.in.TypeParam("H", TypeNone)
	r := e.in.TypeParam("R", TypeNone)
	pattern := e.template(e.in.Infer(h), "_", e.in.Infer(r))

	head := e.in.Conditional(e.str("foo_bar"), pattern, h, TypeNever)
	assert.Equal(t, e.str("foo"), e.s.Evaluate(head))
	rest := e.in.Conditional(e.str("foo_bar_baz"), pattern, r, TypeNever)
	assert.Equal(t, e.str("bar_baz"), e.s.Evaluate(rest))
	miss := e.in.Conditional(e.str("foobar"), pattern, h, e.str("none"))
	assert.Equal(t, e.str("none"), e.s.Evaluate(miss))
}

func TestMappedModifiers(t *testing.T) {
	e := newEnv(t)
	src := e.obj(e.prop("a", TypeString), e.prop("b", TypeNumber))

	got := e.s.Evaluate(e.in.Application(e.partial(ModifierAdd), src))
	assert.Equal(t, e.obj(e.optional("a", TypeString), e.optional("b", TypeNumber)), got)

	opt := e.obj(e.optional("a", e.in.Union(TypeString, TypeUndefined)))
	got = e.s.Evaluate(e.in.Application(e.partial(ModifierRemove), opt))
	assert.Equal(t, e.obj(e.prop("a", TypeString)), got)

	same := e.s.Evaluate(e.in.Application(e.partial(ModifierNone), src))
	assert.Equal(t, src, same)
}

func TestMappedOverArrays(t *testing.T) {
	e := newEnv(t)
	k := e.in.TypeParam("K", TypeNone)
	arr := e.in.Array(TypeString)
	ro := e.in.Mapped(Mapped{
		Param:      k,
		Constraint: e.in.KeyOf(arr),
		Template:   e.in.IndexAccess(arr, k),
		Readonly:   ModifierAdd,
	})
	assert.Equal(t, e.in.Readonly(arr), e.s.Evaluate(ro))

	tup := e.in.Tuple([]TupleElement{{Type: TypeString}, {Type: TypeNumber}})
	opt := e.in.Mapped(Mapped{
		Param:      k,
		Constraint: e.in.KeyOf(tup),
		Template:   e.in.IndexAccess(tup, k),
		Optional:   ModifierAdd,
	})
	want := e.in.Tuple([]TupleElement{{Type: TypeString, Optional: true}, {Type: TypeNumber, Optional: true}})
	assert.Equal(t, want, e.s.Evaluate(opt))
}

func TestMappedKeyRemapping(t *testing.T) {
	e := newEnv(t)
	src := e.obj(e.prop("a", TypeString), e.prop("b", TypeNumber))
	k := e.in.TypeParam("K", TypeNone)
	// { [K in keyof S as Exclude<K, "b">]: S[K] }
	omit := e.in.Mapped(Mapped{
		Param:      k,
		Constraint: e.in.KeyOf(src),
		NameType:   e.in.Conditional(k, e.str("b"), TypeNever, k),
		Template:   e.in.IndexAccess(src, k),
	})
	assert.Equal(t, e.obj(e.prop("a", TypeString)), e.s.Evaluate(omit))
}

func TestKeyOf(t *testing.T) {
	e := newEnv(t)
	ab := e.obj(e.prop("a", TypeString), e.prop("b", TypeNumber))
	bc := e.obj(e.prop("b", TypeString), e.prop("c", TypeNumber))
	dict := e.in.ObjectWithIndex(Object{StringIndex: &IndexSignature{Key: TypeString, Value: TypeNumber}})

	tests := []struct {
		name  string
		inner TypeID
		want  TypeID
	}{
		{"object", ab, e.in.Union(e.str("a"), e.str("b"))},
		{"union keeps common keys", e.in.Union(ab, bc), e.str("b")},
		{"intersection merges keys", e.in.Intersection(ab, bc), e.in.Union(e.str("a"), e.str("b"), e.str("c"))},
		{"array", e.in.Array(TypeString), e.in.Union(TypeNumber, e.str("length"))},
		{"string index", dict, e.in.Union(TypeString, TypeNumber)},
		{"any", TypeAny, e.in.Union(TypeString, TypeNumber, TypeSymbol)},
		{"unknown", TypeUnknown, TypeNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.s.Evaluate(e.in.KeyOf(tt.inner)))
		})
	}
}

func TestIndexAccess(t *testing.T) {
	e := newEnv(t)
	o := e.obj(e.prop("a", TypeString), e.optional("b", TypeNumber))
	dict := e.in.ObjectWithIndex(Object{StringIndex: &IndexSignature{Key: TypeString, Value: TypeBoolean}})
	tup := e.in.Tuple([]TupleElement{{Type: TypeString}, {Type: TypeNumber}})

	tests := []struct {
		name     string
		obj, idx TypeID
		want     TypeID
	}{
		{"property", o, e.str("a"), TypeString},
		{"optional property", o, e.str("b"), e.in.Union(TypeNumber, TypeUndefined)},
		{"union index", o, e.in.Union(e.str("a"), e.str("b")), e.in.Union(TypeString, TypeNumber, TypeUndefined)},
		{"missing", o, e.str("zzz"), TypeError},
		{"string index", dict, e.str("anything"), TypeBoolean},
		{"tuple element", tup, e.str("1"), TypeNumber},
		{"tuple number", tup, TypeNumber, e.in.Union(TypeString, TypeNumber)},
		{"array element", e.in.Array(TypeString), TypeNumber, TypeString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.s.Evaluate(e.in.IndexAccess(tt.obj, tt.idx)))
		})
	}
}

func TestNoUncheckedIndexedAccess(t *testing.T) {
	e := newEnv(t, func(o *config.Options) { o.NoUncheckedIndexedAccess = true })
	dict := e.in.ObjectWithIndex(Object{StringIndex: &IndexSignature{Key: TypeString, Value: TypeBoolean}})
	got := e.s.Evaluate(e.in.IndexAccess(dict, e.str("x")))
	assert.Equal(t, e.in.Union(TypeBoolean, TypeUndefined), got)
}

func TestApplicationDefaults(t *testing.T) {
	e := newEnv(t)
	box := e.defs.Declare("Box")
	tp := e.in.TypeParameter(TypeParameter{Name: e.in.InternString("T"), Default: TypeString})
	e.defs.Define(box, e.obj(e.prop("value", tp)), tp)

	assert.Equal(t, e.obj(e.prop("value", TypeNumber)), e.s.Evaluate(e.in.Application(e.in.Lazy(box), TypeNumber)))
	assert.Equal(t, e.obj(e.prop("value", TypeString)), e.s.Evaluate(e.in.Application(e.in.Lazy(box))))
}

func TestReadonlyObject(t *testing.T) {
	e := newEnv(t)
	o := e.obj(e.prop("a", TypeString))
	got := e.s.Evaluate(e.in.Readonly(o))
	p := lookupMust[Object](t, e.in, got).Properties
	require.Len(t, p, 1)
	assert.True(t, p[0].Readonly)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	e := newEnv(t)
	self := e.defs.Declare("Self")
	e.defs.Define(self, e.in.Lazy(self))
	src := e.obj(e.prop("a", TypeString), e.prop("b", TypeNumber))

	types := []TypeID{
		TypeString,
		e.abc(),
		e.in.KeyOf(src),
		e.in.IndexAccess(src, e.str("a")),
		e.in.Application(e.partial(ModifierAdd), src),
		e.template(e.abc(), TypeNumber),
		e.in.StringIntrinsic(OpUppercase, e.abc()),
		e.in.Readonly(e.in.Array(TypeString)),
		e.in.Lazy(self),
	}
	for _, typ := range types {
		once := e.s.Evaluate(typ)
		assert.Equal(t, once, e.s.Evaluate(once), e.in.Format(typ))
	}
}

func lookupMust[T TypeData](t *testing.T, in *Interner, id TypeID) T {
	t.Helper()
	d, ok := lookupAs[T](in, id)
	require.True(t, ok, "type %s has kind %v", in.Format(id), in.KindOf(id))
	return d
}
