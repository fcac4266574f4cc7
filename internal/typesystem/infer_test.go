package typesystem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) infer(params ...TypeID) *InferenceContext {
	return NewInferenceContext(e.in, e.defs, e.s.Caches(), FlagsFromOptions(e.s.Options()), params)
}

func TestInferencePriority(t *testing.T) {
	e := newEnv(t)
	tp := e.in.TypeParam("T", TypeNone)
	ctx := e.infer(tp)
	ctx.AddCandidate(tp, TypeString, PriorityReturnType)
	ctx.AddCandidate(tp, TypeNumber, PriorityArgument)
	got, err := ctx.Resolve(tp)
	require.NoError(t, err)
	assert.Equal(t, TypeNumber, got)

	ctx = e.infer(tp)
	ctx.AddCandidate(tp, TypeString, PriorityReturnType)
	ctx.AddCandidate(tp, TypeNumber, PriorityReturnType)
	got, err = ctx.Resolve(tp)
	require.NoError(t, err)
	assert.Equal(t, e.in.Union(TypeString, TypeNumber), got, "return type evidence unites")
}

func TestConstParameterPromotesArguments(t *testing.T) {
	e := newEnv(t)
	tp := e.in.TypeParameter(TypeParameter{Name: e.in.InternString("T"), Const: true})
	ctx := e.infer(tp)
	ctx.AddCandidate(tp, e.str("a"), PriorityArgument)
	assert.Equal(t, PriorityLiteral, ctx.info[tp].candidates[0].priority)
	got, err := ctx.Resolve(tp)
	require.NoError(t, err)
	assert.Equal(t, e.str("a"), got)

	ctx = e.infer(tp)
	ctx.AddCandidate(tp, e.str("a"), PriorityArgument)
	ctx.AddCandidate(tp, e.str("b"), PriorityArgument)
	got, err = ctx.Resolve(tp)
	require.NoError(t, err)
	assert.Equal(t, e.in.Union(e.str("a"), e.str("b")), got, "const literals are not widened")
}

func TestCommonSupertype(t *testing.T) {
	e := newEnv(t)
	class := func(name string, base DefID) (DefID, TypeID) {
		d := e.defs.Declare(name)
		if base != 0 {
			e.defs.SetBase(d, base)
		}
		return d, e.in.Lazy(d)
	}
	animalDef, animal := class("Animal", 0)
	dogDef, dog := class("Dog", animalDef)
	_, cat := class("Cat", animalDef)
	_, puppy := class("Puppy", dogDef)
	_, rock := class("Rock", 0)
	tests := []struct {
		name       string
		constraint TypeID
		cands      []TypeID
		want       TypeID
	}{
		{"single literal kept", TypeNone, []TypeID{e.num(1)}, e.num(1)},
		{"literals widen", TypeNone, []TypeID{e.num(1), e.num(2)}, TypeNumber},
		{"bound keeps literals", e.in.Union(e.num(1), e.num(2)), []TypeID{e.num(1), e.num(2)}, e.in.Union(e.num(1), e.num(2))},
		{"covering candidate", TypeNone, []TypeID{e.str("a"), TypeString}, TypeString},
		{"mixed primitives", TypeNone, []TypeID{TypeString, TypeNumber}, e.in.Union(TypeString, TypeNumber)},
		{"class siblings", TypeNone, []TypeID{dog, cat}, animal},
		{"deeper sibling", TypeNone, []TypeID{puppy, cat}, animal},
		{"unrelated classes", TypeNone, []TypeID{dog, rock}, e.in.Union(dog, rock)},
		{
			"plain shapes unite", TypeNone,
			[]TypeID{
				e.obj(e.prop("a", TypeString), e.prop("b", TypeNumber)),
				e.obj(e.prop("a", TypeNumber), e.prop("c", TypeBoolean)),
			},
			e.in.Union(
				e.obj(e.prop("a", TypeString), e.prop("b", TypeNumber)),
				e.obj(e.prop("a", TypeNumber), e.prop("c", TypeBoolean)),
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := e.in.TypeParam("T", tt.constraint)
			ctx := e.infer(tp)
			for _, c := range tt.cands {
				ctx.AddCandidate(tp, c, PriorityArgument)
			}
			got, err := ctx.Resolve(tp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "got %s", e.in.Format(got))
		})
	}
}

func TestInferenceFallbacks(t *testing.T) {
	e := newEnv(t)

	lower := e.in.TypeParam("L", TypeNone)
	ctx := e.infer(lower)
	ctx.AddLowerBound(lower, TypeString)
	got, err := ctx.Resolve(lower)
	require.NoError(t, err)
	assert.Equal(t, TypeString, got)

	def := e.in.TypeParameter(TypeParameter{Name: e.in.InternString("D"), Default: TypeNumber})
	got, err = e.infer(def).Resolve(def)
	require.NoError(t, err)
	assert.Equal(t, TypeNumber, got)

	bounded := e.in.TypeParam("B", TypeString)
	got, err = e.infer(bounded).Resolve(bounded)
	require.NoError(t, err)
	assert.Equal(t, TypeString, got)

	free := e.in.TypeParam("F", TypeNone)
	got, err = e.infer(free).Resolve(free)
	require.NoError(t, err)
	assert.Equal(t, TypeUnknown, got)
}

func TestBoundsViolation(t *testing.T) {
	e := newEnv(t)
	tp := e.in.TypeParam("T", TypeString)
	ctx := e.infer(tp)
	ctx.AddCandidate(tp, TypeNumber, PriorityArgument)

	got, err := ctx.Resolve(tp)
	require.Error(t, err)
	assert.Equal(t, TypeNumber, got)
	assert.ErrorIs(t, err, ErrBoundsViolation)

	var ie *InferenceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, BoundsViolation, ie.Kind)
	assert.Equal(t, "T", ie.Param)
	assert.Equal(t, "string", ie.Bound)

	ctx.AddUpperBound(tp, TypeNumber)
	_, err = ctx.ResolveAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inferring T")
}

func TestInferFromStructure(t *testing.T) {
	e := newEnv(t)
	tp := e.in.TypeParam("T", TypeNone)
	up := e.in.TypeParam("U", TypeNone)

	tests := []struct {
		name           string
		source, target TypeID
		param          TypeID
		want           TypeID
	}{
		{"array", e.in.Array(TypeNumber), e.in.Array(tp), tp, TypeNumber},
		{"tuple to array", e.tuple(TypeString, TypeString), e.in.Array(tp), tp, TypeString},
		{"property", e.obj(e.prop("x", TypeString)), e.obj(e.prop("x", tp)), tp, TypeString},
		{"parameter", e.fn(TypeVoid, TypeBoolean), e.fn(TypeVoid, tp), tp, TypeBoolean},
		{"return", e.fn(TypeBigint), e.fn(tp), tp, TypeBigint},
		{"second tuple slot", e.tuple(TypeString, TypeNumber), e.tuple(tp, up), up, TypeNumber},
		{"union strips matched members", e.in.Union(TypeString, TypeUndefined), e.in.Union(tp, TypeUndefined), tp, TypeString},
		{"readonly", e.in.Readonly(e.in.Array(TypeNumber)), e.in.Readonly(e.in.Array(tp)), tp, TypeNumber},
		{"no inference through NoInfer", TypeString, e.in.NoInfer(tp), tp, TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := e.infer(tp, up)
			ctx.InferFromTypes(tt.source, tt.target, PriorityArgument)
			got, err := ctx.Resolve(tt.param)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "got %s", e.in.Format(got))
		})
	}
}

func TestInferFromTemplateHoles(t *testing.T) {
	e := newEnv(t)
	n := e.in.TypeParam("N", TypeNumber)
	ctx := e.infer(n)
	ctx.InferFromTypes(e.str("10px"), e.template(n, "px"), PriorityArgument)
	got, err := ctx.Resolve(n)
	require.NoError(t, err)
	assert.Equal(t, e.num(10), got)

	s := e.in.TypeParam("S", TypeNone)
	ctx = e.infer(s)
	ctx.InferFromTypes(e.str("get_name"), e.template("get_", s), PriorityArgument)
	got, err = ctx.Resolve(s)
	require.NoError(t, err)
	assert.Equal(t, e.str("name"), got)
}

func TestSolverInferGeneric(t *testing.T) {
	e := newEnv(t)
	tp := e.in.TypeParam("T", TypeNone)
	pair := e.in.Function(Function{
		TypeParams: []TypeID{tp},
		Params: []Param{
			{Name: e.in.InternString("x"), Type: tp},
			{Name: e.in.InternString("y"), Type: tp},
		},
		Return: tp,
	})

	got, err := e.s.InferGeneric(pair, []TypeID{e.num(1), e.num(2)})
	require.NoError(t, err)
	assert.Equal(t, []TypeID{TypeNumber}, got)

	_, err = e.s.InferGeneric(pair, []TypeID{e.num(1)})
	var ie *InferenceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ArityMismatch, ie.Kind)
	assert.False(t, errors.Is(err, ErrBoundsViolation))

	_, err = e.s.InferGeneric(TypeString, nil)
	require.Error(t, err)
}

func TestSolverInferDependentConstraint(t *testing.T) {
	e := newEnv(t)
	obj := e.in.TypeParam("O", TypeNone)
	key := e.in.TypeParam("K", e.in.KeyOf(obj))
	get := e.in.Function(Function{
		TypeParams: []TypeID{obj, key},
		Params: []Param{
			{Name: e.in.InternString("obj"), Type: obj},
			{Name: e.in.InternString("key"), Type: key},
		},
		Return: e.in.IndexAccess(obj, key),
	})
	point := e.obj(e.prop("a", TypeString))

	got, err := e.s.InferGeneric(get, []TypeID{point, e.str("a")})
	require.NoError(t, err)
	assert.Equal(t, []TypeID{point, e.str("a")}, got)

	_, err = e.s.InferGeneric(get, []TypeID{point, e.str("b")})
	assert.ErrorIs(t, err, ErrBoundsViolation)
}

func TestSolverInferWithContextualReturn(t *testing.T) {
	e := newEnv(t)
	tp := e.in.TypeParam("T", TypeNone)
	empty := e.in.Function(Function{TypeParams: []TypeID{tp}, Return: e.in.Array(tp)})

	got, err := e.s.InferGenericWithReturn(empty, nil, e.in.Array(TypeString))
	require.NoError(t, err)
	assert.Equal(t, []TypeID{TypeString}, got)

	got, err = e.s.InferGeneric(empty, nil)
	require.NoError(t, err)
	assert.Equal(t, []TypeID{TypeUnknown}, got)
}
