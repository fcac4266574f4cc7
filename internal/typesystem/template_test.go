package typesystem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateConstruction(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, e.str("ab"), e.template("a", e.str("b")))
	assert.Equal(t, e.str("n=1.5"), e.template("n=", e.num(1.5)))
	assert.Equal(t, TypeString, e.template(TypeString))
	assert.Equal(t, TypeNever, e.template("x", TypeNever))
	assert.Equal(t, e.str(""), e.template())

	inner := e.template("b", TypeNumber)
	assert.Equal(t, e.template("ab", TypeNumber, "c"), e.template("a", inner, "c"))
}

func TestMatchesTemplate(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		tmpl TypeID
		text string
		want bool
	}{
		{"prefix", e.template("foo_", TypeString), "foo_bar", true},
		{"prefix mismatch", e.template("foo_", TypeString), "bar_foo", false},
		{"empty string hole", e.template("foo_", TypeString), "foo_", true},
		{"number hole", e.template(TypeNumber, "px"), "10px", true},
		{"exponent", e.template(TypeNumber, "px"), "1e3px", true},
		{"empty number hole", e.template(TypeNumber, "px"), "px", false},
		{"non-numeric", e.template(TypeNumber, "px"), "tenpx", false},
		{"boolean hole", e.template("is-", TypeBoolean), "is-true", true},
		{"boolean mismatch", e.template("is-", TypeBoolean), "is-yes", false},
		{"bigint hole", e.template(TypeBigint, "n"), "123n", true},
		{"union hole", e.template(e.in.Union(e.str("a"), e.str("b")), TypeNumber), "b7", true},
		{"adjacent holes", e.template(TypeString, TypeNumber), "x1", true},
		{"adjacent holes need a char each", e.template(TypeString, TypeNumber), "1", false},
		{"negative number", e.template("foo_", TypeNumber), "foo_-1.5", true},
		{"inf", e.template("foo_", TypeNumber), "foo_inf", false},
		{"Infinity", e.template("foo_", TypeNumber), "foo_Infinity", false},
		{"signed Inf", e.template("foo_", TypeNumber), "foo_+Inf", false},
		{"lowercase infinity", e.template("foo_", TypeNumber), "foo_infinity", false},
		{"NaN", e.template("foo_", TypeNumber), "foo_NaN", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.in.MatchesTemplate(tt.text, tt.tmpl))
		})
	}
}

func TestTemplateExpansion(t *testing.T) {
	e := newEnv(t)
	ab := e.in.Union(e.str("a"), e.str("b"))
	xy := e.in.Union(e.str("x"), e.str("y"))

	got := e.s.Evaluate(e.template(ab, "-", xy))
	want := e.in.Union(e.str("a-x"), e.str("a-y"), e.str("b-x"), e.str("b-y"))
	assert.Equal(t, want, got)

	got = e.s.Evaluate(e.template("is-", TypeBoolean))
	assert.Equal(t, e.in.Union(e.str("is-false"), e.str("is-true")), got)

	open := e.template(ab, TypeNumber)
	assert.Equal(t, open, e.s.Evaluate(open))
}

func TestTemplateSubtyping(t *testing.T) {
	e := newEnv(t)
	fooStr := e.template("foo", TypeString)
	fooNum := e.template("foo", TypeNumber)

	assert.True(t, e.s.IsSubtype(e.str("foo_bar"), fooStr))
	assert.False(t, e.s.IsSubtype(e.str("bar"), fooStr))
	assert.True(t, e.s.IsSubtype(e.str("foo12"), fooNum))
	assert.False(t, e.s.IsSubtype(e.str("fooX"), fooNum))
	assert.False(t, e.s.IsSubtype(e.str("fooInfinity"), fooNum))
	assert.True(t, e.s.IsSubtype(fooNum, fooStr))
	assert.False(t, e.s.IsSubtype(fooStr, fooNum))
	assert.True(t, e.s.IsSubtype(fooStr, TypeString))
	assert.False(t, e.s.IsSubtype(TypeString, fooStr))
}

func TestStringIntrinsics(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		op   StringOp
		arg  TypeID
		want TypeID
	}{
		{"uppercase", OpUppercase, e.str("abc"), e.str("ABC")},
		{"lowercase", OpLowercase, e.str("AbC"), e.str("abc")},
		{"capitalize", OpCapitalize, e.str("hello"), e.str("Hello")},
		{"uncapitalize", OpUncapitalize, e.str("Hello"), e.str("hello")},
		{"empty", OpCapitalize, e.str(""), e.str("")},
		{"union", OpUppercase, e.in.Union(e.str("a"), e.str("b")), e.in.Union(e.str("A"), e.str("B"))},
		{"never", OpUppercase, TypeNever, TypeNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.s.Evaluate(e.in.StringIntrinsic(tt.op, tt.arg)))
		})
	}
}

func TestUppercaseTemplate(t *testing.T) {
	e := newEnv(t)
	upper := e.s.Evaluate(e.in.StringIntrinsic(OpUppercase, e.template("a", TypeString)))
	assert.True(t, e.in.MatchesTemplate("ABC", upper))
	assert.False(t, e.in.MatchesTemplate("Abc", upper))
	assert.True(t, e.s.IsSubtype(e.str("AB"), upper))
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, "1.5"},
		{0, "0"},
		{-3, "-3"},
		{1e21, "1e+21"},
		{1e-7, "1e-7"},
		{0.000001, "0.000001"},
		{123456789012, "123456789012"},
		{math.NaN(), "NaN"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.in))
	}
}
