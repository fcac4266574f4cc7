package typesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAreOverlapping(t *testing.T) {
	e := newEnv(t)
	color := e.defs.Declare("Color")
	size := e.defs.Declare("Size")
	e.defs.SetBoxed(TypeString, e.obj(e.prop("length", TypeNumber)))

	kindA := e.obj(e.prop("kind", e.str("a")), e.prop("x", TypeNumber))
	kindB := e.obj(e.prop("kind", e.str("b")), e.prop("y", TypeNumber))
	optB := e.obj(e.optional("kind", e.str("b")))

	tests := []struct {
		name string
		a, b TypeID
		want bool
	}{
		{"same primitive", TypeString, TypeString, true},
		{"disjoint primitives", TypeString, TypeNumber, false},
		{"literal and base", e.str("a"), TypeString, true},
		{"distinct literals", e.str("a"), e.str("b"), false},
		{"equal literals", e.num(1), e.num(1), true},
		{"never", TypeNever, TypeNever, false},
		{"any", TypeAny, TypeNumber, true},
		{"unknown", TypeUnknown, TypeNull, true},
		{"null and undefined", TypeNull, TypeUndefined, false},
		{"union member", e.in.Union(TypeString, TypeNumber), TypeNumber, true},
		{"disjoint unions", e.in.Union(e.str("a"), e.str("b")), e.in.Union(e.str("c"), TypeNumber), false},
		{"template prefixes", e.template("foo", TypeString), e.template("bar", TypeString), false},
		{"template prefix shared", e.template("foo", TypeString), e.template("foo", TypeNumber), true},
		{"template suffixes", e.template(TypeString, ".ts"), e.template(TypeString, ".js"), false},
		{"literal in template", e.str("foo1"), e.template("foo", TypeNumber), true},
		{"literal outside template", e.str("bar"), e.template("foo", TypeString), false},
		{"uppercase literal", e.str("ABC"), e.in.StringIntrinsic(OpUppercase, TypeString), true},
		{"lowercase literal", e.str("abc"), e.in.StringIntrinsic(OpUppercase, TypeString), false},
		{"discriminants differ", kindA, kindB, false},
		{"optional discriminant", kindA, optB, true},
		{"objects without conflicts", e.obj(e.prop("x", TypeNumber)), e.obj(e.prop("y", TypeString)), true},
		{"object and object keyword", kindA, TypeObject, true},
		{"primitive and object keyword", TypeString, TypeObject, false},
		{"string and its apparent shape", TypeString, e.obj(e.prop("length", TypeNumber)), true},
		{"string and foreign shape", TypeString, e.obj(e.prop("foo", TypeNumber)), false},
		{"distinct enums", e.in.Enum(color, e.num(0)), e.in.Enum(size, e.num(0)), false},
		{"enum and its value", e.in.Enum(color, e.num(0)), e.num(0), true},
		{"unconstrained parameter", e.in.TypeParam("T", TypeNone), TypeString, true},
		{"constrained parameter", e.in.TypeParam("N", TypeNumber), TypeString, false},
		{"intersection", e.in.Intersection(kindA, e.obj(e.prop("z", TypeBoolean))), kindB, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.s.AreOverlapping(tt.a, tt.b))
			assert.Equal(t, tt.want, e.s.AreOverlapping(tt.b, tt.a), "symmetric")
		})
	}
}
