package typesystem

import (
	"encoding/binary"
	"math"
)

// TypeKind tags the variant of a TypeData value.
type TypeKind uint8

const (
	KindIntrinsic TypeKind = iota + 1
	KindLiteral
	KindArray
	KindTuple
	KindObject
	KindUnion
	KindIntersection
	KindFunction
	KindCallable
	KindTypeParameter
	KindLazy
	KindEnum
	KindApplication
	KindConditional
	KindMapped
	KindIndexAccess
	KindKeyOf
	KindTemplateLiteral
	KindTypeQuery
	KindUniqueSymbol
	KindInfer
	KindReadonly
	KindStringIntrinsic
	KindModuleNamespace
	KindNoInfer
)

// TypeData is the structural payload of an interned type.
// Values are immutable once interned; slices returned by Lookup must not be modified.
type TypeData interface {
	Kind() TypeKind
	appendKey(b keyBuf) keyBuf
}

// Intrinsic is a built-in type living at a reserved id.
type Intrinsic struct {
	ID TypeID
}

type LiteralKind uint8

const (
	LitString LiteralKind = iota + 1
	LitNumber
	LitBoolean
	LitBigInt
)

// Literal is a unit type. Text holds string payloads and bigint digits.
type Literal struct {
	Base LiteralKind
	Text Atom
	Num  float64
	Bool bool
}

type Array struct {
	Element TypeID
}

// TupleElement describes one tuple slot. A rest element's Type is its element type.
type TupleElement struct {
	Type     TypeID
	Name     Atom
	Optional bool
	Rest     bool
}

type Tuple struct {
	Elements []TupleElement
}

type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	}
	return "public"
}

// Property is a named member of an object shape.
// WriteType is zero when the write type equals the read type.
// Parent is the declaring class for private and protected members.
type Property struct {
	Name       Atom
	Type       TypeID
	WriteType  TypeID
	Optional   bool
	Readonly   bool
	IsMethod   bool
	Visibility Visibility
	Parent     DefID
}

// IndexSignature maps a key type (string or number) to a value type.
type IndexSignature struct {
	Key      TypeID
	Value    TypeID
	Readonly bool
}

type ObjectFlags uint8

const (
	// ObjectFresh marks an object literal subject to excess property checks.
	ObjectFresh ObjectFlags = 1 << iota
)

// Object is an object shape. Properties are kept sorted by name atom.
// Symbol is the class whose instances have this shape, if any.
type Object struct {
	Properties  []Property
	StringIndex *IndexSignature
	NumberIndex *IndexSignature
	Flags       ObjectFlags
	Symbol      DefID
}

func (o Object) IsFresh() bool { return o.Flags&ObjectFresh != 0 }

type Union struct {
	Members []TypeID
}

type Intersection struct {
	Members []TypeID
}

type Param struct {
	Name     Atom
	Type     TypeID
	Optional bool
	Rest     bool
}

// Predicate is a `x is T` or `asserts x is T` return annotation.
type Predicate struct {
	Param   Atom
	Type    TypeID
	Asserts bool
}

// Function is a single call or construct signature.
// TypeParams holds TypeParameter ids; This is zero when no `this` type is declared.
// A rest parameter's Type is its element type.
type Function struct {
	TypeParams    []TypeID
	Params        []Param
	This          TypeID
	Return        TypeID
	Predicate     *Predicate
	IsConstructor bool
	IsMethod      bool
}

// Callable is an overloaded callable/constructable shape, typically a class constructor.
// Visibility applies to the constructor.
type Callable struct {
	Call        []TypeID
	Construct   []TypeID
	Properties  []Property
	StringIndex *IndexSignature
	NumberIndex *IndexSignature
	Symbol      DefID
	Visibility  Visibility
	Abstract    bool
}

type TypeParameter struct {
	Name       Atom
	Constraint TypeID
	Default    TypeID
	Const      bool
}

// Lazy is a reference to a named definition resolved on demand.
type Lazy struct {
	Def DefID
}

// Enum is an enum member: nominal identity (Def) paired with its literal value.
type Enum struct {
	Def    DefID
	Member TypeID
}

type Application struct {
	Base TypeID
	Args []TypeID
}

// Conditional is `Check extends Extends ? True : False`. Distributive is fixed
// at construction: it is set when Check is a naked type parameter.
type Conditional struct {
	Check        TypeID
	Extends      TypeID
	True         TypeID
	False        TypeID
	Distributive bool
}

type MappedModifier int8

const (
	ModifierNone MappedModifier = iota
	ModifierAdd
	ModifierRemove
)

// Mapped is `{ [Param in Constraint as NameType]: Template }`.
type Mapped struct {
	Param      TypeID
	Constraint TypeID
	NameType   TypeID
	Template   TypeID
	Readonly   MappedModifier
	Optional   MappedModifier
}

type IndexAccess struct {
	Object TypeID
	Index  TypeID
}

type KeyOf struct {
	Inner TypeID
}

// TemplateSpan is either literal text (Type == TypeNone) or an interpolated hole.
type TemplateSpan struct {
	Text Atom
	Type TypeID
}

func (s TemplateSpan) IsText() bool { return s.Type == TypeNone }

type TemplateLiteral struct {
	Spans []TemplateSpan
}

type TypeQuery struct {
	Symbol SymbolRef
}

type UniqueSymbol struct {
	Symbol SymbolRef
}

// Infer is an `infer X` placeholder; Param is the TypeParameter it binds.
type Infer struct {
	Param TypeID
}

type Readonly struct {
	Inner TypeID
}

type StringOp uint8

const (
	OpUppercase StringOp = iota + 1
	OpLowercase
	OpCapitalize
	OpUncapitalize
)

var stringOpNames = map[StringOp]string{
	OpUppercase:    "Uppercase",
	OpLowercase:    "Lowercase",
	OpCapitalize:   "Capitalize",
	OpUncapitalize: "Uncapitalize",
}

func (op StringOp) String() string { return stringOpNames[op] }

type StringIntrinsic struct {
	Op  StringOp
	Arg TypeID
}

type ModuleNamespace struct {
	Symbol SymbolRef
}

type NoInfer struct {
	Inner TypeID
}

func (Intrinsic) Kind() TypeKind       { return KindIntrinsic }
func (Literal) Kind() TypeKind         { return KindLiteral }
func (Array) Kind() TypeKind           { return KindArray }
func (Tuple) Kind() TypeKind           { return KindTuple }
func (Object) Kind() TypeKind          { return KindObject }
func (Union) Kind() TypeKind           { return KindUnion }
func (Intersection) Kind() TypeKind    { return KindIntersection }
func (Function) Kind() TypeKind        { return KindFunction }
func (Callable) Kind() TypeKind        { return KindCallable }
func (TypeParameter) Kind() TypeKind   { return KindTypeParameter }
func (Lazy) Kind() TypeKind            { return KindLazy }
func (Enum) Kind() TypeKind            { return KindEnum }
func (Application) Kind() TypeKind     { return KindApplication }
func (Conditional) Kind() TypeKind     { return KindConditional }
func (Mapped) Kind() TypeKind          { return KindMapped }
func (IndexAccess) Kind() TypeKind     { return KindIndexAccess }
func (KeyOf) Kind() TypeKind           { return KindKeyOf }
func (TemplateLiteral) Kind() TypeKind { return KindTemplateLiteral }
func (TypeQuery) Kind() TypeKind       { return KindTypeQuery }
func (UniqueSymbol) Kind() TypeKind    { return KindUniqueSymbol }
func (Infer) Kind() TypeKind           { return KindInfer }
func (Readonly) Kind() TypeKind        { return KindReadonly }
func (StringIntrinsic) Kind() TypeKind { return KindStringIntrinsic }
func (ModuleNamespace) Kind() TypeKind { return KindModuleNamespace }
func (NoInfer) Kind() TypeKind         { return KindNoInfer }

// keyBuf accumulates the canonical binary key of a type value.
type keyBuf []byte

func (b keyBuf) kind(k TypeKind) keyBuf { return append(b, byte(k)) }
func (b keyBuf) u(v uint64) keyBuf      { return binary.AppendUvarint(b, v) }
func (b keyBuf) id(v TypeID) keyBuf     { return b.u(uint64(v)) }
func (b keyBuf) atom(v Atom) keyBuf     { return b.u(uint64(v)) }

func (b keyBuf) flag(v bool) keyBuf {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

func (b keyBuf) ids(v []TypeID) keyBuf {
	b = b.u(uint64(len(v)))
	for _, id := range v {
		b = b.id(id)
	}
	return b
}

// f64 writes a float with NaN and -0 canonicalised.
func (b keyBuf) f64(v float64) keyBuf {
	bits := math.Float64bits(v)
	switch {
	case math.IsNaN(v):
		bits = 0x7ff8000000000001
	case v == 0:
		bits = 0
	}
	return binary.LittleEndian.AppendUint64(b, bits)
}

func (b keyBuf) props(ps []Property) keyBuf {
	b = b.u(uint64(len(ps)))
	for _, p := range ps {
		b = b.atom(p.Name).id(p.Type).id(p.WriteType).
			flag(p.Optional).flag(p.Readonly).flag(p.IsMethod).
			u(uint64(p.Visibility)).u(uint64(p.Parent))
	}
	return b
}

func (b keyBuf) index(sig *IndexSignature) keyBuf {
	if sig == nil {
		return append(b, 0)
	}
	return append(b, 1).id(sig.Key).id(sig.Value).flag(sig.Readonly)
}

func (t Intrinsic) appendKey(b keyBuf) keyBuf { return b.kind(KindIntrinsic).id(t.ID) }

func (t Literal) appendKey(b keyBuf) keyBuf {
	b = b.kind(KindLiteral).u(uint64(t.Base))
	switch t.Base {
	case LitNumber:
		return b.f64(t.Num)
	case LitBoolean:
		return b.flag(t.Bool)
	default:
		return b.atom(t.Text)
	}
}

func (t Array) appendKey(b keyBuf) keyBuf { return b.kind(KindArray).id(t.Element) }

func (t Tuple) appendKey(b keyBuf) keyBuf {
	b = b.kind(KindTuple).u(uint64(len(t.Elements)))
	for _, e := range t.Elements {
		b = b.id(e.Type).atom(e.Name).flag(e.Optional).flag(e.Rest)
	}
	return b
}

func (t Object) appendKey(b keyBuf) keyBuf {
	return b.kind(KindObject).props(t.Properties).
		index(t.StringIndex).index(t.NumberIndex).
		u(uint64(t.Flags)).u(uint64(t.Symbol))
}

func (t Union) appendKey(b keyBuf) keyBuf        { return b.kind(KindUnion).ids(t.Members) }
func (t Intersection) appendKey(b keyBuf) keyBuf { return b.kind(KindIntersection).ids(t.Members) }

func (t Function) appendKey(b keyBuf) keyBuf {
	b = b.kind(KindFunction).ids(t.TypeParams).u(uint64(len(t.Params)))
	for _, p := range t.Params {
		b = b.atom(p.Name).id(p.Type).flag(p.Optional).flag(p.Rest)
	}
	b = b.id(t.This).id(t.Return)
	if t.Predicate != nil {
		b = append(b, 1).atom(t.Predicate.Param).id(t.Predicate.Type).flag(t.Predicate.Asserts)
	} else {
		b = append(b, 0)
	}
	return b.flag(t.IsConstructor).flag(t.IsMethod)
}

func (t Callable) appendKey(b keyBuf) keyBuf {
	return b.kind(KindCallable).ids(t.Call).ids(t.Construct).props(t.Properties).
		index(t.StringIndex).index(t.NumberIndex).
		u(uint64(t.Symbol)).u(uint64(t.Visibility)).flag(t.Abstract)
}

func (t TypeParameter) appendKey(b keyBuf) keyBuf {
	return b.kind(KindTypeParameter).atom(t.Name).id(t.Constraint).id(t.Default).flag(t.Const)
}

func (t Lazy) appendKey(b keyBuf) keyBuf { return b.kind(KindLazy).u(uint64(t.Def)) }
func (t Enum) appendKey(b keyBuf) keyBuf { return b.kind(KindEnum).u(uint64(t.Def)).id(t.Member) }

func (t Application) appendKey(b keyBuf) keyBuf {
	return b.kind(KindApplication).id(t.Base).ids(t.Args)
}

func (t Conditional) appendKey(b keyBuf) keyBuf {
	return b.kind(KindConditional).id(t.Check).id(t.Extends).id(t.True).id(t.False).flag(t.Distributive)
}

func (t Mapped) appendKey(b keyBuf) keyBuf {
	return b.kind(KindMapped).id(t.Param).id(t.Constraint).id(t.NameType).id(t.Template).
		u(uint64(uint8(t.Readonly))).u(uint64(uint8(t.Optional)))
}

func (t IndexAccess) appendKey(b keyBuf) keyBuf {
	return b.kind(KindIndexAccess).id(t.Object).id(t.Index)
}

func (t KeyOf) appendKey(b keyBuf) keyBuf { return b.kind(KindKeyOf).id(t.Inner) }

func (t TemplateLiteral) appendKey(b keyBuf) keyBuf {
	b = b.kind(KindTemplateLiteral).u(uint64(len(t.Spans)))
	for _, s := range t.Spans {
		b = b.atom(s.Text).id(s.Type)
	}
	return b
}

func (t TypeQuery) appendKey(b keyBuf) keyBuf    { return b.kind(KindTypeQuery).u(uint64(t.Symbol)) }
func (t UniqueSymbol) appendKey(b keyBuf) keyBuf { return b.kind(KindUniqueSymbol).u(uint64(t.Symbol)) }
func (t Infer) appendKey(b keyBuf) keyBuf        { return b.kind(KindInfer).id(t.Param) }
func (t Readonly) appendKey(b keyBuf) keyBuf     { return b.kind(KindReadonly).id(t.Inner) }

func (t StringIntrinsic) appendKey(b keyBuf) keyBuf {
	return b.kind(KindStringIntrinsic).u(uint64(t.Op)).id(t.Arg)
}

func (t ModuleNamespace) appendKey(b keyBuf) keyBuf {
	return b.kind(KindModuleNamespace).u(uint64(t.Symbol))
}

func (t NoInfer) appendKey(b keyBuf) keyBuf { return b.kind(KindNoInfer).id(t.Inner) }
