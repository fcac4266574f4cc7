package typesystem

import (
	"slices"
	"strings"
)

// Construction API. Every constructor normalizes before interning, so callers
// never hold a non-normal composite.

func (in *Interner) LiteralString(s string) TypeID {
	return in.Intern(Literal{Base: LitString, Text: in.InternString(s)})
}

func (in *Interner) LiteralNumber(f float64) TypeID {
	return in.Intern(Literal{Base: LitNumber, Num: f})
}

func (in *Interner) LiteralBoolean(b bool) TypeID {
	if b {
		return TypeTrue
	}
	return TypeFalse
}

// LiteralBigInt interns a bigint literal from its decimal digits ("10", "-3", "7n").
func (in *Interner) LiteralBigInt(digits string) TypeID {
	digits = strings.TrimSuffix(digits, "n")
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimLeft(strings.TrimPrefix(digits, "-"), "0")
	if digits == "" {
		digits, neg = "0", false
	}
	if neg {
		digits = "-" + digits
	}
	return in.Intern(Literal{Base: LitBigInt, Text: in.InternString(digits)})
}

func (in *Interner) Array(element TypeID) TypeID {
	return in.Intern(Array{Element: element})
}

func (in *Interner) Tuple(elements []TupleElement) TypeID {
	return in.Intern(Tuple{Elements: slices.Clone(elements)})
}

// Object interns a plain object shape with the given properties.
func (in *Interner) Object(props []Property) TypeID {
	return in.ObjectWithIndex(Object{Properties: props})
}

// FreshObject interns an object-literal shape subject to excess property checks.
func (in *Interner) FreshObject(props []Property) TypeID {
	return in.ObjectWithIndex(Object{Properties: props, Flags: ObjectFresh})
}

// ObjectWithIndex interns a full object shape. Properties are sorted by name;
// a later duplicate replaces an earlier one.
func (in *Interner) ObjectWithIndex(shape Object) TypeID {
	shape.Properties = normalizeProperties(shape.Properties)
	shape.StringIndex = cloneIndex(shape.StringIndex)
	shape.NumberIndex = cloneIndex(shape.NumberIndex)
	return in.Intern(shape)
}

func normalizeProperties(props []Property) []Property {
	if len(props) == 0 {
		return nil
	}
	out := make([]Property, 0, len(props))
	for _, p := range props {
		if i, ok := findProperty(out, p.Name); ok {
			out[i] = p
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Property) int { return int(a.Name) - int(b.Name) })
	return out
}

func cloneIndex(sig *IndexSignature) *IndexSignature {
	if sig == nil {
		return nil
	}
	c := *sig
	return &c
}

func (in *Interner) Function(fn Function) TypeID {
	fn.TypeParams = slices.Clone(fn.TypeParams)
	fn.Params = slices.Clone(fn.Params)
	if fn.Predicate != nil {
		p := *fn.Predicate
		fn.Predicate = &p
	}
	if fn.Return == TypeNone {
		fn.Return = TypeVoid
	}
	return in.Intern(fn)
}

func (in *Interner) Callable(c Callable) TypeID {
	c.Call = slices.Clone(c.Call)
	c.Construct = slices.Clone(c.Construct)
	c.Properties = normalizeProperties(c.Properties)
	c.StringIndex = cloneIndex(c.StringIndex)
	c.NumberIndex = cloneIndex(c.NumberIndex)
	return in.Intern(c)
}

func (in *Interner) TypeParameter(tp TypeParameter) TypeID {
	return in.Intern(tp)
}

// TypeParam is a shorthand for an unannotated type parameter with an optional constraint.
func (in *Interner) TypeParam(name string, constraint TypeID) TypeID {
	return in.Intern(TypeParameter{Name: in.InternString(name), Constraint: constraint})
}

func (in *Interner) Lazy(def DefID) TypeID {
	return in.Intern(Lazy{Def: def})
}

// Enum interns the member of enum def whose value is the literal member.
func (in *Interner) Enum(def DefID, member TypeID) TypeID {
	return in.Intern(Enum{Def: def, Member: member})
}

func (in *Interner) Application(base TypeID, args ...TypeID) TypeID {
	return in.Intern(Application{Base: base, Args: slices.Clone(args)})
}

// Conditional interns `check extends ext ? t : f`. It is distributive exactly
// when check is a naked type parameter.
func (in *Interner) Conditional(check, ext, t, f TypeID) TypeID {
	return in.ConditionalWith(Conditional{
		Check:        check,
		Extends:      ext,
		True:         t,
		False:        f,
		Distributive: in.KindOf(check) == KindTypeParameter,
	})
}

// ConditionalWith interns a conditional with an explicit distributive flag.
func (in *Interner) ConditionalWith(c Conditional) TypeID {
	return in.Intern(c)
}

func (in *Interner) Mapped(m Mapped) TypeID {
	return in.Intern(m)
}

func (in *Interner) IndexAccess(object, index TypeID) TypeID {
	return in.Intern(IndexAccess{Object: object, Index: index})
}

func (in *Interner) KeyOf(inner TypeID) TypeID {
	return in.Intern(KeyOf{Inner: inner})
}

func (in *Interner) TypeQuery(sym SymbolRef) TypeID {
	return in.Intern(TypeQuery{Symbol: sym})
}

func (in *Interner) UniqueSymbol(sym SymbolRef) TypeID {
	return in.Intern(UniqueSymbol{Symbol: sym})
}

func (in *Interner) Infer(param TypeID) TypeID {
	return in.Intern(Infer{Param: param})
}

func (in *Interner) Readonly(inner TypeID) TypeID {
	if in.KindOf(inner) == KindReadonly || inner.IsReserved() {
		return inner
	}
	return in.Intern(Readonly{Inner: inner})
}

func (in *Interner) StringIntrinsic(op StringOp, arg TypeID) TypeID {
	return in.Intern(StringIntrinsic{Op: op, Arg: arg})
}

func (in *Interner) ModuleNamespace(sym SymbolRef) TypeID {
	return in.Intern(ModuleNamespace{Symbol: sym})
}

func (in *Interner) NoInfer(inner TypeID) TypeID {
	if in.KindOf(inner) == KindNoInfer || inner.IsReserved() {
		return inner
	}
	return in.Intern(NoInfer{Inner: inner})
}

// Widen clears the freshness of an object literal type and of the object
// literals nested in its properties. A widened type is never fresh again.
func (in *Interner) Widen(id TypeID) TypeID {
	switch d, _ := in.Lookup(id); d := d.(type) {
	case Object:
		var props []Property
		for i, p := range d.Properties {
			if w := in.Widen(p.Type); w != p.Type {
				if props == nil {
					props = slices.Clone(d.Properties)
				}
				props[i].Type = w
			}
		}
		if props == nil && !d.IsFresh() {
			return id
		}
		if props != nil {
			d.Properties = props
		}
		d.Flags &^= ObjectFresh
		return in.Intern(d)
	case Union:
		members := make([]TypeID, len(d.Members))
		for i, m := range d.Members {
			members[i] = in.Widen(m)
		}
		return in.Union(members...)
	}
	return id
}

// WidenLiteral maps a literal type to its primitive.
func (in *Interner) WidenLiteral(id TypeID) TypeID {
	switch d, _ := in.Lookup(id); d := d.(type) {
	case Literal:
		return literalBase(d.Base)
	case Union:
		members := make([]TypeID, len(d.Members))
		for i, m := range d.Members {
			members[i] = in.WidenLiteral(m)
		}
		return in.Union(members...)
	case TemplateLiteral:
		return TypeString
	}
	return id
}

func literalBase(k LiteralKind) TypeID {
	switch k {
	case LitString:
		return TypeString
	case LitNumber:
		return TypeNumber
	case LitBigInt:
		return TypeBigint
	}
	return TypeBoolean
}

// IsLiteral reports whether id is a literal unit type (including true/false).
func (in *Interner) IsLiteral(id TypeID) bool {
	return in.KindOf(id) == KindLiteral
}

// isUnit accepts literals, enum members, unique symbols and the nullish intrinsics.
func (in *Interner) isUnit(id TypeID) bool {
	switch in.KindOf(id) {
	case KindLiteral, KindEnum, KindUniqueSymbol:
		return true
	}
	return id == TypeNull || id == TypeUndefined || id == TypeVoid
}
