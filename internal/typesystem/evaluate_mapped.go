package typesystem

import (
	"strconv"

	"github.com/funvibe/tsolve/internal/config"
)

func applyModifier(m MappedModifier, base bool) bool {
	switch m {
	case ModifierAdd:
		return true
	case ModifierRemove:
		return false
	}
	return base
}

func (e *Evaluator) evaluateMapped(t TypeID, m Mapped) TypeID {
	in := e.in
	constraint := e.Evaluate(m.Constraint)
	if in.IsGeneric(constraint) {
		return t
	}

	// Homomorphic mapped types copy modifiers from the mapped source and
	// map arrays and tuples element-wise.
	source := TypeNone
	if k, ok := lookupAs[KeyOf](in, m.Constraint); ok {
		source = e.Evaluate(k.Inner)
		if m.NameType == TypeNone {
			if r, ok := e.mapArrayLike(m, source); ok {
				return r
			}
		}
	}
	var srcShape shape
	if source != TypeNone {
		srcShape, _ = e.apparentShape(source)
	}

	keys := []TypeID{constraint}
	if u, ok := lookupAs[Union](in, constraint); ok {
		keys = u.Members
	}
	if constraint == TypeNever {
		keys = nil
	}
	if len(keys) > config.MaxMappedKeys {
		e.log.Debug("mapped type key limit reached", "keys", len(keys))
		return t
	}

	var out Object
	for _, k := range keys {
		sub := Subst{m.Param: k}
		name := k
		if m.NameType != TypeNone {
			name = e.Evaluate(Instantiate(in, e.caches, m.NameType, sub))
			if name == TypeNever {
				continue
			}
		}
		value := e.Evaluate(Instantiate(in, e.caches, m.Template, sub))
		switch name {
		case TypeString:
			out.StringIndex = &IndexSignature{Key: TypeString, Value: value, Readonly: applyModifier(m.Readonly, false)}
			continue
		case TypeNumber:
			out.NumberIndex = &IndexSignature{Key: TypeNumber, Value: value, Readonly: applyModifier(m.Readonly, false)}
			continue
		}
		text, ok := in.LiteralText(name)
		if !ok || in.family(name) == familyBoolean {
			continue
		}
		atom := in.InternString(text)
		optional, readonly := false, false
		if sp, found := in.property(srcShape, atom); found {
			optional, readonly = sp.Optional, sp.Readonly
		}
		optional = applyModifier(m.Optional, optional)
		readonly = applyModifier(m.Readonly, readonly)
		if m.Optional == ModifierRemove {
			value = e.removeUndefined(value)
		}
		out.Properties = append(out.Properties, Property{
			Name:     atom,
			Type:     value,
			Optional: optional,
			Readonly: readonly,
		})
	}
	return in.ObjectWithIndex(out)
}

func (e *Evaluator) mapArrayLike(m Mapped, source TypeID) (TypeID, bool) {
	in := e.in
	inner, readonly := source, false
	if r, ok := lookupAs[Readonly](in, source); ok {
		inner, readonly = r.Inner, true
	}
	readonly = applyModifier(m.Readonly, readonly)
	wrap := func(id TypeID) TypeID {
		if readonly {
			return in.Readonly(id)
		}
		return id
	}
	switch d, _ := in.Lookup(inner); d := d.(type) {
	case Array:
		return wrap(in.Array(e.Evaluate(Instantiate(in, e.caches, m.Template, Subst{m.Param: TypeNumber})))), true
	case Tuple:
		els := make([]TupleElement, len(d.Elements))
		for i, el := range d.Elements {
			key := TypeNumber
			if !el.Rest {
				key = in.LiteralString(strconv.Itoa(i))
			}
			els[i] = el
			els[i].Type = e.Evaluate(Instantiate(in, e.caches, m.Template, Subst{m.Param: key}))
			els[i].Optional = applyModifier(m.Optional, el.Optional) && !el.Rest
		}
		return wrap(in.Tuple(els)), true
	}
	return TypeNone, false
}

func (e *Evaluator) removeUndefined(t TypeID) TypeID {
	u, ok := lookupAs[Union](e.in, t)
	if !ok {
		if t == TypeUndefined {
			return TypeNever
		}
		return t
	}
	members := make([]TypeID, 0, len(u.Members))
	for _, m := range u.Members {
		if m != TypeUndefined {
			members = append(members, m)
		}
	}
	return e.in.Union(members...)
}

func (e *Evaluator) evaluateKeyOf(t TypeID, k KeyOf) TypeID {
	in := e.in
	inner := e.Evaluate(k.Inner)
	switch inner {
	case TypeAny, TypeNever:
		return in.Union(TypeString, TypeNumber, TypeSymbol)
	case TypeUnknown:
		return TypeNever
	}
	if in.IsGeneric(inner) || in.KindOf(inner) == KindLazy {
		if inner == k.Inner {
			return t
		}
		return in.KeyOf(inner)
	}
	return e.keysOf(inner)
}

func (e *Evaluator) keysOf(t TypeID) TypeID {
	in := e.in
	switch d, _ := in.Lookup(t); d := d.(type) {
	case Union:
		keys := make([]TypeID, len(d.Members))
		for i, m := range d.Members {
			keys[i] = e.keysOf(e.Evaluate(m))
		}
		return in.Intersection(keys...)
	case Intersection:
		keys := make([]TypeID, len(d.Members))
		for i, m := range d.Members {
			keys[i] = e.keysOf(e.Evaluate(m))
		}
		return in.Union(keys...)
	case Array:
		return in.Union(TypeNumber, in.LiteralString("length"))
	case Function:
		return TypeNever
	}
	s, ok := e.apparentShape(t)
	if !ok {
		return TypeNever
	}
	keys := make([]TypeID, 0, len(s.props)+2)
	for _, p := range s.props {
		if p.Visibility == Public {
			keys = append(keys, in.LiteralString(in.AtomText(p.Name)))
		}
	}
	if s.stringIndex != nil {
		keys = append(keys, TypeString, TypeNumber)
	}
	if s.numberIndex != nil {
		keys = append(keys, TypeNumber)
	}
	return in.Union(keys...)
}

func (e *Evaluator) evaluateIndexAccess(t TypeID, ia IndexAccess) TypeID {
	obj := e.Evaluate(ia.Object)
	idx := e.Evaluate(ia.Index)
	if e.in.IsGeneric(obj) || e.in.IsGeneric(idx) {
		if obj == ia.Object && idx == ia.Index {
			return t
		}
		return e.in.IndexAccess(obj, idx)
	}
	return e.indexType(obj, idx)
}

// indexType resolves obj[idx] on evaluated operands. A missing property
// yields the error type.
func (e *Evaluator) indexType(obj, idx TypeID) TypeID {
	in := e.in
	if u, ok := lookupAs[Union](in, idx); ok {
		out := make([]TypeID, len(u.Members))
		for i, m := range u.Members {
			out[i] = e.indexType(obj, m)
		}
		return in.Union(out...)
	}
	switch obj {
	case TypeAny, TypeError:
		return obj
	case TypeNever:
		return TypeNever
	}
	if u, ok := lookupAs[Union](in, obj); ok {
		out := make([]TypeID, len(u.Members))
		for i, m := range u.Members {
			out[i] = e.indexType(e.Evaluate(m), idx)
		}
		return in.Union(out...)
	}
	if r, ok := lookupAs[Readonly](in, obj); ok {
		obj = e.Evaluate(r.Inner)
	}

	unchecked := func(v TypeID) TypeID {
		if e.flags.Has(FlagNoUncheckedIndexedAccess) {
			return in.Union(v, TypeUndefined)
		}
		return v
	}

	if tup, ok := lookupAs[Tuple](in, obj); ok && idx == TypeNumber {
		elems := make([]TypeID, len(tup.Elements))
		for i, el := range tup.Elements {
			elems[i] = el.Type
		}
		return in.Union(elems...)
	}

	s, ok := e.apparentShape(obj)
	if !ok {
		return TypeError
	}
	text, isLit := in.LiteralText(idx)
	switch {
	case isLit && in.family(idx) != familyBoolean:
		if p, found := in.property(s, in.InternString(text)); found {
			if p.Optional && e.flags.Has(FlagStrictNullChecks) {
				return in.Union(p.Type, TypeUndefined)
			}
			return p.Type
		}
		if s.numberIndex != nil && isNumericString(text) {
			return unchecked(s.numberIndex.Value)
		}
		if s.stringIndex != nil {
			return unchecked(s.stringIndex.Value)
		}
	case idx == TypeNumber:
		if s.numberIndex != nil {
			return unchecked(s.numberIndex.Value)
		}
		if s.stringIndex != nil {
			return unchecked(s.stringIndex.Value)
		}
	case idx == TypeString:
		if s.stringIndex != nil {
			return unchecked(s.stringIndex.Value)
		}
	}
	return TypeError
}
