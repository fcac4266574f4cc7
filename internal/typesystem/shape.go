package typesystem

import (
	"slices"
)

// shape is a uniform read-only view of anything with members: object shapes,
// callables, single signatures, merged intersections and apparent types.
type shape struct {
	props       []Property
	stringIndex *IndexSignature
	numberIndex *IndexSignature
	calls       []TypeID
	constructs  []TypeID
	symbol      DefID
	// origin is the interned id when the view is exactly one object or callable.
	origin TypeID
	fresh  bool
}

func (s shape) isEmpty() bool {
	return len(s.props) == 0 && s.stringIndex == nil && s.numberIndex == nil &&
		len(s.calls) == 0 && len(s.constructs) == 0
}

func (s shape) hasSignatures() bool {
	return len(s.calls) > 0 || len(s.constructs) > 0
}

func (in *Interner) property(s shape, name Atom) (Property, bool) {
	if s.origin != TypeNone {
		if i, ok := in.ObjectPropertyIndex(s.origin, name); ok {
			return s.props[i], true
		}
		return Property{}, false
	}
	if i, ok := findProperty(s.props, name); ok {
		return s.props[i], true
	}
	return Property{}, false
}

// shapeOf returns the member view of an object, callable or function type.
func (in *Interner) shapeOf(t TypeID) (shape, bool) {
	switch d, _ := in.Lookup(t); d := d.(type) {
	case Object:
		return shape{
			props:       d.Properties,
			stringIndex: d.StringIndex,
			numberIndex: d.NumberIndex,
			symbol:      d.Symbol,
			origin:      t,
			fresh:       d.IsFresh(),
		}, true
	case Callable:
		return shape{
			props:       d.Properties,
			stringIndex: d.StringIndex,
			numberIndex: d.NumberIndex,
			calls:       d.Call,
			constructs:  d.Construct,
			symbol:      d.Symbol,
			origin:      t,
		}, true
	case Function:
		if d.IsConstructor {
			return shape{constructs: []TypeID{t}}, true
		}
		return shape{calls: []TypeID{t}}, true
	}
	return shape{}, false
}

// collectResult tells how an intersection's members combined into one shape.
type collectResult uint8

const (
	collectOK collectResult = iota
	// collectNonObject: a member has no object shape (primitive, array, ...).
	collectNonObject
	// collectAny: a member is `any`, absorbing the intersection.
	collectAny
)

// collectProperties merges the members of an intersection into one shape.
// Properties present in several members get the intersection of their types.
func (in *Interner) collectProperties(members []TypeID, eval func(TypeID) TypeID) (shape, collectResult) {
	var out shape
	for _, m := range members {
		m = eval(m)
		if m == TypeAny {
			return shape{}, collectAny
		}
		s, ok := in.shapeOf(m)
		if !ok {
			if x, isX := lookupAs[Intersection](in, m); isX {
				inner, res := in.collectProperties(x.Members, eval)
				if res != collectOK {
					return shape{}, res
				}
				s = inner
			} else {
				return shape{}, collectNonObject
			}
		}
		out = in.mergeShapes(out, s)
	}
	return out, collectOK
}

func (in *Interner) mergeShapes(a, b shape) shape {
	props := slices.Clone(a.props)
	for _, p := range b.props {
		i, ok := findProperty(props, p.Name)
		if !ok {
			props = append(props, p)
			continue
		}
		q := props[i]
		q.Type = in.Intersection(q.Type, p.Type)
		if q.WriteType != TypeNone || p.WriteType != TypeNone {
			q.WriteType = in.Intersection(orType(q.WriteType, q.Type), orType(p.WriteType, p.Type))
		}
		q.Optional = q.Optional && p.Optional
		q.Readonly = q.Readonly && p.Readonly
		q.IsMethod = q.IsMethod && p.IsMethod
		q.Visibility = max(q.Visibility, p.Visibility)
		props[i] = q
	}
	slices.SortFunc(props, func(x, y Property) int { return int(x.Name) - int(y.Name) })
	return shape{
		props:       props,
		stringIndex: in.mergeIndex(a.stringIndex, b.stringIndex),
		numberIndex: in.mergeIndex(a.numberIndex, b.numberIndex),
		calls:       append(slices.Clone(a.calls), b.calls...),
		constructs:  append(slices.Clone(a.constructs), b.constructs...),
		symbol:      max(a.symbol, b.symbol),
	}
}

func (in *Interner) mergeIndex(a, b *IndexSignature) *IndexSignature {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return &IndexSignature{
		Key:      a.Key,
		Value:    in.Intersection(a.Value, b.Value),
		Readonly: a.Readonly && b.Readonly,
	}
}

func orType(t, fallback TypeID) TypeID {
	if t == TypeNone {
		return fallback
	}
	return t
}

// isPlainObject reports whether t is an object shape with only public members.
func (in *Interner) isPlainObject(t TypeID) bool {
	o, ok := lookupAs[Object](in, t)
	if !ok {
		return false
	}
	for _, p := range o.Properties {
		if p.Visibility != Public {
			return false
		}
	}
	return true
}

// objectFromShape interns a merged shape as a plain object.
func (in *Interner) objectFromShape(s shape) TypeID {
	if len(s.calls) > 0 || len(s.constructs) > 0 {
		return in.Callable(Callable{
			Call:        s.calls,
			Construct:   s.constructs,
			Properties:  s.props,
			StringIndex: s.stringIndex,
			NumberIndex: s.numberIndex,
			Symbol:      s.symbol,
		})
	}
	return in.ObjectWithIndex(Object{
		Properties:  s.props,
		StringIndex: s.stringIndex,
		NumberIndex: s.numberIndex,
		Symbol:      s.symbol,
	})
}
