package typesystem

import (
	"maps"
	"slices"

	"github.com/hashicorp/go-set/v3"
)

// Subst maps type parameters to their replacements. Replacement is
// simultaneous: a replacement is never itself substituted again.
type Subst map[TypeID]TypeID

func (s Subst) without(params ...TypeID) Subst {
	hit := false
	for _, p := range params {
		if _, ok := s[p]; ok {
			hit = true
			break
		}
	}
	if !hit {
		return s
	}
	out := maps.Clone(s)
	for _, p := range params {
		delete(out, p)
	}
	return out
}

func (s Subst) with(param, replacement TypeID) Subst {
	out := maps.Clone(s)
	out[param] = replacement
	return out
}

// key is the canonical encoding of s, used by the instantiation cache.
func (s Subst) key() string {
	params := slices.Sorted(maps.Keys(s))
	b := make(keyBuf, 0, len(params)*4)
	for _, p := range params {
		b = b.id(p).id(s[p])
	}
	return string(b)
}

// Instantiate applies subst to t. Results are memoized per (type, substitution)
// in caches, which may be nil.
func Instantiate(in *Interner, caches *Caches, t TypeID, subst Subst) TypeID {
	if len(subst) == 0 {
		return t
	}
	inst := &instantiator{in: in, caches: caches, guard: NewGuard[TypeID](InstantiationLimits)}
	return inst.apply(t, subst)
}

type instantiator struct {
	in     *Interner
	caches *Caches
	guard  *Guard[TypeID]
}

func (x *instantiator) apply(t TypeID, s Subst) TypeID {
	if t.IsReserved() || len(s) == 0 {
		return t
	}
	var key instKey
	if x.caches != nil {
		key = instKey{Type: t, Subst: s.key()}
		if r, ok := x.caches.instantiation.get(key); ok {
			return r
		}
	}
	if x.guard.Enter(t) != Entered {
		// Instantiation recursion is structural; hitting the guard means a
		// pathologically deep type, so leave it unexpanded.
		return t
	}
	r := x.applyData(t, s)
	x.guard.Leave(t)
	if x.caches != nil {
		x.caches.instantiation.put(key, r)
	}
	return r
}

func (x *instantiator) list(ids []TypeID, s Subst) []TypeID {
	out := make([]TypeID, len(ids))
	for i, id := range ids {
		out[i] = x.apply(id, s)
	}
	return out
}

func (x *instantiator) props(ps []Property, s Subst) []Property {
	out := slices.Clone(ps)
	for i := range out {
		out[i].Type = x.apply(out[i].Type, s)
		if out[i].WriteType != TypeNone {
			out[i].WriteType = x.apply(out[i].WriteType, s)
		}
	}
	return out
}

func (x *instantiator) index(sig *IndexSignature, s Subst) *IndexSignature {
	if sig == nil {
		return nil
	}
	c := *sig
	c.Value = x.apply(c.Value, s)
	return &c
}

func (x *instantiator) applyData(t TypeID, s Subst) TypeID {
	in := x.in
	d, ok := in.Lookup(t)
	if !ok {
		return t
	}
	switch d := d.(type) {
	case TypeParameter:
		if r, ok := s[t]; ok {
			return r
		}
		return t
	case Infer:
		if r, ok := s[d.Param]; ok {
			return r
		}
		return t
	case Literal, Lazy, Enum, UniqueSymbol, TypeQuery, ModuleNamespace, Intrinsic:
		return t
	case Array:
		return in.Array(x.apply(d.Element, s))
	case Tuple:
		els := slices.Clone(d.Elements)
		for i := range els {
			els[i].Type = x.apply(els[i].Type, s)
		}
		return in.Tuple(els)
	case Object:
		d.Properties = x.props(d.Properties, s)
		d.StringIndex = x.index(d.StringIndex, s)
		d.NumberIndex = x.index(d.NumberIndex, s)
		return in.ObjectWithIndex(d)
	case Union:
		return in.Union(x.list(d.Members, s)...)
	case Intersection:
		return in.Intersection(x.list(d.Members, s)...)
	case Function:
		return x.applyFunction(t, d, s)
	case Callable:
		d.Call = x.list(d.Call, s)
		d.Construct = x.list(d.Construct, s)
		d.Properties = x.props(d.Properties, s)
		d.StringIndex = x.index(d.StringIndex, s)
		d.NumberIndex = x.index(d.NumberIndex, s)
		return in.Callable(d)
	case Application:
		return in.Application(x.apply(d.Base, s), x.list(d.Args, s)...)
	case Conditional:
		return x.applyConditional(d, s)
	case Mapped:
		inner := s.without(d.Param)
		d.Constraint = x.apply(d.Constraint, s)
		if d.NameType != TypeNone {
			d.NameType = x.apply(d.NameType, inner)
		}
		d.Template = x.apply(d.Template, inner)
		return in.Mapped(d)
	case IndexAccess:
		return in.IndexAccess(x.apply(d.Object, s), x.apply(d.Index, s))
	case KeyOf:
		return in.KeyOf(x.apply(d.Inner, s))
	case TemplateLiteral:
		spans := slices.Clone(d.Spans)
		for i := range spans {
			if !spans[i].IsText() {
				spans[i].Type = x.apply(spans[i].Type, s)
			}
		}
		return in.TemplateLiteral(spans)
	case Readonly:
		return in.Readonly(x.apply(d.Inner, s))
	case StringIntrinsic:
		return in.StringIntrinsic(d.Op, x.apply(d.Arg, s))
	case NoInfer:
		return in.NoInfer(x.apply(d.Inner, s))
	}
	return t
}

func (x *instantiator) applyFunction(t TypeID, fn Function, s Subst) TypeID {
	s = s.without(fn.TypeParams...)
	if len(s) == 0 {
		return t
	}
	fn.Params = slices.Clone(fn.Params)
	for i := range fn.Params {
		fn.Params[i].Type = x.apply(fn.Params[i].Type, s)
	}
	if fn.This != TypeNone {
		fn.This = x.apply(fn.This, s)
	}
	fn.Return = x.apply(fn.Return, s)
	if fn.Predicate != nil {
		p := *fn.Predicate
		p.Type = x.apply(p.Type, s)
		fn.Predicate = &p
	}
	return x.in.Function(fn)
}

// applyConditional distributes a distributive conditional over a union
// substituted for its check type.
func (x *instantiator) applyConditional(c Conditional, s Subst) TypeID {
	in := x.in
	body := s.without(in.inferParams(c.Extends)...)
	replacement, substituted := s[c.Check]
	if c.Distributive && substituted {
		if replacement == TypeNever {
			return TypeNever
		}
		if u, ok := lookupAs[Union](in, replacement); ok {
			results := make([]TypeID, 0, len(u.Members))
			for _, m := range u.Members {
				ms := body.with(c.Check, m)
				results = append(results, in.Conditional(
					m,
					x.apply(c.Extends, ms),
					x.apply(c.True, ms),
					x.apply(c.False, ms),
				))
			}
			return in.Union(results...)
		}
	}
	check := x.apply(c.Check, s)
	ext := x.apply(c.Extends, body)
	t := x.apply(c.True, body)
	f := x.apply(c.False, body)
	if substituted {
		return in.Conditional(check, ext, t, f)
	}
	return in.ConditionalWith(Conditional{Check: check, Extends: ext, True: t, False: f, Distributive: c.Distributive})
}

// inferParams collects the type parameters introduced by `infer` inside t.
func (in *Interner) inferParams(t TypeID) []TypeID {
	var out []TypeID
	in.walk(t, func(id TypeID, d TypeData) bool {
		if inf, ok := d.(Infer); ok {
			out = append(out, inf.Param)
		}
		return true
	})
	return out
}

// walk visits every type reachable from t once, without following Lazy
// references. fn returns false to skip the children of a node.
func (in *Interner) walk(t TypeID, fn func(TypeID, TypeData) bool) {
	seen := make(map[TypeID]bool)
	var visit func(TypeID)
	visit = func(id TypeID) {
		if id.IsReserved() || seen[id] {
			return
		}
		seen[id] = true
		d, ok := in.Lookup(id)
		if !ok || !fn(id, d) {
			return
		}
		for _, c := range children(d) {
			visit(c)
		}
	}
	visit(t)
}

func children(d TypeData) []TypeID {
	switch d := d.(type) {
	case Array:
		return []TypeID{d.Element}
	case Tuple:
		out := make([]TypeID, len(d.Elements))
		for i, e := range d.Elements {
			out[i] = e.Type
		}
		return out
	case Object:
		return memberChildren(d.Properties, d.StringIndex, d.NumberIndex)
	case Callable:
		out := memberChildren(d.Properties, d.StringIndex, d.NumberIndex)
		out = append(out, d.Call...)
		return append(out, d.Construct...)
	case Union:
		return d.Members
	case Intersection:
		return d.Members
	case Function:
		out := make([]TypeID, 0, len(d.Params)+2)
		for _, p := range d.Params {
			out = append(out, p.Type)
		}
		out = append(out, d.This, d.Return)
		if d.Predicate != nil {
			out = append(out, d.Predicate.Type)
		}
		return out
	case Application:
		return append([]TypeID{d.Base}, d.Args...)
	case Conditional:
		return []TypeID{d.Check, d.Extends, d.True, d.False}
	case Mapped:
		return []TypeID{d.Constraint, d.NameType, d.Template}
	case IndexAccess:
		return []TypeID{d.Object, d.Index}
	case KeyOf:
		return []TypeID{d.Inner}
	case TemplateLiteral:
		out := make([]TypeID, 0, len(d.Spans))
		for _, s := range d.Spans {
			if !s.IsText() {
				out = append(out, s.Type)
			}
		}
		return out
	case Infer:
		return []TypeID{d.Param}
	case Readonly:
		return []TypeID{d.Inner}
	case StringIntrinsic:
		return []TypeID{d.Arg}
	case NoInfer:
		return []TypeID{d.Inner}
	case Enum:
		return []TypeID{d.Member}
	}
	return nil
}

func memberChildren(props []Property, sIdx, nIdx *IndexSignature) []TypeID {
	out := make([]TypeID, 0, len(props)+2)
	for _, p := range props {
		out = append(out, p.Type)
		if p.WriteType != TypeNone {
			out = append(out, p.WriteType)
		}
	}
	if sIdx != nil {
		out = append(out, sIdx.Value)
	}
	if nIdx != nil {
		out = append(out, nIdx.Value)
	}
	return out
}

// IsGeneric reports whether t mentions a type parameter that is not bound by a
// signature, mapped type or `infer` inside t. A binding covers only the node
// that declares it.
func (in *Interner) IsGeneric(t TypeID) bool {
	return !in.freeParams(t, make(map[TypeID]*set.Set[TypeID])).Empty()
}

func (in *Interner) freeParams(t TypeID, memo map[TypeID]*set.Set[TypeID]) *set.Set[TypeID] {
	if free, ok := memo[t]; ok {
		return free
	}
	free := set.New[TypeID](0)
	memo[t] = free
	d, ok := in.Lookup(t)
	if t.IsReserved() || !ok {
		return free
	}
	collect := func(ids ...TypeID) {
		for _, id := range ids {
			free.InsertSet(in.freeParams(id, memo))
		}
	}
	switch d := d.(type) {
	case TypeParameter:
		free.Insert(t)
	case Infer:
	case Mapped:
		collect(d.NameType, d.Template)
		free.Remove(d.Param)
		collect(d.Constraint)
	case Function:
		collect(children(d)...)
		free.RemoveSlice(d.TypeParams)
	case Conditional:
		collect(children(d)...)
		free.RemoveSlice(in.inferParams(d.Extends))
	default:
		collect(children(d)...)
	}
	return free
}
