package typesystem

import (
	"log/slog"
	"slices"
)

// Evaluator reduces meta types (conditional, mapped, keyof, index access,
// template literal, lazy references, applications) to normal form.
// An Evaluator belongs to one query; its caches are shared.
type Evaluator struct {
	in     *Interner
	res    Resolver
	caches *Caches
	flags  RelationFlags
	guard  *Guard[TypeID]
	log    *slog.Logger

	judge *Judge
}

func NewEvaluator(in *Interner, res Resolver, caches *Caches, flags RelationFlags) *Evaluator {
	if res == nil {
		res = NoopResolver{}
	}
	if caches == nil {
		caches = NewCaches()
	}
	return &Evaluator{
		in:     in,
		res:    res,
		caches: caches,
		flags:  flags,
		guard:  NewGuard[TypeID](EvaluationLimits),
		log:    slog.Default(),
	}
}

// relator returns the subtype judge used for conditional checks.
func (e *Evaluator) relator() *Judge {
	if e.judge == nil {
		e.judge = newJudge(e, RelSubtype, AnyAll)
	}
	return e.judge
}

// Exceeded reports whether evaluation hit a recursion limit.
func (e *Evaluator) Exceeded() bool { return e.guard.Exceeded() }

func isNormalForm(d TypeData) bool {
	switch d.(type) {
	case Intrinsic, Literal, Array, Tuple, Object, Function, Callable,
		TypeParameter, Enum, UniqueSymbol, Infer:
		return true
	}
	return false
}

// Evaluate returns the normal form of t. Evaluating a normal form is a no-op.
func (e *Evaluator) Evaluate(t TypeID) TypeID {
	if t.IsReserved() {
		return t
	}
	d, ok := e.in.Lookup(t)
	if !ok || isNormalForm(d) {
		return t
	}
	key := evalKey{Type: t, Flags: e.flags}
	if r, ok := e.caches.evaluations.get(key); ok {
		return r
	}
	switch res := e.guard.Enter(t); res {
	case Entered:
	case Cycle:
		return t
	default:
		e.log.Debug("evaluation limit reached", "type", e.in.Format(t), "result", res.String())
		return t
	}
	exceeded := e.guard.Exceeded()
	r := e.evaluateData(t, d)
	e.guard.Leave(t)
	if exceeded || !e.guard.Exceeded() {
		e.caches.evaluations.put(key, r)
	}
	return r
}

func (e *Evaluator) evaluateData(t TypeID, d TypeData) TypeID {
	in := e.in
	switch d := d.(type) {
	case Union:
		members, changed := e.evaluateList(d.Members)
		if !changed {
			return t
		}
		return in.Union(members...)
	case Intersection:
		members, changed := e.evaluateList(d.Members)
		if !changed {
			return t
		}
		return in.Intersection(members...)
	case Lazy:
		body, ok := e.res.ResolveLazy(d.Def)
		if !ok {
			return t
		}
		return e.Evaluate(body)
	case Application:
		return e.evaluateApplication(t, d)
	case Conditional:
		return e.evaluateConditional(t, d)
	case Mapped:
		return e.evaluateMapped(t, d)
	case IndexAccess:
		return e.evaluateIndexAccess(t, d)
	case KeyOf:
		return e.evaluateKeyOf(t, d)
	case TemplateLiteral:
		return e.evaluateTemplate(t, d)
	case StringIntrinsic:
		return e.evaluateStringIntrinsic(t, d)
	case TypeQuery:
		return e.resolveSymbol(t, d.Symbol)
	case ModuleNamespace:
		return e.resolveSymbol(t, d.Symbol)
	case Readonly:
		return e.evaluateReadonly(t, d)
	case NoInfer:
		inner := e.Evaluate(d.Inner)
		if in.IsGeneric(inner) {
			return in.NoInfer(inner)
		}
		return inner
	}
	return t
}

func (e *Evaluator) evaluateList(ids []TypeID) ([]TypeID, bool) {
	out := slices.Clone(ids)
	changed := false
	for i, id := range ids {
		out[i] = e.Evaluate(id)
		changed = changed || out[i] != id
	}
	return out, changed
}

func (e *Evaluator) resolveSymbol(t TypeID, sym SymbolRef) TypeID {
	r, ok := e.res.ResolveSymbol(sym)
	if !ok {
		return t
	}
	return e.Evaluate(r)
}

// evaluateApplication instantiates a generic definition with its arguments.
// Missing arguments fall back to the parameter default, then its constraint.
func (e *Evaluator) evaluateApplication(t TypeID, app Application) TypeID {
	lazy, ok := lookupAs[Lazy](e.in, app.Base)
	if !ok {
		return t
	}
	body, ok := e.res.ResolveLazy(lazy.Def)
	if !ok {
		return t
	}
	params := e.res.TypeParams(lazy.Def)
	subst := make(Subst, len(params))
	for i, p := range params {
		arg := TypeUnknown
		tp, _ := lookupAs[TypeParameter](e.in, p)
		switch {
		case i < len(app.Args):
			arg = app.Args[i]
		case tp.Default != TypeNone:
			arg = Instantiate(e.in, e.caches, tp.Default, subst)
		case tp.Constraint != TypeNone:
			arg = Instantiate(e.in, e.caches, tp.Constraint, subst)
		}
		subst[p] = arg
	}
	return e.Evaluate(Instantiate(e.in, e.caches, body, subst))
}

func (e *Evaluator) evaluateReadonly(t TypeID, r Readonly) TypeID {
	inner := e.Evaluate(r.Inner)
	switch d, _ := e.in.Lookup(inner); d := d.(type) {
	case Array, Tuple, TypeParameter:
		return e.in.Readonly(inner)
	case Object:
		d.Properties = slices.Clone(d.Properties)
		for i := range d.Properties {
			d.Properties[i].Readonly = true
		}
		return e.in.ObjectWithIndex(d)
	case Union:
		members := make([]TypeID, len(d.Members))
		for i, m := range d.Members {
			members[i] = e.Evaluate(e.in.Readonly(m))
		}
		return e.in.Union(members...)
	}
	if inner == r.Inner {
		return t
	}
	return inner
}

// apparentShape returns the member view used for property access and
// structural comparison: arrays and tuples expose length and a number index,
// primitives their boxed interface.
func (e *Evaluator) apparentShape(t TypeID) (shape, bool) {
	in := e.in
	if s, ok := in.shapeOf(t); ok {
		return s, true
	}
	switch d, _ := in.Lookup(t); d := d.(type) {
	case Array:
		return shape{
			props:       []Property{{Name: in.InternString("length"), Type: TypeNumber}},
			numberIndex: &IndexSignature{Key: TypeNumber, Value: d.Element},
		}, true
	case Tuple:
		return e.tupleShape(d), true
	case Readonly:
		s, ok := e.apparentShape(e.Evaluate(d.Inner))
		if ok && s.numberIndex != nil {
			idx := *s.numberIndex
			idx.Readonly = true
			s.numberIndex = &idx
		}
		return s, ok
	case Intersection:
		s, res := in.collectProperties(d.Members, e.Evaluate)
		return s, res == collectOK
	case Enum:
		return e.apparentShape(d.Member)
	}
	if boxed, ok := e.res.BoxedType(e.primitiveOf(t)); ok {
		return in.shapeOf(e.Evaluate(boxed))
	}
	return shape{}, false
}

func (e *Evaluator) tupleShape(t Tuple) shape {
	in := e.in
	props := make([]Property, 0, len(t.Elements)+1)
	elems := make([]TypeID, 0, len(t.Elements))
	fixed := true
	for i, el := range t.Elements {
		elems = append(elems, el.Type)
		if el.Rest {
			fixed = false
			continue
		}
		props = append(props, Property{
			Name:     in.InternString(formatNumber(float64(i))),
			Type:     el.Type,
			Optional: el.Optional,
		})
	}
	length := TypeNumber
	if fixed {
		length = in.LiteralNumber(float64(len(t.Elements)))
	}
	props = append(props, Property{Name: in.InternString("length"), Type: length})
	return shape{
		props:       normalizeProperties(props),
		numberIndex: &IndexSignature{Key: TypeNumber, Value: in.Union(elems...)},
	}
}

// primitiveOf maps literal-like types to the primitive whose boxed type they use.
func (e *Evaluator) primitiveOf(t TypeID) TypeID {
	switch t {
	case TypeTrue, TypeFalse:
		return TypeBoolean
	}
	switch d, _ := e.in.Lookup(t); d := d.(type) {
	case Literal:
		return literalBase(d.Base)
	case TemplateLiteral, StringIntrinsic:
		return TypeString
	case UniqueSymbol:
		return TypeSymbol
	case Enum:
		return e.primitiveOf(d.Member)
	case Function, Callable:
		return TypeFunction
	}
	return t
}
