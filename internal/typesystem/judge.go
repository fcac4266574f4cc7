package typesystem

import (
	"log/slog"

	"github.com/funvibe/tsolve/internal/config"
)

// pairKey represents a pair of types being compared, for co-induction.
type pairKey struct {
	source TypeID
	target TypeID
}

// compatRules lets the compatibility layer veto or grant a relation at every
// level of a structural comparison. The pure subtype relation has none.
type compatRules interface {
	override(j *Judge, source, target TypeID) (result, handled bool)
}

// Judge decides the sound structural subtype relation. A Judge belongs to
// one query: its recursion guard is private, its cache is shared.
type Judge struct {
	in       *Interner
	res      Resolver
	eval     *Evaluator
	cache    *RelationCache
	relation Relation
	flags    RelationFlags
	anyMode  AnyMode
	guard    *Guard[pairKey]
	rules    compatRules
	log      *slog.Logger
}

// NewJudge creates a subtype judge with its own evaluator.
func NewJudge(in *Interner, res Resolver, caches *Caches, flags RelationFlags) *Judge {
	return newJudge(NewEvaluator(in, res, caches, flags), RelSubtype, AnyAll)
}

func newJudge(e *Evaluator, rel Relation, mode AnyMode) *Judge {
	return &Judge{
		in:       e.in,
		res:      e.res,
		eval:     e,
		cache:    e.caches.Relations,
		relation: rel,
		flags:    e.flags,
		anyMode:  mode,
		guard:    NewGuard[pairKey](SubtypeLimits),
		log:      e.log,
	}
}

// IsSubtype reports whether source is a structural subtype of target.
func (j *Judge) IsSubtype(source, target TypeID) bool {
	return j.check(source, target)
}

// Exceeded reports whether a recursion limit was hit; results computed past
// a limit are optimistic.
func (j *Judge) Exceeded() bool {
	return j.guard.Exceeded() || j.eval.Exceeded()
}

// Reset clears per-query recursion state.
func (j *Judge) Reset() {
	j.guard.Reset()
}

func (j *Judge) effectiveAnyMode() AnyMode {
	if j.guard.Depth() == 0 {
		return AnyAll
	}
	return j.anyMode
}

// withFlags runs fn under a different flag set. Flags are part of the cache
// key, so results never leak between configurations.
func (j *Judge) withFlags(flags RelationFlags, fn func() bool) bool {
	saved := j.flags
	j.flags = flags
	defer func() { j.flags = saved }()
	return fn()
}

func (j *Judge) fastPath(s, t TypeID) (result, decided bool) {
	switch {
	case s == t:
		return true, true
	case t == TypeUnknown || t == TypeAny:
		return true, true
	case s == TypeNever:
		return true, true
	case s == TypeError || t == TypeError:
		return true, true
	case s == TypeAny:
		return j.effectiveAnyMode() == AnyAll, true
	case !j.flags.Has(FlagStrictNullChecks) && (s == TypeNull || s == TypeUndefined):
		return true, true
	}
	return false, false
}

func (j *Judge) check(s, t TypeID) bool {
	if r, ok := j.fastPath(s, t); ok {
		return r
	}
	key := RelationKey{
		Source:   s,
		Target:   t,
		Relation: j.relation,
		Flags:    j.flags,
		AnyMode:  j.anyMode,
	}
	if r, ok := j.cache.Get(key); ok {
		return r
	}

	// The cycle check must come before evaluation: expansive recursive
	// aliases produce a fresh id on every evaluation step.
	pair := pairKey{source: s, target: t}
	switch res := j.guard.Enter(pair); res {
	case Entered:
	case Cycle:
		return true
	default:
		j.log.Debug("relation limit reached",
			"relation", j.relation.String(),
			"source", j.in.Format(s),
			"target", j.in.Format(t),
			"result", res.String())
		return true
	}

	cycles, exceeded := j.guard.Cycles(), j.guard.Exceeded()
	r := j.structural(s, t)
	j.guard.Leave(pair)

	if j.guard.Exceeded() != exceeded {
		return r
	}
	// A true result that consumed a cycle assumption is only provisional
	// until the outermost comparison completes.
	if !r || j.guard.Cycles() == cycles || j.guard.Depth() == 0 {
		j.cache.Put(key, r)
	}
	return r
}

func (j *Judge) every(ids []TypeID, fn func(TypeID) bool) bool {
	for _, id := range ids {
		if !fn(id) {
			return false
		}
	}
	return true
}

func (j *Judge) some(ids []TypeID, fn func(TypeID) bool) bool {
	for _, id := range ids {
		if fn(id) {
			return true
		}
	}
	return false
}

func (j *Judge) structural(s, t TypeID) bool {
	in := j.in
	es, et := j.eval.Evaluate(s), j.eval.Evaluate(t)
	if es != s || et != t {
		if r, ok := j.fastPath(es, et); ok {
			return r
		}
		s, t = es, et
	}
	if t == TypeNever {
		return false
	}
	if j.rules != nil {
		if r, ok := j.rules.override(j, s, t); ok {
			return r
		}
	}

	sd, _ := in.Lookup(s)
	td, _ := in.Lookup(t)

	if su, ok := sd.(Union); ok {
		return j.every(su.Members, func(m TypeID) bool { return j.check(m, t) })
	}
	if tu, ok := td.(Union); ok {
		if j.some(tu.Members, func(m TypeID) bool { return j.check(s, m) }) {
			return true
		}
		if si, ok := sd.(Intersection); ok {
			return j.some(si.Members, func(m TypeID) bool { return j.check(m, t) })
		}
		return false
	}
	if tp, ok := sd.(TypeParameter); ok {
		c := tp.Constraint
		if c == TypeNone {
			c = TypeUnknown
		}
		return j.check(c, t)
	}
	if ti, ok := td.(Intersection); ok {
		return j.every(ti.Members, func(m TypeID) bool { return j.check(s, m) })
	}
	if si, ok := sd.(Intersection); ok {
		return j.checkSourceIntersection(si, t, td)
	}
	if se, ok := sd.(Enum); ok {
		if _, ok := td.(Enum); ok {
			return false
		}
		return j.check(se.Member, t)
	}

	// Deferred meta types that survived evaluation.
	switch sd := sd.(type) {
	case Conditional:
		return j.check(sd.True, t) && j.check(sd.False, t)
	case KeyOf:
		return j.check(in.Union(TypeString, TypeNumber, TypeSymbol), t)
	case IndexAccess:
		if members, ok := j.distributeIndexAccess(sd); ok {
			return j.every(members, func(m TypeID) bool { return j.check(m, t) })
		}
	case NoInfer:
		return j.check(sd.Inner, t)
	}
	if ia, ok := td.(IndexAccess); ok {
		if members, ok := j.distributeIndexAccess(ia); ok {
			return j.every(members, func(m TypeID) bool { return j.check(s, m) })
		}
		return false
	}

	if g, ok := j.res.GlobalObjectType(); ok && t == j.eval.Evaluate(g) {
		return j.objectContract(s)
	}

	switch td := td.(type) {
	case Intrinsic:
		return j.checkToIntrinsic(s, sd, td.ID)
	case Literal, Enum, TypeParameter, UniqueSymbol, KeyOf, Conditional, Mapped:
		return false
	case Object:
		return j.checkToObject(s, sd, td, t)
	case Callable:
		return j.checkToCallable(s, sd, td, t)
	case Function:
		return j.checkToFunction(sd, td)
	case Array:
		return j.checkToArray(sd, td)
	case Tuple:
		return j.checkToTuple(sd, td)
	case Readonly:
		return j.checkToReadonly(s, sd, td)
	case TemplateLiteral:
		return j.checkToTemplate(sd, td)
	case StringIntrinsic:
		return j.checkToStringIntrinsic(sd, td)
	case Application:
		if sa, ok := sd.(Application); ok && sa.Base == td.Base && len(sa.Args) == len(td.Args) {
			for i := range sa.Args {
				if !j.check(sa.Args[i], td.Args[i]) {
					return false
				}
			}
			return true
		}
		return false
	case Lazy:
		if sl, ok := sd.(Lazy); ok {
			return j.res.IsDerivedFrom(sl.Def, td.Def)
		}
		return false
	}
	return false
}

// checkSourceIntersection: one member suffices; otherwise the members are
// compared jointly as one merged shape. Large intersections of plain objects
// are merged up front.
func (j *Judge) checkSourceIntersection(si Intersection, t TypeID, td TypeData) bool {
	in := j.in
	if len(si.Members) >= config.IntersectionMergeThreshold && j.every(si.Members, in.isPlainObject) {
		merged, res := in.collectProperties(si.Members, j.eval.Evaluate)
		if res == collectOK {
			return j.check(in.objectFromShape(merged), t)
		}
	}
	if j.some(si.Members, func(m TypeID) bool { return j.check(m, t) }) {
		return true
	}
	switch td.(type) {
	case Object, Callable:
		src, ok := j.intersectionShape(si.Members)
		if !ok {
			return false
		}
		tgt, _ := in.shapeOf(t)
		return j.checkShapes(src, tgt)
	}
	return false
}

func (j *Judge) intersectionShape(members []TypeID) (shape, bool) {
	var out shape
	for _, m := range members {
		s, ok := j.eval.apparentShape(j.eval.Evaluate(m))
		if !ok {
			continue
		}
		out = j.in.mergeShapes(out, s)
	}
	return out, true
}

// distributeIndexAccess expands T[K] over K's constraint when K is a type
// parameter constrained to a union of string literals.
func (j *Judge) distributeIndexAccess(ia IndexAccess) ([]TypeID, bool) {
	in := j.in
	tp, ok := lookupAs[TypeParameter](in, ia.Index)
	if !ok || tp.Constraint == TypeNone {
		return nil, false
	}
	c := j.eval.Evaluate(tp.Constraint)
	keys := []TypeID{c}
	if u, ok := lookupAs[Union](in, c); ok {
		keys = u.Members
	}
	out := make([]TypeID, 0, len(keys))
	for _, k := range keys {
		lit, ok := lookupAs[Literal](in, k)
		if !ok || lit.Base != LitString {
			return nil, false
		}
		out = append(out, j.eval.Evaluate(in.IndexAccess(ia.Object, k)))
	}
	return out, true
}

func (j *Judge) checkToIntrinsic(s TypeID, sd TypeData, target TypeID) bool {
	switch target {
	case TypeNever, TypeUndefined, TypeNull:
		return false
	case TypeVoid:
		return s == TypeUndefined
	case TypeObject:
		return isNonPrimitive(s, sd)
	case TypeFunction:
		sh, ok := j.in.shapeOf(s)
		return ok && sh.hasSignatures()
	case TypeString, TypeNumber, TypeBigint, TypeBoolean, TypeSymbol:
		return j.eval.primitiveOf(s) == target
	}
	return false
}

func isNonPrimitive(s TypeID, sd TypeData) bool {
	switch sd.(type) {
	case Object, Callable, Function, Array, Tuple, Readonly, Mapped, Lazy:
		return true
	}
	return s == TypeObject || s == TypeFunction
}

// objectContract checks a source against the global Object interface: any
// value is compatible unless it declares a same-named, incompatible property.
func (j *Judge) objectContract(s TypeID) bool {
	if isNullish(s) || s == TypeUnknown {
		return false
	}
	g, _ := j.res.GlobalObjectType()
	tgt, ok := j.in.shapeOf(j.eval.Evaluate(g))
	if !ok {
		return true
	}
	src, ok := j.eval.apparentShape(s)
	if !ok {
		return true
	}
	for _, tp := range tgt.props {
		if sp, found := j.in.property(src, tp.Name); found && !j.checkProperty(sp, tp) {
			return false
		}
	}
	return true
}

func (j *Judge) checkToStringIntrinsic(sd TypeData, td StringIntrinsic) bool {
	switch sd := sd.(type) {
	case StringIntrinsic:
		return sd.Op == td.Op && j.check(sd.Arg, td.Arg)
	case Literal:
		if sd.Base != LitString {
			return false
		}
		text := j.in.AtomText(sd.Text)
		return applyStringOp(td.Op, text) == text && j.check(j.in.LiteralString(text), td.Arg)
	}
	return false
}
