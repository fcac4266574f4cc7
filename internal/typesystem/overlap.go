package typesystem

import "strings"

type overlapChecker struct {
	in    *Interner
	eval  *Evaluator
	guard *Guard[pairKey]
}

// AreOverlapping reports whether some value could inhabit both a and b.
// Unknown structure answers true, so callers only act on a definite no.
func (e *Evaluator) AreOverlapping(a, b TypeID) bool {
	oc := overlapChecker{in: e.in, eval: e, guard: NewGuard[pairKey](SubtypeLimits)}
	return oc.overlap(a, b)
}

func (oc *overlapChecker) overlap(a, b TypeID) bool {
	a, b = oc.eval.Evaluate(a), oc.eval.Evaluate(b)
	switch {
	case a == b:
		return a != TypeNever
	case a == TypeNever || b == TypeNever:
		return false
	case a == TypeAny || b == TypeAny || a == TypeUnknown || b == TypeUnknown:
		return true
	case a == TypeError || b == TypeError:
		return true
	}
	pair := pairKey{source: a, target: b}
	if oc.guard.Enter(pair) != Entered {
		return true
	}
	defer oc.guard.Leave(pair)

	in := oc.in
	if u, ok := lookupAs[Union](in, a); ok {
		for _, m := range u.Members {
			if oc.overlap(m, b) {
				return true
			}
		}
		return false
	}
	if _, ok := lookupAs[Union](in, b); ok {
		return oc.overlap(b, a)
	}
	if x, ok := lookupAs[Intersection](in, a); ok {
		for _, m := range x.Members {
			if !oc.overlap(m, b) {
				return false
			}
		}
		return true
	}
	if _, ok := lookupAs[Intersection](in, b); ok {
		return oc.overlap(b, a)
	}
	if tp, ok := lookupAs[TypeParameter](in, a); ok {
		return tp.Constraint == TypeNone || oc.overlap(tp.Constraint, b)
	}
	if _, ok := lookupAs[TypeParameter](in, b); ok {
		return oc.overlap(b, a)
	}
	if e, ok := lookupAs[Enum](in, a); ok {
		if _, bothEnum := lookupAs[Enum](in, b); bothEnum {
			return false
		}
		return oc.overlap(e.Member, b)
	}
	if _, ok := lookupAs[Enum](in, b); ok {
		return oc.overlap(b, a)
	}

	fa, fb := in.family(a), in.family(b)
	if fa != familyNone || fb != familyNone {
		return oc.primitiveOverlap(a, b, fa, fb)
	}
	return oc.objectOverlap(a, b)
}

func boxable(f primitiveFamily) bool {
	switch f {
	case familyString, familyNumber, familyBigint, familyBoolean, familySymbol:
		return true
	}
	return false
}

// primitiveOverlap handles pairs where at least one side belongs to a
// primitive family.
func (oc *overlapChecker) primitiveOverlap(a, b TypeID, fa, fb primitiveFamily) bool {
	in := oc.in
	if fa != fb {
		objA := fa == familyNone || fa == familyNonPrimitive
		objB := fb == familyNone || fb == familyNonPrimitive
		switch {
		case objA && objB:
			return true
		case objA && boxable(fb):
			return oc.boxedOverlap(b, a)
		case objB && boxable(fa):
			return oc.boxedOverlap(a, b)
		}
		return false
	}
	la, aLit := in.LiteralText(a)
	lb, bLit := in.LiteralText(b)
	ta, aTmpl := lookupAs[TemplateLiteral](in, a)
	tb, bTmpl := lookupAs[TemplateLiteral](in, b)
	switch {
	case aLit && bLit:
		return la == lb
	case aLit && bTmpl:
		return in.MatchesTemplate(la, b)
	case bLit && aTmpl:
		return in.MatchesTemplate(lb, a)
	case aTmpl && bTmpl:
		return oc.templateOverlap(ta, tb)
	}
	if si, ok := lookupAs[StringIntrinsic](in, a); ok && bLit {
		return applyStringOp(si.Op, lb) == lb
	}
	if si, ok := lookupAs[StringIntrinsic](in, b); ok && aLit {
		return applyStringOp(si.Op, la) == la
	}
	// Same family, at least one side is the wide primitive or a pattern.
	return true
}

// boxedOverlap: `"x"` and `{length: number}` can meet; `"x"` and `{foo: 1}`
// cannot, since a primitive never gains properties.
func (oc *overlapChecker) boxedOverlap(prim, obj TypeID) bool {
	if oc.in.KindOf(obj) != KindObject {
		return false
	}
	sh, _ := oc.in.shapeOf(obj)
	src, ok := oc.eval.apparentShape(prim)
	if !ok {
		return len(sh.props) == 0
	}
	for _, p := range sh.props {
		if p.Optional {
			continue
		}
		if _, found := oc.in.property(src, p.Name); !found {
			return false
		}
	}
	return true
}

// templateOverlap compares fixed prefixes and suffixes: two patterns can
// share an inhabitant unless their literal ends disagree.
func (oc *overlapChecker) templateOverlap(a, b TemplateLiteral) bool {
	pa, sa := oc.in.templatePrefixSuffix(a)
	pb, sb := oc.in.templatePrefixSuffix(b)
	if !strings.HasPrefix(pa, pb) && !strings.HasPrefix(pb, pa) {
		return false
	}
	if !strings.HasSuffix(sa, sb) && !strings.HasSuffix(sb, sa) {
		return false
	}
	return true
}

// objectOverlap reports a conflict only for a property required on both
// sides whose types cannot overlap.
func (oc *overlapChecker) objectOverlap(a, b TypeID) bool {
	in := oc.in
	sa, okA := oc.eval.apparentShape(a)
	sb, okB := oc.eval.apparentShape(b)
	if !okA || !okB {
		return true
	}
	for _, pa := range sa.props {
		if pa.Optional {
			continue
		}
		pb, found := in.property(sb, pa.Name)
		if !found || pb.Optional {
			continue
		}
		if !oc.overlap(pa.Type, pb.Type) {
			return false
		}
	}
	return true
}
