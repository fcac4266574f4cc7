package typesystem

import (
	"slices"

	"github.com/hashicorp/go-set/v3"

	"github.com/funvibe/tsolve/internal/config"
)

// Overrides carries call-site context that changes assignability.
type Overrides struct {
	// EnclosingClass is the class whose body the check happens in; it may
	// see its own (and, if protected, its base's) non-public constructors.
	EnclosingClass DefID
}

// Lawyer implements assignability: structural subtyping plus the
// language's compatibility rules. Structural work is always delegated to a
// Judge configured with the Lawyer's flags; the rules hook in at every level.
type Lawyer struct {
	opts      config.Options
	judge     *Judge
	shared    *RelationCache
	private   *RelationCache
	overrides Overrides
}

// CompatFlags derives the assignability relation flags, including the
// enabled and disabled compatibility rules.
func CompatFlags(opts config.Options) RelationFlags {
	f := FlagsFromOptions(opts)
	r := opts.Rules
	if r.VoidReturn {
		f |= FlagAllowVoidReturn
	}
	if r.BivariantRest {
		f |= FlagAllowBivariantRest
	}
	if r.BivariantParamCount {
		f |= FlagAllowBivariantParamCount
	}
	if !r.EnumNominality {
		f |= FlagNoEnumNominality
	}
	if !r.PrivateBrands {
		f |= FlagNoPrivateBrands
	}
	if !r.WeakTypes {
		f |= FlagNoWeakTypes
	}
	if !r.ConstructorAccessibility {
		f |= FlagNoConstructorAccessibility
	}
	return f
}

func NewLawyer(in *Interner, res Resolver, caches *Caches, opts config.Options) *Lawyer {
	return newLawyer(NewEvaluator(in, res, caches, CompatFlags(opts)), opts)
}

func newLawyer(e *Evaluator, opts config.Options) *Lawyer {
	mode := AnyAll
	if opts.AnyPropagation == config.AnyStrict {
		mode = AnyTopLevelOnly
	}
	j := newJudge(e, RelAssignable, mode)
	l := &Lawyer{opts: opts, judge: j, shared: j.cache}
	j.rules = l
	return l
}

// Judge exposes the configured structural judge.
func (l *Lawyer) Judge() *Judge { return l.judge }

// Exceeded reports whether a recursion limit was hit.
func (l *Lawyer) Exceeded() bool { return l.judge.Exceeded() }

func (l *Lawyer) IsAssignable(source, target TypeID) bool {
	return l.IsAssignableWith(source, target, Overrides{})
}

// IsAssignableWith checks assignability under call-site overrides. Results
// that depend on an enclosing class never reach the shared cache.
func (l *Lawyer) IsAssignableWith(source, target TypeID, ov Overrides) bool {
	l.overrides = ov
	l.judge.cache = l.shared
	if ov.EnclosingClass != 0 {
		if l.private == nil {
			l.private = NewRelationCache()
		}
		l.judge.cache = l.private
	}
	if l.opts.Rules.Freshness && !l.excessPropertiesOK(source, target) {
		return false
	}
	return l.judge.check(source, target)
}

// excessPropertiesOK rejects a fresh object literal that names a property
// no target member declares. Nested fresh literals are checked against the
// union of the target property types.
func (l *Lawyer) excessPropertiesOK(source, target TypeID) bool {
	in := l.judge.in
	e := l.judge.eval
	so, ok := lookupAs[Object](in, source)
	if !ok || !so.IsFresh() {
		return true
	}
	target = e.Evaluate(target)
	if g, ok := l.judge.res.GlobalObjectType(); ok && target == e.Evaluate(g) {
		return true
	}

	members := []TypeID{target}
	if u, ok := lookupAs[Union](in, target); ok {
		members = u.Members
	}
	var shapes []shape
	for _, m := range members {
		m = e.Evaluate(m)
		switch m {
		case TypeAny, TypeUnknown, TypeObject, TypeError:
			return true
		}
		if in.KindOf(m) == KindTypeParameter {
			return true
		}
		if in.isPrimitiveLike(m) {
			continue
		}
		sh, ok := e.apparentShape(m)
		if !ok {
			continue
		}
		if sh.stringIndex != nil || sh.isEmpty() {
			return true
		}
		shapes = append(shapes, sh)
	}
	if len(shapes) == 0 {
		return true
	}

	names := set.New[Atom](len(so.Properties))
	for _, sh := range shapes {
		for _, p := range sh.props {
			names.Insert(p.Name)
		}
	}
	numberIndex := slices.ContainsFunc(shapes, func(sh shape) bool { return sh.numberIndex != nil })
	for _, p := range so.Properties {
		if !names.Contains(p.Name) {
			if numberIndex && isNumericString(in.AtomText(p.Name)) {
				continue
			}
			return false
		}
	}
	for _, p := range so.Properties {
		var nested []TypeID
		for _, sh := range shapes {
			if tp, found := in.property(sh, p.Name); found {
				nested = append(nested, tp.Type)
			}
		}
		if len(nested) > 0 && !l.excessPropertiesOK(p.Type, in.Union(nested...)) {
			return false
		}
	}
	return true
}

// isPrimitiveLike reports primitives and their literal forms.
func (in *Interner) isPrimitiveLike(t TypeID) bool {
	if isPrimitive(t) || t == TypeBigint {
		return true
	}
	switch in.KindOf(t) {
	case KindLiteral, KindTemplateLiteral, KindEnum, KindUniqueSymbol:
		return true
	}
	return false
}

func (l *Lawyer) override(j *Judge, s, t TypeID) (result, handled bool) {
	if r, ok := l.enumRule(j, s, t); ok {
		return r, true
	}
	if !j.flags.Has(FlagNoPrivateBrands) && !l.brandsCompatible(j, s, t) {
		return false, true
	}
	if !j.flags.Has(FlagNoWeakTypes) && l.violatesWeakType(j, s, t) {
		return false, true
	}
	if !j.flags.Has(FlagNoConstructorAccessibility) && !l.constructorAccessible(j, s, t) {
		return false, true
	}
	return false, false
}

// enumRule: numeric enums accept number and their own member values; with
// nominality off enum members compare by value.
func (l *Lawyer) enumRule(j *Judge, s, t TypeID) (bool, bool) {
	in := j.in
	te, tIsEnum := lookupAs[Enum](in, t)
	if !tIsEnum {
		return false, false
	}
	se, sIsEnum := lookupAs[Enum](in, s)
	if sIsEnum {
		if j.flags.Has(FlagNoEnumNominality) {
			return j.check(se.Member, te.Member), true
		}
		return false, false
	}
	if j.res.IsNumericEnum(te.Def) {
		if s == TypeNumber || s == te.Member {
			return true, true
		}
	}
	if j.flags.Has(FlagNoEnumNominality) {
		return j.check(s, te.Member), true
	}
	return false, false
}

// brandsCompatible checks that non-public members on either side come from
// the same declaration, or for protected members from a subclass of it.
func (l *Lawyer) brandsCompatible(j *Judge, s, t TypeID) bool {
	in := j.in
	tgt, ok := in.shapeOf(t)
	if !ok || len(tgt.props) == 0 {
		return true
	}
	src, ok := j.eval.apparentShape(s)
	if !ok {
		return true
	}
	for _, tp := range tgt.props {
		sp, found := in.property(src, tp.Name)
		if !found || (sp.Visibility == Public && tp.Visibility == Public) {
			continue
		}
		if sp.Visibility != tp.Visibility {
			return false
		}
		switch tp.Visibility {
		case Private:
			if sp.Parent != tp.Parent {
				return false
			}
		case Protected:
			if sp.Parent != tp.Parent && !j.res.IsDerivedFrom(sp.Parent, tp.Parent) {
				return false
			}
		}
	}
	return true
}

// isWeak reports an object type whose properties are all optional.
func isWeak(sh shape) bool {
	if len(sh.props) == 0 || sh.stringIndex != nil || sh.numberIndex != nil || sh.hasSignatures() {
		return false
	}
	for _, p := range sh.props {
		if !p.Optional {
			return false
		}
	}
	return true
}

// violatesWeakType rejects a source sharing no property with a weak target,
// or with any member of a union of weak targets.
func (l *Lawyer) violatesWeakType(j *Judge, s, t TypeID) bool {
	in := j.in
	members := []TypeID{t}
	if u, ok := lookupAs[Union](in, t); ok {
		members = u.Members
	}
	var weak []shape
	for _, m := range members {
		sh, ok := in.shapeOf(j.eval.Evaluate(m))
		if !ok || !isWeak(sh) {
			return false
		}
		weak = append(weak, sh)
	}
	src, ok := j.eval.apparentShape(s)
	if !ok || len(src.props) == 0 || src.hasSignatures() {
		return false
	}
	for _, sh := range weak {
		for _, p := range src.props {
			if _, found := in.property(sh, p.Name); found {
				return false
			}
		}
	}
	return true
}

// constructorAccessible rejects a private or protected constructor flowing
// into a public construct signature outside the class that may call it.
func (l *Lawyer) constructorAccessible(j *Judge, s, t TypeID) bool {
	in := j.in
	sc, ok := lookupAs[Callable](in, s)
	if !ok || sc.Visibility == Public || len(sc.Construct) == 0 {
		return true
	}
	target := Public
	switch d, _ := in.Lookup(t); d := d.(type) {
	case Callable:
		if len(d.Construct) == 0 {
			return true
		}
		target = d.Visibility
	case Function:
		if !d.IsConstructor {
			return true
		}
	default:
		return true
	}
	if target >= sc.Visibility {
		return true
	}
	return l.mayConstruct(j, sc)
}

func (l *Lawyer) mayConstruct(j *Judge, c Callable) bool {
	enclosing := l.overrides.EnclosingClass
	switch c.Visibility {
	case Private:
		return enclosing != 0 && enclosing == c.Symbol
	case Protected:
		return enclosing != 0 && (enclosing == c.Symbol || j.res.IsDerivedFrom(enclosing, c.Symbol))
	}
	return true
}

// CanConstruct reports whether `new` may be applied to t from inside the
// enclosing class (zero for top-level code).
func (l *Lawyer) CanConstruct(t TypeID, enclosing DefID) bool {
	j := l.judge
	t = j.eval.Evaluate(t)
	switch d, _ := j.in.Lookup(t); d := d.(type) {
	case Callable:
		if len(d.Construct) == 0 || d.Abstract {
			return false
		}
		saved := l.overrides
		l.overrides = Overrides{EnclosingClass: enclosing}
		defer func() { l.overrides = saved }()
		return l.mayConstruct(j, d)
	case Function:
		return d.IsConstructor
	}
	return false
}
