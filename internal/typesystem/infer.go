package typesystem

import (
	"slices"
)

// InferencePriority ranks candidate evidence. Higher wins.
type InferencePriority uint8

const (
	PriorityReturnType InferencePriority = iota + 1
	PriorityArgument
	PriorityLiteral
)

func (p InferencePriority) String() string {
	switch p {
	case PriorityReturnType:
		return "return"
	case PriorityArgument:
		return "argument"
	case PriorityLiteral:
		return "literal"
	}
	return "none"
}

type candidate struct {
	typ      TypeID
	priority InferencePriority
}

type inferenceInfo struct {
	param      TypeParameter
	candidates []candidate
	upper      []TypeID
	lower      []TypeID
}

// InferenceContext collects evidence for a set of type parameters and solves
// them. A context belongs to one call site.
type InferenceContext struct {
	in       *Interner
	eval     *Evaluator
	params   []TypeID
	info     map[TypeID]*inferenceInfo
	guard    *Guard[pairKey]
	resolved Subst
}

// NewInferenceContext creates a context solving params.
func NewInferenceContext(in *Interner, res Resolver, caches *Caches, flags RelationFlags, params []TypeID) *InferenceContext {
	return newInferenceContext(NewEvaluator(in, res, caches, flags), params)
}

func newInferenceContext(e *Evaluator, params []TypeID) *InferenceContext {
	c := &InferenceContext{
		in:       e.in,
		eval:     e,
		params:   slices.Clone(params),
		info:     make(map[TypeID]*inferenceInfo, len(params)),
		guard:    NewGuard[pairKey](InferenceLimits),
		resolved: make(Subst, len(params)),
	}
	for _, p := range params {
		tp, _ := lookupAs[TypeParameter](e.in, p)
		c.info[p] = &inferenceInfo{param: tp}
	}
	return c
}

func (c *InferenceContext) relator() *Judge { return c.eval.relator() }

// AddCandidate registers evidence for param. Arguments to const type
// parameters count as literal evidence.
func (c *InferenceContext) AddCandidate(param, t TypeID, prio InferencePriority) {
	info, ok := c.info[param]
	if !ok || t == TypeNone {
		return
	}
	if info.param.Const && prio == PriorityArgument {
		prio = PriorityLiteral
	}
	info.candidates = append(info.candidates, candidate{typ: t, priority: prio})
}

// AddUpperBound adds an `extends` bound; several bounds combine by intersection.
func (c *InferenceContext) AddUpperBound(param, bound TypeID) {
	if info, ok := c.info[param]; ok {
		info.upper = append(info.upper, bound)
	}
}

// AddLowerBound adds a type the solution must accept.
func (c *InferenceContext) AddLowerBound(param, bound TypeID) {
	if info, ok := c.info[param]; ok {
		info.lower = append(info.lower, bound)
	}
}

// InferFromTypes walks target looking for the context's type parameters and
// registers the matching parts of source as candidates.
func (c *InferenceContext) InferFromTypes(source, target TypeID, prio InferencePriority) {
	if source == TypeNone || target == TypeNone {
		return
	}
	if _, ok := c.info[target]; ok {
		c.AddCandidate(target, source, prio)
		return
	}
	if target.IsReserved() {
		return
	}
	pair := pairKey{source: source, target: target}
	if c.guard.Enter(pair) != Entered {
		return
	}
	defer c.guard.Leave(pair)
	c.inferData(c.eval.Evaluate(source), target, prio)
}

func (c *InferenceContext) inferData(source, target TypeID, prio InferencePriority) {
	in := c.in
	td, _ := in.Lookup(target)
	if inf, ok := td.(Infer); ok {
		c.AddCandidate(inf.Param, source, prio)
		return
	}
	if _, ok := td.(NoInfer); ok {
		return
	}
	if tu, ok := td.(Union); ok {
		c.inferToUnion(source, tu, prio)
		return
	}
	if su, ok := lookupAs[Union](in, source); ok {
		for _, m := range su.Members {
			c.InferFromTypes(m, target, prio)
		}
		return
	}

	switch td := td.(type) {
	case Intersection:
		for _, m := range td.Members {
			c.InferFromTypes(source, m, prio)
		}
	case Array:
		switch sd, _ := in.Lookup(source); sd := sd.(type) {
		case Array:
			c.InferFromTypes(sd.Element, td.Element, prio)
		case Tuple:
			for _, el := range sd.Elements {
				c.InferFromTypes(el.Type, td.Element, prio)
			}
		case Readonly:
			c.InferFromTypes(sd.Inner, target, prio)
		}
	case Tuple:
		c.inferToTuple(source, td, prio)
	case Readonly:
		if sr, ok := lookupAs[Readonly](in, source); ok {
			source = sr.Inner
		}
		c.InferFromTypes(source, td.Inner, prio)
	case Object, Callable:
		c.inferToShape(source, target, prio)
	case Function:
		c.inferToFunction(source, td, prio)
	case Application:
		if sa, ok := lookupAs[Application](in, source); ok && sa.Base == td.Base {
			for i := range min(len(sa.Args), len(td.Args)) {
				c.InferFromTypes(sa.Args[i], td.Args[i], prio)
			}
			return
		}
		if et := c.eval.Evaluate(target); et != target {
			c.InferFromTypes(source, et, prio)
		}
	case Lazy:
		if et := c.eval.Evaluate(target); et != target {
			c.InferFromTypes(source, et, prio)
		}
	case TemplateLiteral:
		c.inferToTemplate(source, td, prio)
	case Conditional:
		c.InferFromTypes(source, td.True, prio)
		c.InferFromTypes(source, td.False, prio)
	}
}

// inferToUnion matches identical members first; what remains of the source
// flows to a single naked type parameter of the target, or to every generic
// member otherwise.
func (c *InferenceContext) inferToUnion(source TypeID, tu Union, prio InferencePriority) {
	in := c.in
	sources := []TypeID{source}
	if su, ok := lookupAs[Union](in, source); ok {
		sources = su.Members
	}
	var naked, generic []TypeID
	for _, m := range tu.Members {
		switch {
		case c.isInferenceTarget(m):
			naked = append(naked, m)
		case in.IsGeneric(m) || len(in.inferParams(m)) > 0:
			generic = append(generic, m)
		}
	}
	remaining := make([]TypeID, 0, len(sources))
	for _, s := range sources {
		if !slices.Contains(tu.Members, s) {
			remaining = append(remaining, s)
		}
	}
	if len(remaining) == 0 {
		return
	}
	for _, g := range generic {
		for _, s := range remaining {
			c.InferFromTypes(s, g, prio)
		}
	}
	if len(naked) == 1 {
		c.InferFromTypes(in.Union(remaining...), naked[0], prio)
	}
}

func (c *InferenceContext) isInferenceTarget(t TypeID) bool {
	if _, ok := c.info[t]; ok {
		return true
	}
	if inf, ok := lookupAs[Infer](c.in, t); ok {
		_, ok := c.info[inf.Param]
		return ok
	}
	return false
}

func (c *InferenceContext) inferToTuple(source TypeID, tt Tuple, prio InferencePriority) {
	in := c.in
	switch sd, _ := in.Lookup(source); sd := sd.(type) {
	case Tuple:
		for i, te := range tt.Elements {
			if te.Rest {
				var rest []TupleElement
				if i < len(sd.Elements) {
					rest = sd.Elements[i:]
				}
				for _, se := range rest {
					c.InferFromTypes(se.Type, te.Type, prio)
				}
				return
			}
			if i < len(sd.Elements) {
				c.InferFromTypes(sd.Elements[i].Type, te.Type, prio)
			}
		}
	case Array:
		for _, te := range tt.Elements {
			c.InferFromTypes(sd.Element, te.Type, prio)
		}
	case Readonly:
		c.InferFromTypes(sd.Inner, in.Intern(tt), prio)
	}
}

func (c *InferenceContext) inferToShape(source, target TypeID, prio InferencePriority) {
	in := c.in
	src, ok := c.eval.apparentShape(source)
	if !ok {
		return
	}
	tgt, _ := in.shapeOf(target)
	for _, tp := range tgt.props {
		if sp, found := in.property(src, tp.Name); found {
			c.InferFromTypes(sp.Type, tp.Type, prio)
		}
	}
	if tgt.stringIndex != nil {
		if src.stringIndex != nil {
			c.InferFromTypes(src.stringIndex.Value, tgt.stringIndex.Value, prio)
		} else {
			for _, p := range src.props {
				c.InferFromTypes(p.Type, tgt.stringIndex.Value, prio)
			}
		}
	}
	if tgt.numberIndex != nil && src.numberIndex != nil {
		c.InferFromTypes(src.numberIndex.Value, tgt.numberIndex.Value, prio)
	}
	c.inferSignatures(src.calls, tgt.calls, prio)
	c.inferSignatures(src.constructs, tgt.constructs, prio)
}

// inferSignatures pairs the trailing signatures of both lists, the way
// overloads are matched against a single target signature.
func (c *InferenceContext) inferSignatures(src, tgt []TypeID, prio InferencePriority) {
	n := min(len(src), len(tgt))
	for i := range n {
		s := src[len(src)-n+i]
		t := tgt[len(tgt)-n+i]
		if tf, ok := lookupAs[Function](c.in, t); ok {
			c.inferToFunction(s, tf, prio)
		}
	}
}

func (c *InferenceContext) inferToFunction(source TypeID, tf Function, prio InferencePriority) {
	in := c.in
	var sf Function
	switch d, _ := in.Lookup(source); d := d.(type) {
	case Function:
		sf = d
	case Callable:
		sigs := d.Call
		if tf.IsConstructor {
			sigs = d.Construct
		}
		if len(sigs) == 0 {
			return
		}
		last, ok := lookupAs[Function](in, sigs[len(sigs)-1])
		if !ok {
			return
		}
		sf = last
	default:
		return
	}
	n := max(len(sf.Params), len(tf.Params))
	for i := range n {
		st, sok := paramAt(sf, i)
		tt, tok := paramAt(tf, i)
		if sok && tok {
			c.InferFromTypes(st, tt, prio)
		}
	}
	if sf.This != TypeNone && tf.This != TypeNone {
		c.InferFromTypes(sf.This, tf.This, prio)
	}
	c.InferFromTypes(sf.Return, tf.Return, prio)
	if sf.Predicate != nil && tf.Predicate != nil {
		c.InferFromTypes(sf.Predicate.Type, tf.Predicate.Type, prio)
	}
}

// inferToTemplate splits a string literal across the target's spans and
// binds each captured piece to the hole's type parameter.
func (c *InferenceContext) inferToTemplate(source TypeID, tt TemplateLiteral, prio InferencePriority) {
	in := c.in
	lit, ok := lookupAs[Literal](in, source)
	if !ok || lit.Base != LitString {
		if st, ok := lookupAs[TemplateLiteral](in, source); ok && len(st.Spans) == len(tt.Spans) {
			for i, s := range st.Spans {
				if !s.IsText() && !tt.Spans[i].IsText() {
					c.InferFromTypes(s.Type, tt.Spans[i].Type, prio)
				}
			}
		}
		return
	}
	var captures []string
	m := templateMatcher{in: in, accept: in.HoleAccepts}
	if !m.match(in.AtomText(lit.Text), tt.Spans, &captures) {
		return
	}
	hole := 0
	for _, s := range tt.Spans {
		if s.IsText() {
			continue
		}
		if hole < len(captures) {
			c.InferFromTypes(c.holeCapture(s.Type, captures[hole]), s.Type, prio)
		}
		hole++
	}
}

// holeCapture types a captured piece: number and bigint constrained holes
// produce numeric literals, everything else a string literal.
func (c *InferenceContext) holeCapture(hole TypeID, piece string) TypeID {
	in := c.in
	constraint := TypeNone
	switch d, _ := in.Lookup(hole); d := d.(type) {
	case Infer:
		if tp, ok := lookupAs[TypeParameter](in, d.Param); ok {
			constraint = tp.Constraint
		}
	case TypeParameter:
		constraint = d.Constraint
	}
	switch constraint {
	case TypeNumber:
		if isNumericString(piece) {
			if lit, ok := in.parseNumberLiteral(piece); ok {
				return lit
			}
		}
	case TypeBigint:
		if isBigIntString(piece) {
			return in.LiteralBigInt(piece)
		}
	}
	return in.LiteralString(piece)
}

func (c *InferenceContext) topCandidates(info *inferenceInfo) ([]TypeID, InferencePriority) {
	var best InferencePriority
	for _, cand := range info.candidates {
		best = max(best, cand.priority)
	}
	var out []TypeID
	for _, cand := range info.candidates {
		if cand.priority == best && !slices.Contains(out, cand.typ) {
			out = append(out, cand.typ)
		}
	}
	return out, best
}

// upperBound combines the declared constraint with registered bounds.
// Earlier resolutions are substituted into the constraint.
func (c *InferenceContext) upperBound(info *inferenceInfo) TypeID {
	bounds := slices.Clone(info.upper)
	if info.param.Constraint != TypeNone {
		bounds = append(bounds, Instantiate(c.in, c.eval.caches, info.param.Constraint, c.resolved))
	}
	if len(bounds) == 0 {
		return TypeNone
	}
	for i := range bounds {
		bounds[i] = c.eval.Evaluate(bounds[i])
	}
	return c.in.Intersection(bounds...)
}

// Resolve solves param from the highest-priority evidence. On a bounds
// violation the offending candidate is returned alongside the error.
func (c *InferenceContext) Resolve(param TypeID) (TypeID, error) {
	info, ok := c.info[param]
	if !ok {
		return param, nil
	}
	upper := c.upperBound(info)
	cands, prio := c.topCandidates(info)

	var result TypeID
	switch {
	case len(cands) == 0:
		result = c.fallback(info, upper)
	case prio == PriorityReturnType:
		result = c.in.Union(cands...)
	case len(cands) == 1:
		result = cands[0]
	case info.param.Const:
		result = c.in.Union(cands...)
	default:
		result = c.commonSupertype(cands, upper)
	}

	if upper != TypeNone && !c.relator().IsSubtype(result, upper) {
		return result, NewBoundsViolationError(
			c.in.AtomText(info.param.Name), c.in.Format(result), c.in.Format(upper))
	}
	c.resolved[param] = result
	return result, nil
}

func (c *InferenceContext) fallback(info *inferenceInfo, upper TypeID) TypeID {
	switch {
	case len(info.lower) > 0:
		return c.in.Union(info.lower...)
	case info.param.Default != TypeNone:
		return Instantiate(c.in, c.eval.caches, info.param.Default, c.resolved)
	case upper != TypeNone:
		return upper
	}
	return TypeUnknown
}

// commonSupertype merges same-priority argument evidence: a candidate that
// covers all the others wins; distinct literals of one primitive widen to it
// unless the upper bound needs the literals; class instances share their
// nearest common base class. Anything else is a union.
func (c *InferenceContext) commonSupertype(cands []TypeID, upper TypeID) TypeID {
	in := c.in
	j := c.relator()
	for _, cand := range cands {
		covers := true
		for _, other := range cands {
			if other != cand && !j.IsSubtype(other, cand) {
				covers = false
				break
			}
		}
		if covers {
			return cand
		}
	}

	union := in.Union(cands...)
	if base, ok := c.sharedLiteralBase(cands); ok {
		if upper == TypeNone || j.IsSubtype(base, upper) {
			return base
		}
		return union
	}
	if base, ok := c.commonBaseClass(cands); ok {
		if upper == TypeNone || j.IsSubtype(base, upper) {
			return base
		}
	}
	return union
}

func (c *InferenceContext) sharedLiteralBase(cands []TypeID) (TypeID, bool) {
	base := TypeNone
	for _, cand := range cands {
		if !c.in.IsLiteral(cand) {
			return TypeNone, false
		}
		b := c.in.WidenLiteral(cand)
		if base != TypeNone && b != base {
			return TypeNone, false
		}
		base = b
	}
	return base, true
}

// commonBaseClass walks the first candidate's class hierarchy and returns the
// nearest class every candidate derives from.
func (c *InferenceContext) commonBaseClass(cands []TypeID) (TypeID, bool) {
	classes := make([]DefID, len(cands))
	for i, cand := range cands {
		def := c.classOf(cand)
		if def == 0 {
			return TypeNone, false
		}
		classes[i] = def
	}
	res := c.eval.res
	seen := make(map[DefID]bool)
	for base, ok := classes[0], true; ok && !seen[base]; base, ok = res.BaseClass(base) {
		seen[base] = true
		shared := true
		for _, d := range classes[1:] {
			if !res.IsDerivedFrom(d, base) {
				shared = false
				break
			}
		}
		if shared {
			return c.in.Lazy(base), true
		}
	}
	return TypeNone, false
}

func (c *InferenceContext) classOf(t TypeID) DefID {
	switch td, _ := c.in.Lookup(t); td := td.(type) {
	case Lazy:
		return td.Def
	case Object:
		return td.Symbol
	}
	return 0
}

// ResolveAll solves every parameter in declaration order, so later
// constraints see earlier solutions.
func (c *InferenceContext) ResolveAll() ([]TypeID, error) {
	out := make([]TypeID, len(c.params))
	for i, p := range c.params {
		r, err := c.Resolve(p)
		if err != nil {
			return nil, errInferContext(c.in.Format(p), err)
		}
		out[i] = r
	}
	return out, nil
}

// resolveUnion solves an `infer` placeholder: all top-priority candidates
// united, or the declared constraint when nothing matched.
func (c *InferenceContext) resolveUnion(param TypeID) TypeID {
	info, ok := c.info[param]
	if !ok {
		return TypeUnknown
	}
	cands, _ := c.topCandidates(info)
	if len(cands) == 0 {
		if info.param.Constraint != TypeNone {
			return info.param.Constraint
		}
		return TypeUnknown
	}
	return c.in.Union(cands...)
}

// resolveLoose solves param for signature instantiation, where a violated
// bound falls back to the bound itself.
func (c *InferenceContext) resolveLoose(param TypeID) TypeID {
	r, err := c.Resolve(param)
	if err != nil {
		if info, ok := c.info[param]; ok {
			if upper := c.upperBound(info); upper != TypeNone {
				return upper
			}
		}
	}
	return r
}
