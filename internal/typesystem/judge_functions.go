package typesystem

func (j *Judge) checkToFunction(sd TypeData, tf Function) bool {
	switch sd := sd.(type) {
	case Function:
		return j.checkFunction(sd, tf)
	case Callable:
		sigs := sd.Call
		if tf.IsConstructor {
			if sd.Abstract {
				return false
			}
			sigs = sd.Construct
		}
		for _, id := range sigs {
			if sf, ok := lookupAs[Function](j.in, id); ok && j.checkFunction(sf, tf) {
				return true
			}
		}
	}
	return false
}

func paramAt(f Function, i int) (TypeID, bool) {
	if i < len(f.Params) {
		return f.Params[i].Type, true
	}
	if n := len(f.Params); n > 0 && f.Params[n-1].Rest {
		return f.Params[n-1].Type, true
	}
	return TypeNone, false
}

// arity returns the number of required parameters, the number of
// non-rest parameters and whether a rest parameter is present.
func arity(f Function) (required, fixed int, rest bool) {
	for _, p := range f.Params {
		switch {
		case p.Rest:
			rest = true
		case p.Optional:
			fixed++
		default:
			fixed++
			required++
		}
	}
	return required, fixed, rest
}

func hasAnyRest(f Function) bool {
	n := len(f.Params)
	return n > 0 && f.Params[n-1].Rest && f.Params[n-1].Type == TypeAny
}

func (j *Judge) checkFunction(sf, tf Function) bool {
	if sf.IsConstructor != tf.IsConstructor {
		return false
	}
	if len(sf.TypeParams) > 0 && len(tf.TypeParams) == 0 {
		sf = j.instantiateSignature(sf, tf)
	}

	sReq, _, _ := arity(sf)
	_, tFixed, tRest := arity(tf)
	if !tRest && sReq > tFixed && !j.flags.Has(FlagAllowBivariantParamCount) {
		return false
	}

	if sf.This != TypeNone && tf.This != TypeNone && !j.checkParam(sf.This, tf.This) {
		return false
	}

	if !(hasAnyRest(sf) && j.flags.Has(FlagAllowBivariantRest)) {
		n := max(len(sf.Params), len(tf.Params))
		for i := range n {
			st, sok := paramAt(sf, i)
			tt, tok := paramAt(tf, i)
			if !sok || !tok {
				continue
			}
			if !j.checkParam(st, tt) {
				return false
			}
		}
	}

	if !(tf.Return == TypeVoid && j.flags.Has(FlagAllowVoidReturn)) && !j.check(sf.Return, tf.Return) {
		return false
	}

	if tf.Predicate != nil {
		sp := sf.Predicate
		if sp == nil || sp.Asserts != tf.Predicate.Asserts || !j.check(sp.Type, tf.Predicate.Type) {
			return false
		}
	}
	return true
}

// checkParam compares parameter types contravariantly, or bivariantly when
// strict function types are off.
func (j *Judge) checkParam(source, target TypeID) bool {
	if j.check(target, source) {
		return true
	}
	return !j.flags.Has(FlagStrictFunctionTypes) && j.check(source, target)
}

// instantiateSignature infers a generic source signature's type parameters
// from the target signature, so that <T>(x: T) => T relates to (x: number) => number.
func (j *Judge) instantiateSignature(sf, tf Function) Function {
	in := j.in
	ctx := newInferenceContext(j.eval, sf.TypeParams)
	n := max(len(sf.Params), len(tf.Params))
	for i := range n {
		st, sok := paramAt(sf, i)
		tt, tok := paramAt(tf, i)
		if sok && tok {
			ctx.InferFromTypes(tt, st, PriorityArgument)
		}
	}
	ctx.InferFromTypes(tf.Return, sf.Return, PriorityReturnType)

	subst := make(Subst, len(sf.TypeParams))
	for _, p := range sf.TypeParams {
		subst[p] = ctx.resolveLoose(p)
	}
	bare := sf
	bare.TypeParams = nil
	inst, ok := lookupAs[Function](in, Instantiate(in, j.eval.caches, in.Function(bare), subst))
	if !ok {
		return bare
	}
	return inst
}

func (j *Judge) checkToArray(sd TypeData, ta Array) bool {
	switch sd := sd.(type) {
	case Array:
		return j.check(sd.Element, ta.Element)
	case Tuple:
		for _, el := range sd.Elements {
			if !j.check(el.Type, ta.Element) {
				return false
			}
		}
		return true
	}
	// Readonly arrays and tuples are not assignable to mutable ones.
	return false
}

func (j *Judge) checkToReadonly(s TypeID, sd TypeData, tr Readonly) bool {
	inner := j.eval.Evaluate(tr.Inner)
	if sr, ok := sd.(Readonly); ok {
		return j.check(j.eval.Evaluate(sr.Inner), inner)
	}
	return j.check(s, inner)
}

func (j *Judge) checkToTuple(sd TypeData, tt Tuple) bool {
	switch sd := sd.(type) {
	case Tuple:
		return j.checkTuples(sd, tt)
	case Array:
		if len(tt.Elements) == 1 && tt.Elements[0].Rest {
			return j.check(sd.Element, tt.Elements[0].Type)
		}
	}
	return false
}

func splitTuple(t Tuple) (fixed []TupleElement, rest TypeID, required int) {
	rest = TypeNone
	for _, el := range t.Elements {
		switch {
		case el.Rest:
			rest = el.Type
		default:
			fixed = append(fixed, el)
			if !el.Optional {
				required++
			}
		}
	}
	return fixed, rest, required
}

func (j *Judge) checkTuples(st, tt Tuple) bool {
	sFixed, sRest, sReq := splitTuple(st)
	tFixed, tRest, tReq := splitTuple(tt)
	if sRest != TypeNone && tRest == TypeNone {
		return false
	}
	if len(sFixed) > len(tFixed) && tRest == TypeNone {
		return false
	}
	if sReq < tReq {
		return false
	}
	for i, se := range sFixed {
		target := tRest
		if i < len(tFixed) {
			te := tFixed[i]
			if se.Optional && !te.Optional {
				return false
			}
			target = te.Type
		}
		if !j.check(se.Type, target) {
			return false
		}
	}
	if sRest != TypeNone {
		for i := len(sFixed); i < len(tFixed); i++ {
			if !j.check(sRest, tFixed[i].Type) {
				return false
			}
		}
		return j.check(sRest, tRest)
	}
	return true
}

func (j *Judge) checkToTemplate(sd TypeData, tt TemplateLiteral) bool {
	in := j.in
	switch sd := sd.(type) {
	case Literal:
		if sd.Base != LitString {
			return false
		}
		m := templateMatcher{in: in, accept: func(hole TypeID, piece string) bool {
			return in.HoleAccepts(j.eval.Evaluate(hole), piece)
		}}
		return m.match(in.AtomText(sd.Text), tt.Spans, nil)
	case TemplateLiteral:
		if len(sd.Spans) != len(tt.Spans) {
			return false
		}
		for i, ss := range sd.Spans {
			ts := tt.Spans[i]
			if ss.IsText() != ts.IsText() {
				return false
			}
			if ss.IsText() {
				if ss.Text != ts.Text {
					return false
				}
				continue
			}
			// Every hole renders to a string, so a string hole takes anything.
			if ts.Type != TypeString && !j.check(ss.Type, ts.Type) {
				return false
			}
		}
		return true
	}
	return false
}
