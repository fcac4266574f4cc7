package typesystem

func (e *Evaluator) evaluateConditional(t TypeID, c Conditional) TypeID {
	in := e.in
	check := e.Evaluate(c.Check)
	ext := e.Evaluate(c.Extends)

	if c.Distributive {
		if check == TypeNever {
			return TypeNever
		}
		if u, ok := lookupAs[Union](in, check); ok {
			results := make([]TypeID, 0, len(u.Members))
			for _, m := range u.Members {
				results = append(results, e.Evaluate(in.Conditional(m, c.Extends, c.True, c.False)))
			}
			return in.Union(results...)
		}
	}

	// Deferred until instantiation supplies the type parameters.
	if in.IsGeneric(check) || in.IsGeneric(ext) {
		if check == c.Check && ext == c.Extends {
			return t
		}
		return in.ConditionalWith(Conditional{
			Check: check, Extends: ext, True: c.True, False: c.False, Distributive: c.Distributive,
		})
	}

	if check == TypeAny {
		if ext == TypeAny || ext == TypeUnknown {
			return e.Evaluate(c.True)
		}
		return in.Union(e.Evaluate(c.True), e.Evaluate(c.False))
	}

	params := in.inferParams(c.Extends)
	if len(params) == 0 {
		if e.relator().IsSubtype(check, ext) {
			return e.Evaluate(c.True)
		}
		return e.Evaluate(c.False)
	}

	bindings, ok := e.matchInfer(check, c.Extends, params)
	if !ok {
		return e.Evaluate(c.False)
	}
	matched := e.Evaluate(Instantiate(in, e.caches, c.Extends, bindings))
	if !e.relator().IsSubtype(check, matched) {
		return e.Evaluate(c.False)
	}
	return e.Evaluate(Instantiate(in, e.caches, c.True, bindings))
}

// matchInfer infers the `infer` placeholders of pattern from check. A binding
// that violates its declared constraint fails the match.
func (e *Evaluator) matchInfer(check, pattern TypeID, params []TypeID) (Subst, bool) {
	ctx := newInferenceContext(e, params)
	ctx.InferFromTypes(check, pattern, PriorityArgument)
	bindings := make(Subst, len(params))
	for _, p := range params {
		b := ctx.resolveUnion(p)
		if tp, ok := lookupAs[TypeParameter](e.in, p); ok && tp.Constraint != TypeNone {
			if !e.relator().IsSubtype(b, e.Evaluate(tp.Constraint)) {
				return nil, false
			}
		}
		bindings[p] = b
	}
	return bindings, true
}
