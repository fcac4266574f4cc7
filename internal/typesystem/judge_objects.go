package typesystem

func (j *Judge) checkToObject(s TypeID, sd TypeData, td Object, t TypeID) bool {
	in := j.in
	if len(td.Properties) == 0 && td.StringIndex == nil && td.NumberIndex == nil {
		// {} accepts every non-nullish value. An unconstrained type
		// parameter reaches here as unknown.
		return !isNullish(s) && s != TypeUnknown
	}
	if so, ok := sd.(Object); ok && so.Symbol != 0 && td.Symbol != 0 && so.Symbol != td.Symbol {
		if j.res.IsDerivedFrom(so.Symbol, td.Symbol) {
			return true
		}
	}
	src, ok := j.eval.apparentShape(s)
	if !ok {
		if s != TypeObject {
			return false
		}
		src = shape{}
	}
	tgt, _ := in.shapeOf(t)
	return j.checkShapes(src, tgt)
}

func (j *Judge) checkToCallable(s TypeID, sd TypeData, td Callable, t TypeID) bool {
	if sc, ok := sd.(Callable); ok && sc.Abstract && !td.Abstract && len(td.Construct) > 0 {
		return false
	}
	src, ok := j.eval.apparentShape(s)
	if !ok {
		return false
	}
	tgt, _ := j.in.shapeOf(t)
	return j.checkShapes(src, tgt)
}

// checkShapes compares member views: every target property must exist in
// the source (unless optional) with a compatible type, index signatures must
// be satisfied and every target signature matched by some source signature.
func (j *Judge) checkShapes(src, tgt shape) bool {
	in := j.in
	for _, tp := range tgt.props {
		sp, found := in.property(src, tp.Name)
		if !found {
			if tp.Optional {
				continue
			}
			return false
		}
		if !j.checkProperty(sp, tp) {
			return false
		}
	}
	if tgt.stringIndex != nil && !j.checkStringIndex(src, tgt.stringIndex) {
		return false
	}
	if tgt.numberIndex != nil && !j.checkNumberIndex(src, tgt.numberIndex) {
		return false
	}
	return j.checkSignatures(src.calls, tgt.calls) && j.checkSignatures(src.constructs, tgt.constructs)
}

func (j *Judge) checkProperty(sp, tp Property) bool {
	in := j.in
	if sp.Optional && !tp.Optional {
		return false
	}
	srcT, tgtT := sp.Type, tp.Type
	if j.flags.Has(FlagStrictNullChecks) && !j.flags.Has(FlagExactOptionalPropertyTypes) {
		if sp.Optional {
			srcT = in.Union(srcT, TypeUndefined)
		}
		if tp.Optional {
			tgtT = in.Union(tgtT, TypeUndefined)
		}
	}

	if (sp.IsMethod || tp.IsMethod) && !j.flags.Has(FlagDisableMethodBivariance) {
		if !j.withFlags(j.flags&^FlagStrictFunctionTypes, func() bool { return j.check(srcT, tgtT) }) {
			return false
		}
	} else if !j.check(srcT, tgtT) {
		return false
	}

	// Writes flow the other way.
	if !tp.Readonly && (sp.WriteType != TypeNone || tp.WriteType != TypeNone) {
		sw, tw := orType(sp.WriteType, sp.Type), orType(tp.WriteType, tp.Type)
		if !j.check(tw, sw) {
			return false
		}
	}
	return true
}

// checkStringIndex: an explicit source index must be compatible; anonymous
// shapes without one are checked property by property. Declared classes and
// interfaces get no implicit index signature.
func (j *Judge) checkStringIndex(src shape, idx *IndexSignature) bool {
	if src.stringIndex != nil {
		return j.check(src.stringIndex.Value, idx.Value)
	}
	if src.symbol != 0 {
		return false
	}
	for _, p := range src.props {
		if !j.check(j.propertyReadType(p), idx.Value) {
			return false
		}
	}
	return src.numberIndex == nil || j.check(src.numberIndex.Value, idx.Value)
}

func (j *Judge) checkNumberIndex(src shape, idx *IndexSignature) bool {
	switch {
	case src.numberIndex != nil:
		return j.check(src.numberIndex.Value, idx.Value)
	case src.stringIndex != nil:
		return j.check(src.stringIndex.Value, idx.Value)
	case src.symbol != 0:
		return false
	}
	for _, p := range src.props {
		if !isNumericString(j.in.AtomText(p.Name)) {
			continue
		}
		if !j.check(j.propertyReadType(p), idx.Value) {
			return false
		}
	}
	return true
}

func (j *Judge) propertyReadType(p Property) TypeID {
	if p.Optional && j.flags.Has(FlagStrictNullChecks) {
		return j.in.Union(p.Type, TypeUndefined)
	}
	return p.Type
}

// checkSignatures requires every target signature to be matched by at
// least one source signature.
func (j *Judge) checkSignatures(src, tgt []TypeID) bool {
	for _, ts := range tgt {
		tf, ok := lookupAs[Function](j.in, ts)
		if !ok {
			return false
		}
		matched := false
		for _, ss := range src {
			if sf, ok := lookupAs[Function](j.in, ss); ok && j.checkFunction(sf, tf) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
