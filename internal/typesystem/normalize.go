package typesystem

import (
	"slices"

	"github.com/funvibe/tsolve/internal/config"
)

// Union creates a normalized union type.
// It flattens nested unions, removes duplicates and `never`, collapses
// `true | false` to boolean, drops literals whose primitive is present and
// sorts members by id.
func (in *Interner) Union(members ...TypeID) TypeID {
	flat := make([]TypeID, 0, len(members))
	hasUnknown := false
	for _, m := range members {
		switch m {
		case TypeNone, TypeNever:
			continue
		case TypeAny:
			return TypeAny
		case TypeUnknown:
			hasUnknown = true
			continue
		}
		if u, ok := lookupAs[Union](in, m); ok {
			flat = append(flat, u.Members...)
			continue
		}
		flat = append(flat, m)
	}
	if hasUnknown {
		return TypeUnknown
	}

	slices.Sort(flat)
	flat = slices.Compact(flat)

	if slices.Contains(flat, TypeTrue) && slices.Contains(flat, TypeFalse) {
		flat = slices.DeleteFunc(flat, func(m TypeID) bool { return m == TypeTrue || m == TypeFalse })
		flat = append(flat, TypeBoolean)
		slices.Sort(flat)
		flat = slices.Compact(flat)
	}

	hasString := slices.Contains(flat, TypeString)
	hasNumber := slices.Contains(flat, TypeNumber)
	hasBigint := slices.Contains(flat, TypeBigint)
	hasBoolean := slices.Contains(flat, TypeBoolean)
	if hasString || hasNumber || hasBigint || hasBoolean {
		flat = slices.DeleteFunc(flat, func(m TypeID) bool {
			if m == TypeTrue || m == TypeFalse {
				return hasBoolean
			}
			switch d, _ := in.Lookup(m); d := d.(type) {
			case Literal:
				switch d.Base {
				case LitString:
					return hasString
				case LitNumber:
					return hasNumber
				case LitBigInt:
					return hasBigint
				}
			case TemplateLiteral, StringIntrinsic:
				return hasString
			}
			return false
		})
	}

	switch len(flat) {
	case 0:
		return TypeNever
	case 1:
		return flat[0]
	}
	return in.Intern(Union{Members: flat})
}

// primitiveFamily groups types whose intersection is empty when they differ.
// Zero means the type does not take part in disjointness reduction.
type primitiveFamily uint8

const (
	familyNone primitiveFamily = iota
	familyString
	familyNumber
	familyBigint
	familyBoolean
	familySymbol
	familyNull
	familyUndefined
	familyNonPrimitive
)

func (in *Interner) family(id TypeID) primitiveFamily {
	switch id {
	case TypeString:
		return familyString
	case TypeNumber:
		return familyNumber
	case TypeBigint:
		return familyBigint
	case TypeBoolean, TypeTrue, TypeFalse:
		return familyBoolean
	case TypeSymbol:
		return familySymbol
	case TypeNull:
		return familyNull
	case TypeUndefined, TypeVoid:
		return familyUndefined
	case TypeObject:
		return familyNonPrimitive
	}
	switch d, _ := in.Lookup(id); d := d.(type) {
	case Literal:
		switch d.Base {
		case LitString:
			return familyString
		case LitNumber:
			return familyNumber
		case LitBigInt:
			return familyBigint
		}
	case Enum:
		return in.family(d.Member)
	case TemplateLiteral, StringIntrinsic:
		return familyString
	case UniqueSymbol:
		return familySymbol
	}
	return familyNone
}

// Intersection creates a normalized intersection type: flattened, sorted,
// deduplicated, absorbing `never` and `any`, dropping `unknown`, reducing
// disjoint primitives to `never` and distributing over union members.
func (in *Interner) Intersection(members ...TypeID) TypeID {
	flat := make([]TypeID, 0, len(members))
	for _, m := range members {
		switch m {
		case TypeNone, TypeUnknown:
			continue
		case TypeNever:
			return TypeNever
		}
		if x, ok := lookupAs[Intersection](in, m); ok {
			flat = append(flat, x.Members...)
			continue
		}
		flat = append(flat, m)
	}
	if slices.Contains(flat, TypeAny) {
		return TypeAny
	}
	slices.Sort(flat)
	flat = slices.Compact(flat)

	// Disjoint primitives, distinct units, and a primitive next to one of
	// its own literals.
	var fam primitiveFamily
	var unit TypeID
	for _, m := range flat {
		f := in.family(m)
		if f == familyNone {
			continue
		}
		if fam != familyNone && f != fam {
			return TypeNever
		}
		fam = f
		if m == TypeVoid || !in.isUnit(m) {
			continue
		}
		if unit != TypeNone && unit != m && !in.sameUnitValue(unit, m) {
			return TypeNever
		}
		if unit == TypeNone || in.KindOf(m) == KindEnum {
			unit = m
		}
	}
	if unit != TypeNone {
		flat = slices.DeleteFunc(flat, func(m TypeID) bool {
			return m != unit && in.family(m) != familyNone
		})
	}

	if dist, ok := in.distributeIntersection(flat); ok {
		return dist
	}

	switch len(flat) {
	case 0:
		return TypeUnknown
	case 1:
		return flat[0]
	}
	return in.Intern(Intersection{Members: flat})
}

// sameUnitValue treats an enum member and its own literal as the same unit.
func (in *Interner) sameUnitValue(a, b TypeID) bool {
	ea, aEnum := lookupAs[Enum](in, a)
	eb, bEnum := lookupAs[Enum](in, b)
	switch {
	case aEnum && bEnum:
		return false
	case aEnum:
		return ea.Member == b
	case bEnum:
		return eb.Member == a
	}
	return false
}

// distributeIntersection rewrites A & (B | C) into (A & B) | (A & C) when the
// number of combinations stays within config.MaxDistributionSize.
func (in *Interner) distributeIntersection(flat []TypeID) (TypeID, bool) {
	unionAt := -1
	for i, m := range flat {
		if in.KindOf(m) == KindUnion {
			unionAt = i
			break
		}
	}
	if unionAt < 0 {
		return TypeNone, false
	}
	combos := 1
	for _, m := range flat {
		if u, ok := lookupAs[Union](in, m); ok {
			combos *= len(u.Members)
			if combos > config.MaxDistributionSize {
				return TypeNone, false
			}
		}
	}
	u, _ := lookupAs[Union](in, flat[unionAt])
	rest := slices.Delete(slices.Clone(flat), unionAt, unionAt+1)
	results := make([]TypeID, 0, len(u.Members))
	for _, m := range u.Members {
		results = append(results, in.Intersection(append(slices.Clone(rest), m)...))
	}
	return in.Union(results...), true
}
