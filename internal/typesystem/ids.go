package typesystem

import "strconv"

// TypeID is a canonical handle to an interned type value.
// Equal ids imply structurally equal types.
type TypeID uint32

// Atom is a handle to an interned string (property names, literal payloads).
type Atom uint32

// DefID identifies a named definition (interface, class, alias, enum) owned by the binder.
type DefID uint32

// SymbolRef identifies a value symbol owned by the binder.
type SymbolRef uint32

// Reserved type ids. User types start at FirstUserType.
const (
	TypeNone TypeID = iota
	TypeError
	TypeNever
	TypeUnknown
	TypeAny
	TypeVoid
	TypeUndefined
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeBigint
	TypeSymbol
	TypeObject
	TypeTrue
	TypeFalse
	TypeFunction
	lastReservedType
)

const FirstUserType TypeID = 100

// NoAtom is the empty atom; it always maps to "".
const NoAtom Atom = 0

// IsReserved reports whether id is one of the built-in intrinsic ids.
func (id TypeID) IsReserved() bool {
	return id < FirstUserType
}

func (id TypeID) String() string {
	if id < lastReservedType {
		return intrinsicNames[id]
	}
	return "#" + strconv.FormatUint(uint64(id), 10)
}

var intrinsicNames = [...]string{
	TypeNone:      "<none>",
	TypeError:     "error",
	TypeNever:     "never",
	TypeUnknown:   "unknown",
	TypeAny:       "any",
	TypeVoid:      "void",
	TypeUndefined: "undefined",
	TypeNull:      "null",
	TypeBoolean:   "boolean",
	TypeNumber:    "number",
	TypeString:    "string",
	TypeBigint:    "bigint",
	TypeSymbol:    "symbol",
	TypeObject:    "object",
	TypeTrue:      "true",
	TypeFalse:     "false",
	TypeFunction:  "Function",
}

// IntrinsicByName maps a built-in type name to its reserved id.
func IntrinsicByName(name string) (TypeID, bool) {
	for id := TypeError; id < lastReservedType; id++ {
		if intrinsicNames[id] == name {
			return id, true
		}
	}
	return TypeNone, false
}

func isPrimitive(id TypeID) bool {
	switch id {
	case TypeString, TypeNumber, TypeBigint, TypeBoolean, TypeSymbol,
		TypeTrue, TypeFalse, TypeVoid, TypeUndefined, TypeNull:
		return true
	}
	return false
}

func isNullish(id TypeID) bool {
	return id == TypeNull || id == TypeUndefined || id == TypeVoid
}
