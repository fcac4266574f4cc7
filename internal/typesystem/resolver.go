package typesystem

import (
	"sync"
)

// Resolver is implemented by the binder/checker and lets the solver look up
// named definitions. The solver itself holds no symbol table.
type Resolver interface {
	// ResolveLazy returns the structural body of a named definition.
	ResolveLazy(def DefID) (TypeID, bool)
	// TypeParams returns the declared type parameters of a generic definition.
	TypeParams(def DefID) []TypeID
	// IsNumericEnum reports whether def is an enum whose members are numbers.
	IsNumericEnum(def DefID) bool
	// IsDerivedFrom reports whether derived is base or inherits from it.
	IsDerivedFrom(derived, base DefID) bool
	// BaseClass returns the direct base of a class definition.
	BaseClass(def DefID) (DefID, bool)
	// ResolveSymbol returns the type of a value symbol (typeof, module namespaces).
	ResolveSymbol(sym SymbolRef) (TypeID, bool)
	// BoxedType returns the apparent object type of a primitive (String for string).
	BoxedType(primitive TypeID) (TypeID, bool)
	// GlobalObjectType returns the universal `Object` interface type.
	GlobalObjectType() (TypeID, bool)
}

// NoopResolver resolves nothing.
type NoopResolver struct{}

func (NoopResolver) ResolveLazy(DefID) (TypeID, bool)       { return TypeNone, false }
func (NoopResolver) TypeParams(DefID) []TypeID              { return nil }
func (NoopResolver) IsNumericEnum(DefID) bool               { return false }
func (NoopResolver) IsDerivedFrom(derived, base DefID) bool { return derived == base }
func (NoopResolver) BaseClass(DefID) (DefID, bool)          { return 0, false }
func (NoopResolver) ResolveSymbol(SymbolRef) (TypeID, bool) { return TypeNone, false }
func (NoopResolver) BoxedType(TypeID) (TypeID, bool)        { return TypeNone, false }
func (NoopResolver) GlobalObjectType() (TypeID, bool)       { return TypeNone, false }

// Definition is a named type known to a DefinitionStore.
type Definition struct {
	Name        string
	Body        TypeID
	TypeParams  []TypeID
	NumericEnum bool
	// Base is the definition this one extends, if any.
	Base DefID
}

// DefinitionStore is a map-backed Resolver. Definitions may be declared before
// their bodies are known, which is how recursive types are built.
type DefinitionStore struct {
	mu           sync.RWMutex
	defs         []Definition
	byName       map[string]DefID
	symbols      map[SymbolRef]TypeID
	boxed        map[TypeID]TypeID
	globalObject TypeID
}

func NewDefinitionStore() *DefinitionStore {
	return &DefinitionStore{
		defs:    []Definition{{}},
		byName:  make(map[string]DefID),
		symbols: make(map[SymbolRef]TypeID),
		boxed:   make(map[TypeID]TypeID),
	}
}

// Declare reserves a DefID for name, returning the existing one if already declared.
func (s *DefinitionStore) Declare(name string) DefID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byName[name]; ok {
		return id
	}
	id := DefID(len(s.defs))
	s.defs = append(s.defs, Definition{Name: name})
	s.byName[name] = id
	return id
}

// Define sets the body and type parameters of a declared definition.
func (s *DefinitionStore) Define(def DefID, body TypeID, params ...TypeID) {
	s.update(def, func(d *Definition) {
		d.Body = body
		d.TypeParams = params
	})
}

func (s *DefinitionStore) SetBase(def, base DefID) {
	s.update(def, func(d *Definition) { d.Base = base })
}

func (s *DefinitionStore) SetNumericEnum(def DefID, numeric bool) {
	s.update(def, func(d *Definition) { d.NumericEnum = numeric })
}

func (s *DefinitionStore) update(def DefID, fn func(*Definition)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(def) < len(s.defs) && def != 0 {
		fn(&s.defs[def])
	}
}

func (s *DefinitionStore) BindSymbol(sym SymbolRef, t TypeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols[sym] = t
}

func (s *DefinitionStore) SetBoxed(primitive, boxed TypeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boxed[primitive] = boxed
}

func (s *DefinitionStore) SetGlobalObject(t TypeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalObject = t
}

// Lookup finds a definition by name.
func (s *DefinitionStore) Lookup(name string) (DefID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[name]
	return id, ok
}

func (s *DefinitionStore) Definition(def DefID) (Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if def == 0 || int(def) >= len(s.defs) {
		return Definition{}, false
	}
	return s.defs[def], true
}

func (s *DefinitionStore) ResolveLazy(def DefID) (TypeID, bool) {
	d, ok := s.Definition(def)
	if !ok || d.Body == TypeNone {
		return TypeNone, false
	}
	return d.Body, true
}

func (s *DefinitionStore) TypeParams(def DefID) []TypeID {
	d, _ := s.Definition(def)
	return d.TypeParams
}

func (s *DefinitionStore) IsNumericEnum(def DefID) bool {
	d, _ := s.Definition(def)
	return d.NumericEnum
}

// IsDerivedFrom walks the base chain. Chains are short in practice; the walk
// stops at the number of known definitions to survive malformed cycles.
func (s *DefinitionStore) IsDerivedFrom(derived, base DefID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for steps := 0; derived != 0 && steps < len(s.defs); steps++ {
		if derived == base {
			return true
		}
		if int(derived) >= len(s.defs) {
			return false
		}
		derived = s.defs[derived].Base
	}
	return false
}

func (s *DefinitionStore) BaseClass(def DefID) (DefID, bool) {
	d, ok := s.Definition(def)
	return d.Base, ok && d.Base != 0
}

func (s *DefinitionStore) ResolveSymbol(sym SymbolRef) (TypeID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.symbols[sym]
	return t, ok
}

func (s *DefinitionStore) BoxedType(primitive TypeID) (TypeID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.boxed[primitive]
	return t, ok
}

func (s *DefinitionStore) GlobalObjectType() (TypeID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globalObject, s.globalObject != TypeNone
}
