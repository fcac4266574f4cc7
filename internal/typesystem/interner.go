package typesystem

import (
	"fmt"
	"hash/maphash"
	"sync"

	"fortio.org/safecast"

	"github.com/funvibe/tsolve/internal/config"
)

const internShards = 64

type internShard struct {
	mu  sync.RWMutex
	ids map[string]TypeID
}

// Interner is canonical storage for type values. Every structurally distinct
// value gets one TypeID; interning is safe for concurrent use.
//
// Each shard lock is held across id allocation, so two goroutines interning
// the same value always observe the same id.
type Interner struct {
	seed   maphash.Seed
	shards [internShards]internShard

	mu     sync.RWMutex
	values []TypeData

	atoms atomTable

	// propIndex caches name -> index maps for large object shapes.
	propIndex sync.Map
}

func NewInterner() *Interner {
	in := &Interner{seed: maphash.MakeSeed()}
	for i := range in.shards {
		in.shards[i].ids = make(map[string]TypeID)
	}
	in.atoms.init()
	return in
}

// Intern returns the id of t, allocating a new one if t was never seen.
func (in *Interner) Intern(t TypeData) TypeID {
	switch t := t.(type) {
	case Intrinsic:
		return t.ID
	case Literal:
		if t.Base == LitBoolean {
			if t.Bool {
				return TypeTrue
			}
			return TypeFalse
		}
	}

	key := string(t.appendKey(make(keyBuf, 0, 32)))
	sh := &in.shards[maphash.String(in.seed, key)%internShards]

	sh.mu.RLock()
	id, ok := sh.ids[key]
	sh.mu.RUnlock()
	if ok {
		return id
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if id, ok := sh.ids[key]; ok {
		return id
	}
	id = in.allocate(t)
	sh.ids[key] = id
	return id
}

func (in *Interner) allocate(t TypeData) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	n, err := safecast.Conv[uint32](len(in.values) + int(FirstUserType))
	if err != nil {
		panic(fmt.Errorf("type id space exhausted: %w", err))
	}
	in.values = append(in.values, t)
	return TypeID(n)
}

// Lookup returns the value behind id.
func (in *Interner) Lookup(id TypeID) (TypeData, bool) {
	if id.IsReserved() {
		switch {
		case id == TypeNone || id >= lastReservedType:
			return nil, false
		case id == TypeTrue:
			return Literal{Base: LitBoolean, Bool: true}, true
		case id == TypeFalse:
			return Literal{Base: LitBoolean, Bool: false}, true
		}
		return Intrinsic{ID: id}, true
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	i := int(id - FirstUserType)
	if i >= len(in.values) {
		return nil, false
	}
	return in.values[i], true
}

// Len is the number of user types interned so far.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.values)
}

// KindOf returns the variant tag of id, or zero for an unknown id.
func (in *Interner) KindOf(id TypeID) TypeKind {
	d, ok := in.Lookup(id)
	if !ok {
		return 0
	}
	return d.Kind()
}

func lookupAs[T TypeData](in *Interner, id TypeID) (T, bool) {
	d, ok := in.Lookup(id)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := d.(T)
	return t, ok
}

// InternString returns the atom for s.
func (in *Interner) InternString(s string) Atom {
	return in.atoms.intern(s)
}

// AtomText returns the string behind an atom.
func (in *Interner) AtomText(a Atom) string {
	return in.atoms.text(a)
}

// ObjectPropertyIndex returns the position of the property named name in the
// object or callable shape id. Shapes above config.PropertyIndexThreshold get a
// cached name -> index map on first use.
func (in *Interner) ObjectPropertyIndex(id TypeID, name Atom) (int, bool) {
	var props []Property
	switch d, _ := in.Lookup(id); d := d.(type) {
	case Object:
		props = d.Properties
	case Callable:
		props = d.Properties
	default:
		return 0, false
	}
	if len(props) <= config.PropertyIndexThreshold {
		return findProperty(props, name)
	}
	if m, ok := in.propIndex.Load(id); ok {
		i, found := m.(map[Atom]int)[name]
		return i, found
	}
	m := make(map[Atom]int, len(props))
	for i, p := range props {
		m[p.Name] = i
	}
	actual, _ := in.propIndex.LoadOrStore(id, m)
	i, found := actual.(map[Atom]int)[name]
	return i, found
}

func findProperty(props []Property, name Atom) (int, bool) {
	for i := range props {
		if props[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

type atomTable struct {
	mu    sync.RWMutex
	ids   map[string]Atom
	texts []string
}

func (t *atomTable) init() {
	t.ids = map[string]Atom{"": NoAtom}
	t.texts = []string{""}
}

func (t *atomTable) intern(s string) Atom {
	t.mu.RLock()
	a, ok := t.ids[s]
	t.mu.RUnlock()
	if ok {
		return a
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.ids[s]; ok {
		return a
	}
	n, err := safecast.Conv[uint32](len(t.texts))
	if err != nil {
		panic(fmt.Errorf("atom space exhausted: %w", err))
	}
	a = Atom(n)
	t.texts = append(t.texts, s)
	t.ids[s] = a
	return a
}

func (t *atomTable) text(a Atom) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(a) >= len(t.texts) {
		return ""
	}
	return t.texts[a]
}
