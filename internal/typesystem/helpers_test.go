package typesystem

import (
	"testing"

	"github.com/funvibe/tsolve/internal/config"
)

// env bundles a fresh interner, definition store and solver for a test.
type env struct {
	in   *Interner
	defs *DefinitionStore
	s    *Solver
}

func newEnv(t *testing.T, mutators ...func(*config.Options)) *env {
	t.Helper()
	opts := config.DefaultOptions()
	for _, m := range mutators {
		m(&opts)
	}
	in := NewInterner()
	defs := NewDefinitionStore()
	return &env{in: in, defs: defs, s: NewSolver(in, defs, opts)}
}

func (e *env) prop(name string, typ TypeID) Property {
	return Property{Name: e.in.InternString(name), Type: typ}
}

func (e *env) optional(name string, typ TypeID) Property {
	return Property{Name: e.in.InternString(name), Type: typ, Optional: true}
}

func (e *env) method(name string, typ TypeID) Property {
	return Property{Name: e.in.InternString(name), Type: typ, IsMethod: true}
}

func (e *env) obj(props ...Property) TypeID {
	return e.in.Object(props)
}

func (e *env) str(s string) TypeID { return e.in.LiteralString(s) }

func (e *env) num(f float64) TypeID { return e.in.LiteralNumber(f) }

func (e *env) fn(ret TypeID, params ...TypeID) TypeID {
	ps := make([]Param, len(params))
	for i, p := range params {
		ps[i] = Param{Name: e.in.InternString(string(rune('a' + i))), Type: p}
	}
	return e.in.Function(Function{Params: ps, Return: ret})
}

func (e *env) template(parts ...any) TypeID {
	spans := make([]TemplateSpan, 0, len(parts))
	for _, p := range parts {
		switch p := p.(type) {
		case string:
			spans = append(spans, TemplateSpan{Text: e.in.InternString(p)})
		case TypeID:
			spans = append(spans, TemplateSpan{Type: p})
		}
	}
	return e.in.TemplateLiteral(spans)
}
