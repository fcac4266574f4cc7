package fixture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ts "github.com/funvibe/tsolve/internal/typesystem"
)

func TestBasicsFixture(t *testing.T) {
	suite, err := Load("testdata/basics.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, suite.Cases)

	outcomes, err := suite.Run(context.Background(), suite.NewSolver())
	require.NoError(t, err)
	require.Len(t, outcomes, len(suite.Cases))
	for _, o := range outcomes {
		t.Run(o.Case.Name, func(t *testing.T) {
			assert.True(t, o.Passed, o.String())
		})
	}
	assert.Zero(t, Failed(outcomes))
}

// body returns the definition body behind a named type.
func body(t *testing.T, s *Suite, name string) ts.TypeID {
	t.Helper()
	def, ok := s.Defs.Lookup(name)
	require.True(t, ok, "no definition %q", name)
	b, ok := s.Defs.ResolveLazy(def)
	require.True(t, ok, "definition %q has no body", name)
	return b
}

func TestTypeExpressions(t *testing.T) {
	suite, err := Parse([]byte(`
classes:
  Box: {}
types:
  Str: 'hello'
  Num: 42
  Yes: true
  Big: 10n
  Nothing: null
  Strings: string[]
  Rest: [string, ...number]
  Opt:
    - string
    - number?
  Pattern: {template: ['id_', number]}
  Folded: {template: ['a', 1, 'b']}
  Ctor: typeof Box
  Loud: {uppercase: 'abc'}
  Indexed: {object: {'[string]': number, 'readonly id': string, 'method run': {function: {}}}}
`), "inline.yaml")
	require.NoError(t, err)
	in := suite.Interner

	assert.Equal(t, in.LiteralString("hello"), body(t, suite, "Str"))
	assert.Equal(t, in.LiteralNumber(42), body(t, suite, "Num"))
	assert.Equal(t, ts.TypeTrue, body(t, suite, "Yes"))
	assert.Equal(t, in.LiteralBigInt("10"), body(t, suite, "Big"))
	assert.Equal(t, ts.TypeNull, body(t, suite, "Nothing"))
	assert.Equal(t, in.Array(ts.TypeString), body(t, suite, "Strings"))
	assert.Equal(t, in.Tuple([]ts.TupleElement{
		{Type: ts.TypeString},
		{Type: ts.TypeNumber, Rest: true},
	}), body(t, suite, "Rest"))
	assert.Equal(t, in.Tuple([]ts.TupleElement{
		{Type: ts.TypeString},
		{Type: ts.TypeNumber, Optional: true},
	}), body(t, suite, "Opt"))
	assert.Equal(t, in.TemplateLiteral([]ts.TemplateSpan{
		{Text: in.InternString("id_")},
		{Type: ts.TypeNumber},
	}), body(t, suite, "Pattern"))
	assert.Equal(t, in.LiteralString("a1b"), body(t, suite, "Folded"))
	assert.Equal(t, in.StringIntrinsic(ts.OpUppercase, in.LiteralString("abc")), body(t, suite, "Loud"))

	ctor := suite.NewSolver().Evaluate(body(t, suite, "Ctor"))
	d, _ := in.Lookup(ctor)
	c, ok := d.(ts.Callable)
	require.True(t, ok, "typeof Box evaluates to %s", in.Format(ctor))
	assert.Len(t, c.Construct, 1)

	d, _ = in.Lookup(body(t, suite, "Indexed"))
	obj, ok := d.(ts.Object)
	require.True(t, ok)
	require.NotNil(t, obj.StringIndex)
	assert.Equal(t, ts.TypeNumber, obj.StringIndex.Value)
	require.Len(t, obj.Properties, 2)
	for _, p := range obj.Properties {
		switch in.AtomText(p.Name) {
		case "id":
			assert.True(t, p.Readonly)
		case "run":
			assert.True(t, p.IsMethod)
		default:
			t.Errorf("unexpected property %q", in.AtomText(p.Name))
		}
	}
}

func TestClassMembers(t *testing.T) {
	suite, err := Parse([]byte(`
classes:
  Base:
    members: {private secret: number, name: string}
  Derived:
    extends: Base
    members: {name: 'fixed'}
`), "classes.yaml")
	require.NoError(t, err)
	in := suite.Interner

	base, _ := suite.Defs.Lookup("Base")
	derived, _ := suite.Defs.Lookup("Derived")
	assert.True(t, suite.Defs.IsDerivedFrom(derived, base))

	d, _ := in.Lookup(body(t, suite, "Derived"))
	obj, ok := d.(ts.Object)
	require.True(t, ok)
	assert.Equal(t, derived, obj.Symbol)
	require.Len(t, obj.Properties, 2)
	for _, p := range obj.Properties {
		switch in.AtomText(p.Name) {
		case "secret":
			assert.Equal(t, ts.Private, p.Visibility)
			assert.Equal(t, base, p.Parent, "inherited members keep their declaring class")
		case "name":
			assert.Equal(t, in.LiteralString("fixed"), p.Type)
		}
	}
}

func TestConditionalInferScope(t *testing.T) {
	suite, err := Parse([]byte(`
types:
  Ret:
    params: [F]
    body:
      conditional:
        check: F
        extends: {function: {params: {...args: any}, return: {infer: R}}}
        then: R
        else: never
queries:
  - evaluate: {apply: [Ret, {function: {return: string}}]}
    expect: string
`), "infer.yaml")
	require.NoError(t, err)
	outcomes, err := suite.Run(context.Background(), suite.NewSolver())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Passed, outcomes[0].String())
	assert.Equal(t, "evaluate#1", outcomes[0].Case.Name)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		unknown bool
		msg     string
	}{
		{
			name:    "unknown name",
			doc:     "types:\n  A: {object: {x: Missing}}\n",
			unknown: true,
			msg:     `bad.yaml:2:`,
		},
		{
			name: "unknown operator",
			doc:  "types:\n  A: {frobnicate: string}\n",
			msg:  `unknown type operator "frobnicate"`,
		},
		{
			name: "two operators in one map",
			doc:  "types:\n  A: {array: string, keyof: string}\n",
			msg:  "must have one key",
		},
		{
			name: "duplicate declaration",
			doc:  "enums:\n  A: {X: 1}\ntypes:\n  A: string\n",
			msg:  `"A" declared twice`,
		},
		{
			name: "unsupported version",
			doc:  "version: 2.0.0\n",
			msg:  "unsupported version",
		},
		{
			name: "infer outside conditional",
			doc:  "types:\n  A: {infer: R}\n",
			msg:  "infer outside",
		},
		{
			name:    "infer name not visible in else branch",
			doc:     "types:\n  A:\n    conditional: {check: string, extends: {array: {infer: R}}, then: R, else: R}\n",
			unknown: true,
		},
		{
			name: "query without operation",
			doc:  "queries:\n  - expect: true\n",
			msg:  "names no operation",
		},
		{
			name: "query with two operations",
			doc:  "queries:\n  - subtype: [string, string]\n    overlap: [string, string]\n    expect: true\n",
			msg:  "both subtype and overlap",
		},
		{
			name: "relation needs a boolean",
			doc:  "queries:\n  - subtype: [string, string]\n    expect: maybe\n",
			msg:  "expects true or false",
		},
		{
			name: "class extends itself",
			doc:  "classes:\n  A: {extends: B}\n  B: {extends: A}\n",
			msg:  "extends itself",
		},
		{
			name:    "unknown enclosing class",
			doc:     "queries:\n  - construct: string\n    enclosing: Nope\n    expect: false\n",
			unknown: true,
		},
		{
			name: "non-literal enum member",
			doc:  "enums:\n  E: {A: string}\n",
			msg:  "must be a literal",
		},
		{
			name: "bad any mode",
			doc:  "options: {any_propagation: loose}\n",
			msg:  "unknown mode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "bad.yaml")
			require.Error(t, err)
			if tt.unknown {
				assert.ErrorIs(t, err, ErrUnknownName)
			}
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := Parse([]byte("types:\n  A: string\n  B: {array: Nope}\n"), "pos.yaml")
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "pos.yaml", fe.Path)
	assert.Equal(t, 3, fe.Line)
	assert.Contains(t, err.Error(), "types.B")
}

func TestRunCancelled(t *testing.T) {
	suite, err := Load("testdata/basics.yaml")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = suite.Run(ctx, suite.NewSolver())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading fixture")
}
