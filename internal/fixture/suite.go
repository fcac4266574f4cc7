package fixture

import (
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/tsolve/internal/config"
	ts "github.com/funvibe/tsolve/internal/typesystem"
)

// Kind is the operation a fixture case runs.
type Kind string

const (
	KindSubtype    Kind = "subtype"
	KindAssignable Kind = "assignable"
	KindOverlap    Kind = "overlap"
	KindEvaluate   Kind = "evaluate"
	KindInfer      Kind = "infer"
	KindConstruct  Kind = "construct"
)

// Case is one resolved query with its expectation.
type Case struct {
	Name string
	Line int
	Kind Kind

	Source ts.TypeID
	Target ts.TypeID
	// Args are the call's argument types for infer cases.
	Args []ts.TypeID
	// Contextual is the type an inferred call's result flows into.
	Contextual ts.TypeID
	Enclosing  ts.DefID
	Options    config.Options

	WantRelated bool
	WantType    ts.TypeID
	WantTypes   []ts.TypeID
	// WantError is "bounds" or "arity" when inference must fail.
	WantError string
}

// Suite is a built fixture: the interned types, the definitions backing
// named types and the cases to check.
type Suite struct {
	Path     string
	Options  config.Options
	Interner *ts.Interner
	Defs     *ts.DefinitionStore
	Cases    []Case

	names map[string]ts.TypeID
}

// Lookup returns the type a name denotes in the fixture.
func (s *Suite) Lookup(name string) (ts.TypeID, bool) {
	if t, ok := s.names[name]; ok {
		return t, true
	}
	return ts.IntrinsicByName(name)
}

// Names returns the declared type names in sorted order.
func (s *Suite) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// NewSolver returns a solver over the suite's types and options.
func (s *Suite) NewSolver() *ts.Solver {
	return ts.NewSolver(s.Interner, s.Defs, s.Options)
}

// entries returns the key/value pairs of a mapping section.
func entries(path string, n *yaml.Node) ([][2]*yaml.Node, error) {
	switch {
	case n.Kind == 0, n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null":
		return nil, nil
	case n.Kind != yaml.MappingNode:
		return nil, newError(path, n, errors.New("expected a map"))
	}
	out := make([][2]*yaml.Node, 0, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		out = append(out, [2]*yaml.Node{n.Content[i], n.Content[i+1]})
	}
	return out, nil
}

func hasKey(n *yaml.Node, key string) bool {
	if n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

type classSpec struct {
	Extends     string    `yaml:"extends"`
	Members     yaml.Node `yaml:"members"`
	Statics     yaml.Node `yaml:"statics"`
	Params      yaml.Node `yaml:"params"`
	Constructor string    `yaml:"constructor"`
	Abstract    bool      `yaml:"abstract"`
}

type class struct {
	name string
	def  ts.DefID
	sym  ts.SymbolRef
	node *yaml.Node
	spec classSpec
	// props holds the instance members, inherited ones included, once built.
	props *shapeParts
}

type suiteBuilder struct {
	*builder
	doc     *Document
	classes map[string]*class
	order   []*class
}

func build(doc *Document, path string) (*Suite, error) {
	in := ts.NewInterner()
	defs := ts.NewDefinitionStore()
	sb := &suiteBuilder{
		builder: newBuilder(path, in, defs),
		doc:     doc,
		classes: make(map[string]*class),
	}
	suite := &Suite{Path: path, Options: doc.Options, Interner: in, Defs: defs}

	steps := []func() error{
		sb.declare,
		sb.enums,
		sb.classBodies,
		sb.types,
		sb.globals,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	cases, err := sb.queries()
	if err != nil {
		return nil, err
	}
	suite.Cases = cases
	suite.names = sb.names
	return suite, nil
}

// declare reserves a definition for every enum, class and type so that
// bodies may refer to names declared later in the file.
func (sb *suiteBuilder) declare() error {
	seen := make(map[string]bool)
	add := func(key *yaml.Node) (ts.DefID, error) {
		name := key.Value
		if seen[name] {
			return 0, sb.fail(key, "%q declared twice", name)
		}
		seen[name] = true
		def := sb.defs.Declare(name)
		sb.names[name] = sb.in.Lazy(def)
		return def, nil
	}

	for _, sec := range []*yaml.Node{&sb.doc.Enums, &sb.doc.Types} {
		es, err := entries(sb.path, sec)
		if err != nil {
			return err
		}
		for _, e := range es {
			if _, err := add(e[0]); err != nil {
				return err
			}
		}
	}

	es, err := entries(sb.path, &sb.doc.Classes)
	if err != nil {
		return err
	}
	for i, e := range es {
		def, err := add(e[0])
		if err != nil {
			return err
		}
		c := &class{name: e[0].Value, def: def, sym: ts.SymbolRef(i + 1), node: e[1]}
		if err := sb.decode(e[1], &c.spec); err != nil {
			return err
		}
		sb.classes[c.name] = c
		sb.order = append(sb.order, c)
		sb.ctors[c.name] = sb.in.TypeQuery(c.sym)
	}
	return nil
}

// enums defines every enum as the union of its members. An enum whose
// members are all numbers is numeric.
func (sb *suiteBuilder) enums() error {
	es, err := entries(sb.path, &sb.doc.Enums)
	if err != nil {
		return err
	}
	for _, e := range es {
		name := e[0].Value
		def, _ := sb.defs.Lookup(name)
		ms, err := entries(sb.path, e[1])
		if err != nil {
			return err
		}
		if len(ms) == 0 {
			return sb.fail(e[0], "enum %q has no members", name)
		}
		numeric := true
		members := make([]ts.TypeID, 0, len(ms))
		for _, m := range ms {
			lit, err := sb.scalar(m[1])
			if err != nil {
				return err
			}
			if !sb.in.IsLiteral(lit) {
				return sb.fail(m[1], "enum member %s.%s must be a literal", name, m[0].Value)
			}
			if d, _ := sb.in.Lookup(lit); !isNumberLiteral(d) {
				numeric = false
			}
			member := sb.in.Enum(def, lit)
			sb.enumMembers[name+"."+m[0].Value] = member
			members = append(members, member)
		}
		sb.defs.SetNumericEnum(def, numeric)
		sb.defs.Define(def, sb.in.Union(members...))
	}
	return nil
}

func isNumberLiteral(d ts.TypeData) bool {
	l, ok := d.(ts.Literal)
	return ok && l.Base == ts.LitNumber
}

type definitionSpec struct {
	Params []yaml.Node `yaml:"params"`
	Body   yaml.Node   `yaml:"body"`
}

// types defines named type expressions. A value with a `body` key is a
// generic definition with `params`.
func (sb *suiteBuilder) types() error {
	es, err := entries(sb.path, &sb.doc.Types)
	if err != nil {
		return err
	}
	for _, e := range es {
		name := e[0].Value
		def, _ := sb.defs.Lookup(name)
		if !hasKey(e[1], "body") {
			body, err := sb.expr(e[1])
			if err != nil {
				return fmt.Errorf("types.%s: %w", name, err)
			}
			sb.defs.Define(def, body)
			continue
		}
		var spec definitionSpec
		if err := sb.decode(e[1], &spec); err != nil {
			return err
		}
		params, err := sb.typeParams(spec.Params)
		if err != nil {
			return fmt.Errorf("types.%s: %w", name, err)
		}
		body, err := sb.expr(&spec.Body)
		sb.pop()
		if err != nil {
			return fmt.Errorf("types.%s: %w", name, err)
		}
		sb.defs.Define(def, body, params...)
	}
	return nil
}

// classBodies defines each class's instance type and binds its
// constructor to the class symbol.
func (sb *suiteBuilder) classBodies() error {
	for _, c := range sb.order {
		props, err := sb.classMembers(c, nil)
		if err != nil {
			return fmt.Errorf("classes.%s: %w", c.name, err)
		}
		sb.defs.Define(c.def, sb.in.ObjectWithIndex(ts.Object{
			Properties:  props.props,
			StringIndex: props.stringIndex,
			NumberIndex: props.numberIndex,
			Symbol:      c.def,
		}))

		vis, err := sb.visibility(c.node, c.spec.Constructor)
		if err != nil {
			return err
		}
		params, err := sb.params(&c.spec.Params)
		if err != nil {
			return fmt.Errorf("classes.%s: %w", c.name, err)
		}
		statics, err := sb.members(&c.spec.Statics, c.def)
		if err != nil {
			return fmt.Errorf("classes.%s: %w", c.name, err)
		}
		ctor := sb.in.Function(ts.Function{
			Params:        params,
			Return:        sb.in.Lazy(c.def),
			IsConstructor: true,
		})
		sb.defs.BindSymbol(c.sym, sb.in.Callable(ts.Callable{
			Construct:  []ts.TypeID{ctor},
			Properties: statics.props,
			Symbol:     c.def,
			Visibility: vis,
			Abstract:   c.spec.Abstract,
		}))
	}
	return nil
}

// classMembers returns the instance members of c, inherited ones first so
// that redeclared members replace them.
func (sb *suiteBuilder) classMembers(c *class, visiting []string) (shapeParts, error) {
	if c.props != nil {
		return *c.props, nil
	}
	if slices.Contains(visiting, c.name) {
		return shapeParts{}, sb.fail(c.node, "class %q extends itself", c.name)
	}
	var out shapeParts
	if c.spec.Extends != "" {
		base, ok := sb.classes[c.spec.Extends]
		if !ok {
			return out, sb.unknown(c.node, c.spec.Extends)
		}
		inherited, err := sb.classMembers(base, append(visiting, c.name))
		if err != nil {
			return out, err
		}
		sb.defs.SetBase(c.def, base.def)
		out = inherited
		out.props = slices.Clone(inherited.props)
	}
	own, err := sb.members(&c.spec.Members, c.def)
	if err != nil {
		return out, err
	}
	out.props = append(out.props, own.props...)
	if own.stringIndex != nil {
		out.stringIndex = own.stringIndex
	}
	if own.numberIndex != nil {
		out.numberIndex = own.numberIndex
	}
	c.props = &out
	return out, nil
}

// globals registers the boxed primitive types and the global Object type.
func (sb *suiteBuilder) globals() error {
	es, err := entries(sb.path, &sb.doc.Boxed)
	if err != nil {
		return err
	}
	for _, e := range es {
		prim, ok := ts.IntrinsicByName(e[0].Value)
		if !ok {
			return sb.unknown(e[0], e[0].Value)
		}
		boxed, err := sb.expr(e[1])
		if err != nil {
			return fmt.Errorf("boxed.%s: %w", e[0].Value, err)
		}
		sb.defs.SetBoxed(prim, boxed)
	}
	if sb.doc.GlobalObject.Kind != 0 {
		g, err := sb.expr(&sb.doc.GlobalObject)
		if err != nil {
			return fmt.Errorf("global_object: %w", err)
		}
		sb.defs.SetGlobalObject(g)
	}
	return nil
}

func (sb *suiteBuilder) queries() ([]Case, error) {
	n := &sb.doc.Queries
	switch {
	case n.Kind == 0:
		return nil, nil
	case n.Kind != yaml.SequenceNode:
		return nil, sb.fail(n, "queries must be a list")
	}
	cases := make([]Case, 0, len(n.Content))
	for i, item := range n.Content {
		c, err := sb.query(item)
		if err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
		if c.Name == "" {
			c.Name = fmt.Sprintf("%s#%d", c.Kind, i+1)
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func (sb *suiteBuilder) query(item *yaml.Node) (Case, error) {
	var spec querySpec
	if err := sb.decode(item, &spec); err != nil {
		return Case{}, err
	}
	c := Case{Name: spec.Name, Line: item.Line, Options: sb.doc.Options, WantError: spec.ExpectError}

	if spec.Options.Kind != 0 {
		if err := sb.decode(&spec.Options, &c.Options); err != nil {
			return c, err
		}
		if err := c.Options.Validate(sb.path); err != nil {
			return c, err
		}
	}
	if spec.Enclosing != "" {
		cls, ok := sb.classes[spec.Enclosing]
		if !ok {
			return c, sb.unknown(item, spec.Enclosing)
		}
		c.Enclosing = cls.def
	}

	kinds := []struct {
		kind Kind
		node *yaml.Node
	}{
		{KindSubtype, &spec.Subtype},
		{KindAssignable, &spec.Assignable},
		{KindOverlap, &spec.Overlap},
		{KindEvaluate, &spec.Evaluate},
		{KindInfer, &spec.Infer},
		{KindConstruct, &spec.Construct},
	}
	var body *yaml.Node
	for _, k := range kinds {
		if k.node.Kind == 0 {
			continue
		}
		if body != nil {
			return c, sb.fail(item, "query has both %s and %s", c.Kind, k.kind)
		}
		c.Kind, body = k.kind, k.node
	}
	if body == nil {
		return c, sb.fail(item, "query names no operation")
	}

	switch c.Kind {
	case KindSubtype, KindAssignable, KindOverlap:
		pair, err := sb.list(body)
		if err != nil {
			return c, err
		}
		if len(pair) != 2 {
			return c, sb.fail(body, "%s takes [source, target], got %d types", c.Kind, len(pair))
		}
		c.Source, c.Target = pair[0], pair[1]
		return c, sb.expectBool(&spec.Expect, &c)
	case KindConstruct:
		t, err := sb.expr(body)
		if err != nil {
			return c, err
		}
		c.Source = t
		return c, sb.expectBool(&spec.Expect, &c)
	case KindEvaluate:
		t, err := sb.expr(body)
		if err != nil {
			return c, err
		}
		c.Source = t
		if c.WantType, err = sb.expr(&spec.Expect); err != nil {
			return c, err
		}
		return c, nil
	}
	return c, sb.inferQuery(body, &spec, &c)
}

func (sb *suiteBuilder) expectBool(n *yaml.Node, c *Case) error {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!bool" {
		return sb.fail(n, "%s expects true or false", c.Kind)
	}
	return sb.decode(n, &c.WantRelated)
}

func (sb *suiteBuilder) inferQuery(body *yaml.Node, spec *querySpec, c *Case) error {
	var is inferSpec
	if err := sb.decode(body, &is); err != nil {
		return err
	}
	var err error
	if c.Source, err = sb.expr(&is.Fn); err != nil {
		return err
	}
	for i := range is.Args {
		a, err := sb.expr(&is.Args[i])
		if err != nil {
			return err
		}
		c.Args = append(c.Args, a)
	}
	if c.Contextual, err = sb.optionalExpr(&is.Return, ts.TypeNone); err != nil {
		return err
	}
	switch spec.ExpectError {
	case "":
		c.WantTypes, err = sb.list(&spec.Expect)
		return err
	case "bounds", "arity":
		return nil
	}
	return sb.fail(body, "expect_error must be bounds or arity, got %q", spec.ExpectError)
}
