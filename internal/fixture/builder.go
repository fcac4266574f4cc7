package fixture

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	ts "github.com/funvibe/tsolve/internal/typesystem"
)

var bigintLiteral = regexp.MustCompile(`^-?[0-9]+n$`)

type scope map[string]ts.TypeID

// builder turns YAML type expressions into interned types. Named types
// resolve to lazy references, so definitions may refer to each other in
// any order.
type builder struct {
	path  string
	in    *ts.Interner
	defs  *ts.DefinitionStore
	names map[string]ts.TypeID
	// enumMembers maps `Enum.Member` to the member type.
	enumMembers map[string]ts.TypeID
	ctors       map[string]ts.TypeID
	scopes      []scope
	// infers holds the scopes of the conditionals whose extends clause is
	// being built; `infer` declarations land in the innermost one.
	infers []scope
}

func newBuilder(path string, in *ts.Interner, defs *ts.DefinitionStore) *builder {
	return &builder{
		path:        path,
		in:          in,
		defs:        defs,
		names:       make(map[string]ts.TypeID),
		enumMembers: make(map[string]ts.TypeID),
		ctors:       make(map[string]ts.TypeID),
	}
}

func (b *builder) fail(n *yaml.Node, format string, args ...any) error {
	return newError(b.path, n, fmt.Errorf(format, args...))
}

func (b *builder) unknown(n *yaml.Node, name string) error {
	return newError(b.path, n, fmt.Errorf("%w %q", ErrUnknownName, name))
}

func (b *builder) decode(n *yaml.Node, v any) error {
	if err := n.Decode(v); err != nil {
		return newError(b.path, n, err)
	}
	return nil
}

func (b *builder) push() scope {
	s := make(scope)
	b.scopes = append(b.scopes, s)
	return s
}

func (b *builder) pop() { b.scopes = b.scopes[:len(b.scopes)-1] }

func (b *builder) expr(n *yaml.Node) (ts.TypeID, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return b.expr(n.Alias)
	case yaml.ScalarNode:
		return b.scalar(n)
	case yaml.SequenceNode:
		return b.tuple(n)
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return ts.TypeNone, b.fail(n, "type operator map must have one key, got %d", len(n.Content)/2)
		}
		return b.operator(n.Content[0], n.Content[1])
	}
	return ts.TypeNone, b.fail(n, "missing type expression")
}

// optionalExpr builds n when present and returns def otherwise.
func (b *builder) optionalExpr(n *yaml.Node, def ts.TypeID) (ts.TypeID, error) {
	if n.Kind == 0 {
		return def, nil
	}
	return b.expr(n)
}

func (b *builder) scalar(n *yaml.Node) (ts.TypeID, error) {
	switch n.ShortTag() {
	case "!!int", "!!float":
		var f float64
		if err := b.decode(n, &f); err != nil {
			return ts.TypeNone, err
		}
		return b.in.LiteralNumber(f), nil
	case "!!bool":
		var v bool
		if err := b.decode(n, &v); err != nil {
			return ts.TypeNone, err
		}
		return b.in.LiteralBoolean(v), nil
	case "!!null":
		return ts.TypeNull, nil
	}
	if n.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return b.in.LiteralString(n.Value), nil
	}
	return b.name(n, strings.TrimSpace(n.Value))
}

func (b *builder) name(n *yaml.Node, text string) (ts.TypeID, error) {
	if elem, ok := strings.CutSuffix(text, "[]"); ok {
		t, err := b.name(n, strings.TrimSpace(elem))
		if err != nil {
			return ts.TypeNone, err
		}
		return b.in.Array(t), nil
	}
	if class, ok := strings.CutPrefix(text, "typeof "); ok {
		if t, found := b.ctors[strings.TrimSpace(class)]; found {
			return t, nil
		}
		return ts.TypeNone, b.unknown(n, text)
	}
	if bigintLiteral.MatchString(text) {
		return b.in.LiteralBigInt(text), nil
	}
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if t, ok := b.scopes[i][text]; ok {
			return t, nil
		}
	}
	if t, ok := ts.IntrinsicByName(text); ok {
		return t, nil
	}
	if t, ok := b.names[text]; ok {
		return t, nil
	}
	if t, ok := b.enumMembers[text]; ok {
		return t, nil
	}
	return ts.TypeNone, b.unknown(n, text)
}

var stringOps = map[string]ts.StringOp{
	"uppercase":    ts.OpUppercase,
	"lowercase":    ts.OpLowercase,
	"capitalize":   ts.OpCapitalize,
	"uncapitalize": ts.OpUncapitalize,
}

func (b *builder) operator(key, val *yaml.Node) (ts.TypeID, error) {
	in := b.in
	unary := func(fn func(ts.TypeID) ts.TypeID) (ts.TypeID, error) {
		t, err := b.expr(val)
		if err != nil {
			return ts.TypeNone, err
		}
		return fn(t), nil
	}

	switch op := key.Value; op {
	case "union", "intersection":
		members, err := b.list(val)
		if err != nil {
			return ts.TypeNone, err
		}
		if op == "union" {
			return in.Union(members...), nil
		}
		return in.Intersection(members...), nil
	case "array":
		return unary(in.Array)
	case "readonly":
		return unary(in.Readonly)
	case "keyof":
		return unary(in.KeyOf)
	case "noinfer":
		return unary(in.NoInfer)
	case "uppercase", "lowercase", "capitalize", "uncapitalize":
		return unary(func(t ts.TypeID) ts.TypeID { return in.StringIntrinsic(stringOps[op], t) })
	case "tuple":
		return b.tuple(val)
	case "object":
		return b.object(val, 0)
	case "fresh":
		return b.object(val, ts.ObjectFresh)
	case "function", "constructor":
		fn, err := b.signature(val, op == "constructor")
		if err != nil {
			return ts.TypeNone, err
		}
		return in.Function(fn), nil
	case "callable":
		return b.callable(val)
	case "template":
		return b.template(val)
	case "index":
		pair, err := b.list(val)
		if err != nil {
			return ts.TypeNone, err
		}
		if len(pair) != 2 {
			return ts.TypeNone, b.fail(val, "index takes [object, key], got %d types", len(pair))
		}
		return in.IndexAccess(pair[0], pair[1]), nil
	case "apply":
		args, err := b.list(val)
		if err != nil {
			return ts.TypeNone, err
		}
		if len(args) == 0 {
			return ts.TypeNone, b.fail(val, "apply needs a generic type")
		}
		return in.Application(args[0], args[1:]...), nil
	case "conditional":
		return b.conditional(val)
	case "mapped":
		return b.mapped(val)
	case "infer":
		if len(b.infers) == 0 {
			return ts.TypeNone, b.fail(key, "infer outside a conditional extends clause")
		}
		tp, name, err := b.typeParam(val)
		if err != nil {
			return ts.TypeNone, err
		}
		b.infers[len(b.infers)-1][name] = tp
		return in.Infer(tp), nil
	}
	return ts.TypeNone, b.fail(key, "unknown type operator %q", key.Value)
}

func (b *builder) list(n *yaml.Node) ([]ts.TypeID, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, b.fail(n, "expected a list of types")
	}
	out := make([]ts.TypeID, 0, len(n.Content))
	for _, c := range n.Content {
		t, err := b.expr(c)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// tuple builds a tuple type. Elements written as `...T` are rest
// elements and `T?` are optional; the map forms {rest: T} and
// {optional: T} take any expression.
func (b *builder) tuple(n *yaml.Node) (ts.TypeID, error) {
	if n.Kind != yaml.SequenceNode {
		return ts.TypeNone, b.fail(n, "tuple expects a list of element types")
	}
	elems := make([]ts.TupleElement, 0, len(n.Content))
	for _, c := range n.Content {
		el, err := b.tupleElement(c)
		if err != nil {
			return ts.TypeNone, err
		}
		elems = append(elems, el)
	}
	return b.in.Tuple(elems), nil
}

func (b *builder) tupleElement(n *yaml.Node) (ts.TupleElement, error) {
	var el ts.TupleElement
	var err error
	switch {
	case n.Kind == yaml.ScalarNode && n.Style == 0 && n.ShortTag() == "!!str":
		text := strings.TrimSpace(n.Value)
		if rest, ok := strings.CutPrefix(text, "..."); ok {
			el.Rest, text = true, rest
		} else if opt, ok := strings.CutSuffix(text, "?"); ok {
			el.Optional, text = true, opt
		}
		el.Type, err = b.name(n, text)
	case n.Kind == yaml.MappingNode && len(n.Content) == 2 && n.Content[0].Value == "rest":
		el.Rest = true
		el.Type, err = b.expr(n.Content[1])
	case n.Kind == yaml.MappingNode && len(n.Content) == 2 && n.Content[0].Value == "optional":
		el.Optional = true
		el.Type, err = b.expr(n.Content[1])
	default:
		el.Type, err = b.expr(n)
	}
	return el, err
}

// memberKey is a parsed object member key such as `readonly name?`,
// `private secret`, `method run` or `[string]`.
type memberKey struct {
	name       string
	optional   bool
	readonly   bool
	method     bool
	visibility ts.Visibility
	index      ts.TypeID
}

func (b *builder) parseMemberKey(n *yaml.Node) (memberKey, error) {
	var k memberKey
	words := strings.Fields(n.Value)
	if len(words) == 0 {
		return k, b.fail(n, "empty member name")
	}
	for _, w := range words[:len(words)-1] {
		switch w {
		case "readonly":
			k.readonly = true
		case "method":
			k.method = true
		case "public":
			k.visibility = ts.Public
		case "protected":
			k.visibility = ts.Protected
		case "private":
			k.visibility = ts.Private
		default:
			return k, b.fail(n, "unknown member modifier %q", w)
		}
	}
	name := words[len(words)-1]
	switch name {
	case "[string]":
		k.index = ts.TypeString
		return k, nil
	case "[number]":
		k.index = ts.TypeNumber
		return k, nil
	}
	if opt, ok := strings.CutSuffix(name, "?"); ok {
		k.optional, name = true, opt
	}
	k.name = name
	return k, nil
}

// shapeParts are the members of an object, callable or class body.
type shapeParts struct {
	props       []ts.Property
	stringIndex *ts.IndexSignature
	numberIndex *ts.IndexSignature
}

// members builds the members of a mapping. Non-public members record
// parent as their declaring class.
func (b *builder) members(n *yaml.Node, parent ts.DefID) (shapeParts, error) {
	var sp shapeParts
	switch {
	case n.Kind == 0, n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null":
		return sp, nil
	case n.Kind != yaml.MappingNode:
		return sp, b.fail(n, "expected a map of members")
	}
	for i := 0; i < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		k, err := b.parseMemberKey(key)
		if err != nil {
			return sp, err
		}
		t, err := b.expr(val)
		if err != nil {
			return sp, err
		}
		if k.index != ts.TypeNone {
			sig := &ts.IndexSignature{Key: k.index, Value: t, Readonly: k.readonly}
			if k.index == ts.TypeString {
				sp.stringIndex = sig
			} else {
				sp.numberIndex = sig
			}
			continue
		}
		p := ts.Property{
			Name:       b.in.InternString(k.name),
			Type:       t,
			Optional:   k.optional,
			Readonly:   k.readonly,
			IsMethod:   k.method,
			Visibility: k.visibility,
		}
		if k.visibility != ts.Public {
			p.Parent = parent
		}
		sp.props = append(sp.props, p)
	}
	return sp, nil
}

func (b *builder) object(n *yaml.Node, flags ts.ObjectFlags) (ts.TypeID, error) {
	sp, err := b.members(n, 0)
	if err != nil {
		return ts.TypeNone, err
	}
	return b.in.ObjectWithIndex(ts.Object{
		Properties:  sp.props,
		StringIndex: sp.stringIndex,
		NumberIndex: sp.numberIndex,
		Flags:       flags,
	}), nil
}

type signatureSpec struct {
	TypeParams []yaml.Node    `yaml:"type_params"`
	Params     yaml.Node      `yaml:"params"`
	This       yaml.Node      `yaml:"this"`
	Return     yaml.Node      `yaml:"return"`
	Method     bool           `yaml:"method"`
	Predicate  *predicateSpec `yaml:"predicate"`
}

type predicateSpec struct {
	Param   string    `yaml:"param"`
	Type    yaml.Node `yaml:"type"`
	Asserts bool      `yaml:"asserts"`
}

// signature builds a call or construct signature. A missing return type
// is void.
func (b *builder) signature(n *yaml.Node, ctor bool) (ts.Function, error) {
	var spec signatureSpec
	if err := b.decode(n, &spec); err != nil {
		return ts.Function{}, err
	}
	fn := ts.Function{IsConstructor: ctor, IsMethod: spec.Method}
	if len(spec.TypeParams) > 0 {
		params, err := b.typeParams(spec.TypeParams)
		if err != nil {
			return fn, err
		}
		defer b.pop()
		fn.TypeParams = params
	}
	params, err := b.params(&spec.Params)
	if err != nil {
		return fn, err
	}
	fn.Params = params
	if fn.This, err = b.optionalExpr(&spec.This, ts.TypeNone); err != nil {
		return fn, err
	}
	if fn.Return, err = b.optionalExpr(&spec.Return, ts.TypeVoid); err != nil {
		return fn, err
	}
	if p := spec.Predicate; p != nil {
		t, err := b.expr(&p.Type)
		if err != nil {
			return fn, err
		}
		fn.Predicate = &ts.Predicate{Param: b.in.InternString(p.Param), Type: t, Asserts: p.Asserts}
	}
	return fn, nil
}

// params builds a parameter list from a map of names to types. `name?`
// is optional and `...name` is a rest parameter whose type is the
// element type.
func (b *builder) params(n *yaml.Node) ([]ts.Param, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, b.fail(n, "params expects a map of names to types")
	}
	out := make([]ts.Param, 0, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		name := strings.TrimSpace(n.Content[i].Value)
		var p ts.Param
		if rest, ok := strings.CutPrefix(name, "..."); ok {
			p.Rest, name = true, rest
		} else if opt, ok := strings.CutSuffix(name, "?"); ok {
			p.Optional, name = true, opt
		}
		t, err := b.expr(n.Content[i+1])
		if err != nil {
			return nil, err
		}
		p.Name, p.Type = b.in.InternString(name), t
		out = append(out, p)
	}
	return out, nil
}

type typeParamSpec struct {
	Name    string    `yaml:"name"`
	Extends yaml.Node `yaml:"extends"`
	Default yaml.Node `yaml:"default"`
	Const   bool      `yaml:"const"`
}

// typeParams declares type parameters in a new scope, in order, so later
// constraints may refer to earlier parameters. The caller pops the scope.
func (b *builder) typeParams(nodes []yaml.Node) ([]ts.TypeID, error) {
	s := b.push()
	out := make([]ts.TypeID, 0, len(nodes))
	for i := range nodes {
		tp, name, err := b.typeParam(&nodes[i])
		if err != nil {
			b.pop()
			return nil, err
		}
		s[name] = tp
		out = append(out, tp)
	}
	return out, nil
}

// typeParam parses `T`, `T extends C`, `T = D` or `const T extends C = D`,
// where C and D are names, or the map form {name, extends, default, const}
// for arbitrary expressions.
func (b *builder) typeParam(n *yaml.Node) (ts.TypeID, string, error) {
	var spec typeParamSpec
	tp := ts.TypeParameter{}
	var err error
	switch n.Kind {
	case yaml.ScalarNode:
		text := strings.TrimSpace(n.Value)
		if rest, ok := strings.CutPrefix(text, "const "); ok {
			tp.Const, text = true, strings.TrimSpace(rest)
		}
		text, def, hasDefault := strings.Cut(text, "=")
		name, constraint, hasConstraint := strings.Cut(strings.TrimSpace(text), " extends ")
		spec.Name = strings.TrimSpace(name)
		if hasConstraint {
			if tp.Constraint, err = b.name(n, strings.TrimSpace(constraint)); err != nil {
				return ts.TypeNone, "", err
			}
		}
		if hasDefault {
			if tp.Default, err = b.name(n, strings.TrimSpace(def)); err != nil {
				return ts.TypeNone, "", err
			}
		}
	case yaml.MappingNode:
		if err := b.decode(n, &spec); err != nil {
			return ts.TypeNone, "", err
		}
		tp.Const = spec.Const
		if tp.Constraint, err = b.optionalExpr(&spec.Extends, ts.TypeNone); err != nil {
			return ts.TypeNone, "", err
		}
		if tp.Default, err = b.optionalExpr(&spec.Default, ts.TypeNone); err != nil {
			return ts.TypeNone, "", err
		}
	default:
		return ts.TypeNone, "", b.fail(n, "expected a type parameter")
	}
	if spec.Name == "" {
		return ts.TypeNone, "", b.fail(n, "type parameter needs a name")
	}
	tp.Name = b.in.InternString(spec.Name)
	return b.in.TypeParameter(tp), spec.Name, nil
}

type callableSpec struct {
	Call       []yaml.Node `yaml:"call"`
	Construct  []yaml.Node `yaml:"construct"`
	Members    yaml.Node   `yaml:"members"`
	Abstract   bool        `yaml:"abstract"`
	Visibility string      `yaml:"visibility"`
}

func (b *builder) callable(n *yaml.Node) (ts.TypeID, error) {
	var spec callableSpec
	if err := b.decode(n, &spec); err != nil {
		return ts.TypeNone, err
	}
	vis, err := b.visibility(n, spec.Visibility)
	if err != nil {
		return ts.TypeNone, err
	}
	c := ts.Callable{Abstract: spec.Abstract, Visibility: vis}
	for i := range spec.Call {
		fn, err := b.signature(&spec.Call[i], false)
		if err != nil {
			return ts.TypeNone, err
		}
		c.Call = append(c.Call, b.in.Function(fn))
	}
	for i := range spec.Construct {
		fn, err := b.signature(&spec.Construct[i], true)
		if err != nil {
			return ts.TypeNone, err
		}
		c.Construct = append(c.Construct, b.in.Function(fn))
	}
	sp, err := b.members(&spec.Members, 0)
	if err != nil {
		return ts.TypeNone, err
	}
	c.Properties, c.StringIndex, c.NumberIndex = sp.props, sp.stringIndex, sp.numberIndex
	return b.in.Callable(c), nil
}

func (b *builder) visibility(n *yaml.Node, text string) (ts.Visibility, error) {
	switch text {
	case "", "public":
		return ts.Public, nil
	case "protected":
		return ts.Protected, nil
	case "private":
		return ts.Private, nil
	}
	return ts.Public, b.fail(n, "unknown visibility %q", text)
}

// template builds a template literal type. Every part is a type; string
// and other literal parts fold into the template text.
func (b *builder) template(n *yaml.Node) (ts.TypeID, error) {
	parts, err := b.list(n)
	if err != nil {
		return ts.TypeNone, err
	}
	spans := make([]ts.TemplateSpan, len(parts))
	for i, p := range parts {
		spans[i] = ts.TemplateSpan{Type: p}
	}
	return b.in.TemplateLiteral(spans), nil
}

type conditionalSpec struct {
	Check        yaml.Node `yaml:"check"`
	Extends      yaml.Node `yaml:"extends"`
	Then         yaml.Node `yaml:"then"`
	Else         yaml.Node `yaml:"else"`
	Distributive *bool     `yaml:"distributive"`
}

// conditional builds `check extends ext ? then : else`. Names declared
// with `infer` in the extends clause are visible in the then branch only.
func (b *builder) conditional(n *yaml.Node) (ts.TypeID, error) {
	var spec conditionalSpec
	if err := b.decode(n, &spec); err != nil {
		return ts.TypeNone, err
	}
	check, err := b.expr(&spec.Check)
	if err != nil {
		return ts.TypeNone, err
	}

	s := b.push()
	b.infers = append(b.infers, s)
	ext, err := b.expr(&spec.Extends)
	b.infers = b.infers[:len(b.infers)-1]
	if err != nil {
		b.pop()
		return ts.TypeNone, err
	}
	then, err := b.expr(&spec.Then)
	b.pop()
	if err != nil {
		return ts.TypeNone, err
	}

	els, err := b.expr(&spec.Else)
	if err != nil {
		return ts.TypeNone, err
	}
	if spec.Distributive != nil {
		return b.in.ConditionalWith(ts.Conditional{
			Check:        check,
			Extends:      ext,
			True:         then,
			False:        els,
			Distributive: *spec.Distributive,
		}), nil
	}
	return b.in.Conditional(check, ext, then, els), nil
}

type mappedSpec struct {
	Param    string    `yaml:"param"`
	In       yaml.Node `yaml:"in"`
	As       yaml.Node `yaml:"as"`
	Value    yaml.Node `yaml:"value"`
	Readonly string    `yaml:"readonly"`
	Optional string    `yaml:"optional"`
}

// mapped builds `{ [param in in as as]: value }`. Modifiers are "+" to
// add and "-" to remove.
func (b *builder) mapped(n *yaml.Node) (ts.TypeID, error) {
	var spec mappedSpec
	if err := b.decode(n, &spec); err != nil {
		return ts.TypeNone, err
	}
	if spec.Param == "" {
		return ts.TypeNone, b.fail(n, "mapped type needs a param")
	}
	ro, err := b.modifier(n, spec.Readonly)
	if err != nil {
		return ts.TypeNone, err
	}
	opt, err := b.modifier(n, spec.Optional)
	if err != nil {
		return ts.TypeNone, err
	}
	constraint, err := b.expr(&spec.In)
	if err != nil {
		return ts.TypeNone, err
	}

	param := b.in.TypeParam(spec.Param, constraint)
	b.push()[spec.Param] = param
	defer b.pop()
	nameType, err := b.optionalExpr(&spec.As, ts.TypeNone)
	if err != nil {
		return ts.TypeNone, err
	}
	value, err := b.expr(&spec.Value)
	if err != nil {
		return ts.TypeNone, err
	}
	return b.in.Mapped(ts.Mapped{
		Param:      param,
		Constraint: constraint,
		NameType:   nameType,
		Template:   value,
		Readonly:   ro,
		Optional:   opt,
	}), nil
}

func (b *builder) modifier(n *yaml.Node, text string) (ts.MappedModifier, error) {
	switch text {
	case "":
		return ts.ModifierNone, nil
	case "+":
		return ts.ModifierAdd, nil
	case "-":
		return ts.ModifierRemove, nil
	}
	return ts.ModifierNone, b.fail(n, "mapped modifier must be + or -, got %q", text)
}
