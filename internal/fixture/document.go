// Package fixture reads solver test documents written in YAML.
//
// A fixture declares named types, enums and classes, then lists queries
// against them with the expected answer:
//
//	version: 1.0.0
//	options:
//	  strict_null_checks: true
//	types:
//	  Point: {object: {x: number, y: number}}
//	queries:
//	  - subtype: [{object: {x: 1, y: 2}}, Point]
//	    expect: true
//
// Type expressions are plain YAML:
//   - plain scalars name intrinsics, named types, type parameters,
//     enum members (Color.Red), class constructors (typeof Dog) and
//     bigint literals (10n); a trailing [] wraps the name in an array
//   - quoted scalars are string literals, numbers and booleans are literals
//   - a sequence is a tuple
//   - a single-key map applies an operator: union, intersection, array,
//     readonly, tuple, object, fresh, function, constructor, callable,
//     template, keyof, index, conditional, mapped, infer, apply,
//     uppercase, lowercase, capitalize, uncapitalize, noinfer
package fixture

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/tsolve/internal/config"
)

// ErrUnknownName is wrapped by errors for names that resolve to nothing.
var ErrUnknownName = errors.New("unknown name")

// Error is a fixture problem located in its source file.
type Error struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(path string, n *yaml.Node, err error) *Error {
	e := &Error{Path: path, Err: err}
	if n != nil {
		e.Line, e.Column = n.Line, n.Column
	}
	return e
}

// Document is the raw form of a fixture file. Sections holding type
// expressions stay as YAML nodes until the builder resolves them.
type Document struct {
	// Version is the schema version, checked against config.SupportedSchema.
	Version string `yaml:"version"`

	// Options are the solver options for every query in the file. Fields
	// missing from the document keep their defaults.
	Options config.Options `yaml:"options"`

	// Enums maps an enum name to its members. An enum whose members are
	// all numbers is a numeric enum.
	//
	//   enums:
	//     Color: {Red: 'red', Green: 'green'}
	Enums yaml.Node `yaml:"enums"`

	// Classes declares nominal class types. Each entry may name a base
	// class, a constructor visibility and whether it is abstract.
	//
	//   classes:
	//     Animal:
	//       members: {name: string, 'private secret': number}
	//     Dog:
	//       extends: Animal
	//       constructor: protected
	Classes yaml.Node `yaml:"classes"`

	// Types maps a name to a type expression, or to a generic definition
	// with `params` and `body`. Names may be used before they are defined.
	Types yaml.Node `yaml:"types"`

	// Boxed maps a primitive name to the object type of its wrapper.
	Boxed yaml.Node `yaml:"boxed"`

	// GlobalObject is the type of the universal Object interface.
	GlobalObject yaml.Node `yaml:"global_object"`

	// Queries lists the checks to run, in order.
	Queries yaml.Node `yaml:"queries"`
}

// querySpec is one entry of the queries section. Exactly one of the query
// kind fields is set.
type querySpec struct {
	Name       string    `yaml:"name"`
	Subtype    yaml.Node `yaml:"subtype"`
	Assignable yaml.Node `yaml:"assignable"`
	Overlap    yaml.Node `yaml:"overlap"`
	Evaluate   yaml.Node `yaml:"evaluate"`
	Infer      yaml.Node `yaml:"infer"`
	Construct  yaml.Node `yaml:"construct"`

	// Enclosing names the class whose body the query runs in.
	Enclosing string `yaml:"enclosing"`

	// Options overrides the document options for this query only.
	Options yaml.Node `yaml:"options"`

	Expect      yaml.Node `yaml:"expect"`
	ExpectError string    `yaml:"expect_error"`
}

type inferSpec struct {
	Fn     yaml.Node   `yaml:"fn"`
	Args   []yaml.Node `yaml:"args"`
	Return yaml.Node   `yaml:"return"`
}

// Load reads and builds a fixture file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse builds a fixture from bytes. The path argument is used only for
// error messages.
func Parse(data []byte, path string) (*Suite, error) {
	doc := Document{Options: config.DefaultOptions()}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc.Options.Version == "" {
		doc.Options.Version = doc.Version
	}
	if err := doc.Options.Validate(path); err != nil {
		return nil, err
	}
	return build(&doc, path)
}
