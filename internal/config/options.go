package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// SupportedSchema is the range of option/fixture schema versions this build reads.
const SupportedSchema = ">= 1.0.0, < 2.0.0"

// AnyPropagation selects how `any` silences structural mismatches.
type AnyPropagation string

const (
	// AnySuppress lets an `any` anywhere along a structural path silence
	// mismatches below it (legacy behavior).
	AnySuppress AnyPropagation = "suppress"
	// AnyStrict only short-circuits `any` at the top level of a query.
	AnyStrict AnyPropagation = "strict"
)

// Options is the solver configuration: the compiler strictness flags that
// change relation results, plus toggles for the individual compatibility rules.
type Options struct {
	// Version is the schema version of the document the options came from.
	Version string `yaml:"version,omitempty"`

	StrictNullChecks           bool `yaml:"strict_null_checks"`
	StrictFunctionTypes        bool `yaml:"strict_function_types"`
	ExactOptionalPropertyTypes bool `yaml:"exact_optional_property_types"`
	NoUncheckedIndexedAccess   bool `yaml:"no_unchecked_indexed_access"`

	// StrictSubtypeChecking disables method parameter bivariance.
	StrictSubtypeChecking bool `yaml:"strict_subtype_checking"`

	AnyPropagation AnyPropagation `yaml:"any_propagation"`

	// Rules toggles the compatibility rules layered over structural subtyping.
	Rules Rules `yaml:"rules"`

	// Workers bounds the number of concurrent queries in a batch.
	// Zero means GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`
}

// Rules toggles the language-specific compatibility rules individually.
// Every rule is on by default; tests switch them off one at a time.
type Rules struct {
	Freshness                bool `yaml:"freshness"`
	VoidReturn               bool `yaml:"void_return"`
	WeakTypes                bool `yaml:"weak_types"`
	EnumNominality           bool `yaml:"enum_nominality"`
	PrivateBrands            bool `yaml:"private_brands"`
	ConstructorAccessibility bool `yaml:"constructor_accessibility"`
	BivariantRest            bool `yaml:"bivariant_rest"`
	// BivariantParamCount lets a source signature require more parameters
	// than the target supplies. Off by default.
	BivariantParamCount      bool `yaml:"bivariant_param_count"`
}

// DefaultRules returns the rule set with every TypeScript rule enabled.
func DefaultRules() Rules {
	return Rules{
		Freshness:                true,
		VoidReturn:               true,
		WeakTypes:                true,
		EnumNominality:           true,
		PrivateBrands:            true,
		ConstructorAccessibility: true,
		BivariantRest:            true,
	}
}

// DefaultOptions mirrors a `strict: true` compilation.
func DefaultOptions() Options {
	return Options{
		StrictNullChecks:    true,
		StrictFunctionTypes: true,
		AnyPropagation:      AnySuppress,
		Rules:               DefaultRules(),
	}
}

// LoadOptions reads and parses an options file.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseOptions(data, path)
}

// ParseOptions parses options from bytes. Fields missing from the document
// keep their default values. The path argument is used only for error messages.
func ParseOptions(data []byte, path string) (*Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := opts.Validate(path); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Validate checks the options for semantic errors.
func (o *Options) Validate(path string) error {
	if err := CheckSchemaVersion(o.Version); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	switch o.AnyPropagation {
	case "":
		o.AnyPropagation = AnySuppress
	case AnySuppress, AnyStrict:
	default:
		return fmt.Errorf("%s: any_propagation: unknown mode %q (want %q or %q)",
			path, o.AnyPropagation, AnySuppress, AnyStrict)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%s: workers must not be negative", path)
	}
	return nil
}

// WorkerCount resolves the effective batch parallelism.
func (o *Options) WorkerCount() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// CheckSchemaVersion reports whether a document version is readable by this build.
// An empty version is accepted.
func CheckSchemaVersion(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", version, err)
	}
	c, err := semver.NewConstraint(SupportedSchema)
	if err != nil {
		return fmt.Errorf("invalid schema constraint: %w", err)
	}
	if !c.Check(v) {
		return fmt.Errorf("unsupported version %s (supported: %s)", v, SupportedSchema)
	}
	return nil
}
