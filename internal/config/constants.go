package config

// IsTestMode indicates if the program is running under tests.
// Formatting normalizes generated type parameter names when set.
var IsTestMode = false

// Version of the solver, reported by `tsolve version`.
const Version = "0.4.0"

// Recursion limits. Depth and iteration ceilings are the solver's only
// circuit breaker; hitting one degrades to a conservative answer.
const (
	MaxSubtypeDepth       = 100
	MaxEvaluationDepth    = 50
	MaxInstantiationDepth = 50
	MaxInferenceDepth     = 100
	MaxIterations         = 100_000
	MaxVisitingSetSize    = 10_000
)

// Structural thresholds.
const (
	// PropertyIndexThreshold is the property count above which an object
	// shape gets a cached name -> index map.
	PropertyIndexThreshold = 24

	// IntersectionMergeThreshold is the member count at which an
	// intersection of plain object shapes is merged before comparison.
	IntersectionMergeThreshold = 4

	// TemplateExpansionLimit bounds the Cartesian product computed when a
	// template literal type is expanded into a union of string literals.
	TemplateExpansionLimit = 100_000

	// MaxMappedKeys bounds the number of keys a mapped type expands.
	MaxMappedKeys = 250

	// MaxDistributionSize bounds distribution of a conditional type over a union.
	MaxDistributionSize = 100
)

// Built-in type names understood by the fixture language.
const (
	AnyTypeName       = "any"
	UnknownTypeName   = "unknown"
	NeverTypeName     = "never"
	VoidTypeName      = "void"
	UndefinedTypeName = "undefined"
	NullTypeName      = "null"
	BooleanTypeName   = "boolean"
	NumberTypeName    = "number"
	StringTypeName    = "string"
	BigintTypeName    = "bigint"
	SymbolTypeName    = "symbol"
	ObjectTypeName    = "object"
	FunctionTypeName  = "Function"
)

// FixtureFileExt is the extension of solver fixture files.
const FixtureFileExt = ".yaml"
