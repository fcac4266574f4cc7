package typesystem

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/funvibe/tsolve/internal/config"
)

// Solver is the query surface over a shared interner and cache. It is safe
// for concurrent use: every query builds its own Judge, Lawyer or Evaluator
// and only the interner and caches are shared.
type Solver struct {
	ID     uuid.UUID
	in     *Interner
	res    Resolver
	opts   config.Options
	caches *Caches
	log    *slog.Logger
}

func NewSolver(in *Interner, res Resolver, opts config.Options) *Solver {
	if res == nil {
		res = NoopResolver{}
	}
	id := uuid.New()
	return &Solver{
		ID:     id,
		in:     in,
		res:    res,
		opts:   opts,
		caches: NewCaches(),
		log:    slog.Default().With("session", id.String()),
	}
}

// WithLogger returns a copy of s logging to l.
func (s *Solver) WithLogger(l *slog.Logger) *Solver {
	c := *s
	c.log = l.With("session", s.ID.String())
	return &c
}

// WithOptions returns a solver sharing s's interner and caches under
// different options. Cache entries are keyed by flags, so nothing leaks.
func (s *Solver) WithOptions(opts config.Options) *Solver {
	c := *s
	c.opts = opts
	return &c
}

func (s *Solver) Interner() *Interner     { return s.in }
func (s *Solver) Options() config.Options { return s.opts }
func (s *Solver) Caches() *Caches         { return s.caches }
func (s *Solver) Resolver() Resolver      { return s.res }

func (s *Solver) evaluator() *Evaluator {
	return s.withLog(NewEvaluator(s.in, s.res, s.caches, FlagsFromOptions(s.opts)))
}

func (s *Solver) lawyer() *Lawyer {
	return newLawyer(s.withLog(NewEvaluator(s.in, s.res, s.caches, CompatFlags(s.opts))), s.opts)
}

func (s *Solver) withLog(e *Evaluator) *Evaluator {
	e.log = s.log
	return e
}

func (s *Solver) IsSubtype(source, target TypeID) bool {
	return s.Check(Query{Kind: QuerySubtype, Source: source, Target: target}).Related
}

func (s *Solver) IsAssignable(source, target TypeID) bool {
	return s.Check(Query{Kind: QueryAssignable, Source: source, Target: target}).Related
}

func (s *Solver) IsAssignableWith(source, target TypeID, ov Overrides) bool {
	return s.Check(Query{Kind: QueryAssignable, Source: source, Target: target, Overrides: ov}).Related
}

func (s *Solver) Evaluate(t TypeID) TypeID {
	return s.evaluator().Evaluate(t)
}

func (s *Solver) AreOverlapping(a, b TypeID) bool {
	return s.evaluator().AreOverlapping(a, b)
}

func (s *Solver) Instantiate(t TypeID, subst Subst) TypeID {
	return Instantiate(s.in, s.caches, t, subst)
}

// ObjectPropertyIndex finds a property slot in the evaluated object shape of t.
func (s *Solver) ObjectPropertyIndex(t TypeID, name Atom) (int, bool) {
	return s.in.ObjectPropertyIndex(s.Evaluate(t), name)
}

// CanConstruct reports whether `new t` is allowed inside the enclosing class.
func (s *Solver) CanConstruct(t TypeID, enclosing DefID) bool {
	return s.lawyer().CanConstruct(t, enclosing)
}

// InferGeneric solves the type parameters of a generic function from the
// argument types of a call.
func (s *Solver) InferGeneric(fn TypeID, args []TypeID) ([]TypeID, error) {
	return s.InferGenericWithReturn(fn, args, TypeNone)
}

// InferGenericWithReturn also uses the contextual type the call's result
// flows into, at the lowest priority.
func (s *Solver) InferGenericWithReturn(fn TypeID, args []TypeID, contextual TypeID) ([]TypeID, error) {
	e := s.evaluator()
	sig, ok := s.signature(e.Evaluate(fn))
	if !ok {
		return nil, errInferContext(s.in.Format(fn), NewArityMismatchError("not a callable type"))
	}
	required, fixed, rest := arity(sig)
	if len(args) < required || (!rest && len(args) > fixed) {
		return nil, errInferContext(s.in.Format(fn), NewArityMismatchError(
			fmt.Sprintf("expected %d-%d arguments, got %d", required, fixed, len(args))))
	}

	ctx := newInferenceContext(e, sig.TypeParams)
	for i, a := range args {
		if p, ok := paramAt(sig, i); ok {
			ctx.InferFromTypes(a, p, PriorityArgument)
		}
	}
	if contextual != TypeNone {
		ctx.InferFromTypes(contextual, sig.Return, PriorityReturnType)
	}
	out, err := ctx.ResolveAll()
	if err != nil {
		s.log.Debug("inference failed", "fn", s.in.Format(fn), "error", err)
		return nil, err
	}
	return out, nil
}

func (s *Solver) signature(t TypeID) (Function, bool) {
	switch d, _ := s.in.Lookup(t); d := d.(type) {
	case Function:
		return d, true
	case Callable:
		if len(d.Call) > 0 {
			return lookupAs[Function](s.in, d.Call[len(d.Call)-1])
		}
	}
	return Function{}, false
}

// QueryKind selects the operation a Query runs.
type QueryKind uint8

const (
	QuerySubtype QueryKind = iota
	QueryAssignable
	QueryOverlap
	QueryEvaluate
)

func (k QueryKind) String() string {
	switch k {
	case QuerySubtype:
		return "subtype"
	case QueryAssignable:
		return "assignable"
	case QueryOverlap:
		return "overlap"
	case QueryEvaluate:
		return "evaluate"
	}
	return "unknown"
}

// Query is one independent request in a batch.
type Query struct {
	Kind      QueryKind
	Source    TypeID
	Target    TypeID
	Overrides Overrides
}

// Result answers a Query. Exceeded marks a relation answered optimistically
// after a recursion limit; callers may suppress diagnostics for it.
type Result struct {
	Related  bool
	Type     TypeID
	Exceeded bool
}

// Check runs a single query.
func (s *Solver) Check(q Query) Result {
	switch q.Kind {
	case QuerySubtype:
		j := newJudge(s.evaluator(), RelSubtype, AnyAll)
		return Result{Related: j.IsSubtype(q.Source, q.Target), Exceeded: j.Exceeded()}
	case QueryAssignable:
		l := s.lawyer()
		return Result{Related: l.IsAssignableWith(q.Source, q.Target, q.Overrides), Exceeded: l.Exceeded()}
	case QueryOverlap:
		return Result{Related: s.AreOverlapping(q.Source, q.Target)}
	case QueryEvaluate:
		e := s.evaluator()
		return Result{Type: e.Evaluate(q.Source), Exceeded: e.Exceeded()}
	}
	return Result{}
}

// CheckAll runs independent queries concurrently, bounded by the configured
// worker count. Results are in query order.
func (s *Solver) CheckAll(ctx context.Context, queries []Query) ([]Result, error) {
	results := make([]Result, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.WorkerCount())
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.Check(q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	hits, misses := s.caches.Relations.Stats()
	s.log.Debug("batch checked",
		"queries", len(queries),
		"interned", s.in.Len(),
		"cache_hits", hits,
		"cache_misses", misses)
	return results, nil
}
