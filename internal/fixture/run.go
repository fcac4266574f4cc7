package fixture

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	ts "github.com/funvibe/tsolve/internal/typesystem"
)

// Outcome is the result of one case.
type Outcome struct {
	Case   *Case
	Passed bool
	Got    string
	Want   string
	// Exceeded marks a relation answered after a recursion limit.
	Exceeded bool
}

func (o Outcome) String() string {
	if o.Passed {
		return fmt.Sprintf("PASS %s (line %d)", o.Case.Name, o.Case.Line)
	}
	return fmt.Sprintf("FAIL %s (line %d): got %s, want %s", o.Case.Name, o.Case.Line, o.Got, o.Want)
}

// Failed counts the outcomes that did not meet their expectation.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.Passed {
			n++
		}
	}
	return n
}

// Run checks every case with solver. Relation and evaluation cases that
// use the suite's options run as one concurrent batch; the rest run in
// order. Outcomes are in case order.
func (s *Suite) Run(ctx context.Context, solver *ts.Solver) ([]Outcome, error) {
	outcomes := make([]Outcome, len(s.Cases))
	var batch []ts.Query
	var batched []int
	for i := range s.Cases {
		c := &s.Cases[i]
		if q, ok := c.query(); ok && c.Options == s.Options {
			batch = append(batch, q)
			batched = append(batched, i)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcomes[i] = s.runOne(solver.WithOptions(c.Options), c)
	}

	results, err := solver.CheckAll(ctx, batch)
	if err != nil {
		return nil, err
	}
	for j, r := range results {
		i := batched[j]
		outcomes[i] = s.judge(solver, &s.Cases[i], r)
	}
	return outcomes, nil
}

func (c *Case) query() (ts.Query, bool) {
	q := ts.Query{Source: c.Source, Target: c.Target, Overrides: ts.Overrides{EnclosingClass: c.Enclosing}}
	switch c.Kind {
	case KindSubtype:
		q.Kind = ts.QuerySubtype
	case KindAssignable:
		q.Kind = ts.QueryAssignable
	case KindOverlap:
		q.Kind = ts.QueryOverlap
	case KindEvaluate:
		q.Kind = ts.QueryEvaluate
	default:
		return q, false
	}
	return q, true
}

func (s *Suite) runOne(solver *ts.Solver, c *Case) Outcome {
	if q, ok := c.query(); ok {
		return s.judge(solver, c, solver.Check(q))
	}
	switch c.Kind {
	case KindConstruct:
		got := solver.CanConstruct(c.Source, c.Enclosing)
		return Outcome{
			Case:   c,
			Passed: got == c.WantRelated,
			Got:    strconv.FormatBool(got),
			Want:   strconv.FormatBool(c.WantRelated),
		}
	case KindInfer:
		return s.infer(solver, c)
	}
	return Outcome{Case: c, Got: "unsupported query", Want: string(c.Kind)}
}

func (s *Suite) judge(solver *ts.Solver, c *Case, r ts.Result) Outcome {
	if c.Kind == KindEvaluate {
		want := solver.Evaluate(c.WantType)
		return Outcome{
			Case:     c,
			Passed:   r.Type == want,
			Got:      s.Interner.Format(r.Type),
			Want:     s.Interner.Format(want),
			Exceeded: r.Exceeded,
		}
	}
	return Outcome{
		Case:     c,
		Passed:   r.Related == c.WantRelated,
		Got:      strconv.FormatBool(r.Related),
		Want:     strconv.FormatBool(c.WantRelated),
		Exceeded: r.Exceeded,
	}
}

func (s *Suite) infer(solver *ts.Solver, c *Case) Outcome {
	got, err := solver.InferGenericWithReturn(c.Source, c.Args, c.Contextual)
	o := Outcome{Case: c}
	if c.WantError != "" {
		o.Want = c.WantError + " error"
		var ie *ts.InferenceError
		switch {
		case err == nil:
			o.Got = s.formatList(got)
		case errors.As(err, &ie):
			o.Got = err.Error()
			o.Passed = c.WantError == "bounds" && errors.Is(err, ts.ErrBoundsViolation) ||
				c.WantError == "arity" && ie.Kind == ts.ArityMismatch
		default:
			o.Got = err.Error()
		}
		return o
	}
	o.Want = s.formatList(c.WantTypes)
	if err != nil {
		o.Got = err.Error()
		return o
	}
	o.Got = s.formatList(got)
	if len(got) != len(c.WantTypes) {
		return o
	}
	o.Passed = true
	for i, t := range got {
		if solver.Evaluate(t) != solver.Evaluate(c.WantTypes[i]) {
			o.Passed = false
		}
	}
	return o
}

func (s *Suite) formatList(ids []ts.TypeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = s.Interner.Format(id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
