package typesystem

import (
	"slices"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/funvibe/tsolve/internal/config"
)

// evaluateTemplate expands a template literal into a union of string literals
// when every hole is a finite set of literals and the Cartesian product stays
// within config.TemplateExpansionLimit. Otherwise the template stays a pattern.
func (e *Evaluator) evaluateTemplate(t TypeID, tl TemplateLiteral) TypeID {
	in := e.in
	spans := slices.Clone(tl.Spans)
	for i := range spans {
		if !spans[i].IsText() {
			spans[i].Type = e.Evaluate(spans[i].Type)
		}
	}
	rebuilt := in.TemplateLiteral(spans)
	norm, ok := lookupAs[TemplateLiteral](in, rebuilt)
	if !ok {
		return rebuilt
	}

	options := make([][]string, len(norm.Spans))
	combos := 1
	for i, s := range norm.Spans {
		if s.IsText() {
			options[i] = []string{in.AtomText(s.Text)}
			continue
		}
		texts, ok := e.enumerate(s.Type)
		if !ok {
			return rebuilt
		}
		combos *= len(texts)
		if combos > config.TemplateExpansionLimit {
			e.log.Debug("template expansion limit reached", "type", in.Format(rebuilt))
			return rebuilt
		}
		options[i] = texts
	}
	if combos == 0 {
		return TypeNever
	}

	results := []string{""}
	for _, opts := range options {
		next := make([]string, 0, len(results)*len(opts))
		for _, prefix := range results {
			for _, o := range opts {
				next = append(next, prefix+o)
			}
		}
		results = next
	}
	members := make([]TypeID, len(results))
	for i, r := range results {
		members[i] = in.LiteralString(r)
	}
	return in.Union(members...)
}

// enumerate lists the string renderings of a finite hole type.
func (e *Evaluator) enumerate(hole TypeID) ([]string, bool) {
	in := e.in
	if hole == TypeBoolean {
		return []string{"false", "true"}, true
	}
	if text, ok := in.LiteralText(hole); ok {
		return []string{text}, true
	}
	u, ok := lookupAs[Union](in, hole)
	if !ok {
		return nil, false
	}
	var out []string
	for _, m := range u.Members {
		texts, ok := e.enumerate(m)
		if !ok {
			return nil, false
		}
		out = append(out, texts...)
		if len(out) > config.TemplateExpansionLimit {
			return nil, false
		}
	}
	return out, true
}

func applyStringOp(op StringOp, s string) string {
	switch op {
	case OpUppercase:
		return cases.Upper(language.Und).String(s)
	case OpLowercase:
		return cases.Lower(language.Und).String(s)
	case OpCapitalize, OpUncapitalize:
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 {
			return s
		}
		head := string(r)
		if op == OpCapitalize {
			head = cases.Upper(language.Und).String(head)
		} else {
			head = cases.Lower(language.Und).String(head)
		}
		return head + s[size:]
	}
	return s
}

func (e *Evaluator) evaluateStringIntrinsic(t TypeID, si StringIntrinsic) TypeID {
	in := e.in
	arg := e.Evaluate(si.Arg)
	switch arg {
	case TypeNever:
		return TypeNever
	case TypeAny:
		return TypeAny
	}
	switch d, _ := in.Lookup(arg); d := d.(type) {
	case Literal:
		if d.Base == LitString {
			return in.LiteralString(applyStringOp(si.Op, in.AtomText(d.Text)))
		}
	case Union:
		out := make([]TypeID, len(d.Members))
		for i, m := range d.Members {
			out[i] = e.Evaluate(in.StringIntrinsic(si.Op, m))
		}
		return in.Union(out...)
	case TemplateLiteral:
		return e.caseTemplate(si.Op, d)
	}
	if arg == si.Arg {
		return t
	}
	return in.StringIntrinsic(si.Op, arg)
}

// caseTemplate pushes a case transform into a template's text; holes are
// wrapped so the transform still applies to whatever fills them.
func (e *Evaluator) caseTemplate(op StringOp, tl TemplateLiteral) TypeID {
	in := e.in
	spans := slices.Clone(tl.Spans)
	for i, s := range spans {
		whole := op == OpUppercase || op == OpLowercase
		if !whole && i > 0 {
			break
		}
		if s.IsText() {
			spans[i].Text = in.InternString(applyStringOp(op, in.AtomText(s.Text)))
			continue
		}
		spans[i].Type = in.StringIntrinsic(op, s.Type)
	}
	return in.TemplateLiteral(spans)
}
