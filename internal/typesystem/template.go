package typesystem

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TemplateLiteral interns a template literal type. Adjacent text is merged,
// literal holes are folded into text and nested templates are spliced. A
// template without holes becomes a string literal; `${string}` becomes string.
func (in *Interner) TemplateLiteral(spans []TemplateSpan) TypeID {
	var out []TemplateSpan
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			out = append(out, TemplateSpan{Text: in.InternString(text.String())})
			text.Reset()
		}
	}
	var add func(s TemplateSpan) bool
	add = func(s TemplateSpan) bool {
		if s.IsText() {
			text.WriteString(in.AtomText(s.Text))
			return true
		}
		if s.Type == TypeNever {
			return false
		}
		if lit, ok := in.LiteralText(s.Type); ok {
			text.WriteString(lit)
			return true
		}
		if nested, ok := lookupAs[TemplateLiteral](in, s.Type); ok {
			for _, ns := range nested.Spans {
				if !add(ns) {
					return false
				}
			}
			return true
		}
		flush()
		out = append(out, TemplateSpan{Type: s.Type})
		return true
	}
	for _, s := range spans {
		if !add(s) {
			return TypeNever
		}
	}
	flush()

	switch {
	case len(out) == 0:
		return in.LiteralString("")
	case len(out) == 1 && out[0].IsText():
		return in.LiteralString(in.AtomText(out[0].Text))
	case len(out) == 1 && out[0].Type == TypeString:
		return TypeString
	}
	return in.Intern(TemplateLiteral{Spans: out})
}

// LiteralText renders a literal (or enum member) the way it appears inside a
// template literal.
func (in *Interner) LiteralText(id TypeID) (string, bool) {
	switch d, _ := in.Lookup(id); d := d.(type) {
	case Literal:
		switch d.Base {
		case LitString, LitBigInt:
			return in.AtomText(d.Text), true
		case LitNumber:
			return formatNumber(d.Num), true
		case LitBoolean:
			return strconv.FormatBool(d.Bool), true
		}
	case Enum:
		return in.LiteralText(d.Member)
	}
	switch id {
	case TypeNull:
		return "null", true
	case TypeUndefined:
		return "undefined", true
	}
	return "", false
}

// formatNumber renders a float the way number-to-string conversion does in the
// source language.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		exp = strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + exp
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isNumericString(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return !math.IsNaN(f) && !math.IsInf(f, 0) && !strings.ContainsAny(s, "_xXpP")
}

// parseNumberLiteral interns the number literal spelled by a numeric string.
func (in *Interner) parseNumberLiteral(s string) (TypeID, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return TypeNone, false
	}
	return in.LiteralNumber(f), true
}

func isBigIntString(s string) bool {
	_, ok := new(big.Int).SetString(s, 10)
	return ok
}

// templateMatcher splits text across template spans. accept decides whether a
// hole admits a piece; captures receives the pieces in hole order.
type templateMatcher struct {
	in     *Interner
	accept func(hole TypeID, piece string) bool
}

func (m templateMatcher) match(text string, spans []TemplateSpan, captures *[]string) bool {
	if len(spans) == 0 {
		return text == ""
	}
	s := spans[0]
	if s.IsText() {
		prefix := m.in.AtomText(s.Text)
		if !strings.HasPrefix(text, prefix) {
			return false
		}
		return m.match(text[len(prefix):], spans[1:], captures)
	}
	if len(spans) == 1 {
		if !m.accept(s.Type, text) {
			return false
		}
		if captures != nil {
			*captures = append(*captures, text)
		}
		return true
	}

	// A hole directly followed by another hole takes at least one character.
	start := 0
	if !spans[1].IsText() && text != "" {
		_, start = utf8.DecodeRuneInString(text)
	}
	for i := start; i <= len(text); i++ {
		if i < len(text) && !utf8.RuneStart(text[i]) {
			continue
		}
		piece := text[:i]
		if !m.accept(s.Type, piece) {
			continue
		}
		mark := 0
		if captures != nil {
			mark = len(*captures)
			*captures = append(*captures, piece)
		}
		if m.match(text[i:], spans[1:], captures) {
			return true
		}
		if captures != nil {
			*captures = (*captures)[:mark]
		}
	}
	return false
}

// MatchesTemplate reports whether the string text is an inhabitant of the
// template literal type tmpl.
func (in *Interner) MatchesTemplate(text string, tmpl TypeID) bool {
	t, ok := lookupAs[TemplateLiteral](in, tmpl)
	if !ok {
		return false
	}
	m := templateMatcher{in: in, accept: in.HoleAccepts}
	return m.match(text, t.Spans, nil)
}

// HoleAccepts reports whether a template hole of type hole admits piece.
// number, bigint and boolean holes accept their string-rendered forms.
func (in *Interner) HoleAccepts(hole TypeID, piece string) bool {
	switch hole {
	case TypeString, TypeAny, TypeUnknown:
		return true
	case TypeNumber:
		return isNumericString(piece)
	case TypeBigint:
		return isBigIntString(piece)
	case TypeBoolean:
		return piece == "true" || piece == "false"
	}
	if lit, ok := in.LiteralText(hole); ok {
		return lit == piece
	}
	switch d, _ := in.Lookup(hole); d := d.(type) {
	case Union:
		for _, m := range d.Members {
			if in.HoleAccepts(m, piece) {
				return true
			}
		}
	case Intersection:
		for _, m := range d.Members {
			if !in.HoleAccepts(m, piece) {
				return false
			}
		}
		return true
	case TemplateLiteral:
		m := templateMatcher{in: in, accept: in.HoleAccepts}
		return m.match(piece, d.Spans, nil)
	case TypeParameter:
		if d.Constraint == TypeNone {
			return true
		}
		return in.HoleAccepts(d.Constraint, piece)
	case Infer:
		return in.HoleAccepts(d.Param, piece)
	case StringIntrinsic:
		return applyStringOp(d.Op, piece) == piece && in.HoleAccepts(d.Arg, piece)
	}
	return false
}

// templatePrefixSuffix returns the leading and trailing text of a template.
func (in *Interner) templatePrefixSuffix(t TemplateLiteral) (prefix, suffix string) {
	if len(t.Spans) == 0 {
		return "", ""
	}
	if first := t.Spans[0]; first.IsText() {
		prefix = in.AtomText(first.Text)
	}
	if last := t.Spans[len(t.Spans)-1]; last.IsText() && len(t.Spans) > 1 {
		suffix = in.AtomText(last.Text)
	}
	return prefix, suffix
}
