package typesystem

import (
	"strconv"
	"strings"

	"github.com/funvibe/tsolve/internal/config"
)

// Format renders a type in source-like syntax. It is meant for logs, errors
// and the CLI; the solver never formats diagnostics.
func (in *Interner) Format(id TypeID) string {
	var b strings.Builder
	in.format(&b, id, 0)
	return b.String()
}

const maxFormatDepth = 8

func (in *Interner) format(b *strings.Builder, id TypeID, depth int) {
	if depth > maxFormatDepth {
		b.WriteString("...")
		return
	}
	d, ok := in.Lookup(id)
	if !ok {
		b.WriteString(id.String())
		return
	}
	next := depth + 1
	switch d := d.(type) {
	case Intrinsic:
		b.WriteString(id.String())
	case Literal:
		switch d.Base {
		case LitString:
			b.WriteString(strconv.Quote(in.AtomText(d.Text)))
		case LitBigInt:
			b.WriteString(in.AtomText(d.Text) + "n")
		default:
			text, _ := in.LiteralText(id)
			b.WriteString(text)
		}
	case Array:
		in.formatWrapped(b, d.Element, next)
		b.WriteString("[]")
	case Tuple:
		b.WriteByte('[')
		for i, e := range d.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			if e.Rest {
				b.WriteString("...")
			}
			if e.Name != NoAtom {
				b.WriteString(in.AtomText(e.Name))
				if e.Optional {
					b.WriteByte('?')
				}
				b.WriteString(": ")
			}
			in.format(b, e.Type, next)
			if e.Rest {
				b.WriteString("[]")
			} else if e.Optional && e.Name == NoAtom {
				b.WriteByte('?')
			}
		}
		b.WriteByte(']')
	case Object:
		in.formatMembers(b, d.Properties, d.StringIndex, d.NumberIndex, nil, nil, next)
	case Callable:
		if d.Abstract {
			b.WriteString("abstract ")
		}
		in.formatMembers(b, d.Properties, d.StringIndex, d.NumberIndex, d.Call, d.Construct, next)
	case Union:
		in.formatList(b, d.Members, " | ", next)
	case Intersection:
		in.formatList(b, d.Members, " & ", next)
	case Function:
		in.formatSignature(b, d, next, true)
	case TypeParameter:
		name := in.AtomText(d.Name)
		if config.IsTestMode && strings.HasPrefix(name, "__") {
			name = "T?"
		}
		b.WriteString(name)
	case Lazy:
		b.WriteString("Ref#" + strconv.FormatUint(uint64(d.Def), 10))
	case Enum:
		b.WriteString("Enum#" + strconv.FormatUint(uint64(d.Def), 10) + "(")
		in.format(b, d.Member, next)
		b.WriteByte(')')
	case Application:
		in.format(b, d.Base, next)
		b.WriteByte('<')
		in.formatList(b, d.Args, ", ", next)
		b.WriteByte('>')
	case Conditional:
		in.format(b, d.Check, next)
		b.WriteString(" extends ")
		in.format(b, d.Extends, next)
		b.WriteString(" ? ")
		in.format(b, d.True, next)
		b.WriteString(" : ")
		in.format(b, d.False, next)
	case Mapped:
		b.WriteString("{ ")
		writeModifier(b, d.Readonly, "readonly ")
		b.WriteByte('[')
		in.format(b, d.Param, next)
		b.WriteString(" in ")
		in.format(b, d.Constraint, next)
		if d.NameType != TypeNone {
			b.WriteString(" as ")
			in.format(b, d.NameType, next)
		}
		b.WriteByte(']')
		writeModifier(b, d.Optional, "?")
		b.WriteString(": ")
		in.format(b, d.Template, next)
		b.WriteString(" }")
	case IndexAccess:
		in.formatWrapped(b, d.Object, next)
		b.WriteByte('[')
		in.format(b, d.Index, next)
		b.WriteByte(']')
	case KeyOf:
		b.WriteString("keyof ")
		in.formatWrapped(b, d.Inner, next)
	case TemplateLiteral:
		b.WriteByte('`')
		for _, s := range d.Spans {
			if s.IsText() {
				b.WriteString(in.AtomText(s.Text))
				continue
			}
			b.WriteString("${")
			in.format(b, s.Type, next)
			b.WriteByte('}')
		}
		b.WriteByte('`')
	case TypeQuery:
		b.WriteString("typeof sym#" + strconv.FormatUint(uint64(d.Symbol), 10))
	case UniqueSymbol:
		b.WriteString("unique symbol#" + strconv.FormatUint(uint64(d.Symbol), 10))
	case Infer:
		b.WriteString("infer ")
		in.format(b, d.Param, next)
	case Readonly:
		b.WriteString("readonly ")
		in.format(b, d.Inner, next)
	case StringIntrinsic:
		b.WriteString(d.Op.String() + "<")
		in.format(b, d.Arg, next)
		b.WriteByte('>')
	case ModuleNamespace:
		b.WriteString("module#" + strconv.FormatUint(uint64(d.Symbol), 10))
	case NoInfer:
		b.WriteString("NoInfer<")
		in.format(b, d.Inner, next)
		b.WriteByte('>')
	}
}

func writeModifier(b *strings.Builder, m MappedModifier, text string) {
	switch m {
	case ModifierAdd:
		b.WriteString("+" + text)
	case ModifierRemove:
		b.WriteString("-" + text)
	}
}

func (in *Interner) formatWrapped(b *strings.Builder, id TypeID, depth int) {
	switch in.KindOf(id) {
	case KindUnion, KindIntersection, KindFunction, KindConditional:
		b.WriteByte('(')
		in.format(b, id, depth)
		b.WriteByte(')')
	default:
		in.format(b, id, depth)
	}
}

func (in *Interner) formatList(b *strings.Builder, ids []TypeID, sep string, depth int) {
	for i, id := range ids {
		if i > 0 {
			b.WriteString(sep)
		}
		if sep != ", " {
			in.formatWrapped(b, id, depth)
		} else {
			in.format(b, id, depth)
		}
	}
}

func (in *Interner) formatMembers(b *strings.Builder, props []Property, sIdx, nIdx *IndexSignature, calls, ctors []TypeID, depth int) {
	var parts []string
	for _, c := range calls {
		if fn, ok := lookupAs[Function](in, c); ok {
			var sb strings.Builder
			in.formatSignature(&sb, fn, depth, false)
			parts = append(parts, sb.String())
		}
	}
	for _, c := range ctors {
		if fn, ok := lookupAs[Function](in, c); ok {
			var sb strings.Builder
			sb.WriteString("new ")
			in.formatSignature(&sb, fn, depth, false)
			parts = append(parts, sb.String())
		}
	}
	for _, sig := range []*IndexSignature{sIdx, nIdx} {
		if sig == nil {
			continue
		}
		var sb strings.Builder
		if sig.Readonly {
			sb.WriteString("readonly ")
		}
		sb.WriteString("[key: " + sig.Key.String() + "]: ")
		in.format(&sb, sig.Value, depth)
		parts = append(parts, sb.String())
	}
	for _, p := range props {
		var sb strings.Builder
		if p.Visibility != Public {
			sb.WriteString(p.Visibility.String() + " ")
		}
		if p.Readonly {
			sb.WriteString("readonly ")
		}
		sb.WriteString(in.AtomText(p.Name))
		if p.Optional {
			sb.WriteByte('?')
		}
		sb.WriteString(": ")
		in.format(&sb, p.Type, depth)
		parts = append(parts, sb.String())
	}
	if len(parts) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteString("{ " + strings.Join(parts, "; ") + " }")
}

func (in *Interner) formatSignature(b *strings.Builder, fn Function, depth int, arrow bool) {
	if fn.IsConstructor && arrow {
		b.WriteString("new ")
	}
	if len(fn.TypeParams) > 0 {
		b.WriteByte('<')
		in.formatList(b, fn.TypeParams, ", ", depth)
		b.WriteByte('>')
	}
	b.WriteByte('(')
	first := true
	if fn.This != TypeNone {
		b.WriteString("this: ")
		in.format(b, fn.This, depth)
		first = false
	}
	for i, p := range fn.Params {
		if !first || i > 0 {
			b.WriteString(", ")
		}
		if p.Rest {
			b.WriteString("...")
		}
		name := in.AtomText(p.Name)
		if name == "" {
			name = "arg" + strconv.Itoa(i)
		}
		b.WriteString(name)
		if p.Optional {
			b.WriteByte('?')
		}
		b.WriteString(": ")
		in.format(b, p.Type, depth)
		if p.Rest {
			b.WriteString("[]")
		}
	}
	b.WriteByte(')')
	if arrow {
		b.WriteString(" => ")
	} else {
		b.WriteString(": ")
	}
	if fn.Predicate != nil {
		if fn.Predicate.Asserts {
			b.WriteString("asserts ")
		}
		b.WriteString(in.AtomText(fn.Predicate.Param) + " is ")
		in.format(b, fn.Predicate.Type, depth)
		return
	}
	in.format(b, fn.Return, depth)
}
