package docweaver

import (
	"fmt"
	"strconv"
	"strings"
)

// SourceSpan is the byte range of a directive in its source, markers
// included.
type SourceSpan struct {
	Start int
	End   int
}

// Call is a parsed directive: `name(arg=expr, ...)`.
type Call struct {
	Name    string
	NamePos int // offset of Name in the source
	Args    []Arg
	Span    SourceSpan
}

// Arg is one keyword argument of a Call.
type Arg struct {
	Name string
	Raw  string // expression text as written
	Expr Expr
	Pos  int // offset of Name in the source
}

// Expr is an argument expression: an identifier, a literal or a list.
type Expr interface {
	isExpr()
	Offset() int
}

// Ident refers to the variable context. Path has more than one element for
// field access into maps (`data.values`).
type Ident struct {
	Path []string
	Pos  int
}

// Literal is a quoted string or a numeral.
type Literal struct {
	Value Value
	Pos   int
}

// List is a bracketed list of expressions.
type List struct {
	Elems []Expr
	Pos   int
}

func (*Ident) isExpr()   {}
func (*Literal) isExpr() {}
func (*List) isExpr()    {}

// Offset returns the source offset of the expression.
func (e *Ident) Offset() int { return e.Pos }

// Offset returns the source offset of the expression.
func (e *Literal) Offset() int { return e.Pos }

// Offset returns the source offset of the expression.
func (e *List) Offset() int { return e.Pos }

// Name returns the dotted identifier.
func (e *Ident) Name() string { return strings.Join(e.Path, ".") }

// callParser reads one directive body. Offsets reported in errors and
// nodes are relative to src, the whole scanned text.
type callParser struct {
	src  string
	pos  int
	end  int
	name string
}

// parseCall parses the body of r.
func parseCall(src string, r region) (Call, error) {
	p := &callParser{src: src, pos: r.bodyStart, end: r.bodyStart + len(r.body)}
	call := Call{Span: SourceSpan{Start: r.start, End: r.end}}

	p.skipSpace()
	call.NamePos = p.pos
	name, ok := p.ident()
	if !ok {
		return Call{}, p.errorf("expected directive name")
	}
	call.Name = name
	p.name = name

	p.skipSpace()
	if !p.consume('(') {
		return Call{}, p.errorf("expected '(' after %s", name)
	}
	seen := map[string]bool{}
	for {
		p.skipSpace()
		if p.consume(')') {
			break
		}
		argPos := p.pos
		argName, ok := p.ident()
		if !ok {
			return Call{}, p.errorf("expected argument name")
		}
		if seen[argName] {
			p.pos = argPos
			return Call{}, p.errorf("duplicate argument %q", argName)
		}
		seen[argName] = true
		p.skipSpace()
		if !p.consume('=') {
			return Call{}, p.errorf("expected '=' after %s", argName)
		}
		p.skipSpace()
		exprStart := p.pos
		expr, err := p.value()
		if err != nil {
			return Call{}, err
		}
		call.Args = append(call.Args, Arg{
			Name: argName,
			Raw:  src[exprStart:p.pos],
			Expr: expr,
			Pos:  argPos,
		})
		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume(')') {
			break
		}
		return Call{}, p.errorf("expected ',' or ')'")
	}
	p.skipSpace()
	if p.pos < p.end {
		return Call{}, p.errorf("unexpected text after call")
	}
	return call, nil
}

func (p *callParser) errorf(format string, args ...any) error {
	return NewDirectiveSyntaxError(p.src, p.pos, p.name, fmt.Sprintf(format, args...))
}

func (p *callParser) peek() (byte, bool) {
	if p.pos >= p.end {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *callParser) consume(c byte) bool {
	if b, ok := p.peek(); ok && b == c {
		p.pos++
		return true
	}
	return false
}

func (p *callParser) skipSpace() {
	for p.pos < p.end {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *callParser) ident() (string, bool) {
	start := p.pos
	for p.pos < p.end && isIdentByte(p.src[p.pos], p.pos == start) {
		p.pos++
	}
	return p.src[start:p.pos], p.pos > start
}

func (p *callParser) value() (Expr, error) {
	c, ok := p.peek()
	if !ok {
		return nil, p.errorf("expected value")
	}
	switch {
	case c == '"' || c == '\'':
		return p.str()
	case c == '-' || c == '.' || ('0' <= c && c <= '9'):
		return p.number()
	case c == '[':
		return p.list()
	case isIdentByte(c, true):
		return p.identPath()
	}
	return nil, p.errorf("unexpected character %q", c)
}

func (p *callParser) str() (Expr, error) {
	start := p.pos
	quote := p.src[p.pos]
	p.pos++
	var sb strings.Builder
	for p.pos < p.end {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return &Literal{Value: sb.String(), Pos: start}, nil
		case c == '\\' && p.pos+1 < p.end:
			p.pos++
			switch e := p.src[p.pos]; e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(e)
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	p.pos = start
	return nil, p.errorf("unterminated string")
}

func (p *callParser) number() (Expr, error) {
	start := p.pos
	p.consume('-')
	digits := p.digits()
	isFloat := false
	if p.consume('.') {
		isFloat = true
		if p.digits() == 0 {
			return nil, p.errorf("expected digits after '.'")
		}
	} else if digits == 0 {
		p.pos = start
		return nil, p.errorf("malformed number")
	}
	if c, ok := p.peek(); ok && (isIdentByte(c, false) || c == '.') {
		return nil, p.errorf("malformed number")
	}
	text := p.src[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.pos = start
			return nil, p.errorf("malformed number %q", text)
		}
		return &Literal{Value: f, Pos: start}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		p.pos = start
		return nil, p.errorf("number %q out of range", text)
	}
	return &Literal{Value: n, Pos: start}, nil
}

func (p *callParser) digits() int {
	n := 0
	for p.pos < p.end && '0' <= p.src[p.pos] && p.src[p.pos] <= '9' {
		p.pos++
		n++
	}
	return n
}

func (p *callParser) list() (Expr, error) {
	l := &List{Pos: p.pos}
	p.pos++ // [
	for {
		p.skipSpace()
		if p.consume(']') {
			return l, nil
		}
		e, err := p.value()
		if err != nil {
			return nil, err
		}
		l.Elems = append(l.Elems, e)
		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume(']') {
			return l, nil
		}
		if p.pos >= p.end {
			p.pos = l.Pos
			return nil, p.errorf("unterminated list")
		}
		return nil, p.errorf("expected ',' or ']'")
	}
}

func (p *callParser) identPath() (Expr, error) {
	id := &Ident{Pos: p.pos}
	for {
		name, ok := p.ident()
		if !ok {
			return nil, p.errorf("expected field name")
		}
		id.Path = append(id.Path, name)
		if !p.consume('.') {
			return id, nil
		}
	}
}

// evaluator resolves argument expressions against a context.
type evaluator struct {
	src string
	ctx Context
}

func (ev evaluator) eval(e Expr) (Value, error) {
	switch t := e.(type) {
	case *Literal:
		return t.Value, nil
	case *List:
		out := make([]Value, 0, len(t.Elems))
		for _, el := range t.Elems {
			v, err := ev.eval(el)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *Ident:
		v, ok := ev.ctx.Lookup(t.Path[0])
		if !ok {
			return nil, NewUndefinedVariableError(ev.src, t.Pos, t.Path[0])
		}
		for i, field := range t.Path[1:] {
			m, ok := v.(map[string]Value)
			if !ok {
				return nil, NewUndefinedVariableError(ev.src, t.Pos, strings.Join(t.Path[:i+2], "."))
			}
			if v, ok = m[field]; !ok {
				return nil, NewUndefinedVariableError(ev.src, t.Pos, strings.Join(t.Path[:i+2], "."))
			}
		}
		return copyValue(v), nil
	}
	return nil, fmt.Errorf("unknown expression %T", e)
}
