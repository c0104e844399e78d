package docweaver

import (
	"log/slog"
	"strconv"
	"strings"
)

// Preprocessor replaces directives in text with the markup of their
// renderers and collects the renderers' dependencies.
type Preprocessor struct {
	reg    *Registry
	scan   scanner
	logger *slog.Logger
}

// NewPreprocessor creates a preprocessor resolving directives against reg.
func NewPreprocessor(reg *Registry, opts ...Option) *Preprocessor {
	p := &Preprocessor{
		reg:    reg,
		scan:   scanner{startMark: DefaultStartMarker, endMark: DefaultEndMarker},
		logger: discardLogger(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Registry returns the registry directives are resolved against.
func (p *Preprocessor) Registry() *Registry { return p.reg }

// Result is the output of Process.
type Result struct {
	Text      string       // source with every directive replaced by its markup
	Deps      Dependencies // renderer dependencies in directive order
	Fragments []*Fragment  // one per directive, in order
}

// Element wraps the result as a passthrough element carrying its
// dependencies.
func (r Result) Element() Element { return NewRaw(r.Text, r.Deps...) }

// Parse scans src and parses every directive without resolving it.
func (p *Preprocessor) Parse(src string) ([]Call, error) {
	regions, err := p.scan.scan(src)
	if err != nil {
		return nil, err
	}
	calls := make([]Call, 0, len(regions))
	for _, r := range regions {
		c, err := parseCall(src, r)
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, nil
}

// Process replaces every directive in src with its renderer's markup. The
// first failing directive aborts processing; no partial text is returned.
func (p *Preprocessor) Process(src string, ctx Context) (Result, error) {
	return p.run(src, ctx, func(_ int, f *Fragment) string { return f.markup })
}

// Expansion is the output of Expand: text with placeholders ready for a
// converter, and the fragments the placeholders stand for.
type Expansion struct {
	Text      string
	Deps      Dependencies
	Fragments []*Fragment

	src string
}

// Expand evaluates every directive like Process but leaves a placeholder in
// the text instead of the markup. Splice puts the markup back once the text
// went through a converter that must not see it. src must not contain
// U+E000, which opens a placeholder.
func (p *Preprocessor) Expand(src string, ctx Context) (Expansion, error) {
	if i := strings.Index(src, placeholderOpen); i >= 0 {
		return Expansion{}, NewParseError(src, i, "reserved character U+E000 in text")
	}
	r, err := p.run(src, ctx, func(i int, _ *Fragment) string { return placeholder(i) })
	if err != nil {
		return Expansion{}, err
	}
	return Expansion{Text: r.Text, Deps: r.Deps, Fragments: r.Fragments, src: src}, nil
}

// Splice replaces placeholders in converted text with fragment markup. A
// paragraph holding nothing but a placeholder is replaced as a whole.
//
// Every placeholder must appear exactly once, in text content. A converter
// that dropped, encoded or duplicated one, or moved it into a tag, fails
// with MisplacedDirectiveError at the directive.
func (e Expansion) Splice(converted string) (string, error) {
	if len(e.Fragments) == 0 {
		return converted, nil
	}
	for i, f := range e.Fragments {
		ph := placeholder(i)
		switch n := strings.Count(converted, ph); {
		case n == 0:
			return "", NewMisplacedDirectiveError(e.src, f.pos, f.Name, "markup was dropped by the converter")
		case n > 1:
			return "", NewMisplacedDirectiveError(e.src, f.pos, f.Name, "markup was duplicated by the converter")
		}
		if insideTag(converted, strings.Index(converted, ph)) {
			return "", NewMisplacedDirectiveError(e.src, f.pos, f.Name, "markup cannot be placed inside a tag")
		}
	}

	pairs := make([]string, 0, 4*len(e.Fragments))
	for i, f := range e.Fragments {
		pairs = append(pairs, "<p>"+placeholder(i)+"</p>", f.markup)
	}
	for i, f := range e.Fragments {
		pairs = append(pairs, placeholder(i), f.markup)
	}
	return strings.NewReplacer(pairs...).Replace(converted), nil
}

// insideTag reports whether offset i of html lies between a '<' and its '>'.
// Converters escape '<' and '>' in text content.
func insideTag(html string, i int) bool {
	return strings.LastIndexByte(html[:i], '<') > strings.LastIndexByte(html[:i], '>')
}

// Placeholders are delimited by private use code points, which neither
// Markdown syntax nor ordinary text uses.
const (
	placeholderOpen  = "\uE000"
	placeholderClose = "\uE001"
)

func placeholder(i int) string {
	return placeholderOpen + strconv.Itoa(i) + placeholderClose
}

// stripPlaceholders removes placeholder tokens from b.
func stripPlaceholders(b []byte) []byte {
	s := string(b)
	for {
		open := strings.Index(s, placeholderOpen)
		if open < 0 {
			return []byte(s)
		}
		end := strings.Index(s[open:], placeholderClose)
		if end < 0 {
			return []byte(s)
		}
		s = s[:open] + s[open+end+len(placeholderClose):]
	}
}

func (p *Preprocessor) run(src string, ctx Context, emit func(int, *Fragment) string) (Result, error) {
	regions, err := p.scan.scan(src)
	if err != nil {
		return Result{}, err
	}
	ctx = ctx.Snapshot()

	var (
		sb    strings.Builder
		res   Result
		ev    = evaluator{src: src, ctx: ctx}
		start = 0
	)
	for i, r := range regions {
		frag, err := p.evaluate(src, r, ev)
		if err != nil {
			return Result{}, err
		}
		sb.WriteString(src[start:r.start])
		sb.WriteString(emit(i, frag))
		start = r.end
		res.Deps = res.Deps.Merge(frag.deps)
		res.Fragments = append(res.Fragments, frag)
	}
	sb.WriteString(src[start:])
	res.Text = sb.String()
	return res, nil
}

func (p *Preprocessor) evaluate(src string, r region, ev evaluator) (*Fragment, error) {
	call, err := parseCall(src, r)
	if err != nil {
		return nil, err
	}
	entry, ok := p.reg.Lookup(call.Name)
	if !ok {
		return nil, NewUnknownDirectiveError(src, call.NamePos, call.Name)
	}

	var args Args
	for _, a := range call.Args {
		v, err := ev.eval(a.Expr)
		if err != nil {
			return nil, err
		}
		args.set(a.Name, v)
	}
	if entry.Validator != nil {
		if err := entry.Validator.Validate(call.Name, args); err != nil {
			return nil, NewRendererError(src, call.NamePos, call.Name, err)
		}
	}

	markup, deps, err := entry.Func(args, ev.ctx.Snapshot())
	if err != nil {
		return nil, NewRendererError(src, call.NamePos, call.Name, err)
	}
	p.logger.Debug("directive rendered",
		slog.String("name", call.Name),
		slog.Int("offset", call.Span.Start),
		slog.Int("args", args.Len()),
		slog.Int("deps", len(deps)))
	frag := NewFragment(call.Name, markup, deps)
	frag.pos = call.NamePos
	return frag, nil
}
