package docweaver

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Converter turns Markdown text into HTML. Implementations must be pure.
type Converter interface {
	Convert(text string, ctx Context) (string, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(text string, ctx Context) (string, error)

// Convert implements Converter.
func (f ConverterFunc) Convert(text string, ctx Context) (string, error) { return f(text, ctx) }

// GoldmarkConverter converts with goldmark: tables, strikethrough,
// definition lists, footnotes, raw HTML, heading anchors and a `[TOC]`
// table of contents. After conversion every `{{ name }}` is replaced with
// the escaped context value.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates a converter. Extra extensions are added to
// the defaults.
func NewGoldmarkConverter(exts ...goldmark.Extender) *GoldmarkConverter {
	all := []goldmark.Extender{
		extension.Table,
		extension.Strikethrough,
		extension.DefinitionList,
		extension.Footnote,
	}
	md := goldmark.New(
		goldmark.WithExtensions(append(all, exts...)...),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(tocTransformer{}, 1000)),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(tocRenderer{}, 1000)),
		),
	)
	return &GoldmarkConverter{md: md}
}

// Convert implements Converter.
func (c *GoldmarkConverter) Convert(text string, ctx Context) (string, error) {
	var buf bytes.Buffer
	// anchors are unique within one conversion only
	pctx := parser.NewContext(parser.WithIDs(newHeadingIDs()))
	if err := c.md.Convert([]byte(text), &buf, parser.WithContext(pctx)); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return substitute(strings.TrimRight(buf.String(), "\n"), ctx)
}

// headingIDs generates anchors from heading text. Placeholders left by
// Preprocessor.Expand are removed first, so directives never change an
// anchor.
type headingIDs struct {
	used map[string]bool
}

func newHeadingIDs() *headingIDs {
	return &headingIDs{used: map[string]bool{}}
}

// Generate implements parser.IDs.
func (s *headingIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	base := Slugify(string(stripPlaceholders(value)))
	if base == "" {
		base = "heading"
		if kind != ast.KindHeading {
			base = "id"
		}
	}
	id := base
	for n := 1; s.used[id]; n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	s.used[id] = true
	return []byte(id)
}

// Put implements parser.IDs.
func (s *headingIDs) Put(value []byte) {
	s.used[string(value)] = true
}

// TOCMarker is the paragraph text replaced by a table of contents.
const TOCMarker = "[TOC]"

// KindTOC is the node kind of a table of contents.
var KindTOC = ast.NewNodeKind("TOC")

// tocNode is a <div class="toc"> holding a nested list of links to the
// document headings.
type tocNode struct {
	ast.BaseBlock
}

// Kind implements ast.Node.
func (*tocNode) Kind() ast.NodeKind { return KindTOC }

// Dump implements ast.Node.
func (n *tocNode) Dump(source []byte, level int) { ast.DumpHelper(n, source, level, nil, nil) }

// tocTransformer replaces every `[TOC]` paragraph with the table of
// contents. Heading ids are already set when transformers run.
type tocTransformer struct{}

// Transform implements parser.ASTTransformer.
func (tocTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	var (
		markers  []ast.Node
		headings []*ast.Heading
	)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Heading:
			headings = append(headings, t)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if strings.TrimSpace(string(t.Text(source))) == TOCMarker {
				markers = append(markers, t)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	for _, m := range markers {
		m.Parent().ReplaceChild(m.Parent(), m, buildTOC(headings, source))
	}
}

// buildTOC nests headings by level: a deeper heading goes into a sub-list
// of the last item above it.
func buildTOC(headings []*ast.Heading, source []byte) ast.Node {
	type frame struct {
		level int
		list  *ast.List
	}
	toc := &tocNode{}
	root := ast.NewList('-')
	toc.AppendChild(toc, root)

	var stack []frame
	for _, h := range headings {
		id, ok := h.AttributeString("id")
		if !ok {
			continue
		}
		if len(stack) == 0 {
			stack = append(stack, frame{level: h.Level, list: root})
		}
		for len(stack) > 1 && h.Level < stack[len(stack)-1].level {
			stack = stack[:len(stack)-1]
		}
		top := stack[len(stack)-1]
		if last := top.list.LastChild(); h.Level > top.level && last != nil {
			sub := ast.NewList('-')
			last.AppendChild(last, sub)
			stack = append(stack, frame{level: h.Level, list: sub})
			top = stack[len(stack)-1]
		}

		link := ast.NewLink()
		link.Destination = append([]byte("#"), id.([]byte)...)
		label := strings.TrimSpace(string(stripPlaceholders(h.Text(source))))
		link.AppendChild(link, ast.NewString([]byte(label)))
		block := ast.NewTextBlock()
		block.AppendChild(block, link)
		item := ast.NewListItem(2)
		item.AppendChild(item, block)
		top.list.AppendChild(top.list, item)
	}
	return toc
}

// tocRenderer writes the div around a table of contents; the list inside
// is rendered by goldmark.
type tocRenderer struct{}

// RegisterFuncs implements renderer.NodeRenderer.
func (r tocRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindTOC, r.render)
}

func (tocRenderer) render(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("<div class=\"toc\">\n")
	} else {
		_, _ = w.WriteString("</div>\n")
	}
	return ast.WalkContinue, nil
}

// Slugify returns the anchor for a heading text: lower case, letters,
// digits and underscores kept, runs of spaces and hyphens turned into one
// hyphen, everything else dropped.
func Slugify(text string) string {
	var sb strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingSep && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingSep = false
			sb.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			pendingSep = true
		}
	}
	return sb.String()
}

// substitute replaces `{{ name }}` and `{{ name.field }}` in converted HTML
// with the escaped value from ctx. Anything else between braces is left
// alone.
func substitute(text string, ctx Context) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	var sb strings.Builder
	rest := text
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		inner := strings.TrimSpace(rest[open+2 : open+2+end])
		path := strings.Split(inner, ".")
		if !validPath(path) {
			sb.WriteString(rest[:open+2])
			rest = rest[open+2:]
			continue
		}
		v, err := evaluator{ctx: ctx}.eval(&Ident{Path: path})
		if err != nil {
			return "", err
		}
		sb.WriteString(rest[:open])
		sb.WriteString(html.EscapeString(FormatValue(v)))
		rest = rest[open+2+end+2:]
	}
}

func validPath(path []string) bool {
	for _, p := range path {
		if !isIdent(p) {
			return false
		}
	}
	return true
}

// MarkdownBlock is a <div> holding converted Markdown and the dependencies
// of the directives it contained.
type MarkdownBlock struct {
	base
	html string
}

func (*MarkdownBlock) isElement() {}

// HTML returns the converted content without the enclosing div.
func (b *MarkdownBlock) HTML() string { return b.html }

// Render implements Element.
func (b *MarkdownBlock) Render() (Rendered, error) { return b.render("markdown") }

func (b *MarkdownBlock) render(path string) (Rendered, error) {
	markup, err := b.wrap(path, b.html, false)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Markup: markup, Deps: b.deps.Add()}, nil
}

// Markdown builds MarkdownBlocks: directives are evaluated first, the text
// is converted, then directive markup is spliced into the HTML.
type Markdown struct {
	conv Converter
	pre  *Preprocessor
}

// NewMarkdown creates the glue. A nil pre disables directives.
func NewMarkdown(conv Converter, pre *Preprocessor) *Markdown {
	return &Markdown{conv: conv, pre: pre}
}

// Block converts template into an element. Dependencies are those of the
// directives in order, then the ones given with WithDeps.
func (m *Markdown) Block(template string, ctx Context, opts ...ElementOption) (*MarkdownBlock, error) {
	ctx = ctx.Snapshot()
	exp := Expansion{Text: template}
	if m.pre != nil {
		var err error
		if exp, err = m.pre.Expand(template, ctx); err != nil {
			return nil, err
		}
	}
	converted, err := m.conv.Convert(exp.Text, ctx)
	if err != nil {
		return nil, err
	}
	spliced, err := exp.Splice(converted)
	if err != nil {
		return nil, err
	}
	b := &MarkdownBlock{base: newBase("div", opts), html: spliced}
	b.deps = exp.Deps.Merge(b.deps)
	return b, nil
}
