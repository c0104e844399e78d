package docweaver

import (
	"fmt"
	"html"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Rendered is the output of an element: its markup and the external
// resources it needs, own resources first then its descendants'.
type Rendered struct {
	Markup string
	Deps   Dependencies
}

// Element is a node of the document tree. The set of implementations is
// closed to this package.
type Element interface {
	Render() (Rendered, error)
	isElement()
	render(path string) (Rendered, error)
}

// ElementOption configures the attributes or local dependencies of an
// element at construction.
type ElementOption func(*base)

// WithAttr sets an attribute.
func WithAttr(key, value string) ElementOption {
	return func(b *base) { b.attrs = b.attrs.Set(key, value) }
}

// WithAttrs sets several attributes in order.
func WithAttrs(attrs Attrs) ElementOption {
	return func(b *base) {
		for _, a := range attrs {
			b.attrs = b.attrs.Set(a.Key, a.Value)
		}
	}
}

// WithDeps declares resources the element itself needs.
func WithDeps(deps ...string) ElementOption {
	return func(b *base) { b.deps = b.deps.Add(deps...) }
}

// base holds the state shared by every tagged variant.
type base struct {
	tag   string
	attrs Attrs
	deps  Dependencies
}

func newBase(tag string, opts []ElementOption) base {
	b := base{tag: tag}
	for _, o := range opts {
		o(&b)
	}
	return b
}

// Attrs returns a copy of the element's attributes.
func (b *base) Attrs() Attrs { return append(Attrs(nil), b.attrs...) }

// LocalDeps returns the resources declared on the element itself.
func (b *base) LocalDeps() Dependencies { return b.deps.Add() }

// Tag returns the tag name. Empty for passthrough elements.
func (b *base) Tag() string { return b.tag }

func (b *base) open(sb *strings.Builder, path string, void bool) error {
	if b.tag == "" {
		return nil
	}
	sb.WriteByte('<')
	sb.WriteString(b.tag)
	if err := b.attrs.render(sb, b.tag, path); err != nil {
		return err
	}
	if void {
		sb.WriteString("/>")
	} else {
		sb.WriteByte('>')
	}
	return nil
}

func (b *base) close(sb *strings.Builder) {
	if b.tag == "" {
		return
	}
	sb.WriteString("</")
	sb.WriteString(b.tag)
	sb.WriteByte('>')
}

// wrap renders `<tag attrs>inner</tag>`.
func (b *base) wrap(path, inner string, void bool) (string, error) {
	var sb strings.Builder
	if err := b.open(&sb, path, void); err != nil {
		return "", err
	}
	if void {
		return sb.String(), nil
	}
	sb.WriteString(inner)
	b.close(&sb)
	return sb.String(), nil
}

// Text is a leaf of plain text. It is HTML-escaped on render.
type Text struct {
	content string
}

// NewText creates a text leaf.
func NewText(content string) *Text { return &Text{content: content} }

func (*Text) isElement() {}

// Render implements Element.
func (t *Text) Render() (Rendered, error) { return t.render("text") }

func (t *Text) render(string) (Rendered, error) {
	return Rendered{Markup: html.EscapeString(t.content)}, nil
}

// Raw is content that is already markup. It is emitted verbatim.
type Raw struct {
	content string
	deps    Dependencies
}

// NewRaw creates a passthrough element.
func NewRaw(content string, deps ...string) *Raw {
	return &Raw{content: content, deps: NewDependencies(deps...)}
}

func (*Raw) isElement() {}

// Render implements Element.
func (r *Raw) Render() (Rendered, error) { return r.render("raw") }

func (r *Raw) render(string) (Rendered, error) {
	return Rendered{Markup: r.content, Deps: r.deps.Add()}, nil
}

// Tag is an element with literal content. Content is emitted as is; use a
// Container with Text children for escaped text.
type Tag struct {
	base
	content string
	void    bool
}

// NewTag creates an element holding literal content.
func NewTag(tag, content string, opts ...ElementOption) *Tag {
	return &Tag{base: newBase(tag, opts), content: content}
}

// NewVoidTag creates a self-closing element such as <meta/>.
func NewVoidTag(tag string, opts ...ElementOption) *Tag {
	return &Tag{base: newBase(tag, opts), void: true}
}

func (*Tag) isElement() {}

// Render implements Element.
func (t *Tag) Render() (Rendered, error) { return t.render(t.pathName()) }

func (t *Tag) pathName() string {
	if t.tag == "" {
		return "raw"
	}
	return t.tag
}

func (t *Tag) render(path string) (Rendered, error) {
	markup, err := t.wrap(path, t.content, t.void)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Markup: markup, Deps: t.deps.Add()}, nil
}

// Container is an element whose content is an ordered list of children.
type Container struct {
	base
	children []Element
	parallel bool
}

// NewContainer creates an element owning children.
func NewContainer(tag string, children []Element, opts ...ElementOption) *Container {
	return &Container{base: newBase(tag, opts), children: append([]Element(nil), children...)}
}

// Parallel makes the container render its direct children concurrently.
// Output is identical to the sequential render.
func (c *Container) Parallel() *Container {
	c.parallel = true
	return c
}

// Children returns the container's children.
func (c *Container) Children() []Element { return append([]Element(nil), c.children...) }

func (*Container) isElement() {}

// Render implements Element.
func (c *Container) Render() (Rendered, error) { return c.render(c.tag) }

func (c *Container) render(path string) (Rendered, error) {
	inner, deps, err := renderChildren(path, c.children, c.parallel)
	if err != nil {
		return Rendered{}, err
	}
	markup, err := c.wrap(path, inner, false)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Markup: markup, Deps: c.deps.Merge(deps)}, nil
}

// childPath names the i-th child for error messages.
func childPath(parent string, i int, child Element) string {
	name := "raw"
	switch t := child.(type) {
	case *Text:
		name = "text"
	case *Tag:
		name = t.pathName()
	case *Container:
		name = t.tag
	case *MarkdownBlock:
		name = "markdown"
	case *Fragment:
		name = "fragment"
	case *Head:
		name = "head"
	case *Body:
		name = "body"
	case *Page:
		name = "html"
	}
	return fmt.Sprintf("%s/%s[%d]", parent, name, i)
}

// renderChildren renders children and merges their output in declared order.
func renderChildren(path string, children []Element, parallel bool) (string, Dependencies, error) {
	results := make([]Rendered, len(children))
	if parallel && len(children) > 1 {
		// errors are collected per child so the reported one does not
		// depend on scheduling.
		errs := make([]error, len(children))
		var g errgroup.Group
		for i, ch := range children {
			g.Go(func() error {
				results[i], errs[i] = ch.render(childPath(path, i, ch))
				return nil
			})
		}
		_ = g.Wait()
		for _, err := range errs {
			if err != nil {
				return "", nil, err
			}
		}
	} else {
		for i, ch := range children {
			r, err := ch.render(childPath(path, i, ch))
			if err != nil {
				return "", nil, err
			}
			results[i] = r
		}
	}

	var sb strings.Builder
	var deps Dependencies
	for _, r := range results {
		sb.WriteString(r.Markup)
		deps = deps.Merge(r.Deps)
	}
	return sb.String(), deps, nil
}

// Fragment is the result of a directive: markup produced by a renderer and
// the resources it needs.
type Fragment struct {
	Name   string
	markup string
	deps   Dependencies
	pos    int // offset of the directive name in its source
}

// NewFragment creates a directive result element.
func NewFragment(name, markup string, deps Dependencies) *Fragment {
	return &Fragment{Name: name, markup: markup, deps: deps.Add()}
}

func (*Fragment) isElement() {}

// Render implements Element.
func (f *Fragment) Render() (Rendered, error) { return f.render("fragment") }

func (f *Fragment) render(string) (Rendered, error) {
	return Rendered{Markup: f.markup, Deps: f.deps.Add()}, nil
}

// Div creates a <div> container.
func Div(children []Element, opts ...ElementOption) *Container {
	return NewContainer("div", children, opts...)
}

// Span creates a <span> container.
func Span(children []Element, opts ...ElementOption) *Container {
	return NewContainer("span", children, opts...)
}

// P creates a paragraph holding escaped text.
func P(text string, opts ...ElementOption) *Container {
	return NewContainer("p", []Element{NewText(text)}, opts...)
}

// Meta creates a <meta/> element.
func Meta(attrs Attrs) *Tag {
	return NewVoidTag("meta", WithAttrs(attrs))
}

// Title creates a <title> element with escaped text.
func Title(text string) *Tag {
	return NewTag("title", html.EscapeString(text))
}

// Stylesheet creates a <link rel="stylesheet"/> element.
func Stylesheet(href string, opts ...ElementOption) *Tag {
	opts = append(opts, WithAttr("rel", "stylesheet"), WithAttr("href", href))
	return NewVoidTag("link", opts...)
}

// Script creates a deferred external <script> element.
func Script(src string, opts ...ElementOption) *Tag {
	opts = append(opts, WithAttr("src", src), WithAttr("defer", ""))
	return NewTag("script", "", opts...)
}
