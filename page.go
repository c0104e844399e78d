package docweaver

import (
	"net/url"
	"path"
	"strings"
)

const doctype = "<!DOCTYPE html>"

// Head is the document <head>. When rendered as part of a Page it also
// carries one inclusion tag per resource needed anywhere in the page.
type Head struct {
	Container
}

// NewHead creates a head holding children such as Meta and Title.
func NewHead(children []Element, opts ...ElementOption) *Head {
	return &Head{Container: *NewContainer("head", children, opts...)}
}

// Render implements Element. A head rendered on its own emits no resource
// tags; see Page.
func (h *Head) Render() (Rendered, error) { return h.render("head") }

// renderWith renders the head with resource tags for inherited (the body's
// dependencies) followed by the head's own.
func (h *Head) renderWith(path string, inherited Dependencies) (Rendered, error) {
	inner, childDeps, err := renderChildren(path, h.children, h.parallel)
	if err != nil {
		return Rendered{}, err
	}
	deps := inherited.Merge(h.deps, childDeps)

	var sb strings.Builder
	for i, d := range deps {
		tag := resourceTag(d)
		r, err := tag.render(childPath(path, i, tag))
		if err != nil {
			return Rendered{}, err
		}
		sb.WriteString(r.Markup)
	}
	sb.WriteString(inner)

	markup, err := h.wrap(path, sb.String(), false)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Markup: markup, Deps: deps}, nil
}

// Body is the document <body>.
type Body struct {
	Container
}

// NewBody creates a body holding children.
func NewBody(children []Element, opts ...ElementOption) *Body {
	return &Body{Container: *NewContainer("body", children, opts...)}
}

// Render implements Element.
func (b *Body) Render() (Rendered, error) { return b.render("body") }

// Page is the top level document. It owns one head and one body.
type Page struct {
	base
	head   *Head
	body   *Body
	strict bool
}

// NewPage creates a page. A nil head or body renders as an empty one.
// Options apply to the <html> element.
func NewPage(head *Head, body *Body, opts ...ElementOption) *Page {
	return &Page{base: newBase("html", opts), head: head, body: body}
}

// Strict makes Render fail with MissingRootError when the page has neither
// head nor body, instead of producing an empty document.
func (p *Page) Strict() *Page {
	p.strict = true
	return p
}

func (*Page) isElement() {}

// Render implements Element. Markup is the complete document; Deps holds
// every resource included in the head, in inclusion order.
func (p *Page) Render() (Rendered, error) { return p.render("html") }

// Document renders the page and returns the document text.
func (p *Page) Document() (string, error) {
	r, err := p.Render()
	if err != nil {
		return "", err
	}
	return r.Markup, nil
}

func (p *Page) render(path string) (Rendered, error) {
	if p.strict && p.head == nil && p.body == nil {
		return Rendered{}, &MissingRootError{Path: path}
	}
	head, body := p.head, p.body
	if head == nil {
		head = NewHead(nil)
	}
	if body == nil {
		body = NewBody(nil)
	}

	// The body goes first so its resources are known before the head is
	// written, even though the head comes first in the output.
	rb, err := body.render(path + "/body")
	if err != nil {
		return Rendered{}, err
	}
	rh, err := head.renderWith(path+"/head", p.deps.Merge(rb.Deps))
	if err != nil {
		return Rendered{}, err
	}

	var sb strings.Builder
	sb.WriteString(doctype)
	if err := p.open(&sb, path, false); err != nil {
		return Rendered{}, err
	}
	sb.WriteString(rh.Markup)
	sb.WriteString(rb.Markup)
	p.close(&sb)
	return Rendered{Markup: sb.String(), Deps: rh.Deps}, nil
}

// resourceTag returns the element that includes dep in a head: a stylesheet
// link, a deferred script, or the text verbatim for anything else.
func resourceTag(dep string) Element {
	switch resourceExt(dep) {
	case ".css":
		return Stylesheet(dep)
	case ".js", ".mjs":
		return Script(dep)
	}
	return NewRaw(dep)
}

func resourceExt(dep string) string {
	p := dep
	if u, err := url.Parse(dep); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}
