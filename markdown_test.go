package docweaver

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Markdown(t *testing.T) {
	md := NewMarkdown(NewGoldmarkConverter(), NewPreprocessor(plotRegistry(t)))

	t.Run("should convert markdown into a div", func(t *testing.T) {
		b, err := md.Block("# Heading\n\nSome text", nil)
		require.NoError(t, err)
		r := mustRender(t, b)
		assert.Equal(t, "<div><h1 id=\"heading\">Heading</h1>\n<p>Some text</p></div>", r.Markup)
		assert.Empty(t, r.Deps)
	})

	t.Run("should splice directive markup in place of its paragraph", func(t *testing.T) {
		b, err := md.Block("Intro\n\n%$ line(x=a) $%\n\nOutro", Context{"a": []Value{int64(1)}})
		require.NoError(t, err)
		assert.Equal(t, "<p>Intro</p>\n<PLOT:line>\n<p>Outro</p>", b.HTML())
		assert.Equal(t, Dependencies{"bokeh.js"}, mustRender(t, b).Deps)
	})

	t.Run("should splice inline directives", func(t *testing.T) {
		b, err := md.Block("see %$ line(x=a) $% *here*", Context{"a": int64(1)})
		require.NoError(t, err)
		assert.Equal(t, "<p>see <PLOT:line> <em>here</em></p>", b.HTML())
	})

	t.Run("should keep heading anchors independent of directives", func(t *testing.T) {
		b, err := md.Block("# Sales %$ line(x=a) $%", Context{"a": int64(1)})
		require.NoError(t, err)
		assert.Equal(t, `<h1 id="sales">Sales <PLOT:line></h1>`, b.HTML())
	})

	t.Run("should make repeated anchors unique", func(t *testing.T) {
		b, err := md.Block("# A\n\n## A\n\n### A", nil)
		require.NoError(t, err)
		q, err := goquery.NewDocumentFromReader(strings.NewReader(b.HTML()))
		require.NoError(t, err)
		var ids []string
		q.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
			ids = append(ids, s.AttrOr("id", ""))
		})
		assert.Equal(t, []string{"a", "a-1", "a-2"}, ids)
	})

	t.Run("should fail when a directive cannot be placed", func(t *testing.T) {
		ctx := Context{"a": int64(1)}
		for _, src := range []string{
			"[l](%$ line(x=a) $%)",
			"![alt %$ line(x=a) $%](i.png)",
		} {
			_, err := md.Block(src, ctx)
			require.Error(t, err, src)
			assert.True(t, errors.Is(err, ErrComposition), src)
			var misplaced *MisplacedDirectiveError
			require.ErrorAs(t, err, &misplaced)
			assert.Equal(t, strings.Index(src, "line"), misplaced.Pos.Offset, src)
		}
	})

	t.Run("should reject the placeholder delimiter in the template", func(t *testing.T) {
		_, err := md.Block("literal \ue0000\ue001 text %$ line(x=a) $%", Context{"a": int64(1)})
		assert.True(t, errors.Is(err, ErrParse))
	})

	t.Run("should replace [TOC] with links to the headings", func(t *testing.T) {
		src := "[TOC]\n\n# Intro\n\n## Sales %$ line(x=a) $%\n\n### Detail\n\n## Costs\n\n# Intro"
		b, err := md.Block(src, Context{"a": int64(1)})
		require.NoError(t, err)
		q, err := goquery.NewDocumentFromReader(strings.NewReader(b.HTML()))
		require.NoError(t, err)

		var ids, hrefs, labels []string
		q.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
			ids = append(ids, "#"+s.AttrOr("id", ""))
		})
		q.Find("div.toc a").Each(func(_ int, s *goquery.Selection) {
			hrefs = append(hrefs, s.AttrOr("href", ""))
			labels = append(labels, s.Text())
		})
		assert.Equal(t, []string{"#intro", "#sales", "#detail", "#costs", "#intro-1"}, ids)
		assert.Equal(t, ids, hrefs)
		assert.Equal(t, []string{"Intro", "Sales", "Detail", "Costs", "Intro"}, labels)

		assert.Equal(t, 2, q.Find("div.toc > ul > li").Length())
		assert.Equal(t, "#detail", q.Find("div.toc > ul > li > ul > li > ul > li > a").AttrOr("href", ""))
		assert.NotContains(t, b.HTML(), TOCMarker)
	})

	t.Run("should substitute variables with escaped values", func(t *testing.T) {
		ctx := Context{
			"name": "<b>ops</b>",
			"meta": map[string]Value{"count": int64(3)},
		}
		b, err := md.Block("Team {{ name }} has {{meta.count}} items {{ not an ident }}", ctx)
		require.NoError(t, err)
		assert.Equal(t, "<p>Team &lt;b&gt;ops&lt;/b&gt; has 3 items {{ not an ident }}</p>", b.HTML())
	})

	t.Run("should fail on an undefined variable", func(t *testing.T) {
		_, err := md.Block("Hello {{ who }}", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrResolution))
		var undefined *UndefinedVariableError
		require.ErrorAs(t, err, &undefined)
		assert.Equal(t, "who", undefined.Name)
	})

	t.Run("should propagate directive errors", func(t *testing.T) {
		_, err := md.Block("%$ scatter() $%", nil)
		assert.True(t, errors.Is(err, ErrResolution))
	})

	t.Run("should list directive dependencies before its own", func(t *testing.T) {
		b, err := md.Block("%$ line(x=a) $%", Context{"a": int64(1)}, WithDeps("page.css", "bokeh.js"))
		require.NoError(t, err)
		assert.Equal(t, Dependencies{"bokeh.js", "page.css"}, mustRender(t, b).Deps)
	})

	t.Run("should leave directives alone without a preprocessor", func(t *testing.T) {
		b, err := NewMarkdown(NewGoldmarkConverter(), nil).Block("%$ line() $%", nil)
		require.NoError(t, err)
		assert.Equal(t, "<p>%$ line() $%</p>", b.HTML())
	})

	t.Run("should render tables and raw html", func(t *testing.T) {
		b, err := md.Block("| a | b |\n|---|---|\n| 1 | 2 |\n\n<span class=\"x\">raw</span>", nil)
		require.NoError(t, err)
		q, err := goquery.NewDocumentFromReader(strings.NewReader(b.HTML()))
		require.NoError(t, err)
		assert.Equal(t, 2, q.Find("td").Length())
		assert.Equal(t, "raw", q.Find("span.x").Text())
	})

	t.Run("should accept any converter", func(t *testing.T) {
		upper := ConverterFunc(func(text string, _ Context) (string, error) {
			return "<pre>" + strings.ToUpper(text) + "</pre>", nil
		})
		b, err := NewMarkdown(upper, NewPreprocessor(plotRegistry(t))).Block("x %$ line() $%", nil)
		require.NoError(t, err)
		assert.Equal(t, "<pre>X <PLOT:line></pre>", b.HTML())
	})

	t.Run("should snapshot the context", func(t *testing.T) {
		ctx := Context{"v": "one"}
		b, err := md.Block("{{ v }}", ctx)
		require.NoError(t, err)
		ctx["v"] = "two"
		assert.Equal(t, "<p>one</p>", b.HTML())
	})
}

func Test_Slugify(t *testing.T) {
	cases := map[string]string{
		"Heading":              "heading",
		"Hello, World!":        "hello-world",
		"  spaced   out  ":     "spaced-out",
		"snake_case and-dash":  "snake_case-and-dash",
		"Über Straße 2":        "über-straße-2",
		"--":                   "",
		"Q3 -- results (beta)": "q3-results-beta",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}
