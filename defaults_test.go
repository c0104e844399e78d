package docweaver

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grahms/docweaver/plot"
)

func Test_DefaultRegistry(t *testing.T) {
	pre := NewPreprocessor(DefaultRegistry())
	ctx := Context{
		"days":   []Value{int64(1), int64(2), int64(3)},
		"load":   []Value{int64(5), 7.5, int64(6)},
		"codes":  []Value{"404", int64(500)},
		"counts": []Value{int64(3), int64(1)},
	}

	t.Run("should render a line chart with bokeh dependencies", func(t *testing.T) {
		res, err := pre.Process(`%$ line(x=days, y=load, title="Load", width=300) $%`, ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.Text, `<div class="docweaver-plot docweaver-line">`))
		assert.Contains(t, res.Text, `"title":"Load"`)
		assert.Contains(t, res.Text, `"width":300`)
		assert.Contains(t, res.Text, `"y":[5,7.5,6]`)
		assert.Equal(t, Dependencies{plot.BokehJS, plot.BokehAPI}, res.Deps)
	})

	t.Run("should render a bar chart from mixed categories", func(t *testing.T) {
		res, err := pre.Process(`%$ bar(x=codes, y=counts, vertical=1) $%`, ctx)
		require.NoError(t, err)
		assert.Contains(t, res.Text, `"categories":["404","500"]`)
		assert.Contains(t, res.Text, "p.vbar(")
	})

	t.Run("should surface plot errors as renderer errors", func(t *testing.T) {
		_, err := pre.Process(`%$ line(x=[1], y=load) $%`, ctx)
		assert.True(t, errors.Is(err, ErrRenderer))
		assert.Contains(t, err.Error(), "x has 1 values, y has 3")

		_, err = pre.Process(`%$ line(y=[]) $%`, ctx)
		assert.True(t, errors.Is(err, plot.ErrNoData))

		_, err = pre.Process(`%$ line(y=load, width="wide") $%`, ctx)
		assert.True(t, errors.Is(err, ErrRenderer))

		_, err = pre.Process(`%$ bar(x=codes, y=["a", "b"]) $%`, ctx)
		assert.True(t, errors.Is(err, ErrRenderer))
	})

	t.Run("should render through the default markdown glue", func(t *testing.T) {
		b, err := DefaultMarkdown().Block("## Load\n\n%$ line(y=load) $%", ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(b.HTML(), "<h2 id=\"load\">Load</h2>\n<div class=\"docweaver-plot"))
	})
}
