package docweaver

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plotRegistry mirrors a registry with a single `line` renderer that marks
// where it ran.
func plotRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(Func("line", func(args Args, _ Context) (string, Dependencies, error) {
		return "<PLOT:line>", NewDependencies("bokeh.js"), nil
	}))
	require.NoError(t, err)
	return reg
}

func Test_Preprocessor(t *testing.T) {
	ctx := Context{"a": []Value{int64(1), int64(2), int64(3)}}

	t.Run("should replace a directive with its markup", func(t *testing.T) {
		pre := NewPreprocessor(plotRegistry(t))
		res, err := pre.Process("before %$ line(x=a) $% after", ctx)
		require.NoError(t, err)
		assert.Equal(t, "before <PLOT:line> after", res.Text)
		assert.Equal(t, Dependencies{"bokeh.js"}, res.Deps)
		require.Len(t, res.Fragments, 1)
		assert.Equal(t, "line", res.Fragments[0].Name)
	})

	t.Run("should leave text without directives unchanged", func(t *testing.T) {
		src := "no directives here, just 100% text and $ signs"
		res, err := NewPreprocessor(plotRegistry(t)).Process(src, nil)
		require.NoError(t, err)
		assert.Equal(t, src, res.Text)
		assert.Empty(t, res.Deps)
	})

	t.Run("should merge dependencies of every directive once", func(t *testing.T) {
		reg, err := plotRegistry(t).With(Func("table", func(Args, Context) (string, Dependencies, error) {
			return "<T>", NewDependencies("table.css", "bokeh.js"), nil
		}))
		require.NoError(t, err)
		res, err := NewPreprocessor(reg).Process("%$ table() $%%$ line(x=a) $%%$ table() $%", ctx)
		require.NoError(t, err)
		assert.Equal(t, "<T><PLOT:line><T>", res.Text)
		assert.Equal(t, Dependencies{"table.css", "bokeh.js"}, res.Deps)
	})

	t.Run("should report an unknown directive without partial output", func(t *testing.T) {
		res, err := NewPreprocessor(plotRegistry(t)).Process("a %$ scatter(x=a) $%", ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrResolution))
		assert.Equal(t, Result{}, res)

		var unknown *UnknownDirectiveError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "scatter", unknown.Name)
		assert.Equal(t, 5, unknown.Pos.Offset)
	})

	t.Run("should stop at the first failing directive", func(t *testing.T) {
		_, err := NewPreprocessor(plotRegistry(t)).Process("%$ nope() $% %$ line(x=missing) $%", ctx)
		var unknown *UnknownDirectiveError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "nope", unknown.Name)
	})

	t.Run("should report an unterminated directive at its start marker", func(t *testing.T) {
		_, err := NewPreprocessor(plotRegistry(t)).Process("%$ line(x=a)", ctx)
		var unterminated *UnterminatedDirectiveError
		require.ErrorAs(t, err, &unterminated)
		assert.Equal(t, 0, unterminated.Pos.Offset)
		assert.True(t, errors.Is(err, ErrParse))

		_, err = NewPreprocessor(plotRegistry(t)).Process("text %$ line(x=a)", ctx)
		require.ErrorAs(t, err, &unterminated)
		assert.Equal(t, Position{Offset: 5, Line: 1, Column: 6}, unterminated.Pos)
	})

	t.Run("should report an unterminated string as unterminated directive", func(t *testing.T) {
		_, err := NewPreprocessor(plotRegistry(t)).Process(`x %$ line(t="a $%) $%`, ctx)
		var unterminated *UnterminatedDirectiveError
		require.ErrorAs(t, err, &unterminated)
		assert.Equal(t, 2, unterminated.Pos.Offset)
	})

	t.Run("should not end a directive inside a quoted string", func(t *testing.T) {
		var got Args
		pre := NewPreprocessor(echoRegistry(t, &got))
		res, err := pre.Process(`<%$ echo(t="50$% off", u='$%') $%>`, nil)
		require.NoError(t, err)
		assert.Equal(t, "<>", res.Text)
		s, _ := got.String("t", "")
		assert.Equal(t, "50$% off", s)
		u, _ := got.String("u", "")
		assert.Equal(t, "$%", u)
	})

	t.Run("should report an undefined variable at its offset", func(t *testing.T) {
		_, err := NewPreprocessor(plotRegistry(t)).Process("%$ line(x=b) $%", ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrResolution))

		var undefined *UndefinedVariableError
		require.ErrorAs(t, err, &undefined)
		assert.Equal(t, "b", undefined.Name)
		assert.Equal(t, 10, undefined.Pos.Offset)
	})

	t.Run("should report a missing field with its dotted name", func(t *testing.T) {
		var got Args
		_, err := NewPreprocessor(echoRegistry(t, &got)).Process("%$ echo(v=a.b) $%", ctx)
		var undefined *UndefinedVariableError
		require.ErrorAs(t, err, &undefined)
		assert.Equal(t, "a.b", undefined.Name)
	})

	t.Run("should wrap renderer failures", func(t *testing.T) {
		cause := errors.New("no data")
		reg, err := NewRegistry(Func("line", func(Args, Context) (string, Dependencies, error) {
			return "", nil, cause
		}))
		require.NoError(t, err)

		_, err = NewPreprocessor(reg).Process("ab\n%$ line() $%", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRenderer))
		assert.True(t, errors.Is(err, cause))

		var rendErr *RendererError
		require.ErrorAs(t, err, &rendErr)
		assert.Equal(t, "line", rendErr.Name)
		assert.Equal(t, Position{Offset: 6, Line: 2, Column: 4}, rendErr.Pos)
	})

	t.Run("should reject arguments outside the signature", func(t *testing.T) {
		reg, err := NewRegistry(Entry{
			Name:      "line",
			Func:      func(Args, Context) (string, Dependencies, error) { return "", nil, nil },
			Validator: Signature{Required: []string{"y"}, Optional: []string{"x"}},
		})
		require.NoError(t, err)
		pre := NewPreprocessor(reg)

		_, err = pre.Process("%$ line(x=a) $%", ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRenderer))
		assert.Contains(t, err.Error(), "missing argument(s) y")

		_, err = pre.Process("%$ line(y=a, z=1) $%", ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unexpected argument "z"`)

		_, err = pre.Process("%$ line(y=a, x=a) $%", ctx)
		assert.NoError(t, err)
	})

	t.Run("should not let renderers change the caller's context", func(t *testing.T) {
		reg, err := NewRegistry(Func("mut", func(_ Args, c Context) (string, Dependencies, error) {
			c["a"] = "changed"
			c["new"] = int64(1)
			return "", nil, nil
		}))
		require.NoError(t, err)
		local := Context{"a": []Value{int64(1)}}
		_, err = NewPreprocessor(reg).Process("%$ mut() $%%$ mut() $%", local)
		require.NoError(t, err)
		assert.Equal(t, Context{"a": []Value{int64(1)}}, local)
	})

	t.Run("should use custom markers", func(t *testing.T) {
		pre := NewPreprocessor(plotRegistry(t), WithMarkers("{%", "%}"))
		res, err := pre.Process("a {% line(x=a) %} %$ b $%", ctx)
		require.NoError(t, err)
		assert.Equal(t, "a <PLOT:line> %$ b $%", res.Text)
	})

	t.Run("should log rendered directives at debug level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		_, err := NewPreprocessor(plotRegistry(t), WithLogger(logger)).Process("%$ line(x=a) $%", ctx)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `msg="directive rendered"`)
		assert.Contains(t, buf.String(), "name=line")
	})

	t.Run("should wrap the result as an element", func(t *testing.T) {
		res, err := NewPreprocessor(plotRegistry(t)).Process("x %$ line(x=a) $%", ctx)
		require.NoError(t, err)
		r := mustRender(t, Div([]Element{res.Element()}))
		assert.Equal(t, "<div>x <PLOT:line></div>", r.Markup)
		assert.Equal(t, Dependencies{"bokeh.js"}, r.Deps)
	})
}

func Test_Preprocessor_Expand(t *testing.T) {
	ctx := Context{"a": []Value{int64(1)}}

	t.Run("should leave placeholders and splice markup back", func(t *testing.T) {
		exp, err := NewPreprocessor(plotRegistry(t)).Expand("one %$ line(x=a) $% two", ctx)
		require.NoError(t, err)
		assert.Equal(t, "one "+placeholder(0)+" two", exp.Text)
		out, err := exp.Splice("<p>" + exp.Text + "</p>")
		require.NoError(t, err)
		assert.Equal(t, "<p>one <PLOT:line> two</p>", out)
	})

	t.Run("should unwrap a paragraph holding only a placeholder", func(t *testing.T) {
		exp, err := NewPreprocessor(plotRegistry(t)).Expand("%$ line(x=a) $%", ctx)
		require.NoError(t, err)
		out, err := exp.Splice("<h1>t</h1><p>" + exp.Text + "</p>")
		require.NoError(t, err)
		assert.Equal(t, "<h1>t</h1><PLOT:line>", out)
	})

	t.Run("should splice many fragments by index", func(t *testing.T) {
		var n int
		reg, err := NewRegistry(Func("n", func(Args, Context) (string, Dependencies, error) {
			n++
			return fmt.Sprintf("[%d]", n), nil, nil
		}))
		require.NoError(t, err)
		src := ""
		for i := 0; i < 12; i++ {
			src += "%$ n() $% "
		}
		exp, err := NewPreprocessor(reg).Expand(src, nil)
		require.NoError(t, err)
		out, err := exp.Splice(exp.Text)
		require.NoError(t, err)
		assert.Equal(t, "[1] [2] [3] [4] [5] [6] [7] [8] [9] [10] [11] [12] ", out)
	})

	t.Run("should fail when a placeholder is lost or misplaced", func(t *testing.T) {
		exp, err := NewPreprocessor(plotRegistry(t)).Expand("ab %$ line(x=a) $%", ctx)
		require.NoError(t, err)

		cases := map[string]string{
			"dropped":    "<p>ab </p>",
			"encoded":    `<p><a href="%EE%80%800%EE%80%81">ab</a></p>`,
			"duplicated": "<p>" + exp.Text + exp.Text + "</p>",
			"in a tag":   `<p><img src="i.png" alt="ab ` + placeholder(0) + `"></p>`,
		}
		for name, converted := range cases {
			t.Run(name, func(t *testing.T) {
				out, err := exp.Splice(converted)
				assert.Empty(t, out)
				assert.True(t, errors.Is(err, ErrComposition))
				var misplaced *MisplacedDirectiveError
				require.ErrorAs(t, err, &misplaced)
				assert.Equal(t, "line", misplaced.Name)
				assert.Equal(t, 6, misplaced.Pos.Offset)
			})
		}
	})

	t.Run("should reject the placeholder delimiter in its input", func(t *testing.T) {
		src := "literal " + placeholder(0) + " text %$ line(x=a) $%"
		_, err := NewPreprocessor(plotRegistry(t)).Expand(src, ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrParse))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, 8, parseErr.Pos.Offset)
	})

	t.Run("should strip placeholders", func(t *testing.T) {
		in := []byte("Sales " + placeholder(3) + "report" + placeholder(12))
		assert.Equal(t, "Sales report", string(stripPlaceholders(in)))
	})
}
