package docweaver

import (
	"github.com/grahms/docweaver/plot"
)

// DefaultRegistry returns a fresh registry with the `line` and `bar`
// directives backed by the plot package.
//
//	%$ line(y=values, x=steps, title="Load") $%
//	%$ bar(x=["a", "b"], y=[3, 4], vertical=1) $%
func DefaultRegistry() *Registry {
	return MustRegistry(
		Entry{
			Name: "line",
			Func: renderLine,
			Validator: Signature{
				Required: []string{"y"},
				Optional: []string{"x", "title", "width", "height", "x_label", "y_label", "line_width"},
			},
		},
		Entry{
			Name: "bar",
			Func: renderBar,
			Validator: Signature{
				Required: []string{"x", "y"},
				Optional: []string{"title", "width", "height", "x_label", "y_label", "vertical"},
			},
		},
	)
}

// DefaultMarkdown returns Markdown glue using goldmark and DefaultRegistry.
func DefaultMarkdown(opts ...Option) *Markdown {
	return NewMarkdown(NewGoldmarkConverter(), NewPreprocessor(DefaultRegistry(), opts...))
}

func figureArgs(args Args) (plot.Figure, error) {
	var (
		f   plot.Figure
		err error
	)
	if f.Title, err = args.String("title", ""); err != nil {
		return f, err
	}
	if f.Width, err = args.Int("width", 0); err != nil {
		return f, err
	}
	if f.Height, err = args.Int("height", 0); err != nil {
		return f, err
	}
	if f.XLabel, err = args.String("x_label", ""); err != nil {
		return f, err
	}
	if f.YLabel, err = args.String("y_label", ""); err != nil {
		return f, err
	}
	return f, nil
}

func renderLine(args Args, _ Context) (string, Dependencies, error) {
	fig, err := figureArgs(args)
	if err != nil {
		return "", nil, err
	}
	spec := plot.LineSpec{Figure: fig}
	if spec.Y, err = args.Floats("y"); err != nil {
		return "", nil, err
	}
	if args.Has("x") {
		if spec.X, err = args.Floats("x"); err != nil {
			return "", nil, err
		}
	}
	if spec.LineWidth, err = args.Float("line_width", 0); err != nil {
		return "", nil, err
	}
	markup, deps, err := plot.Line(spec)
	if err != nil {
		return "", nil, err
	}
	return markup, NewDependencies(deps...), nil
}

func renderBar(args Args, _ Context) (string, Dependencies, error) {
	fig, err := figureArgs(args)
	if err != nil {
		return "", nil, err
	}
	spec := plot.BarSpec{Figure: fig}
	if spec.Categories, err = args.Strings("x"); err != nil {
		return "", nil, err
	}
	if spec.Counts, err = args.Floats("y"); err != nil {
		return "", nil, err
	}
	if spec.Vertical, err = args.Bool("vertical", false); err != nil {
		return "", nil, err
	}
	markup, deps, err := plot.Bar(spec)
	if err != nil {
		return "", nil, err
	}
	return markup, NewDependencies(deps...), nil
}
