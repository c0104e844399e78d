// Package plot renders line and bar charts as HTML fragments driven by
// BokehJS. Each fragment is a target <div> followed by an inline script
// that draws into it once the page has loaded; the returned dependencies
// are the BokehJS bundles the script needs.
package plot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// BokehJS bundles, in load order.
const (
	BokehVersion = "3.1.1"
	BokehJS      = "https://cdn.bokeh.org/bokeh/release/bokeh-" + BokehVersion + ".min.js"
	BokehAPI     = "https://cdn.bokeh.org/bokeh/release/bokeh-api-" + BokehVersion + ".min.js"
)

// Default figure size in pixels.
const (
	DefaultWidth  = 600
	DefaultHeight = 400
)

// ErrNoData is returned for a chart without values.
var ErrNoData = errors.New("plot: no data")

// Figure holds the options shared by every chart.
type Figure struct {
	Title  string
	Width  int
	Height int
	XLabel string
	YLabel string
}

// LineSpec describes a line chart. An empty X means 0..len(Y)-1.
type LineSpec struct {
	Figure
	X         []float64
	Y         []float64
	LineWidth float64
}

// BarSpec describes a bar chart over categories.
type BarSpec struct {
	Figure
	Categories []string
	Counts     []float64
	Vertical   bool
}

// Dependencies returns the resources every chart needs.
func Dependencies() []string { return []string{BokehJS, BokehAPI} }

type figureJSON struct {
	Title  string `json:"title,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	XLabel string `json:"x_axis_label,omitempty"`
	YLabel string `json:"y_axis_label,omitempty"`
}

func (f Figure) json() figureJSON {
	out := figureJSON{Title: f.Title, Width: f.Width, Height: f.Height, XLabel: f.XLabel, YLabel: f.YLabel}
	if out.Width <= 0 {
		out.Width = DefaultWidth
	}
	if out.Height <= 0 {
		out.Height = DefaultHeight
	}
	return out
}

// Line renders a line chart.
func Line(s LineSpec) (string, []string, error) {
	if len(s.Y) == 0 {
		return "", nil, ErrNoData
	}
	x := s.X
	if len(x) == 0 {
		x = make([]float64, len(s.Y))
		for i := range x {
			x[i] = float64(i)
		}
	}
	if len(x) != len(s.Y) {
		return "", nil, fmt.Errorf("plot: x has %d values, y has %d", len(x), len(s.Y))
	}
	width := s.LineWidth
	if width <= 0 {
		width = 2
	}
	payload := struct {
		Figure    figureJSON `json:"figure"`
		X         []float64  `json:"x"`
		Y         []float64  `json:"y"`
		LineWidth float64    `json:"line_width"`
	}{s.Figure.json(), x, s.Y, width}

	const draw = `var p=Bokeh.Plotting.figure(s.figure);` +
		`var src=new Bokeh.ColumnDataSource({data:{x:s.x,y:s.y}});` +
		`p.line({field:"x"},{field:"y"},{source:src,line_width:s.line_width});` +
		`Bokeh.Plotting.show(p,t);`
	return fragment("line", payload, draw)
}

// Bar renders a bar chart.
func Bar(s BarSpec) (string, []string, error) {
	if len(s.Counts) == 0 {
		return "", nil, ErrNoData
	}
	if len(s.Categories) != len(s.Counts) {
		return "", nil, fmt.Errorf("plot: %d categories, %d counts", len(s.Categories), len(s.Counts))
	}
	payload := struct {
		Figure     figureJSON `json:"figure"`
		Categories []string   `json:"categories"`
		Counts     []float64  `json:"counts"`
	}{s.Figure.json(), s.Categories, s.Counts}

	var draw string
	if s.Vertical {
		draw = `s.figure.x_range=s.categories;var p=Bokeh.Plotting.figure(s.figure);` +
			`var src=new Bokeh.ColumnDataSource({data:{c:s.categories,n:s.counts}});` +
			`p.vbar({x:{field:"c"},top:{field:"n"},width:0.9,source:src});`
	} else {
		draw = `s.figure.y_range=s.categories;var p=Bokeh.Plotting.figure(s.figure);` +
			`var src=new Bokeh.ColumnDataSource({data:{c:s.categories,n:s.counts}});` +
			`p.hbar({y:{field:"c"},right:{field:"n"},height:0.9,source:src});`
	}
	return fragment("bar", payload, draw+`Bokeh.Plotting.show(p,t);`)
}

// fragment emits the target div and the script. The script finds its div
// through document.currentScript, so fragments need no ids.
func fragment(kind string, payload any, draw string) (string, []string, error) {
	// json.Marshal escapes <, > and &, so the payload cannot close the script.
	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("plot: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(`<div class="docweaver-plot docweaver-`)
	sb.WriteString(kind)
	sb.WriteString(`"></div><script type="text/javascript">(function(){`)
	sb.WriteString(`var t=document.currentScript.previousElementSibling;var s=`)
	sb.Write(data)
	sb.WriteString(`;document.addEventListener("DOMContentLoaded",function(){`)
	sb.WriteString(draw)
	sb.WriteString(`});})();</script>`)
	return sb.String(), Dependencies(), nil
}
