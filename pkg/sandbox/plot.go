package sandbox

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/marinad-syro/inferra/pkg/table"
)

// PlotKind identifies the chart type a script requested.
type PlotKind string

const (
	PlotHistogram PlotKind = "histogram"
	PlotScatter   PlotKind = "scatter"
	PlotLine      PlotKind = "line"
	PlotBar       PlotKind = "bar"
)

// PlotSpec is one recorded plot call. Specs are rendered to PNG after the
// script finishes, so a script error discards half-built figures cleanly.
type PlotSpec struct {
	Kind   PlotKind
	Title  string
	Bins   int
	X      []float64
	Y      []float64
	Labels []string
}

// PlotCollector records plot calls during one script execution. A fresh
// collector is created per invocation; nothing carries across scripts.
type PlotCollector struct {
	specs []PlotSpec
}

// NewPlotCollector returns an empty collector.
func NewPlotCollector() *PlotCollector { return &PlotCollector{} }

// Specs returns the recorded plot calls in order.
func (p *PlotCollector) Specs() []PlotSpec { return p.specs }

// Module builds the `plot` Starlark module bound to this collector.
func (p *PlotCollector) Module() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "plot",
		Members: starlark.StringDict{
			"histogram": starlark.NewBuiltin("plot.histogram", p.histogram),
			"scatter":   starlark.NewBuiltin("plot.scatter", p.scatter),
			"line":      starlark.NewBuiltin("plot.line", p.line),
			"bar":       starlark.NewBuiltin("plot.bar", p.bar),
		},
	}
}

func (p *PlotCollector) histogram(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var values starlark.Value
	bins := 10
	title := ""
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "values", &values, "bins?", &bins, "title?", &title); err != nil {
		return nil, err
	}
	if bins < 1 {
		return nil, fmt.Errorf("%s: bins must be positive, got %d", b.Name(), bins)
	}
	xs, err := plotSeries(b.Name(), values)
	if err != nil {
		return nil, err
	}
	p.specs = append(p.specs, PlotSpec{Kind: PlotHistogram, Title: title, Bins: bins, X: xs})
	return starlark.None, nil
}

func (p *PlotCollector) scatter(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return p.xyPlot(PlotScatter, b, args, kwargs)
}

func (p *PlotCollector) line(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return p.xyPlot(PlotLine, b, args, kwargs)
}

func (p *PlotCollector) xyPlot(kind PlotKind, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x, y starlark.Value
	title := ""
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x", &x, "y", &y, "title?", &title); err != nil {
		return nil, err
	}
	xs, err := plotSeries(b.Name(), x)
	if err != nil {
		return nil, err
	}
	ys, err := plotSeries(b.Name(), y)
	if err != nil {
		return nil, err
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%s: x has %d values, y has %d", b.Name(), len(xs), len(ys))
	}
	p.specs = append(p.specs, PlotSpec{Kind: kind, Title: title, X: xs, Y: ys})
	return starlark.None, nil
}

func (p *PlotCollector) bar(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var labels, values starlark.Value
	title := ""
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "labels", &labels, "values", &values, "title?", &title); err != nil {
		return nil, err
	}
	ls, err := plotLabels(b.Name(), labels)
	if err != nil {
		return nil, err
	}
	ys, err := plotSeries(b.Name(), values)
	if err != nil {
		return nil, err
	}
	if len(ls) != len(ys) {
		return nil, fmt.Errorf("%s: %d labels for %d values", b.Name(), len(ls), len(ys))
	}
	p.specs = append(p.specs, PlotSpec{Kind: PlotBar, Title: title, Labels: ls, Y: ys})
	return starlark.None, nil
}

// plotSeries converts a column, list, or scalar argument into plot data,
// dropping missing cells.
func plotSeries(fn string, v starlark.Value) ([]float64, error) {
	cells, err := ColumnCells(v, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	out := make([]float64, 0, len(cells))
	for _, c := range cells {
		f, ok := table.AsFloat(c)
		if !ok || math.IsNaN(f) {
			continue
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no numeric values to plot", fn)
	}
	return out, nil
}

func plotLabels(fn string, v starlark.Value) ([]string, error) {
	cells, err := ColumnCells(v, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	out := make([]string, len(cells))
	for i, c := range cells {
		switch val := c.(type) {
		case string:
			out[i] = val
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprintf("%v", val)
		}
	}
	return out, nil
}

// Render draws every recorded spec to PNG. Specs that fail to render are
// skipped; plotting is best-effort output, not part of script success.
func (p *PlotCollector) Render() [][]byte {
	var images [][]byte
	for _, spec := range p.specs {
		png, err := renderPlot(spec)
		if err != nil {
			continue
		}
		images = append(images, png)
	}
	return images
}

func renderPlot(spec PlotSpec) ([]byte, error) {
	var buf bytes.Buffer
	switch spec.Kind {
	case PlotHistogram:
		return renderBars(spec.Title, histogramBars(spec.X, spec.Bins))
	case PlotBar:
		bars := make([]chart.Value, len(spec.Y))
		for i, y := range spec.Y {
			bars[i] = chart.Value{Value: y, Label: spec.Labels[i]}
		}
		return renderBars(spec.Title, bars)
	case PlotScatter, PlotLine:
		style := chart.Style{}
		if spec.Kind == PlotScatter {
			style = chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    4,
			}
		}
		c := chart.Chart{
			Title:  spec.Title,
			Width:  640,
			Height: 480,
			Series: []chart.Series{
				chart.ContinuousSeries{
					Style:   style,
					XValues: spec.X,
					YValues: spec.Y,
				},
			},
		}
		if err := c.Render(chart.PNG, &buf); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown plot kind %q", spec.Kind)
	}
	return buf.Bytes(), nil
}

// renderBars draws a bar chart with an explicit y-axis range. go-chart
// refuses a zero-width data range, which equal bar heights would produce.
func renderBars(title string, bars []chart.Value) ([]byte, error) {
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		if b.Value < lo {
			lo = b.Value
		}
		if b.Value > hi {
			hi = b.Value
		}
	}
	if lo == hi {
		hi = lo + 1
	}
	c := chart.BarChart{
		Title:    title,
		Width:    640,
		Height:   480,
		BarWidth: 40,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: bars,
	}
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// histogramBars bins values into equal-width intervals.
func histogramBars(xs []float64, bins int) []chart.Value {
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if lo == hi {
		return []chart.Value{{Value: float64(len(xs)), Label: fmt.Sprintf("%.3g", lo)}}
	}
	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, x := range xs {
		i := int((x - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}
	bars := make([]chart.Value, bins)
	for i, n := range counts {
		bars[i] = chart.Value{
			Value: float64(n),
			Label: fmt.Sprintf("%.3g", lo+width*(float64(i)+0.5)),
		}
	}
	return bars
}
