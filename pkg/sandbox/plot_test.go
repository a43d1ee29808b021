package sandbox

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/marinad-syro/inferra/pkg/table"
)

func callPlot(t *testing.T, p *PlotCollector, name string, args ...starlark.Value) error {
	t.Helper()
	fn, err := p.Module().Attr(name)
	require.NoError(t, err)
	thread := &starlark.Thread{Name: "test"}
	_, err = starlark.Call(thread, fn, starlark.Tuple(args), nil)
	return err
}

func floatList(values ...float64) *starlark.List {
	items := make([]starlark.Value, len(values))
	for i, v := range values {
		items[i] = starlark.Float(v)
	}
	return starlark.NewList(items)
}

func TestPlotHistogramRecordsSpec(t *testing.T) {
	p := NewPlotCollector()
	require.NoError(t, callPlot(t, p, "histogram", floatList(1, 2, 2, 3)))

	specs := p.Specs()
	require.Len(t, specs, 1)
	assert.Equal(t, PlotHistogram, specs[0].Kind)
	assert.Equal(t, 10, specs[0].Bins)
	assert.Equal(t, []float64{1, 2, 2, 3}, specs[0].X)
}

func TestPlotHistogramDropsMissingCells(t *testing.T) {
	p := NewPlotCollector()
	col := NewColumn("x", []table.Value{1.0, nil, 3.0})
	require.NoError(t, callPlot(t, p, "histogram", col))

	assert.Equal(t, []float64{1, 3}, p.Specs()[0].X)
}

func TestPlotHistogramNoNumericValues(t *testing.T) {
	p := NewPlotCollector()
	err := callPlot(t, p, "histogram", starlark.NewList(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no numeric values to plot")
}

func TestPlotScatterLengthMismatch(t *testing.T) {
	p := NewPlotCollector()
	err := callPlot(t, p, "scatter", floatList(1, 2, 3), floatList(1, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x has 3 values, y has 2")
}

func TestPlotBarLabelsMustMatchValues(t *testing.T) {
	p := NewPlotCollector()
	labels := starlark.NewList([]starlark.Value{starlark.String("a")})
	err := callPlot(t, p, "bar", labels, floatList(1, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 labels for 2 values")
}

func TestPlotRenderProducesPNGs(t *testing.T) {
	p := NewPlotCollector()
	require.NoError(t, callPlot(t, p, "histogram", floatList(1, 2, 2, 3, 5)))
	require.NoError(t, callPlot(t, p, "line", floatList(1, 2, 3), floatList(2, 4, 6)))

	images := p.Render()
	require.Len(t, images, 2)
	for _, img := range images {
		assert.Equal(t, "\x89PNG", string(img[:4]))
	}
}

func TestPlotRenderUniformBinCounts(t *testing.T) {
	// Every bin holds the same count, so the bar heights span no range at
	// all; rendering must still produce an image.
	png, err := renderPlot(PlotSpec{Kind: PlotHistogram, Bins: 2, X: []float64{1, 2, 3, 4}})
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}

func TestPlotRenderEqualBarValues(t *testing.T) {
	png, err := renderPlot(PlotSpec{
		Kind:   PlotBar,
		Labels: []string{"a", "b"},
		Y:      []float64{3, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}

func TestExecutePlotsEndToEnd(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("score", []table.Value{1.0, 2.0, 3.0, 4.0}))

	code := `plot.histogram(df["score"], bins=2, title="Scores")`
	exec := NewExecutor(Config{Logger: slog.New(slog.DiscardHandler)})
	res, err := exec.Execute(context.Background(), tbl, code)
	require.NoError(t, err)
	require.True(t, res.Success, "error: %s", res.Error)
	require.Len(t, res.Images, 1)
	assert.Equal(t, "\x89PNG", string(res.Images[0][:4]))
}
