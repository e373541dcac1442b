package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"fx-analyzer/internal/interfaces"
	"fx-analyzer/internal/types"
)

const (
	defaultWidth  = 1200
	defaultHeight = 600
)

var (
	closeColor  = drawing.ColorFromHex("1f77b4")
	fastColor   = drawing.ColorFromHex("ff7f0e")
	slowColor   = drawing.ColorFromHex("d62728")
	bandColor   = drawing.ColorFromHex("7f7f7f")
	middleColor = drawing.ColorFromHex("2ca02c")
	rsiColor    = drawing.ColorFromHex("9467bd")
	histColor   = drawing.ColorFromHex("c7c7c7")
)

// Renderer draws the close price with moving averages and Bollinger bands,
// plus RSI and MACD panels, as a single PNG image.
type Renderer struct {
	width  int
	height int
}

var _ interfaces.ChartRenderer = (*Renderer)(nil)

// NewRenderer creates a renderer. Non-positive dimensions use the defaults.
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return &Renderer{width: width, height: height}
}

// Render returns PNG bytes for series and its aligned indicator frame: a
// price panel over RSI and MACD panels, 3:1:1.
func (r *Renderer) Render(series types.PriceSeries, frame types.IndicatorFrame) ([]byte, error) {
	if series.Len() < 2 {
		return nil, fmt.Errorf("chart needs at least 2 bars, got %d", series.Len())
	}
	if frame.Len() != series.Len() {
		return nil, fmt.Errorf("frame has %d rows for %d bars", frame.Len(), series.Len())
	}

	small := r.height / 5
	panels := []gochart.Chart{
		r.pricePanel(series, frame, r.height-2*small),
		r.rsiPanel(series, frame, small),
		r.macdPanel(series, frame, small),
	}

	canvas := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	y := 0
	for _, p := range panels {
		var buf bytes.Buffer
		if err := p.Render(gochart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render chart: %w", err)
		}
		img, err := png.Decode(&buf)
		if err != nil {
			return nil, fmt.Errorf("decode panel: %w", err)
		}
		draw.Draw(canvas, image.Rect(0, y, r.width, y+p.Height), img, img.Bounds().Min, draw.Src)
		y += p.Height
	}

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return out.Bytes(), nil
}

func (r *Renderer) pricePanel(series types.PriceSeries, frame types.IndicatorFrame, height int) gochart.Chart {
	graph := gochart.Chart{
		Width:  r.width,
		Height: height,
		Title:  fmt.Sprintf("%s %s (%s)", series.Instrument, series.Interval, series.Period),
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 10},
		},
		XAxis: gochart.XAxis{ValueFormatter: timeFormatter(series.Interval)},
		YAxis: gochart.YAxis{Name: "Price"},
		Series: drawable(
			line("Close", series, func(i int) *float64 { return types.Ptr(series.Bars[i].Close) }, closeColor, 1.5, nil),
			line("MA Fast", series, func(i int) *float64 { return frame.Rows[i].MAFast }, fastColor, 1, nil),
			line("MA Slow", series, func(i int) *float64 { return frame.Rows[i].MASlow }, slowColor, 1, nil),
			line("BB Upper", series, func(i int) *float64 { return frame.Rows[i].BBUpper }, bandColor, 1, []float64{4, 2}),
			line("BB Middle", series, func(i int) *float64 { return frame.Rows[i].BBMiddle }, middleColor, 1, []float64{2, 2}),
			line("BB Lower", series, func(i int) *float64 { return frame.Rows[i].BBLower }, bandColor, 1, []float64{4, 2}),
		),
	}
	graph.Elements = []gochart.Renderable{gochart.LegendLeft(&graph)}
	return graph
}

// rsiPanel always carries the 30/70 guides, so it renders even before RSI
// has any values.
func (r *Renderer) rsiPanel(series types.PriceSeries, frame types.IndicatorFrame, height int) gochart.Chart {
	return gochart.Chart{
		Width:      r.width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 10, Left: 20, Right: 20, Bottom: 10}},
		XAxis:      gochart.XAxis{ValueFormatter: timeFormatter(series.Interval)},
		YAxis: gochart.YAxis{
			Name:  "RSI",
			Range: &gochart.ContinuousRange{Min: 0, Max: 100},
		},
		Series: drawable(
			line("RSI", series, func(i int) *float64 { return frame.Rows[i].RSI }, rsiColor, 1.5, nil),
			level("Overbought", series, 70, slowColor),
			level("Oversold", series, 30, middleColor),
		),
	}
}

func (r *Renderer) macdPanel(series types.PriceSeries, frame types.IndicatorFrame, height int) gochart.Chart {
	graph := gochart.Chart{
		Width:      r.width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 10, Left: 20, Right: 20, Bottom: 10}},
		XAxis:      gochart.XAxis{ValueFormatter: timeFormatter(series.Interval)},
		YAxis:      gochart.YAxis{Name: "MACD"},
		Series: drawable(
			level("Zero", series, 0, bandColor),
			line("Histogram", series, func(i int) *float64 { return frame.Rows[i].MACDHistogram }, histColor, 1, nil),
			line("MACD", series, func(i int) *float64 { return frame.Rows[i].MACD }, closeColor, 1.5, nil),
			line("Signal", series, func(i int) *float64 { return frame.Rows[i].MACDSignal }, slowColor, 1.5, nil),
		),
	}
	// zero line alone has no y extent
	if len(graph.Series) == 1 {
		graph.YAxis.Range = &gochart.ContinuousRange{Min: -1, Max: 1}
	}
	return graph
}

// drawable drops series go-chart would reject for having fewer than two points.
func drawable(plots ...gochart.Series) []gochart.Series {
	out := plots[:0]
	for _, p := range plots {
		if ts, ok := p.(gochart.TimeSeries); ok && len(ts.XValues) < 2 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// level is a horizontal guide across the whole series.
func level(name string, series types.PriceSeries, v float64, color drawing.Color) gochart.Series {
	first, last := series.Bars[0].Time, series.Bars[series.Len()-1].Time
	return gochart.TimeSeries{
		Name:    name,
		Style:   gochart.Style{StrokeColor: color, StrokeWidth: 1, StrokeDashArray: []float64{4, 2}},
		XValues: []time.Time{first, last},
		YValues: []float64{v, v},
	}
}

// line builds a time series from the non-nil values produced by value.
func line(name string, series types.PriceSeries, value func(int) *float64, color drawing.Color, width float64, dash []float64) gochart.Series {
	ts := gochart.TimeSeries{
		Name: name,
		Style: gochart.Style{
			StrokeColor:     color,
			StrokeWidth:     width,
			StrokeDashArray: dash,
		},
	}
	for i, b := range series.Bars {
		v := value(i)
		if v == nil {
			continue
		}
		ts.XValues = append(ts.XValues, b.Time)
		ts.YValues = append(ts.YValues, *v)
	}
	return ts
}

func timeFormatter(interval string) gochart.ValueFormatter {
	layout := "01-02 15:04"
	switch interval {
	case "1d", "5d", "1wk", "1mo":
		layout = "2006-01-02"
	}
	return func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return time.Unix(0, int64(f)).UTC().Format(layout)
		}
		return ""
	}
}
