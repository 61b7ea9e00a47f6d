// Package plot renders trace metrics as terminal charts.
package plot

import (
	"fmt"
	"math"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	"github.com/charmbracelet/lipgloss"
)

const (
	minWidth  = 20
	minHeight = 4

	NoData = "no data"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	noDataStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Background(lipgloss.Color("39"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Background(lipgloss.Color("196"))
)

// Series is a sequence of (x, y) points drawn as a line.
type Series struct {
	Title  string
	XLabel string
	YLabel string
	X      []float64
	Y      []float64
}

func (s Series) Len() int {
	return min(len(s.X), len(s.Y))
}

// Bar is one labelled value of a bar chart.
type Bar struct {
	Label string
	Value float64
}

// Bars is a titled group of bars.
type Bars struct {
	Title string
	Unit  string
	Items []Bar
}

// LineChart draws s in braille within a width x height box. An empty
// series renders the title and a single "no data" line.
func LineChart(s Series, width, height int) string {
	width, height = clamp(width, height)
	n := s.Len()
	if n == 0 {
		return empty(s.Title)
	}

	minX, maxX := bounds(s.X[:n])
	minY, maxY := bounds(s.Y[:n])
	if minY > 0 {
		minY = 0
	}
	maxX = widen(minX, maxX)
	maxY = widen(minY, maxY)

	lc := linechart.New(width, height, minX, maxX, minY, maxY,
		linechart.WithXYSteps(4, 2),
	)
	lc.DrawXYAxisAndLabel()
	if n == 1 {
		p := canvas.Float64Point{X: s.X[0], Y: s.Y[0]}
		lc.DrawBrailleLine(p, p)
	}
	for i := 1; i < n; i++ {
		lc.DrawBrailleLine(
			canvas.Float64Point{X: s.X[i-1], Y: s.Y[i-1]},
			canvas.Float64Point{X: s.X[i], Y: s.Y[i]},
		)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(s.Title))
	b.WriteByte('\n')
	b.WriteString(lc.View())
	if s.XLabel != "" || s.YLabel != "" {
		b.WriteByte('\n')
		b.WriteString(labelStyle.Render(fmt.Sprintf("x: %s  y: %s", s.XLabel, s.YLabel)))
	}
	return b.String()
}

// BarChart draws one bar per item with its label and value listed beneath.
func BarChart(bars Bars, width, height int) string {
	width, height = clamp(width, height)
	if len(bars.Items) == 0 {
		return empty(bars.Title)
	}

	gap := 1
	barWidth := max(1, (width-gap*(len(bars.Items)-1))/len(bars.Items))
	if barWidth > 8 {
		barWidth = 8
	}
	bc := barchart.New(width, height,
		barchart.WithBarGap(gap),
		barchart.WithBarWidth(barWidth),
		barchart.WithNoAxis(),
	)
	for _, item := range bars.Items {
		bc.Push(barchart.BarData{
			Label: item.Label,
			Values: []barchart.BarValue{
				{Name: item.Label, Value: math.Max(item.Value, 0), Style: barStyle},
			},
		})
	}
	bc.Draw()

	var b strings.Builder
	b.WriteString(titleStyle.Render(bars.Title))
	b.WriteByte('\n')
	b.WriteString(bc.View())
	b.WriteByte('\n')
	legend := make([]string, 0, len(bars.Items))
	for _, item := range bars.Items {
		legend = append(legend, fmt.Sprintf("%s=%s%s", item.Label, formatValue(item.Value), bars.Unit))
	}
	b.WriteString(labelStyle.Render(strings.Join(legend, "  ")))
	return b.String()
}

// LossChart buckets lost packet sizes by time so bursts show up as tall
// bars. times and sizes are parallel.
func LossChart(title string, times, sizes []float64, width, height int) string {
	width, height = clamp(width, height)
	n := min(len(times), len(sizes))
	if n == 0 {
		return empty(title)
	}

	buckets := max(1, min(width/2, 24))
	lo, hi := bounds(times[:n])
	span := widen(lo, hi) - lo
	totals := make([]float64, buckets)
	for i := 0; i < n; i++ {
		idx := int((times[i] - lo) / span * float64(buckets))
		if idx >= buckets {
			idx = buckets - 1
		}
		if idx < 0 {
			idx = 0
		}
		totals[idx] += sizes[i]
	}

	step := span / float64(buckets)
	bc := barchart.New(width, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	for _, v := range totals {
		bc.Push(barchart.BarData{
			Values: []barchart.BarValue{{Name: "lost", Value: v, Style: lossStyle}},
		})
	}
	bc.Draw()

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteByte('\n')
	b.WriteString(bc.View())
	b.WriteByte('\n')
	b.WriteString(labelStyle.Render(fmt.Sprintf("%d losses, %.3fms to %.3fms, %.3fms per bar",
		n, lo, lo+span, step)))
	return b.String()
}

func empty(title string) string {
	if title == "" {
		return noDataStyle.Render(NoData)
	}
	return titleStyle.Render(title) + "\n" + noDataStyle.Render(NoData)
}

func clamp(width, height int) (int, int) {
	return max(width, minWidth), max(height, minHeight)
}

func bounds(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// widen keeps a degenerate range from collapsing the chart scale.
func widen(lo, hi float64) float64 {
	if hi > lo {
		return hi
	}
	if lo == 0 {
		return 1
	}
	return lo + math.Abs(lo)*0.1
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
