package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/zalepa/mortviz/aggregate"
	"github.com/zalepa/mortviz/bins"
	"github.com/zalepa/mortviz/focus"
)

var ErrNothingToPlot = errors.New("nothing to plot")

// layer is one stack of a stacked bar chart.
type layer struct {
	name   string
	values []float64
}

// SeriesPDF writes a stacked bar chart with one bar per period and one stack
// layer per series key.
func SeriesPDF(path, title string, ts aggregate.TimeSeries) error {
	if len(ts.Periods) == 0 {
		return ErrNothingToPlot
	}
	labels := make([]string, len(ts.Periods))
	for i, p := range ts.Periods {
		labels[i] = strconv.Itoa(p)
	}
	var layers []layer
	for _, k := range ts.Keys {
		layers = append(layers, layer{name: k, values: ts.Column(k)})
	}
	if len(layers) == 0 {
		totals := make([]float64, len(ts.Periods))
		for i, p := range ts.Periods {
			totals[i] = ts.Total(p)
		}
		layers = append(layers, layer{name: aggregate.RootKey, values: totals})
	}

	first, last := labels[0], labels[len(labels)-1]
	sub := fmt.Sprintf("%s to %s (%d periods)", first, last, len(labels))

	c := newCanvas()
	if err := drawStackedBars(c, title, sub, labels, layers); err != nil {
		return err
	}
	return writeCanvas(c, path)
}

// TreePDF writes the first level of root as bars, stacked by second-level
// keys when present, with the breadcrumb as caption. A second section lists
// every node with its share of root.
func TreePDF(path, title string, root aggregate.Node, bc focus.Breadcrumb) error {
	c := newCanvas()
	caption := breadcrumbCaption(bc)

	if len(root.Children) > 0 {
		labels := make([]string, len(root.Children))
		for i, ch := range root.Children {
			labels[i] = ch.Key
		}
		if err := drawStackedBars(c, title, caption, labels, treeLayers(root)); err != nil {
			return err
		}
		c.NextPage()
	}

	t := table{
		title:    title + " - shares",
		subtitle: fmt.Sprintf("%s %s", aggregate.RootKey, FormatNum(root.Value)),
		header:   []string{"Group", "Value", "Share"},
		colX:     []vg.Length{0, 4.2 * vg.Inch, 5.6 * vg.Inch},
	}
	if len(root.Children) == 0 {
		t.subtitle = caption
	}
	aggregate.Walk(root, func(p []string, n aggregate.Node) {
		name := n.Key
		if len(p) > 0 {
			name = strings.Repeat("   ", len(p)-1) + n.Key
		}
		t.rows = append(t.rows, []string{name, FormatNum(n.Value), focus.ShareOf(n, root.Value).String()})
	})
	t.draw(c)
	return writeCanvas(c, path)
}

// treeLayers stacks the first level of root by its second-level keys. Keys
// are ordered by their total across the first level, largest first.
// Unexpanded first-level groups, such as a folded Other, get a layer of
// their own after the second-level keys.
func treeLayers(root aggregate.Node) []layer {
	totals := make(map[string]float64)
	for _, ch := range root.Children {
		for _, gc := range ch.Children {
			totals[gc.Key] += gc.Value
		}
	}
	if len(totals) == 0 {
		vals := make([]float64, len(root.Children))
		for i, ch := range root.Children {
			vals[i] = ch.Value
		}
		return []layer{{name: root.Key, values: vals}}
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if totals[keys[i]] != totals[keys[j]] {
			return totals[keys[i]] > totals[keys[j]]
		}
		return keys[i] < keys[j]
	})

	layers := make([]layer, 0, len(keys))
	for _, k := range keys {
		vals := make([]float64, len(root.Children))
		for j, ch := range root.Children {
			if gc, ok := ch.Child(k); ok {
				vals[j] = gc.Value
			}
		}
		layers = append(layers, layer{name: k, values: vals})
	}
	for j, ch := range root.Children {
		if !ch.IsLeaf() {
			continue
		}
		vals := make([]float64, len(root.Children))
		vals[j] = ch.Value
		layers = append(layers, layer{name: ch.Key, values: vals})
	}
	return layers
}

func breadcrumbCaption(bc focus.Breadcrumb) string {
	path := append([]string{aggregate.RootKey}, bc.Keys...)
	return fmt.Sprintf("%s  %s (%s)", strings.Join(path, " > "), FormatNum(bc.Value), bc.Label)
}

func drawStackedBars(c *vgpdf.Canvas, title, subtitle string, labels []string, layers []layer) error {
	if len(labels) == 0 || len(layers) == 0 {
		return ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = pdfText(title)
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.BackgroundColor = color.White
	p.Legend.Top = true
	p.Legend.Left = false

	usableW := pageWidth - 2*pdfMargin
	width := usableW / vg.Length(len(labels)) * 0.6
	if width < vg.Points(1) {
		width = vg.Points(1)
	}
	colors := segmentColors(len(layers))

	var below *plotter.BarChart
	for i, l := range layers {
		vals := make(plotter.Values, len(l.values))
		for j, v := range l.values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			vals[j] = v
		}
		bar, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return err
		}
		bar.Color = colors[i]
		bar.LineStyle.Width = 0
		if below != nil {
			bar.StackOn(below)
		}
		p.Add(bar)
		p.Legend.Add(pdfText(l.name), bar)
		below = bar
	}
	p.Add(plotter.NewGrid())

	p.X.Tick.Marker = labelTicks(labels)
	p.X.Min = -0.5
	p.X.Max = float64(len(labels)) - 0.5
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Y.Min = 0
	p.Y.Tick.Marker = numTicks{}

	area := pageArea(c)
	fillText(area, subtitle, vg.Points(10), area.Min.X, area.Min.Y, labelGray)
	chart := draw.Crop(area, 0, 0, vg.Points(16), 0)
	p.Draw(chart)
	return nil
}

// ChoroplethPDF writes the bucket legend and one row per key with its value
// and bucket. Keys whose value has no bucket are listed as unavailable.
func ChoroplethPDF(path, title string, keys []string, values []float64, b bins.Buckets) error {
	if len(keys) != len(values) {
		return fmt.Errorf("%d keys for %d values", len(keys), len(values))
	}
	shades := shadeColors(b.Count())

	c := newCanvas()
	area := pageArea(c)
	yTop := area.Max.Y
	fillText(area, title, vg.Points(14), area.Min.X, yTop-vg.Points(14), color.Black)
	fillText(area, fmt.Sprintf("%d buckets", b.Count()), vg.Points(10), area.Min.X, yTop-0.35*vg.Inch, labelGray)
	y := yTop - 0.7*vg.Inch
	for i := 0; i < b.Count(); i++ {
		lo, hi := b.Range(i)
		fillRect(area, area.Min.X, y, vg.Points(18), vg.Points(10), shades[i])
		fillText(area, fmt.Sprintf("%s to %s", FormatNum(round1(lo)), FormatNum(round1(hi))), vg.Points(9), area.Min.X+vg.Points(26), y+vg.Points(1), color.Black)
		y -= vg.Points(14)
	}
	c.NextPage()

	t := table{
		title:    title,
		subtitle: "Values by key",
		header:   []string{"Key", "Value", "Bucket"},
		colX:     []vg.Length{0, 4.2 * vg.Inch, 5.6 * vg.Inch},
	}
	for i, k := range keys {
		idx, ok := b.Index(values[i])
		if !ok {
			t.rows = append(t.rows, []string{k, focus.Undefined, focus.Undefined})
			t.swatches = append(t.swatches, nil)
			continue
		}
		t.rows = append(t.rows, []string{k, FormatNum(round1(values[i])), strconv.Itoa(idx + 1)})
		t.swatches = append(t.swatches, shades[idx])
	}
	t.draw(c)
	return writeCanvas(c, path)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
