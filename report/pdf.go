// Package report renders aggregation results as multi-page PDF charts and
// reads rendered reports back for inspection.
package report

import (
	"image/color"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
)

const (
	pageWidth  = 8.5 * vg.Inch
	pageHeight = 11 * vg.Inch
	pdfMargin  = 0.75 * vg.Inch
)

var (
	chartBlue = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	ruleGray  = color.Gray{Y: 180}
	labelGray = color.Gray{Y: 100}
)

func newCanvas() *vgpdf.Canvas {
	return vgpdf.New(pageWidth, pageHeight)
}

func pageArea(c *vgpdf.Canvas) draw.Canvas {
	return draw.Crop(draw.New(c), pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
}

func writeCanvas(c *vgpdf.Canvas, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// segmentColors returns n distinguishable colors, cycling the 12-color
// Paired palette when more are needed.
func segmentColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	pal, err := brewer.GetPalette(brewer.TypeQualitative, "Paired", 12)
	if err != nil {
		out := make([]color.Color, n)
		for i := range out {
			out[i] = chartBlue
		}
		return out
	}
	base := pal.Colors()
	out := make([]color.Color, n)
	for i := range out {
		out[i] = base[i%len(base)]
	}
	return out
}

// shadeColors returns n sequential Blues, light to dark.
func shadeColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	k := n
	if k < 3 {
		k = 3
	}
	if k > 9 {
		k = 9
	}
	pal, err := brewer.GetPalette(brewer.TypeSequential, "Blues", k)
	if err != nil {
		return segmentColors(n)
	}
	base := pal.Colors()
	out := make([]color.Color, n)
	for i := range out {
		j := 0
		if n > 1 {
			j = int(math.Round(float64(i) * float64(len(base)-1) / float64(n-1)))
		}
		out[i] = base[j]
	}
	return out
}

// labelTicks labels integer positions, thinning labels to about a dozen.
type labelTicks []string

func (lt labelTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	n := len(lt)
	if n == 0 {
		return ticks
	}

	step := 1
	if n > 12 {
		step = (n + 11) / 12
	}

	for i := 0; i < n; i++ {
		t := plot.Tick{Value: float64(i)}
		if i%step == 0 {
			t.Label = lt[i]
		}
		ticks = append(ticks, t)
	}
	return ticks
}

type numTicks struct{}

func (numTicks) Ticks(min, max float64) []plot.Tick {
	t := plot.DefaultTicks{}
	ticks := t.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = FormatCompact(ticks[i].Value)
		}
	}
	return ticks
}

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, pdfText(txt))
}

func strokeHLine(c draw.Canvas, x0, x1, y vg.Length, clr color.Color) {
	c.StrokeLine2(draw.LineStyle{
		Color: clr,
		Width: vg.Points(0.5),
	}, x0, y, x1, y)
}

func fillRect(c draw.Canvas, x, y, w, h vg.Length, clr color.Color) {
	c.FillPolygon(clr, []vg.Point{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
	})
}

const tableRowHeight = 0.28 * vg.Inch

// table is a paginated text table. Swatches, when set, draw a small color
// square ahead of the first column of each row.
type table struct {
	title    string
	subtitle string
	header   []string
	colX     []vg.Length
	rows     [][]string
	swatches []color.Color
}

// draw renders t starting on the current page of c, continuing onto new
// pages as needed.
func (t table) draw(c *vgpdf.Canvas) {
	usableW := pageWidth - 2*pdfMargin
	rowIdx := 0
	for page := 0; page == 0 || rowIdx < len(t.rows); page++ {
		if page > 0 {
			c.NextPage()
		}
		area := pageArea(c)

		yTop := area.Max.Y
		if page == 0 {
			fillText(area, t.title, vg.Points(14), area.Min.X, yTop-vg.Points(14), color.Black)
			fillText(area, t.subtitle, vg.Points(10), area.Min.X, yTop-0.35*vg.Inch, labelGray)
			yTop -= 0.6 * vg.Inch
		} else {
			fillText(area, t.title+" (continued)", vg.Points(10), area.Min.X, yTop-vg.Points(8), labelGray)
			yTop -= 0.35 * vg.Inch
		}
		for i, h := range t.header {
			fillText(area, h, vg.Points(10), area.Min.X+t.colX[i], yTop, color.Gray{Y: 80})
		}
		sepY := yTop - vg.Points(6)
		strokeHLine(area, area.Min.X, area.Min.X+usableW, sepY, ruleGray)
		yTop = sepY - vg.Points(4)

		perPage := int((yTop - area.Min.Y) / tableRowHeight)
		for drawn := 0; drawn < perPage && rowIdx < len(t.rows); drawn++ {
			y := yTop - vg.Length(drawn)*tableRowHeight - tableRowHeight*0.65
			offset := vg.Length(0)
			if rowIdx < len(t.swatches) && t.swatches[rowIdx] != nil {
				fillRect(area, area.Min.X, y-vg.Points(1), vg.Points(9), vg.Points(9), t.swatches[rowIdx])
				offset = vg.Points(14)
			}
			for i, cell := range t.rows[rowIdx] {
				x := area.Min.X + t.colX[i]
				if i == 0 {
					x += offset
				}
				fillText(area, cell, vg.Points(9), x, y, color.Black)
			}
			rowIdx++
		}
	}
}
