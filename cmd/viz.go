package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/zalepa/mortviz/aggregate"
	"github.com/zalepa/mortviz/bins"
	"github.com/zalepa/mortviz/focus"
	"github.com/zalepa/mortviz/report"
)

type dataPoint struct {
	label string
	value float64
}

const barWidth = 30

// renderTree prints every node indented by depth with its value, its share of
// the root and a proportional bar. The selected node is marked with '>'.
func renderTree(w io.Writer, title string, root aggregate.Node, bc focus.Breadcrumb) {
	type line struct {
		path []string
		name string
		node aggregate.Node
	}
	var lines []line
	maxName := 10
	aggregate.Walk(root, func(p []string, n aggregate.Node) {
		name := strings.Repeat("  ", len(p)) + n.Key
		if len(name) > maxName {
			maxName = len(name)
		}
		lines = append(lines, line{path: p, name: name, node: n})
	})

	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "Selected: %s  %s (%s)\n\n", strings.Join(append([]string{aggregate.RootKey}, bc.Keys...), " > "), report.FormatNum(bc.Value), bc.Label)

	rowFmt := fmt.Sprintf("%%s %%-%ds  %%12s  %%7s  %%s\n", maxName)
	fmt.Fprintf(w, rowFmt, " ", "Group", "Value", "Share", "")
	fmt.Fprintln(w, strings.Repeat("─", maxName+2+12+2+7+2+barWidth+2))
	for _, l := range lines {
		mark := " "
		if samePath(l.path, bc.Keys) {
			mark = ">"
		}
		share := focus.ShareOf(l.node, root.Value)
		fmt.Fprintf(w, rowFmt, mark, l.name, report.FormatNum(l.node.Value), share.String(), bar(share))
	}
}

func samePath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// bar draws a share as a horizontal run of blocks. Undefined shares draw
// nothing.
func bar(s focus.Share) string {
	if !s.Defined {
		return ""
	}
	n := int(math.Round(s.Ratio * barWidth))
	if n < 0 {
		n = 0
	}
	if n > barWidth {
		n = barWidth
	}
	return strings.Repeat("█", n)
}

// renderSeriesTable prints one sparkline row per series key plus a total row.
func renderSeriesTable(w io.Writer, title string, ts aggregate.TimeSeries) {
	nPeriods := len(ts.Periods)
	maxName := len("TOTAL")
	for _, k := range ts.Keys {
		if len(k) > maxName {
			maxName = len(k)
		}
	}
	if maxName < 10 {
		maxName = 10
	}

	dateRange := ""
	if nPeriods > 0 {
		dateRange = fmt.Sprintf("%d to %d (%d periods)", ts.Periods[0], ts.Periods[nPeriods-1], nPeriods)
	}

	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "Trend: %s\n\n", dateRange)

	rowFmt := fmt.Sprintf("%%-%ds  %%10s   %%s\n", maxName)
	fmt.Fprintf(w, rowFmt, "Key", "Latest", "Trend")
	fmt.Fprintln(w, strings.Repeat("─", maxName+2+10+3+nPeriods))

	for _, k := range ts.Keys {
		vals := ts.Column(k)
		fmt.Fprintf(w, rowFmt, k, report.FormatNum(lastValue(vals)), sparkline(vals))
	}

	totals := make([]float64, nPeriods)
	for i, p := range ts.Periods {
		totals[i] = ts.Total(p)
	}
	fmt.Fprintln(w, strings.Repeat("─", maxName+2+10+3+nPeriods))
	fmt.Fprintf(w, rowFmt, "TOTAL", report.FormatNum(lastValue(totals)), sparkline(totals))
}

func lastValue(vals []float64) float64 {
	for i := len(vals) - 1; i >= 0; i-- {
		if !math.IsNaN(vals[i]) {
			return vals[i]
		}
	}
	return math.NaN()
}

func sparkline(values []float64) string {
	blocks := []rune("▁▂▃▄▅▆▇█")
	n := len(blocks)

	// Find min/max ignoring NaN.
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if math.IsInf(min, 1) {
		return strings.Repeat(" ", len(values))
	}

	spread := max - min
	var sb strings.Builder
	for _, v := range values {
		if math.IsNaN(v) {
			sb.WriteRune(' ')
			continue
		}
		idx := 0
		if spread > 0 {
			idx = int((v - min) / spread * float64(n-1))
			if idx >= n {
				idx = n - 1
			}
		} else {
			idx = n / 2
		}
		sb.WriteRune(blocks[idx])
	}
	return sb.String()
}

// renderChart draws a single series as a dot chart with interpolated
// connectors.
func renderChart(w io.Writer, title string, points []dataPoint) {
	var filtered []dataPoint
	for _, p := range points {
		if !math.IsNaN(p.value) {
			filtered = append(filtered, p)
		}
	}
	fmt.Fprintln(w, title)
	if len(filtered) == 0 {
		fmt.Fprintln(w, "(no data)")
		return
	}
	points = filtered
	fmt.Fprintln(w)

	height := 15
	nPoints := len(points)

	// Determine column width: try to fit in ~100 chars for the data area.
	labelWidth := 10
	available := 100 - labelWidth
	colWidth := available / nPoints
	if colWidth > 8 {
		colWidth = 8
	}
	if colWidth < 3 {
		colWidth = 3
	}

	minVal, maxVal := points[0].value, points[0].value
	for _, p := range points {
		minVal = math.Min(minVal, p.value)
		maxVal = math.Max(maxVal, p.value)
	}
	valRange := maxVal - minVal
	if valRange == 0 {
		valRange = 1
		minVal -= 0.5
		maxVal += 0.5
	}

	// Map each point to a row (0 = bottom, height-1 = top).
	pointRows := make([]int, nPoints)
	for i, p := range points {
		pointRows[i] = clampRow(int(math.Round((p.value-minVal)/valRange*float64(height-1))), height)
	}

	totalWidth := nPoints * colWidth
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", totalWidth))
	}

	for i := 0; i < nPoints; i++ {
		col := i*colWidth + colWidth/2
		grid[pointRows[i]][col] = '●'

		if i < nPoints-1 {
			endCol := (i+1)*colWidth + colWidth/2
			colSpan := endCol - col
			for c := col + 1; c < endCol; c++ {
				t := float64(c-col) / float64(colSpan)
				r := clampRow(int(math.Round(float64(pointRows[i])+t*float64(pointRows[i+1]-pointRows[i]))), height)
				if grid[r][c] == ' ' {
					grid[r][c] = '·'
				}
			}
		}
	}

	// Y-axis labels: 5 evenly spaced.
	yLabels := make(map[int]string)
	for i := 0; i < 5; i++ {
		row := int(math.Round(float64(i) / 4.0 * float64(height-1)))
		yLabels[row] = report.FormatCompact(minVal + float64(row)/float64(height-1)*valRange)
	}

	for r := height - 1; r >= 0; r-- {
		fmt.Fprintf(w, "%8s │%s\n", yLabels[r], string(grid[r]))
	}
	fmt.Fprintf(w, "%8s └%s\n", "", strings.Repeat("─", totalWidth))

	labelEvery := 1
	if colWidth < 8 {
		labelEvery = (8 + colWidth - 1) / colWidth
	}
	xLine := []byte(strings.Repeat(" ", totalWidth))
	for i := 0; i < nPoints; i += labelEvery {
		label := points[i].label
		pos := i*colWidth + colWidth/2 - len(label)/2
		if pos < 0 {
			pos = 0
		}
		for j := 0; j < len(label) && pos+j < totalWidth; j++ {
			xLine[pos+j] = label[j]
		}
	}
	fmt.Fprintf(w, "%8s  %s\n", "", string(xLine))
}

func clampRow(r, height int) int {
	if r < 0 {
		return 0
	}
	if r >= height {
		return height - 1
	}
	return r
}

var shades = []rune("░▒▓█")

// shade picks a block character for bucket i of n.
func shade(i, n int) rune {
	if n <= 1 {
		return shades[len(shades)-1]
	}
	return shades[i*(len(shades)-1)/(n-1)]
}

// renderMap prints the bucket legend followed by every key with its value
// and bucket. Keys without a usable value show the undefined marker.
func renderMap(w io.Writer, title string, keys []string, values []float64, b bins.Buckets) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w)
	for i := 0; i < b.Count(); i++ {
		lo, hi := b.Range(i)
		fmt.Fprintf(w, "  %c%c %2d  %s to %s\n", shade(i, b.Count()), shade(i, b.Count()), i+1,
			report.FormatNum(math.Round(lo*10)/10), report.FormatNum(math.Round(hi*10)/10))
	}
	fmt.Fprintln(w)

	maxName := 10
	for _, k := range keys {
		if len(k) > maxName {
			maxName = len(k)
		}
	}
	rowFmt := fmt.Sprintf("%%-%ds  %%12s  %%6s  %%s\n", maxName)
	fmt.Fprintf(w, rowFmt, "Key", "Value", "Bucket", "")
	fmt.Fprintln(w, strings.Repeat("─", maxName+2+12+2+6+4))
	for i, k := range keys {
		idx, ok := b.Index(values[i])
		if !ok {
			fmt.Fprintf(w, rowFmt, k, focus.Undefined, focus.Undefined, "")
			continue
		}
		cell := string([]rune{shade(idx, b.Count()), shade(idx, b.Count())})
		fmt.Fprintf(w, rowFmt, k, report.FormatNum(math.Round(values[i]*10)/10), strconv.Itoa(idx+1), cell)
	}
}
