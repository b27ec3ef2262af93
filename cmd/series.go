package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/zalepa/mortviz/aggregate"
	"github.com/zalepa/mortviz/focus"
	"github.com/zalepa/mortviz/report"
)

// Series implements the "series" subcommand: totals per period, optionally
// split by one dimension.
func Series(args []string) {
	fs := flag.NewFlagSet("series", flag.ExitOnError)
	df := addDataFlags(fs, false)
	dim := fs.String("dim", "", "dimension to split each period by (omit for totals)")
	focusKey := fs.String("focus", "", "restrict to one key of --dim (e.g. Other)")
	maxSegments := fs.Int("max", 6, "largest keys kept before folding into Other")
	noOther := fs.Bool("no-other", false, "keep every key instead of folding the tail")
	pdfOut := fs.String("pdf", "", "output PDF file path (omit for terminal output)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mortviz series [flags]

Show totals over time. Without --dim the totals are drawn as a chart;
with --dim each key gets a sparkline row. The series always spans every
period in the dataset.

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  mortviz series
  mortviz series --dim place
  mortviz series --dim cause --max 4 --pdf causes.pdf
`)
	}
	fs.Parse(reorderArgs(args))

	records, fm := df.mustLoad()
	var st focus.State
	if *dim != "" {
		d, ok := fm.Dimension(*dim)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown --dim %q\n", *dim)
			os.Exit(1)
		}
		st = st.ToggleDimension(d)
	}
	opts := aggregateOptions(*maxSegments, *noOther)

	if *focusKey != "" {
		root, next, err := st.Aggregate(records, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		node, ok := root.Child(*focusKey)
		if !ok {
			fmt.Fprintf(os.Stderr, "no key %q in --dim %s\n", *focusKey, *dim)
			os.Exit(1)
		}
		if st, err = next.ToggleFocus(node); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	ts, _, err := st.Series(records, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(ts.Periods) == 0 {
		fmt.Fprintf(os.Stderr, "no dated records in dataset\n")
		os.Exit(1)
	}

	title := "Deaths by period"
	if *dim != "" {
		title += " and " + *dim
	}

	if *pdfOut != "" {
		if err := report.SeriesPDF(*pdfOut, title, ts); err != nil {
			fmt.Fprintf(os.Stderr, "error writing PDF: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *pdfOut)
		return
	}

	renderSeries(os.Stdout, title, ts, *dim != "")
}

// renderSeries draws a split series as a sparkline table and an unsplit one
// as a chart of its totals.
func renderSeries(w io.Writer, title string, ts aggregate.TimeSeries, split bool) {
	if split {
		renderSeriesTable(w, title, ts)
		return
	}
	renderChart(w, title, totalPoints(ts))
}

func totalPoints(ts aggregate.TimeSeries) []dataPoint {
	pts := make([]dataPoint, len(ts.Periods))
	for i, p := range ts.Periods {
		pts[i] = dataPoint{label: strconv.Itoa(p), value: ts.Total(p)}
	}
	return pts
}
