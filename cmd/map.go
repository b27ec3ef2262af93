package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/zalepa/mortviz/aggregate"
	"github.com/zalepa/mortviz/bins"
	"github.com/zalepa/mortviz/record"
	"github.com/zalepa/mortviz/report"
)

// Map implements the "map" subcommand: one value per key of a dimension,
// quantized into shading buckets.
func Map(args []string) {
	fs := flag.NewFlagSet("map", flag.ExitOnError)
	df := addDataFlags(fs, true)
	dim := fs.String("dim", "state", "dimension to shade by")
	buckets := fs.Int("buckets", bins.DefaultCount, "number of shading buckets")
	pdfOut := fs.String("pdf", "", "output PDF file path (omit for terminal output)")
	var filters []string
	fs.Func("filter", "keep only rows where dimension=key (repeatable, e.g. --filter sex=Female)", func(v string) error {
		filters = append(filters, v)
		return nil
	})

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mortviz map [flags]

Bucket one value per key for choropleth shading. Counts are summed; rate
columns are re-derived from deaths and population (see "reduce" in the
field map). Filter on the other dimensions to compare like with like.

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  mortviz map --preset state --dim state --period 2020
  mortviz map --preset state --filter sex=Female --filter race=White
  mortviz map --preset state --buckets 5 --pdf map.pdf
`)
	}
	fs.Parse(reorderArgs(args))

	records, fm := df.mustLoad()
	d, ok := fm.Dimension(*dim)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown --dim %q\n", *dim)
		os.Exit(1)
	}

	filter, err := fm.ParseFilter(filters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --filter: %v\n", err)
		os.Exit(1)
	}
	keep := func(r record.Record) bool {
		if *df.period != 0 && (!r.HasPeriod || r.Period != *df.period) {
			return false
		}
		return filter.Match(r)
	}
	keys, values := aggregate.KeyValues(records, d, keep, fm.Reduction())
	b, err := bins.Compute(values, *buckets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --buckets: %v\n", err)
		os.Exit(1)
	}

	title := "Deaths by " + *dim + " - " + df.periodLabel()
	if len(filter) > 0 {
		title += " (" + filter.String() + ")"
	}
	if *pdfOut != "" {
		if err := report.ChoroplethPDF(*pdfOut, title, keys, values, b); err != nil {
			fmt.Fprintf(os.Stderr, "error writing PDF: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *pdfOut)
		return
	}
	renderMap(os.Stdout, title, keys, values, b)
}
