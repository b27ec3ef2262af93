package cmd

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/zalepa/mortviz/focus"
	"github.com/zalepa/mortviz/report"
)

// Tree implements the "tree" subcommand: a drill-down breakdown along one or
// two dimensions.
func Tree(args []string) {
	fs := flag.NewFlagSet("tree", flag.ExitOnError)
	df := addDataFlags(fs, true)
	dims := fs.String("dims", "cause", "one or two comma-separated dimensions")
	focusKey := fs.String("focus", "", "narrow to a first-level group (e.g. Other)")
	sel := fs.String("select", "", "slash-separated path of the node to highlight")
	maxSegments := fs.Int("max", 10, "largest groups kept per level before folding into Other")
	noOther := fs.Bool("no-other", false, "keep every group instead of folding the tail")
	pdfOut := fs.String("pdf", "", "output PDF file path (omit for terminal output)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mortviz tree [flags]

Break totals down by up to two dimensions.

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  mortviz tree --dims cause --period 2019
  mortviz tree --dims sex,cause --focus Other
  mortviz tree --preset state --dims state,cause --max 5 --pdf states.pdf
`)
	}
	fs.Parse(reorderArgs(args))

	records, fm := df.mustLoad()
	active, err := lookupDims(fm, *dims)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --dims: %v\n", err)
		os.Exit(1)
	}
	if len(active) > focus.MaxDimensions {
		fmt.Fprintf(os.Stderr, "invalid --dims: at most %d dimensions\n", focus.MaxDimensions)
		os.Exit(1)
	}

	var st focus.State
	for _, d := range active {
		st = st.ToggleDimension(d)
	}
	opts := aggregateOptions(*maxSegments, *noOther)
	scoped := df.scoped(records)

	root, st, err := st.Aggregate(scoped, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *focusKey != "" {
		node, ok := root.Child(*focusKey)
		if !ok {
			fmt.Fprintf(os.Stderr, "no first-level group %q\n", *focusKey)
			os.Exit(1)
		}
		if st, err = st.ToggleFocus(node); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if root, st, err = st.Aggregate(scoped, opts); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	if *sel != "" {
		if st, err = st.Select(root, splitPath(*sel)); err != nil {
			fmt.Fprintf(os.Stderr, "invalid --select %q: %v\n", *sel, err)
			os.Exit(1)
		}
	}

	title := "Deaths by " + strings.Join(st.DimensionNames(), " and ") + " - " + df.periodLabel()
	if keys, ok := st.Focus(); ok {
		title += " (focus: " + strings.Join(keys, ", ") + ")"
	}
	bc := st.Breadcrumb(root)

	if *pdfOut != "" {
		if err := report.TreePDF(*pdfOut, title, root, bc); err != nil {
			fmt.Fprintf(os.Stderr, "error writing PDF: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *pdfOut)
		return
	}
	renderTree(os.Stdout, title, root, bc)
}
