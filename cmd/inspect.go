package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/zalepa/mortviz/report"
)

// Inspect implements the "inspect" subcommand: report the page count and
// content size of rendered PDF reports.
func Inspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mortviz inspect <report.pdf>...\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	failed := false
	for _, path := range fs.Args() {
		info, err := report.Inspect(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("%s: %d pages\n", path, info.Pages)
		for i, n := range info.ContentBytes {
			fmt.Printf("  page %d: %s bytes of content\n", i+1, report.FormatNum(float64(n)))
		}
	}
	if failed {
		os.Exit(1)
	}
}
