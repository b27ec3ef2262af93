package main

import (
	"fmt"
	"os"

	"github.com/zalepa/mortviz/cmd"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "tree":
		cmd.Tree(os.Args[2:])
	case "series":
		cmd.Series(os.Args[2:])
	case "map":
		cmd.Map(os.Args[2:])
	case "fetch":
		cmd.Fetch(os.Args[2:])
	case "web":
		cmd.Web(os.Args[2:])
	case "inspect":
		cmd.Inspect(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: mortviz <command>

Commands:
  tree      Break totals down by up to two dimensions
  series    Show totals per period, optionally split by a dimension
  map       Bucket per-key totals for choropleth shading
  fetch     Cache a remote dataset as a local CSV file
  web       Serve the drill-down JSON API
  inspect   Report page counts of rendered PDF reports
`)
}
