package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalepa/mortviz/dataset"
)

// Fetch implements the "fetch" subcommand: load a dataset from the first
// location that works and cache it as a local CSV file.
func Fetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	data := fs.String("data", "", "comma-separated dataset locations, tried in order")
	out := fs.String("out", defaultData, "output CSV file path")
	force := fs.Bool("force", false, "overwrite an existing output file")
	verbose := fs.Bool("v", false, "log each location tried")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mortviz fetch --data <location>[,<location>...] [-out path] [-force]\n\n")
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(args))

	locations := dataset.SplitLocations(*data)
	if len(locations) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	if _, err := os.Stat(*out); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "skip %s (already exists, use -force to overwrite)\n", *out)
		return
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output directory: %v\n", err)
		os.Exit(1)
	}

	loader := &dataset.Loader{Log: newLogger(*verbose)}
	rows, from, err := loader.Fetch(context.Background(), locations...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error fetching dataset: %v\n", err)
		os.Exit(1)
	}

	if err := writeRows(*out, rows); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Done: %d rows from %s -> %s\n", len(rows), from, *out)
}

func writeRows(path string, rows []dataset.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
