package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zalepa/mortviz/aggregate"
	"github.com/zalepa/mortviz/dataset"
	"github.com/zalepa/mortviz/record"
)

const defaultData = "data/mortality.csv"

var errNoRecords = errors.New("no usable records in dataset")

// dataFlags are the dataset flags shared by every subcommand that loads data.
type dataFlags struct {
	data    *string
	preset  *string
	fields  *string
	period  *int
	verbose *bool
}

// addDataFlags registers the dataset flags on fs. Subcommands that always
// span every period pass withPeriod false and get no --period flag.
func addDataFlags(fs *flag.FlagSet, withPeriod bool) *dataFlags {
	df := &dataFlags{
		data:    fs.String("data", defaultData, "comma-separated dataset locations, tried in order (file, http(s) URL, postgres://...?table=name)"),
		preset:  fs.String("preset", "urban", "field map preset: "+strings.Join(dataset.Presets(), ", ")),
		fields:  fs.String("fields", "", "YAML field map file (overrides --preset)"),
		period:  new(int),
		verbose: fs.Bool("v", false, "log dataset loading"),
	}
	if withPeriod {
		df.period = fs.Int("period", 0, "restrict to one period, e.g. 2019 (0 = all periods)")
	}
	return df
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func (f *dataFlags) fieldMap() (dataset.FieldMap, error) {
	if *f.fields != "" {
		return dataset.LoadFieldMap(*f.fields)
	}
	return dataset.Preset(*f.preset)
}

// load fetches and normalizes the dataset. Records are not filtered by
// --period; callers that need the filter use scoped.
func (f *dataFlags) load(ctx context.Context) ([]record.Record, dataset.FieldMap, error) {
	fm, err := f.fieldMap()
	if err != nil {
		return nil, fm, err
	}
	loader := &dataset.Loader{Log: newLogger(*f.verbose)}
	rows, _, err := loader.Fetch(ctx, dataset.SplitLocations(*f.data)...)
	if err != nil {
		return nil, fm, err
	}
	records := record.Normalize(rows, fm.Record())
	if len(records) == 0 {
		return nil, fm, errNoRecords
	}
	return records, fm, nil
}

func (f *dataFlags) scoped(records []record.Record) []record.Record {
	if *f.period == 0 {
		return records
	}
	return record.ForPeriod(records, *f.period)
}

func (f *dataFlags) periodLabel() string {
	if *f.period == 0 {
		return "all periods"
	}
	return fmt.Sprint(*f.period)
}

// mustLoad loads the dataset or exits with a diagnostic.
func (f *dataFlags) mustLoad() ([]record.Record, dataset.FieldMap) {
	records, fm, err := f.load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading data: %v\n", err)
		os.Exit(1)
	}
	return records, fm
}

// lookupDims resolves comma-separated dimension names against fm.
func lookupDims(fm dataset.FieldMap, list string) ([]record.Dimension, error) {
	var dims []record.Dimension
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		d, ok := fm.Dimension(name)
		if !ok {
			return nil, fmt.Errorf("unknown dimension %q; valid options: %s", name, strings.Join(fm.DimensionNames(), ", "))
		}
		dims = append(dims, d)
	}
	return dims, nil
}

func aggregateOptions(maxSegments int, noOther bool) aggregate.Options {
	opts := aggregate.DefaultOptions()
	opts.MaxSegments = maxSegments
	opts.CollapseOther = !noOther
	return opts
}

// splitPath splits a selection path such as "Female/Neoplasms".
func splitPath(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "/") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// reorderArgs moves positional arguments to the end so that Go's flag package
// can parse all flags regardless of where a positional argument appears.
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			// Consume the next arg as the flag's value unless it looks like a flag itself.
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") && !strings.Contains(args[i], "=") && !isBoolFlag(args[i]) {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

var boolFlags = []string{"v", "no-other", "force"}

func isBoolFlag(arg string) bool {
	return contains(boolFlags, strings.TrimLeft(arg, "-"))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
