package dataset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrEmpty              = errors.New("dataset has no rows")
	ErrAllLocationsFailed = errors.New("no dataset location could be loaded")
)

// Loader resolves dataset locations to sources and fetches the first one
// that yields rows. The zero value works: it uses http.DefaultClient, lib/pq
// and a disabled logger.
type Loader struct {
	Client *http.Client
	Log    zerolog.Logger
	OpenDB func(dsn string) (DB, error)
}

// ParseLocation returns the source for loc: http(s) URLs, postgres URLs
// with a table parameter, or a local file path.
func (l *Loader) ParseLocation(loc string) Source {
	lower := strings.ToLower(loc)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return httpSource{url: loc, client: l.Client}
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return newPGSource(loc, l.OpenDB)
	default:
		return fileSource{path: loc}
	}
}

// Fetch tries locations in order and returns the rows of the first one that
// loads and is non-empty, along with that source's name.
func (l *Loader) Fetch(ctx context.Context, locations ...string) ([]Row, string, error) {
	var lastErr error
	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		src := l.ParseLocation(loc)
		rows, err := src.Fetch(ctx)
		if err == nil && len(rows) == 0 {
			err = ErrEmpty
		}
		if err != nil {
			l.Log.Warn().Err(err).Str("location", src.String()).Msg("dataset location failed")
			lastErr = err
			continue
		}
		l.Log.Info().Str("location", src.String()).Int("rows", len(rows)).Msg("dataset loaded")
		return rows, src.String(), nil
	}
	if lastErr == nil {
		return nil, "", ErrAllLocationsFailed
	}
	return nil, "", fmt.Errorf("%w: %w", ErrAllLocationsFailed, lastErr)
}

// SplitLocations splits a comma separated location list, dropping blanks.
func SplitLocations(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
