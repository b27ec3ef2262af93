// Package dataset fetches raw tabular rows from files, HTTP endpoints and
// Postgres tables, and describes how their columns map onto records.
package dataset

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Row is one raw data row keyed by column name.
type Row = map[string]string

// Source yields the rows of one dataset location.
type Source interface {
	Fetch(ctx context.Context) ([]Row, error)
	String() string
}

type fileSource struct {
	path string
}

func (s fileSource) String() string { return s.path }

func (s fileSource) Fetch(ctx context.Context) ([]Row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f, s.path)
}

type httpSource struct {
	url    string
	client *http.Client
}

func (s httpSource) String() string { return s.url }

func (s httpSource) Fetch(ctx context.Context) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	client := s.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	name := s.url
	if u, err := url.Parse(s.url); err == nil {
		name = u.Path
	}
	return decode(resp.Body, name)
}

// decode picks JSON for .json names and CSV for everything else.
func decode(r io.Reader, name string) ([]Row, error) {
	if strings.EqualFold(path.Ext(name), ".json") {
		return decodeJSON(r)
	}
	return decodeCSV(r)
}

func decodeCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// decodeJSON reads an array of flat objects. Numbers keep their source text.
func decodeJSON(r io.Reader) ([]Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var objs []map[string]any
	if err := dec.Decode(&objs); err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(objs))
	for _, obj := range objs {
		row := make(Row, len(obj))
		for k, v := range obj {
			row[k] = stringify(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// WriteCSV writes rows with a header holding the given columns, or the
// sorted union of all row keys when columns is empty.
func WriteCSV(w io.Writer, rows []Row, columns ...string) error {
	if len(columns) == 0 {
		columns = columnsOf(rows)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	rec := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			rec[i] = row[col]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func columnsOf(rows []Row) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}
