// Package dataset reads, cleans and writes the labeled news CSV.
//
// A Frame is a header plus string rows, loaded with encoding/csv. Null detection follows
// pandas' default NA strings, so a dataset cleaned here drops the same rows pandas would.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/ezoic/newsclf/pkg/errors"
)

// Column names used by the pipeline.
const (
	TextColumn        = "text"
	LabelColumn       = "label"
	CleanedTextColumn = "cleaned_text"
	TextLengthColumn  = "text_length"
)

const utf8BOM = "\ufeff"

// naValues are the strings pandas.read_csv treats as missing by default.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {}, "-NaN": {},
	"-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {}, "NA": {}, "NULL": {},
	"NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNA reports whether a CSV cell counts as missing.
func IsNA(s string) bool {
	_, ok := naValues[s]
	return ok
}

// Frame is an in-memory CSV table.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// ReadCSV parses a CSV stream whose first record is the header.
//
// Rows shorter than the header are padded with empty (missing) cells; longer rows are an error.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewModelError("dataset.ReadCSV", "missing header", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "dataset: read header")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	f := &Frame{Columns: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "dataset: read record")
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, errors.NewValueError("dataset.ReadCSV",
				fmt.Sprintf("line %d: expected %d fields, saw %d", line, len(header), len(rec)))
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		f.Rows = append(f.Rows, rec)
	}
	return f, nil
}

// LoadCSV reads the CSV file at path.
func LoadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer func() { _ = file.Close() }()

	return ReadCSV(file)
}

// WriteCSV writes the header and rows to w.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return errors.Wrap(err, "dataset: write header")
	}
	if err := cw.WriteAll(f.Rows); err != nil {
		return errors.Wrap(err, "dataset: write rows")
	}
	return nil
}

// SaveCSV writes the frame to path, replacing any existing file.
func (f *Frame) SaveCSV(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "dataset: create %s", dir)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "dataset: create %s", path)
	}
	if err := f.WriteCSV(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Index returns the position of column name, or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Require returns the positions of the named columns or a ValidationError naming the first missing one.
func (f *Frame) Require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = f.Index(name)
		if idx[i] < 0 {
			return nil, errors.NewValidationError("columns",
				fmt.Sprintf("missing required column %q", name), f.Columns)
		}
	}
	return idx, nil
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]string, error) {
	idx, err := f.Require(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[idx[0]]
	}
	return out, nil
}

// Select returns a new frame holding only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	idx, err := f.Require(names...)
	if err != nil {
		return nil, err
	}
	out := &Frame{Columns: append([]string(nil), names...), Rows: make([][]string, len(f.Rows))}
	for i, row := range f.Rows {
		sel := make([]string, len(idx))
		for k, j := range idx {
			sel[k] = row[j]
		}
		out.Rows[i] = sel
	}
	return out, nil
}

// SetColumn replaces the named column, appending it when absent. values must have one entry per row.
func (f *Frame) SetColumn(name string, values []string) error {
	if len(values) != len(f.Rows) {
		return errors.NewDimensionError("Frame.SetColumn", len(f.Rows), len(values), 0)
	}
	idx := f.Index(name)
	if idx < 0 {
		f.Columns = append(f.Columns, name)
		for i := range f.Rows {
			f.Rows[i] = append(f.Rows[i], values[i])
		}
		return nil
	}
	for i := range f.Rows {
		f.Rows[i][idx] = values[i]
	}
	return nil
}

// DropNulls removes every row holding a missing cell and returns how many were removed.
func (f *Frame) DropNulls() int {
	kept := f.Rows[:0]
	for _, row := range f.Rows {
		if !hasNA(row) {
			kept = append(kept, row)
		}
	}
	dropped := len(f.Rows) - len(kept)
	f.Rows = kept
	return dropped
}

func hasNA(row []string) bool {
	for _, v := range row {
		if IsNA(v) {
			return true
		}
	}
	return false
}

// DropDuplicates removes rows equal in every column to an earlier row, keeping the first.
func (f *Frame) DropDuplicates() int {
	seen := make(map[string]struct{}, len(f.Rows))
	kept := f.Rows[:0]
	for _, row := range f.Rows {
		key := rowKey(row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}
	dropped := len(f.Rows) - len(kept)
	f.Rows = kept
	return dropped
}

// rowKey joins cells with their lengths so that distinct rows never share a key.
func rowKey(row []string) string {
	var sb strings.Builder
	for _, v := range row {
		fmt.Fprintf(&sb, "%d:%s|", len(v), v)
	}
	return sb.String()
}

// Info writes a summary of the frame: row count and non-null count per column.
func (f *Frame) Info(w io.Writer) error {
	fmt.Fprintf(w, "RangeIndex: %d entries\n", len(f.Rows))
	fmt.Fprintf(w, "Data columns (total %d columns):\n", len(f.Columns))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, " #\tColumn\tNon-Null Count")
	fmt.Fprintln(tw, "---\t------\t--------------")
	for j, c := range f.Columns {
		nonNull := 0
		for _, row := range f.Rows {
			if !IsNA(row[j]) {
				nonNull++
			}
		}
		fmt.Fprintf(tw, " %d\t%s\t%d non-null\n", j, c, nonNull)
	}
	return tw.Flush()
}

// Head writes the first n rows with long cells truncated.
func (f *Frame) Head(w io.Writer, n int) error {
	const maxCell = 50

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\t"+strings.Join(f.Columns, "\t"))
	for i := 0; i < n && i < len(f.Rows); i++ {
		cells := make([]string, len(f.Rows[i]))
		for j, v := range f.Rows[i] {
			cells[j] = truncate(strings.Join(strings.Fields(v), " "), maxCell)
		}
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
