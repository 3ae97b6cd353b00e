package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
	"github.com/ezoic/newsclf/preprocessing/text"
)

// Label is the class of a news record. Codes follow the sorted class names, so Fake=0 and Real=1.
type Label int

const (
	Fake Label = iota
	Real
)

var labelNames = [...]string{Fake: "Fake", Real: "Real"}

// LabelNames returns the class names in code order.
func LabelNames() []string {
	return append([]string(nil), labelNames[:]...)
}

func (l Label) String() string {
	if l < 0 || int(l) >= len(labelNames) {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labelNames[l]
}

// ParseLabel maps "fake" or "real" (any case, surrounding space ignored) to a Label.
func ParseLabel(s string) (Label, error) {
	v := strings.TrimSpace(s)
	for i, name := range labelNames {
		if strings.EqualFold(v, name) {
			return Label(i), nil
		}
	}
	return 0, errors.NewValidationError(LabelColumn, "unknown label, expected Fake or Real", s)
}

// Record is one labeled news item after cleaning.
type Record struct {
	Text        string
	Label       Label
	CleanedText string
	TextLength  int
}

// Cleaned is a cleaned dataset: the frame written to the cleaned CSV and its typed records.
type Cleaned struct {
	Frame   *Frame
	Records []Record
}

// CleanStats counts what Clean removed.
type CleanStats struct {
	RawRows        int
	NullRows       int
	DuplicateRows  int
	RemainingRows  int
	EmptyAfterNorm int
}

// Clean drops null and duplicate rows, parses labels and normalizes text.
//
// The frame is modified in place: it gains (or has replaced) the cleaned_text and text_length
// columns; other columns are carried through unchanged. An unknown label aborts cleaning.
func Clean(f *Frame, n *text.Normalizer) (*Cleaned, CleanStats, error) {
	logger := log.GetLoggerWithName("dataset")
	stats := CleanStats{RawRows: f.Len()}

	if _, err := f.Require(TextColumn, LabelColumn); err != nil {
		return nil, stats, err
	}
	stats.NullRows = f.DropNulls()
	stats.DuplicateRows = f.DropDuplicates()
	stats.RemainingRows = f.Len()
	if f.Len() == 0 {
		return nil, stats, errors.NewModelError("dataset.Clean", "no rows left after dropping nulls and duplicates", errors.ErrEmptyData)
	}

	texts, _ := f.Column(TextColumn)
	rawLabels, _ := f.Column(LabelColumn)

	records := make([]Record, f.Len())
	cleanedCol := make([]string, f.Len())
	lengthCol := make([]string, f.Len())
	for i := range records {
		label, err := ParseLabel(rawLabels[i])
		if err != nil {
			return nil, stats, errors.Wrapf(err, "row %d", i)
		}
		cleaned := n.Normalize(texts[i])
		if cleaned == "" {
			stats.EmptyAfterNorm++
		}
		records[i] = Record{
			Text:        texts[i],
			Label:       label,
			CleanedText: cleaned,
			TextLength:  utf8.RuneCountInString(cleaned),
		}
		cleanedCol[i] = cleaned
		lengthCol[i] = strconv.Itoa(records[i].TextLength)
	}

	if err := f.SetColumn(CleanedTextColumn, cleanedCol); err != nil {
		return nil, stats, err
	}
	if err := f.SetColumn(TextLengthColumn, lengthCol); err != nil {
		return nil, stats, err
	}

	logger.Info("dataset cleaned",
		log.PhaseKey, log.PhasePreprocessing,
		"raw_rows", stats.RawRows,
		"null_rows", stats.NullRows,
		"duplicate_rows", stats.DuplicateRows,
		log.SamplesKey, stats.RemainingRows,
	)
	return &Cleaned{Frame: f, Records: records}, stats, nil
}

// LoadCleaned reads a cleaned CSV written by Clean.
//
// An empty cleaned_text cell is an empty document, not a missing value. text_length is
// recomputed when the column is absent.
func LoadCleaned(path string) (*Cleaned, error) {
	f, err := LoadCSV(path)
	if err != nil {
		return nil, err
	}
	idx, err := f.Require(CleanedTextColumn, LabelColumn)
	if err != nil {
		return nil, err
	}
	if f.Len() == 0 {
		return nil, errors.NewModelError("dataset.LoadCleaned", path, errors.ErrEmptyData)
	}
	textIdx, lengthIdx := f.Index(TextColumn), f.Index(TextLengthColumn)

	records := make([]Record, f.Len())
	for i, row := range f.Rows {
		label, err := ParseLabel(row[idx[1]])
		if err != nil {
			return nil, errors.Wrapf(err, "%s row %d", path, i)
		}
		rec := Record{Label: label, CleanedText: row[idx[0]]}
		if textIdx >= 0 {
			rec.Text = row[textIdx]
		}
		rec.TextLength = utf8.RuneCountInString(rec.CleanedText)
		if lengthIdx >= 0 {
			if v, err := strconv.Atoi(row[lengthIdx]); err == nil {
				rec.TextLength = v
			}
		}
		records[i] = rec
	}
	return &Cleaned{Frame: f, Records: records}, nil
}

// Len returns the number of records.
func (c *Cleaned) Len() int { return len(c.Records) }

// CleanedTexts returns the normalized documents in record order.
func (c *Cleaned) CleanedTexts() []string {
	out := make([]string, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.CleanedText
	}
	return out
}

// LabelStrings returns the class names in record order.
func (c *Cleaned) LabelStrings() []string {
	out := make([]string, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.Label.String()
	}
	return out
}

// TextsByLabel returns the cleaned documents of one class.
func (c *Cleaned) TextsByLabel(l Label) []string {
	var out []string
	for _, r := range c.Records {
		if r.Label == l {
			out = append(out, r.CleanedText)
		}
	}
	return out
}

// LabelCount is one entry of a value count.
type LabelCount struct {
	Label Label
	Count int
}

// LabelCounts counts records per label, largest first with ties in label order.
// Labels with no records are omitted.
func (c *Cleaned) LabelCounts() []LabelCount {
	counts := make(map[Label]int)
	for _, r := range c.Records {
		counts[r.Label]++
	}
	out := make([]LabelCount, 0, len(counts))
	for l, n := range counts {
		out = append(out, LabelCount{Label: l, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
