// Package explore computes the descriptive statistics printed by the exploration stage.
package explore

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/abadojack/whatlanggo"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/newsclf/internal/dataset"
)

// UnknownLanguage labels texts whose language cannot be detected reliably.
const UnknownLanguage = "unknown"

// LanguageCount is the number of texts detected as one language.
type LanguageCount struct {
	Language string
	Count    int
}

// LengthStats summarises cleaned text lengths of one class.
type LengthStats struct {
	Label    dataset.Label
	Count    int
	Mean     float64
	StdDev   float64
	Min, Max float64
}

// Summary is the exploration report of a cleaned dataset.
type Summary struct {
	Rows        int
	LabelCounts []dataset.LabelCount
	Lengths     []LengthStats
	Languages   []LanguageCount
}

// DetectLanguage returns the English name of the language of s, or UnknownLanguage when
// whatlanggo is not confident.
func DetectLanguage(s string) string {
	info := whatlanggo.Detect(s)
	if !info.IsReliable() {
		return UnknownLanguage
	}
	return info.Lang.String()
}

// LanguageDistribution counts detected languages, most frequent first.
func LanguageDistribution(texts []string) []LanguageCount {
	counts := make(map[string]int)
	for _, t := range texts {
		counts[DetectLanguage(t)]++
	}
	out := make([]LanguageCount, 0, len(counts))
	for lang, n := range counts {
		out = append(out, LanguageCount{Language: lang, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Language < out[j].Language
	})
	return out
}

// Lengths returns text length statistics per label, in label order.
func Lengths(c *dataset.Cleaned) []LengthStats {
	byLabel := make(map[dataset.Label][]float64)
	for _, r := range c.Records {
		byLabel[r.Label] = append(byLabel[r.Label], float64(r.TextLength))
	}

	labels := make([]dataset.Label, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	out := make([]LengthStats, 0, len(labels))
	for _, l := range labels {
		x := byLabel[l]
		mean, std := stat.MeanStdDev(x, nil)
		if len(x) < 2 {
			std = 0
		}
		sorted := append([]float64(nil), x...)
		sort.Float64s(sorted)
		out = append(out, LengthStats{
			Label:  l,
			Count:  len(x),
			Mean:   mean,
			StdDev: std,
			Min:    sorted[0],
			Max:    sorted[len(sorted)-1],
		})
	}
	return out
}

// Summarize builds the exploration report. Languages are detected on the raw text when the
// dataset carries it, otherwise on the cleaned text.
func Summarize(c *dataset.Cleaned) Summary {
	texts := make([]string, c.Len())
	for i, r := range c.Records {
		texts[i] = r.Text
		if texts[i] == "" {
			texts[i] = r.CleanedText
		}
	}
	return Summary{
		Rows:        c.Len(),
		LabelCounts: c.LabelCounts(),
		Lengths:     Lengths(c),
		Languages:   LanguageDistribution(texts),
	}
}

// Write prints the report as aligned text tables.
func (s Summary) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "Label Distribution:")
	for _, lc := range s.LabelCounts {
		fmt.Fprintf(tw, "%s\t%d\n", lc.Label, lc.Count)
	}
	fmt.Fprintf(tw, "Total\t%d\n\n", s.Rows)

	fmt.Fprintln(tw, "Text Length:")
	fmt.Fprintln(tw, "label\tcount\tmean\tstd\tmin\tmax")
	for _, ls := range s.Lengths {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%.0f\t%.0f\n", ls.Label, ls.Count, ls.Mean, ls.StdDev, ls.Min, ls.Max)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Languages:")
	for _, lc := range s.Languages {
		fmt.Fprintf(tw, "%s\t%d\n", lc.Language, lc.Count)
	}
	return tw.Flush()
}
