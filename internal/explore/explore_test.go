package explore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/newsclf/internal/dataset"
)

func cleanedFixture() *dataset.Cleaned {
	return &dataset.Cleaned{Records: []dataset.Record{
		{Text: "The government announced a new budget for schools and hospitals this year.", Label: dataset.Real, CleanedText: "government announced", TextLength: 20},
		{Text: "Scientists confirmed that the spacecraft landed safely after a long journey.", Label: dataset.Real, CleanedText: "scientist confirmed", TextLength: 19},
		{Text: "Aliens secretly control the weather and the media refuses to report it.", Label: dataset.Fake, CleanedText: "alien secretly", TextLength: 15},
	}}
}

func TestLanguageDistribution(t *testing.T) {
	langs := LanguageDistribution([]string{
		"The government announced a new budget for schools and hospitals this year.",
		"Scientists confirmed that the spacecraft landed safely after a long journey.",
		"",
	})
	counts := make(map[string]int)
	for _, lc := range langs {
		counts[lc.Language] = lc.Count
	}
	assert.GreaterOrEqual(t, counts["English"], 1)
	assert.GreaterOrEqual(t, counts[UnknownLanguage], 1)
	assert.Equal(t, UnknownLanguage, DetectLanguage(""))
}

func TestLengths(t *testing.T) {
	ls := Lengths(cleanedFixture())
	require.Len(t, ls, 2)

	assert.Equal(t, dataset.Fake, ls[0].Label)
	assert.Equal(t, 1, ls[0].Count)
	assert.Equal(t, 0.0, ls[0].StdDev)

	got := ls[1]
	assert.Equal(t, 2, got.Count)
	assert.InDelta(t, 19.5, got.Mean, 1e-12)
	assert.Equal(t, 19.0, got.Min)
	assert.Equal(t, 20.0, got.Max)
}

func TestSummaryWrite(t *testing.T) {
	s := Summarize(cleanedFixture())
	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, []dataset.LabelCount{{Label: dataset.Real, Count: 2}, {Label: dataset.Fake, Count: 1}}, s.LabelCounts)

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))
	out := buf.String()
	assert.Contains(t, out, "Label Distribution:")
	assert.Contains(t, out, "Real   2")
	assert.Contains(t, out, "Languages:")
}
