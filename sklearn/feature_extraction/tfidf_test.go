package feature_extraction_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/newsclf/core/model"
	"github.com/ezoic/newsclf/core/sparse"
	"github.com/ezoic/newsclf/pkg/errors"
	fe "github.com/ezoic/newsclf/sklearn/feature_extraction"
)

var corpus = []string{
	"breaking news alien life discovered mars",
	"senate passes budget bill",
	"alien invasion covered senate",
	"budget bill news",
}

func TestTfidfKnownValues(t *testing.T) {
	v := fe.NewTfidfVectorizer()
	X, err := v.FitTransform([]string{"fake news", "real news"})
	require.NoError(t, err)

	assert.Equal(t, []string{"fake", "news", "real"}, v.GetFeatureNamesOut())

	idfFake := math.Log(3.0/2.0) + 1
	idfNews := 1.0
	norm := math.Hypot(idfFake, idfNews)

	assert.InDelta(t, idfFake/norm, X.At(0, 0), 1e-12)
	assert.InDelta(t, idfNews/norm, X.At(0, 1), 1e-12)
	assert.Equal(t, 0.0, X.At(0, 2))
	assert.InDelta(t, idfFake/norm, X.At(1, 2), 1e-12)
}

func TestTfidfBigramsAndMaxFeatures(t *testing.T) {
	v := fe.NewTfidfVectorizer(fe.WithNgramRange(1, 2), fe.WithMaxFeatures(5))
	X, err := v.FitTransform(corpus)
	require.NoError(t, err)

	// Most frequent terms (count 2): alien, bill, budget, budget bill, news, senate.
	// The cap keeps the first five after breaking ties lexically.
	assert.Equal(t, []string{"alien", "bill", "budget", "budget bill", "news"}, v.GetFeatureNamesOut())

	r, c := X.Dims()
	assert.Equal(t, len(corpus), r)
	assert.Equal(t, 5, c)
}

func TestTfidfRowsAreUnitNorm(t *testing.T) {
	v := fe.NewTfidfVectorizer(fe.WithNgramRange(1, 2))
	X, err := v.FitTransform(corpus)
	require.NoError(t, err)

	for i := 0; i < X.NRows; i++ {
		_, vals := X.Row(i)
		var s float64
		for _, x := range vals {
			s += x * x
		}
		assert.InDelta(t, 1.0, s, 1e-12, "row %d", i)
	}
}

func TestTfidfTransformIsDeterministic(t *testing.T) {
	v := fe.NewTfidfVectorizer(fe.WithNgramRange(1, 2), fe.WithMaxFeatures(5000))
	require.NoError(t, v.Fit(corpus))

	a, err := v.Transform(corpus)
	require.NoError(t, err)
	b, err := v.Transform(corpus)
	require.NoError(t, err)
	assert.True(t, sparse.Equal(a, b))
}

func TestTfidfVocabularyIsFrozen(t *testing.T) {
	v := fe.NewTfidfVectorizer(fe.WithNgramRange(1, 2))
	require.NoError(t, v.Fit(corpus))
	before := v.GetFeatureNamesOut()

	X, err := v.Transform([]string{"completely unseen words here", "alien news"})
	require.NoError(t, err)

	assert.Equal(t, before, v.GetFeatureNamesOut())
	_, c := X.Dims()
	assert.Equal(t, len(before), c)

	idx, _ := X.Row(0)
	assert.Empty(t, idx)
	idx, _ = X.Row(1)
	assert.Len(t, idx, 2)
}

func TestTfidfErrors(t *testing.T) {
	v := fe.NewTfidfVectorizer()

	_, err := v.Transform(corpus)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = v.Fit(nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	err = v.Fit([]string{"", "a b c", "!!"})
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "empty vocabulary")

	bad := fe.NewTfidfVectorizer(fe.WithNgramRange(2, 1))
	var val *errors.ValidationError
	assert.True(t, errors.As(bad.Fit(corpus), &val))
}

func TestTfidfGobRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		make func() *fe.TfidfVectorizer
	}{
		{"bigrams", func() *fe.TfidfVectorizer { return fe.NewTfidfVectorizer(fe.WithNgramRange(1, 2)) }},
		{"no norm", func() *fe.TfidfVectorizer { return fe.NewTfidfVectorizer(fe.WithNorm("")) }},
		{"raw idf, case kept, sublinear", func() *fe.TfidfVectorizer {
			v := fe.NewTfidfVectorizer(fe.WithSublinearTF(true), fe.WithNorm("l1"))
			v.Lowercase = false
			v.SmoothIDF = false
			return v
		}},
	}
	docs := append([]string{"ALIEN Senate news"}, corpus...)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.make()
			require.NoError(t, v.Fit(docs))
			want, err := v.Transform(docs)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, model.SaveModelToWriter(v, &buf))
			data := buf.Bytes()

			for name, loaded := range map[string]*fe.TfidfVectorizer{
				"zero value":  {},
				"constructor": fe.NewTfidfVectorizer(),
			} {
				require.NoError(t, model.LoadModelFromReader(loaded, bytes.NewReader(data)), name)
				assert.True(t, loaded.IsFitted(), name)
				assert.Equal(t, v.GetParams(false), loaded.GetParams(false), name)

				got, err := loaded.Transform(docs)
				require.NoError(t, err, name)
				assert.True(t, sparse.Equal(want, got), name)
			}
		})
	}
}

func TestTfidfRefitUsesCurrentTokenPattern(t *testing.T) {
	v := fe.NewTfidfVectorizer()
	require.NoError(t, v.Fit([]string{"alien base", "senate vote"}))

	v.TokenPattern = `\b\w+\b`
	require.NoError(t, v.Fit([]string{"a ufo", "b vote"}))
	assert.Contains(t, v.Vocabulary, "a")
	assert.Contains(t, v.Vocabulary, "b")
}
