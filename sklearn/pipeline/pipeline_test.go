package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/preprocessing/text"
	"github.com/ezoic/newsclf/sklearn/feature_extraction"
	"github.com/ezoic/newsclf/sklearn/linear_model"
	"github.com/ezoic/newsclf/sklearn/naive_bayes"
)

var (
	docs = []string{
		"Aliens landed on Mars!!",
		"Secret alien government cover-up",
		"Senate passes the budget bill",
		"President signs budget law",
	}
	target = mat.NewVecDense(4, []float64{0, 0, 1, 1})
)

func steps() []Step {
	return []Step{
		{Name: "normalize", Estimator: text.NewNormalizer()},
		{Name: "tfidf", Estimator: feature_extraction.NewTfidfVectorizer()},
		{Name: "clf", Estimator: linear_model.NewLogisticRegression()},
	}
}

func TestPipelineFitPredict(t *testing.T) {
	p, err := New(steps(), WithVerbose(true))
	require.NoError(t, err)
	assert.False(t, p.IsFitted())

	_, err = p.Predict(docs)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	require.NoError(t, p.Fit(docs, target))
	score, err := p.Score(docs, target)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	pred, err := p.Predict([]string{"ALIENS on mars", "the budget law"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, pred.RawVector().Data)

	proba, err := p.PredictProba([]string{"budget"})
	require.NoError(t, err)
	assert.Greater(t, proba.At(0, 1), 0.5)

	X, err := p.Transform(docs)
	require.NoError(t, err)
	r, _ := X.Dims()
	assert.Equal(t, 4, r)
}

func TestPipelineWithoutTextSteps(t *testing.T) {
	p, err := New([]Step{
		{Name: "tfidf", Estimator: feature_extraction.NewTfidfVectorizer()},
		{Name: "nb", Estimator: naive_bayes.NewMultinomialNB()},
	})
	require.NoError(t, err)
	require.NoError(t, p.Fit([]string{"alien mars", "alien cover", "senate budget", "budget law"}, target))

	pred, err := p.Predict([]string{"alien", "budget"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, pred.RawVector().Data)
}

func TestNewFitted(t *testing.T) {
	vec := feature_extraction.NewTfidfVectorizer()
	X, err := vec.FitTransform(docs)
	require.NoError(t, err)
	lr := linear_model.NewLogisticRegression()
	require.NoError(t, lr.Fit(X, target))

	p, err := NewFitted([]Step{{Name: "tfidf", Estimator: vec}, {Name: "clf", Estimator: lr}})
	require.NoError(t, err)
	pred, err := p.Predict(docs)
	require.NoError(t, err)
	assert.True(t, mat.Equal(target, pred))

	assert.Contains(t, p.GetParams(), "clf__C")
	assert.Len(t, p.Steps(), 2)
	assert.Same(t, lr, p.NamedSteps()["clf"])
}

func TestNewRejectsBadStepOrder(t *testing.T) {
	vec := feature_extraction.NewTfidfVectorizer()
	lr := linear_model.NewLogisticRegression()
	norm := text.NewNormalizer()

	tests := []struct {
		name  string
		steps []Step
	}{
		{"no classifier", []Step{{"tfidf", vec}}},
		{"classifier first", []Step{{"clf", lr}, {"tfidf", vec}}},
		{"text after vectorizer", []Step{{"tfidf", vec}, {"norm", norm}, {"clf", lr}}},
		{"two vectorizers", []Step{{"a", vec}, {"b", feature_extraction.NewTfidfVectorizer()}, {"clf", lr}}},
		{"duplicate names", []Step{{"x", norm}, {"x", vec}, {"clf", lr}}},
		{"unsupported", []Step{{"odd", 42}, {"tfidf", vec}, {"clf", lr}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.steps)
			var verr *errors.ValidationError
			assert.True(t, errors.As(err, &verr), "got %v", err)
		})
	}
}
