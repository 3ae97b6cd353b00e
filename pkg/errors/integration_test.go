package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/core/sparse"
	clfErrors "github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/preprocessing"
	"github.com/ezoic/newsclf/sklearn/feature_extraction"
	"github.com/ezoic/newsclf/sklearn/linear_model"
)

// Errors raised by estimators survive the wrapping done by the stage runner.
func TestEstimatorErrorsThroughWrapping(t *testing.T) {
	_, err := feature_extraction.NewTfidfVectorizer().Transform([]string{"alien base"})
	wrapped := clfErrors.Wrap(err, "feature extraction")

	var nf *clfErrors.NotFittedError
	require.True(t, clfErrors.As(wrapped, &nf))
	assert.Equal(t, "TfidfVectorizer", nf.ModelName)
	assert.Equal(t, "Transform", nf.Method)
	assert.Contains(t, wrapped.Error(), "feature extraction: ")
}

func TestDimensionErrorFromClassifier(t *testing.T) {
	vec := feature_extraction.NewTfidfVectorizer()
	X, err := vec.FitTransform([]string{"alien base on mars", "senate budget vote"})
	require.NoError(t, err)
	clf := linear_model.NewLogisticRegression()
	require.NoError(t, clf.Fit(X, mat.NewVecDense(2, []float64{0, 1})))

	_, cols := X.Dims()
	_, err = clf.Predict(sparse.NewBuilder(cols + 1).Build())
	err = fmt.Errorf("evaluate: %w", err)

	var dim *clfErrors.DimensionError
	require.True(t, clfErrors.As(err, &dim))
	assert.Equal(t, cols, dim.Expected)
	assert.Equal(t, cols+1, dim.Got)
	assert.Equal(t, 1, dim.Axis)
}

func TestEmptyDataSentinel(t *testing.T) {
	err := preprocessing.NewLabelEncoder().Fit(nil)
	wrapped := clfErrors.Wrapf(err, "clean %s", "fake_news_detection_dataset.csv")

	assert.True(t, clfErrors.Is(wrapped, clfErrors.ErrEmptyData))
	var me *clfErrors.ModelError
	require.True(t, clfErrors.As(wrapped, &me))
	assert.Equal(t, clfErrors.ErrEmptyData, me.Unwrap())
}

func TestValidationErrorFromLabels(t *testing.T) {
	enc, err := preprocessing.NewLabelEncoderWithClasses("Fake", "Real")
	require.NoError(t, err)
	_, err = enc.Transform([]string{"Real", "Satire"})

	var ve *clfErrors.ValidationError
	require.True(t, clfErrors.As(err, &ve))
	assert.Equal(t, "label", ve.ParamName)
	assert.Equal(t, "Satire", ve.Value)
}
