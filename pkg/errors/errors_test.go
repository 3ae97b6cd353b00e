package errors_test

import (
	"bytes"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clfErrors "github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "not fitted",
			err:  clfErrors.NewNotFittedError("LogisticRegression", "Predict"),
			want: "newsclf: LogisticRegression: this instance is not fitted yet; call Fit before Predict",
		},
		{
			name: "dimension rows",
			err:  clfErrors.NewDimensionError("TrainTestSplit", 10, 9, 0),
			want: "newsclf: TrainTestSplit: dimension mismatch in rows: expected 10, got 9",
		},
		{
			name: "dimension columns",
			err:  clfErrors.NewDimensionError("LogisticRegression.Predict", 5000, 12, 1),
			want: "newsclf: LogisticRegression.Predict: dimension mismatch in columns: expected 5000, got 12",
		},
		{
			name: "validation",
			err:  clfErrors.NewValidationError("label", "must be Fake or Real", "Satire"),
			want: "newsclf: invalid label: must be Fake or Real (value: Satire)",
		},
		{
			name: "model error without cause",
			err:  clfErrors.NewModelError("Load", "truncated artifact", nil),
			want: "newsclf: Load: truncated artifact",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestCheckScalar(t *testing.T) {
	assert.NoError(t, clfErrors.CheckScalar("loss", 0.25, 3))

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := clfErrors.CheckScalar("loss", v, 7)
		require.Error(t, err)
		assert.True(t, clfErrors.Is(err, clfErrors.ErrNumerical))
		assert.Contains(t, err.Error(), "iteration 7")
	}
}

func TestRecover(t *testing.T) {
	run := func(v interface{}) (err error) {
		defer clfErrors.Recover(&err, "Stage.Run")
		panic(v)
	}

	err := run("index out of range")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Stage.Run: panic: index out of range")

	cause := fmt.Errorf("boom")
	err = run(cause)
	require.Error(t, err)
	assert.True(t, clfErrors.Is(err, cause))
}

func TestWarnUsesHandler(t *testing.T) {
	var got []error
	prev := clfErrors.SetWarningHandler(func(w error) { got = append(got, w) })
	defer clfErrors.SetWarningHandler(prev)

	w := clfErrors.NewConvergenceWarning("LogisticRegression", 1000, "lbfgs reached max_iter")
	clfErrors.Warn(w)
	clfErrors.Warn(nil)

	require.Len(t, got, 1)
	var cw *clfErrors.ConvergenceWarning
	require.True(t, clfErrors.As(got[0], &cw))
	assert.Equal(t, 1000, cw.Iterations)
	assert.Equal(t, "newsclf: LogisticRegression failed to converge after 1000 iterations: lbfgs reached max_iter", w.Error())
}

func TestDefaultWarningHandlerFollowsLogLevel(t *testing.T) {
	prevProvider := log.GetProvider()
	defer log.SetProvider(prevProvider)
	prevHandler := clfErrors.SetWarningHandler(nil)
	defer clfErrors.SetWarningHandler(prevHandler)

	w := clfErrors.NewConvergenceWarning("lbfgs", 10, "increase max_iter")

	var buf bytes.Buffer
	log.SetProvider(log.NewZerologProviderWithWriter(&buf, log.ToLogLevel("warn")))
	clfErrors.Warn(w)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"component":"errors"`)
	assert.Contains(t, buf.String(), "failed to converge after 10 iterations")

	buf.Reset()
	log.SetProvider(log.NewZerologProviderWithWriter(&buf, log.ToLogLevel("error")))
	clfErrors.Warn(w)
	assert.Empty(t, buf.String(), "warnings are filtered by the configured level")
}
