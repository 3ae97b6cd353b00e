package model_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/newsclf/core/model"
)

func TestExportRoundTrip(t *testing.T) {
	params := model.LinearClassifierParams{
		Coefficients: []float64{0.5, -1.25, 2},
		Intercept:    0.1,
		NFeatures:    3,
		Classes:      []string{"Fake", "Real"},
	}

	var buf bytes.Buffer
	require.NoError(t, model.ExportModel("LogisticRegression", params, &buf))
	assert.Contains(t, buf.String(), `"format_version": "1.0"`)

	exported, err := model.LoadExportedModel(&buf)
	require.NoError(t, err)

	got, err := model.LoadLinearClassifierParams(exported, "LogisticRegression")
	require.NoError(t, err)
	assert.Equal(t, params, *got)
}

func TestLoadExportedModelValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"missing version", `{"model_spec":{"name":"LogisticRegression"},"params":{}}`, "format_version is required"},
		{"bad version", `{"model_spec":{"name":"LogisticRegression","format_version":"2.0"},"params":{}}`, "unsupported format version"},
		{"missing name", `{"model_spec":{"format_version":"1.0"},"params":{}}`, "model name is required"},
		{"not json", `pickle`, "failed to decode JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.LoadExportedModel(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadLinearClassifierParamsValidation(t *testing.T) {
	envelope := func(name, params string) *model.ExportedModel {
		m, err := model.LoadExportedModel(strings.NewReader(
			`{"model_spec":{"name":"` + name + `","format_version":"1.0"},"params":` + params + `}`))
		require.NoError(t, err)
		return m
	}

	_, err := model.LoadLinearClassifierParams(envelope("MultinomialNB", `{}`), "LogisticRegression")
	assert.ErrorContains(t, err, "expected LogisticRegression, got MultinomialNB")

	_, err = model.LoadLinearClassifierParams(envelope("LogisticRegression", `{"coefficients":[],"n_features":0}`), "LogisticRegression")
	assert.ErrorContains(t, err, "coefficients cannot be empty")

	_, err = model.LoadLinearClassifierParams(envelope("LogisticRegression",
		`{"coefficients":[1,2],"n_features":3,"classes":["Fake","Real"]}`), "LogisticRegression")
	assert.ErrorContains(t, err, "n_features (3) does not match coefficients length (2)")

	_, err = model.LoadLinearClassifierParams(envelope("LogisticRegression",
		`{"coefficients":[1,2],"n_features":2,"classes":["Fake"]}`), "LogisticRegression")
	assert.ErrorContains(t, err, "expected 2 classes")
}
