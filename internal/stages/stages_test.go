package stages

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/internal/config"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/sklearn/model_selection"
)

var (
	fakeWords = []string{"alien", "mars", "secret", "conspiracy", "miracle", "cure", "hoax", "shocking", "ufo", "illuminati"}
	realWords = []string{"senate", "budget", "president", "economy", "minister", "election", "court", "report", "policy", "parliament"}
)

func article(words []string, i int) string {
	parts := make([]string, 5)
	for k := range parts {
		parts[k] = words[(i*3+k*7)%len(words)]
	}
	return fmt.Sprintf("Today %s, story number %d!", strings.Join(parts, " "), i)
}

// writeDataset writes 50 Fake and 50 Real articles plus one null row and one duplicate.
func writeDataset(t *testing.T, path string) {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("title,text,label\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&sb, "f%d,%q,Fake\n", i, article(fakeWords, i))
		fmt.Fprintf(&sb, "r%d,%q,Real\n", i, article(realWords, i))
	}
	sb.WriteString("missing,,Fake\n")
	fmt.Fprintf(&sb, "f0,%q,Fake\n", article(fakeWords, 0))
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Input = filepath.Join(dir, "news.csv")
	cfg.Paths.CleanedCSV = filepath.Join(dir, "cleaned.csv")
	cfg.Paths.ArtifactsDir = filepath.Join(dir, "artifacts")
	cfg.Paths.PlotsDir = filepath.Join(dir, "plots")
	cfg.Paths.ModelDir = filepath.Join(dir, "model")
	cfg.Explore.WordCloudWords = 20
	cfg.Compare.Trees = 5
	return cfg
}

// runAll writes the dataset and runs every stage once.
func runAll(t *testing.T) (*Runner, *RunResult, *bytes.Buffer) {
	t.Helper()
	cfg := testConfig(t)
	writeDataset(t, cfg.Paths.Input)

	var out bytes.Buffer
	r, err := New(cfg, &out)
	require.NoError(t, err)
	res, err := r.Run()
	require.NoError(t, err)
	return r, res, &out
}

func TestRun(t *testing.T) {
	r, res, out := runAll(t)

	assert.Equal(t, 102, res.Clean.Stats.RawRows)
	assert.Equal(t, 1, res.Clean.Stats.NullRows)
	assert.Equal(t, 1, res.Clean.Stats.DuplicateRows)
	assert.Equal(t, 100, res.Clean.Data.Len())

	counts := res.Explore.Summary.LabelCounts
	require.Len(t, counts, 2)
	assert.Equal(t, 50, counts[0].Count)
	assert.Equal(t, 50, counts[1].Count)

	rows, _ := res.Features.X.Dims()
	assert.Equal(t, 100, rows)
	assert.Equal(t, 80, res.Train.Split.YTrain.Len())
	assert.Equal(t, 20, res.Train.Split.YTest.Len())

	ev := res.Evaluation
	assert.Equal(t, 20.0, mat.Sum(ev.Confusion), "confusion counts sum to the test size")
	assert.GreaterOrEqual(t, ev.Accuracy, 0.9)
	assert.GreaterOrEqual(t, ev.AUC, 0.9)

	var written []string
	written = append(written, res.Clean.Path)
	written = append(written, res.Explore.Plots...)
	written = append(written, ev.Plots...)
	written = append(written, res.Deployment.Model, res.Deployment.Vectorizer, res.Deployment.Exported)
	p := r.Config().Paths
	written = append(written, p.Artifact(p.Vectorizer), p.Artifact(p.Features), p.Artifact(p.Labels), p.Artifact(p.Model))
	assert.Len(t, res.Explore.Plots, 4)
	for _, path := range written {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	text := out.String()
	for _, want := range []string{
		"Dataset Info:",
		"Sample Data:",
		"Cleaned Data Sample:",
		"Label Distribution:",
		"Feature Matrix Shape: (100, ",
		"Confusion Matrix:",
		"precision",
		"ROC AUC:",
		"Model and Vectorizer saved successfully",
	} {
		assert.Contains(t, text, want)
	}
}

func TestResumeFromDisk(t *testing.T) {
	r, res, _ := runAll(t)

	data, err := r.LoadCleaned()
	require.NoError(t, err)
	assert.Equal(t, res.Clean.Data.CleanedTexts(), data.CleanedTexts())
	assert.Equal(t, res.Clean.Data.LabelStrings(), data.LabelStrings())

	tr, err := r.LoadTrained()
	require.NoError(t, err)
	assert.Equal(t, res.Train.Split.TestIndex, tr.Split.TestIndex, "split is reproducible")

	want, err := res.Train.Model.DecisionFunction(res.Train.Split.XTest)
	require.NoError(t, err)
	got, err := tr.Model.DecisionFunction(tr.Split.XTest)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))

	var out bytes.Buffer
	r.out = &out
	ev, err := r.Evaluate(tr)
	require.NoError(t, err)
	assert.Equal(t, res.Evaluation.Accuracy, ev.Accuracy)
}

func TestPredict(t *testing.T) {
	r, _, out := runAll(t)
	out.Reset()

	preds, err := r.Predict([]string{
		"SHOCKING: alien conspiracy hoax, UFO over Mars!",
		"The senate passes the budget policy of the president.",
	})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "Fake", preds[0].Label)
	assert.Less(t, preds[0].ProbReal, 0.5)
	assert.Equal(t, "Real", preds[1].Label)
	assert.Greater(t, preds[1].ProbReal, 0.5)
	assert.Contains(t, out.String(), "P(Real)")

	_, err = r.Predict(nil)
	var verr *errors.ValueError
	assert.True(t, errors.As(err, &verr))
}

func TestPredictFeed(t *testing.T) {
	r, _, _ := runAll(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item><title>Miracle cure hoax</title><description>&lt;p&gt;Secret illuminati conspiracy&lt;/p&gt;</description></item>
<item><title>Parliament election</title><description>Minister reports on the economy and the court.</description></item>
</channel></rss>`))
	}))
	defer srv.Close()

	preds, err := r.PredictFeed(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "Fake", preds[0].Label)
	assert.Equal(t, "Real", preds[1].Label)
}

func TestPredictWithoutDeployment(t *testing.T) {
	r, err := New(testConfig(t), &bytes.Buffer{})
	require.NoError(t, err)
	_, err = r.Predict([]string{SampleArticle})
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	r, res, out := runAll(t)
	out.Reset()

	results, err := r.Compare(res.Features)
	require.NoError(t, err)
	require.Len(t, results, 4)

	names := make([]string, len(results))
	for i, c := range results {
		names[i] = c.Name
		assert.GreaterOrEqual(t, c.AUC, 0.0)
		assert.LessOrEqual(t, c.AUC, 1.0)
		assert.GreaterOrEqual(t, c.Accuracy, 0.5, c.Name)
	}
	assert.Equal(t, []string{"Logistic Regression", "Support Vector Machine", "Random Forest", "Naive Bayes"}, names)
	assert.InDelta(t, res.Evaluation.Accuracy, results[0].Accuracy, 1e-12, "compare reuses the training split")
	assert.Contains(t, out.String(), "F1 (macro)")
}

func TestEvaluateSingleClassTestSplit(t *testing.T) {
	r, res, out := runAll(t)
	out.Reset()

	var rows []int
	yTest := res.Train.Split.YTest
	for i := 0; i < yTest.Len(); i++ {
		if yTest.AtVec(i) == 0 {
			rows = append(rows, i)
		}
	}
	require.NotEmpty(t, rows)
	split := &model_selection.Split{
		XTrain: res.Train.Split.XTrain,
		YTrain: res.Train.Split.YTrain,
		XTest:  res.Train.Split.XTest.SelectRows(rows),
		YTest:  mat.NewVecDense(len(rows), nil),
	}

	ev, err := r.Evaluate(&TrainResult{Model: res.Train.Model, Split: split})
	require.NoError(t, err)
	assert.Nil(t, ev.ROC)
	assert.True(t, math.IsNaN(ev.AUC))
	assert.Equal(t, float64(len(rows)), mat.Sum(ev.Confusion))
	require.Len(t, ev.Plots, 1)
	assert.Equal(t, r.Config().Paths.Plot(ConfusionMatrixPlot), ev.Plots[0])
	assert.Contains(t, out.String(), "ROC AUC: undefined")
}

func TestFormatAUC(t *testing.T) {
	tests := []struct {
		auc  float64
		want string
	}{
		{0.98765, "0.9877"},
		{1, "1.0000"},
		{math.NaN(), "undefined (single class in test split)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatAUC(tt.auc))
	}
}

func TestCleanErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown label", "text,label\nhello world,Satire\n"},
		{"missing column", "body,label\nhello world,Fake\n"},
		{"only nulls", "text,label\nNA,Fake\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			require.NoError(t, os.WriteFile(cfg.Paths.Input, []byte(tt.content), 0o600))
			r, err := New(cfg, &bytes.Buffer{})
			require.NoError(t, err)
			_, err = r.Clean()
			assert.Error(t, err)
			_, statErr := os.Stat(cfg.Paths.CleanedCSV)
			assert.True(t, os.IsNotExist(statErr), "no cleaned CSV on failure")
		})
	}

	cfg := testConfig(t)
	r, err := New(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	_, err = r.Clean()
	assert.Error(t, err, "missing input file")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Training.TestSize = 0
	_, err := New(cfg, &bytes.Buffer{})
	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestReadLines(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("first doc\n\n   \nsecond doc  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first doc", "second doc"}, lines)
}
