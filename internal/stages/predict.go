package stages

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/ezoic/newsclf/internal/feed"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
	"github.com/ezoic/newsclf/sklearn/pipeline"
)

// SampleArticle is classified by predict when no input is given.
const SampleArticle = "Breaking news! Alien life was discovered on Mars by private space agencies."

const previewLen = 60

// Prediction is the classification of one document.
type Prediction struct {
	Text     string
	Label    string
	ProbReal float64
}

// LoadPredictor assembles normalizer, deployed vectorizer and deployed model into a fitted
// text pipeline.
func (r *Runner) LoadPredictor() (*pipeline.Pipeline, error) {
	vec, model, err := r.store.LoadDeployed()
	if err != nil {
		return nil, err
	}
	return pipeline.NewFitted([]pipeline.Step{
		{Name: "normalize", Estimator: r.normalizer},
		{Name: "tfidf", Estimator: vec},
		{Name: "clf", Estimator: model},
	})
}

// Predict classifies raw documents with the deployed artifacts and prints one line per document.
func (r *Runner) Predict(texts []string) ([]Prediction, error) {
	if len(texts) == 0 {
		return nil, errors.NewValueError("stages.Predict", "no documents to classify")
	}
	var out []Prediction
	err := r.timed("predict", func() error {
		p, err := r.LoadPredictor()
		if err != nil {
			return err
		}
		codes, err := p.Predict(texts)
		if err != nil {
			return err
		}
		proba, err := p.PredictProba(texts)
		if err != nil {
			return err
		}
		labels, err := encoder().InverseTransform(codes)
		if err != nil {
			return err
		}

		out = make([]Prediction, len(texts))
		tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "label\tP(Real)\ttext")
		for i, t := range texts {
			out[i] = Prediction{Text: t, Label: labels[i], ProbReal: proba.At(i, 1)}
			fmt.Fprintf(tw, "%s\t%.3f\t%s\n", out[i].Label, out[i].ProbReal, preview(t))
		}
		r.logger.Info("documents classified", log.PhaseKey, log.PhaseInference, log.PredsKey, len(out))
		return tw.Flush()
	})
	return out, err
}

// PredictFeed fetches the feed at url and classifies its items.
func (r *Runner) PredictFeed(ctx context.Context, url string) ([]Prediction, error) {
	fc := r.cfg.Feed
	fetcher := feed.NewFetcher(
		feed.WithTimeout(fc.Timeout),
		feed.WithMaxItems(fc.MaxItems),
		feed.WithUserAgent(fc.UserAgent),
	)
	items, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.NewValueError("stages.PredictFeed", "feed has no items: "+url)
	}
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Text
	}
	return r.Predict(texts)
}

// ReadLines returns the non-blank lines of r, one document per line.
func ReadLines(rd io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), feed.MaxTextLen*4)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "stages: read documents")
	}
	return out, nil
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	return string([]rune(s)[:previewLen-3]) + "..."
}
