// Package pipeline chains text preprocessing, vectorization and a final classifier, in the manner
// of sklearn.pipeline.Pipeline applied to raw documents.
//
// Steps run in order: zero or more TextTransformer steps, exactly one Vectorizer, then the final
// Classifier.
//
//	p, err := pipeline.New(
//		pipeline.Step{Name: "normalize", Estimator: text.NewNormalizer()},
//		pipeline.Step{Name: "tfidf", Estimator: vec},
//		pipeline.Step{Name: "clf", Estimator: lr},
//	)
//	pred, err := p.Predict([]string{"Breaking news!"})
package pipeline

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/core/model"
	"github.com/ezoic/newsclf/core/sparse"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
)

// TextTransformer maps documents to documents.
type TextTransformer interface {
	NormalizeAll(docs []string) []string
}

// Vectorizer turns documents into a sparse feature matrix.
type Vectorizer interface {
	Fit(docs []string) error
	Transform(docs []string) (*sparse.CSR, error)
}

// Classifier is the final estimator.
type Classifier interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// Step is a named pipeline stage.
type Step struct {
	Name      string      // Name of this step (for identification)
	Estimator interface{} // TextTransformer, Vectorizer or Classifier
}

// Pipeline is a fitted or unfitted chain of steps.
type Pipeline struct {
	state  *model.StateManager
	logger log.Logger

	steps      []Step
	text       []TextTransformer
	vectorizer Vectorizer
	classifier Classifier
	verbose    bool

	namedSteps_ map[string]interface{}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithVerbose logs the elapsed time of every step.
func WithVerbose(v bool) Option {
	return func(p *Pipeline) {
		p.verbose = v
	}
}

// New validates the step order and builds an unfitted Pipeline.
func New(steps []Step, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		state:       model.NewStateManager(),
		logger:      log.GetLoggerWithName("Pipeline"),
		steps:       steps,
		namedSteps_: make(map[string]interface{}, len(steps)),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i, step := range steps {
		if _, dup := p.namedSteps_[step.Name]; dup {
			return nil, errors.NewValidationError("pipeline step", "duplicate step name", step.Name)
		}
		p.namedSteps_[step.Name] = step.Estimator

		switch est := step.Estimator.(type) {
		case TextTransformer:
			if p.vectorizer != nil {
				return nil, errors.NewValidationError("pipeline step",
					"text steps must come before the vectorizer", step.Name)
			}
			p.text = append(p.text, est)
		case Vectorizer:
			if p.vectorizer != nil {
				return nil, errors.NewValidationError("pipeline step", "only one vectorizer is allowed", step.Name)
			}
			p.vectorizer = est
		case Classifier:
			if p.vectorizer == nil || i != len(steps)-1 {
				return nil, errors.NewValidationError("pipeline final step",
					"the classifier must be the last step, after the vectorizer", step.Name)
			}
			p.classifier = est
		default:
			return nil, errors.NewValidationError("pipeline step",
				fmt.Sprintf("unsupported estimator type %T", step.Estimator), step.Name)
		}
	}
	if p.classifier == nil {
		return nil, errors.NewValidationError("pipeline final step", "a classifier is required", len(steps))
	}
	return p, nil
}

// NewFitted wraps steps that are already fitted, e.g. loaded from disk.
func NewFitted(steps []Step, opts ...Option) (*Pipeline, error) {
	p, err := New(steps, opts...)
	if err != nil {
		return nil, err
	}
	p.state.SetFitted()
	return p, nil
}

func (p *Pipeline) timed(name string, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		return err
	}
	if p.verbose {
		p.logger.Info("pipeline step done", log.StageKey, name, log.DurationMsKey, time.Since(start).Milliseconds())
	}
	return nil
}

func (p *Pipeline) vectorizerName() string {
	return p.steps[len(p.text)].Name
}

// preprocess runs the text steps.
func (p *Pipeline) preprocess(docs []string) []string {
	for i, t := range p.text {
		_ = p.timed(p.steps[i].Name, func() error {
			docs = t.NormalizeAll(docs)
			return nil
		})
	}
	return docs
}

// Fit fits the vectorizer on the preprocessed documents, then the classifier on its output.
func (p *Pipeline) Fit(docs []string, y mat.Matrix) error {
	docs = p.preprocess(docs)

	var X *sparse.CSR
	name := p.vectorizerName()
	err := p.timed(name, func() error {
		if err := p.vectorizer.Fit(docs); err != nil {
			return errors.Wrapf(err, "failed to fit step '%s'", name)
		}
		var err error
		if X, err = p.vectorizer.Transform(docs); err != nil {
			return errors.Wrapf(err, "failed to transform at step '%s'", name)
		}
		return nil
	})
	if err != nil {
		return err
	}

	final := p.steps[len(p.steps)-1].Name
	err = p.timed(final, func() error {
		if err := p.classifier.Fit(X, y); err != nil {
			return errors.Wrapf(err, "failed to fit final step '%s'", final)
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.state.SetFitted()
	return nil
}

// Transform applies the text steps and the vectorizer.
func (p *Pipeline) Transform(docs []string) (*sparse.CSR, error) {
	if !p.state.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Transform")
	}
	X, err := p.vectorizer.Transform(p.preprocess(docs))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to transform at step '%s'", p.vectorizerName())
	}
	return X, nil
}

// Predict returns the class code of every document.
func (p *Pipeline) Predict(docs []string) (*mat.VecDense, error) {
	X, err := p.Transform(docs)
	if err != nil {
		return nil, err
	}
	return p.classifier.Predict(X)
}

// PredictProba returns class probabilities when the classifier supports them.
func (p *Pipeline) PredictProba(docs []string) (*mat.Dense, error) {
	predictor, ok := p.classifier.(interface {
		PredictProba(mat.Matrix) (*mat.Dense, error)
	})
	if !ok {
		return nil, errors.NewValidationError("pipeline final step",
			"final step must have PredictProba method", p.steps[len(p.steps)-1].Name)
	}
	X, err := p.Transform(docs)
	if err != nil {
		return nil, err
	}
	return predictor.PredictProba(X)
}

// Score returns the mean accuracy of Predict against y.
func (p *Pipeline) Score(docs []string, y mat.Vector) (float64, error) {
	pred, err := p.Predict(docs)
	if err != nil {
		return 0, err
	}
	if pred.Len() != y.Len() {
		return 0, errors.NewDimensionError("Pipeline.Score", pred.Len(), y.Len(), 0)
	}
	if y.Len() == 0 {
		return 0, errors.NewModelError("Pipeline.Score", "empty data", errors.ErrEmptyData)
	}
	correct := 0
	for i := 0; i < y.Len(); i++ {
		if pred.AtVec(i) == y.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(y.Len()), nil
}

// IsFitted reports whether the pipeline can predict.
func (p *Pipeline) IsFitted() bool { return p.state.IsFitted() }

// GetParams returns the parameters of every step, prefixed with the step name.
func (p *Pipeline) GetParams() map[string]interface{} {
	params := map[string]interface{}{"verbose": p.verbose}
	for _, step := range p.steps {
		var stepParams map[string]interface{}
		switch g := step.Estimator.(type) {
		case interface{ GetParams() map[string]interface{} }:
			stepParams = g.GetParams()
		case interface {
			GetParams(bool) map[string]interface{}
		}:
			stepParams = g.GetParams(false)
		}
		for key, value := range stepParams {
			params[fmt.Sprintf("%s__%s", step.Name, key)] = value
		}
	}
	return params
}

// NamedSteps returns the steps keyed by name.
func (p *Pipeline) NamedSteps() map[string]interface{} {
	return p.namedSteps_
}

// Steps returns a copy of the step list.
func (p *Pipeline) Steps() []Step {
	steps := make([]Step, len(p.steps))
	copy(steps, p.steps)
	return steps
}
