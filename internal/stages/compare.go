package stages

import (
	"fmt"
	"math"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/internal/dataset"
	"github.com/ezoic/newsclf/metrics"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
	"github.com/ezoic/newsclf/sklearn/linear_model"
	"github.com/ezoic/newsclf/sklearn/naive_bayes"
	"github.com/ezoic/newsclf/sklearn/tree"
)

type classifier interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

type decisionFunc interface {
	DecisionFunction(X mat.Matrix) (*mat.Dense, error)
}

type probaFunc interface {
	PredictProba(X mat.Matrix) (*mat.Dense, error)
}

// candidate is a model compared against the deployed logistic regression.
type candidate struct {
	name  string
	model classifier
}

// CandidateResult holds the held-out metrics of one compared model.
type CandidateResult struct {
	Name     string
	Accuracy float64
	MacroF1  float64
	AUC      float64
	FitTime  time.Duration
}

func (r *Runner) candidates() []candidate {
	cc := r.cfg.Compare
	seed := r.cfg.Training.RandomState
	return []candidate{
		{"Logistic Regression", r.newLogisticRegression()},
		{"Support Vector Machine", linear_model.NewSGDClassifier(
			linear_model.WithClassifierLoss("hinge"),
			linear_model.WithClassifierAlpha(cc.SGDAlpha),
			linear_model.WithClassifierMaxIter(cc.SGDMaxIter),
			linear_model.WithClassifierRandomState(seed),
		)},
		{"Random Forest", tree.NewRandomForestClassifier(
			tree.WithNEstimators(cc.Trees),
			tree.WithForestMaxDepth(cc.MaxDepth),
			tree.WithForestRandomState(seed),
		)},
		{"Naive Bayes", naive_bayes.NewMultinomialNB(naive_bayes.WithAlpha(cc.SmoothAlpha))},
	}
}

// rankScores returns a score per sample that grows with the likelihood of Real: the decision
// function for margin models, otherwise the probability of class 1.
func rankScores(m classifier, X mat.Matrix) (*mat.VecDense, error) {
	switch est := m.(type) {
	case decisionFunc:
		d, err := est.DecisionFunction(X)
		if err != nil {
			return nil, err
		}
		return mat.VecDenseCopyOf(d.ColView(0)), nil
	case probaFunc:
		p, err := est.PredictProba(X)
		if err != nil {
			return nil, err
		}
		return mat.VecDenseCopyOf(p.ColView(1)), nil
	}
	return nil, errors.Newf("stages: %T cannot rank samples", m)
}

// Compare fits every candidate on the training partition of f and prints their held-out
// accuracy, macro F1 and ROC AUC. Nothing is saved; the deployed model stays logistic regression.
func (r *Runner) Compare(f *Features) ([]CandidateResult, error) {
	var results []CandidateResult
	err := r.timed("compare", func() error {
		split, err := r.Split(f)
		if err != nil {
			return err
		}
		names := dataset.LabelNames()

		for _, c := range r.candidates() {
			start := time.Now()
			if err := c.model.Fit(split.XTrain, split.YTrain); err != nil {
				return errors.Wrapf(err, "candidate %s", c.name)
			}
			fitTime := time.Since(start)

			pred, err := c.model.Predict(split.XTest)
			if err != nil {
				return err
			}
			report, err := metrics.ClassificationReport(split.YTest, pred, names)
			if err != nil {
				return err
			}
			scores, err := rankScores(c.model, split.XTest)
			if err != nil {
				return err
			}
			auc := math.NaN()
			if !singleClass(split.YTest) {
				if auc, err = metrics.AUC(split.YTest, scores); err != nil {
					return err
				}
			}

			res := CandidateResult{
				Name:     c.name,
				Accuracy: report.Accuracy,
				MacroF1:  report.MacroAvg.F1,
				AUC:      auc,
				FitTime:  fitTime,
			}
			r.logger.Info("candidate evaluated",
				log.ModelNameKey, c.name,
				log.PhaseKey, log.PhaseEvaluation,
				"accuracy", res.Accuracy,
				"f1_macro", res.MacroF1,
				"auc", res.AUC,
				log.DurationMsKey, fitTime.Milliseconds(),
			)
			results = append(results, res)
		}

		tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "Model\tAccuracy\tF1 (macro)\tROC AUC\tFit time")
		for _, res := range results {
			fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%s\t%s\n",
				res.Name, res.Accuracy, res.MacroF1, formatAUC(res.AUC), res.FitTime.Round(time.Millisecond))
		}
		return tw.Flush()
	})
	return results, err
}
