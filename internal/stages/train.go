package stages

import (
	"fmt"
	"math"
	"text/tabwriter"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/internal/artifacts"
	"github.com/ezoic/newsclf/internal/dataset"
	"github.com/ezoic/newsclf/internal/plots"
	"github.com/ezoic/newsclf/metrics"
	"github.com/ezoic/newsclf/pkg/log"
	"github.com/ezoic/newsclf/sklearn/linear_model"
	"github.com/ezoic/newsclf/sklearn/model_selection"
)

// TrainResult is the output of Train: the fitted model and the split it was trained on.
type TrainResult struct {
	Model *linear_model.LogisticRegression
	Split *model_selection.Split
}

func (r *Runner) newLogisticRegression() *linear_model.LogisticRegression {
	tc := r.cfg.Training
	return linear_model.NewLogisticRegression(
		linear_model.WithLRC(tc.C),
		linear_model.WithLRMaxIter(tc.MaxIter),
		linear_model.WithLRTol(tc.Tol),
	)
}

// Train splits the features, fits logistic regression on the training partition and saves it.
func (r *Runner) Train(f *Features) (*TrainResult, error) {
	var res *TrainResult
	err := r.timed("train", func() error {
		split, err := r.Split(f)
		if err != nil {
			return err
		}
		lr := r.newLogisticRegression()
		if err := lr.Fit(split.XTrain, split.YTrain); err != nil {
			return err
		}
		if err := r.store.SaveModel(lr); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Model Training Completed and Best Model Saved as %s\n",
			r.cfg.Paths.Artifact(r.cfg.Paths.Model))
		res = &TrainResult{Model: lr, Split: split}
		return nil
	})
	return res, err
}

// LoadTrained reloads the saved model and recomputes its split from the saved features.
func (r *Runner) LoadTrained() (*TrainResult, error) {
	f, err := r.LoadFeatures()
	if err != nil {
		return nil, err
	}
	split, err := r.Split(f)
	if err != nil {
		return nil, err
	}
	lr, err := r.store.LoadModel()
	if err != nil {
		return nil, err
	}
	return &TrainResult{Model: lr, Split: split}, nil
}

// Evaluation is the output of Evaluate. ROC is nil and AUC is NaN when the test partition holds
// a single class.
type Evaluation struct {
	Predictions *mat.VecDense
	Confusion   *mat.Dense
	ROC         *metrics.ROC
	AUC         float64
	Accuracy    float64
	Report      *metrics.Report
	Plots       []string
}

// Evaluate predicts the test partition, prints the confusion matrix, accuracy, classification
// report and ROC AUC, and renders the confusion matrix and ROC plots. ROC uses the decision
// function with Real as the positive class.
func (r *Runner) Evaluate(tr *TrainResult) (*Evaluation, error) {
	var res *Evaluation
	err := r.timed("evaluate", func() error {
		names := dataset.LabelNames()
		yTrue := tr.Split.YTest

		pred, err := tr.Model.Predict(tr.Split.XTest)
		if err != nil {
			return err
		}
		labels := make([]float64, len(names))
		for i := range labels {
			labels[i] = float64(i)
		}
		cm, _, err := metrics.ConfusionMatrix(yTrue, pred, labels)
		if err != nil {
			return err
		}
		scores, err := tr.Model.DecisionFunction(tr.Split.XTest)
		if err != nil {
			return err
		}
		var roc *metrics.ROC
		auc := math.NaN()
		if singleClass(yTrue) {
			r.logger.Warn("test split holds a single class, skipping ROC curve",
				log.PhaseKey, log.PhaseEvaluation,
				log.SamplesKey, yTrue.Len(),
			)
		} else {
			roc, err = metrics.ROCCurve(yTrue, mat.VecDenseCopyOf(scores.ColView(0)))
			if err != nil {
				return err
			}
			auc = roc.AUC()
		}
		acc, err := metrics.Accuracy(yTrue, pred)
		if err != nil {
			return err
		}
		report, err := metrics.ClassificationReport(yTrue, pred, names)
		if err != nil {
			return err
		}

		fmt.Fprintln(r.out, "Confusion Matrix:")
		tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprint(tw, "\t")
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t", name)
		}
		fmt.Fprintln(tw)
		for i, name := range names {
			fmt.Fprintf(tw, "%s\t", name)
			for j := range names {
				fmt.Fprintf(tw, "%.0f\t", cm.At(i, j))
			}
			fmt.Fprintln(tw)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "\nAccuracy: %.4f\n\n%s\nROC AUC: %s\n", acc, report, formatAUC(auc))

		res = &Evaluation{
			Predictions: pred,
			Confusion:   cm,
			ROC:         roc,
			AUC:         auc,
			Accuracy:    acc,
			Report:      report,
		}

		cmPath := r.cfg.Paths.Plot(ConfusionMatrixPlot)
		if err := plots.ConfusionMatrix(cmPath, cm, names); err != nil {
			return err
		}
		res.Plots = []string{cmPath}
		if roc != nil {
			rocPath := r.cfg.Paths.Plot(ROCCurvePlot)
			if err := plots.ROCCurve(rocPath, roc); err != nil {
				return err
			}
			res.Plots = append(res.Plots, rocPath)
		}

		r.logger.Info("model evaluated",
			log.PhaseKey, log.PhaseEvaluation,
			log.SamplesKey, yTrue.Len(),
			"accuracy", acc,
			"auc", res.AUC,
		)
		return nil
	})
	return res, err
}

func singleClass(y *mat.VecDense) bool {
	for i := 1; i < y.Len(); i++ {
		if y.AtVec(i) != y.AtVec(0) {
			return false
		}
	}
	return true
}

func formatAUC(auc float64) string {
	if math.IsNaN(auc) {
		return "undefined (single class in test split)"
	}
	return fmt.Sprintf("%.4f", auc)
}

// Export copies the trained model and vectorizer into the deployment directory and writes the
// JSON weight export.
func (r *Runner) Export() (*artifacts.Deployment, error) {
	var res *artifacts.Deployment
	err := r.timed("export", func() error {
		d, err := r.store.Deploy(dataset.LabelNames())
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Model and Vectorizer saved successfully in the %s/ directory.\n", r.cfg.Paths.ModelDir)
		res = d
		return nil
	})
	return res, err
}
