package metrics

import (
	"gonum.org/v1/gonum/mat"

	clfErrors "github.com/ezoic/newsclf/pkg/errors"
)

// AveragePrecision summarises the precision-recall curve of binary labels against scores.
//
// The formula is:
//
//	AP = Σ_n (R_n - R_{n-1}) P_n
//
// where P_n and R_n are precision and recall at the n-th distinct score threshold, taken in
// decreasing order. Tied scores form a single threshold, as in scikit-learn's
// average_precision_score.
//
// Parameters:
//   - yTrue: Ground truth binary labels (0 or 1)
//   - yScore: Predicted scores or probabilities of the positive class
//
// Returns:
//   - The Average Precision score
//   - An error if inputs are invalid or yTrue has no positive sample
//
// Example:
//
//	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//	yScore := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})
//	ap, err := AveragePrecision(yTrue, yScore)
//	// ap = 0.8333...
func AveragePrecision(yTrue, yScore *mat.VecDense) (float64, error) {
	if _, err := validatePair("AveragePrecision", yTrue, yScore); err != nil {
		return 0, err
	}
	if err := validateBinary(yTrue); err != nil {
		return 0, err
	}

	fps, tps, _ := binaryCurve(yTrue, yScore)
	totalPos := tps[len(tps)-1]
	if totalPos == 0 {
		return 0, clfErrors.NewValueError("AveragePrecision",
			"no positive samples in yTrue; average precision is not defined")
	}

	ap, prevRecall := 0.0, 0.0
	for i := range tps {
		precision := tps[i] / (tps[i] + fps[i])
		recall := tps[i] / totalPos
		ap += (recall - prevRecall) * precision
		prevRecall = recall
	}
	return ap, nil
}
