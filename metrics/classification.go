// Package metrics provides classification metrics compatible with scikit-learn.
//
// Labels are float-valued class codes held in *mat.VecDense, as produced by
// preprocessing.LabelEncoder. Binary metrics treat 1 as the positive class.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	clfErrors "github.com/ezoic/newsclf/pkg/errors"
)

// ROC is a receiver operating characteristic curve.
//
// Thresholds are decreasing; Thresholds[0] is +Inf so the curve starts at (0, 0).
// FPR[i] and TPR[i] are the rates when predicting positive for scores >= Thresholds[i].
type ROC struct {
	FPR        []float64
	TPR        []float64
	Thresholds []float64
}

func validatePair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, clfErrors.NewValueError(op, "input vectors cannot be nil")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, clfErrors.NewValueError(op, "input vectors cannot be empty")
	}
	if n != yPred.Len() {
		return 0, clfErrors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

func validateBinary(yTrue *mat.VecDense) error {
	for i := 0; i < yTrue.Len(); i++ {
		val := yTrue.AtVec(i)
		if val != 0.0 && val != 1.0 {
			return clfErrors.NewValidationError(
				"yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %f at index %d", val, i),
				val,
			)
		}
	}
	return nil
}

// binaryCurve returns cumulative false and true positive counts at each distinct score,
// visiting scores in decreasing order, together with those scores.
func binaryCurve(yTrue, yScore *mat.VecDense) (fps, tps, thresholds []float64) {
	n := yTrue.Len()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return yScore.AtVec(order[a]) > yScore.AtVec(order[b])
	})

	var tp, fp float64
	for k, i := range order {
		if yTrue.AtVec(i) == 1 {
			tp++
		} else {
			fp++
		}
		// Emit a point at the last occurrence of each distinct score.
		if k == n-1 || yScore.AtVec(order[k+1]) != yScore.AtVec(i) {
			fps = append(fps, fp)
			tps = append(tps, tp)
			thresholds = append(thresholds, yScore.AtVec(i))
		}
	}
	return fps, tps, thresholds
}

// ROCCurve computes the ROC curve of binary labels against decision scores or probabilities.
//
// Points that lie on a straight line between their neighbours are dropped, as with
// scikit-learn's drop_intermediate=True. Both classes must be present in yTrue.
//
// Example:
//
//	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//	scores := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})
//	roc, err := ROCCurve(yTrue, scores)
//	// roc.FPR = [0 0 0.5 0.5 1], roc.TPR = [0 0.5 0.5 1 1]
func ROCCurve(yTrue, yScore *mat.VecDense) (*ROC, error) {
	if _, err := validatePair("ROCCurve", yTrue, yScore); err != nil {
		return nil, err
	}
	if err := validateBinary(yTrue); err != nil {
		return nil, err
	}

	fps, tps, thresholds := binaryCurve(yTrue, yScore)
	totalNeg, totalPos := fps[len(fps)-1], tps[len(tps)-1]
	if totalPos == 0 || totalNeg == 0 {
		return nil, clfErrors.NewValueError("ROCCurve",
			"only one class present in yTrue; ROC curve is not defined")
	}

	if len(fps) > 2 {
		keepF, keepT, keepTh := []float64{fps[0]}, []float64{tps[0]}, []float64{thresholds[0]}
		for i := 1; i < len(fps)-1; i++ {
			d2f := fps[i+1] - 2*fps[i] + fps[i-1]
			d2t := tps[i+1] - 2*tps[i] + tps[i-1]
			if d2f != 0 || d2t != 0 {
				keepF = append(keepF, fps[i])
				keepT = append(keepT, tps[i])
				keepTh = append(keepTh, thresholds[i])
			}
		}
		last := len(fps) - 1
		fps = append(keepF, fps[last])
		tps = append(keepT, tps[last])
		thresholds = append(keepTh, thresholds[last])
	}

	roc := &ROC{
		FPR:        make([]float64, 0, len(fps)+1),
		TPR:        make([]float64, 0, len(tps)+1),
		Thresholds: make([]float64, 0, len(thresholds)+1),
	}
	roc.FPR = append(roc.FPR, 0)
	roc.TPR = append(roc.TPR, 0)
	roc.Thresholds = append(roc.Thresholds, math.Inf(1))
	for i := range fps {
		roc.FPR = append(roc.FPR, fps[i]/totalNeg)
		roc.TPR = append(roc.TPR, tps[i]/totalPos)
		roc.Thresholds = append(roc.Thresholds, thresholds[i])
	}
	return roc, nil
}

// TrapezoidArea integrates y over x with the trapezoidal rule. x must be monotonic.
func TrapezoidArea(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, clfErrors.NewDimensionError("TrapezoidArea", len(x), len(y), 0)
	}
	if len(x) < 2 {
		return 0, clfErrors.NewValueError("TrapezoidArea",
			fmt.Sprintf("at least 2 points are needed to compute area under curve, got %d", len(x)))
	}

	direction := 1.0
	increasing, decreasing := true, true
	for i := 1; i < len(x); i++ {
		if x[i] < x[i-1] {
			increasing = false
		}
		if x[i] > x[i-1] {
			decreasing = false
		}
	}
	switch {
	case increasing:
	case decreasing:
		direction = -1
	default:
		return 0, clfErrors.NewValueError("TrapezoidArea", "x is neither increasing nor decreasing")
	}

	area := 0.0
	for i := 1; i < len(x); i++ {
		area += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return direction * area, nil
}

// AUC returns the area under the ROC curve.
func (r *ROC) AUC() float64 {
	// FPR is non-decreasing by construction.
	area, _ := TrapezoidArea(r.FPR, r.TPR)
	return area
}

// AUC calculates the Area Under the ROC Curve for binary classification.
//
// The AUC represents the probability that a classifier will rank a randomly
// chosen positive instance higher than a randomly chosen negative instance.
// AUC values range from 0 to 1, where:
//   - 0.5 indicates random guessing
//   - 1.0 indicates perfect classification
//   - 0.0 indicates perfectly wrong classification
//
// Parameters:
//   - yTrue: Ground truth binary labels (0 or 1)
//   - yPred: Predicted probabilities or decision scores
//
// Returns:
//   - The AUC score
//   - An error if inputs are invalid or yTrue holds a single class
//
// Example:
//
//	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//	yPred := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})
//	auc, err := AUC(yTrue, yPred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("AUC: %f\n", auc) // Output: AUC: 0.750000
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	roc, err := ROCCurve(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return roc.AUC(), nil
}

// BinaryLogLoss calculates the binary cross-entropy loss for binary classification.
//
// Parameters:
//   - yTrue: Ground truth binary labels (0 or 1)
//   - yPred: Predicted probabilities of the positive class
//
// Returns:
//   - The average binary log loss
//   - An error if inputs are invalid
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := validateBinary(yTrue); err != nil {
		return 0, err
	}

	// Clip predictions to avoid log(0)
	const epsilon = 1e-15
	loss := 0.0
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(yPred.AtVec(i), epsilon), 1-epsilon)
		if yTrue.AtVec(i) == 1.0 {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1 - p)
		}
	}
	return loss / float64(n), nil
}

// ClassificationError calculates the classification error rate.
//
// Example:
//
//	yTrue := mat.NewVecDense(5, []float64{0, 1, 2, 1, 0})
//	yPred := mat.NewVecDense(5, []float64{0, 1, 1, 1, 0})
//	errorRate, err := ClassificationError(yTrue, yPred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Error Rate: %.1f\n", errorRate) // Output: Error Rate: 0.2
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("ClassificationError", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	wrong := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) != yPred.AtVec(i) {
			wrong++
		}
	}
	return float64(wrong) / float64(n), nil
}

// Accuracy calculates the classification accuracy (fraction of correct predictions).
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	errorRate, err := ClassificationError(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1.0 - errorRate, nil
}

// ConfusionMatrix counts predictions per (true, predicted) label pair.
//
// Row i holds samples whose true label is labels[i]; column j those predicted as labels[j].
// With nil labels the sorted union of yTrue and yPred is used. Samples whose true or
// predicted label is not in labels are ignored.
//
// Returns the matrix and the label order used.
func ConfusionMatrix(yTrue, yPred *mat.VecDense, labels []float64) (*mat.Dense, []float64, error) {
	n, err := validatePair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}

	if labels == nil {
		seen := make(map[float64]bool)
		for i := 0; i < n; i++ {
			seen[yTrue.AtVec(i)] = true
			seen[yPred.AtVec(i)] = true
		}
		for l := range seen {
			labels = append(labels, l)
		}
		sort.Float64s(labels)
	}
	if len(labels) == 0 {
		return nil, nil, clfErrors.NewValueError("ConfusionMatrix", "labels cannot be empty")
	}

	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		if _, dup := index[l]; dup {
			return nil, nil, clfErrors.NewValidationError("labels", "must be unique", l)
		}
		index[l] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		r, okT := index[yTrue.AtVec(i)]
		c, okP := index[yPred.AtVec(i)]
		if okT && okP {
			cm.Set(r, c, cm.At(r, c)+1)
		}
	}
	return cm, labels, nil
}
