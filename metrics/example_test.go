package metrics_test

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/metrics"
)

// ExampleAUC demonstrates area under the ROC curve on decision scores
func ExampleAUC() {
	// Fake=0, Real=1
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	scores := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})

	auc, err := metrics.AUC(yTrue, scores)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("AUC: %.2f\n", auc)

	// Output: AUC: 0.75
}

// ExampleROCCurve shows the curve points, starting from an infinite threshold
func ExampleROCCurve() {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	scores := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})

	roc, err := metrics.ROCCurve(yTrue, scores)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Println("FPR:", roc.FPR)
	fmt.Println("TPR:", roc.TPR)
	fmt.Println("Thresholds:", roc.Thresholds)

	// Output:
	// FPR: [0 0 0.5 0.5 1]
	// TPR: [0 0.5 0.5 1 1]
	// Thresholds: [+Inf 0.8 0.4 0.35 0.1]
}

// ExampleConfusionMatrix counts true labels by row and predictions by column
func ExampleConfusionMatrix() {
	yTrue := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})
	yPred := mat.NewVecDense(6, []float64{0, 0, 1, 1, 1, 0})

	cm, labels, err := metrics.ConfusionMatrix(yTrue, yPred, nil)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Println("Labels:", labels)
	fmt.Printf("%v\n", mat.Formatted(cm))

	// Output:
	// Labels: [0 1]
	// ⎡2  1⎤
	// ⎣1  2⎦
}

// ExampleAccuracy demonstrates classification accuracy
func ExampleAccuracy() {
	yTrue := mat.NewVecDense(5, []float64{0, 1, 1, 0, 1})
	yPred := mat.NewVecDense(5, []float64{0, 1, 0, 0, 1})

	acc, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("Accuracy: %.1f\n", acc)

	// Output: Accuracy: 0.8
}

// ExampleAveragePrecision demonstrates tie-aware average precision
func ExampleAveragePrecision() {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	scores := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})

	ap, err := metrics.AveragePrecision(yTrue, scores)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("Average Precision: %.4f\n", ap)

	// Output: Average Precision: 0.8333
}
