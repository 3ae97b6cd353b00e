package metrics

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	clfErrors "github.com/ezoic/newsclf/pkg/errors"
)

// ClassScores holds per-class precision, recall, F1 and support.
type ClassScores struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is the data behind scikit-learn's classification_report.
type Report struct {
	Classes     []ClassScores
	Accuracy    float64
	MacroAvg    ClassScores
	WeightedAvg ClassScores
}

// ClassificationReport computes precision, recall and F1 for each class code 0..len(names)-1,
// naming class i names[i]. Undefined ratios (no predicted or no true samples) are 0.
//
// Example:
//
//	rep, err := metrics.ClassificationReport(yTest, yPred, []string{"Fake", "Real"})
//	fmt.Print(rep)
func ClassificationReport(yTrue, yPred *mat.VecDense, names []string) (*Report, error) {
	if len(names) == 0 {
		return nil, clfErrors.NewValueError("ClassificationReport", "names cannot be empty")
	}
	labels := make([]float64, len(names))
	for i := range labels {
		labels[i] = float64(i)
	}

	cm, _, err := ConfusionMatrix(yTrue, yPred, labels)
	if err != nil {
		return nil, err
	}

	k := len(names)
	rep := &Report{Classes: make([]ClassScores, k)}
	total, correct := 0, 0
	for i := 0; i < k; i++ {
		var tp, predicted, actual float64
		tp = cm.At(i, i)
		for j := 0; j < k; j++ {
			predicted += cm.At(j, i)
			actual += cm.At(i, j)
		}

		s := ClassScores{Label: names[i], Support: int(actual)}
		s.Precision = safeDiv(tp, predicted)
		s.Recall = safeDiv(tp, actual)
		s.F1 = safeDiv(2*s.Precision*s.Recall, s.Precision+s.Recall)
		rep.Classes[i] = s

		total += int(actual)
		correct += int(tp)
	}
	rep.Accuracy = safeDiv(float64(correct), float64(total))

	rep.MacroAvg = ClassScores{Label: "macro avg", Support: total}
	rep.WeightedAvg = ClassScores{Label: "weighted avg", Support: total}
	for _, s := range rep.Classes {
		rep.MacroAvg.Precision += s.Precision / float64(k)
		rep.MacroAvg.Recall += s.Recall / float64(k)
		rep.MacroAvg.F1 += s.F1 / float64(k)

		w := safeDiv(float64(s.Support), float64(total))
		rep.WeightedAvg.Precision += s.Precision * w
		rep.WeightedAvg.Recall += s.Recall * w
		rep.WeightedAvg.F1 += s.F1 * w
	}
	return rep, nil
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// String renders the report in scikit-learn's classification_report text layout.
func (r *Report) String() string {
	width := len(r.WeightedAvg.Label)
	for _, s := range r.Classes {
		width = max(width, len(s.Label))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(s ClassScores) {
		fmt.Fprintf(&sb, "%*s  %9.2f %9.2f %9.2f %9d\n", width, s.Label, s.Precision, s.Recall, s.F1, s.Support)
	}
	for _, s := range r.Classes {
		row(s)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return sb.String()
}
