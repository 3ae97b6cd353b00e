package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/core/model"
	clfErrors "github.com/ezoic/newsclf/pkg/errors"
)

// LabelEncoder はscikit-learn互換のラベルエンコーダー
// Maps string class labels to integer codes 0..n_classes-1 in sorted label order, so
// {"Fake", "Real"} encodes as Fake=0, Real=1.
type LabelEncoder struct {
	model.BaseEstimator

	// Classes holds the sorted unique labels seen during Fit.
	Classes []string

	// ClassToIdx maps a label to its code.
	ClassToIdx map[string]int
}

// NewLabelEncoder creates an unfitted LabelEncoder.
//
// Example:
//
//	enc := preprocessing.NewLabelEncoder()
//	y, err := enc.FitTransform([]string{"Real", "Fake", "Real"})
//	// y = [1, 0, 1]
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{BaseEstimator: model.BaseEstimator{ModelType: "LabelEncoder"}}
}

// NewLabelEncoderWithClasses creates a LabelEncoder already fitted on classes.
func NewLabelEncoderWithClasses(classes ...string) (*LabelEncoder, error) {
	e := NewLabelEncoder()
	if err := e.Fit(classes); err != nil {
		return nil, err
	}
	return e, nil
}

// Fit learns the sorted set of labels.
func (e *LabelEncoder) Fit(labels []string) (err error) {
	defer clfErrors.Recover(&err, "LabelEncoder.Fit")
	if len(labels) == 0 {
		return clfErrors.NewModelError("LabelEncoder.Fit", "empty labels", clfErrors.ErrEmptyData)
	}

	seen := make(map[string]bool)
	for _, l := range labels {
		seen[l] = true
	}

	e.Classes = make([]string, 0, len(seen))
	for l := range seen {
		e.Classes = append(e.Classes, l)
	}
	sort.Strings(e.Classes)

	e.ClassToIdx = make(map[string]int, len(e.Classes))
	for idx, l := range e.Classes {
		e.ClassToIdx[l] = idx
	}

	e.SetFitted()
	return nil
}

// Transform encodes labels as an n×1 column of class codes. Unknown labels are an error.
func (e *LabelEncoder) Transform(labels []string) (_ *mat.VecDense, err error) {
	defer clfErrors.Recover(&err, "LabelEncoder.Transform")
	if !e.IsFitted() {
		return nil, clfErrors.NewNotFittedError("LabelEncoder", "Transform")
	}

	if len(labels) == 0 {
		return &mat.VecDense{}, nil
	}

	y := mat.NewVecDense(len(labels), nil)
	for i, l := range labels {
		idx, ok := e.ClassToIdx[l]
		if !ok {
			return nil, clfErrors.NewValidationError("label",
				fmt.Sprintf("unseen label at row %d; known labels are %v", i, e.Classes), l)
		}
		y.SetVec(i, float64(idx))
	}
	return y, nil
}

// FitTransform fits on labels and encodes them.
func (e *LabelEncoder) FitTransform(labels []string) (_ *mat.VecDense, err error) {
	defer clfErrors.Recover(&err, "LabelEncoder.FitTransform")
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// InverseTransform decodes class codes back to labels.
func (e *LabelEncoder) InverseTransform(y mat.Vector) (_ []string, err error) {
	defer clfErrors.Recover(&err, "LabelEncoder.InverseTransform")
	if !e.IsFitted() {
		return nil, clfErrors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}

	out := make([]string, y.Len())
	for i := range out {
		v := y.AtVec(i)
		idx := int(v)
		if float64(idx) != v || idx < 0 || idx >= len(e.Classes) {
			return nil, clfErrors.NewValidationError("code",
				fmt.Sprintf("must be an integer in [0, %d)", len(e.Classes)), v)
		}
		out[i] = e.Classes[idx]
	}
	return out, nil
}
