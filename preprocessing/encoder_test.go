package preprocessing_test

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/preprocessing"
)

func TestLabelEncoder_Fit(t *testing.T) {
	encoder := preprocessing.NewLabelEncoder()

	err := encoder.Fit([]string{"Real", "Fake", "Real", "Fake", "Fake"})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if !encoder.IsFitted() {
		t.Error("Encoder should be fitted after Fit()")
	}

	// Classes are sorted so Fake encodes as 0 and Real as 1
	expected := []string{"Fake", "Real"}
	if len(encoder.Classes) != len(expected) {
		t.Fatalf("Expected %d classes, got %d", len(expected), len(encoder.Classes))
	}
	for i, want := range expected {
		if encoder.Classes[i] != want {
			t.Errorf("Class %d: expected %s, got %s", i, want, encoder.Classes[i])
		}
		if encoder.ClassToIdx[want] != i {
			t.Errorf("ClassToIdx[%s]: expected %d, got %d", want, i, encoder.ClassToIdx[want])
		}
	}
}

func TestLabelEncoder_TransformAndInverse(t *testing.T) {
	encoder := preprocessing.NewLabelEncoder()

	labels := []string{"Real", "Fake", "Fake", "Real"}
	y, err := encoder.FitTransform(labels)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	want := mat.NewVecDense(4, []float64{1, 0, 0, 1})
	if !mat.Equal(y, want) {
		t.Errorf("Expected %v, got %v", mat.Formatted(want.T()), mat.Formatted(y.T()))
	}

	back, err := encoder.InverseTransform(y)
	if err != nil {
		t.Fatalf("InverseTransform failed: %v", err)
	}
	for i := range labels {
		if back[i] != labels[i] {
			t.Errorf("Row %d: expected %s, got %s", i, labels[i], back[i])
		}
	}
}

func TestLabelEncoder_Errors(t *testing.T) {
	encoder := preprocessing.NewLabelEncoder()

	if _, err := encoder.Transform([]string{"Fake"}); err == nil {
		t.Error("Expected NotFittedError for unfitted encoder")
	}

	if err := encoder.Fit(nil); err == nil {
		t.Error("Expected error for empty labels")
	}

	encoder, err := preprocessing.NewLabelEncoderWithClasses("Fake", "Real")
	if err != nil {
		t.Fatalf("NewLabelEncoderWithClasses failed: %v", err)
	}

	if _, err := encoder.Transform([]string{"Fake", "Satire"}); err == nil {
		t.Error("Expected error for unseen label")
	}

	if _, err := encoder.InverseTransform(mat.NewVecDense(1, []float64{2})); err == nil {
		t.Error("Expected error for out-of-range code")
	}

	if _, err := encoder.InverseTransform(mat.NewVecDense(1, []float64{0.5})); err == nil {
		t.Error("Expected error for non-integer code")
	}
}
