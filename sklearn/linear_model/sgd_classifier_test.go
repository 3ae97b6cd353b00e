package linear_model

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/pkg/errors"
)

// TestSGDClassifierHingeFit は線形分離可能なデータでの学習をテスト
func TestSGDClassifierHingeFit(t *testing.T) {
	X, y := twoClusters()

	sgd := NewSGDClassifier(WithClassifierRandomState(42))
	if err := sgd.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if !sgd.IsFitted() {
		t.Error("Model should be fitted after Fit()")
	}

	acc, err := sgd.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if acc != 1.0 {
		t.Errorf("Expected training accuracy 1.0, got %f", acc)
	}
	if sgd.NIterations() < 1 {
		t.Errorf("Expected at least one epoch, got %d", sgd.NIterations())
	}
}

// TestSGDClassifierSeedReproducible は同じシードで同じ重みになることをテスト
func TestSGDClassifierSeedReproducible(t *testing.T) {
	X, y := twoClusters()

	a := NewSGDClassifier(WithClassifierLoss("log_loss"), WithClassifierRandomState(7))
	b := NewSGDClassifier(WithClassifierLoss("log_loss"), WithClassifierRandomState(7))
	if err := a.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	ca, cb := a.Coef()[0], b.Coef()[0]
	for j := range ca {
		if ca[j] != cb[j] {
			t.Errorf("Coefficient %d differs: %v vs %v", j, ca[j], cb[j])
		}
	}
	if a.Intercept()[0] != b.Intercept()[0] {
		t.Errorf("Intercept differs: %v vs %v", a.Intercept()[0], b.Intercept()[0])
	}
}

// TestSGDClassifierErrors はエラー処理をテスト
func TestSGDClassifierErrors(t *testing.T) {
	X, y := twoClusters()
	sgd := NewSGDClassifier()

	if _, err := sgd.Predict(X); err == nil {
		t.Error("Expected NotFittedError before Fit")
	}

	var dimErr *errors.DimensionError
	if err := sgd.Fit(X, mat.NewVecDense(10, nil)); !errors.As(err, &dimErr) {
		t.Errorf("Expected DimensionError, got %v", err)
	}

	bad := NewSGDClassifier(WithClassifierLoss("perceptron"))
	var vErr *errors.ValidationError
	if err := bad.Fit(X, y); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for unsupported loss, got %v", err)
	}
}
