package errors_test

import (
	"fmt"
	"math"

	clfErrors "github.com/ezoic/newsclf/pkg/errors"
)

// Example shows how a stage wraps an estimator error and how callers recover the typed cause.
func Example() {
	cause := clfErrors.NewValidationError("label", "unseen label at row 3", "Satire")
	err := clfErrors.Wrapf(cause, "clean %s", "news.csv")

	fmt.Println(err)

	var ve *clfErrors.ValidationError
	if clfErrors.As(err, &ve) {
		fmt.Printf("bad %s: %v\n", ve.ParamName, ve.Value)
	}

	// Output:
	// clean news.csv: newsclf: invalid label: unseen label at row 3 (value: Satire)
	// bad label: Satire
}

func ExampleNotFittedError() {
	err := clfErrors.NewNotFittedError("TfidfVectorizer", "Transform")
	fmt.Println(err)

	// Output:
	// newsclf: TfidfVectorizer: this instance is not fitted yet; call Fit before Transform
}

func ExampleDimensionError() {
	err := clfErrors.NewDimensionError("LogisticRegression.DecisionFunction", 5000, 4870, 1)
	fmt.Println(err)

	// Output:
	// newsclf: LogisticRegression.DecisionFunction: dimension mismatch in columns: expected 5000, got 4870
}

func ExampleModelError() {
	err := clfErrors.Wrap(
		clfErrors.NewModelError("TfidfVectorizer.Fit", "empty corpus", clfErrors.ErrEmptyData),
		"feature extraction")

	fmt.Println(err)
	fmt.Println(clfErrors.Is(err, clfErrors.ErrEmptyData))

	// Output:
	// feature extraction: newsclf: TfidfVectorizer.Fit: empty corpus: empty data
	// true
}

func ExampleCheckScalar() {
	fmt.Println(clfErrors.CheckScalar("loss", 0.42, 7))

	err := clfErrors.CheckScalar("loss", math.NaN(), 8)
	fmt.Println(err)
	fmt.Println(clfErrors.Is(err, clfErrors.ErrNumerical))

	// Output:
	// <nil>
	// newsclf: loss (iteration 8): non-finite value NaN: numerical instability
	// true
}

func ExampleSetWarningHandler() {
	prev := clfErrors.SetWarningHandler(func(w error) { fmt.Println("warning:", w) })
	defer clfErrors.SetWarningHandler(prev)

	clfErrors.Warn(clfErrors.NewConvergenceWarning("lbfgs", 100, "increase max_iter"))

	// Output:
	// warning: newsclf: lbfgs failed to converge after 100 iterations: increase max_iter
}
