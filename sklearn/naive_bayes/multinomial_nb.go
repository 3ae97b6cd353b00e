// Package naive_bayes provides naive Bayes classifiers for count and TF-IDF features.
package naive_bayes

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/core/model"
	"github.com/ezoic/newsclf/core/sparse"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
)

// MultinomialNB implements the Multinomial Naive Bayes classifier
// for non-negative features such as word counts or TF-IDF weights.
// Scikit-learn compatible; inputs are processed in CSR form.
type MultinomialNB struct {
	state  *model.StateManager
	logger log.Logger

	alpha      float64
	fitPrior   bool
	classPrior []float64

	classes_        []int
	classLogPrior_  []float64
	featureLogProb_ [][]float64 // [class][feature] log P(term | class)
	featureCount_   [][]float64 // summed feature weights per class
	classCount_     []float64
	nFeatures_      int

	mu sync.RWMutex
}

// NewMultinomialNB returns a classifier with Laplace smoothing (alpha=1) and learned priors.
func NewMultinomialNB(options ...MultinomialNBOption) *MultinomialNB {
	nb := &MultinomialNB{
		alpha:    1.0,
		fitPrior: true,
		state:    model.NewStateManager(),
	}
	for _, opt := range options {
		opt(nb)
	}
	return nb
}

// MultinomialNBOption configures a MultinomialNB.
type MultinomialNBOption func(*MultinomialNB)

func (nb *MultinomialNB) log() log.Logger {
	if nb.logger == nil {
		nb.logger = log.GetLoggerWithName("MultinomialNB")
	}
	return nb.logger
}

// WithAlpha sets the additive (Lidstone) smoothing parameter.
func WithAlpha(alpha float64) MultinomialNBOption {
	return func(nb *MultinomialNB) {
		nb.alpha = alpha
	}
}

// WithFitPrior sets whether to learn class prior probabilities
func WithFitPrior(fitPrior bool) MultinomialNBOption {
	return func(nb *MultinomialNB) {
		nb.fitPrior = fitPrior
	}
}

// WithClassPrior fixes the class priors, in sorted class order. It disables prior fitting.
func WithClassPrior(prior []float64) MultinomialNBOption {
	return func(nb *MultinomialNB) {
		nb.classPrior = prior
		nb.fitPrior = false
	}
}

// Fit trains the MultinomialNB classifier
func (nb *MultinomialNB) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "MultinomialNB.Fit")
	nb.mu.Lock()
	defer nb.mu.Unlock()

	nb.reset()

	if nb.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", nb.alpha)
	}
	for _, p := range nb.classPrior {
		if p <= 0 {
			return errors.NewValidationError("class_prior", "entries must be positive", nb.classPrior)
		}
	}

	Xs, err := validateInput(X, y)
	if err != nil {
		return err
	}

	rows, cols := Xs.Dims()
	nb.nFeatures_ = cols
	nb.classes_ = extractClasses(y)
	if nb.classPrior != nil && len(nb.classPrior) != len(nb.classes_) {
		return errors.NewDimensionError("MultinomialNB.Fit", len(nb.classes_), len(nb.classPrior), 1)
	}

	classIdx := make(map[int]int, len(nb.classes_))
	for i, c := range nb.classes_ {
		classIdx[c] = i
	}

	nb.featureCount_ = make([][]float64, len(nb.classes_))
	nb.classCount_ = make([]float64, len(nb.classes_))
	for i := range nb.featureCount_ {
		nb.featureCount_[i] = make([]float64, cols)
	}

	for i := 0; i < rows; i++ {
		c := classIdx[int(y.At(i, 0))]
		nb.classCount_[c]++

		idx, vals := Xs.Row(i)
		for k, j := range idx {
			nb.featureCount_[c][j] += vals[k]
		}
	}

	nb.updateModel()
	nb.state.SetFitted()

	nb.log().Info("Fit completed",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)
	return nil
}

// updateModel derives log priors and smoothed log likelihoods from the accumulated counts.
func (nb *MultinomialNB) updateModel() {
	nClasses := len(nb.classes_)
	nb.classLogPrior_ = make([]float64, nClasses)

	switch {
	case nb.fitPrior:
		totalCount := 0.0
		for _, c := range nb.classCount_ {
			totalCount += c
		}
		for i := range nClasses {
			nb.classLogPrior_[i] = math.Log(nb.classCount_[i] / totalCount)
		}
	case nb.classPrior != nil:
		for i := range nClasses {
			nb.classLogPrior_[i] = math.Log(nb.classPrior[i])
		}
	default:
		uniformPrior := math.Log(1.0 / float64(nClasses))
		for i := range nClasses {
			nb.classLogPrior_[i] = uniformPrior
		}
	}

	nb.featureLogProb_ = make([][]float64, nClasses)
	for i := range nClasses {
		nb.featureLogProb_[i] = make([]float64, nb.nFeatures_)

		totalCount := 0.0
		for _, v := range nb.featureCount_[i] {
			totalCount += v + nb.alpha
		}
		for j, v := range nb.featureCount_[i] {
			nb.featureLogProb_[i][j] = math.Log((v + nb.alpha) / totalCount)
		}
	}
}

// jointLogLikelihood returns the unnormalised log posterior of each sample and class.
func (nb *MultinomialNB) jointLogLikelihood(X mat.Matrix, op string) (*mat.Dense, error) {
	if !nb.state.IsFitted() {
		return nil, errors.NewNotFittedError("MultinomialNB", op)
	}

	rows, cols := X.Dims()
	if cols != nb.nFeatures_ {
		return nil, errors.NewDimensionError("MultinomialNB."+op, nb.nFeatures_, cols, 1)
	}
	if rows == 0 {
		return &mat.Dense{}, nil
	}

	Xs := sparse.FromMatrix(X)
	jll := mat.NewDense(rows, len(nb.classes_), nil)
	for i := 0; i < rows; i++ {
		idx, vals := Xs.Row(i)
		for c := range nb.classes_ {
			logProb := nb.classLogPrior_[c]
			for k, j := range idx {
				if vals[k] < 0 {
					return nil, errors.NewValueError("MultinomialNB."+op, "MultinomialNB requires non-negative features")
				}
				logProb += vals[k] * nb.featureLogProb_[c][j]
			}
			jll.Set(i, c, logProb)
		}
	}
	return jll, nil
}

// Predict performs classification on samples in X
func (nb *MultinomialNB) Predict(X mat.Matrix) (*mat.VecDense, error) {
	nb.mu.RLock()
	defer nb.mu.RUnlock()

	jll, err := nb.jointLogLikelihood(X, "Predict")
	if err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	if rows == 0 {
		return &mat.VecDense{}, nil
	}

	predictions := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for c := 1; c < len(nb.classes_); c++ {
			if jll.At(i, c) > jll.At(i, best) {
				best = c
			}
		}
		predictions.SetVec(i, float64(nb.classes_[best]))
	}
	return predictions, nil
}

// PredictLogProba returns the normalised log posterior, one column per class.
func (nb *MultinomialNB) PredictLogProba(X mat.Matrix) (*mat.Dense, error) {
	nb.mu.RLock()
	defer nb.mu.RUnlock()

	logProba, err := nb.jointLogLikelihood(X, "PredictLogProba")
	if err != nil {
		return nil, err
	}
	rows, _ := logProba.Dims()
	for i := range rows {
		row := logProba.RawRowView(i)
		floats.AddConst(-floats.LogSumExp(row), row)
	}
	return logProba, nil
}

// PredictProba returns P(class | document), one column per class in Classes order.
func (nb *MultinomialNB) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	logProba, err := nb.PredictLogProba(X)
	if err != nil {
		return nil, err
	}
	logProba.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, logProba)
	return logProba, nil
}

// Score returns the fraction of samples in X whose predicted class equals y.
func (nb *MultinomialNB) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := nb.Predict(X)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	if rows != predictions.Len() {
		return 0, errors.NewDimensionError("MultinomialNB.Score", predictions.Len(), rows, 0)
	}
	if rows == 0 {
		return 0, errors.NewModelError("MultinomialNB.Score", "empty data", errors.ErrEmptyData)
	}

	var correct float64
	for i := range rows {
		if predictions.AtVec(i) == y.At(i, 0) {
			correct++
		}
	}
	return correct / float64(rows), nil
}

// GetParams returns the hyperparameters.
func (nb *MultinomialNB) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":       nb.alpha,
		"fit_prior":   nb.fitPrior,
		"class_prior": nb.classPrior,
	}
}

// IsFitted returns whether the model has been fitted
func (nb *MultinomialNB) IsFitted() bool {
	return nb.state.IsFitted()
}

// Classes returns the class labels
func (nb *MultinomialNB) Classes() []int {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return append([]int(nil), nb.classes_...)
}

// FeatureLogProb returns the log probability of features given classes
func (nb *MultinomialNB) FeatureLogProb() [][]float64 {
	nb.mu.RLock()
	defer nb.mu.RUnlock()

	result := make([][]float64, len(nb.featureLogProb_))
	for i := range nb.featureLogProb_ {
		result[i] = append([]float64(nil), nb.featureLogProb_[i]...)
	}
	return result
}

// ClassLogPrior returns the log prior probabilities of classes
func (nb *MultinomialNB) ClassLogPrior() []float64 {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return append([]float64(nil), nb.classLogPrior_...)
}

// validateInput checks shapes and non-negativity and returns X in CSR form.
func validateInput(X, y mat.Matrix) (*sparse.CSR, error) {
	xRows, _ := X.Dims()
	yRows, yCols := y.Dims()

	if xRows == 0 {
		return nil, errors.NewModelError("MultinomialNB.Fit", "empty data", errors.ErrEmptyData)
	}
	if xRows != yRows {
		return nil, errors.NewDimensionError("MultinomialNB.Fit", xRows, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewValueError("MultinomialNB.Fit",
			fmt.Sprintf("y must be a column vector: got shape (%d, %d)", yRows, yCols))
	}

	Xs := sparse.FromMatrix(X)
	for _, v := range Xs.Data {
		if v < 0 {
			return nil, errors.NewValueError("MultinomialNB.Fit", "MultinomialNB requires non-negative features")
		}
	}
	return Xs, nil
}

func extractClasses(y mat.Matrix) []int {
	rows, _ := y.Dims()
	seen := make(map[int]struct{})
	for i := range rows {
		seen[int(y.At(i, 0))] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

func (nb *MultinomialNB) reset() {
	nb.classes_ = nil
	nb.classLogPrior_ = nil
	nb.featureLogProb_ = nil
	nb.featureCount_ = nil
	nb.classCount_ = nil
	nb.nFeatures_ = 0
	nb.state.Reset()
}
