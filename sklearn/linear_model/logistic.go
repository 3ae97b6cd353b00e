package linear_model

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/ezoic/newsclf/core/model"
	"github.com/ezoic/newsclf/core/sparse"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
)

const (
	solverLBFGS      = "lbfgs"
	penaltyL2        = "l2"
	penaltyNone      = "none"
	binaryClassCount = 2
)

// LogisticRegression implements logistic regression for classification
// Compatible with scikit-learn's LogisticRegression (lbfgs solver, l2 or no penalty).
//
// Two classes fit a single weight vector; more classes fit one-vs-rest. Fit accepts any
// mat.Matrix and works on its CSR form, so TF-IDF matrices are never densified.
// Weights start at zero, so fitting the same data twice gives the same model.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "l2" or "none"
	C            float64 // Inverse regularization strength
	fitIntercept bool    // Whether to fit intercept
	solver       string  // Only "lbfgs"
	maxIter      int     // Maximum lbfgs iterations per class
	tol          float64 // Gradient infinity-norm stopping threshold

	// Model parameters
	coef_      [][]float64 // Coefficients (1 x n_features for binary, n_classes x n_features otherwise)
	intercept_ []float64   // Intercept terms
	classes_   []int       // Unique class labels, sorted
	nFeatures_ int         // Number of features
	nIter_     []int       // Actual iterations per weight vector

	logger log.Logger
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier with scikit-learn
// defaults except max_iter, which is 1000.
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      penaltyL2,
		C:            1.0,
		fitIntercept: true,
		solver:       solverLBFGS,
		maxIter:      1000,
		tol:          1e-4,
	}

	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRSolver sets the optimization solver
func WithLRSolver(solver string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.solver = solver
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

func (lr *LogisticRegression) log() log.Logger {
	if lr.logger == nil {
		lr.logger = log.GetLoggerWithName("LogisticRegression")
	}
	return lr.logger
}

// stableSigmoid computes sigmoid(z) without overflow.
func stableSigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1.0 + ez)
}

// softplus computes log(1 + exp(t)) without overflow.
func softplus(t float64) float64 {
	return math.Max(t, 0) + math.Log1p(math.Exp(-math.Abs(t)))
}

func (lr *LogisticRegression) validateParams() error {
	if lr.solver != solverLBFGS {
		return errors.NewValidationError("solver", "only lbfgs is supported", lr.solver)
	}
	if lr.penalty != penaltyL2 && lr.penalty != penaltyNone {
		return errors.NewValidationError("penalty", "lbfgs supports only l2 or none penalty", lr.penalty)
	}
	if lr.penalty == penaltyL2 && !(lr.C > 0) {
		return errors.NewValidationError("C", "must be > 0 for l2 penalty", lr.C)
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.maxIter)
	}
	if !(lr.tol > 0) {
		return errors.NewValidationError("tol", "must be positive", lr.tol)
	}
	return nil
}

// Fit trains the logistic regression model.
//
// Parameters:
//   - X: feature matrix (n_samples × n_features); a *sparse.CSR is used as is
//   - y: class labels (n_samples × 1), integer valued
//
// Returns:
//   - error: DimensionError if row counts differ, ValueError for fewer than two classes
//
// A fit that reaches max_iter keeps its last iterate and reports a ConvergenceWarning
// through errors.Warn.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LogisticRegression.Fit")
	start := time.Now()

	if err := lr.validateParams(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LogisticRegression.Fit", 1, yCols, 1)
	}

	classes, err := extractClasses(y)
	if err != nil {
		return err
	}
	if len(classes) < binaryClassCount {
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("needs samples of at least 2 classes in the data, got %d class(es)", len(classes)))
	}

	lr.log().Info("Fit started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
	)

	Xs := sparse.FromMatrix(X)

	nVectors := len(classes)
	if nVectors == binaryClassCount {
		nVectors = 1
	}
	coef := make([][]float64, nVectors)
	intercept := make([]float64, nVectors)
	nIter := make([]int, nVectors)

	for k := range nVectors {
		// Binary: positive class is classes[1]; OVR: class k against the rest.
		pos := classes[k]
		if nVectors == 1 {
			pos = classes[1]
		}
		yBinary := make([]float64, nSamples)
		for i := range nSamples {
			if int(y.At(i, 0)) == pos {
				yBinary[i] = 1
			}
		}

		w, b, it, err := lr.fitBinaryLBFGS(Xs, yBinary)
		if err != nil {
			return errors.Wrapf(err, "failed to fit class %d", pos)
		}
		coef[k], intercept[k], nIter[k] = w, b, it
	}

	lr.coef_ = coef
	lr.intercept_ = intercept
	lr.classes_ = classes
	lr.nFeatures_ = nFeatures
	lr.nIter_ = nIter
	lr.state.SetFitted()

	lr.log().Info("Fit completed",
		log.OperationKey, log.OperationFit,
		log.IterationsKey, nIter,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// extractClasses returns the sorted unique integer labels of y.
func extractClasses(y mat.Matrix) ([]int, error) {
	rows, _ := y.Dims()
	seen := make(map[int]bool)
	for i := range rows {
		v := y.At(i, 0)
		label := int(v)
		if float64(label) != v {
			return nil, errors.NewValidationError("y", fmt.Sprintf("row %d is not an integer class label", i), v)
		}
		seen[label] = true
	}

	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes, nil
}

// fitBinaryLBFGS minimises the mean log loss plus ||w||²/(2·C·n), which has the same minimiser
// as scikit-learn's C·Σ logloss + ||w||²/2. Returns weights, intercept and iteration count.
func (lr *LogisticRegression) fitBinaryLBFGS(X *sparse.CSR, yBinary []float64) ([]float64, float64, int, error) {
	nSamples, nFeatures := X.Dims()
	invN := 1.0 / float64(nSamples)

	lambda := 0.0
	if lr.penalty == penaltyL2 {
		lambda = invN / lr.C
	}

	pDim := nFeatures
	if lr.fitIntercept {
		pDim++
	}
	x0 := make([]float64, pDim)

	split := func(theta []float64) ([]float64, float64) {
		if lr.fitIntercept {
			return theta[:nFeatures], theta[nFeatures]
		}
		return theta, 0
	}

	prob := optimize.Problem{
		Func: func(theta []float64) float64 {
			w, b := split(theta)
			loss := 0.0
			for i := range nSamples {
				z := b + X.RowDot(i, w)
				// -log σ(z) = softplus(-z), -log(1-σ(z)) = softplus(z)
				if yBinary[i] == 1 {
					loss += softplus(-z)
				} else {
					loss += softplus(z)
				}
			}
			loss *= invN
			if lambda > 0 {
				reg := 0.0
				for _, wj := range w {
					reg += wj * wj
				}
				loss += 0.5 * lambda * reg
			}
			return loss
		},
		Grad: func(grad, theta []float64) {
			w, b := split(theta)
			for j := range grad {
				grad[j] = 0
			}
			for i := range nSamples {
				diff := (stableSigmoid(b+X.RowDot(i, w)) - yBinary[i]) * invN
				idx, vals := X.Row(i)
				for k, j := range idx {
					grad[j] += diff * vals[k]
				}
				if lr.fitIntercept {
					grad[nFeatures] += diff
				}
			}
			if lambda > 0 {
				for j := range nFeatures {
					grad[j] += lambda * w[j]
				}
			}
		},
	}

	settings := optimize.Settings{
		GradientThreshold: lr.tol,
		MajorIterations:   lr.maxIter,
	}
	result, err := optimize.Minimize(prob, x0, &settings, &optimize.LBFGS{})
	if result == nil {
		return nil, 0, 0, errors.Wrap(err, "lbfgs optimization failed")
	}

	iterations := result.Stats.MajorIterations
	if err := errors.CheckScalar("lbfgs loss", result.F, iterations); err != nil {
		return nil, 0, 0, err
	}

	switch {
	case result.Status == optimize.IterationLimit:
		errors.Warn(errors.NewConvergenceWarning("lbfgs", iterations,
			"increase the number of iterations (max_iter)"))
	case err != nil:
		// Line search stalls close to the optimum; the last iterate is still usable.
		errors.Warn(errors.NewConvergenceWarning("lbfgs", iterations, err.Error()))
	}

	w, b := split(result.X)
	return append([]float64(nil), w...), b, iterations, nil
}

// DecisionFunction returns the signed distance of each sample to the hyperplane.
// Binary models return n_samples × 1, multiclass models n_samples × n_classes.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (_ *mat.Dense, err error) {
	defer errors.Recover(&err, "LogisticRegression.DecisionFunction")
	if !lr.state.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "DecisionFunction")
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != lr.nFeatures_ {
		return nil, errors.NewDimensionError("LogisticRegression.DecisionFunction", lr.nFeatures_, nFeatures, 1)
	}
	if nSamples == 0 {
		return &mat.Dense{}, nil
	}

	Xs := sparse.FromMatrix(X)
	scores := mat.NewDense(nSamples, len(lr.coef_), nil)
	for i := range nSamples {
		for k, w := range lr.coef_ {
			scores.Set(i, k, lr.intercept_[k]+Xs.RowDot(i, w))
		}
	}
	return scores, nil
}

// Predict makes predictions for input data
func (lr *LogisticRegression) Predict(X mat.Matrix) (_ *mat.VecDense, err error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	if nSamples == 0 {
		return &mat.VecDense{}, nil
	}

	predictions := mat.NewVecDense(nSamples, nil)
	for i := range nSamples {
		if len(lr.coef_) == 1 {
			// sigmoid(z) >= 0.5 iff z >= 0; ties go to the positive class
			if scores.At(i, 0) >= 0 {
				predictions.SetVec(i, float64(lr.classes_[1]))
			} else {
				predictions.SetVec(i, float64(lr.classes_[0]))
			}
			continue
		}
		best := 0
		for k := 1; k < len(lr.coef_); k++ {
			if scores.At(i, k) > scores.At(i, best) {
				best = k
			}
		}
		predictions.SetVec(i, float64(lr.classes_[best]))
	}

	lr.log().Debug("Predict completed",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.PredsKey, nSamples,
	)
	return predictions, nil
}

// PredictProba returns probability estimates for each class (n_samples × n_classes)
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (_ *mat.Dense, err error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	if nSamples == 0 {
		return &mat.Dense{}, nil
	}
	probas := mat.NewDense(nSamples, len(lr.classes_), nil)

	if len(lr.coef_) == 1 {
		for i := range nSamples {
			p1 := stableSigmoid(scores.At(i, 0))
			probas.Set(i, 0, 1.0-p1)
			probas.Set(i, 1, p1)
		}
		return probas, nil
	}

	// One-vs-rest: normalise the per-class sigmoids
	for i := range nSamples {
		sum := 0.0
		for k := range lr.classes_ {
			p := stableSigmoid(scores.At(i, k))
			probas.Set(i, k, p)
			sum += p
		}
		for k := range lr.classes_ {
			probas.Set(i, k, probas.At(i, k)/sum)
		}
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	nSamples, _ := X.Dims()
	yRows, _ := y.Dims()
	if nSamples != yRows {
		return 0, errors.NewDimensionError("LogisticRegression.Score", nSamples, yRows, 0)
	}
	if nSamples == 0 {
		return 0, errors.NewModelError("LogisticRegression.Score", "empty data", errors.ErrEmptyData)
	}

	correct := 0
	for i := range nSamples {
		if predictions.AtVec(i) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// IsFitted reports whether Fit has completed.
func (lr *LogisticRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// Coef returns a copy of the coefficients.
func (lr *LogisticRegression) Coef() [][]float64 {
	out := make([][]float64, len(lr.coef_))
	for k, w := range lr.coef_ {
		out[k] = append([]float64(nil), w...)
	}
	return out
}

// Intercept returns a copy of the intercepts.
func (lr *LogisticRegression) Intercept() []float64 {
	return append([]float64(nil), lr.intercept_...)
}

// Classes returns the sorted class labels seen during Fit.
func (lr *LogisticRegression) Classes() []int {
	return append([]int(nil), lr.classes_...)
}

// NIter returns the lbfgs iteration count of each weight vector.
func (lr *LogisticRegression) NIter() []int {
	return append([]int(nil), lr.nIter_...)
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"solver":        lr.solver,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "penalty":
			lr.penalty, ok = value.(string)
		case "C":
			lr.C, ok = value.(float64)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "solver":
			lr.solver, ok = value.(string)
		case "max_iter":
			lr.maxIter, ok = value.(int)
		case "tol":
			lr.tol, ok = value.(float64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return nil
}

// ExportParams returns the binary model's parameters for model.ExportModel, naming class
// code i as classNames[i].
func (lr *LogisticRegression) ExportParams(classNames []string) (*model.LinearClassifierParams, error) {
	if !lr.state.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "ExportParams")
	}
	if len(lr.coef_) != 1 {
		return nil, errors.NewValueError("LogisticRegression.ExportParams",
			"only binary models can be exported")
	}

	names := make([]string, len(lr.classes_))
	for i, c := range lr.classes_ {
		if c < 0 || c >= len(classNames) {
			return nil, errors.NewValidationError("classNames",
				fmt.Sprintf("no name for class code %d", c), classNames)
		}
		names[i] = classNames[c]
	}

	return &model.LinearClassifierParams{
		Coefficients: append([]float64(nil), lr.coef_[0]...),
		Intercept:    lr.intercept_[0],
		NFeatures:    lr.nFeatures_,
		Classes:      names,
	}, nil
}

// logisticSnapshot is the gob form of a LogisticRegression.
type logisticSnapshot struct {
	Penalty      string
	C            float64
	FitIntercept bool
	Solver       string
	MaxIter      int
	Tol          float64
	Coef         [][]float64
	Intercept    []float64
	Classes      []int
	NFeatures    int
	NIter        []int
	Fitted       bool
}

// GobEncode implements gob.GobEncoder so model.SaveModel can persist the private fields.
func (lr *LogisticRegression) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(logisticSnapshot{
		Penalty:      lr.penalty,
		C:            lr.C,
		FitIntercept: lr.fitIntercept,
		Solver:       lr.solver,
		MaxIter:      lr.maxIter,
		Tol:          lr.tol,
		Coef:         lr.coef_,
		Intercept:    lr.intercept_,
		Classes:      lr.classes_,
		NFeatures:    lr.nFeatures_,
		NIter:        lr.nIter_,
		Fitted:       lr.state != nil && lr.state.IsFitted(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "LogisticRegression.GobEncode")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (lr *LogisticRegression) GobDecode(data []byte) error {
	var s logisticSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "LogisticRegression.GobDecode")
	}

	lr.penalty = s.Penalty
	lr.C = s.C
	lr.fitIntercept = s.FitIntercept
	lr.solver = s.Solver
	lr.maxIter = s.MaxIter
	lr.tol = s.Tol
	lr.coef_ = s.Coef
	lr.intercept_ = s.Intercept
	lr.classes_ = s.Classes
	lr.nFeatures_ = s.NFeatures
	lr.nIter_ = s.NIter

	lr.state = model.NewStateManager()
	if s.Fitted {
		lr.state.SetFitted()
	}
	return nil
}
