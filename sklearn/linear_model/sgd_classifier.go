package linear_model

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/core/model"
	"github.com/ezoic/newsclf/core/sparse"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
)

// SGDClassifier は確率的勾配降下法による線形分類器
// Compatible with scikit-learn's SGDClassifier for the l2 penalty and the "optimal" learning
// rate schedule. With the default hinge loss it is a linear SVM.
//
// Weights are stored as wscale·v so the l2 decay of every step costs O(1) and a sample only
// touches its non-zero columns.
type SGDClassifier struct {
	state *model.StateManager

	// Hyperparameters
	loss          string  // "hinge", "log_loss" or "modified_huber"
	penalty       string  // "l2" or "none"
	alpha         float64 // Regularization strength
	fitIntercept  bool    // Whether to learn the intercept
	maxIter       int     // Maximum number of epochs
	tol           float64 // Stopping tolerance on the epoch loss
	shuffle       bool    // Shuffle samples every epoch
	randomState   uint64  // Seed for shuffling
	nIterNoChange int     // Epochs without improvement before stopping

	// Learned parameters
	coef_      [][]float64
	intercept_ []float64
	classes_   []int
	nFeatures_ int
	nIter_     int

	logger log.Logger
}

// ClassifierOption はSGDClassifierの設定オプション
type ClassifierOption func(*SGDClassifier)

// NewSGDClassifier は新しいSGDClassifierを作成
func NewSGDClassifier(options ...ClassifierOption) *SGDClassifier {
	sgd := &SGDClassifier{
		state:         model.NewStateManager(),
		loss:          "hinge",
		penalty:       penaltyL2,
		alpha:         0.0001,
		fitIntercept:  true,
		maxIter:       1000,
		tol:           1e-3,
		shuffle:       true,
		randomState:   42,
		nIterNoChange: 5,
	}
	for _, opt := range options {
		opt(sgd)
	}
	return sgd
}

// WithClassifierLoss は損失関数を設定
func WithClassifierLoss(loss string) ClassifierOption {
	return func(sgd *SGDClassifier) {
		sgd.loss = loss
	}
}

// WithClassifierPenalty は正則化を設定
func WithClassifierPenalty(penalty string) ClassifierOption {
	return func(sgd *SGDClassifier) {
		sgd.penalty = penalty
	}
}

// WithClassifierAlpha は正則化の強度を設定
func WithClassifierAlpha(alpha float64) ClassifierOption {
	return func(sgd *SGDClassifier) {
		sgd.alpha = alpha
	}
}

// WithClassifierMaxIter は最大エポック数を設定
func WithClassifierMaxIter(maxIter int) ClassifierOption {
	return func(sgd *SGDClassifier) {
		sgd.maxIter = maxIter
	}
}

// WithClassifierRandomState は乱数シードを設定
func WithClassifierRandomState(seed uint64) ClassifierOption {
	return func(sgd *SGDClassifier) {
		sgd.randomState = seed
	}
}

func (sgd *SGDClassifier) log() log.Logger {
	if sgd.logger == nil {
		sgd.logger = log.GetLoggerWithName("SGDClassifier")
	}
	return sgd.logger
}

// lossAndDeriv returns the loss and its derivative with respect to the score p for target y ∈ {-1, 1}.
func (sgd *SGDClassifier) lossAndDeriv(p, y float64) (float64, float64) {
	z := p * y
	switch sgd.loss {
	case "log_loss":
		if z > 18 {
			return math.Exp(-z), -y * math.Exp(-z)
		}
		if z < -18 {
			return -z, -y
		}
		return math.Log1p(math.Exp(-z)), -y / (math.Exp(z) + 1)
	case "modified_huber":
		switch {
		case z >= 1:
			return 0, 0
		case z >= -1:
			return (1 - z) * (1 - z), -2 * (1 - z) * y
		default:
			return -4 * z, -4 * y
		}
	default: // hinge
		if z < 1 {
			return 1 - z, -y
		}
		return 0, 0
	}
}

func (sgd *SGDClassifier) validateParams() error {
	switch sgd.loss {
	case "hinge", "log_loss", "modified_huber":
	default:
		return errors.NewValidationError("loss", "must be hinge, log_loss or modified_huber", sgd.loss)
	}
	if sgd.penalty != penaltyL2 && sgd.penalty != penaltyNone {
		return errors.NewValidationError("penalty", "must be l2 or none", sgd.penalty)
	}
	if !(sgd.alpha > 0) {
		return errors.NewValidationError("alpha", "must be positive", sgd.alpha)
	}
	if sgd.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", sgd.maxIter)
	}
	return nil
}

// Fit はバッチ学習でモデルを訓練
func (sgd *SGDClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "SGDClassifier.Fit")
	start := time.Now()

	if err := sgd.validateParams(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if rows == 0 {
		return errors.NewModelError("SGDClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("SGDClassifier.Fit", rows, yRows, 0)
	}

	classes, err := extractClasses(y)
	if err != nil {
		return err
	}
	if len(classes) < binaryClassCount {
		return errors.NewValueError("SGDClassifier.Fit",
			fmt.Sprintf("needs samples of at least 2 classes in the data, got %d class(es)", len(classes)))
	}

	Xs := sparse.FromMatrix(X)
	nVectors := len(classes)
	if nVectors == binaryClassCount {
		nVectors = 1
	}

	sgd.coef_ = make([][]float64, nVectors)
	sgd.intercept_ = make([]float64, nVectors)
	sgd.nIter_ = 0
	for k := range nVectors {
		pos := classes[k]
		if nVectors == 1 {
			pos = classes[1]
		}
		target := make([]float64, rows)
		for i := range rows {
			target[i] = -1
			if int(y.At(i, 0)) == pos {
				target[i] = 1
			}
		}
		w, b, nIter := sgd.plainSGD(Xs, target)
		sgd.coef_[k], sgd.intercept_[k] = w, b
		sgd.nIter_ = max(sgd.nIter_, nIter)
	}

	sgd.classes_ = classes
	sgd.nFeatures_ = cols
	sgd.state.SetFitted()

	sgd.log().Info("Fit completed",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationsKey, sgd.nIter_,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// plainSGD trains one binary problem with targets in {-1, 1}.
func (sgd *SGDClassifier) plainSGD(X *sparse.CSR, target []float64) ([]float64, float64, int) {
	rows, cols := X.Dims()
	v := make([]float64, cols)
	wscale := 1.0
	intercept := 0.0

	// Léon Bottou's heuristic for the initial step of the optimal schedule.
	typw := math.Sqrt(1.0 / math.Sqrt(sgd.alpha))
	_, d := sgd.lossAndDeriv(-typw, 1)
	eta0 := typw / math.Max(1, math.Abs(d))
	optimalInit := 1.0 / (eta0 * sgd.alpha)

	rng := rand.New(rand.NewPCG(sgd.randomState, sgd.randomState))
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}

	bestLoss := math.Inf(1)
	noImprovement := 0
	t := 1.0
	epoch := 0
	converged := false
	for epoch = 1; epoch <= sgd.maxIter; epoch++ {
		if sgd.shuffle {
			rng.Shuffle(rows, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		sumLoss := 0.0
		for _, i := range order {
			eta := 1.0 / (sgd.alpha * (optimalInit + t - 1))
			p := wscale*X.RowDot(i, v) + intercept
			l, dloss := sgd.lossAndDeriv(p, target[i])
			sumLoss += l

			if sgd.penalty == penaltyL2 {
				wscale *= math.Max(0, 1-eta*sgd.alpha)
			}
			if dloss != 0 {
				update := -eta * dloss
				idx, vals := X.Row(i)
				for k, j := range idx {
					v[j] += update * vals[k] / wscale
				}
				if sgd.fitIntercept {
					intercept += update
				}
			}
			if wscale < 1e-9 {
				for j := range v {
					v[j] *= wscale
				}
				wscale = 1
			}
			t++
		}

		if sumLoss > bestLoss-sgd.tol*float64(rows) {
			noImprovement++
		} else {
			noImprovement = 0
		}
		bestLoss = math.Min(bestLoss, sumLoss)
		if noImprovement >= sgd.nIterNoChange {
			converged = true
			break
		}
	}
	if !converged {
		epoch = sgd.maxIter
		errors.Warn(errors.NewConvergenceWarning("SGDClassifier", epoch,
			"Maximum number of iteration reached before convergence"))
	}

	for j := range v {
		v[j] *= wscale
	}
	return v, intercept, epoch
}

// DecisionFunction は決定関数の値を返す (n_samples × 1 for binary models)
func (sgd *SGDClassifier) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if !sgd.state.IsFitted() {
		return nil, errors.NewNotFittedError("SGDClassifier", "DecisionFunction")
	}
	rows, cols := X.Dims()
	if cols != sgd.nFeatures_ {
		return nil, errors.NewDimensionError("SGDClassifier.DecisionFunction", sgd.nFeatures_, cols, 1)
	}
	if rows == 0 {
		return &mat.Dense{}, nil
	}

	Xs := sparse.FromMatrix(X)
	decisions := mat.NewDense(rows, len(sgd.coef_), nil)
	for i := range rows {
		for k, w := range sgd.coef_ {
			decisions.Set(i, k, sgd.intercept_[k]+Xs.RowDot(i, w))
		}
	}
	return decisions, nil
}

// Predict は入力データに対する予測を行う
func (sgd *SGDClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	scores, err := sgd.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	if rows == 0 {
		return &mat.VecDense{}, nil
	}

	predictions := mat.NewVecDense(rows, nil)
	for i := range rows {
		if len(sgd.coef_) == 1 {
			c := sgd.classes_[0]
			if scores.At(i, 0) > 0 {
				c = sgd.classes_[1]
			}
			predictions.SetVec(i, float64(c))
			continue
		}
		best := 0
		for k := 1; k < len(sgd.coef_); k++ {
			if scores.At(i, k) > scores.At(i, best) {
				best = k
			}
		}
		predictions.SetVec(i, float64(sgd.classes_[best]))
	}
	return predictions, nil
}

// Score はモデルの精度を計算
func (sgd *SGDClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := sgd.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	if rows != predictions.Len() {
		return 0, errors.NewDimensionError("SGDClassifier.Score", predictions.Len(), rows, 0)
	}
	if rows == 0 {
		return 0, errors.NewModelError("SGDClassifier.Score", "empty data", errors.ErrEmptyData)
	}

	correct := 0
	for i := range rows {
		if predictions.AtVec(i) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows), nil
}

// NIterations は実行されたエポック数を返す
func (sgd *SGDClassifier) NIterations() int {
	return sgd.nIter_
}

// Coef は学習された重み係数を返す
func (sgd *SGDClassifier) Coef() [][]float64 {
	coef := make([][]float64, len(sgd.coef_))
	for i := range sgd.coef_ {
		coef[i] = append([]float64(nil), sgd.coef_[i]...)
	}
	return coef
}

// Intercept は学習された切片を返す
func (sgd *SGDClassifier) Intercept() []float64 {
	return append([]float64(nil), sgd.intercept_...)
}

// Classes は学習されたクラスラベルを返す
func (sgd *SGDClassifier) Classes() []int {
	return append([]int(nil), sgd.classes_...)
}

// IsFitted returns whether the model has been fitted
func (sgd *SGDClassifier) IsFitted() bool {
	return sgd.state.IsFitted()
}

// GetParams returns the hyperparameters
func (sgd *SGDClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"loss":             sgd.loss,
		"penalty":          sgd.penalty,
		"alpha":            sgd.alpha,
		"fit_intercept":    sgd.fitIntercept,
		"max_iter":         sgd.maxIter,
		"tol":              sgd.tol,
		"shuffle":          sgd.shuffle,
		"random_state":     sgd.randomState,
		"learning_rate":    "optimal",
		"n_iter_no_change": sgd.nIterNoChange,
	}
}
