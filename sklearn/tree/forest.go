package tree

import (
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/core/model"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
)

// RandomForestClassifier averages the class probabilities of bootstrapped trees grown with
// per-split feature sampling.
type RandomForestClassifier struct {
	state *model.StateManager

	nEstimators     int
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string
	bootstrap       bool
	randomState     uint64

	estimators_ []*DecisionTreeClassifier
	classes_    []int
	nFeatures_  int

	logger log.Logger
}

// RandomForestOption is a functional option.
type RandomForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a forest of 100 gini trees with sqrt feature sampling and
// bootstrap resampling.
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       criterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     maxFeaturesSqrt,
		bootstrap:       true,
		randomState:     42,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nEstimators = n
	}
}

// WithForestMaxDepth limits the depth of every tree. 0 means unlimited.
func WithForestMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxDepth = depth
	}
}

// WithForestMaxFeatures sets per-split feature sampling: "sqrt", "log2" or "all".
func WithForestMaxFeatures(mode string) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxFeatures = mode
	}
}

// WithForestMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithForestMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesLeaf = n
	}
}

// WithBootstrap toggles bootstrap resampling.
func WithBootstrap(b bool) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.bootstrap = b
	}
}

// WithForestRandomState seeds bootstrap draws and feature sampling.
func WithForestRandomState(seed uint64) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.randomState = seed
	}
}

func (rf *RandomForestClassifier) log() log.Logger {
	if rf.logger == nil {
		rf.logger = log.GetLoggerWithName("RandomForestClassifier")
	}
	return rf.logger
}

func (rf *RandomForestClassifier) newTree() *DecisionTreeClassifier {
	return NewDecisionTreeClassifier(
		WithCriterion(rf.criterion),
		WithMaxDepth(rf.maxDepth),
		WithMinSamplesSplit(rf.minSamplesSplit),
		WithMinSamplesLeaf(rf.minSamplesLeaf),
		WithMaxFeatures(rf.maxFeatures),
	)
}

// Fit grows nEstimators trees. Tree t draws from its own generator seeded with (randomState, t),
// so results do not depend on fitting order.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", rf.nEstimators)
	}
	if err := rf.newTree().validateParams(); err != nil {
		return err
	}

	Xs, classes, yIdx, err := prepare("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}

	start := time.Now()
	cols := NewColumns(Xs)
	n := len(yIdx)
	rf.estimators_ = make([]*DecisionTreeClassifier, rf.nEstimators)
	for t := range rf.estimators_ {
		rng := rand.New(rand.NewPCG(rf.randomState, uint64(t)))
		w := make([]float64, n)
		if rf.bootstrap {
			for i := 0; i < n; i++ {
				w[rng.IntN(n)]++
			}
		} else {
			for i := range w {
				w[i] = 1
			}
		}
		tree := rf.newTree()
		tree.grow(cols, classes, yIdx, w, rng)
		rf.estimators_[t] = tree
	}
	rf.classes_ = classes
	_, rf.nFeatures_ = Xs.Dims()
	rf.state.SetFitted()

	rf.log().Info("RandomForestClassifier fitted",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, n,
		log.FeaturesKey, rf.nFeatures_,
		"n_estimators", rf.nEstimators,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// PredictProba returns the mean of the tree probabilities.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !rf.state.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}
	n, c := X.Dims()
	if c != rf.nFeatures_ {
		return nil, errors.NewDimensionError("RandomForestClassifier.PredictProba", rf.nFeatures_, c, 1)
	}
	if n == 0 {
		return &mat.Dense{}, nil
	}

	proba := mat.NewDense(n, len(rf.classes_), nil)
	for _, tree := range rf.estimators_ {
		p, err := tree.PredictProba(X)
		if err != nil {
			return nil, err
		}
		// Bootstrap samples can miss a class, so align tree columns by label.
		for j, cls := range tree.classes_ {
			col := rf.classIndex(cls)
			for i := 0; i < n; i++ {
				proba.Set(i, col, proba.At(i, col)+p.At(i, j))
			}
		}
	}
	proba.Scale(1/float64(len(rf.estimators_)), proba)
	return proba, nil
}

func (rf *RandomForestClassifier) classIndex(cls int) int {
	for i, c := range rf.classes_ {
		if c == cls {
			return i
		}
	}
	panic(fmt.Sprintf("tree: unknown class %d", cls))
}

// Predict returns the class with the highest mean probability.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxClasses(proba, rf.classes_), nil
}

// Score returns the mean accuracy on the given test data.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return accuracy("RandomForestClassifier.Score", pred, y)
}

// FeatureImportances returns the mean impurity importance over all trees.
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	if !rf.state.IsFitted() {
		return nil
	}
	out := make([]float64, rf.nFeatures_)
	for _, tree := range rf.estimators_ {
		for j, v := range tree.featureImportances_ {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(rf.estimators_))
	}
	return out
}

// Classes returns the class labels in column order of PredictProba.
func (rf *RandomForestClassifier) Classes() []int {
	return append([]int(nil), rf.classes_...)
}

// Estimators returns the fitted trees.
func (rf *RandomForestClassifier) Estimators() []*DecisionTreeClassifier {
	return rf.estimators_
}

// IsFitted reports whether Fit has completed.
func (rf *RandomForestClassifier) IsFitted() bool { return rf.state.IsFitted() }

// GetParams returns the hyperparameters using scikit-learn names.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"random_state":      rf.randomState,
	}
}
