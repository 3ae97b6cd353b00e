// Package model_selection splits datasets for training and evaluation.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/core/sparse"
	"github.com/ezoic/newsclf/pkg/errors"
)

// Split holds a train/test partition of a feature matrix and its labels.
type Split struct {
	XTrain, XTest *sparse.CSR
	YTrain, YTest *mat.VecDense

	// TrainIndex and TestIndex are the original row numbers of each partition.
	TrainIndex, TestIndex []int
}

type splitConfig struct {
	testSize    float64
	randomState uint64
	shuffle     bool
}

// SplitOption configures TrainTestSplit.
type SplitOption func(*splitConfig)

// WithTestSize sets the fraction of rows placed in the test partition (default 0.25).
func WithTestSize(f float64) SplitOption {
	return func(c *splitConfig) {
		c.testSize = f
	}
}

// WithRandomState seeds the permutation.
func WithRandomState(seed uint64) SplitOption {
	return func(c *splitConfig) {
		c.randomState = seed
	}
}

// WithShuffle disables shuffling when false; the first rows then form the test partition.
func WithShuffle(shuffle bool) SplitOption {
	return func(c *splitConfig) {
		c.shuffle = shuffle
	}
}

// TrainTestSplitIndices returns train and test row indices for n samples.
//
// The test partition has ceil(testSize·n) rows and takes the head of a seeded permutation;
// the train partition takes the rest. The same (n, testSize, seed) always gives the same
// partition.
func TrainTestSplitIndices(n int, opts ...SplitOption) (train, test []int, err error) {
	cfg := splitConfig{testSize: 0.25, shuffle: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !(cfg.testSize > 0 && cfg.testSize < 1) {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", cfg.testSize)
	}

	nTest := int(math.Ceil(cfg.testSize * float64(n)))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("with n_samples=%d and test_size=%g the resulting train set would be empty", n, cfg.testSize))
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if cfg.shuffle {
		rng := rand.New(rand.NewPCG(cfg.randomState, cfg.randomState))
		rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	}

	return perm[nTest:], perm[:nTest], nil
}

// TrainTestSplit partitions X and y with TrainTestSplitIndices. X and y must have the same
// number of rows.
//
// Example:
//
//	s, err := model_selection.TrainTestSplit(X, y,
//		model_selection.WithTestSize(0.2), model_selection.WithRandomState(42))
func TrainTestSplit(X *sparse.CSR, y mat.Vector, opts ...SplitOption) (*Split, error) {
	rows, _ := X.Dims()
	if y.Len() != rows {
		return nil, errors.NewDimensionError("TrainTestSplit", rows, y.Len(), 0)
	}

	train, test, err := TrainTestSplitIndices(rows, opts...)
	if err != nil {
		return nil, err
	}

	return &Split{
		XTrain:     X.SelectRows(train),
		XTest:      X.SelectRows(test),
		YTrain:     selectVec(y, train),
		YTest:      selectVec(y, test),
		TrainIndex: train,
		TestIndex:  test,
	}, nil
}

func selectVec(y mat.Vector, idx []int) *mat.VecDense {
	out := mat.NewVecDense(len(idx), nil)
	for i, r := range idx {
		out.SetVec(i, y.AtVec(r))
	}
	return out
}
