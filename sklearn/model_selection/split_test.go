package model_selection_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/core/sparse"
	"github.com/ezoic/newsclf/pkg/errors"
	ms "github.com/ezoic/newsclf/sklearn/model_selection"
)

func TestTrainTestSplitIndicesSizes(t *testing.T) {
	tests := []struct {
		n, wantTest int
	}{
		{10, 2},
		{11, 3}, // ceil(2.2)
		{200, 40},
		{5, 1},
	}
	for _, tt := range tests {
		train, test, err := ms.TrainTestSplitIndices(tt.n, ms.WithTestSize(0.2), ms.WithRandomState(42))
		require.NoError(t, err)
		assert.Len(t, test, tt.wantTest, "n=%d", tt.n)
		assert.Len(t, train, tt.n-tt.wantTest, "n=%d", tt.n)

		all := append(append([]int(nil), train...), test...)
		sort.Ints(all)
		for i, v := range all {
			assert.Equal(t, i, v, "indices must form a partition of 0..n-1")
		}
	}
}

func TestTrainTestSplitIndicesReproducible(t *testing.T) {
	train1, test1, err := ms.TrainTestSplitIndices(100, ms.WithTestSize(0.2), ms.WithRandomState(42))
	require.NoError(t, err)
	train2, test2, err := ms.TrainTestSplitIndices(100, ms.WithTestSize(0.2), ms.WithRandomState(42))
	require.NoError(t, err)
	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)

	_, test3, err := ms.TrainTestSplitIndices(100, ms.WithTestSize(0.2), ms.WithRandomState(7))
	require.NoError(t, err)
	assert.NotEqual(t, test1, test3)
}

func TestTrainTestSplitNoShuffle(t *testing.T) {
	train, test, err := ms.TrainTestSplitIndices(5, ms.WithTestSize(0.4), ms.WithShuffle(false))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, test)
	assert.Equal(t, []int{2, 3, 4}, train)
}

func TestTrainTestSplitRows(t *testing.T) {
	X := sparse.FromMatrix(mat.NewDense(10, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))
	y := mat.NewVecDense(10, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	s, err := ms.TrainTestSplit(X, y, ms.WithTestSize(0.2), ms.WithRandomState(42))
	require.NoError(t, err)

	assert.Equal(t, 8, s.YTrain.Len())
	assert.Equal(t, 2, s.YTest.Len())
	for i, r := range s.TestIndex {
		assert.Equal(t, float64(r+1), s.XTest.At(i, 0))
		assert.Equal(t, float64(r+1), s.YTest.AtVec(i))
	}
	for i, r := range s.TrainIndex {
		assert.Equal(t, s.XTrain.At(i, 0), s.YTrain.AtVec(i))
		assert.Equal(t, float64(r+1), s.YTrain.AtVec(i))
	}
}

func TestTrainTestSplitErrors(t *testing.T) {
	X := sparse.FromMatrix(mat.NewDense(4, 1, []float64{1, 2, 3, 4}))

	_, err := ms.TrainTestSplit(X, mat.NewVecDense(3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, _, err = ms.TrainTestSplitIndices(10, ms.WithTestSize(1.5))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, _, err = ms.TrainTestSplitIndices(1, ms.WithTestSize(0.2))
	var vErr *errors.ValueError
	assert.True(t, errors.As(err, &vErr))
}
