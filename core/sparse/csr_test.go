package sparse_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/core/model"
	"github.com/ezoic/newsclf/core/sparse"
)

func sample() *sparse.CSR {
	// [[0 1 0 2]
	//  [0 0 0 0]
	//  [3 0 4 0]]
	b := sparse.NewBuilder(4)
	b.AppendSorted([]int{1, 3}, []float64{1, 2})
	b.AppendSorted(nil, nil)
	b.AppendMap(map[int]float64{2: 4, 0: 3, 1: 0})
	return b.Build()
}

func TestCSRAccessors(t *testing.T) {
	m := sample()

	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, 4, m.NNZ())

	want := mat.NewDense(3, 4, []float64{
		0, 1, 0, 2,
		0, 0, 0, 0,
		3, 0, 4, 0,
	})
	assert.True(t, mat.Equal(want, m))
	assert.True(t, mat.Equal(want, m.ToDense()))
	assert.True(t, mat.Equal(want.T(), m.T()))

	assert.Equal(t, 1.0*0.5+2.0*2, m.RowDot(0, []float64{9, 0.5, 9, 2}))
	assert.Zero(t, m.RowDot(1, []float64{1, 1, 1, 1}))

	assert.Panics(t, func() { m.At(3, 0) })
}

func TestNewCSRValidation(t *testing.T) {
	_, err := sparse.NewCSR(2, 3, []int{0, 1, 2}, []int{0, 2}, []float64{1, 1})
	require.NoError(t, err)

	_, err = sparse.NewCSR(2, 3, []int{0, 1}, []int{0}, []float64{1})
	assert.Error(t, err, "indptr length")

	_, err = sparse.NewCSR(1, 3, []int{0, 2}, []int{2, 1}, []float64{1, 1})
	assert.Error(t, err, "unsorted columns")

	_, err = sparse.NewCSR(1, 3, []int{0, 1}, []int{3}, []float64{1})
	assert.Error(t, err, "column out of range")
}

func TestSelectRowsAndFromMatrix(t *testing.T) {
	m := sample()

	sel := m.SelectRows([]int{2, 0, 2})
	want := mat.NewDense(3, 4, []float64{
		3, 0, 4, 0,
		0, 1, 0, 2,
		3, 0, 4, 0,
	})
	assert.True(t, mat.Equal(want, sel))

	back := sparse.FromMatrix(m.ToDense())
	assert.True(t, sparse.Equal(m, back))
	assert.Same(t, m, sparse.FromMatrix(m))
}

func TestCSRGobRoundTrip(t *testing.T) {
	m := sample()

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(m, &buf))

	var loaded sparse.CSR
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))
	assert.True(t, sparse.Equal(m, &loaded))
}
