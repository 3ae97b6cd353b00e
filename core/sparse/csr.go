// Package sparse provides a compressed sparse row matrix that satisfies gonum's mat.Matrix.
//
// TF-IDF feature matrices are mostly zeros: a news article touches a few hundred of the 5000
// vocabulary columns. CSR keeps only the non-zero entries of each row, in column order, and
// estimators iterate those entries directly instead of calling At for every cell.
package sparse

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/pkg/errors"
)

// CSR is a compressed sparse row matrix. Fields are exported for gob encoding.
//
// Row i's entries are Indices[Indptr[i]:Indptr[i+1]] (strictly increasing column indices) and
// the matching Data values.
type CSR struct {
	NRows   int
	NCols   int
	Indptr  []int
	Indices []int
	Data    []float64
}

var _ mat.Matrix = (*CSR)(nil)

// NewCSR validates and wraps the given CSR arrays. The slices are not copied.
func NewCSR(rows, cols int, indptr, indices []int, data []float64) (*CSR, error) {
	if rows < 0 || cols < 0 {
		return nil, errors.NewValueError("NewCSR", "dimensions must be non-negative")
	}
	if len(indptr) != rows+1 {
		return nil, errors.NewDimensionError("NewCSR", rows+1, len(indptr), 0)
	}
	if len(indices) != len(data) {
		return nil, errors.NewDimensionError("NewCSR", len(indices), len(data), 1)
	}
	if indptr[0] != 0 || indptr[rows] != len(data) {
		return nil, errors.NewValueError("NewCSR", "indptr must start at 0 and end at nnz")
	}
	for i := 0; i < rows; i++ {
		if indptr[i] > indptr[i+1] {
			return nil, errors.NewValueError("NewCSR", "indptr must be non-decreasing")
		}
		prev := -1
		for k := indptr[i]; k < indptr[i+1]; k++ {
			c := indices[k]
			if c < 0 || c >= cols {
				return nil, errors.NewValidationError("indices", "column index out of range", c)
			}
			if c <= prev {
				return nil, errors.NewValidationError("indices", "column indices must be strictly increasing within a row", c)
			}
			prev = c
		}
	}
	return &CSR{NRows: rows, NCols: cols, Indptr: indptr, Indices: indices, Data: data}, nil
}

// Dims returns the number of rows and columns.
func (m *CSR) Dims() (r, c int) {
	return m.NRows, m.NCols
}

// At returns the element at row i, column j. It panics with mat.ErrIndexOutOfRange on bad indices.
func (m *CSR) At(i, j int) float64 {
	if i < 0 || i >= m.NRows || j < 0 || j >= m.NCols {
		panic(mat.ErrIndexOutOfRange)
	}
	lo, hi := m.Indptr[i], m.Indptr[i+1]
	k := lo + sort.SearchInts(m.Indices[lo:hi], j)
	if k < hi && m.Indices[k] == j {
		return m.Data[k]
	}
	return 0
}

// T returns the implicit transpose.
func (m *CSR) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int {
	return len(m.Data)
}

// Row returns the column indices and values of row i. The slices alias the matrix storage.
func (m *CSR) Row(i int) ([]int, []float64) {
	lo, hi := m.Indptr[i], m.Indptr[i+1]
	return m.Indices[lo:hi], m.Data[lo:hi]
}

// RowDot returns the dot product of row i with w, where len(w) >= NCols.
func (m *CSR) RowDot(i int, w []float64) float64 {
	idx, vals := m.Row(i)
	var s float64
	for k, c := range idx {
		s += vals[k] * w[c]
	}
	return s
}

// SelectRows returns a new matrix made of the given rows, in order. Rows may repeat.
func (m *CSR) SelectRows(rows []int) *CSR {
	b := NewBuilder(m.NCols)
	for _, i := range rows {
		idx, vals := m.Row(i)
		b.AppendSorted(idx, vals)
	}
	return b.Build()
}

// ToDense materialises the matrix.
func (m *CSR) ToDense() *mat.Dense {
	if m.NRows == 0 || m.NCols == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(m.NRows, m.NCols, nil)
	for i := 0; i < m.NRows; i++ {
		idx, vals := m.Row(i)
		for k, c := range idx {
			d.Set(i, c, vals[k])
		}
	}
	return d
}

// Equal reports whether a and b have the same shape and identical stored entries.
func Equal(a, b *CSR) bool {
	if a.NRows != b.NRows || a.NCols != b.NCols || len(a.Data) != len(b.Data) {
		return false
	}
	for i := range a.Indptr {
		if a.Indptr[i] != b.Indptr[i] {
			return false
		}
	}
	for k := range a.Data {
		if a.Indices[k] != b.Indices[k] || a.Data[k] != b.Data[k] {
			return false
		}
	}
	return true
}

// FromMatrix converts any mat.Matrix into CSR, dropping zeros. A *CSR is returned as is.
func FromMatrix(x mat.Matrix) *CSR {
	if c, ok := x.(*CSR); ok {
		return c
	}
	r, c := x.Dims()
	b := NewBuilder(c)
	idx := make([]int, 0, c)
	vals := make([]float64, 0, c)
	for i := 0; i < r; i++ {
		idx, vals = idx[:0], vals[:0]
		for j := 0; j < c; j++ {
			if v := x.At(i, j); v != 0 {
				idx = append(idx, j)
				vals = append(vals, v)
			}
		}
		b.AppendSorted(idx, vals)
	}
	return b.Build()
}

// Builder assembles a CSR matrix row by row.
type Builder struct {
	cols    int
	indptr  []int
	indices []int
	data    []float64
}

// NewBuilder returns a Builder for a matrix with cols columns.
func NewBuilder(cols int) *Builder {
	return &Builder{cols: cols, indptr: []int{0}}
}

// AppendSorted appends a row whose column indices are already strictly increasing.
// The inputs are copied.
func (b *Builder) AppendSorted(idx []int, vals []float64) {
	b.indices = append(b.indices, idx...)
	b.data = append(b.data, vals...)
	b.indptr = append(b.indptr, len(b.data))
}

// AppendMap appends a row given as column -> value. Zero values are skipped.
func (b *Builder) AppendMap(row map[int]float64) {
	cols := make([]int, 0, len(row))
	for c, v := range row {
		if v != 0 {
			cols = append(cols, c)
		}
	}
	sort.Ints(cols)
	for _, c := range cols {
		b.indices = append(b.indices, c)
		b.data = append(b.data, row[c])
	}
	b.indptr = append(b.indptr, len(b.data))
}

// Build returns the assembled matrix. The Builder must not be used afterwards.
func (b *Builder) Build() *CSR {
	return &CSR{
		NRows:   len(b.indptr) - 1,
		NCols:   b.cols,
		Indptr:  b.indptr,
		Indices: b.indices,
		Data:    b.data,
	}
}
