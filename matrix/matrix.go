// Package matrix provides the dense row-major matrix used throughout the
// encoder. Matrices are backed by gonum's mat.Dense and follow value
// semantics: every operation returns a fresh Matrix and never mutates its
// inputs.
package matrix

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned whenever operand shapes are incompatible.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Matrix is a rows×cols matrix of float64 values.
// A matrix with zero rows or zero columns is valid and holds no storage.
type Matrix struct {
	rows, cols int
	dense      *mat.Dense // nil when rows == 0 || cols == 0
}

// New returns a rows×cols matrix with every element set to fill.
// It panics on negative dimensions.
func New(rows, cols int, fill float64) *Matrix {
	m := Zeros(rows, cols)
	if fill != 0 && m.dense != nil {
		data := m.dense.RawMatrix().Data
		for i := range data {
			data[i] = fill
		}
	}
	return m
}

// Zeros returns a rows×cols matrix of zeros.
func Zeros(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: negative dimension %dx%d", rows, cols))
	}
	m := &Matrix{rows: rows, cols: cols}
	if rows > 0 && cols > 0 {
		m.dense = mat.NewDense(rows, cols, nil)
	}
	return m
}

// Identity returns the n×n identity matrix.
func Identity(n int) *Matrix {
	m := Zeros(n, n)
	for i := 0; i < n; i++ {
		m.dense.Set(i, i, 1)
	}
	return m
}

// FromSlice copies data (row-major, len rows*cols) into a new matrix.
func FromSlice(rows, cols int, data []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d matrix", ErrDimensionMismatch, len(data), rows, cols)
	}
	m := Zeros(rows, cols)
	if m.dense != nil {
		copy(m.dense.RawMatrix().Data, data)
	}
	return m, nil
}

// FromRows builds a matrix from a slice of equal-length rows.
// Ragged input fails with ErrDimensionMismatch.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return Zeros(0, 0), nil
	}
	cols := len(rows[0])
	m := Zeros(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrDimensionMismatch, i, len(row), cols)
		}
		if m.dense != nil {
			copy(m.dense.RawRowView(i), row)
		}
	}
	return m, nil
}

// wrap takes ownership of d.
func wrap(d *mat.Dense) *Matrix {
	r, c := d.Dims()
	return &Matrix{rows: r, cols: c, dense: d}
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// Dims returns (rows, cols).
func (m *Matrix) Dims() (int, int) { return m.rows, m.cols }

// At returns the element at (i, j).
func (m *Matrix) At(i, j int) float64 {
	m.checkIndex(i, j)
	return m.dense.At(i, j)
}

// Set assigns v at (i, j). It is meant for filling a matrix the caller has
// just created; matrices handed to other stages must not be mutated.
func (m *Matrix) Set(i, j int, v float64) {
	m.checkIndex(i, j)
	m.dense.Set(i, j, v)
}

func (m *Matrix) checkIndex(i, j int) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of range %dx%d", i, j, m.rows, m.cols))
	}
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	if i < 0 || i >= m.rows {
		panic(fmt.Sprintf("matrix: row %d out of range (%d rows)", i, m.rows))
	}
	out := make([]float64, m.cols)
	if m.dense != nil {
		copy(out, m.dense.RawRowView(i))
	}
	return out
}

// RawRowView returns row i backed by the matrix storage. Writes through the
// returned slice mutate m, so callers may only use it on matrices they own.
func (m *Matrix) RawRowView(i int) []float64 {
	if i < 0 || i >= m.rows {
		panic(fmt.Sprintf("matrix: row %d out of range (%d rows)", i, m.rows))
	}
	if m.dense == nil {
		return nil
	}
	return m.dense.RawRowView(i)
}

// ToRows returns the matrix as freshly allocated nested rows.
func (m *Matrix) ToRows() [][]float64 {
	out := make([][]float64, m.rows)
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{rows: m.rows, cols: m.cols}
	if m.dense != nil {
		c.dense = mat.DenseCopyOf(m.dense)
	}
	return c
}

// String implements fmt.Stringer.
func (m *Matrix) String() string {
	return fmt.Sprintf("%v", m.ToRows())
}

// MatMul returns a·b. It fails when a.Cols() != b.Rows().
func MatMul(a, b *Matrix) (*Matrix, error) {
	if a.cols != b.rows {
		return nil, fmt.Errorf("%w: matmul %dx%d · %dx%d", ErrDimensionMismatch, a.rows, a.cols, b.rows, b.cols)
	}
	if a.rows == 0 || b.cols == 0 || a.cols == 0 {
		return Zeros(a.rows, b.cols), nil
	}
	var out mat.Dense
	out.Mul(a.dense, b.dense)
	return wrap(&out), nil
}

// Add returns the elementwise sum a+b.
func Add(a, b *Matrix) (*Matrix, error) {
	if a.rows != b.rows || a.cols != b.cols {
		return nil, fmt.Errorf("%w: add %dx%d + %dx%d", ErrDimensionMismatch, a.rows, a.cols, b.rows, b.cols)
	}
	if a.dense == nil {
		return Zeros(a.rows, a.cols), nil
	}
	var out mat.Dense
	out.Add(a.dense, b.dense)
	return wrap(&out), nil
}

// AddRowVector returns m with bias added to every row.
func AddRowVector(m *Matrix, bias []float64) (*Matrix, error) {
	if len(bias) != m.cols {
		return nil, fmt.Errorf("%w: bias length %d for %d columns", ErrDimensionMismatch, len(bias), m.cols)
	}
	out := m.Clone()
	for i := 0; i < out.rows; i++ {
		floats.Add(out.dense.RawRowView(i), bias)
	}
	return out, nil
}

// Transpose returns mᵗ.
func Transpose(m *Matrix) *Matrix {
	if m.dense == nil {
		return Zeros(m.cols, m.rows)
	}
	return wrap(mat.DenseCopyOf(m.dense.T()))
}

// Apply returns a new matrix with fn applied to every element.
func Apply(m *Matrix, fn func(i, j int, v float64) float64) *Matrix {
	out := Zeros(m.rows, m.cols)
	if m.dense == nil {
		return out
	}
	out.dense.Apply(fn, m.dense)
	return out
}

// EqualApprox reports whether a and b have the same shape and every pair of
// elements is within tol (absolute or relative).
func EqualApprox(a, b *Matrix, tol float64) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	if a.dense == nil {
		return true
	}
	return floats.EqualApprox(a.dense.RawMatrix().Data, b.dense.RawMatrix().Data, tol)
}

// AllFinite reports whether m contains no NaN or infinite values.
func AllFinite(m *Matrix) bool {
	if m.dense == nil {
		return true
	}
	for _, v := range m.dense.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
