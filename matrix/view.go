package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// HeadView is a non-owning view of the column range [Start, End) of a parent
// matrix. It shares the parent's storage and is only valid while the parent
// is alive and unmodified.
type HeadView struct {
	Start, End int
	view       *mat.Dense
	rows       int
}

// NewHeadView returns a view of columns [start, end) of m.
func NewHeadView(m *Matrix, start, end int) (*HeadView, error) {
	if start < 0 || end > m.cols || start >= end {
		return nil, fmt.Errorf("%w: column range [%d,%d) of %d columns", ErrDimensionMismatch, start, end, m.cols)
	}
	hv := &HeadView{Start: start, End: end, rows: m.rows}
	if m.dense != nil {
		hv.view = m.dense.Slice(0, m.rows, start, end).(*mat.Dense)
	}
	return hv, nil
}

// Rows returns the number of rows in the view.
func (h *HeadView) Rows() int { return h.rows }

// Cols returns the width of the view.
func (h *HeadView) Cols() int { return h.End - h.Start }

// At returns element (i, j) relative to the view.
func (h *HeadView) At(i, j int) float64 { return h.view.At(i, j) }

// Raw returns the strided storage backing the view. Row i starts at
// Data[i*Stride] and spans Cols elements.
func (h *HeadView) Raw() blas64.General {
	if h.view == nil {
		return blas64.General{Rows: h.rows, Cols: h.Cols()}
	}
	return h.view.RawMatrix()
}

// Raw returns the contiguous storage of m. Callers may write through it only
// on matrices they own.
func (m *Matrix) Raw() blas64.General {
	if m.dense == nil {
		return blas64.General{Rows: m.rows, Cols: m.cols, Stride: m.cols}
	}
	return m.dense.RawMatrix()
}

// ConcatColumns copies parts side by side into a new matrix. Every part must
// have the same row count.
func ConcatColumns(parts ...*Matrix) (*Matrix, error) {
	if len(parts) == 0 {
		return Zeros(0, 0), nil
	}
	rows := parts[0].rows
	cols := 0
	for i, p := range parts {
		if p.rows != rows {
			return nil, fmt.Errorf("%w: part %d has %d rows, expected %d", ErrDimensionMismatch, i, p.rows, rows)
		}
		cols += p.cols
	}

	out := Zeros(rows, cols)
	if out.dense == nil {
		return out, nil
	}
	offset := 0
	for _, p := range parts {
		if p.dense != nil {
			dst := out.dense.Slice(0, rows, offset, offset+p.cols).(*mat.Dense)
			dst.Copy(p.dense)
		}
		offset += p.cols
	}
	return out, nil
}
