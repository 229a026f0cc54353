package runtime

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/headlands-org/go-encoder/matrix"
)

// Linear is an affine projection applied to row vectors: x·W + b.
type Linear struct {
	weight *matrix.Matrix // [inDim, outDim]
	bias   []float64      // [outDim]
}

func newLinear(lw LinearWeights) *Linear {
	return &Linear{weight: lw.W, bias: lw.B}
}

// InDim returns the expected input width.
func (l *Linear) InDim() int { return l.weight.Rows() }

// Apply returns x·W + b with b broadcast over rows.
func (l *Linear) Apply(x *matrix.Matrix) (*matrix.Matrix, error) {
	if x.Cols() != l.InDim() {
		return nil, fmt.Errorf("%w: linear expects %d input columns, got %d", matrix.ErrDimensionMismatch, l.InDim(), x.Cols())
	}
	out, err := matrix.MatMul(x, l.weight)
	if err != nil {
		return nil, err
	}
	// out is freshly allocated, so adding the bias in place is safe.
	for i := 0; i < out.Rows(); i++ {
		floats.Add(out.RawRowView(i), l.bias)
	}
	return out, nil
}
