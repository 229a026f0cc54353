package runtime

import (
	"fmt"

	"github.com/headlands-org/go-encoder/internal/kernels"
	"github.com/headlands-org/go-encoder/matrix"
)

// LayerNorm normalizes every row across the model axis and applies the
// learned gain and bias.
type LayerNorm struct {
	gain, bias []float64
	eps        float64
	sched      *scheduler
}

func newLayerNorm(w NormWeights, eps float64, sched *scheduler) *LayerNorm {
	return &LayerNorm{gain: w.Gain, bias: w.Bias, eps: eps, sched: sched}
}

// Apply returns the normalized copy of x.
func (n *LayerNorm) Apply(x *matrix.Matrix) (*matrix.Matrix, error) {
	if x.Cols() != len(n.gain) {
		return nil, fmt.Errorf("%w: layer norm expects %d columns, got %d", matrix.ErrDimensionMismatch, len(n.gain), x.Cols())
	}
	out := x.Clone()
	n.sched.forRows(out.Rows(), n.minRows(), func(start, end int) {
		for i := start; i < end; i++ {
			row := out.RawRowView(i)
			kernels.LayerNorm(row, row, n.gain, n.bias, n.eps)
		}
	})
	return out, nil
}

func (n *LayerNorm) minRows() int {
	if n.sched == nil {
		return 0
	}
	return n.sched.par.MinRowsForNormParallel
}
