package runtime

import (
	"fmt"

	"github.com/headlands-org/go-encoder/internal/kernels"
	"github.com/headlands-org/go-encoder/matrix"
)

// FeedForward is the position-wise network Linear2(act(Linear1(x))).
// Rows never interact.
type FeedForward struct {
	up, down   *Linear
	activation kernels.Activation
	sched      *scheduler
}

func newFeedForward(w *WeightSet, act kernels.Activation, sched *scheduler) *FeedForward {
	return &FeedForward{
		up:         newLinear(w.FF1),
		down:       newLinear(w.FF2),
		activation: act,
		sched:      sched,
	}
}

// Forward applies the network to every row of x [seqLen, dModel].
func (f *FeedForward) Forward(x *matrix.Matrix) (*matrix.Matrix, error) {
	hidden, err := f.up.Apply(x)
	if err != nil {
		return nil, fmt.Errorf("ffn up: %w", err)
	}

	// hidden is owned here; activate each row in place.
	f.sched.forRows(hidden.Rows(), f.minRows(), func(start, end int) {
		for i := start; i < end; i++ {
			row := hidden.RawRowView(i)
			f.activation(row, row)
		}
	})

	out, err := f.down.Apply(hidden)
	if err != nil {
		return nil, fmt.Errorf("ffn down: %w", err)
	}
	return out, nil
}

func (f *FeedForward) minRows() int {
	if f.sched == nil {
		return 0
	}
	return f.sched.par.MinRowsForActivationParallel
}
