package runtime

import (
	"fmt"

	"github.com/headlands-org/go-encoder/internal/kernels"
	"github.com/headlands-org/go-encoder/matrix"
)

// MultiHeadAttention projects the input into Q/K/V, runs scaled dot-product
// attention independently per head and recombines the heads through the
// output projection.
type MultiHeadAttention struct {
	numHeads int
	headDim  int

	query, key, value, output *Linear

	sched *scheduler
}

func newMultiHeadAttention(cfg LayerConfig, w *WeightSet, sched *scheduler) *MultiHeadAttention {
	return &MultiHeadAttention{
		numHeads: cfg.NumHeads,
		headDim:  cfg.HeadDim(),
		query:    newLinear(w.Query),
		key:      newLinear(w.Key),
		value:    newLinear(w.Value),
		output:   newLinear(w.Output),
		sched:    sched,
	}
}

// Forward returns the attention sublayer output for x [seqLen, dModel].
func (a *MultiHeadAttention) Forward(x *matrix.Matrix) (*matrix.Matrix, error) {
	out, _, err := a.forward(x, false)
	return out, err
}

// ForwardWithWeights also returns the per-head attention weights
// [seqLen, seqLen], one matrix per head.
func (a *MultiHeadAttention) ForwardWithWeights(x *matrix.Matrix) (*matrix.Matrix, []*matrix.Matrix, error) {
	return a.forward(x, true)
}

func (a *MultiHeadAttention) forward(x *matrix.Matrix, keepWeights bool) (*matrix.Matrix, []*matrix.Matrix, error) {
	q, err := a.query.Apply(x)
	if err != nil {
		return nil, nil, fmt.Errorf("query projection: %w", err)
	}
	k, err := a.key.Apply(x)
	if err != nil {
		return nil, nil, fmt.Errorf("key projection: %w", err)
	}
	v, err := a.value.Apply(x)
	if err != nil {
		return nil, nil, fmt.Errorf("value projection: %w", err)
	}

	seqLen := x.Rows()
	heads := make([]*matrix.Matrix, a.numHeads)
	weights := make([]*matrix.Matrix, a.numHeads)
	tasks := make([]func(), a.numHeads)

	for h := 0; h < a.numHeads; h++ {
		start, end := h*a.headDim, (h+1)*a.headDim
		qh, err := matrix.NewHeadView(q, start, end)
		if err != nil {
			return nil, nil, err
		}
		kh, err := matrix.NewHeadView(k, start, end)
		if err != nil {
			return nil, nil, err
		}
		vh, err := matrix.NewHeadView(v, start, end)
		if err != nil {
			return nil, nil, err
		}

		tasks[h] = func() {
			headOut := matrix.Zeros(seqLen, a.headDim)
			w := matrix.Zeros(seqLen, seqLen)
			kernels.Attention(headOut.Raw(), qh.Raw(), kh.Raw(), vh.Raw(), w.Raw().Data)
			heads[h] = headOut
			weights[h] = w
		}
	}

	a.sched.runTasksThreshold(tasks, a.minHeads())

	// Copy each head back into its column range.
	concat, err := matrix.ConcatColumns(heads...)
	if err != nil {
		return nil, nil, fmt.Errorf("concat heads: %w", err)
	}
	out, err := a.output.Apply(concat)
	if err != nil {
		return nil, nil, fmt.Errorf("output projection: %w", err)
	}

	if !keepWeights {
		return out, nil, nil
	}
	return out, weights, nil
}

func (a *MultiHeadAttention) minHeads() int {
	if a.sched == nil {
		return 0
	}
	return a.sched.par.MinHeadsForAttentionParallel
}
