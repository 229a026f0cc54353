package runtime

import (
	"fmt"

	"github.com/headlands-org/go-encoder/matrix"
)

// Options controls how a layer executes. It never affects results.
type Options struct {
	// Workers is the worker pool size. Values <= 1 run every sublayer serially.
	Workers int

	// Parallelism overrides DefaultParallelismConfig when non-nil.
	Parallelism *ParallelismConfig
}

// EncoderLayer owns one weight set and runs the forward pass
//
//	attn   = MultiHead(input)
//	x1     = LayerNorm1(input + attn)
//	ff     = FeedForward(x1)
//	output = LayerNorm2(x1 + ff)
//
// The weights are read-only after construction, so Forward may be called
// from several goroutines at once.
type EncoderLayer struct {
	config  LayerConfig
	weights *WeightSet

	attention *MultiHeadAttention
	ffn       *FeedForward
	norm1     *LayerNorm
	norm2     *LayerNorm

	sched *scheduler
}

// NewEncoderLayer validates cfg and weights and wires the sublayers. The
// layer keeps a private copy of weights.
func NewEncoderLayer(cfg LayerConfig, weights *WeightSet, opts Options) (*EncoderLayer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := weights.Validate(cfg); err != nil {
		return nil, err
	}
	act, err := cfg.Activation.kernel()
	if err != nil {
		return nil, err
	}

	par := DefaultParallelismConfig(cfg)
	if opts.Parallelism != nil {
		par = *opts.Parallelism
	}

	var sched *scheduler
	if opts.Workers > 1 {
		sched = newScheduler(opts.Workers, par)
	}

	w := weights.Clone()
	return &EncoderLayer{
		config:    cfg,
		weights:   w,
		attention: newMultiHeadAttention(cfg, w, sched),
		ffn:       newFeedForward(w, act, sched),
		norm1:     newLayerNorm(w.Norm1, cfg.Epsilon, sched),
		norm2:     newLayerNorm(w.Norm2, cfg.Epsilon, sched),
		sched:     sched,
	}, nil
}

// Config returns the layer configuration.
func (l *EncoderLayer) Config() LayerConfig {
	return l.config
}

// Weights returns a deep copy of the layer's weights.
func (l *EncoderLayer) Weights() *WeightSet {
	return l.weights.Clone()
}

// Parallelism returns the thresholds in effect and the worker count
// (0 when the layer runs serially).
func (l *EncoderLayer) Parallelism() (ParallelismConfig, int) {
	if l.sched == nil {
		return DefaultParallelismConfig(l.config), 0
	}
	return l.sched.par, l.sched.workerCount()
}

// Forward runs the layer on input [seqLen, dModel] and returns a matrix of
// the same shape. A column count other than dModel fails with
// matrix.ErrDimensionMismatch before any work is done.
func (l *EncoderLayer) Forward(input *matrix.Matrix) (*matrix.Matrix, error) {
	out, _, err := l.forward(input, false)
	return out, err
}

// ForwardWithAttention also returns the per-head attention weights.
func (l *EncoderLayer) ForwardWithAttention(input *matrix.Matrix) (*matrix.Matrix, []*matrix.Matrix, error) {
	return l.forward(input, true)
}

func (l *EncoderLayer) forward(input *matrix.Matrix, keepWeights bool) (*matrix.Matrix, []*matrix.Matrix, error) {
	if input == nil {
		return nil, nil, fmt.Errorf("%w: nil input", matrix.ErrDimensionMismatch)
	}
	if input.Cols() != l.config.DModel {
		return nil, nil, fmt.Errorf("%w: input has %d columns, layer expects d_model=%d",
			matrix.ErrDimensionMismatch, input.Cols(), l.config.DModel)
	}
	if input.Rows() == 0 {
		return matrix.Zeros(0, l.config.DModel), nil, nil
	}

	var (
		attn    *matrix.Matrix
		weights []*matrix.Matrix
		err     error
	)
	if keepWeights {
		attn, weights, err = l.attention.ForwardWithWeights(input)
	} else {
		attn, err = l.attention.Forward(input)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("attention: %w", err)
	}
	sum, err := matrix.Add(input, attn)
	if err != nil {
		return nil, nil, fmt.Errorf("attention residual: %w", err)
	}
	x1, err := l.norm1.Apply(sum)
	if err != nil {
		return nil, nil, fmt.Errorf("norm1: %w", err)
	}

	ff, err := l.ffn.Forward(x1)
	if err != nil {
		return nil, nil, fmt.Errorf("feed-forward: %w", err)
	}
	sum, err = matrix.Add(x1, ff)
	if err != nil {
		return nil, nil, fmt.Errorf("feed-forward residual: %w", err)
	}
	out, err := l.norm2.Apply(sum)
	if err != nil {
		return nil, nil, fmt.Errorf("norm2: %w", err)
	}
	return out, weights, nil
}

// Close stops the worker pool. Forward keeps working serially afterwards.
func (l *EncoderLayer) Close() error {
	l.sched.close()
	return nil
}
