// Package encoderlayer provides the public API for running one transformer
// encoder layer forward pass.
package encoderlayer

import (
	"fmt"
	"log"
	"runtime"
	"time"

	modelrt "github.com/headlands-org/go-encoder/internal/runtime"
	"github.com/headlands-org/go-encoder/matrix"
)

// Errors returned by the package. Use errors.Is to test for them.
var (
	ErrConfig            = modelrt.ErrConfig
	ErrDimensionMismatch = matrix.ErrDimensionMismatch
)

// Weight set types, exposed for deterministic fixtures.
type (
	WeightSet     = modelrt.WeightSet
	LinearWeights = modelrt.LinearWeights
	NormWeights   = modelrt.NormWeights
)

// Layer is a configured encoder layer. Its weights are fixed at
// construction; Forward is safe for concurrent use.
type Layer struct {
	layer   *modelrt.EncoderLayer
	options Options
	logger  *log.Logger
}

// New builds a layer of width dModel with numHeads attention heads and
// randomly initialized weights.
//
// Unless WithSerial or WithThreads(1) is given, the layer starts a worker
// pool. Call Close when done with the layer to stop it; a layer that becomes
// unreachable without Close has its pool stopped after garbage collection.
func New(dModel, numHeads int, opts ...Option) (*Layer, error) {
	options := applyOptions(opts)
	cfg := layerConfig(dModel, numHeads, options)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	weights, err := modelrt.NewWeights(cfg, initializer(options))
	if err != nil {
		return nil, fmt.Errorf("init weights: %w", err)
	}
	return build(cfg, weights, options)
}

// NewWithWeights builds a layer around caller-supplied weights. Every weight
// shape must match dModel and the feed-forward width, which defaults to the
// width of weights.FF1.
func NewWithWeights(dModel, numHeads int, weights *WeightSet, opts ...Option) (*Layer, error) {
	if weights == nil {
		return nil, fmt.Errorf("%w: nil weight set", ErrConfig)
	}
	options := applyOptions(opts)
	if options.FFDim == 0 && weights.FF1.W != nil {
		options.FFDim = weights.FF1.W.Cols()
	}
	cfg := layerConfig(dModel, numHeads, options)
	return build(cfg, weights, options)
}

// IdentityWeights returns identity projections, zero biases and unit norm
// gains for a layer whose feed-forward width equals dModel.
func IdentityWeights(dModel, numHeads int) (*WeightSet, error) {
	cfg := modelrt.NewLayerConfig(dModel, numHeads)
	cfg.FFDim = dModel
	return modelrt.IdentityWeights(cfg)
}

func applyOptions(opts []Option) Options {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func layerConfig(dModel, numHeads int, o Options) modelrt.LayerConfig {
	cfg := modelrt.NewLayerConfig(dModel, numHeads)
	if o.FFDim != 0 {
		cfg.FFDim = o.FFDim
	}
	cfg.Epsilon = o.Epsilon
	cfg.Activation = o.Activation
	return cfg
}

func initializer(o Options) modelrt.Initializer {
	if o.hasConstantInit {
		return modelrt.Constant{Value: o.ConstantInit}
	}
	seed := o.Seed
	if !o.hasSeed {
		seed = uint64(time.Now().UnixNano())
	}
	return modelrt.XavierNormal{Src: modelrt.NewSource(seed)}
}

func build(cfg modelrt.LayerConfig, weights *WeightSet, o Options) (*Layer, error) {
	workers := o.NumThreads
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	layer, err := modelrt.NewEncoderLayer(cfg, weights, modelrt.Options{
		Workers:     workers,
		Parallelism: o.Parallelism,
	})
	if err != nil {
		return nil, err
	}

	logger := o.Logger
	if logger == nil {
		logger = log.Default()
	}
	l := &Layer{layer: layer, options: o, logger: logger}
	runtime.AddCleanup(l, func(inner *modelrt.EncoderLayer) { inner.Close() }, layer)

	if o.Verbose {
		par, n := layer.Parallelism()
		logger.Printf("encoder layer: d_model=%d heads=%d head_dim=%d d_ff=%d activation=%s eps=%g",
			cfg.DModel, cfg.NumHeads, cfg.HeadDim(), cfg.FFDim, cfg.Activation, cfg.Epsilon)
		logger.Printf("encoder layer: workers=%d min_heads=%d min_norm_rows=%d min_act_rows=%d rows_per_task=%d",
			n, par.MinHeadsForAttentionParallel, par.MinRowsForNormParallel,
			par.MinRowsForActivationParallel, par.RowsPerTask)
	}
	return l, nil
}

// Forward runs the layer on m [seqLen, dModel] and returns a new matrix of the
// same shape. It fails with ErrDimensionMismatch when m has the wrong width.
func (l *Layer) Forward(m *matrix.Matrix) (*matrix.Matrix, error) {
	return l.layer.Forward(m)
}

// ForwardRows is Forward for callers holding nested slices. Ragged rows fail
// with ErrDimensionMismatch.
func (l *Layer) ForwardRows(rows [][]float64) ([][]float64, error) {
	m, err := matrix.FromRows(rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return [][]float64{}, nil
	}
	out, err := l.layer.Forward(m)
	if err != nil {
		return nil, err
	}
	return out.ToRows(), nil
}

// ForwardWithAttention runs Forward and also returns each head's
// [seqLen, seqLen] attention weights.
func (l *Layer) ForwardWithAttention(m *matrix.Matrix) (*matrix.Matrix, []*matrix.Matrix, error) {
	return l.layer.ForwardWithAttention(m)
}

// DModel returns the model width.
func (l *Layer) DModel() int { return l.layer.Config().DModel }

// NumHeads returns the attention head count.
func (l *Layer) NumHeads() int { return l.layer.Config().NumHeads }

// HeadDim returns the per-head width.
func (l *Layer) HeadDim() int { return l.layer.Config().HeadDim() }

// FFDim returns the feed-forward hidden width.
func (l *Layer) FFDim() int { return l.layer.Config().FFDim }

// Weights returns a deep copy of the layer's weights.
func (l *Layer) Weights() *WeightSet { return l.layer.Weights() }

// Close releases the worker pool. The layer remains usable and runs
// serially afterwards.
func (l *Layer) Close() error {
	if l.options.Verbose {
		l.logger.Printf("encoder layer: closing worker pool")
	}
	return l.layer.Close()
}
