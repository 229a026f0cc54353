package encoderlayer

import (
	"log"

	"github.com/headlands-org/go-encoder/internal/kernels"
	modelrt "github.com/headlands-org/go-encoder/internal/runtime"
)

// Activation selects the feed-forward nonlinearity.
type Activation = modelrt.ActivationKind

const (
	ActivationReLU = modelrt.ActivationReLU
	ActivationGELU = modelrt.ActivationGELU
	ActivationTanh = modelrt.ActivationTanh
)

// ParallelismConfig controls when sublayers fan out to the worker pool.
type ParallelismConfig = modelrt.ParallelismConfig

// Options configures a Layer
type Options struct {
	// FFDim is the feed-forward hidden width (d_ff).
	// Default: 0, meaning 4×d_model (or the width of supplied weights).
	FFDim int

	// Activation is the feed-forward nonlinearity. Default: ReLU.
	Activation Activation

	// Epsilon is the layer norm variance floor. Default: 1e-5.
	Epsilon float64

	// Seed fixes the random initialization. When unset, a time-based seed is
	// used and two layers get different weights.
	Seed    uint64
	hasSeed bool

	// ConstantInit, when set, fills every projection weight with one value
	// instead of drawing from a normal distribution.
	ConstantInit    float64
	hasConstantInit bool

	// NumThreads is the worker pool size used for head and row parallelism.
	//
	// If set to 0 (default): GOMAXPROCS workers.
	// If set to 1: no pool, every sublayer runs on the calling goroutine.
	NumThreads int

	// Parallelism overrides the auto-tuned thresholds.
	Parallelism *ParallelismConfig

	// Verbose enables verbose logging
	Verbose bool

	// Logger receives verbose output. Default: log.Default().
	Logger *log.Logger
}

// Option is a functional option for configuring a Layer
type Option func(*Options)

// WithFeedForwardDim sets the feed-forward hidden width
func WithFeedForwardDim(n int) Option {
	return func(o *Options) {
		o.FFDim = n
	}
}

// WithActivation sets the feed-forward activation
func WithActivation(a Activation) Option {
	return func(o *Options) {
		o.Activation = a
	}
}

// WithEpsilon sets the layer norm epsilon
func WithEpsilon(eps float64) Option {
	return func(o *Options) {
		o.Epsilon = eps
	}
}

// WithSeed makes weight initialization reproducible
func WithSeed(seed uint64) Option {
	return func(o *Options) {
		o.Seed = seed
		o.hasSeed = true
	}
}

// WithConstantInit fills every projection weight with v
func WithConstantInit(v float64) Option {
	return func(o *Options) {
		o.ConstantInit = v
		o.hasConstantInit = true
	}
}

// WithThreads sets the number of worker goroutines
func WithThreads(n int) Option {
	return func(o *Options) {
		o.NumThreads = n
	}
}

// WithSerial disables the worker pool
func WithSerial(serial bool) Option {
	return func(o *Options) {
		if serial {
			o.NumThreads = 1
		}
	}
}

// WithParallelism overrides the parallel thresholds
func WithParallelism(p ParallelismConfig) Option {
	return func(o *Options) {
		o.Parallelism = &p
	}
}

// WithVerbose enables verbose logging
func WithVerbose(v bool) Option {
	return func(o *Options) {
		o.Verbose = v
	}
}

// WithLogger sets the logger used when verbose
func WithLogger(l *log.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func defaultOptions() Options {
	return Options{
		Activation: ActivationReLU,
		Epsilon:    kernels.DefaultEpsilon,
	}
}
