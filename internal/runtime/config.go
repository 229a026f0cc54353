// Package runtime provides the execution engine for a single transformer
// encoder layer: weight ownership, the attention and feed-forward sublayers,
// layer normalization and the worker pool that drives them.
package runtime

import (
	"errors"
	"fmt"

	"github.com/headlands-org/go-encoder/internal/kernels"
)

// ErrConfig reports invalid construction parameters. No layer is produced
// when it is returned.
var ErrConfig = errors.New("invalid layer configuration")

// ActivationKind selects the feed-forward nonlinearity.
type ActivationKind int

const (
	ActivationReLU ActivationKind = iota
	ActivationGELU
	ActivationTanh
)

func (a ActivationKind) String() string {
	switch a {
	case ActivationReLU:
		return "relu"
	case ActivationGELU:
		return "gelu"
	case ActivationTanh:
		return "tanh"
	default:
		return fmt.Sprintf("activation(%d)", int(a))
	}
}

func (a ActivationKind) kernel() (kernels.Activation, error) {
	switch a {
	case ActivationReLU:
		return kernels.ReLU, nil
	case ActivationGELU:
		return kernels.GELU, nil
	case ActivationTanh:
		return kernels.Tanh, nil
	default:
		return nil, fmt.Errorf("%w: unknown activation %d", ErrConfig, int(a))
	}
}

// LayerConfig holds the encoder layer hyperparameters
type LayerConfig struct {
	DModel     int
	NumHeads   int
	FFDim      int     // feed-forward hidden width (d_ff)
	Epsilon    float64 // layer norm variance floor
	Activation ActivationKind
}

// DefaultFFDim returns the conventional feed-forward width, 4×d_model.
func DefaultFFDim(dModel int) int {
	return 4 * dModel
}

// NewLayerConfig returns a config with default FFDim, Epsilon and Activation.
func NewLayerConfig(dModel, numHeads int) LayerConfig {
	return LayerConfig{
		DModel:     dModel,
		NumHeads:   numHeads,
		FFDim:      DefaultFFDim(dModel),
		Epsilon:    kernels.DefaultEpsilon,
		Activation: ActivationReLU,
	}
}

// HeadDim returns d_model / num_heads.
func (c LayerConfig) HeadDim() int {
	if c.NumHeads <= 0 {
		return 0
	}
	return c.DModel / c.NumHeads
}

// Validate checks the invariants every layer relies on.
func (c LayerConfig) Validate() error {
	if c.DModel <= 0 {
		return fmt.Errorf("%w: d_model must be positive, got %d", ErrConfig, c.DModel)
	}
	if c.NumHeads <= 0 {
		return fmt.Errorf("%w: head count must be positive, got %d", ErrConfig, c.NumHeads)
	}
	if c.DModel%c.NumHeads != 0 {
		return fmt.Errorf("%w: d_model %d is not divisible by %d heads", ErrConfig, c.DModel, c.NumHeads)
	}
	if c.FFDim <= 0 {
		return fmt.Errorf("%w: feed-forward dimension must be positive, got %d", ErrConfig, c.FFDim)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon must be positive, got %g", ErrConfig, c.Epsilon)
	}
	if _, err := c.Activation.kernel(); err != nil {
		return err
	}
	return nil
}
