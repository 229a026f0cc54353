// Package encoder computes the forward pass of a transformer encoder layer:
// multi-head self-attention and a position-wise feed-forward network, each
// followed by a residual connection and layer normalization.
package encoder

import (
	"github.com/headlands-org/go-encoder/matrix"
	"github.com/headlands-org/go-encoder/pkg/encoderlayer"
)

// Matrix is the dense row-major matrix consumed and produced by a Layer.
type Matrix = matrix.Matrix

// Layer is a configured encoder layer.
type Layer = encoderlayer.Layer

// Option configures a Layer.
type Option = encoderlayer.Option

// Activation selects the feed-forward nonlinearity.
type Activation = encoderlayer.Activation

// Activations.
const (
	ActivationReLU = encoderlayer.ActivationReLU
	ActivationGELU = encoderlayer.ActivationGELU
	ActivationTanh = encoderlayer.ActivationTanh
)

// Options helpers for configuring a Layer.
var (
	WithFeedForwardDim = encoderlayer.WithFeedForwardDim
	WithActivation     = encoderlayer.WithActivation
	WithEpsilon        = encoderlayer.WithEpsilon
	WithSeed           = encoderlayer.WithSeed
	WithConstantInit   = encoderlayer.WithConstantInit
	WithThreads        = encoderlayer.WithThreads
	WithSerial         = encoderlayer.WithSerial
	WithVerbose        = encoderlayer.WithVerbose
	WithLogger         = encoderlayer.WithLogger
)

// Errors. Use errors.Is to test for them.
var (
	ErrConfig            = encoderlayer.ErrConfig
	ErrDimensionMismatch = encoderlayer.ErrDimensionMismatch
)

// New builds an encoder layer of width dModel with numHeads heads. It fails
// with ErrConfig when either is non-positive or numHeads does not divide
// dModel. Call Close on the returned layer to stop its worker pool.
func New(dModel, numHeads int, opts ...Option) (*Layer, error) {
	return encoderlayer.New(dModel, numHeads, opts...)
}

// Forward runs layer on m and returns a matrix of the same shape.
func Forward(layer *Layer, m *Matrix) (*Matrix, error) {
	return layer.Forward(m)
}

// FromRows builds a Matrix from equal-length rows.
func FromRows(rows [][]float64) (*Matrix, error) {
	return matrix.FromRows(rows)
}
