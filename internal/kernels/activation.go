// Package kernels provides pure-Go row kernels for the encoder layer:
// activations, softmax, layer normalization and single-head attention.
//
// Kernels operate on caller-owned float64 slices and panic on misuse. Shape
// validation belongs to the caller.
package kernels

import "math"

// Activation is an elementwise nonlinearity applied in place or into dst.
type Activation func(dst, src []float64)

// ReLU applies the ReLU activation function
// ReLU(x) = max(0, x)
func ReLU(dst, src []float64) {
	n := len(src)
	if len(dst) < n {
		panic("ReLU: buffer size mismatch")
	}
	for i := 0; i < n; i++ {
		if src[i] > 0 {
			dst[i] = src[i]
		} else {
			dst[i] = 0
		}
	}
}

// GELU applies the GELU activation function (tanh approximation)
// GELU(x) ≈ 0.5 * x * (1 + tanh(sqrt(2/π) * (x + 0.044715 * x^3)))
func GELU(dst, src []float64) {
	const sqrt2OverPi = 0.7978845608028654 // sqrt(2/pi)
	const coeff = 0.044715

	n := len(src)
	if len(dst) < n {
		panic("GELU: buffer size mismatch")
	}
	for i := 0; i < n; i++ {
		x := src[i]
		inner := sqrt2OverPi * (x + coeff*x*x*x)
		dst[i] = 0.5 * x * (1.0 + math.Tanh(inner))
	}
}

// Tanh applies the hyperbolic tangent elementwise.
func Tanh(dst, src []float64) {
	n := len(src)
	if len(dst) < n {
		panic("Tanh: buffer size mismatch")
	}
	for i := 0; i < n; i++ {
		dst[i] = math.Tanh(src[i])
	}
}

// Softmax applies softmax activation
// softmax(x)_i = exp(x_i - max(x)) / sum(exp(x_j - max(x)))
//
// Subtracting the row maximum keeps every exponent <= 0, so exp never
// overflows and at least one term equals 1.
func Softmax(dst, src []float64) {
	n := len(src)
	if n == 0 {
		return
	}
	if len(dst) < n {
		panic("Softmax: buffer size mismatch")
	}

	maxVal := src[0]
	hasNaN := math.IsNaN(maxVal)
	for i := 1; i < n; i++ {
		switch v := src[i]; {
		case v > maxVal:
			maxVal = v
		case math.IsNaN(v):
			hasNaN = true
		}
	}

	// All -Inf or a NaN anywhere: fall back to uniform weights.
	if hasNaN || math.IsInf(maxVal, -1) {
		inv := 1.0 / float64(n)
		for i := 0; i < n; i++ {
			dst[i] = inv
		}
		return
	}

	sum := 0.0
	i := 0
	for ; i+3 < n; i += 4 {
		e0 := math.Exp(src[i] - maxVal)
		e1 := math.Exp(src[i+1] - maxVal)
		e2 := math.Exp(src[i+2] - maxVal)
		e3 := math.Exp(src[i+3] - maxVal)

		dst[i] = e0
		dst[i+1] = e1
		dst[i+2] = e2
		dst[i+3] = e3

		sum += e0 + e1 + e2 + e3
	}
	for ; i < n; i++ {
		e := math.Exp(src[i] - maxVal)
		dst[i] = e
		sum += e
	}

	invSum := 1.0 / sum
	for i := 0; i < n; i++ {
		dst[i] *= invSum
	}
}
