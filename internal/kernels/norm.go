package kernels

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultEpsilon is the variance floor used by LayerNorm.
const DefaultEpsilon = 1e-5

// MeanVariance returns the mean and population variance of x.
func MeanVariance(x []float64) (mean, variance float64) {
	n := len(x)
	if n == 0 {
		return 0, 0
	}
	mean = floats.Sum(x) / float64(n)

	sumSq := 0.0
	for _, v := range x {
		diff := v - mean
		sumSq += diff * diff
	}
	return mean, sumSq / float64(n)
}

// Normalize writes (x - mean(x)) / sqrt(var(x) + eps) into dst.
func Normalize(dst, src []float64, eps float64) {
	n := len(src)
	if len(dst) < n {
		panic("Normalize: buffer size mismatch")
	}
	if n == 0 {
		return
	}
	mean, variance := MeanVariance(src)
	invStd := 1.0 / math.Sqrt(variance+eps)
	for i := 0; i < n; i++ {
		dst[i] = (src[i] - mean) * invStd
	}
}

// LayerNorm applies layer normalization
// out[i] = (x[i] - mean(x)) / sqrt(var(x) + eps) * gamma[i] + beta[i]
// dst may alias src.
func LayerNorm(dst, src, gamma, beta []float64, eps float64) {
	n := len(src)
	if len(dst) < n || len(gamma) < n || len(beta) < n {
		panic("LayerNorm: buffer size mismatch")
	}
	Normalize(dst, src, eps)
	for i := 0; i < n; i++ {
		dst[i] = dst[i]*gamma[i] + beta[i]
	}
}
