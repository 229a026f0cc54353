package kernels

import (
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
)

// Attention computes scaled dot-product attention for a single head.
//
// q, k, v: [seqLen, headDim] strided views (row i starts at Data[i*Stride])
// out:     [seqLen, headDim] destination, strided the same way
// weights: scratch of at least seqLen*seqLen; on return it holds the
//
//	row-major attention weights, each row summing to 1
//
// There is no mask: every position attends to every position, itself
// included.
func Attention(out, q, k, v blas64.General, weights []float64) {
	seqLen, headDim := q.Rows, q.Cols
	if k.Rows != seqLen || v.Rows != seqLen || out.Rows != seqLen {
		panic("Attention: sequence length mismatch")
	}
	if k.Cols != headDim || v.Cols != headDim || out.Cols != headDim {
		panic("Attention: head dimension mismatch")
	}
	if len(weights) < seqLen*seqLen {
		panic("Attention: weights scratch too small")
	}
	if seqLen == 0 || headDim == 0 {
		return
	}

	scale := 1.0 / math.Sqrt(float64(headDim))
	scores := weights[:seqLen*seqLen]

	// scores[i,j] = Q[i] · K[j] * scale
	for i := 0; i < seqLen; i++ {
		qRow := q.Data[i*q.Stride : i*q.Stride+headDim]
		row := scores[i*seqLen : (i+1)*seqLen]
		for j := 0; j < seqLen; j++ {
			kRow := k.Data[j*k.Stride : j*k.Stride+headDim]
			row[j] = floats.Dot(qRow, kRow) * scale
		}
		Softmax(row, row)
	}

	// out[i] = sum_j(weights[i,j] * V[j])
	for i := 0; i < seqLen; i++ {
		outRow := out.Data[i*out.Stride : i*out.Stride+headDim]
		for d := range outRow {
			outRow[d] = 0
		}
		for j := 0; j < seqLen; j++ {
			vRow := v.Data[j*v.Stride : j*v.Stride+headDim]
			axpyAccum(outRow, vRow, scores[i*seqLen+j])
		}
	}
}

// axpyAccum performs out += weight * vec.
func axpyAccum(out, vec []float64, weight float64) {
	if weight == 0 {
		return
	}
	for i := range out {
		out[i] += weight * vec[i]
	}
}
