package kernels

import (
	"math"
	"testing"
)

func TestSoftmax(t *testing.T) {
	src := []float64{1, 2, 3, 4}
	dst := make([]float64, 4)

	Softmax(dst, src)

	// Check sum = 1
	sum := 0.0
	for _, v := range dst {
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("Softmax sum = %f, expected 1.0", sum)
	}

	// Check monotonic (larger input -> larger output)
	for i := 0; i < len(dst)-1; i++ {
		if dst[i] >= dst[i+1] {
			t.Errorf("Softmax not monotonic: dst[%d]=%f >= dst[%d]=%f", i, dst[i], i+1, dst[i+1])
		}
	}

	// Known value: softmax([1,2,3,4])[3] = e^3 / (1 + e + e^2 + e^3)
	expected := math.Exp(3) / (1 + math.E + math.Exp(2) + math.Exp(3))
	if math.Abs(dst[3]-expected) > 1e-12 {
		t.Errorf("Softmax[3] = %f, expected %f", dst[3], expected)
	}
}

func TestSoftmaxLargeInputs(t *testing.T) {
	// Without max subtraction exp(1000) overflows to +Inf.
	src := []float64{1000, 1001, 999}
	dst := make([]float64, 3)
	Softmax(dst, src)

	sum := 0.0
	for i, v := range dst {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("Softmax[%d] = %f, expected finite", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("Softmax sum = %f, expected 1.0", sum)
	}
	if dst[1] <= dst[0] || dst[0] <= dst[2] {
		t.Errorf("Softmax ordering lost: %v", dst)
	}
}

func TestSoftmaxInPlaceAndUniform(t *testing.T) {
	row := []float64{5, 5, 5}
	Softmax(row, row)
	for i, v := range row {
		if math.Abs(v-1.0/3) > 1e-12 {
			t.Errorf("Softmax equal inputs [%d] = %f, expected 1/3", i, v)
		}
	}

	neg := []float64{math.Inf(-1), math.Inf(-1)}
	Softmax(neg, neg)
	if neg[0] != 0.5 || neg[1] != 0.5 {
		t.Errorf("Softmax all -Inf = %v, expected uniform", neg)
	}
}

func TestSoftmaxNaNAnywhere(t *testing.T) {
	for _, pos := range []int{0, 1, 2} {
		row := []float64{1, 2, 3}
		row[pos] = math.NaN()
		dst := make([]float64, 3)
		Softmax(dst, row)
		for i, v := range dst {
			if math.Abs(v-1.0/3) > 1e-12 {
				t.Errorf("NaN at %d: Softmax[%d] = %f, expected 1/3", pos, i, v)
			}
		}
	}
}

func TestReLU(t *testing.T) {
	src := []float64{-2, -0.5, 0, 0.5, 2}
	dst := make([]float64, len(src))
	ReLU(dst, src)
	expected := []float64{0, 0, 0, 0.5, 2}
	for i := range expected {
		if dst[i] != expected[i] {
			t.Errorf("ReLU(%f) = %f, expected %f", src[i], dst[i], expected[i])
		}
	}
}

func TestGELU(t *testing.T) {
	src := []float64{0, 1, -1, 2}
	dst := make([]float64, 4)

	GELU(dst, src)

	// Check GELU(0) = 0
	if math.Abs(dst[0]) > 1e-12 {
		t.Errorf("GELU(0) = %f, expected 0", dst[0])
	}

	// GELU(1) ≈ 0.8412 (tanh approximation)
	if math.Abs(dst[1]-0.8412) > 1e-3 {
		t.Errorf("GELU(1) = %f, expected ~0.8412", dst[1])
	}

	// GELU(-1) ≈ -0.1588
	if math.Abs(dst[2]+0.1588) > 1e-3 {
		t.Errorf("GELU(-1) = %f, expected ~-0.1588", dst[2])
	}
}

func TestTanh(t *testing.T) {
	src := []float64{-1, 0, 1}
	dst := make([]float64, 3)
	Tanh(dst, src)
	for i, x := range src {
		if dst[i] != math.Tanh(x) {
			t.Errorf("Tanh(%f) = %f, expected %f", x, dst[i], math.Tanh(x))
		}
	}
}

func TestNormalizeMoments(t *testing.T) {
	rows := [][]float64{
		{1, 2, 3, 4},
		{-3, 10, 0.5, 7, 2, -8},
		{100, 100.5, 99.5, 100},
	}

	for _, src := range rows {
		dst := make([]float64, len(src))
		Normalize(dst, src, DefaultEpsilon)

		mean, variance := MeanVariance(dst)
		if math.Abs(mean) > 1e-4 {
			t.Errorf("normalized mean = %g, expected ~0 (src %v)", mean, src)
		}
		if math.Abs(variance-1) > 1e-4 {
			t.Errorf("normalized variance = %g, expected ~1 (src %v)", variance, src)
		}
	}
}

func TestLayerNormGainBias(t *testing.T) {
	src := []float64{1, 2, 3, 4}
	gamma := []float64{2, 2, 2, 2}
	beta := []float64{1, 1, 1, 1}
	dst := make([]float64, 4)

	LayerNorm(dst, src, gamma, beta, 1e-5)

	// mean = 2.5, var = 1.25
	invStd := 1 / math.Sqrt(1.25+1e-5)
	for i, x := range src {
		expected := (x-2.5)*invStd*2 + 1
		if math.Abs(dst[i]-expected) > 1e-12 {
			t.Errorf("LayerNorm: dst[%d] = %f, expected %f", i, dst[i], expected)
		}
	}
}

func TestLayerNormConstantRow(t *testing.T) {
	// Zero variance: epsilon keeps the division finite.
	src := []float64{3, 3, 3}
	dst := make([]float64, 3)
	LayerNorm(dst, src, []float64{1, 1, 1}, []float64{0.5, 0.5, 0.5}, 1e-5)
	for i, v := range dst {
		if v != 0.5 {
			t.Errorf("LayerNorm constant row: dst[%d] = %f, expected 0.5", i, v)
		}
	}
}

func TestLayerNormPanicsOnShortGain(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("LayerNorm with short gamma did not panic")
		}
	}()
	LayerNorm(make([]float64, 3), []float64{1, 2, 3}, []float64{1}, []float64{0, 0, 0}, 1e-5)
}
