package runtime

import (
	"errors"
	"math"
	"testing"

	"github.com/headlands-org/go-encoder/matrix"
)

func TestNewWeightsShapes(t *testing.T) {
	cfg := NewLayerConfig(6, 2)
	w, err := NewWeights(cfg, XavierNormal{Src: NewSource(1)})
	if err != nil {
		t.Fatalf("NewWeights: %v", err)
	}
	if err := w.Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if r, c := w.FF1.W.Dims(); r != 6 || c != 24 {
		t.Errorf("FF1 dims = %dx%d, expected 6x24", r, c)
	}
	if r, c := w.FF2.W.Dims(); r != 24 || c != 6 {
		t.Errorf("FF2 dims = %dx%d, expected 24x6", r, c)
	}
	for i := 0; i < 6; i++ {
		if w.Norm1.Gain[i] != 1 || w.Norm2.Bias[i] != 0 || w.Query.B[i] != 0 {
			t.Fatalf("norm/bias defaults wrong at %d", i)
		}
	}
}

func TestXavierNormalStatistics(t *testing.T) {
	cfg := NewLayerConfig(64, 4)
	w, err := NewWeights(cfg, XavierNormal{Src: NewSource(7)})
	if err != nil {
		t.Fatalf("NewWeights: %v", err)
	}

	raw := w.Query.W.Raw().Data
	mean, sumSq := 0.0, 0.0
	for _, v := range raw {
		mean += v
	}
	mean /= float64(len(raw))
	for _, v := range raw {
		sumSq += (v - mean) * (v - mean)
	}
	std := math.Sqrt(sumSq / float64(len(raw)))

	expected := math.Sqrt(2.0 / 128)
	if math.Abs(mean) > 0.01 {
		t.Errorf("mean = %f, expected ~0", mean)
	}
	if math.Abs(std-expected)/expected > 0.1 {
		t.Errorf("std = %f, expected ~%f", std, expected)
	}
}

func TestSeededWeightsReproducible(t *testing.T) {
	cfg := NewLayerConfig(8, 2)
	a, _ := NewWeights(cfg, XavierNormal{Src: NewSource(42)})
	b, _ := NewWeights(cfg, XavierNormal{Src: NewSource(42)})
	c, _ := NewWeights(cfg, XavierNormal{Src: NewSource(43)})

	if !matrix.EqualApprox(a.Key.W, b.Key.W, 0) {
		t.Error("same seed produced different weights")
	}
	if matrix.EqualApprox(a.Key.W, c.Key.W, 0) {
		t.Error("different seeds produced identical weights")
	}
}

func TestConstantInitializer(t *testing.T) {
	cfg := NewLayerConfig(4, 2)
	w, err := NewWeights(cfg, Constant{Value: 0.1})
	if err != nil {
		t.Fatalf("NewWeights: %v", err)
	}
	if !matrix.EqualApprox(w.Value.W, matrix.New(4, 4, 0.1), 0) {
		t.Errorf("constant weights = %v", w.Value.W)
	}
}

func TestIdentityWeightsRequireSquareFFN(t *testing.T) {
	cfg := NewLayerConfig(4, 2) // FFDim defaults to 16
	if _, err := IdentityWeights(cfg); !errors.Is(err, ErrConfig) {
		t.Errorf("IdentityWeights error = %v, expected ErrConfig", err)
	}
}

func TestNewWeightsInvalidConfig(t *testing.T) {
	if _, err := NewWeights(NewLayerConfig(10, 3), Constant{}); !errors.Is(err, ErrConfig) {
		t.Errorf("NewWeights(10,3) error = %v, expected ErrConfig", err)
	}
	if _, err := NewWeights(NewLayerConfig(4, 2), nil); !errors.Is(err, ErrConfig) {
		t.Errorf("NewWeights(nil init) error = %v, expected ErrConfig", err)
	}
}

func TestWeightSetCloneIsDeep(t *testing.T) {
	cfg := NewLayerConfig(4, 1)
	w, _ := NewWeights(cfg, Constant{Value: 1})
	c := w.Clone()
	c.Output.W.Set(0, 0, -5)
	c.FF1.B[0] = 3
	c.Norm1.Gain[0] = 0

	if w.Output.W.At(0, 0) != 1 || w.FF1.B[0] != 0 || w.Norm1.Gain[0] != 1 {
		t.Error("Clone shares storage with the original")
	}
}

func TestLinearApply(t *testing.T) {
	wm, _ := matrix.FromRows([][]float64{
		{1, 2},
		{3, 4},
		{5, 6},
	})
	lin := newLinear(LinearWeights{W: wm, B: []float64{0.5, -1}})
	x, _ := matrix.FromRows([][]float64{{1, 0, 1}, {0, 1, 0}})

	out, err := lin.Apply(x)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	expected, _ := matrix.FromRows([][]float64{{6.5, 7}, {3.5, 3}})
	if !matrix.EqualApprox(out, expected, 1e-12) {
		t.Errorf("Apply = %v, expected %v", out, expected)
	}

	if _, err := lin.Apply(matrix.Zeros(1, 2)); !errors.Is(err, matrix.ErrDimensionMismatch) {
		t.Errorf("Apply 1x2 error = %v, expected ErrDimensionMismatch", err)
	}
}

func TestActivationKind(t *testing.T) {
	for _, a := range []ActivationKind{ActivationReLU, ActivationGELU, ActivationTanh} {
		if _, err := a.kernel(); err != nil {
			t.Errorf("%s: %v", a, err)
		}
	}
	cfg := NewLayerConfig(4, 2)
	cfg.Activation = ActivationKind(99)
	if err := cfg.Validate(); !errors.Is(err, ErrConfig) {
		t.Errorf("unknown activation error = %v, expected ErrConfig", err)
	}
}
