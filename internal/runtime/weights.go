package runtime

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/headlands-org/go-encoder/matrix"
)

// LinearWeights is one affine map: W [inDim, outDim] and B [outDim].
type LinearWeights struct {
	W *matrix.Matrix
	B []float64
}

// NormWeights holds the gain/bias vectors of one normalization site.
type NormWeights struct {
	Gain []float64 // [dModel]
	Bias []float64 // [dModel]
}

// WeightSet holds every parameter of one encoder layer.
type WeightSet struct {
	// Attention
	Query  LinearWeights // [dModel, dModel]
	Key    LinearWeights // [dModel, dModel]
	Value  LinearWeights // [dModel, dModel]
	Output LinearWeights // [dModel, dModel]

	// Feed-forward
	FF1 LinearWeights // [dModel, ffDim]
	FF2 LinearWeights // [ffDim, dModel]

	// Normalization: Norm1 after attention, Norm2 after feed-forward
	Norm1 NormWeights
	Norm2 NormWeights
}

// Initializer fills projection matrices during construction.
type Initializer interface {
	// Fill returns the value for element (i, j) of a fanIn×fanOut matrix.
	Fill(fanIn, fanOut int) func(i, j int) float64
}

// XavierNormal draws weights from N(0, 2/(fanIn+fanOut)).
type XavierNormal struct {
	Src rand.Source
}

// Fill implements Initializer.
func (x XavierNormal) Fill(fanIn, fanOut int) func(i, j int) float64 {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: math.Sqrt(2.0 / float64(fanIn+fanOut)),
		Src:   x.Src,
	}
	return func(int, int) float64 { return dist.Rand() }
}

// Constant sets every projection weight to Value.
type Constant struct {
	Value float64
}

// Fill implements Initializer.
func (c Constant) Fill(int, int) func(i, j int) float64 {
	return func(int, int) float64 { return c.Value }
}

// NewSource returns the random source used for weight initialization.
func NewSource(seed uint64) rand.Source {
	return rand.NewSource(seed)
}

// NewWeights builds a weight set for cfg. Projection matrices come from init;
// biases start at zero, normalization gains at one and biases at zero.
func NewWeights(cfg LayerConfig, init Initializer) (*WeightSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if init == nil {
		return nil, fmt.Errorf("%w: nil initializer", ErrConfig)
	}

	d, ff := cfg.DModel, cfg.FFDim
	return &WeightSet{
		Query:  newLinearWeights(d, d, init),
		Key:    newLinearWeights(d, d, init),
		Value:  newLinearWeights(d, d, init),
		Output: newLinearWeights(d, d, init),
		FF1:    newLinearWeights(d, ff, init),
		FF2:    newLinearWeights(ff, d, init),
		Norm1:  newNormWeights(d),
		Norm2:  newNormWeights(d),
	}, nil
}

// IdentityWeights builds the deterministic fixture: identity projections,
// zero biases, unit gains. cfg.FFDim must equal cfg.DModel.
func IdentityWeights(cfg LayerConfig) (*WeightSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.FFDim != cfg.DModel {
		return nil, fmt.Errorf("%w: identity weights need FFDim == DModel, got %d != %d", ErrConfig, cfg.FFDim, cfg.DModel)
	}

	d := cfg.DModel
	identity := func() LinearWeights {
		return LinearWeights{W: matrix.Identity(d), B: make([]float64, d)}
	}
	return &WeightSet{
		Query:  identity(),
		Key:    identity(),
		Value:  identity(),
		Output: identity(),
		FF1:    identity(),
		FF2:    identity(),
		Norm1:  newNormWeights(d),
		Norm2:  newNormWeights(d),
	}, nil
}

func newLinearWeights(inDim, outDim int, init Initializer) LinearWeights {
	fill := init.Fill(inDim, outDim)
	w := matrix.Zeros(inDim, outDim)
	for i := 0; i < inDim; i++ {
		for j := 0; j < outDim; j++ {
			w.Set(i, j, fill(i, j))
		}
	}
	return LinearWeights{W: w, B: make([]float64, outDim)}
}

func newNormWeights(d int) NormWeights {
	gain := make([]float64, d)
	for i := range gain {
		gain[i] = 1
	}
	return NormWeights{Gain: gain, Bias: make([]float64, d)}
}

// Validate checks every weight shape against cfg.
func (w *WeightSet) Validate(cfg LayerConfig) error {
	if w == nil {
		return fmt.Errorf("%w: nil weight set", ErrConfig)
	}
	d, ff := cfg.DModel, cfg.FFDim
	checks := []struct {
		name    string
		lw      LinearWeights
		in, out int
	}{
		{"query", w.Query, d, d},
		{"key", w.Key, d, d},
		{"value", w.Value, d, d},
		{"output", w.Output, d, d},
		{"ffn_up", w.FF1, d, ff},
		{"ffn_down", w.FF2, ff, d},
	}
	for _, c := range checks {
		if c.lw.W == nil {
			return fmt.Errorf("%w: %s weight missing", ErrConfig, c.name)
		}
		if r, cols := c.lw.W.Dims(); r != c.in || cols != c.out {
			return fmt.Errorf("%w: %s weight is %dx%d, expected %dx%d", ErrConfig, c.name, r, cols, c.in, c.out)
		}
		if len(c.lw.B) != c.out {
			return fmt.Errorf("%w: %s bias has %d values, expected %d", ErrConfig, c.name, len(c.lw.B), c.out)
		}
	}
	for i, n := range []NormWeights{w.Norm1, w.Norm2} {
		if len(n.Gain) != d || len(n.Bias) != d {
			return fmt.Errorf("%w: norm%d gain/bias lengths %d/%d, expected %d", ErrConfig, i+1, len(n.Gain), len(n.Bias), d)
		}
	}
	return nil
}

// Clone returns a deep copy of the weight set.
func (w *WeightSet) Clone() *WeightSet {
	cloneLinear := func(lw LinearWeights) LinearWeights {
		var m *matrix.Matrix
		if lw.W != nil {
			m = lw.W.Clone()
		}
		return LinearWeights{W: m, B: append([]float64(nil), lw.B...)}
	}
	cloneNorm := func(n NormWeights) NormWeights {
		return NormWeights{
			Gain: append([]float64(nil), n.Gain...),
			Bias: append([]float64(nil), n.Bias...),
		}
	}
	return &WeightSet{
		Query:  cloneLinear(w.Query),
		Key:    cloneLinear(w.Key),
		Value:  cloneLinear(w.Value),
		Output: cloneLinear(w.Output),
		FF1:    cloneLinear(w.FF1),
		FF2:    cloneLinear(w.FF2),
		Norm1:  cloneNorm(w.Norm1),
		Norm2:  cloneNorm(w.Norm2),
	}
}
