package encoder

import (
	"errors"
	"testing"
)

func TestFacadeRoundTrip(t *testing.T) {
	layer, err := New(8, 4, WithSeed(9), WithActivation(ActivationGELU))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer layer.Close()

	m, err := FromRows([][]float64{
		{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8},
		{1, 0, 1, 0, 1, 0, 1, 0},
	})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	out, err := Forward(layer, m)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if r, c := out.Dims(); r != 2 || c != 8 {
		t.Errorf("output %dx%d, expected 2x8", r, c)
	}
}

func TestFacadeErrors(t *testing.T) {
	if _, err := New(10, 3); !errors.Is(err, ErrConfig) {
		t.Errorf("New(10, 3) error = %v, expected ErrConfig", err)
	}

	layer, err := New(8, 2, WithSerial(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer layer.Close()

	m, _ := FromRows([][]float64{{1, 2, 3, 4, 5}})
	if _, err := Forward(layer, m); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Forward 1x5 error = %v, expected ErrDimensionMismatch", err)
	}
}
