package ambientshift

import (
	"math"
	"testing"

	"github.com/unixpickle/anyvec"
)

// seqTensor creates a tensor whose components count up from 0.
func seqTensor(c anyvec.Creator, batch, depth, height, width int) *Tensor {
	data := make([]float64, batch*depth*height*width)
	for i := range data {
		data[i] = float64(i)
	}
	return &Tensor{
		Batch:  batch,
		Depth:  depth,
		Height: height,
		Width:  width,
		Data:   c.MakeVectorData(c.MakeNumericList(data)),
	}
}

// valueTensor creates a tensor with explicit component values.
func valueTensor(c anyvec.Creator, batch, depth, height, width int, values []float64) *Tensor {
	if len(values) != batch*depth*height*width {
		panic("incorrect value count")
	}
	return &Tensor{
		Batch:  batch,
		Depth:  depth,
		Height: height,
		Width:  width,
		Data:   c.MakeVectorData(c.MakeNumericList(values)),
	}
}

func assertData(t *testing.T, actual anyvec.Vector, expected []float64) {
	t.Helper()
	data := vectorData(actual)
	if len(data) != len(expected) {
		t.Fatalf("expected length %d but got %d", len(expected), len(data))
	}
	for i, x := range expected {
		a := data[i]
		if math.IsNaN(a) || math.Abs(x-a) > 1e-3 {
			t.Errorf("component %d: expected %f but got %f", i, x, a)
		}
	}
}

func panics(f func()) (res bool) {
	defer func() {
		res = recover() != nil
	}()
	f()
	return
}
