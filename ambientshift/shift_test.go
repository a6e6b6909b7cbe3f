package ambientshift

import (
	"testing"

	"github.com/unixpickle/anyvec/anyvec32"
)

func TestShiftNoOp(t *testing.T) {
	c := anyvec32.CurrentCreator()
	ambient := valueTensor(c, 1, 1, 2, 2, []float64{100, 101, 102, 103})
	real := seqTensor(c, 1, 1, 4, 4)

	for _, ratio := range []float64{0, 0.04, -0.04} {
		comp, shifted := ShiftHorizontal(ambient, real, 0.5, ratio, true)
		assertData(t, comp.Data, vectorData(ambient.Data))
		assertData(t, shifted.Data, vectorData(real.Data))
	}
}

func TestShiftHorizontalContent(t *testing.T) {
	c := anyvec32.CurrentCreator()
	ambient := valueTensor(c, 1, 1, 2, 2, []float64{100, 101, 102, 103})
	real := seqTensor(c, 1, 1, 4, 4)

	comp, shifted := ShiftHorizontal(ambient, real, 0.5, 0.5, true)
	assertData(t, shifted.Data, []float64{
		2, 3, 0, 0,
		6, 7, 0, 0,
		10, 11, 0, 0,
		14, 15, 0, 0,
	})
	assertData(t, comp.Data, []float64{100, 0, 102, 0})

	comp, shifted = ShiftHorizontal(ambient, real, 0.5, 0.5, false)
	assertData(t, shifted.Data, []float64{
		0, 0, 0, 1,
		0, 0, 4, 5,
		0, 0, 8, 9,
		0, 0, 12, 13,
	})
	assertData(t, comp.Data, []float64{0, 101, 0, 103})
}

func TestShiftVerticalContent(t *testing.T) {
	c := anyvec32.CurrentCreator()
	ambient := valueTensor(c, 1, 1, 2, 2, []float64{100, 101, 102, 103})
	real := seqTensor(c, 1, 1, 4, 4)

	comp, shifted := ShiftVertical(ambient, real, 0.5, 0.5, true)
	assertData(t, shifted.Data, []float64{
		8, 9, 10, 11,
		12, 13, 14, 15,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})
	assertData(t, comp.Data, []float64{100, 101, 0, 0})
}

func TestShiftNegativeRatio(t *testing.T) {
	c := anyvec32.CurrentCreator()
	ambient := valueTensor(c, 1, 1, 2, 2, []float64{100, 101, 102, 103})
	real := seqTensor(c, 1, 1, 4, 4)

	comp1, shifted1 := ShiftHorizontal(ambient, real, 0.5, -0.5, false)
	comp2, shifted2 := ShiftHorizontal(ambient, real, 0.5, 0.5, true)
	assertData(t, comp1.Data, vectorData(comp2.Data))
	assertData(t, shifted1.Data, vectorData(shifted2.Data))
}

func TestShiftRoundTrip(t *testing.T) {
	c := anyvec32.CurrentCreator()
	ambData := make([]float64, 16)
	for i := range ambData {
		ambData[i] = 200 + float64(i)
	}
	ambient := valueTensor(c, 1, 1, 4, 4, ambData)
	real := seqTensor(c, 1, 1, 8, 8)

	// Ratio 0.2 shifts 2 of 8 real pixels, a 1-pixel band at ambient
	// scale: leftward writes column 3, rightward writes column 0.
	left, _ := ShiftHorizontal(ambient, real, 0.5, 0.2, true)
	restored, _ := ShiftHorizontal(left, real, 0.5, 0.2, false)

	orig := vectorData(ambient.Data)
	res := vectorData(restored.Data)
	for y := 0; y < 4; y++ {
		for x := 1; x < 3; x++ {
			idx := y*4 + x
			if res[idx] != orig[idx] {
				t.Errorf("pixel (%d, %d): expected %f but got %f", x, y,
					orig[idx], res[idx])
			}
		}
	}
}

func TestShiftDoesNotMutate(t *testing.T) {
	c := anyvec32.CurrentCreator()
	ambient := valueTensor(c, 1, 1, 2, 2, []float64{100, 101, 102, 103})
	real := seqTensor(c, 1, 1, 4, 4)
	ambBefore := vectorData(ambient.Data)
	realBefore := vectorData(real.Data)

	ShiftHorizontal(ambient, real, 0.5, 0.5, true)
	ShiftVertical(ambient, real, 0.5, 0.5, false)

	assertData(t, ambient.Data, ambBefore)
	assertData(t, real.Data, realBefore)
}

func TestShiftContractViolations(t *testing.T) {
	c := anyvec32.CurrentCreator()
	ambient := valueTensor(c, 1, 1, 2, 2, []float64{100, 101, 102, 103})

	// Real image narrower than double the ambient width.
	narrow := seqTensor(c, 1, 1, 4, 3)
	if !panics(func() { ShiftHorizontal(ambient, narrow, 0.5, 0.5, true) }) {
		t.Error("expected panic for sub-2x real width")
	}

	// Aspect mismatch.
	skewed := seqTensor(c, 1, 1, 4, 6)
	if !panics(func() { ShiftHorizontal(ambient, skewed, 0.5, 0.5, true) }) {
		t.Error("expected panic for aspect mismatch")
	}

	// Keep ratio that does not reproduce the ambient resolution.
	real := seqTensor(c, 1, 1, 4, 4)
	if !panics(func() { ShiftHorizontal(ambient, real, 0.4, 0.5, true) }) {
		t.Error("expected panic for keep ratio mismatch")
	}

	// Depth mismatch.
	deep := seqTensor(c, 1, 3, 4, 4)
	if !panics(func() { ShiftHorizontal(ambient, deep, 0.5, 0.5, true) }) {
		t.Error("expected panic for depth mismatch")
	}
}

func TestShiftEach(t *testing.T) {
	c := anyvec32.CurrentCreator()
	ambient := seqTensor(c, 2, 1, 2, 2)
	real := seqTensor(c, 2, 1, 4, 4)
	ratios := []float64{0.5, -0.5}

	comp, shifted := ShiftHorizontalEach(ambient, real, 0.5, ratios)

	comp0, shifted0 := ShiftHorizontal(ambient.Sample(0), real.Sample(0), 0.5, 0.5, true)
	comp1, shifted1 := ShiftHorizontal(ambient.Sample(1), real.Sample(1), 0.5, 0.5, false)

	assertData(t, comp.Sample(0).Data, vectorData(comp0.Data))
	assertData(t, comp.Sample(1).Data, vectorData(comp1.Data))
	assertData(t, shifted.Sample(0).Data, vectorData(shifted0.Data))
	assertData(t, shifted.Sample(1).Data, vectorData(shifted1.Data))

	if !panics(func() { ShiftHorizontalEach(ambient, real, 0.5, []float64{1}) }) {
		t.Error("expected panic for ratio count mismatch")
	}
}
