package ambientshift

import (
	"fmt"
	"math"

	"github.com/unixpickle/anyvec"
)

// ShiftHorizontal pans the content of the real image horizontally and
// splices the revealed band into a copy of the ambient image.
//
// The shiftRatio is the fraction of the real image's width to move,
// snapped to the nearest 0.1. A snapped ratio of zero is a no-op and a
// negative ratio shifts in the opposite direction. If shiftLeft is
// true, content moves toward lower x coordinates.
//
// It returns the composited ambient image and the shifted, zero-padded
// real image. The real image must span at least twice the ambient's
// width, the two images must agree in aspect, and keepRatio must be
// the ratio that center-crops the real resolution down to the
// ambient's. Violations panic.
func ShiftHorizontal(ambient, real *Tensor, keepRatio, shiftRatio float64, shiftLeft bool) (*Tensor, *Tensor) {
	return shiftAxis(ambient, real, keepRatio, shiftRatio, shiftLeft, false)
}

// ShiftVertical is the vertical analogue of ShiftHorizontal.
// If shiftUp is true, content moves toward lower y coordinates.
func ShiftVertical(ambient, real *Tensor, keepRatio, shiftRatio float64, shiftUp bool) (*Tensor, *Tensor) {
	return shiftAxis(ambient, real, keepRatio, shiftRatio, shiftUp, true)
}

// ShiftHorizontalEach applies an independent signed shift ratio to
// each batch element. Positive ratios shift toward lower x.
//
// The number of ratios must equal the batch size.
func ShiftHorizontalEach(ambient, real *Tensor, keepRatio float64, ratios []float64) (*Tensor, *Tensor) {
	return shiftEach(ambient, real, keepRatio, ratios, false)
}

// ShiftVerticalEach is the vertical analogue of ShiftHorizontalEach.
// Positive ratios shift toward lower y.
func ShiftVerticalEach(ambient, real *Tensor, keepRatio float64, ratios []float64) (*Tensor, *Tensor) {
	return shiftEach(ambient, real, keepRatio, ratios, true)
}

func shiftEach(ambient, real *Tensor, keepRatio float64, ratios []float64, vertical bool) (*Tensor, *Tensor) {
	if len(ratios) != ambient.Batch {
		panic("ratio count must equal batch size")
	}
	c := ambient.Creator()
	comps := make([]anyvec.Vector, len(ratios))
	shifts := make([]anyvec.Vector, len(ratios))
	for i, ratio := range ratios {
		comp, shifted := shiftAxis(ambient.Sample(i), real.Sample(i), keepRatio, ratio, true, vertical)
		comps[i] = comp.Data
		shifts[i] = shifted.Data
	}
	comp := *ambient
	comp.Data = c.Concat(comps...)
	shifted := *real
	shifted.Data = c.Concat(shifts...)
	return &comp, &shifted
}

func shiftAxis(ambient, real *Tensor, keepRatio, shiftRatio float64, towardStart, vertical bool) (*Tensor, *Tensor) {
	checkShiftPair(ambient, real, keepRatio, vertical)

	// The ratio is snapped to one decimal place before the zero and
	// sign tests; the pixel count below is derived from the snapped
	// value.
	snapped := math.Round(shiftRatio*10) / 10
	if snapped < 0 {
		snapped = -snapped
		towardStart = !towardStart
	}

	realDim := real.Width
	ambientDim := ambient.Width
	if vertical {
		realDim = real.Height
		ambientDim = ambient.Height
	}
	numPixels := int(math.Round(snapped * float64(realDim)))
	if numPixels <= 0 {
		return ambient.Clone(), real.Clone()
	}
	if numPixels > realDim {
		numPixels = realDim
	}

	shifted := shiftPad(real, numPixels, towardStart, vertical)
	aligned := cropCenter(shifted, ambient.Height, ambient.Width)
	composited := compositeBand(ambient, aligned, numPixels, realDim, ambientDim, towardStart, vertical)
	return composited, shifted
}

func checkShiftPair(ambient, real *Tensor, keepRatio float64, vertical bool) {
	if ambient.Batch != real.Batch || ambient.Depth != real.Depth {
		panic("mismatched tensor shapes")
	}
	realDim := real.Width
	ambientDim := ambient.Width
	if vertical {
		realDim = real.Height
		ambientDim = ambient.Height
	}
	if realDim < 2*ambientDim {
		panic(fmt.Sprintf("real dimension %d must be at least double the ambient dimension %d",
			realDim, ambientDim))
	}
	if real.Width*ambient.Height != real.Height*ambient.Width {
		panic("aspect mismatch between ambient and real images")
	}
	if int(float64(real.Height)*keepRatio) != ambient.Height ||
		int(float64(real.Width)*keepRatio) != ambient.Width {
		panic("keep ratio does not match the ambient resolution")
	}
}

// shiftPad moves the content of t by n pixels along an axis and
// zero-pads the vacated region, preserving the tensor's size.
func shiftPad(t *Tensor, n int, towardStart, vertical bool) *Tensor {
	table := make([]int, 0, t.SampleSize())
	for z := 0; z < t.Depth; z++ {
		for y := 0; y < t.Height; y++ {
			for x := 0; x < t.Width; x++ {
				srcX, srcY := x, y
				if vertical {
					if towardStart {
						srcY = y + n
					} else {
						srcY = y - n
					}
				} else {
					if towardStart {
						srcX = x + n
					} else {
						srcX = x - n
					}
				}
				if srcX < 0 || srcX >= t.Width || srcY < 0 || srcY >= t.Height {
					table = append(table, -1)
				} else {
					table = append(table, t.index(z, srcY, srcX))
				}
			}
		}
	}
	res := *t
	res.Data = gatherSamples(t, table)
	return &res
}

// compositeBand copies the ambient image and overwrites the band at
// the revealed edge with the corresponding slice of the aligned real
// image.
func compositeBand(ambient, aligned *Tensor, numPixels, realDim, ambientDim int, towardStart, vertical bool) *Tensor {
	band := int(math.Round(float64(numPixels) * float64(ambientDim) / float64(realDim)))
	if band > ambientDim {
		band = ambientDim
	}
	if band == 0 {
		return ambient.Clone()
	}

	// Content moving toward the start of the axis reveals new pixels
	// at the trailing edge, and vice versa.
	lo, hi := ambientDim-band, ambientDim
	if !towardStart {
		lo, hi = 0, band
	}

	s := ambient.SampleSize()
	table := make([]int, 0, s)
	for z := 0; z < ambient.Depth; z++ {
		for y := 0; y < ambient.Height; y++ {
			for x := 0; x < ambient.Width; x++ {
				coord := x
				if vertical {
					coord = y
				}
				idx := ambient.index(z, y, x)
				if coord >= lo && coord < hi {
					idx += s
				}
				table = append(table, idx)
			}
		}
	}
	res := *ambient
	res.Data = gatherPair(ambient, aligned, table)
	return &res
}
