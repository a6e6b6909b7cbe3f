// Package ambientanim sequences the shift compositor into panning and
// rotating animations.
package ambientanim

import (
	"math"
	"math/rand"

	"github.com/OrBerebi/curriculum-timesteps/ambientshift"
	"github.com/unixpickle/anyvec"
)

// A Sequence is an ordered list of equally shaped frames.
type Sequence struct {
	Frames []*ambientshift.Tensor
}

// A Volume is a stacked animation, stored time-major as
// (time, batch, depth, height, width).
type Volume struct {
	Time   int
	Batch  int
	Depth  int
	Height int
	Width  int

	Data anyvec.Vector
}

// Stack packs the frames of a Sequence into a Volume.
func (s *Sequence) Stack() *Volume {
	if len(s.Frames) == 0 {
		panic("cannot stack an empty sequence")
	}
	first := s.Frames[0]
	vecs := make([]anyvec.Vector, len(s.Frames))
	for i, f := range s.Frames {
		if f.Batch != first.Batch || f.Depth != first.Depth ||
			f.Height != first.Height || f.Width != first.Width {
			panic("mismatched frame shapes")
		}
		vecs[i] = f.Data
	}
	return &Volume{
		Time:   len(s.Frames),
		Batch:  first.Batch,
		Depth:  first.Depth,
		Height: first.Height,
		Width:  first.Width,
		Data:   first.Creator().Concat(vecs...),
	}
}

// Frame returns a copy of the i-th frame of the Volume.
func (v *Volume) Frame(i int) *ambientshift.Tensor {
	if i < 0 || i >= v.Time {
		panic("frame index out of range")
	}
	size := v.Batch * v.Depth * v.Height * v.Width
	return &ambientshift.Tensor{
		Batch:  v.Batch,
		Depth:  v.Depth,
		Height: v.Height,
		Width:  v.Width,
		Data:   v.Data.Slice(i*size, (i+1)*size),
	}
}

// PanHorizontal produces a palindromic horizontal pan: numSteps frames
// sweeping left with ratios from 0 to shiftSpan, those frames
// reversed, then the same pair of sweeps to the right. The result has
// exactly 4*numSteps frames at the ambient resolution.
func PanHorizontal(ambient, real *ambientshift.Tensor, keepRatio, shiftSpan float64, numSteps int) *Sequence {
	return pan(ambient, real, keepRatio, shiftSpan, numSteps, false)
}

// PanVertical is the vertical analogue of PanHorizontal, sweeping up
// and then down.
func PanVertical(ambient, real *ambientshift.Tensor, keepRatio, shiftSpan float64, numSteps int) *Sequence {
	return pan(ambient, real, keepRatio, shiftSpan, numSteps, true)
}

func pan(ambient, real *ambientshift.Tensor, keepRatio, shiftSpan float64, numSteps int, vertical bool) *Sequence {
	if numSteps <= 0 {
		panic("step count out of range")
	}
	forward := sweep(ambient, real, keepRatio, shiftSpan, numSteps, true, vertical)
	backward := sweep(ambient, real, keepRatio, shiftSpan, numSteps, false, vertical)

	frames := make([]*ambientshift.Tensor, 0, 4*numSteps)
	frames = append(frames, forward...)
	frames = append(frames, reversed(forward)...)
	frames = append(frames, backward...)
	frames = append(frames, reversed(backward)...)
	return &Sequence{Frames: frames}
}

func sweep(ambient, real *ambientshift.Tensor, keepRatio, shiftSpan float64, numSteps int, towardStart, vertical bool) []*ambientshift.Tensor {
	res := make([]*ambientshift.Tensor, 0, numSteps)
	for i := 0; i < numSteps; i++ {
		var ratio float64
		if numSteps > 1 {
			ratio = shiftSpan * float64(i) / float64(numSteps-1)
		}
		var frame *ambientshift.Tensor
		if vertical {
			frame, _ = ambientshift.ShiftVertical(ambient, real, keepRatio, ratio, towardStart)
		} else {
			frame, _ = ambientshift.ShiftHorizontal(ambient, real, keepRatio, ratio, towardStart)
		}
		res = append(res, frame)
	}
	return res
}

func reversed(frames []*ambientshift.Tensor) []*ambientshift.Tensor {
	res := make([]*ambientshift.Tensor, len(frames))
	for i, f := range frames {
		res[len(frames)-(i+1)] = f
	}
	return res
}

// AnimateLeftRight synthesizes a palindromic horizontal pan from a
// single image: the ambient base is the image's center crop and every
// frame is upsampled back to the source resolution. Grayscale images
// are replicated to three channels first.
func AnimateLeftRight(image *ambientshift.Tensor, keepRatio, shiftSpan float64, numSteps int) *Volume {
	return animate(image, keepRatio, shiftSpan, numSteps, false)
}

// AnimateTopBottom is the vertical analogue of AnimateLeftRight.
func AnimateTopBottom(image *ambientshift.Tensor, keepRatio, shiftSpan float64, numSteps int) *Volume {
	return animate(image, keepRatio, shiftSpan, numSteps, true)
}

func animate(image *ambientshift.Tensor, keepRatio, shiftSpan float64, numSteps int, vertical bool) *Volume {
	src := image
	if src.Depth == 1 {
		src = ambientshift.GrayToRGB(src)
	}
	ambient := ambientshift.CenterCrop(src, keepRatio, false)
	seq := pan(ambient, src, keepRatio, shiftSpan, numSteps, vertical)
	for i, f := range seq.Frames {
		seq.Frames[i] = ambientshift.Resize(f, src.Height, src.Width)
	}
	return seq.Stack()
}

// Rotate approximates circular motion: for each step the angle
// advances by 2*pi/numSteps and is decomposed into a horizontal
// (sine) and vertical (cosine) shift ratio scaled by radius. The
// horizontal shift is applied first and the vertical shift is applied
// to the intermediate shifted real image.
func Rotate(ambient, real *ambientshift.Tensor, keepRatio, radius float64, numSteps int) *Sequence {
	if numSteps <= 0 {
		panic("step count out of range")
	}
	frames := make([]*ambientshift.Tensor, 0, numSteps)
	for i := 0; i < numSteps; i++ {
		angle := 2 * math.Pi * float64(i) / float64(numSteps)
		h := math.Sin(angle) * radius
		v := math.Cos(angle) * radius
		inter, shifted := ambientshift.ShiftHorizontal(ambient, real, keepRatio, h, true)
		frame, _ := ambientshift.ShiftVertical(inter, shifted, keepRatio, v, true)
		frames = append(frames, frame)
	}
	return &Sequence{Frames: frames}
}

// RandomWalk shifts each batch element once in an independently
// sampled random direction: a uniform angle in [0, 2*pi) and a
// uniform radius in [0, maxRadius], decomposed like Rotate.
//
// It returns the composited frame along with the sampled horizontal
// and vertical ratios, so callers can reproduce or log the walk.
func RandomWalk(ambient, real *ambientshift.Tensor, keepRatio, maxRadius float64, rng *rand.Rand) (*ambientshift.Tensor, []float64, []float64) {
	hs := make([]float64, ambient.Batch)
	vs := make([]float64, ambient.Batch)
	for i := range hs {
		angle := rng.Float64() * 2 * math.Pi
		radius := rng.Float64() * maxRadius
		hs[i] = math.Sin(angle) * radius
		vs[i] = math.Cos(angle) * radius
	}
	inter, shifted := ambientshift.ShiftHorizontalEach(ambient, real, keepRatio, hs)
	frame, _ := ambientshift.ShiftVerticalEach(inter, shifted, keepRatio, vs)
	return frame, hs, vs
}
