// Package ambientshift implements the geometric primitives used to
// synthesize panning animations from an ambient/real image pair:
// center cropping with optional bilinear upsampling, and directional
// shift compositing.
//
// An "ambient" image is a degraded, low-information rendering of a
// scene; the "real" image is a higher-resolution reference whose
// content is revealed by the shift compositor.
package ambientshift

import (
	"image"
	"image/color"

	"github.com/unixpickle/anyvec"
)

// A Tensor is a batch of images.
// Components are stored batch-major with one contiguous plane per
// channel, i.e. (batch, depth, height, width).
//
// Operations in this package never mutate their input Tensors; they
// always allocate fresh ones.
type Tensor struct {
	Batch  int
	Depth  int
	Height int
	Width  int

	Data anyvec.Vector
}

// NewTensor creates a zero Tensor.
func NewTensor(c anyvec.Creator, batch, depth, height, width int) *Tensor {
	if batch <= 0 || depth <= 0 || height <= 0 || width <= 0 {
		panic("tensor dimension out of range")
	}
	return &Tensor{
		Batch:  batch,
		Depth:  depth,
		Height: height,
		Width:  width,
		Data:   c.MakeVector(batch * depth * height * width),
	}
}

// Creator returns the creator of the underlying vector.
func (t *Tensor) Creator() anyvec.Creator {
	return t.Data.Creator()
}

// SampleSize returns the number of components per batch element.
func (t *Tensor) SampleSize() int {
	return t.Depth * t.Height * t.Width
}

// Clone returns a deep copy of the Tensor.
func (t *Tensor) Clone() *Tensor {
	res := *t
	res.Data = t.Data.Copy()
	return &res
}

// Sample returns a copy of the i-th batch element as a single-element
// Tensor.
func (t *Tensor) Sample(i int) *Tensor {
	if i < 0 || i >= t.Batch {
		panic("sample index out of range")
	}
	s := t.SampleSize()
	return &Tensor{
		Batch:  1,
		Depth:  t.Depth,
		Height: t.Height,
		Width:  t.Width,
		Data:   t.Data.Slice(i*s, (i+1)*s),
	}
}

// index returns the intra-sample component index of a coordinate.
func (t *Tensor) index(z, y, x int) int {
	return (z*t.Height+y)*t.Width + x
}

// ImageToTensor converts an image to a single-element RGB Tensor.
// Values in the tensor range between 0 and 1.
func ImageToTensor(c anyvec.Creator, img image.Image) *Tensor {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	minX := img.Bounds().Min.X
	minY := img.Bounds().Min.Y

	res := make([]float64, 3*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(minX+x, minY+y).RGBA()
			for z, comp := range []uint32{r, g, b} {
				res[(z*h+y)*w+x] = float64(comp) / 0xffff
			}
		}
	}

	return &Tensor{
		Batch:  1,
		Depth:  3,
		Height: h,
		Width:  w,
		Data:   c.MakeVectorData(c.MakeNumericList(res)),
	}
}

// TensorToImage converts batch element i of an RGB Tensor into an
// image. Values in the tensor are clipped between 0 and 1.
//
// The anyvec.NumericList type must be []float32 or []float64.
func TensorToImage(t *Tensor, i int) image.Image {
	if t.Depth != 3 {
		panic("depth must be 3")
	}
	data := vectorData(t.Sample(i).Data)
	for i, x := range data {
		if x < 0 {
			data[i] = 0
		} else if x > 1 {
			data[i] = 1
		}
	}

	res := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	plane := t.Height * t.Width
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			idx := y*t.Width + x
			res.SetRGBA(x, y, color.RGBA{
				R: uint8(data[idx]*0xff + 0.5),
				G: uint8(data[plane+idx]*0xff + 0.5),
				B: uint8(data[2*plane+idx]*0xff + 0.5),
				A: 0xff,
			})
		}
	}

	return res
}

// GrayToRGB replicates a single-channel Tensor across three channels.
// Three-channel Tensors are copied unchanged.
func GrayToRGB(t *Tensor) *Tensor {
	if t.Depth == 3 {
		return t.Clone()
	}
	if t.Depth != 1 {
		panic("depth must be 1 or 3")
	}
	plane := t.Height * t.Width
	table := make([]int, 0, 3*plane)
	for z := 0; z < 3; z++ {
		for i := 0; i < plane; i++ {
			table = append(table, i)
		}
	}
	return &Tensor{
		Batch:  t.Batch,
		Depth:  3,
		Height: t.Height,
		Width:  t.Width,
		Data:   gatherSamples(t, table),
	}
}

func vectorData(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	}
	panic("unsupported numeric list type")
}
