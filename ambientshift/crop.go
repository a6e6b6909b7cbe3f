package ambientshift

import "github.com/unixpickle/anyvec"

// CenterCrop crops the exact geometric center of every image in t,
// keeping floor(dim*keepRatio) pixels along each spatial dimension.
// If upsampleBack is set, the crop is scaled back to the input
// resolution with bilinear interpolation.
//
// The keepRatio must be in (0, 1] and must not yield an empty crop.
func CenterCrop(t *Tensor, keepRatio float64, upsampleBack bool) *Tensor {
	if keepRatio <= 0 || keepRatio > 1 {
		panic("keep ratio out of range")
	}
	newH := int(float64(t.Height) * keepRatio)
	newW := int(float64(t.Width) * keepRatio)
	if newH == 0 || newW == 0 {
		panic("keep ratio yields an empty crop")
	}
	cropped := cropCenter(t, newH, newW)
	if !upsampleBack {
		return cropped
	}
	return Resize(cropped, t.Height, t.Width)
}

func cropCenter(t *Tensor, newH, newW int) *Tensor {
	startY := (t.Height - newH) / 2
	startX := (t.Width - newW) / 2
	table := make([]int, 0, t.Depth*newH*newW)
	for z := 0; z < t.Depth; z++ {
		for y := 0; y < newH; y++ {
			for x := 0; x < newW; x++ {
				table = append(table, t.index(z, startY+y, startX+x))
			}
		}
	}
	return &Tensor{
		Batch:  t.Batch,
		Depth:  t.Depth,
		Height: newH,
		Width:  newW,
		Data:   gatherSamples(t, table),
	}
}

// Resize scales every image in t to the given size using bilinear
// interpolation.
//
// The output dimensions must be greater than 1.
func Resize(t *Tensor, outHeight, outWidth int) *Tensor {
	if outHeight <= 1 || outWidth <= 1 {
		panic("tensor dimension out of range")
	}
	c := t.Creator()

	var sources []int
	var amounts []float64
	xScale := float64(t.Width-1) / float64(outWidth-1)
	yScale := float64(t.Height-1) / float64(outHeight-1)
	for z := 0; z < t.Depth; z++ {
		for y := 0; y < outHeight; y++ {
			sourceY := yScale * float64(y)
			for x := 0; x < outWidth; x++ {
				sourceX := xScale * float64(x)
				neighbors, a := bilinearNeighbors(t, z, sourceX, sourceY)
				sources = append(sources, neighbors[:]...)
				amounts = append(amounts, a[:]...)
			}
		}
	}
	m := c.MakeMapper(t.SampleSize(), sources)
	weights := c.MakeVectorData(c.MakeNumericList(amounts))

	s := t.SampleSize()
	outs := make([]anyvec.Vector, t.Batch)
	for i := range outs {
		mapped := c.MakeVector(len(sources))
		m.Map(t.Data.Slice(i*s, (i+1)*s), mapped)
		mapped.Mul(weights)
		outs[i] = anyvec.SumCols(mapped, mapped.Len()/4)
	}

	return &Tensor{
		Batch:  t.Batch,
		Depth:  t.Depth,
		Height: outHeight,
		Width:  outWidth,
		Data:   c.Concat(outs...),
	}
}

func bilinearNeighbors(t *Tensor, z int, sx, sy float64) ([4]int, [4]float64) {
	if sx > float64(t.Width-1) {
		sx = float64(t.Width - 1)
	}
	if sy > float64(t.Height-1) {
		sy = float64(t.Height - 1)
	}
	x1, x2 := int(sx), int(sx+1)
	y1, y2 := int(sy), int(sy+1)
	if x1 < 0 || y1 < 0 {
		x1 = 0
		y1 = 0
	}
	if x2 >= t.Width || y2 >= t.Height {
		x2 = t.Width - 1
		y2 = t.Height - 1
	}

	x1A := 1 - (sx - float64(x1))
	y1A := 1 - (sy - float64(y1))

	return [4]int{
			t.index(z, y1, x1),
			t.index(z, y1, x2),
			t.index(z, y2, x1),
			t.index(z, y2, x2),
		}, [4]float64{
			x1A * y1A,
			(1 - x1A) * y1A,
			x1A * (1 - y1A),
			(1 - x1A) * (1 - y1A),
		}
}
