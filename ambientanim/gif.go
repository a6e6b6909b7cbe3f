package ambientanim

import (
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"

	"github.com/OrBerebi/curriculum-timesteps/ambientshift"
	"github.com/unixpickle/essentials"
)

// WriteGIF encodes batch element batchIdx of every frame in the
// Sequence as an animated GIF. The delay between frames is in
// hundredths of a second.
func WriteGIF(path string, s *Sequence, batchIdx, delay int) error {
	out := &gif.GIF{}
	for _, frame := range s.Frames {
		img := ambientshift.TensorToImage(frame, batchIdx)
		paletted := image.NewPaletted(img.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, img.Bounds(), img, image.Point{})
		out.Image = append(out.Image, paletted)
		out.Delay = append(out.Delay, delay)
	}

	f, err := os.Create(path)
	if err != nil {
		return essentials.AddCtx("write GIF", err)
	}
	defer f.Close()
	if err := gif.EncodeAll(f, out); err != nil {
		return essentials.AddCtx("write GIF", err)
	}
	return nil
}
