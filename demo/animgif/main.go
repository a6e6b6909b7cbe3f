// Command animgif renders a panning or rotating animation of a single
// image as an animated GIF.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/OrBerebi/curriculum-timesteps/ambientanim"
	"github.com/OrBerebi/curriculum-timesteps/ambientshift"
	"github.com/disintegration/imaging"
	"github.com/unixpickle/anyvec/anyvec32"
)

func main() {
	var imagePath, outPath, mode string
	var keepRatio, shiftSpan, radius float64
	var numSteps, delay int
	flag.StringVar(&imagePath, "image", "", "source image")
	flag.StringVar(&outPath, "out", "out.gif", "output GIF path")
	flag.StringVar(&mode, "mode", "pan", "animation mode: pan, vpan, or rotate")
	flag.Float64Var(&keepRatio, "keep", 0.5, "center crop keep ratio")
	flag.Float64Var(&shiftSpan, "span", 0.7, "maximum shift ratio for pans")
	flag.Float64Var(&radius, "radius", 0.2, "rotation radius")
	flag.IntVar(&numSteps, "steps", 10, "steps per sweep")
	flag.IntVar(&delay, "delay", 10, "frame delay in 1/100ths of a second")
	flag.Parse()

	if imagePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	img, err := imaging.Open(imagePath)
	if err != nil {
		log.Fatal(err)
	}
	real := ambientshift.ImageToTensor(anyvec32.CurrentCreator(), img)
	ambient := ambientshift.CenterCrop(real, keepRatio, false)

	var seq *ambientanim.Sequence
	switch mode {
	case "pan":
		seq = ambientanim.PanHorizontal(ambient, real, keepRatio, shiftSpan, numSteps)
	case "vpan":
		seq = ambientanim.PanVertical(ambient, real, keepRatio, shiftSpan, numSteps)
	case "rotate":
		seq = ambientanim.Rotate(ambient, real, keepRatio, radius, numSteps)
	default:
		log.Fatal("unknown mode: " + mode)
	}

	if err := ambientanim.WriteGIF(outPath, seq, 0, delay); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %d frames to %s", len(seq.Frames), outPath)
}
