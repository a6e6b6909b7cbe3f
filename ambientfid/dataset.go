// Package ambientfid computes Fréchet Inception Distance statistics
// and KL-based Inception Scores over directories of images, optionally
// sharded across distributed workers.
package ambientfid

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OrBerebi/curriculum-timesteps/ambientshift"
	"github.com/disintegration/imaging"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Sample pairs an image tensor with its label.
// Directory datasets are unlabeled and always use label 0.
type Sample struct {
	Image *ambientshift.Tensor
	Label int
}

// An ImageSet is a deterministic, seeded view over a directory of
// images, capped at a fixed number of entries.
type ImageSet struct {
	creator   anyvec.Creator
	paths     []string
	width     int
	height    int
	normalize bool
}

// NewImageSet scans dir for png/jpg/jpeg files, orders them by name,
// shuffles the list with the given seed, and caps it at numExpected
// entries (0 means no cap). Images are resized to width by height
// with Lanczos resampling when loaded. If normalize is set, pixel
// values are rescaled from [0, 1] to [-1, 1].
func NewImageSet(c anyvec.Creator, dir string, numExpected int, seed int64, width, height int, normalize bool) (*ImageSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, essentials.AddCtx("scan image set", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(paths), func(i, j int) {
		paths[i], paths[j] = paths[j], paths[i]
	})
	if numExpected > 0 && len(paths) > numExpected {
		paths = paths[:numExpected]
	}
	return &ImageSet{
		creator:   c,
		paths:     paths,
		width:     width,
		height:    height,
		normalize: normalize,
	}, nil
}

// Len returns the number of images in the set.
func (s *ImageSet) Len() int {
	return len(s.paths)
}

// GetSample loads the image at the index as a single-element RGB
// tensor.
func (s *ImageSet) GetSample(idx int) (*Sample, error) {
	img, err := imaging.Open(s.paths[idx])
	if err != nil {
		return nil, essentials.AddCtx("load image", err)
	}
	img = imaging.Resize(img, s.width, s.height, imaging.Lanczos)
	t := ambientshift.ImageToTensor(s.creator, img)
	if s.normalize {
		t.Data.Scale(s.creator.MakeNumeric(2))
		t.Data.AddScalar(s.creator.MakeNumeric(-1))
	}
	return &Sample{Image: t}, nil
}
