package ambientfid

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/OrBerebi/curriculum-timesteps/ambientshift"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// DefaultDetectorURL is the versioned location of the pretrained
// detector network.
const DefaultDetectorURL = "https://storage.googleapis.com/curriculum-timesteps-models/detector_v1.bin"

const probEpsilon = 1e-6

func init() {
	var d Detector
	serializer.RegisterTypedDeserializer(d.SerializerType(), DeserializeDetector)
}

// A Detector is a pretrained feature and classification network.
// The trunk maps image batches to feature embeddings and the head maps
// embeddings to class logits.
type Detector struct {
	InputWidth  int
	InputHeight int
	FeatureDim  int
	NumClasses  int

	Trunk anynet.Net
	Head  anynet.Net
}

// DeserializeDetector deserializes a Detector.
func DeserializeDetector(d []byte) (*Detector, error) {
	var inW, inH, featDim, classes serializer.Int
	var trunk, head anynet.Net
	err := serializer.DeserializeAny(d, &inW, &inH, &featDim, &classes, &trunk, &head)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Detector", err)
	}
	return &Detector{
		InputWidth:  int(inW),
		InputHeight: int(inH),
		FeatureDim:  int(featDim),
		NumClasses:  int(classes),
		Trunk:       trunk,
		Head:        head,
	}, nil
}

// NewDetector creates a randomly initialized detector with a
// fully-connected trunk and classification head. It is mainly useful
// for tests and as a stand-in while a pretrained network is absent.
func NewDetector(c anyvec.Creator, inWidth, inHeight, featureDim, numClasses int) *Detector {
	return &Detector{
		InputWidth:  inWidth,
		InputHeight: inHeight,
		FeatureDim:  featureDim,
		NumClasses:  numClasses,
		Trunk: anynet.Net{
			anynet.NewFC(c, inWidth*inHeight*3, featureDim),
			anynet.Tanh,
		},
		Head: anynet.Net{
			anynet.NewFC(c, featureDim, numClasses),
		},
	}
}

// FetchDetector returns the detector cached at cachePath, downloading
// it from url first if the cache does not exist. The fetch is
// idempotent and any I/O failure propagates unmodified.
func FetchDetector(url, cachePath string) (*Detector, error) {
	data, err := os.ReadFile(cachePath)
	if os.IsNotExist(err) {
		data, err = downloadDetector(url)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(cachePath, data, 0644); err != nil {
			return nil, essentials.AddCtx("fetch detector", err)
		}
	} else if err != nil {
		return nil, essentials.AddCtx("fetch detector", err)
	}
	obj, err := serializer.DeserializeWithType(data)
	if err != nil {
		return nil, essentials.AddCtx("fetch detector", err)
	}
	det, ok := obj.(*Detector)
	if !ok {
		return nil, fmt.Errorf("fetch detector: not a Detector: %T", obj)
	}
	return det, nil
}

func downloadDetector(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, essentials.AddCtx("fetch detector", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch detector: status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, essentials.AddCtx("fetch detector", err)
	}
	return data, nil
}

// Features runs the trunk over a batch of images and returns one
// feature vector per batch element. Grayscale inputs are replicated
// to three channels first.
func (d *Detector) Features(t *ambientshift.Tensor) anyvec.Vector {
	if t.Depth == 1 {
		t = ambientshift.GrayToRGB(t)
	}
	if t.Depth != 3 || t.Width != d.InputWidth || t.Height != d.InputHeight {
		panic("incorrect detector input size")
	}
	return d.Trunk.Apply(anydiff.NewConst(t.Data), t.Batch).Output()
}

// Probs computes class probabilities for a batch of n feature
// vectors, clamped to [1e-6, 1-1e-6] for numerical stability.
func (d *Detector) Probs(features anyvec.Vector, n int) []float64 {
	logits := d.Head.Apply(anydiff.NewConst(features), n).Output().Copy()
	anyvec.LogSoftmax(logits, d.NumClasses)
	anyvec.Exp(logits)
	probs := floatData(logits)
	for i, p := range probs {
		if p < probEpsilon {
			probs[i] = probEpsilon
		} else if p > 1-probEpsilon {
			probs[i] = 1 - probEpsilon
		}
	}
	return probs
}

// SerializerType returns the unique ID used to serialize a Detector
// with the serializer package.
func (d *Detector) SerializerType() string {
	return "github.com/OrBerebi/curriculum-timesteps/ambientfid.Detector"
}

// Serialize serializes the Detector.
func (d *Detector) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(d.InputWidth),
		serializer.Int(d.InputHeight),
		serializer.Int(d.FeatureDim),
		serializer.Int(d.NumClasses),
		d.Trunk,
		d.Head,
	)
}
