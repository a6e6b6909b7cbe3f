package ambientfid

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/serializer"
	"gonum.org/v1/gonum/mat"
)

// writeTestImages fills a directory with small distinct PNGs.
func writeTestImages(t *testing.T, dir string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.SetRGBA(x, y, color.RGBA{
					R: uint8((i*40 + x*20) % 256),
					G: uint8((i*70 + y*25) % 256),
					B: uint8((i * 90) % 256),
					A: 0xff,
				})
			}
		}
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("img%03d.png", i)))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			t.Fatal(err)
		}
		f.Close()
	}
}

func TestExtractDistributedParity(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	dir := t.TempDir()
	writeTestImages(t, dir, 5)
	det := NewDetector(c, 8, 8, 6, 3)

	solo, err := CalculateInceptionStats(det, c, dir, 0, 42, 2, nil)
	if err != nil {
		t.Fatal(err)
	}

	group := NewLocalGroup(2)
	results := make([]*Stats, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, ctx := range group {
		wg.Add(1)
		go func(i int, ctx *Context) {
			defer wg.Done()
			results[i], errs[i] = CalculateInceptionStats(det, c, dir, 0, 42, 2, ctx)
		}(i, ctx)
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			t.Fatal(e)
		}
	}

	for rank, res := range results {
		if res.Count != solo.Count {
			t.Errorf("rank %d: expected count %d but got %d", rank, solo.Count,
				res.Count)
		}
		if !mat.EqualApprox(res.Mu, solo.Mu, 1e-5) {
			t.Errorf("rank %d: means differ from solo run", rank)
		}
		if !mat.EqualApprox(res.Sigma, solo.Sigma, 1e-5) {
			t.Errorf("rank %d: covariances differ from solo run", rank)
		}
		if math.Abs(res.Inception-solo.Inception) > 1e-5 {
			t.Errorf("rank %d: expected inception %f but got %f", rank,
				solo.Inception, res.Inception)
		}
	}
}

func TestExtractCount(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	dir := t.TempDir()
	writeTestImages(t, dir, 3)
	det := NewDetector(c, 8, 8, 4, 2)

	stats, err := CalculateInceptionStats(det, c, dir, 0, 1, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Count != 3 {
		t.Errorf("expected count 3 but got %d", stats.Count)
	}
}

func TestExtractBatchSizeInvariance(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	dir := t.TempDir()
	writeTestImages(t, dir, 5)
	det := NewDetector(c, 8, 8, 6, 3)

	stats1, err := CalculateInceptionStats(det, c, dir, 0, 42, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	stats2, err := CalculateInceptionStats(det, c, dir, 0, 42, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(stats1.Mu, stats2.Mu, 1e-5) ||
		!mat.EqualApprox(stats1.Sigma, stats2.Sigma, 1e-5) {
		t.Error("moments depend on the batch size")
	}
	if math.Abs(stats1.Inception-stats2.Inception) > 1e-5 {
		t.Error("inception score depends on the batch size")
	}
}

func TestShardIndices(t *testing.T) {
	shard, valid := shardIndices(5, 0, 2)
	if !reflect.DeepEqual(shard, []int{0, 1, 2}) || valid != 3 {
		t.Errorf("unexpected rank 0 shard: %v valid %d", shard, valid)
	}
	shard, valid = shardIndices(5, 1, 2)
	if !reflect.DeepEqual(shard, []int{3, 4, 0}) || valid != 2 {
		t.Errorf("unexpected rank 1 shard: %v valid %d", shard, valid)
	}
	shard, valid = shardIndices(4, 0, 1)
	if !reflect.DeepEqual(shard, []int{0, 1, 2, 3}) || valid != 4 {
		t.Errorf("unexpected solo shard: %v valid %d", shard, valid)
	}
}

func TestImageSetDeterminism(t *testing.T) {
	c := anyvec32.CurrentCreator()
	dir := t.TempDir()
	writeTestImages(t, dir, 6)

	set1, err := NewImageSet(c, dir, 4, 42, 8, 8, false)
	if err != nil {
		t.Fatal(err)
	}
	set2, err := NewImageSet(c, dir, 4, 42, 8, 8, false)
	if err != nil {
		t.Fatal(err)
	}
	if set1.Len() != 4 {
		t.Errorf("expected 4 images but got %d", set1.Len())
	}
	if !reflect.DeepEqual(set1.paths, set2.paths) {
		t.Error("seeded shuffle is not reproducible")
	}
}

func TestDetectorSerialize(t *testing.T) {
	c := anyvec32.CurrentCreator()
	det := NewDetector(c, 8, 8, 6, 3)

	data, err := serializer.SerializeWithType(det)
	if err != nil {
		t.Fatal(err)
	}
	obj, err := serializer.DeserializeWithType(data)
	if err != nil {
		t.Fatal(err)
	}
	restored, ok := obj.(*Detector)
	if !ok {
		t.Fatalf("expected a *Detector but got %T", obj)
	}

	if restored.InputWidth != 8 || restored.InputHeight != 8 ||
		restored.FeatureDim != 6 || restored.NumClasses != 3 {
		t.Error("detector dimensions not preserved")
	}
	params1 := append(det.Trunk.Parameters(), det.Head.Parameters()...)
	params2 := append(restored.Trunk.Parameters(), restored.Head.Parameters()...)
	if len(params1) != len(params2) {
		t.Fatalf("expected %d parameters but got %d", len(params1), len(params2))
	}
	for i, p := range params1 {
		x := floatData(p.Vector)
		a := floatData(params2[i].Vector)
		if !reflect.DeepEqual(x, a) {
			t.Errorf("parameter %d not preserved", i)
		}
	}
}

func TestFetchDetectorCache(t *testing.T) {
	c := anyvec32.CurrentCreator()
	det := NewDetector(c, 8, 8, 4, 2)
	data, err := serializer.SerializeWithType(det)
	if err != nil {
		t.Fatal(err)
	}

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(data)
	}))
	defer server.Close()

	cachePath := filepath.Join(t.TempDir(), "detector.bin")
	for i := 0; i < 2; i++ {
		fetched, err := FetchDetector(server.URL, cachePath)
		if err != nil {
			t.Fatal(err)
		}
		if fetched.FeatureDim != 4 {
			t.Errorf("unexpected fetched detector dimensions")
		}
	}
	if hits != 1 {
		t.Errorf("expected 1 download but got %d", hits)
	}
}
