package ambientfid

import (
	"runtime"
	"sync"

	"github.com/OrBerebi/curriculum-timesteps/ambientshift"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// An Extractor streams an image set through a detector and reduces
// the activations to distribution statistics.
type Extractor struct {
	Detector *Detector
	Images   *ImageSet

	// MaxBatchSize is the fixed batch size. Trailing batches are
	// padded up to it by repeating the last image; padding carries an
	// explicit valid count and never contributes to the statistics.
	MaxBatchSize int

	// Ctx identifies this worker inside a distributed run.
	// A nil Ctx means a single-worker run.
	Ctx *Context

	// MaxGos specifies the maximum goroutines to use simultaneously
	// for loading images. If it is 0, GOMAXPROCS is used.
	MaxGos int
}

// Extract runs one full pass over this worker's shard, merges the
// results across the group, and returns the global statistics.
// Every worker of a group returns the same result.
func (e *Extractor) Extract() (*Stats, error) {
	if e.MaxBatchSize <= 0 {
		panic("batch size out of range")
	}
	ctx := e.Ctx
	if ctx == nil {
		ctx = Solo()
	}
	c := e.Images.creator

	indices, valid := shardIndices(e.Images.Len(), ctx.Rank, ctx.WorldSize)
	acc := NewMomentAccumulator(c, e.Detector.FeatureDim)
	var probs []float64
	for start := 0; start < len(indices); start += e.MaxBatchSize {
		end := start + e.MaxBatchSize
		if end > len(indices) {
			end = len(indices)
		}
		batchIdx := append([]int{}, indices[start:end]...)
		batchValid := valid - start
		if batchValid < 0 {
			batchValid = 0
		} else if batchValid > len(batchIdx) {
			batchValid = len(batchIdx)
		}
		for len(batchIdx) < e.MaxBatchSize {
			batchIdx = append(batchIdx, batchIdx[len(batchIdx)-1])
		}

		batch, err := e.fetchBatch(batchIdx)
		if err != nil {
			return nil, err
		}
		features := e.Detector.Features(batch)
		acc.Add(features, len(batchIdx), batchValid)
		if batchValid > 0 {
			ps := e.Detector.Probs(features, len(batchIdx))
			probs = append(probs, ps[:batchValid*e.Detector.NumClasses]...)
		}
	}

	if ctx.WorldSize > 1 {
		ctx.Comm.Barrier()
		acc = gatherMoments(ctx, c, acc)
		gathered := ctx.Comm.AllGather(probs)
		probs = probs[:0]
		for _, shard := range gathered {
			probs = append(probs, shard...)
		}
	}

	mu, sigma := acc.Moments()
	return &Stats{
		Mu:        mu,
		Sigma:     sigma,
		Inception: InceptionScore(probs, e.Detector.NumClasses),
		Count:     acc.Count,
	}, nil
}

// gatherMoments merges per-worker moment accumulators into the global
// accumulator. Summing counts, sums, and outer sums before the final
// divide is exactly equivalent to a single-worker pass.
func gatherMoments(ctx *Context, c anyvec.Creator, acc *MomentAccumulator) *MomentAccumulator {
	counts := ctx.Comm.AllGather([]float64{float64(acc.Count)})
	sums := ctx.Comm.AllGather(floatData(acc.Sum))
	outers := ctx.Comm.AllGather(floatData(acc.Outer))

	global := NewMomentAccumulator(c, acc.Dim)
	for r := range counts {
		global.Count += int(counts[r][0])
		global.Sum.Add(c.MakeVectorData(c.MakeNumericList(sums[r])))
		global.Outer.Add(c.MakeVectorData(c.MakeNumericList(outers[r])))
	}
	return global
}

// shardIndices returns this worker's contiguous shard of the index
// list, padded by wrapping so every worker gets the same length, plus
// the number of leading entries that are real rather than padding.
func shardIndices(total, rank, world int) ([]int, int) {
	if total == 0 {
		return nil, 0
	}
	indices := make([]int, total)
	for i := range indices {
		indices[i] = i
	}
	for i := 0; len(indices)%world != 0; i++ {
		indices = append(indices, i%total)
	}
	per := len(indices) / world
	shard := indices[rank*per : (rank+1)*per]

	valid := total - rank*per
	if valid < 0 {
		valid = 0
	} else if valid > per {
		valid = per
	}
	return shard, valid
}

// fetchBatch loads the images at the given indices concurrently and
// packs them into one batch tensor.
func (e *Extractor) fetchBatch(indices []int) (*ambientshift.Tensor, error) {
	samples := make([]*Sample, len(indices))

	idxChan := make(chan int, len(indices))
	for i := range indices {
		idxChan <- i
	}
	close(idxChan)

	maxGos := e.MaxGos
	if maxGos == 0 {
		maxGos = runtime.GOMAXPROCS(0)
	}

	wg := sync.WaitGroup{}
	errChan := make(chan error, maxGos)
	for i := 0; i < maxGos; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				sample, err := e.Images.GetSample(indices[i])
				if err != nil {
					errChan <- essentials.AddCtx("fetch batch", err)
					return
				}
				samples[i] = sample
			}
		}()
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}

	first := samples[0].Image
	vecs := make([]anyvec.Vector, len(samples))
	for i, s := range samples {
		vecs[i] = s.Image.Data
	}
	return &ambientshift.Tensor{
		Batch:  len(samples),
		Depth:  first.Depth,
		Height: first.Height,
		Width:  first.Width,
		Data:   first.Creator().Concat(vecs...),
	}, nil
}

// CalculateInceptionStats is the high-level entry point used by the
// dataset scripts: it builds the image set over imagePath, runs the
// extractor, and returns the resulting statistics.
func CalculateInceptionStats(det *Detector, c anyvec.Creator, imagePath string, numExpected int, seed int64, maxBatchSize int, ctx *Context) (*Stats, error) {
	set, err := NewImageSet(c, imagePath, numExpected, seed, det.InputWidth, det.InputHeight, false)
	if err != nil {
		return nil, err
	}
	e := &Extractor{
		Detector:     det,
		Images:       set,
		MaxBatchSize: maxBatchSize,
		Ctx:          ctx,
	}
	return e.Extract()
}
