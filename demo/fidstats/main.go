// Command fidstats computes FID statistics and an Inception Score for
// a directory of images, optionally comparing against a saved
// reference statistics file.
package main

import (
	"flag"
	"log"
	"os"
	"sync"

	"github.com/OrBerebi/curriculum-timesteps/ambientfid"
	"github.com/unixpickle/anyvec/anyvec32"
)

func main() {
	var imageDir, refPath, outPath, detectorURL, cachePath string
	var numExpected, batchSize, workers int
	var seed int64
	flag.StringVar(&imageDir, "images", "", "directory of images to score")
	flag.StringVar(&refPath, "ref", "", "reference stats file for FID (optional)")
	flag.StringVar(&outPath, "out", "", "output stats file (optional)")
	flag.StringVar(&detectorURL, "detector", ambientfid.DefaultDetectorURL, "detector network URL")
	flag.StringVar(&cachePath, "cache", "detector.bin", "detector cache file")
	flag.IntVar(&numExpected, "num", 2048, "maximum number of images")
	flag.Int64Var(&seed, "seed", 42, "dataset shuffle seed")
	flag.IntVar(&batchSize, "batch", 16, "batch size")
	flag.IntVar(&workers, "workers", 1, "parallel workers")
	flag.Parse()

	if imageDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	creator := anyvec32.CurrentCreator()

	log.Println("Loading detector...")
	detector, err := ambientfid.FetchDetector(detectorURL, cachePath)
	if err != nil {
		log.Fatal(err)
	}

	log.Println("Computing statistics...")
	var stats *ambientfid.Stats
	if workers <= 1 {
		stats, err = ambientfid.CalculateInceptionStats(detector, creator, imageDir,
			numExpected, seed, batchSize, nil)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		group := ambientfid.NewLocalGroup(workers)
		results := make([]*ambientfid.Stats, workers)
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i, ctx := range group {
			wg.Add(1)
			go func(i int, ctx *ambientfid.Context) {
				defer wg.Done()
				results[i], errs[i] = ambientfid.CalculateInceptionStats(detector,
					creator, imageDir, numExpected, seed, batchSize, ctx)
			}(i, ctx)
		}
		wg.Wait()
		for _, e := range errs {
			if e != nil {
				log.Fatal(e)
			}
		}
		stats = results[0]
	}

	log.Printf("Scored %d images, inception score %f", stats.Count, stats.Inception)

	if outPath != "" {
		if err := ambientfid.SaveStats(outPath, stats); err != nil {
			log.Fatal(err)
		}
		log.Println("Saved statistics to", outPath)
	}
	if refPath != "" {
		ref, err := ambientfid.LoadStats(refPath)
		if err != nil {
			log.Fatal(err)
		}
		fid, err := ambientfid.FID(stats, ref)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("FID: %f", fid)
	}
}
