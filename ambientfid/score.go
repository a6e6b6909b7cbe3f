package ambientfid

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// FID computes the Fréchet distance between two statistics pairs:
//
//	|mu1-mu2|^2 + tr(Sigma1 + Sigma2 - 2*sqrtm(Sigma1*Sigma2))
//
// Imaginary residue in the matrix square root, which ill-conditioned
// covariances produce through numerical error, is discarded rather
// than reported. A failed eigendecomposition returns an error.
func FID(a, b *Stats) (float64, error) {
	if a.Mu.Len() != b.Mu.Len() {
		panic("dimension mismatch")
	}
	dim := a.Mu.Len()

	diff := mat.NewVecDense(dim, nil)
	diff.SubVec(a.Mu, b.Mu)
	dist := mat.Dot(diff, diff)

	prod := mat.NewDense(dim, dim, nil)
	prod.Mul(a.Sigma, b.Sigma)
	var eig mat.Eigen
	if !eig.Factorize(prod, mat.EigenNone) {
		return 0, errors.New("compute FID: eigendecomposition failed")
	}
	var traceSqrt float64
	for _, v := range eig.Values(nil) {
		traceSqrt += real(cmplx.Sqrt(v))
	}

	return dist + mat.Trace(a.Sigma) + mat.Trace(b.Sigma) - 2*traceSqrt, nil
}

// InceptionScore computes exp(mean KL(p || mean p)) over a flat
// row-major matrix of per-image class probabilities.
func InceptionScore(probs []float64, numClasses int) float64 {
	if numClasses <= 0 || len(probs)%numClasses != 0 {
		panic("class count must divide probability length")
	}
	n := len(probs) / numClasses
	if n == 0 {
		panic("empty probability set")
	}

	meanProbs := make([]float64, numClasses)
	for i := 0; i < n; i++ {
		for j, p := range probs[i*numClasses : (i+1)*numClasses] {
			meanProbs[j] += p
		}
	}
	for j := range meanProbs {
		meanProbs[j] /= float64(n)
	}

	var total float64
	for i := 0; i < n; i++ {
		for j, p := range probs[i*numClasses : (i+1)*numClasses] {
			total += p * (math.Log(p) - math.Log(meanProbs[j]))
		}
	}
	return math.Exp(total / float64(n))
}
