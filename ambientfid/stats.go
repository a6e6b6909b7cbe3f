package ambientfid

import (
	"errors"
	"os"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
	"gonum.org/v1/gonum/mat"
)

func init() {
	var s Stats
	serializer.RegisterTypedDeserializer(s.SerializerType(), DeserializeStats)
}

// A MomentAccumulator builds running feature moments incrementally.
//
// The outer-product sum always covers exactly the feature vectors
// counted in Count; that coupling is what makes the final covariance
// reconstruction unbiased.
type MomentAccumulator struct {
	Dim   int
	Count int
	Sum   anyvec.Vector
	Outer anyvec.Vector
}

// NewMomentAccumulator creates an empty accumulator for feature
// vectors of the given dimension.
func NewMomentAccumulator(c anyvec.Creator, dim int) *MomentAccumulator {
	if dim <= 0 {
		panic("dimension out of range")
	}
	return &MomentAccumulator{
		Dim:   dim,
		Sum:   c.MakeVector(dim),
		Outer: c.MakeVector(dim * dim),
	}
}

// Add folds the first valid rows of a (rows x Dim) row-major feature
// matrix into the running moments. Rows past valid are padding and do
// not contribute.
func (m *MomentAccumulator) Add(features anyvec.Vector, rows, valid int) {
	if features.Len() != rows*m.Dim {
		panic("incorrect feature matrix size")
	}
	if valid < 0 || valid > rows {
		panic("valid count out of range")
	}
	if valid == 0 {
		return
	}
	c := m.Sum.Creator()
	sub := features.Slice(0, valid*m.Dim)
	feat := &anyvec.Matrix{Data: sub, Rows: valid, Cols: m.Dim}
	outer := &anyvec.Matrix{Data: m.Outer, Rows: m.Dim, Cols: m.Dim}
	one := c.MakeNumeric(1)
	outer.Product(true, false, one, feat, feat, one)
	m.Sum.Add(anyvec.SumRows(sub, m.Dim))
	m.Count += valid
}

// Merge folds another accumulator into m.
func (m *MomentAccumulator) Merge(o *MomentAccumulator) {
	if o.Dim != m.Dim {
		panic("dimension mismatch")
	}
	m.Sum.Add(o.Sum)
	m.Outer.Add(o.Outer)
	m.Count += o.Count
}

// Moments returns the mean vector and the unbiased sample covariance
// of the accumulated features. At least two samples are required.
func (m *MomentAccumulator) Moments() (*mat.VecDense, *mat.Dense) {
	if m.Count < 2 {
		panic("at least two samples are required")
	}
	n := float64(m.Count)
	sum := floatData(m.Sum)
	mu := make([]float64, m.Dim)
	for i, x := range sum {
		mu[i] = x / n
	}
	outer := floatData(m.Outer)
	sigma := mat.NewDense(m.Dim, m.Dim, nil)
	for i := 0; i < m.Dim; i++ {
		for j := 0; j < m.Dim; j++ {
			sigma.Set(i, j, (outer[i*m.Dim+j]-n*mu[i]*mu[j])/(n-1))
		}
	}
	return mat.NewVecDense(m.Dim, mu), sigma
}

// Stats holds the distribution statistics of one image set: the
// feature mean and covariance consumed by the FID scorer, the
// Inception Score, and the number of contributing images.
type Stats struct {
	Mu        *mat.VecDense
	Sigma     *mat.Dense
	Inception float64
	Count     int
}

// DeserializeStats deserializes a Stats.
func DeserializeStats(d []byte) (*Stats, error) {
	var mu, sigma *anyvecsave.S
	var inception serializer.Float64
	var count serializer.Int
	err := serializer.DeserializeAny(d, &mu, &sigma, &inception, &count)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Stats", err)
	}
	muData := floatData(mu.Vector)
	dim := len(muData)
	sigmaData := floatData(sigma.Vector)
	if dim == 0 || len(sigmaData) != dim*dim {
		return nil, errors.New("deserialize Stats: invalid matrix dimensions")
	}
	return &Stats{
		Mu:        mat.NewVecDense(dim, muData),
		Sigma:     mat.NewDense(dim, dim, sigmaData),
		Inception: float64(inception),
		Count:     int(count),
	}, nil
}

// SerializerType returns the unique ID used to serialize a Stats with
// the serializer package.
func (s *Stats) SerializerType() string {
	return "github.com/OrBerebi/curriculum-timesteps/ambientfid.Stats"
}

// Serialize serializes the Stats.
func (s *Stats) Serialize() ([]byte, error) {
	c := anyvec64.DefaultCreator{}
	dim := s.Mu.Len()
	mu := &anyvecsave.S{Vector: c.MakeVectorData(append([]float64{}, s.Mu.RawVector().Data...))}
	sigmaData := make([]float64, 0, dim*dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			sigmaData = append(sigmaData, s.Sigma.At(i, j))
		}
	}
	sigma := &anyvecsave.S{Vector: c.MakeVectorData(sigmaData)}
	return serializer.SerializeAny(mu, sigma, serializer.Float64(s.Inception),
		serializer.Int(s.Count))
}

// SaveStats writes the Stats to a file.
func SaveStats(path string, s *Stats) error {
	data, err := serializer.SerializeWithType(s)
	if err != nil {
		return essentials.AddCtx("save stats", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("save stats", err)
	}
	return nil
}

// LoadStats reads Stats previously written by SaveStats.
func LoadStats(path string) (*Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load stats", err)
	}
	obj, err := serializer.DeserializeWithType(data)
	if err != nil {
		return nil, essentials.AddCtx("load stats", err)
	}
	stats, ok := obj.(*Stats)
	if !ok {
		return nil, errors.New("load stats: not a Stats file")
	}
	return stats, nil
}

func floatData(v anyvec.Vector) []float64 {
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
