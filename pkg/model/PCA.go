package model

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// PCA via power iteration for top-k components.
type PCA struct {
	K          int
	MaxIters   int
	Seed       int64
	Means      []float64
	Components [][]float64 // K x p, each a unit vector
	Explained  []float64   // approx eigenvalues
}

// NewPCA creates and returns a new PCA model.
func NewPCA(k int, maxIters int, seed int64) *PCA {
	return &PCA{K: k, MaxIters: maxIters, Seed: seed}
}

// Fit computes the top K principal components with power iteration and
// deflation. The start vectors come from a source seeded with Seed.
func (pca *PCA) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("pca: input data cannot be empty")
	}
	n, d := len(X), len(X[0])
	if pca.K <= 0 || pca.K > d {
		return errors.Errorf("pca: K must be in [1, %d], got %d", d, pca.K)
	}

	pca.Means = make([]float64, d)
	for _, row := range X {
		if len(row) != d {
			return errors.New("pca: inconsistent number of features in X rows")
		}
		floats.Add(pca.Means, row)
	}
	floats.Scale(1/float64(n), pca.Means)

	// Z is the centered copy that deflation consumes.
	Z := pca.center(X)

	rnd := rand.New(rand.NewSource(pca.Seed))
	pca.Components = make([][]float64, 0, pca.K)
	pca.Explained = make([]float64, 0, pca.K)
	Zv := make([]float64, n)

	for comp := 0; comp < pca.K; comp++ {
		v := make([]float64, d)
		for j := range v {
			v[j] = rnd.Float64()
		}
		normalize(v)

		for t := 0; t < pca.MaxIters; t++ {
			// w = Z^T (Z v)
			ParallelRows(n, func(i int) { Zv[i] = floats.Dot(Z[i], v) })
			w := make([]float64, d)
			for i := 0; i < n; i++ {
				floats.AddScaled(w, Zv[i], Z[i])
			}
			if floats.Norm(w, 2) == 0 {
				break
			}
			normalize(w)
			v = w
		}

		ParallelRows(n, func(i int) { Zv[i] = floats.Dot(Z[i], v) })
		lam := floats.Dot(Zv, Zv)
		if n > 1 {
			lam /= float64(n - 1)
		}
		pca.Explained = append(pca.Explained, lam)
		pca.Components = append(pca.Components, v)

		// Z = Z - (Z v) v^T removes the component just found.
		ParallelRows(n, func(i int) { floats.AddScaled(Z[i], -Zv[i], v) })
	}
	return nil
}

// Transform projects the input data onto the principal components.
func (pca *PCA) Transform(X [][]float64) ([][]float64, error) {
	if len(X) == 0 {
		return nil, errors.New("pca: input data cannot be empty")
	}
	if len(X[0]) != len(pca.Means) {
		return nil, errors.New("pca: feature count mismatch between input and training data")
	}

	Z := pca.center(X)
	transformed := make([][]float64, len(X))
	ParallelRows(len(X), func(i int) {
		t := make([]float64, len(pca.Components))
		for k, c := range pca.Components {
			t[k] = floats.Dot(Z[i], c)
		}
		transformed[i] = t
	})
	return transformed, nil
}

func (pca *PCA) center(X [][]float64) [][]float64 {
	Z := make([][]float64, len(X))
	for i, row := range X {
		z := make([]float64, len(row))
		floats.SubTo(z, row, pca.Means)
		Z[i] = z
	}
	return Z
}

// normalize scales v to unit length in place. A zero vector is left as is.
func normalize(v []float64) {
	norm := floats.Norm(v, 2)
	if norm == 0 {
		return
	}
	floats.Scale(1/norm, v)
}
