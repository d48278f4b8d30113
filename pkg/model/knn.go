package model

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Neighbor is one reference point returned by a neighbor query.
type Neighbor struct {
	Index int     // row index into the fitted points
	Dist  float64 // Euclidean distance to the query
}

// NearestNeighbors answers exact k-nearest and k-farthest queries against a
// fixed set of points by brute force.
type NearestNeighbors struct {
	X [][]float64
}

// NewNearestNeighbors creates an empty neighbor index.
func NewNearestNeighbors() *NearestNeighbors {
	return &NearestNeighbors{}
}

// Fit stores the reference points. The rows are not copied.
func (m *NearestNeighbors) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("knn: empty X")
	}
	m.X = X
	return nil
}

// KNearest returns, for every query row, its k closest reference points in
// ascending distance order. Ties are broken by reference index.
func (m *NearestNeighbors) KNearest(Q [][]float64, k int) ([][]Neighbor, error) {
	return m.query(Q, k, false)
}

// KFarthest returns, for every query row, its k most distant reference points
// in descending distance order.
func (m *NearestNeighbors) KFarthest(Q [][]float64, k int) ([][]Neighbor, error) {
	return m.query(Q, k, true)
}

func (m *NearestNeighbors) query(Q [][]float64, k int, farthest bool) ([][]Neighbor, error) {
	if k <= 0 || k > len(m.X) {
		return nil, errors.New("knn: k must be in [1, number of fitted points]")
	}
	out := make([][]Neighbor, len(Q))
	if len(Q) == 0 {
		return out, nil
	}

	ParallelRows(len(Q), func(i int) {
		out[i] = m.querySingle(Q[i], k, farthest)
	})
	return out, nil
}

// querySingle ranks every reference point against q and keeps the first k.
func (m *NearestNeighbors) querySingle(q []float64, k int, farthest bool) []Neighbor {
	all := make([]Neighbor, len(m.X))
	for j, xj := range m.X {
		all[j] = Neighbor{Index: j, Dist: floats.Distance(q, xj, 2)}
	}
	sort.Slice(all, func(a, b int) bool {
		if all[a].Dist != all[b].Dist {
			if farthest {
				return all[a].Dist > all[b].Dist
			}
			return all[a].Dist < all[b].Dist
		}
		return all[a].Index < all[b].Index
	})
	return all[:k:k]
}

// MeanDist averages the distances of a neighbor list.
func MeanDist(nbrs []Neighbor) float64 {
	if len(nbrs) == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range nbrs {
		sum += n.Dist
	}
	return sum / float64(len(nbrs))
}
