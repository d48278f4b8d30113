package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestNeighbors(t *testing.T) {
	X := [][]float64{{0, 0}, {1, 0}, {3, 0}, {-1, 0}, {10, 0}}
	nn := NewNearestNeighbors()
	require.NoError(t, nn.Fit(X))

	tcs := map[string]struct {
		query    func([][]float64, int) ([][]Neighbor, error)
		k        int
		expected []int
	}{
		"nearest two":  {query: nn.KNearest, k: 2, expected: []int{0, 1}},
		"nearest tie":  {query: nn.KNearest, k: 3, expected: []int{0, 1, 3}},
		"farthest one": {query: nn.KFarthest, k: 1, expected: []int{4}},
		"farthest all": {query: nn.KFarthest, k: 5, expected: []int{4, 2, 1, 3, 0}},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			res, err := tc.query([][]float64{{0, 0}}, tc.k)
			require.NoError(t, err)
			require.Len(t, res, 1)
			got := make([]int, len(res[0]))
			for i, n := range res[0] {
				got[i] = n.Index
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestNearestNeighborsDistances(t *testing.T) {
	nn := NewNearestNeighbors()
	require.NoError(t, nn.Fit([][]float64{{0, 0}, {3, 4}, {6, 8}}))

	res, err := nn.KNearest([][]float64{{0, 0}, {6, 8}}, 3)
	require.NoError(t, err)
	assert.Equal(t, []Neighbor{{0, 0}, {1, 5}, {2, 10}}, res[0])
	assert.Equal(t, []Neighbor{{2, 0}, {1, 5}, {0, 10}}, res[1])
	assert.InDelta(t, 5.0, MeanDist(res[0]), 1e-12)
	assert.Equal(t, 0.0, MeanDist(nil))
}

func TestNearestNeighborsErrors(t *testing.T) {
	nn := NewNearestNeighbors()
	assert.Error(t, nn.Fit(nil))
	require.NoError(t, nn.Fit([][]float64{{1}, {2}}))

	_, err := nn.KNearest([][]float64{{0}}, 3)
	assert.Error(t, err)
	_, err = nn.KFarthest([][]float64{{0}}, 0)
	assert.Error(t, err)

	res, err := nn.KNearest(nil, 1)
	require.NoError(t, err)
	assert.Empty(t, res)
}
