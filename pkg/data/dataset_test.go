package data

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tcs := map[string]struct {
		ds      Dataset
		wantErr bool
	}{
		"aligned":        {ds: Dataset{X: [][]float64{{1, 2}, {3, 4}}, Y: []int{0, 1}}},
		"empty":          {ds: Dataset{}},
		"label mismatch": {ds: Dataset{X: [][]float64{{1}}, Y: []int{0, 1}}, wantErr: true},
		"ragged rows":    {ds: Dataset{X: [][]float64{{1, 2}, {3}}, Y: []int{0, 1}}, wantErr: true},
		"named width": {
			ds:      Dataset{FeatureNames: []string{"a", "b", "c"}, X: [][]float64{{1, 2}}, Y: []int{0}},
			wantErr: true,
		},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			err := tc.ds.Validate()
			if tc.wantErr {
				assert.True(t, errors.Is(err, ErrShapeMismatch))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestClassHelpers(t *testing.T) {
	y := []int{3, 1, 3, 3, 2, 1}
	assert.Equal(t, map[int]int{1: 2, 2: 1, 3: 3}, ClassCounts(y))
	assert.Equal(t, []int{1, 2, 3}, Labels(y))
	assert.Equal(t, 3.0, Imbalance(y))
	assert.Equal(t, 0.0, Imbalance(nil))
}

func TestSubsetKeepsAlignment(t *testing.T) {
	ds := &Dataset{
		FeatureNames: []string{"f"},
		X:            [][]float64{{0}, {1}, {2}, {3}},
		Y:            []int{0, 1, 2, 3},
		Classes:      []string{"a", "b", "c", "d"},
	}
	sub := ds.Subset([]int{3, 1})
	assert.Equal(t, [][]float64{{3}, {1}}, sub.X)
	assert.Equal(t, []int{3, 1}, sub.Y)
	assert.Equal(t, "d", sub.LabelName(3))
	assert.Equal(t, "9", sub.LabelName(9))
}
