package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelRowsVisitsEveryIndexOnce(t *testing.T) {
	for _, n := range []int{0, 1, 7, 1000} {
		hits := make([]int, n)
		ParallelRows(n, func(i int) { hits[i]++ })
		for i, h := range hits {
			assert.Equal(t, 1, h, "n=%d index %d", n, i)
		}
	}
}
