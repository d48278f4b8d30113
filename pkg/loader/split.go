package loader

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Split holds the two disjoint parts of a train/test split.
type Split struct {
	XTrain, XTest [][]float64
	YTrain, YTest []int
	// TrainIdx and TestIdx are the source row indices of each part.
	TrainIdx, TestIdx []int
}

// TrainTestSplit shuffles rows with a source seeded by seed and puts
// ceil(n*testRatio) of them in the test part. The same seed always yields
// the same split.
func TrainTestSplit(X [][]float64, Y []int, testRatio float64, seed int64) (*Split, error) {
	n := len(X)
	if n != len(Y) {
		return nil, errors.Errorf("split: %d rows vs %d labels", n, len(Y))
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, errors.Errorf("split: test ratio must be in (0, 1), got %v", testRatio)
	}
	nTest := int(math.Ceil(float64(n) * testRatio))
	if nTest == 0 || nTest >= n {
		return nil, errors.Errorf("split: %d rows cannot hold a %.2f test split", n, testRatio)
	}

	indices := rand.New(rand.NewSource(seed)).Perm(n)
	s := &Split{
		XTrain:   make([][]float64, 0, n-nTest),
		XTest:    make([][]float64, 0, nTest),
		YTrain:   make([]int, 0, n-nTest),
		YTest:    make([]int, 0, nTest),
		TestIdx:  indices[:nTest],
		TrainIdx: indices[nTest:],
	}
	for _, i := range s.TestIdx {
		s.XTest = append(s.XTest, X[i])
		s.YTest = append(s.YTest, Y[i])
	}
	for _, i := range s.TrainIdx {
		s.XTrain = append(s.XTrain, X[i])
		s.YTrain = append(s.YTrain, Y[i])
	}
	return s, nil
}

// Sample draws up to n row indices with a seeded source, stratified so every
// label keeps (close to) its share. The result is in ascending row order.
// When n <= 0 or n >= len(Y) every index is returned.
func Sample(Y []int, n int, seed int64) []int {
	if n <= 0 || n >= len(Y) {
		all := make([]int, len(Y))
		for i := range all {
			all[i] = i
		}
		return all
	}

	rnd := rand.New(rand.NewSource(seed))
	byLabel := map[int][]int{}
	var order []int
	for i, l := range Y {
		if _, ok := byLabel[l]; !ok {
			order = append(order, l)
		}
		byLabel[l] = append(byLabel[l], i)
	}

	picked := make([]bool, len(Y))
	for _, l := range order {
		rows := byLabel[l]
		take := int(math.Round(float64(n) * float64(len(rows)) / float64(len(Y))))
		take = max(1, min(take, len(rows)))
		for _, p := range rnd.Perm(len(rows))[:take] {
			picked[rows[p]] = true
		}
	}

	out := make([]int, 0, n)
	for i, ok := range picked {
		if ok {
			out = append(out, i)
		}
	}
	return out
}
