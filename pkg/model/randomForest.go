package model

import (
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// RandomForest for classification
type RandomForest struct {
	// Hyperparameters / options
	NEstimators         int
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MinImpurityDecrease float64
	MaxFeatures         int // 0 => sqrt(number of features)
	Criterion           string
	Bootstrap           bool
	RandomState         int64
	// Workers bounds how many trees are trained at once. 0 => GOMAXPROCS.
	Workers int

	// Internal state
	Trees   []*DecisionTreeClassifier
	classes []int
}

// RandomForestOption functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxDepth = d }
}
func WithForestCriterion(c string) RandomForestOption {
	return func(rf *RandomForest) { rf.Criterion = c }
}
func WithForestMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesLeaf = n }
}
func WithForestMinImpurityDecrease(v float64) RandomForestOption {
	return func(rf *RandomForest) { rf.MinImpurityDecrease = v }
}
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}
func WithWorkers(n int) RandomForestOption { return func(rf *RandomForest) { rf.Workers = n } }

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Criterion:       "gini",
		Bootstrap:       true,
		RandomState:     time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains the random forest.
// Bootstrap samples are index slices into X; rows are never copied. Every
// tree derives its own source from RandomState, so the fitted forest does
// not depend on goroutine scheduling.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("randomforest: empty X")
	}
	n := len(X)
	if len(y) != n {
		return errors.New("randomforest: X and y length mismatch")
	}
	if rf.NEstimators <= 0 {
		return errors.New("randomforest: NEstimators must be positive")
	}

	rf.classes = uniqueSorted(y)
	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(len(X[0])))))
	}
	workers := rf.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rf.Trees = make([]*DecisionTreeClassifier, rf.NEstimators)
	var g errgroup.Group
	g.SetLimit(workers)

	for i := 0; i < rf.NEstimators; i++ {
		idx := i
		g.Go(func() error {
			seed := rf.RandomState + int64(idx)
			treeRand := rand.New(rand.NewSource(seed))

			sampleIndices := make([]int, n)
			for j := 0; j < n; j++ {
				if rf.Bootstrap {
					sampleIndices[j] = treeRand.Intn(n)
				} else {
					sampleIndices[j] = j
				}
			}

			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithMinImpurityDecrease(rf.MinImpurityDecrease),
				WithMaxFeatures(maxFeatures),
				WithCriterion(rf.Criterion),
				WithRandomState(seed), // unique seed for each tree
			)
			if err := tree.FitSample(X, y, sampleIndices, rf.classes); err != nil {
				return errors.Wrapf(err, "randomforest: tree %d", idx)
			}
			rf.Trees[idx] = tree
			return nil
		})
	}
	return g.Wait()
}

// Classes returns the labels in PredictProba column order.
func (rf *RandomForest) Classes() []int { return rf.classes }

// PredictProba averages the class probabilities of all trees.
func (rf *RandomForest) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range out {
		out[i] = make([]float64, len(rf.classes))
	}
	if len(rf.Trees) == 0 {
		return out
	}
	for _, tree := range rf.Trees {
		for i, p := range tree.PredictProba(X) {
			for c, v := range p {
				out[i][c] += v
			}
		}
	}
	scale := 1 / float64(len(rf.Trees))
	for i := range out {
		for c := range out[i] {
			out[i][c] *= scale
		}
	}
	return out
}

// Predict returns the class with the highest mean probability; ties go to
// the smaller label.
func (rf *RandomForest) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	if len(rf.classes) == 0 {
		return out
	}
	proba := rf.PredictProba(X)
	for i, p := range proba {
		out[i] = rf.classes[argmaxFloat(p)]
	}
	return out
}
