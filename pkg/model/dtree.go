package model

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a CART-style classifier over numeric features.
type DecisionTreeClassifier struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => use all features, >0 => number of features to sample when looking for split
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for randomness (feature subsampling)

	// internals
	root    *dtNode
	classes []int // class labels in ascending order (order used by probas)
}

// dtNode holds a node in the tree.
type dtNode struct {
	isLeaf    bool
	feature   int
	threshold float64 // x <= threshold => left
	left      *dtNode
	right     *dtNode

	// leaf data
	probas []float64 // probability distribution across classes (aligned with tree.classes)
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with sensible defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MaxDepth:            0, // 0 => no explicit max (stopping by other criteria)
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		Criterion:           "gini",
		MaxFeatures:         0,
		MinImpurityDecrease: 0.0,
		RandomState:         time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API: Fit / Predict / PredictProba
// ---------------------------

// Fit trains the decision tree on X (n x p) and y (n labels as ints).
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []int) error {
	if len(X) != len(y) {
		return errors.New("dtree: X and y length mismatch")
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitSample(X, y, idx, uniqueSorted(y))
}

// FitSample trains on the rows listed in idx. Rows may repeat, which is how
// bootstrap samples are passed without copying X. classes fixes the order of
// PredictProba columns and must contain every label of the sampled rows.
func (t *DecisionTreeClassifier) FitSample(X [][]float64, y []int, idx []int, classes []int) error {
	if len(X) == 0 || len(idx) == 0 {
		return errors.New("dtree: empty X")
	}
	if len(y) != len(X) {
		return errors.New("dtree: X and y length mismatch")
	}
	if len(classes) == 0 {
		return errors.New("dtree: no classes in y")
	}
	switch t.Criterion {
	case "", "gini", "entropy":
	default:
		return errors.Errorf("dtree: unknown criterion %q", t.Criterion)
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("dtree: inconsistent number of features in X rows")
		}
	}

	t.classes = classes
	classPos := make(map[int]int, len(classes))
	for i, c := range classes {
		classPos[c] = i
	}
	// yc holds the class position of every row, so the hot loops index slices, not maps.
	yc := make([]int, len(y))
	for _, ii := range idx {
		ci, ok := classPos[y[ii]]
		if !ok {
			return errors.Errorf("dtree: label %d not among the declared classes", y[ii])
		}
		yc[ii] = ci
	}

	b := &builder{
		tree:     t,
		X:        X,
		yc:       yc,
		nClasses: len(classes),
		p:        p,
		rnd:      rand.New(rand.NewSource(t.RandomState)),
	}
	if t.Criterion == "entropy" {
		b.impurity = entropyFromCounts
	} else {
		b.impurity = giniFromCounts
	}

	work := append([]int(nil), idx...)
	t.root = b.buildNode(work, 0)
	return nil
}

// Classes returns the labels in PredictProba column order.
func (t *DecisionTreeClassifier) Classes() []int { return t.classes }

// Predict returns the most probable class of every row.
func (t *DecisionTreeClassifier) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i := range X {
		out[i] = t.classes[argmaxFloat(t.predictProbaSingle(X[i]))]
	}
	return out
}

// PredictProba returns the per-class probability vectors for rows in X.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = t.predictProbaSingle(X[i])
	}
	return out
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

type builder struct {
	tree     *DecisionTreeClassifier
	X        [][]float64
	yc       []int
	nClasses int
	p        int
	impurity func([]int) float64
	rnd      *rand.Rand
}

// splitResult holds the best split found for one node.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
}

// pair is a named type for a value and its original index.
type pair struct {
	v float64
	i int
}

func (b *builder) leaf(counts []int) *dtNode {
	return &dtNode{isLeaf: true, probas: countsToProbas(counts)}
}

func (b *builder) buildNode(idx []int, depth int) *dtNode {
	t := b.tree
	counts := make([]int, b.nClasses)
	for _, ii := range idx {
		counts[b.yc[ii]]++
	}

	// make leaf if pure or too few samples or depth reached
	if isPure(counts) || (t.MinSamplesSplit > 0 && len(idx) < t.MinSamplesSplit) {
		return b.leaf(counts)
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return b.leaf(counts)
	}

	// determine features to try
	featIndices := make([]int, b.p)
	for j := 0; j < b.p; j++ {
		featIndices[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < b.p {
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + b.rnd.Intn(b.p-i)
			featIndices[i], featIndices[j] = featIndices[j], featIndices[i]
		}
		featIndices = featIndices[:t.MaxFeatures]
	}

	parentImpurity := b.impurity(counts)
	best := splitResult{feature: -1}
	sorted := make([]pair, len(idx))
	for _, f := range featIndices {
		result := b.findBestSplitForFeature(idx, f, counts, parentImpurity, sorted)
		if result.feature >= 0 && result.gain > best.gain {
			best = result
		}
	}

	// Decide whether to split
	if best.feature == -1 || best.gain <= t.MinImpurityDecrease {
		return b.leaf(counts)
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, ii := range idx {
		if b.X[ii][best.feature] <= best.threshold {
			left = append(left, ii)
		} else {
			right = append(right, ii)
		}
	}

	return &dtNode{
		feature:   best.feature,
		threshold: best.threshold,
		left:      b.buildNode(left, depth+1),
		right:     b.buildNode(right, depth+1),
	}
}

// findBestSplitForFeature sorts the node's rows on feature f and sweeps the
// boundaries between distinct values, moving one row at a time from the
// right partition to the left one.
func (b *builder) findBestSplitForFeature(idx []int, f int, counts []int, parentImpurity float64, sorted []pair) splitResult {
	result := splitResult{feature: -1}
	for k, ii := range idx {
		sorted[k] = pair{b.X[ii][f], ii}
	}
	sort.Slice(sorted, func(a, c int) bool { return sorted[a].v < sorted[c].v })

	n := len(sorted)
	minLeaf := max(b.tree.MinSamplesLeaf, 1)
	leftCounts := make([]int, b.nClasses)
	rightCounts := append([]int(nil), counts...)
	for s := 1; s < n; s++ {
		c := b.yc[sorted[s-1].i]
		leftCounts[c]++
		rightCounts[c]--

		// skip if same value
		if sorted[s].v == sorted[s-1].v {
			continue
		}
		if s < minLeaf || n-s < minLeaf {
			continue
		}

		weighted := (float64(s)/float64(n))*b.impurity(leftCounts) + (float64(n-s)/float64(n))*b.impurity(rightCounts)
		gain := parentImpurity - weighted
		if gain > result.gain {
			result = splitResult{gain: gain, feature: f, threshold: (sorted[s-1].v + sorted[s].v) / 2.0}
		}
	}
	return result
}

// ---------------------------
// Prediction helper
// ---------------------------

func (t *DecisionTreeClassifier) predictProbaSingle(x []float64) []float64 {
	if t.root == nil {
		p := make([]float64, len(t.classes))
		for i := range p {
			p[i] = 1.0 / float64(len(p))
		}
		return p
	}
	node := t.root
	for !node.isLeaf {
		if x[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.probas
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}

// argmaxFloat returns the first index of the largest value.
func argmaxFloat(arr []float64) int {
	best := 0
	for i := 1; i < len(arr); i++ {
		if arr[i] > arr[best] {
			best = i
		}
	}
	return best
}

// uniqueSorted returns the distinct labels of y in ascending order.
func uniqueSorted(y []int) []int {
	seen := make(map[int]struct{})
	out := make([]int, 0)
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
