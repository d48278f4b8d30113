package sampling

import (
	"io"
	"math/rand"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"covertype/pkg/model"
)

// SMOTE oversamples the selected classes by interpolating between a sample
// and one of its KNeighbors nearest neighbors of the same class.
type SMOTE struct {
	Strategy   string
	KNeighbors int
	Seed       int64

	report reporter
}

// NewSMOTE returns SMOTE with 5 neighbors, the auto strategy and seed 42.
func NewSMOTE(out io.Writer, logger *zap.Logger) *SMOTE {
	return &SMOTE{
		Strategy:   "auto",
		KNeighbors: 5,
		Seed:       42,
		report:     newReporter(out, logger),
	}
}

// Resample returns the original rows followed by the synthetic rows.
func (s *SMOTE) Resample(X [][]float64, y []int) ([][]float64, []int, error) {
	if err := checkAligned(X, y); err != nil {
		return nil, nil, err
	}
	if err := checkNeighbors(y, []string{"k_neighbors"}, s.KNeighbors); err != nil {
		return nil, nil, err
	}
	want, err := targets(y, s.Strategy, false)
	if err != nil {
		return nil, nil, err
	}

	s.report.histogram("Original", y)

	outX := make([][]float64, len(X), len(X)+len(X)/2)
	outY := make([]int, len(y), cap(outX))
	copy(outX, X)
	copy(outY, y)

	rnd := rand.New(rand.NewSource(s.Seed))
	rows := classRows(y)
	for _, label := range sortedKeys(countRows(rows)) {
		idx := rows[label]
		n := want[label] - len(idx)
		if n <= 0 {
			continue
		}
		synthetic, err := s.generate(gather(X, idx), n, rnd)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "smote class %d", label)
		}
		for _, row := range synthetic {
			outX = append(outX, row)
			outY = append(outY, label)
		}
	}

	s.report.histogram("Resampled", outY)
	return outX, outY, nil
}

// generate creates n samples from classX.
func (s *SMOTE) generate(classX [][]float64, n int, rnd *rand.Rand) ([][]float64, error) {
	nn := model.NewNearestNeighbors()
	if err := nn.Fit(classX); err != nil {
		return nil, err
	}
	// The first neighbor of a point is normally the point itself.
	all, err := nn.KNearest(classX, s.KNeighbors+1)
	if err != nil {
		return nil, err
	}
	nbrs := make([][]int, len(classX))
	for i, list := range all {
		nbrs[i] = make([]int, 0, s.KNeighbors)
		for _, nb := range list {
			if nb.Index != i && len(nbrs[i]) < s.KNeighbors {
				nbrs[i] = append(nbrs[i], nb.Index)
			}
		}
	}

	out := make([][]float64, n)
	for g := 0; g < n; g++ {
		i := rnd.Intn(len(classX))
		j := nbrs[i][rnd.Intn(len(nbrs[i]))]
		step := rnd.Float64()

		x, neighbor := classX[i], classX[j]
		row := make([]float64, len(x))
		for f := range x {
			row[f] = x[f] + step*(neighbor[f]-x[f])
		}
		out[g] = row
	}
	return out, nil
}

func countRows(rows map[int][]int) map[int]int {
	out := make(map[int]int, len(rows))
	for l, idx := range rows {
		out[l] = len(idx)
	}
	return out
}
