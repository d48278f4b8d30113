package sampling

import (
	"io"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"covertype/pkg/data"
	"covertype/pkg/model"
)

// NearMiss undersamples the selected classes, keeping the samples that sit
// closest to the minority class.
//
//   - Version 1 keeps samples with the smallest mean distance to their
//     NNeighbors nearest minority samples.
//   - Version 2 keeps samples with the smallest mean distance to their
//     NNeighbors farthest minority samples.
//   - Version 3 first shortlists, for each minority sample, its NNeighborsVer3
//     nearest samples of the class, then keeps the shortlisted samples with
//     the largest mean distance to their NNeighbors nearest minority samples.
//     When the shortlist is too short, the other class samples fill the gap
//     in the same order, so every class still reaches its target.
type NearMiss struct {
	Strategy       string
	Version        int
	NNeighbors     int
	NNeighborsVer3 int

	report reporter
}

// NewNearMiss returns NearMiss-1 with 3 neighbors and the auto strategy.
func NewNearMiss(out io.Writer, logger *zap.Logger) *NearMiss {
	return &NearMiss{
		Strategy:       "auto",
		Version:        1,
		NNeighbors:     3,
		NNeighborsVer3: 3,
		report:         newReporter(out, logger),
	}
}

// Resample removes samples until every selected class reaches its target.
// Kept rows appear in their original order.
func (nm *NearMiss) Resample(X [][]float64, y []int) ([][]float64, []int, error) {
	if err := checkAligned(X, y); err != nil {
		return nil, nil, err
	}
	if nm.Version < 1 || nm.Version > 3 {
		return nil, nil, errors.Wrapf(ErrInvalidParameter, "nearmiss version must be 1, 2 or 3, got %d", nm.Version)
	}
	names, ks := []string{"n_neighbors"}, []int{nm.NNeighbors}
	if nm.Version == 3 {
		names, ks = append(names, "n_neighbors_ver3"), append(ks, nm.NNeighborsVer3)
	}
	if err := checkNeighbors(y, names, ks...); err != nil {
		return nil, nil, err
	}
	want, err := targets(y, nm.Strategy, true)
	if err != nil {
		return nil, nil, err
	}

	nm.report.histogram("Original", y)

	rows := classRows(y)
	minLabel, _ := minority(data.ClassCounts(y))
	minorityX := gather(X, rows[minLabel])
	toMinority := model.NewNearestNeighbors()
	if err := toMinority.Fit(minorityX); err != nil {
		return nil, nil, err
	}

	keep := make([]bool, len(y))
	for label, idx := range rows {
		n, selected := want[label]
		if !selected || label == minLabel || n >= len(idx) {
			for _, i := range idx {
				keep[i] = true
			}
			continue
		}

		chosen, err := nm.selectRows(X, idx, minorityX, toMinority, n)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "nearmiss class %d", label)
		}
		for _, i := range chosen {
			keep[i] = true
		}
	}

	var (
		outX [][]float64
		outY []int
	)
	for i, k := range keep {
		if k {
			outX = append(outX, X[i])
			outY = append(outY, y[i])
		}
	}

	nm.report.histogram("Resampled", outY)
	return outX, outY, nil
}

// selectRows picks n rows out of idx, the rows of one class.
func (nm *NearMiss) selectRows(X [][]float64, idx []int, minorityX [][]float64, toMinority *model.NearestNeighbors, n int) ([]int, error) {
	// preferred marks the version 3 shortlist, ranked ahead of every other row.
	preferred := make([]bool, len(idx))
	if nm.Version == 3 {
		shortlist, err := nm.shortlist(X, idx, minorityX)
		if err != nil {
			return nil, err
		}
		for _, i := range shortlist {
			preferred[i] = true
		}
	}

	classX := gather(X, idx)
	var (
		nbrs [][]model.Neighbor
		err  error
	)
	if nm.Version == 2 {
		nbrs, err = toMinority.KFarthest(classX, nm.NNeighbors)
	} else {
		nbrs, err = toMinority.KNearest(classX, nm.NNeighbors)
	}
	if err != nil {
		return nil, err
	}

	order := make([]int, len(idx))
	score := make([]float64, len(idx))
	for i := range idx {
		order[i] = i
		score[i] = model.MeanDist(nbrs[i])
	}
	farthest := nm.Version == 3
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := order[a], order[b]
		if preferred[pa] != preferred[pb] {
			return preferred[pa]
		}
		if farthest {
			return score[pa] > score[pb]
		}
		return score[pa] < score[pb]
	})

	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = idx[order[i]]
	}
	return out, nil
}

// shortlist returns the positions in idx of the class rows that are among
// the NNeighborsVer3 nearest class samples of at least one minority sample.
func (nm *NearMiss) shortlist(X [][]float64, idx []int, minorityX [][]float64) ([]int, error) {
	toClass := model.NewNearestNeighbors()
	if err := toClass.Fit(gather(X, idx)); err != nil {
		return nil, err
	}
	k := min(nm.NNeighborsVer3, len(idx))
	nbrs, err := toClass.KNearest(minorityX, k)
	if err != nil {
		return nil, err
	}

	seen := make([]bool, len(idx))
	for _, list := range nbrs {
		for _, nb := range list {
			seen[nb.Index] = true
		}
	}
	var out []int
	for i, ok := range seen {
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}
