package data

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

var (
	// ErrRetrieval is returned when a dataset cannot be fetched or decoded.
	ErrRetrieval = errors.New("dataset retrieval failed")
	// ErrShapeMismatch is returned when rows and labels, or feature widths, disagree.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Dataset is a labeled feature matrix. X[i] is described by Y[i].
type Dataset struct {
	Name         string
	FeatureNames []string
	X            [][]float64
	Y            []int
	// Classes holds the original label strings indexed by code. Nil when the
	// target column was numeric and codes are the values themselves.
	Classes []string
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Y) }

// NumFeatures returns the feature width.
func (d *Dataset) NumFeatures() int {
	if len(d.FeatureNames) > 0 {
		return len(d.FeatureNames)
	}
	if len(d.X) > 0 {
		return len(d.X[0])
	}
	return 0
}

// Validate checks row alignment and that every row has the same width.
func (d *Dataset) Validate() error {
	if len(d.X) != len(d.Y) {
		return errors.Wrapf(ErrShapeMismatch, "%d feature rows vs %d labels", len(d.X), len(d.Y))
	}
	return CheckWidth(d.X, d.NumFeatures())
}

// WithRows returns a dataset carrying d's metadata and the given rows.
func (d *Dataset) WithRows(X [][]float64, Y []int) *Dataset {
	return &Dataset{
		Name:         d.Name,
		FeatureNames: d.FeatureNames,
		X:            X,
		Y:            Y,
		Classes:      d.Classes,
	}
}

// Subset returns the rows at idx, in that order.
func (d *Dataset) Subset(idx []int) *Dataset {
	X := make([][]float64, len(idx))
	Y := make([]int, len(idx))
	for i, j := range idx {
		X[i] = d.X[j]
		Y[i] = d.Y[j]
	}
	return d.WithRows(X, Y)
}

// LabelName returns the display name of a class code.
func (d *Dataset) LabelName(code int) string {
	if code >= 0 && code < len(d.Classes) {
		return d.Classes[code]
	}
	return strconv.Itoa(code)
}

// CheckWidth fails when any row of X does not have exactly width columns.
func CheckWidth(X [][]float64, width int) error {
	for i, row := range X {
		if len(row) != width {
			return errors.Wrapf(ErrShapeMismatch, "row %d has %d features, want %d", i, len(row), width)
		}
	}
	return nil
}

// ClassCounts counts samples per label.
func ClassCounts(y []int) map[int]int {
	counts := make(map[int]int)
	for _, v := range y {
		counts[v]++
	}
	return counts
}

// Labels returns the distinct labels of y in ascending order.
func Labels(y []int) []int {
	counts := ClassCounts(y)
	out := make([]int, 0, len(counts))
	for k := range counts {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// Imbalance returns max class count divided by min class count (1 for one class, 0 for none).
func Imbalance(y []int) float64 {
	counts := ClassCounts(y)
	if len(counts) == 0 {
		return 0
	}
	lo, hi := -1, 0
	for _, c := range counts {
		if lo < 0 || c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	return float64(hi) / float64(lo)
}
