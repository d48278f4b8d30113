package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Metrics summarizes one (true, predicted) label pair.
type Metrics struct {
	Accuracy float64
	F1       float64 // support-weighted mean of per-class F1
	// Labels orders the rows (true) and columns (predicted) of Confusion.
	Labels    []int
	Confusion [][]int
	MAE       float64
}

// Evaluate computes every metric of Metrics.
func Evaluate(yTrue, yPred []int) (*Metrics, error) {
	if len(yTrue) != len(yPred) {
		return nil, errors.Errorf("metrics: %d true labels vs %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, errors.New("metrics: no labels")
	}
	labels, cm := ConfusionMatrix(yTrue, yPred)
	return &Metrics{
		Accuracy:  Accuracy(yTrue, yPred),
		F1:        WeightedF1(yTrue, yPred),
		Labels:    labels,
		Confusion: cm,
		MAE:       MAE(yTrue, yPred),
	}, nil
}

// Accuracy is the fraction of exact matches.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// MAE is the mean absolute difference between label codes.
func MAE(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	s := 0.0
	for i := range yTrue {
		d := yPred[i] - yTrue[i]
		if d < 0 {
			d = -d
		}
		s += float64(d)
	}
	return s / float64(len(yTrue))
}

// ConfusionMatrix counts predictions per (true, predicted) pair over the
// sorted union of labels in both slices. Row sums are the true class counts.
func ConfusionMatrix(yTrue, yPred []int) ([]int, [][]int) {
	labels := uniqueSorted(append(append([]int(nil), yTrue...), yPred...))
	pos := make(map[int]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	cm := make([][]int, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		cm[pos[yTrue[i]]][pos[yPred[i]]]++
	}
	return labels, cm
}

// PrecisionRecallF1 returns one-vs-rest scores for a single label. Undefined
// ratios (no predicted or no true samples) count as 0.
func PrecisionRecallF1(yTrue, yPred []int, label int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		switch {
		case yPred[i] == label && yTrue[i] == label:
			tp++
		case yPred[i] == label:
			fp++
		case yTrue[i] == label:
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// WeightedF1 averages per-class F1 weighted by each class's true support.
func WeightedF1(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	support := make(map[int]int)
	for _, l := range yTrue {
		support[l]++
	}
	labels := make([]int, 0, len(support))
	for l := range support {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	total := 0.0
	for _, l := range labels {
		_, _, f1 := PrecisionRecallF1(yTrue, yPred, l)
		total += f1 * float64(support[l])
	}
	return total / float64(len(yTrue))
}

// FormatConfusion renders the matrix as nested brackets with right-aligned cells.
func FormatConfusion(cm [][]int) string {
	width := 1
	for _, row := range cm {
		for _, v := range row {
			width = max(width, len(fmt.Sprint(v)))
		}
	}
	var b strings.Builder
	b.WriteString("[")
	for i, row := range cm {
		if i > 0 {
			b.WriteString("\n ")
		}
		b.WriteString("[")
		for j, v := range row {
			if j > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%*d", width, v)
		}
		b.WriteString("]")
	}
	b.WriteString("]")
	return b.String()
}
