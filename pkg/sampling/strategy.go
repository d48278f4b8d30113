package sampling

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"covertype/pkg/data"
)

// minority returns the least populated label, the smallest label on ties.
func minority(counts map[int]int) (label, count int) {
	label, count = 0, -1
	for _, l := range sortedKeys(counts) {
		if count < 0 || counts[l] < count {
			label, count = l, counts[l]
		}
	}
	return label, count
}

// majority returns the most populated label, the smallest label on ties.
func majority(counts map[int]int) (label, count int) {
	label, count = 0, -1
	for _, l := range sortedKeys(counts) {
		if counts[l] > count {
			label, count = l, counts[l]
		}
	}
	return label, count
}

func sortedKeys(counts map[int]int) []int {
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// targets resolves a named strategy into the desired sample count per class.
// Classes missing from the result are left untouched. Undersampling brings
// the selected classes down to the minority count, oversampling brings them
// up to the majority count.
func targets(y []int, strategy string, under bool) (map[int]int, error) {
	counts := data.ClassCounts(y)
	minLabel, minCount := minority(counts)
	maxLabel, maxCount := majority(counts)

	name := strings.ToLower(strings.TrimSpace(strategy))
	if name == "" || name == "auto" {
		if under {
			name = "not minority"
		} else {
			name = "not majority"
		}
	}

	var keep func(label int) bool
	switch name {
	case "all":
		keep = func(int) bool { return true }
	case "not minority":
		keep = func(l int) bool { return l != minLabel }
	case "not majority":
		keep = func(l int) bool { return l != maxLabel }
	case "majority":
		if !under {
			return nil, errors.Wrap(ErrInvalidParameter, "'majority' cannot be used with oversampling")
		}
		keep = func(l int) bool { return l == maxLabel }
	case "minority":
		if under {
			return nil, errors.Wrap(ErrInvalidParameter, "'minority' cannot be used with undersampling")
		}
		keep = func(l int) bool { return l == minLabel }
	default:
		return nil, errors.Wrapf(ErrInvalidParameter, "unknown sampling strategy %q", strategy)
	}

	want := minCount
	if !under {
		want = maxCount
	}
	out := make(map[int]int)
	for l := range counts {
		if keep(l) {
			out[l] = want
		}
	}
	return out, nil
}
