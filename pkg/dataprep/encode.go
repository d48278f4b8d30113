package dataprep

import (
	"sort"
	"strconv"
	"strings"
)

// LabelEncode encodes categories as integers 0..k-1 in sorted order of the
// category strings, so the encoding does not depend on row order.
func LabelEncode(data []string) ([]int, []string) {
	seen := map[string]struct{}{}
	classes := make([]string, 0)
	for _, v := range data {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			classes = append(classes, v)
		}
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	out := make([]int, len(data))
	for i, v := range data {
		out[i] = index[v]
	}
	return out, classes
}

// EncodeTarget turns raw target cells into class codes. Integer targets keep
// their value and return nil classes; anything else is label encoded.
func EncodeTarget(data []string) ([]int, []string) {
	codes := make([]int, len(data))
	for i, v := range data {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return LabelEncode(data)
		}
		codes[i] = n
	}
	return codes, nil
}
