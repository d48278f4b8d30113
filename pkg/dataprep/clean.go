package dataprep

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMissing is returned for cells holding a missing value marker.
var ErrMissing = errors.New("missing value")

// IsMissing reports whether a cell is empty or one of the usual missing
// markers (NA, NaN, ?).
func IsMissing(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "na", "nan", "?", "null":
		return true
	}
	return false
}

// ParseFeature parses a numeric cell. Missing markers fail with ErrMissing;
// infinite values are rejected as well, since nothing downstream can scale them.
func ParseFeature(cell string) (float64, error) {
	if IsMissing(cell) {
		return 0, errors.Wrapf(ErrMissing, "cell %q", cell)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) {
		return 0, errors.Errorf("cell %q is not finite", cell)
	}
	return v, nil
}
