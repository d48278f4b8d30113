// Package sampling rebalances class frequencies of a labeled feature matrix,
// either by removing samples of the larger classes (NearMiss) or by
// synthesizing samples of the smaller ones (SMOTE).
package sampling

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"covertype/pkg/data"
)

var (
	// ErrInsufficientSamples is returned when a neighbor count does not fit the smallest class.
	ErrInsufficientSamples = errors.New("insufficient samples")
	// ErrInvalidParameter is returned for unknown modes, strategies or versions.
	ErrInvalidParameter = errors.New("invalid sampling parameter")
)

// Mode selects a rebalancing method.
type Mode int

const (
	None Mode = iota
	Under
	Over
)

// ParseMode maps the command line names none, under and over to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "under":
		return Under, nil
	case "over":
		return Over, nil
	}
	return None, errors.Wrapf(ErrInvalidParameter, "unknown balancing mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case Under:
		return "under"
	case Over:
		return "over"
	default:
		return "none"
	}
}

// Resampler returns a rebalanced copy of (X, y). Rows stay aligned with labels.
type Resampler interface {
	Resample(X [][]float64, y []int) ([][]float64, []int, error)
}

// Config carries the parameters of both strategies. NNeighbors and
// NNeighborsVer3 belong to NearMiss, KNeighbors to SMOTE.
type Config struct {
	Strategy       string
	Version        int
	NNeighbors     int
	NNeighborsVer3 int
	KNeighbors     int
	Seed           int64
}

// DefaultConfig mirrors the usual NearMiss-1 / SMOTE defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:       "auto",
		Version:        1,
		NNeighbors:     3,
		NNeighborsVer3: 3,
		KNeighbors:     5,
		Seed:           42,
	}
}

// New builds the resampler for mode. Histograms are written to out.
func New(mode Mode, cfg Config, out io.Writer, logger *zap.Logger) (Resampler, error) {
	switch mode {
	case Under:
		nm := NewNearMiss(out, logger)
		nm.Strategy = cfg.Strategy
		nm.Version = cfg.Version
		nm.NNeighbors = cfg.NNeighbors
		nm.NNeighborsVer3 = cfg.NNeighborsVer3
		return nm, nil
	case Over:
		sm := NewSMOTE(out, logger)
		sm.Strategy = cfg.Strategy
		sm.KNeighbors = cfg.KNeighbors
		sm.Seed = cfg.Seed
		return sm, nil
	}
	return nil, errors.Wrapf(ErrInvalidParameter, "no resampler for mode %s", mode)
}

// FormatHistogram renders class counts most frequent first, e.g. {2: 90, 1: 10}.
func FormatHistogram(y []int) string {
	counts := data.ClassCounts(y)
	labels := data.Labels(y)
	sort.SliceStable(labels, func(a, b int) bool { return counts[labels[a]] > counts[labels[b]] })

	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%d: %d", l, counts[l])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// reporter writes the before/after class histograms of a resampling.
type reporter struct {
	out    io.Writer
	logger *zap.Logger
}

func newReporter(out io.Writer, logger *zap.Logger) reporter {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return reporter{out: out, logger: logger}
}

func (r reporter) histogram(prefix string, y []int) {
	h := FormatHistogram(y)
	if r.out != nil {
		fmt.Fprintf(r.out, "%s dataset shape %s\n", prefix, h)
	}
	if r.logger != nil {
		r.logger.Debug("class histogram", zap.String("stage", strings.ToLower(prefix)), zap.String("counts", h))
	}
}

func checkAligned(X [][]float64, y []int) error {
	if len(X) != len(y) {
		return errors.Wrapf(data.ErrShapeMismatch, "%d rows vs %d labels", len(X), len(y))
	}
	if len(y) == 0 {
		return errors.Wrap(ErrInsufficientSamples, "empty input")
	}
	if len(X[0]) == 0 {
		return errors.Wrap(data.ErrShapeMismatch, "rows have no features")
	}
	return data.CheckWidth(X, len(X[0]))
}

// checkNeighbors enforces k < smallest class population - 1 for every count.
func checkNeighbors(y []int, names []string, ks ...int) error {
	_, minCount := minority(data.ClassCounts(y))
	for i, k := range ks {
		if k <= 0 {
			return errors.Wrapf(ErrInvalidParameter, "%s must be positive, got %d", names[i], k)
		}
		if k >= minCount-1 {
			return errors.Wrapf(ErrInsufficientSamples,
				"%s=%d needs the smallest class to hold more than %d samples, it has %d", names[i], k, k+1, minCount)
		}
	}
	return nil
}

// classRows groups row indices by label, each group in row order.
func classRows(y []int) map[int][]int {
	rows := make(map[int][]int)
	for i, l := range y {
		rows[l] = append(rows[l], i)
	}
	return rows
}

func gather(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}
