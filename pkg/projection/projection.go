// Package projection embeds feature matrices in two dimensions and renders the
// embeddings as labeled scatter plots.
package projection

import (
	"strings"

	"github.com/pkg/errors"

	"covertype/pkg/core"
)

var (
	// ErrInvalidParameter is returned for out-of-range projection settings.
	ErrInvalidParameter = errors.New("invalid projection parameter")
	// ErrInsufficientSamples is returned when there are too few rows to embed.
	ErrInsufficientSamples = errors.New("insufficient samples")
)

// Method selects a projection.
type Method int

const (
	MethodTSNE Method = iota
	MethodUMAP
)

// ParseMethod maps "tsne" and "umap" to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tsne", "t-sne":
		return MethodTSNE, nil
	case "umap":
		return MethodUMAP, nil
	}
	return 0, errors.Wrapf(ErrInvalidParameter, "unknown projection %q", s)
}

func (m Method) String() string {
	if m == MethodUMAP {
		return "umap"
	}
	return "tsne"
}

// Title is the plot title used for the method.
func (m Method) Title() string {
	if m == MethodUMAP {
		return "Visualization with UMAP"
	}
	return "Visualization with t-SNE"
}

// Projector maps n rows of X to an n x 2 embedding, row-aligned with X.
type Projector interface {
	Project(X [][]float64) (*core.Matrix, error)
}

// checkInput validates a feature matrix and returns its row width.
func checkInput(X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, errors.Wrap(ErrInsufficientSamples, "projection: empty input")
	}
	d := len(X[0])
	if d == 0 {
		return 0, errors.Wrap(ErrInvalidParameter, "projection: rows have no features")
	}
	for i, row := range X {
		if len(row) != d {
			return 0, errors.Wrapf(ErrInvalidParameter, "projection: row %d has %d features, want %d", i, len(row), d)
		}
	}
	return d, nil
}
