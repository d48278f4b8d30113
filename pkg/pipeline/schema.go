package pipeline

import (
	"github.com/pkg/errors"

	"covertype/pkg/data"
)

// Schema describes the feature layout a pipeline was fitted on.
type Schema struct {
	FeatureNames []string // optional
	Width        int
}

// InferSchema takes the width of the first row of X and checks every other
// row against it.
func InferSchema(X [][]float64, names []string) (*Schema, error) {
	if len(X) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "schema: no rows")
	}
	s := &Schema{FeatureNames: names, Width: len(X[0])}
	if s.Width == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "schema: rows have no features")
	}
	if len(names) > 0 && len(names) != s.Width {
		return nil, errors.Wrapf(ErrShapeMismatch, "schema: %d feature names for %d columns", len(names), s.Width)
	}
	if err := s.Check(X); err != nil {
		return nil, err
	}
	return s, nil
}

// Check fails with ErrShapeMismatch when X is empty or a row has the wrong width.
func (s *Schema) Check(X [][]float64) error {
	if len(X) == 0 {
		return errors.Wrap(ErrShapeMismatch, "schema: no rows")
	}
	return errors.Wrap(data.CheckWidth(X, s.Width), "schema")
}
