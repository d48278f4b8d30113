// Package pipeline chains preprocessing steps with a classifier and scores
// the fitted chain on held-out data.
package pipeline

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"covertype/pkg/data"
	"covertype/pkg/model"
	"covertype/pkg/stats"
)

// ErrShapeMismatch is returned for empty inputs, ragged rows, feature widths
// that differ between fit and predict, or labels that do not match rows.
var ErrShapeMismatch = data.ErrShapeMismatch

// Pipeline chains transformers and ends with a classifier. Transformers are
// fitted on training data only and applied unchanged to later inputs.
type Pipeline struct {
	steps      []model.Transformer
	classifier model.Classifier
	schema     *Schema
	logger     *zap.Logger
}

func NewPipeline(classifier model.Classifier, steps ...model.Transformer) *Pipeline {
	return &Pipeline{steps: steps, classifier: classifier, logger: zap.NewNop()}
}

// NewClassificationPipeline standardizes features and trains a random forest
// of 100 Gini trees with sqrt(p) features per split, seeded with seed.
// Extra options override the forest defaults.
func NewClassificationPipeline(seed int64, logger *zap.Logger, opts ...model.RandomForestOption) *Pipeline {
	forestOpts := append([]model.RandomForestOption{
		model.WithNEstimators(100),
		model.WithForestCriterion("gini"),
		model.WithForestRandomState(seed),
	}, opts...)
	p := NewPipeline(model.NewRandomForest(forestOpts...), stats.NewStandardScaler())
	return p.WithLogger(logger)
}

// WithLogger sets the logger used for timings.
func (p *Pipeline) WithLogger(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p.logger = logger
	return p
}

// Schema returns the layout seen by Fit, or nil before fitting.
func (p *Pipeline) Schema() *Schema { return p.schema }

// Fit fits every transformer in order, feeding each the output of the
// previous one, then trains the classifier on the result.
func (p *Pipeline) Fit(X [][]float64, y []int) error {
	schema, err := InferSchema(X, nil)
	if err != nil {
		return errors.Wrap(err, "pipeline: fit")
	}
	if len(y) != len(X) {
		return errors.Wrapf(ErrShapeMismatch, "pipeline: fit: %d rows vs %d labels", len(X), len(y))
	}

	for i, step := range p.steps {
		if err := step.Fit(X); err != nil {
			return errors.Wrapf(err, "pipeline: fit step %d", i)
		}
		if X, err = step.Transform(X); err != nil {
			return errors.Wrapf(err, "pipeline: transform step %d", i)
		}
	}

	start := time.Now()
	if err := p.classifier.Fit(X, y); err != nil {
		return errors.Wrap(err, "pipeline: fit classifier")
	}
	p.logger.Info("classifier trained",
		zap.Int("rows", len(X)),
		zap.Int("features", schema.Width),
		zap.Duration("took", time.Since(start)))
	p.schema = schema
	return nil
}

// Transform applies the fitted transformers.
func (p *Pipeline) Transform(X [][]float64) ([][]float64, error) {
	if p.schema == nil {
		return nil, errors.New("pipeline: not fitted")
	}
	if err := p.schema.Check(X); err != nil {
		return nil, errors.Wrap(err, "pipeline: transform")
	}
	var err error
	for i, step := range p.steps {
		if X, err = step.Transform(X); err != nil {
			return nil, errors.Wrapf(err, "pipeline: transform step %d", i)
		}
	}
	return X, nil
}

// Predict transforms X and returns the classifier's labels.
func (p *Pipeline) Predict(X [][]float64) ([]int, error) {
	Z, err := p.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.classifier.Predict(Z), nil
}

// FitEvaluate fits on the training part and scores predictions of the test part.
func (p *Pipeline) FitEvaluate(XTrain [][]float64, yTrain []int, XTest [][]float64, yTest []int) (*model.Metrics, error) {
	if err := p.Fit(XTrain, yTrain); err != nil {
		return nil, err
	}
	if len(yTest) != len(XTest) {
		return nil, errors.Wrapf(ErrShapeMismatch, "pipeline: evaluate: %d rows vs %d labels", len(XTest), len(yTest))
	}
	pred, err := p.Predict(XTest)
	if err != nil {
		return nil, err
	}
	m, err := model.Evaluate(yTest, pred)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: evaluate")
	}
	return m, nil
}
