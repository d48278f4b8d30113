// Package orchestrator runs the fixed sequence fetch, balance, visualize,
// split, train and report on one dataset.
package orchestrator

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"covertype/pkg/data"
	"covertype/pkg/loader"
	"covertype/pkg/model"
	"covertype/pkg/pipeline"
	"covertype/pkg/sampling"
)

// Visualizer renders a dataset and returns the written image paths.
type Visualizer interface {
	Visualize(ds *data.Dataset) ([]string, error)
}

// Evaluator fits on a training part and scores the test part.
type Evaluator interface {
	FitEvaluate(XTrain [][]float64, yTrain []int, XTest [][]float64, yTest []int) (*model.Metrics, error)
}

// Runner holds everything a run needs. A Runner is not safe for concurrent
// use; each Run starts from Idle.
type Runner struct {
	Provider  data.Provider
	DatasetID string
	// Title heads the report, "<Title> dataset results:".
	Title    string
	Sampling sampling.Config
	// Visualizer may be nil to skip the projections.
	Visualizer Visualizer
	// NewEvaluator returns a fresh, unfitted evaluator for every run.
	NewEvaluator func() Evaluator
	TestSize     float64
	Seed         int64
	Out          io.Writer
	Logger       *zap.Logger

	history []State
}

// NewRunner returns a runner with the default evaluator (scaled random
// forest), a 0.2 test split and seed 42, printing to stdout.
func NewRunner(provider data.Provider, datasetID string, visualizer Visualizer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Provider:   provider,
		DatasetID:  datasetID,
		Title:      "Covertype",
		Sampling:   sampling.DefaultConfig(),
		Visualizer: visualizer,
		NewEvaluator: func() Evaluator {
			return pipeline.NewClassificationPipeline(42, logger)
		},
		TestSize: 0.2,
		Seed:     42,
		Out:      os.Stdout,
		Logger:   logger,
	}
}

// History returns the states visited by the last Run, starting with Idle.
func (r *Runner) History() []State { return r.history }

// Run executes every stage in order. Any failure stops the run and is wrapped
// with the name of the failing state. The report is written only once it is
// complete.
func (r *Runner) Run(mode sampling.Mode) (*model.Metrics, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	if r.Provider == nil || r.NewEvaluator == nil {
		return nil, errors.New("orchestrator: runner needs a provider and an evaluator")
	}

	m, err := newMachine(logger)
	if err != nil {
		return nil, err
	}
	defer func() { r.history = m.history }()
	start := time.Now()

	// step enters s, runs fn and tags any error with s.
	step := func(s State, fn func() error) error {
		if err := m.enter(s); err != nil {
			return err
		}
		return errors.Wrap(fn(), string(s))
	}

	var ds *data.Dataset
	err = step(Fetching, func() error {
		var err error
		if ds, err = r.Provider.Fetch(r.DatasetID); err != nil {
			return err
		}
		if err := ds.Validate(); err != nil {
			return err
		}
		logger.Info("dataset fetched",
			zap.String("name", ds.Name),
			zap.String("rows", formatCount(ds.Len())),
			zap.Int("features", ds.NumFeatures()),
			zap.Int("classes", len(data.Labels(ds.Y))),
			zap.Float64("imbalance", data.Imbalance(ds.Y)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if mode != sampling.None {
		err = step(Balancing, func() error {
			res, err := sampling.New(mode, r.Sampling, out, logger)
			if err != nil {
				return err
			}
			X, y, err := res.Resample(ds.X, ds.Y)
			if err != nil {
				return err
			}
			ds = ds.WithRows(X, y)
			if err := ds.Validate(); err != nil {
				return err
			}
			logger.Info("dataset balanced",
				zap.Stringer("mode", mode),
				zap.String("rows", formatCount(ds.Len())),
				zap.Float64("imbalance", data.Imbalance(ds.Y)))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if r.Visualizer != nil {
		err = step(Visualizing, func() error {
			paths, err := r.Visualizer.Visualize(ds)
			if err != nil {
				return err
			}
			logger.Info("projections written", zap.Strings("paths", paths))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var split *loader.Split
	err = step(Splitting, func() error {
		var err error
		split, err = loader.TrainTestSplit(ds.X, ds.Y, r.TestSize, r.Seed)
		return err
	})
	if err != nil {
		return nil, err
	}

	var metrics *model.Metrics
	err = step(Training, func() error {
		var err error
		metrics, err = r.NewEvaluator().FitEvaluate(split.XTrain, split.YTrain, split.XTest, split.YTest)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = step(Reporting, func() error {
		var buf bytes.Buffer
		if err := WriteReport(&buf, r.Title, metrics); err != nil {
			return err
		}
		_, err := buf.WriteTo(out)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := m.enter(Done); err != nil {
		return nil, err
	}
	logger.Info("run complete",
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("f1", metrics.F1),
		zap.Duration("took", time.Since(start)))
	return metrics, nil
}
