package main

import (
	"io"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	"covertype/pkg/config"
	"covertype/pkg/data"
	"covertype/pkg/logging"
	"covertype/pkg/model"
	"covertype/pkg/orchestrator"
	"covertype/pkg/pipeline"
	"covertype/pkg/projection"
	"covertype/pkg/sampling"
)

// newProvider returns the dataset source and the id to fetch from it.
func newProvider(cfg config.DatasetConfig, logger *zap.Logger) (data.Provider, string, error) {
	var (
		p  data.Provider
		id string
	)
	switch cfg.Source {
	case "csv":
		p = data.NewCSVProvider(data.CSVOptions{Target: cfg.Target}, logger)
		id = cfg.Path
	case "uci":
		p = data.NewUCIProvider(cfg.BaseURL, cfg.Timeout, logger)
		id = cfg.ID
	default:
		return nil, "", errors.Errorf("unknown dataset source %q", cfg.Source)
	}
	if cfg.CacheSize > 0 {
		cached, err := data.NewCachedProvider(p, cfg.CacheSize, logger)
		if err != nil {
			return nil, "", err
		}
		p = cached
	}
	return p, id, nil
}

func newVisualizer(cfg config.VisualizeConfig, seed int64, logger *zap.Logger) (*projection.Visualizer, error) {
	methods, err := cfg.ProjectionMethods()
	if err != nil {
		return nil, err
	}

	v := projection.NewVisualizer(cfg.OutDir, logger)
	v.Projections = make([]projection.Projection, 0, len(methods))
	for _, m := range methods {
		var p projection.Projector
		switch m {
		case projection.MethodTSNE:
			tsne := projection.NewTSNE(logger)
			tsne.Perplexity = cfg.Perplexity
			tsne.LearningRate = cfg.LearningRate
			tsne.MaxIter = cfg.MaxIter
			tsne.Seed = seed
			p = tsne
		case projection.MethodUMAP:
			umap := projection.NewUMAP(logger)
			umap.NNeighbors = cfg.UMAPNeighbors
			umap.MinDist = cfg.UMAPMinDist
			umap.Epochs = cfg.UMAPEpochs
			umap.Seed = seed
			p = umap
		}
		v.Projections = append(v.Projections, projection.Projection{Method: m, Projector: p})
	}
	v.MaxSamples = cfg.MaxSamples
	v.Seed = seed
	v.Render = projection.RenderOptions{
		Width:   vg.Length(cfg.Width) * vg.Inch,
		Height:  vg.Length(cfg.Height) * vg.Inch,
		Palette: cfg.Palette,
	}
	if cfg.Show {
		v.Display = projection.NewOpener()
	}
	return v, nil
}

// newRunner wires one run over provider. vis replaces cfg.Visualize so each
// mode can write to its own directory.
func newRunner(cfg *config.Config, vis config.VisualizeConfig, provider data.Provider, id string, out io.Writer, logger *zap.Logger) (*orchestrator.Runner, error) {
	var visualizer orchestrator.Visualizer
	if vis.Enabled {
		v, err := newVisualizer(vis, cfg.Seed, logger)
		if err != nil {
			return nil, err
		}
		visualizer = v
	}

	workers := cfg.Model.Workers
	if workers == 0 {
		workers = logging.Workers()
	}
	r := orchestrator.NewRunner(provider, id, visualizer, logger)
	r.Sampling = cfg.Sampling.Params(cfg.Seed)
	r.NewEvaluator = func() orchestrator.Evaluator {
		return pipeline.NewClassificationPipeline(cfg.Seed, logger,
			model.WithNEstimators(cfg.Model.NEstimators),
			model.WithForestMaxDepth(cfg.Model.MaxDepth),
			model.WithForestMinSamplesLeaf(cfg.Model.MinSamplesLeaf),
			model.WithForestMinImpurityDecrease(cfg.Model.MinImpurityDecrease),
			model.WithForestCriterion(cfg.Model.Criterion),
			model.WithWorkers(workers),
		)
	}
	r.TestSize = cfg.Model.TestSize
	r.Seed = cfg.Seed
	r.Out = out
	return r, nil
}

// runModes runs the pipeline once per mode, all runs fetching through the
// same provider. With more than one mode the images of each run go to a
// subdirectory named after the mode.
func runModes(cfg *config.Config, modes []sampling.Mode, provider data.Provider, id string, out io.Writer, logger *zap.Logger) error {
	for _, mode := range modes {
		vis := cfg.Visualize
		if len(modes) > 1 {
			vis.OutDir = filepath.Join(vis.OutDir, mode.String())
		}
		runner, err := newRunner(cfg, vis, provider, id, out, logger)
		if err != nil {
			return err
		}
		if _, err := runner.Run(mode); err != nil {
			if len(modes) > 1 {
				return errors.WithMessagef(err, "%s run", mode)
			}
			return err
		}
	}
	return nil
}
