package projection

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"covertype/pkg/data"
	"covertype/pkg/loader"
)

// Projection pairs a method with the projector implementing it.
type Projection struct {
	Method    Method
	Projector Projector
}

// File is the image name written for the projection.
func (p Projection) File() string { return p.Method.String() + ".png" }

// Visualizer projects a dataset with each configured method and writes one
// scatter plot per method to OutDir.
type Visualizer struct {
	OutDir      string
	Projections []Projection
	// MaxSamples caps the rows that are projected (seeded, stratified). 0 => all rows.
	MaxSamples int
	Seed       int64
	Render     RenderOptions
	Display    Displayer
	Logger     *zap.Logger
}

// NewVisualizer returns a visualizer running t-SNE then UMAP with their
// default settings. Images are not displayed.
func NewVisualizer(outDir string, logger *zap.Logger) *Visualizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Visualizer{
		OutDir: outDir,
		Projections: []Projection{
			{Method: MethodTSNE, Projector: NewTSNE(logger)},
			{Method: MethodUMAP, Projector: NewUMAP(logger)},
		},
		MaxSamples: 2000,
		Seed:       42,
		Display:    NoDisplay{},
		Logger:     logger,
	}
}

// Visualize renders every projection of ds in order and returns the written
// paths. A projection or render failure stops the run; a display failure is
// only logged.
func (v *Visualizer) Visualize(ds *data.Dataset) ([]string, error) {
	if err := ds.Validate(); err != nil {
		return nil, errors.Wrap(err, "visualize")
	}
	logger := v.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	display := v.Display
	if display == nil {
		display = NoDisplay{}
	}

	sub := ds
	if idx := loader.Sample(ds.Y, v.MaxSamples, v.Seed); len(idx) < ds.Len() {
		sub = ds.Subset(idx)
		logger.Info("sampled rows for projection", zap.Int("rows", sub.Len()), zap.Int("of", ds.Len()))
	}
	opts := v.Render
	if opts.LabelName == nil {
		opts.LabelName = ds.LabelName
	}

	paths := make([]string, 0, len(v.Projections))
	for _, p := range v.Projections {
		start := time.Now()
		emb, err := p.Projector.Project(sub.X)
		if err != nil {
			return paths, errors.Wrapf(err, "visualize: %s", p.Method)
		}
		path := filepath.Join(v.OutDir, p.File())
		if err := Render(emb, sub.Y, p.Method.Title(), path, opts); err != nil {
			return paths, errors.Wrapf(err, "visualize: %s", p.Method)
		}
		logger.Info("projection saved",
			zap.Stringer("method", p.Method),
			zap.String("path", path),
			zap.Duration("took", time.Since(start)))
		paths = append(paths, path)

		if err := display.Show(path); err != nil {
			logger.Warn("cannot display projection", zap.String("path", path), zap.Error(err))
		}
	}
	return paths, nil
}
