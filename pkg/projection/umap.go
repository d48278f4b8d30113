package projection

import (
	"github.com/nozzle/umap"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"covertype/pkg/core"
)

// UMAP embeds rows with uniform manifold approximation and projection.
// The embedding is non-parametric: it covers the fitted rows only and there
// is no Transform for unseen rows.
type UMAP struct {
	NNeighbors int
	MinDist    float64
	Spread     float64
	Epochs     int
	Metric     string
	Seed       int64
	Logger     *zap.Logger
}

// NewUMAP returns a UMAP with 15 neighbors, min_dist 0.1 and 200 epochs.
func NewUMAP(logger *zap.Logger) *UMAP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UMAP{
		NNeighbors: 15,
		MinDist:    0.1,
		Spread:     1.0,
		Epochs:     200,
		Metric:     "euclidean",
		Seed:       42,
		Logger:     logger,
	}
}

// Project embeds X. Rows must outnumber NNeighbors.
func (u *UMAP) Project(X [][]float64) (*core.Matrix, error) {
	d, err := checkInput(X)
	if err != nil {
		return nil, err
	}
	if u.NNeighbors < 2 {
		return nil, errors.Wrapf(ErrInvalidParameter, "umap: n_neighbors %d must be at least 2", u.NNeighbors)
	}
	if len(X) <= u.NNeighbors {
		return nil, errors.Wrapf(ErrInsufficientSamples, "umap: %d rows for %d neighbors", len(X), u.NNeighbors)
	}
	if u.Epochs <= 0 || u.MinDist < 0 || u.Spread <= 0 || u.MinDist > u.Spread {
		return nil, errors.Wrapf(ErrInvalidParameter, "umap: epochs %d, min_dist %g, spread %g", u.Epochs, u.MinDist, u.Spread)
	}

	logger := u.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := umap.DefaultConfig()
	cfg.NNeighbors = u.NNeighbors
	cfg.NComponents = 2
	cfg.MinDist = float32(u.MinDist)
	cfg.Spread = float32(u.Spread)
	cfg.NEpochs = u.Epochs
	cfg.Seed = u.Seed
	if u.Metric != "" {
		cfg.Metric = u.Metric
	}
	cfg.ProgressCallback = func(epoch, total int) {
		if epoch%50 == 0 || epoch == total {
			logger.Debug("umap progress", zap.Int("epoch", epoch), zap.Int("epochs", total))
		}
	}

	data := make([][]float32, len(X))
	for i, row := range X {
		r := make([]float32, d)
		for j, v := range row {
			r[j] = float32(v)
		}
		data[i] = r
	}

	embedding := umap.New(cfg).FitTransform(data)
	if len(embedding) != len(X) {
		return nil, errors.Errorf("umap: embedding has %d rows, want %d", len(embedding), len(X))
	}
	rows := make([][]float64, len(embedding))
	for i, row := range embedding {
		rows[i] = make([]float64, len(row))
		for j, v := range row {
			rows[i][j] = float64(v)
		}
	}
	m, err := core.FromSlice(rows)
	if err != nil {
		return nil, errors.Wrap(err, "umap")
	}
	if m.C != 2 {
		return nil, errors.Errorf("umap: embedding has %d columns, want 2", m.C)
	}
	return m, nil
}
