package main

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covertype/pkg/config"
	"covertype/pkg/data"
	"covertype/pkg/projection"
	"covertype/pkg/sampling"
)

// writeCSV writes two well separated classes, 45 rows of class 2 and 15 of class 1.
func writeCSV(t *testing.T, dir string) string {
	t.Helper()
	rnd := rand.New(rand.NewSource(1))
	var b strings.Builder
	b.WriteString("Elevation,Slope,Cover_Type\n")
	for i := 0; i < 60; i++ {
		label, base := 2, 3000.0
		if i%4 == 0 {
			label, base = 1, 2000
		}
		fmt.Fprintf(&b, "%.1f,%.1f,%d\n", base+rnd.Float64()*100, base/100+rnd.Float64(), label)
	}
	path := filepath.Join(dir, "covtype.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestParseArgs(t *testing.T) {
	var stderr bytes.Buffer
	cfg, modes, err := parseArgs([]string{"-csv", "x.csv", "-target", "y", "-no-show", "-max-samples", "0", "-log-level", "debug", "over"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, []sampling.Mode{sampling.Over}, modes)
	assert.Equal(t, "csv", cfg.Dataset.Source)
	assert.Equal(t, "x.csv", cfg.Dataset.Path)
	assert.Equal(t, "y", cfg.Dataset.Target)
	assert.False(t, cfg.Visualize.Show)
	assert.Equal(t, 0, cfg.Visualize.MaxSamples)
	assert.Equal(t, "debug", cfg.Log.Level)

	cfg, modes, err = parseArgs(nil, &stderr)
	require.NoError(t, err)
	assert.Equal(t, []sampling.Mode{sampling.None}, modes)
	assert.Equal(t, "31", cfg.Dataset.ID)
	assert.Equal(t, 2000, cfg.Visualize.MaxSamples)

	_, modes, err = parseArgs([]string{"under", "none", "over"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, []sampling.Mode{sampling.Under, sampling.None, sampling.Over}, modes)
}

func TestParseArgsErrors(t *testing.T) {
	tcs := map[string][]string{
		"unknown mode":   {"sideways"},
		"repeated mode":  {"under", "UNDER"},
		"unknown flag":   {"-bogus"},
		"csv no target":  {"-csv", "x.csv", "-target", ""},
		"bad log level":  {"-log-level", "loud"},
		"missing config": {"-config", "/nonexistent/config.yaml"},
	}
	for name, args := range tcs {
		t.Run(name, func(t *testing.T) {
			var stderr bytes.Buffer
			_, _, err := parseArgs(args, &stderr)
			assert.Error(t, err)
		})
	}
}

func TestNewProvider(t *testing.T) {
	cfg := config.Default().Dataset
	p, id, err := newProvider(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "31", id)
	assert.IsType(t, &data.CachedProvider{}, p)

	cfg.Source, cfg.Path, cfg.CacheSize = "csv", "a.csv", 0
	p, id, err = newProvider(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "a.csv", id)
	assert.IsType(t, &data.CSVProvider{}, p)
}

func TestNewVisualizerUsesConfig(t *testing.T) {
	cfg, _, err := parseArgs([]string{"-out", "plots", "-no-show"}, &bytes.Buffer{})
	require.NoError(t, err)
	cfg.Visualize.Perplexity = 12

	v, err := newVisualizer(cfg.Visualize, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, "plots", v.OutDir)
	assert.Equal(t, projection.NoDisplay{}, v.Display)
	tsne := v.Projections[0].Projector.(*projection.TSNE)
	assert.Equal(t, 12.0, tsne.Perplexity)
	assert.Equal(t, int64(7), tsne.Seed)
	umap := v.Projections[1].Projector.(*projection.UMAP)
	assert.Equal(t, 15, umap.NNeighbors)

	cfg.Visualize.Methods = []string{"umap"}
	v, err = newVisualizer(cfg.Visualize, 7, nil)
	require.NoError(t, err)
	require.Len(t, v.Projections, 1)
	assert.Equal(t, projection.MethodUMAP, v.Projections[0].Method)

	cfg.Visualize.Methods = []string{"isomap"}
	_, err = newVisualizer(cfg.Visualize, 7, nil)
	assert.Error(t, err)
}

// countingProvider counts the fetches that reach it.
type countingProvider struct {
	next  data.Provider
	calls int
}

func (p *countingProvider) Fetch(id string) (*data.Dataset, error) {
	p.calls++
	return p.next.Fetch(id)
}

func TestRunModesFetchOnceThroughCache(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeCSV(t, dir)
	cfg := config.Default()
	cfg.Visualize.Enabled = false
	cfg.Model.NEstimators = 5

	source := &countingProvider{next: data.NewCSVProvider(data.CSVOptions{Target: "Cover_Type"}, nil)}
	cached, err := data.NewCachedProvider(source, cfg.Dataset.CacheSize, nil)
	require.NoError(t, err)

	var stdout bytes.Buffer
	modes := []sampling.Mode{sampling.None, sampling.Under, sampling.Over}
	require.NoError(t, runModes(cfg, modes, cached, csvPath, &stdout, nil))
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 3, strings.Count(stdout.String(), "Covertype dataset results:"))
	assert.Contains(t, stdout.String(), "Resampled dataset shape {1: 15, 2: 15}\n")
	assert.Contains(t, stdout.String(), "Resampled dataset shape {1: 45, 2: 45}\n")
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeCSV(t, dir)
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
visualize:
  perplexity: 5
  max_iter: 300
  umap_neighbors: 5
  umap_epochs: 50
model:
  n_estimators: 10
log:
  level: error
`), 0o600))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", configPath, "-csv", csvPath, "-out", dir, "-no-show", "under"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Original dataset shape {2: 45, 1: 15}\n")
	assert.Contains(t, out, "Resampled dataset shape {1: 15, 2: 15}\n")
	assert.Contains(t, out, "Covertype dataset results:\n\nAccuracy: 1.00\nF1 Score: 1.00\n")
	assert.Contains(t, out, "Mean Absolute Error: 0.00\n")
	for _, name := range []string{"tsne.png", "umap.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunSeveralModesWritesOneDirectoryEach(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeCSV(t, dir)
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
visualize:
  methods: [umap]
  umap_neighbors: 5
  umap_epochs: 20
model:
  n_estimators: 5
log:
  level: error
`), 0o600))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", configPath, "-csv", csvPath, "-out", dir, "-no-show", "none", "under"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	for _, sub := range []string{"none", "under"} {
		_, err := os.Stat(filepath.Join(dir, sub, "umap.png"))
		assert.NoError(t, err, sub)
		_, err = os.Stat(filepath.Join(dir, sub, "tsne.png"))
		assert.True(t, os.IsNotExist(err), sub)
	}
}

func TestRunFailsWithExitCode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-csv", filepath.Join(t.TempDir(), "absent.csv"), "-target", "y", "-no-plots", "-log-level", "error"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "fetching")
	assert.Empty(t, stdout.String())
}
