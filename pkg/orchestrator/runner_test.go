package orchestrator

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covertype/pkg/data"
	"covertype/pkg/model"
	"covertype/pkg/pipeline"
	"covertype/pkg/sampling"
)

type fakeProvider struct {
	ds  *data.Dataset
	err error
	ids []string
}

func (p *fakeProvider) Fetch(id string) (*data.Dataset, error) {
	p.ids = append(p.ids, id)
	return p.ds, p.err
}

type fakeVisualizer struct {
	rows int
	err  error
}

func (v *fakeVisualizer) Visualize(ds *data.Dataset) ([]string, error) {
	v.rows = ds.Len()
	if v.err != nil {
		return nil, v.err
	}
	return []string{"tsne.png", "umap.png"}, nil
}

type fixedEvaluator struct {
	metrics *model.Metrics
	err     error
	train   int
}

func (e *fixedEvaluator) FitEvaluate(XTrain [][]float64, yTrain []int, XTest [][]float64, yTest []int) (*model.Metrics, error) {
	e.train = len(XTrain)
	return e.metrics, e.err
}

// imbalanced has 90 rows of class 2 around (10, 10) and 10 rows of class 1 around (0, 0).
func imbalanced() *data.Dataset {
	rnd := rand.New(rand.NewSource(1))
	ds := &data.Dataset{Name: "toy", FeatureNames: []string{"a", "b"}}
	for i := 0; i < 100; i++ {
		label, center := 2, 10.0
		if i%10 == 0 {
			label, center = 1, 0
		}
		ds.X = append(ds.X, []float64{center + rnd.Float64(), center + rnd.Float64()})
		ds.Y = append(ds.Y, label)
	}
	return ds
}

func newTestRunner(p data.Provider, v Visualizer, e Evaluator, out *bytes.Buffer) *Runner {
	r := NewRunner(p, "31", v, nil)
	r.Out = out
	if e != nil {
		r.NewEvaluator = func() Evaluator { return e }
	}
	return r
}

func TestRunReport(t *testing.T) {
	var out bytes.Buffer
	metrics := &model.Metrics{Accuracy: 0.9512, F1: 0.949, Labels: []int{1, 2}, Confusion: [][]int{{10, 2}, {0, 88}}, MAE: 0.02}
	eval := &fixedEvaluator{metrics: metrics}
	vis := &fakeVisualizer{}
	prov := &fakeProvider{ds: imbalanced()}

	r := newTestRunner(prov, vis, eval, &out)
	got, err := r.Run(sampling.None)
	require.NoError(t, err)
	assert.Same(t, metrics, got)

	assert.Equal(t, "Covertype dataset results:\n\n"+
		"Accuracy: 0.95\n"+
		"F1 Score: 0.95\n"+
		"Confusion Matrix:\n [[10  2]\n [ 0 88]]\n"+
		"Mean Absolute Error: 0.02\n", out.String())
	assert.Equal(t, []string{"31"}, prov.ids)
	assert.Equal(t, 100, vis.rows)
	assert.Equal(t, 80, eval.train)
	assert.Equal(t, []State{Idle, Fetching, Visualizing, Splitting, Training, Reporting, Done}, r.History())
}

func TestRunBalancesBeforeVisualizing(t *testing.T) {
	tcs := map[string]struct {
		mode sampling.Mode
		rows int
	}{
		"under": {mode: sampling.Under, rows: 20},
		"over":  {mode: sampling.Over, rows: 180},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			vis := &fakeVisualizer{}
			r := newTestRunner(&fakeProvider{ds: imbalanced()}, vis, nil, &out)
			r.NewEvaluator = func() Evaluator {
				return pipeline.NewClassificationPipeline(42, nil, model.WithNEstimators(10))
			}

			m, err := r.Run(tc.mode)
			require.NoError(t, err)
			assert.Equal(t, tc.rows, vis.rows)
			assert.Equal(t, 1.0, m.Accuracy)
			assert.Equal(t, []State{Idle, Fetching, Balancing, Visualizing, Splitting, Training, Reporting, Done}, r.History())

			report := out.String()
			assert.Contains(t, report, "Original dataset shape {2: 90, 1: 10}\n")
			assert.Contains(t, report, "Resampled dataset shape")
			assert.Regexp(t, `(?s)Resampled dataset shape.*Covertype dataset results:`, report)
			assert.Contains(t, report, "Accuracy: 1.00\n")
		})
	}
}

func TestRunWithoutVisualizer(t *testing.T) {
	var out bytes.Buffer
	eval := &fixedEvaluator{metrics: &model.Metrics{Confusion: [][]int{{1}}}}
	r := newTestRunner(&fakeProvider{ds: imbalanced()}, nil, eval, &out)

	_, err := r.Run(sampling.None)
	require.NoError(t, err)
	assert.NotContains(t, r.History(), Visualizing)
}

func TestRunFailures(t *testing.T) {
	misaligned := imbalanced()
	misaligned.Y = misaligned.Y[:50]

	tcs := map[string]struct {
		provider *fakeProvider
		vis      *fakeVisualizer
		eval     *fixedEvaluator
		mode     sampling.Mode
		state    State
		kind     error
	}{
		"fetch": {
			provider: &fakeProvider{err: errors.Wrap(data.ErrRetrieval, "status 404")},
			state:    Fetching, kind: data.ErrRetrieval,
		},
		"misaligned dataset": {
			provider: &fakeProvider{ds: misaligned},
			state:    Fetching, kind: data.ErrShapeMismatch,
		},
		"balance": {
			provider: &fakeProvider{ds: &data.Dataset{X: [][]float64{{1}, {2}, {3}}, Y: []int{1, 1, 2}}},
			mode:     sampling.Over,
			state:    Balancing, kind: sampling.ErrInsufficientSamples,
		},
		"visualize": {
			provider: &fakeProvider{ds: imbalanced()},
			vis:      &fakeVisualizer{err: errors.New("no space left")},
			state:    Visualizing,
		},
		"train": {
			provider: &fakeProvider{ds: imbalanced()},
			eval:     &fixedEvaluator{err: errors.Wrap(pipeline.ErrShapeMismatch, "ragged")},
			state:    Training, kind: pipeline.ErrShapeMismatch,
		},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			vis := tc.vis
			if vis == nil {
				vis = &fakeVisualizer{}
			}
			eval := tc.eval
			if eval == nil {
				eval = &fixedEvaluator{metrics: &model.Metrics{}}
			}
			r := newTestRunner(tc.provider, vis, eval, &out)

			m, err := r.Run(tc.mode)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.Contains(t, err.Error(), string(tc.state)+":")
			if tc.kind != nil {
				assert.True(t, errors.Is(err, tc.kind), err.Error())
			}
			assert.NotContains(t, out.String(), "dataset results")
			history := r.History()
			assert.Equal(t, tc.state, history[len(history)-1])
		})
	}
}

func TestRunNeedsProvider(t *testing.T) {
	_, err := NewRunner(nil, "31", nil, nil).Run(sampling.None)
	assert.Error(t, err)
}
