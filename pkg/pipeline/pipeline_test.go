package pipeline

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covertype/pkg/model"
)

// separable builds three classes that every feature separates, each feature
// on a very different scale.
func separable(n int, seed int64) ([][]float64, []int) {
	rnd := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		label := i % 3
		X[i] = []float64{
			float64(label)*1000 + rnd.Float64()*100,
			float64(label)*0.01 + rnd.Float64()*0.001,
			float64(label)*1e5 + rnd.Float64()*1e4,
		}
		y[i] = label + 1
	}
	return X, y
}

func TestFitEvaluateSeparable(t *testing.T) {
	XTrain, yTrain := separable(150, 1)
	XTest, yTest := separable(60, 2)

	p := NewClassificationPipeline(42, nil, model.WithNEstimators(20))
	m, err := p.FitEvaluate(XTrain, yTrain, XTest, yTest)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Accuracy)
	assert.Equal(t, 1.0, m.F1)
	assert.Equal(t, 0.0, m.MAE)
	assert.Equal(t, []int{1, 2, 3}, m.Labels)
	assert.Equal(t, [][]int{{20, 0, 0}, {0, 20, 0}, {0, 0, 20}}, m.Confusion)
	assert.Equal(t, 3, p.Schema().Width)
}

func TestFitEvaluateIsReproducible(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	X := make([][]float64, 200)
	y := make([]int, 200)
	for i := range X {
		X[i] = []float64{rnd.Float64(), rnd.Float64()}
		if X[i][0]+rnd.NormFloat64()*0.3 > 0.5 {
			y[i] = 1
		}
	}

	a, err := NewClassificationPipeline(7, nil, model.WithNEstimators(10)).FitEvaluate(X[:150], y[:150], X[150:], y[150:])
	require.NoError(t, err)
	b, err := NewClassificationPipeline(7, nil, model.WithNEstimators(10)).FitEvaluate(X[:150], y[:150], X[150:], y[150:])
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFitEvaluateShapeErrors(t *testing.T) {
	X, y := separable(12, 4)
	tcs := map[string]struct {
		XTrain [][]float64
		yTrain []int
		XTest  [][]float64
		yTest  []int
	}{
		"empty train":         {XTrain: nil, yTrain: nil, XTest: X, yTest: y},
		"empty test":          {XTrain: X, yTrain: y, XTest: nil, yTest: nil},
		"train labels":        {XTrain: X, yTrain: y[:5], XTest: X, yTest: y},
		"test labels":         {XTrain: X, yTrain: y, XTest: X, yTest: y[:3]},
		"ragged train":        {XTrain: [][]float64{{1, 2, 3}, {1, 2}}, yTrain: []int{1, 2}, XTest: X, yTest: y},
		"feature count":       {XTrain: X, yTrain: y, XTest: [][]float64{{1, 2}}, yTest: []int{1}},
		"ragged test":         {XTrain: X, yTrain: y, XTest: [][]float64{{1, 2, 3}, {1}}, yTest: []int{1, 2}},
		"rows with no values": {XTrain: [][]float64{{}, {}}, yTrain: []int{1, 2}, XTest: X, yTest: y},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			p := NewClassificationPipeline(1, nil, model.WithNEstimators(3))
			_, err := p.FitEvaluate(tc.XTrain, tc.yTrain, tc.XTest, tc.yTest)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShapeMismatch), err.Error())
		})
	}
}

func TestPredictBeforeFit(t *testing.T) {
	_, err := NewClassificationPipeline(1, nil).Predict([][]float64{{1}})
	assert.Error(t, err)
}

func TestInferSchema(t *testing.T) {
	s, err := InferSchema([][]float64{{1, 2}, {3, 4}}, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, &Schema{FeatureNames: []string{"a", "b"}, Width: 2}, s)
	assert.NoError(t, s.Check([][]float64{{0, 0}}))
	assert.True(t, errors.Is(s.Check([][]float64{{0}}), ErrShapeMismatch))

	_, err = InferSchema([][]float64{{1, 2}}, []string{"a"})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}
