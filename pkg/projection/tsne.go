package projection

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"covertype/pkg/core"
	"covertype/pkg/model"
)

const (
	earlyExaggeration = 12.0
	exaggerationIters = 250
	initialMomentum   = 0.5
	finalMomentum     = 0.8
	minGain           = 0.01
	minGradNorm       = 1e-7
	initScale         = 1e-4
	perplexityTol     = 1e-5
	perplexitySteps   = 100
	klEvery           = 50

	machineEpsilon = 0x1p-52
)

// TSNE is exact t-distributed stochastic neighbor embedding into two
// dimensions. Memory and time are quadratic in the number of rows.
type TSNE struct {
	Perplexity float64
	// LearningRate of gradient descent. 0 => max(n/12/4, 50).
	LearningRate float64
	MaxIter      int
	Seed         int64
	Logger       *zap.Logger
}

// NewTSNE returns a TSNE with perplexity 30, automatic learning rate and
// 1000 iterations.
func NewTSNE(logger *zap.Logger) *TSNE {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TSNE{Perplexity: 30, MaxIter: 1000, Seed: 42, Logger: logger}
}

// Project embeds X. The same Seed and X always give the same embedding.
func (t *TSNE) Project(X [][]float64) (*core.Matrix, error) {
	d, err := checkInput(X)
	if err != nil {
		return nil, err
	}
	n := len(X)
	if n < 2 {
		return nil, errors.Wrap(ErrInsufficientSamples, "tsne: need at least 2 rows")
	}
	if t.Perplexity <= 0 || t.Perplexity >= float64(n) {
		return nil, errors.Wrapf(ErrInvalidParameter, "tsne: perplexity %g must be in (0, %d)", t.Perplexity, n)
	}
	if t.MaxIter <= 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "tsne: max iterations %d", t.MaxIter)
	}
	if t.LearningRate < 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "tsne: learning rate %g", t.LearningRate)
	}
	lr := t.LearningRate
	if lr == 0 {
		lr = math.Max(float64(n)/earlyExaggeration/4, 50)
	}

	P := jointProbabilities(X, t.Perplexity)
	Y, err := t.initialize(X, d)
	if err != nil {
		return nil, err
	}
	t.optimize(P, Y, n, lr)
	return &core.Matrix{R: n, C: 2, Data: Y}, nil
}

// jointProbabilities returns the symmetric n x n affinity matrix (row-major)
// whose off-diagonal entries sum to 1.
func jointProbabilities(X [][]float64, perplexity float64) []float64 {
	n := len(X)
	P := make([]float64, n*n)
	target := math.Log(perplexity)
	model.ParallelRows(n, func(i int) {
		dist := make([]float64, n)
		for j := range X {
			if j != i {
				d := floats.Distance(X[i], X[j], 2)
				dist[j] = d * d
			}
		}
		conditionalRow(dist, i, target, P[i*n:(i+1)*n])
	})

	sum := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := P[i*n+j] + P[j*n+i]
			P[i*n+j], P[j*n+i] = v, v
			sum += 2 * v
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				P[i*n+j] = 0
				continue
			}
			P[i*n+j] = math.Max(P[i*n+j]/sum, machineEpsilon)
		}
	}
	return P
}

// conditionalRow fills row with p(j|i) for a Gaussian centered on row i whose
// precision is binary searched until the entropy matches target (nats).
func conditionalRow(dist []float64, i int, target float64, row []float64) {
	beta, lo, hi := 1.0, math.Inf(-1), math.Inf(1)
	for step := 0; step < perplexitySteps; step++ {
		sumP := 0.0
		for j, d := range dist {
			if j == i {
				row[j] = 0
				continue
			}
			row[j] = math.Exp(-d * beta)
			sumP += row[j]
		}
		if sumP == 0 {
			sumP = 1e-8
		}
		sumDP := 0.0
		for j := range row {
			row[j] /= sumP
			sumDP += dist[j] * row[j]
		}

		diff := math.Log(sumP) + beta*sumDP - target
		if math.Abs(diff) <= perplexityTol {
			return
		}
		if diff > 0 {
			lo = beta
			if math.IsInf(hi, 1) {
				beta *= 2
			} else {
				beta = (beta + hi) / 2
			}
		} else {
			hi = beta
			if math.IsInf(lo, -1) {
				beta /= 2
			} else {
				beta = (beta + lo) / 2
			}
		}
	}
}

// initialize places the rows on their first two principal components, scaled
// so the first coordinate has standard deviation 1e-4. Inputs with a single
// feature or no spread fall back to a seeded Gaussian start.
func (t *TSNE) initialize(X [][]float64, d int) ([]float64, error) {
	n := len(X)
	Y := make([]float64, 2*n)
	if d >= 2 {
		pca := model.NewPCA(2, 100, t.Seed)
		if err := pca.Fit(X); err != nil {
			return nil, errors.Wrap(err, "tsne: pca initialization")
		}
		Z, err := pca.Transform(X)
		if err != nil {
			return nil, errors.Wrap(err, "tsne: pca initialization")
		}
		first := make([]float64, n)
		for i, z := range Z {
			Y[2*i], Y[2*i+1] = z[0], z[1]
			first[i] = z[0]
		}
		if sd := stat.PopStdDev(first, nil); sd > 0 {
			floats.Scale(initScale/sd, Y)
			return Y, nil
		}
	}

	rnd := rand.New(rand.NewSource(t.Seed))
	for k := range Y {
		Y[k] = rnd.NormFloat64() * initScale
	}
	return Y, nil
}

// optimize runs gradient descent with momentum and per-parameter gains. The
// first iterations exaggerate P so clusters form before they spread out.
func (t *TSNE) optimize(P, Y []float64, n int, lr float64) {
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	grad := make([]float64, 2*n)
	update := make([]float64, 2*n)
	gains := make([]float64, 2*n)
	rowSum := make([]float64, n)
	rowKL := make([]float64, n)

	exploring := min(exaggerationIters, t.MaxIter)
	for iter := 0; iter < t.MaxIter; iter++ {
		exag, momentum := 1.0, finalMomentum
		if iter < exploring {
			exag, momentum = earlyExaggeration, initialMomentum
		}
		if iter == 0 || iter == exploring {
			for k := range gains {
				gains[k], update[k] = 1, 0
			}
		}

		withKL := (iter+1)%klEvery == 0 || iter == t.MaxIter-1
		kl := gradient(P, Y, n, exag, grad, rowSum, rowKL, withKL)
		for k := range grad {
			if update[k]*grad[k] < 0 {
				gains[k] += 0.2
			} else {
				gains[k] *= 0.8
			}
			gains[k] = math.Max(gains[k], minGain)
			update[k] = momentum*update[k] - lr*gains[k]*grad[k]
			Y[k] += update[k]
		}

		if withKL {
			logger.Debug("tsne progress", zap.Int("iteration", iter+1), zap.Float64("kl_divergence", kl))
		}
		if iter >= exploring && floats.Norm(grad, 2) < minGradNorm {
			logger.Debug("tsne converged", zap.Int("iteration", iter+1))
			return
		}
	}
}

// gradient writes dKL/dY into grad and returns KL(P||Q) when withKL is set.
func gradient(P, Y []float64, n int, exag float64, grad, rowSum, rowKL []float64, withKL bool) float64 {
	model.ParallelRows(n, func(i int) {
		s := 0.0
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			d0, d1 := Y[2*i]-Y[2*j], Y[2*i+1]-Y[2*j+1]
			s += 1 / (1 + d0*d0 + d1*d1)
		}
		rowSum[i] = s
	})
	z := math.Max(floats.Sum(rowSum), machineEpsilon)

	model.ParallelRows(n, func(i int) {
		var g0, g1, kl float64
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			d0, d1 := Y[2*i]-Y[2*j], Y[2*i+1]-Y[2*j+1]
			num := 1 / (1 + d0*d0 + d1*d1)
			q := math.Max(num/z, machineEpsilon)
			p := P[i*n+j]
			mult := (exag*p - q) * num
			g0 += mult * d0
			g1 += mult * d1
			if withKL {
				kl += p * math.Log(p/q)
			}
		}
		grad[2*i], grad[2*i+1] = 4*g0, 4*g1
		rowKL[i] = kl
	})
	if !withKL {
		return 0
	}
	return floats.Sum(rowKL)
}
