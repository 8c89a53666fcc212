package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"FakeNewsDetector/internal/domain"
	"FakeNewsDetector/internal/features"
)

// LogisticRegressionName is the configured model name of the linear classifier.
const LogisticRegressionName = "logistic_regression"

// ErrUnknownSolver is returned for a solver name with no optimiser behind it.
var ErrUnknownSolver = errors.New("unknown solver")

var solvers = map[string]func() optimize.Method{
	"lbfgs":            func() optimize.Method { return &optimize.LBFGS{} },
	"liblinear":        func() optimize.Method { return &optimize.LBFGS{} },
	"bfgs":             func() optimize.Method { return &optimize.BFGS{} },
	"cg":               func() optimize.Method { return &optimize.CG{} },
	"newton-cg":        func() optimize.Method { return &optimize.CG{} },
	"gradient_descent": func() optimize.Method { return &optimize.GradientDescent{} },
}

// LogisticRegression fits an L2-regularised binary logistic model.
type LogisticRegression struct {
	solver  string
	maxIter int
	c       float64
}

// NewLogisticRegression validates solver, iteration cap and regularisation strength.
func NewLogisticRegression(opts Options) (Strategy, error) {
	if opts.Solver == "" {
		opts.Solver = "lbfgs"
	}
	if _, ok := solvers[opts.Solver]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSolver, opts.Solver)
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 100
	}
	if opts.C == 0 {
		opts.C = 1
	}
	if opts.C < 0 {
		return nil, fmt.Errorf("%w: regularisation strength C must be positive, got %v", ErrInvalidOptions, opts.C)
	}
	return &LogisticRegression{solver: opts.Solver, maxIter: opts.MaxIter, c: opts.C}, nil
}

// Name implements Strategy.
func (l *LogisticRegression) Name() string {
	return LogisticRegressionName
}

// Parameters implements Strategy.
func (l *LogisticRegression) Parameters() map[string]any {
	return map[string]any{
		"solver":   l.solver,
		"max_iter": l.maxIter,
		"C":        l.c,
	}
}

// Fit minimises the penalised log-loss starting from zero weights.
func (l *LogisticRegression) Fit(ctx context.Context, x *features.Matrix, y []domain.Label) (Model, error) {
	rows, cols := x.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("feature rows %d do not match %d labels", rows, len(y))
	}
	if rows == 0 {
		return nil, fmt.Errorf("no training rows")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := make([]float64, rows)
	for i, label := range y {
		target[i] = float64(label)
	}

	penalty := 1 / l.c
	margins := make([]float64, rows)
	score := func(params []float64) {
		w, b := params[:cols], params[cols]
		for i := 0; i < rows; i++ {
			margins[i] = x.Row(i).Dot(w) + b
		}
	}

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			score(params)
			var loss float64
			for i, z := range margins {
				loss += softplus(z) - target[i]*z
			}
			w := params[:cols]
			return loss + 0.5*penalty*floats.Dot(w, w)
		},
		Grad: func(grad, params []float64) {
			score(params)
			for j := range grad {
				grad[j] = 0
			}
			for i, z := range margins {
				residual := sigmoid(z) - target[i]
				row := x.Row(i)
				for k, idx := range row.Indices {
					grad[idx] += residual * row.Values[k]
				}
				grad[cols] += residual
			}
			floats.AddScaled(grad[:cols], penalty, params[:cols])
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   l.maxIter,
		GradientThreshold: 1e-5,
	}
	result, err := optimize.Minimize(problem, make([]float64, cols+1), settings, solvers[l.solver]())
	if result == nil {
		return nil, fmt.Errorf("optimise with %s: %w", l.solver, err)
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("optimise with %s: diverged (%v)", l.solver, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := &LogisticModel{
		Weights: append([]float64(nil), result.X[:cols]...),
		Bias:    result.X[cols],
	}
	return model, nil
}

// LogisticModel is a fitted weight vector plus intercept.
type LogisticModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Kind implements Model.
func (m *LogisticModel) Kind() string {
	return LogisticRegressionName
}

// NumFeatures implements Model.
func (m *LogisticModel) NumFeatures() int {
	return len(m.Weights)
}

// PredictProba implements Model.
func (m *LogisticModel) PredictProba(row features.Row) [domain.NumLabels]float64 {
	p := sigmoid(row.Dot(m.Weights) + m.Bias)
	return [domain.NumLabels]float64{1 - p, p}
}

func decodeLogistic(payload json.RawMessage) (Model, error) {
	var m LogisticModel
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1+e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
