package models

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"FakeNewsDetector/internal/domain"
	"FakeNewsDetector/internal/features"
)

// separable builds rows where column 0 marks fake and column 1 marks real; column 2 is noise.
func separable(t *testing.T, perClass int) (*features.Matrix, []domain.Label) {
	t.Helper()
	m := features.NewMatrix(3)
	var y []domain.Label
	for i := 0; i < perClass; i++ {
		noise := 0.1 + float64(i%3)*0.1
		if err := m.AppendRow(features.Row{Indices: []int{0, 2}, Values: []float64{0.9, noise}}); err != nil {
			t.Fatalf("append fake row: %v", err)
		}
		y = append(y, domain.Fake)
		if err := m.AppendRow(features.Row{Indices: []int{1, 2}, Values: []float64{0.8, noise}}); err != nil {
			t.Fatalf("append real row: %v", err)
		}
		y = append(y, domain.Real)
	}
	return m, y
}

func TestResolveUnsupportedModel(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry().Resolve("svm", Options{})
	if !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
}

func TestResolveUnknownSolver(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry().Resolve(LogisticRegressionName, Options{Solver: "saga"})
	if !errors.Is(err, ErrUnknownSolver) {
		t.Fatalf("expected ErrUnknownSolver, got %v", err)
	}
}

func TestLogisticRegressionSeparatesClasses(t *testing.T) {
	t.Parallel()

	x, y := separable(t, 10)
	for _, solver := range []string{"lbfgs", "liblinear", "bfgs", "cg"} {
		strategy, err := NewRegistry().Resolve(LogisticRegressionName, Options{Solver: solver, MaxIter: 200})
		if err != nil {
			t.Fatalf("%s: resolve: %v", solver, err)
		}
		model, err := strategy.Fit(context.Background(), x, y)
		if err != nil {
			t.Fatalf("%s: fit: %v", solver, err)
		}
		pred, err := PredictAll(model, x)
		if err != nil {
			t.Fatalf("%s: predict: %v", solver, err)
		}
		if !reflect.DeepEqual(pred, y) {
			t.Fatalf("%s: unexpected predictions %v", solver, pred)
		}
		label, confidence := Predict(model, x.Row(1))
		if label != domain.Real || confidence <= 0.5 || confidence >= 1 {
			t.Fatalf("%s: unexpected prediction %d with confidence %v", solver, label, confidence)
		}
	}
}

func TestLogisticRegressionIsDeterministic(t *testing.T) {
	t.Parallel()

	x, y := separable(t, 6)
	strategy, err := NewLogisticRegression(Options{Solver: "lbfgs", MaxIter: 50})
	if err != nil {
		t.Fatalf("NewLogisticRegression: %v", err)
	}
	a, err := strategy.Fit(context.Background(), x, y)
	if err != nil {
		t.Fatalf("first fit: %v", err)
	}
	b, err := strategy.Fit(context.Background(), x, y)
	if err != nil {
		t.Fatalf("second fit: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("fits differ for identical input")
	}
}

func TestRandomForestSeparatesClasses(t *testing.T) {
	t.Parallel()

	x, y := separable(t, 10)
	strategy, err := NewRegistry().Resolve(RandomForestName, Options{NEstimators: 15, Seed: 42, NJobs: 2, MaxFeatures: "all"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	model, err := strategy.Fit(context.Background(), x, y)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	pred, err := PredictAll(model, x)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !reflect.DeepEqual(pred, y) {
		t.Fatalf("unexpected predictions %v", pred)
	}
}

func TestRandomForestIndependentOfJobs(t *testing.T) {
	t.Parallel()

	x, y := separable(t, 8)
	fit := func(jobs int) Model {
		strategy, err := NewRandomForest(Options{NEstimators: 9, Seed: 7, NJobs: jobs, MaxFeatures: "all"})
		if err != nil {
			t.Fatalf("NewRandomForest: %v", err)
		}
		m, err := strategy.Fit(context.Background(), x, y)
		if err != nil {
			t.Fatalf("fit with %d jobs: %v", jobs, err)
		}
		return m
	}
	if !reflect.DeepEqual(fit(1), fit(-1)) {
		t.Fatalf("forest depends on n_jobs")
	}
}

func TestRandomForestRespectsMaxDepth(t *testing.T) {
	t.Parallel()

	x, y := separable(t, 8)
	strategy, err := NewRandomForest(Options{NEstimators: 3, Seed: 1, MaxDepth: 1, MaxFeatures: "all"})
	if err != nil {
		t.Fatalf("NewRandomForest: %v", err)
	}
	m, err := strategy.Fit(context.Background(), x, y)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	for i, tree := range m.(*ForestModel).Trees {
		if len(tree.Nodes) > 3 {
			t.Fatalf("tree %d deeper than one split: %d nodes", i, len(tree.Nodes))
		}
	}
}

func TestRandomForestRejectsBadOptions(t *testing.T) {
	t.Parallel()

	cases := []Options{
		{MinSamplesSplit: 1},
		{MinSamplesLeaf: -1},
		{MaxDepth: -3},
		{MaxFeatures: "half"},
	}
	for _, opts := range cases {
		if _, err := NewRandomForest(opts); !errors.Is(err, ErrInvalidOptions) {
			t.Fatalf("expected ErrInvalidOptions for %+v, got %v", opts, err)
		}
	}
}

func TestFitHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	x, y := separable(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	forest, _ := NewRandomForest(Options{NEstimators: 5})
	if _, err := forest.Fit(ctx, x, y); !errors.Is(err, context.Canceled) {
		t.Fatalf("forest: expected context.Canceled, got %v", err)
	}
	linear, _ := NewLogisticRegression(Options{})
	if _, err := linear.Fit(ctx, x, y); !errors.Is(err, context.Canceled) {
		t.Fatalf("logistic: expected context.Canceled, got %v", err)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	t.Parallel()

	x, y := separable(t, 6)
	reg := NewRegistry()
	for _, name := range []string{LogisticRegressionName, RandomForestName} {
		strategy, err := reg.Resolve(name, Options{NEstimators: 4, Seed: 3})
		if err != nil {
			t.Fatalf("%s: resolve: %v", name, err)
		}
		model, err := strategy.Fit(context.Background(), x, y)
		if err != nil {
			t.Fatalf("%s: fit: %v", name, err)
		}
		env, err := Wrap(model)
		if err != nil {
			t.Fatalf("%s: wrap: %v", name, err)
		}
		raw, err := json.Marshal(env)
		if err != nil {
			t.Fatalf("%s: marshal: %v", name, err)
		}
		var decoded Envelope
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		restored, err := reg.Unwrap(decoded)
		if err != nil {
			t.Fatalf("%s: unwrap: %v", name, err)
		}
		for i := 0; i < x.NumRows; i++ {
			if model.PredictProba(x.Row(i)) != restored.PredictProba(x.Row(i)) {
				t.Fatalf("%s: row %d probabilities differ after round trip", name, i)
			}
		}
	}
}

func TestPredictAllRejectsWidthMismatch(t *testing.T) {
	t.Parallel()

	model := &LogisticModel{Weights: []float64{1, 2}}
	_, err := PredictAll(model, features.NewMatrix(5))
	if !errors.Is(err, ErrVocabularyMismatch) {
		t.Fatalf("expected ErrVocabularyMismatch, got %v", err)
	}
}
