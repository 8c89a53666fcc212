// Package models holds the classifier strategies and their persisted form.
package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"FakeNewsDetector/internal/domain"
	"FakeNewsDetector/internal/features"
)

// ErrUnsupportedModel is returned when a configured model name has no strategy.
var ErrUnsupportedModel = errors.New("unsupported model")

// ErrVocabularyMismatch is returned when a model meets rows from a different column space.
var ErrVocabularyMismatch = errors.New("feature width does not match the model")

// ErrInvalidOptions is returned when a hyperparameter is out of range.
var ErrInvalidOptions = errors.New("invalid model options")

// Model is a fitted classifier bound to the column space it was trained on.
type Model interface {
	Kind() string
	NumFeatures() int
	PredictProba(row features.Row) [domain.NumLabels]float64
}

// Strategy fits one kind of model from configuration-supplied hyperparameters.
type Strategy interface {
	Name() string
	Fit(ctx context.Context, x *features.Matrix, y []domain.Label) (Model, error)
	Parameters() map[string]any
}

// Predict returns the most probable label; ties go to the lower label.
func Predict(m Model, row features.Row) (domain.Label, float64) {
	proba := m.PredictProba(row)
	best := domain.Fake
	for l := 1; l < domain.NumLabels; l++ {
		if proba[l] > proba[best] {
			best = domain.Label(l)
		}
	}
	return best, proba[best]
}

// PredictAll labels every row of x.
func PredictAll(m Model, x *features.Matrix) ([]domain.Label, error) {
	if _, cols := x.Dims(); cols != m.NumFeatures() {
		return nil, fmt.Errorf("%w: matrix has %d columns, model expects %d", ErrVocabularyMismatch, cols, m.NumFeatures())
	}
	rows, _ := x.Dims()
	out := make([]domain.Label, rows)
	for i := 0; i < rows; i++ {
		out[i], _ = Predict(m, x.Row(i))
	}
	return out, nil
}

// Options carries the hyperparameters of every strategy; each reads the fields it needs.
type Options struct {
	Solver          string
	MaxIter         int
	C               float64
	Seed            int64
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	NJobs           int
}

// Factory builds a strategy from its options.
type Factory func(opts Options) (Strategy, error)

type decoder func(payload json.RawMessage) (Model, error)

// Registry maps model names to strategy factories and payload decoders.
type Registry struct {
	factories map[string]Factory
	decoders  map[string]decoder
}

// NewRegistry returns a registry with the built-in strategies registered.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}, decoders: map[string]decoder{}}
	r.register(LogisticRegressionName, NewLogisticRegression, decodeLogistic)
	r.register(RandomForestName, NewRandomForest, decodeForest)
	return r
}

func (r *Registry) register(name string, f Factory, d decoder) {
	r.factories[name] = f
	r.decoders[name] = d
}

// Names lists registered model names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve builds the strategy for name or fails with ErrUnsupportedModel.
func (r *Registry) Resolve(name string, opts Options) (Strategy, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnsupportedModel, name, r.Names())
	}
	return factory(opts)
}

// Envelope is the persisted form of any fitted model. Parameters records the
// hyperparameters the model was fitted with.
type Envelope struct {
	Kind        string          `json:"kind"`
	NumFeatures int             `json:"num_features"`
	Parameters  map[string]any  `json:"parameters,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

// Wrap serialises a fitted model into an envelope.
func Wrap(m Model) (Envelope, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s model: %w", m.Kind(), err)
	}
	return Envelope{Kind: m.Kind(), NumFeatures: m.NumFeatures(), Payload: payload}, nil
}

// Unwrap restores a model from its envelope.
func (r *Registry) Unwrap(env Envelope) (Model, error) {
	decode, ok := r.decoders[env.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, env.Kind)
	}
	m, err := decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s model: %w", env.Kind, err)
	}
	if m.NumFeatures() != env.NumFeatures {
		return nil, fmt.Errorf("%w: envelope declares %d, payload has %d", ErrVocabularyMismatch, env.NumFeatures, m.NumFeatures())
	}
	return m, nil
}
