package models

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"FakeNewsDetector/internal/domain"
	"FakeNewsDetector/internal/features"
)

// RandomForestName is the configured model name of the tree ensemble.
const RandomForestName = "random_forest"

// RandomForest grows bootstrap-sampled Gini trees in parallel.
type RandomForest struct {
	nEstimators     int
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string
	nJobs           int
	seed            int64
}

// NewRandomForest applies defaults and validates tree hyperparameters.
func NewRandomForest(opts Options) (Strategy, error) {
	if opts.NEstimators == 0 {
		opts.NEstimators = 100
	}
	if opts.MinSamplesSplit == 0 {
		opts.MinSamplesSplit = 2
	}
	if opts.MinSamplesLeaf == 0 {
		opts.MinSamplesLeaf = 1
	}
	if opts.MaxFeatures == "" {
		opts.MaxFeatures = "sqrt"
	}
	switch {
	case opts.NEstimators < 0:
		return nil, fmt.Errorf("%w: n_estimators must be positive, got %d", ErrInvalidOptions, opts.NEstimators)
	case opts.MaxDepth < 0:
		return nil, fmt.Errorf("%w: max_depth must be positive or unset, got %d", ErrInvalidOptions, opts.MaxDepth)
	case opts.MinSamplesSplit < 2:
		return nil, fmt.Errorf("%w: min_samples_split must be at least 2, got %d", ErrInvalidOptions, opts.MinSamplesSplit)
	case opts.MinSamplesLeaf < 1:
		return nil, fmt.Errorf("%w: min_samples_leaf must be at least 1, got %d", ErrInvalidOptions, opts.MinSamplesLeaf)
	}
	if _, err := featureBudget(opts.MaxFeatures, 1); err != nil {
		return nil, err
	}
	return &RandomForest{
		nEstimators:     opts.NEstimators,
		maxDepth:        opts.MaxDepth,
		minSamplesSplit: opts.MinSamplesSplit,
		minSamplesLeaf:  opts.MinSamplesLeaf,
		maxFeatures:     opts.MaxFeatures,
		nJobs:           opts.NJobs,
		seed:            opts.Seed,
	}, nil
}

// Name implements Strategy.
func (f *RandomForest) Name() string {
	return RandomForestName
}

// Parameters implements Strategy.
func (f *RandomForest) Parameters() map[string]any {
	var depth any
	if f.maxDepth > 0 {
		depth = f.maxDepth
	}
	return map[string]any{
		"n_estimators":      f.nEstimators,
		"max_depth":         depth,
		"min_samples_split": f.minSamplesSplit,
		"min_samples_leaf":  f.minSamplesLeaf,
		"max_features":      f.maxFeatures,
		"random_state":      f.seed,
		"n_jobs":            f.nJobs,
	}
}

func (f *RandomForest) workers() int {
	switch {
	case f.nJobs < 0:
		return runtime.NumCPU()
	case f.nJobs == 0:
		return 1
	default:
		return f.nJobs
	}
}

// Fit grows every tree from its own pre-drawn seed, so results do not depend on n_jobs.
func (f *RandomForest) Fit(ctx context.Context, x *features.Matrix, y []domain.Label) (Model, error) {
	rows, cols := x.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("feature rows %d do not match %d labels", rows, len(y))
	}
	if rows == 0 {
		return nil, fmt.Errorf("no training rows")
	}
	mtry, err := featureBudget(f.maxFeatures, cols)
	if err != nil {
		return nil, err
	}

	columns := toColumns(x)
	master := rand.New(rand.NewSource(f.seed))
	seeds := make([]int64, f.nEstimators)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]Tree, f.nEstimators)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < f.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				g := newGrower(f, columns, y, cols, mtry, seeds[i])
				trees[i] = g.grow()
			}
		}()
	}

	var cancelled error
	for i := range trees {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	if cancelled != nil {
		return nil, cancelled
	}

	return &ForestModel{Features: cols, Trees: trees}, nil
}

func featureBudget(mode string, cols int) (int, error) {
	var n int
	switch mode {
	case "sqrt":
		n = int(math.Sqrt(float64(cols)))
	case "log2":
		n = int(math.Log2(float64(cols)))
	case "all":
		n = cols
	default:
		return 0, fmt.Errorf("%w: max_features must be sqrt, log2 or all, got %q", ErrInvalidOptions, mode)
	}
	if n < 1 {
		n = 1
	}
	return n, nil
}

type entry struct {
	row   int
	value float64
}

// toColumns indexes the non-zero values of x by column.
func toColumns(x *features.Matrix) [][]entry {
	rows, cols := x.Dims()
	columns := make([][]entry, cols)
	for i := 0; i < rows; i++ {
		r := x.Row(i)
		for k, j := range r.Indices {
			columns[j] = append(columns[j], entry{row: i, value: r.Values[k]})
		}
	}
	return columns
}

// ForestModel averages the leaf class distributions of its trees.
type ForestModel struct {
	Features int    `json:"num_features"`
	Trees    []Tree `json:"trees"`
}

// Tree is a flattened binary decision tree; node 0 is the root.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode is a split when Feature >= 0 and a leaf otherwise.
type TreeNode struct {
	Feature   int                       `json:"f"`
	Threshold float64                   `json:"t,omitempty"`
	Left      int                       `json:"l,omitempty"`
	Right     int                       `json:"r,omitempty"`
	Proba     [domain.NumLabels]float64 `json:"p"`
}

// Kind implements Model.
func (m *ForestModel) Kind() string {
	return RandomForestName
}

// NumFeatures implements Model.
func (m *ForestModel) NumFeatures() int {
	return m.Features
}

// PredictProba implements Model.
func (m *ForestModel) PredictProba(row features.Row) [domain.NumLabels]float64 {
	var out [domain.NumLabels]float64
	if len(m.Trees) == 0 {
		return out
	}
	for _, t := range m.Trees {
		p := t.leaf(row)
		for l := range out {
			out[l] += p[l]
		}
	}
	for l := range out {
		out[l] /= float64(len(m.Trees))
	}
	return out
}

func (t Tree) leaf(row features.Row) [domain.NumLabels]float64 {
	i := 0
	for t.Nodes[i].Feature >= 0 {
		n := t.Nodes[i]
		if row.At(n.Feature) <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Proba
}

func decodeForest(payload json.RawMessage) (Model, error) {
	var m ForestModel
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	for ti, t := range m.Trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Feature >= m.Features {
				return nil, fmt.Errorf("tree %d node %d splits on feature %d of %d", ti, ni, n.Feature, m.Features)
			}
			if n.Feature >= 0 && (n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes)) {
				return nil, fmt.Errorf("tree %d node %d has invalid children", ti, ni)
			}
		}
	}
	return &m, nil
}
