package models

import (
	"math/rand"
	"sort"

	"FakeNewsDetector/internal/domain"
)

const impurityEpsilon = 1e-12

// grower holds the per-tree scratch state; one grower is never shared between goroutines.
type grower struct {
	forest  *RandomForest
	columns [][]entry
	labels  []domain.Label
	cols    int
	mtry    int
	rng     *rand.Rand

	weights []float64
	stamp   []int
	right   []bool
	perm    []int
	nextID  int
	nodes   []TreeNode
	scratch []entry
}

func newGrower(f *RandomForest, columns [][]entry, labels []domain.Label, cols, mtry int, seed int64) *grower {
	n := len(labels)
	perm := make([]int, cols)
	for i := range perm {
		perm[i] = i
	}
	return &grower{
		forest:  f,
		columns: columns,
		labels:  labels,
		cols:    cols,
		mtry:    mtry,
		rng:     rand.New(rand.NewSource(seed)),
		weights: make([]float64, n),
		stamp:   make([]int, n),
		right:   make([]bool, n),
		perm:    perm,
	}
}

func (g *grower) grow() Tree {
	n := len(g.labels)
	for i := 0; i < n; i++ {
		g.weights[g.rng.Intn(n)]++
	}
	samples := make([]int, 0, n)
	for i, w := range g.weights {
		if w > 0 {
			samples = append(samples, i)
		}
	}
	g.build(samples, 0)
	return Tree{Nodes: g.nodes}
}

type split struct {
	feature   int
	threshold float64
	score     float64
}

func (g *grower) build(samples []int, depth int) int {
	var counts [domain.NumLabels]float64
	for _, s := range samples {
		counts[g.labels[s]] += g.weights[s]
	}
	total := counts[0] + counts[1]

	id := len(g.nodes)
	g.nodes = append(g.nodes, TreeNode{Feature: -1, Proba: [domain.NumLabels]float64{counts[0] / total, counts[1] / total}})

	f := g.forest
	if (f.maxDepth > 0 && depth >= f.maxDepth) ||
		len(samples) < f.minSamplesSplit ||
		len(samples) < 2*f.minSamplesLeaf ||
		counts[0] == 0 || counts[1] == 0 {
		return id
	}

	best, ok := g.bestSplit(samples, counts, total)
	if !ok {
		return id
	}

	for _, e := range g.gather(best.feature, samples) {
		if e.value > best.threshold {
			g.right[e.row] = true
		}
	}
	var left, right []int
	for _, s := range samples {
		if g.right[s] {
			right = append(right, s)
			g.right[s] = false
		} else {
			left = append(left, s)
		}
	}

	l := g.build(left, depth+1)
	r := g.build(right, depth+1)
	g.nodes[id].Feature = best.feature
	g.nodes[id].Threshold = best.threshold
	g.nodes[id].Left = l
	g.nodes[id].Right = r
	return id
}

// gather collects the non-zero values of feature j for the rows in samples.
func (g *grower) gather(j int, samples []int) []entry {
	g.nextID++
	for _, s := range samples {
		g.stamp[s] = g.nextID
	}
	out := g.scratch[:0]
	for _, e := range g.columns[j] {
		if g.stamp[e.row] == g.nextID {
			out = append(out, e)
		}
	}
	g.scratch = out
	return out
}

// bestSplit visits features in random order until mtry non-constant ones were evaluated.
func (g *grower) bestSplit(samples []int, counts [domain.NumLabels]float64, total float64) (split, bool) {
	parent := total - (counts[0]*counts[0]+counts[1]*counts[1])/total
	best := split{feature: -1, score: parent - impurityEpsilon}

	visited := 0
	for k := 0; k < g.cols && visited < g.mtry; k++ {
		swap := k + g.rng.Intn(g.cols-k)
		g.perm[k], g.perm[swap] = g.perm[swap], g.perm[k]
		j := g.perm[k]

		nz := g.gather(j, samples)
		if len(nz) == 0 {
			continue
		}
		sort.Slice(nz, func(a, b int) bool {
			if nz[a].value != nz[b].value {
				return nz[a].value < nz[b].value
			}
			return nz[a].row < nz[b].row
		})
		zeros := len(samples) - len(nz)
		if zeros == 0 && nz[0].value == nz[len(nz)-1].value {
			continue
		}
		visited++

		if s, ok := g.scan(j, nz, zeros, counts, total); ok && s.score < best.score {
			best = s
		}
	}
	return best, best.feature >= 0
}

// scan sweeps thresholds over the sorted non-zero values; implicit zeros always fall left.
func (g *grower) scan(j int, nz []entry, zeros int, counts [domain.NumLabels]float64, total float64) (split, bool) {
	var left [domain.NumLabels]float64
	for _, e := range nz {
		left[g.labels[e.row]] += g.weights[e.row]
	}
	// left currently holds the non-zero side; flip it to the zero side.
	for l := range left {
		left[l] = counts[l] - left[l]
	}
	leftN := zeros
	minLeaf := g.forest.minSamplesLeaf

	best := split{feature: -1}
	consider := func(threshold float64) {
		rightN := zeros + len(nz) - leftN
		if leftN < minLeaf || rightN < minLeaf {
			return
		}
		lw := left[0] + left[1]
		rw := total - lw
		if lw <= 0 || rw <= 0 {
			return
		}
		r0, r1 := counts[0]-left[0], counts[1]-left[1]
		score := lw - (left[0]*left[0]+left[1]*left[1])/lw + rw - (r0*r0+r1*r1)/rw
		if best.feature < 0 || score < best.score {
			best = split{feature: j, threshold: threshold, score: score}
		}
	}

	if zeros > 0 {
		consider(nz[0].value / 2)
	}
	for i, e := range nz {
		left[g.labels[e.row]] += g.weights[e.row]
		leftN++
		if i+1 < len(nz) && nz[i+1].value > e.value {
			consider(e.value + (nz[i+1].value-e.value)/2)
		}
	}
	return best, best.feature >= 0
}
