// Package evaluation scores predicted labels against the held-out truth.
package evaluation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sjwhitworth/golearn/base"
	goleval "github.com/sjwhitworth/golearn/evaluation"

	"FakeNewsDetector/internal/domain"
)

// ClassScore holds precision, recall and F1 for one label.
type ClassScore struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is the full evaluation of one prediction run.
type Report struct {
	Accuracy  float64
	Classes   [domain.NumLabels]ClassScore
	Confusion [domain.NumLabels][domain.NumLabels]int
}

// Evaluate builds the confusion matrix (rows are true labels) and derived scores.
// Precision or recall with an empty denominator is reported as zero.
func Evaluate(truth, predicted []domain.Label) (Report, error) {
	if len(truth) != len(predicted) {
		return Report{}, fmt.Errorf("truth has %d labels, predictions %d", len(truth), len(predicted))
	}
	if len(truth) == 0 {
		return Report{}, fmt.Errorf("no labels to evaluate")
	}
	for i := range truth {
		if !inRange(truth[i]) || !inRange(predicted[i]) {
			return Report{}, fmt.Errorf("label out of range at row %d: truth %d, predicted %d", i, truth[i], predicted[i])
		}
	}

	ref, err := labelGrid(truth)
	if err != nil {
		return Report{}, fmt.Errorf("truth grid: %w", err)
	}
	gen, err := labelGrid(predicted)
	if err != nil {
		return Report{}, fmt.Errorf("prediction grid: %w", err)
	}
	cm, err := goleval.GetConfusionMatrix(ref, gen)
	if err != nil {
		return Report{}, fmt.Errorf("confusion matrix: %w", err)
	}

	var r Report
	for t := 0; t < domain.NumLabels; t++ {
		for p := 0; p < domain.NumLabels; p++ {
			r.Confusion[t][p] = cm[className(domain.Label(t))][className(domain.Label(p))]
		}
	}
	r.Accuracy = zeroIfNaN(goleval.GetAccuracy(cm))

	for c := 0; c < domain.NumLabels; c++ {
		class := className(domain.Label(c))
		score := ClassScore{
			Precision: zeroIfNaN(goleval.GetPrecision(class, cm)),
			Recall:    zeroIfNaN(goleval.GetRecall(class, cm)),
			F1:        zeroIfNaN(goleval.GetF1Score(class, cm)),
		}
		for p := 0; p < domain.NumLabels; p++ {
			score.Support += r.Confusion[c][p]
		}
		r.Classes[c] = score
	}
	return r, nil
}

// labelGrid holds labels as the single categorical class column of a grid.
func labelGrid(labels []domain.Label) (*base.DenseInstances, error) {
	attr := base.NewCategoricalAttribute()
	attr.SetName("label")
	for c := 0; c < domain.NumLabels; c++ {
		attr.GetSysValFromString(className(domain.Label(c)))
	}

	grid := base.NewDenseInstances()
	spec := grid.AddAttribute(attr)
	if err := grid.AddClassAttribute(attr); err != nil {
		return nil, err
	}
	if err := grid.Extend(len(labels)); err != nil {
		return nil, err
	}
	for i, l := range labels {
		grid.Set(spec, i, attr.GetSysValFromString(className(l)))
	}
	return grid, nil
}

func className(l domain.Label) string {
	return strconv.Itoa(int(l))
}

func inRange(l domain.Label) bool {
	return l >= 0 && int(l) < domain.NumLabels
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Metrics converts the report into the persisted record, rounded to four decimals.
func (r Report) Metrics() domain.Metrics {
	cm := make([][]int, domain.NumLabels)
	for i := range cm {
		cm[i] = append([]int(nil), r.Confusion[i][:]...)
	}
	fake, genuine := r.Classes[domain.Fake], r.Classes[domain.Real]
	return domain.Metrics{
		Accuracy:        Round4(r.Accuracy),
		PrecisionFake:   Round4(fake.Precision),
		RecallFake:      Round4(fake.Recall),
		F1Fake:          Round4(fake.F1),
		PrecisionTrue:   Round4(genuine.Precision),
		RecallTrue:      Round4(genuine.Recall),
		F1True:          Round4(genuine.F1),
		ConfusionMatrix: cm,
		TestSamples:     fake.Support + genuine.Support,
	}
}

// Text renders a per-class report in the usual tabular layout.
func (r Report) Text(names [domain.NumLabels]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	total := 0
	for c, s := range r.Classes {
		fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", names[c], s.Precision, s.Recall, s.F1, s.Support)
		total += s.Support
	}
	fmt.Fprintf(&b, "\n%12s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, total)
	return b.String()
}

// Round4 rounds half away from zero to four decimals.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
