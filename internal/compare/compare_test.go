package compare

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"FakeNewsDetector/internal/domain"
	"FakeNewsDetector/internal/infrastructure/storage"
	"FakeNewsDetector/internal/logging"
)

func TestCompareAccuracyImprovement(t *testing.T) {
	t.Parallel()

	a := Side{Experiment: "lr", Values: map[string]float64{"accuracy": 0.90}}
	b := Side{Experiment: "rf", Values: map[string]float64{"accuracy": 0.95}}

	res := Compare(a, b)
	if len(res.Rows) != 1 {
		t.Fatalf("expected a single row, got %d", len(res.Rows))
	}
	if got := res.Rows[0]; got.Marker() != "✓" {
		t.Fatalf("expected improvement marker, got %q", got.Marker())
	}
	if res.Verdict != VerdictB {
		t.Fatalf("expected second model to win, got %v", res.Verdict)
	}

	var out bytes.Buffer
	if err := res.Write(&out); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	report := out.String()
	for _, want := range []string{"+0.0500", "+5.00%", "rf performs better than lr", "Accuracy"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}

func TestCompareMarkersAndVerdicts(t *testing.T) {
	t.Parallel()

	a := Side{Experiment: "lr", Values: map[string]float64{"accuracy": 0.9, "f1_fake": 0.8, "recall_true": 0.7}}
	b := Side{Experiment: "rf", Values: map[string]float64{"accuracy": 0.9, "f1_fake": 0.6}}

	res := Compare(a, b)
	if len(res.Rows) != 2 {
		t.Fatalf("expected rows only for shared keys, got %+v", res.Rows)
	}
	if res.Rows[0].Metric != "accuracy" || res.Rows[0].Marker() != "=" {
		t.Fatalf("unexpected first row %+v", res.Rows[0])
	}
	if res.Rows[1].Metric != "f1_fake" || res.Rows[1].Marker() != "✗" {
		t.Fatalf("unexpected second row %+v", res.Rows[1])
	}
	if res.Verdict != VerdictTie {
		t.Fatalf("expected a tie, got %v", res.Verdict)
	}

	b.Values["accuracy"] = 0.5
	if Compare(a, b).Verdict != VerdictA {
		t.Fatalf("expected first model to win")
	}
}

func TestComparatorMissingMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Put(ctx, domain.ArtifactKey("rf", domain.ArtifactMetrics), domain.Metrics{
		ModelType:       "random_forest",
		Accuracy:        0.93,
		ConfusionMatrix: [][]int{{4, 1}, {0, 5}},
		TrainingSamples: 40,
		TestSamples:     10,
	}); err != nil {
		t.Fatalf("seed metrics: %v", err)
	}

	comparator := New(store, logging.Discard())
	var out bytes.Buffer
	res, err := comparator.Run(ctx, "lr", "rf", &out)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(res.A.Values) != 0 {
		t.Fatalf("expected empty metrics for missing experiment, got %v", res.A.Values)
	}
	if res.B.ModelType != "random_forest" || res.B.Values["accuracy"] != 0.93 {
		t.Fatalf("unexpected loaded side %+v", res.B)
	}
	if _, ok := res.B.Values["confusion_matrix"]; ok {
		t.Fatalf("non-scalar fields must be skipped")
	}
	if len(res.Rows) != 0 || res.Verdict != VerdictUnknown {
		t.Fatalf("expected no rows and no verdict, got %+v", res)
	}

	report := out.String()
	if !strings.Contains(report, "lr accuracy: N/A") || !strings.Contains(report, "Training samples: 40") {
		t.Fatalf("unexpected report:\n%s", report)
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	if got := displayName("precision_fake"); got != "Precision Fake" {
		t.Fatalf("unexpected display name %q", got)
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriteReportsWriterError(t *testing.T) {
	t.Parallel()

	res := Compare(
		Side{Experiment: "lr", Values: map[string]float64{"accuracy": 0.9}},
		Side{Experiment: "rf", Values: map[string]float64{"accuracy": 0.95}},
	)
	closed := errors.New("closed pipe")
	if err := res.Write(failingWriter{err: closed}); !errors.Is(err, closed) {
		t.Fatalf("expected writer error, got %v", err)
	}
}

func TestLoadToleratesNonStringModelType(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Put(ctx, domain.ArtifactKey("lr", domain.ArtifactMetrics), map[string]any{
		"model_type": 7,
		"accuracy":   0.8,
	}); err != nil {
		t.Fatalf("seed metrics: %v", err)
	}

	side := New(store, logging.Discard()).Load(ctx, "lr")
	if side.ModelType != "" {
		t.Fatalf("expected blank model type, got %q", side.ModelType)
	}
	if side.Values["accuracy"] != 0.8 || side.Values["model_type"] != 7 {
		t.Fatalf("unexpected values %v", side.Values)
	}
}
