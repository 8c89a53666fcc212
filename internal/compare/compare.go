// Package compare contrasts the persisted metrics of two experiments.
package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"FakeNewsDetector/internal/domain"
	"FakeNewsDetector/internal/ports"
)

// Keys lists the metrics compared, in report order.
var Keys = []string{
	"accuracy",
	"precision_fake",
	"recall_fake",
	"f1_fake",
	"precision_true",
	"recall_true",
	"f1_true",
}

// Verdict names the better side of a comparison.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictA
	VerdictB
	VerdictTie
)

// Side is one experiment's metrics as loaded from the store. Absent keys stay absent.
type Side struct {
	Experiment string
	ModelType  string
	Values     map[string]float64
}

// Label is the column heading for the side.
func (s Side) Label() string {
	if s.ModelType == "" {
		return s.Experiment
	}
	return fmt.Sprintf("%s (%s)", s.Experiment, s.ModelType)
}

// Row is one metric present on both sides.
type Row struct {
	Metric string
	A      float64
	B      float64
	Diff   float64
}

// Marker is ✓ when B improves on A, ✗ when it is worse and = otherwise.
func (r Row) Marker() string {
	switch {
	case r.Diff > 0:
		return "✓"
	case r.Diff < 0:
		return "✗"
	default:
		return "="
	}
}

// Result is a finished comparison.
type Result struct {
	A       Side
	B       Side
	Rows    []Row
	Verdict Verdict
}

// Compare builds rows for every key present in both sides and decides the verdict on accuracy.
func Compare(a, b Side) Result {
	res := Result{A: a, B: b}
	for _, key := range Keys {
		av, okA := a.Values[key]
		bv, okB := b.Values[key]
		if !okA || !okB {
			continue
		}
		res.Rows = append(res.Rows, Row{Metric: key, A: av, B: bv, Diff: bv - av})
	}

	av, okA := a.Values["accuracy"]
	bv, okB := b.Values["accuracy"]
	switch {
	case !okA || !okB:
		res.Verdict = VerdictUnknown
	case bv > av:
		res.Verdict = VerdictB
	case bv < av:
		res.Verdict = VerdictA
	default:
		res.Verdict = VerdictTie
	}
	return res
}

// Write renders the comparison table followed by the summary.
func (r Result) Write(w io.Writer) error {
	var b bytes.Buffer
	rule := strings.Repeat("=", 70)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "PERFORMANCE COMPARISON")
	fmt.Fprintln(&b, rule)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Metric\t%s\t%s\tDifference\tImprovement\n", r.A.Label(), r.B.Label())
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%+.4f\t%s\n", displayName(row.Metric), row.A, row.B, row.Diff, row.Marker())
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write comparison table: %w", err)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "EXPERIMENT SUMMARY")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "%s accuracy: %s\n", r.A.Experiment, formatValue(r.A.Values, "accuracy"))
	fmt.Fprintf(&b, "%s accuracy: %s\n", r.B.Experiment, formatValue(r.B.Values, "accuracy"))

	if r.Verdict != VerdictUnknown {
		diff := r.B.Values["accuracy"] - r.A.Values["accuracy"]
		fmt.Fprintf(&b, "Accuracy improvement: %+.4f (%+.2f%%)\n", diff, diff*100)
	}
	fmt.Fprintf(&b, "Conclusion: %s\n", r.Conclusion())

	samples := r.B
	if _, ok := samples.Values["training_samples"]; !ok {
		samples = r.A
	}
	fmt.Fprintf(&b, "\nTraining samples: %s\n", formatCount(samples.Values, "training_samples"))
	fmt.Fprintf(&b, "Test samples:     %s\n", formatCount(samples.Values, "test_samples"))
	fmt.Fprintln(&b, rule)

	if _, err := w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("write comparison: %w", err)
	}
	return nil
}

// Conclusion states the verdict in words.
func (r Result) Conclusion() string {
	switch r.Verdict {
	case VerdictB:
		return fmt.Sprintf("%s performs better than %s", r.B.Label(), r.A.Label())
	case VerdictA:
		return fmt.Sprintf("%s performs better than %s", r.A.Label(), r.B.Label())
	case VerdictTie:
		return "both models perform equally"
	default:
		return "accuracy missing, no verdict"
	}
}

// Comparator loads metrics records from the artifact store.
type Comparator struct {
	store  ports.ArtifactStore
	logger *slog.Logger
}

// New creates a comparator over store.
func New(store ports.ArtifactStore, logger *slog.Logger) *Comparator {
	return &Comparator{store: store, logger: logger.With("stage", "compare")}
}

// Run loads both experiments' metrics, compares them and writes the report to w.
func (c *Comparator) Run(ctx context.Context, experimentA, experimentB string, w io.Writer) (Result, error) {
	res := Compare(c.Load(ctx, experimentA), c.Load(ctx, experimentB))
	if err := res.Write(w); err != nil {
		return res, err
	}
	return res, nil
}

// Load reads one experiment's metrics. A missing or unreadable record yields an empty side.
func (c *Comparator) Load(ctx context.Context, experiment string) Side {
	side := Side{Experiment: experiment, Values: map[string]float64{}}

	var raw map[string]json.RawMessage
	if err := c.store.Get(ctx, domain.ArtifactKey(experiment, domain.ArtifactMetrics), &raw); err != nil {
		c.logger.Warn("metrics unavailable, comparing against an empty set",
			"experiment", experiment, "error", err)
		return side
	}

	side.Values = decodeValues(raw)
	if modelType, ok := raw["model_type"]; ok {
		if err := json.Unmarshal(modelType, &side.ModelType); err != nil {
			c.logger.Debug("model_type is not a string, leaving it blank", "experiment", experiment, "error", err)
		}
	}
	c.logger.Info("metrics loaded", "experiment", experiment, "metrics", len(side.Values))
	return side
}

// decodeValues keeps the numeric top-level fields of a metrics document.
func decodeValues(raw map[string]json.RawMessage) map[string]float64 {
	values := make(map[string]float64, len(raw))
	for key, msg := range raw {
		if string(msg) == "null" {
			continue
		}
		var v float64
		if err := json.Unmarshal(msg, &v); err == nil {
			values[key] = v
		}
	}
	return values
}

func displayName(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

func formatValue(values map[string]float64, key string) string {
	v, ok := values[key]
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.4f", v)
}

func formatCount(values map[string]float64, key string) string {
	v, ok := values[key]
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%d", int(v))
}
