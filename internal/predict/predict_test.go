package predict

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"FakeNewsDetector/internal/domain"
	"FakeNewsDetector/internal/features"
	"FakeNewsDetector/internal/infrastructure/storage"
	"FakeNewsDetector/internal/logging"
	"FakeNewsDetector/internal/models"
)

var names = [domain.NumLabels]string{"Fake", "True"}

func trainedPair(t *testing.T) (models.Model, *features.Vectorizer) {
	t.Helper()

	texts := []string{
		"shocking aliens cover up exposed",
		"shocking miracle cure doctors hate",
		"aliens secretly control government shocking",
		"senate passes budget bill after debate",
		"president signs education bill into law",
		"senate committee reviews budget proposal",
	}
	labels := []domain.Label{domain.Fake, domain.Fake, domain.Fake, domain.Real, domain.Real, domain.Real}

	vec, err := features.NewVectorizer(features.Config{MaxFeatures: 100, NGramMin: 1, NGramMax: 1, Language: "english"})
	if err != nil {
		t.Fatalf("NewVectorizer: %v", err)
	}
	x, err := vec.FitTransform(texts)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	strategy, err := models.NewRegistry().Resolve(models.LogisticRegressionName, models.Options{C: 10})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	model, err := strategy.Fit(context.Background(), x, labels)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return model, vec
}

func newPredictor(t *testing.T) *Predictor {
	t.Helper()
	model, vec := trainedPair(t)
	p, err := NewPredictor(model, vec, names, logging.Discard())
	if err != nil {
		t.Fatalf("NewPredictor: %v", err)
	}
	return p
}

func TestPredict(t *testing.T) {
	t.Parallel()

	p := newPredictor(t)

	fake, err := p.Predict("SHOCKING: aliens cover up!")
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}
	if fake.Label != domain.Fake || fake.LabelName != "Fake" || fake.Verdict() != "FAKE NEWS" {
		t.Fatalf("unexpected prediction %+v", fake)
	}
	if fake.Confidence <= 0.5 || fake.Confidence > 1 {
		t.Fatalf("confidence must be the winning probability, got %v", fake.Confidence)
	}

	genuine, err := p.Predict("The senate passed the budget bill.")
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}
	if genuine.Label != domain.Real || genuine.LabelName != "True" {
		t.Fatalf("unexpected prediction %+v", genuine)
	}
	if !strings.Contains(genuine.String(), "REAL NEWS (") {
		t.Fatalf("unexpected rendering %q", genuine.String())
	}
}

func TestBatchUsesDemoHeadlines(t *testing.T) {
	t.Parallel()

	p := newPredictor(t)
	var out bytes.Buffer
	preds, err := p.Batch(nil, &out)
	if err != nil {
		t.Fatalf("Batch returned error: %v", err)
	}
	if len(preds) != len(DemoHeadlines) {
		t.Fatalf("expected %d predictions, got %d", len(DemoHeadlines), len(preds))
	}
	if !strings.Contains(out.String(), "4. SHOCKING: Drinking coffee") {
		t.Fatalf("unexpected batch output:\n%s", out.String())
	}
}

func TestInteractive(t *testing.T) {
	t.Parallel()

	p := newPredictor(t)
	input := "aliens cover up\n\n   \nsenate budget bill\nQuit\nnever read\n"
	var out bytes.Buffer
	if err := p.Interactive(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("Interactive returned error: %v", err)
	}

	text := out.String()
	if strings.Count(text, "Please enter some text!") != 2 {
		t.Fatalf("expected two empty-line hints:\n%s", text)
	}
	if !strings.Contains(text, "FAKE NEWS (") || !strings.Contains(text, "REAL NEWS (") {
		t.Fatalf("expected both verdicts:\n%s", text)
	}
	if strings.Count(text, "Enter a news headline") != 5 {
		t.Fatalf("expected loop to stop at quit:\n%s", text)
	}
}

func TestInteractiveEOF(t *testing.T) {
	t.Parallel()

	p := newPredictor(t)
	var out bytes.Buffer
	if err := p.Interactive(context.Background(), strings.NewReader("aliens"), &out); err != nil {
		t.Fatalf("Interactive returned error at EOF: %v", err)
	}
}

type stubFetcher struct {
	article domain.NewsRecord
	err     error
}

func (s stubFetcher) Fetch(context.Context, string) (domain.NewsRecord, error) {
	return s.article, s.err
}

func TestPredictURL(t *testing.T) {
	t.Parallel()

	p := newPredictor(t)
	pred, err := p.PredictURL(context.Background(), stubFetcher{article: domain.NewsRecord{
		Title: "Senate passes budget",
		Body:  "The bill was signed into law by the president.",
	}}, "https://example.test/a")
	if err != nil {
		t.Fatalf("PredictURL returned error: %v", err)
	}
	if pred.Label != domain.Real {
		t.Fatalf("expected real news, got %+v", pred)
	}

	boom := errors.New("boom")
	if _, err := p.PredictURL(context.Background(), stubFetcher{err: boom}, "x"); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestLoadFromStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	model, vec := trainedPair(t)
	env, err := models.Wrap(model)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	store := storage.NewMemoryStore()
	if err := store.Put(ctx, domain.ArtifactKey("lr", domain.ArtifactModel), env); err != nil {
		t.Fatalf("put model: %v", err)
	}
	if err := store.Put(ctx, domain.ArtifactKey("lr", domain.ArtifactVectorizer), vec); err != nil {
		t.Fatalf("put vectorizer: %v", err)
	}

	p, err := Load(ctx, store, models.NewRegistry(), "lr", names, logging.Discard())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	direct, err := NewPredictor(model, vec, names, logging.Discard())
	if err != nil {
		t.Fatalf("NewPredictor: %v", err)
	}

	text := "aliens signed the budget"
	got, err := p.Predict(text)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want, err := direct.Predict(text)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != want {
		t.Fatalf("loaded predictor disagrees: %+v vs %+v", got, want)
	}

	if _, err := Load(ctx, store, models.NewRegistry(), "rf", names, logging.Discard()); err == nil {
		t.Fatalf("expected error for missing experiment")
	}
}

func TestNewPredictorWidthMismatch(t *testing.T) {
	t.Parallel()

	model, _ := trainedPair(t)
	other, err := features.NewVectorizer(features.Config{NGramMin: 1, NGramMax: 1})
	if err != nil {
		t.Fatalf("NewVectorizer: %v", err)
	}
	if _, err := other.FitTransform([]string{"single document"}); err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if _, err := NewPredictor(model, other, names, logging.Discard()); !errors.Is(err, models.ErrVocabularyMismatch) {
		t.Fatalf("expected ErrVocabularyMismatch, got %v", err)
	}
}
