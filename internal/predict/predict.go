// Package predict classifies unseen text with a persisted model and vectorizer.
package predict

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"FakeNewsDetector/internal/domain"
	"FakeNewsDetector/internal/features"
	"FakeNewsDetector/internal/models"
	"FakeNewsDetector/internal/ports"
)

// DemoHeadlines are classified when batch prediction is given no input.
var DemoHeadlines = []string{
	"Scientists discover new planet that could support life",
	"ALIENS LAND IN NEW YORK! GOVERNMENT COVER UP!",
	"President signs new education bill into law",
	"SHOCKING: Drinking coffee makes you live forever!",
}

const maxLineBytes = 1 << 20

// Prediction is the outcome for one input text.
type Prediction struct {
	Text       string
	Label      domain.Label
	LabelName  string
	Confidence float64
}

// Verdict is the headline shown to users.
func (p Prediction) Verdict() string {
	if p.Label == domain.Fake {
		return "FAKE NEWS"
	}
	return "REAL NEWS"
}

func (p Prediction) String() string {
	return fmt.Sprintf("%s (%.1f%% confident)", p.Verdict(), p.Confidence*100)
}

// Predictor holds a model and the vectorizer it was trained against.
type Predictor struct {
	model      models.Model
	vectorizer *features.Vectorizer
	names      [domain.NumLabels]string
	logger     *slog.Logger
}

// NewPredictor pairs model and vectorizer, rejecting a vocabulary of the wrong width.
func NewPredictor(model models.Model, vectorizer *features.Vectorizer, names [domain.NumLabels]string, logger *slog.Logger) (*Predictor, error) {
	if model.NumFeatures() != vectorizer.VocabularySize() {
		return nil, fmt.Errorf("%w: vectorizer has %d terms, model expects %d",
			models.ErrVocabularyMismatch, vectorizer.VocabularySize(), model.NumFeatures())
	}
	return &Predictor{model: model, vectorizer: vectorizer, names: names, logger: logger}, nil
}

// Load reads the experiment's model and vectorizer once.
func Load(ctx context.Context, store ports.ArtifactStore, registry *models.Registry, experiment string, names [domain.NumLabels]string, logger *slog.Logger) (*Predictor, error) {
	var env models.Envelope
	if err := store.Get(ctx, domain.ArtifactKey(experiment, domain.ArtifactModel), &env); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	model, err := registry.Unwrap(env)
	if err != nil {
		return nil, err
	}

	vectorizer := &features.Vectorizer{}
	if err := store.Get(ctx, domain.ArtifactKey(experiment, domain.ArtifactVectorizer), vectorizer); err != nil {
		return nil, fmt.Errorf("load vectorizer: %w", err)
	}

	settings := vectorizer.Config()
	logger = logger.With("experiment", experiment)
	logger.Info("predictor loaded",
		"model", model.Kind(),
		"features", model.NumFeatures(),
		"ngram_range", []int{settings.NGramMin, settings.NGramMax},
		"stop_words", settings.Language)
	return NewPredictor(model, vectorizer, names, logger)
}

// Predict classifies one text; confidence is the probability of the chosen label.
func (p *Predictor) Predict(text string) (Prediction, error) {
	row, err := p.vectorizer.TransformOne(text)
	if err != nil {
		return Prediction{}, err
	}
	label, confidence := models.Predict(p.model, row)
	return Prediction{
		Text:       text,
		Label:      label,
		LabelName:  p.names[label],
		Confidence: confidence,
	}, nil
}

// Batch classifies texts, or the demo headlines when texts is empty, and writes a numbered report.
func (p *Predictor) Batch(texts []string, w io.Writer) ([]Prediction, error) {
	if len(texts) == 0 {
		texts = DemoHeadlines
	}

	out := make([]Prediction, 0, len(texts))
	for i, text := range texts {
		pred, err := p.Predict(text)
		if err != nil {
			return out, err
		}
		out = append(out, pred)
		fmt.Fprintf(w, "\n%d. %s\n   -> %s\n", i+1, preview(text, 60), pred)
	}
	return out, nil
}

// PredictURL downloads an article and classifies its title and body.
func (p *Predictor) PredictURL(ctx context.Context, fetcher ports.ArticleFetcher, url string) (Prediction, error) {
	article, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return Prediction{}, fmt.Errorf("fetch article: %w", err)
	}
	p.logger.Debug("article fetched", "url", url, "title", article.Title, "body_len", len(article.Body))
	return p.Predict(article.Content())
}

// Interactive reads one text per line from r until EOF or "quit".
func (p *Predictor) Interactive(ctx context.Context, r io.Reader, w io.Writer) error {
	fmt.Fprintln(w, "FAKE NEWS DETECTOR - INTERACTIVE MODE")
	fmt.Fprintln(w, "Type 'quit' to exit")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(w, "\nEnter a news headline or article: ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}

		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), "quit") {
			return nil
		}
		if strings.TrimSpace(line) == "" {
			fmt.Fprintln(w, "Please enter some text!")
			continue
		}

		pred, err := p.Predict(line)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, pred)
	}
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
