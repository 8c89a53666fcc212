// Package features turns cleaned article text into TF-IDF weighted sparse rows.
package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-nlp/tfidf"

	"FakeNewsDetector/internal/textclean"
)

// ErrEmptyVocabulary is returned when fitting yields no terms.
var ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain only stopwords or no letters")

// ErrNotFitted is returned when Transform runs before Fit.
var ErrNotFitted = errors.New("vectorizer is not fitted")

// Config holds the vectorizer settings.
type Config struct {
	MaxFeatures int
	NGramMin    int
	NGramMax    int
	Language    string
}

// Vectorizer learns a frozen vocabulary and IDF weights from training text.
type Vectorizer struct {
	cfg   Config
	prep  *textclean.Preprocessor
	vocab map[string]int
	idf   []float64
}

// termDoc adapts a list of term ids to tfidf.Document.
type termDoc []int

func (d termDoc) IDs() []int { return []int(d) }

// NewVectorizer validates the configuration and builds the text preprocessor.
func NewVectorizer(cfg Config) (*Vectorizer, error) {
	if cfg.NGramMin <= 0 {
		cfg.NGramMin = 1
	}
	if cfg.NGramMax < cfg.NGramMin {
		return nil, fmt.Errorf("invalid ngram range [%d,%d]", cfg.NGramMin, cfg.NGramMax)
	}
	prep, err := textclean.New(cfg.Language)
	if err != nil {
		return nil, err
	}
	cfg.Language = prep.Language()
	return &Vectorizer{cfg: cfg, prep: prep}, nil
}

// Config returns the settings the vectorizer was built with.
func (v *Vectorizer) Config() Config {
	return v.cfg
}

// VocabularySize is the number of output columns.
func (v *Vectorizer) VocabularySize() int {
	return len(v.idf)
}

// Terms returns the vocabulary in column order.
func (v *Vectorizer) Terms() []string {
	terms := make([]string, len(v.idf))
	for term, col := range v.vocab {
		terms[col] = term
	}
	return terms
}

// FitTransform learns the vocabulary from docs and returns their feature matrix.
func (v *Vectorizer) FitTransform(docs []string) (*Matrix, error) {
	analyzed := make([][]string, len(docs))
	for i, doc := range docs {
		analyzed[i] = v.analyze(doc)
	}

	ids := map[string]int{}
	var terms []string
	df := tfidf.New()
	for _, grams := range analyzed {
		seen := map[int]struct{}{}
		doc := make(termDoc, 0, len(grams))
		for _, g := range grams {
			id, ok := ids[g]
			if !ok {
				id = len(terms)
				ids[g] = id
				terms = append(terms, g)
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			doc = append(doc, id)
		}
		df.Add(doc)
	}

	if len(terms) == 0 {
		return nil, ErrEmptyVocabulary
	}

	order := make([]int, len(terms))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		fa, fb := df.TF[order[a]], df.TF[order[b]]
		if fa != fb {
			return fa > fb
		}
		return terms[order[a]] < terms[order[b]]
	})
	if v.cfg.MaxFeatures > 0 && len(order) > v.cfg.MaxFeatures {
		order = order[:v.cfg.MaxFeatures]
	}

	selected := make([]string, len(order))
	for i, id := range order {
		selected[i] = terms[id]
	}
	sort.Strings(selected)

	n := float64(len(docs))
	v.vocab = make(map[string]int, len(selected))
	v.idf = make([]float64, len(selected))
	// Smoothed IDF; tfidf.CalculateIDF is unsmoothed, so df only supplies document frequencies.
	for col, term := range selected {
		v.vocab[term] = col
		v.idf[col] = math.Log((1+n)/(1+df.TF[ids[term]])) + 1
	}

	m := NewMatrix(len(v.idf))
	for i, grams := range analyzed {
		if err := m.AppendRow(v.weigh(grams)); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return m, nil
}

// Transform projects docs onto the fitted vocabulary without extending it.
func (v *Vectorizer) Transform(docs []string) (*Matrix, error) {
	if v.idf == nil {
		return nil, ErrNotFitted
	}
	m := NewMatrix(len(v.idf))
	for i, doc := range docs {
		if err := m.AppendRow(v.weigh(v.analyze(doc))); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return m, nil
}

// TransformOne vectorises a single document.
func (v *Vectorizer) TransformOne(doc string) (Row, error) {
	if v.idf == nil {
		return Row{}, ErrNotFitted
	}
	return v.weigh(v.analyze(doc)), nil
}

// analyze cleans the text and expands it into n-grams of tokens with two or more letters.
func (v *Vectorizer) analyze(doc string) []string {
	var tokens []string
	for _, tok := range strings.Fields(v.prep.Clean(doc)) {
		if len(tok) >= 2 {
			tokens = append(tokens, tok)
		}
	}

	var grams []string
	for n := v.cfg.NGramMin; n <= v.cfg.NGramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// weigh counts known terms, applies IDF and L2-normalises the row.
func (v *Vectorizer) weigh(grams []string) Row {
	counts := map[int]float64{}
	for _, g := range grams {
		if col, ok := v.vocab[g]; ok {
			counts[col]++
		}
	}

	row := Row{Indices: make([]int, 0, len(counts)), Values: make([]float64, 0, len(counts))}
	for col := range counts {
		row.Indices = append(row.Indices, col)
	}
	sort.Ints(row.Indices)
	for _, col := range row.Indices {
		row.Values = append(row.Values, counts[col]*v.idf[col])
	}

	if norm := row.Norm(); norm > 0 {
		for k := range row.Values {
			row.Values[k] /= norm
		}
	}
	return row
}

type vectorizerState struct {
	MaxFeatures int            `json:"max_features"`
	NGramRange  [2]int         `json:"ngram_range"`
	StopWords   string         `json:"stop_words"`
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
}

// MarshalJSON persists settings, vocabulary and IDF weights.
func (v *Vectorizer) MarshalJSON() ([]byte, error) {
	return json.Marshal(vectorizerState{
		MaxFeatures: v.cfg.MaxFeatures,
		NGramRange:  [2]int{v.cfg.NGramMin, v.cfg.NGramMax},
		StopWords:   v.cfg.Language,
		Vocabulary:  v.vocab,
		IDF:         v.idf,
	})
}

// UnmarshalJSON restores a fitted vectorizer and rebuilds its preprocessor.
func (v *Vectorizer) UnmarshalJSON(data []byte) error {
	var st vectorizerState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	if len(st.Vocabulary) != len(st.IDF) {
		return fmt.Errorf("vocabulary has %d terms but %d idf weights", len(st.Vocabulary), len(st.IDF))
	}
	for term, col := range st.Vocabulary {
		if col < 0 || col >= len(st.IDF) {
			return fmt.Errorf("term %q maps to column %d outside [0,%d)", term, col, len(st.IDF))
		}
	}

	restored, err := NewVectorizer(Config{
		MaxFeatures: st.MaxFeatures,
		NGramMin:    st.NGramRange[0],
		NGramMax:    st.NGramRange[1],
		Language:    st.StopWords,
	})
	if err != nil {
		return err
	}
	restored.vocab = st.Vocabulary
	restored.idf = st.IDF
	*v = *restored
	return nil
}
