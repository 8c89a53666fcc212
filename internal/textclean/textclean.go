// Package textclean normalises raw article text before vectorisation.
package textclean

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// DefaultLanguage is used when no stopword language is configured.
const DefaultLanguage = "english"

// ErrUnknownLanguage is returned for a stopword language without a bundled list.
var ErrUnknownLanguage = errors.New("unknown stopword language")

var (
	// Wire-service byline such as "WASHINGTON (Reuters) - ", with a hyphen or an en dash.
	bylineExpr   = regexp.MustCompile(`^[A-Z\s]+ \([A-Za-z\s]+\) - `)
	bylineEnDash = regexp.MustCompile(`^[A-Z\s]+\s\([A-Za-z\s]+\) – `)
	nonAlpha     = regexp.MustCompile(`[^a-zA-Z\s]`)
)

// Preprocessor cleans article text. It holds no mutable state and is safe for concurrent use.
type Preprocessor struct {
	language  string
	stopwords map[string]struct{}
}

// New builds a preprocessor for the given stopword language.
func New(language string) (*Preprocessor, error) {
	if language == "" {
		language = DefaultLanguage
	}
	words, ok := stopwordLists[strings.ToLower(language)]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %s)", ErrUnknownLanguage, language, strings.Join(Languages(), ", "))
	}

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return &Preprocessor{language: strings.ToLower(language), stopwords: set}, nil
}

// Language reports the configured stopword language.
func (p *Preprocessor) Language() string {
	return p.language
}

// asciiSpace folds Unicode whitespace, which the letter filter would otherwise delete, to a plain space.
func asciiSpace(r rune) rune {
	if r != ' ' && unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// Clean strips the byline, drops non-letters, lowercases and removes stopwords.
func (p *Preprocessor) Clean(text string) string {
	if text == "" {
		return text
	}

	text = strings.Map(asciiSpace, text)
	text = bylineExpr.ReplaceAllString(text, "")
	text = bylineEnDash.ReplaceAllString(text, "")
	text = nonAlpha.ReplaceAllString(text, "")
	text = strings.ToLower(text)

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if _, stop := p.stopwords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
