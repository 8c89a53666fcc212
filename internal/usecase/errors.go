package usecase

import (
	"errors"
	"fmt"
	"io/fs"

	"FakeNewsDetector/internal/config"
	"FakeNewsDetector/internal/features"
	"FakeNewsDetector/internal/ingest"
	"FakeNewsDetector/internal/models"
	"FakeNewsDetector/internal/ports"
	"FakeNewsDetector/internal/textclean"
)

// Kind classifies a stage failure for the command-line translator.
type Kind int

const (
	KindInternal Kind = iota
	KindConfig
	KindArtifact
	KindUnsupportedModel
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindArtifact:
		return "artifact"
	case KindUnsupportedModel:
		return "unsupported model"
	case KindData:
		return "data"
	default:
		return "internal"
	}
}

// StageError reports which stage failed and why.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Fail wraps err as a StageError of the given stage, inferring its kind.
// An error that already carries a StageError is returned unchanged.
func Fail(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Kind: kindOf(err), Err: err}
}

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, models.ErrUnsupportedModel):
		return KindUnsupportedModel
	case errors.Is(err, ports.ErrArtifactNotFound):
		return KindArtifact
	case errors.Is(err, config.ErrUnknownExperiment),
		errors.Is(err, models.ErrUnknownSolver),
		errors.Is(err, models.ErrInvalidOptions),
		errors.Is(err, textclean.ErrUnknownLanguage):
		return KindConfig
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, ingest.ErrMissingColumn),
		errors.Is(err, ingest.ErrTooFewRows),
		errors.Is(err, features.ErrEmptyVocabulary),
		errors.Is(err, models.ErrVocabularyMismatch):
		return KindData
	default:
		return KindInternal
	}
}
