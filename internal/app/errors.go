package app

import (
	"errors"
	"fmt"

	"FakeNewsDetector/internal/usecase"
)

// ExitCode maps an error to the process exit status: 0 on success, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// Describe renders err for the user, naming the failing stage and error kind when known.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var se *usecase.StageError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s error in %s stage: %v", se.Kind, se.Stage, se.Err)
	}
	return fmt.Sprintf("error: %v", err)
}
