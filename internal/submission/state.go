package submission

import (
	"errors"

	"testgen/internal/generator"
)

// Messages shown in the output region.
const (
	ValidationMessage = "Please provide either code or a file."
	FailurePrefix     = "Error generating test cases: "
)

// ErrNoInput is the validation failure: neither inline text nor a file.
var ErrNoInput = errors.New("no code or file provided")

// File is a picked source file.
type File = generator.File

// Input is the form content. It is never modified by a submission.
type Input struct {
	InlineText string
	File       *File
}

// Empty reports whether the input fails validation.
func (in Input) Empty() bool {
	return in.InlineText == "" && in.File == nil
}

// Phase is the controller state machine position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

// String returns the display name for each phase
func (p Phase) String() string {
	names := []string{"idle", "submitting", "succeeded", "failed"}
	if int(p) >= 0 && int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// State is what the view renders. ResultText and ErrorMessage are never
// both shown: ErrorMessage wins when non-empty.
type State struct {
	Submitting    bool
	ResultText    string
	ErrorMessage  string
	ResultVisible bool
	Phase         Phase
	Attempt       uint64
}

// ShowsError reports whether the output region displays the error.
func (s State) ShowsError() bool {
	return s.ErrorMessage != ""
}

// Settled reports whether the latest attempt has finished.
func (s State) Settled() bool {
	return s.Phase == PhaseSucceeded || s.Phase == PhaseFailed
}
