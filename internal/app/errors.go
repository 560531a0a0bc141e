package app

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUnitNotFound       = errors.New("unit not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrNoteNotFound       = errors.New("note not found")
	ErrSummaryNotFound    = errors.New("summary not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrPlanEntryNotFound  = errors.New("plan entry not found")

	// ErrValidation wraps rejected request input.
	ErrValidation = errors.New("invalid input")

	// ErrInvalidPace rejects pace values outside 1..80.
	ErrInvalidPace = errors.New("pace must be between 1 and 80")

	// ErrNoExtractedText rejects summarization of a document whose text
	// extraction produced nothing.
	ErrNoExtractedText = errors.New("no text available for summarization")
)
