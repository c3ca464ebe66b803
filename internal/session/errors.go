package session

import "errors"

var (
	// ErrAssessmentGenerationFailed indicates the model returned malformed
	// or empty question JSON. Nothing is persisted for this request.
	ErrAssessmentGenerationFailed = errors.New("assessment generation failed")

	// ErrAssessmentNotFound indicates a submission referenced an unknown or
	// expired assessment ID. Reported to the client, never retried.
	ErrAssessmentNotFound = errors.New("assessment not found")
)
