package export

import "errors"

var (
	// ErrTransport covers network and HTTP status failures.
	ErrTransport = errors.New("transport error")
	// ErrParse is returned when an expected token or field is missing.
	ErrParse = errors.New("parse error")
	// ErrValidation is returned for a bad final url or content type.
	ErrValidation = errors.New("validation error")
	// ErrTimeout is returned when polling ran out of attempts.
	ErrTimeout = errors.New("export timed out")
	// ErrJobFailed is returned when the server reports the job as FAILED.
	ErrJobFailed = errors.New("export job failed")
)
