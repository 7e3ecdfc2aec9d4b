package domain

import "errors"

var (
	// ErrEmptyKeyword is returned when a command arrives without a keyword
	ErrEmptyKeyword = errors.New("keyword is empty")

	// ErrUnknownAction is returned when an action name cannot be parsed
	ErrUnknownAction = errors.New("unknown action")

	// ErrNoResults is returned when a lookup succeeds but yields no domains
	ErrNoResults = errors.New("no results")

	// ErrLookupFailed is returned for any failed call to the ranking API
	ErrLookupFailed = errors.New("lookup failed")

	// ErrDeliveryFailed is returned when a reply cannot reach its target
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrQueueClosed is returned by queue operations after Close
	ErrQueueClosed = errors.New("queue closed")

	// ErrMalformedJob is returned when a queued message cannot be decoded into a job
	ErrMalformedJob = errors.New("malformed job")

	// ErrJobNotFound is returned when a job is not tracked
	ErrJobNotFound = errors.New("job not found")
)

// RetryableError wraps transient errors that are worth another attempt
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries a RetryableError
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}
