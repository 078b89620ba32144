package processor

import (
	"errors"
	"fmt"
)

// ErrUnknownJobType indicates a job type no handler exists for, usually
// deployment/version skew. Retrying cannot help.
var ErrUnknownJobType = errors.New("unknown job type")

// PayloadError marks a payload that fails validation at the dispatch
// boundary. The payload will never change, so retries cannot succeed; the
// job still burns through its attempt budget via the standard fail path.
type PayloadError struct {
	Reason string
}

func (e *PayloadError) Error() string {
	return "invalid job payload: " + e.Reason
}

// RetriableError wraps a transient collaborator failure (network, upstream
// throttling). The worker's normal fail routing gives these another chance.
type RetriableError struct {
	Op  string
	Err error
}

func (e *RetriableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RetriableError) Unwrap() error {
	return e.Err
}

// isRetriable reports whether err is worth retrying. Payload validation and
// unknown-type errors are not; everything else (collaborator failures,
// data-integrity conditions) flows through the queue's normal retry
// accounting.
func isRetriable(err error) bool {
	var pe *PayloadError
	if errors.As(err, &pe) {
		return false
	}
	return !errors.Is(err, ErrUnknownJobType)
}
