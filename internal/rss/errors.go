package rss

import "fmt"

// The three failure categories are distinct types so callers can tell
// transient trouble (network, most HTTP statuses) from permanent trouble
// (unparsable feed) with errors.As.

// NetworkError wraps a transport-level failure reaching the feed endpoint.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("feed request failed: %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx response from the feed endpoint.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed returned status %d: %s", e.StatusCode, e.URL)
}

// ParseError is a response body that is not a well-formed feed document.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("feed parse failed: %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
