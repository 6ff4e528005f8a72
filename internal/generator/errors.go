package generator

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification.
var (
	ErrNetwork      = errors.New("network error")
	ErrStatus       = errors.New("unexpected status")
	ErrDecode       = errors.New("decode error")
	ErrMissingField = errors.New("missing test_cases")
	ErrEmptyRequest = errors.New("request has neither code nor file")
)

// Kind buckets a transport failure.
type Kind string

const (
	KindNetwork Kind = "network"
	KindStatus  Kind = "status"
	KindDecode  Kind = "decode"
	KindEmpty   Kind = "empty"
)

// TransportError is any failure of the outbound call: the request could not
// be sent, the service answered non-2xx, or the body did not carry
// generated text.
type TransportError struct {
	Kind      Kind
	Status    int
	RequestID string
	Message   string
	Err       error
}

// Error returns the human-readable failure description shown to users.
func (e *TransportError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("request failed with status code %d", e.Status)
	case KindDecode:
		return "malformed response body: " + e.Message
	case KindEmpty:
		return "response is missing test_cases"
	default:
		return e.Message
	}
}

// Unwrap returns the sentinel for errors.Is.
func (e *TransportError) Unwrap() error {
	return e.Err
}
