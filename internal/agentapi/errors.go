package agentapi

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no bearer token was available. No request
	// was sent; the caller should prompt for a login.
	ErrUnauthenticated = errors.New("not signed in")

	// ErrCommunication covers network failures and unreadable responses.
	ErrCommunication = errors.New("error communicating with the agent service")
)

// RequestError is returned when the agent service answers with a non-2xx status.
type RequestError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("agent service request %s failed with status %d", e.Path, e.StatusCode)
}
