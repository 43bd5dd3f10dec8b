// ABOUTME: Error taxonomy for CRM API calls
// ABOUTME: Separates terminal load failures, field validation failures and unsent writes
package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// FailureKind classifies why an aggregate read failed.
type FailureKind int

const (
	FailureNetwork FailureKind = iota
	FailureUnauthorized
	FailureNotFound
	FailureStatus
	FailureMalformed
)

func (k FailureKind) String() string {
	switch k {
	case FailureNetwork:
		return "network"
	case FailureUnauthorized:
		return "unauthorized"
	case FailureNotFound:
		return "not found"
	case FailureStatus:
		return "unexpected status"
	case FailureMalformed:
		return "malformed response"
	}
	return "unknown"
}

// LoadFailure is terminal for the screen that issued the read. Callers
// redirect to ListRoute instead of rendering partial state.
type LoadFailure struct {
	Kind      FailureKind
	Status    int
	ListRoute string
	Err       error
}

func (e *LoadFailure) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("load failed (%s, status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("load failed (%s): %v", e.Kind, e.Err)
}

func (e *LoadFailure) Unwrap() error { return e.Err }

// ValidationFailure carries field-level errors returned by a write.
type ValidationFailure struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *ValidationFailure) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s (%s)", e.Message, strings.Join(names, ", "))
}

// Field returns the first message for a field, or "".
func (e *ValidationFailure) Field(name string) string {
	if msgs := e.Fields[name]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// TransientNetworkFailure is a request that never reached the server.
type TransientNetworkFailure struct {
	Op  string
	Err error
}

func (e *TransientNetworkFailure) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *TransientNetworkFailure) Unwrap() error { return e.Err }

var (
	// ErrNotAuthenticated means no token or organization is stored.
	ErrNotAuthenticated = errors.New("missing token or organization")

	// ErrInvalidCredentials means the login response carried no token.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

func failureForStatus(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FailureUnauthorized
	case status == http.StatusNotFound:
		return FailureNotFound
	}
	return FailureStatus
}
