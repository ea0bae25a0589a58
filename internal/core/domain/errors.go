package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrForbidden means the actor's role does not permit the operation:
// customers create payments, employees verify, reject and submit them.
var ErrForbidden = errors.New("operation not permitted for this role")

// ValidationError carries every field that failed input validation, not just
// the first one, so the customer can fix the whole form in one go.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// InvalidStateError means the operation is not legal for the transaction's
// current status.
type InvalidStateError struct {
	Current  Status
	Required Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("transaction is %s, operation requires %s", e.Current, e.Required)
}

// ConflictError means a compare-and-swap on the transaction status lost a
// race with another employee. The caller must re-fetch and retry.
type ConflictError struct {
	Expected Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("transaction status changed concurrently, expected %s", e.Expected)
}

// NotFoundError covers both unknown ids and records the caller cannot see.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ExternalServiceError wraps any failure talking to the pre-validation
// service: network, auth, non-2xx, or an unreadable body. The upstream
// payload is kept for diagnostics.
type ExternalServiceError struct {
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s: upstream returned %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// ConfigurationError is fatal: a required setting (signing key, signing
// identity, consumer key) is absent. Never defaulted, never retried.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return "missing required configuration: " + e.Setting
}
