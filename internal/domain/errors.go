package domain

import "fmt"

// Error types for consistent error handling across the agent. Every one
// of these maps to a deterministic, customer-safe reply at the
// orchestrator level; none of them should ever reach a customer raw.

// ErrProductNotFound indicates a product reference did not resolve
// against the catalog. This is a normal outcome, not a fault: the caller
// asks the customer to clarify.
type ErrProductNotFound struct {
	Reference string
}

func (e *ErrProductNotFound) Error() string {
	return fmt.Sprintf("no catalog product matches %q", e.Reference)
}

// ErrInvalidCustomerName indicates the customer name was empty after
// trimming.
type ErrInvalidCustomerName struct{}

func (e *ErrInvalidCustomerName) Error() string {
	return "customer name is empty"
}

// ErrPersistence indicates a storage write or read failed. An invoice
// whose save failed is NOT issued.
type ErrPersistence struct {
	Op  string
	Err error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("persistence failure [%s]: %v", e.Op, e.Err)
}

func (e *ErrPersistence) Unwrap() error { return e.Err }

// ErrRendering indicates document generation failed after the invoice
// row was already persisted. The record stays valid and can be
// re-rendered without allocating a new id.
type ErrRendering struct {
	InvoiceID int64
	Err       error
}

func (e *ErrRendering) Error() string {
	return fmt.Sprintf("rendering failure for invoice %d: %v", e.InvoiceID, e.Err)
}

func (e *ErrRendering) Unwrap() error { return e.Err }

// ErrClassificationUnavailable indicates the language model call failed,
// timed out, or returned a payload that did not pass schema validation.
type ErrClassificationUnavailable struct {
	Reason string
}

func (e *ErrClassificationUnavailable) Error() string {
	return fmt.Sprintf("classification unavailable: %s", e.Reason)
}

// ErrNotFound indicates a resource was not found (admin API lookups).
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error { return e.Err }

// ErrValidation indicates bad input on the admin API.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
