package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is wrapped by every lookup of a missing customer, lead or user.
	ErrNotFound = errors.New("not found")

	ErrDuplicateCustomer  = errors.New("a customer with this name and email already exists")
	ErrNoLeads            = errors.New("no leads found for this customer")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
)

// ValidationError reports input that was rejected before anything was
// written.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error) error {
	return &ValidationError{Message: err.Error(), Err: err}
}

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func notFound(entity string, id uint) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// DeliveryError is returned when the mailer rejects a message. Data changes
// made before the send are kept.
type DeliveryError struct {
	Recipients []string
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to send email to %s: %v", strings.Join(e.Recipients, ", "), e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// BulkError is returned by multi-row operations after their transaction was
// rolled back.
type BulkError struct {
	Op  string
	Err error
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("%s failed, no changes were applied: %v", e.Op, e.Err)
}

func (e *BulkError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
