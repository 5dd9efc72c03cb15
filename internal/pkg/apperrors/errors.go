package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrAlreadyExists = errors.New("resource already exists")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")

	ErrOverpayment = errors.New("repayment exceeds remaining balance")

	ErrUnauthenticated = errors.New("unauthenticated")

	ErrConflict = errors.New("resource conflict")

	ErrDependency = errors.New("dependency failure")
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

// OverpaymentError reports the exact balance still owed on the loan.
type OverpaymentError struct {
	Remaining decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("Only %s is remaining on this loan.", e.Remaining.String())
}

func (e *OverpaymentError) Unwrap() error {
	return ErrOverpayment
}

func NewOverpaymentError(remaining decimal.Decimal) error {
	return &OverpaymentError{Remaining: remaining}
}

// DependencyError wraps a failed call to an external collaborator
// (notification sink, receipt renderer, webhook, broker).
type DependencyError struct {
	Dependency string
	Cause      error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s failed: %v", e.Dependency, e.Cause)
}

func (e *DependencyError) Unwrap() []error {
	return []error{ErrDependency, e.Cause}
}

func NewDependencyError(dependency string, cause error) error {
	return &DependencyError{Dependency: dependency, Cause: cause}
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}
