package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/marketplace-service/internal/validator"
)

var (
	// Ordering and payment
	ErrNoOrderItems         = errors.New("no order items")
	ErrInvalidPricing       = errors.New("invalid order pricing")
	ErrOrderNotFound        = errors.New("order not found")
	ErrPaymentNotVerified   = errors.New("payment not verified")
	ErrDuplicateTransaction = errors.New("payment transaction already used")
	ErrAmountMismatch       = errors.New("payment amount does not match order total")
	ErrOrderAlreadyPaid     = errors.New("order already paid")

	// Catalog and enrollment
	ErrCourseNotFound            = errors.New("course not found")
	ErrEnrollmentRequiresPayment = errors.New("course requires a paid order before enrollment")
	ErrNotEnrolled               = errors.New("user is not enrolled in the course")
	ErrAlreadyReviewed           = errors.New("course already reviewed by user")
	ErrContentAccessDenied       = errors.New("course content is only available to enrolled users")

	// Users
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrCannotDeleteAdmin  = errors.New("administrator accounts cannot be deleted")
	ErrLocalAuthDisabled  = errors.New("local registration and login are disabled")
	ErrUnauthenticated    = errors.New("authentication required")

	ErrPermissionDenied = errors.New("permission denied")
)

type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

func NewValidationError(field, message string, value interface{}) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message, Value: value, Rule: "business_logic"}}
}

// CourseNotFoundError names the course id that failed to resolve.
type CourseNotFoundError struct {
	CourseID string
}

func (e *CourseNotFoundError) Error() string {
	return fmt.Sprintf("course not found: %s", e.CourseID)
}

func (e *CourseNotFoundError) Unwrap() error {
	return ErrCourseNotFound
}

type PermissionError struct {
	UserID       string
	ResourceID   string
	ResourceType string
	Action       string
	Reason       string
}

func NewPermissionError(userID, resourceID, resourceType, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:       userID,
		ResourceID:   resourceID,
		ResourceType: resourceType,
		Action:       action,
		Reason:       reason,
	}
}

func (e *PermissionError) Error() string {
	if e.ResourceID == "" {
		return fmt.Sprintf("user %s cannot %s %s: %s", e.UserID, e.Action, e.ResourceType, e.Reason)
	}
	return fmt.Sprintf("user %s cannot %s %s %s: %s", e.UserID, e.Action, e.ResourceType, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}

func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve) || errors.Is(err, ErrNoOrderItems) || errors.Is(err, ErrInvalidPricing)
}

func IsPermissionError(err error) bool {
	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrContentAccessDenied) ||
		errors.Is(err, ErrNotEnrolled)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

func IsConflictError(err error) bool {
	return errors.Is(err, ErrDuplicateTransaction) ||
		errors.Is(err, ErrOrderAlreadyPaid) ||
		errors.Is(err, ErrAlreadyReviewed) ||
		errors.Is(err, ErrEmailAlreadyExists) ||
		errors.Is(err, ErrCannotDeleteAdmin)
}

func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrInvalidCredentials)
}

// IsPaymentRequiredError covers failures the client resolves by paying correctly.
func IsPaymentRequiredError(err error) bool {
	return errors.Is(err, ErrPaymentNotVerified) ||
		errors.Is(err, ErrAmountMismatch) ||
		errors.Is(err, ErrEnrollmentRequiresPayment)
}
