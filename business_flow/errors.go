// Package businessflow contains the core business logic and use cases for the linktree platform
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Linktree-related errors
	ErrLinktreeNotFound = errors.New("linktree not found")
	ErrLinkNotFound     = errors.New("link not found")
	ErrDuplicateSlug    = errors.New("slug already exists")
	ErrDuplicateShortID = errors.New("short id already exists")
	ErrShortIDExhausted = errors.New("short id generation attempts exhausted")
	ErrLinktreeDisabled = errors.New("linktree is disabled")

	// Link-set validation errors
	ErrLinksValidationFailed = errors.New("link set is empty or contains no valid entries")

	// Store-related errors
	ErrStoreUnavailable  = errors.New("durable store unavailable")
	ErrCacheNotAvailable = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// GetErrorCode extracts the error code from a BusinessError, empty otherwise
func GetErrorCode(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func IsLinktreeNotFound(err error) bool {
	return errors.Is(err, ErrLinktreeNotFound)
}

func IsLinkNotFound(err error) bool {
	return errors.Is(err, ErrLinkNotFound)
}

func IsDuplicateSlug(err error) bool {
	return errors.Is(err, ErrDuplicateSlug)
}

func IsValidationFailed(err error) bool {
	return errors.Is(err, ErrLinksValidationFailed)
}

func IsShortIDExhausted(err error) bool {
	return errors.Is(err, ErrShortIDExhausted)
}

func IsLinktreeDisabled(err error) bool {
	return errors.Is(err, ErrLinktreeDisabled)
}
