package model

import "fmt"

// AuthenticationError covers invalid or expired OAuth state and missing tokens (maps to 401).
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return "authentication required"
	}
	return e.Reason
}

// ValidationError covers malformed requests (maps to 400).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NotFoundError covers unknown accounts and publish records (maps to 404).
// Records owned by another user are reported the same way so existence
// never leaks across tenants.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// RateLimitError covers provider or internal quota exhaustion (maps to 429).
type RateLimitError struct {
	Platform string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Platform)
}

// PlatformError wraps any provider-call failure with the provider name and
// the original cause, so upstream HTTP mapping has one shape to handle.
type PlatformError struct {
	Platform string
	Message  string
	Err      error
}

func (e *PlatformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Platform, e.Message)
}

func (e *PlatformError) Unwrap() error { return e.Err }
