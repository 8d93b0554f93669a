package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateSettlement is returned by storage when a booking for the same
// provider settlement already exists. Callers treat it as "already processed".
var ErrDuplicateSettlement = errors.New("settlement already materialized")

// DomainError keeps backward compatibility for generic codes.
type DomainError struct {
	Code string
	Err  error
}

func (e DomainError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	if e.Code == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e DomainError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "forbidden"
}

type UnauthorizedError struct {
	Msg string
}

func (e UnauthorizedError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "unauthorized"
}

// ProviderError wraps a network or API failure talking to a payment provider.
// Nothing is persisted when one is returned; the client may retry.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e ProviderError) Unwrap() error { return e.Err }

// SettlementNotConfirmedError means the provider reports the payment as not paid (yet).
type SettlementNotConfirmedError struct {
	Provider     string
	SettlementID string
	Status       string
}

func (e SettlementNotConfirmedError) Error() string {
	return fmt.Sprintf("%s settlement %s not confirmed (status=%s)", e.Provider, e.SettlementID, e.Status)
}

// InventoryExhaustedError is raised when the room re-check inside the booking
// transaction fails. The payment may already be captured, so operators must refund.
type InventoryExhaustedError struct {
	RoomID         string
	Requested      int
	RoomsAvailable int
	SettlementID   string
}

func (e InventoryExhaustedError) Error() string {
	return fmt.Sprintf("room %s exhausted: requested %d, available %d", e.RoomID, e.Requested, e.RoomsAvailable)
}

// SignatureError marks a webhook whose signature did not verify.
type SignatureError struct {
	Err error
}

func (e SignatureError) Error() string {
	return fmt.Sprintf("invalid webhook signature: %v", e.Err)
}

func (e SignatureError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsUnauthorized(err error) bool {
	var target UnauthorizedError
	return errors.As(err, &target)
}

func IsProvider(err error) bool {
	var target ProviderError
	return errors.As(err, &target)
}

func IsSettlementNotConfirmed(err error) bool {
	var target SettlementNotConfirmedError
	return errors.As(err, &target)
}

func IsInventoryExhausted(err error) bool {
	var target InventoryExhaustedError
	return errors.As(err, &target)
}

func IsSignature(err error) bool {
	var target SignatureError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}
