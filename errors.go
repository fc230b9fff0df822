package tally

import (
	"errors"
	"fmt"

	"github.com/xraph/tally/meter"
	"github.com/xraph/tally/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("tally: not found")
	ErrAlreadyExists = errors.New("tally: already exists")
	ErrInvalidInput  = errors.New("tally: invalid input")

	// Subscription errors
	ErrSubscriptionNotFound = errors.New("tally: subscription not found")
	ErrSubscriptionExists   = errors.New("tally: subscription already exists")
	ErrSubscriptionCanceled = errors.New("tally: subscription is canceled")
	ErrNoActiveSubscription = errors.New("tally: no active subscription")
	ErrUnknownTier          = errors.New("tally: unknown tier")

	// Metering errors
	ErrInvalidUsageType = errors.New("tally: invalid usage type")
	ErrInvalidQuantity  = errors.New("tally: invalid usage quantity")
	ErrQuotaExceeded    = errors.New("tally: quota exceeded")

	// Affiliate errors
	ErrLinkNotFound          = errors.New("tally: affiliate link not found")
	ErrInvalidCommissionRate = errors.New("tally: invalid commission rate")
	ErrCodeTaken             = errors.New("tally: referral code already taken")
	ErrCodeGeneration        = errors.New("tally: referral code generation failed")
	ErrConversionNotFound    = errors.New("tally: conversion not found")
	ErrConversionSettled     = errors.New("tally: conversion already settled")
	ErrSelfReferral          = errors.New("tally: self-referral not allowed")

	// Payout errors
	ErrPayoutNotFound      = errors.New("tally: payout not found")
	ErrPayoutFinalized     = errors.New("tally: payout already finalized")
	ErrInvalidTransition   = errors.New("tally: invalid payout transition")
	ErrInsufficientBalance = errors.New("tally: insufficient available balance")

	// Store errors
	ErrStoreNotReady     = errors.New("tally: store not ready")
	ErrStoreClosed       = errors.New("tally: store is closed")
	ErrTransactionFailed = errors.New("tally: transaction failed")
	ErrMigrationFailed   = errors.New("tally: migration failed")
)

// QuotaExceededError carries the quota arithmetic behind a rejection.
// It unwraps to ErrQuotaExceeded.
type QuotaExceededError struct {
	Type      meter.UsageType
	Ceiling   int64
	Used      int64
	Requested int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("tally: quota exceeded for %s: used %d of %d, requested %d",
		e.Type, e.Used, e.Ceiling, e.Requested)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// InsufficientBalanceError reports a payout request while the available
// balance sits under the payout floor. It unwraps to
// ErrInsufficientBalance; Balance and Minimum let callers state the
// shortfall.
type InsufficientBalanceError struct {
	Balance types.Money
	Minimum types.Money
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("tally: insufficient available balance: have %s, minimum payout %s",
		e.Balance, e.Minimum)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tally: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrLinkNotFound) ||
		errors.Is(err, ErrConversionNotFound) ||
		errors.Is(err, ErrPayoutNotFound)
}

// IsBusinessRule returns true if the error is a domain-rule rejection
// rather than an infrastructure failure. Callers should not retry.
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrNoActiveSubscription) ||
		errors.Is(err, ErrSubscriptionExists) ||
		errors.Is(err, ErrConversionSettled) ||
		errors.Is(err, ErrPayoutFinalized) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrSelfReferral)
}

// IsRetryable returns true if the error is temporary and the operation
// can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrCodeGeneration)
}
