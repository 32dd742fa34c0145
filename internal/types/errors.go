package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels let callers match a variant with errors.Is; the structured
// variants below also satisfy errors.As.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrPrecisionExceeded   = errors.New("precision exceeded")
	ErrOutOfRange          = errors.New("amount out of range")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrAddressKeyMismatch  = errors.New("address does not match signing key")
	ErrMissingNetwork      = errors.New("currency has no network")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrConfiguration       = errors.New("configuration error")
	ErrProvider            = errors.New("provider error")
)

type AmountError struct {
	Kind   error
	Value  string
	Detail string
}

func (e *AmountError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Value)
	}
	return fmt.Sprintf("%v: %s (%s)", e.Kind, e.Value, e.Detail)
}

func (e *AmountError) Unwrap() error { return e.Kind }

func InvalidAmount(value, detail string) error {
	return &AmountError{Kind: ErrInvalidAmount, Value: value, Detail: detail}
}

func PrecisionExceeded(value string, maxDecimals int32) error {
	return &AmountError{Kind: ErrPrecisionExceeded, Value: value, Detail: fmt.Sprintf("max %d fractional digits", maxDecimals)}
}

func OutOfRange(value, limit string) error {
	return &AmountError{Kind: ErrOutOfRange, Value: value, Detail: "limit " + limit}
}

type InsufficientBalanceError struct {
	Available uint64
	Required  uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%v: available %d, required %d", ErrInsufficientBalance, e.Available, e.Required)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

type ConfirmationTimeoutError struct {
	TxID       string
	Network    NetworkID
	Attempts   int
	Elapsed    time.Duration
	LastStatus any
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("%v: tx %s on %s after %d attempts in %s (last status: %v)",
		ErrConfirmationTimeout, e.TxID, e.Network, e.Attempts, e.Elapsed, e.LastStatus)
}

func (e *ConfirmationTimeoutError) Unwrap() error { return ErrConfirmationTimeout }

type TransactionRevertedError struct {
	TxID    string
	Network NetworkID
	Reason  string
}

func (e *TransactionRevertedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: tx %s on %s", ErrTransactionReverted, e.TxID, e.Network)
	}
	return fmt.Sprintf("%v: tx %s on %s: %s", ErrTransactionReverted, e.TxID, e.Network, e.Reason)
}

func (e *TransactionRevertedError) Unwrap() error { return ErrTransactionReverted }

type AddressKeyMismatchError struct {
	Configured string
	Derived    string
}

func (e *AddressKeyMismatchError) Error() string {
	return fmt.Sprintf("%v: configured %s, derived %s", ErrAddressKeyMismatch, e.Configured, e.Derived)
}

func (e *AddressKeyMismatchError) Unwrap() error { return ErrAddressKeyMismatch }

type CurrencyError struct {
	Kind     error
	Currency Currency
}

func (e *CurrencyError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Currency)
}

func (e *CurrencyError) Unwrap() error { return e.Kind }

type ConfigurationError struct {
	Component string
	Field     string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s.%s %s", ErrConfiguration, e.Component, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func MissingConfig(component, field string) error {
	return &ConfigurationError{Component: component, Field: field, Reason: "is required"}
}

// ProviderError reports an indexer or RPC failure after retries were exhausted.
type ProviderError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%v: %s failed after %d attempt(s): %v", ErrProvider, e.Op, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() []error { return []error{ErrProvider, e.Err} }
