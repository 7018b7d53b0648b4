package model

import "errors"

// Per-record failures. None of them abort a run; callers match with errors.Is.
var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrAccountLocked        = errors.New("account locked")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrInvalidDisputeState  = errors.New("invalid dispute state")
	ErrMalformedRecord      = errors.New("malformed record")
)

var reasons = []struct {
	err  error
	name string
}{
	{ErrDuplicateTransaction, "duplicate_transaction"},
	{ErrAccountLocked, "account_locked"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrTransactionNotFound, "transaction_not_found"},
	{ErrInvalidDisputeState, "invalid_dispute_state"},
	{ErrMalformedRecord, "malformed_record"},
}

// Reason returns the short snake_case name of the taxonomy error wrapped by
// err, or "unknown".
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return "unknown"
}
