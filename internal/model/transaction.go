package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits amounts are kept at.
const Precision = 4

// TxType is the type column of an input record.
type TxType string

const (
	TxDeposit    TxType = "deposit"
	TxWithdrawal TxType = "withdrawal"
	TxDispute    TxType = "dispute"
	TxResolve    TxType = "resolve"
	TxChargeback TxType = "chargeback"
)

// ParseTxType maps a type column to a TxType, ignoring case and surrounding space.
func ParseTxType(s string) (TxType, error) {
	switch t := TxType(strings.ToLower(strings.TrimSpace(s))); t {
	case TxDeposit, TxWithdrawal, TxDispute, TxResolve, TxChargeback:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// RequiresAmount reports whether records of this type must carry an amount.
func (t TxType) RequiresAmount() bool {
	return t == TxDeposit || t == TxWithdrawal
}

// TxKind classifies a retained transaction.
type TxKind string

const (
	KindDeposit    TxKind = "deposit"
	KindWithdrawal TxKind = "withdrawal"
)

// DisputeState tracks the dispute lifecycle of one transaction.
type DisputeState string

const (
	DisputeNone        DisputeState = "none"
	DisputeOpen        DisputeState = "disputed"
	DisputeResolved    DisputeState = "resolved"
	DisputeChargedBack DisputeState = "charged_back"
)

// TxRecord is an accepted deposit or withdrawal kept for later disputes.
type TxRecord struct {
	Tx     uint32
	Client uint16
	Kind   TxKind
	Amount decimal.Decimal
	State  DisputeState
}

// Record is one raw input row. Amount is only set for deposits and withdrawals.
type Record struct {
	Type   TxType
	Client uint16
	Tx     uint32
	Amount decimal.NullDecimal
}

// RoundAmount rounds d half-even to Precision fractional digits.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Precision)
}
