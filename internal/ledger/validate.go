package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/txengine/internal/model"
)

// Check names for ValidationError.
const (
	CheckNegativeBalance = "negative_balance"
	CheckHeldMismatch    = "held_mismatch"
	CheckLockMismatch    = "lock_mismatch"
	CheckPrecision       = "precision"
	CheckOrphan          = "orphan_transaction"
)

// ValidationError describes a single consistency violation.
type ValidationError struct {
	Check       string
	Client      uint16
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [client %d]: %s", e.Check, e.Client, e.Description)
}

// Validate cross-checks every account against the retained transactions.
// A ledger only mutated through the Apply methods always validates clean.
func (l *Ledger) Validate() []ValidationError {
	var errs []ValidationError

	held := make(map[uint16]decimal.Decimal)
	chargedBack := make(map[uint16]bool)

	txIDs := make([]uint32, 0, len(l.txs))
	for tx := range l.txs {
		txIDs = append(txIDs, tx)
	}
	sort.Slice(txIDs, func(i, j int) bool { return txIDs[i] < txIDs[j] })

	for _, tx := range txIDs {
		rec := l.txs[tx]
		if _, ok := l.accounts[rec.Client]; !ok {
			errs = append(errs, ValidationError{
				Check:       CheckOrphan,
				Client:      rec.Client,
				Description: fmt.Sprintf("tx %d has no account", tx),
			})
		}
		if !hasPrecision(rec.Amount) {
			errs = append(errs, ValidationError{
				Check:       CheckPrecision,
				Client:      rec.Client,
				Description: fmt.Sprintf("tx %d amount %s has more than %d decimal places", tx, rec.Amount, model.Precision),
			})
		}
		switch rec.State {
		case model.DisputeOpen:
			held[rec.Client] = held[rec.Client].Add(rec.Amount)
		case model.DisputeChargedBack:
			chargedBack[rec.Client] = true
		}
	}

	for _, a := range l.Accounts() {
		if a.Available.IsNegative() || a.Held.IsNegative() {
			errs = append(errs, ValidationError{
				Check:       CheckNegativeBalance,
				Client:      a.Client,
				Description: fmt.Sprintf("available %s, held %s", a.Available, a.Held),
			})
		}
		if !a.Held.Equal(held[a.Client]) {
			errs = append(errs, ValidationError{
				Check:       CheckHeldMismatch,
				Client:      a.Client,
				Description: fmt.Sprintf("held %s != open disputes %s", a.Held, held[a.Client]),
			})
		}
		if a.Locked != chargedBack[a.Client] {
			errs = append(errs, ValidationError{
				Check:       CheckLockMismatch,
				Client:      a.Client,
				Description: fmt.Sprintf("locked=%t but charged back=%t", a.Locked, chargedBack[a.Client]),
			})
		}
		if !hasPrecision(a.Available) || !hasPrecision(a.Held) {
			errs = append(errs, ValidationError{
				Check:       CheckPrecision,
				Client:      a.Client,
				Description: fmt.Sprintf("balance has more than %d decimal places", model.Precision),
			})
		}
	}

	return errs
}

func hasPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(model.Precision))
}
