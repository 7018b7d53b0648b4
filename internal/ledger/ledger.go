// Package ledger owns client accounts and the transaction history needed to
// settle disputes. It is the only place account balances change.
package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/txengine/internal/model"
)

// Ledger maps client ids to accounts and tx ids to accepted transactions.
// A Ledger is long-lived: it is created once and fed any number of batches.
// It is not safe for concurrent use.
type Ledger struct {
	accounts map[uint16]*model.Account
	txs      map[uint32]*model.TxRecord
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{
		accounts: make(map[uint16]*model.Account),
		txs:      make(map[uint32]*model.TxRecord),
	}
}

// GetOrCreateAccount returns the account for client, creating a zeroed,
// unlocked one if it does not exist yet.
func (l *Ledger) GetOrCreateAccount(client uint16) model.Account {
	return *l.account(client)
}

// Account returns the account for client without creating it.
func (l *Ledger) Account(client uint16) (model.Account, bool) {
	a, ok := l.accounts[client]
	if !ok {
		return model.Account{}, false
	}
	return *a, true
}

// Accounts returns a snapshot of every account, sorted by client id.
func (l *Ledger) Accounts() []model.Account {
	result := make([]model.Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Client < result[j].Client
	})
	return result
}

// Len returns the number of accounts.
func (l *Ledger) Len() int {
	return len(l.accounts)
}

// TransactionCount returns the number of retained transactions.
func (l *Ledger) TransactionCount() int {
	return len(l.txs)
}

// RecordTransaction retains an accepted deposit or withdrawal so it can be
// disputed later. Transaction ids are unique across all clients.
func (l *Ledger) RecordTransaction(tx uint32, client uint16, kind model.TxKind, amount decimal.Decimal) error {
	if _, ok := l.txs[tx]; ok {
		return fmt.Errorf("tx %d: %w", tx, model.ErrDuplicateTransaction)
	}
	l.txs[tx] = &model.TxRecord{
		Tx:     tx,
		Client: client,
		Kind:   kind,
		Amount: amount,
		State:  model.DisputeNone,
	}
	return nil
}

// FindTransaction returns a copy of a retained transaction.
func (l *Ledger) FindTransaction(tx uint32) (model.TxRecord, bool) {
	rec, ok := l.txs[tx]
	if !ok {
		return model.TxRecord{}, false
	}
	return *rec, true
}

// ApplyDeposit credits amount to the available balance of client.
func (l *Ledger) ApplyDeposit(client uint16, amount decimal.Decimal) error {
	a := l.account(client)
	if a.Locked {
		return fmt.Errorf("client %d: %w", client, model.ErrAccountLocked)
	}
	a.Available = a.Available.Add(amount)
	return nil
}

// ApplyWithdrawal debits amount from the available balance of client.
func (l *Ledger) ApplyWithdrawal(client uint16, amount decimal.Decimal) error {
	a := l.account(client)
	if a.Locked {
		return fmt.Errorf("client %d: %w", client, model.ErrAccountLocked)
	}
	if amount.GreaterThan(a.Available) {
		return fmt.Errorf("client %d: withdrawing %s from %s: %w",
			client, amount.StringFixed(model.Precision), a.Available.StringFixed(model.Precision), model.ErrInsufficientFunds)
	}
	a.Available = a.Available.Sub(amount)
	return nil
}

// ApplyDispute moves the amount of a deposit from available to held.
// Only undisputed deposits can be disputed, and only while the available
// balance still covers the amount.
func (l *Ledger) ApplyDispute(tx uint32) error {
	rec, err := l.transactionIn(tx, model.DisputeNone)
	if err != nil {
		return err
	}
	if rec.Kind != model.KindDeposit {
		return fmt.Errorf("tx %d is a %s: %w", tx, rec.Kind, model.ErrInvalidDisputeState)
	}

	a := l.account(rec.Client)
	if rec.Amount.GreaterThan(a.Available) {
		return fmt.Errorf("tx %d: holding %s from %s: %w",
			tx, rec.Amount.StringFixed(model.Precision), a.Available.StringFixed(model.Precision), model.ErrInsufficientFunds)
	}
	a.Available = a.Available.Sub(rec.Amount)
	a.Held = a.Held.Add(rec.Amount)
	rec.State = model.DisputeOpen
	return nil
}

// ApplyResolve releases the held amount of a disputed transaction.
func (l *Ledger) ApplyResolve(tx uint32) error {
	rec, err := l.transactionIn(tx, model.DisputeOpen)
	if err != nil {
		return err
	}

	a := l.account(rec.Client)
	a.Held = a.Held.Sub(rec.Amount)
	a.Available = a.Available.Add(rec.Amount)
	rec.State = model.DisputeResolved
	return nil
}

// ApplyChargeback removes the held amount of a disputed transaction from the
// account and locks it.
func (l *Ledger) ApplyChargeback(tx uint32) error {
	rec, err := l.transactionIn(tx, model.DisputeOpen)
	if err != nil {
		return err
	}

	a := l.account(rec.Client)
	a.Held = a.Held.Sub(rec.Amount)
	a.Locked = true
	rec.State = model.DisputeChargedBack
	return nil
}

func (l *Ledger) account(client uint16) *model.Account {
	a, ok := l.accounts[client]
	if !ok {
		acct := model.NewAccount(client)
		a = &acct
		l.accounts[client] = a
	}
	return a
}

// transactionIn returns the retained transaction if it is in state want.
func (l *Ledger) transactionIn(tx uint32, want model.DisputeState) (*model.TxRecord, error) {
	rec, ok := l.txs[tx]
	if !ok {
		return nil, fmt.Errorf("tx %d: %w", tx, model.ErrTransactionNotFound)
	}
	if rec.State != want {
		return nil, fmt.Errorf("tx %d is %s, want %s: %w", tx, rec.State, want, model.ErrInvalidDisputeState)
	}
	return rec, nil
}
