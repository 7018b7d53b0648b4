package model

import "github.com/shopspring/decimal"

// Account is the balance state of one client.
type Account struct {
	Client    uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool // set by a chargeback, never cleared
}

// NewAccount returns a zeroed, unlocked account.
func NewAccount(client uint16) Account {
	return Account{
		Client:    client,
		Available: decimal.Zero,
		Held:      decimal.Zero,
	}
}

// Total returns Available + Held. It is derived on every read so no update
// site can leave it stale.
func (a Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}
