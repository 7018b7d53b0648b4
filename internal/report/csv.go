// Package report renders final account balances.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/txengine/internal/model"
)

// Header is the CSV header of the account report.
const Header = "client,available,held,total,locked"

const (
	numFields    = 5
	colClient    = 0
	colAvailable = 1
	colHeld      = 2
	colTotal     = 3
	colLocked    = 4
)

// WriteAccounts writes one row per account, with header.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a report row. Total is derived here.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colClient] = strconv.FormatUint(uint64(acct.Client), 10)
	row[colAvailable] = acct.Available.StringFixed(model.Precision)
	row[colHeld] = acct.Held.StringFixed(model.Precision)
	row[colTotal] = acct.Total().StringFixed(model.Precision)
	row[colLocked] = strconv.FormatBool(acct.Locked)
	return row
}
