package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/txengine/internal/model"
)

func checks(errs []ValidationError) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Check)
	}
	return out
}

func TestValidate_CleanAfterLifecycle(t *testing.T) {
	l := funded(t, "10")
	require.NoError(t, l.RecordTransaction(2, 1, model.KindDeposit, dec("2.5")))
	require.NoError(t, l.ApplyDeposit(1, dec("2.5")))
	require.NoError(t, l.RecordTransaction(3, 2, model.KindDeposit, dec("4")))
	require.NoError(t, l.ApplyDeposit(2, dec("4")))

	require.NoError(t, l.ApplyDispute(1))
	require.NoError(t, l.ApplyDispute(3))
	require.NoError(t, l.ApplyResolve(3))
	require.NoError(t, l.ApplyDispute(2))
	require.NoError(t, l.ApplyChargeback(2))

	assert.Empty(t, l.Validate())
}

func TestValidate_Empty(t *testing.T) {
	assert.Empty(t, New().Validate())
}

func TestValidate_DetectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(l *Ledger)
		want    []string
	}{
		{
			name:    "held without dispute",
			corrupt: func(l *Ledger) { l.accounts[1].Held = dec("1") },
			want:    []string{CheckHeldMismatch},
		},
		{
			name:    "negative available",
			corrupt: func(l *Ledger) { l.accounts[1].Available = dec("-1") },
			want:    []string{CheckNegativeBalance},
		},
		{
			name:    "locked without chargeback",
			corrupt: func(l *Ledger) { l.accounts[1].Locked = true },
			want:    []string{CheckLockMismatch},
		},
		{
			name:    "excess precision",
			corrupt: func(l *Ledger) { l.accounts[1].Available = dec("10.00001") },
			want:    []string{CheckPrecision},
		},
		{
			name:    "orphan transaction",
			corrupt: func(l *Ledger) { delete(l.accounts, 1) },
			want:    []string{CheckOrphan},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := funded(t, "10")
			tt.corrupt(l)
			errs := l.Validate()
			assert.Equal(t, tt.want, checks(errs))
			for _, e := range errs {
				assert.Contains(t, e.Error(), "[client 1]")
			}
		})
	}
}
