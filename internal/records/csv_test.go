package records

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/txengine/internal/model"
)

func readAll(t *testing.T, input string) ([]model.Record, []error) {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var recs []model.Record
	var errs []error
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return recs, errs
		}
		if err != nil {
			require.ErrorIs(t, err, model.ErrMalformedRecord)
			errs = append(errs, err)
			continue
		}
		recs = append(recs, rec)
	}
}

func TestReader_Basic(t *testing.T) {
	input := "type,client,tx,amount\n" +
		"deposit,1,1,1.0\n" +
		"deposit,2,2,2.0\n" +
		"withdrawal,1,4,1.5\n" +
		"dispute,1,1,\n" +
		"resolve,1,1\n" +
		"chargeback,2,2,\n"

	recs, errs := readAll(t, input)
	require.Empty(t, errs)
	require.Len(t, recs, 6)

	assert.Equal(t, model.TxDeposit, recs[0].Type)
	assert.Equal(t, uint16(1), recs[0].Client)
	assert.Equal(t, uint32(1), recs[0].Tx)
	require.True(t, recs[0].Amount.Valid)
	assert.Equal(t, "1.0000", recs[0].Amount.Decimal.StringFixed(model.Precision))

	assert.Equal(t, model.TxWithdrawal, recs[2].Type)
	assert.True(t, recs[2].Amount.Decimal.Equal(decimal.RequireFromString("1.5")))

	assert.Equal(t, model.TxDispute, recs[3].Type)
	assert.False(t, recs[3].Amount.Valid)
	assert.Equal(t, model.TxResolve, recs[4].Type)
	assert.False(t, recs[4].Amount.Valid)
	assert.Equal(t, model.TxChargeback, recs[5].Type)
}

func TestReader_Whitespace(t *testing.T) {
	input := "type, client, tx, amount\n" +
		"deposit,   1,  7,   2.5  \n" +
		"  Dispute , 1 , 7 ,\n"

	recs, errs := readAll(t, input)
	require.Empty(t, errs)
	require.Len(t, recs, 2)
	assert.Equal(t, uint32(7), recs[0].Tx)
	assert.True(t, recs[0].Amount.Decimal.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, model.TxDispute, recs[1].Type)
}

func TestReader_NoHeader(t *testing.T) {
	recs, errs := readAll(t, "deposit,1,1,3\n")
	require.Empty(t, errs)
	require.Len(t, recs, 1)
	assert.Equal(t, model.TxDeposit, recs[0].Type)
}

func TestReader_KeepsAmountAsWritten(t *testing.T) {
	recs, errs := readAll(t, "deposit,1,1,0.123456\nwithdrawal,1,2,-0.00001\n")
	require.Empty(t, errs)
	require.Len(t, recs, 2)
	assert.Equal(t, "0.123456", recs[0].Amount.Decimal.String())
	assert.True(t, recs[1].Amount.Decimal.IsNegative())
}

func TestReader_IgnoresAmountOnDisputeRows(t *testing.T) {
	recs, errs := readAll(t, "dispute,1,1,5.0\nresolve,1,1,junk\nchargeback,1,1,\n")
	require.Empty(t, errs)
	require.Len(t, recs, 3)
	for _, rec := range recs {
		assert.False(t, rec.Amount.Valid, "%s", rec.Type)
	}
}

func TestReader_MalformedRowsAreSkippable(t *testing.T) {
	input := "type,client,tx,amount\n" +
		"deposit,1,1,1.0\n" +
		"transfer,1,2,1.0\n" + // unknown type
		"deposit,70000,3,1.0\n" + // client overflows uint16
		"deposit,1,-4,1.0\n" + // negative tx
		"deposit,1,5,abc\n" + // bad amount
		"deposit,1\n" + // too few fields
		"deposit,1,6,1.0,extra\n" + // too many fields
		"deposit,2,7,2.0\n"

	recs, errs := readAll(t, input)
	require.Len(t, recs, 2)
	assert.Equal(t, uint32(1), recs[0].Tx)
	assert.Equal(t, uint32(7), recs[1].Tx)
	assert.Len(t, errs, 6)
	assert.Contains(t, errs[0].Error(), "line 3")
}

func TestReader_NegativeAmountIsTyped(t *testing.T) {
	// Sign checks belong to the engine.
	recs, errs := readAll(t, "deposit,1,1,-2.0\n")
	require.Empty(t, errs)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Amount.Decimal.IsNegative())
}

func TestReader_Empty(t *testing.T) {
	recs, errs := readAll(t, "")
	assert.Empty(t, recs)
	assert.Empty(t, errs)

	recs, errs = readAll(t, "type,client,tx,amount\n")
	assert.Empty(t, recs)
	assert.Empty(t, errs)
}

func TestReader_StreamFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	r := NewReader(iotest.ErrReader(boom))
	_, err := r.Next()
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, model.ErrMalformedRecord)
}
