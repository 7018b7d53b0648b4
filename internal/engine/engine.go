// Package engine applies transaction records to a ledger.
//
// Records are applied strictly in the order the source yields them. A record
// that is malformed or invalid against the current ledger state is skipped
// and reported; it never stops the run.
package engine

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/txengine/internal/ledger"
	"github.com/cleared-dev/txengine/internal/model"
)

// Source yields records one at a time and returns io.EOF when done.
// An error wrapping model.ErrMalformedRecord rejects a single record;
// any other error is a stream failure.
type Source interface {
	Next() (model.Record, error)
}

// Rejection describes a skipped record.
type Rejection struct {
	Batch  string
	Seq    int // 1-based position in the batch
	Record model.Record
	Err    error
}

// Summary counts what happened during one Process call.
type Summary struct {
	Batch    string
	Records  int
	Applied  int
	Skipped  int
	ByReason map[string]int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for skipped records and batch summaries.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRejectHandler registers fn to receive every skipped record.
func WithRejectHandler(fn func(Rejection)) Option {
	return func(e *Engine) {
		e.onReject = fn
	}
}

// Engine drives a Ledger from record sources.
type Engine struct {
	ledger   *ledger.Ledger
	logger   *zap.Logger
	onReject func(Rejection)
}

// New creates an Engine over l. The ledger is owned by the caller and keeps
// its state across Process calls.
func New(l *ledger.Ledger, opts ...Option) *Engine {
	e := &Engine{
		ledger: l,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the ledger the engine applies records to.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// Process consumes src until io.EOF. It returns an error only when the source
// itself fails; records applied before the failure stay applied.
func (e *Engine) Process(src Source) (Summary, error) {
	sum := Summary{
		Batch:    uuid.NewString(),
		ByReason: make(map[string]int),
	}
	log := e.logger.With(zap.String("batch", sum.Batch))

	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, model.ErrMalformedRecord) {
			log.Error("record source failed", zap.Int("records", sum.Records), zap.Error(err))
			return sum, fmt.Errorf("reading record %d: %w", sum.Records+1, err)
		}
		sum.Records++

		if err == nil {
			err = e.Apply(rec)
		}

		if err != nil {
			sum.Skipped++
			sum.ByReason[model.Reason(err)]++
			e.reject(log, Rejection{Batch: sum.Batch, Seq: sum.Records, Record: rec, Err: err})
			continue
		}
		sum.Applied++
	}

	log.Info("batch processed",
		zap.Int("records", sum.Records),
		zap.Int("applied", sum.Applied),
		zap.Int("skipped", sum.Skipped),
		zap.Int("accounts", e.ledger.Len()),
		zap.Int("transactions", e.ledger.TransactionCount()),
	)
	return sum, nil
}

// Apply applies a single record. A non-nil error means the record was
// rejected and the ledger is unchanged, apart from a deposit or withdrawal
// creating its client's account.
func (e *Engine) Apply(rec model.Record) error {
	switch rec.Type {
	case model.TxDeposit:
		return e.deposit(rec)
	case model.TxWithdrawal:
		return e.withdraw(rec)
	case model.TxDispute:
		return e.settle(rec, e.ledger.ApplyDispute)
	case model.TxResolve:
		return e.settle(rec, e.ledger.ApplyResolve)
	case model.TxChargeback:
		return e.settle(rec, e.ledger.ApplyChargeback)
	default:
		return fmt.Errorf("type %q: %w", rec.Type, model.ErrMalformedRecord)
	}
}

func (e *Engine) deposit(rec model.Record) error {
	amount, err := e.prepare(rec)
	if err != nil {
		return err
	}
	if err := e.ledger.ApplyDeposit(rec.Client, amount); err != nil {
		return err
	}
	return e.ledger.RecordTransaction(rec.Tx, rec.Client, model.KindDeposit, amount)
}

func (e *Engine) withdraw(rec model.Record) error {
	amount, err := e.prepare(rec)
	if err != nil {
		return err
	}
	if err := e.ledger.ApplyWithdrawal(rec.Client, amount); err != nil {
		return err
	}
	return e.ledger.RecordTransaction(rec.Tx, rec.Client, model.KindWithdrawal, amount)
}

// prepare creates the client's account and checks everything that can fail
// before balances move, so the apply-then-record pair in deposit and
// withdraw cannot half-succeed. The sign is checked before rounding.
func (e *Engine) prepare(rec model.Record) (decimal.Decimal, error) {
	e.ledger.GetOrCreateAccount(rec.Client)

	if rec.Type.RequiresAmount() && !rec.Amount.Valid {
		return decimal.Decimal{}, fmt.Errorf("%s tx %d: missing amount: %w", rec.Type, rec.Tx, model.ErrMalformedRecord)
	}
	if rec.Amount.Decimal.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%s tx %d: negative amount %s: %w", rec.Type, rec.Tx, rec.Amount.Decimal, model.ErrMalformedRecord)
	}
	if _, ok := e.ledger.FindTransaction(rec.Tx); ok {
		return decimal.Decimal{}, fmt.Errorf("tx %d: %w", rec.Tx, model.ErrDuplicateTransaction)
	}
	return model.RoundAmount(rec.Amount.Decimal), nil
}

// settle runs a dispute lifecycle step after checking the referenced
// transaction belongs to the record's client.
func (e *Engine) settle(rec model.Record, apply func(tx uint32) error) error {
	tx, ok := e.ledger.FindTransaction(rec.Tx)
	if !ok {
		return fmt.Errorf("%s tx %d: %w", rec.Type, rec.Tx, model.ErrTransactionNotFound)
	}
	if tx.Client != rec.Client {
		return fmt.Errorf("%s tx %d: owned by client %d, not %d: %w",
			rec.Type, rec.Tx, tx.Client, rec.Client, model.ErrTransactionNotFound)
	}
	return apply(rec.Tx)
}

func (e *Engine) reject(log *zap.Logger, r Rejection) {
	log.Warn("record skipped",
		zap.Int("seq", r.Seq),
		zap.String("type", string(r.Record.Type)),
		zap.Uint16("client", r.Record.Client),
		zap.Uint32("tx", r.Record.Tx),
		zap.String("reason", model.Reason(r.Err)),
		zap.Error(r.Err),
	)
	if e.onReject != nil {
		e.onReject(r)
	}
}
