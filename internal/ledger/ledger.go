// Package ledger keeps account balances consistent with their transactions.
//
// Every create, edit and delete of a transaction moves the owning account's
// cached balance by the transaction's signed amount. Two modes exist:
//
//   - ModeAtomic runs each mutation inside one store transaction and changes
//     balances with in-place increments. An edit that keeps the account
//     applies a single net delta.
//   - ModeReadModifyWrite reads the balance and writes it back in separate
//     round trips with no surrounding transaction. Concurrent mutations on one
//     account can lose updates and a failed step is not compensated.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/store"
)

// Mode selects how balance adjustments reach the store.
type Mode string

const (
	ModeAtomic          Mode = "atomic"
	ModeReadModifyWrite Mode = "read-modify-write"
)

// ParseMode accepts the config spelling of a Mode. Empty means atomic.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAtomic:
		return ModeAtomic, nil
	case ModeReadModifyWrite, "rmw":
		return ModeReadModifyWrite, nil
	}
	return "", fmt.Errorf("unknown balance mode %q", s)
}

var adjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_balance_adjustments_total",
	Help: "Balance adjustments applied, labeled by operation, mode and outcome",
}, []string{"op", "mode", "outcome"})

// Entry is the user-supplied part of a transaction.
type Entry struct {
	AccountID   uuid.UUID
	CategoryID  *uuid.UUID
	Amount      domain.SignedAmount
	Description *string
	Date        time.Time
}

// Ledger runs the balance adjustment protocol.
type Ledger struct {
	store store.Store
	mode  Mode
	log   zerolog.Logger
}

// New returns a Ledger writing through s.
func New(s store.Store, mode Mode, log zerolog.Logger) *Ledger {
	return &Ledger{
		store: s,
		mode:  mode,
		log:   log.With().Str("component", "ledger").Str("mode", string(mode)).Logger(),
	}
}

// Mode reports the active adjustment mode.
func (l *Ledger) Mode() Mode { return l.mode }

// Create inserts a transaction and applies its delta to the account.
func (l *Ledger) Create(ctx context.Context, userID uuid.UUID, e Entry) (*domain.Transaction, error) {
	t, err := newTransaction(userID, e)
	if err != nil {
		return nil, err
	}

	if l.mode == ModeAtomic {
		err = l.store.ExecTx(ctx, func(q store.Querier) error {
			if err := checkRefs(ctx, q, userID, e); err != nil {
				return err
			}
			if err := q.InsertTransaction(ctx, t); err != nil {
				return err
			}
			return l.apply(ctx, q, t)
		})
	} else {
		err = l.createRMW(ctx, userID, e, t)
	}
	l.observe("create", err)
	if err != nil {
		return nil, err
	}

	l.log.Info().
		Str("transaction_id", t.ID.String()).
		Str("account_id", t.AccountID.String()).
		Str("delta", t.Delta().String()).
		Msg("transaction created")
	return t, nil
}

func (l *Ledger) createRMW(ctx context.Context, userID uuid.UUID, e Entry, t *domain.Transaction) error {
	if err := checkRefs(ctx, l.store, userID, e); err != nil {
		return err
	}
	if err := l.store.InsertTransaction(ctx, t); err != nil {
		return err
	}
	return l.apply(ctx, l.store, t)
}

// Update replaces a transaction. The old delta is reversed from the old
// account and the new delta applied to the (possibly different) new account.
func (l *Ledger) Update(ctx context.Context, userID, id uuid.UUID, e Entry) (*domain.Transaction, error) {
	next, err := newTransaction(userID, e)
	if err != nil {
		return nil, err
	}
	next.ID = id

	if l.mode == ModeAtomic {
		err = l.store.ExecTx(ctx, func(q store.Querier) error {
			prev, err := q.LockTransaction(ctx, id, userID)
			if err != nil {
				return err
			}
			if err := checkRefs(ctx, q, userID, e); err != nil {
				return err
			}
			if err := q.UpdateTransaction(ctx, next); err != nil {
				return err
			}
			if prev.AccountID == next.AccountID {
				return l.adjust(ctx, q, next.AccountID, next.Delta().Sub(prev.Delta()))
			}
			if err := l.reverse(ctx, q, prev); err != nil {
				return err
			}
			return l.apply(ctx, q, next)
		})
	} else {
		err = l.updateRMW(ctx, userID, id, e, next)
	}
	l.observe("update", err)
	if err != nil {
		return nil, err
	}

	l.log.Info().
		Str("transaction_id", id.String()).
		Str("account_id", next.AccountID.String()).
		Str("delta", next.Delta().String()).
		Msg("transaction updated")
	return next, nil
}

// updateRMW issues reverse, persist and re-apply as three independent
// steps. A failure after the reversal leaves the old account reversed.
func (l *Ledger) updateRMW(ctx context.Context, userID, id uuid.UUID, e Entry, next *domain.Transaction) error {
	prev, err := l.store.GetTransaction(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := checkRefs(ctx, l.store, userID, e); err != nil {
		return err
	}
	if err := l.reverse(ctx, l.store, prev); err != nil {
		return err
	}
	if err := l.store.UpdateTransaction(ctx, next); err != nil {
		return err
	}
	return l.apply(ctx, l.store, next)
}

// Delete reverses a transaction's delta and removes the row.
func (l *Ledger) Delete(ctx context.Context, userID, id uuid.UUID) error {
	var err error
	if l.mode == ModeAtomic {
		err = l.store.ExecTx(ctx, func(q store.Querier) error {
			t, err := q.LockTransaction(ctx, id, userID)
			if err != nil {
				return err
			}
			if err := q.DeleteTransaction(ctx, id, userID); err != nil {
				return err
			}
			return l.reverse(ctx, q, t)
		})
	} else {
		err = l.deleteRMW(ctx, userID, id)
	}
	l.observe("delete", err)
	if err != nil {
		return err
	}

	l.log.Info().Str("transaction_id", id.String()).Msg("transaction deleted")
	return nil
}

func (l *Ledger) deleteRMW(ctx context.Context, userID, id uuid.UUID) error {
	t, err := l.store.GetTransaction(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := l.reverse(ctx, l.store, t); err != nil {
		return err
	}
	return l.store.DeleteTransaction(ctx, id, userID)
}

func (l *Ledger) apply(ctx context.Context, q store.Querier, t *domain.Transaction) error {
	return l.adjust(ctx, q, t.AccountID, t.Signed().Delta())
}

func (l *Ledger) reverse(ctx context.Context, q store.Querier, t *domain.Transaction) error {
	return l.adjust(ctx, q, t.AccountID, t.Signed().Inverse())
}

// adjust moves an account balance by delta. A missing account is an
// error in both modes.
func (l *Ledger) adjust(ctx context.Context, q store.Querier, accountID uuid.UUID, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}

	if l.mode == ModeAtomic {
		balance, err := q.AdjustAccountBalance(ctx, accountID, delta)
		if err != nil {
			return fmt.Errorf("adjust balance of %s: %w", accountID, err)
		}
		l.log.Debug().Str("account_id", accountID.String()).Str("delta", delta.String()).
			Str("balance", balance.String()).Msg("balance adjusted")
		return nil
	}

	balance, err := q.GetAccountBalance(ctx, accountID)
	if err != nil {
		return fmt.Errorf("read balance of %s: %w", accountID, err)
	}
	if err := q.SetAccountBalance(ctx, accountID, balance.Add(delta)); err != nil {
		return fmt.Errorf("write balance of %s: %w", accountID, err)
	}
	l.log.Debug().Str("account_id", accountID.String()).Str("delta", delta.String()).
		Str("balance", balance.Add(delta).String()).Msg("balance written")
	return nil
}

func (l *Ledger) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	adjustmentsTotal.WithLabelValues(op, string(l.mode), outcome).Inc()
}

func newTransaction(userID uuid.UUID, e Entry) (*domain.Transaction, error) {
	amount := e.Amount.Amount()
	if !e.Amount.Type().Valid() || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be a positive income or expense", domain.ErrInvalidInput)
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, fmt.Errorf("%w: amount has more than two decimal places", domain.ErrInvalidInput)
	}
	if e.AccountID == uuid.Nil {
		return nil, fmt.Errorf("%w: account_id is required", domain.ErrInvalidInput)
	}
	if e.Date.IsZero() {
		return nil, fmt.Errorf("%w: transaction_date is required", domain.ErrInvalidInput)
	}

	y, m, d := e.Date.Date()
	return &domain.Transaction{
		UserID:          userID,
		AccountID:       e.AccountID,
		CategoryID:      e.CategoryID,
		Type:            e.Amount.Type(),
		Amount:          amount,
		Description:     e.Description,
		TransactionDate: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
	}, nil
}

// checkRefs verifies the account belongs to the caller and the category,
// when set, is visible to the caller and matches the transaction type.
func checkRefs(ctx context.Context, q store.Querier, userID uuid.UUID, e Entry) error {
	if _, err := q.GetAccount(ctx, e.AccountID, userID); err != nil {
		return fmt.Errorf("account %s: %w", e.AccountID, err)
	}
	if e.CategoryID == nil {
		return nil
	}
	c, err := q.GetCategory(ctx, *e.CategoryID, userID)
	if err != nil {
		return fmt.Errorf("category %s: %w", *e.CategoryID, err)
	}
	if c.Type != e.Amount.Type() {
		return fmt.Errorf("%w: category %q is for %s transactions", domain.ErrInvalidInput, c.Name, c.Type)
	}
	return nil
}
