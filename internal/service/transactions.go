package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/punchamoorthee/expensemanager/internal/auth"
	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/ledger"
	"github.com/punchamoorthee/expensemanager/internal/models"
	"github.com/punchamoorthee/expensemanager/internal/store"
	"github.com/punchamoorthee/expensemanager/internal/views"
)

// TransactionService is the entry point for transaction mutations. It
// resolves the caller, runs the ledger and marks the caller's views stale.
type TransactionService struct {
	ledger *ledger.Ledger
	txs    store.TransactionStore
	views  views.Cacher
	log    zerolog.Logger
}

func NewTransactionService(l *ledger.Ledger, txs store.TransactionStore, v views.Cacher, log zerolog.Logger) *TransactionService {
	return &TransactionService{
		ledger: l,
		txs:    txs,
		views:  v,
		log:    log.With().Str("component", "transactions").Logger(),
	}
}

func (s *TransactionService) Create(ctx context.Context, req models.TransactionRequest) (*domain.Transaction, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	e, err := toEntry(req)
	if err != nil {
		return nil, err
	}

	t, err := s.ledger.Create(ctx, owner, e)
	if err != nil {
		return nil, err
	}
	s.invalidate(owner)
	return t, nil
}

func (s *TransactionService) Update(ctx context.Context, id uuid.UUID, req models.TransactionRequest) (*domain.Transaction, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	e, err := toEntry(req)
	if err != nil {
		return nil, err
	}

	t, err := s.ledger.Update(ctx, owner, id, e)
	if err != nil {
		return nil, err
	}
	s.invalidate(owner)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, id uuid.UUID) error {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if err := s.ledger.Delete(ctx, owner, id); err != nil {
		return err
	}
	s.invalidate(owner)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.txs.GetTransaction(ctx, id, owner)
}

// List returns the caller's transactions, newest first. The unfiltered
// listing is served from the view cache.
func (s *TransactionService) List(ctx context.Context, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, fmt.Errorf("%w: to is before from", domain.ErrInvalidInput)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: negative limit or offset", domain.ErrInvalidInput)
	}

	load := func() ([]*domain.Transaction, error) { return s.txs.ListTransactions(ctx, owner, filter) }
	if filter == (store.TransactionFilter{}) {
		return views.Cached(s.views, owner, views.KeyTransactions, load)
	}
	return load()
}

func (s *TransactionService) invalidate(owner uuid.UUID) {
	s.views.MarkStale(owner, views.KeyAccounts, views.KeyTransactions, views.KeyDashboard)
}

func toEntry(req models.TransactionRequest) (ledger.Entry, error) {
	amount, err := domain.NewSignedAmount(req.Type, req.Amount)
	if err != nil {
		return ledger.Entry{}, err
	}
	return ledger.Entry{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Description: req.Description,
		Date:        req.TransactionDate.Time,
	}, nil
}
