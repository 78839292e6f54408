package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/punchamoorthee/expensemanager/internal/auth"
	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/models"
	"github.com/punchamoorthee/expensemanager/internal/store"
	"github.com/punchamoorthee/expensemanager/internal/views"
)

type AccountService struct {
	accounts store.AccountStore
	views    views.Cacher
	log      zerolog.Logger
}

func NewAccountService(accounts store.AccountStore, v views.Cacher, log zerolog.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		views:    v,
		log:      log.With().Str("component", "accounts").Logger(),
	}
}

// Create opens an account whose current balance starts at the initial balance.
func (s *AccountService) Create(ctx context.Context, req models.AccountRequest) (*domain.Account, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateAccount(req); err != nil {
		return nil, err
	}
	if !req.InitialBalance.Equal(req.InitialBalance.Round(2)) {
		return nil, fmt.Errorf("%w: initial_balance has more than two decimal places", domain.ErrInvalidInput)
	}

	a := &domain.Account{
		UserID:         owner,
		Name:           strings.TrimSpace(req.Name),
		Type:           req.Type,
		InitialBalance: req.InitialBalance,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if err := s.accounts.InsertAccount(ctx, a); err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", a.ID.String()).Str("user_id", owner.String()).Msg("account created")
	s.invalidate(owner)
	return a, nil
}

// Update renames, retypes or (de)activates an account. Balances are never
// touched here; initial_balance in the request is ignored.
func (s *AccountService) Update(ctx context.Context, id uuid.UUID, req models.AccountRequest) (*domain.Account, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateAccount(req); err != nil {
		return nil, err
	}

	a, err := s.accounts.GetAccount(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	a.Name = strings.TrimSpace(req.Name)
	a.Type = req.Type
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	if err := s.accounts.UpdateAccount(ctx, a); err != nil {
		return nil, err
	}

	s.invalidate(owner)
	return a, nil
}

// Delete removes an account with no transactions. System accounts are
// protected and accounts with transactions are rejected.
func (s *AccountService) Delete(ctx context.Context, id uuid.UUID) error {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	a, err := s.accounts.GetAccount(ctx, id, owner)
	if err != nil {
		return err
	}
	if a.IsSystem {
		return domain.ErrSystemEntityProtected
	}
	if err := s.accounts.DeleteAccount(ctx, id, owner); err != nil {
		return err
	}

	s.log.Info().Str("account_id", id.String()).Msg("account deleted")
	s.invalidate(owner)
	return nil
}

func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.accounts.GetAccount(ctx, id, owner)
}

func (s *AccountService) List(ctx context.Context, activeOnly bool) ([]*domain.Account, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	load := func() ([]*domain.Account, error) {
		return s.accounts.ListAccounts(ctx, owner, store.AccountFilter{ActiveOnly: activeOnly})
	}
	if activeOnly {
		return load()
	}
	return views.Cached(s.views, owner, views.KeyAccounts, load)
}

func (s *AccountService) invalidate(owner uuid.UUID) {
	s.views.MarkStale(owner, views.KeyAccounts, views.KeyDashboard)
}

func validateAccount(req models.AccountRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if !req.Type.Valid() {
		return fmt.Errorf("%w: unknown account type %q", domain.ErrInvalidInput, req.Type)
	}
	return nil
}
