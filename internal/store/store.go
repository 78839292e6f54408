package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/expensemanager/internal/domain"
)

// AccountStore persists accounts and their cached balances.
type AccountStore interface {
	InsertAccount(ctx context.Context, a *domain.Account) error
	GetAccount(ctx context.Context, id, userID uuid.UUID) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID uuid.UUID, filter AccountFilter) ([]*domain.Account, error)
	ListAllAccounts(ctx context.Context) ([]*domain.Account, error)
	UpdateAccount(ctx context.Context, a *domain.Account) error
	DeleteAccount(ctx context.Context, id, userID uuid.UUID) error

	// GetAccountBalance reads the cached balance. Not owner-scoped.
	GetAccountBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	// SetAccountBalance overwrites the cached balance.
	SetAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	// AdjustAccountBalance adds delta in a single statement and returns the new balance.
	AdjustAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

// TransactionStore persists transactions.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	GetTransaction(ctx context.Context, id, userID uuid.UUID) (*domain.Transaction, error)
	// LockTransaction is GetTransaction holding a row lock until the
	// surrounding ExecTx finishes.
	LockTransaction(ctx context.Context, id, userID uuid.UUID) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, t *domain.Transaction) error
	DeleteTransaction(ctx context.Context, id, userID uuid.UUID) error
	ListTransactions(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]*domain.Transaction, error)
	// SumTransactions is the signed total of every transaction on an account.
	SumTransactions(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	InsertCategory(ctx context.Context, c *domain.Category) error
	// GetCategory returns an own or system category.
	GetCategory(ctx context.Context, id, userID uuid.UUID) (*domain.Category, error)
	ListCategories(ctx context.Context, userID uuid.UUID, filter CategoryFilter) ([]*domain.Category, error)
	UpdateCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, id, userID uuid.UUID) error
}

// UserStore persists users.
type UserStore interface {
	InsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// ReportStore runs the aggregate queries behind the reports.
type ReportStore interface {
	MonthlySummary(ctx context.Context, userID uuid.UUID, year, month int) (*domain.MonthlySummary, error)
	IncomeByCategory(ctx context.Context, userID uuid.UUID, year, month int) ([]domain.CategoryTotal, error)
	DailyExpenseTrend(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.DailyTotal, error)
	BalancePerAccount(ctx context.Context, userID uuid.UUID) ([]domain.AccountBalance, error)
	AccountStatement(ctx context.Context, userID, accountID uuid.UUID, limit int) ([]domain.StatementLine, error)
}

// Querier is every operation that can run inside or outside a transaction.
type Querier interface {
	AccountStore
	TransactionStore
	CategoryStore
	UserStore
	ReportStore
}

// Store is a Querier that can also run a function atomically.
type Store interface {
	Querier
	// ExecTx runs fn in one transaction. A non-nil error from fn rolls back.
	ExecTx(ctx context.Context, fn func(q Querier) error) error
	Close()
}

// AccountFilter narrows ListAccounts.
type AccountFilter struct {
	ActiveOnly bool
	Limit      int
}

// CategoryFilter narrows ListCategories.
type CategoryFilter struct {
	ActiveOnly bool
	Type       domain.TransactionType
	Limit      int
}

// TransactionFilter narrows ListTransactions. Zero fields do not filter.
type TransactionFilter struct {
	AccountID *uuid.UUID
	Type      domain.TransactionType
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// monthRange returns [first day of month, first day of next month).
func monthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
