package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/expensemanager/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	*pgQueries
	Db *pgxpool.Pool
}

type pgQueries struct {
	db dbtx
}

// NewPostgresStore connects and pings.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return NewPostgresStoreFromPool(pool), nil
}

// NewPostgresStoreFromPool wraps an existing pool.
func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pgQueries: &pgQueries{db: pool}, Db: pool}
}

func (s *PostgresStore) Close() {
	s.Db.Close()
}

// ExecTx runs fn in a READ COMMITTED transaction. Balance changes use
// in-place increments and transaction rows are taken FOR UPDATE, so a
// stronger isolation level would only add serialization aborts.
func (s *PostgresStore) ExecTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.Db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return domain.NewStoreError("begin", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgQueries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.NewStoreError("commit", err)
	}
	return nil
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return domain.NewStoreError(op, err)
}

// --- accounts ---

const accountColumns = `id, user_id, name, type, initial_balance, current_balance, is_system, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.InitialBalance, &a.CurrentBalance,
		&a.IsSystem, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (q *pgQueries) InsertAccount(ctx context.Context, a *domain.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO accounts (id, user_id, name, type, initial_balance, current_balance, is_system, is_active)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7)
		RETURNING current_balance, created_at, updated_at`,
		a.ID, a.UserID, a.Name, a.Type, a.InitialBalance, a.IsSystem, a.IsActive,
	).Scan(&a.CurrentBalance, &a.CreatedAt, &a.UpdatedAt)
	return domain.NewStoreError("insert account", err)
}

func (q *pgQueries) GetAccount(ctx context.Context, id, userID uuid.UUID) (*domain.Account, error) {
	a, err := scanAccount(q.db.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = $1 AND user_id = $2", id, userID))
	if err != nil {
		return nil, notFoundOr("get account", err)
	}
	return a, nil
}

func (q *pgQueries) ListAccounts(ctx context.Context, userID uuid.UUID, filter AccountFilter) ([]*domain.Account, error) {
	sql := "SELECT " + accountColumns + " FROM accounts WHERE user_id = $1"
	if filter.ActiveOnly {
		sql += " AND is_active"
	}
	sql += " ORDER BY created_at DESC"
	args := []any{userID}
	if filter.Limit > 0 {
		sql += " LIMIT $2"
		args = append(args, filter.Limit)
	}
	return q.queryAccounts(ctx, "list accounts", sql, args...)
}

func (q *pgQueries) ListAllAccounts(ctx context.Context) ([]*domain.Account, error) {
	return q.queryAccounts(ctx, "list all accounts", "SELECT "+accountColumns+" FROM accounts ORDER BY created_at")
}

func (q *pgQueries) queryAccounts(ctx context.Context, op, sql string, args ...any) ([]*domain.Account, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewStoreError(op, err)
	}
	defer rows.Close()

	accounts := []*domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, domain.NewStoreError(op, err)
		}
		accounts = append(accounts, a)
	}
	return accounts, domain.NewStoreError(op, rows.Err())
}

func (q *pgQueries) UpdateAccount(ctx context.Context, a *domain.Account) error {
	err := q.db.QueryRow(ctx, `
		UPDATE accounts SET name = $3, type = $4, is_active = $5, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+accountColumns,
		a.ID, a.UserID, a.Name, a.Type, a.IsActive,
	).Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.InitialBalance, &a.CurrentBalance,
		&a.IsSystem, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return notFoundOr("update account", err)
	}
	return nil
}

func (q *pgQueries) DeleteAccount(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, "DELETE FROM accounts WHERE id = $1 AND user_id = $2 AND NOT is_system", id, userID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return domain.ErrAccountInUse
		}
		return domain.NewStoreError("delete account", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (q *pgQueries) GetAccountBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.db.QueryRow(ctx, "SELECT current_balance FROM accounts WHERE id = $1", id).Scan(&balance)
	if err != nil {
		return decimal.Zero, notFoundOr("get balance", err)
	}
	return balance, nil
}

func (q *pgQueries) SetAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	tag, err := q.db.Exec(ctx,
		"UPDATE accounts SET current_balance = $2, updated_at = now() WHERE id = $1", id, balance)
	if err != nil {
		return domain.NewStoreError("set balance", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (q *pgQueries) AdjustAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.db.QueryRow(ctx, `
		UPDATE accounts SET current_balance = current_balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING current_balance`, id, delta).Scan(&balance)
	if err != nil {
		return decimal.Zero, notFoundOr("adjust balance", err)
	}
	return balance, nil
}

// --- transactions ---

const transactionColumns = `id, user_id, account_id, category_id, type, amount, description, transaction_date, created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &t.Type, &t.Amount,
		&t.Description, &t.TransactionDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *pgQueries) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, account_id, category_id, type, amount, description, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.AccountID, t.CategoryID, t.Type, t.Amount, t.Description, t.TransactionDate,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if isPgError(err, pgForeignKeyViolation) {
		return domain.ErrNotFound
	}
	return domain.NewStoreError("insert transaction", err)
}

func (q *pgQueries) GetTransaction(ctx context.Context, id, userID uuid.UUID) (*domain.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = $1 AND user_id = $2", id, userID))
	if err != nil {
		return nil, notFoundOr("get transaction", err)
	}
	return t, nil
}

func (q *pgQueries) LockTransaction(ctx context.Context, id, userID uuid.UUID) (*domain.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = $1 AND user_id = $2 FOR UPDATE", id, userID))
	if err != nil {
		return nil, notFoundOr("lock transaction", err)
	}
	return t, nil
}

func (q *pgQueries) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	err := q.db.QueryRow(ctx, `
		UPDATE transactions
		SET account_id = $3, category_id = $4, type = $5, amount = $6, description = $7,
		    transaction_date = $8, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.AccountID, t.CategoryID, t.Type, t.Amount, t.Description, t.TransactionDate,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return domain.ErrNotFound
		}
		return notFoundOr("update transaction", err)
	}
	return nil
}

func (q *pgQueries) DeleteTransaction(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, "DELETE FROM transactions WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return domain.NewStoreError("delete transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (q *pgQueries) ListTransactions(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]*domain.Transaction, error) {
	var (
		where = []string{"user_id = $1"}
		args  = []any{userID}
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.AccountID != nil {
		add("account_id = $%d", *filter.AccountID)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if !filter.From.IsZero() {
		add("transaction_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("transaction_date <= $%d", filter.To)
	}

	sql := "SELECT " + transactionColumns + " FROM transactions WHERE " + strings.Join(where, " AND ") +
		" ORDER BY transaction_date DESC, created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewStoreError("list transactions", err)
	}
	defer rows.Close()

	txs := []*domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, domain.NewStoreError("list transactions", err)
		}
		txs = append(txs, t)
	}
	return txs, domain.NewStoreError("list transactions", rows.Err())
}

func (q *pgQueries) SumTransactions(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE -amount END), 0)
		FROM transactions WHERE account_id = $1`, accountID).Scan(&sum)
	if err != nil {
		return decimal.Zero, domain.NewStoreError("sum transactions", err)
	}
	return sum, nil
}

// --- categories ---

const categoryColumns = `id, user_id, name, type, color, icon, is_system, is_active, created_at, updated_at`

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Color, &c.Icon,
		&c.IsSystem, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *pgQueries) InsertCategory(ctx context.Context, c *domain.Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO categories (id, user_id, name, type, color, icon, is_system, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.Name, c.Type, c.Color, c.Icon, c.IsSystem, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return domain.NewStoreError("insert category", err)
}

func (q *pgQueries) GetCategory(ctx context.Context, id, userID uuid.UUID) (*domain.Category, error) {
	c, err := scanCategory(q.db.QueryRow(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = $1 AND (user_id = $2 OR user_id IS NULL)", id, userID))
	if err != nil {
		return nil, notFoundOr("get category", err)
	}
	return c, nil
}

func (q *pgQueries) ListCategories(ctx context.Context, userID uuid.UUID, filter CategoryFilter) ([]*domain.Category, error) {
	sql := "SELECT " + categoryColumns + " FROM categories WHERE (user_id = $1 OR user_id IS NULL)"
	args := []any{userID}
	if filter.ActiveOnly {
		sql += " AND is_active"
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		sql += fmt.Sprintf(" AND type = $%d", len(args))
	}
	sql += " ORDER BY is_system, created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewStoreError("list categories", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, domain.NewStoreError("list categories", err)
		}
		categories = append(categories, c)
	}
	return categories, domain.NewStoreError("list categories", rows.Err())
}

func (q *pgQueries) UpdateCategory(ctx context.Context, c *domain.Category) error {
	err := q.db.QueryRow(ctx, `
		UPDATE categories SET name = $3, type = $4, color = $5, icon = $6, is_active = $7, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING is_system, created_at, updated_at`,
		c.ID, c.UserID, c.Name, c.Type, c.Color, c.Icon, c.IsActive,
	).Scan(&c.IsSystem, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return notFoundOr("update category", err)
	}
	return nil
}

func (q *pgQueries) DeleteCategory(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, "DELETE FROM categories WHERE id = $1 AND user_id = $2 AND NOT is_system", id, userID)
	if err != nil {
		return domain.NewStoreError("delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// --- users ---

const userColumns = `id, email, full_name, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (q *pgQueries) InsertUser(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO users (id, email, full_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.FullName, u.PasswordHash,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if isPgError(err, pgUniqueViolation) {
		return domain.ErrEmailTaken
	}
	return domain.NewStoreError("insert user", err)
}

func (q *pgQueries) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return nil, notFoundOr("get user", err)
	}
	return u, nil
}

func (q *pgQueries) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if err != nil {
		return nil, notFoundOr("get user by email", err)
	}
	return u, nil
}

func (q *pgQueries) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := q.db.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, domain.NewStoreError("list users", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, domain.NewStoreError("list users", err)
		}
		users = append(users, u)
	}
	return users, domain.NewStoreError("list users", rows.Err())
}

// --- reports ---

func (q *pgQueries) MonthlySummary(ctx context.Context, userID uuid.UUID, year, month int) (*domain.MonthlySummary, error) {
	start, end := monthRange(year, month)
	s := &domain.MonthlySummary{Year: year, Month: month}
	err := q.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0)
		FROM transactions
		WHERE user_id = $1 AND transaction_date >= $2 AND transaction_date < $3`,
		userID, start, end).Scan(&s.TotalIncome, &s.TotalExpense)
	if err != nil {
		return nil, domain.NewStoreError("monthly summary", err)
	}
	s.Net = s.TotalIncome.Sub(s.TotalExpense)
	return s, nil
}

func (q *pgQueries) IncomeByCategory(ctx context.Context, userID uuid.UUID, year, month int) ([]domain.CategoryTotal, error) {
	start, end := monthRange(year, month)
	rows, err := q.db.Query(ctx, `
		SELECT t.category_id, COALESCE(c.name, 'Uncategorized'), SUM(t.amount)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = $1 AND t.type = 'income'
		  AND t.transaction_date >= $2 AND t.transaction_date < $3
		GROUP BY t.category_id, c.name
		ORDER BY SUM(t.amount) DESC`, userID, start, end)
	if err != nil {
		return nil, domain.NewStoreError("income by category", err)
	}
	defer rows.Close()

	totals := []domain.CategoryTotal{}
	for rows.Next() {
		var ct domain.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.CategoryName, &ct.Total); err != nil {
			return nil, domain.NewStoreError("income by category", err)
		}
		totals = append(totals, ct)
	}
	return totals, domain.NewStoreError("income by category", rows.Err())
}

func (q *pgQueries) DailyExpenseTrend(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.DailyTotal, error) {
	rows, err := q.db.Query(ctx, `
		SELECT d::date, COALESCE(SUM(t.amount), 0)
		FROM generate_series($2::date, $3::date, interval '1 day') AS d
		LEFT JOIN transactions t
		  ON t.transaction_date = d::date AND t.user_id = $1 AND t.type = 'expense'
		GROUP BY d
		ORDER BY d`, userID, from, to)
	if err != nil {
		return nil, domain.NewStoreError("daily expense trend", err)
	}
	defer rows.Close()

	days := []domain.DailyTotal{}
	for rows.Next() {
		var dt domain.DailyTotal
		if err := rows.Scan(&dt.Day, &dt.Total); err != nil {
			return nil, domain.NewStoreError("daily expense trend", err)
		}
		days = append(days, dt)
	}
	return days, domain.NewStoreError("daily expense trend", rows.Err())
}

func (q *pgQueries) BalancePerAccount(ctx context.Context, userID uuid.UUID) ([]domain.AccountBalance, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, current_balance FROM accounts
		WHERE user_id = $1 AND is_active
		ORDER BY name`, userID)
	if err != nil {
		return nil, domain.NewStoreError("balance per account", err)
	}
	defer rows.Close()

	balances := []domain.AccountBalance{}
	for rows.Next() {
		var ab domain.AccountBalance
		if err := rows.Scan(&ab.AccountID, &ab.AccountName, &ab.Balance); err != nil {
			return nil, domain.NewStoreError("balance per account", err)
		}
		balances = append(balances, ab)
	}
	return balances, domain.NewStoreError("balance per account", rows.Err())
}

func (q *pgQueries) AccountStatement(ctx context.Context, userID, accountID uuid.UUID, limit int) ([]domain.StatementLine, error) {
	rows, err := q.db.Query(ctx, `
		SELECT t.id, t.transaction_date, t.type, COALESCE(c.name, ''), t.amount, COALESCE(t.description, '')
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = $1 AND t.account_id = $2
		ORDER BY t.transaction_date DESC, t.created_at DESC
		LIMIT $3`, userID, accountID, limit)
	if err != nil {
		return nil, domain.NewStoreError("account statement", err)
	}
	defer rows.Close()

	lines := []domain.StatementLine{}
	for rows.Next() {
		var l domain.StatementLine
		if err := rows.Scan(&l.TransactionID, &l.TransactionDate, &l.Type, &l.Category, &l.Amount, &l.Description); err != nil {
			return nil, domain.NewStoreError("account statement", err)
		}
		lines = append(lines, l)
	}
	return lines, domain.NewStoreError("account statement", rows.Err())
}

// RecomputeBalances rewrites every cached balance from the transactions.
// Used after bulk loads that bypass the ledger.
func (s *PostgresStore) RecomputeBalances(ctx context.Context) (int64, error) {
	tag, err := s.Db.Exec(ctx, `
		UPDATE accounts a
		SET current_balance = a.initial_balance + COALESCE((
			SELECT SUM(CASE WHEN t.type = 'income' THEN t.amount ELSE -t.amount END)
			FROM transactions t WHERE t.account_id = a.id
		), 0),
		updated_at = now()`)
	if err != nil {
		return 0, domain.NewStoreError("recompute balances", err)
	}
	return tag.RowsAffected(), nil
}

var _ Store = (*PostgresStore)(nil)
