package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/expensemanager/internal/domain"
)

// MemoryStore is an in-process Store for tests and local development.
// Individual calls are safe for concurrent use. ExecTx serializes with
// other ExecTx calls and, when fn fails, restores the rows fn wrote. Calls
// made outside ExecTx are not isolated from it.
type MemoryStore struct {
	mu           sync.RWMutex
	txMu         sync.Mutex
	users        map[uuid.UUID]*domain.User
	accounts     map[uuid.UUID]*domain.Account
	categories   map[uuid.UUID]*domain.Category
	transactions map[uuid.UUID]*domain.Transaction
	now          func() time.Time
}

// NewMemoryStore returns an empty store seeded with the system categories.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		users:        make(map[uuid.UUID]*domain.User),
		accounts:     make(map[uuid.UUID]*domain.Account),
		categories:   make(map[uuid.UUID]*domain.Category),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		now:          time.Now,
	}
	for _, c := range SystemCategories() {
		c.CreatedAt = s.now()
		c.UpdatedAt = c.CreatedAt
		s.categories[c.ID] = c
	}
	return s
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) ExecTx(ctx context.Context, fn func(q Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memoryTx{MemoryStore: s, touched: make(map[rowKey]bool)}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type rowKey struct {
	table string
	id    uuid.UUID
}

// memoryTx records the prior state of every row it writes so rollback
// restores only those rows. Writes made outside the transaction survive.
type memoryTx struct {
	*MemoryStore
	touched map[rowKey]bool
	undo    []func()
}

// remember saves rows[id] the first time the transaction touches it.
// Callers hold s.mu.
func remember[T any](tx *memoryTx, table string, rows map[uuid.UUID]*T, id uuid.UUID) {
	k := rowKey{table, id}
	if tx.touched[k] {
		return
	}
	tx.touched[k] = true

	prev, existed := rows[id]
	var saved T
	if existed {
		saved = *prev
	}
	tx.undo = append(tx.undo, func() {
		if !existed {
			delete(rows, id)
			return
		}
		cp := saved
		rows[id] = &cp
	})
}

func (tx *memoryTx) track(fn func()) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	fn()
}

func (tx *memoryTx) rollback() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
}

func (tx *memoryTx) InsertAccount(ctx context.Context, a *domain.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	tx.track(func() { remember(tx, "accounts", tx.accounts, a.ID) })
	return tx.MemoryStore.InsertAccount(ctx, a)
}

func (tx *memoryTx) UpdateAccount(ctx context.Context, a *domain.Account) error {
	tx.track(func() { remember(tx, "accounts", tx.accounts, a.ID) })
	return tx.MemoryStore.UpdateAccount(ctx, a)
}

func (tx *memoryTx) DeleteAccount(ctx context.Context, id, userID uuid.UUID) error {
	tx.track(func() { remember(tx, "accounts", tx.accounts, id) })
	return tx.MemoryStore.DeleteAccount(ctx, id, userID)
}

func (tx *memoryTx) SetAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	tx.track(func() { remember(tx, "accounts", tx.accounts, id) })
	return tx.MemoryStore.SetAccountBalance(ctx, id, balance)
}

func (tx *memoryTx) AdjustAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	tx.track(func() { remember(tx, "accounts", tx.accounts, id) })
	return tx.MemoryStore.AdjustAccountBalance(ctx, id, delta)
}

func (tx *memoryTx) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	tx.track(func() { remember(tx, "transactions", tx.transactions, t.ID) })
	return tx.MemoryStore.InsertTransaction(ctx, t)
}

func (tx *memoryTx) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	tx.track(func() { remember(tx, "transactions", tx.transactions, t.ID) })
	return tx.MemoryStore.UpdateTransaction(ctx, t)
}

func (tx *memoryTx) DeleteTransaction(ctx context.Context, id, userID uuid.UUID) error {
	tx.track(func() { remember(tx, "transactions", tx.transactions, id) })
	return tx.MemoryStore.DeleteTransaction(ctx, id, userID)
}

func (tx *memoryTx) InsertCategory(ctx context.Context, c *domain.Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	tx.track(func() { remember(tx, "categories", tx.categories, c.ID) })
	return tx.MemoryStore.InsertCategory(ctx, c)
}

func (tx *memoryTx) UpdateCategory(ctx context.Context, c *domain.Category) error {
	tx.track(func() { remember(tx, "categories", tx.categories, c.ID) })
	return tx.MemoryStore.UpdateCategory(ctx, c)
}

// DeleteCategory also uncategorizes transactions, so those are saved too.
func (tx *memoryTx) DeleteCategory(ctx context.Context, id, userID uuid.UUID) error {
	tx.track(func() {
		remember(tx, "categories", tx.categories, id)
		for tid, t := range tx.transactions {
			if t.CategoryID != nil && *t.CategoryID == id {
				remember(tx, "transactions", tx.transactions, tid)
			}
		}
	})
	return tx.MemoryStore.DeleteCategory(ctx, id, userID)
}

func (tx *memoryTx) InsertUser(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	tx.track(func() { remember(tx, "users", tx.users, u.ID) })
	return tx.MemoryStore.InsertUser(ctx, u)
}

// --- accounts ---

func (s *MemoryStore) InsertAccount(ctx context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CurrentBalance = a.InitialBalance
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, id, userID uuid.UUID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ListAccounts(ctx context.Context, userID uuid.UUID, filter AccountFilter) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := []*domain.Account{}
	for _, a := range s.accounts {
		if a.UserID != userID || (filter.ActiveOnly && !a.IsActive) {
			continue
		}
		cp := *a
		accounts = append(accounts, &cp)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.After(accounts[j].CreatedAt) })
	if filter.Limit > 0 && filter.Limit < len(accounts) {
		accounts = accounts[:filter.Limit]
	}
	return accounts, nil
}

func (s *MemoryStore) ListAllAccounts(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]*domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		cp := *a
		accounts = append(accounts, &cp)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.Before(accounts[j].CreatedAt) })
	return accounts, nil
}

func (s *MemoryStore) UpdateAccount(ctx context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[a.ID]
	if !ok || existing.UserID != a.UserID {
		return domain.ErrNotFound
	}
	existing.Name = a.Name
	existing.Type = a.Type
	existing.IsActive = a.IsActive
	existing.UpdatedAt = s.now()
	*a = *existing
	return nil
}

func (s *MemoryStore) DeleteAccount(ctx context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || a.UserID != userID || a.IsSystem {
		return domain.ErrNotFound
	}
	for _, t := range s.transactions {
		if t.AccountID == id {
			return domain.ErrAccountInUse
		}
	}
	delete(s.accounts, id)
	return nil
}

func (s *MemoryStore) GetAccountBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	return a.CurrentBalance, nil
}

func (s *MemoryStore) SetAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.CurrentBalance = balance
	a.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) AdjustAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	a.CurrentBalance = a.CurrentBalance.Add(delta)
	a.UpdatedAt = s.now()
	return a.CurrentBalance, nil
}

// --- transactions ---

func (s *MemoryStore) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[t.AccountID]; !ok {
		return domain.ErrNotFound
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	s.transactions[t.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, id, userID uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// LockTransaction needs no row lock here: ExecTx already serializes.
func (s *MemoryStore) LockTransaction(ctx context.Context, id, userID uuid.UUID) (*domain.Transaction, error) {
	return s.GetTransaction(ctx, id, userID)
}

func (s *MemoryStore) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return domain.ErrNotFound
	}
	if _, ok := s.accounts[t.AccountID]; !ok {
		return domain.ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.now()
	cp := *t
	s.transactions[t.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteTransaction(ctx context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return domain.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := []*domain.Transaction{}
	for _, t := range s.transactions {
		if t.UserID != userID {
			continue
		}
		if filter.AccountID != nil && t.AccountID != *filter.AccountID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if !filter.From.IsZero() && t.TransactionDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && t.TransactionDate.After(filter.To) {
			continue
		}
		cp := *t
		txs = append(txs, &cp)
	}
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].TransactionDate.Equal(txs[j].TransactionDate) {
			return txs[i].TransactionDate.After(txs[j].TransactionDate)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(txs) {
			return []*domain.Transaction{}, nil
		}
		txs = txs[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(txs) {
		txs = txs[:filter.Limit]
	}
	return txs, nil
}

func (s *MemoryStore) SumTransactions(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := decimal.Zero
	for _, t := range s.transactions {
		if t.AccountID == accountID {
			sum = sum.Add(t.Delta())
		}
	}
	return sum, nil
}

// --- categories ---

func (s *MemoryStore) InsertCategory(ctx context.Context, c *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetCategory(ctx context.Context, id, userID uuid.UUID) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok || !c.VisibleTo(userID) {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListCategories(ctx context.Context, userID uuid.UUID, filter CategoryFilter) ([]*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := []*domain.Category{}
	for _, c := range s.categories {
		if !c.VisibleTo(userID) || (filter.ActiveOnly && !c.IsActive) {
			continue
		}
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		cp := *c
		categories = append(categories, &cp)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].IsSystem != categories[j].IsSystem {
			return !categories[i].IsSystem
		}
		if !categories[i].CreatedAt.Equal(categories[j].CreatedAt) {
			return categories[i].CreatedAt.After(categories[j].CreatedAt)
		}
		return categories[i].Name < categories[j].Name
	})
	if filter.Limit > 0 && filter.Limit < len(categories) {
		categories = categories[:filter.Limit]
	}
	return categories, nil
}

func (s *MemoryStore) UpdateCategory(ctx context.Context, c *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[c.ID]
	if !ok || existing.UserID == nil || c.UserID == nil || *existing.UserID != *c.UserID {
		return domain.ErrNotFound
	}
	existing.Name = c.Name
	existing.Type = c.Type
	existing.Color = c.Color
	existing.Icon = c.Icon
	existing.IsActive = c.IsActive
	existing.UpdatedAt = s.now()
	*c = *existing
	return nil
}

func (s *MemoryStore) DeleteCategory(ctx context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok || c.IsSystem || c.UserID == nil || *c.UserID != userID {
		return domain.ErrNotFound
	}
	delete(s.categories, id)
	for _, t := range s.transactions {
		if t.CategoryID != nil && *t.CategoryID == id {
			t.CategoryID = nil
		}
	}
	return nil
}

// --- users ---

func (s *MemoryStore) InsertUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

// --- reports ---

func (s *MemoryStore) MonthlySummary(ctx context.Context, userID uuid.UUID, year, month int) (*domain.MonthlySummary, error) {
	start, end := monthRange(year, month)

	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := &domain.MonthlySummary{Year: year, Month: month, TotalIncome: decimal.Zero, TotalExpense: decimal.Zero}
	for _, t := range s.transactions {
		if t.UserID != userID || t.TransactionDate.Before(start) || !t.TransactionDate.Before(end) {
			continue
		}
		if t.Type == domain.TransactionTypeIncome {
			sum.TotalIncome = sum.TotalIncome.Add(t.Amount)
		} else {
			sum.TotalExpense = sum.TotalExpense.Add(t.Amount)
		}
	}
	sum.Net = sum.TotalIncome.Sub(sum.TotalExpense)
	return sum, nil
}

func (s *MemoryStore) IncomeByCategory(ctx context.Context, userID uuid.UUID, year, month int) ([]domain.CategoryTotal, error) {
	start, end := monthRange(year, month)

	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := map[uuid.UUID]*domain.CategoryTotal{}
	for _, t := range s.transactions {
		if t.UserID != userID || t.Type != domain.TransactionTypeIncome ||
			t.TransactionDate.Before(start) || !t.TransactionDate.Before(end) {
			continue
		}
		key := uuid.Nil
		if t.CategoryID != nil {
			key = *t.CategoryID
		}
		ct, ok := byKey[key]
		if !ok {
			ct = &domain.CategoryTotal{CategoryName: "Uncategorized", Total: decimal.Zero}
			if t.CategoryID != nil {
				id := *t.CategoryID
				ct.CategoryID = &id
				if c, ok := s.categories[id]; ok {
					ct.CategoryName = c.Name
				}
			}
			byKey[key] = ct
		}
		ct.Total = ct.Total.Add(t.Amount)
	}

	totals := make([]domain.CategoryTotal, 0, len(byKey))
	for _, ct := range byKey {
		totals = append(totals, *ct)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Total.GreaterThan(totals[j].Total) })
	return totals, nil
}

func (s *MemoryStore) DailyExpenseTrend(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.DailyTotal, error) {
	from = truncateDay(from)
	to = truncateDay(to)

	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := map[time.Time]decimal.Decimal{}
	for _, t := range s.transactions {
		if t.UserID != userID || t.Type != domain.TransactionTypeExpense {
			continue
		}
		day := truncateDay(t.TransactionDate)
		byDay[day] = byDay[day].Add(t.Amount)
	}

	days := []domain.DailyTotal{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, domain.DailyTotal{Day: d, Total: byDay[d]})
	}
	return days, nil
}

func (s *MemoryStore) BalancePerAccount(ctx context.Context, userID uuid.UUID) ([]domain.AccountBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balances := []domain.AccountBalance{}
	for _, a := range s.accounts {
		if a.UserID != userID || !a.IsActive {
			continue
		}
		balances = append(balances, domain.AccountBalance{AccountID: a.ID, AccountName: a.Name, Balance: a.CurrentBalance})
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].AccountName < balances[j].AccountName })
	return balances, nil
}

func (s *MemoryStore) AccountStatement(ctx context.Context, userID, accountID uuid.UUID, limit int) ([]domain.StatementLine, error) {
	id := accountID
	txs, err := s.ListTransactions(ctx, userID, TransactionFilter{AccountID: &id, Limit: limit})
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]domain.StatementLine, 0, len(txs))
	for _, t := range txs {
		l := domain.StatementLine{
			TransactionID:   t.ID,
			TransactionDate: t.TransactionDate,
			Type:            t.Type,
			Amount:          t.Amount,
		}
		if t.CategoryID != nil {
			if c, ok := s.categories[*t.CategoryID]; ok {
				l.Category = c.Name
			}
		}
		if t.Description != nil {
			l.Description = *t.Description
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ Store = (*MemoryStore)(nil)
