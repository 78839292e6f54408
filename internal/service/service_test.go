package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/expensemanager/internal/auth"
	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/ledger"
	"github.com/punchamoorthee/expensemanager/internal/models"
	"github.com/punchamoorthee/expensemanager/internal/store"
	"github.com/punchamoorthee/expensemanager/internal/views"
)

type fixture struct {
	store      *store.MemoryStore
	cache      *views.Cache
	txs        *TransactionService
	accounts   *AccountService
	categories *CategoryService
	dashboard  *DashboardService
	owner      uuid.UUID
	ctx        context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewMemoryStore()
	cache := views.NewCache(0)
	log := zerolog.Nop()
	owner := uuid.New()
	return &fixture{
		store:      s,
		cache:      cache,
		txs:        NewTransactionService(ledger.New(s, ledger.ModeAtomic, log), s, cache, log),
		accounts:   NewAccountService(s, cache, log),
		categories: NewCategoryService(s, cache, log),
		dashboard:  NewDashboardService(s, cache),
		owner:      owner,
		ctx:        auth.WithUser(context.Background(), owner),
	}
}

func (f *fixture) account(t *testing.T, name, initial string) *domain.Account {
	t.Helper()
	a, err := f.accounts.Create(f.ctx, models.AccountRequest{
		Name:           name,
		Type:           domain.AccountTypeBank,
		InitialBalance: decimal.RequireFromString(initial),
	})
	if err != nil {
		t.Fatalf("Create account: %v", err)
	}
	return a
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	a, err := f.store.GetAccount(context.Background(), id, f.owner)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	return a.CurrentBalance
}

func txRequest(accountID uuid.UUID, kind domain.TransactionType, amount string) models.TransactionRequest {
	return models.TransactionRequest{
		AccountID:       accountID,
		Type:            kind,
		Amount:          decimal.RequireFromString(amount),
		TransactionDate: models.Date{Time: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
	}
}

func TestMutationsRequireIdentity(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "Checking", "100")
	anon := context.Background()

	if _, err := f.txs.Create(anon, txRequest(a.ID, domain.TransactionTypeIncome, "5")); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Create: err = %v, want ErrUnauthorized", err)
	}
	if _, err := f.txs.Update(anon, uuid.New(), txRequest(a.ID, domain.TransactionTypeIncome, "5")); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Update: err = %v, want ErrUnauthorized", err)
	}
	if err := f.txs.Delete(anon, uuid.New()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Delete: err = %v, want ErrUnauthorized", err)
	}
	if err := f.accounts.Delete(anon, a.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("account Delete: err = %v, want ErrUnauthorized", err)
	}
	if _, err := f.dashboard.Summary(anon); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Summary: err = %v, want ErrUnauthorized", err)
	}
	if got := f.balance(t, a.ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s, want 100", got)
	}
}

func TestTransactionMutationsMarkViewsStale(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "Checking", "100")

	prime := func() {
		for _, k := range []views.Key{views.KeyAccounts, views.KeyTransactions, views.KeyDashboard, views.KeyCategories} {
			f.cache.Put(f.owner, k, "cached")
		}
	}
	assertStale := func(step string) {
		t.Helper()
		for _, k := range []views.Key{views.KeyAccounts, views.KeyTransactions, views.KeyDashboard} {
			if _, ok := f.cache.Get(f.owner, k); ok {
				t.Errorf("%s: %s view still cached", step, k)
			}
		}
		if _, ok := f.cache.Get(f.owner, views.KeyCategories); !ok {
			t.Errorf("%s: categories view dropped", step)
		}
	}

	prime()
	tx, err := f.txs.Create(f.ctx, txRequest(a.ID, domain.TransactionTypeExpense, "40"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	assertStale("create")

	prime()
	if _, err := f.txs.Update(f.ctx, tx.ID, txRequest(a.ID, domain.TransactionTypeExpense, "10")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	assertStale("update")

	prime()
	if err := f.txs.Delete(f.ctx, tx.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assertStale("delete")

	if got := f.balance(t, a.ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s, want 100", got)
	}
}

func TestFailedMutationKeepsViews(t *testing.T) {
	f := newFixture(t)
	f.cache.Put(f.owner, views.KeyDashboard, "cached")

	if _, err := f.txs.Create(f.ctx, txRequest(uuid.New(), domain.TransactionTypeIncome, "5")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Create: err = %v, want ErrNotFound", err)
	}
	if _, ok := f.cache.Get(f.owner, views.KeyDashboard); !ok {
		t.Error("failed create invalidated the dashboard")
	}
}

func TestCreateRejectsBadAmount(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "Checking", "0")

	for _, req := range []models.TransactionRequest{
		txRequest(a.ID, domain.TransactionTypeIncome, "0"),
		txRequest(a.ID, domain.TransactionTypeIncome, "-5"),
		txRequest(a.ID, "transfer", "5"),
	} {
		if _, err := f.txs.Create(f.ctx, req); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Create(%s %s): err = %v, want ErrInvalidInput", req.Type, req.Amount, err)
		}
	}
}

func TestTransactionListIsCachedUntilMutation(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "Checking", "0")
	if _, err := f.txs.Create(f.ctx, txRequest(a.ID, domain.TransactionTypeIncome, "1")); err != nil {
		t.Fatal(err)
	}

	list, err := f.txs.List(f.ctx, store.TransactionFilter{})
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %d, %v", len(list), err)
	}
	if _, ok := f.cache.Get(f.owner, views.KeyTransactions); !ok {
		t.Error("unfiltered list not cached")
	}

	if _, err := f.txs.Create(f.ctx, txRequest(a.ID, domain.TransactionTypeIncome, "2")); err != nil {
		t.Fatal(err)
	}
	list, err = f.txs.List(f.ctx, store.TransactionFilter{})
	if err != nil || len(list) != 2 {
		t.Fatalf("List after create = %d, %v; want 2", len(list), err)
	}

	income := store.TransactionFilter{Type: domain.TransactionTypeIncome, Limit: 1}
	list, err = f.txs.List(f.ctx, income)
	if err != nil || len(list) != 1 {
		t.Errorf("filtered List = %d, %v; want 1", len(list), err)
	}

	bad := store.TransactionFilter{From: time.Now(), To: time.Now().Add(-time.Hour)}
	if _, err := f.txs.List(f.ctx, bad); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("inverted range: err = %v, want ErrInvalidInput", err)
	}
}

func TestDeleteSystemAccountIsProtected(t *testing.T) {
	f := newFixture(t)
	sys := &domain.Account{
		UserID:         f.owner,
		Name:           "Wallet",
		Type:           domain.AccountTypeWallet,
		InitialBalance: decimal.NewFromInt(50),
		IsSystem:       true,
		IsActive:       true,
	}
	if err := f.store.InsertAccount(context.Background(), sys); err != nil {
		t.Fatal(err)
	}
	other := f.account(t, "Savings", "10")
	f.cache.Put(f.owner, views.KeyAccounts, "cached")

	if err := f.accounts.Delete(f.ctx, sys.ID); !errors.Is(err, domain.ErrSystemEntityProtected) {
		t.Fatalf("Delete: err = %v, want ErrSystemEntityProtected", err)
	}
	if got := f.balance(t, sys.ID); !got.Equal(decimal.NewFromInt(50)) {
		t.Errorf("system balance = %s, want 50", got)
	}
	if got := f.balance(t, other.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("other balance = %s, want 10", got)
	}
	if _, ok := f.cache.Get(f.owner, views.KeyAccounts); !ok {
		t.Error("rejected delete invalidated views")
	}
}

func TestDeleteAccountWithTransactions(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "Checking", "0")
	tx, err := f.txs.Create(f.ctx, txRequest(a.ID, domain.TransactionTypeIncome, "3"))
	if err != nil {
		t.Fatal(err)
	}

	if err := f.accounts.Delete(f.ctx, a.ID); !errors.Is(err, domain.ErrAccountInUse) {
		t.Fatalf("Delete: err = %v, want ErrAccountInUse", err)
	}
	if err := f.txs.Delete(f.ctx, tx.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.accounts.Delete(f.ctx, a.ID); err != nil {
		t.Fatalf("Delete after clearing transactions: %v", err)
	}
	if _, err := f.accounts.Get(f.ctx, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get: err = %v, want ErrNotFound", err)
	}
}

func TestAccountUpdateKeepsBalances(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "Checking", "100")
	if _, err := f.txs.Create(f.ctx, txRequest(a.ID, domain.TransactionTypeIncome, "20")); err != nil {
		t.Fatal(err)
	}

	inactive := false
	got, err := f.accounts.Update(f.ctx, a.ID, models.AccountRequest{
		Name:           "Main",
		Type:           domain.AccountTypeCash,
		InitialBalance: decimal.NewFromInt(9999),
		IsActive:       &inactive,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != "Main" || got.Type != domain.AccountTypeCash || got.IsActive {
		t.Errorf("Update = %+v", got)
	}
	if !got.InitialBalance.Equal(decimal.NewFromInt(100)) || !got.CurrentBalance.Equal(decimal.NewFromInt(120)) {
		t.Errorf("balances changed: initial %s current %s", got.InitialBalance, got.CurrentBalance)
	}

	active, err := f.accounts.List(f.ctx, true)
	if err != nil || len(active) != 0 {
		t.Errorf("active accounts = %d, %v; want 0", len(active), err)
	}
}

func TestAccountValidation(t *testing.T) {
	f := newFixture(t)
	tests := []models.AccountRequest{
		{Name: "  ", Type: domain.AccountTypeBank},
		{Name: "Card", Type: "credit"},
		{Name: "Cash", Type: domain.AccountTypeCash, InitialBalance: decimal.RequireFromString("1.234")},
	}
	for _, req := range tests {
		if _, err := f.accounts.Create(f.ctx, req); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Create(%+v): err = %v, want ErrInvalidInput", req, err)
		}
	}
}

func TestOtherUsersAccountIsNotFound(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "Checking", "100")
	intruder := auth.WithUser(context.Background(), uuid.New())

	if _, err := f.accounts.Get(intruder, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get: err = %v, want ErrNotFound", err)
	}
	if err := f.accounts.Delete(intruder, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete: err = %v, want ErrNotFound", err)
	}
	if _, err := f.txs.Create(intruder, txRequest(a.ID, domain.TransactionTypeExpense, "100")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Create on foreign account: err = %v, want ErrNotFound", err)
	}
	if got := f.balance(t, a.ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s, want 100", got)
	}
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	salary := store.SystemCategories()[0]

	c, err := f.categories.Create(f.ctx, models.CategoryRequest{Name: "Side gig", Type: domain.TransactionTypeIncome})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.UserID == nil || *c.UserID != f.owner || c.IsSystem || !c.IsActive {
		t.Errorf("Create = %+v", c)
	}

	all, err := f.categories.List(f.ctx, store.CategoryFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != len(store.SystemCategories())+1 || all[0].ID != c.ID {
		t.Errorf("List returned %d categories, first %s", len(all), all[0].Name)
	}

	if _, err := f.categories.Update(f.ctx, salary.ID, models.CategoryRequest{Name: "Wages", Type: domain.TransactionTypeIncome}); !errors.Is(err, domain.ErrSystemEntityProtected) {
		t.Errorf("Update system: err = %v, want ErrSystemEntityProtected", err)
	}
	if err := f.categories.Delete(f.ctx, salary.ID); !errors.Is(err, domain.ErrSystemEntityProtected) {
		t.Errorf("Delete system: err = %v, want ErrSystemEntityProtected", err)
	}

	intruder := auth.WithUser(context.Background(), uuid.New())
	if err := f.categories.Delete(intruder, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete by intruder: err = %v, want ErrNotFound", err)
	}

	a := f.account(t, "Checking", "0")
	req := txRequest(a.ID, domain.TransactionTypeIncome, "7")
	req.CategoryID = &c.ID
	tx, err := f.txs.Create(f.ctx, req)
	if err != nil {
		t.Fatalf("Create transaction: %v", err)
	}
	if err := f.categories.Delete(f.ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := f.txs.Get(f.ctx, tx.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CategoryID != nil {
		t.Errorf("CategoryID = %s, want nil after category delete", got.CategoryID)
	}
	if b := f.balance(t, a.ID); !b.Equal(decimal.NewFromInt(7)) {
		t.Errorf("balance = %s, want 7", b)
	}
}

func TestDashboardSummary(t *testing.T) {
	f := newFixture(t)
	f.dashboard.now = func() time.Time { return time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC) }

	checking := f.account(t, "Checking", "1000")
	cash := f.account(t, "Cash", "50")
	closed := f.account(t, "Old", "500")
	inactive := false
	if _, err := f.accounts.Update(f.ctx, closed.ID, models.AccountRequest{Name: "Old", Type: domain.AccountTypeBank, IsActive: &inactive}); err != nil {
		t.Fatal(err)
	}

	for _, req := range []models.TransactionRequest{
		txRequest(checking.ID, domain.TransactionTypeIncome, "300"),
		txRequest(cash.ID, domain.TransactionTypeExpense, "20.50"),
	} {
		if _, err := f.txs.Create(f.ctx, req); err != nil {
			t.Fatal(err)
		}
	}
	april := txRequest(checking.ID, domain.TransactionTypeExpense, "99")
	april.TransactionDate = models.Date{Time: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)}
	if _, err := f.txs.Create(f.ctx, april); err != nil {
		t.Fatal(err)
	}

	d, err := f.dashboard.Summary(f.ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	checks := []struct {
		name      string
		got, want decimal.Decimal
	}{
		{"total balance", d.TotalBalance, decimal.RequireFromString("1230.50")},
		{"monthly income", d.MonthlyIncome, decimal.NewFromInt(300)},
		{"monthly expenses", d.MonthlyExpenses, decimal.RequireFromString("20.50")},
		{"savings", d.Savings, decimal.RequireFromString("279.50")},
	}
	for _, c := range checks {
		if !c.got.Equal(c.want) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if len(d.Accounts) != 2 || len(d.RecentTransactions) != 3 || len(d.Categories) != dashboardCategories {
		t.Errorf("accounts %d, recent %d, categories %d", len(d.Accounts), len(d.RecentTransactions), len(d.Categories))
	}

	if _, err := f.txs.Create(f.ctx, txRequest(cash.ID, domain.TransactionTypeExpense, "0.50")); err != nil {
		t.Fatal(err)
	}
	d, err = f.dashboard.Summary(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !d.TotalBalance.Equal(decimal.NewFromInt(1230)) {
		t.Errorf("total after create = %s, want 1230 (stale dashboard served?)", d.TotalBalance)
	}
}

func TestCategoryDeleteRefreshesTransactionList(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "Checking", "0")
	c, err := f.categories.Create(f.ctx, models.CategoryRequest{Name: "Gym", Type: domain.TransactionTypeExpense})
	if err != nil {
		t.Fatal(err)
	}
	req := txRequest(a.ID, domain.TransactionTypeExpense, "15")
	req.CategoryID = &c.ID
	if _, err := f.txs.Create(f.ctx, req); err != nil {
		t.Fatal(err)
	}

	list, err := f.txs.List(f.ctx, store.TransactionFilter{})
	if err != nil || len(list) != 1 || list[0].CategoryID == nil {
		t.Fatalf("List = %d, %v; want one categorized transaction", len(list), err)
	}

	if err := f.categories.Delete(f.ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, err = f.txs.List(f.ctx, store.TransactionFilter{})
	if err != nil || len(list) != 1 {
		t.Fatalf("List after delete = %d, %v", len(list), err)
	}
	if list[0].CategoryID != nil {
		t.Errorf("CategoryID = %s, want nil after category delete", list[0].CategoryID)
	}
}

func TestDashboardRebuildsInNewMonth(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC)
	f.dashboard.now = func() time.Time { return now }
	a := f.account(t, "Checking", "0")

	if _, err := f.txs.Create(f.ctx, txRequest(a.ID, domain.TransactionTypeIncome, "80")); err != nil {
		t.Fatal(err)
	}
	d, err := f.dashboard.Summary(f.ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !d.MonthlyIncome.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("May income = %s, want 80", d.MonthlyIncome)
	}

	now = time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC)
	d, err = f.dashboard.Summary(f.ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !d.MonthlyIncome.IsZero() || !d.Savings.IsZero() {
		t.Errorf("June income %s savings %s, want 0 (May dashboard served)", d.MonthlyIncome, d.Savings)
	}
	if !d.TotalBalance.Equal(decimal.NewFromInt(80)) {
		t.Errorf("total = %s, want 80", d.TotalBalance)
	}
}
