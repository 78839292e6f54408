package reports

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/expensemanager/internal/auth"
	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/ledger"
	"github.com/punchamoorthee/expensemanager/internal/store"
)

type seeded struct {
	svc      *Service
	ctx      context.Context
	checking *domain.Account
	cash     *domain.Account
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func seed(t *testing.T) seeded {
	t.Helper()
	s := store.NewMemoryStore()
	owner := uuid.New()
	ctx := context.Background()

	newAccount := func(name, initial string) *domain.Account {
		a := &domain.Account{UserID: owner, Name: name, Type: domain.AccountTypeBank,
			InitialBalance: decimal.RequireFromString(initial), IsActive: true}
		if err := s.InsertAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
		return a
	}
	checking := newAccount("Checking", "1000")
	cash := newAccount("Cash", "0")

	cats := store.SystemCategories()
	salary, food := cats[0].ID, cats[3].ID
	l := ledger.New(s, ledger.ModeAtomic, zerolog.Nop())
	post := func(acct uuid.UUID, cat *uuid.UUID, kind domain.TransactionType, amount string, day time.Time, desc string) {
		sa, err := domain.NewSignedAmount(kind, decimal.RequireFromString(amount))
		if err != nil {
			t.Fatal(err)
		}
		e := ledger.Entry{AccountID: acct, CategoryID: cat, Amount: sa, Date: day}
		if desc != "" {
			e.Description = &desc
		}
		if _, err := l.Create(ctx, owner, e); err != nil {
			t.Fatal(err)
		}
	}
	post(checking.ID, &salary, domain.TransactionTypeIncome, "2500", date(2024, 6, 1), "June pay")
	post(checking.ID, nil, domain.TransactionTypeIncome, "100", date(2024, 6, 15), "")
	post(cash.ID, &food, domain.TransactionTypeExpense, "12.40", date(2024, 6, 3), "Lunch & coffee")
	post(cash.ID, &food, domain.TransactionTypeExpense, "7.60", date(2024, 6, 3), "")
	post(checking.ID, nil, domain.TransactionTypeExpense, "800", date(2024, 6, 5), "Rent")
	post(checking.ID, &salary, domain.TransactionTypeIncome, "2500", date(2024, 5, 1), "May pay")

	svc := NewService(s)
	svc.now = func() time.Time { return date(2024, 6, 5) }
	return seeded{svc: svc, ctx: auth.WithUser(ctx, owner), checking: checking, cash: cash}
}

func TestMonthlySummary(t *testing.T) {
	r := seed(t)
	got, err := r.svc.MonthlySummary(r.ctx, 2024, 6)
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}
	if !got.TotalIncome.Equal(decimal.NewFromInt(2600)) {
		t.Errorf("TotalIncome = %s, want 2600", got.TotalIncome)
	}
	if !got.TotalExpense.Equal(decimal.NewFromInt(820)) {
		t.Errorf("TotalExpense = %s, want 820", got.TotalExpense)
	}
	if !got.Net.Equal(decimal.NewFromInt(1780)) {
		t.Errorf("Net = %s, want 1780", got.Net)
	}

	for _, bad := range [][2]int{{2024, 0}, {2024, 13}, {12, 6}} {
		if _, err := r.svc.MonthlySummary(r.ctx, bad[0], bad[1]); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("MonthlySummary(%d, %d): err = %v, want ErrInvalidInput", bad[0], bad[1], err)
		}
	}
}

func TestIncomeByCategory(t *testing.T) {
	r := seed(t)
	got, err := r.svc.IncomeByCategory(r.ctx, 2024, 6)
	if err != nil {
		t.Fatalf("IncomeByCategory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(got), got)
	}
	if got[0].CategoryName != "Salary" || !got[0].Total.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("first row = %+v, want Salary 2500", got[0])
	}
	if got[1].CategoryName != "Uncategorized" || got[1].CategoryID != nil {
		t.Errorf("second row = %+v, want Uncategorized", got[1])
	}
}

func TestDailyExpenseTrend(t *testing.T) {
	r := seed(t)
	got, err := r.svc.DailyExpenseTrend(r.ctx, date(2024, 6, 2), date(2024, 6, 5))
	if err != nil {
		t.Fatalf("DailyExpenseTrend: %v", err)
	}
	want := []string{"0", "20", "0", "800"}
	if len(got) != len(want) {
		t.Fatalf("got %d days, want %d", len(got), len(want))
	}
	for i, w := range want {
		if !got[i].Total.Equal(decimal.RequireFromString(w)) {
			t.Errorf("day %s = %s, want %s", got[i].Day.Format("2006-01-02"), got[i].Total, w)
		}
	}

	defaulted, err := r.svc.DailyExpenseTrend(r.ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(defaulted) != defaultTrendDays {
		t.Errorf("default range has %d days, want %d", len(defaulted), defaultTrendDays)
	}

	if _, err := r.svc.DailyExpenseTrend(r.ctx, date(2024, 6, 5), date(2024, 6, 1)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("inverted range: err = %v, want ErrInvalidInput", err)
	}
	if _, err := r.svc.DailyExpenseTrend(r.ctx, date(2022, 1, 1), date(2024, 1, 1)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("two-year range: err = %v, want ErrInvalidInput", err)
	}
}

func TestBalancePerAccount(t *testing.T) {
	r := seed(t)
	got, err := r.svc.BalancePerAccount(r.ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"Cash": "-20", "Checking": "5300"}
	if len(got) != len(want) {
		t.Fatalf("got %d rows", len(got))
	}
	for _, b := range got {
		if !b.Balance.Equal(decimal.RequireFromString(want[b.AccountName])) {
			t.Errorf("%s = %s, want %s", b.AccountName, b.Balance, want[b.AccountName])
		}
	}
}

func TestAccountStatement(t *testing.T) {
	r := seed(t)
	acct, lines, err := r.svc.AccountStatement(r.ctx, r.cash.ID, 0)
	if err != nil {
		t.Fatalf("AccountStatement: %v", err)
	}
	if acct.ID != r.cash.ID || len(lines) != 2 {
		t.Fatalf("account %s, %d lines", acct.Name, len(lines))
	}

	_, lines, err = r.svc.AccountStatement(r.ctx, r.checking.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || !lines[0].Amount.Equal(decimal.NewFromInt(100)) || lines[1].Description != "Rent" {
		t.Errorf("lines = %+v, want newest first, limited to 2", lines)
	}

	if _, _, err := r.svc.AccountStatement(r.ctx, r.cash.ID, MaxStatementLimit+1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("huge limit: err = %v, want ErrInvalidInput", err)
	}
	if _, _, err := r.svc.AccountStatement(r.ctx, uuid.New(), 10); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown account: err = %v, want ErrNotFound", err)
	}
	stranger := auth.WithUser(context.Background(), uuid.New())
	if _, _, err := r.svc.AccountStatement(stranger, r.cash.ID, 10); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign account: err = %v, want ErrNotFound", err)
	}
}

func TestReportsRequireIdentity(t *testing.T) {
	r := seed(t)
	anon := context.Background()
	if _, err := r.svc.BalancePerAccount(anon); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
	if _, err := r.svc.MonthlySummary(anon, 2024, 6); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestStatementXML(t *testing.T) {
	r := seed(t)
	acct, lines, err := r.svc.AccountStatement(r.ctx, r.cash.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	out, err := StatementXML(acct, lines, date(2024, 6, 30))
	if err != nil {
		t.Fatalf("StatementXML: %v", err)
	}
	if !strings.HasPrefix(string(out), "<?xml") {
		t.Errorf("missing XML declaration: %.40s", out)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(out); err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	if name := doc.FindElement("//Account/Name"); name == nil || name.Text() != "Cash" {
		t.Errorf("Account/Name = %v", name)
	}
	if bal := doc.FindElement("//Account/CurrentBalance"); bal == nil || bal.Text() != "-20.00" {
		t.Errorf("CurrentBalance = %v", bal)
	}
	txs := doc.FindElements("//Transactions/Transaction")
	if len(txs) != 2 {
		t.Fatalf("got %d Transaction elements, want 2", len(txs))
	}
	var found bool
	for _, tx := range txs {
		if d := tx.FindElement("./Description"); d != nil && d.Text() == "Lunch & coffee" {
			found = true
		}
	}
	if !found {
		t.Error("escaped description did not round trip")
	}
}
