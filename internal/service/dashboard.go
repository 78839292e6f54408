package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/expensemanager/internal/auth"
	"github.com/punchamoorthee/expensemanager/internal/models"
	"github.com/punchamoorthee/expensemanager/internal/store"
	"github.com/punchamoorthee/expensemanager/internal/views"
)

const (
	dashboardAccounts     = 6
	dashboardCategories   = 6
	dashboardTransactions = 10
)

type DashboardService struct {
	store store.Querier
	views views.Cacher
	now   func() time.Time
}

// dashboardView is a cached dashboard and the month its totals cover.
type dashboardView struct {
	year  int
	month time.Month
	data  *models.Dashboard
}

func NewDashboardService(q store.Querier, v views.Cacher) *DashboardService {
	return &DashboardService{store: q, views: v, now: time.Now}
}

// Summary returns the caller's overview: total balance of active accounts,
// this month's income and expenses, and the most recent activity. A view
// cached in an earlier month is rebuilt.
func (s *DashboardService) Summary(ctx context.Context) (*models.Dashboard, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	load := func() (dashboardView, error) { return s.build(ctx, owner, now) }
	v, err := views.Cached(s.views, owner, views.KeyDashboard, load)
	if err != nil {
		return nil, err
	}
	if v.year != now.Year() || v.month != now.Month() {
		s.views.MarkStale(owner, views.KeyDashboard)
		if v, err = views.Cached(s.views, owner, views.KeyDashboard, load); err != nil {
			return nil, err
		}
	}
	return v.data, nil
}

func (s *DashboardService) build(ctx context.Context, owner uuid.UUID, now time.Time) (dashboardView, error) {
	accounts, err := s.store.ListAccounts(ctx, owner, store.AccountFilter{ActiveOnly: true})
	if err != nil {
		return dashboardView{}, err
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.CurrentBalance)
	}
	if len(accounts) > dashboardAccounts {
		accounts = accounts[:dashboardAccounts]
	}

	categories, err := s.store.ListCategories(ctx, owner, store.CategoryFilter{ActiveOnly: true, Limit: dashboardCategories})
	if err != nil {
		return dashboardView{}, err
	}
	recent, err := s.store.ListTransactions(ctx, owner, store.TransactionFilter{Limit: dashboardTransactions})
	if err != nil {
		return dashboardView{}, err
	}

	month, err := s.store.MonthlySummary(ctx, owner, now.Year(), int(now.Month()))
	if err != nil {
		return dashboardView{}, err
	}

	return dashboardView{year: now.Year(), month: now.Month(), data: &models.Dashboard{
		TotalBalance:       total,
		MonthlyIncome:      month.TotalIncome,
		MonthlyExpenses:    month.TotalExpense,
		Savings:            month.Net,
		Accounts:           nonNil(accounts),
		Categories:         nonNil(categories),
		RecentTransactions: nonNil(recent),
	}}, nil
}

func nonNil[T any](s []*T) []*T {
	if s == nil {
		return []*T{}
	}
	return s
}
