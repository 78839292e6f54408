// Package reconcile detects accounts whose cached balance no longer equals
// initial balance plus the signed sum of their transactions.
package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/store"
)

var (
	driftedAccounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_balance_drift_accounts",
		Help: "Accounts whose cached balance disagreed with their transactions on the last run",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_reconcile_runs_total",
		Help: "Reconciliation runs by outcome",
	}, []string{"outcome"})

	repairsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_reconcile_repairs_total",
		Help: "Account balances rewritten by reconciliation",
	})
)

type Reconciler struct {
	store  store.Store
	repair bool
	log    zerolog.Logger
}

// New returns a Reconciler. With repair set, drifted balances are moved
// back to the expected value.
func New(s store.Store, repair bool, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: s, repair: repair, log: log.With().Str("component", "reconcile").Logger()}
}

// Run checks every account and returns the ones that drifted.
func (r *Reconciler) Run(ctx context.Context) ([]domain.BalanceDrift, error) {
	drifts, err := r.run(ctx)
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		return drifts, err
	}
	runsTotal.WithLabelValues("ok").Inc()
	driftedAccounts.Set(float64(len(drifts)))
	return drifts, nil
}

func (r *Reconciler) run(ctx context.Context) ([]domain.BalanceDrift, error) {
	accounts, err := r.store.ListAllAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var drifts []domain.BalanceDrift
	for _, a := range accounts {
		if err := ctx.Err(); err != nil {
			return drifts, err
		}
		sum, err := r.store.SumTransactions(ctx, a.ID)
		if err != nil {
			return drifts, fmt.Errorf("sum account %s: %w", a.ID, err)
		}
		expected := a.InitialBalance.Add(sum)
		if a.CurrentBalance.Equal(expected) {
			continue
		}

		d := domain.BalanceDrift{AccountID: a.ID, UserID: a.UserID, Cached: a.CurrentBalance, Expected: expected}
		drifts = append(drifts, d)
		r.log.Warn().
			Str("account_id", a.ID.String()).
			Str("cached", d.Cached.String()).
			Str("expected", d.Expected.String()).
			Str("diff", d.Diff().String()).
			Msg("balance drift")

		if r.repair {
			if err := r.fix(ctx, a.ID, a.InitialBalance); err != nil {
				return drifts, err
			}
		}
	}

	r.log.Info().Int("accounts", len(accounts)).Int("drifted", len(drifts)).Msg("reconciliation finished")
	return drifts, nil
}

// fix recomputes the expected balance inside a transaction and applies
// the difference as an increment.
func (r *Reconciler) fix(ctx context.Context, accountID uuid.UUID, initial decimal.Decimal) error {
	err := r.store.ExecTx(ctx, func(q store.Querier) error {
		sum, err := q.SumTransactions(ctx, accountID)
		if err != nil {
			return err
		}
		cached, err := q.GetAccountBalance(ctx, accountID)
		if err != nil {
			return err
		}
		diff := initial.Add(sum).Sub(cached)
		if diff.IsZero() {
			return nil
		}
		_, err = q.AdjustAccountBalance(ctx, accountID, diff)
		return err
	})
	if err != nil {
		return fmt.Errorf("repair account %s: %w", accountID, err)
	}
	repairsTotal.Inc()
	r.log.Info().Str("account_id", accountID.String()).Msg("balance repaired")
	return nil
}

// Schedule registers Run on c. An empty spec disables the job.
func (r *Reconciler) Schedule(ctx context.Context, c *cron.Cron, spec string) error {
	if spec == "" {
		r.log.Info().Msg("reconciliation disabled")
		return nil
	}
	_, err := c.AddFunc(spec, func() {
		if _, err := r.Run(ctx); err != nil {
			r.log.Error().Err(err).Msg("reconciliation failed")
		}
	})
	if err != nil {
		return fmt.Errorf("reconcile schedule %q: %w", spec, err)
	}
	r.log.Info().Str("schedule", spec).Bool("repair", r.repair).Msg("reconciliation scheduled")
	return nil
}
