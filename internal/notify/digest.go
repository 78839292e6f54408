package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/store"
)

// Source is what the digest reads.
type Source interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
	store.ReportStore
}

// Digest mails every user last month's income, expenses and balances.
type Digest struct {
	store  Source
	mailer Mailer
	now    func() time.Time
	log    zerolog.Logger
}

func NewDigest(s Source, m Mailer, log zerolog.Logger) *Digest {
	return &Digest{store: s, mailer: m, now: time.Now, log: log.With().Str("component", "digest").Logger()}
}

// Run sends one digest per user. A failed send is logged and the run
// continues; the joined errors are returned.
func (d *Digest) Run(ctx context.Context) error {
	year, month := previousMonth(d.now())

	users, err := d.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var errs []error
	sent := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary, err := d.store.MonthlySummary(ctx, u.ID, year, month)
		if err != nil {
			errs = append(errs, fmt.Errorf("summary for %s: %w", u.ID, err))
			continue
		}
		balances, err := d.store.BalancePerAccount(ctx, u.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("balances for %s: %w", u.ID, err))
			continue
		}

		subject := fmt.Sprintf("Your %s %d summary", time.Month(month), year)
		if err := d.mailer.Send(u.Email, subject, FormatDigest(u, summary, balances)); err != nil {
			d.log.Error().Err(err).Str("user_id", u.ID.String()).Msg("digest not sent")
			errs = append(errs, err)
			continue
		}
		sent++
	}

	d.log.Info().Int("users", len(users)).Int("sent", sent).Msg("monthly digest finished")
	return errors.Join(errs...)
}

// Schedule registers Run on c. An empty spec disables the job.
func (d *Digest) Schedule(ctx context.Context, c *cron.Cron, spec string) error {
	if spec == "" {
		return nil
	}
	_, err := c.AddFunc(spec, func() {
		if err := d.Run(ctx); err != nil {
			d.log.Error().Err(err).Msg("monthly digest failed")
		}
	})
	if err != nil {
		return fmt.Errorf("digest schedule %q: %w", spec, err)
	}
	return nil
}

// FormatDigest renders the plain-text body.
func FormatDigest(u *domain.User, s *domain.MonthlySummary, balances []domain.AccountBalance) string {
	name := u.Email
	if u.FullName != nil && *u.FullName != "" {
		name = *u.FullName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Here is your summary for %s %d.\n\n", time.Month(s.Month), s.Year)
	fmt.Fprintf(&b, "  Income:   %12s\n", s.TotalIncome.StringFixed(2))
	fmt.Fprintf(&b, "  Expenses: %12s\n", s.TotalExpense.StringFixed(2))
	fmt.Fprintf(&b, "  Net:      %12s\n", s.Net.StringFixed(2))

	if len(balances) > 0 {
		b.WriteString("\nAccount balances:\n")
		for _, a := range balances {
			fmt.Fprintf(&b, "  %-20s %12s\n", a.AccountName, a.Balance.StringFixed(2))
		}
	}
	b.WriteString("\nExpense Manager\n")
	return b.String()
}

func previousMonth(now time.Time) (int, int) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	return prev.Year(), int(prev.Month())
}
