package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/expensemanager/internal/auth"
	"github.com/punchamoorthee/expensemanager/internal/config"
	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/logger"
	"github.com/punchamoorthee/expensemanager/internal/store"
)

var (
	email    string
	password string
	total    int
	days     int
)

func init() {
	flag.StringVar(&email, "email", "demo@example.com", "Demo user email")
	flag.StringVar(&password, "password", "demo-password", "Demo user password")
	flag.IntVar(&total, "transactions", 5000, "Number of transactions to generate")
	flag.IntVar(&days, "days", 365, "Spread transactions over this many past days")
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "production")
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.Env)

	ctx := context.Background()
	pg, err := store.NewPostgresStore(ctx, cfg.DBSource)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to connect to database")
	}
	defer pg.Close()

	log.Info().Msg("--- Seeding Database ---")

	if _, err := pg.GetUserByEmail(ctx, email); err == nil {
		log.Info().Str("email", email).Msg("Demo user already exists. Skipping.")
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Fatal().Err(err).Msg("looking up demo user")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatal().Err(err).Msg("hashing password")
	}
	user := &domain.User{Email: email, PasswordHash: hash}
	if err := pg.InsertUser(ctx, user); err != nil {
		log.Fatal().Err(err).Msg("creating demo user")
	}

	var accounts []*domain.Account
	for _, a := range []struct {
		name    string
		kind    domain.AccountType
		initial int64
	}{
		{"Checking", domain.AccountTypeBank, 2500},
		{"Cash", domain.AccountTypeCash, 200},
		{"Mobile wallet", domain.AccountTypeWallet, 0},
	} {
		acct := &domain.Account{
			UserID:         user.ID,
			Name:           a.name,
			Type:           a.kind,
			InitialBalance: decimal.NewFromInt(a.initial),
			IsActive:       true,
		}
		if err := pg.InsertAccount(ctx, acct); err != nil {
			log.Fatal().Err(err).Msg("creating account")
		}
		accounts = append(accounts, acct)
	}

	var income, expense []uuid.UUID
	for _, c := range store.SystemCategories() {
		if c.Type == domain.TransactionTypeIncome {
			income = append(income, c.ID)
		} else {
			expense = append(expense, c.ID)
		}
	}

	// Bulk insert using CopyFrom. This bypasses the ledger, so cached
	// balances are recomputed afterwards.
	log.Info().Int("count", total).Msg("Generating transactions...")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	today := time.Now().UTC().Truncate(24 * time.Hour)
	rows := make([][]any, 0, total)
	for i := 0; i < total; i++ {
		kind, cats, cents := domain.TransactionTypeExpense, expense, 100+rng.Int63n(20000)
		if rng.Float32() < 0.1 {
			kind, cats, cents = domain.TransactionTypeIncome, income, 50000+rng.Int63n(300000)
		}
		amount := decimal.New(cents, -2)
		rows = append(rows, []any{
			uuid.New(),
			user.ID,
			accounts[rng.Intn(len(accounts))].ID,
			cats[rng.Intn(len(cats))],
			string(kind),
			pgtype.Numeric{Int: amount.Coefficient(), Exp: amount.Exponent(), Valid: true},
			today.AddDate(0, 0, -rng.Intn(days)),
		})
	}

	copyCount, err := pg.Db.CopyFrom(
		ctx,
		pgx.Identifier{"transactions"},
		[]string{"id", "user_id", "account_id", "category_id", "type", "amount", "transaction_date"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Bulk insert failed")
	}

	updated, err := pg.RecomputeBalances(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("recomputing balances")
	}
	log.Info().
		Int64("transactions", copyCount).
		Int64("accounts_recomputed", updated).
		Str("email", email).
		Msg("Successfully seeded demo data")
}
