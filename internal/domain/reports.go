package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthlySummary totals one calendar month.
type MonthlySummary struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Net          decimal.Decimal `json:"net"`
}

// CategoryTotal is income grouped by category. Uncategorized income has a nil CategoryID.
type CategoryTotal struct {
	CategoryID   *uuid.UUID      `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
}

// DailyTotal is the expense total of one day.
type DailyTotal struct {
	Day   time.Time       `json:"day"`
	Total decimal.Decimal `json:"total"`
}

// AccountBalance is one row of the balance-per-account report.
type AccountBalance struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountName string          `json:"account_name"`
	Balance     decimal.Decimal `json:"balance"`
}

// StatementLine is one transaction in an account statement.
type StatementLine struct {
	TransactionID   uuid.UUID       `json:"tx_id"`
	TransactionDate time.Time       `json:"tx_date"`
	Type            TransactionType `json:"type"`
	Category        string          `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
}

// BalanceDrift records an account whose cached balance disagrees with its transactions.
type BalanceDrift struct {
	AccountID uuid.UUID       `json:"account_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Cached    decimal.Decimal `json:"cached"`
	Expected  decimal.Decimal `json:"expected"`
}

// Diff is cached minus expected.
func (d BalanceDrift) Diff() decimal.Decimal {
	return d.Cached.Sub(d.Expected)
}
