package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/expensemanager/internal/domain"
)

// TransactionRequest is the payload for creating or editing a transaction.
type TransactionRequest struct {
	AccountID       uuid.UUID              `json:"account_id"`
	CategoryID      *uuid.UUID             `json:"category_id"`
	Type            domain.TransactionType `json:"type"`
	Amount          decimal.Decimal        `json:"amount"`
	Description     *string                `json:"description"`
	TransactionDate Date                   `json:"transaction_date"`
}

// AccountRequest is the payload for creating or editing an account.
// InitialBalance is ignored on edit.
type AccountRequest struct {
	Name           string             `json:"name"`
	Type           domain.AccountType `json:"type"`
	InitialBalance decimal.Decimal    `json:"initial_balance"`
	IsActive       *bool              `json:"is_active"`
}

// CategoryRequest is the payload for creating or editing a category.
type CategoryRequest struct {
	Name     string                 `json:"name"`
	Type     domain.TransactionType `json:"type"`
	Color    *string                `json:"color"`
	Icon     *string                `json:"icon"`
	IsActive *bool                  `json:"is_active"`
}

// RegisterRequest creates a user.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

// LoginRequest exchanges credentials for a token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// Dashboard is the overview payload.
type Dashboard struct {
	TotalBalance       decimal.Decimal       `json:"total_balance"`
	MonthlyIncome      decimal.Decimal       `json:"monthly_income"`
	MonthlyExpenses    decimal.Decimal       `json:"monthly_expenses"`
	Savings            decimal.Decimal       `json:"savings"`
	Accounts           []*domain.Account     `json:"accounts"`
	Categories         []*domain.Category    `json:"categories"`
	RecentTransactions []*domain.Transaction `json:"recent_transactions"`
}

// Date is a calendar day encoded as YYYY-MM-DD. Full RFC 3339 timestamps are
// accepted on input.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		d.Time = time.Time{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return &time.ParseError{Layout: dateLayout, Value: s}
	}
	s = s[1 : len(s)-1]
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
	}
	d.Time = t
	return nil
}
