package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType is the kind of place money is held in.
type AccountType string

const (
	AccountTypeBank   AccountType = "bank"
	AccountTypeCash   AccountType = "cash"
	AccountTypeWallet AccountType = "wallet"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeBank, AccountTypeCash, AccountTypeWallet:
		return true
	}
	return false
}

// Account holds a cached running balance.
// CurrentBalance must equal InitialBalance plus the signed amounts of every
// transaction that references the account.
type Account struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsSystem       bool            `json:"is_system"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Transaction is one income or expense movement on exactly one account.
// Amount is always positive; the sign comes from Type.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	AccountID       uuid.UUID       `json:"account_id"`
	CategoryID      *uuid.UUID      `json:"category_id"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     *string         `json:"description"`
	TransactionDate time.Time       `json:"transaction_date"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Signed returns the balance effect of t as a tagged amount.
func (t *Transaction) Signed() SignedAmount {
	return SignedAmount{kind: t.Type, amount: t.Amount}
}

// Delta is the signed contribution of t to its account balance.
func (t *Transaction) Delta() decimal.Decimal {
	return t.Signed().Delta()
}

// Category labels transactions. A nil UserID marks a system category
// shared by every user.
type Category struct {
	ID        uuid.UUID       `json:"id"`
	UserID    *uuid.UUID      `json:"user_id"`
	Name      string          `json:"name"`
	Type      TransactionType `json:"type"`
	Color     *string         `json:"color"`
	Icon      *string         `json:"icon"`
	IsSystem  bool            `json:"is_system"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// VisibleTo reports whether userID may attach the category to a transaction.
func (c *Category) VisibleTo(userID uuid.UUID) bool {
	return c.UserID == nil || *c.UserID == userID
}

// User is an authenticated owner of accounts, categories and transactions.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     *string   `json:"full_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
