package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction (and of a category).
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is income or expense.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// SignedAmount is a positive magnitude tagged with its direction.
// The zero value is not usable; build one with NewSignedAmount.
type SignedAmount struct {
	kind   TransactionType
	amount decimal.Decimal
}

// Income tags amount as money coming in.
func Income(amount decimal.Decimal) (SignedAmount, error) {
	return NewSignedAmount(TransactionTypeIncome, amount)
}

// Expense tags amount as money going out.
func Expense(amount decimal.Decimal) (SignedAmount, error) {
	return NewSignedAmount(TransactionTypeExpense, amount)
}

// NewSignedAmount validates kind and amount together so the two can never
// disagree once stored.
func NewSignedAmount(kind TransactionType, amount decimal.Decimal) (SignedAmount, error) {
	if !kind.Valid() {
		return SignedAmount{}, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, kind)
	}
	if !amount.IsPositive() {
		return SignedAmount{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return SignedAmount{kind: kind, amount: amount}, nil
}

// Type returns the direction.
func (s SignedAmount) Type() TransactionType { return s.kind }

// Amount returns the positive magnitude.
func (s SignedAmount) Amount() decimal.Decimal { return s.amount }

// Delta is +amount for income and -amount for expense.
func (s SignedAmount) Delta() decimal.Decimal {
	if s.kind == TransactionTypeExpense {
		return s.amount.Neg()
	}
	return s.amount
}

// Inverse undoes Delta.
func (s SignedAmount) Inverse() decimal.Decimal {
	return s.Delta().Neg()
}

func (s SignedAmount) String() string {
	return fmt.Sprintf("%s(%s)", s.kind, s.amount.StringFixed(2))
}
