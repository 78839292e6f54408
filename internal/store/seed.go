package store

import (
	"github.com/google/uuid"

	"github.com/punchamoorthee/expensemanager/internal/domain"
)

// systemCategories mirrors migrations/0002_system_categories.sql.
var systemCategories = []struct {
	id   string
	name string
	kind domain.TransactionType
	icon string
}{
	{"00000000-0000-4000-8000-000000000001", "Salary", domain.TransactionTypeIncome, "briefcase"},
	{"00000000-0000-4000-8000-000000000002", "Freelance", domain.TransactionTypeIncome, "laptop"},
	{"00000000-0000-4000-8000-000000000003", "Other income", domain.TransactionTypeIncome, "plus"},
	{"00000000-0000-4000-8000-000000000101", "Food", domain.TransactionTypeExpense, "utensils"},
	{"00000000-0000-4000-8000-000000000102", "Transport", domain.TransactionTypeExpense, "car"},
	{"00000000-0000-4000-8000-000000000103", "Housing", domain.TransactionTypeExpense, "home"},
	{"00000000-0000-4000-8000-000000000104", "Health", domain.TransactionTypeExpense, "heart"},
	{"00000000-0000-4000-8000-000000000105", "Other expense", domain.TransactionTypeExpense, "minus"},
}

// SystemCategories returns fresh copies of the platform-seeded categories.
func SystemCategories() []*domain.Category {
	out := make([]*domain.Category, 0, len(systemCategories))
	for _, sc := range systemCategories {
		icon := sc.icon
		out = append(out, &domain.Category{
			ID:       uuid.MustParse(sc.id),
			Name:     sc.name,
			Type:     sc.kind,
			Icon:     &icon,
			IsSystem: true,
			IsActive: true,
		})
	}
	return out
}
