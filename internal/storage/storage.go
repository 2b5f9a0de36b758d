// Package storage defines the persistence ports of billbook and implements
// them on SQLite. An in-memory implementation lives in storage/memory.
//
// Every adapter returns core.ErrNotFound for missing rows and
// core.ErrDuplicate for uniqueness violations, wrapped with context.
package storage

import (
	"context"

	"billbook/internal/core"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u core.User) error
	GetUser(ctx context.Context, id string) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	UpdateUser(ctx context.Context, u core.User) error
	ListUsers(ctx context.Context) ([]core.User, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, c core.Category) error
	GetCategory(ctx context.Context, id string) (core.Category, error)
	// ListCategories returns categories ordered by type then name. An empty
	// type returns all of them.
	ListCategories(ctx context.Context, t core.BillType) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id string) error
	// CategoryInUse reports whether any bill or budget references the category.
	CategoryInUse(ctx context.Context, id string) (bool, error)
}

type BillRepository interface {
	CreateBill(ctx context.Context, b core.Bill) error
	// GetBill returns the bill with its Category populated when it still exists.
	GetBill(ctx context.Context, id string) (core.Bill, error)
	UpdateBill(ctx context.Context, b core.Bill) error
	DeleteBill(ctx context.Context, id string) error
	// ListBills returns one page of matching bills, newest date first and
	// newest creation first within a date.
	ListBills(ctx context.Context, f core.BillFilter, p core.PageRequest) ([]core.Bill, error)
	CountBills(ctx context.Context, f core.BillFilter) (int, error)
	SumBills(ctx context.Context, f core.BillFilter) (core.Totals, error)
}

type BudgetRepository interface {
	CreateBudget(ctx context.Context, b core.Budget) error
	GetBudget(ctx context.Context, id string) (core.Budget, error)
	// ListBudgets returns the user's budgets, most recently created first.
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, id string) error
}

// Store bundles every repository behind one backend.
type Store interface {
	UserRepository
	CategoryRepository
	BillRepository
	BudgetRepository
	Ping(ctx context.Context) error
	Close() error
}
