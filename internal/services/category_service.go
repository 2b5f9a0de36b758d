package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"billbook/internal/core"
	"billbook/internal/log"
	"billbook/internal/storage"
)

// DefaultCategories are created by SeedDefaults on an empty installation.
var DefaultCategories = []core.Category{
	{Name: "Food", Type: core.Expense, Icon: "utensils"},
	{Name: "Transport", Type: core.Expense, Icon: "bus"},
	{Name: "Shopping", Type: core.Expense, Icon: "bag"},
	{Name: "Housing", Type: core.Expense, Icon: "home"},
	{Name: "Entertainment", Type: core.Expense, Icon: "film"},
	{Name: "Health", Type: core.Expense, Icon: "heart"},
	{Name: "Education", Type: core.Expense, Icon: "book"},
	{Name: "Other", Type: core.Expense, Icon: "dots"},
	{Name: "Salary", Type: core.Income, Icon: "wallet"},
	{Name: "Bonus", Type: core.Income, Icon: "gift"},
	{Name: "Investment", Type: core.Income, Icon: "chart"},
	{Name: "Other", Type: core.Income, Icon: "dots"},
}

// CategoryUpdate carries optional category changes.
type CategoryUpdate struct {
	Name *string
	Type *core.BillType
	Icon *string
}

type CategoryService struct {
	categories storage.CategoryRepository
	logger     *log.Logger
	clock      Clock
}

func NewCategoryService(categories storage.CategoryRepository, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.Discard()
	}
	return &CategoryService{
		categories: categories,
		logger:     logger.WithComponent(log.ComponentCategory),
	}
}

var (
	errCategoryNotFound  = core.Errorf(core.ErrNotFound, "category not found")
	errCategoryDuplicate = core.Errorf(core.ErrDuplicate, "category already exists")
	errCategoryInUse     = core.Errorf(core.ErrInUse, "category is used by bills or budgets")
)

// List returns all categories, or only those of type t when t is set.
func (s *CategoryService) List(ctx context.Context, t core.BillType) ([]core.Category, error) {
	if t != "" && !t.Valid() {
		return nil, core.ErrInvalidType
	}
	cats, err := s.categories.ListCategories(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (core.Category, error) {
	c, err := s.categories.GetCategory(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Category{}, errCategoryNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, name string, t core.BillType, icon string) (core.Category, error) {
	now := nowUTC(s.clock)
	c := core.Category{
		ID:        core.NewID(),
		Name:      strings.TrimSpace(name),
		Type:      t,
		Icon:      strings.TrimSpace(icon),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.categories.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			return core.Category{}, errCategoryDuplicate
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category created", log.FieldCategoryID, c.ID, "name", c.Name, log.FieldBillType, string(c.Type))
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, upd CategoryUpdate) (core.Category, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if upd.Name != nil {
		c.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Type != nil {
		c.Type = *upd.Type
	}
	if upd.Icon != nil {
		c.Icon = strings.TrimSpace(*upd.Icon)
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.UpdatedAt = nowUTC(s.clock)

	if err := s.categories.UpdateCategory(ctx, c); err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicate):
			return core.Category{}, errCategoryDuplicate
		case errors.Is(err, core.ErrNotFound):
			return core.Category{}, errCategoryNotFound
		}
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// Delete removes a category that no bill or budget references.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	used, err := s.categories.CategoryInUse(ctx, id)
	if err != nil {
		return fmt.Errorf("check category usage: %w", err)
	}
	if used {
		return errCategoryInUse
	}
	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		switch {
		case errors.Is(err, core.ErrInUse):
			return errCategoryInUse
		case errors.Is(err, core.ErrNotFound):
			return errCategoryNotFound
		}
		return fmt.Errorf("delete category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category deleted", log.FieldCategoryID, id)
	return nil
}

// SeedDefaults creates every default category that does not exist yet and
// returns how many were added.
func (s *CategoryService) SeedDefaults(ctx context.Context) (int, error) {
	added := 0
	for _, d := range DefaultCategories {
		_, err := s.Create(ctx, d.Name, d.Type, d.Icon)
		if errors.Is(err, core.ErrDuplicate) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("seed %s/%s: %w", d.Type, d.Name, err)
		}
		added++
	}
	return added, nil
}
