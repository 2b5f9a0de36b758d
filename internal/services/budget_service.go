package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"billbook/internal/core"
	"billbook/internal/log"
	"billbook/internal/storage"
)

var (
	errBudgetNotFound      = core.Errorf(core.ErrNotFound, "budget not found")
	errBudgetForbidden     = core.Errorf(core.ErrForbidden, "not authorized to access this budget")
	errBudgetDuplicate     = core.Errorf(core.ErrDuplicate, "budget already exists for this category")
	errBudgetFieldsMissing = core.Errorf(core.ErrValidation, "please provide categoryId, amount, period, start date and end date")
)

type BudgetInput struct {
	CategoryID  string
	Amount      core.Money
	Period      core.Period
	StartDate   time.Time
	EndDate     time.Time
	Description string
}

type BudgetUpdate struct {
	CategoryID  *string
	Amount      *core.Money
	Period      *core.Period
	StartDate   *time.Time
	EndDate     *time.Time
	Description *string
}

type BudgetService struct {
	budgets    storage.BudgetRepository
	categories storage.CategoryRepository
	bills      storage.BillRepository
	logger     *log.Logger
	clock      Clock
}

func NewBudgetService(budgets storage.BudgetRepository, categories storage.CategoryRepository, bills storage.BillRepository, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.Discard()
	}
	return &BudgetService{
		budgets:    budgets,
		categories: categories,
		bills:      bills,
		logger:     logger.WithComponent(log.ComponentBudget),
	}
}

func (s *BudgetService) List(ctx context.Context, userID string) ([]core.Budget, error) {
	items, err := s.budgets.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return items, nil
}

func (s *BudgetService) Get(ctx context.Context, userID, id string) (core.Budget, error) {
	g, err := s.budgets.GetBudget(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Budget{}, errBudgetNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	if g.UserID != userID {
		return core.Budget{}, errBudgetForbidden
	}
	return g, nil
}

func (s *BudgetService) requireCategory(ctx context.Context, id string) error {
	_, err := s.categories.GetCategory(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return errUnknownCategory
	}
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	return nil
}

func (s *BudgetService) Create(ctx context.Context, userID string, in BudgetInput) (core.Budget, error) {
	if strings.TrimSpace(in.CategoryID) == "" || in.Amount.Cents == 0 || in.Period == "" ||
		in.StartDate.IsZero() || in.EndDate.IsZero() {
		return core.Budget{}, errBudgetFieldsMissing
	}
	now := nowUTC(s.clock)
	g := core.Budget{
		ID:          core.NewID(),
		UserID:      userID,
		CategoryID:  strings.TrimSpace(in.CategoryID),
		Amount:      in.Amount,
		Period:      in.Period,
		StartDate:   core.StartOfDay(in.StartDate),
		EndDate:     core.StartOfDay(in.EndDate),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := g.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.requireCategory(ctx, g.CategoryID); err != nil {
		return core.Budget{}, err
	}
	if err := s.budgets.CreateBudget(ctx, g); err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicate):
			return core.Budget{}, errBudgetDuplicate
		case errors.Is(err, core.ErrNotFound):
			return core.Budget{}, errUnknownCategory
		}
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget created",
		log.FieldBudgetID, g.ID,
		log.FieldUserID, userID,
		log.FieldCategoryID, g.CategoryID,
		log.FieldAmountCents, g.Amount.Cents)
	return s.Get(ctx, userID, g.ID)
}

func (s *BudgetService) Update(ctx context.Context, userID, id string, upd BudgetUpdate) (core.Budget, error) {
	g, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.Budget{}, err
	}
	if upd.CategoryID != nil {
		g.CategoryID = strings.TrimSpace(*upd.CategoryID)
	}
	if upd.Amount != nil {
		g.Amount = *upd.Amount
	}
	if upd.Period != nil {
		g.Period = *upd.Period
	}
	if upd.StartDate != nil {
		g.StartDate = core.StartOfDay(*upd.StartDate)
	}
	if upd.EndDate != nil {
		g.EndDate = core.StartOfDay(*upd.EndDate)
	}
	if upd.Description != nil {
		g.Description = strings.TrimSpace(*upd.Description)
	}
	if err := g.Validate(); err != nil {
		return core.Budget{}, err
	}
	if upd.CategoryID != nil {
		if err := s.requireCategory(ctx, g.CategoryID); err != nil {
			return core.Budget{}, err
		}
	}
	g.UpdatedAt = nowUTC(s.clock)

	if err := s.budgets.UpdateBudget(ctx, g); err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicate):
			return core.Budget{}, errBudgetDuplicate
		case errors.Is(err, core.ErrNotFound):
			return core.Budget{}, errBudgetNotFound
		}
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return s.Get(ctx, userID, id)
}

func (s *BudgetService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.budgets.DeleteBudget(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return errBudgetNotFound
		}
		return fmt.Errorf("delete budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget deleted", log.FieldBudgetID, id, log.FieldUserID, userID)
	return nil
}

// Status reports spending against the budget in the period window current at
// now.
func (s *BudgetService) Status(ctx context.Context, userID, id string, now time.Time) (core.BudgetStatus, error) {
	g, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	start, end, active, err := BudgetWindow(g, now)
	if err != nil {
		return core.BudgetStatus{}, err
	}

	totals, err := s.bills.SumBills(ctx, core.BillFilter{
		UserID:     userID,
		Type:       core.Expense,
		CategoryID: g.CategoryID,
		From:       start,
		To:         end,
	})
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("sum budget spending: %w", err)
	}

	spent := totals.Expense
	return core.BudgetStatus{
		Budget:      g,
		WindowStart: start,
		WindowEnd:   end,
		Active:      active,
		Spent:       spent,
		Remaining:   g.Amount.Sub(spent),
		Percentage:  percentage(spent, g.Amount),
	}, nil
}

// percentage returns part/whole*100 rounded to two places.
func percentage(part, whole core.Money) float64 {
	if whole.Cents == 0 {
		return 0
	}
	return decimal.NewFromInt(part.Cents).
		Div(decimal.NewFromInt(whole.Cents)).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}
