// Package memory is a map-backed storage.Store for tests and local runs.
// Data does not survive a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"billbook/internal/core"
	"billbook/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu         sync.RWMutex
	users      map[string]core.User
	categories map[string]core.Category
	bills      map[string]core.Bill
	budgets    map[string]core.Budget
}

func New() *Store {
	return &Store{
		users:      make(map[string]core.User),
		categories: make(map[string]core.Category),
		bills:      make(map[string]core.Bill),
		budgets:    make(map[string]core.Budget),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, core.ErrNotFound)
}

func duplicate(op string) error {
	return fmt.Errorf("%s: %w", op, core.ErrDuplicate)
}

// ---- users ----

func (s *Store) usernameTaken(username, exceptID string) bool {
	for _, u := range s.users {
		if u.Username == username && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok || s.usernameTaken(u.Username, "") {
		return duplicate("create user")
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, notFound("get user")
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, notFound("get user by username")
}

func (s *Store) UpdateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.users[u.ID]
	if !ok {
		return notFound("update user")
	}
	if s.usernameTaken(u.Username, u.ID) {
		return duplicate("update user")
	}
	u.CreatedAt = old.CreatedAt
	s.users[u.ID] = u
	return nil
}

func (s *Store) ListUsers(context.Context) ([]core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// ---- categories ----

func (s *Store) categoryTaken(c core.Category) bool {
	for _, o := range s.categories {
		if o.Name == c.Name && o.Type == c.Type && o.ID != c.ID {
			return true
		}
	}
	return false
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; ok || s.categoryTaken(c) {
		return duplicate("create category")
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, notFound("get category")
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, t core.BillType) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Category{}
	for _, c := range s.categories {
		if t == "" || c.Type == t {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.categories[c.ID]
	if !ok {
		return notFound("update category")
	}
	if s.categoryTaken(c) {
		return duplicate("update category")
	}
	c.CreatedAt = old.CreatedAt
	s.categories[c.ID] = c
	return nil
}

func (s *Store) inUse(id string) bool {
	for _, b := range s.bills {
		if b.CategoryID == id {
			return true
		}
	}
	for _, g := range s.budgets {
		if g.CategoryID == id {
			return true
		}
	}
	return false
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return notFound("delete category")
	}
	if s.inUse(id) {
		return fmt.Errorf("delete category: %w", core.ErrInUse)
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) CategoryInUse(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inUse(id), nil
}

// ---- bills ----

func (s *Store) withCategory(b core.Bill) core.Bill {
	if c, ok := s.categories[b.CategoryID]; ok {
		b.Category = &c
	} else {
		b.Category = nil
	}
	return b
}

func (s *Store) CreateBill(_ context.Context, b core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[b.ID]; ok {
		return duplicate("create bill")
	}
	b.Category = nil
	s.bills[b.ID] = b
	return nil
}

func (s *Store) GetBill(_ context.Context, id string) (core.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bills[id]
	if !ok {
		return core.Bill{}, notFound("get bill")
	}
	return s.withCategory(b), nil
}

func (s *Store) UpdateBill(_ context.Context, b core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.bills[b.ID]
	if !ok {
		return notFound("update bill")
	}
	b.UserID = old.UserID
	b.CreatedAt = old.CreatedAt
	b.Category = nil
	s.bills[b.ID] = b
	return nil
}

func (s *Store) DeleteBill(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[id]; !ok {
		return notFound("delete bill")
	}
	delete(s.bills, id)
	return nil
}

// matching returns the bills selected by f in listing order.
func (s *Store) matching(f core.BillFilter) []core.Bill {
	out := []core.Bill{}
	for _, b := range s.bills {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) ListBills(_ context.Context, f core.BillFilter, p core.PageRequest) ([]core.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p = p.Normalize()
	all := s.matching(f)
	start := p.Offset()
	if start < 0 || start >= len(all) {
		return []core.Bill{}, nil
	}
	end := min(start+p.Limit, len(all))
	page := make([]core.Bill, 0, end-start)
	for _, b := range all[start:end] {
		page = append(page, s.withCategory(b))
	}
	return page, nil
}

func (s *Store) CountBills(_ context.Context, f core.BillFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.bills {
		if f.Matches(b) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumBills(_ context.Context, f core.BillFilter) (core.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var t core.Totals
	for _, b := range s.bills {
		if f.Matches(b) {
			t.Add(b)
		}
	}
	return t, nil
}

// ---- budgets ----

func (s *Store) budgetTaken(g core.Budget) bool {
	for _, o := range s.budgets {
		if o.UserID == g.UserID && o.CategoryID == g.CategoryID && o.ID != g.ID {
			return true
		}
	}
	return false
}

func (s *Store) withBudgetCategory(g core.Budget) core.Budget {
	if c, ok := s.categories[g.CategoryID]; ok {
		g.Category = &c
	} else {
		g.Category = nil
	}
	return g
}

func (s *Store) CreateBudget(_ context.Context, g core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[g.ID]; ok || s.budgetTaken(g) {
		return duplicate("create budget")
	}
	g.Category = nil
	s.budgets[g.ID] = g
	return nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, notFound("get budget")
	}
	return s.withBudgetCategory(g), nil
}

func (s *Store) ListBudgets(_ context.Context, userID string) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Budget{}
	for _, g := range s.budgets {
		if g.UserID == userID {
			out = append(out, s.withBudgetCategory(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateBudget(_ context.Context, g core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.budgets[g.ID]
	if !ok {
		return notFound("update budget")
	}
	g.UserID = old.UserID
	if s.budgetTaken(g) {
		return duplicate("update budget")
	}
	g.CreatedAt = old.CreatedAt
	g.Category = nil
	s.budgets[g.ID] = g
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return notFound("delete budget")
	}
	delete(s.budgets, id)
	return nil
}
