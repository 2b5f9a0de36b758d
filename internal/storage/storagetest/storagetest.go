// Package storagetest holds the behaviour every storage.Store must share.
// Adapters call Run from their own tests.
package storagetest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billbook/internal/core"
	"billbook/internal/storage"
)

// Factory returns an empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) storage.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("Bills", func(t *testing.T) { testBills(t, newStore(t)) })
	t.Run("BillFilters", func(t *testing.T) { testBillFilters(t, newStore(t)) })
	t.Run("Budgets", func(t *testing.T) { testBudgets(t, newStore(t)) })
}

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func day(n int) time.Time { return base.AddDate(0, 0, n) }

func mustUser(t *testing.T, s storage.Store, name string) core.User {
	t.Helper()
	u := core.User{ID: core.NewID(), Username: name, PasswordHash: "hash-" + name, CreatedAt: base, UpdatedAt: base}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func mustCategory(t *testing.T, s storage.Store, name string, typ core.BillType) core.Category {
	t.Helper()
	c := core.Category{ID: core.NewID(), Name: name, Type: typ, Icon: "i", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, s.CreateCategory(context.Background(), c))
	return c
}

func mustBill(t *testing.T, s storage.Store, userID string, c core.Category, cents int64, date time.Time, note string, created time.Time) core.Bill {
	t.Helper()
	b := core.Bill{
		ID: core.NewID(), UserID: userID, Amount: core.Money{Cents: cents}, Type: c.Type,
		CategoryID: c.ID, Date: date, Note: note, CreatedAt: created, UpdatedAt: created,
	}
	require.NoError(t, s.CreateBill(context.Background(), b))
	return b
}

func ids(bills []core.Bill) []string {
	out := make([]string, len(bills))
	for i, b := range bills {
		out[i] = b.ID
	}
	return out
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")

	got, err := s.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	got, err = s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetUser(ctx, core.NewID())
	assert.ErrorIs(t, err, core.ErrNotFound)

	dup := core.User{ID: core.NewID(), Username: "alice", PasswordHash: "x", CreatedAt: base, UpdatedAt: base}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), core.ErrDuplicate)

	bob := mustUser(t, s, "bob")
	bob.Username = "alice"
	assert.ErrorIs(t, s.UpdateUser(ctx, bob), core.ErrDuplicate)

	alice.Username = "alice2"
	alice.PasswordHash = "new"
	alice.UpdatedAt = day(1)
	require.NoError(t, s.UpdateUser(ctx, alice))
	got, err = s.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice2", got.Username)
	assert.Equal(t, "new", got.PasswordHash)
	assert.True(t, got.UpdatedAt.Equal(day(1)))

	ghost := core.User{ID: core.NewID(), Username: "ghost", UpdatedAt: base}
	assert.ErrorIs(t, s.UpdateUser(ctx, ghost), core.ErrNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func testCategories(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "Food", core.Expense)
	mustCategory(t, s, "Bonus", core.Income)
	mustCategory(t, s, "Auto", core.Expense)

	dup := core.Category{ID: core.NewID(), Name: "Food", Type: core.Expense, CreatedAt: base, UpdatedAt: base}
	assert.ErrorIs(t, s.CreateCategory(ctx, dup), core.ErrDuplicate)

	// Same name with the other type is a different category.
	foodIncome := mustCategory(t, s, "Food", core.Income)

	all, err := s.ListCategories(ctx, "")
	require.NoError(t, err)
	var names []string
	for _, c := range all {
		names = append(names, string(c.Type)+"/"+c.Name)
	}
	assert.Equal(t, []string{"expense/Auto", "expense/Food", "income/Bonus", "income/Food"}, names)

	incomes, err := s.ListCategories(ctx, core.Income)
	require.NoError(t, err)
	assert.Len(t, incomes, 2)

	foodIncome.Name = "Bonus"
	assert.ErrorIs(t, s.UpdateCategory(ctx, foodIncome), core.ErrDuplicate)

	food.Name = "Groceries"
	food.Icon = "cart"
	food.UpdatedAt = day(2)
	require.NoError(t, s.UpdateCategory(ctx, food))
	got, err := s.GetCategory(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Name)
	assert.Equal(t, "cart", got.Icon)

	require.NoError(t, s.DeleteCategory(ctx, food.ID))
	_, err = s.GetCategory(ctx, food.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.DeleteCategory(ctx, food.ID), core.ErrNotFound)
	assert.ErrorIs(t, s.UpdateCategory(ctx, food), core.ErrNotFound)
}

func testBills(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "alice")
	food := mustCategory(t, s, "Food", core.Expense)

	b := mustBill(t, s, u.ID, food, 1250, day(0), "lunch", day(0))

	got, err := s.GetBill(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), got.Amount.Cents)
	assert.True(t, got.Date.Equal(day(0)))
	require.NotNil(t, got.Category)
	assert.Equal(t, "Food", got.Category.Name)

	used, err := s.CategoryInUse(ctx, food.ID)
	require.NoError(t, err)
	assert.True(t, used)
	assert.ErrorIs(t, s.DeleteCategory(ctx, food.ID), core.ErrInUse)

	salary := mustCategory(t, s, "Salary", core.Income)
	b.Amount = core.Money{Cents: 300000}
	b.Type = core.Income
	b.CategoryID = salary.ID
	b.Note = "march"
	b.Date = day(3)
	b.UpdatedAt = day(4)
	require.NoError(t, s.UpdateBill(ctx, b))

	got, err = s.GetBill(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Income, got.Type)
	assert.Equal(t, "Salary", got.Category.Name)
	assert.Equal(t, "march", got.Note)
	assert.True(t, got.CreatedAt.Equal(day(0)))

	used, err = s.CategoryInUse(ctx, food.ID)
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, s.DeleteBill(ctx, b.ID))
	_, err = s.GetBill(ctx, b.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.DeleteBill(ctx, b.ID), core.ErrNotFound)
	assert.ErrorIs(t, s.UpdateBill(ctx, b), core.ErrNotFound)
}

func testBillFilters(t *testing.T, s storage.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	food := mustCategory(t, s, "Food", core.Expense)
	rent := mustCategory(t, s, "Rent", core.Expense)
	salary := mustCategory(t, s, "Salary", core.Income)

	b1 := mustBill(t, s, alice.ID, food, 1000, day(0), "Pizza night", day(0))
	b2 := mustBill(t, s, alice.ID, rent, 80000, day(1), "March rent", day(1))
	b3 := mustBill(t, s, alice.ID, salary, 250000, day(1), "salary 100%", day(2))
	b4 := mustBill(t, s, alice.ID, food, 550, day(5), "pizza slice", day(5))
	mustBill(t, s, bob.ID, food, 9999, day(1), "bob pizza", day(1))

	all := core.BillFilter{UserID: alice.ID}

	t.Run("order", func(t *testing.T) {
		got, err := s.ListBills(ctx, all, core.PageRequest{Page: 1, Limit: 10})
		require.NoError(t, err)
		// Same date: newer creation first.
		assert.Equal(t, []string{b4.ID, b3.ID, b2.ID, b1.ID}, ids(got))
		for _, b := range got {
			assert.NotNil(t, b.Category)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		got, err := s.ListBills(ctx, all, core.PageRequest{Page: 2, Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, []string{b1.ID}, ids(got))

		got, err = s.ListBills(ctx, all, core.PageRequest{Page: 3, Limit: 3})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("huge page is empty", func(t *testing.T) {
		for _, p := range []core.PageRequest{
			{Page: math.MaxInt, Limit: 10},
			{Page: math.MaxInt, Limit: core.MaxLimit},
			{Page: core.MaxPage, Limit: math.MaxInt},
		} {
			got, err := s.ListBills(ctx, all, p)
			require.NoError(t, err, "%+v", p)
			assert.Empty(t, got, "%+v", p)
		}
		n, err := s.CountBills(ctx, all)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("keyword folding and literals", func(t *testing.T) {
		carol := mustUser(t, s, "carol")
		cafe := mustBill(t, s, carol.ID, food, 420, day(3), "CAFÉ ÉTÉ", day(3))
		snake := mustBill(t, s, carol.ID, food, 300, day(2), "snack_bar", day(2))
		slash := mustBill(t, s, carol.ID, food, 200, day(1), `C:\tmp receipt`, day(1))
		promo := mustBill(t, s, carol.ID, food, 100, day(0), "snackXbar 50% off", day(0))

		kwCases := []struct {
			keyword string
			want    []string
		}{
			{"été", []string{cafe.ID}},
			{"Café", []string{cafe.ID}},
			{"snack_bar", []string{snake.ID}},
			{"_", []string{snake.ID}},
			{`\`, []string{slash.ID}},
			{"%", []string{promo.ID}},
			{"0%", []string{promo.ID}},
			{"%%", []string{}},
		}
		for _, tc := range kwCases {
			f := core.BillFilter{UserID: carol.ID, Keyword: tc.keyword}
			got, err := s.ListBills(ctx, f, core.PageRequest{Page: 1, Limit: 100})
			require.NoError(t, err, tc.keyword)
			assert.Equal(t, tc.want, ids(got), "keyword %q", tc.keyword)

			n, err := s.CountBills(ctx, f)
			require.NoError(t, err, tc.keyword)
			assert.Equal(t, len(tc.want), n, "keyword %q", tc.keyword)
		}
	})

	cases := []struct {
		name string
		f    core.BillFilter
		want []string
		sums core.Totals
	}{
		{
			name: "all",
			f:    all,
			want: []string{b4.ID, b3.ID, b2.ID, b1.ID},
			sums: core.Totals{Income: core.Money{Cents: 250000}, Expense: core.Money{Cents: 81550}},
		},
		{
			name: "type",
			f:    core.BillFilter{UserID: alice.ID, Type: core.Expense},
			want: []string{b4.ID, b2.ID, b1.ID},
			sums: core.Totals{Expense: core.Money{Cents: 81550}},
		},
		{
			name: "category",
			f:    core.BillFilter{UserID: alice.ID, CategoryID: food.ID},
			want: []string{b4.ID, b1.ID},
			sums: core.Totals{Expense: core.Money{Cents: 1550}},
		},
		{
			name: "inclusive range",
			f:    core.BillFilter{UserID: alice.ID, From: day(1), To: day(1)},
			want: []string{b3.ID, b2.ID},
			sums: core.Totals{Income: core.Money{Cents: 250000}, Expense: core.Money{Cents: 80000}},
		},
		{
			name: "open ended from",
			f:    core.BillFilter{UserID: alice.ID, From: day(2)},
			want: []string{b4.ID},
			sums: core.Totals{Expense: core.Money{Cents: 550}},
		},
		{
			name: "keyword case-insensitive",
			f:    core.BillFilter{UserID: alice.ID, Keyword: "PIZZA"},
			want: []string{b4.ID, b1.ID},
			sums: core.Totals{Expense: core.Money{Cents: 1550}},
		},
		{
			name: "keyword literal percent",
			f:    core.BillFilter{UserID: alice.ID, Keyword: "100%"},
			want: []string{b3.ID},
			sums: core.Totals{Income: core.Money{Cents: 250000}},
		},
		{
			name: "keyword wildcard is not special",
			f:    core.BillFilter{UserID: alice.ID, Keyword: "p_zza"},
			want: []string{},
		},
		{
			name: "nothing matches",
			f:    core.BillFilter{UserID: alice.ID, Type: core.Income, CategoryID: food.ID},
			want: []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.ListBills(ctx, tc.f, core.PageRequest{Page: 1, Limit: 100})
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))

			n, err := s.CountBills(ctx, tc.f)
			require.NoError(t, err)
			assert.Equal(t, len(tc.want), n)

			sums, err := s.SumBills(ctx, tc.f)
			require.NoError(t, err)
			assert.Equal(t, tc.sums, sums)
		})
	}
}

func testBudgets(t *testing.T, s storage.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	food := mustCategory(t, s, "Food", core.Expense)
	rent := mustCategory(t, s, "Rent", core.Expense)

	g := core.Budget{
		ID: core.NewID(), UserID: alice.ID, CategoryID: food.ID, Amount: core.Money{Cents: 40000},
		Period: core.Monthly, StartDate: day(0), EndDate: day(300), Description: "food cap",
		CreatedAt: base, UpdatedAt: base,
	}
	require.NoError(t, s.CreateBudget(ctx, g))

	dup := g
	dup.ID = core.NewID()
	assert.ErrorIs(t, s.CreateBudget(ctx, dup), core.ErrDuplicate)

	// Another user may budget the same category.
	other := g
	other.ID = core.NewID()
	other.UserID = bob.ID
	require.NoError(t, s.CreateBudget(ctx, other))

	second := g
	second.ID = core.NewID()
	second.CategoryID = rent.ID
	second.CreatedAt = day(1)
	require.NoError(t, s.CreateBudget(ctx, second))

	list, err := s.ListBudgets(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	require.NotNil(t, list[1].Category)
	assert.Equal(t, "Food", list[1].Category.Name)

	got, err := s.GetBudget(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Monthly, got.Period)
	assert.Equal(t, int64(40000), got.Amount.Cents)
	assert.True(t, got.EndDate.Equal(day(300)))

	used, err := s.CategoryInUse(ctx, rent.ID)
	require.NoError(t, err)
	assert.True(t, used)

	second.CategoryID = food.ID
	assert.ErrorIs(t, s.UpdateBudget(ctx, second), core.ErrDuplicate)

	g.Amount = core.Money{Cents: 50000}
	g.Period = core.Weekly
	g.UpdatedAt = day(2)
	require.NoError(t, s.UpdateBudget(ctx, g))
	got, err = s.GetBudget(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Weekly, got.Period)
	assert.Equal(t, int64(50000), got.Amount.Cents)

	require.NoError(t, s.DeleteBudget(ctx, g.ID))
	_, err = s.GetBudget(ctx, g.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.DeleteBudget(ctx, g.ID), core.ErrNotFound)
}
