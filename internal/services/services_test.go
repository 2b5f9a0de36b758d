package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"billbook/internal/amqp"
	"billbook/internal/auth"
	"billbook/internal/core"
	"billbook/internal/storage/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []amqp.BillEventMessage
	err  error
}

func (p *recordingPublisher) PublishBillEvent(_ context.Context, msg amqp.BillEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) actions() []amqp.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.Action, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.Action
	}
	return out
}

type fixture struct {
	store      *memory.Store
	users      *UserService
	categories *CategoryService
	bills      *BillService
	budgets    *BudgetService
	publisher  *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	tokens, err := auth.NewTokenIssuer("services-test-secret", time.Hour)
	require.NoError(t, err)
	pub := &recordingPublisher{}

	// Strictly increasing clock so creation order is deterministic.
	var mu sync.Mutex
	tick := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}

	f := &fixture{
		store:      store,
		users:      NewUserService(store, auth.NewBcryptHasher(bcrypt.MinCost), tokens, nil),
		categories: NewCategoryService(store, nil),
		bills:      NewBillService(store, store, pub, nil),
		budgets:    NewBudgetService(store, store, store, nil),
		publisher:  pub,
	}
	f.users.clock = clock
	f.categories.clock = clock
	f.bills.clock = clock
	f.budgets.clock = clock
	return f
}

func (f *fixture) user(t *testing.T, name string) core.User {
	t.Helper()
	res, err := f.users.Register(context.Background(), name, "password1")
	require.NoError(t, err)
	return res.User
}

func (f *fixture) category(t *testing.T, name string, typ core.BillType) core.Category {
	t.Helper()
	c, err := f.categories.Create(context.Background(), name, typ, "")
	require.NoError(t, err)
	return c
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func money(cents int64) core.Money { return core.Money{Cents: cents} }

func ptr[T any](v T) *T { return &v }
