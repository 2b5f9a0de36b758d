package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"billbook/internal/auth"
	"billbook/internal/log"
	"billbook/internal/services"
	"billbook/internal/storage/memory"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store := memory.New()
	tokens, err := auth.NewTokenIssuer("test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	svc := Services{
		Users:      services.NewUserService(store, auth.NewBcryptHasher(bcrypt.MinCost), tokens, nil),
		Categories: services.NewCategoryService(store, nil),
		Bills:      services.NewBillService(store, store, nil, nil),
		Budgets:    services.NewBudgetService(store, store, store, nil),
	}
	if opts.AuthRateLimitPerMinute == 0 {
		opts.AuthRateLimitPerMinute = 1000
	}
	srv := NewServer(":0", svc, tokens, store, opts, log.Discard())
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func call(t *testing.T, srv *Server, method, path, token string, body any) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Header().Get("Content-Type") != "application/json; charset=utf-8" {
		return rec, testEnvelope{}
	}
	return rec, decodeEnvelope(t, rec)
}

func dataOf[T any](t *testing.T, env testEnvelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func register(t *testing.T, srv *Server, username string) userView {
	t.Helper()
	rec, env := call(t, srv, http.MethodPost, "/api/users/register", "",
		map[string]string{"username": username, "password": "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	u := dataOf[userView](t, env)
	require.NotEmpty(t, u.Token)
	return u
}

func createCategory(t *testing.T, srv *Server, token, name, billType string) string {
	t.Helper()
	rec, env := call(t, srv, http.MethodPost, "/api/categories", token,
		map[string]string{"name": name, "type": billType})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return dataOf[categoryView](t, env).ID
}

func createBill(t *testing.T, srv *Server, token string, body map[string]any) billView {
	t.Helper()
	rec, env := call(t, srv, http.MethodPost, "/api/bills", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return dataOf[billView](t, env)
}

func TestUserAuthFlow(t *testing.T) {
	srv := newTestServer(t, Options{})
	u := register(t, srv, "alice")
	assert.Equal(t, "alice", u.Username)

	rec, env := call(t, srv, http.MethodPost, "/api/users/register", "",
		map[string]string{"username": "alice", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username already exists", env.Msg)

	rec, env = call(t, srv, http.MethodPost, "/api/users/login", "",
		map[string]string{"username": "alice", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, env.Code)

	rec, env = call(t, srv, http.MethodPost, "/api/users/login", "",
		map[string]string{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := dataOf[userView](t, env).Token

	rec, _ = call(t, srv, http.MethodGet, "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = call(t, srv, http.MethodGet, "/api/users/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = call(t, srv, http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := dataOf[userView](t, env)
	assert.Equal(t, u.ID, profile.ID)
	assert.Empty(t, profile.Token)

	rec, env = call(t, srv, http.MethodPut, "/api/users/profile", token,
		map[string]string{"username": "alice2", "password": ""})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := dataOf[userView](t, env)
	assert.Equal(t, "alice2", updated.Username)
	assert.NotEmpty(t, updated.Token)

	rec, _ = call(t, srv, http.MethodPost, "/api/users/login", "",
		map[string]string{"username": "alice2", "password": "secret1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPasswordsAreNotSanitized(t *testing.T) {
	srv := newTestServer(t, Options{})
	const pw = "  pass phrase\t "

	rec, _ := call(t, srv, http.MethodPost, "/api/users/register", "",
		map[string]string{"username": "carol", "password": pw})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = call(t, srv, http.MethodPost, "/api/users/login", "",
		map[string]string{"username": "carol", "password": pw})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The trimmed form is a different password.
	rec, _ = call(t, srv, http.MethodPost, "/api/users/login", "",
		map[string]string{"username": "carol", "password": "pass phrase"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordLengthLimits(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec, env := call(t, srv, http.MethodPost, "/api/users/register", "",
		map[string]string{"username": "dave", "password": strings.Repeat("x", 80)})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "password too long (max 72 bytes)", env.Msg)

	u := register(t, srv, "erin")
	rec, _ = call(t, srv, http.MethodPut, "/api/users/profile", u.Token,
		map[string]string{"password": strings.Repeat("y", 73)})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec, _ = call(t, srv, http.MethodPost, "/api/users/register", "",
		map[string]string{"username": "frank", "password": strings.Repeat("z", 72)})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestBillLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})
	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")
	salary := createCategory(t, srv, alice.Token, "Salary", "income")
	food := createCategory(t, srv, alice.Token, "Food", "expense")

	createBill(t, srv, alice.Token, map[string]any{
		"amount": 100, "type": "income", "categoryId": salary, "date": "2025-03-01",
	})
	lunch := createBill(t, srv, alice.Token, map[string]any{
		"amount": "25.50", "type": "expense", "categoryId": food, "date": "2025-03-14", "note": "Lunch with Bob",
	})
	require.NotNil(t, lunch.Category)
	assert.Equal(t, "Food", lunch.Category.Name)
	assert.Equal(t, int64(2550), lunch.Amount.Cents)

	rec, env := call(t, srv, http.MethodGet, "/api/bills", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := dataOf[billListView](t, env)
	assert.Len(t, list.List, 2)
	assert.Equal(t, paginationView{Current: 1, PageSize: 10, Total: 2}, list.Pagination)
	assert.Equal(t, int64(10000), list.Stats.TotalIncome.Cents)
	assert.Equal(t, int64(2550), list.Stats.TotalExpense.Cents)

	rec, env = call(t, srv, http.MethodGet, "/api/bills?type=expense&keyword=bob&endDate=2025-03-14", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = dataOf[billListView](t, env)
	require.Len(t, list.List, 1)
	assert.Equal(t, lunch.ID, list.List[0].ID)
	assert.Zero(t, list.Stats.TotalIncome.Cents)

	rec, env = call(t, srv, http.MethodGet, "/api/bills/summary", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := dataOf[summaryView](t, env)
	assert.Equal(t, int64(7450), sum.Balance.Cents)

	rec, env = call(t, srv, http.MethodGet, "/api/bills/recent?limit=1", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, dataOf[[]billView](t, env), 1)

	// Bob sees none of it and cannot touch Alice's bill.
	rec, env = call(t, srv, http.MethodGet, "/api/bills", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, dataOf[billListView](t, env).List)
	rec, _ = call(t, srv, http.MethodGet, "/api/bills/"+lunch.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = call(t, srv, http.MethodDelete, "/api/bills/"+lunch.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = call(t, srv, http.MethodPut, "/api/bills/"+lunch.ID, alice.Token, map[string]any{"note": "Dinner"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := dataOf[billView](t, env)
	assert.Equal(t, "Dinner", edited.Note)
	assert.Equal(t, int64(2550), edited.Amount.Cents)

	rec, env = call(t, srv, http.MethodDelete, "/api/bills/"+lunch.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", string(env.Data))
	rec, _ = call(t, srv, http.MethodGet, "/api/bills/"+lunch.ID, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBillValidationErrors(t *testing.T) {
	srv := newTestServer(t, Options{})
	u := register(t, srv, "alice")
	food := createCategory(t, srv, u.Token, "Food", "expense")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing fields", map[string]any{"amount": 5}},
		{"bad amount", map[string]any{"amount": "abc", "type": "expense", "categoryId": food, "date": "2025-03-14"}},
		{"zero amount", map[string]any{"amount": 0, "type": "expense", "categoryId": food, "date": "2025-03-14"}},
		{"bad type", map[string]any{"amount": 5, "type": "gift", "categoryId": food, "date": "2025-03-14"}},
		{"bad date", map[string]any{"amount": 5, "type": "expense", "categoryId": food, "date": "14/03/2025"}},
		{"unknown category", map[string]any{"amount": 5, "type": "expense", "categoryId": "nope", "date": "2025-03-14"}},
		{"amount with huge exponent", map[string]any{"amount": "1e20000000", "type": "expense", "categoryId": food, "date": "2025-03-14"}},
		{"amount with huge negative exponent", map[string]any{"amount": "1e-20000000", "type": "expense", "categoryId": food, "date": "2025-03-14"}},
		{"amount over int64 cents", map[string]any{"amount": "92233720368547758.08", "type": "expense", "categoryId": food, "date": "2025-03-14"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			rec, env := call(t, srv, http.MethodPost, "/api/bills", u.Token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, http.StatusBadRequest, env.Code)
			assert.NotEmpty(t, env.Msg)
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}
}

func TestBillListOutOfRangePage(t *testing.T) {
	srv := newTestServer(t, Options{})
	u := register(t, srv, "alice")
	food := createCategory(t, srv, u.Token, "Food", "expense")
	createBill(t, srv, u.Token, map[string]any{"amount": 5, "type": "expense", "categoryId": food, "date": "2025-03-14"})

	for _, q := range []string{
		"page=9223372036854775807&limit=10",
		"page=9223372036854775807&limit=100",
		"page=9223372036854775807&limit=-1",
		"page=4611686018427387904",
	} {
		rec, env := call(t, srv, http.MethodGet, "/api/bills?"+q, u.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code, q)
		list := dataOf[billListView](t, env)
		assert.Empty(t, list.List, q)
		assert.Equal(t, 1, list.Pagination.Total, q)
		assert.Equal(t, int64(500), list.Stats.TotalExpense.Cents, q)
	}

	// Past int64 is a parse error, not a crash.
	rec, _ := call(t, srv, http.MethodGet, "/api/bills?page=99999999999999999999", u.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The server still answers afterwards.
	rec, _ = call(t, srv, http.MethodGet, "/api/bills", u.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCategoryEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})
	u := register(t, srv, "alice")

	rec, _ := call(t, srv, http.MethodPost, "/api/categories", "", map[string]string{"name": "Food", "type": "expense"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	food := createCategory(t, srv, u.Token, "Food", "expense")
	createCategory(t, srv, u.Token, "Salary", "income")
	rec, _ = call(t, srv, http.MethodPost, "/api/categories", u.Token, map[string]string{"name": "Food", "type": "expense"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Every category route needs a token, reads included.
	for _, path := range []string{"/api/categories", "/api/categories?type=expense", "/api/categories/" + food} {
		rec, env := call(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "not authorized, no token", env.Msg, path)
	}
	rec, _ = call(t, srv, http.MethodPut, "/api/categories/"+food, "", map[string]string{"icon": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = call(t, srv, http.MethodDelete, "/api/categories/"+food, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := call(t, srv, http.MethodGet, "/api/categories?type=expense", u.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := dataOf[[]categoryView](t, env)
	require.Len(t, cats, 1)
	assert.Equal(t, "Food", cats[0].Name)

	rec, env = call(t, srv, http.MethodPut, "/api/categories/"+food, u.Token, map[string]string{"icon": "fork"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fork", dataOf[categoryView](t, env).Icon)

	createBill(t, srv, u.Token, map[string]any{"amount": 5, "type": "expense", "categoryId": food, "date": "2025-03-14"})
	rec, _ = call(t, srv, http.MethodDelete, "/api/categories/"+food, u.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = call(t, srv, http.MethodGet, "/api/categories/missing", u.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBudgetStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{})
	srv.now = func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) }
	u := register(t, srv, "alice")
	food := createCategory(t, srv, u.Token, "Food", "expense")

	rec, env := call(t, srv, http.MethodPost, "/api/budgets", u.Token, map[string]any{
		"category": food, "amount": 100, "period": "monthly",
		"startDate": "2025-01-01", "endDate": "2025-12-31",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	budget := dataOf[budgetView](t, env)
	assert.Equal(t, food, budget.CategoryID)

	rec, _ = call(t, srv, http.MethodPost, "/api/budgets", u.Token, map[string]any{
		"categoryId": food, "amount": 50, "period": "weekly",
		"startDate": "2025-01-01", "endDate": "2025-12-31",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	createBill(t, srv, u.Token, map[string]any{"amount": 40, "type": "expense", "categoryId": food, "date": "2025-03-10"})
	createBill(t, srv, u.Token, map[string]any{"amount": 30, "type": "expense", "categoryId": food, "date": "2025-02-10"})

	rec, env = call(t, srv, http.MethodGet, "/api/budgets/"+budget.ID+"/status", u.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := dataOf[budgetStatusView](t, env)
	assert.True(t, st.Active)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), st.WindowStart)
	assert.Equal(t, int64(4000), st.Spent.Cents)
	assert.Equal(t, int64(6000), st.Remaining.Cents)
	assert.InDelta(t, 40.0, st.Percentage, 0.001)

	other := register(t, srv, "bob")
	rec, _ = call(t, srv, http.MethodGet, "/api/budgets/"+budget.ID, other.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = call(t, srv, http.MethodDelete, "/api/budgets/"+budget.ID, u.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, env = call(t, srv, http.MethodGet, "/api/budgets", u.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, dataOf[[]budgetView](t, env))
}

func TestAuthRateLimit(t *testing.T) {
	srv := newTestServer(t, Options{AuthRateLimitPerMinute: 2})
	body := map[string]string{"username": "ghost", "password": "secret1"}

	for i := 0; i < 2; i++ {
		rec, _ := call(t, srv, http.MethodPost, "/api/users/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, env := call(t, srv, http.MethodPost, "/api/users/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, http.StatusTooManyRequests, env.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestInfrastructureRoutes(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec, env := call(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	health := dataOf[healthView](t, env)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, int64(1), health.Requests)
	rec, _ = call(t, srv, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = call(t, srv, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", rec.Header().Get("Content-Security-Policy"))

	rec, _ = call(t, srv, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Billbook")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "script-src 'self'")
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	rec, _ = call(t, srv, http.MethodGet, "/static/app.js", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
}

func TestHealthReportsRateLimited(t *testing.T) {
	srv := newTestServer(t, Options{AuthRateLimitPerMinute: 1})
	body := map[string]string{"username": "nobody", "password": "secret1"}
	call(t, srv, http.MethodPost, "/api/users/login", "", body)
	rec, _ := call(t, srv, http.MethodPost, "/api/users/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	st := srv.Stats()
	assert.Equal(t, int64(1), st.RateLimited)
	assert.Equal(t, int64(1), st.TrackedClients)
	assert.Equal(t, int64(2), st.Requests)
}
