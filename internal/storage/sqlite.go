package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"billbook/internal/core"
)

var _ Store = (*SQLiteStore)(nil)

// foldFunc is the SQL name of the Go-side case fold used for keyword search.
// SQLite's lower() only folds ASCII.
const foldFunc = "billbook_fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, foldValue)
}

func foldValue(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

type SQLiteStore struct {
	db      *sql.DB
	queries *Queries
}

// NewSQLiteStore opens (creating when needed) the database at dbPath and
// brings its schema up to date.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteStore{
		db:      db,
		queries: New(db),
	}, nil
}

func dsn(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func sqliteCode(err error) (int, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code(), true
	}
	return 0, false
}

func isUniqueViolation(err error) bool {
	if code, ok := sqliteCode(err); ok {
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if code, ok := sqliteCode(err); ok && code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// translate maps driver errors onto core sentinels.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, core.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affected(op string, n int64, err error) error {
	if err != nil {
		return translate(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u core.User) error {
	return translate("create user", s.queries.CreateUser(ctx, u))
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (core.User, error) {
	u, err := s.queries.GetUser(ctx, id)
	return u, translate("get user", err)
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := s.queries.GetUserByUsername(ctx, username)
	return u, translate("get user by username", err)
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, u core.User) error {
	n, err := s.queries.UpdateUser(ctx, u)
	return affected("update user", n, err)
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]core.User, error) {
	users, err := s.queries.ListUsers(ctx)
	return users, translate("list users", err)
}

func (s *SQLiteStore) CreateCategory(ctx context.Context, c core.Category) error {
	return translate("create category", s.queries.CreateCategory(ctx, c))
}

func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := s.queries.GetCategory(ctx, id)
	return c, translate("get category", err)
}

func (s *SQLiteStore) ListCategories(ctx context.Context, t core.BillType) ([]core.Category, error) {
	cats, err := s.queries.ListCategories(ctx, t)
	return cats, translate("list categories", err)
}

func (s *SQLiteStore) UpdateCategory(ctx context.Context, c core.Category) error {
	n, err := s.queries.UpdateCategory(ctx, c)
	return affected("update category", n, err)
}

func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	n, err := s.queries.DeleteCategory(ctx, id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("delete category: %w", core.ErrInUse)
	}
	return affected("delete category", n, err)
}

func (s *SQLiteStore) CategoryInUse(ctx context.Context, id string) (bool, error) {
	used, err := s.queries.CategoryInUse(ctx, id)
	return used, translate("category in use", err)
}

func (s *SQLiteStore) CreateBill(ctx context.Context, b core.Bill) error {
	err := s.queries.CreateBill(ctx, b)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("create bill: %w", core.ErrNotFound)
	}
	return translate("create bill", err)
}

func (s *SQLiteStore) GetBill(ctx context.Context, id string) (core.Bill, error) {
	b, err := s.queries.GetBill(ctx, id)
	return b, translate("get bill", err)
}

func (s *SQLiteStore) UpdateBill(ctx context.Context, b core.Bill) error {
	n, err := s.queries.UpdateBill(ctx, b)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("update bill: %w", core.ErrNotFound)
	}
	return affected("update bill", n, err)
}

func (s *SQLiteStore) DeleteBill(ctx context.Context, id string) error {
	n, err := s.queries.DeleteBill(ctx, id)
	return affected("delete bill", n, err)
}

func (s *SQLiteStore) ListBills(ctx context.Context, f core.BillFilter, p core.PageRequest) ([]core.Bill, error) {
	bills, err := s.queries.ListBills(ctx, f, p.Normalize())
	return bills, translate("list bills", err)
}

func (s *SQLiteStore) CountBills(ctx context.Context, f core.BillFilter) (int, error) {
	n, err := s.queries.CountBills(ctx, f)
	return n, translate("count bills", err)
}

func (s *SQLiteStore) SumBills(ctx context.Context, f core.BillFilter) (core.Totals, error) {
	t, err := s.queries.SumBills(ctx, f)
	return t, translate("sum bills", err)
}

func (s *SQLiteStore) CreateBudget(ctx context.Context, g core.Budget) error {
	err := s.queries.CreateBudget(ctx, g)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("create budget: %w", core.ErrNotFound)
	}
	return translate("create budget", err)
}

func (s *SQLiteStore) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	g, err := s.queries.GetBudget(ctx, id)
	return g, translate("get budget", err)
}

func (s *SQLiteStore) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	items, err := s.queries.ListBudgets(ctx, userID)
	return items, translate("list budgets", err)
}

func (s *SQLiteStore) UpdateBudget(ctx context.Context, g core.Budget) error {
	n, err := s.queries.UpdateBudget(ctx, g)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("update budget: %w", core.ErrNotFound)
	}
	return affected("update budget", n, err)
}

func (s *SQLiteStore) DeleteBudget(ctx context.Context, id string) error {
	n, err := s.queries.DeleteBudget(ctx, id)
	return affected("delete budget", n, err)
}
