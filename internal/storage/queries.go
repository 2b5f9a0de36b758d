package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"billbook/internal/core"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Timestamps are stored as fixed-width UTC text so that string comparison
// orders them chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ---- users ----

const userColumns = `id, username, password_hash, created_at, updated_at`

func scanUser(r rowScanner) (core.User, error) {
	var u core.User
	var created, updated string
	if err := r.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &updated); err != nil {
		return core.User{}, err
	}
	var err error
	if u.CreatedAt, err = parseTime(created); err != nil {
		return core.User{}, err
	}
	if u.UpdatedAt, err = parseTime(updated); err != nil {
		return core.User{}, err
	}
	return u, nil
}

const createUser = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, u core.User) error {
	_, err := q.db.ExecContext(ctx, createUser,
		u.ID, u.Username, u.PasswordHash, formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	return err
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id string) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = ?`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

const updateUser = `UPDATE users SET username = ?, password_hash = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUser(ctx context.Context, u core.User) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUser, u.Username, u.PasswordHash, formatTime(u.UpdatedAt), u.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, username`

func (q *Queries) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

// ---- categories ----

const categoryColumns = `id, name, type, icon, created_at, updated_at`

func scanCategory(r rowScanner) (core.Category, error) {
	var c core.Category
	var typ, created, updated string
	if err := r.Scan(&c.ID, &c.Name, &typ, &c.Icon, &created, &updated); err != nil {
		return core.Category{}, err
	}
	c.Type = core.BillType(typ)
	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return core.Category{}, err
	}
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

const createCategory = `INSERT INTO categories (` + categoryColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := q.db.ExecContext(ctx, createCategory,
		c.ID, c.Name, string(c.Type), c.Icon, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	return err
}

const getCategory = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id string) (core.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategory, id))
}

const listCategories = `SELECT ` + categoryColumns + ` FROM categories
WHERE (?1 = '' OR type = ?1)
ORDER BY type, name`

func (q *Queries) ListCategories(ctx context.Context, t core.BillType) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const updateCategory = `UPDATE categories SET name = ?, type = ?, icon = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCategory, c.Name, string(c.Type), c.Icon, formatTime(c.UpdatedAt), c.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const categoryInUse = `SELECT
    EXISTS (SELECT 1 FROM bills WHERE category_id = ?1)
    OR EXISTS (SELECT 1 FROM budgets WHERE category_id = ?1)`

func (q *Queries) CategoryInUse(ctx context.Context, id string) (bool, error) {
	var used bool
	err := q.db.QueryRowContext(ctx, categoryInUse, id).Scan(&used)
	return used, err
}

// ---- bills ----

const billSelect = `SELECT b.id, b.user_id, b.amount_cents, b.type, b.category_id, b.date, b.note,
       b.created_at, b.updated_at,
       c.id, c.name, c.type, c.icon, c.created_at, c.updated_at
FROM bills b
LEFT JOIN categories c ON c.id = b.category_id`

type joinedCategory struct {
	id, name, typ, icon, created, updated sql.NullString
}

func (j joinedCategory) category() (*core.Category, error) {
	if !j.id.Valid {
		return nil, nil
	}
	c := &core.Category{ID: j.id.String, Name: j.name.String, Type: core.BillType(j.typ.String), Icon: j.icon.String}
	var err error
	if c.CreatedAt, err = parseTime(j.created.String); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(j.updated.String); err != nil {
		return nil, err
	}
	return c, nil
}

func scanBill(r rowScanner) (core.Bill, error) {
	var b core.Bill
	var typ, date, created, updated string
	var jc joinedCategory
	if err := r.Scan(&b.ID, &b.UserID, &b.Amount.Cents, &typ, &b.CategoryID, &date, &b.Note,
		&created, &updated,
		&jc.id, &jc.name, &jc.typ, &jc.icon, &jc.created, &jc.updated); err != nil {
		return core.Bill{}, err
	}
	b.Type = core.BillType(typ)
	var err error
	if b.Date, err = parseTime(date); err != nil {
		return core.Bill{}, err
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return core.Bill{}, err
	}
	if b.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Bill{}, err
	}
	if b.Category, err = jc.category(); err != nil {
		return core.Bill{}, err
	}
	return b, nil
}

const createBill = `INSERT INTO bills (id, user_id, amount_cents, type, category_id, date, note, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateBill(ctx context.Context, b core.Bill) error {
	_, err := q.db.ExecContext(ctx, createBill,
		b.ID, b.UserID, b.Amount.Cents, string(b.Type), b.CategoryID, formatTime(b.Date), b.Note,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	return err
}

func (q *Queries) GetBill(ctx context.Context, id string) (core.Bill, error) {
	return scanBill(q.db.QueryRowContext(ctx, billSelect+` WHERE b.id = ?`, id))
}

const updateBill = `UPDATE bills
SET amount_cents = ?, type = ?, category_id = ?, date = ?, note = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateBill(ctx context.Context, b core.Bill) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBill,
		b.Amount.Cents, string(b.Type), b.CategoryID, formatTime(b.Date), b.Note, formatTime(b.UpdatedAt), b.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBill = `DELETE FROM bills WHERE id = ?`

func (q *Queries) DeleteBill(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBill, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// billWhere renders f as a WHERE clause over the alias b.
func billWhere(f core.BillFilter) (string, []any) {
	clauses := []string{"b.user_id = ?"}
	args := []any{f.UserID}
	if f.Type != "" {
		clauses = append(clauses, "b.type = ?")
		args = append(args, string(f.Type))
	}
	if f.CategoryID != "" {
		clauses = append(clauses, "b.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "b.date >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "b.date <= ?")
		args = append(args, formatTime(f.To))
	}
	if kw := f.NormalizedKeyword(); kw != "" {
		clauses = append(clauses, foldFunc+`(b.note) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(kw)+"%")
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (q *Queries) ListBills(ctx context.Context, f core.BillFilter, p core.PageRequest) ([]core.Bill, error) {
	where, args := billWhere(f)
	query := billSelect + where + ` ORDER BY b.date DESC, b.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, p.Limit, p.Offset())

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Bill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (q *Queries) CountBills(ctx context.Context, f core.BillFilter) (int, error) {
	where, args := billWhere(f)
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bills b`+where, args...).Scan(&n)
	return n, err
}

const sumBills = `SELECT
    COALESCE(SUM(CASE WHEN b.type = 'income' THEN b.amount_cents END), 0),
    COALESCE(SUM(CASE WHEN b.type = 'expense' THEN b.amount_cents END), 0)
FROM bills b`

func (q *Queries) SumBills(ctx context.Context, f core.BillFilter) (core.Totals, error) {
	where, args := billWhere(f)
	var t core.Totals
	err := q.db.QueryRowContext(ctx, sumBills+where, args...).Scan(&t.Income.Cents, &t.Expense.Cents)
	return t, err
}

// ---- budgets ----

const budgetSelect = `SELECT g.id, g.user_id, g.category_id, g.amount_cents, g.period, g.start_date, g.end_date,
       g.description, g.created_at, g.updated_at,
       c.id, c.name, c.type, c.icon, c.created_at, c.updated_at
FROM budgets g
LEFT JOIN categories c ON c.id = g.category_id`

func scanBudget(r rowScanner) (core.Budget, error) {
	var g core.Budget
	var period, start, end, created, updated string
	var jc joinedCategory
	if err := r.Scan(&g.ID, &g.UserID, &g.CategoryID, &g.Amount.Cents, &period, &start, &end,
		&g.Description, &created, &updated,
		&jc.id, &jc.name, &jc.typ, &jc.icon, &jc.created, &jc.updated); err != nil {
		return core.Budget{}, err
	}
	g.Period = core.Period(period)
	var err error
	for _, f := range []struct {
		dst *time.Time
		src string
	}{{&g.StartDate, start}, {&g.EndDate, end}, {&g.CreatedAt, created}, {&g.UpdatedAt, updated}} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return core.Budget{}, err
		}
	}
	if g.Category, err = jc.category(); err != nil {
		return core.Budget{}, err
	}
	return g, nil
}

const createBudget = `INSERT INTO budgets
    (id, user_id, category_id, amount_cents, period, start_date, end_date, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateBudget(ctx context.Context, g core.Budget) error {
	_, err := q.db.ExecContext(ctx, createBudget,
		g.ID, g.UserID, g.CategoryID, g.Amount.Cents, string(g.Period),
		formatTime(g.StartDate), formatTime(g.EndDate), g.Description,
		formatTime(g.CreatedAt), formatTime(g.UpdatedAt))
	return err
}

func (q *Queries) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, budgetSelect+` WHERE g.id = ?`, id))
}

func (q *Queries) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, budgetSelect+` WHERE g.user_id = ? ORDER BY g.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Budget{}
	for rows.Next() {
		g, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

const updateBudget = `UPDATE budgets
SET category_id = ?, amount_cents = ?, period = ?, start_date = ?, end_date = ?, description = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateBudget(ctx context.Context, g core.Budget) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBudget,
		g.CategoryID, g.Amount.Cents, string(g.Period), formatTime(g.StartDate), formatTime(g.EndDate),
		g.Description, formatTime(g.UpdatedAt), g.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBudget = `DELETE FROM budgets WHERE id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudget, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
