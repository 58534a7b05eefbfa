// Package storage implements the ledger store on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db     *sql.DB
	now    func() time.Time
	logger *log.Logger
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens dbPath and applies pending migrations. A nil l
// discards logs.
func NewSQLiteRepository(dbPath string, l *log.Logger) (*SQLiteRepository, error) {
	if l == nil {
		l = log.Nop()
	}
	l = l.WithComponent(log.ComponentStorage)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	l.Info("SQLite ledger ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, now: time.Now, logger: l}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// where builds the shared user/date predicate.
func where(userID int64, rg core.DateRange) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}
	if !rg.Start.IsZero() {
		clauses = append(clauses, "transaction_date >= ?")
		args = append(args, rg.Start.String())
	}
	if !rg.End.IsZero() {
		clauses = append(clauses, "transaction_date <= ?")
		args = append(args, rg.End.String())
	}
	return strings.Join(clauses, " AND "), args
}

func (r *SQLiteRepository) SumAmountsByType(ctx context.Context, userID int64, rg core.DateRange) (ledger.TypeTotals, error) {
	cond, args := where(userID, rg)
	q := `SELECT
		COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0),
		COUNT(*)
	FROM transactions WHERE ` + cond

	var tt ledger.TypeTotals
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&tt.Income.Cents, &tt.Expense.Cents, &tt.Count); err != nil {
		return ledger.TypeTotals{}, fmt.Errorf("sum amounts by type: %w", err)
	}
	return tt, nil
}

func (r *SQLiteRepository) SumAmountsByCategory(ctx context.Context, userID int64, t core.TransactionType, rg core.DateRange) ([]ledger.CategoryTotal, error) {
	cond, args := where(userID, rg)
	q := `SELECT t.category_id, COALESCE(c.name, ''), COALESCE(c.color, ''), COALESCE(c.icon, ''),
		SUM(t.amount_cents), COUNT(*)
	FROM (SELECT * FROM transactions WHERE ` + cond + ` AND type = ?) t
	LEFT JOIN categories c ON c.id = t.category_id
	GROUP BY t.category_id`
	args = append(args, string(t))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sum amounts by category: %w", err)
	}
	defer rows.Close()

	var out []ledger.CategoryTotal
	for rows.Next() {
		var (
			ct    ledger.CategoryTotal
			catID sql.NullInt64
		)
		if err := rows.Scan(&catID, &ct.CategoryName, &ct.Color, &ct.Icon, &ct.Amount.Cents, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		if catID.Valid {
			id := catID.Int64
			ct.CategoryID = &id
		} else {
			ct.CategoryName = core.UncategorizedName
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SumAmountsByMonth(ctx context.Context, userID int64, rg core.DateRange) ([]ledger.MonthTotals, error) {
	cond, args := where(userID, rg)
	q := `SELECT substr(transaction_date, 1, 7) AS month,
		COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0)
	FROM transactions WHERE ` + cond + `
	GROUP BY month ORDER BY month`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sum amounts by month: %w", err)
	}
	defer rows.Close()

	var out []ledger.MonthTotals
	for rows.Next() {
		var mt ledger.MonthTotals
		if err := rows.Scan(&mt.Month, &mt.Income.Cents, &mt.Expense.Cents); err != nil {
			return nil, fmt.Errorf("scan month totals: %w", err)
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SumCategoryByMonth(ctx context.Context, userID int64, categoryID *int64, rg core.DateRange) ([]ledger.CategoryMonthTotal, error) {
	cond, args := where(userID, rg)
	if categoryID == nil {
		cond += " AND category_id IS NULL AND type = 'expense'"
	} else {
		cond += " AND category_id = ?"
		args = append(args, *categoryID)
	}
	q := `SELECT substr(transaction_date, 1, 7) AS month, SUM(amount_cents), COUNT(*)
	FROM transactions WHERE ` + cond + `
	GROUP BY month ORDER BY month`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sum category by month: %w", err)
	}
	defer rows.Close()

	var out []ledger.CategoryMonthTotal
	for rows.Next() {
		var ct ledger.CategoryMonthTotal
		if err := rows.Scan(&ct.Month, &ct.Amount.Cents, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category month: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, t core.TransactionType) ([]core.Category, error) {
	q := `SELECT id, name, type, color, icon FROM categories`
	var args []any
	if t != "" {
		q += ` WHERE type = ?`
		args = append(args, string(t))
	}
	q += ` ORDER BY type, name`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Color, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx, `SELECT id, name, type, color, icon FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Type, &c.Color, &c.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

const txColumns = `id, user_id, category_id, amount_cents, description, transaction_date, type, created_at, updated_at`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx                     core.Transaction
		catID                  sql.NullInt64
		date, created, updated string
	)
	if err := s.Scan(&tx.ID, &tx.UserID, &catID, &tx.Amount.Cents, &tx.Description, &date, &tx.Type, &created, &updated); err != nil {
		return core.Transaction{}, err
	}
	if catID.Valid {
		id := catID.Int64
		tx.CategoryID = &id
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.TransactionDate = d
	tx.CreatedAt, _ = time.Parse(timeLayout, created)
	tx.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return tx, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ledger.TransactionFilter) (ledger.TransactionPage, error) {
	f = f.Normalize()
	cond, args := where(f.UserID, f.Range)
	if f.Type != "" {
		cond += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if f.CategoryID != nil {
		cond += " AND category_id = ?"
		args = append(args, *f.CategoryID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		cond += " AND description LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(s)+"%")
	}

	page := ledger.TransactionPage{Page: f.Page, PageSize: f.PageSize, Items: []core.Transaction{}}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE `+cond, args...).Scan(&page.Total); err != nil {
		return ledger.TransactionPage{}, fmt.Errorf("count transactions: %w", err)
	}

	q := `SELECT ` + txColumns + ` FROM transactions WHERE ` + cond +
		` ORDER BY transaction_date DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, f.PageSize, f.Offset())...)
	if err != nil {
		return ledger.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return ledger.TransactionPage{}, fmt.Errorf("scan transaction: %w", err)
		}
		page.Items = append(page.Items, tx)
	}
	return page, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) checkCategory(ctx context.Context, tx core.Transaction) error {
	if tx.CategoryID == nil {
		return nil
	}
	c, err := r.GetCategory(ctx, *tx.CategoryID)
	if err != nil {
		return err
	}
	if c.Type != tx.Type {
		return fmt.Errorf("category %q is %s, transaction is %s: %w", c.Name, c.Type, tx.Type, core.ErrInvalidType)
	}
	return nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := r.checkCategory(ctx, tx); err != nil {
		return core.Transaction{}, err
	}
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, category_id, amount_cents, description, transaction_date, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, nullableID(tx.CategoryID), tx.Amount.Cents, tx.Description,
		tx.TransactionDate.String(), string(tx.Type), now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	tx.ID, err = res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("read transaction id: %w", err)
	}
	tx.CreatedAt, tx.UpdatedAt = now, now

	r.logger.DebugContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"user_id", tx.UserID,
		"amount_cents", tx.Amount.Cents,
		"type", tx.Type)
	return tx, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	prev, err := r.GetTransaction(ctx, tx.UserID, tx.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := r.checkCategory(ctx, tx); err != nil {
		return core.Transaction{}, err
	}
	now := r.now().UTC()
	_, err = r.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ?, amount_cents = ?, description = ?, transaction_date = ?, type = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		nullableID(tx.CategoryID), tx.Amount.Cents, tx.Description, tx.TransactionDate.String(), string(tx.Type),
		now.Format(timeLayout), tx.ID, tx.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	tx.CreatedAt = prev.CreatedAt
	tx.UpdatedAt = now
	return tx, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, fmt.Sprintf("transaction %d", id))
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name, type, color, icon) VALUES (?, ?, ?, ?)`,
		c.Name, string(c.Type), c.Color, c.Icon)
	if isUniqueViolation(err) {
		return core.Category{}, core.ErrDuplicateCategory
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("read category id: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	prev, err := r.GetCategory(ctx, c.ID)
	if err != nil {
		return core.Category{}, err
	}
	if prev.Type != c.Type {
		return core.Category{}, core.ErrCategoryTypeImmutable
	}
	_, err = r.db.ExecContext(ctx, `UPDATE categories SET name = ?, color = ?, icon = ? WHERE id = ?`,
		c.Name, c.Color, c.Icon, c.ID)
	if isUniqueViolation(err) {
		return core.Category{}, core.ErrDuplicateCategory
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes the category and detaches its transactions in one
// database transaction.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(ctx, `UPDATE transactions SET category_id = NULL WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("detach transactions: %w", err)
	}
	res, err := dbtx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := requireRow(res, fmt.Sprintf("category %d", id)); err != nil {
		return err
	}
	return dbtx.Commit()
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.UserProfile, error) {
	var (
		u       core.UserProfile
		created string
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, name, email, currency, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Currency, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProfile{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(timeLayout, created)
	return u, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.UserProfile) (core.UserProfile, error) {
	if err := u.Validate(); err != nil {
		return core.UserProfile{}, err
	}
	if u.Currency == "" {
		u.Currency = "EUR"
	}
	u.CreatedAt = r.now().UTC()
	var (
		res sql.Result
		err error
	)
	if u.ID > 0 {
		res, err = r.db.ExecContext(ctx, `INSERT INTO users (id, name, email, currency, created_at) VALUES (?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, u.Currency, u.CreatedAt.Format(timeLayout))
	} else {
		res, err = r.db.ExecContext(ctx, `INSERT INTO users (name, email, currency, created_at) VALUES (?, ?, ?, ?)`,
			u.Name, u.Email, u.Currency, u.CreatedAt.Format(timeLayout))
	}
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("create user: %w", err)
	}
	if u.ID == 0 {
		if u.ID, err = res.LastInsertId(); err != nil {
			return core.UserProfile{}, fmt.Errorf("read user id: %w", err)
		}
	}
	return u, nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.UserProfile) (core.UserProfile, error) {
	if err := u.Validate(); err != nil {
		return core.UserProfile{}, err
	}
	prev, err := r.GetUser(ctx, u.ID)
	if err != nil {
		return core.UserProfile{}, err
	}
	if u.Currency == "" {
		u.Currency = prev.Currency
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET name = ?, email = ?, currency = ? WHERE id = ?`,
		u.Name, u.Email, u.Currency, u.ID); err != nil {
		return core.UserProfile{}, fmt.Errorf("update user: %w", err)
	}
	u.CreatedAt = prev.CreatedAt
	return u, nil
}
