// Package postgres implements the ledger store on PostgreSQL through GORM.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

type userRow struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	Email     string    `gorm:"not null;uniqueIndex"`
	Currency  string    `gorm:"not null;default:EUR"`
	CreatedAt time.Time `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

type categoryRow struct {
	ID    int64  `gorm:"primaryKey"`
	Name  string `gorm:"not null;uniqueIndex:idx_categories_name_type"`
	Type  string `gorm:"not null;uniqueIndex:idx_categories_name_type"`
	Color string `gorm:"not null"`
	Icon  string `gorm:"not null;default:''"`
}

func (categoryRow) TableName() string { return "categories" }

type transactionRow struct {
	ID              int64     `gorm:"primaryKey"`
	UserID          int64     `gorm:"not null;index:idx_transactions_user_date"`
	CategoryID      *int64    `gorm:"index"`
	AmountCents     int64     `gorm:"not null;check:amount_cents > 0"`
	Description     string    `gorm:"not null;size:255"`
	TransactionDate time.Time `gorm:"type:date;not null;index:idx_transactions_user_date"`
	Type            string    `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (transactionRow) TableName() string { return "transactions" }

func toRow(tx core.Transaction) transactionRow {
	return transactionRow{
		ID:              tx.ID,
		UserID:          tx.UserID,
		CategoryID:      tx.CategoryID,
		AmountCents:     tx.Amount.Cents,
		Description:     tx.Description,
		TransactionDate: tx.TransactionDate.Time,
		Type:            string(tx.Type),
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
}

func (r transactionRow) domain() core.Transaction {
	return core.Transaction{
		ID:              r.ID,
		UserID:          r.UserID,
		CategoryID:      r.CategoryID,
		Amount:          core.Cents(r.AmountCents),
		Description:     r.Description,
		TransactionDate: core.DateOf(r.TransactionDate),
		Type:            core.TransactionType(r.Type),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (r categoryRow) domain() core.Category {
	return core.Category{ID: r.ID, Name: r.Name, Type: core.TransactionType(r.Type), Color: r.Color, Icon: r.Icon}
}

func (r userRow) domain() core.UserProfile {
	return core.UserProfile{ID: r.ID, Name: r.Name, Email: r.Email, Currency: r.Currency, CreatedAt: r.CreatedAt}
}

type Store struct {
	db *gorm.DB
}

var _ ledger.Store = (*Store)(nil)

// Open connects to dsn and migrates the schema. A nil l discards logs.
func Open(dsn string, l *log.Logger) (*Store, error) {
	if l == nil {
		l = log.Nop()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&userRow{}, &categoryRow{}, &transactionRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	l.WithComponent(log.ComponentStorage).Info("PostgreSQL ledger ready")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) scoped(ctx context.Context, userID int64, rg core.DateRange) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&transactionRow{}).Where("transactions.user_id = ?", userID)
	if !rg.Start.IsZero() {
		q = q.Where("transactions.transaction_date >= ?", rg.Start.Time)
	}
	if !rg.End.IsZero() {
		q = q.Where("transactions.transaction_date <= ?", rg.End.Time)
	}
	return q
}

func (s *Store) SumAmountsByType(ctx context.Context, userID int64, rg core.DateRange) (ledger.TypeTotals, error) {
	var row struct {
		Income  int64
		Expense int64
		Count   int64
	}
	err := s.scoped(ctx, userID, rg).
		Select(`COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0) AS expense,
			COUNT(*) AS count`).
		Scan(&row).Error
	if err != nil {
		return ledger.TypeTotals{}, fmt.Errorf("sum amounts by type: %w", err)
	}
	return ledger.TypeTotals{Income: core.Cents(row.Income), Expense: core.Cents(row.Expense), Count: row.Count}, nil
}

func (s *Store) SumAmountsByCategory(ctx context.Context, userID int64, t core.TransactionType, rg core.DateRange) ([]ledger.CategoryTotal, error) {
	var rows []struct {
		CategoryID *int64
		Name       string
		Color      string
		Icon       string
		Amount     int64
		Count      int64
	}
	err := s.scoped(ctx, userID, rg).
		Select(`transactions.category_id AS category_id, COALESCE(categories.name, '') AS name,
			COALESCE(categories.color, '') AS color, COALESCE(categories.icon, '') AS icon,
			SUM(transactions.amount_cents) AS amount, COUNT(*) AS count`).
		Joins("LEFT JOIN categories ON categories.id = transactions.category_id").
		Where("transactions.type = ?", string(t)).
		Group("transactions.category_id, categories.name, categories.color, categories.icon").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum amounts by category: %w", err)
	}
	out := make([]ledger.CategoryTotal, 0, len(rows))
	for _, r := range rows {
		ct := ledger.CategoryTotal{CategoryID: r.CategoryID, CategoryName: r.Name, Color: r.Color, Icon: r.Icon,
			Amount: core.Cents(r.Amount), Count: r.Count}
		if r.CategoryID == nil {
			ct.CategoryName = core.UncategorizedName
		}
		out = append(out, ct)
	}
	return out, nil
}

func (s *Store) SumAmountsByMonth(ctx context.Context, userID int64, rg core.DateRange) ([]ledger.MonthTotals, error) {
	var rows []struct {
		Month   string
		Income  int64
		Expense int64
	}
	err := s.scoped(ctx, userID, rg).
		Select(`to_char(transaction_date, 'YYYY-MM') AS month,
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0) AS expense`).
		Group("month").Order("month").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum amounts by month: %w", err)
	}
	out := make([]ledger.MonthTotals, 0, len(rows))
	for _, r := range rows {
		out = append(out, ledger.MonthTotals{Month: r.Month, Income: core.Cents(r.Income), Expense: core.Cents(r.Expense)})
	}
	return out, nil
}

func (s *Store) SumCategoryByMonth(ctx context.Context, userID int64, categoryID *int64, rg core.DateRange) ([]ledger.CategoryMonthTotal, error) {
	q := s.scoped(ctx, userID, rg)
	if categoryID == nil {
		q = q.Where("category_id IS NULL AND type = ?", string(core.Expense))
	} else {
		q = q.Where("category_id = ?", *categoryID)
	}
	var rows []struct {
		Month  string
		Amount int64
		Count  int64
	}
	err := q.Select(`to_char(transaction_date, 'YYYY-MM') AS month, SUM(amount_cents) AS amount, COUNT(*) AS count`).
		Group("month").Order("month").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum category by month: %w", err)
	}
	out := make([]ledger.CategoryMonthTotal, 0, len(rows))
	for _, r := range rows {
		out = append(out, ledger.CategoryMonthTotal{Month: r.Month, Amount: core.Cents(r.Amount), Count: r.Count})
	}
	return out, nil
}

func (s *Store) ListCategories(ctx context.Context, t core.TransactionType) ([]core.Category, error) {
	q := s.db.WithContext(ctx).Order("type, name")
	if t != "" {
		q = q.Where("type = ?", string(t))
	}
	var rows []categoryRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *Store) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var row categoryRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return core.Category{}, notFound(err, fmt.Sprintf("category %d", id))
	}
	return row.domain(), nil
}

func (s *Store) ListTransactions(ctx context.Context, f ledger.TransactionFilter) (ledger.TransactionPage, error) {
	f = f.Normalize()
	q := s.scoped(ctx, f.UserID, f.Range)
	if f.Type != "" {
		q = q.Where("type = ?", string(f.Type))
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		q = q.Where("description ILIKE ?", "%"+search+"%")
	}

	page := ledger.TransactionPage{Page: f.Page, PageSize: f.PageSize, Items: []core.Transaction{}}
	if err := q.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return ledger.TransactionPage{}, fmt.Errorf("count transactions: %w", err)
	}
	var rows []transactionRow
	if err := q.Order("transaction_date DESC, id DESC").Limit(f.PageSize).Offset(f.Offset()).Find(&rows).Error; err != nil {
		return ledger.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	for _, r := range rows {
		page.Items = append(page.Items, r.domain())
	}
	return page, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	var row transactionRow
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error; err != nil {
		return core.Transaction{}, notFound(err, fmt.Sprintf("transaction %d", id))
	}
	return row.domain(), nil
}

func (s *Store) checkCategory(ctx context.Context, tx core.Transaction) error {
	if tx.CategoryID == nil {
		return nil
	}
	c, err := s.GetCategory(ctx, *tx.CategoryID)
	if err != nil {
		return err
	}
	if c.Type != tx.Type {
		return fmt.Errorf("category %q is %s, transaction is %s: %w", c.Name, c.Type, tx.Type, core.ErrInvalidType)
	}
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkCategory(ctx, tx); err != nil {
		return core.Transaction{}, err
	}
	row := toRow(tx)
	row.ID = 0
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return row.domain(), nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	prev, err := s.GetTransaction(ctx, tx.UserID, tx.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkCategory(ctx, tx); err != nil {
		return core.Transaction{}, err
	}
	tx.CreatedAt = prev.CreatedAt
	row := toRow(tx)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return row.domain(), nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&transactionRow{})
	if res.Error != nil {
		return fmt.Errorf("delete transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// sameName reports whether another category of the same type already uses
// name, compared case-insensitively.
func (s *Store) sameName(ctx context.Context, c core.Category) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&categoryRow{}).
		Where("LOWER(name) = LOWER(?) AND type = ? AND id <> ?", c.Name, string(c.Type), c.ID).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = 0
	if dup, err := s.sameName(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("check category name: %w", err)
	} else if dup {
		return core.Category{}, core.ErrDuplicateCategory
	}
	row := categoryRow{Name: c.Name, Type: string(c.Type), Color: c.Color, Icon: c.Icon}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return core.Category{}, core.ErrDuplicateCategory
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return row.domain(), nil
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	prev, err := s.GetCategory(ctx, c.ID)
	if err != nil {
		return core.Category{}, err
	}
	if prev.Type != c.Type {
		return core.Category{}, core.ErrCategoryTypeImmutable
	}
	if dup, err := s.sameName(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("check category name: %w", err)
	} else if dup {
		return core.Category{}, core.ErrDuplicateCategory
	}
	err = s.db.WithContext(ctx).Model(&categoryRow{ID: c.ID}).
		Updates(map[string]any{"name": c.Name, "color": c.Color, "icon": c.Icon}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return core.Category{}, core.ErrDuplicateCategory
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&transactionRow{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("detach transactions: %w", err)
		}
		res := tx.Delete(&categoryRow{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete category: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
		}
		return nil
	})
}

func (s *Store) GetUser(ctx context.Context, id int64) (core.UserProfile, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return core.UserProfile{}, notFound(err, fmt.Sprintf("user %d", id))
	}
	return row.domain(), nil
}

func (s *Store) CreateUser(ctx context.Context, u core.UserProfile) (core.UserProfile, error) {
	if err := u.Validate(); err != nil {
		return core.UserProfile{}, err
	}
	if u.Currency == "" {
		u.Currency = "EUR"
	}
	row := userRow{ID: u.ID, Name: u.Name, Email: u.Email, Currency: u.Currency, CreatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.UserProfile{}, fmt.Errorf("create user: %w", err)
	}
	return row.domain(), nil
}

func (s *Store) UpdateUser(ctx context.Context, u core.UserProfile) (core.UserProfile, error) {
	if err := u.Validate(); err != nil {
		return core.UserProfile{}, err
	}
	prev, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return core.UserProfile{}, err
	}
	if u.Currency == "" {
		u.Currency = prev.Currency
	}
	err = s.db.WithContext(ctx).Model(&userRow{ID: u.ID}).
		Updates(map[string]any{"name": u.Name, "email": u.Email, "currency": u.Currency}).Error
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("update user: %w", err)
	}
	u.CreatedAt = prev.CreatedAt
	return u, nil
}
