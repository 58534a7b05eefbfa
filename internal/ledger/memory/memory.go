// Package memory is an in-process ledger.Store used for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int64
	cats   map[int64]core.Category
	txs    map[int64]core.Transaction
	users  map[int64]core.UserProfile
}

var _ ledger.Store = (*Store)(nil)

// DefaultCategories seeds a fresh store.
var DefaultCategories = []core.Category{
	{Name: "Salary", Type: core.Income, Color: "#2E7D32", Icon: "💼"},
	{Name: "Freelance", Type: core.Income, Color: "#388E3C", Icon: "🧾"},
	{Name: "Food & Dining", Type: core.Expense, Color: "#EF6C00", Icon: "🍽"},
	{Name: "Transportation", Type: core.Expense, Color: "#1565C0", Icon: "🚌"},
	{Name: "Entertainment", Type: core.Expense, Color: "#6A1B9A", Icon: "🎬"},
	{Name: "Shopping", Type: core.Expense, Color: "#AD1457", Icon: "🛍"},
	{Name: "Bills & Utilities", Type: core.Expense, Color: "#455A64", Icon: "💡"},
	{Name: "Healthcare", Type: core.Expense, Color: "#C62828", Icon: "🩺"},
}

func New(cats ...core.Category) *Store {
	s := &Store{
		now:   time.Now,
		cats:  make(map[int64]core.Category),
		txs:   make(map[int64]core.Transaction),
		users: make(map[int64]core.UserProfile),
	}
	for _, c := range cats {
		s.nextID++
		c.ID = s.nextID
		s.cats[c.ID] = c
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt, one
// "type;name;color;icon" entry per line, falling back to DefaultCategories.
func NewFromFiles(base string) *Store {
	var cats []core.Category
	for _, line := range readLines(filepath.Join(base, "seed_categories.txt")) {
		parts := strings.Split(line, ";")
		if len(parts) < 3 {
			continue
		}
		c := core.Category{Type: core.TransactionType(parts[0]), Name: parts[1], Color: parts[2]}
		if len(parts) > 3 {
			c.Icon = parts[3]
		}
		if c.Validate() == nil {
			cats = append(cats, c)
		}
	}
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	return New(cats...)
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) matching(userID int64, r core.DateRange, keep func(core.Transaction) bool) []core.Transaction {
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.UserID != userID || !r.Contains(tx.TransactionDate) {
			continue
		}
		if keep != nil && !keep(tx) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func (s *Store) SumAmountsByType(_ context.Context, userID int64, r core.DateRange) (ledger.TypeTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tt ledger.TypeTotals
	for _, tx := range s.matching(userID, r, nil) {
		if tx.Type == core.Income {
			tt.Income = tt.Income.Add(tx.Amount)
		} else {
			tt.Expense = tt.Expense.Add(tx.Amount)
		}
		tt.Count++
	}
	return tt, nil
}

func (s *Store) SumAmountsByCategory(_ context.Context, userID int64, t core.TransactionType, r core.DateRange) ([]ledger.CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buckets := map[int64]*ledger.CategoryTotal{}
	var uncategorized *ledger.CategoryTotal
	for _, tx := range s.matching(userID, r, func(tx core.Transaction) bool { return tx.Type == t }) {
		var b *ledger.CategoryTotal
		if tx.CategoryID == nil {
			if uncategorized == nil {
				uncategorized = &ledger.CategoryTotal{CategoryName: core.UncategorizedName}
			}
			b = uncategorized
		} else {
			id := *tx.CategoryID
			if buckets[id] == nil {
				c := s.cats[id]
				buckets[id] = &ledger.CategoryTotal{CategoryID: &id, CategoryName: c.Name, Color: c.Color, Icon: c.Icon}
			}
			b = buckets[id]
		}
		b.Amount = b.Amount.Add(tx.Amount)
		b.Count++
	}
	out := make([]ledger.CategoryTotal, 0, len(buckets)+1)
	for _, b := range buckets {
		out = append(out, *b)
	}
	if uncategorized != nil {
		out = append(out, *uncategorized)
	}
	return out, nil
}

func (s *Store) SumAmountsByMonth(_ context.Context, userID int64, r core.DateRange) ([]ledger.MonthTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buckets := map[string]*ledger.MonthTotals{}
	for _, tx := range s.matching(userID, r, nil) {
		key := tx.TransactionDate.MonthKey()
		b := buckets[key]
		if b == nil {
			b = &ledger.MonthTotals{Month: key}
			buckets[key] = b
		}
		if tx.Type == core.Income {
			b.Income = b.Income.Add(tx.Amount)
		} else {
			b.Expense = b.Expense.Add(tx.Amount)
		}
	}
	out := make([]ledger.MonthTotals, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (s *Store) SumCategoryByMonth(_ context.Context, userID int64, categoryID *int64, r core.DateRange) ([]ledger.CategoryMonthTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keep := func(tx core.Transaction) bool {
		if categoryID == nil {
			return tx.CategoryID == nil && tx.Type == core.Expense
		}
		return tx.CategoryID != nil && *tx.CategoryID == *categoryID
	}
	buckets := map[string]*ledger.CategoryMonthTotal{}
	for _, tx := range s.matching(userID, r, keep) {
		key := tx.TransactionDate.MonthKey()
		b := buckets[key]
		if b == nil {
			b = &ledger.CategoryMonthTotal{Month: key}
			buckets[key] = b
		}
		b.Amount = b.Amount.Add(tx.Amount)
		b.Count++
	}
	out := make([]ledger.CategoryMonthTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (s *Store) ListCategories(_ context.Context, t core.TransactionType) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		if t != "" && c.Type != t {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListTransactions(_ context.Context, f ledger.TransactionFilter) (ledger.TransactionPage, error) {
	f = f.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	items := s.matching(f.UserID, f.Range, func(tx core.Transaction) bool {
		if f.Type != "" && tx.Type != f.Type {
			return false
		}
		if f.CategoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *f.CategoryID) {
			return false
		}
		return search == "" || strings.Contains(strings.ToLower(tx.Description), search)
	})
	sort.Slice(items, func(i, j int) bool {
		if !items[i].TransactionDate.Equal(items[j].TransactionDate.Time) {
			return items[i].TransactionDate.After(items[j].TransactionDate)
		}
		return items[i].ID > items[j].ID
	})
	page := ledger.TransactionPage{Total: int64(len(items)), Page: f.Page, PageSize: f.PageSize, Items: []core.Transaction{}}
	if off := f.Offset(); off >= 0 && off < len(items) {
		end := off + f.PageSize
		if end > len(items) {
			end = len(items)
		}
		page.Items = append(page.Items, items[off:end]...)
	}
	return page, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.UserID != userID {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return tx, nil
}

func (s *Store) checkCategory(tx core.Transaction) error {
	if tx.CategoryID == nil {
		return nil
	}
	c, ok := s.cats[*tx.CategoryID]
	if !ok {
		return fmt.Errorf("category %d: %w", *tx.CategoryID, core.ErrNotFound)
	}
	if c.Type != tx.Type {
		return fmt.Errorf("category %q is %s, transaction is %s: %w", c.Name, c.Type, tx.Type, core.ErrInvalidType)
	}
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCategory(tx); err != nil {
		return core.Transaction{}, err
	}
	now := s.now().UTC()
	tx.ID = s.id()
	tx.CreatedAt, tx.UpdatedAt = now, now
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.txs[tx.ID]
	if !ok || prev.UserID != tx.UserID {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", tx.ID, core.ErrNotFound)
	}
	if err := s.checkCategory(tx); err != nil {
		return core.Transaction{}, err
	}
	tx.CreatedAt = prev.CreatedAt
	tx.UpdatedAt = s.now().UTC()
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.UserID != userID {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) duplicate(c core.Category) bool {
	for _, existing := range s.cats {
		if existing.ID != c.ID && existing.Type == c.Type && strings.EqualFold(existing.Name, c.Name) {
			return true
		}
	}
	return false
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = 0
	if s.duplicate(c) {
		return core.Category{}, core.ErrDuplicateCategory
	}
	c.ID = s.id()
	s.cats[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.cats[c.ID]
	if !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", c.ID, core.ErrNotFound)
	}
	if prev.Type != c.Type {
		return core.Category{}, core.ErrCategoryTypeImmutable
	}
	if s.duplicate(c) {
		return core.Category{}, core.ErrDuplicateCategory
	}
	s.cats[c.ID] = c
	return c, nil
}

// DeleteCategory removes the category; its transactions become uncategorized.
func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[id]; !ok {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	delete(s.cats, id)
	for txID, tx := range s.txs {
		if tx.CategoryID != nil && *tx.CategoryID == id {
			tx.CategoryID = nil
			s.txs[txID] = tx
		}
	}
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.UserProfile{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) CreateUser(_ context.Context, u core.UserProfile) (core.UserProfile, error) {
	if err := u.Validate(); err != nil {
		return core.UserProfile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.id()
	}
	if u.Currency == "" {
		u.Currency = "EUR"
	}
	u.CreatedAt = s.now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u core.UserProfile) (core.UserProfile, error) {
	if err := u.Validate(); err != nil {
		return core.UserProfile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.users[u.ID]
	if !ok {
		return core.UserProfile{}, fmt.Errorf("user %d: %w", u.ID, core.ErrNotFound)
	}
	u.CreatedAt = prev.CreatedAt
	if u.Currency == "" {
		u.Currency = prev.Currency
	}
	s.users[u.ID] = u
	return u, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
