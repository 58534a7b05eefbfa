// Package google reads monthly budget lines from a Google Sheets range.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

const (
	DefaultRange    = "Budget!A:C"
	DefaultCacheTTL = 5 * time.Minute
)

// BudgetSheet is a ledger.BudgetSource backed by a spreadsheet range with
// "Category | Amount | CategoryId" columns. The sheet is shared by every
// user. Parsed lines are kept in memory for cacheValidDuration.
type BudgetSheet struct {
	svc           *gsheet.Service
	spreadsheetID string
	budgetRange   string

	mu                 sync.Mutex
	cached             []core.BudgetLine
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var _ ledger.BudgetSource = (*BudgetSheet)(nil)

type Config struct {
	SpreadsheetID   string
	Range           string
	CredentialsJSON []byte
	CacheTTL        time.Duration
}

// New authenticates with service account credentials and returns a sheet
// reader.
func New(ctx context.Context, cfg Config) (*BudgetSheet, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg.CredentialsJSON)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.Range, cfg.CacheTTL), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, budgetRange string, ttl time.Duration) *BudgetSheet {
	if budgetRange == "" {
		budgetRange = DefaultRange
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &BudgetSheet{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		budgetRange:        budgetRange,
		cacheValidDuration: ttl,
	}
}

// LoadCredentials reads service account JSON from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func LoadCredentials() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

func newSheetsService(ctx context.Context, credentialsJSON []byte) (*gsheet.Service, error) {
	creds, err := googleoauth.CredentialsFromJSON(ctx, credentialsJSON, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	// Token refreshes and API calls share the pooled transport.
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := oauth2.NewClient(authCtx, creds.TokenSource)

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created",
		log.FieldComponent, log.ComponentBudget,
		"project_id", creds.ProjectID)
	return service, nil
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// Budgets returns the sheet's budget lines for any user.
func (b *BudgetSheet) Budgets(ctx context.Context, _ int64) ([]core.BudgetLine, error) {
	b.mu.Lock()
	if time.Now().Before(b.cacheExpiresAt) {
		out := append([]core.BudgetLine(nil), b.cached...)
		b.mu.Unlock()
		return out, nil
	}
	b.mu.Unlock()

	if b.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := b.svc.Spreadsheets.Values.Get(b.spreadsheetID, b.budgetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read budget range %q: %w", b.budgetRange, err)
	}
	lines, err := parseBudgetRows(resp.Values)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.cached = lines
	b.cacheExpiresAt = time.Now().Add(b.cacheValidDuration)
	b.mu.Unlock()

	slog.DebugContext(ctx, "Budget sheet loaded",
		log.FieldComponent, log.ComponentBudget,
		"lines", len(lines),
		"range", b.budgetRange)
	return append([]core.BudgetLine(nil), lines...), nil
}

// InvalidateCache forces the next Budgets call to read the sheet.
func (b *BudgetSheet) InvalidateCache() {
	b.mu.Lock()
	b.cacheExpiresAt = time.Time{}
	b.mu.Unlock()
}
