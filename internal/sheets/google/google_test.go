package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func fakeSheets(t *testing.T, body string, status int) (*gsheet.Service, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if !strings.Contains(r.URL.Path, "/v4/spreadsheets/sheet-id/values/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	return svc, &calls
}

func TestBudgetsReadsAndCachesSheet(t *testing.T) {
	svc, calls := fakeSheets(t, `{"range":"Budget!A1:B3","values":[["Category","Amount"],["Food & Dining","450.00"],["Healthcare","80"]]}`, http.StatusOK)
	b := NewWithService(svc, "sheet-id", "", time.Minute)

	for i := 0; i < 3; i++ {
		lines, err := b.Budgets(context.Background(), int64(i+1))
		if err != nil {
			t.Fatal(err)
		}
		if len(lines) != 2 || lines[0].Amount.Cents != 45000 || lines[1].CategoryName != "Healthcare" {
			t.Fatalf("unexpected lines %+v", lines)
		}
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Fatalf("expected one sheet read, got %d", n)
	}

	b.InvalidateCache()
	if _, err := b.Budgets(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Fatalf("expected a re-read after invalidation, got %d", n)
	}
}

func TestBudgetsCacheExpires(t *testing.T) {
	svc, calls := fakeSheets(t, `{"values":[["Food","1"]]}`, http.StatusOK)
	b := NewWithService(svc, "sheet-id", "Budget!A:B", 50*time.Millisecond)

	if _, err := b.Budgets(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	time.Sleep(80 * time.Millisecond)
	if _, err := b.Budgets(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Fatalf("expected two reads across expiry, got %d", n)
	}
}

func TestBudgetsReturnsCopies(t *testing.T) {
	svc, _ := fakeSheets(t, `{"values":[["Food","10"]]}`, http.StatusOK)
	b := NewWithService(svc, "sheet-id", "", time.Minute)

	first, _ := b.Budgets(context.Background(), 1)
	first[0].CategoryName = "mutated"
	second, _ := b.Budgets(context.Background(), 1)
	if second[0].CategoryName != "Food" {
		t.Fatal("cached lines must not be shared with callers")
	}
}

func TestBudgetsAPIError(t *testing.T) {
	svc, _ := fakeSheets(t, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	b := NewWithService(svc, "sheet-id", "", time.Minute)

	if _, err := b.Budgets(context.Background(), 1); err == nil {
		t.Fatal("expected an error")
	}
}

func TestUninitializedService(t *testing.T) {
	b := &BudgetSheet{}
	if _, err := b.Budgets(context.Background(), 1); err == nil {
		t.Fatal("expected an error without a service")
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRejectsBadCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", CredentialsJSON: []byte("not-json")})
	if err == nil || !strings.Contains(err.Error(), "parse credentials") {
		t.Fatalf("expected a credentials error, got %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := LoadCredentials(); err == nil {
		t.Fatal("expected an error without credentials")
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)
	data, err := LoadCredentials()
	if err != nil || string(data) != `{"type":"service_account"}` {
		t.Fatalf("unexpected inline credentials %q %v", data, err)
	}
}
