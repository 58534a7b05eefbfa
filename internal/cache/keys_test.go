package cache

import (
	"path"
	"strings"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

func TestKeyShapes(t *testing.T) {
	cases := []struct {
		key  Key
		want string
		ttl  time.Duration
	}{
		{AnalyticsKey(7, "summary", Params{}.Set("period", "month")), "analytics:v1:user:7:summary:period=month", TTLAnalytics},
		{InsightsKey(7, nil), "analytics:v1:user:7:insights:none", DefaultTTL},
		{CategoriesKey(""), "categories:v1:global:list:all", TTLCategories},
		{CategoriesKey(core.Income), "categories:v1:global:list:income", TTLCategories},
		{UserProfileKey(7), "user:v1:user:7:profile:current", TTLUser},
	}
	for _, tc := range cases {
		if tc.key.String() != tc.want {
			t.Errorf("got %q, want %q", tc.key, tc.want)
		}
		if tc.key.TTL != tc.ttl {
			t.Errorf("%s: ttl %v, want %v", tc.key, tc.key.TTL, tc.ttl)
		}
	}
}

func TestTransactionsKeyDistinguishesFilters(t *testing.T) {
	cat := int64(3)
	filters := []ledger.TransactionFilter{
		{UserID: 1},
		{UserID: 1, Page: 2},
		{UserID: 1, Type: core.Expense},
		{UserID: 1, CategoryID: &cat},
		{UserID: 1, Search: "coffee"},
		{UserID: 1, Search: "coffee:*"},
		{UserID: 1, Range: core.DateRange{Start: core.NewDate(2024, 1, 1)}},
		{UserID: 1, Range: core.DateRange{End: core.NewDate(2024, 1, 1)}},
		{UserID: 2},
	}
	seen := map[string]int{}
	for i, f := range filters {
		k := TransactionsKey(f).String()
		if j, dup := seen[k]; dup {
			t.Fatalf("filters %d and %d collide on %q", j, i, k)
		}
		seen[k] = i
		if k[strings.LastIndex(k, ":")+1:] == "" {
			t.Fatalf("empty discriminator in %q", k)
		}
		if strings.Count(k, ":") != 5 {
			t.Fatalf("user input leaked a separator into %q", k)
		}
	}

	// Page defaults are normalized before keying.
	if TransactionsKey(ledger.TransactionFilter{UserID: 1}) != TransactionsKey(ledger.TransactionFilter{UserID: 1, Page: 1, PageSize: ledger.DefaultPageSize}) {
		t.Fatal("equivalent filters must share a key")
	}
}

func TestPatternsIsolateUsers(t *testing.T) {
	keys := []string{
		AnalyticsKey(4, "summary", nil).String(),
		AnalyticsKey(42, "summary", nil).String(),
		InsightsKey(4, nil).String(),
		TransactionsKey(ledger.TransactionFilter{UserID: 4}).String(),
		TransactionsKey(ledger.TransactionFilter{UserID: 42}).String(),
		UserProfileKey(4).String(),
		CategoriesKey("").String(),
	}
	matches := func(pattern string) []string {
		var out []string
		for _, k := range keys {
			if ok, _ := path.Match(pattern, k); ok {
				out = append(out, k)
			}
		}
		return out
	}

	if got := matches(UserAnalyticsPattern(4)); len(got) != 2 {
		t.Fatalf("analytics pattern for user 4 matched %v", got)
	}
	if got := matches(UserTransactionsPattern(4)); len(got) != 1 {
		t.Fatalf("transactions pattern for user 4 matched %v", got)
	}
	if got := matches(UserProfilePattern(4)); len(got) != 1 {
		t.Fatalf("profile pattern for user 4 matched %v", got)
	}
	if got := matches(CategoriesPattern()); len(got) != 1 {
		t.Fatalf("categories pattern matched %v", got)
	}
}
