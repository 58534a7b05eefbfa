package cache

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

// SchemaVersion is embedded in every key; bump it when a cached payload
// shape changes so old entries are never decoded into new types.
const SchemaVersion = "v1"

// Class groups keys that share a TTL and an invalidation rule.
type Class string

const (
	ClassAnalytics    Class = "analytics"
	ClassCategories   Class = "categories"
	ClassUser         Class = "user"
	ClassTransactions Class = "transactions"
)

// TTL policy.
const (
	TTLAnalytics    = 15 * time.Minute
	TTLCategories   = time.Hour
	TTLUser         = 30 * time.Minute
	TTLTransactions = 5 * time.Minute
	DefaultTTL      = 10 * time.Minute
)

// Key is a fully qualified cache key together with its expiry.
type Key struct {
	Class Class
	name  string
	TTL   time.Duration
}

func (k Key) String() string { return k.name }

func newKey(class Class, scope, op, disc string, ttl time.Duration) Key {
	return Key{
		Class: class,
		name:  fmt.Sprintf("%s:%s:%s:%s:%s", class, SchemaVersion, scope, op, disc),
		TTL:   ttl,
	}
}

func userScope(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Params is an order-insensitive discriminator builder. Encode sorts by
// name and escapes values, so the same parameters always produce the same
// key segment and no value can inject ':' or glob metacharacters.
type Params url.Values

func (p Params) Set(name, value string) Params {
	url.Values(p).Set(name, value)
	return p
}

func (p Params) Encode() string {
	if len(p) == 0 {
		return "none"
	}
	return url.Values(p).Encode()
}

// RangeParams describes a resolved date range.
func RangeParams(r core.DateRange) Params {
	p := Params{}
	p.Set("start", r.Start.String())
	p.Set("end", r.End.String())
	return p
}

// AnalyticsKey addresses a derived view of one user.
func AnalyticsKey(userID int64, op string, p Params) Key {
	return newKey(ClassAnalytics, userScope(userID), op, p.Encode(), TTLAnalytics)
}

// InsightsKey lives in the analytics class so transaction writes purge it,
// but expires on the default TTL.
func InsightsKey(userID int64, p Params) Key {
	return newKey(ClassAnalytics, userScope(userID), "insights", p.Encode(), DefaultTTL)
}

// TransactionsKey addresses one filtered transaction page.
func TransactionsKey(f ledger.TransactionFilter) Key {
	f = f.Normalize()
	p := RangeParams(f.Range)
	p.Set("type", string(f.Type))
	if f.CategoryID != nil {
		p.Set("category", strconv.FormatInt(*f.CategoryID, 10))
	}
	p.Set("q", f.Search)
	p.Set("page", strconv.Itoa(f.Page))
	p.Set("size", strconv.Itoa(f.PageSize))
	return newKey(ClassTransactions, userScope(f.UserID), "list", p.Encode(), TTLTransactions)
}

// CategoriesKey addresses the global category list, optionally by type.
func CategoriesKey(t core.TransactionType) Key {
	typ := string(t)
	if typ == "" {
		typ = "all"
	}
	return newKey(ClassCategories, "global", "list", url.QueryEscape(typ), TTLCategories)
}

// UserProfileKey addresses a user's profile.
func UserProfileKey(userID int64) Key {
	return newKey(ClassUser, userScope(userID), "profile", "current", TTLUser)
}

// Invalidation patterns. The trailing ":*" after the user id keeps user 4
// from matching user 42.

func UserAnalyticsPattern(userID int64) string {
	return fmt.Sprintf("%s:*:%s:*", ClassAnalytics, userScope(userID))
}

func UserTransactionsPattern(userID int64) string {
	return fmt.Sprintf("%s:*:%s:*", ClassTransactions, userScope(userID))
}

func UserProfilePattern(userID int64) string {
	return fmt.Sprintf("%s:*:%s:*", ClassUser, userScope(userID))
}

func CategoriesPattern() string {
	return string(ClassCategories) + ":*"
}
