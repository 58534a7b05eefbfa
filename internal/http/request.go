package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

const (
	headerUserID = "X-User-ID"
	maxBodyBytes = 1 << 20
)

// userID reads the authenticated caller set by the upstream auth layer.
func userID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(headerUserID))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("missing or invalid %s header: %w", headerUserID, core.ErrInvalidUserID)
	}
	return id, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: %w", r.PathValue("id"), errBadRequest)
	}
	return id, nil
}

// optionalID parses an id query parameter; absent means nil.
func optionalID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid %s %q: %w", name, raw, errBadRequest)
	}
	return &id, nil
}

// intParam returns def when the parameter is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, errBadRequest)
	}
	return n, nil
}

func dateParam(r *http.Request, name string) (core.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(raw)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, errBadRequest)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode body: trailing data: %w", errBadRequest)
	}
	return nil
}

// transactionFilter builds a listing filter from the query string.
func transactionFilter(r *http.Request, uid int64) (ledger.TransactionFilter, error) {
	q := r.URL.Query()
	f := ledger.TransactionFilter{
		UserID: uid,
		Type:   core.TransactionType(q.Get("type")),
		Search: strings.TrimSpace(q.Get("search")),
	}
	if f.Type != "" {
		if err := f.Type.Validate(); err != nil {
			return f, err
		}
	}
	var err error
	if f.Range.Start, err = dateParam(r, "start"); err != nil {
		return f, err
	}
	if f.Range.End, err = dateParam(r, "end"); err != nil {
		return f, err
	}
	if f.CategoryID, err = optionalID(r, "categoryId"); err != nil {
		return f, err
	}
	if f.Page, err = intParam(r, "page", 1); err != nil {
		return f, err
	}
	if f.PageSize, err = intParam(r, "pageSize", ledger.DefaultPageSize); err != nil {
		return f, err
	}
	return f, nil
}
