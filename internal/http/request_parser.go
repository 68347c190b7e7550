// Package http provides the JSON API server and its handlers.
//
// This file turns query strings and request bodies into service inputs.
// Unknown query parameters are ignored; malformed known ones are rejected.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finpilot/internal/core"
	"finpilot/internal/store"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var (
	errInvalidLimit  = errors.New("limit must be a positive number")
	errUnknownBucket = errors.New("unknown bucket")
)

// ParseRange resolves the date window of a query. Explicit startDate and
// endDate win over a named range preset; neither means no date filter.
func ParseRange(query url.Values, now time.Time) (*core.Range, error) {
	start, end := query.Get("startDate"), query.Get("endDate")
	if strings.TrimSpace(start) != "" || strings.TrimSpace(end) != "" {
		return core.ResolveRange(start, end)
	}
	if preset := strings.TrimSpace(query.Get("range")); preset != "" {
		return core.PresetRange(preset, now)
	}
	return nil, nil
}

// ParseTransactionFilter reads the list and aggregate filters for owner.
func ParseTransactionFilter(query url.Values, owner string, now time.Time) (store.TransactionFilter, error) {
	f := store.TransactionFilter{UserID: owner}

	r, err := ParseRange(query, now)
	if err != nil {
		return store.TransactionFilter{}, err
	}
	f.Range = r

	if v := strings.TrimSpace(query.Get("type")); v != "" {
		typ, err := core.ParseTxType(v)
		if err != nil {
			return store.TransactionFilter{}, err
		}
		f.Type = typ
	}
	f.Category = sanitizeInput(query.Get("category"))
	if v := strings.TrimSpace(query.Get("bucket")); v != "" {
		b, ok := core.ParseBucket(v)
		if !ok {
			return store.TransactionFilter{}, fmt.Errorf("%w: %q", errUnknownBucket, v)
		}
		f.Bucket = b
	}
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return store.TransactionFilter{}, errInvalidLimit
		}
		f.Limit = n
	}
	return f, nil
}

// ParseYear reads the year parameter. Absent means 0, which the services
// read as the current year.
func ParseYear(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.ErrInvalidYear
	}
	return y, nil
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformedBody)
		}
		return fmt.Errorf("%w: %w", errMalformedBody, err)
	}
	return nil
}

// sanitizeInput drops control characters other than tab and newlines and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
