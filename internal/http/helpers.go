package http

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"billbook/internal/core"
)

var errInvalidNumber = core.Errorf(core.ErrValidation, "page and limit must be numbers")

// parseDateParam parses a date or timestamp. With endOfDay a plain date
// is moved to its last nanosecond.
func parseDateParam(s string, endOfDay bool) (time.Time, error) {
	t, dayOnly, err := core.ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	if dayOnly && endOfDay {
		return core.EndOfDay(t), nil
	}
	return t, nil
}

func parseIntParam(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errInvalidNumber
	}
	return n, nil
}

// parseBillQuery reads the filter and page of a bill listing.
func parseBillQuery(q url.Values, userID string) (core.BillFilter, core.PageRequest, error) {
	f := core.BillFilter{
		UserID:     userID,
		CategoryID: strings.TrimSpace(q.Get("categoryId")),
		Keyword:    sanitizeInput(q.Get("keyword")),
	}
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		t, err := core.ParseBillType(v)
		if err != nil {
			return f, core.PageRequest{}, err
		}
		f.Type = t
	}
	if v := strings.TrimSpace(q.Get("startDate")); v != "" {
		from, err := parseDateParam(v, false)
		if err != nil {
			return f, core.PageRequest{}, err
		}
		f.From = from
	}
	if v := strings.TrimSpace(q.Get("endDate")); v != "" {
		to, err := parseDateParam(v, true)
		if err != nil {
			return f, core.PageRequest{}, err
		}
		f.To = to
	}

	page, err := parseIntParam(q, "page")
	if err != nil {
		return f, core.PageRequest{}, err
	}
	limit, err := parseIntParam(q, "limit")
	if err != nil {
		return f, core.PageRequest{}, err
	}
	return f, core.PageRequest{Page: page, Limit: limit}.Normalize(), nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
