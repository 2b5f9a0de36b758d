package core

import (
	"math"
	"strings"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (Page-1)*Limit inside int for every legal limit.
	MaxPage      = math.MaxInt / MaxLimit
)

// BillFilter narrows a bill query. Zero fields match everything except
// UserID, which is always applied.
type BillFilter struct {
	UserID     string
	Type       BillType
	CategoryID string
	// From and To are both inclusive.
	From    time.Time
	To      time.Time
	Keyword string
}

// NormalizedKeyword returns the trimmed, lower-cased keyword.
func (f BillFilter) NormalizedKeyword() string {
	return strings.ToLower(strings.TrimSpace(f.Keyword))
}

// Matches reports whether b satisfies every set criterion.
func (f BillFilter) Matches(b Bill) bool {
	if b.UserID != f.UserID {
		return false
	}
	if f.Type != "" && b.Type != f.Type {
		return false
	}
	if f.CategoryID != "" && b.CategoryID != f.CategoryID {
		return false
	}
	if !f.From.IsZero() && b.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && b.Date.After(f.To) {
		return false
	}
	if kw := f.NormalizedKeyword(); kw != "" && !strings.Contains(strings.ToLower(b.Note), kw) {
		return false
	}
	return true
}

type PageRequest struct {
	Page  int
	Limit int
}

// Normalize applies defaults and clamps both fields. An unset (zero) limit
// means DefaultLimit; a negative one is clamped to 1.
func (p PageRequest) Normalize() PageRequest {
	switch {
	case p.Page < 1:
		p.Page = DefaultPage
	case p.Page > MaxPage:
		p.Page = MaxPage
	}
	switch {
	case p.Limit == 0:
		p.Limit = DefaultLimit
	case p.Limit < 1:
		p.Limit = 1
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

// Offset is the number of rows skipped before the page. It is only
// meaningful on a normalized request.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}
