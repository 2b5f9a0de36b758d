package core

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBill() Bill {
	return Bill{
		UserID:     "u1",
		Amount:     Money{Cents: 1000},
		Type:       Expense,
		CategoryID: "c1",
		Date:       time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Note:       "lunch",
	}
}

func TestBillValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Bill)
		want   error
	}{
		{"ok", func(*Bill) {}, nil},
		{"zero amount", func(b *Bill) { b.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(b *Bill) { b.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		{"bad type", func(b *Bill) { b.Type = "transfer" }, ErrInvalidType},
		{"no category", func(b *Bill) { b.CategoryID = " " }, ErrMissingCategory},
		{"no date", func(b *Bill) { b.Date = time.Time{} }, ErrMissingDate},
		{"note too long", func(b *Bill) { b.Note = strings.Repeat("x", MaxNoteLength+1) }, ErrNoteTooLong},
		{"note at limit", func(b *Bill) { b.Note = strings.Repeat("é", MaxNoteLength) }, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := validBill()
			tc.mutate(&b)
			err := b.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestBudgetValidate(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := Budget{
		UserID:     "u1",
		CategoryID: "c1",
		Amount:     Money{Cents: 50000},
		Period:     Monthly,
		StartDate:  start,
		EndDate:    start.AddDate(1, 0, -1),
	}
	require.NoError(t, b.Validate())

	bad := b
	bad.EndDate = start.AddDate(0, 0, -1)
	assert.ErrorIs(t, bad.Validate(), ErrInvalidDateRange)

	bad = b
	bad.Period = "hourly"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPeriod)

	same := b
	same.EndDate = start
	assert.NoError(t, same.Validate())
}

func TestCategoryValidate(t *testing.T) {
	assert.NoError(t, Category{Name: "Food", Type: Expense}.Validate())
	assert.ErrorIs(t, Category{Name: "  ", Type: Expense}.Validate(), ErrEmptyName)
	assert.ErrorIs(t, Category{Name: "Food", Type: "x"}.Validate(), ErrInvalidType)
	assert.ErrorIs(t, Category{Name: strings.Repeat("a", MaxNameLength+1), Type: Income}.Validate(), ErrNameTooLong)
}

func TestUsernameAndPassword(t *testing.T) {
	assert.NoError(t, ValidateUsername("alice"))
	assert.ErrorIs(t, ValidateUsername("al"), ErrInvalidUsername)
	assert.ErrorIs(t, ValidateUsername("al ice"), ErrInvalidUsername)
	assert.ErrorIs(t, ValidateUsername(strings.Repeat("a", MaxUsernameLength+1)), ErrInvalidUsername)
	assert.NoError(t, ValidatePassword("secret"))
	assert.ErrorIs(t, ValidatePassword("12345"), ErrInvalidPassword)
	assert.NoError(t, ValidatePassword(strings.Repeat("p", MaxPasswordBytes)))
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("p", MaxPasswordBytes+1)), ErrPasswordTooLong)
	// 25 three-byte runes: few characters, too many bytes.
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("€", 25)), ErrPasswordTooLong)
}

func TestParseBillType(t *testing.T) {
	got, err := ParseBillType(" Income ")
	require.NoError(t, err)
	assert.Equal(t, Income, got)
	_, err = ParseBillType("gift")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestPageRequestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"defaults", PageRequest{}, PageRequest{Page: 1, Limit: 10}},
		{"limit above max", PageRequest{Page: 3, Limit: 1000}, PageRequest{Page: 3, Limit: 100}},
		{"negative limit", PageRequest{Page: 2, Limit: -5}, PageRequest{Page: 2, Limit: 1}},
		{"negative page", PageRequest{Page: -7, Limit: 10}, PageRequest{Page: 1, Limit: 10}},
		{"huge page", PageRequest{Page: math.MaxInt, Limit: 10}, PageRequest{Page: MaxPage, Limit: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Normalize())
		})
	}
	assert.Equal(t, 20, PageRequest{Page: 3, Limit: 10}.Offset())
}

func TestPageRequestOffsetDoesNotOverflow(t *testing.T) {
	for _, limit := range []int{1, 10, MaxLimit, math.MaxInt} {
		p := PageRequest{Page: math.MaxInt, Limit: limit}.Normalize()
		assert.GreaterOrEqual(t, p.Offset(), 0, "limit %d", limit)
	}
}

func TestBillFilterMatches(t *testing.T) {
	b := validBill()
	b.Note = "Lunch with Bob"
	day := b.Date

	cases := []struct {
		name string
		f    BillFilter
		want bool
	}{
		{"owner only", BillFilter{UserID: "u1"}, true},
		{"other owner", BillFilter{UserID: "u2"}, false},
		{"type", BillFilter{UserID: "u1", Type: Income}, false},
		{"category", BillFilter{UserID: "u1", CategoryID: "c1"}, true},
		{"from inclusive", BillFilter{UserID: "u1", From: day}, true},
		{"to inclusive", BillFilter{UserID: "u1", To: day}, true},
		{"before range", BillFilter{UserID: "u1", From: day.Add(time.Second)}, false},
		{"keyword case-insensitive", BillFilter{UserID: "u1", Keyword: "BOB"}, true},
		{"keyword literal", BillFilter{UserID: "u1", Keyword: "b.b"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.f.Matches(b))
		})
	}
}

func TestParseDate(t *testing.T) {
	d, dayOnly, err := ParseDate("2025-03-14")
	require.NoError(t, err)
	assert.True(t, dayOnly)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), d)

	d, dayOnly, err = ParseDate("2025-03-14T10:30:00+02:00")
	require.NoError(t, err)
	assert.False(t, dayOnly)
	assert.Equal(t, time.Date(2025, 3, 14, 8, 30, 0, 0, time.UTC), d)

	_, _, err = ParseDate("14/03/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, _, err = ParseDate("")
	assert.ErrorIs(t, err, ErrMissingDate)

	assert.Equal(t, time.Date(2025, 3, 14, 23, 59, 59, 999999999, time.UTC), EndOfDay(d))
}

func TestPublicMessage(t *testing.T) {
	err := Errorf(ErrNotFound, "bill not found")
	wrapped := errors.Join(errors.New("ctx"), err)
	assert.Equal(t, "bill not found", PublicMessage(wrapped, "fallback"))
	assert.Equal(t, "fallback", PublicMessage(errors.New("boom"), "fallback"))
	assert.ErrorIs(t, wrapped, ErrNotFound)
}
