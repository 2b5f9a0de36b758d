package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// BillType tells whether a bill adds to or subtracts from the balance.
type BillType string

const (
	Income  BillType = "income"
	Expense BillType = "expense"
)

func (t BillType) Valid() bool {
	return t == Income || t == Expense
}

// ParseBillType parses s case-insensitively.
func ParseBillType(s string) (BillType, error) {
	t := BillType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// Period is the recurrence of a budget.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

func (p Period) Valid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

const (
	MaxNoteLength        = 500
	MaxNameLength        = 50
	MaxDescriptionLength = 200
	MinUsernameLength    = 3
	MaxUsernameLength    = 32
	MinPasswordLength    = 6
	// MaxPasswordBytes is bcrypt's input limit.
	MaxPasswordBytes     = 72
)

// NewID returns a random identifier for a new entity.
func NewID() string {
	return uuid.NewString()
}

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidateUsername checks length and rejects whitespace.
func ValidateUsername(name string) error {
	n := utf8.RuneCountInString(name)
	if n < MinUsernameLength || n > MaxUsernameLength || strings.ContainsAny(name, " \t\r\n") {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return ErrInvalidPassword
	}
	if len(pw) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// Category is shared by every user and unique per (Name, Type).
type Category struct {
	ID        string
	Name      string
	Type      BillType
	Icon      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

// Bill is a single income or expense record owned by a user.
type Bill struct {
	ID         string
	UserID     string
	Amount     Money
	Type       BillType
	CategoryID string
	// Category is populated by list and get queries.
	Category  *Category
	Date      time.Time
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b Bill) Validate() error {
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrMissingCategory
	}
	if b.Date.IsZero() {
		return ErrMissingDate
	}
	if utf8.RuneCountInString(b.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// Budget caps spending on one category for a recurring period.
type Budget struct {
	ID          string
	UserID      string
	CategoryID  string
	Category    *Category
	Amount      Money
	Period      Period
	StartDate   time.Time
	EndDate     time.Time
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrMissingCategory
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return ErrMissingDate
	}
	if b.EndDate.Before(b.StartDate) {
		return ErrInvalidDateRange
	}
	if utf8.RuneCountInString(b.Description) > MaxDescriptionLength {
		return ErrDescTooLong
	}
	return nil
}
