package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const (
	maxCategoryLen = 100
	maxNoteLen     = 500
	maxTitleLen    = 200
	minPasswordLen = 6
)

type (
	TxType string

	Transaction struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		Type      TxType    `json:"type"`
		Amount    Money     `json:"amount"`
		Category  string    `json:"category"`
		Bucket    Bucket    `json:"bucket"`
		Note      string    `json:"note,omitempty"`
		Date      time.Time `json:"date"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Goal is the savings target of one user for one calendar year.
	Goal struct {
		UserID    string    `json:"userId"`
		Year      int       `json:"year"`
		Amount    Money     `json:"amount"`
		Title     string    `json:"title"`
		UpdatedAt time.Time `json:"updatedAt,omitempty"`
	}

	User struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		UPIID        string    `json:"upiId"`
		Phone        string    `json:"phone"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
	}
)

var (
	ErrInvalidType     = errors.New("type must be income or expense")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyCategory   = errors.New("empty category")
	ErrMissingDate     = errors.New("missing date")
	ErrInvalidDate     = errors.New("invalid date")
	ErrMissingUser     = errors.New("missing user id")
	ErrInvalidYear     = errors.New("invalid year")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyUPIID      = errors.New("empty upi id")
	ErrEmptyPhone      = errors.New("empty phone")
	ErrWeakPassword    = errors.New("password too short")
	ErrCategoryTooLong = errors.New("category too long (max 100 characters)")
	ErrNoteTooLong     = errors.New("note too long (max 500 characters)")
	ErrTitleTooLong    = errors.New("title too long (max 200 characters)")
)

// ParseTxType accepts the type names case-insensitively.
func ParseTxType(s string) (TxType, error) {
	switch TxType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", ErrInvalidType
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// Normalize trims the free-text fields in place.
func (t *Transaction) Normalize() {
	t.UserID = strings.TrimSpace(t.UserID)
	t.Category = strings.TrimSpace(t.Category)
	t.Note = strings.TrimSpace(t.Note)
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrMissingUser
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	category := strings.TrimSpace(t.Category)
	if category == "" {
		return ErrEmptyCategory
	}
	if len(category) > maxCategoryLen {
		return ErrCategoryTooLong
	}
	if len(strings.TrimSpace(t.Note)) > maxNoteLen {
		return ErrNoteTooLong
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrMissingUser
	}
	if g.Year < 1970 || g.Year > 9999 {
		return ErrInvalidYear
	}
	if g.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if len(g.Title) > maxTitleLen {
		return ErrTitleTooLong
	}
	return nil
}

// EmptyGoal is what a user without a saved goal reads for a year.
func EmptyGoal(userID string, year int) Goal {
	return Goal{UserID: userID, Year: year}
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(u.UPIID) == "" {
		return ErrEmptyUPIID
	}
	if strings.TrimSpace(u.Phone) == "" {
		return ErrEmptyPhone
	}
	return nil
}

// ValidatePassword checks the plain-text password before hashing.
func ValidatePassword(p string) error {
	if len(p) < minPasswordLen {
		return ErrWeakPassword
	}
	return nil
}
