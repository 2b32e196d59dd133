package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Birthday is a stored birthday record. Email is unique across all records
// and kept lowercase; only the month and day of DOB drive the daily check,
// the year is stored but never matched against.
type Birthday struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	DOB       time.Time `json:"dob"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OccursOn reports whether the birthday falls on the given day,
// comparing month and day only.
func (b Birthday) OccursOn(t time.Time) bool {
	return b.DOB.Month() == t.Month() && b.DOB.Day() == t.Day()
}

// NormalizeEmail lowercases and trims an email address so the uniqueness
// constraint is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
