package user

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/JeandreDegenaar/q1-profiles/internal/sanitize"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrConflict = errors.New("username or email already exists")
)

// FieldError reports a field that failed format validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q %s", e.Field, e.Reason)
}

var (
	usernameRE = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,30}$`)
	emailRE    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRE    = regexp.MustCompile(`^\d{10}$`)
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Email        string    `json:"email"`
	Phone        *string   `json:"phone"`
	DOB          Date      `json:"dob"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the externally visible slice of a user record. The password
// hash has no representation here at all.
type Profile struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone"`
	DOB      Date    `json:"dob"`
}

func (u User) Profile() Profile {
	return Profile{
		Username: u.Username,
		Email:    u.Email,
		Phone:    u.Phone,
		DOB:      u.DOB,
	}
}

// NewUser carries the fields of a signup. The password arrives already
// hashed; plaintext never crosses this boundary.
type NewUser struct {
	Username     string
	PasswordHash string
	Email        string
	Phone        *string
	DOB          Date
}

// Normalize trims the username and lowercases the email, mirroring what the
// store persists.
func (n *NewUser) Normalize() {
	n.Username = strings.TrimSpace(n.Username)
	n.Email = strings.ToLower(strings.TrimSpace(n.Email))
}

func (n *NewUser) Validate() error {
	if n.PasswordHash == "" {
		return &FieldError{Field: "password", Reason: "is required"}
	}
	return validateProfileFields(n.Username, n.Email, n.Phone, n.DOB)
}

// ProfileUpdate carries the fields a profile update may change. The
// password is immutable after signup and has no place here.
type ProfileUpdate struct {
	Username string
	Email    string
	Phone    *string
	DOB      Date
}

func (p *ProfileUpdate) Normalize() {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
}

func (p *ProfileUpdate) Validate() error {
	return validateProfileFields(p.Username, p.Email, p.Phone, p.DOB)
}

// ValidUsername reports whether s is a storable username: 3-30 characters
// of [A-Za-z0-9_.-] that clear the sanitizer. This reuses the exact
// sanitizer predicate the body gate runs; the two must never drift apart.
func ValidUsername(s string) bool {
	return !sanitize.IsInvalid(s) && usernameRE.MatchString(s)
}

func validateProfileFields(username, email string, phone *string, dob Date) error {
	if !ValidUsername(username) {
		return &FieldError{Field: "username", Reason: "must be 3-30 characters of letters, digits, '_', '.' or '-' with no whitespace or emoji"}
	}

	if !emailRE.MatchString(email) {
		return &FieldError{Field: "email", Reason: "must be a valid email address"}
	}

	if phone != nil && *phone != "" && !phoneRE.MatchString(*phone) {
		return &FieldError{Field: "phone", Reason: "must be exactly 10 digits"}
	}

	if dob.IsZero() {
		return &FieldError{Field: "dob", Reason: "is required"}
	}

	return nil
}
