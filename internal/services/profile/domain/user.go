// Package domain holds profile entities and the pure rules mutations enforce.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidDisplayColor indicates a display color outside the #RRGGBB format.
var ErrInvalidDisplayColor = errors.New("display color must be a #RRGGBB value")

// User represents one profile record.
//
// DisplayName must case-insensitively equal Username after any successful
// display-name mutation; the store enforces this with a predicate-guarded
// update and the service fast-fails before writing.
type User struct {
	ID            string
	Username      string
	DisplayName   string
	Email         string
	EmailVerified bool
	DisplayColor  DisplayColor
	PasswordHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DisplayColor is a 24-bit RGB color stored as its integer value.
type DisplayColor int32

// ParseDisplayColor parses a #RRGGBB string into a display color.
func ParseDisplayColor(value string) (DisplayColor, error) {
	value = strings.TrimSpace(value)
	if len(value) != 7 || value[0] != '#' {
		return 0, ErrInvalidDisplayColor
	}
	var color int32
	for _, r := range value[1:] {
		var digit int32
		switch {
		case r >= '0' && r <= '9':
			digit = r - '0'
		case r >= 'a' && r <= 'f':
			digit = r - 'a' + 10
		case r >= 'A' && r <= 'F':
			digit = r - 'A' + 10
		default:
			return 0, ErrInvalidDisplayColor
		}
		color = color<<4 | digit
	}
	return DisplayColor(color), nil
}

// String formats the color as an uppercase #RRGGBB value.
func (c DisplayColor) String() string {
	return fmt.Sprintf("#%06X", int32(c)&0xFFFFFF)
}

// HashPassword derives a password hash suitable for persistence.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func (u User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// DisplayNameMatchesUsername reports whether a requested display name is a
// case variant of the immutable username.
func DisplayNameMatchesUsername(displayName, username string) bool {
	return strings.EqualFold(displayName, username)
}
