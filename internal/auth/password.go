// Package auth handles password hashing, JWT bearer tokens and GitHub sign-in for BlogNode accounts.
//
// Passwords are stored as bcrypt hashes; the salt and the cost travel inside the
// hash string:
//
//	$2a$12$<22-char salt><31-char hash>
//
// Only the hash ever reaches the database (model.Account.PasswordHash, tagged json:"-").
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/blognode/internal/apperror"
)

// DefaultBcryptCost is used when no cost is configured (~250ms per hash).
const DefaultBcryptCost = 12

// maxPasswordBytes is bcrypt's input limit. bcrypt truncates anything longer.
const maxPasswordBytes = 72

// ErrPasswordMismatch is returned by Verify when the password does not match.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService hashes and verifies account passwords.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a PasswordService hashing at cost. Zero selects
// DefaultBcryptCost and values outside bcrypt's range are clamped into it.
func NewPasswordService(cost int) *PasswordService {
	switch {
	case cost == 0:
		cost = DefaultBcryptCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordService{cost: cost}
}

// Cost is the work factor new hashes are created with.
func (p *PasswordService) Cost() int {
	return p.cost
}

// Hash returns the bcrypt hash of plaintext. A password over 72 bytes is a
// validation error on field "password".
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", maxPasswordBytes))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares plaintext against a stored hash. A wrong password, or an
// account without a password hash, yields ErrPasswordMismatch.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return ErrPasswordMismatch
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
}

// NeedsRehash reports whether hash was made with a different cost than the
// service now uses. An unreadable hash always needs one.
func (p *PasswordService) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != p.cost
}
