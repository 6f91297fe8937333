// Package views holds the page-scoped state behind the CLI's interactive
// screens: the sign-up form, the post editor and the community feed.
//
// Nothing here persists anything. Session changes go through session.Manager
// and posts go through a Publisher, so a view can be thrown away at any time.
package views

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/model"
)

// Registrar creates an account and logs it in. *session.Manager satisfies it.
type Registrar interface {
	Register(ctx context.Context, reg model.Registration) (*model.UserProfile, error)
}

// SignUpForm is the sign-up page.
type SignUpForm struct {
	Email           string
	Password        string
	ConfirmPassword string
	FullName        string

	registrar Registrar
	isLoading atomic.Bool
}

func NewSignUpForm(r Registrar) *SignUpForm {
	return &SignUpForm{registrar: r}
}

// IsLoading reports whether a submission is in flight.
func (f *SignUpForm) IsLoading() bool {
	return f.isLoading.Load()
}

// Submit registers the account described by the form. A password mismatch is
// rejected before the registrar is called.
func (f *SignUpForm) Submit(ctx context.Context) (*model.UserProfile, error) {
	if !f.isLoading.CompareAndSwap(false, true) {
		return nil, apperror.Busy("signUp")
	}
	defer f.isLoading.Store(false)

	if f.Password != f.ConfirmPassword {
		return nil, apperror.ValidationFailed("confirmPassword", "passwords do not match")
	}

	user, err := f.registrar.Register(ctx, f.registration())
	if err != nil {
		return nil, fmt.Errorf("views: sign up: %w", err)
	}

	f.Password = ""
	f.ConfirmPassword = ""
	return user, nil
}

func (f *SignUpForm) registration() model.Registration {
	email := strings.TrimSpace(f.Email)
	return model.Registration{
		Email:       email,
		Password:    f.Password,
		Username:    usernameFromEmail(email),
		DisplayName: strings.TrimSpace(f.FullName),
	}
}

// usernameFromEmail returns the local part of email, lowercased.
// "Jane.Doe@example.com" → "jane.doe"
func usernameFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found {
		return ""
	}
	return strings.ToLower(local)
}
