// Package service holds the server's business rules.
//
// Handlers decode HTTP, services decide, repositories store:
//
//	AccountHandler (HTTP) → AccountService (rules) → AccountRepository (DB)
//	                      ↘ TokenService (JWT), PasswordService (bcrypt)
//
// Services never read requests or set cookies, and they are not tied to chi.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/auth"
	"github.com/sakif/blognode/internal/model"
	"github.com/sakif/blognode/internal/repository"
)

// AccountService handles sign-up, sign-in and profile edits.
type AccountService struct {
	accounts  repository.AccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAccountService(
	accounts repository.AccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the public profile and the issued JWT so the handler can
// answer in one step.
type AuthResult struct {
	User  *model.UserProfile `json:"user"`
	Token string             `json:"token"`
}

// CreateAccount registers a new email/password account and signs it in.
// Absent username and display name are stored as empty strings.
func (s *AccountService) CreateAccount(ctx context.Context, reg model.Registration) (*AuthResult, error) {
	email := strings.TrimSpace(reg.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if reg.Password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("service/account: %w", err)
	}

	account := &model.Account{
		UserProfile: model.UserProfile{
			Username:    strings.TrimSpace(reg.Username),
			DisplayName: strings.TrimSpace(reg.DisplayName),
			Email:       email,
			Avatar:      strings.TrimSpace(reg.Avatar),
			Bio:         strings.TrimSpace(reg.Bio),
			SocialLinks: reg.SocialLinks.Normalize(),
		},
		PasswordHash: hash,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("service/account: creating %s: %w", email, err)
	}

	s.logger.Info("account created", slog.String("accountID", account.ID))
	return s.issue(account)
}

// Authenticate checks email and password. Unknown email and wrong password both
// return apperror.ErrUnauthorized so callers cannot probe which emails exist.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperror.ValidationFailed("credentials", "email and password are required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/account: looking up %s: %w", email, err)
	}

	// GitHub-only accounts have no password hash; Verify never matches them.
	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/account: verifying password: %w", err)
	}
	s.rehash(ctx, account.ID, account.PasswordHash, password)

	s.logger.Info("account signed in", slog.String("accountID", account.ID))
	return s.issue(account)
}

// rehash upgrades a hash made with a different cost. Errors are logged, never returned.
func (s *AccountService) rehash(ctx context.Context, accountID, hash, password string) {
	if !s.passwords.NeedsRehash(hash) {
		return
	}
	fresh, err := s.passwords.Hash(password)
	if err == nil {
		err = s.accounts.UpdatePasswordHash(ctx, accountID, fresh)
	}
	if err != nil {
		s.logger.Warn("password rehash failed",
			slog.String("accountID", accountID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Debug("password rehashed", slog.String("accountID", accountID), slog.Int("cost", s.passwords.Cost()))
}

// Profile returns the public profile of accountID.
func (s *AccountService) Profile(ctx context.Context, accountID string) (*model.UserProfile, error) {
	if accountID == "" {
		return nil, apperror.NotAuthenticated("profile")
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("service/account: fetching %s: %w", accountID, err)
	}
	return account.UserProfile.Clone(), nil
}

// UpdateProfile applies upd to the account's profile. Email is not editable here.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, upd model.ProfileUpdate) (*model.UserProfile, error) {
	current, err := s.Profile(ctx, accountID)
	if err != nil {
		return nil, err
	}

	merged := upd.ApplyTo(current)
	merged.Username = strings.TrimSpace(merged.Username)
	merged.DisplayName = strings.TrimSpace(merged.DisplayName)

	account, err := s.accounts.UpdateProfile(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("service/account: updating %s: %w", accountID, err)
	}

	s.logger.Info("profile updated", slog.String("accountID", accountID))
	return account.UserProfile.Clone(), nil
}

// LoginOrRegisterGitHub finds the account linked to ghUser or creates one.
// Profile edits made in BlogNode are kept on later logins.
func (s *AccountService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/account: GitHub user must not be nil")
	}

	account, err := s.accounts.GetByGitHubID(ctx, ghUser.ID)
	switch {
	case err == nil:
		s.logger.Info("account signed in via GitHub", slog.String("accountID", account.ID))
		return s.issue(account)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/account: looking up githubID=%d: %w", ghUser.ID, err)
	}

	profile := ghUser.Profile()
	if profile.Email == "" {
		// Hidden emails get GitHub's noreply address so email stays unique.
		profile.Email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, ghUser.Login)
	}

	account = &model.Account{UserProfile: profile, GitHubID: ghUser.ID}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("service/account: creating GitHub account %d: %w", ghUser.ID, err)
	}

	s.logger.Info("account created via GitHub",
		slog.String("accountID", account.ID),
		slog.String("login", ghUser.Login),
	)
	return s.issue(account)
}

// ValidateToken returns the account ID encoded in tokenStr.
func (s *AccountService) ValidateToken(tokenStr string) (string, error) {
	id, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/account: %w", err)
	}
	return id, nil
}

func (s *AccountService) issue(account *model.Account) (*AuthResult, error) {
	token, err := s.tokens.Generate(account.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for %s: %w", account.ID, err)
	}
	return &AuthResult{User: account.UserProfile.Clone(), Token: token}, nil
}
