package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/auth"
	"github.com/sakif/blognode/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeAccountRepo is an in-memory repository.AccountRepository. A hand-written
// fake keeps the behaviour visible in the test file.
type fakeAccountRepo struct {
	byID   map[string]*model.Account
	nextID int
	// set to simulate a database failure
	createErr error
	getErr    error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byID: make(map[string]*model.Account)}
}

func (f *fakeAccountRepo) Create(_ context.Context, account *model.Account) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.byID {
		if model.NormalizeEmail(existing.Email) == model.NormalizeEmail(account.Email) {
			return apperror.Conflict("account", account.Email)
		}
		if account.GitHubID != 0 && existing.GitHubID == account.GitHubID {
			return apperror.Conflict("account", fmt.Sprintf("github:%d", account.GitHubID))
		}
	}
	f.nextID++
	account.ID = fmt.Sprintf("acc-%d", f.nextID)
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	stored := *account
	stored.UserProfile = *account.UserProfile.Clone()
	f.byID[account.ID] = &stored
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	c := *a
	return &c, nil
}

func (f *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.byID {
		if model.NormalizeEmail(a.Email) == model.NormalizeEmail(email) {
			c := *a
			return &c, nil
		}
	}
	return nil, apperror.NotFound("account", email)
}

func (f *fakeAccountRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.byID {
		if a.GitHubID == githubID {
			c := *a
			return &c, nil
		}
	}
	return nil, apperror.NotFound("account", fmt.Sprintf("github:%d", githubID))
}

func (f *fakeAccountRepo) UpdateProfile(_ context.Context, profile *model.UserProfile) (*model.Account, error) {
	a, ok := f.byID[profile.ID]
	if !ok {
		return nil, apperror.NotFound("account", profile.ID)
	}
	email := a.Email
	a.UserProfile = *profile.Clone()
	a.Email = email
	c := *a
	return &c, nil
}

func (f *fakeAccountRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	a, ok := f.byID[id]
	if !ok {
		return apperror.NotFound("account", id)
	}
	a.PasswordHash = hash
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestAccountService wires an AccountService with fakes. Cost 4 is the bcrypt
// minimum and keeps the tests fast.
func newTestAccountService(t *testing.T, repo *fakeAccountRepo) *AccountService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return NewAccountService(repo, ts, auth.NewPasswordService(bcrypt.MinCost), testLogger())
}

// =========================================================================
// CreateAccount TESTS
// =========================================================================

func TestCreateAccount_MinimalRegistration(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newTestAccountService(t, repo)

	res, err := svc.CreateAccount(context.Background(), model.Registration{Email: "a@b.com", Password: "x"})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	if res.Token == "" {
		t.Error("CreateAccount() returned empty token")
	}
	want := model.UserProfile{ID: res.User.ID, Email: "a@b.com"}
	if res.User.ID == "" || !reflect.DeepEqual(*res.User, want) {
		t.Errorf("User = %+v, want %+v", res.User, want)
	}

	stored := repo.byID[res.User.ID]
	if stored.PasswordHash == "" || stored.PasswordHash == "x" {
		t.Errorf("password stored as %q, want a bcrypt hash", stored.PasswordHash)
	}
}

func TestCreateAccount_Validation(t *testing.T) {
	tests := []struct {
		name  string
		reg   model.Registration
		field string
	}{
		{"empty email", model.Registration{Password: "secret"}, "email"},
		{"email without at", model.Registration{Email: "nope", Password: "secret"}, "email"},
		{"empty password", model.Registration{Email: "a@b.com"}, "password"},
		{"password over 72 bytes", model.Registration{Email: "a@b.com", Password: strings.Repeat("p", 73)}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestAccountService(t, newFakeAccountRepo())

			_, err := svc.CreateAccount(context.Background(), tt.reg)

			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	svc := newTestAccountService(t, newFakeAccountRepo())
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, model.Registration{Email: "dup@b.com", Password: "pw"}); err != nil {
		t.Fatalf("first CreateAccount() error = %v", err)
	}
	_, err := svc.CreateAccount(ctx, model.Registration{Email: "DUP@b.com", Password: "pw"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second CreateAccount() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// Authenticate TESTS
// =========================================================================

func TestAuthenticate(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newTestAccountService(t, repo)
	ctx := context.Background()

	created, err := svc.CreateAccount(ctx, model.Registration{Email: "me@b.com", Password: "right", Username: "me"})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	// A GitHub-only account has no password.
	if err := repo.Create(ctx, &model.Account{UserProfile: model.UserProfile{Email: "gh@b.com"}, GitHubID: 9}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"correct", "me@b.com", "right", nil},
		{"email case ignored", "ME@B.COM", "right", nil},
		{"wrong password", "me@b.com", "wrong", apperror.ErrUnauthorized},
		{"unknown email", "who@b.com", "right", apperror.ErrUnauthorized},
		{"github only account", "gh@b.com", "anything", apperror.ErrUnauthorized},
		{"empty password", "me@b.com", "", apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if res.User.ID != created.User.ID {
				t.Errorf("User.ID = %q, want %q", res.User.ID, created.User.ID)
			}
		})
	}
}

func TestAuthenticate_RepositoryError(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.getErr = errors.New("database is on fire")
	svc := newTestAccountService(t, repo)

	_, err := svc.Authenticate(context.Background(), "a@b.com", "pw")
	if err == nil || errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, want the repository failure", err)
	}
}

// =========================================================================
// Profile TESTS
// =========================================================================

func TestAuthenticate_RehashesOldCost(t *testing.T) {
	repo := newFakeAccountRepo()
	old := NewAccountService(repo, newTestAccountService(t, repo).tokens, auth.NewPasswordService(bcrypt.MinCost+1), testLogger())
	if _, err := old.CreateAccount(context.Background(), model.Registration{Email: "a@b.com", Password: "pw"}); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	svc := newTestAccountService(t, repo)
	res, err := svc.Authenticate(context.Background(), "a@b.com", "pw")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	hash := repo.byID[res.User.ID].PasswordHash
	if cost, _ := bcrypt.Cost([]byte(hash)); cost != bcrypt.MinCost {
		t.Errorf("stored cost = %d, want %d", cost, bcrypt.MinCost)
	}
	if _, err := svc.Authenticate(context.Background(), "a@b.com", "pw"); err != nil {
		t.Errorf("Authenticate() after rehash error = %v", err)
	}
}

func TestUpdateProfile_OnlySuppliedFields(t *testing.T) {
	svc := newTestAccountService(t, newFakeAccountRepo())
	ctx := context.Background()

	created, err := svc.CreateAccount(ctx, model.Registration{
		Email: "p@b.com", Password: "pw", Username: "p", DisplayName: "Pat",
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	bio := "hi"
	updated, err := svc.UpdateProfile(ctx, created.User.ID, model.ProfileUpdate{Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	want := *created.User
	want.Bio = "hi"
	if !reflect.DeepEqual(*updated, want) {
		t.Errorf("UpdateProfile() = %+v, want %+v", updated, want)
	}
}

func TestUpdateProfile_UnknownAccount(t *testing.T) {
	svc := newTestAccountService(t, newFakeAccountRepo())

	bio := "hi"
	_, err := svc.UpdateProfile(context.Background(), "ghost", model.ProfileUpdate{Bio: &bio})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestProfile_EmptyID(t *testing.T) {
	svc := newTestAccountService(t, newFakeAccountRepo())

	if _, err := svc.Profile(context.Background(), ""); !errors.Is(err, apperror.ErrNotAuthenticated) {
		t.Errorf("error = %v, want ErrNotAuthenticated", err)
	}
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewAccount(t *testing.T) {
	svc := newTestAccountService(t, newFakeAccountRepo())

	res, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 42, Login: "octocat", Name: "The Octocat", Email: "octo@github.com",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	if res.User.Username != "octocat" || res.User.DisplayName != "The Octocat" {
		t.Errorf("User = %+v", res.User)
	}
	if res.User.SocialLinks[model.SocialGitHub] != "octocat" {
		t.Errorf("SocialLinks = %v, want github link", res.User.SocialLinks)
	}
}

func TestLoginOrRegisterGitHub_ExistingAccountKeepsEdits(t *testing.T) {
	svc := newTestAccountService(t, newFakeAccountRepo())
	ctx := context.Background()

	first, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "old", Email: "o@b.com"})
	if err != nil {
		t.Fatalf("first login error: %v", err)
	}
	bio := "edited in BlogNode"
	if _, err := svc.UpdateProfile(ctx, first.User.ID, model.ProfileUpdate{Bio: &bio}); err != nil {
		t.Fatal(err)
	}

	second, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "new", Email: "o@b.com"})
	if err != nil {
		t.Fatalf("second login error: %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Errorf("ID = %q, want %q", second.User.ID, first.User.ID)
	}
	if second.User.Bio != bio {
		t.Errorf("Bio = %q, want %q", second.User.Bio, bio)
	}
}

func TestLoginOrRegisterGitHub_HiddenEmails(t *testing.T) {
	svc := newTestAccountService(t, newFakeAccountRepo())
	ctx := context.Background()

	a, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 1, Login: "one"})
	if err != nil {
		t.Fatalf("first hidden-email login: %v", err)
	}
	b, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 2, Login: "two"})
	if err != nil {
		t.Fatalf("second hidden-email login: %v", err)
	}
	if a.User.Email == b.User.Email {
		t.Errorf("both accounts got email %q", a.User.Email)
	}
}

func TestLoginOrRegisterGitHub_NilUser(t *testing.T) {
	svc := newTestAccountService(t, newFakeAccountRepo())

	if _, err := svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Fatal("LoginOrRegisterGitHub(nil) should fail")
	}
}

func TestIssuedTokenValidates(t *testing.T) {
	svc := newTestAccountService(t, newFakeAccountRepo())

	res, err := svc.CreateAccount(context.Background(), model.Registration{Email: "t@b.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	id, err := svc.ValidateToken(res.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if id != res.User.ID {
		t.Errorf("subject = %q, want %q", id, res.User.ID)
	}
}
