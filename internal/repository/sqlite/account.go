package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/model"
	"github.com/sakif/blognode/internal/repository"
)

// compile-time check that *AccountDB implements repository.AccountRepository
var _ repository.AccountRepository = (*AccountDB)(nil)

// AccountDB is the accounts table.
type AccountDB struct {
	conn *sql.DB
}

const accountColumns = `id, email, username, display_name, avatar, bio, social_links,
	password_hash, github_id, created_at, updated_at`

// Create inserts a new account, assigning its ID and timestamps in place.
//
// xid IDs are 12 bytes: a timestamp, a machine ID, a PID and a counter. They
// sort by creation time and need no coordination.
func (a *AccountDB) Create(ctx context.Context, account *model.Account) error {
	links, err := encodeLinks(account.SocialLinks)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	account.ID = xid.New().String()
	account.CreatedAt = now
	account.UpdatedAt = now

	var githubID sql.NullInt64
	if account.GitHubID != 0 {
		githubID = sql.NullInt64{Int64: account.GitHubID, Valid: true}
	}

	_, err = a.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, email, email_key, username, display_name, avatar, bio,
			social_links, password_hash, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		model.NormalizeEmail(account.Email),
		account.Username,
		account.DisplayName,
		account.Avatar,
		account.Bio,
		links,
		account.PasswordHash,
		githubID,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		account.ID = ""
		if isUniqueViolation(err) {
			return apperror.Conflict("account", account.Email)
		}
		return fmt.Errorf("sqlite: inserting account %s: %w", account.Email, err)
	}

	return nil
}

func (a *AccountDB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return a.getOne(ctx, id, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (a *AccountDB) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return a.getOne(ctx, email, `SELECT `+accountColumns+` FROM accounts WHERE email_key = ?`,
		model.NormalizeEmail(email))
}

func (a *AccountDB) GetByGitHubID(ctx context.Context, githubID int64) (*model.Account, error) {
	return a.getOne(ctx, fmt.Sprintf("github:%d", githubID),
		`SELECT `+accountColumns+` FROM accounts WHERE github_id = ?`, githubID)
}

// UpdateProfile overwrites the public profile columns of an existing account.
// id and email are never changed here.
// UpdatePasswordHash replaces the stored hash, e.g. after a cost change.
func (a *AccountDB) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res, err := a.conn.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password of %s: %w", id, err)
	}
	return requireAffected(res, "account", id)
}

func (a *AccountDB) UpdateProfile(ctx context.Context, profile *model.UserProfile) (*model.Account, error) {
	links, err := encodeLinks(profile.SocialLinks)
	if err != nil {
		return nil, err
	}

	res, err := a.conn.ExecContext(ctx,
		`UPDATE accounts SET username = ?, display_name = ?, avatar = ?, bio = ?,
			social_links = ?, updated_at = ?
		 WHERE id = ?`,
		profile.Username,
		profile.DisplayName,
		profile.Avatar,
		profile.Bio,
		links,
		time.Now().UTC(),
		profile.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating account %s: %w", profile.ID, err)
	}

	// RowsAffected tells us whether the WHERE matched anything.
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected for %s: %w", profile.ID, err)
	}
	if n == 0 {
		return nil, apperror.NotFound("account", profile.ID)
	}

	return a.GetByID(ctx, profile.ID)
}

func (a *AccountDB) getOne(ctx context.Context, label, query string, args ...any) (*model.Account, error) {
	var (
		acc      model.Account
		links    string
		githubID sql.NullInt64
	)

	err := a.conn.QueryRowContext(ctx, query, args...).Scan(
		&acc.ID,
		&acc.Email,
		&acc.Username,
		&acc.DisplayName,
		&acc.Avatar,
		&acc.Bio,
		&links,
		&acc.PasswordHash,
		&githubID,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", label)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", label, err)
	}

	acc.GitHubID = githubID.Int64
	if err := json.Unmarshal([]byte(links), &acc.SocialLinks); err != nil {
		return nil, fmt.Errorf("sqlite: decoding social links of %s: %w", acc.ID, err)
	}
	acc.SocialLinks = acc.SocialLinks.Normalize()

	return &acc, nil
}

func encodeLinks(l model.SocialLinks) (string, error) {
	l = l.Normalize()
	if l == nil {
		return "{}", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding social links: %w", err)
	}
	return string(b), nil
}
