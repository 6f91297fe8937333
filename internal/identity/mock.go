// Package identity provides the in-process identity service used when the CLI is
// not pointed at a BlogNode server, and in tests.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/model"
	"github.com/sakif/blognode/internal/storage"
)

// AccountsKey is the store key a stored Mock keeps registered accounts under.
const AccountsKey = "blognode_mock_accounts"

// DemoProfile is returned for any email that was not registered through the mock.
// Only the email is replaced with the caller's.
var DemoProfile = model.UserProfile{
	ID:          "1",
	Username:    "johndoe",
	DisplayName: "John Doe",
	Avatar:      "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=100&h=100&fit=crop&crop=face",
	Bio:         "Full-stack developer passionate about web technologies and open source.",
	SocialLinks: model.SocialLinks{
		model.SocialTwitter:  "johndoe",
		model.SocialGitHub:   "johndoe",
		model.SocialLinkedIn: "johndoe",
		model.SocialWebsite:  "https://johndoe.dev",
	},
}

// Mock accepts any non-empty credentials. Accounts created through it are kept
// in memory, keyed by normalised email, so a duplicate registration is rejected.
type Mock struct {
	// Delay simulates network latency on every call. Zero means no delay.
	Delay time.Duration

	mu       sync.Mutex
	accounts map[string]*model.UserProfile
	demo     map[string]*model.UserProfile // demo profiles edited via UpdateRemoteProfile
	store    storage.Store                 // nil keeps accounts in memory only
}

func NewMock() *Mock {
	return &Mock{
		accounts: make(map[string]*model.UserProfile),
		demo:     make(map[string]*model.UserProfile),
	}
}

// NewStoredMock returns a Mock whose registered accounts, and edits to them, are
// kept in store under AccountsKey so they survive a restart. An unreadable
// record is dropped and the mock starts with no accounts.
func NewStoredMock(ctx context.Context, store storage.Store) (*Mock, error) {
	m := NewMock()
	m.store = store

	raw, ok, err := store.Get(ctx, AccountsKey)
	if err != nil {
		return nil, apperror.StorageUnavailable("read", err)
	}
	if !ok {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m.accounts); err != nil || m.accounts == nil {
		m.accounts = make(map[string]*model.UserProfile)
	}
	return m, nil
}

func (m *Mock) Authenticate(ctx context.Context, email, password string) (*model.UserProfile, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if email == "" || password == "" {
		return nil, apperror.Unauthorized("email and password are required")
	}

	key := model.NormalizeEmail(email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.accounts[key]; ok {
		return u.Clone(), nil
	}
	if u, ok := m.demo[key]; ok {
		return u.Clone(), nil
	}

	u := DemoProfile.Clone()
	u.Email = email
	return u, nil
}

func (m *Mock) CreateAccount(ctx context.Context, reg model.Registration) (*model.UserProfile, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	key := model.NormalizeEmail(reg.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[key]; exists {
		return nil, apperror.Conflict("account", reg.Email)
	}

	// xid embeds the creation time, so identifiers are time-derived and unique.
	u := &model.UserProfile{
		ID:          xid.New().String(),
		Username:    reg.Username,
		DisplayName: reg.DisplayName,
		Email:       reg.Email,
		Avatar:      reg.Avatar,
		Bio:         reg.Bio,
		SocialLinks: reg.SocialLinks.Normalize(),
	}
	m.accounts[key] = u
	if err := m.save(ctx); err != nil {
		delete(m.accounts, key)
		return nil, err
	}
	return u.Clone(), nil
}

func (m *Mock) UpdateRemoteProfile(ctx context.Context, profile *model.UserProfile) (*model.UserProfile, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if profile == nil || profile.ID == "" {
		return nil, apperror.ValidationFailed("id", "profile id is required")
	}

	key := model.NormalizeEmail(profile.Email)
	stored := profile.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.accounts[key]; ok {
		m.accounts[key] = stored
		if err := m.save(ctx); err != nil {
			m.accounts[key] = prev
			return nil, err
		}
	} else {
		m.demo[key] = stored
	}
	return stored.Clone(), nil
}

// save writes the registered accounts to the store. Callers hold m.mu.
func (m *Mock) save(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	raw, err := json.Marshal(m.accounts)
	if err != nil {
		return fmt.Errorf("identity: encoding accounts: %w", err)
	}
	if err := m.store.Set(ctx, AccountsKey, string(raw)); err != nil {
		return apperror.StorageUnavailable("write", err)
	}
	return nil
}

func (m *Mock) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
