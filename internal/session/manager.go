// Package session owns "who is logged in" for a BlogNode client.
//
// The Manager is the single source of truth for session state. Views never touch
// the persistent store directly: they call Login, Register, Logout and
// UpdateProfile, and read CurrentUser / IsAuthenticated.
//
//	Views (CLI) → Manager → IdentityService (mock or HTTP)
//	                     ↘ storage.Store ("blognode_user" → JSON UserProfile)
//
// STATE MACHINE:
//
//	LoggedOut --Login/Register--> LoggedIn
//	LoggedIn  --UpdateProfile---> LoggedIn
//	LoggedIn  --Logout----------> LoggedOut
//
// Neither state is terminal. Restore rebuilds whichever state the store implies.
//
// WRITE-THEN-CONFIRM:
// Memory is only swapped after the store accepted the write, so a storage failure
// never leaves memory and disk disagreeing.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/model"
	"github.com/sakif/blognode/internal/storage"
)

// StorageKey is the only key the session writes.
const StorageKey = "blognode_user"

// IdentityService is the external identity collaborator. The session manager never
// decides whether credentials are valid; it asks this service and persists the answer.
type IdentityService interface {
	Authenticate(ctx context.Context, email, password string) (*model.UserProfile, error)
	CreateAccount(ctx context.Context, reg model.Registration) (*model.UserProfile, error)
	UpdateRemoteProfile(ctx context.Context, profile *model.UserProfile) (*model.UserProfile, error)
}

// CredentialHolder is implemented by identity services that receive credentials
// (a bearer token, say) on sign-in. They hold them in memory until the session
// has stored the signed-in profile, so a failed write never leaves the stored
// credentials belonging to a different account than the stored profile.
type CredentialHolder interface {
	// CommitCredentials persists the credentials from the last sign-in.
	// With nothing held it does nothing.
	CommitCredentials(ctx context.Context) error
	// DiscardCredentials drops held credentials without persisting them.
	DiscardCredentials()
}

// State is a read-only snapshot. IsAuthenticated is true iff CurrentUser != nil.
type State struct {
	CurrentUser     *model.UserProfile
	IsAuthenticated bool
}

// Manager holds the in-memory session and keeps it in sync with the store.
type Manager struct {
	store    storage.Store
	identity IdentityService
	logger   *slog.Logger

	mu   sync.RWMutex
	user *model.UserProfile

	// pending guards against a second submission while one is in flight.
	pending atomic.Bool
}

// New creates a logged-out Manager. Call Restore once at startup to pick up a
// previously persisted session.
func New(store storage.Store, identity IdentityService, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		identity: identity,
		logger:   logger,
	}
}

// CurrentUser returns a copy of the logged-in profile, or nil.
func (m *Manager) CurrentUser() *model.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.Clone()
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// State returns both fields under one lock so they are always consistent.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{CurrentUser: m.user.Clone(), IsAuthenticated: m.user != nil}
}

// Restore loads the persisted profile.
//
//   - key absent           → LoggedOut
//   - valid record         → LoggedIn
//   - malformed record     → LoggedOut; the record is discarded and never surfaced
//   - store read failure   → LoggedOut, ErrStorageUnavailable returned
func (m *Manager) Restore(ctx context.Context) error {
	raw, ok, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		m.setUser(nil)
		return apperror.StorageUnavailable("read", err)
	}
	if !ok {
		m.setUser(nil)
		return nil
	}

	user, err := decodeProfile(raw)
	if err != nil {
		m.logger.Warn("discarding malformed session record", slog.String("error", err.Error()))
		if rmErr := m.store.Remove(ctx, StorageKey); rmErr != nil {
			m.logger.Warn("could not remove malformed session record", slog.String("error", rmErr.Error()))
		}
		m.setUser(nil)
		return nil
	}

	m.setUser(user)
	m.logger.Debug("session restored", slog.String("userID", user.ID))
	return nil
}

// Login authenticates through the identity service and makes the returned profile
// current, overwriting any stored profile.
func (m *Manager) Login(ctx context.Context, email, password string) (*model.UserProfile, error) {
	if err := m.begin("login"); err != nil {
		return nil, err
	}
	defer m.end()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := m.identity.Authenticate(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("session: login: %w", err)
	}

	if err := m.signIn(ctx, user); err != nil {
		return nil, err
	}

	m.logger.Info("user logged in", slog.String("userID", user.ID))
	return user.Clone(), nil
}

// Register creates an account through the identity service and logs it in.
// A taken email surfaces as apperror.ErrConflict from the identity service.
func (m *Manager) Register(ctx context.Context, reg model.Registration) (*model.UserProfile, error) {
	if err := m.begin("register"); err != nil {
		return nil, err
	}
	defer m.end()

	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if reg.Password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	reg.SocialLinks = reg.SocialLinks.Normalize()

	user, err := m.identity.CreateAccount(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("session: register: %w", err)
	}

	if err := m.signIn(ctx, user); err != nil {
		return nil, err
	}

	m.logger.Info("user registered", slog.String("userID", user.ID))
	return user.Clone(), nil
}

// Logout removes the stored profile and clears memory. The store is cleared even
// when already logged out, which drops a record Restore could not remove.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.begin("logout"); err != nil {
		return err
	}
	defer m.end()

	if err := m.store.Remove(ctx, StorageKey); err != nil {
		return apperror.StorageUnavailable("remove", err)
	}

	if m.IsAuthenticated() {
		m.setUser(nil)
		m.logger.Info("user logged out")
	}
	return nil
}

// UpdateProfile merges the supplied fields onto the current profile (last write
// wins per field), pushes the result to the identity service and re-persists it.
func (m *Manager) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (*model.UserProfile, error) {
	if err := m.begin("updateProfile"); err != nil {
		return nil, err
	}
	defer m.end()

	current := m.CurrentUser()
	if current == nil {
		return nil, apperror.NotAuthenticated("updateProfile")
	}

	merged := upd.ApplyTo(current)

	confirmed, err := m.identity.UpdateRemoteProfile(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("session: update profile: %w", err)
	}
	// The remote copy is authoritative for anything it normalises, but it may
	// never change who the session belongs to.
	if confirmed == nil {
		confirmed = merged
	}
	confirmed.ID = current.ID

	if err := m.persist(ctx, confirmed); err != nil {
		return nil, err
	}

	m.logger.Info("profile updated", slog.String("userID", confirmed.ID))
	return confirmed.Clone(), nil
}

// persist writes user to the store and, only on success, makes it current.
func (m *Manager) persist(ctx context.Context, user *model.UserProfile) error {
	if err := m.write(ctx, user); err != nil {
		return err
	}
	m.setUser(user.Clone())
	return nil
}

// signIn is persist for a fresh sign-in. Credentials held by the identity
// service are committed after the profile write; if that fails the previous
// record is put back and memory is left alone.
func (m *Manager) signIn(ctx context.Context, user *model.UserProfile) error {
	holder, _ := m.identity.(CredentialHolder)

	if err := m.write(ctx, user); err != nil {
		if holder != nil {
			holder.DiscardCredentials()
		}
		return err
	}

	if holder != nil {
		if err := holder.CommitCredentials(ctx); err != nil {
			m.revert(ctx)
			return fmt.Errorf("session: storing credentials: %w", err)
		}
	}

	m.setUser(user.Clone())
	return nil
}

// revert rewrites the store to match the in-memory session.
func (m *Manager) revert(ctx context.Context) {
	previous := m.CurrentUser()

	var err error
	if previous == nil {
		err = m.store.Remove(ctx, StorageKey)
	} else {
		err = m.write(ctx, previous)
	}
	if err != nil {
		m.logger.Warn("could not restore previous session record", slog.String("error", err.Error()))
	}
}

func (m *Manager) write(ctx context.Context, user *model.UserProfile) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("session: identity service returned a profile without id")
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encoding profile: %w", err)
	}

	if err := m.store.Set(ctx, StorageKey, string(raw)); err != nil {
		return apperror.StorageUnavailable("write", err)
	}
	return nil
}

func (m *Manager) setUser(u *model.UserProfile) {
	m.mu.Lock()
	m.user = u
	m.mu.Unlock()
}

func (m *Manager) begin(op string) error {
	if !m.pending.CompareAndSwap(false, true) {
		return apperror.Busy(op)
	}
	return nil
}

func (m *Manager) end() {
	m.pending.Store(false)
}

func decodeProfile(raw string) (*model.UserProfile, error) {
	var u model.UserProfile
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, apperror.MalformedRecord(StorageKey, err)
	}
	if u.ID == "" {
		return nil, apperror.MalformedRecord(StorageKey, errors.New("missing id"))
	}
	return &u, nil
}
