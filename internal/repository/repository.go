// Package repository declares the persistence interfaces the server's services
// depend on. Services take these interfaces, never *sqlite.DB, so tests can pass
// in-memory fakes and the backend can be swapped in one place (server.go).
package repository

import (
	"context"

	"github.com/sakif/blognode/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// AccountRepository stores server-side accounts.
//
// Create fails with apperror.ErrConflict when the email (case-insensitive) or the
// GitHub ID is already taken. Getters fail with apperror.ErrNotFound.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.Account, error)
	UpdateProfile(ctx context.Context, profile *model.UserProfile) (*model.Account, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// PostRepository stores posts. Slugs are unique across all posts.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	Update(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	IncrementViews(ctx context.Context, id string) error
	IncrementLikes(ctx context.Context, id string) error
	ListFeed(ctx context.Context, tab model.FeedTab, opts ListOptions) ([]model.FeedItem, error)
}
