package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/model"
	"github.com/sakif/blognode/internal/repository"
)

// Validation and paging limits.
const (
	MaxTitleLength   = 200
	MaxContentLength = 200000
	MaxExcerptLength = 500
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100

	// maxSlugAttempts bounds the "-2", "-3", ... search for a free slug.
	maxSlugAttempts = 100
)

// PostService handles drafts, publishing, likes and the community feed.
type PostService struct {
	posts  repository.PostRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewPostService(posts repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{
		posts:  posts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Save dispatches on in.Status: published goes through Publish, anything else is
// saved as a draft.
func (s *PostService) Save(ctx context.Context, authorID string, in model.PostInput) (*model.Post, error) {
	if in.Status == model.StatusPublished {
		return s.Publish(ctx, authorID, in)
	}
	return s.SaveDraft(ctx, authorID, in)
}

// SaveDraft stores in as a draft. Drafts may be incomplete; only the field
// lengths are checked.
func (s *PostService) SaveDraft(ctx context.Context, authorID string, in model.PostInput) (*model.Post, error) {
	return s.save(ctx, authorID, in, model.StatusDraft)
}

// Publish stores in as a published post. Title and content must not be blank.
// Publishing an already published post keeps its original publish time.
func (s *PostService) Publish(ctx context.Context, authorID string, in model.PostInput) (*model.Post, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperror.ValidationFailed("title", "add a title before publishing")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperror.ValidationFailed("content", "add some content before publishing")
	}
	return s.save(ctx, authorID, in, model.StatusPublished)
}

func (s *PostService) save(ctx context.Context, authorID string, in model.PostInput, status model.PostStatus) (*model.Post, error) {
	if authorID == "" {
		return nil, apperror.NotAuthenticated("save post")
	}
	if err := validatePostInput(&in); err != nil {
		return nil, err
	}

	var post *model.Post
	if in.ID != "" {
		existing, err := s.posts.GetByID(ctx, in.ID)
		if err != nil {
			return nil, fmt.Errorf("service/post: loading %s: %w", in.ID, err)
		}
		if existing.AuthorID != authorID {
			return nil, apperror.Forbidden("only the author can edit this post")
		}
		post = existing
	} else {
		post = &model.Post{AuthorID: authorID}
	}

	post.Title = in.Title
	post.Content = in.Content
	post.Excerpt = in.Excerpt
	post.FeaturedImage = in.FeaturedImage
	post.Tags = in.Tags
	post.ReadTime = model.ReadTime(in.Content)
	post.Status = status
	if status == model.StatusPublished && post.PublishedAt == nil {
		now := s.now()
		post.PublishedAt = &now
	}

	wanted := in.Slug
	if wanted == "" {
		wanted = model.Slugify(in.Title)
	}
	if wanted == "" {
		wanted = "untitled"
	}
	if wanted != post.Slug {
		slug, err := s.uniqueSlug(ctx, wanted)
		if err != nil {
			return nil, err
		}
		post.Slug = slug
	}

	if post.ID == "" {
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, fmt.Errorf("service/post: creating %q: %w", post.Slug, err)
		}
	} else if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: updating %s: %w", post.ID, err)
	}

	s.logger.Info("post saved",
		slog.String("postID", post.ID),
		slog.String("slug", post.Slug),
		slog.String("status", string(post.Status)),
	)
	return post, nil
}

// uniqueSlug returns base if it is free, else the first free base-2, base-3, ...
func (s *PostService) uniqueSlug(ctx context.Context, base string) (string, error) {
	candidate := base
	for n := 2; n < maxSlugAttempts+2; n++ {
		taken, err := s.posts.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("service/post: checking slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", apperror.Conflict("post", base)
}

// GetBySlug returns a published post and counts the view. Drafts are only
// visible to their author, and the author's own reads are not counted.
func (s *PostService) GetBySlug(ctx context.Context, viewerID, slug string) (*model.Post, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("service/post: fetching %q: %w", slug, err)
	}

	if post.Status != model.StatusPublished {
		if post.AuthorID != viewerID {
			return nil, apperror.NotFound("post", slug)
		}
		return post, nil
	}

	if post.AuthorID != viewerID {
		if err := s.posts.IncrementViews(ctx, post.ID); err != nil {
			return nil, fmt.Errorf("service/post: counting view: %w", err)
		}
		post.Stats.Views++
	}
	return post, nil
}

// Like adds one like to a published post.
func (s *PostService) Like(ctx context.Context, accountID, slug string) (*model.Post, error) {
	if accountID == "" {
		return nil, apperror.NotAuthenticated("like")
	}

	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("service/post: fetching %q: %w", slug, err)
	}
	if post.Status != model.StatusPublished {
		return nil, apperror.NotFound("post", slug)
	}

	if err := s.posts.IncrementLikes(ctx, post.ID); err != nil {
		return nil, fmt.Errorf("service/post: counting like: %w", err)
	}
	post.Stats.Likes++
	return post, nil
}

// Feed lists published posts for tab. Limit is clamped to (0, MaxFeedLimit].
func (s *PostService) Feed(ctx context.Context, tab model.FeedTab, limit, offset int) ([]model.FeedItem, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.posts.ListFeed(ctx, tab, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("service/post: listing feed: %w", err)
	}
	return items, nil
}

func validatePostInput(in *model.PostInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	in.Slug = model.Slugify(in.Slug)
	in.Tags = model.ParseTags(strings.Join(in.Tags, ","))

	var errs []error
	if len(in.Title) > MaxTitleLength {
		errs = append(errs, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength)))
	}
	if len(in.Content) > MaxContentLength {
		errs = append(errs, apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength)))
	}
	if len(in.Excerpt) > MaxExcerptLength {
		errs = append(errs, apperror.ValidationFailed("excerpt",
			fmt.Sprintf("excerpt must be %d characters or less", MaxExcerptLength)))
	}
	return errors.Join(errs...)
}
