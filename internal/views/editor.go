package views

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/model"
)

// Publisher saves posts. *client.Client and *identity.MockPosts satisfy it.
type Publisher interface {
	SavePost(ctx context.Context, in model.PostInput) (*model.Post, error)
}

// SessionChecker reports whether someone is logged in. *session.Manager satisfies it.
type SessionChecker interface {
	IsAuthenticated() bool
}

// PostEditor is the create-post page. The first successful save pins the post
// ID so later saves update the same post instead of creating another one.
type PostEditor struct {
	Content       string
	Excerpt       string
	FeaturedImage string
	Tags          string // comma separated, as typed
	Slug          string

	title   string
	id      string
	status  model.PostStatus
	pub     Publisher
	session SessionChecker

	isPublishing atomic.Bool
}

func NewPostEditor(pub Publisher, session SessionChecker) *PostEditor {
	return &PostEditor{pub: pub, session: session, status: model.StatusDraft}
}

func (e *PostEditor) Title() string            { return e.title }
func (e *PostEditor) Status() model.PostStatus { return e.status }
func (e *PostEditor) ID() string               { return e.id }
func (e *PostEditor) IsPublishing() bool       { return e.isPublishing.Load() }

// SetTitle sets the title and regenerates the slug from it. A slug edited by
// hand is overwritten the next time the title changes.
func (e *PostEditor) SetTitle(title string) {
	e.title = title
	e.Slug = model.Slugify(title)
}

// SaveDraft saves the editor contents as a draft.
func (e *PostEditor) SaveDraft(ctx context.Context) (*model.Post, error) {
	post, err := e.pub.SavePost(ctx, e.input(model.StatusDraft))
	if err != nil {
		return nil, fmt.Errorf("views: saving draft: %w", err)
	}
	e.apply(post)
	return post, nil
}

// Publish validates the editor contents and publishes them. It needs a logged-in
// session and refuses to run while another Publish is in flight.
func (e *PostEditor) Publish(ctx context.Context) (*model.Post, error) {
	if strings.TrimSpace(e.title) == "" {
		return nil, apperror.ValidationFailed("title", "title is required to publish")
	}
	if strings.TrimSpace(e.Content) == "" {
		return nil, apperror.ValidationFailed("content", "content is required to publish")
	}
	if !e.session.IsAuthenticated() {
		return nil, apperror.NotAuthenticated("publish")
	}

	if !e.isPublishing.CompareAndSwap(false, true) {
		return nil, apperror.Busy("publish")
	}
	defer e.isPublishing.Store(false)

	post, err := e.pub.SavePost(ctx, e.input(model.StatusPublished))
	if err != nil {
		return nil, fmt.Errorf("views: publishing: %w", err)
	}
	e.apply(post)
	return post, nil
}

func (e *PostEditor) input(status model.PostStatus) model.PostInput {
	return model.PostInput{
		ID:            e.id,
		Title:         e.title,
		Slug:          e.Slug,
		Content:       e.Content,
		Excerpt:       e.Excerpt,
		FeaturedImage: e.FeaturedImage,
		Tags:          model.ParseTags(e.Tags),
		Status:        status,
	}
}

// apply takes back what the publisher decided; the slug may have been
// suffixed to make it unique.
func (e *PostEditor) apply(post *model.Post) {
	e.id = post.ID
	e.Slug = post.Slug
	e.status = post.Status
}
