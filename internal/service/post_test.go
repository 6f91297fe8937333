package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/model"
	"github.com/sakif/blognode/internal/repository"
)

type fakePostRepo struct {
	posts    map[string]*model.Post
	nextID   int
	lastOpts repository.ListOptions
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*model.Post)}
}

func (f *fakePostRepo) Create(_ context.Context, post *model.Post) error {
	if ok, _ := f.SlugExists(context.Background(), post.Slug); ok {
		return apperror.Conflict("post", post.Slug)
	}
	f.nextID++
	post.ID = fmt.Sprintf("post-%d", f.nextID)
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakePostRepo) Update(_ context.Context, post *model.Post) error {
	if _, ok := f.posts[post.ID]; !ok {
		return apperror.NotFound("post", post.ID)
	}
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id string) (*model.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	c := *p
	return &c, nil
}

func (f *fakePostRepo) GetBySlug(_ context.Context, slug string) (*model.Post, error) {
	for _, p := range f.posts {
		if p.Slug == slug {
			c := *p
			return &c, nil
		}
	}
	return nil, apperror.NotFound("post", slug)
}

func (f *fakePostRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	for _, p := range f.posts {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePostRepo) IncrementViews(_ context.Context, id string) error {
	p, ok := f.posts[id]
	if !ok {
		return apperror.NotFound("post", id)
	}
	p.Stats.Views++
	return nil
}

func (f *fakePostRepo) IncrementLikes(_ context.Context, id string) error {
	p, ok := f.posts[id]
	if !ok {
		return apperror.NotFound("post", id)
	}
	p.Stats.Likes++
	return nil
}

func (f *fakePostRepo) ListFeed(_ context.Context, _ model.FeedTab, opts repository.ListOptions) ([]model.FeedItem, error) {
	f.lastOpts = opts
	items := []model.FeedItem{}
	for _, p := range f.posts {
		if p.Status == model.StatusPublished {
			items = append(items, model.FeedItem{ID: p.ID, Slug: p.Slug})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func newTestPostService(t *testing.T) (*PostService, *fakePostRepo) {
	t.Helper()
	repo := newFakePostRepo()
	svc := NewPostService(repo, testLogger())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestSaveDraft_NewPost(t *testing.T) {
	svc, _ := newTestPostService(t)

	post, err := svc.SaveDraft(context.Background(), "author-1", model.PostInput{
		Title:   "Hello, World!",
		Content: strings.Repeat("word ", 450),
		Tags:    []string{"go", " Go ", "web"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, model.StatusDraft, post.Status)
	assert.Equal(t, 3, post.ReadTime)
	assert.Equal(t, []string{"go", "web"}, post.Tags)
	assert.Nil(t, post.PublishedAt)
}

func TestSaveDraft_AllowsIncompletePost(t *testing.T) {
	svc, _ := newTestPostService(t)

	post, err := svc.SaveDraft(context.Background(), "author-1", model.PostInput{})
	require.NoError(t, err)
	assert.Equal(t, "untitled", post.Slug)
	assert.Equal(t, 1, post.ReadTime)
}

func TestSave_RequiresAuthor(t *testing.T) {
	svc, _ := newTestPostService(t)

	_, err := svc.SaveDraft(context.Background(), "", model.PostInput{Title: "x"})
	assert.ErrorIs(t, err, apperror.ErrNotAuthenticated)
}

func TestPublish_RequiresTitleAndContent(t *testing.T) {
	tests := []struct {
		name  string
		in    model.PostInput
		field string
	}{
		{"blank title", model.PostInput{Title: "   ", Content: "body"}, "title"},
		{"blank content", model.PostInput{Title: "Title", Content: "\n\t"}, "content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestPostService(t)

			_, err := svc.Publish(context.Background(), "author-1", tt.in)

			require.ErrorIs(t, err, apperror.ErrValidation)
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
			assert.Empty(t, repo.posts, "nothing may be stored")
		})
	}
}

func TestPublish_SetsPublishedAtOnce(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	draft, err := svc.SaveDraft(ctx, "author-1", model.PostInput{Title: "Draft", Content: "text"})
	require.NoError(t, err)

	published, err := svc.Publish(ctx, "author-1", model.PostInput{ID: draft.ID, Title: "Draft", Content: "text"})
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	first := *published.PublishedAt
	assert.Equal(t, model.StatusPublished, published.Status)
	assert.Equal(t, draft.ID, published.ID)
	assert.Equal(t, "draft", published.Slug, "unchanged slug is kept, not suffixed")

	svc.now = func() time.Time { return first.Add(time.Hour) }
	again, err := svc.Publish(ctx, "author-1", model.PostInput{ID: draft.ID, Title: "Draft", Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, first, *again.PublishedAt)
}

func TestSave_SlugCollisionGetsSuffix(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	var slugs []string
	for i := 0; i < 3; i++ {
		p, err := svc.Publish(ctx, "author-1", model.PostInput{Title: "Same Title", Content: "c"})
		require.NoError(t, err)
		slugs = append(slugs, p.Slug)
	}

	assert.Equal(t, []string{"same-title", "same-title-2", "same-title-3"}, slugs)
}

func TestSave_ExplicitSlugIsNormalised(t *testing.T) {
	svc, _ := newTestPostService(t)

	p, err := svc.SaveDraft(context.Background(), "author-1", model.PostInput{Title: "T", Slug: "My Custom  Slug!"})
	require.NoError(t, err)
	assert.Equal(t, "my-custom-slug", p.Slug)
}

func TestSave_OtherAuthorForbidden(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	p, err := svc.SaveDraft(ctx, "author-1", model.PostInput{Title: "Mine"})
	require.NoError(t, err)

	_, err = svc.SaveDraft(ctx, "author-2", model.PostInput{ID: p.ID, Title: "Stolen"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestSave_TitleTooLong(t *testing.T) {
	svc, _ := newTestPostService(t)

	_, err := svc.SaveDraft(context.Background(), "author-1", model.PostInput{Title: strings.Repeat("a", MaxTitleLength+1)})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestGetBySlug_CountsViews(t *testing.T) {
	svc, repo := newTestPostService(t)
	ctx := context.Background()

	p, err := svc.Publish(ctx, "author-1", model.PostInput{Title: "Read Me", Content: "c"})
	require.NoError(t, err)

	got, err := svc.GetBySlug(ctx, "reader", "read-me")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.Views)

	_, err = svc.GetBySlug(ctx, "author-1", "read-me")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.posts[p.ID].Stats.Views, "author reads are not counted")
}

func TestGetBySlug_DraftOnlyVisibleToAuthor(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, "author-1", model.PostInput{Title: "Secret"})
	require.NoError(t, err)

	_, err = svc.GetBySlug(ctx, "", "secret")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	got, err := svc.GetBySlug(ctx, "author-1", "secret")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stats.Views)
}

func TestLike(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	_, err := svc.Publish(ctx, "author-1", model.PostInput{Title: "Likeable", Content: "c"})
	require.NoError(t, err)
	_, err = svc.SaveDraft(ctx, "author-1", model.PostInput{Title: "Hidden"})
	require.NoError(t, err)

	p, err := svc.Like(ctx, "fan", "likeable")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats.Likes)

	_, err = svc.Like(ctx, "", "likeable")
	assert.ErrorIs(t, err, apperror.ErrNotAuthenticated)

	_, err = svc.Like(ctx, "fan", "hidden")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFeed_LimitIsClamped(t *testing.T) {
	tests := []struct {
		limit, offset int
		want          repository.ListOptions
	}{
		{0, 0, repository.ListOptions{Limit: DefaultFeedLimit}},
		{-5, -1, repository.ListOptions{Limit: DefaultFeedLimit}},
		{10, 20, repository.ListOptions{Limit: 10, Offset: 20}},
		{MaxFeedLimit + 1, 0, repository.ListOptions{Limit: MaxFeedLimit}},
	}

	for _, tt := range tests {
		svc, repo := newTestPostService(t)
		_, err := svc.Feed(context.Background(), model.TabTrending, tt.limit, tt.offset)
		require.NoError(t, err)
		assert.Equal(t, tt.want, repo.lastOpts)
	}
}
