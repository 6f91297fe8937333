package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/model"
)

func demoTime(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// DemoFeed is the community feed shown when no server is configured.
var DemoFeed = []model.FeedItem{
	{
		ID:            "1",
		Title:         "Building Modern Web Applications with React and TypeScript",
		Excerpt:       "Learn how to create scalable and maintainable web applications using React, TypeScript, and modern development practices.",
		Author:        model.Author{Username: "johndoe", DisplayName: "John Doe", Avatar: DemoProfile.Avatar},
		FeaturedImage: "https://images.unsplash.com/photo-1498050108023-c5249f4df085?w=800&h=400&fit=crop",
		PublishedAt:   demoTime("2023-12-15T10:00:00Z"),
		ReadTime:      8,
		Slug:          "building-modern-web-applications",
		Tags:          []string{"React", "TypeScript", "Web Development"},
		Stats:         model.PostStats{Views: 1234, Likes: 89, Comments: 23},
	},
	{
		ID:            "2",
		Title:         "The Future of AI in Web Development",
		Excerpt:       "Exploring how artificial intelligence is transforming the way we build websites and web applications.",
		Author:        model.Author{Username: "sarahchen", DisplayName: "Sarah Chen", Avatar: "https://images.unsplash.com/photo-1494790108755-2616b9a93ade?w=100&h=100&fit=crop&crop=face"},
		FeaturedImage: "https://images.unsplash.com/photo-1518770660439-4636190af475?w=800&h=400&fit=crop",
		PublishedAt:   demoTime("2023-12-14T15:30:00Z"),
		ReadTime:      12,
		Slug:          "future-of-ai-web-development",
		Tags:          []string{"AI", "Machine Learning", "Future Tech"},
		Stats:         model.PostStats{Views: 2156, Likes: 156, Comments: 45},
	},
	{
		ID:          "3",
		Title:       "Advanced CSS Techniques for Modern Layouts",
		Excerpt:     "Discover powerful CSS features that will help you create stunning, responsive layouts.",
		Author:      model.Author{Username: "mikejohnson", DisplayName: "Mike Johnson", Avatar: "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=100&h=100&fit=crop&crop=face"},
		PublishedAt: demoTime("2023-12-13T09:15:00Z"),
		ReadTime:    6,
		Slug:        "advanced-css-techniques",
		Tags:        []string{"CSS", "Frontend", "Design"},
		Stats:       model.PostStats{Views: 892, Likes: 67, Comments: 18},
	},
}

// MockPosts is the in-process counterpart of the server's post endpoints. It
// starts with DemoFeed and keeps whatever is saved through it in memory.
type MockPosts struct {
	mu     sync.Mutex
	posts  map[string]*model.Post // by ID
	feed   []model.FeedItem
	now    func() time.Time
	author func() *model.UserProfile
}

func NewMockPosts() *MockPosts {
	feed := make([]model.FeedItem, len(DemoFeed))
	copy(feed, DemoFeed)
	return &MockPosts{
		posts: make(map[string]*model.Post),
		feed:  feed,
		now:   time.Now,
	}
}

// SetAuthor sets who new posts are credited to, usually the session's
// CurrentUser. Without one, or when it returns nil, posts go to DemoProfile.
func (m *MockPosts) SetAuthor(author func() *model.UserProfile) {
	m.mu.Lock()
	m.author = author
	m.mu.Unlock()
}

func (m *MockPosts) currentAuthor() *model.UserProfile {
	if m.author != nil {
		if u := m.author(); u != nil {
			return u
		}
	}
	return &DemoProfile
}

// SavePost stores a draft or publishes a post. Publishing also adds it to the
// feed under the post's author.
func (m *MockPosts) SavePost(ctx context.Context, in model.PostInput) (*model.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" && in.Status == model.StatusPublished {
		return nil, apperror.ValidationFailed("title", "title is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.posts[in.ID]
	if in.ID != "" && !ok {
		return nil, apperror.NotFound("post", in.ID)
	}
	if !ok {
		post = &model.Post{ID: xid.New().String(), AuthorID: m.currentAuthor().ID, CreatedAt: m.now()}
		m.posts[post.ID] = post
	}

	post.Title = strings.TrimSpace(in.Title)
	post.Slug = in.Slug
	if post.Slug == "" {
		post.Slug = model.Slugify(post.Title)
	}
	post.Content = in.Content
	post.Excerpt = in.Excerpt
	post.FeaturedImage = in.FeaturedImage
	post.Tags = append([]string{}, in.Tags...)
	post.ReadTime = model.ReadTime(in.Content)
	post.UpdatedAt = m.now()

	if in.Status == model.StatusPublished && post.Status != model.StatusPublished {
		post.Status = model.StatusPublished
		published := m.now()
		post.PublishedAt = &published
		author := m.currentAuthor()
		m.feed = append(m.feed, model.FeedItem{
			ID:            post.ID,
			Title:         post.Title,
			Excerpt:       post.Excerpt,
			Author:        model.Author{Username: author.Username, DisplayName: author.DisplayName, Avatar: author.Avatar},
			FeaturedImage: post.FeaturedImage,
			PublishedAt:   post.PublishedAt,
			ReadTime:      post.ReadTime,
			Slug:          post.Slug,
			Tags:          post.Tags,
		})
	} else if post.Status == "" {
		post.Status = model.StatusDraft
	}

	c := *post
	return &c, nil
}

// Feed orders the in-memory feed the same way the server does.
func (m *MockPosts) Feed(ctx context.Context, tab model.FeedTab, limit, offset int) ([]model.FeedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	items := make([]model.FeedItem, len(m.feed))
	copy(items, m.feed)
	m.mu.Unlock()

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch tab {
		case model.TabFeatured:
			if a.Stats.Likes != b.Stats.Likes {
				return a.Stats.Likes > b.Stats.Likes
			}
		case model.TabTrending:
			if a.Stats.Views != b.Stats.Views {
				return a.Stats.Views > b.Stats.Views
			}
		}
		return a.PublishedAt.After(*b.PublishedAt)
	})

	if offset >= len(items) {
		return []model.FeedItem{}, nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}
