package model

import (
	"regexp"
	"strings"
	"time"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
)

// WordsPerMinute is the reading speed used for Post.ReadTime.
const WordsPerMinute = 200

// PostStats holds the engagement counters shown on a post card.
type PostStats struct {
	Views    int `json:"views"`
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
}

// Post is a blog post, either a draft or published.
type Post struct {
	ID            string     `json:"id"`
	AuthorID      string     `json:"authorId"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Content       string     `json:"content"`
	Excerpt       string     `json:"excerpt,omitempty"`
	FeaturedImage string     `json:"featuredImage,omitempty"`
	Tags          []string   `json:"tags"`
	Status        PostStatus `json:"status"`
	ReadTime      int        `json:"readTime"`
	Stats         PostStats  `json:"stats"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// PostInput is what the editor submits. ID is empty for a new post and set when
// an existing draft is saved again or published.
type PostInput struct {
	ID            string     `json:"id,omitempty"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug,omitempty"`
	Content       string     `json:"content"`
	Excerpt       string     `json:"excerpt,omitempty"`
	FeaturedImage string     `json:"featuredImage,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Status        PostStatus `json:"status"`
}

// Author is the public slice of a UserProfile shown next to a post.
type Author struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
}

// FeedItem is one entry of the community feed.
type FeedItem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Excerpt       string     `json:"excerpt,omitempty"`
	Author        Author     `json:"author"`
	FeaturedImage string     `json:"featuredImage,omitempty"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	ReadTime      int        `json:"readTime"`
	Slug          string     `json:"slug"`
	Tags          []string   `json:"tags"`
	Stats         PostStats  `json:"stats"`
}

// FeedTab selects the ordering of the community feed.
type FeedTab string

const (
	TabPersonalized FeedTab = "personalized" // newest first
	TabFeatured     FeedTab = "featured"     // most liked first
	TabTrending     FeedTab = "trending"     // most viewed first
)

// ParseFeedTab maps a query value to a FeedTab; unknown or empty values fall back
// to TabPersonalized.
func ParseFeedTab(s string) FeedTab {
	switch FeedTab(strings.ToLower(strings.TrimSpace(s))) {
	case TabFeatured:
		return TabFeatured
	case TabTrending:
		return TabTrending
	default:
		return TabPersonalized
	}
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9 -]`)
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify turns a title into a URL slug:
//
//	"Hello, World!  Go -- 2024" → "hello-world-go-2024"
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ReadTime estimates reading time in whole minutes, never less than one.
func ReadTime(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// ParseTags splits a comma separated tag list, trimming blanks and dropping
// duplicates while keeping the first spelling.
func ParseTags(raw string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, t)
	}
	return tags
}
