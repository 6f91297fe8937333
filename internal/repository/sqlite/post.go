package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/model"
	"github.com/sakif/blognode/internal/repository"
)

var _ repository.PostRepository = (*PostDB)(nil)

// PostDB is the posts table.
type PostDB struct {
	conn *sql.DB
}

const postColumns = `id, author_id, title, slug, content, excerpt, featured_image, tags,
	status, read_time, views, likes, comments, published_at, created_at, updated_at`

// Tags are stored as one comma separated column; model.ParseTags reads them back.
func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// Create inserts post, assigning ID and timestamps in place.
func (p *PostDB) Create(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC()
	post.ID = xid.New().String()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := p.conn.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.AuthorID,
		post.Title,
		post.Slug,
		post.Content,
		post.Excerpt,
		post.FeaturedImage,
		joinTags(post.Tags),
		string(post.Status),
		post.ReadTime,
		post.Stats.Views,
		post.Stats.Likes,
		post.Stats.Comments,
		post.PublishedAt,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		post.ID = ""
		if isUniqueViolation(err) {
			return apperror.Conflict("post", post.Slug)
		}
		return fmt.Errorf("sqlite: inserting post %q: %w", post.Slug, err)
	}
	return nil
}

// Update rewrites the editable columns of an existing post.
func (p *PostDB) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now().UTC()

	res, err := p.conn.ExecContext(ctx,
		`UPDATE posts SET title = ?, slug = ?, content = ?, excerpt = ?, featured_image = ?,
			tags = ?, status = ?, read_time = ?, published_at = ?, updated_at = ?
		 WHERE id = ?`,
		post.Title,
		post.Slug,
		post.Content,
		post.Excerpt,
		post.FeaturedImage,
		joinTags(post.Tags),
		string(post.Status),
		post.ReadTime,
		post.PublishedAt,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("post", post.Slug)
		}
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}
	return requireAffected(res, "post", post.ID)
}

func (p *PostDB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	return p.getOne(ctx, id, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
}

func (p *PostDB) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return p.getOne(ctx, slug, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
}

func (p *PostDB) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	if err := p.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE slug = ?`, slug).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlite: checking slug %q: %w", slug, err)
	}
	return n > 0, nil
}

func (p *PostDB) IncrementViews(ctx context.Context, id string) error {
	res, err := p.conn.ExecContext(ctx, `UPDATE posts SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: counting view of %s: %w", id, err)
	}
	return requireAffected(res, "post", id)
}

func (p *PostDB) IncrementLikes(ctx context.Context, id string) error {
	res, err := p.conn.ExecContext(ctx, `UPDATE posts SET likes = likes + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: counting like of %s: %w", id, err)
	}
	return requireAffected(res, "post", id)
}

// feedOrder maps a tab to its ORDER BY clause. Ties fall back to recency.
var feedOrder = map[model.FeedTab]string{
	model.TabPersonalized: `p.published_at DESC, p.id DESC`,
	model.TabFeatured:     `p.likes DESC, p.published_at DESC, p.id DESC`,
	model.TabTrending:     `p.views DESC, p.published_at DESC, p.id DESC`,
}

// ListFeed returns published posts joined with their author, ordered per tab.
func (p *PostDB) ListFeed(ctx context.Context, tab model.FeedTab, opts repository.ListOptions) ([]model.FeedItem, error) {
	order, ok := feedOrder[tab]
	if !ok {
		order = feedOrder[model.TabPersonalized]
	}

	// order comes from the fixed map above, never from user input.
	rows, err := p.conn.QueryContext(ctx,
		`SELECT p.id, p.title, p.excerpt, p.featured_image, p.published_at, p.read_time,
			p.slug, p.tags, p.views, p.likes, p.comments,
			a.username, a.display_name, a.avatar
		 FROM posts p JOIN accounts a ON a.id = p.author_id
		 WHERE p.status = ?
		 ORDER BY `+order+`
		 LIMIT ? OFFSET ?`,
		string(model.StatusPublished), opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s feed: %w", tab, err)
	}
	// ALWAYS close rows, or the connection is never returned to the pool.
	defer rows.Close()

	items := []model.FeedItem{}
	for rows.Next() {
		var (
			it          model.FeedItem
			tags        string
			publishedAt sql.NullTime
		)
		if err := rows.Scan(
			&it.ID, &it.Title, &it.Excerpt, &it.FeaturedImage, &publishedAt, &it.ReadTime,
			&it.Slug, &tags, &it.Stats.Views, &it.Stats.Likes, &it.Stats.Comments,
			&it.Author.Username, &it.Author.DisplayName, &it.Author.Avatar,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning feed row: %w", err)
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			it.PublishedAt = &t
		}
		it.Tags = model.ParseTags(tags)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating feed rows: %w", err)
	}

	return items, nil
}

func (p *PostDB) getOne(ctx context.Context, label, query string, args ...any) (*model.Post, error) {
	var (
		post        model.Post
		tags        string
		status      string
		publishedAt sql.NullTime
	)

	err := p.conn.QueryRowContext(ctx, query, args...).Scan(
		&post.ID,
		&post.AuthorID,
		&post.Title,
		&post.Slug,
		&post.Content,
		&post.Excerpt,
		&post.FeaturedImage,
		&tags,
		&status,
		&post.ReadTime,
		&post.Stats.Views,
		&post.Stats.Likes,
		&post.Stats.Comments,
		&publishedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", label)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", label, err)
	}

	post.Status = model.PostStatus(status)
	post.Tags = model.ParseTags(tags)
	if publishedAt.Valid {
		t := publishedAt.Time
		post.PublishedAt = &t
	}
	return &post, nil
}

func requireAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected for %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
