// Package client talks to a BlogNode server over HTTP.
//
// Client implements session.IdentityService, so the session manager can run
// against a real server instead of the built-in mock, and it carries the post
// and feed calls the editor and feed views need.
//
// The bearer token returned by sign-in is held in memory until the session
// manager has stored the signed-in profile and calls CommitCredentials. It is
// then kept in the same storage.Store as the session, under its own TokenKey.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/model"
	"github.com/sakif/blognode/internal/session"
	"github.com/sakif/blognode/internal/storage"
)

// TokenKey is the store key holding the server's bearer token.
const TokenKey = "blognode_token"

var (
	_ session.IdentityService  = (*Client)(nil)
	_ session.CredentialHolder = (*Client)(nil)
)

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	store   storage.Store
	logger  *slog.Logger

	mu      sync.Mutex
	pending string // token from the last sign-in, not yet committed
}

// New returns a Client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, store storage.Store, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		store:   store,
		logger:  logger,
	}
}

// authResponse mirrors service.AuthResult on the wire.
type authResponse struct {
	User  *model.UserProfile `json:"user"`
	Token string             `json:"token"`
}

// errorResponse mirrors handler.ErrorResponse on the wire.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

// FeedPage is the body of GET /api/feed.
type FeedPage struct {
	Tab   model.FeedTab    `json:"tab"`
	Items []model.FeedItem `json:"items"`
}

func (c *Client) Authenticate(ctx context.Context, email, password string) (*model.UserProfile, error) {
	var res authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/sessions", false, body, &res); err != nil {
		return nil, err
	}
	return c.keep(res)
}

func (c *Client) CreateAccount(ctx context.Context, reg model.Registration) (*model.UserProfile, error) {
	var res authResponse
	if err := c.do(ctx, http.MethodPost, "/api/accounts", false, reg, &res); err != nil {
		return nil, err
	}
	return c.keep(res)
}

// UpdateRemoteProfile sends every editable field of profile, so the server ends
// up with exactly this profile. An empty social links map clears the server's.
func (c *Client) UpdateRemoteProfile(ctx context.Context, profile *model.UserProfile) (*model.UserProfile, error) {
	links := profile.SocialLinks
	if links == nil {
		links = model.SocialLinks{}
	}
	upd := model.ProfileUpdate{
		Username:    &profile.Username,
		DisplayName: &profile.DisplayName,
		Avatar:      &profile.Avatar,
		Bio:         &profile.Bio,
		SocialLinks: links,
	}

	var out model.UserProfile
	if err := c.do(ctx, http.MethodPatch, "/api/me", true, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the profile the stored token belongs to.
func (c *Client) Me(ctx context.Context) (*model.UserProfile, error) {
	var out model.UserProfile
	if err := c.do(ctx, http.MethodGet, "/api/me", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SavePost saves a draft or publishes, depending on in.Status.
func (c *Client) SavePost(ctx context.Context, in model.PostInput) (*model.Post, error) {
	var out model.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", true, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPost(ctx context.Context, slug string) (*model.Post, error) {
	var out model.Post
	// A token, when present, lets authors read their own drafts.
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(slug), false, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LikePost(ctx context.Context, slug string) (model.PostStats, error) {
	var out model.PostStats
	err := c.do(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(slug)+"/like", true, nil, &out)
	return out, err
}

// Feed lists published posts. limit and offset of 0 use the server defaults.
func (c *Client) Feed(ctx context.Context, tab model.FeedTab, limit, offset int) ([]model.FeedItem, error) {
	q := url.Values{}
	q.Set("tab", string(tab))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var page FeedPage
	if err := c.do(ctx, http.MethodGet, "/api/feed?"+q.Encode(), false, nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// ForgetToken drops the stored bearer token. Called on logout.
func (c *Client) ForgetToken(ctx context.Context) error {
	if err := c.store.Remove(ctx, TokenKey); err != nil {
		return apperror.StorageUnavailable("remove", err)
	}
	return nil
}

// CommitCredentials stores the token from the last sign-in under TokenKey.
func (c *Client) CommitCredentials(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == "" {
		return nil
	}
	if err := c.store.Set(ctx, TokenKey, c.pending); err != nil {
		return apperror.StorageUnavailable("write", err)
	}
	c.pending = ""
	return nil
}

// DiscardCredentials forgets an uncommitted sign-in token.
func (c *Client) DiscardCredentials() {
	c.mu.Lock()
	c.pending = ""
	c.mu.Unlock()
}

// keep holds the token from a sign-in response and returns its profile.
func (c *Client) keep(res authResponse) (*model.UserProfile, error) {
	if res.User == nil || res.Token == "" {
		return nil, apperror.Unavailable("server returned an incomplete sign-in response")
	}
	c.mu.Lock()
	c.pending = res.Token
	c.mu.Unlock()
	return res.User, nil
}

// do sends one JSON request and decodes a 2xx body into out.
//
// With needToken the request fails fast with ErrUnauthorized when no token is
// stored; without it a stored token is still sent when there is one.
func (c *Client) do(ctx context.Context, method, path string, needToken bool, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encoding %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, ok, err := c.store.Get(ctx, TokenKey)
	if err != nil {
		return apperror.StorageUnavailable("read", err)
	}
	switch {
	case ok && token != "":
		req.Header.Set("Authorization", "Bearer "+token)
	case needToken:
		return apperror.Unauthorized("not signed in to the server")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &apperror.AppError{
			Err:     apperror.ErrUnavailable,
			Message: fmt.Sprintf("cannot reach %s: %v", c.baseURL, err),
		}
	}
	defer resp.Body.Close()

	c.logger.Debug("server call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Unavailable(fmt.Sprintf("malformed response from %s %s: %v", method, path, err))
	}
	return nil
}

// statusErrors maps server statuses back onto the sentinels the server started from.
var statusErrors = map[int]error{
	http.StatusBadRequest:          apperror.ErrValidation,
	http.StatusUnauthorized:        apperror.ErrUnauthorized,
	http.StatusForbidden:           apperror.ErrForbidden,
	http.StatusNotFound:            apperror.ErrNotFound,
	http.StatusConflict:            apperror.ErrConflict,
	http.StatusTooManyRequests:     apperror.ErrBusy,
	http.StatusServiceUnavailable:  apperror.ErrUnavailable,
	http.StatusBadGateway:          apperror.ErrUnavailable,
	http.StatusGatewayTimeout:      apperror.ErrUnavailable,
	http.StatusInternalServerError: apperror.ErrUnavailable,
}

func decodeError(resp *http.Response) error {
	var body errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = fmt.Sprintf("server answered %s", resp.Status)
	}

	sentinel, ok := statusErrors[resp.StatusCode]
	if !ok {
		sentinel = errors.New(resp.Status)
	}
	return &apperror.AppError{Err: sentinel, Message: body.Message, Field: body.Field}
}
