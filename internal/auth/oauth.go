package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sakif/blognode/internal/model"
)

const githubAPIBase = "https://api.github.com"

// GitHubUser is the part of GitHub's /user response that seeds a BlogNode profile.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID              int64  `json:"id"`    // stable numeric ID, the join key for accounts
	Login           string `json:"login"` // becomes the BlogNode username
	Name            string `json:"name"`
	Email           string `json:"email"` // empty if hidden in GitHub settings
	AvatarURL       string `json:"avatar_url"`
	Bio             string `json:"bio"`
	Blog            string `json:"blog"`
	TwitterUsername string `json:"twitter_username"`
}

// Profile maps the GitHub account onto BlogNode profile fields. The ID is left
// empty; the account repository assigns it.
func (g *GitHubUser) Profile() model.UserProfile {
	display := g.Name
	if display == "" {
		display = g.Login
	}
	return model.UserProfile{
		Username:    g.Login,
		DisplayName: display,
		Email:       g.Email,
		Avatar:      g.AvatarURL,
		Bio:         g.Bio,
		SocialLinks: model.SocialLinks{
			model.SocialGitHub:  g.Login,
			model.SocialTwitter: g.TwitterUsername,
			model.SocialWebsite: g.Blog,
		}.Normalize(),
	}
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow:
//
//  1. AuthURL redirects the browser to GitHub with our client ID and scopes.
//  2. GitHub redirects back to the callback with a short-lived code.
//  3. Exchange trades the code for an access token (server to server, using the
//     client secret) and calls /user with it.
type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
}

// NewGitHubProvider creates a GitHubProvider. callbackURL must match the OAuth
// App's "Authorization callback URL" exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiBase: githubAPIBase,
	}
}

// AuthURL returns the GitHub consent URL. state is echoed back on the callback
// and must be checked against the value stored in the browser cookie.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the GitHub user behind it.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// config.Client returns an *http.Client that adds the bearer token to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get(p.apiBase + "/user")
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	return &ghUser, nil
}
