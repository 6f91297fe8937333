package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blognode/internal/auth"
	"github.com/sakif/blognode/internal/service"
)

const stateCookieName = "oauth_state"

// GitHubExchanger is the part of *auth.GitHubProvider the OAuth handler needs.
type GitHubExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// OAuthHandler runs the GitHub sign-in flow.
//
//	GET /auth/github/login     → HandleGitHubLogin
//	GET /auth/github/callback  → HandleGitHubCallback
type OAuthHandler struct {
	github   GitHubExchanger
	accounts *service.AccountService
	tokenTTL time.Duration
	logger   *slog.Logger
}

func NewOAuthHandler(github GitHubExchanger, accounts *service.AccountService, tokenTTL time.Duration, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		github:   github,
		accounts: accounts,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// HandleGitHubLogin redirects the browser to GitHub's consent page.
//
// The state value is kept in a short-lived HttpOnly cookie and checked on the
// callback, which proves the callback was started here (CSRF).
func (h *OAuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback checks state, exchanges the code, signs the account in
// and redirects home with the token cookie set.
func (h *OAuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("oauth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	res, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("oauth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	setTokenCookie(w, res.Token, h.tokenTTL)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
