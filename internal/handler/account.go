package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/blognode/internal/auth"
	"github.com/sakif/blognode/internal/model"
	"github.com/sakif/blognode/internal/service"
)

// AccountHandler serves sign-up, sign-in and the current account's profile.
//
//	POST  /api/accounts  → HandleRegister
//	POST  /api/sessions  → HandleLogin
//	GET   /api/me        → HandleMe           (RequireAuth)
//	PATCH /api/me        → HandleUpdateMe     (RequireAuth)
//	POST  /auth/logout   → HandleLogout
type AccountHandler struct {
	accounts *service.AccountService
	tokenTTL time.Duration
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, tokenTTL time.Duration, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account and answers 201 {user, token}.
// A taken email is a 409.
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := decodeJSON(w, r, &reg); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.accounts.CreateAccount(r.Context(), reg)
	if err != nil {
		writeError(w, err)
		return
	}

	setTokenCookie(w, res.Token, h.tokenTTL)
	writeJSON(w, http.StatusCreated, res)
}

// HandleLogin checks email and password and answers 200 {user, token}, or 401.
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.accounts.Authenticate(r.Context(), c.Email, c.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setTokenCookie(w, res.Token, h.tokenTTL)
	writeJSON(w, http.StatusOK, res)
}

// HandleMe returns the authenticated account's profile.
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	profile, err := h.accounts.Profile(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdateMe applies a partial profile. Absent fields are left alone.
func (h *AccountHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	var upd model.ProfileUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.accounts.UpdateProfile(r.Context(), accountID, upd)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// HandleLogout deletes the token cookie. Tokens are stateless, so a bearer
// token held elsewhere stays valid until it expires.
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// setTokenCookie stores the JWT for browser clients. HttpOnly keeps it away from
// scripts; SameSite=Lax keeps it off cross-site POSTs.
func setTokenCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
