package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/blognode/internal/auth"
	sqliteRepo "github.com/sakif/blognode/internal/repository/sqlite"
	"github.com/sakif/blognode/internal/service"
)

type fixture struct {
	accounts *service.AccountService
	posts    *service.PostService
	logger   *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		accounts: service.NewAccountService(db.Accounts(), tokens, auth.NewPasswordService(bcrypt.MinCost), logger),
		posts:    service.NewPostService(db.Posts(), logger),
		logger:   logger,
	}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// asAccount marks req as authenticated, the way RequireAuth would.
func asAccount(req *http.Request, accountID string) *http.Request {
	return req.WithContext(auth.WithAccountID(req.Context(), accountID))
}

// withURLParam sets a chi URL parameter without going through a router.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}
