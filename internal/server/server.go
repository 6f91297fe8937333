// Package server wires the BlogNode HTTP API together.
//
// New is the composition root: it opens the database and builds
// repository → service → handler for every route, so nothing else in the tree
// constructs its own dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/blognode/internal/auth"
	"github.com/sakif/blognode/internal/config"
	"github.com/sakif/blognode/internal/handler"
	"github.com/sakif/blognode/internal/middleware"
	sqliteRepo "github.com/sakif/blognode/internal/repository/sqlite"
	"github.com/sakif/blognode/internal/service"
)

// shutdownTimeout is how long in-flight requests get once Run's context ends.
const shutdownTimeout = 30 * time.Second

// Server owns the router and the database connection.
type Server struct {
	router *chi.Mux
	config config.Server
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database at cfg.DBPath and registers every route. The returned
// Server must be closed with Close, or run with Run which closes it.
//
// github may be nil, in which case a provider is built from cfg when
// cfg.GitHubEnabled() and the OAuth routes are skipped otherwise. Tests pass a fake.
func New(cfg config.Server, logger *slog.Logger, github handler.GitHubExchanger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if github == nil && cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens, github)

	return s, nil
}

// setupRoutes registers middleware and routes.
//
//	GET   /healthz
//	POST  /api/accounts
//	POST  /api/sessions
//	GET   /api/me                    (auth)
//	PATCH /api/me                    (auth)
//	POST  /api/posts                 (auth)
//	GET   /api/posts/{slug}          (optional auth)
//	POST  /api/posts/{slug}/like     (auth)
//	GET   /api/feed                  (optional auth)
//	POST  /auth/logout
//	GET   /auth/github/login         (when GitHub is configured)
//	GET   /auth/github/callback      (when GitHub is configured)
//
// Middleware runs in the order it is added: request ID first so the logger can
// print it, Recoverer last so a panic still gets logged as a 500.
func (s *Server) setupRoutes(tokens *auth.TokenService, github handler.GitHubExchanger) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	accountService := service.NewAccountService(s.db.Accounts(), tokens, auth.NewPasswordService(s.config.BcryptCost), s.logger)
	postService := service.NewPostService(s.db.Posts(), s.logger)

	accountHandler := handler.NewAccountHandler(accountService, tokens.TTL(), s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db)

	requireAuth := auth.RequireAuth(tokens)
	optionalAuth := auth.OptionalAuth(tokens)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/accounts", accountHandler.HandleRegister)
		r.Post("/sessions", accountHandler.HandleLogin)

		r.Get("/feed", postHandler.HandleFeed)
		r.With(optionalAuth).Get("/posts/{slug}", postHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", accountHandler.HandleMe)
			r.Patch("/me", accountHandler.HandleUpdateMe)
			r.Post("/posts", postHandler.HandleSave)
			r.Post("/posts/{slug}/like", postHandler.HandleLike)
		})
	})

	s.router.Post("/auth/logout", accountHandler.HandleLogout)

	if github != nil {
		oauthHandler := handler.NewOAuthHandler(github, accountService, tokens.TTL(), s.logger)
		s.router.Get("/auth/github/login", oauthHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", oauthHandler.HandleGitHubCallback)
	} else {
		s.logger.Info("GitHub sign-in disabled: GITHUB_CLIENT_ID/SECRET not set")
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Run serves until ctx is cancelled, then drains in-flight requests and closes
// the database.
func (s *Server) Run(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
