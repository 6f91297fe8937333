// Package config reads server and CLI settings from the environment.
//
// A .env file, when present, is loaded first with godotenv. Variables already set
// in the real environment win over the file, so deployments can override anything.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends the CLI can keep its session in.
const (
	StoreSQLite = "sqlite"
	StoreBolt   = "bolt"
	StoreMemory = "memory"
)

// Server configures cmd/server.
type Server struct {
	Port      int
	DBPath    string
	JWTSecret string
	TokenTTL  time.Duration
	LogLevel  slog.Level

	// BcryptCost is the password hashing work factor; zero means the auth default.
	BcryptCost int

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// GitHubEnabled reports whether GitHub sign-in can be offered.
func (s Server) GitHubEnabled() bool {
	return s.GitHubClientID != "" && s.GitHubClientSecret != ""
}

// Client configures cmd/blognode.
type Client struct {
	// ServerURL is the BlogNode server. Empty selects the built-in mock identity.
	ServerURL string
	Store     string
	DataDir   string
	Timeout   time.Duration
	LogLevel  slog.Level
}

// StorePath is the file backing the chosen store, or "" for the memory store.
func (c Client) StorePath() string {
	switch c.Store {
	case StoreSQLite:
		return filepath.Join(c.DataDir, "session.db")
	case StoreBolt:
		return filepath.Join(c.DataDir, "session.bolt")
	default:
		return ""
	}
}

// LoadDotEnv loads the given files (".env" when none) into the process
// environment. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: loading %s: %w", f, err)
		}
	}
	return nil
}

// ServerFromEnv builds a Server config. JWT_SECRET is required.
func ServerFromEnv() (Server, error) {
	var errs []error

	port, err := intEnv("PORT", 8080)
	errs = append(errs, err)
	ttl, err := durationEnv("TOKEN_TTL", 24*time.Hour)
	errs = append(errs, err)
	level, err := levelEnv("LOG_LEVEL", slog.LevelInfo)
	errs = append(errs, err)
	cost, err := intEnv("BCRYPT_COST", 0)
	errs = append(errs, err)

	cfg := Server{
		Port:               port,
		DBPath:             stringEnv("DB_PATH", "data/blognode.db"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		TokenTTL:           ttl,
		LogLevel:           level,
		BcryptCost:         cost,
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  os.Getenv("GITHUB_CALLBACK_URL"),
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	// Generate one with: openssl rand -hex 32
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("config: JWT_SECRET is required"))
	}

	if err := errors.Join(errs...); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// ClientFromEnv builds a Client config.
func ClientFromEnv() (Client, error) {
	var errs []error

	timeout, err := durationEnv("BLOGNODE_TIMEOUT", 10*time.Second)
	errs = append(errs, err)
	level, err := levelEnv("LOG_LEVEL", slog.LevelWarn)
	errs = append(errs, err)

	cfg := Client{
		ServerURL: strings.TrimRight(os.Getenv("BLOGNODE_SERVER"), "/"),
		Store:     strings.ToLower(stringEnv("BLOGNODE_STORE", StoreSQLite)),
		DataDir:   stringEnv("BLOGNODE_DATA_DIR", defaultDataDir()),
		Timeout:   timeout,
		LogLevel:  level,
	}

	switch cfg.Store {
	case StoreSQLite, StoreBolt, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("config: BLOGNODE_STORE must be %s, %s or %s, got %q",
			StoreSQLite, StoreBolt, StoreMemory, cfg.Store))
	}

	if err := errors.Join(errs...); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "blognode")
	}
	return ".blognode"
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("config: %s=%q is not an integer", key, raw)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("config: %s=%q is not a duration", key, raw)
	}
	return d, nil
}

// levelEnv accepts debug, info, warn and error, case-insensitively.
func levelEnv(key string, def slog.Level) (slog.Level, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(raw)); err != nil {
		return def, fmt.Errorf("config: %s=%q is not a log level", key, raw)
	}
	return l, nil
}
