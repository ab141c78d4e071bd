// Package seed creates local development fixtures for the profile service.
//
// It provisions a user with one live session and prints a bearer token
// that authenticates against a profile service sharing the same database
// and signing secret.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	entrypoint "github.com/emberstream/platform/internal/platform/cmd"
	"github.com/emberstream/platform/internal/platform/id"
	"github.com/emberstream/platform/internal/services/profile/auth"
	"github.com/emberstream/platform/internal/services/profile/domain"
	"github.com/emberstream/platform/internal/services/profile/storage"
	"github.com/emberstream/platform/internal/services/profile/storage/sqlite"
)

// Config holds seed command configuration.
type Config struct {
	DBPath     string `env:"EMBERSTREAM_PROFILE_DB_PATH" envDefault:"profile.db"`
	AuthIssuer string `env:"EMBERSTREAM_PROFILE_AUTH_ISSUER" envDefault:"emberstream"`
	AuthSecret string `env:"EMBERSTREAM_PROFILE_AUTH_SECRET"`

	Username string
	Email    string
	Password string
	TokenTTL time.Duration
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the profile SQLite database")
	fs.StringVar(&cfg.Username, "username", "", "Username for the seeded user")
	fs.StringVar(&cfg.Email, "email", "", "Email for the seeded user")
	fs.StringVar(&cfg.Password, "password", "", "Password for the seeded user")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 24*time.Hour, "Lifetime of the printed bearer token")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run provisions the user and session and prints the credentials.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	username := strings.TrimSpace(cfg.Username)
	email := strings.TrimSpace(cfg.Email)
	if username == "" || email == "" || cfg.Password == "" {
		return fmt.Errorf("-username, -email and -password are required")
	}
	if cfg.AuthSecret == "" {
		return fmt.Errorf("EMBERSTREAM_PROFILE_AUTH_SECRET is required")
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	hash, err := domain.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	userID, err := id.NewID()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           userID,
		Username:     username,
		DisplayName:  username,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.PutUser(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	sessionID, err := id.NewID()
	if err != nil {
		return err
	}
	session := storage.Session{ID: sessionID, UserID: user.ID, CreatedAt: now}
	if err := store.PutSession(ctx, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	token, err := auth.IssueToken(auth.Config{
		Issuer: cfg.AuthIssuer,
		Secret: []byte(cfg.AuthSecret),
	}, session.ID, user.ID, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Fprintf(out, "user id: %s\n", user.ID)
	fmt.Fprintf(out, "session id: %s\n", session.ID)
	fmt.Fprintf(out, "bearer token: %s\n", token)
	return nil
}
