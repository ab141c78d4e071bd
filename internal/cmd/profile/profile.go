// Package profile parses profile service flags and launches the service.
package profile

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	entrypoint "github.com/emberstream/platform/internal/platform/cmd"
	"github.com/emberstream/platform/internal/services/profile/app"
	"github.com/emberstream/platform/internal/services/profile/auth"
	"github.com/emberstream/platform/internal/services/profile/events"
	"github.com/emberstream/platform/internal/services/profile/loader"
	"github.com/emberstream/platform/internal/services/profile/mutation"
	"github.com/emberstream/platform/internal/services/profile/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

// Config holds profile command configuration.
type Config struct {
	Port       int    `env:"EMBERSTREAM_PROFILE_PORT" envDefault:"8086"`
	DBPath     string `env:"EMBERSTREAM_PROFILE_DB_PATH" envDefault:"profile.db"`
	NATSURL    string `env:"EMBERSTREAM_PROFILE_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	AuthIssuer string `env:"EMBERSTREAM_PROFILE_AUTH_ISSUER" envDefault:"emberstream"`
	AuthSecret string `env:"EMBERSTREAM_PROFILE_AUTH_SECRET"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The profile HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the profile SQLite database")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL for event publishing")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the profile HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceProfile, func(ctx context.Context) error {
		return run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg Config) error {
	if cfg.AuthSecret == "" {
		return fmt.Errorf("EMBERSTREAM_PROFILE_AUTH_SECRET is required")
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	publisher, err := events.ConnectNATS(cfg.NATSURL, entrypoint.ServiceProfile)
	if err != nil {
		return fmt.Errorf("connect event broker: %w", err)
	}
	defer publisher.Close()

	verifier, err := auth.NewVerifier(auth.Config{
		Issuer: cfg.AuthIssuer,
		Secret: []byte(cfg.AuthSecret),
	}, store)
	if err != nil {
		return fmt.Errorf("configure auth: %w", err)
	}

	mutations, err := mutation.NewService(store, store, loader.NewUserLoader(store), events.NewEmitter(publisher), time.Now)
	if err != nil {
		return fmt.Errorf("configure mutations: %w", err)
	}
	server, err := app.NewServer(mutations, verifier, log.Default())
	if err != nil {
		return fmt.Errorf("configure server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown http server: %v", err)
		}
	}()

	log.Printf("profile service listening on :%d", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
