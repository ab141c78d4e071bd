package profile

import (
	"context"
	"flag"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8086 {
		t.Fatalf("expected default port 8086, got %d", cfg.Port)
	}
	if cfg.DBPath != "profile.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("EMBERSTREAM_PROFILE_PORT", "9090")

	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9091", "-db", "/tmp/test.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9091 {
		t.Fatalf("expected port override 9091, got %d", cfg.Port)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Fatalf("expected db override, got %q", cfg.DBPath)
	}
}

func TestRunRequiresAuthSecret(t *testing.T) {
	err := run(context.Background(), Config{Port: 0})
	if err == nil || !strings.Contains(err.Error(), "AUTH_SECRET") {
		t.Fatalf("expected auth secret error, got %v", err)
	}
}
