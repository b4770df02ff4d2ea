package configs

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("TOKEN_SECRET", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("STATE_BACKEND", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !cfg.IsDevelopment() || cfg.Port != 8080 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TicketExpiry != 60*time.Second || cfg.QueueLimit != 3 || cfg.VoteSkipThreshold != 0.6 {
		t.Fatalf("unexpected zone defaults: %+v", cfg)
	}
	if cfg.StateBackend != "sqlite" || cfg.AdminPasswordHash != nil {
		t.Fatalf("unexpected storage defaults: %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("TOKEN_SECRET", "s3cret")
	t.Setenv("ADMIN_PASSWORD", "letmein")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("TICKET_EXPIRY", "30s")
	t.Setenv("VOTE_SKIP_THRESHOLD", "0.5")
	t.Setenv("STATE_BACKEND", "none")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Port != 9000 || cfg.TokenSecret != "s3cret" || len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.TicketExpiry != 30*time.Second || cfg.VoteSkipThreshold != 0.5 {
		t.Fatalf("unexpected zone config: %+v", cfg)
	}
	if err := bcrypt.CompareHashAndPassword(cfg.AdminPasswordHash, []byte("letmein")); err != nil {
		t.Fatalf("admin password hash does not verify: %v", err)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := map[string]map[string]string{
		"privileged port":        {"PORT": "80"},
		"bad port":               {"PORT": "eighty"},
		"missing prod secret":    {"ENVIRONMENT": "production", "TOKEN_SECRET": ""},
		"threshold out of range": {"VOTE_SKIP_THRESHOLD": "1.5"},
		"bad expiry":             {"TICKET_EXPIRY": "soon"},
		"unknown backend":        {"STATE_BACKEND": "floppy"},
		"postgres without dsn":   {"STATE_BACKEND": "postgres", "DATABASE_URL": ""},
		"s3 without bucket":      {"STATE_BACKEND": "s3", "S3_BUCKET_NAME": ""},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "")
			t.Setenv("PORT", "")
			t.Setenv("STATE_BACKEND", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
