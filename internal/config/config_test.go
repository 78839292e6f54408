package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/punchamoorthee/expensemanager/internal/ledger"
)

var configEnv = []string{
	"CONFIG_FILE", "DB_SOURCE", "SERVER_PORT", "ENVIRONMENT", "LOG_LEVEL", "STORE",
	"BALANCE_MODE", "JWT_SECRET", "TOKEN_TTL", "RECONCILE_SCHEDULE", "RECONCILE_REPAIR",
	"DIGEST_SCHEDULE", "SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_SENDER",
}

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_SOURCE", "postgres://localhost/expenses")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.BalanceMode != ledger.ModeAtomic {
		t.Errorf("BalanceMode = %q, want atomic", cfg.BalanceMode)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %s, want 24h", cfg.TokenTTL)
	}
	if cfg.ReconcileSchedule != "@hourly" {
		t.Errorf("ReconcileSchedule = %q, want @hourly", cfg.ReconcileSchedule)
	}
	if cfg.JWTSecret == "" {
		t.Error("development config has no JWT secret")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"postgres needs DB_SOURCE", map[string]string{}, "DB_SOURCE"},
		{"unknown store", map[string]string{"STORE": "sqlite"}, "STORE"},
		{"unknown balance mode", map[string]string{"STORE": "memory", "BALANCE_MODE": "eventual"}, "BALANCE_MODE"},
		{"production needs secret", map[string]string{"STORE": "memory", "ENVIRONMENT": "production"}, "JWT_SECRET"},
		{"bad ttl", map[string]string{"STORE": "memory", "TOKEN_TTL": "soon"}, "TOKEN_TTL"},
		{"bad repair flag", map[string]string{"STORE": "memory", "RECONCILE_REPAIR": "maybe"}, "RECONCILE_REPAIR"},
		{"smtp without sender", map[string]string{"STORE": "memory", "SMTP_HOST": "mail.local"}, "SMTP_SENDER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
store: memory
port: "9090"
balance_mode: read-modify-write
token_ttl: 2h
reconcile_repair: true
smtp:
  host: mail.local
  port: 2525
  sender: ledger@example.com
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("RECONCILE_SCHEDULE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("Port = %q, env should win over file", cfg.Port)
	}
	if cfg.BalanceMode != ledger.ModeReadModifyWrite {
		t.Errorf("BalanceMode = %q", cfg.BalanceMode)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL = %s, want 2h", cfg.TokenTTL)
	}
	if !cfg.ReconcileRepair {
		t.Error("ReconcileRepair = false, want true")
	}
	if cfg.ReconcileSchedule != "" {
		t.Errorf("ReconcileSchedule = %q, empty env should disable it", cfg.ReconcileSchedule)
	}
	if cfg.SMTP.Port != 2525 || cfg.SMTP.Host != "mail.local" {
		t.Errorf("SMTP = %+v", cfg.SMTP)
	}
}
