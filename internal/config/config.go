package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/punchamoorthee/expensemanager/internal/ledger"
)

type Config struct {
	DBSource    string      `yaml:"db_source"`
	Port        string      `yaml:"port"`
	Env         string      `yaml:"environment"`
	LogLevel    string      `yaml:"log_level"`
	Store       string      `yaml:"store"`
	BalanceMode ledger.Mode `yaml:"balance_mode"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	ReconcileSchedule string `yaml:"reconcile_schedule"`
	ReconcileRepair   bool   `yaml:"reconcile_repair"`
	DigestSchedule    string `yaml:"digest_schedule"`

	SMTP SMTPConfig `yaml:"smtp"`
}

// SMTPConfig configures outgoing mail. An empty Host disables it.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Sender   string `yaml:"sender"`
}

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

func defaults() *Config {
	return &Config{
		Port:              "8080",
		Env:               "development",
		LogLevel:          "info",
		Store:             StorePostgres,
		BalanceMode:       ledger.ModeAtomic,
		TokenTTL:          24 * time.Hour,
		ReconcileSchedule: "@hourly",
		DigestSchedule:    "0 8 1 * *",
		SMTP:              SMTPConfig{Port: 587},
	}
}

// Load builds the config from defaults, then the YAML file named by
// CONFIG_FILE (if set), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DBSource = getEnv("DB_SOURCE", c.DBSource)
	c.Port = getEnv("SERVER_PORT", c.Port)
	c.Env = getEnv("ENVIRONMENT", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Store = getEnv("STORE", c.Store)
	c.BalanceMode = ledger.Mode(getEnv("BALANCE_MODE", string(c.BalanceMode)))
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.ReconcileSchedule = getEnv("RECONCILE_SCHEDULE", c.ReconcileSchedule)
	c.DigestSchedule = getEnv("DIGEST_SCHEDULE", c.DigestSchedule)
	c.SMTP.Host = getEnv("SMTP_HOST", c.SMTP.Host)
	c.SMTP.Username = getEnv("SMTP_USERNAME", c.SMTP.Username)
	c.SMTP.Password = getEnv("SMTP_PASSWORD", c.SMTP.Password)
	c.SMTP.Sender = getEnv("SMTP_SENDER", c.SMTP.Sender)

	if v, ok := os.LookupEnv("TOKEN_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
		c.TokenTTL = d
	}
	if v, ok := os.LookupEnv("RECONCILE_REPAIR"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RECONCILE_REPAIR: %w", err)
		}
		c.ReconcileRepair = b
	}
	if v, ok := os.LookupEnv("SMTP_PORT"); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		c.SMTP.Port = p
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DBSource == "" {
			return fmt.Errorf("DB_SOURCE environment variable is required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}

	mode, err := ledger.ParseMode(string(c.BalanceMode))
	if err != nil {
		return fmt.Errorf("BALANCE_MODE: %w", err)
	}
	c.BalanceMode = mode

	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET is required outside development")
		}
		c.JWTSecret = "dev-secret"
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.SMTP.Host != "" && c.SMTP.Sender == "" {
		return fmt.Errorf("SMTP_SENDER is required when SMTP_HOST is set")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
