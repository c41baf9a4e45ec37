package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath   = "./dev.db"
	defaultPort     = "8080"
	defaultEnv      = "dev"
	defaultCurrency = "RUB"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env      string
	DBPath   string
	Port     string
	LogMode  string
	Currency string
	SeedDemo bool

	// seedDemoRaw keeps an unparsable SEED_DEMO value for Validate.
	seedDemoRaw string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: a missing .env is fine, real deployments inject the environment.
	// godotenv never overrides variables that are already set.
	_ = godotenv.Load(".env")

	cfg := Config{
		Env:      strings.ToLower(os.Getenv("APP_ENV")),
		DBPath:   os.Getenv("DB_PATH"),
		Port:     os.Getenv("PORT"),
		LogMode:  os.Getenv("LOG_MODE"),
		Currency: strings.ToUpper(os.Getenv("CURRENCY")),
	}

	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogMode == "" {
		cfg.LogMode = cfg.Env
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}

	if raw := os.Getenv("SEED_DEMO"); raw != "" {
		seed, err := strconv.ParseBool(raw)
		if err != nil {
			cfg.seedDemoRaw = raw
		}
		cfg.SeedDemo = seed
	}

	return cfg
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var problems []string

	switch c.Env {
	case "dev", "development", "prod", "production":
	default:
		problems = append(problems, fmt.Sprintf("APP_ENV %q must be dev or prod", c.Env))
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %q must be a number between 1 and 65535", c.Port))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		problems = append(problems, "DB_PATH must not be empty")
	}
	if c.seedDemoRaw != "" {
		problems = append(problems, fmt.Sprintf("SEED_DEMO %q must be a boolean", c.seedDemoRaw))
	}
	if len(c.Currency) != 3 {
		problems = append(problems, fmt.Sprintf("CURRENCY %q must be a 3-letter code", c.Currency))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
