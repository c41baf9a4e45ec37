package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"APP_ENV", "DB_PATH", "PORT", "LOG_MODE", "CURRENCY", "SEED_DEMO"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Env != "dev" || !cfg.IsDev() {
		t.Fatalf("Env=%q, want dev", cfg.Env)
	}
	if cfg.DBPath != defaultDBPath || cfg.Port != defaultPort || cfg.Currency != defaultCurrency {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LogMode != "dev" {
		t.Fatalf("LogMode=%q, want dev", cfg.LogMode)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoad_ReadsDotEnvWithoutOverwriting(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("PORT", "9090")
	t.Setenv("CURRENCY", "")
	t.Setenv("SEED_DEMO", "")
	// godotenv only fills variables that are unset.
	os.Unsetenv("CURRENCY")
	os.Unsetenv("SEED_DEMO")

	content := []byte("PORT=1111\nCURRENCY=eur\nSEED_DEMO=true\n")
	if err := os.WriteFile(filepath.Join(dir, ".env"), content, 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	cfg := Load()

	if cfg.Port != "9090" {
		t.Fatalf("Port=%q, want 9090 from the environment", cfg.Port)
	}
	if cfg.Currency != "EUR" {
		t.Fatalf("Currency=%q, want EUR", cfg.Currency)
	}
	if !cfg.SeedDemo {
		t.Fatalf("expected SeedDemo from .env")
	}
}

func TestValidate_ListsAllProblems(t *testing.T) {
	cfg := Config{Env: "staging", Port: "99999", DBPath: " ", Currency: "RUBLE"}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "PORT", "DB_PATH", "CURRENCY"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidate_RejectsNonBooleanSeedDemo(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"APP_ENV", "DB_PATH", "PORT", "LOG_MODE", "CURRENCY"} {
		t.Setenv(key, "")
	}
	t.Setenv("SEED_DEMO", "yes please")

	cfg := Load()
	if cfg.SeedDemo {
		t.Fatalf("SeedDemo = true for an unparsable value")
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SEED_DEMO") {
		t.Fatalf("Validate() = %v, want SEED_DEMO problem", err)
	}

	t.Setenv("SEED_DEMO", "false")
	if err := Load().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}
