package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  mode: release
database:
  driver: sqlite
  dsn: "file:test.db"
ledger:
  deposit_interest_category: "Interest"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.Mode != "release" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "file:test.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Database.MaxOpenConns != 50 {
		t.Errorf("max_open_conns default = %d, want 50", cfg.Database.MaxOpenConns)
	}
	if cfg.Ledger.DepositInterestCategory != "Interest" {
		t.Errorf("deposit category = %q", cfg.Ledger.DepositInterestCategory)
	}
	if cfg.Tracing.ServiceName != "finplan-backend" {
		t.Errorf("service name default = %q", cfg.Tracing.ServiceName)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "from-file"
`)
	t.Setenv("FINPLAN_DATABASE_DSN", "from-env")
	t.Setenv("FINPLAN_SERVER_PORT", "7000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.DSN != "from-env" {
		t.Errorf("dsn = %q, want from-env", cfg.Database.DSN)
	}
	if cfg.Server.Port != "7000" {
		t.Errorf("port = %q, want 7000", cfg.Server.Port)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
