package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Database.Driver != "sqlite3" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.JWTDuration().Hours() != 24 {
		t.Fatalf("jwt duration = %v", cfg.Auth.JWTDuration())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
http:
  addr: ":9000"
database:
  driver: mysql
  dsn: "root:pw@tcp(127.0.0.1:3306)/webtoon_novel_db?parseTime=true"
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORYHUB_HTTP__ADDR", ":9100")
	t.Setenv("STORYHUB_AUTH__JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTP.Addr != ":9100" {
		t.Fatalf("env should override file, got %q", cfg.HTTP.Addr)
	}
	if cfg.Database.Driver != "mysql" || !strings.Contains(cfg.Database.DSN, "webtoon_novel_db") {
		t.Fatalf("file values not applied: %+v", cfg.Database)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Fatalf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.JWTIssuer != "storyhub" {
		t.Fatalf("default issuer lost: %q", cfg.Auth.JWTIssuer)
	}
}

func TestValidateRejectsMySQLWithoutDSN(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	cfg.Database.DSN = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "DSN") {
		t.Fatalf("error should name the DSN field: %v", err)
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "postgres"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for unknown driver")
	}
}
