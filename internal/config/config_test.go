package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Store.Driver != DriverMemory || cfg.Oracle.Provider != ProviderStub {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Oracle.Delay != 3*time.Second || *cfg.Oracle.MatchRate != 0.3 {
		t.Fatalf("oracle defaults: delay=%v rate=%v", cfg.Oracle.Delay, *cfg.Oracle.MatchRate)
	}
	if cfg.Session.TTL != 30*time.Minute {
		t.Fatalf("session ttl = %v", cfg.Session.TTL)
	}
}

func TestLoadParsesFile(t *testing.T) {
	p := writeConfig(t, `
server:
  port: 9090
  corsOrigins: ["https://canscan.example"]
store:
  driver: file
  dir: /tmp/canscan
database:
  host: db
  user: app
  password: secret
  name: canscan
oracle:
  provider: stub
  delay: 10ms
  matchRate: 0
session:
  ttl: 5m
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Store.Driver != DriverFile || cfg.Store.Dir != "/tmp/canscan" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Oracle.Delay != 10*time.Millisecond {
		t.Fatalf("delay = %v", cfg.Oracle.Delay)
	}
	if *cfg.Oracle.MatchRate != 0 {
		t.Fatalf("explicit zero match rate replaced: %v", *cfg.Oracle.MatchRate)
	}
	if cfg.Session.TTL != 5*time.Minute {
		t.Fatalf("ttl = %v", cfg.Session.TTL)
	}
	want := "app:secret@tcp(db:3306)/canscan?parseTime=true&charset=utf8mb4&loc=UTC"
	if got := cfg.MySQLDSN(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]string{
		"driver":   "store:\n  driver: sqlite\n",
		"provider": "oracle:\n  provider: gemini\n",
		"apiKey":   "oracle:\n  provider: openai\n",
		"rate":     "oracle:\n  matchRate: 1.5\n",
		"postgres": "store:\n  driver: postgres\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unterminated"))
	if err == nil || !strings.Contains(err.Error(), "parse") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestPathHonoursEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/canscan.yaml")
	if got := Path(); got != "/etc/canscan.yaml" {
		t.Fatalf("path = %q", got)
	}
	t.Setenv("CONFIG_PATH", "")
	if got := Path(); got != "config.yaml" {
		t.Fatalf("path = %q", got)
	}
}
