package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Server.HTTPAddress() != ":3000" {
		t.Errorf("unexpected http address %q", cfg.Server.HTTPAddress())
	}
	if cfg.Fleet.Mode != FleetModeAgones {
		t.Errorf("expected default fleet mode agones, got %q", cfg.Fleet.Mode)
	}
	if cfg.Fleet.HealthInterval != time.Second {
		t.Errorf("expected 1s health interval, got %v", cfg.Fleet.HealthInterval)
	}
	if cfg.Fleet.IdleShutdownDelay != time.Minute {
		t.Errorf("expected 60s idle delay, got %v", cfg.Fleet.IdleShutdownDelay)
	}
	if cfg.Fleet.PlayerCapacity != 10 {
		t.Errorf("expected capacity 10, got %d", cfg.Fleet.PlayerCapacity)
	}
	if cfg.Database.Driver != "" {
		t.Errorf("expected in-memory journal by default, got %q", cfg.Database.Driver)
	}
}

func TestLoadConfig_PortFromEnv(t *testing.T) {
	t.Setenv("PORT", "7117")
	cfg, err := LoadConfig(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 7117 {
		t.Errorf("expected port from env 7117, got %d", cfg.Server.Port)
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	body := []byte(`
server:
  port: 8088
fleet:
  mode: local
  idle_shutdown_delay: 5s
database:
  driver: gorm
  postgres:
    host: db
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("expected port 8088, got %d", cfg.Server.Port)
	}
	if cfg.Fleet.Mode != FleetModeLocal {
		t.Errorf("expected local fleet mode, got %q", cfg.Fleet.Mode)
	}
	if cfg.Fleet.IdleShutdownDelay != 5*time.Second {
		t.Errorf("expected 5s idle delay, got %v", cfg.Fleet.IdleShutdownDelay)
	}
	if cfg.Database.Driver != "gorm" || cfg.Database.Postgres.Host != "db" {
		t.Errorf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Database.Postgres.Port != 5432 {
		t.Errorf("expected default postgres port to survive partial file, got %d", cfg.Database.Postgres.Port)
	}
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	t.Setenv("PORT", "7117")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	if err := fs.Parse([]string{"--port=4000", "--fleet-mode=local"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(t.TempDir(), fs)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("expected flag port 4000, got %d", cfg.Server.Port)
	}
	if cfg.Fleet.Mode != FleetModeLocal {
		t.Errorf("expected flag fleet mode local, got %q", cfg.Fleet.Mode)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	body := []byte("fleet:\n  mode: kubernetes\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(dir, nil); err == nil {
		t.Fatal("expected unknown fleet mode to be rejected")
	}
}

func TestValidate_HealthTimeoutShorterThanInterval(t *testing.T) {
	cfg := Config{
		Server: ServerConfig{Port: 3000},
		Fleet: FleetConfig{
			Mode:           FleetModeLocal,
			HealthInterval:    time.Second,
			HealthTimeout:     2 * time.Second,
			IdleShutdownDelay: time.Minute,
			PlayerCapacity:    10,
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected health timeout >= interval to be rejected")
	}
}

func TestValidate_IdleDelayAndCapacity(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Port: 3000},
			Fleet: FleetConfig{
				Mode:              FleetModeLocal,
				HealthInterval:    time.Second,
				HealthTimeout:     500 * time.Millisecond,
				IdleShutdownDelay: time.Minute,
				PlayerCapacity:    10,
			},
		}
	}
	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	for name, mutate := range map[string]func(*Config){
		"zero idle delay":     func(c *Config) { c.Fleet.IdleShutdownDelay = 0 },
		"negative idle delay": func(c *Config) { c.Fleet.IdleShutdownDelay = -time.Second },
		"zero capacity":       func(c *Config) { c.Fleet.PlayerCapacity = 0 },
		"negative capacity":   func(c *Config) { c.Fleet.PlayerCapacity = -1 },
	} {
		cfg := valid()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected config to be rejected", name)
		}
	}
}

func TestLoadConfig_ZeroIdleDelayRejected(t *testing.T) {
	dir := t.TempDir()
	body := []byte("fleet:\n  mode: local\n  idle_shutdown_delay: 0s\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(dir, nil); err == nil {
		t.Fatal("expected zero idle shutdown delay to be rejected")
	}
}
