package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/colisflow/colisflow/internal/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Site != "LTH" {
		t.Errorf("Site = %q", cfg.Site)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d", cfg.Database.Port)
	}
	if cfg.Server.Addr() != "localhost:8080" {
		t.Errorf("Addr = %q", cfg.Server.Addr())
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "db.example", Port: 5433, Name: "flux",
		User: "ops", Password: "secret", SSLMode: "require",
	}
	want := "host=db.example port=5433 dbname=flux user=ops password=secret sslmode=require"
	if got := db.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site: CLF
database:
  host: db.internal
server:
  port: 9000
calendar:
  holidays:
    - "2025-07-14"
epochs:
  "Qualité_de_tri": "2024-01-01"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg := m.Get()

	if cfg.Site != "CLF" {
		t.Errorf("Site = %q", cfg.Site)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q", cfg.Database.Host)
	}
	// Untouched values keep their defaults.
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d", cfg.Database.Port)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}

	holidays, err := cfg.HolidayDates()
	if err != nil {
		t.Fatalf("HolidayDates: %v", err)
	}
	if len(holidays) != 1 || !holidays[0].Equal(time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("holidays = %v", holidays)
	}

	epochs, err := cfg.EpochDates()
	if err != nil {
		t.Fatalf("EpochDates: %v", err)
	}
	if !epochs[model.TypeQualite].Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("epochs = %v", epochs)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("host", "env.db")
	t.Setenv("port", "6543")
	t.Setenv("COLISFLOW_SITE", "NCY")

	m := NewManager()
	m.merge(&Config{})
	m.loadEnv()
	cfg := m.Get()

	if cfg.Database.Host != "env.db" {
		t.Errorf("Database.Host = %q", cfg.Database.Host)
	}
	if cfg.Database.Port != 6543 {
		t.Errorf("Database.Port = %d", cfg.Database.Port)
	}
	if cfg.Site != "NCY" {
		t.Errorf("Site = %q", cfg.Site)
	}
}

func TestHolidayDatesInvalid(t *testing.T) {
	cfg := Default()
	cfg.Calendar.Holidays = []string{"14/07/2025"}
	if _, err := cfg.HolidayDates(); err == nil {
		t.Error("expected error for malformed holiday")
	}
}
