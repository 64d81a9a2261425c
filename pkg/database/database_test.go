package database_test

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/JaimeStill/rag-lab/pkg/database"
)

func TestConfig_Finalize_Defaults(t *testing.T) {
	cfg := &database.Config{}

	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Driver != database.DriverSQLite {
		t.Errorf("Driver = %q, want %q", cfg.Driver, database.DriverSQLite)
	}
	if cfg.Path != ".data/rag.db" {
		t.Errorf("Path = %q, want .data/rag.db", cfg.Path)
	}
	if cfg.Port != 5432 {
		t.Errorf("Port = %d, want 5432", cfg.Port)
	}
	if cfg.ConnTimeout != "5s" {
		t.Errorf("ConnTimeout = %q, want %q", cfg.ConnTimeout, "5s")
	}
}

func TestConfig_Dsn_Postgres(t *testing.T) {
	cfg := &database.Config{
		Driver:   database.DriverPostgres,
		Host:     "db",
		Name:     "rag",
		User:     "rag",
		Password: "p@ss word",
		SSLMode:  "require",
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	want := "postgres://rag:p%40ss%20word@db:5432/rag?sslmode=require"
	if got := cfg.Dsn(); got != want {
		t.Errorf("Dsn() = %q, want %q", got, want)
	}
}

func TestConfig_Finalize_EnvPostgres(t *testing.T) {
	t.Setenv("TEST_DB_DRIVER", "postgres")
	t.Setenv("TEST_DB_NAME", "rag")
	t.Setenv("TEST_DB_USER", "svc")
	t.Setenv("TEST_DB_PORT", "6543")
	t.Setenv("TEST_DB_SSLMODE", "verify-full")

	cfg := &database.Config{}
	env := &database.Env{
		Driver:  "TEST_DB_DRIVER",
		Name:    "TEST_DB_NAME",
		User:    "TEST_DB_USER",
		Port:    "TEST_DB_PORT",
		SSLMode: "TEST_DB_SSLMODE",
	}

	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Driver != database.DriverPostgres || cfg.Port != 6543 || cfg.SSLMode != "verify-full" {
		t.Errorf("Finalize() = %+v", cfg)
	}
}

func TestConfig_Finalize_Env(t *testing.T) {
	t.Setenv("TEST_DB_DRIVER", "sqlite")
	t.Setenv("TEST_DB_PATH", "/tmp/env.db")

	cfg := &database.Config{}
	env := &database.Env{Driver: "TEST_DB_DRIVER", Path: "TEST_DB_PATH"}

	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Driver != database.DriverSQLite {
		t.Errorf("Driver = %q, want %q", cfg.Driver, database.DriverSQLite)
	}
	if cfg.Path != "/tmp/env.db" {
		t.Errorf("Path = %q, want %q", cfg.Path, "/tmp/env.db")
	}
	if !strings.HasPrefix(cfg.Dsn(), "/tmp/env.db?") {
		t.Errorf("Dsn() = %q, want sqlite path prefix", cfg.Dsn())
	}
}

func TestConfig_Finalize_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     database.Config
		wantErr string
	}{
		{"invalid driver", database.Config{Driver: "mysql"}, "invalid driver"},
		{"missing name", database.Config{Driver: database.DriverPostgres, User: "user"}, "name required"},
		{"missing user", database.Config{Driver: database.DriverPostgres, Name: "db"}, "user required"},
		{"invalid port", database.Config{Driver: database.DriverPostgres, Name: "db", User: "u", Port: 70000}, "invalid port"},
		{"invalid conn_timeout", database.Config{Driver: database.DriverSQLite, ConnTimeout: "soon"}, "invalid conn_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil {
				t.Fatal("Finalize() should return error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	base := database.Config{Driver: database.DriverPostgres, Name: "base"}
	base.Merge(&database.Config{Driver: database.DriverSQLite, Path: "x.db", SSLMode: "require"})

	if base.Driver != database.DriverSQLite || base.Path != "x.db" || base.Name != "base" || base.SSLMode != "require" {
		t.Errorf("Merge() = %+v", base)
	}
}

func TestMigrate_SQLite(t *testing.T) {
	cfg := &database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "data", "rag.db"),
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sys, err := database.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	db := sys.Connection()
	defer db.Close()

	migrations := fstest.MapFS{
		"sql/000001_widgets.up.sql":   {Data: []byte(`CREATE TABLE widgets (id TEXT PRIMARY KEY);`)},
		"sql/000001_widgets.down.sql": {Data: []byte(`DROP TABLE widgets;`)},
	}

	for range 2 {
		if err := database.Migrate(db, cfg.Driver, migrations, "sql"); err != nil {
			t.Fatalf("Migrate() error = %v", err)
		}
	}

	if _, err := db.Exec(`INSERT INTO widgets (id) VALUES ('a')`); err != nil {
		t.Errorf("insert after migrate: %v", err)
	}
}
