package database

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Driver identifies the SQL backend holding document metadata.
type Driver string

const (
	// DriverSQLite keeps metadata in a single local file.
	DriverSQLite Driver = "sqlite"

	// DriverPostgres shares metadata with other tooling through a server.
	DriverPostgres Driver = "postgres"
)

func (d Driver) Validate() error {
	switch d {
	case DriverPostgres, DriverSQLite:
		return nil
	default:
		return fmt.Errorf("invalid driver: %s (must be sqlite or postgres)", d)
	}
}

// Config selects and tunes the metadata database. Path applies to sqlite;
// the connection fields apply to postgres.
//
//	[database]
//	driver = "postgres"
//	host = "db"
//	name = "rag"
//	user = "rag"
//	sslmode = "require"
type Config struct {
	Driver Driver `toml:"driver"`
	Path   string `toml:"path"`

	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Name     string `toml:"name"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"sslmode"`

	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnTimeout     string `toml:"conn_timeout"`
}

// Env names the environment variables that override Config.
type Env struct {
	Driver          string
	Path            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    string
	MaxIdleConns    string
	ConnMaxLifetime string
	ConnTimeout     string
}

func (c *Config) ConnMaxLifetimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnMaxLifetime)
	return d
}

func (c *Config) ConnTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnTimeout)
	return d
}

// Dsn is the data source name handed to sql.Open.
func (c *Config) Dsn() string {
	if c.Driver == DriverSQLite {
		return c.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Finalize fills defaults, applies env overrides and validates the result.
// Without configuration the metadata lives in .data/rag.db.
func (c *Config) Finalize(env *Env) error {
	setDefault(&c.Driver, DriverSQLite)
	setDefault(&c.Path, ".data/rag.db")
	setDefault(&c.Host, "localhost")
	setDefault(&c.Port, 5432)
	setDefault(&c.SSLMode, "disable")
	setDefault(&c.MaxOpenConns, 25)
	setDefault(&c.MaxIdleConns, 5)
	setDefault(&c.ConnMaxLifetime, "15m")
	setDefault(&c.ConnTimeout, "5s")

	if env != nil {
		driver := string(c.Driver)
		envString(&driver, env.Driver)
		c.Driver = Driver(driver)

		envString(&c.Path, env.Path)
		envString(&c.Host, env.Host)
		envInt(&c.Port, env.Port)
		envString(&c.Name, env.Name)
		envString(&c.User, env.User)
		envString(&c.Password, env.Password)
		envString(&c.SSLMode, env.SSLMode)
		envInt(&c.MaxOpenConns, env.MaxOpenConns)
		envInt(&c.MaxIdleConns, env.MaxIdleConns)
		envString(&c.ConnMaxLifetime, env.ConnMaxLifetime)
		envString(&c.ConnTimeout, env.ConnTimeout)
	}

	return c.validate()
}

// Merge copies the non-zero fields of overlay onto c.
func (c *Config) Merge(overlay *Config) {
	merge(&c.Driver, overlay.Driver)
	merge(&c.Path, overlay.Path)
	merge(&c.Host, overlay.Host)
	merge(&c.Port, overlay.Port)
	merge(&c.Name, overlay.Name)
	merge(&c.User, overlay.User)
	merge(&c.Password, overlay.Password)
	merge(&c.SSLMode, overlay.SSLMode)
	merge(&c.MaxOpenConns, overlay.MaxOpenConns)
	merge(&c.MaxIdleConns, overlay.MaxIdleConns)
	merge(&c.ConnMaxLifetime, overlay.ConnMaxLifetime)
	merge(&c.ConnTimeout, overlay.ConnTimeout)
}

func (c *Config) validate() error {
	if err := c.Driver.Validate(); err != nil {
		return err
	}

	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("path required")
		}
	case DriverPostgres:
		if c.Name == "" {
			return fmt.Errorf("name required")
		}
		if c.User == "" {
			return fmt.Errorf("user required")
		}
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("invalid port: %d", c.Port)
		}
	}

	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid conn_max_lifetime: %w", err)
	}
	if _, err := time.ParseDuration(c.ConnTimeout); err != nil {
		return fmt.Errorf("invalid conn_timeout: %w", err)
	}
	return nil
}

func setDefault[T comparable](dst *T, v T) {
	var zero T
	if *dst == zero {
		*dst = v
	}
}

func merge[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

func envString(dst *string, name string) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(dst *int, name string) {
	if name == "" {
		return
	}
	if n, err := strconv.Atoi(os.Getenv(name)); err == nil {
		*dst = n
	}
}
