package logging

import (
	"os"
	"strings"
)

// Env names the environment variables that override Config.
type Env struct {
	Level  string
	Format string
	Output string
}

// Config holds logging settings.
//
//	[logging]
//	level = "info"
//	format = "json"
//	output = "stderr"
//	redact = ["qdrant_key"]
type Config struct {
	Level  Level    `toml:"level"`
	Format Format   `toml:"format"`
	Output Output   `toml:"output"`
	Redact []string `toml:"redact"`
}

// Finalize fills defaults, applies env overrides and validates the result.
func (c *Config) Finalize(env *Env) error {
	if c.Level == "" {
		c.Level = LevelInfo
	}
	if c.Format == "" {
		c.Format = FormatText
	}
	if c.Output == "" {
		c.Output = OutputStdout
	}

	if env != nil {
		if v := getenv(env.Level); v != "" {
			c.Level = Level(strings.ToLower(v))
		}
		if v := getenv(env.Format); v != "" {
			c.Format = Format(strings.ToLower(v))
		}
		if v := getenv(env.Output); v != "" {
			c.Output = Output(strings.ToLower(v))
		}
	}

	if err := c.Level.Validate(); err != nil {
		return err
	}
	if err := c.Format.Validate(); err != nil {
		return err
	}
	return c.Output.Validate()
}

// Merge copies the non-empty fields of overlay onto c. Redact keys accumulate.
func (c *Config) Merge(overlay *Config) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
	if overlay.Output != "" {
		c.Output = overlay.Output
	}
	c.Redact = append(c.Redact, overlay.Redact...)
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
