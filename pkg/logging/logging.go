// Package logging builds the service's slog logger. Attributes that carry
// credentials (provider API keys, bearer tokens, passwords) are masked
// before they reach the handler.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// Redacted replaces the value of a masked attribute.
const Redacted = "[REDACTED]"

// DefaultRedact lists the attribute keys masked regardless of configuration.
var DefaultRedact = []string{"password", "api_key", "token", "secret", "authorization"}

// New returns a logger writing to cfg.Output.
func New(cfg *Config) *slog.Logger {
	return NewWithWriter(cfg, cfg.Output.writer())
}

// NewWithWriter returns a logger writing to w instead of cfg.Output.
func NewWithWriter(cfg *Config, w io.Writer) *slog.Logger {
	masked := make([]string, 0, len(DefaultRedact)+len(cfg.Redact))
	for _, k := range append(slices.Clone(DefaultRedact), cfg.Redact...) {
		masked = append(masked, strings.ToLower(k))
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level.ToSlogLevel(),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if slices.Contains(masked, strings.ToLower(a.Key)) {
				return slog.String(a.Key, Redacted)
			}
			return a
		},
	}

	if cfg.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Level is a configured severity threshold.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) Validate() error {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return nil
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", l)
	}
}

// ToSlogLevel maps l onto slog. Unknown levels become info.
func (l Level) ToSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func (f Format) Validate() error {
	switch f {
	case FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", f)
	}
}

// Output names the stream logs are written to.
type Output string

const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
)

func (o Output) Validate() error {
	switch o {
	case OutputStdout, OutputStderr:
		return nil
	default:
		return fmt.Errorf("invalid log output: %s (must be stdout or stderr)", o)
	}
}

func (o Output) writer() io.Writer {
	if o == OutputStderr {
		return os.Stderr
	}
	return os.Stdout
}
