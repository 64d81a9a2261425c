package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	EnvAuthSecret            = "AUTH_SECRET"
	EnvAuthTokenTTL          = "AUTH_TOKEN_TTL"
	EnvAuthAllowRegistration = "AUTH_ALLOW_REGISTRATION"
	EnvUsersPath             = "USERS_PATH"
	EnvUsersAdminEmail       = "USERS_ADMIN_EMAIL"
	EnvUsersAdminPassword    = "USERS_ADMIN_PASSWORD"
)

// AuthConfig contains token issuance settings.
type AuthConfig struct {
	Secret            string `toml:"secret"`
	Issuer            string `toml:"issuer"`
	TokenTTL          string `toml:"token_ttl"`
	AllowRegistration bool   `toml:"allow_registration"`
}

func (c *AuthConfig) TokenTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TokenTTL)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the auth configuration.
func (c *AuthConfig) Finalize() error {
	if c.Issuer == "" {
		c.Issuer = "rag-lab"
	}
	if c.TokenTTL == "" {
		c.TokenTTL = "30m"
	}

	if v := os.Getenv(EnvAuthSecret); v != "" {
		c.Secret = v
	}
	if v := os.Getenv(EnvAuthTokenTTL); v != "" {
		c.TokenTTL = v
	}
	if v := os.Getenv(EnvAuthAllowRegistration); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AllowRegistration = b
		}
	}

	if len(c.Secret) < 32 {
		return fmt.Errorf("secret must be at least 32 bytes")
	}
	if _, err := time.ParseDuration(c.TokenTTL); err != nil {
		return fmt.Errorf("invalid token_ttl: %w", err)
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *AuthConfig) Merge(overlay *AuthConfig) {
	if overlay.Secret != "" {
		c.Secret = overlay.Secret
	}
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.TokenTTL != "" {
		c.TokenTTL = overlay.TokenTTL
	}
	if overlay.AllowRegistration {
		c.AllowRegistration = true
	}
}

// UsersConfig locates the credential table and the account seeded into an empty one.
type UsersConfig struct {
	Path          string `toml:"path"`
	BcryptCost    int    `toml:"bcrypt_cost"`
	AdminEmail    string `toml:"admin_email"`
	AdminPassword string `toml:"admin_password"`
}

// Finalize applies defaults, loads environment overrides, and validates the users configuration.
func (c *UsersConfig) Finalize() error {
	if c.Path == "" {
		c.Path = ".data/users.json"
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	if c.AdminEmail == "" {
		c.AdminEmail = "admin@example.com"
	}

	if v := os.Getenv(EnvUsersPath); v != "" {
		c.Path = v
	}
	if v := os.Getenv(EnvUsersAdminEmail); v != "" {
		c.AdminEmail = v
	}
	if v := os.Getenv(EnvUsersAdminPassword); v != "" {
		c.AdminPassword = v
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be in [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *UsersConfig) Merge(overlay *UsersConfig) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.BcryptCost != 0 {
		c.BcryptCost = overlay.BcryptCost
	}
	if overlay.AdminEmail != "" {
		c.AdminEmail = overlay.AdminEmail
	}
	if overlay.AdminPassword != "" {
		c.AdminPassword = overlay.AdminPassword
	}
}

const EnvSessionsPath = "SESSIONS_PATH"

// SessionsConfig locates the session table file.
type SessionsConfig struct {
	Path string `toml:"path"`
}

// Finalize applies defaults and environment overrides.
func (c *SessionsConfig) Finalize() error {
	if c.Path == "" {
		c.Path = ".data/sessions.json"
	}
	if v := os.Getenv(EnvSessionsPath); v != "" {
		c.Path = v
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *SessionsConfig) Merge(overlay *SessionsConfig) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
}
