// Package users maintains the file-backed credential table.
package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/JaimeStill/rag-lab/internal/config"
	"github.com/JaimeStill/rag-lab/internal/identity"
	"github.com/JaimeStill/rag-lab/pkg/storage"
)

// User is a credential table entry.
type User struct {
	Email        string        `json:"email"`
	PasswordHash string        `json:"password_hash"`
	Role         identity.Role `json:"role"`
	Disabled     bool          `json:"disabled"`
}

// Identity returns the (user, role) pair carried by tokens issued for u.
func (u User) Identity() identity.Identity {
	return identity.Identity{User: u.Email, Role: u.Role}
}

// Info is the public projection of a User.
type Info struct {
	Email    string        `json:"email"`
	Role     identity.Role `json:"role"`
	Disabled bool          `json:"disabled"`
}

func (u User) Info() Info {
	return Info{Email: u.Email, Role: u.Role, Disabled: u.Disabled}
}

// System is the credential table API.
type System interface {
	Create(email, password string, role identity.Role) (User, error)
	Get(email string) (User, error)
	List() []Info
	SetRole(email string, role identity.Role) error
	SetDisabled(email string, disabled bool) error
	Authenticate(email, password string) (User, error)
}

type table struct {
	path   string
	cost   int
	mu     sync.RWMutex
	users  map[string]User
	logger *slog.Logger
}

// New loads the table at cfg.Path. A missing file is seeded with the
// configured admin account when an admin password is set; a corrupt file
// starts an empty table.
func New(cfg *config.UsersConfig, logger *slog.Logger) (System, error) {
	t := &table{
		path:   cfg.Path,
		cost:   cfg.BcryptCost,
		logger: logger.With("system", "users"),
	}

	seed, err := t.load()
	if err != nil {
		return nil, err
	}

	if seed && cfg.AdminPassword != "" {
		if _, err := t.Create(cfg.AdminEmail, cfg.AdminPassword, identity.RoleAdmin); err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		t.logger.Info("admin account seeded", "email", normalize(cfg.AdminEmail))
	}

	return t, nil
}

// load reads the table and reports whether the file was missing.
func (t *table) load() (bool, error) {
	t.users = make(map[string]User)

	data, err := os.ReadFile(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		t.logger.Warn("user table unreadable, starting empty", "path", t.path, "error", err)
		return false, nil
	}

	var users map[string]User
	if err := json.Unmarshal(data, &users); err != nil {
		t.logger.Warn("user table corrupt, starting empty", "path", t.path, "error", err)
		return false, nil
	}

	for _, u := range users {
		if u.Email == "" || u.Role.Validate() != nil {
			t.logger.Warn("skipping invalid user entry", "email", u.Email)
			continue
		}
		t.users[normalize(u.Email)] = u
	}

	t.logger.Info("users loaded", "path", t.path, "users", len(t.users))
	return false, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (t *table) Create(email, password string, role identity.Role) (User, error) {
	email = normalize(email)
	if email == "" || password == "" {
		return User{}, fmt.Errorf("%w: email and password are required", ErrInvalid)
	}
	if role == "" {
		role = identity.RoleUser
	}
	if err := role.Validate(); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), t.cost)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.users[email]; ok {
		return User{}, ErrDuplicate
	}

	u := User{Email: email, PasswordHash: string(hash), Role: role}
	t.users[email] = u
	if err := t.save(); err != nil {
		delete(t.users, email)
		return User{}, err
	}

	t.logger.Info("user created", "email", email, "role", role)
	return u, nil
}

func (t *table) Get(email string) (User, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	u, ok := t.users[normalize(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// List returns every account sorted by email.
func (t *table) List() []Info {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Info, 0, len(t.users))
	for _, email := range slices.Sorted(maps.Keys(t.users)) {
		out = append(out, t.users[email].Info())
	}
	return out
}

func (t *table) SetRole(email string, role identity.Role) error {
	if err := role.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return t.update(email, func(u *User) { u.Role = role })
}

func (t *table) SetDisabled(email string, disabled bool) error {
	return t.update(email, func(u *User) { u.Disabled = disabled })
}

func (t *table) update(email string, fn func(*User)) error {
	email = normalize(email)

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.users[email]
	if !ok {
		return ErrNotFound
	}

	u := prev
	fn(&u)
	t.users[email] = u
	if err := t.save(); err != nil {
		t.users[email] = prev
		return err
	}

	t.logger.Info("user updated", "email", email, "role", u.Role, "disabled", u.Disabled)
	return nil
}

// Authenticate verifies the password. Unknown accounts, wrong passwords and
// disabled accounts all return ErrInvalidCredentials.
func (t *table) Authenticate(email, password string) (User, error) {
	u, err := t.Get(email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if u.Disabled {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (t *table) save() error {
	data, err := json.MarshalIndent(t.users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}

	if err := storage.WriteFile(t.path, data, 0600); err != nil {
		return fmt.Errorf("write users: %w", err)
	}
	return nil
}
