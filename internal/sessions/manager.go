package sessions

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager is the only mutator of session state. A single lock serializes
// mutations together with their persistence; callers never hold it across
// network calls.
type Manager struct {
	store  Store
	mu     sync.Mutex
	last   time.Time
	now    func() time.Time
	logger *slog.Logger
}

// NewManager resumes the timestamp sequence from the newest stored session,
// so ordering survives a restart even if the clock has moved backwards.
func NewManager(store Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		last:   store.Latest(),
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With("system", "sessions"),
	}
}

// tick returns a timestamp strictly after every previous one.
func (m *Manager) tick() time.Time {
	t := m.now()
	if !t.After(m.last) {
		t = m.last.Add(time.Nanosecond)
	}
	m.last = t
	return t
}

// Create starts an empty session for owner, optionally bound to a document.
func (m *Manager) Create(owner string, documentID *string) (Session, error) {
	if owner == "" {
		return Session{}, fmt.Errorf("%w: owner required", ErrInvalid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.tick()
	sess := Session{
		ID:          uuid.NewString(),
		UserID:      owner,
		Messages:    []Message{},
		CreatedAt:   now,
		LastUpdated: now,
		DocumentID:  documentID,
	}

	if err := m.store.Put(sess); err != nil {
		return Session{}, err
	}

	m.logger.Info("session created", "id", sess.ID, "user", owner)
	return sess.Clone(), nil
}

// Get returns the session with id regardless of owner.
func (m *Manager) Get(id string) (Session, error) {
	sess, ok := m.store.Get(id)
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Find returns the session only when owner owns it. Sessions owned by
// someone else are reported as not found.
func (m *Manager) Find(id, owner string) (Session, error) {
	sess, ok := m.store.Get(id)
	if !ok || sess.UserID != owner {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// List returns owner's sessions in creation order.
func (m *Manager) List(owner string) []Session {
	return m.store.ListByOwner(owner)
}

// Count is the number of live sessions across all users.
func (m *Manager) Count() int {
	return m.store.Len()
}

// Append adds a message to the end of a session's transcript.
func (m *Manager) Append(id, content string, role Role) (Message, error) {
	if err := role.Validate(); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.store.Get(id)
	if !ok {
		return Message{}, ErrNotFound
	}

	msg := Message{Content: content, Role: role, Timestamp: m.tick()}
	sess.Messages = append(sess.Messages, msg)
	sess.LastUpdated = msg.Timestamp

	if err := m.store.Put(sess); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Delete removes the session when owner owns it. It reports false, and
// leaves the session untouched, for unknown sessions and non-owners.
func (m *Manager) Delete(id, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.store.Get(id)
	if !ok || sess.UserID != owner {
		return false, nil
	}

	if err := m.store.Delete(id); err != nil {
		return false, err
	}

	m.logger.Info("session deleted", "id", id, "user", owner)
	return true, nil
}
