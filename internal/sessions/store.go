package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/JaimeStill/rag-lab/pkg/storage"
)

// Store persists sessions. Implementations make every mutation durable
// before returning.
type Store interface {
	Get(id string) (Session, bool)
	Put(s Session) error
	Delete(id string) error
	ListByOwner(owner string) []Session
	Len() int

	// Latest is the newest LastUpdated across all sessions, or the zero time.
	Latest() time.Time
}

type fileState struct {
	Sessions     map[string]Session  `json:"sessions"`
	UserSessions map[string][]string `json:"user_sessions"`
}

// FileStore keeps the session table and the per-user index in memory and
// rewrites the whole file on every mutation.
type FileStore struct {
	path   string
	mu     sync.RWMutex
	state  fileState
	logger *slog.Logger
}

// NewFileStore loads path. A missing or unreadable file starts an empty table.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	s := &FileStore{
		path:   path,
		logger: logger.With("system", "sessions", "store", "file"),
	}
	s.state = s.load()
	return s
}

func emptyState() fileState {
	return fileState{
		Sessions:     make(map[string]Session),
		UserSessions: make(map[string][]string),
	}
}

func (s *FileStore) load() fileState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("session file unreadable, starting empty", "path", s.path, "error", err)
		}
		return emptyState()
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("session file corrupt, starting empty", "path", s.path, "error", err)
		return emptyState()
	}
	if st.Sessions == nil {
		st.Sessions = make(map[string]Session)
	}

	index := make(map[string][]string)
	for user, ids := range st.UserSessions {
		for _, id := range ids {
			if sess, ok := st.Sessions[id]; ok && sess.UserID == user && !slices.Contains(index[user], id) {
				index[user] = append(index[user], id)
			}
		}
	}
	var orphans []Session
	for id, sess := range st.Sessions {
		if !slices.Contains(index[sess.UserID], id) {
			orphans = append(orphans, sess)
		}
	}
	slices.SortFunc(orphans, func(a, b Session) int { return a.CreatedAt.Compare(b.CreatedAt) })
	for _, sess := range orphans {
		index[sess.UserID] = append(index[sess.UserID], sess.ID)
	}
	st.UserSessions = index

	s.logger.Info("sessions loaded", "path", s.path, "sessions", len(st.Sessions))
	return st
}

func (s *FileStore) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.state.Sessions[id]
	if !ok {
		return Session{}, false
	}
	return sess.Clone(), true
}

func (s *FileStore) Put(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.state.Sessions[sess.ID]
	prevIndex := s.state.UserSessions[sess.UserID]

	s.state.Sessions[sess.ID] = sess.Clone()
	if !slices.Contains(prevIndex, sess.ID) {
		s.state.UserSessions[sess.UserID] = append(slices.Clone(prevIndex), sess.ID)
	}

	if err := s.save(); err != nil {
		if existed {
			s.state.Sessions[sess.ID] = prev
		} else {
			delete(s.state.Sessions, sess.ID)
		}
		s.setIndex(sess.UserID, prevIndex)
		return err
	}
	return nil
}

func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.state.Sessions[id]
	if !ok {
		return nil
	}
	prevIndex := s.state.UserSessions[sess.UserID]

	delete(s.state.Sessions, id)
	s.setIndex(sess.UserID, slices.DeleteFunc(slices.Clone(prevIndex), func(v string) bool { return v == id }))

	if err := s.save(); err != nil {
		s.state.Sessions[id] = sess
		s.setIndex(sess.UserID, prevIndex)
		return err
	}
	return nil
}

func (s *FileStore) setIndex(user string, ids []string) {
	if len(ids) == 0 {
		delete(s.state.UserSessions, user)
		return
	}
	s.state.UserSessions[user] = ids
}

// ListByOwner returns the owner's sessions in creation order.
func (s *FileStore) ListByOwner(owner string) []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.state.UserSessions[owner]
	out := make([]Session, 0, len(ids))
	for _, id := range ids {
		if sess, ok := s.state.Sessions[id]; ok {
			out = append(out, sess.Clone())
		}
	}
	return out
}

func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Sessions)
}

func (s *FileStore) Latest() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, sess := range s.state.Sessions {
		if sess.LastUpdated.After(latest) {
			latest = sess.LastUpdated
		}
	}
	return latest
}

// save writes the state to a temporary file and renames it over path.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}

	if err := storage.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write sessions: %w", err)
	}
	return nil
}
