// Package sessions owns chat sessions and their append-only transcripts.
package sessions

import (
	"fmt"
	"slices"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Validate checks that r is a known role.
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return nil
	default:
		return fmt.Errorf("invalid role: %s", r)
	}
}

// Message is one immutable transcript entry.
type Message struct {
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a conversation owned by one user, optionally bound to a document.
type Session struct {
	ID          string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	Messages    []Message `json:"messages"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	DocumentID  *string   `json:"document_id"`
}

// Clone returns a copy that shares no mutable state with s.
func (s Session) Clone() Session {
	s.Messages = slices.Clone(s.Messages)
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	if s.DocumentID != nil {
		id := *s.DocumentID
		s.DocumentID = &id
	}
	return s
}
