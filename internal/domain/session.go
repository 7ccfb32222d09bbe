package domain

import (
	"context"
	"time"
)

// Stage is the conversation state for one identity.
type Stage string

const (
	StageInitial       Stage = "initial"
	StageAwaitingID    Stage = "awaiting_identifier"
	StageAwaitingNewID Stage = "awaiting_new_identifier"
	StageMenu          Stage = "menu"
	StageBlocked       Stage = "blocked"
	StageNoPermission  Stage = "no_permission"
)

// Session is the per-identity conversation state. A session with a zero
// LastInteraction, or one older than the configured timeout, is treated as
// non-existent.
type Session struct {
	Identity        Identity  `json:"identity"`
	Stage           Stage     `json:"stage"`
	LastInteraction time.Time `json:"lastInteraction"`
	Accounts        []Account `json:"accounts,omitempty"`
	Contact         *Contact  `json:"contact,omitempty"`
	PendingID       string    `json:"pendingId,omitempty"`
	Transcript      []string  `json:"transcript,omitempty"`
}

// Touch stamps the session with the current interaction time.
func (s *Session) Touch(now time.Time) { s.LastInteraction = now }

// Log appends one line to the ordered conversation transcript.
func (s *Session) Log(line string) { s.Transcript = append(s.Transcript, line) }

// SessionRepository is the injected session store. Implementations must treat
// a stored session without a LastInteraction stamp as expired.
type SessionRepository interface {
	Get(ctx context.Context, id Identity) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id Identity) error
	IsExpired(ctx context.Context, id Identity) (bool, error)
}
