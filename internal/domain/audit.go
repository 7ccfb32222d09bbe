package domain

import (
	"context"
	"time"
)

// AuditEntry is one append-only record of a document-retrieval turn.
type AuditEntry struct {
	ID         int64
	MessageID  string // external provider message id
	AccountID  string
	LegalID    string
	Transcript []string // ordered conversation transcript at write time
	CreatedAt  time.Time
}

// AuditStore persists conversation audit records. Append never overwrites:
// reprocessing the same message id yields a second entry.
type AuditStore interface {
	Append(ctx context.Context, e AuditEntry) error
	GetByMessageID(ctx context.Context, messageID string) ([]AuditEntry, error)
}
