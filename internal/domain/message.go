package domain

import "time"

// Provider tags for the two supported chat integrations.
const (
	ProviderWppConnect = "wppconnect" // event-wrapped payloads, sequential sends
	ProviderDigisac    = "digisac"    // flat payloads, one consolidated reply per inbound
)

// Identity is the canonical session/account key derived from a phone number
// (digits only, country code included).
type Identity string

// Inbound is one canonical inbound message, produced by the normalizer from a
// provider webhook body. Ephemeral: created per webhook call, never stored.
type Inbound struct {
	Identity   Identity
	Text       string
	MessageID  string
	ReceivedAt time.Time
	Provider   string
	Extra      map[string]string // opaque provider extension fields
}
