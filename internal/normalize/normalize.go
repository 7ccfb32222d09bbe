// Package normalize converts provider-specific webhook bodies into canonical
// inbound messages. It is a pure transform: malformed or incomplete payloads
// yield an empty slice, never an error, and callers treat that as "nothing to
// process".
package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"billbot/internal/domain"

	"github.com/google/uuid"
)

// Parse normalizes a raw webhook body for the given provider tag. A single
// webhook call may fan out into multiple canonical messages (wppconnect sends
// arrays); messages missing a phone or text are skipped.
func Parse(provider string, raw []byte) []domain.Inbound {
	switch provider {
	case domain.ProviderDigisac:
		return parseDigisac(raw)
	case domain.ProviderWppConnect:
		return parseWppConnect(raw)
	default:
		return nil
	}
}

// Detect guesses the provider from the payload shape: a nested contact.key
// plus channel.type means digisac; an event name or a key object means
// wppconnect. Deployment config is authoritative — this exists for doctor
// checks and mixed-traffic debugging only.
func Detect(raw []byte) string {
	var probe struct {
		Contact *struct {
			Key string `json:"key"`
		} `json:"contact"`
		Channel *struct {
			Type string `json:"type"`
		} `json:"channel"`
		Event string          `json:"event"`
		Key   json.RawMessage `json:"key"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	if probe.Contact != nil && probe.Contact.Key != "" && probe.Channel != nil && probe.Channel.Type != "" {
		return domain.ProviderDigisac
	}
	if probe.Event != "" || len(probe.Key) > 0 {
		return domain.ProviderWppConnect
	}
	return ""
}

// --- digisac (format B): flat object ---

type digisacPayload struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Contact struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"contact"`
	Channel struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"channel"`
	Timestamp int64 `json:"timestamp"`
}

func parseDigisac(raw []byte) []domain.Inbound {
	var p digisacPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}

	phone := Digits(p.Contact.Key)
	text := strings.TrimSpace(p.Text)
	if phone == "" || text == "" {
		return nil
	}

	msg := domain.Inbound{
		Identity:   domain.Identity(phone),
		Text:       text,
		MessageID:  p.ID,
		ReceivedAt: time.Now(),
		Provider:   domain.ProviderDigisac,
		Extra:      map[string]string{},
	}
	if p.Timestamp > 0 {
		msg.ReceivedAt = time.UnixMilli(p.Timestamp)
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	if p.Contact.Name != "" {
		msg.Extra["contactName"] = p.Contact.Name
	}
	if p.Channel.ID != "" {
		msg.Extra["channelId"] = p.Channel.ID
	}
	if p.Channel.Type != "" {
		msg.Extra["channelType"] = p.Channel.Type
	}
	return []domain.Inbound{msg}
}

// --- wppconnect (format A): event-wrapped, single message or array ---

type wppPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type wppMessage struct {
	Key struct {
		RemoteJid string `json:"remoteJid"`
		ID        string `json:"id"`
		FromMe    bool   `json:"fromMe"`
	} `json:"key"`
	Body             string `json:"body"`
	Content          string `json:"content"`
	SelectedRowID    string `json:"selectedRowId"`
	SelectedButtonID string `json:"selectedButtonId"`
	Timestamp        int64  `json:"timestamp"`
	PushName         string `json:"pushName"`
	InstanceID       string `json:"instanceId"`
}

func parseWppConnect(raw []byte) []domain.Inbound {
	var p wppPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	payload := p.Data
	if len(payload) == 0 {
		// Some instances post the message object at the top level.
		payload = raw
	}

	// Data may be a single message or an array of them.
	var msgs []wppMessage
	if err := json.Unmarshal(payload, &msgs); err != nil {
		var one wppMessage
		if err := json.Unmarshal(payload, &one); err != nil {
			return nil
		}
		msgs = []wppMessage{one}
	}

	var out []domain.Inbound
	for _, m := range msgs {
		if m.Key.FromMe {
			continue
		}
		phone := Digits(jidUser(m.Key.RemoteJid))
		text := firstText(m.Body, m.Content, m.SelectedRowID, m.SelectedButtonID)
		if phone == "" || text == "" {
			continue
		}

		msg := domain.Inbound{
			Identity:   domain.Identity(phone),
			Text:       text,
			MessageID:  m.Key.ID,
			ReceivedAt: time.Now(),
			Provider:   domain.ProviderWppConnect,
			Extra:      map[string]string{},
		}
		if m.Timestamp > 0 {
			msg.ReceivedAt = time.Unix(m.Timestamp, 0)
		}
		if msg.MessageID == "" {
			msg.MessageID = uuid.NewString()
		}
		if m.PushName != "" {
			msg.Extra["pushName"] = m.PushName
		}
		if m.InstanceID != "" {
			msg.Extra["instanceId"] = m.InstanceID
		}
		if p.Event != "" {
			msg.Extra["event"] = p.Event
		}
		out = append(out, msg)
	}
	return out
}

// firstText returns the first non-empty candidate among the message kinds a
// provider can deliver: plain text, button reply, list selection.
func firstText(candidates ...string) string {
	for _, c := range candidates {
		if t := strings.TrimSpace(c); t != "" {
			return t
		}
	}
	return ""
}

// jidUser strips the server suffix from a WhatsApp JID ("5511999@s.whatsapp.net").
func jidUser(jid string) string {
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		return jid[:at]
	}
	return jid
}

// Digits keeps only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
