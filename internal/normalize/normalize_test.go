package normalize

import (
	"testing"

	"billbot/internal/domain"
)

func TestParseDigisac_Valid(t *testing.T) {
	raw := []byte(`{
		"id": "msg-1",
		"text": "boleto",
		"contact": {"key": "+55 11 99888-7766", "name": "Maria"},
		"channel": {"id": "ch-1", "type": "whatsapp"},
		"timestamp": 1755900000000
	}`)

	msgs := Parse(domain.ProviderDigisac, raw)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.Identity != "5511998887766" {
		t.Errorf("identity = %q", m.Identity)
	}
	if m.Text != "boleto" {
		t.Errorf("text = %q", m.Text)
	}
	if m.MessageID != "msg-1" {
		t.Errorf("message id = %q", m.MessageID)
	}
	if m.Extra["contactName"] != "Maria" {
		t.Errorf("contactName = %q", m.Extra["contactName"])
	}
}

func TestParseWpp_SingleMessage(t *testing.T) {
	raw := []byte(`{
		"event": "onmessage",
		"data": {
			"key": {"remoteJid": "5511998887766@s.whatsapp.net", "id": "wa-1"},
			"body": "boleto",
			"timestamp": 1755900000
		}
	}`)

	msgs := Parse(domain.ProviderWppConnect, raw)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Identity != "5511998887766" {
		t.Errorf("identity = %q", msgs[0].Identity)
	}
	if msgs[0].Text != "boleto" {
		t.Errorf("text = %q", msgs[0].Text)
	}
}

func TestParseWpp_ArrayFanOut(t *testing.T) {
	raw := []byte(`{
		"event": "onmessage",
		"data": [
			{"key": {"remoteJid": "5511111111111@s.whatsapp.net", "id": "a"}, "body": "oi"},
			{"key": {"remoteJid": "5522222222222@s.whatsapp.net", "id": "b"}, "body": "boleto"}
		]
	}`)

	msgs := Parse(domain.ProviderWppConnect, raw)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Identity == msgs[1].Identity {
		t.Error("fan-out should preserve distinct identities")
	}
}

func TestParseWpp_ButtonAndListFallback(t *testing.T) {
	raw := []byte(`{
		"event": "onmessage",
		"data": {"key": {"remoteJid": "551199@s.whatsapp.net", "id": "c"}, "selectedRowId": "1"}
	}`)

	msgs := Parse(domain.ProviderWppConnect, raw)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Text != "1" {
		t.Errorf("expected list selection as text, got %q", msgs[0].Text)
	}
}

func TestParseWpp_SkipsOwnMessages(t *testing.T) {
	raw := []byte(`{
		"event": "onmessage",
		"data": {"key": {"remoteJid": "551199@s.whatsapp.net", "id": "d", "fromMe": true}, "body": "eco"}
	}`)

	if msgs := Parse(domain.ProviderWppConnect, raw); len(msgs) != 0 {
		t.Errorf("expected own message to be dropped, got %d", len(msgs))
	}
}

func TestParse_MalformedYieldsEmpty(t *testing.T) {
	cases := []struct {
		name     string
		provider string
		raw      string
	}{
		{"not json", domain.ProviderDigisac, `not json at all`},
		{"missing phone", domain.ProviderDigisac, `{"id":"x","text":"oi","contact":{},"channel":{"type":"whatsapp"}}`},
		{"missing text", domain.ProviderDigisac, `{"id":"x","contact":{"key":"5511999"},"channel":{"type":"whatsapp"}}`},
		{"blank text", domain.ProviderWppConnect, `{"event":"onmessage","data":{"key":{"remoteJid":"5511@s.whatsapp.net","id":"y"},"body":"   "}}`},
		{"unknown provider", "telegram", `{"text":"oi"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if msgs := Parse(tc.provider, []byte(tc.raw)); len(msgs) != 0 {
				t.Errorf("expected empty slice, got %d messages", len(msgs))
			}
		})
	}
}

func TestParse_GeneratesMessageID(t *testing.T) {
	raw := []byte(`{"text":"oi","contact":{"key":"5511999887766"},"channel":{"type":"whatsapp"}}`)
	msgs := Parse(domain.ProviderDigisac, raw)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].MessageID == "" {
		t.Error("expected generated message id when provider omits one")
	}
}

// Both formats carrying the same logical message must agree on identity and text.
func TestParse_FormatsAgree(t *testing.T) {
	a := Parse(domain.ProviderWppConnect, []byte(`{
		"event": "onmessage",
		"data": {"key": {"remoteJid": "5511998887766@s.whatsapp.net", "id": "m1"}, "body": "segunda via"}
	}`))
	b := Parse(domain.ProviderDigisac, []byte(`{
		"id": "m1", "text": "segunda via",
		"contact": {"key": "5511998887766"}, "channel": {"id": "c", "type": "whatsapp"}
	}`))

	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected one message each, got %d and %d", len(a), len(b))
	}
	if a[0].Identity != b[0].Identity {
		t.Errorf("identity mismatch: %q vs %q", a[0].Identity, b[0].Identity)
	}
	if a[0].Text != b[0].Text {
		t.Errorf("text mismatch: %q vs %q", a[0].Text, b[0].Text)
	}
}

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"digisac shape", `{"contact":{"key":"5511"},"channel":{"type":"whatsapp"},"text":"oi"}`, domain.ProviderDigisac},
		{"event shape", `{"event":"onmessage","data":{}}`, domain.ProviderWppConnect},
		{"key object shape", `{"key":{"remoteJid":"5511@s.whatsapp.net"},"body":"oi"}`, domain.ProviderWppConnect},
		{"unknown", `{"hello":"world"}`, ""},
		{"garbage", `garbage`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect([]byte(tc.raw)); got != tc.want {
				t.Errorf("Detect = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("+55 (11) 99888-7766"); got != "5511998887766" {
		t.Errorf("Digits = %q", got)
	}
	if got := Digits("abc"); got != "" {
		t.Errorf("Digits = %q, want empty", got)
	}
}
