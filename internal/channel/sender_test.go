package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"billbot/internal/domain"
	"billbot/internal/gateway"
)

func TestWppConnectSender_Text(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewWppConnectSender(srv.URL, "billing", "tok-1", testLogger())
	if err := s.SendText(context.Background(), "5511998887766", "Segue seu boleto."); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if gotPath != "/api/billing/send-message" {
		t.Errorf("path = %s", gotPath)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("auth = %s", gotAuth)
	}
	if gotBody["phone"] != "5511998887766" || gotBody["message"] != "Segue seu boleto." {
		t.Errorf("body = %v", gotBody)
	}
}

func TestWppConnectSender_DocumentDataURI(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWppConnectSender(srv.URL, "billing", "tok-1", testLogger())
	err := s.SendDocument(context.Background(), "5511998887766", "Boleto 000123", domain.Binary{
		Filename: "boleto-000123.pdf",
		MimeType: "application/pdf",
		Base64:   "JVBERi0x",
	})
	if err != nil {
		t.Fatalf("SendDocument: %v", err)
	}
	if gotBody["base64"] != "data:application/pdf;base64,JVBERi0x" {
		t.Errorf("base64 = %v", gotBody["base64"])
	}
	if gotBody["filename"] != "boleto-000123.pdf" {
		t.Errorf("filename = %v", gotBody["filename"])
	}
}

func TestWppConnectSender_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "session closed", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewWppConnectSender(srv.URL, "billing", "tok-1", testLogger())
	err := s.SendText(context.Background(), "5511998887766", "oi")
	if err == nil {
		t.Fatal("expected error")
	}
	var status *gateway.StatusError
	if !errors.As(err, &status) || status.Code != http.StatusBadRequest {
		t.Errorf("err = %v", err)
	}
}

func TestDigisacSender_Batch(t *testing.T) {
	var gotPath string
	var got digisacMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewDigisacSender(srv.URL, "tok-2", "svc-9", testLogger())
	err := s.SendBatch(context.Background(), "5511998887766", "Segue seu boleto.\n\nBoleto 000123", []domain.Binary{
		{Filename: "boleto-000123.pdf", MimeType: "application/pdf", Base64: "JVBERi0x"},
	})
	if err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if gotPath != "/v1/messages" {
		t.Errorf("path = %s", gotPath)
	}
	if got.Number != "5511998887766" || got.ServiceID != "svc-9" {
		t.Errorf("message = %+v", got)
	}
	if !strings.Contains(got.Text, "Boleto 000123") {
		t.Errorf("text = %q", got.Text)
	}
	if len(got.Files) != 1 || got.Files[0].Name != "boleto-000123.pdf" {
		t.Errorf("files = %+v", got.Files)
	}
}

func TestDigisacSender_NoFilesOmitted(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewDigisacSender(srv.URL, "tok-2", "", testLogger())
	if err := s.SendBatch(context.Background(), "5511998887766", "oi", nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["files"]; ok {
		t.Error("files must be omitted when there are no attachments")
	}
}
