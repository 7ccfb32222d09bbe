package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newDocumentClient(t *testing.T, handler http.Handler) *DocumentClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDocumentClient(DocumentConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	}, testCaller(3), testLogger())
}

func TestListOpen(t *testing.T) {
	c := newDocumentClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/acc-1/documents/open" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"documents":[
			{"id":"doc-1","number":"000123","kind":"boleto","amount":150.5,"dueDate":"2026-09-01T00:00:00Z"},
			{"id":"doc-2","number":"000124","kind":"nfe","amount":150.5,"dueDate":"2026-09-01T00:00:00Z"}
		]}`))
	}))

	res := c.ListOpen(context.Background(), "acc-1")
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if len(res.Data) != 2 || res.Data[0].ID != "doc-1" {
		t.Fatalf("unexpected documents: %+v", res.Data)
	}
}

func TestFetch(t *testing.T) {
	c := newDocumentClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/acc-1/documents/doc-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"filename":"boleto-000123.pdf","mimeType":"application/pdf","content":"JVBERi0x"}`))
	}))

	res := c.Fetch(context.Background(), "acc-1", "doc-1")
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if res.Data.Filename != "boleto-000123.pdf" || res.Data.Base64 != "JVBERi0x" {
		t.Fatalf("unexpected binary: %+v", res.Data)
	}
}

func TestFetch_UpstreamError(t *testing.T) {
	c := newDocumentClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusConflict)
	}))

	res := c.Fetch(context.Background(), "acc-1", "doc-9")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err == nil {
		t.Fatal("expected error detail in envelope")
	}
}
