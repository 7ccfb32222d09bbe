package gateway

import (
	"net/http"
	"strings"
	"testing"
)

func TestRenderRequest_RedactsSecrets(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://erp.example/accounts/by-phone?phone=5511999&token=s3cr3t", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer topsecret")
	req.Header.Set("X-Api-Key", "alsosecret")
	req.Header.Set("Accept", "application/json")

	rendered := RenderRequest(req)

	for _, secret := range []string{"topsecret", "alsosecret", "s3cr3t"} {
		if strings.Contains(rendered, secret) {
			t.Errorf("rendered request leaks %q: %s", secret, rendered)
		}
	}
	if !strings.Contains(rendered, "[redacted]") {
		t.Errorf("expected redaction marker: %s", rendered)
	}
	if !strings.Contains(rendered, "phone=5511999") {
		t.Errorf("non-secret params should survive: %s", rendered)
	}
	if !strings.Contains(rendered, "application/json") {
		t.Errorf("non-secret headers should survive: %s", rendered)
	}
}

func TestRenderRequest_Nil(t *testing.T) {
	if got := RenderRequest(nil); got != "" {
		t.Errorf("RenderRequest(nil) = %q", got)
	}
}
