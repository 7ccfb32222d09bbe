package gateway

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// secretHeaders are never rendered into logs.
var secretHeaders = map[string]bool{
	"Authorization": true,
	"X-Api-Key":     true,
	"Api-Key":       true,
	"Cookie":        true,
}

// secretParams are query parameters scrubbed from rendered URLs.
var secretParams = map[string]bool{
	"token":   true,
	"apikey":  true,
	"api_key": true,
}

// RenderRequest renders method, URL and headers of an outbound request for
// diagnostic logs, with secrets redacted.
func RenderRequest(req *http.Request) string {
	if req == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", req.Method, redactURL(req.URL))
	for name, values := range req.Header {
		v := strings.Join(values, ", ")
		if secretHeaders[http.CanonicalHeaderKey(name)] {
			v = "[redacted]"
		}
		fmt.Fprintf(&b, " %s=%s", name, v)
	}
	return b.String()
}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	changed := false
	for param := range q {
		if secretParams[strings.ToLower(param)] {
			q.Set(param, "[redacted]")
			changed = true
		}
	}
	if !changed {
		return u.String()
	}
	cp := *u
	cp.RawQuery = q.Encode()
	return cp.String()
}
