package utils

import "net/http"

// HeaderTransport stamps fixed headers on every outgoing request.
type HeaderTransport struct {
	Headers map[string]string
	Base    http.RoundTripper
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if len(t.Headers) == 0 {
		return base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	for k, v := range t.Headers {
		clone.Header.Set(k, v)
	}
	return base.RoundTrip(clone)
}

// OpenRouterHeaders returns the attribution headers OpenRouter ranks apps by.
// Blank values are left out.
func OpenRouterHeaders(referer, title string) map[string]string {
	h := map[string]string{}
	if referer != "" {
		h["HTTP-Referer"] = referer
	}
	if title != "" {
		h["X-Title"] = title
	}
	return h
}
