// Package yahoo holds the cookie and crumb handshake shared by the two
// Yahoo Finance sources. Yahoo rejects quoteSummary and timeseries calls
// that carry neither.
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/seenimoa/smartvalue/internal/infra"
)

const (
	DefaultCookieURL = "https://fc.yahoo.com"
	DefaultCrumbURL  = "https://query1.finance.yahoo.com/v1/test/getcrumb"
)

// Session obtains and caches a crumb. The cookie that goes with it lives in
// the client's cookie jar, so the same client must be used for the data
// calls.
type Session struct {
	client    *infra.Client
	cookieURL string
	crumbURL  string

	mu    sync.Mutex
	crumb string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithEndpoints overrides the cookie and crumb URLs. An empty cookie URL
// skips the cookie step.
func WithEndpoints(cookieURL, crumbURL string) SessionOption {
	return func(s *Session) {
		s.cookieURL = cookieURL
		s.crumbURL = crumbURL
	}
}

// NewSession creates a Session over client.
func NewSession(client *infra.Client, opts ...SessionOption) *Session {
	s := &Session{
		client:    client,
		cookieURL: DefaultCookieURL,
		crumbURL:  DefaultCrumbURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the HTTP client bound to the session.
func (s *Session) Client() *infra.Client { return s.client }

// Crumb returns the cached crumb, performing the handshake on first use.
func (s *Session) Crumb(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crumb != "" {
		return s.crumb, nil
	}
	if s.cookieURL != "" {
		// The cookie endpoint answers 404 but still sets the session cookie.
		_, _ = s.client.Get(ctx, s.cookieURL, nil)
	}
	body, err := s.client.Get(ctx, s.crumbURL, nil)
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.ContainsAny(crumb, "<{") {
		return "", fmt.Errorf("yahoo crumb: unexpected body %q", truncate(crumb, 60))
	}
	s.crumb = crumb
	return crumb, nil
}

// Reset forgets the crumb so the next call repeats the handshake.
func (s *Session) Reset() {
	s.mu.Lock()
	s.crumb = ""
	s.mu.Unlock()
}

// Query returns params with the crumb added.
func (s *Session) Query(ctx context.Context, params map[string]string) (map[string]string, error) {
	crumb, err := s.Crumb(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out["crumb"] = crumb
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
