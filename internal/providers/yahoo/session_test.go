package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/smartvalue/internal/infra"
)

func TestSessionHandshake(t *testing.T) {
	crumbCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/crumb", func(w http.ResponseWriter, r *http.Request) {
		crumbCalls++
		c, err := r.Cookie("A3")
		if err != nil || c.Value != "session" {
			http.Error(w, "no cookie", http.StatusUnauthorized)
			return
		}
		w.Write([]byte("abc123\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewSession(infra.NewClient(infra.WithRateLimit(0)), WithEndpoints(srv.URL+"/cookie", srv.URL+"/crumb"))

	crumb, err := s.Crumb(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", crumb)

	q, err := s.Query(context.Background(), map[string]string{"modules": "price"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", q["crumb"])
	assert.Equal(t, "price", q["modules"])
	assert.Equal(t, 1, crumbCalls, "crumb is cached")

	s.Reset()
	_, err = s.Crumb(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, crumbCalls)
}

func TestSessionRejectsHTMLCrumb(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>consent</html>"))
	}))
	defer srv.Close()

	s := NewSession(infra.NewClient(infra.WithRateLimit(0)), WithEndpoints("", srv.URL))
	_, err := s.Crumb(context.Background())
	assert.Error(t, err)
}
