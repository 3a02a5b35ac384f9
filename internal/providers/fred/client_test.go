package fred

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/smartvalue/internal/infra"
)

func newTestClient(t *testing.T, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/series/observations", r.URL.Path)
		assert.Equal(t, "desc", r.URL.Query().Get("sort_order"))
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(infra.NewClient(infra.WithRateLimit(0)), "key", WithBaseURL(srv.URL))
}

func TestLatestSkipsMissing(t *testing.T) {
	c := newTestClient(t, `{"observations":[
		{"date":"2024-05-03","value":"."},
		{"date":"2024-05-02","value":"4.57"},
		{"date":"2024-05-01","value":"4.63"}]}`)

	obs, err := c.Latest(context.Background(), SeriesUSTreasury10Y)
	require.NoError(t, err)
	assert.Equal(t, 0.0457, obs.Value)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), obs.Date)
	assert.Equal(t, "DGS10", obs.SeriesID)
}

func TestLatestAllMissing(t *testing.T) {
	c := newTestClient(t, `{"observations":[{"date":"2024-05-03","value":"."}]}`)
	_, err := c.Latest(context.Background(), SeriesUSBreakeven10Y)
	assert.True(t, errors.Is(err, ErrNoObservation))
}

func TestLatestRequiresKey(t *testing.T) {
	c := New(infra.NewClient(), "")
	_, err := c.Latest(context.Background(), SeriesCNDiscountRate)
	assert.Error(t, err)
}
