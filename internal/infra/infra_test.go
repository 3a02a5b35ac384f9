package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Cache ──

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Invalidate("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	c.SetWithTTL("short", "x", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestCacheFlush(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	assert.Equal(t, 2, c.Len())
	c.Flush()
	assert.Equal(t, 0, c.Len())
}

// ── Client ──

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbols"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithRateLimit(0))
	body, err := c.Get(context.Background(), srv.URL, map[string]string{"symbols": "AAPL"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such symbol", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithRateLimit(0))
	_, err := c.Get(context.Background(), srv.URL, nil)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.NotFound())
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestClientGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"price": 12.5, "currency": "HKD",}`))
	}))
	defer srv.Close()

	var out struct {
		Price    float64 `json:"price"`
		Currency string  `json:"currency"`
	}
	c := NewClient(WithRateLimit(0))
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, nil, &out))
	assert.Equal(t, 12.5, out.Price)
	assert.Equal(t, "HKD", out.Currency)
}

func TestClientHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := NewClient(WithRateLimit(0))
	_, err := c.Get(ctx, srv.URL, nil)
	assert.Error(t, err)
}

// ── DecodeJSON ──

func TestDecodeJSONValid(t *testing.T) {
	var v map[string]int
	require.NoError(t, DecodeJSON([]byte(`{"a":1}`), &v))
	assert.Equal(t, 1, v["a"])
}

func TestDecodeJSONRejectsTruncatedPayload(t *testing.T) {
	var v struct {
		Values []int `json:"values"`
	}
	err := DecodeJSON([]byte(`{"values":[1,2,3`), &v)
	var de *DecodeError
	require.True(t, errors.As(err, &de), "got %v", err)
	assert.Empty(t, v.Values)
}

func TestValidateJSON(t *testing.T) {
	assert.NoError(t, ValidateJSON([]byte(`[{"a":1}]`)))
	var de *DecodeError
	assert.True(t, errors.As(ValidateJSON([]byte(`[{"a":1},{"b"`)), &de))
	assert.True(t, errors.As(ValidateJSON([]byte(`{'a':1,}`)), &de))
	assert.True(t, errors.As(ValidateJSON(nil), &de))
}

func TestDecodeJSONTypeMismatch(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	err := DecodeJSON([]byte(`{"a":"text"}`), &v)
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestDecodeJSONEmpty(t *testing.T) {
	var v map[string]any
	err := DecodeJSON([]byte("  "), &v)
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestRepairJSONPassesValidThrough(t *testing.T) {
	in := []byte(`{"a":[1,2]}`)
	out, err := RepairJSON(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRepairJSONFixesTruncatedPayload(t *testing.T) {
	out, err := RepairJSON([]byte(`{"values":[1,2,3`))
	require.NoError(t, err)
	assert.True(t, json.Valid(out), "%s", out)
}
